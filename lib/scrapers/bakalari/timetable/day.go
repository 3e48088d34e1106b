package timetable

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"bakalari-backend/lib/htmlutil"
	"bakalari-backend/lib/timezone"

	"github.com/PuerkitoBio/goquery"
)

// Date is a calendar date, serialized as "2006-01-02".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseInLocation("2006-01-02", s, timezone.Location)
	if err != nil {
		return err
	}
	*d = Date{Year: parsed.Year(), Month: parsed.Month(), Day: parsed.Day()}
	return nil
}

// Day is one row of the timetable grid: an optional calendar date
// (absent for the permanent window) and one lesson slot per period.
// A slot with more than one lesson means overlapping sub-lessons,
// e.g. split groups.
type Day struct {
	Date    *Date      `json:"date"`
	Lessons [][]Lesson `json:"lessons"`
}

func parseDay(sel *goquery.Selection, selector Selector, now time.Time) (Day, error) {
	dateSel, err := singleNode(sel.Find("span.bk-day-date"), ErrDayNoDate)
	if err != nil {
		return Day{}, err
	}

	texts := htmlutil.TextNodes(dateSel.Nodes[0])
	if len(texts) > 1 {
		return Day{}, ErrDayNoDate
	}

	var date *Date
	if len(texts) == 1 {
		parsed, err := parseDayDate(strings.TrimSpace(texts[0]), now)
		if err != nil {
			return Day{}, err
		}
		date = &parsed
	}

	lessons := [][]Lesson{}
	var failure error
	sel.Find("div.bk-timetable-cell").EachWithBreak(func(i int, cell *goquery.Selection) bool {
		slot, err := parseCell(cell, selector)
		if err != nil {
			failure = fmt.Errorf("cell %d: %w", i+1, err)
			return false
		}
		lessons = append(lessons, slot)
		return true
	})
	if failure != nil {
		return Day{}, failure
	}

	return Day{Date: date, Lessons: lessons}, nil
}

// parseDayDate decodes the portal's year-less "D.M." date strings.
// The current year is taken as a baseline; a candidate more than 60
// days in the past is assumed to belong to next year and one more
// than 60 days in the future to last year, since school timetables
// span a calendar-year boundary and the portal never prints a year.
func parseDayDate(text string, now time.Time) (Date, error) {
	parts := strings.Split(text, ".")
	// the trailing dot is part of the format, nothing may follow it
	if len(parts) != 3 || parts[2] != "" {
		return Date{}, &ParseDateError{Text: text}
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return Date{}, &ParseDateError{Text: text}
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return Date{}, &ParseDateError{Text: text}
	}

	year := now.Year()
	candidate, ok := makeDate(year, time.Month(month), day, now.Location())
	if !ok {
		return Date{}, &ParseDateError{Text: text}
	}

	// the window counts calendar days, so compare against midnight
	// and round away the hour a DST change adds or removes
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	diffDays := int(math.Round(candidate.Sub(today).Hours() / 24))
	if diffDays < -60 {
		year++
	} else if diffDays > 60 {
		year--
	}
	if year != now.Year() {
		// re-validate, the shifted year may not have this date
		// (leap day)
		if _, ok := makeDate(year, time.Month(month), day, now.Location()); !ok {
			return Date{}, &ParseDateError{Text: text}
		}
	}

	return Date{Year: year, Month: time.Month(month), Day: day}, nil
}

func makeDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
