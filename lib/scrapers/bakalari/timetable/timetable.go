// Package timetable decodes the portal's server-rendered timetable
// pages into a typed model. Decoding is a pure function of the page
// contents and the selector the page was requested for; the first
// structural mismatch aborts the whole parse.
package timetable

import (
	"fmt"
	"strings"
	"time"

	"bakalari-backend/lib/timezone"

	"github.com/PuerkitoBio/goquery"
)

// Which selects one of the portal's three published timetable windows.
// The portal serves the window server-side, no date range is computed
// locally.
type Which string

const (
	WhichPermanent Which = "permanent"
	WhichActual    Which = "actual"
	WhichNext      Which = "next"
)

// Kind is the category of entity a timetable belongs to.
type Kind string

const (
	KindTeacher Kind = "teacher"
	KindClass   Kind = "class"
	KindRoom    Kind = "room"
)

// Selector identifies what timetable to request: a kind plus the
// portal's internal identifier for the entity. Its identifier is only
// meaningful when it came out of the directory maps of the session the
// page was fetched with.
type Selector struct {
	Kind Kind
	Id   string
}

func (s Selector) String() string {
	return fmt.Sprintf("%s/%s", s.Kind, s.Id)
}

type Timetable struct {
	Hours []Hour `json:"hours"`
	Days  []Day  `json:"days"`
}

// Parse decodes a timetable page. The selector is needed because the
// embedded per-lesson payload omits whichever field corresponds to the
// entity the page is already scoped to.
func Parse(html string, selector Selector) (*Timetable, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return parseDocument(doc, selector, timezone.Now())
}

func parseDocument(doc *goquery.Document, selector Selector, now time.Time) (*Timetable, error) {
	hours := []Hour{}
	var failure error
	doc.Find("div.bk-hour-wrapper").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		hour, err := parseHour(sel, i)
		if err != nil {
			failure = fmt.Errorf("hour %d: %w", i+1, err)
			return false
		}
		hours = append(hours, hour)
		return true
	})
	if failure != nil {
		return nil, failure
	}

	days := []Day{}
	doc.Find("div.bk-timetable-row").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		day, err := parseDay(sel, selector, now)
		if err != nil {
			failure = fmt.Errorf("day %d: %w", i+1, err)
			return false
		}
		days = append(days, day)
		return true
	})
	if failure != nil {
		return nil, failure
	}

	// every row must have one cell per period, a page that disagrees
	// with its own hour header is malformed
	for i, day := range days {
		if len(day.Lessons) != len(hours) {
			return nil, &RowLengthError{Day: i + 1, Cells: len(day.Lessons), Hours: len(hours)}
		}
	}

	return &Timetable{Hours: hours, Days: days}, nil
}
