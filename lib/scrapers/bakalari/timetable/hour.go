package timetable

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ClockTime is a time of day with minute precision, serialized as
// "HH:MM" the same way the portal prints it.
type ClockTime struct {
	Hour   int
	Minute int
}

func parseClock(s string) (ClockTime, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return ClockTime{}, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return ClockTime{}, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 || len(parts[1]) != 2 {
		return ClockTime{}, false
	}
	return ClockTime{Hour: hour, Minute: minute}, true
}

func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t ClockTime) minutes() int {
	return t.Hour*60 + t.Minute
}

func (t ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := parseClock(s)
	if !ok {
		return fmt.Errorf("invalid clock time %q", s)
	}
	*t = parsed
	return nil
}

// Hour is one period of the day's schedule: its start time and its
// duration in minutes.
type Hour struct {
	Start    ClockTime `json:"start"`
	Duration int       `json:"duration"`
}

// parseHour decodes one hour header block. `i` is the zero-based
// document-order position; the printed period number must equal i+1,
// which guards against the portal reordering or omitting rows.
func parseHour(sel *goquery.Selection, i int) (Hour, error) {
	numSel, err := singleNode(sel.Find("div.num"), ErrHourNoNum)
	if err != nil {
		return Hour{}, err
	}
	numText, err := singleText(numSel, ErrHourNoNumText)
	if err != nil {
		return Hour{}, err
	}
	num, err := strconv.Atoi(strings.TrimSpace(numText))
	if err != nil {
		return Hour{}, fmt.Errorf("%w: %q", ErrHourBadNum, numText)
	}
	if num != i+1 {
		return Hour{}, ErrMismatchedNum
	}

	times := sel.Find("div.hour > span")
	switch {
	case times.Length() < 1:
		return Hour{}, ErrHourNoFrom
	case times.Length() < 2:
		return Hour{}, ErrHourNoDash
	case times.Length() != 3:
		return Hour{}, ErrHourNoTo
	}

	fromText, err := singleText(times.Eq(0), ErrHourNoFromText)
	if err != nil {
		return Hour{}, err
	}
	from, ok := parseClock(strings.TrimSpace(fromText))
	if !ok {
		return Hour{}, &ParseTimeError{Field: "from", Text: fromText}
	}

	toText, err := singleText(times.Eq(2), ErrHourNoToText)
	if err != nil {
		return Hour{}, err
	}
	to, ok := parseClock(strings.TrimSpace(toText))
	if !ok {
		return Hour{}, &ParseTimeError{Field: "to", Text: toText}
	}

	return Hour{
		Start:    from,
		Duration: to.minutes() - from.minutes(),
	}, nil
}
