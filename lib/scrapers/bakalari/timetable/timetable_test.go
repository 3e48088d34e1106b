package timetable

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bakalari-backend/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
)

func parseFixture(t *testing.T, name string, selector Selector, now time.Time) (*Timetable, error) {
	t.Helper()

	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return parseDocument(doc, selector, now)
}

func TestParseClassActual(t *testing.T) {
	now := time.Date(2024, time.September, 2, 12, 0, 0, 0, timezone.Location)
	got, err := parseFixture(t, "class_actual.html", Selector{Kind: KindClass, Id: "7B"}, now)
	if err != nil {
		t.Fatal(err)
	}

	expected := &Timetable{
		Hours: []Hour{
			{Start: ClockTime{Hour: 8, Minute: 0}, Duration: 45},
			{Start: ClockTime{Hour: 8, Minute: 55}, Duration: 45},
			{Start: ClockTime{Hour: 10, Minute: 0}, Duration: 45},
		},
		Days: []Day{
			{
				Date: &Date{Year: 2024, Month: time.September, Day: 2},
				Lessons: [][]Lesson{
					{
						{
							Kind:        LessonRegular,
							Class:       "7B",
							Subject:     "Matematika",
							Abbr:        "M",
							Teacher:     "Mgr. Jana Dlouha",
							TeacherAbbr: "Dlo",
							Room:        "128",
							Topic:       "Kvadraticke rovnice",
						},
					},
					{},
					{
						{
							Kind:        LessonRegular,
							Class:       "7B",
							Subject:     "Anglicky jazyk",
							Abbr:        "AJ",
							Teacher:     "Mgr. Petr Svoboda",
							TeacherAbbr: "Svo",
							Room:        "204",
							Group:       "7.B 1AJ",
						},
						{
							Kind:        LessonRegular,
							Class:       "7B",
							Subject:     "Nemecky jazyk",
							Abbr:        "NJ",
							Teacher:     "Mgr. Eva Horakova",
							TeacherAbbr: "Hor",
							Room:        "115",
							Group:       "7.B 2NJ",
						},
					},
				},
			},
			{
				Date: &Date{Year: 2024, Month: time.September, Day: 3},
				Lessons: [][]Lesson{
					{
						{Kind: LessonCanceled},
					},
					{
						{
							Kind: LessonAbsent,
							Abbr: "RV",
							Info: "Reditelske volno",
						},
					},
					{
						{
							Kind:        LessonSubstitution,
							Class:       "7B",
							Subject:     "Fyzika",
							Abbr:        "F",
							Teacher:     "RNDr. Karel Novak",
							TeacherAbbr: "Nov",
							Room:        "F1",
						},
					},
				},
			},
		},
	}

	diff := cmp.Diff(expected, got)
	if diff != "" {
		t.Fatal(diff)
	}
}

// a teacher's own page omits the teacher payload field and the
// teacher-abbr element, the selector's identity fills the gap
func TestParseTeacherContext(t *testing.T) {
	now := time.Date(2024, time.September, 2, 12, 0, 0, 0, timezone.Location)
	got, err := parseFixture(t, "teacher_actual.html", Selector{Kind: KindTeacher, Id: "UXYZ"}, now)
	if err != nil {
		t.Fatal(err)
	}

	if len(got.Days) != 1 || len(got.Days[0].Lessons) != 2 {
		t.Fatal("expected 1 day with 2 slots, got", got.Days)
	}
	lesson := got.Days[0].Lessons[0][0]
	expected := Lesson{
		Kind:    LessonRegular,
		Class:   "7.B",
		Subject: "Matematika",
		Abbr:    "M",
		Teacher: "UXYZ",
		Room:    "128",
		Group:   "7.B",
	}
	diff := cmp.Diff(expected, lesson)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestParsePermanentHasNoDates(t *testing.T) {
	now := time.Date(2024, time.September, 2, 12, 0, 0, 0, timezone.Location)
	got, err := parseFixture(t, "class_permanent.html", Selector{Kind: KindClass, Id: "7B"}, now)
	if err != nil {
		t.Fatal(err)
	}

	if len(got.Days) != 1 {
		t.Fatal("expected 1 day, got", len(got.Days))
	}
	if got.Days[0].Date != nil {
		t.Fatal("expected no date, got", got.Days[0].Date)
	}
}

func TestJsonRoundTrip(t *testing.T) {
	now := time.Date(2024, time.September, 2, 12, 0, 0, 0, timezone.Location)
	original, err := parseFixture(t, "class_actual.html", Selector{Kind: KindClass, Id: "7B"}, now)
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatal(err)
	}
	var restored Timetable
	err = json.Unmarshal(data, &restored)
	if err != nil {
		t.Fatal(err)
	}

	diff := cmp.Diff(original, &restored)
	if diff != "" {
		t.Fatal(diff)
	}
}

func hourSelection(t *testing.T, html string) *goquery.Selection {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	sel := doc.Find("div.bk-hour-wrapper")
	if sel.Length() != 1 {
		t.Fatal("bad test snippet, expected one hour wrapper")
	}
	return sel
}

func TestParseHourFailures(t *testing.T) {
	testCases := []struct {
		name     string
		html     string
		expected error
	}{
		{
			name:     "missing number",
			html:     `<div class="bk-hour-wrapper"><div class="hour"><span>8:00</span><span> - </span><span>8:45</span></div></div>`,
			expected: ErrHourNoNum,
		},
		{
			name:     "unparseable number",
			html:     `<div class="bk-hour-wrapper"><div class="num">x</div><div class="hour"><span>8:00</span><span> - </span><span>8:45</span></div></div>`,
			expected: ErrHourBadNum,
		},
		{
			name:     "number disagrees with position",
			html:     `<div class="bk-hour-wrapper"><div class="num">2</div><div class="hour"><span>8:00</span><span> - </span><span>8:45</span></div></div>`,
			expected: ErrMismatchedNum,
		},
		{
			name:     "no times",
			html:     `<div class="bk-hour-wrapper"><div class="num">1</div><div class="hour"></div></div>`,
			expected: ErrHourNoFrom,
		},
		{
			name:     "no dash",
			html:     `<div class="bk-hour-wrapper"><div class="num">1</div><div class="hour"><span>8:00</span></div></div>`,
			expected: ErrHourNoDash,
		},
		{
			name:     "no end time",
			html:     `<div class="bk-hour-wrapper"><div class="num">1</div><div class="hour"><span>8:00</span><span> - </span></div></div>`,
			expected: ErrHourNoTo,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			_, err := parseHour(hourSelection(t, test.html), 0)
			if !errors.Is(err, test.expected) {
				t.Fatal("expected", test.expected, "got", err)
			}
		})
	}
}

func TestParseHourBadTime(t *testing.T) {
	html := `<div class="bk-hour-wrapper"><div class="num">1</div><div class="hour"><span>8:00</span><span> - </span><span>8:7</span></div></div>`
	_, err := parseHour(hourSelection(t, html), 0)
	var timeErr *ParseTimeError
	if !errors.As(err, &timeErr) {
		t.Fatal("expected ParseTimeError, got", err)
	}
	if timeErr.Field != "to" {
		t.Fatal("expected the end time to be reported, got", timeErr.Field)
	}
}

func TestRowLengthMismatch(t *testing.T) {
	html := `
	<div class="bk-timetable">
	  <div class="bk-hour-wrapper"><div class="num">1</div><div class="hour"><span>8:00</span><span> - </span><span>8:45</span></div></div>
	  <div class="bk-hour-wrapper"><div class="num">2</div><div class="hour"><span>8:55</span><span> - </span><span>9:40</span></div></div>
	  <div class="bk-timetable-row">
	    <span class="bk-day-date"></span>
	    <div class="bk-timetable-cell"></div>
	  </div>
	</div>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}

	_, err = parseDocument(doc, Selector{Kind: KindClass, Id: "7B"}, timezone.Now())
	var rowErr *RowLengthError
	if !errors.As(err, &rowErr) {
		t.Fatal("expected RowLengthError, got", err)
	}
	if rowErr.Cells != 1 || rowErr.Hours != 2 {
		t.Fatal("wrong counts reported:", rowErr)
	}
}

func entrySelection(t *testing.T, html string) *goquery.Selection {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	sel := doc.Find("div.day-item-hover")
	if sel.Length() != 1 {
		t.Fatal("bad test snippet, expected one entry")
	}
	return sel
}

func TestParseEntryFailures(t *testing.T) {
	classCtx := Selector{Kind: KindClass, Id: "7B"}
	teacherCtx := Selector{Kind: KindTeacher, Id: "UXYZ"}

	testCases := []struct {
		name     string
		html     string
		selector Selector
		expected error
	}{
		{
			name:     "missing data-detail",
			html:     `<div class="day-item-hover"></div>`,
			selector: classCtx,
			expected: ErrNoDetail,
		},
		{
			name:     "malformed json",
			html:     `<div class="day-item-hover" data-detail='{"type":'></div>`,
			selector: classCtx,
			expected: ErrBadDetailJson,
		},
		{
			name:     "unknown payload type",
			html:     `<div class="day-item-hover" data-detail='{"type":"holiday"}'></div>`,
			selector: classCtx,
			expected: ErrBadDetailJson,
		},
		{
			name:     "removed without pink marker",
			html:     `<div class="day-item-hover" data-detail='{"type":"removed"}'></div>`,
			selector: classCtx,
			expected: ErrDataTypeMismatch,
		},
		{
			name:     "absent without green marker",
			html:     `<div class="day-item-hover" data-detail='{"type":"absent","InfoAbsentName":"Volno","absentinfo":"V"}'></div>`,
			selector: classCtx,
			expected: ErrDataTypeMismatch,
		},
		{
			name:     "absent without reason",
			html:     `<div class="day-item-hover green" data-detail='{"type":"absent","absentinfo":"V"}'></div>`,
			selector: classCtx,
			expected: &MissingPropertyError{Prop: "InfoAbsentName"},
		},
		{
			name:     "atom without teacher outside teacher context",
			html:     `<div class="day-item-hover" data-detail='{"type":"atom","subjecttext":"Matematika | 2.9. | 1","teacher":"","group":""}'><div class="middle">M</div></div>`,
			selector: classCtx,
			expected: &MissingPropertyError{Prop: "teacher"},
		},
		{
			name:     "atom without teacher abbr outside teacher context",
			html:     `<div class="day-item-hover" data-detail='{"type":"atom","subjecttext":"Matematika | 2.9. | 1","teacher":"Mgr. Jana Dlouha","group":""}'><div class="middle">M</div></div>`,
			selector: classCtx,
			expected: &MissingPropertyError{Prop: "teacher_abbr"},
		},
		{
			name:     "atom without group outside class context",
			html:     `<div class="day-item-hover" data-detail='{"type":"atom","subjecttext":"Matematika | 2.9. | 1","teacher":"","group":""}'><div class="middle">M</div></div>`,
			selector: teacherCtx,
			expected: &MissingPropertyError{Prop: "group"},
		},
		{
			name:     "atom without abbr element",
			html:     `<div class="day-item-hover" data-detail='{"type":"atom","subjecttext":"Matematika | 2.9. | 1","teacher":"","group":"7.B"}'></div>`,
			selector: teacherCtx,
			expected: &MissingPropertyError{Prop: "abbr"},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			_, err := parseEntry(entrySelection(t, test.html), test.selector)
			var missing *MissingPropertyError
			if errors.As(test.expected, &missing) {
				var got *MissingPropertyError
				if !errors.As(err, &got) {
					t.Fatal("expected MissingPropertyError, got", err)
				}
				if got.Prop != missing.Prop {
					t.Fatal("expected missing", missing.Prop, "got missing", got.Prop)
				}
				return
			}
			if !errors.Is(err, test.expected) {
				t.Fatal("expected", test.expected, "got", err)
			}
		})
	}
}

func TestBadSubjectText(t *testing.T) {
	html := `<div class="day-item-hover" data-detail='{"type":"atom","subjecttext":"Matematika","teacher":"","group":"7.B"}'><div class="middle">M</div></div>`
	_, err := parseEntry(entrySelection(t, html), Selector{Kind: KindTeacher, Id: "UXYZ"})
	var badSubject *BadSubjectTextError
	if !errors.As(err, &badSubject) {
		t.Fatal("expected BadSubjectTextError, got", err)
	}
}

func TestParseDayDate(t *testing.T) {
	testCases := []struct {
		text     string
		now      time.Time
		expected Date
	}{
		// same year, a little in the past
		{
			text:     "2.9.",
			now:      time.Date(2024, time.September, 20, 0, 0, 0, 0, timezone.Location),
			expected: Date{Year: 2024, Month: time.September, Day: 2},
		},
		// january date read in march still belongs to this year
		{
			text:     "15.1.",
			now:      time.Date(2024, time.March, 1, 0, 0, 0, 0, timezone.Location),
			expected: Date{Year: 2024, Month: time.January, Day: 15},
		},
		// december date read in january belongs to last year
		{
			text:     "15.12.",
			now:      time.Date(2024, time.January, 1, 0, 0, 0, 0, timezone.Location),
			expected: Date{Year: 2023, Month: time.December, Day: 15},
		},
		// january date read in december belongs to next year
		{
			text:     "10.1.",
			now:      time.Date(2024, time.December, 20, 0, 0, 0, 0, timezone.Location),
			expected: Date{Year: 2025, Month: time.January, Day: 10},
		},
		// exactly 60 calendar days back stays in the current year,
		// even when the clock is past midnight
		{
			text:     "1.1.",
			now:      time.Date(2024, time.March, 1, 12, 0, 0, 0, timezone.Location),
			expected: Date{Year: 2024, Month: time.January, Day: 1},
		},
		// one day further back crosses the window
		{
			text:     "1.1.",
			now:      time.Date(2024, time.March, 2, 12, 0, 0, 0, timezone.Location),
			expected: Date{Year: 2025, Month: time.January, Day: 1},
		},
	}

	for _, test := range testCases {
		got, err := parseDayDate(test.text, test.now)
		if err != nil {
			t.Fatal(test.text, err)
		}
		diff := cmp.Diff(test.expected, got)
		if diff != "" {
			t.Fatal(test.text, diff)
		}
	}
}

func TestParseDayDateFailures(t *testing.T) {
	now := time.Date(2024, time.September, 2, 0, 0, 0, 0, timezone.Location)
	testCases := []string{
		"",
		"2.9",
		"2.9.x",
		"x.9.",
		"2.x.",
		"31.2.",
		"2.13.",
	}

	for _, text := range testCases {
		_, err := parseDayDate(text, now)
		var dateErr *ParseDateError
		if !errors.As(err, &dateErr) {
			t.Fatal(text, "expected ParseDateError, got", err)
		}
	}
}

func TestSelectorString(t *testing.T) {
	s := Selector{Kind: KindTeacher, Id: "UXYZ"}
	if s.String() != "teacher/UXYZ" {
		t.Fatal("got", s.String())
	}
}
