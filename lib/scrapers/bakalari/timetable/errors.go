package timetable

import (
	"errors"
	"fmt"
)

// Hour header failures. Each selector or parse miss gets its own kind
// so a page-structure drift can be pinned down from the error alone.
var (
	ErrHourNoNum      = errors.New("no hour number")
	ErrHourNoNumText  = errors.New("no hour number text")
	ErrHourBadNum     = errors.New("failed to parse hour number")
	ErrMismatchedNum  = errors.New("mismatched hour number")
	ErrHourNoFrom     = errors.New("no hour start time")
	ErrHourNoFromText = errors.New("no hour start time text")
	ErrHourNoDash     = errors.New("no dash between hour times")
	ErrHourNoTo       = errors.New("no hour end time")
	ErrHourNoToText   = errors.New("no hour end time text")
)

var ErrDayNoDate = errors.New("no day date")

// Lesson cell failures.
var (
	ErrNoDetail         = errors.New("missing data-detail attribute")
	ErrBadDetailJson    = errors.New("failed to parse data-detail json")
	ErrDataTypeMismatch = errors.New("data type mismatch")
)

// ParseTimeError reports an hour time that did not parse as HH:MM.
type ParseTimeError struct {
	Field string
	Text  string
}

func (e *ParseTimeError) Error() string {
	return fmt.Sprintf("failed to parse %s time %q", e.Field, e.Text)
}

// ParseDateError reports a day date that did not parse as "D.M.".
type ParseDateError struct {
	Text string
}

func (e *ParseDateError) Error() string {
	return fmt.Sprintf("failed to parse date %q", e.Text)
}

// MissingPropertyError reports a required lesson payload field or
// sub-element that was absent.
type MissingPropertyError struct {
	Prop string
}

func (e *MissingPropertyError) Error() string {
	return fmt.Sprintf("missing property: %s", e.Prop)
}

// BadSubjectTextError reports a subjecttext payload field that could
// not be split into a subject.
type BadSubjectTextError struct {
	Text string
}

func (e *BadSubjectTextError) Error() string {
	return fmt.Sprintf("bad subjecttext: %q", e.Text)
}

// RowLengthError reports a day row whose cell count disagrees with the
// page's own hour header.
type RowLengthError struct {
	Day   int
	Cells int
	Hours int
}

func (e *RowLengthError) Error() string {
	return fmt.Sprintf("day %d has %d cells for %d hours", e.Day, e.Cells, e.Hours)
}
