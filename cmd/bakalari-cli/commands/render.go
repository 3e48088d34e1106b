package commands

import (
	"fmt"
	"os"
	"strings"

	"bakalari-backend/lib/scrapers/bakalari/timetable"

	"github.com/jedib0t/go-pretty/v6/table"
)

// renderTimetable prints the fetched grid with one row per day and one
// column per period, the way the portal lays it out.
func renderTimetable(tt *timetable.Timetable) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)

	header := table.Row{"Day"}
	for i, hour := range tt.Hours {
		header = append(header, fmt.Sprintf("%d (%s)", i+1, hour.Start))
	}
	t.AppendHeader(header)

	for _, day := range tt.Days {
		row := make(table.Row, len(day.Lessons)+1)
		if day.Date != nil {
			row[0] = day.Date.String()
		} else {
			row[0] = ""
		}
		for i, slot := range day.Lessons {
			row[i+1] = renderSlot(slot)
		}
		t.AppendRow(row)
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderSlot(slot []timetable.Lesson) string {
	if len(slot) == 0 {
		return ""
	}
	parts := make([]string, len(slot))
	for i, lesson := range slot {
		parts[i] = renderLesson(lesson)
	}
	return strings.Join(parts, " / ")
}

func renderLesson(lesson timetable.Lesson) string {
	switch lesson.Kind {
	case timetable.LessonCanceled:
		return "(canceled)"
	case timetable.LessonAbsent:
		return lesson.Abbr
	case timetable.LessonSubstitution:
		return lesson.Abbr + "*"
	}
	return lesson.Abbr
}
