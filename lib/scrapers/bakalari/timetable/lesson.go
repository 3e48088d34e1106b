package timetable

import (
	"encoding/json"
	"fmt"
	"strings"

	"bakalari-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

type LessonKind string

const (
	LessonRegular      LessonKind = "regular"
	LessonSubstitution LessonKind = "substitution"
	LessonCanceled     LessonKind = "canceled"
	LessonAbsent       LessonKind = "absent"
)

// Lesson is one occupant of a single period-and-day cell. Regular and
// Substitution carry the same fields and differ only in whether the
// portal flagged the slot as changed; Canceled carries nothing; Absent
// carries a free-text reason and a short code in Info/Abbr.
type Lesson struct {
	Kind        LessonKind `json:"type"`
	Class       string     `json:"class,omitempty"`
	Subject     string     `json:"subject,omitempty"`
	Abbr        string     `json:"abbr,omitempty"`
	Teacher     string     `json:"teacher,omitempty"`
	TeacherAbbr string     `json:"teacher_abbr,omitempty"`
	Room        string     `json:"room,omitempty"`
	Group       string     `json:"group,omitempty"`
	Topic       string     `json:"topic,omitempty"`
	Info        string     `json:"info,omitempty"`
}

// lessonDetail is the JSON object embedded in each entry's data-detail
// attribute, discriminated by Type. Empty strings mean "no value".
type lessonDetail struct {
	Type           string `json:"type"`
	SubjectText    string `json:"subjecttext"`
	Teacher        string `json:"teacher"`
	Room           string `json:"room"`
	Group          string `json:"group"`
	Theme          string `json:"theme"`
	InfoAbsentName string `json:"InfoAbsentName"`
	AbsentInfo     string `json:"absentinfo"`
}

// parseCell decodes one period cell of a day row. A cell without a
// day-item container is an empty slot, not an error.
func parseCell(cell *goquery.Selection, selector Selector) ([]Lesson, error) {
	item := cell.Find("div.day-item")
	if item.Length() == 0 {
		return []Lesson{}, nil
	}

	lessons := []Lesson{}
	var failure error
	item.First().Find("div.day-item-hover").EachWithBreak(func(_ int, entry *goquery.Selection) bool {
		lesson, err := parseEntry(entry, selector)
		if err != nil {
			failure = err
			return false
		}
		lessons = append(lessons, lesson)
		return true
	})
	if failure != nil {
		return nil, failure
	}

	return lessons, nil
}

// parseEntry runs the two-stage decode of a lesson entry: the payload's
// declared type picks the candidate variant, then the presentational
// CSS marker has to confirm it. The payload type alone never decides.
func parseEntry(entry *goquery.Selection, selector Selector) (Lesson, error) {
	raw, ok := entry.Attr("data-detail")
	if !ok {
		return Lesson{}, ErrNoDetail
	}

	var detail lessonDetail
	if err := json.Unmarshal([]byte(raw), &detail); err != nil {
		return Lesson{}, fmt.Errorf("%w: %v", ErrBadDetailJson, err)
	}

	node := entry.Nodes[0]
	switch detail.Type {
	case "atom":
		return parseAtom(entry, detail, selector)
	case "absent":
		if !htmlutil.HasClass(node, "green") {
			return Lesson{}, ErrDataTypeMismatch
		}
		if detail.InfoAbsentName == "" {
			return Lesson{}, &MissingPropertyError{Prop: "InfoAbsentName"}
		}
		if detail.AbsentInfo == "" {
			return Lesson{}, &MissingPropertyError{Prop: "absentinfo"}
		}
		return Lesson{
			Kind: LessonAbsent,
			Info: detail.InfoAbsentName,
			Abbr: detail.AbsentInfo,
		}, nil
	case "removed":
		if !htmlutil.HasClass(node, "pink") {
			return Lesson{}, ErrDataTypeMismatch
		}
		return Lesson{Kind: LessonCanceled}, nil
	default:
		return Lesson{}, fmt.Errorf("%w: unknown type %q", ErrBadDetailJson, detail.Type)
	}
}

func parseAtom(entry *goquery.Selection, detail lessonDetail, selector Selector) (Lesson, error) {
	subject, err := splitSubject(detail.SubjectText)
	if err != nil {
		return Lesson{}, err
	}

	abbr, err := elementProp(entry, "div.middle", "abbr")
	if err != nil {
		return Lesson{}, err
	}

	teacher := detail.Teacher
	if teacher == "" {
		// a teacher's own timetable omits the teacher field
		if selector.Kind != KindTeacher {
			return Lesson{}, &MissingPropertyError{Prop: "teacher"}
		}
		teacher = selector.Id
	}

	var teacherAbbr string
	if selector.Kind != KindTeacher {
		teacherAbbr, err = elementProp(entry, "div.bottom", "teacher_abbr")
		if err != nil {
			return Lesson{}, err
		}
	}

	var class string
	if selector.Kind == KindClass {
		class = selector.Id
	} else {
		if detail.Group == "" {
			return Lesson{}, &MissingPropertyError{Prop: "group"}
		}
		class = detail.Group
	}

	kind := LessonRegular
	if htmlutil.HasClass(entry.Nodes[0], "pink") {
		kind = LessonSubstitution
	}

	return Lesson{
		Kind:        kind,
		Class:       class,
		Subject:     subject,
		Abbr:        abbr,
		Teacher:     teacher,
		TeacherAbbr: teacherAbbr,
		Room:        detail.Room,
		Group:       detail.Group,
		Topic:       detail.Theme,
	}, nil
}

// splitSubject takes the subject out of the payload's compound
// subjecttext field, e.g. "Mathematics | 15.1. | 3".
func splitSubject(subjectText string) (string, error) {
	if subjectText == "" {
		return "", &MissingPropertyError{Prop: "subjecttext"}
	}
	subject, _, found := strings.Cut(subjectText, " | ")
	if !found {
		return "", &BadSubjectTextError{Text: subjectText}
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", &BadSubjectTextError{Text: subjectText}
	}
	return subject, nil
}

// elementProp extracts the trimmed text of a required presentational
// sub-element.
func elementProp(entry *goquery.Selection, cssSelector, prop string) (string, error) {
	miss := &MissingPropertyError{Prop: prop}
	elem, err := singleNode(entry.Find(cssSelector), miss)
	if err != nil {
		return "", err
	}
	text, err := singleText(elem, miss)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
