// ABOUTME: Normalization of course, grade, roster, and child records
// ABOUTME: Courses may arrive as bare code strings or as objects

package normalize

import (
	"encoding/json"
	"strings"
)

// Course is a render-safe course reference.
type Course struct {
	Code string
	Name string
}

// NormalizeCourse accepts a code string, a raw object, or a Course.
func NormalizeCourse(v any) (Course, bool) {
	var c Course
	switch t := v.(type) {
	case Course:
		c = t
	case string:
		c = Course{Code: strings.TrimSpace(t)}
	case json.Number, float64:
		c = Course{Code: Text(t, "")}
	default:
		obj, ok := object(v)
		if !ok {
			return Course{}, false
		}
		c = Course{
			Code: first(obj, "", "courseCode", "code"),
			Name: first(obj, "", "courseName", "name"),
		}
	}
	if c.Code == "" || c.Code == Protected {
		return Course{}, false
	}
	if c.Name == "" {
		c.Name = c.Code
	}
	return c, true
}

// Courses normalizes a raw list, skipping entries without a usable code.
func Courses(items []any) []Course {
	out := make([]Course, 0, len(items))
	for _, item := range items {
		if c, ok := NormalizeCourse(item); ok {
			out = append(out, c)
		}
	}
	return out
}

// CourseGrade is a course with the grade earned in it.
type CourseGrade struct {
	Course
	Grade string
}

// Graded reports whether a real grade has been assigned.
func (g CourseGrade) Graded() bool {
	return g.Grade != "" && !strings.HasPrefix(g.Grade, NotGraded)
}

// Status is the parent-facing outcome: FAILED for F, PENDING while ungraded,
// PASSED otherwise.
func (g CourseGrade) Status() string {
	switch {
	case g.Grade == "F":
		return "FAILED"
	case !g.Graded():
		return "PENDING"
	}
	return "PASSED"
}

func normalizeCourseGrade(v any) (CourseGrade, bool) {
	if g, ok := v.(CourseGrade); ok {
		if g.Grade == "" {
			g.Grade = NotGraded
		}
		c, ok := NormalizeCourse(g.Course)
		return CourseGrade{Course: c, Grade: g.Grade}, ok
	}
	c, ok := NormalizeCourse(v)
	if !ok {
		return CourseGrade{}, false
	}
	grade := NotGraded
	if obj, isObj := object(v); isObj {
		grade = Text(obj["grade"], NotGraded)
	}
	return CourseGrade{Course: c, Grade: grade}, true
}

func courseGrades(v any) []CourseGrade {
	out := []CourseGrade{}
	switch t := v.(type) {
	case []CourseGrade:
		for _, g := range t {
			if n, ok := normalizeCourseGrade(g); ok {
				out = append(out, n)
			}
		}
	case []any:
		for _, item := range t {
			if n, ok := normalizeCourseGrade(item); ok {
				out = append(out, n)
			}
		}
	}
	return out
}

// StudentRecord is a student's own result card.
type StudentRecord struct {
	StudentID   string
	StudentName string
	Class       string
	Courses     []CourseGrade
}

// Registered reports whether the record already lists code.
func (r StudentRecord) Registered(code string) bool {
	for _, c := range r.Courses {
		if c.Code == code {
			return true
		}
	}
	return false
}

// NormalizeStudentRecord accepts a raw object or a StudentRecord.
func NormalizeStudentRecord(v any) (StudentRecord, bool) {
	var r StudentRecord
	if t, ok := v.(StudentRecord); ok {
		r = t
		r.Courses = courseGrades(t.Courses)
	} else {
		obj, ok := object(v)
		if !ok {
			return StudentRecord{}, false
		}
		r = StudentRecord{
			StudentID:   first(obj, "", "studentId", "userId"),
			StudentName: first(obj, "", "studentName", "fullName"),
			Class:       Text(obj["class"], ""),
			Courses:     courseGrades(obj["courses"]),
		}
	}
	if r.StudentID == "" {
		r.StudentID = NotAvailable
	}
	if r.StudentName == "" {
		r.StudentName = UnnamedUser
	}
	if r.Class == "" {
		r.Class = NotAvailable
	}
	return r, true
}

// RosterEntry is one student in a course roster.
type RosterEntry struct {
	StudentID string
	FullName  string
	Class     string
	Grade     string
}

// NormalizeRosterEntry accepts a raw object or a RosterEntry. Entries without
// an id are rejected because grades cannot be assigned to them.
func NormalizeRosterEntry(v any) (RosterEntry, bool) {
	var e RosterEntry
	if t, ok := v.(RosterEntry); ok {
		e = t
	} else {
		obj, ok := object(v)
		if !ok {
			return RosterEntry{}, false
		}
		e = RosterEntry{
			StudentID: first(obj, "", "userId", "id"),
			FullName:  first(obj, "", "fullName", "name"),
			Class:     Text(obj["class"], ""),
			Grade:     Text(obj["grade"], ""),
		}
	}
	if e.StudentID == "" || e.StudentID == Protected {
		return RosterEntry{}, false
	}
	if e.FullName == "" {
		e.FullName = UnnamedUser
	}
	if e.Class == "" {
		e.Class = NotAvailable
	}
	if e.Grade == "" {
		e.Grade = NotGraded
	}
	return e, true
}

// Roster normalizes a raw list.
func Roster(items []any) []RosterEntry {
	out := make([]RosterEntry, 0, len(items))
	for _, item := range items {
		if e, ok := NormalizeRosterEntry(item); ok {
			out = append(out, e)
		}
	}
	return out
}

// Child is a parent's linked student.
type Child struct {
	StudentID string
	FullName  string
	Class     string
	Courses   []CourseGrade
}

func normalizeChild(v any) (Child, bool) {
	var c Child
	if t, ok := v.(Child); ok {
		c = t
		c.Courses = courseGrades(t.Courses)
	} else {
		obj, ok := object(v)
		if !ok {
			return Child{}, false
		}
		c = Child{
			StudentID: first(obj, "", "userId", "studentId", "id"),
			FullName:  first(obj, "", "fullName", "studentName"),
			Class:     Text(obj["class"], ""),
			Courses:   courseGrades(obj["courses"]),
		}
	}
	if c.StudentID == "" {
		c.StudentID = UnknownID
	}
	if c.FullName == "" {
		c.FullName = UnnamedUser
	}
	if c.Class == "" {
		c.Class = NotAvailable
	}
	return c, true
}

// Children accepts a single child object, an array of them, or []Child.
func Children(v any) []Child {
	out := []Child{}
	switch t := v.(type) {
	case []Child:
		for _, c := range t {
			if n, ok := normalizeChild(c); ok {
				out = append(out, n)
			}
		}
	case []any:
		for _, item := range t {
			if n, ok := normalizeChild(item); ok {
				out = append(out, n)
			}
		}
	default:
		if n, ok := normalizeChild(v); ok {
			out = append(out, n)
		}
	}
	return out
}
