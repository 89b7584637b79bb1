// ABOUTME: Teacher panel: taught courses, per-course rosters, and grade assignment
// ABOUTME: Roster fetches are keyed by course so a late answer for a prior course is dropped

package panel

import (
	"context"
	"slices"
	"strings"

	"github.com/2389/vault-dashboard/internal/normalize"
	"github.com/2389/vault-dashboard/internal/roles"
)

// Grades a teacher may assign.
var Grades = []string{"A", "B", "C", "D", "F"}

// TeacherAPI is the remote surface the teacher panel needs.
type TeacherAPI interface {
	TeachingCourses(ctx context.Context) ([]any, error)
	CourseStudents(ctx context.Context, code string) ([]any, error)
	UpdateGrade(ctx context.Context, studentID, code, grade string) error
}

// Roster is a course's student list.
type Roster struct {
	Course   string
	Students []normalize.RosterEntry
}

// TeacherDashboard is the teacher home view model.
type TeacherDashboard struct {
	Courses []normalize.Course
}

// CoursesView lists the courses the teacher teaches.
type CoursesView struct {
	Courses []normalize.Course
}

// RosterView is the students view for the selected course.
type RosterView struct {
	Course   normalize.Course
	Students []normalize.RosterEntry
}

// Teacher is the teacher panel.
type Teacher struct {
	*base
	api TeacherAPI

	courses *Resource[[]normalize.Course]
	roster  *Resource[Roster]

	selected string // guarded by base.mu
}

// NewTeacher builds the teacher panel.
func NewTeacher(ctx context.Context, client TeacherAPI, deps Deps) *Teacher {
	t := &Teacher{base: newBase(ctx, roles.Teacher, deps), api: client}
	t.courses = NewResource("courses",
		func() []normalize.Course { return []normalize.Course{} },
		listError("courses", InvalidDataMessage), t.changed, t.logger)
	t.roster = NewResource("roster",
		func() Roster { return Roster{Students: []normalize.RosterEntry{}} },
		listError("students", InvalidDataMessage), t.changed, t.logger)
	t.track(t.courses, t.roster)
	return t
}

func (t *Teacher) fetchCourses(ctx context.Context) ([]normalize.Course, error) {
	raw, err := t.api.TeachingCourses(ctx)
	if err != nil {
		return nil, err
	}
	return normalize.Courses(raw), nil
}

func (t *Teacher) rosterFetch(code string) Fetch[Roster] {
	return func(ctx context.Context) (Roster, error) {
		raw, err := t.api.CourseStudents(ctx, code)
		if err != nil {
			return Roster{}, err
		}
		return Roster{Course: code, Students: normalize.Roster(raw)}, nil
	}
}

func (t *Teacher) selectedCourse() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.selected
}

// Activate implements Panel.
func (t *Teacher) Activate(view string) {
	if !t.enter(view) {
		t.keep()
		t.changed()
		return
	}
	switch view {
	case roles.ViewDashboard, roles.ViewCourses, roles.ViewGrades:
		t.keep(t.courses)
		t.courses.Ensure(t.ctx, "", t.fetchCourses)
	case roles.ViewStudents:
		t.keep(t.courses, t.roster)
		t.courses.Ensure(t.ctx, "", t.fetchCourses)
		if code := t.selectedCourse(); code != "" {
			t.roster.Ensure(t.ctx, code, t.rosterFetch(code))
		}
	}
	t.changed()
}

// Screen implements Panel.
func (t *Teacher) Screen() Screen {
	view := t.currentView()
	if !t.variant.Allows(view) {
		return t.unknownView(t.screen(false, ""))
	}
	courses := t.courses.Snapshot()

	switch view {
	case roles.ViewDashboard:
		s := t.screen(courses.Loading, courses.Err)
		s.Data = &TeacherDashboard{Courses: courses.Value}
		return s
	case roles.ViewCourses, roles.ViewGrades:
		s := t.screen(courses.Loading, courses.Err)
		s.Data = &CoursesView{Courses: courses.Value}
		return s
	case roles.ViewStudents:
		code := t.selectedCourse()
		if code == "" {
			s := t.screen(courses.Loading, courses.Err)
			s.Notice = NoticeNoTarget
			s.NoticeText = "No course selected. Choose a course to see its students."
			s.Data = &CoursesView{Courses: courses.Value}
			return s
		}
		roster := t.roster.Snapshot()
		s := t.screen(roster.Loading, roster.Err)
		course := normalize.Course{Code: code, Name: code}
		if i := slices.IndexFunc(courses.Value, func(c normalize.Course) bool { return c.Code == code }); i >= 0 {
			course = courses.Value[i]
		}
		students := []normalize.RosterEntry{}
		if roster.Value.Course == code {
			students = roster.Value.Students
		}
		s.Data = &RosterView{Course: course, Students: students}
		return s
	}
	return t.screen(false, "")
}

// SelectCourse makes code the roster course and jumps to the students view.
func (t *Teacher) SelectCourse(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return t.invalid("Invalid course code")
	}
	t.mu.Lock()
	t.selected = code
	t.mu.Unlock()
	t.roster.Load(t.ctx, code, t.rosterFetch(code))
	t.navigate(roles.ViewStudents)
	return nil
}

// UpdateGrade assigns grade to studentID in the selected course. The held
// roster row is patched on success so the view reflects the write at once.
func (t *Teacher) UpdateGrade(ctx context.Context, studentID, grade string) error {
	code := t.selectedCourse()
	if code == "" {
		t.mu.Lock()
		t.actionErr = "No course selected"
		t.mu.Unlock()
		t.changed()
		return ErrNoTarget
	}
	studentID = strings.TrimSpace(studentID)
	grade = strings.ToUpper(strings.TrimSpace(grade))
	if studentID == "" {
		return t.invalid("Invalid student ID")
	}
	if !slices.Contains(Grades, grade) {
		return t.invalid("Grade must be one of " + strings.Join(Grades, ", "))
	}

	if err := t.api.UpdateGrade(ctx, studentID, code, grade); err != nil {
		t.fail("Failed to update grade: ", err)
		return err
	}

	t.roster.Update(func(r Roster) Roster {
		if r.Course != code {
			return r
		}
		students := slices.Clone(r.Students)
		for i := range students {
			if students[i].StudentID == studentID {
				students[i].Grade = grade
			}
		}
		r.Students = students
		return r
	})
	// A fetch issued before the write may still answer with the old grade.
	if st := t.roster.Snapshot(); st.Loading && st.Key == code {
		t.roster.Load(t.ctx, code, t.rosterFetch(code))
	}
	t.logger.Info("grade updated", "course", code, "student_id", studentID)
	t.succeed("Grade updated successfully")
	return nil
}
