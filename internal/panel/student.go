// ABOUTME: Student panel: own grades, course registration, profile, and deletion request
// ABOUTME: Available courses exclude those already on the student's record

package panel

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/2389/vault-dashboard/internal/api"
	"github.com/2389/vault-dashboard/internal/normalize"
	"github.com/2389/vault-dashboard/internal/roles"
)

// ErrNothingSelected is returned when registration is requested with an
// empty selection.
var ErrNothingSelected = errors.New("no courses selected")

// StudentAPI is the remote surface the student panel needs.
type StudentAPI interface {
	StudentGrades(ctx context.Context) (map[string]any, error)
	AvailableCourses(ctx context.Context) ([]any, error)
	RegisterCourses(ctx context.Context, codes []string) error
	RequestDeletion(ctx context.Context) error
}

// StudentDashboard is the student home view model.
type StudentDashboard struct {
	Record normalize.StudentRecord
}

// GradesView is the student's result card.
type GradesView struct {
	Record normalize.StudentRecord
}

// RegistrationView lists courses open for registration.
type RegistrationView struct {
	Available []normalize.Course
	Selected  []string
}

// ProfileView is the student's own profile.
type ProfileView struct {
	Record    normalize.StudentRecord
	SubjectID string
}

// Student is the student panel.
type Student struct {
	*base
	api       StudentAPI
	subjectID string

	grades    *Resource[normalize.StudentRecord]
	available *Resource[[]normalize.Course]

	selection []string // guarded by base.mu
}

func emptyRecord() normalize.StudentRecord {
	r, _ := normalize.NormalizeStudentRecord(normalize.StudentRecord{})
	return r
}

// NewStudent builds the student panel.
func NewStudent(ctx context.Context, client StudentAPI, deps Deps) *Student {
	s := &Student{base: newBase(ctx, roles.Student, deps), api: client, subjectID: deps.SubjectID}
	s.grades = NewResource("grades", emptyRecord,
		listError("grades", InvalidDataMessage), s.changed, s.logger)
	s.available = NewResource("available-courses",
		func() []normalize.Course { return []normalize.Course{} },
		listError("courses", InvalidDataMessage), s.changed, s.logger)
	s.track(s.grades, s.available)
	return s
}

func (s *Student) fetchGrades(ctx context.Context) (normalize.StudentRecord, error) {
	raw, err := s.api.StudentGrades(ctx)
	if err != nil {
		return normalize.StudentRecord{}, err
	}
	r, ok := normalize.NormalizeStudentRecord(raw)
	if !ok {
		return normalize.StudentRecord{}, api.ErrShape
	}
	return r, nil
}

func (s *Student) fetchAvailable(ctx context.Context) ([]normalize.Course, error) {
	raw, err := s.api.AvailableCourses(ctx)
	if err != nil {
		return nil, err
	}
	return normalize.Courses(raw), nil
}

// Activate implements Panel.
func (s *Student) Activate(view string) {
	if !s.enter(view) {
		s.keep()
		s.changed()
		return
	}
	switch view {
	case roles.ViewDashboard, roles.ViewGrades, roles.ViewProfile:
		s.keep(s.grades)
		s.grades.Ensure(s.ctx, "", s.fetchGrades)
	case roles.ViewCourses:
		s.keep(s.grades, s.available)
		s.grades.Ensure(s.ctx, "", s.fetchGrades)
		s.available.Ensure(s.ctx, "", s.fetchAvailable)
	}
	s.changed()
}

// Screen implements Panel.
func (s *Student) Screen() Screen {
	view := s.currentView()
	if !s.variant.Allows(view) {
		return s.unknownView(s.screen(false, ""))
	}
	grades := s.grades.Snapshot()

	switch view {
	case roles.ViewDashboard:
		sc := s.screen(grades.Loading, grades.Err)
		sc.Data = &StudentDashboard{Record: grades.Value}
		return sc
	case roles.ViewGrades:
		sc := s.screen(grades.Loading, grades.Err)
		sc.Data = &GradesView{Record: grades.Value}
		return sc
	case roles.ViewProfile:
		sc := s.screen(grades.Loading, grades.Err)
		sc.Data = &ProfileView{Record: grades.Value, SubjectID: s.subjectID}
		return sc
	case roles.ViewCourses:
		avail := s.available.Snapshot()
		sc := s.screen(grades.Loading || avail.Loading, firstErr(avail.Err, grades.Err))
		open := []normalize.Course{}
		for _, c := range avail.Value {
			if !grades.Value.Registered(c.Code) {
				open = append(open, c)
			}
		}
		s.mu.Lock()
		sc.Data = &RegistrationView{Available: open, Selected: slices.Clone(s.selection)}
		s.mu.Unlock()
		return sc
	}
	return s.screen(false, "")
}

// ToggleCourse adds code to the selection, or removes it if present.
func (s *Student) ToggleCourse(code string) {
	code = strings.TrimSpace(code)
	if code == "" {
		return
	}
	s.mu.Lock()
	if i := slices.Index(s.selection, code); i >= 0 {
		s.selection = slices.Delete(s.selection, i, i+1)
	} else {
		s.selection = append(s.selection, code)
	}
	s.mu.Unlock()
	s.changed()
}

// RegisterSelected registers every selected course, then refetches both
// the record and the available list.
func (s *Student) RegisterSelected(ctx context.Context) error {
	s.mu.Lock()
	codes := slices.Clone(s.selection)
	s.mu.Unlock()
	if len(codes) == 0 {
		s.invalid("Please select at least one course to register")
		return ErrNothingSelected
	}

	if err := s.api.RegisterCourses(ctx, codes); err != nil {
		s.fail("Failed to register courses: ", err)
		return err
	}

	s.mu.Lock()
	s.selection = nil
	s.mu.Unlock()
	s.logger.Info("courses registered", "count", len(codes))
	s.succeed("Courses registered successfully")
	s.grades.Load(s.ctx, "", s.fetchGrades)
	s.available.Load(s.ctx, "", s.fetchAvailable)
	return nil
}

// RequestDeletion files an account deletion request.
func (s *Student) RequestDeletion(ctx context.Context) error {
	if err := s.api.RequestDeletion(ctx); err != nil {
		s.fail("Failed to submit deletion request: ", err)
		return err
	}
	s.logger.Info("deletion requested", "user_id", s.subjectID)
	s.succeed("Account deletion request submitted")
	return nil
}
