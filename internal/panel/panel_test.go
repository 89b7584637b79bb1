// ABOUTME: Tests for panel activation, stale response handling, cross-view jumps, and actions
// ABOUTME: A stub client with per-call hooks stands in for the remote service

package panel

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/vault-dashboard/internal/api"
	"github.com/2389/vault-dashboard/internal/normalize"
	"github.com/2389/vault-dashboard/internal/roles"
)

type stubClient struct {
	mu    sync.Mutex
	calls []string

	users        func(ctx context.Context) ([]any, error)
	getUser      func(ctx context.Context, id string) (map[string]any, error)
	updateUser   func(ctx context.Context, id string, body map[string]any) (any, error)
	logs         func(ctx context.Context, f api.LogFilter) ([]any, error)
	verify       func(ctx context.Context) (map[string]any, error)
	idCard       func(ctx context.Context, id string) (string, error)
	teaching     func(ctx context.Context) ([]any, error)
	students     func(ctx context.Context, code string) ([]any, error)
	updateGrade  func(ctx context.Context, id, code, grade string) error
	grades       func(ctx context.Context) (map[string]any, error)
	available    func(ctx context.Context) ([]any, error)
	registerCrs  func(ctx context.Context, codes []string) error
	childRecords func(ctx context.Context) (any, error)
}

func (s *stubClient) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *stubClient) count(call string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (s *stubClient) ListUsers(ctx context.Context) ([]any, error) {
	s.record("users")
	if s.users != nil {
		return s.users(ctx)
	}
	return []any{}, nil
}

func (s *stubClient) GetUser(ctx context.Context, id string) (map[string]any, error) {
	s.record("user:" + id)
	if s.getUser != nil {
		return s.getUser(ctx, id)
	}
	return map[string]any{"_id": id}, nil
}

func (s *stubClient) UpdateUser(ctx context.Context, id string, body map[string]any) (any, error) {
	s.record("update:" + id)
	if s.updateUser != nil {
		return s.updateUser(ctx, id, body)
	}
	return body, nil
}

func (s *stubClient) DeleteUser(ctx context.Context, id string) error {
	s.record("delete:" + id)
	return nil
}

func (s *stubClient) GenerateQR(ctx context.Context, id string) error {
	s.record("qr:" + id)
	return nil
}

func (s *stubClient) IDCard(ctx context.Context, id string) (string, error) {
	s.record("idcard:" + id)
	if s.idCard != nil {
		return s.idCard(ctx, id)
	}
	return "<div>" + id + "</div>", nil
}

func (s *stubClient) Register(ctx context.Context, r api.Registration) (map[string]any, error) {
	s.record("register")
	return map[string]any{}, nil
}

func (s *stubClient) ListLogs(ctx context.Context, f api.LogFilter) ([]any, error) {
	s.record("logs")
	if s.logs != nil {
		return s.logs(ctx, f)
	}
	return []any{}, nil
}

func (s *stubClient) VerifyLogs(ctx context.Context) (map[string]any, error) {
	s.record("verify")
	if s.verify != nil {
		return s.verify(ctx)
	}
	return map[string]any{"totalLogs": 0, "validLogs": 0, "invalidLogs": 0, "results": []any{}}, nil
}

func (s *stubClient) TeachingCourses(ctx context.Context) ([]any, error) {
	s.record("teaching")
	if s.teaching != nil {
		return s.teaching(ctx)
	}
	return []any{}, nil
}

func (s *stubClient) CourseStudents(ctx context.Context, code string) ([]any, error) {
	s.record("students:" + code)
	if s.students != nil {
		return s.students(ctx, code)
	}
	return []any{}, nil
}

func (s *stubClient) UpdateGrade(ctx context.Context, id, code, grade string) error {
	s.record("grade:" + id)
	if s.updateGrade != nil {
		return s.updateGrade(ctx, id, code, grade)
	}
	return nil
}

func (s *stubClient) StudentGrades(ctx context.Context) (map[string]any, error) {
	s.record("grades")
	if s.grades != nil {
		return s.grades(ctx)
	}
	return map[string]any{}, nil
}

func (s *stubClient) AvailableCourses(ctx context.Context) ([]any, error) {
	s.record("available")
	if s.available != nil {
		return s.available(ctx)
	}
	return []any{}, nil
}

func (s *stubClient) RegisterCourses(ctx context.Context, codes []string) error {
	s.record("register-courses")
	if s.registerCrs != nil {
		return s.registerCrs(ctx, codes)
	}
	return nil
}

func (s *stubClient) RequestDeletion(ctx context.Context) error {
	s.record("request-deletion")
	return nil
}

func (s *stubClient) ChildRecords(ctx context.Context) (any, error) {
	s.record("children")
	if s.childRecords != nil {
		return s.childRecords(ctx)
	}
	return []any{}, nil
}

// navRecorder activates the panel synchronously, the way the router does.
type navRecorder struct {
	mu    sync.Mutex
	views []string
	panel Panel
}

func (n *navRecorder) Navigate(view string) {
	n.mu.Lock()
	n.views = append(n.views, view)
	p := n.panel
	n.mu.Unlock()
	if p != nil {
		p.Activate(view)
	}
}

func (n *navRecorder) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.views) == 0 {
		return ""
	}
	return n.views[len(n.views)-1]
}

func settle(t *testing.T, p Panel) Screen {
	t.Helper()
	require.Eventually(t, func() bool { return !p.Screen().Loading }, time.Second, time.Millisecond)
	return p.Screen()
}

func TestNewDispatchesByVariant(t *testing.T) {
	ctx := context.Background()
	c := &stubClient{}
	for _, v := range []roles.Variant{roles.Admin, roles.Teacher, roles.Student, roles.Parent, roles.Unknown} {
		p := New(ctx, v, c, Deps{})
		assert.Equal(t, v, p.Variant())
		p.Close()
	}
}

func TestUnknownPanelShowsTerminalNotice(t *testing.T) {
	p := NewUnknown(Deps{})
	p.Activate("dashboard")
	s := p.Screen()
	assert.Equal(t, NoticeUnknownRole, s.Notice)
	assert.Equal(t, UnknownRoleMessage, s.NoticeText)
	assert.Nil(t, s.Data)
}

func TestAdminDashboardSummarizes(t *testing.T) {
	c := &stubClient{
		users: func(context.Context) ([]any, error) {
			return []any{
				map[string]any{"_id": "1", "role": "Admin"},
				map[string]any{"_id": "2", "role": "Student"},
				map[string]any{"_id": "3", "role": "Student"},
			}, nil
		},
		logs: func(context.Context, api.LogFilter) ([]any, error) {
			return []any{
				map[string]any{"action": "login"},
				map[string]any{"action": "login"},
				map[string]any{"action": "update"},
			}, nil
		},
	}
	a := NewAdmin(context.Background(), c, Deps{})
	defer a.Close()

	a.Activate(roles.ViewDashboard)
	s := settle(t, a)
	require.Empty(t, s.Err)
	d, ok := s.Data.(*AdminDashboard)
	require.True(t, ok)
	assert.Equal(t, 3, d.Summary.TotalUsers)
	assert.Equal(t, []Count{{"Admin", 1}, {"Student", 2}}, d.Summary.RoleDistribution)
	assert.Equal(t, []Count{{"login", 2}, {"update", 1}}, d.Summary.ActionCounts)
	assert.Equal(t, 100, d.Summary.Security.ValidPercent)
	assert.False(t, d.Summary.Security.Verified)
}

func TestAdminUsersNotArrayYieldsEmptyListAndMessage(t *testing.T) {
	c := &stubClient{users: func(context.Context) ([]any, error) { return nil, api.ErrNotArray }}
	a := NewAdmin(context.Background(), c, Deps{})
	defer a.Close()

	a.Activate(roles.ViewUsers)
	s := settle(t, a)
	assert.Equal(t, InvalidDataMessage, s.Err)
	v := s.Data.(*UsersView)
	assert.NotNil(t, v.Users)
	assert.Empty(t, v.Users)
}

func TestAdminUsersRemoteErrorMessage(t *testing.T) {
	c := &stubClient{users: func(context.Context) ([]any, error) {
		return nil, &api.Error{Status: http.StatusInternalServerError, Message: "db down"}
	}}
	a := NewAdmin(context.Background(), c, Deps{})
	defer a.Close()

	a.Activate(roles.ViewUsers)
	assert.Equal(t, "Failed to load users: db down", settle(t, a).Err)
}

func TestAdminUnknownViewNotice(t *testing.T) {
	c := &stubClient{}
	a := NewAdmin(context.Background(), c, Deps{})
	defer a.Close()

	a.Activate("grades")
	s := a.Screen()
	assert.Equal(t, NoticeUnknownView, s.Notice)
	assert.Contains(t, s.NoticeText, "grades")
	assert.Zero(t, c.count("users"))
}

func TestAdminEditWithoutTarget(t *testing.T) {
	c := &stubClient{}
	a := NewAdmin(context.Background(), c, Deps{})
	defer a.Close()

	a.Activate(roles.ViewEditProfile)
	s := a.Screen()
	assert.Equal(t, NoticeNoTarget, s.Notice)
	assert.Nil(t, s.Data)

	err := a.SubmitEdit(context.Background(), EditForm{FullName: "x", Email: "x@y", Role: "Admin"})
	assert.ErrorIs(t, err, ErrNoTarget)
	assert.Zero(t, c.count("update:"))
}

func TestAdminEditFlowNavigates(t *testing.T) {
	var sent map[string]any
	c := &stubClient{
		users: func(context.Context) ([]any, error) {
			return []any{map[string]any{
				"_id":      "u1",
				"fullName": "Ada",
				"email":    map[string]any{"iv": "x"},
				"role":     "Student",
				"class":    "10A",
			}}, nil
		},
		updateUser: func(_ context.Context, _ string, body map[string]any) (any, error) {
			sent = body
			return body, nil
		},
	}
	nav := &navRecorder{}
	a := NewAdmin(context.Background(), c, Deps{Navigator: nav})
	nav.panel = a
	defer a.Close()

	a.Activate(roles.ViewUsers)
	settle(t, a)

	require.NoError(t, a.EditUser("u1"))
	assert.Equal(t, roles.ViewEditProfile, nav.last())
	s := a.Screen()
	ev, ok := s.Data.(*EditView)
	require.True(t, ok)
	assert.Equal(t, "Ada", ev.Form.FullName)
	assert.Empty(t, ev.Form.Email, "protected email is not prefilled")
	assert.Equal(t, "10A", ev.Form.Class)

	err := a.SubmitEdit(context.Background(), EditForm{FullName: "Ada", Email: "ada@x", Role: "Student"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, c.count("update:u1"))

	require.NoError(t, a.SubmitEdit(context.Background(), EditForm{
		FullName: "Ada L", Email: "ada@x", Role: "Student", Class: "11B", Password: "  ",
	}))
	assert.Equal(t, "Ada L", sent["fullName"])
	assert.Equal(t, "11B", sent["class"])
	assert.NotContains(t, sent, "password")
	assert.NotContains(t, sent, "coursesTeaching")
	assert.Equal(t, roles.ViewUsers, nav.last())

	s = settle(t, a)
	assert.Equal(t, "User updated successfully", s.Flash)
	assert.GreaterOrEqual(t, c.count("users"), 2)
}

func TestAdminEditTeacherSplitsCourses(t *testing.T) {
	var sent map[string]any
	c := &stubClient{
		users: func(context.Context) ([]any, error) {
			return []any{map[string]any{"_id": "t1", "role": "Teacher"}}, nil
		},
		updateUser: func(_ context.Context, _ string, body map[string]any) (any, error) {
			sent = body
			return nil, nil
		},
	}
	a := NewAdmin(context.Background(), c, Deps{})
	defer a.Close()
	a.Activate(roles.ViewUsers)
	settle(t, a)

	require.NoError(t, a.EditUser("t1"))
	require.NoError(t, a.SubmitEdit(context.Background(), EditForm{
		FullName: "T", Email: "t@x", Role: "Teacher", CoursesTeaching: "CS101, MA201,", Password: "pw",
	}))
	assert.Equal(t, []string{"CS101", "MA201"}, sent["coursesTeaching"])
	assert.Equal(t, "pw", sent["password"])
}

func TestAdminActionsValidateIDs(t *testing.T) {
	c := &stubClient{}
	a := NewAdmin(context.Background(), c, Deps{})
	defer a.Close()
	ctx := context.Background()

	assert.ErrorIs(t, a.DeleteUser(ctx, " "), api.ErrInvalidID)
	assert.ErrorIs(t, a.GenerateQR(ctx, ""), api.ErrInvalidID)
	_, err := a.IDCard(ctx, "")
	assert.ErrorIs(t, err, api.ErrInvalidID)
	assert.Equal(t, InvalidUserIDMessage, a.Screen().Err)
	assert.Empty(t, c.calls)
}

func TestAdminIDCardShapeError(t *testing.T) {
	c := &stubClient{idCard: func(context.Context, string) (string, error) { return "", api.ErrShape }}
	a := NewAdmin(context.Background(), c, Deps{})
	defer a.Close()
	a.Activate(roles.ViewIDCards)

	_, err := a.IDCard(context.Background(), "u1")
	assert.ErrorIs(t, err, api.ErrShape)
	assert.Equal(t, "Failed to generate ID card: "+InvalidIDCardMessage, a.Screen().Err)
}

func TestAdminFilterApplyAndClear(t *testing.T) {
	var mu sync.Mutex
	var seen []api.LogFilter
	c := &stubClient{logs: func(_ context.Context, f api.LogFilter) ([]any, error) {
		mu.Lock()
		seen = append(seen, f)
		mu.Unlock()
		return []any{}, nil
	}}
	a := NewAdmin(context.Background(), c, Deps{})
	defer a.Close()

	a.Activate(roles.ViewLogs)
	settle(t, a)
	a.SetFilter(api.LogFilter{Action: "login"})
	a.ApplyFilter()
	settle(t, a)
	a.ClearFilter()
	settle(t, a)
	a.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 3)
	assert.True(t, seen[0].Empty())
	assert.Equal(t, "login", seen[1].Action)
	assert.True(t, seen[2].Empty())
}

func TestAdminVerifyOnIntrusionView(t *testing.T) {
	c := &stubClient{verify: func(context.Context) (map[string]any, error) {
		return map[string]any{"totalLogs": 4, "validLogs": 3, "invalidLogs": 1, "results": []any{}}, nil
	}}
	a := NewAdmin(context.Background(), c, Deps{})
	defer a.Close()

	a.Activate(roles.ViewIntrusionDetection)
	s := settle(t, a)
	v := s.Data.(*IntrusionView)
	require.NotNil(t, v.Verification)
	assert.True(t, v.Verification.Intrusion())

	a.Activate(roles.ViewDashboard)
	settle(t, a)
	a.Activate(roles.ViewIntrusionDetection)
	settle(t, a)
	assert.Equal(t, 1, c.count("verify"), "held result is reused")

	a.VerifyLogs()
	settle(t, a)
	assert.Equal(t, 2, c.count("verify"))

	a.Activate(roles.ViewDashboard)
	d := settle(t, a).Data.(*AdminDashboard)
	assert.Equal(t, 75, d.Summary.Security.ValidPercent)
	assert.True(t, d.Summary.Security.Intrusion)
}

func TestTeacherRosterDiscardsStaleResponse(t *testing.T) {
	releaseA := make(chan struct{})
	c := &stubClient{
		students: func(ctx context.Context, code string) ([]any, error) {
			if code == "A" {
				<-releaseA
			}
			return []any{map[string]any{"userId": "s-" + code}}, nil
		},
	}
	nav := &navRecorder{}
	tp := NewTeacher(context.Background(), c, Deps{Navigator: nav})
	nav.panel = tp
	defer tp.Close()

	require.NoError(t, tp.SelectCourse("A"))
	require.NoError(t, tp.SelectCourse("B"))
	s := settle(t, tp)
	close(releaseA)
	tp.Wait()

	s = tp.Screen()
	rv := s.Data.(*RosterView)
	assert.Equal(t, "B", rv.Course.Code)
	require.Len(t, rv.Students, 1)
	assert.Equal(t, "s-B", rv.Students[0].StudentID)
	assert.Equal(t, roles.ViewStudents, nav.last())
}

func TestTeacherStudentsWithoutCourse(t *testing.T) {
	tp := NewTeacher(context.Background(), &stubClient{}, Deps{})
	defer tp.Close()

	tp.Activate(roles.ViewStudents)
	s := settle(t, tp)
	assert.Equal(t, NoticeNoTarget, s.Notice)
	_, ok := s.Data.(*CoursesView)
	assert.True(t, ok)
}

func TestTeacherUpdateGrade(t *testing.T) {
	c := &stubClient{
		students: func(context.Context, string) ([]any, error) {
			return []any{map[string]any{"userId": "s1"}, map[string]any{"userId": "s2"}}, nil
		},
	}
	tp := NewTeacher(context.Background(), c, Deps{})
	defer tp.Close()
	ctx := context.Background()

	assert.ErrorIs(t, tp.UpdateGrade(ctx, "s1", "A"), ErrNoTarget)

	require.NoError(t, tp.SelectCourse("CS101"))
	tp.Activate(roles.ViewStudents)
	settle(t, tp)

	assert.ErrorIs(t, tp.UpdateGrade(ctx, "s1", "E"), ErrValidation)
	assert.Zero(t, c.count("grade:s1"))

	require.NoError(t, tp.UpdateGrade(ctx, "s1", "b"))
	rv := tp.Screen().Data.(*RosterView)
	assert.Equal(t, "B", rv.Students[0].Grade)
	assert.Equal(t, normalize.NotGraded, rv.Students[1].Grade)
}

func TestTeacherUpdateGradeRemoteFailure(t *testing.T) {
	c := &stubClient{updateGrade: func(context.Context, string, string, string) error {
		return &api.Error{Status: http.StatusForbidden, Message: "Not your course"}
	}}
	tp := NewTeacher(context.Background(), c, Deps{})
	defer tp.Close()
	require.NoError(t, tp.SelectCourse("CS101"))

	err := tp.UpdateGrade(context.Background(), "s1", "A")
	require.Error(t, err)
	assert.Equal(t, "Failed to update grade: Not your course", tp.Screen().Err)
}

func TestStudentRegistration(t *testing.T) {
	var registered []string
	c := &stubClient{
		grades: func(context.Context) (map[string]any, error) {
			return map[string]any{"courses": []any{map[string]any{"courseCode": "CS101", "grade": "A"}}}, nil
		},
		available: func(context.Context) ([]any, error) {
			return []any{"CS101", map[string]any{"courseCode": "MA201", "courseName": "Calculus"}}, nil
		},
		registerCrs: func(_ context.Context, codes []string) error {
			registered = codes
			return nil
		},
	}
	s := NewStudent(context.Background(), c, Deps{SubjectID: "s1"})
	defer s.Close()
	ctx := context.Background()

	s.Activate(roles.ViewCourses)
	sc := settle(t, s)
	rv := sc.Data.(*RegistrationView)
	require.Len(t, rv.Available, 1)
	assert.Equal(t, "MA201", rv.Available[0].Code)

	assert.ErrorIs(t, s.RegisterSelected(ctx), ErrNothingSelected)
	assert.Equal(t, "Please select at least one course to register", s.Screen().Err)

	s.ToggleCourse("MA201")
	s.ToggleCourse("PH101")
	s.ToggleCourse("PH101")
	require.NoError(t, s.RegisterSelected(ctx))
	assert.Equal(t, []string{"MA201"}, registered)

	sc = settle(t, s)
	assert.Equal(t, "Courses registered successfully", sc.Flash)
	assert.Empty(t, sc.Data.(*RegistrationView).Selected)
	assert.Equal(t, 2, c.count("available"))

	s.DismissFlash()
	assert.Empty(t, s.Screen().Flash)
}

func TestStudentDeletionRequest(t *testing.T) {
	c := &stubClient{}
	s := NewStudent(context.Background(), c, Deps{})
	defer s.Close()

	require.NoError(t, s.RequestDeletion(context.Background()))
	assert.Equal(t, "Account deletion request submitted", s.Screen().Flash)
}

func TestParentSelectsFirstChildByDefault(t *testing.T) {
	c := &stubClient{childRecords: func(context.Context) (any, error) {
		return []any{
			map[string]any{"userId": "c1", "fullName": "One", "courses": []any{map[string]any{"courseCode": "X", "grade": "F"}}},
			map[string]any{"userId": "c2", "fullName": "Two"},
		}, nil
	}}
	p := NewParent(context.Background(), c, Deps{})
	defer p.Close()

	p.Activate(roles.ViewResultCards)
	v := settle(t, p).Data.(*ResultCardsView)
	require.NotNil(t, v.Selected)
	assert.Equal(t, "c1", v.Selected.StudentID)
	assert.Equal(t, "FAILED", v.Selected.Courses[0].Status())

	require.NoError(t, p.SelectChild("c2"))
	assert.Equal(t, "c2", p.Screen().Data.(*ResultCardsView).Selected.StudentID)
	assert.ErrorIs(t, p.SelectChild("nope"), ErrValidation)
}

func TestParentSingleObjectResponse(t *testing.T) {
	c := &stubClient{childRecords: func(context.Context) (any, error) {
		return map[string]any{"userId": "c1"}, nil
	}}
	p := NewParent(context.Background(), c, Deps{})
	defer p.Close()

	p.Activate(roles.ViewResultCards)
	v := settle(t, p).Data.(*ResultCardsView)
	assert.Len(t, v.Children, 1)
}

func TestCloseStopsLateResults(t *testing.T) {
	release := make(chan struct{})
	var notified int
	var mu sync.Mutex
	c := &stubClient{users: func(ctx context.Context) ([]any, error) {
		<-release
		return []any{map[string]any{"_id": "late"}}, nil
	}}
	a := NewAdmin(context.Background(), c, Deps{OnChange: func() {
		mu.Lock()
		notified++
		mu.Unlock()
	}})

	a.Activate(roles.ViewUsers)
	mu.Lock()
	before := notified
	mu.Unlock()

	a.Close()
	close(release)
	a.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, before, notified)
	assert.Empty(t, a.Users())
}

func TestActivateCancelsUnneededFetches(t *testing.T) {
	c := &stubClient{logs: func(ctx context.Context, _ api.LogFilter) ([]any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	a := NewAdmin(context.Background(), c, Deps{})
	defer a.Close()

	a.Activate(roles.ViewLogs)
	assert.True(t, a.Screen().Loading)
	a.Activate(roles.ViewUsers)
	a.Wait()
	s := a.Screen()
	assert.False(t, s.Loading)
	assert.Empty(t, s.Err)
}

func TestResourceEnsureSkipsSameKeyInFlight(t *testing.T) {
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	r := NewResource("r", func() int { return 0 }, func(err error) string { return err.Error() }, nil, nil)
	fetch := func(context.Context) (int, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		<-release
		return 7, nil
	}
	r.Ensure(context.Background(), "k", fetch)
	r.Ensure(context.Background(), "k", fetch)
	close(release)
	r.Wait()

	assert.Equal(t, 1, calls)
	st := r.Snapshot()
	assert.True(t, st.Loaded)
	assert.Equal(t, 7, st.Value)
}

func TestResourceFailureResetsValue(t *testing.T) {
	r := NewResource("r", func() []int { return []int{} }, func(err error) string { return "bad: " + err.Error() }, nil, nil)
	r.Load(context.Background(), "", func(context.Context) ([]int, error) { return []int{1}, nil })
	r.Wait()
	r.Load(context.Background(), "", func(context.Context) ([]int, error) { return nil, errors.New("x") })
	r.Wait()

	st := r.Snapshot()
	assert.Equal(t, []int{}, st.Value)
	assert.Equal(t, "bad: x", st.Err)
	assert.False(t, st.Loaded)
}
