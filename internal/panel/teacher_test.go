// ABOUTME: Tests for teacher grade writes racing roster refetches
// ABOUTME: A gated roster handler answers with data read before the write

package panel

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/vault-dashboard/internal/roles"
)

// gradeBook is a tiny remote roster. After holdNext, the next fetch reads
// the roster and then waits for release before answering.
type gradeBook struct {
	mu    sync.Mutex
	grade string
	hold  bool

	held    chan struct{}
	release chan struct{}
}

func newGradeBook() *gradeBook {
	return &gradeBook{held: make(chan struct{}), release: make(chan struct{})}
}

func (g *gradeBook) holdNext() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hold = true
}

func (g *gradeBook) students(context.Context, string) ([]any, error) {
	g.mu.Lock()
	row := map[string]any{"userId": "s1"}
	if g.grade != "" {
		row["grade"] = g.grade
	}
	hold := g.hold
	g.hold = false
	g.mu.Unlock()

	if hold {
		close(g.held)
		<-g.release
	}
	return []any{row}, nil
}

func (g *gradeBook) update(_ context.Context, _, _, grade string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.grade = grade
	return nil
}

func TestTeacherGradeSurvivesInflightRefetch(t *testing.T) {
	book := newGradeBook()
	c := &stubClient{students: book.students, updateGrade: book.update}
	nav := &navRecorder{}
	tp := NewTeacher(context.Background(), c, Deps{Navigator: nav})
	nav.panel = tp
	defer tp.Close()

	require.NoError(t, tp.SelectCourse("CS101"))
	settle(t, tp)
	before := c.count("students:CS101")

	book.holdNext()
	tp.Activate(roles.ViewCourses)
	tp.Activate(roles.ViewStudents)
	<-book.held

	require.NoError(t, tp.UpdateGrade(context.Background(), "s1", "A"))
	close(book.release)
	tp.Wait()

	s := settle(t, tp)
	rv := s.Data.(*RosterView)
	require.Len(t, rv.Students, 1)
	assert.Equal(t, "A", rv.Students[0].Grade)
	assert.Equal(t, before+2, c.count("students:CS101"), "the write reissues the held fetch")
}

func TestTeacherGradePatchWithoutRefetch(t *testing.T) {
	book := newGradeBook()
	c := &stubClient{students: book.students, updateGrade: book.update}
	tp := NewTeacher(context.Background(), c, Deps{})
	defer tp.Close()

	require.NoError(t, tp.SelectCourse("CS101"))
	tp.Activate(roles.ViewStudents)
	settle(t, tp)

	before := c.count("students:CS101")

	require.NoError(t, tp.UpdateGrade(context.Background(), "s1", "c"))
	assert.Equal(t, "C", tp.Screen().Data.(*RosterView).Students[0].Grade)
	assert.Equal(t, before, c.count("students:CS101"), "an idle roster is patched, not refetched")
}
