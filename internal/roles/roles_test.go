// ABOUTME: Tests for role to panel mapping and per-variant views
// ABOUTME: Table-driven over all roles including unknown values

package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/2389/vault-dashboard/internal/session"
)

func TestPanelFor(t *testing.T) {
	tests := []struct {
		role session.Role
		want Variant
		home string
	}{
		{session.RoleAdmin, Admin, ViewDashboard},
		{session.RoleTeacher, Teacher, ViewDashboard},
		{session.RoleStudent, Student, ViewDashboard},
		{session.RoleParent, Parent, ViewResultCards},
		{"admin", Unknown, ""},
		{"", Unknown, ""},
		{"Janitor", Unknown, ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			v := PanelFor(tt.role)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, tt.home, v.Home())
		})
	}
}

func TestAllows(t *testing.T) {
	assert.True(t, Admin.Allows(ViewEditProfile))
	assert.True(t, Admin.Allows(ViewIntrusionDetection))
	assert.False(t, Admin.Allows(ViewResultCards))

	assert.True(t, Teacher.Allows(ViewStudents))
	assert.False(t, Teacher.Allows(ViewUsers))

	assert.True(t, Student.Allows(ViewProfile))
	assert.False(t, Student.Allows(ViewStudents))

	assert.Equal(t, []string{ViewResultCards}, Parent.Views())
	assert.False(t, Parent.Allows(ViewDashboard))

	assert.Empty(t, Unknown.Views())
	assert.False(t, Unknown.Allows(ViewDashboard))
}

func TestMenuIsACopy(t *testing.T) {
	m := Admin.Menu()
	m[0].Label = "changed"
	assert.Equal(t, "Dashboard", Admin.Menu()[0].Label)
	for _, v := range []Variant{Admin, Teacher, Student, Parent} {
		for _, item := range v.Menu() {
			assert.True(t, v.Allows(item.View))
		}
	}
}
