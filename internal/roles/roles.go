// ABOUTME: Maps a session role to its panel variant, home view, and permitted views
// ABOUTME: Pure lookups with no state; unknown roles get a terminal variant

package roles

import (
	"slices"

	"github.com/2389/vault-dashboard/internal/session"
)

// Variant identifies a role-specific panel.
type Variant string

const (
	Admin   Variant = "admin"
	Teacher Variant = "teacher"
	Student Variant = "student"
	Parent  Variant = "parent"
	Unknown Variant = "unknown"
)

// View identifiers. Login is not part of any panel; it is the view shown
// while no session is live.
const (
	ViewLogin              = "login"
	ViewDashboard          = "dashboard"
	ViewUsers              = "users"
	ViewLogs               = "logs"
	ViewIntrusionDetection = "intrusion-detection"
	ViewIDCards            = "id-cards"
	ViewEditProfile        = "edit-profile"
	ViewCourses            = "courses"
	ViewStudents           = "students"
	ViewGrades             = "grades"
	ViewProfile            = "profile"
	ViewResultCards        = "resultcards"
)

// MenuItem is one navigation entry.
type MenuItem struct {
	View  string
	Label string
}

type layout struct {
	home  string
	menu  []MenuItem
	extra []string // reachable but not listed in the menu
}

var variants = map[Variant]layout{
	Admin: {
		home: ViewDashboard,
		menu: []MenuItem{
			{ViewDashboard, "Dashboard"},
			{ViewUsers, "User Management"},
			{ViewLogs, "System Logs"},
			{ViewIntrusionDetection, "Intrusion Detection"},
		},
		extra: []string{ViewIDCards, ViewEditProfile},
	},
	Teacher: {
		home: ViewDashboard,
		menu: []MenuItem{
			{ViewDashboard, "Dashboard"},
			{ViewCourses, "My Courses"},
			{ViewStudents, "Students"},
			{ViewGrades, "Grade Management"},
		},
	},
	Student: {
		home: ViewDashboard,
		menu: []MenuItem{
			{ViewDashboard, "Dashboard"},
			{ViewCourses, "My Courses"},
			{ViewGrades, "Grades"},
		},
		extra: []string{ViewProfile},
	},
	Parent: {
		home: ViewResultCards,
		menu: []MenuItem{
			{ViewResultCards, "Child's Results"},
		},
	},
}

// PanelFor returns the variant for a role. Roles outside the known four map to Unknown.
func PanelFor(role session.Role) Variant {
	switch role {
	case session.RoleAdmin:
		return Admin
	case session.RoleTeacher:
		return Teacher
	case session.RoleStudent:
		return Student
	case session.RoleParent:
		return Parent
	}
	return Unknown
}

// Home returns the variant's default view. Unknown has none.
func (v Variant) Home() string {
	return variants[v].home
}

// Menu returns the variant's navigation entries.
func (v Variant) Menu() []MenuItem {
	return slices.Clone(variants[v].menu)
}

// Views returns every view the variant can render.
func (v Variant) Views() []string {
	s := variants[v]
	views := make([]string, 0, len(s.menu)+len(s.extra))
	for _, m := range s.menu {
		views = append(views, m.View)
	}
	return append(views, s.extra...)
}

// Allows reports whether view belongs to the variant.
func (v Variant) Allows(view string) bool {
	return slices.Contains(v.Views(), view)
}
