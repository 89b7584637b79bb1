// ABOUTME: Demo data for the development backend: one account per role plus a course catalog
// ABOUTME: Seeded passwords are fixed so local logins are predictable

package mockapi

import "fmt"

// SeedPassword is the password of every seeded account.
const SeedPassword = "password123"

// Seeded lists the accounts Seed created, keyed by role.
type Seeded struct {
	Admin    User
	Teacher  User
	Student  User
	Student2 User
	Parent   User
}

// Seed fills store with a catalog, one account per role, and some activity.
func Seed(store *Store) (Seeded, error) {
	for _, c := range []Course{
		{"CS101", "Introduction to Computer Science"},
		{"MA201", "Linear Algebra"},
		{"PH110", "Physics I"},
		{"EN105", "Academic Writing"},
	} {
		store.AddCourse(c.Code, c.Name)
	}

	var out Seeded
	var err error
	create := func(dst *User, u User) {
		if err != nil {
			return
		}
		*dst, err = store.CreateUser(u, SeedPassword)
	}
	create(&out.Admin, User{FullName: "Ada Admin", Email: "admin@vault.test", Role: RoleAdmin})
	create(&out.Teacher, User{FullName: "Tom Teacher", Email: "teacher@vault.test", Role: RoleTeacher,
		CoursesTeaching: []string{"CS101", "MA201"}})
	create(&out.Student, User{FullName: "Sam Student", Email: "student@vault.test", Role: RoleStudent, Class: "10A"})
	create(&out.Student2, User{FullName: "Sue Student", Email: "student2@vault.test", Role: RoleStudent, Class: "10B"})
	if err != nil {
		return Seeded{}, fmt.Errorf("seeding users: %w", err)
	}
	create(&out.Parent, User{FullName: "Pat Parent", Email: "parent@vault.test", Role: RoleParent,
		LinkedStudentID: out.Student.ID})
	if err != nil {
		return Seeded{}, fmt.Errorf("seeding users: %w", err)
	}

	if err := store.Enroll(out.Student.ID, []string{"CS101", "MA201"}); err != nil {
		return Seeded{}, err
	}
	if err := store.Enroll(out.Student2.ID, []string{"CS101"}); err != nil {
		return Seeded{}, err
	}
	if err := store.SetGrade(out.Student.ID, "CS101", "A"); err != nil {
		return Seeded{}, err
	}

	for _, u := range []User{out.Admin, out.Teacher, out.Student, out.Student2, out.Parent} {
		store.Record(out.Admin.ID, RoleAdmin, "register_user")
		store.Record(u.ID, u.Role, "login")
	}
	store.Record(out.Teacher.ID, RoleTeacher, "update_grade")
	return out, nil
}
