// ABOUTME: Renders dashboard screens as colorized text tables
// ABOUTME: One section per view model type, plus the login screen and notices

package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/2389/vault-dashboard/internal/dashboard"
	"github.com/2389/vault-dashboard/internal/gate"
	"github.com/2389/vault-dashboard/internal/normalize"
	"github.com/2389/vault-dashboard/internal/panel"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	dim     = color.New(color.FgHiBlack)
	good    = color.New(color.FgGreen)
	bad     = color.New(color.FgRed)
	warn    = color.New(color.FgYellow)
)

func writePrompt(w io.Writer, s dashboard.Screen) {
	who := "guest"
	if s.LoggedIn {
		who = strings.ToLower(string(s.Session.Role))
	}
	good.Fprintf(w, "%s #%s> ", who, s.View)
}

func render(w io.Writer, s dashboard.Screen) {
	fmt.Fprintln(w)
	if s.Notice != "" {
		warn.Fprintf(w, "! %s (dismiss to clear)\n", s.Notice)
	}
	if !s.LoggedIn {
		if s.Login != nil {
			renderLogin(w, *s.Login)
		}
		return
	}

	var menu []string
	for _, m := range s.Menu {
		item := "#" + m.View
		if m.View == s.View {
			item = good.Sprint(item)
		}
		menu = append(menu, item)
	}
	dim.Fprintf(w, "%s panel  ", s.Variant)
	fmt.Fprintln(w, strings.Join(menu, "  "))

	if s.Panel != nil {
		renderPanel(w, *s.Panel)
	}
}

func renderLogin(w io.Writer, v gate.View) {
	heading.Fprintln(w, "Sign in")
	if v.Mode == gate.ModeScanner {
		if v.Scanning {
			fmt.Fprintln(w, "  Scanner running. Feed a payload with: qr <payload>")
		}
	} else {
		fmt.Fprint(w, "  Challenge: ")
		good.Fprintln(w, v.Challenge)
		fmt.Fprintln(w, "  login <email> <password> <challenge>")
	}
	if v.ScanAvailable {
		dim.Fprintln(w, "  scan toggles QR login")
	}
	if v.Busy {
		dim.Fprintln(w, "  working...")
	}
	if v.Err != "" {
		bad.Fprintf(w, "  %s\n", v.Err)
	}
}

func renderPanel(w io.Writer, p panel.Screen) {
	if p.Flash != "" {
		good.Fprintf(w, "✓ %s\n", p.Flash)
	}
	if p.Err != "" {
		bad.Fprintf(w, "✗ %s\n", p.Err)
	}
	if p.NoticeText != "" {
		warn.Fprintln(w, p.NoticeText)
	}
	if p.Loading {
		dim.Fprintln(w, "loading...")
	}

	switch d := p.Data.(type) {
	case *panel.AdminDashboard:
		renderSummary(w, d.Summary)
	case *panel.UsersView:
		renderUsers(w, d.Users)
		if d.Selected != nil {
			heading.Fprintln(w, "Selected user")
			renderUser(w, *d.Selected)
		}
	case *panel.LogsView:
		if f := d.Applied.Query().Encode(); f != "" {
			dim.Fprintf(w, "filter: %s\n", f)
		}
		renderLogs(w, d.Logs)
	case *panel.IntrusionView:
		renderVerification(w, d.Verification, d.Scanning)
		renderLogs(w, d.Logs)
	case *panel.IDCardsView:
		renderUsers(w, d.Users)
		if d.CardHTML != "" {
			heading.Fprintf(w, "ID card for %s\n", d.CardFor)
			dim.Fprintf(w, "%d bytes of card HTML\n", len(d.CardHTML))
		}
	case *panel.EditView:
		heading.Fprintf(w, "Editing %s\n", d.Target.ID)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "  fullName\t%s\n", d.Form.FullName)
		fmt.Fprintf(tw, "  email\t%s\n", d.Form.Email)
		fmt.Fprintf(tw, "  role\t%s\n", d.Form.Role)
		fmt.Fprintf(tw, "  class\t%s\n", d.Form.Class)
		fmt.Fprintf(tw, "  courses\t%s\n", d.Form.CoursesTeaching)
		tw.Flush()
		dim.Fprintln(w, "save key=value ... | cancel")
	case *panel.TeacherDashboard:
		renderCourses(w, d.Courses)
	case *panel.CoursesView:
		renderCourses(w, d.Courses)
		dim.Fprintln(w, "course <code> opens the roster")
	case *panel.RosterView:
		heading.Fprintf(w, "%s %s\n", d.Course.Code, d.Course.Name)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  ID\tNAME\tCLASS\tGRADE")
		for _, e := range d.Students {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", e.StudentID, e.FullName, e.Class, e.Grade)
		}
		tw.Flush()
	case *panel.StudentDashboard:
		renderRecord(w, d.Record)
	case *panel.GradesView:
		renderRecord(w, d.Record)
	case *panel.RegistrationView:
		selected := make(map[string]bool, len(d.Selected))
		for _, c := range d.Selected {
			selected[c] = true
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, c := range d.Available {
			mark := "[ ]"
			if selected[c.Code] {
				mark = "[x]"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", mark, c.Code, c.Name)
		}
		tw.Flush()
		dim.Fprintln(w, "pick <code> toggles, register submits")
	case *panel.ProfileView:
		renderRecord(w, d.Record)
		dim.Fprintf(w, "account %s; delete-account requests removal\n", d.SubjectID)
	case *panel.ResultCardsView:
		for _, c := range d.Children {
			mark := " "
			if d.Selected != nil && c.StudentID == d.Selected.StudentID {
				mark = "*"
			}
			fmt.Fprintf(w, " %s %s %s\n", mark, c.StudentID, c.FullName)
		}
		if d.Selected != nil {
			heading.Fprintf(w, "%s (%s)\n", d.Selected.FullName, d.Selected.Class)
			renderGrades(w, d.Selected.Courses, true)
		}
	}
}

func renderSummary(w io.Writer, s panel.Summary) {
	heading.Fprintf(w, "Users %d  Logs %d\n", s.TotalUsers, s.TotalLogs)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range s.RoleDistribution {
		fmt.Fprintf(tw, "  %s\t%d\n", c.Label, c.N)
	}
	tw.Flush()
	heading.Fprintln(w, "Actions")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range s.ActionCounts {
		fmt.Fprintf(tw, "  %s\t%d\n", c.Label, c.N)
	}
	tw.Flush()
	heading.Fprintln(w, "Recent activity")
	renderLogs(w, s.RecentLogs)
	sec := s.Security
	status := good.Sprint("secure")
	if sec.Intrusion {
		status = bad.Sprint("INTRUSION DETECTED")
	}
	fmt.Fprintf(w, "Integrity: %s (%d%% valid)\n", status, sec.ValidPercent)
}

func renderUsers(w io.Writer, users []normalize.User) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  ID\tNAME\tEMAIL\tROLE\tCLASS")
	for _, u := range users {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n", u.ID, u.FullName, u.Email, u.Role, u.Class)
	}
	tw.Flush()
}

func renderUser(w io.Writer, u normalize.User) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  name\t%s\n  email\t%s\n  role\t%s\n", u.FullName, u.Email, u.Role)
	if u.Class != "" {
		fmt.Fprintf(tw, "  class\t%s\n", u.Class)
	}
	if len(u.CoursesTeaching) > 0 {
		fmt.Fprintf(tw, "  teaching\t%s\n", strings.Join(u.CoursesTeaching, ", "))
	}
	if u.LinkedStudentID != "" {
		fmt.Fprintf(tw, "  child\t%s\n", u.LinkedStudentID)
	}
	tw.Flush()
}

func renderLogs(w io.Writer, logs []normalize.LogEntry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  TIME\tUSER\tROLE\tACTION")
	for _, l := range logs {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", l.Timestamp, l.SubjectID, l.Role, l.Action)
	}
	tw.Flush()
}

func renderVerification(w io.Writer, v *normalize.Verification, scanning bool) {
	switch {
	case scanning:
		dim.Fprintln(w, "verifying log chain...")
	case v == nil:
		dim.Fprintln(w, "not verified yet; run verify")
	case v.Intrusion():
		bad.Fprintf(w, "INTRUSION DETECTED: %d of %d logs failed verification\n", v.InvalidLogs, v.TotalLogs)
		for _, r := range v.Results {
			if !r.Valid {
				bad.Fprintf(w, "  %s %s %s\n", r.ID, r.Timestamp, r.Action)
			}
		}
	default:
		good.Fprintf(w, "All %d logs verified\n", v.TotalLogs)
	}
}

func renderCourses(w io.Writer, courses []normalize.Course) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range courses {
		fmt.Fprintf(tw, "  %s\t%s\n", c.Code, c.Name)
	}
	tw.Flush()
}

func renderRecord(w io.Writer, r normalize.StudentRecord) {
	heading.Fprintf(w, "%s  class %s\n", r.StudentName, r.Class)
	renderGrades(w, r.Courses, false)
}

func renderGrades(w io.Writer, grades []normalize.CourseGrade, status bool) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, g := range grades {
		if status {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", g.Code, g.Name, g.Grade, g.Status())
		} else {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", g.Code, g.Name, g.Grade)
		}
	}
	tw.Flush()
}
