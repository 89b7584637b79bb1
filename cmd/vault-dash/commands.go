// ABOUTME: Command dispatch for the terminal shell
// ABOUTME: Maps typed commands onto gate, dashboard, and panel operations

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/2389/vault-dashboard/internal/api"
	"github.com/2389/vault-dashboard/internal/dashboard"
	"github.com/2389/vault-dashboard/internal/identity"
	"github.com/2389/vault-dashboard/internal/normalize"
	"github.com/2389/vault-dashboard/internal/panel"
	"github.com/2389/vault-dashboard/internal/report"
)

var errUsage = errors.New("usage")

func usage(format string) error {
	return fmt.Errorf("%w: %s", errUsage, format)
}

// exec runs one command line. It reports whether the shell should exit.
func (s *shell) exec(ctx context.Context, d *dashboard.Dashboard, line string) (bool, error) {
	if strings.HasPrefix(line, "#") {
		d.Navigate(strings.TrimPrefix(line, "#"))
		return false, nil
	}

	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "quit", "exit":
		return true, nil
	case "help", "?":
		s.help()
		return false, nil
	case "dismiss":
		d.DismissNotice()
		if p, ok := d.Panel().(interface{ DismissFlash() }); ok {
			p.DismissFlash()
		}
		return false, nil
	case "logout":
		return false, d.Logout(ctx)
	case "login", "scan", "qr":
		return false, s.loginCommand(ctx, d, cmd, args)
	}

	switch p := d.Panel().(type) {
	case *panel.Admin:
		return false, s.adminCommand(ctx, p, cmd, args, d)
	case *panel.Teacher:
		return false, teacherCommand(ctx, p, cmd, args)
	case *panel.Student:
		return false, studentCommand(ctx, p, cmd, args)
	case *panel.Parent:
		return false, parentCommand(p, cmd, args)
	case nil:
		return false, fmt.Errorf("not logged in; use login or scan")
	}
	return false, fmt.Errorf("unknown command %q", cmd)
}

func (s *shell) loginCommand(ctx context.Context, d *dashboard.Dashboard, cmd string, args []string) error {
	g := d.Gate()
	if g == nil {
		return fmt.Errorf("already logged in")
	}
	switch cmd {
	case "login":
		if len(args) != 3 {
			return usage("login <email> <password> <challenge>")
		}
		_, err := g.Submit(ctx, identity.Credentials{Email: args[0], Password: args[1]}, args[2])
		if err != nil {
			var f *identity.Failure
			if errors.As(err, &f) {
				return errors.New(f.Message)
			}
		}
		return err
	case "scan":
		return g.Toggle()
	default:
		if len(args) != 1 {
			return usage("qr <payload>")
		}
		return s.feed(args[0])
	}
}

// pairs parses key=value arguments. A word without '=' continues the previous
// value, so names with spaces need no quoting.
func pairs(args []string) (map[string]string, error) {
	out := make(map[string]string)
	last := ""
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok {
			if last == "" {
				return nil, fmt.Errorf("expected key=value, got %q", a)
			}
			out[last] += " " + a
			continue
		}
		out[k] = v
		last = k
	}
	return out, nil
}

func (s *shell) adminCommand(ctx context.Context, a *panel.Admin, cmd string, args []string, d *dashboard.Dashboard) error {
	switch cmd {
	case "show":
		if len(args) != 1 {
			return usage("show <user-id>")
		}
		return a.SelectUser(args[0])
	case "hide":
		a.ClearSelection()
		return nil
	case "edit":
		if len(args) != 1 {
			return usage("edit <user-id>")
		}
		return a.EditUser(args[0])
	case "cancel":
		a.CancelEdit()
		return nil
	case "save":
		ev, ok := d.Screen().Panel.Data.(*panel.EditView)
		if !ok {
			return fmt.Errorf("no profile is being edited")
		}
		kv, err := pairs(args)
		if err != nil {
			return err
		}
		form := ev.Form
		for k, v := range kv {
			switch k {
			case "name", "fullName":
				form.FullName = v
			case "email":
				form.Email = v
			case "role":
				form.Role = v
			case "class":
				form.Class = v
			case "courses":
				form.CoursesTeaching = v
			case "password":
				form.Password = v
			default:
				return fmt.Errorf("unknown field %q", k)
			}
		}
		return a.SubmitEdit(ctx, form)
	case "delete":
		if len(args) != 1 {
			return usage("delete <user-id>")
		}
		return a.DeleteUser(ctx, args[0])
	case "gen-qr":
		if len(args) != 1 {
			return usage("gen-qr <user-id>")
		}
		return a.GenerateQR(ctx, args[0])
	case "card":
		if len(args) != 1 {
			return usage("card <user-id>")
		}
		_, err := a.IDCard(ctx, args[0])
		return err
	case "adduser":
		kv, err := pairs(args)
		if err != nil {
			return err
		}
		return a.RegisterUser(ctx, api.Registration{
			FullName:        kv["name"],
			Email:           kv["email"],
			Password:        kv["password"],
			Role:            kv["role"],
			StudentClass:    kv["class"],
			CoursesTeaching: normalize.SplitList(kv["courses"]),
			LinkedStudentID: kv["child"],
		})
	case "filter":
		if len(args) == 1 && args[0] == "clear" {
			a.ClearFilter()
			return nil
		}
		kv, err := pairs(args)
		if err != nil {
			return err
		}
		a.SetFilter(api.LogFilter{
			SubjectID: kv["user"],
			Role:      kv["role"],
			Action:    kv["action"],
			From:      kv["from"],
			To:        kv["to"],
		})
		a.ApplyFilter()
		return nil
	case "verify":
		a.VerifyLogs()
		return nil
	case "report":
		if len(args) != 1 {
			return usage("report <file.md|file.html>")
		}
		return s.writeReport(d.Screen().Panel, args[0])
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (s *shell) writeReport(p *panel.Screen, path string) error {
	now := time.Now()
	var title, md string
	switch v := p.Data.(type) {
	case *panel.IntrusionView:
		if v.Verification == nil {
			return fmt.Errorf("no verification result yet; run verify")
		}
		title, md = "Audit log integrity", report.Integrity(*v.Verification, now)
	case *panel.AdminDashboard:
		title, md = "Dashboard summary", report.Dashboard(v.Summary, now)
	default:
		return fmt.Errorf("reports are available from #dashboard and #intrusion-detection")
	}
	if err := report.Write(path, title, md); err != nil {
		return err
	}
	s.printf("%s\n", color.GreenString("wrote %s", path))
	return nil
}

func teacherCommand(ctx context.Context, t *panel.Teacher, cmd string, args []string) error {
	switch cmd {
	case "course":
		if len(args) != 1 {
			return usage("course <code>")
		}
		return t.SelectCourse(args[0])
	case "grade":
		if len(args) != 2 {
			return usage("grade <student-id> <A-F>")
		}
		return t.UpdateGrade(ctx, args[0], args[1])
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func studentCommand(ctx context.Context, st *panel.Student, cmd string, args []string) error {
	switch cmd {
	case "pick":
		if len(args) == 0 {
			return usage("pick <code> [code...]")
		}
		for _, code := range args {
			st.ToggleCourse(code)
		}
		return nil
	case "register":
		return st.RegisterSelected(ctx)
	case "delete-account":
		return st.RequestDeletion(ctx)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func parentCommand(p *panel.Parent, cmd string, args []string) error {
	if cmd == "child" {
		if len(args) != 1 {
			return usage("child <student-id>")
		}
		return p.SelectChild(args[0])
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (s *shell) help() {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	y := color.New(color.FgYellow)
	y.Fprintln(s.out, "Anywhere:")
	fmt.Fprintln(s.out, "  #<view>                 Go to a view")
	fmt.Fprintln(s.out, "  dismiss                 Clear notices and success messages")
	fmt.Fprintln(s.out, "  logout | quit")
	y.Fprintln(s.out, "Signed out:")
	fmt.Fprintln(s.out, "  login <email> <password> <challenge>")
	fmt.Fprintln(s.out, "  scan                    Toggle QR login")
	fmt.Fprintln(s.out, "  qr <payload>            Feed a scanned payload")
	y.Fprintln(s.out, "Admin:")
	fmt.Fprintln(s.out, "  show <id> | hide | edit <id> | save key=value... | cancel")
	fmt.Fprintln(s.out, "  delete <id> | gen-qr <id> | card <id>")
	fmt.Fprintln(s.out, "  adduser role=.. name=.. email=.. password=.. [class=..] [courses=..] [child=..]")
	fmt.Fprintln(s.out, "  filter user=.. role=.. action=.. from=.. to=.. | filter clear")
	fmt.Fprintln(s.out, "  verify | report <file>")
	y.Fprintln(s.out, "Teacher:")
	fmt.Fprintln(s.out, "  course <code> | grade <student-id> <grade>")
	y.Fprintln(s.out, "Student:")
	fmt.Fprintln(s.out, "  pick <code>... | register | delete-account")
	y.Fprintln(s.out, "Parent:")
	fmt.Fprintln(s.out, "  child <student-id>")
}
