// ABOUTME: Admin panel: user management, audit logs, integrity verification, ID cards, profile edits
// ABOUTME: Edit flows stash the target user and jump views through the navigator

package panel

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/2389/vault-dashboard/internal/api"
	"github.com/2389/vault-dashboard/internal/normalize"
	"github.com/2389/vault-dashboard/internal/roles"
)

// AdminAPI is the remote surface the admin panel needs.
type AdminAPI interface {
	ListUsers(ctx context.Context) ([]any, error)
	GetUser(ctx context.Context, id string) (map[string]any, error)
	UpdateUser(ctx context.Context, id string, body map[string]any) (any, error)
	DeleteUser(ctx context.Context, id string) error
	GenerateQR(ctx context.Context, id string) error
	IDCard(ctx context.Context, id string) (string, error)
	Register(ctx context.Context, r api.Registration) (map[string]any, error)
	ListLogs(ctx context.Context, filter api.LogFilter) ([]any, error)
	VerifyLogs(ctx context.Context) (map[string]any, error)
}

// EditForm is the profile edit form. CoursesTeaching is comma separated.
type EditForm struct {
	FullName        string
	Email           string
	Role            string
	Class           string
	CoursesTeaching string
	Password        string
}

// AdminDashboard is the admin home view model.
type AdminDashboard struct {
	Summary Summary
}

// UsersView lists users with an optional selected detail record.
type UsersView struct {
	Users    []normalize.User
	Selected *normalize.User
}

// LogsView lists audit logs under the applied filter. Draft is the filter
// being edited.
type LogsView struct {
	Logs    []normalize.LogEntry
	Applied api.LogFilter
	Draft   api.LogFilter
}

// IntrusionView shows the integrity check next to the logs.
type IntrusionView struct {
	Logs         []normalize.LogEntry
	Verification *normalize.Verification
	Scanning     bool
}

// IDCardsView lists users and the last generated card.
type IDCardsView struct {
	Users    []normalize.User
	CardFor  string
	CardHTML string
}

// EditView is the profile edit form for the stashed target.
type EditView struct {
	Target normalize.User
	Form   EditForm
}

// Admin is the admin panel.
type Admin struct {
	*base
	api AdminAPI

	users  *Resource[[]normalize.User]
	logs   *Resource[[]normalize.LogEntry]
	verify *Resource[*normalize.Verification]
	detail *Resource[*normalize.User]

	// guarded by base.mu
	editing  *normalize.User
	draft    api.LogFilter
	applied  api.LogFilter
	cardFor  string
	cardHTML string
}

// NewAdmin builds the admin panel.
func NewAdmin(ctx context.Context, client AdminAPI, deps Deps) *Admin {
	a := &Admin{base: newBase(ctx, roles.Admin, deps), api: client}
	a.users = NewResource("users",
		func() []normalize.User { return []normalize.User{} },
		listError("users", InvalidDataMessage), a.changed, a.logger)
	a.logs = NewResource("logs",
		func() []normalize.LogEntry { return []normalize.LogEntry{} },
		listError("logs", InvalidLogsDataMessage), a.changed, a.logger)
	a.verify = NewResource("verify",
		func() *normalize.Verification { return nil },
		func(err error) string { return "Failed to verify logs: " + api.Message(err, UnknownErrorMessage) },
		a.changed, a.logger)
	a.detail = NewResource("user-detail",
		func() *normalize.User { return nil },
		func(err error) string { return "Failed to load user: " + api.Message(err, UnknownErrorMessage) },
		a.changed, a.logger)
	a.track(a.users, a.logs, a.verify, a.detail)
	return a
}

func (a *Admin) fetchUsers(ctx context.Context) ([]normalize.User, error) {
	raw, err := a.api.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return normalize.Users(raw), nil
}

func (a *Admin) logsFetch(filter api.LogFilter) Fetch[[]normalize.LogEntry] {
	return func(ctx context.Context) ([]normalize.LogEntry, error) {
		raw, err := a.api.ListLogs(ctx, filter)
		if err != nil {
			return nil, err
		}
		return normalize.Logs(raw), nil
	}
}

func (a *Admin) fetchVerify(ctx context.Context) (*normalize.Verification, error) {
	raw, err := a.api.VerifyLogs(ctx)
	if err != nil {
		return nil, err
	}
	v, ok := normalize.NormalizeVerification(raw)
	if !ok {
		return nil, api.ErrShape
	}
	return &v, nil
}

func (a *Admin) appliedFilter() api.LogFilter {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.applied
}

func (a *Admin) ensureLogs() {
	f := a.appliedFilter()
	a.logs.Ensure(a.ctx, f.Query().Encode(), a.logsFetch(f))
}

// Activate implements Panel.
func (a *Admin) Activate(view string) {
	if !a.enter(view) {
		a.keep()
		a.changed()
		return
	}
	switch view {
	case roles.ViewDashboard:
		a.keep(a.users, a.logs)
		a.users.Ensure(a.ctx, "", a.fetchUsers)
		a.ensureLogs()
	case roles.ViewUsers:
		a.keep(a.users, a.detail)
		a.users.Ensure(a.ctx, "", a.fetchUsers)
	case roles.ViewLogs:
		a.keep(a.logs)
		a.ensureLogs()
	case roles.ViewIntrusionDetection:
		a.keep(a.logs, a.verify)
		a.ensureLogs()
		if st := a.verify.Snapshot(); !st.Loaded && !st.Loading {
			a.verify.Load(a.ctx, "", a.fetchVerify)
		}
	case roles.ViewIDCards:
		a.keep(a.users)
		a.users.Ensure(a.ctx, "", a.fetchUsers)
	case roles.ViewEditProfile:
		a.keep()
	}
	a.changed()
}

// Screen implements Panel.
func (a *Admin) Screen() Screen {
	view := a.currentView()
	if !a.variant.Allows(view) {
		return a.unknownView(a.screen(false, ""))
	}
	users, logs := a.users.Snapshot(), a.logs.Snapshot()

	switch view {
	case roles.ViewDashboard:
		ver := a.verify.Snapshot()
		s := a.screen(users.Loading || logs.Loading, firstErr(users.Err, logs.Err))
		s.Data = &AdminDashboard{Summary: Summarize(users.Value, logs.Value, ver.Value)}
		return s
	case roles.ViewUsers:
		detail := a.detail.Snapshot()
		s := a.screen(users.Loading || detail.Loading, firstErr(users.Err, detail.Err))
		s.Data = &UsersView{Users: users.Value, Selected: detail.Value}
		return s
	case roles.ViewLogs:
		s := a.screen(logs.Loading, logs.Err)
		a.mu.Lock()
		s.Data = &LogsView{Logs: logs.Value, Applied: a.applied, Draft: a.draft}
		a.mu.Unlock()
		return s
	case roles.ViewIntrusionDetection:
		ver := a.verify.Snapshot()
		s := a.screen(logs.Loading || ver.Loading, firstErr(ver.Err, logs.Err))
		s.Data = &IntrusionView{Logs: logs.Value, Verification: ver.Value, Scanning: ver.Loading}
		return s
	case roles.ViewIDCards:
		s := a.screen(users.Loading, users.Err)
		a.mu.Lock()
		s.Data = &IDCardsView{Users: users.Value, CardFor: a.cardFor, CardHTML: a.cardHTML}
		a.mu.Unlock()
		return s
	case roles.ViewEditProfile:
		s := a.screen(false, "")
		a.mu.Lock()
		target := a.editing
		a.mu.Unlock()
		if target == nil {
			s.Notice = NoticeNoTarget
			s.NoticeText = "No user selected for editing. Choose a user from User Management."
			return s
		}
		s.Data = &EditView{Target: *target, Form: Prefill(*target)}
		return s
	}
	return a.screen(false, "")
}

// Prefill builds an edit form from u with placeholders blanked.
func Prefill(u normalize.User) EditForm {
	blank := func(v string, placeholders ...string) string {
		if slices.Contains(placeholders, v) {
			return ""
		}
		return v
	}
	f := EditForm{
		FullName:        blank(u.FullName, normalize.UnnamedUser),
		Role:            blank(u.Role, normalize.UnknownRole),
		Class:           blank(u.Class, normalize.NotAvailable),
		CoursesTeaching: strings.Join(u.CoursesTeaching, ", "),
	}
	if u.EmailEditable() {
		f.Email = u.Email
	}
	return f
}

func (a *Admin) findUser(id string) (normalize.User, bool) {
	for _, u := range a.users.Snapshot().Value {
		if u.ID == id {
			return u, true
		}
	}
	return normalize.User{}, false
}

// SelectUser loads the detail record for id into the users view.
func (a *Admin) SelectUser(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return a.invalid(InvalidUserIDMessage)
	}
	a.detail.Load(a.ctx, id, func(ctx context.Context) (*normalize.User, error) {
		raw, err := a.api.GetUser(ctx, id)
		if err != nil {
			return nil, err
		}
		u, ok := normalize.NormalizeUser(raw)
		if !ok {
			return nil, api.ErrShape
		}
		return &u, nil
	})
	return nil
}

// ClearSelection drops the detail record.
func (a *Admin) ClearSelection() {
	a.detail.Reset()
	a.changed()
}

// EditUser stashes the user with id as the edit target and jumps to the
// edit view.
func (a *Admin) EditUser(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return a.invalid(InvalidUserIDMessage)
	}
	u, ok := a.findUser(id)
	if !ok {
		if d := a.detail.Snapshot().Value; d != nil && d.ID == id {
			u, ok = *d, true
		}
	}
	if !ok {
		return a.invalid("User not found: " + id)
	}
	a.mu.Lock()
	a.editing = &u
	a.mu.Unlock()
	a.navigate(roles.ViewEditProfile)
	return nil
}

// CancelEdit drops the edit target and returns to the user list.
func (a *Admin) CancelEdit() {
	a.mu.Lock()
	a.editing = nil
	a.mu.Unlock()
	a.navigate(roles.ViewUsers)
}

// SubmitEdit saves form for the stashed target. On success the user list
// is refetched and the view returns to it.
func (a *Admin) SubmitEdit(ctx context.Context, form EditForm) error {
	a.mu.Lock()
	target := a.editing
	a.mu.Unlock()
	if target == nil {
		return a.noTarget()
	}

	fullName := strings.TrimSpace(form.FullName)
	email := strings.TrimSpace(form.Email)
	role := strings.TrimSpace(form.Role)
	class := strings.TrimSpace(form.Class)
	if fullName == "" || email == "" || role == "" {
		return a.invalid("Please fill in all required fields")
	}
	if role == "Student" && class == "" {
		return a.invalid("Class is required for students")
	}

	body := map[string]any{"fullName": fullName, "email": email, "role": role}
	if p := strings.TrimSpace(form.Password); p != "" {
		body["password"] = p
	}
	switch role {
	case "Student":
		body["class"] = class
	case "Teacher":
		body["coursesTeaching"] = normalize.SplitList(form.CoursesTeaching)
	}

	if _, err := a.api.UpdateUser(ctx, target.ID, body); err != nil {
		a.fail("Failed to update user: ", err)
		return err
	}

	a.mu.Lock()
	a.editing = nil
	a.mu.Unlock()
	a.logger.Info("user updated", "user_id", target.ID)
	a.succeed("User updated successfully")
	a.users.Load(a.ctx, "", a.fetchUsers)
	a.navigate(roles.ViewUsers)
	return nil
}

func (a *Admin) noTarget() error {
	a.mu.Lock()
	a.actionErr = "No user selected for editing"
	a.mu.Unlock()
	a.changed()
	return ErrNoTarget
}

// DeleteUser removes id and refetches the list.
func (a *Admin) DeleteUser(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		a.invalid(InvalidUserIDMessage)
		return api.ErrInvalidID
	}
	if err := a.api.DeleteUser(ctx, id); err != nil {
		a.fail("Failed to delete user: ", err)
		return err
	}
	if d := a.detail.Snapshot().Value; d != nil && d.ID == id {
		a.detail.Reset()
	}
	a.logger.Info("user deleted", "user_id", id)
	a.succeed(fmt.Sprintf("User %s deleted successfully", id))
	a.users.Load(a.ctx, "", a.fetchUsers)
	return nil
}

// GenerateQR issues a new proof token for id and refetches the list.
func (a *Admin) GenerateQR(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		a.invalid(InvalidUserIDMessage)
		return api.ErrInvalidID
	}
	if err := a.api.GenerateQR(ctx, id); err != nil {
		a.fail("Failed to generate QR code: ", err)
		return err
	}
	a.succeed("QR Code generated successfully")
	a.users.Load(a.ctx, "", a.fetchUsers)
	return nil
}

// IDCard fetches the printable card for id and holds it for the id-cards view.
func (a *Admin) IDCard(ctx context.Context, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		a.invalid(InvalidUserIDMessage)
		return "", api.ErrInvalidID
	}
	html, err := a.api.IDCard(ctx, id)
	if err != nil {
		if errors.Is(err, api.ErrShape) {
			a.invalid("Failed to generate ID card: " + InvalidIDCardMessage)
			return "", err
		}
		a.fail("Failed to generate ID card: ", err)
		return "", err
	}
	a.mu.Lock()
	a.cardFor, a.cardHTML = id, html
	a.actionErr = ""
	a.mu.Unlock()
	a.changed()
	return html, nil
}

// RegisterUser creates a user and refetches the list.
func (a *Admin) RegisterUser(ctx context.Context, r api.Registration) error {
	if strings.TrimSpace(r.FullName) == "" || strings.TrimSpace(r.Email) == "" ||
		r.Password == "" || strings.TrimSpace(r.Role) == "" {
		return a.invalid("Please fill in all required fields")
	}
	if _, err := a.api.Register(ctx, r); err != nil {
		a.fail("Failed to register user: ", err)
		return err
	}
	a.logger.Info("user registered", "role", r.Role)
	a.succeed("User registered successfully")
	a.users.Load(a.ctx, "", a.fetchUsers)
	return nil
}

// SetFilter replaces the draft log filter without fetching.
func (a *Admin) SetFilter(f api.LogFilter) {
	a.mu.Lock()
	a.draft = f
	a.mu.Unlock()
	a.changed()
}

// ApplyFilter makes the draft the applied filter and refetches logs.
func (a *Admin) ApplyFilter() {
	a.mu.Lock()
	a.applied = a.draft
	f := a.applied
	a.mu.Unlock()
	a.logs.Load(a.ctx, f.Query().Encode(), a.logsFetch(f))
}

// ClearFilter empties both filters and refetches logs.
func (a *Admin) ClearFilter() {
	a.mu.Lock()
	a.draft, a.applied = api.LogFilter{}, api.LogFilter{}
	a.mu.Unlock()
	a.logs.Load(a.ctx, "", a.logsFetch(api.LogFilter{}))
}

// VerifyLogs reruns the integrity check, dropping the previous result.
func (a *Admin) VerifyLogs() {
	a.verify.Reset()
	a.verify.Load(a.ctx, "", a.fetchVerify)
	a.changed()
}

// Users returns the held user list.
func (a *Admin) Users() []normalize.User {
	return a.users.Snapshot().Value
}
