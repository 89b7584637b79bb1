// ABOUTME: Aggregate view model of the whole dashboard for renderers
// ABOUTME: Either the login screen or the mounted panel's screen, plus menu and notices

package dashboard

import (
	"github.com/2389/vault-dashboard/internal/gate"
	"github.com/2389/vault-dashboard/internal/panel"
	"github.com/2389/vault-dashboard/internal/roles"
	"github.com/2389/vault-dashboard/internal/session"
)

// Screen is everything a renderer needs.
type Screen struct {
	LoggedIn bool
	Session  session.Session
	Variant  roles.Variant
	Menu     []roles.MenuItem
	View     string
	Notice   string
	// Login is set while logged out.
	Login *gate.View
	// Panel is set while a session is live.
	Panel *panel.Screen
}

// Screen snapshots the dashboard.
func (d *Dashboard) Screen() Screen {
	d.mu.Lock()
	g, p, notice := d.gate, d.panel, d.notice
	d.mu.Unlock()

	s := Screen{View: d.router.Active(), Notice: notice}
	if cur, ok := d.cfg.Session.Current(); ok && p != nil {
		s.LoggedIn = true
		s.Session = cur
		s.Variant = p.Variant()
		s.Menu = p.Variant().Menu()
		ps := p.Screen()
		s.Panel = &ps
		return s
	}
	if g != nil {
		v := g.View()
		s.Login = &v
	}
	return s
}
