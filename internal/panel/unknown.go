// ABOUTME: Terminal panel for roles the dashboard does not know
// ABOUTME: Renders a fixed notice and is never retried

package panel

import (
	"sync"

	"github.com/2389/vault-dashboard/internal/roles"
)

// Unknown is the panel for an unrecognized role.
type Unknown struct {
	mu   sync.Mutex
	view string
}

// NewUnknown returns the unknown-role panel.
func NewUnknown(Deps) *Unknown {
	return &Unknown{}
}

func (u *Unknown) Variant() roles.Variant { return roles.Unknown }

func (u *Unknown) Activate(view string) {
	u.mu.Lock()
	u.view = view
	u.mu.Unlock()
}

func (u *Unknown) Screen() Screen {
	u.mu.Lock()
	defer u.mu.Unlock()
	return Screen{
		Variant:    roles.Unknown,
		View:       u.view,
		Notice:     NoticeUnknownRole,
		NoticeText: UnknownRoleMessage,
	}
}

func (u *Unknown) Close() {}
func (u *Unknown) Wait()  {}
