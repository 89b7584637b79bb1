// ABOUTME: Parent panel: result cards for every linked student
// ABOUTME: The first child is shown until another is selected

package panel

import (
	"context"
	"fmt"
	"strings"

	"github.com/2389/vault-dashboard/internal/api"
	"github.com/2389/vault-dashboard/internal/normalize"
	"github.com/2389/vault-dashboard/internal/roles"
)

// ParentAPI is the remote surface the parent panel needs.
type ParentAPI interface {
	ChildRecords(ctx context.Context) (any, error)
}

// ResultCardsView shows the selected child's results.
type ResultCardsView struct {
	Children []normalize.Child
	Selected *normalize.Child
}

// Parent is the parent panel.
type Parent struct {
	*base
	api ParentAPI

	children *Resource[[]normalize.Child]
	selected string // guarded by base.mu
}

// NewParent builds the parent panel.
func NewParent(ctx context.Context, client ParentAPI, deps Deps) *Parent {
	p := &Parent{base: newBase(ctx, roles.Parent, deps), api: client}
	p.children = NewResource("children",
		func() []normalize.Child { return []normalize.Child{} },
		listError("children data", InvalidDataMessage), p.changed, p.logger)
	p.track(p.children)
	return p
}

func (p *Parent) fetchChildren(ctx context.Context) ([]normalize.Child, error) {
	raw, err := p.api.ChildRecords(ctx)
	if err != nil {
		return nil, err
	}
	switch raw.(type) {
	case map[string]any, []any, normalize.Child, []normalize.Child:
	default:
		return nil, fmt.Errorf("%w: child records are %T", api.ErrShape, raw)
	}
	return normalize.Children(raw), nil
}

// Activate implements Panel.
func (p *Parent) Activate(view string) {
	if !p.enter(view) {
		p.keep()
		p.changed()
		return
	}
	p.keep(p.children)
	p.children.Ensure(p.ctx, "", p.fetchChildren)
	p.changed()
}

// Screen implements Panel.
func (p *Parent) Screen() Screen {
	view := p.currentView()
	if !p.variant.Allows(view) {
		return p.unknownView(p.screen(false, ""))
	}
	children := p.children.Snapshot()
	s := p.screen(children.Loading, children.Err)

	p.mu.Lock()
	want := p.selected
	p.mu.Unlock()

	v := &ResultCardsView{Children: children.Value}
	for i := range children.Value {
		if children.Value[i].StudentID == want {
			v.Selected = &children.Value[i]
		}
	}
	if v.Selected == nil && len(children.Value) > 0 {
		v.Selected = &children.Value[0]
	}
	s.Data = v
	return s
}

// SelectChild shows the result card of the child with id.
func (p *Parent) SelectChild(id string) error {
	id = strings.TrimSpace(id)
	for _, c := range p.children.Snapshot().Value {
		if c.StudentID == id {
			p.mu.Lock()
			p.selected = id
			p.actionErr = ""
			p.mu.Unlock()
			p.changed()
			return nil
		}
	}
	return p.invalid("Unknown student: " + id)
}
