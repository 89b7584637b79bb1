// ABOUTME: Tests for admin edit targeting by id
// ABOUTME: Ids are trimmed for both the list and the selected detail record

package panel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/vault-dashboard/internal/roles"
)

func TestAdminEditUserTrimsID(t *testing.T) {
	c := &stubClient{
		getUser: func(_ context.Context, id string) (map[string]any, error) {
			return map[string]any{"_id": id, "fullName": "Dee Detail", "role": "Teacher"}, nil
		},
	}
	nav := &navRecorder{}
	a := NewAdmin(context.Background(), c, Deps{Navigator: nav})
	nav.panel = a
	defer a.Close()

	a.Activate(roles.ViewUsers)
	settle(t, a)
	require.NoError(t, a.SelectUser("d9"))
	settle(t, a)

	require.NoError(t, a.EditUser("  d9 "))
	assert.Equal(t, roles.ViewEditProfile, nav.last())
	ev := a.Screen().Data.(*EditView)
	assert.Equal(t, "d9", ev.Target.ID)
	assert.Equal(t, "Dee Detail", ev.Form.FullName)

	assert.ErrorIs(t, a.EditUser("   "), ErrValidation)
}
