// ABOUTME: Tests for the session context, sqlite key-value area, sealing, and expiry watch
// ABOUTME: Uses temp sqlite files and hand-built JWTs

package session

import (
	"context"
	"encoding/hex"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func newTestStore(t *testing.T, opts ...StoreOption) *Store {
	t.Helper()
	st, err := OpenStore(filepath.Join(t.TempDir(), "nested", "session.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestEstablishPersistsAndNotifies(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	sc, w := NewContext(kv, nil)

	var changes []Change
	sc.OnChange(func(c Change) { changes = append(changes, c) })

	s := Session{Token: "tok", Role: RoleTeacher, SubjectID: "t1"}
	require.NoError(t, w.Establish(ctx, s))

	got, ok := sc.Current()
	require.True(t, ok)
	assert.Equal(t, s, got)
	assert.Equal(t, "tok", sc.Token())

	v, ok, _ := kv.Get(ctx, KeyRole)
	assert.True(t, ok)
	assert.Equal(t, "Teacher", v)

	require.Len(t, changes, 1)
	assert.True(t, changes[0].Live)
	assert.Equal(t, "login", changes[0].Reason)
}

func TestEstablishRejectsIncomplete(t *testing.T) {
	sc, w := NewContext(NewMemoryKV(), nil)
	err := w.Establish(context.Background(), Session{Token: "tok", Role: RoleAdmin})
	assert.ErrorIs(t, err, ErrIncomplete)
	_, ok := sc.Current()
	assert.False(t, ok)
}

func TestDestroyClearsEverythingOnce(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	sc, w := NewContext(kv, nil)
	require.NoError(t, w.Establish(ctx, Session{Token: "tok", Role: RoleAdmin, SubjectID: "a1"}))

	var destroyed int
	sc.OnChange(func(c Change) {
		if !c.Live {
			destroyed++
			assert.Equal(t, "a1", c.Session.SubjectID)
		}
	})

	require.NoError(t, w.Destroy(ctx, "logout"))
	require.NoError(t, w.Destroy(ctx, "expired"))

	assert.Equal(t, 1, destroyed)
	assert.Empty(t, sc.Token())
	for _, k := range []string{KeyToken, KeyRole, KeyUserID} {
		_, ok, _ := kv.Get(ctx, k)
		assert.False(t, ok, k)
	}
}

func TestInitRestoresAndDiscardsPartial(t *testing.T) {
	ctx := context.Background()

	t.Run("complete", func(t *testing.T) {
		kv := NewMemoryKV()
		kv.Set(ctx, KeyToken, "tok")
		kv.Set(ctx, KeyRole, "Parent")
		kv.Set(ctx, KeyUserID, "p1")

		sc, _ := NewContext(kv, nil)
		require.NoError(t, sc.Init(ctx))
		got, ok := sc.Current()
		require.True(t, ok)
		assert.Equal(t, RoleParent, got.Role)
	})

	t.Run("partial", func(t *testing.T) {
		kv := NewMemoryKV()
		kv.Set(ctx, KeyToken, "tok")

		sc, _ := NewContext(kv, nil)
		require.NoError(t, sc.Init(ctx))
		_, ok := sc.Current()
		assert.False(t, ok)
		_, ok, _ = kv.Get(ctx, KeyToken)
		assert.False(t, ok, "partial record should be cleared")
	})

	t.Run("empty", func(t *testing.T) {
		sc, _ := NewContext(NewMemoryKV(), nil)
		require.NoError(t, sc.Init(ctx))
		_, ok := sc.Current()
		assert.False(t, ok)
	})
}

func TestOnChangeCancel(t *testing.T) {
	ctx := context.Background()
	sc, w := NewContext(NewMemoryKV(), nil)

	var calls int
	cancel := sc.OnChange(func(Change) { calls++ })
	cancel()

	require.NoError(t, w.Establish(ctx, Session{Token: "t", Role: RoleStudent, SubjectID: "s1"}))
	assert.Zero(t, calls)
}

func TestStoreRoundTripAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	st, err := OpenStore(path)
	require.NoError(t, err)
	require.NoError(t, st.Set(ctx, KeyToken, "abc"))
	require.NoError(t, st.Set(ctx, KeyToken, "def"))
	require.NoError(t, st.Close())

	st, err = OpenStore(path)
	require.NoError(t, err)
	defer st.Close()

	v, ok, err := st.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "def", v)

	require.NoError(t, st.Delete(ctx, KeyToken, "missing"))
	_, ok, err = st.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreSealing(t *testing.T) {
	ctx := context.Background()
	key, _ := hex.DecodeString(strings.Repeat("0f", 32))
	sealer, err := NewSealer(key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "sealed.db")
	st, err := OpenStore(path, WithSealer(sealer))
	require.NoError(t, err)
	require.NoError(t, st.Set(ctx, KeyToken, "secret-token"))

	var raw string
	require.NoError(t, st.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, KeyToken).Scan(&raw))
	assert.NotContains(t, raw, "secret-token")

	v, _, err := st.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", v)
	require.NoError(t, st.Close())

	unsealed, err := OpenStore(path)
	require.NoError(t, err)
	defer unsealed.Close()
	_, _, err = unsealed.Get(ctx, KeyToken)
	assert.ErrorIs(t, err, ErrSealed)
}

func TestSealerRejectsWrongKeyAndGarbage(t *testing.T) {
	a, _ := NewSealer(make([]byte, 32))
	other := make([]byte, 32)
	other[0] = 1
	b, _ := NewSealer(other)

	sealed, err := a.Seal("value")
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.ErrorIs(t, err, ErrBadSeal)
	_, err = a.Open("not base64!")
	assert.ErrorIs(t, err, ErrBadSeal)
	_, err = a.Open("AAAA")
	assert.ErrorIs(t, err, ErrBadSeal)

	_, err = NewSealer([]byte("short"))
	assert.Error(t, err)
}

func TestExpiresAt(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, err := ExpiresAt(testToken(t, exp))
	require.NoError(t, err)
	assert.True(t, got.Equal(exp))

	_, err = ExpiresAt("opaque-token")
	assert.ErrorIs(t, err, ErrNoExpiry)

	assert.False(t, Expired("opaque-token", time.Now()))
	assert.True(t, Expired(testToken(t, time.Now().Add(-time.Minute)), time.Now()))
}

func TestWatchReportsExpiredTokenOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sc, w := NewContext(newTestStore(t), nil)
	require.NoError(t, w.Establish(ctx, Session{
		Token:     testToken(t, time.Now().Add(-time.Second)),
		Role:      RoleAdmin,
		SubjectID: "a1",
	}))

	var fired atomic.Int32
	done := make(chan struct{})
	go func() {
		sc.Watch(ctx, 5*time.Millisecond, func() { fired.Add(1) })
		close(done)
	}()

	require.Eventually(t, func() bool { return fired.Load() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchDisabledWithZeroInterval(t *testing.T) {
	sc, _ := NewContext(NewMemoryKV(), nil)
	sc.Watch(context.Background(), 0, func() { t.Fatal("should not fire") })
}
