// ABOUTME: Tests for the terminal shell against the development backend
// ABOUTME: Drives login and panel commands and checks the rendered output

package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/vault-dashboard/internal/api"
	"github.com/2389/vault-dashboard/internal/config"
	"github.com/2389/vault-dashboard/internal/dashboard"
	"github.com/2389/vault-dashboard/internal/mockapi"
	"github.com/2389/vault-dashboard/internal/session"
)

func TestPairs(t *testing.T) {
	kv, err := pairs([]string{"name=Ada", "Lovelace", "role=Admin"})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", kv["name"])
	assert.Equal(t, "Admin", kv["role"])

	_, err = pairs([]string{"loose"})
	assert.Error(t, err)
}

func newTestShell(t *testing.T) (*shell, *dashboard.Dashboard, *bytes.Buffer) {
	t.Helper()
	color.NoColor = true
	gin.SetMode(gin.TestMode)

	store := mockapi.NewStore()
	_, err := mockapi.Seed(store)
	require.NoError(t, err)
	ts := httptest.NewServer(mockapi.NewServer(store, []byte("shell-secret")).Handler())
	t.Cleanup(ts.Close)

	var out bytes.Buffer
	sh := newShell(strings.NewReader(""), &out)
	scanners, err := sh.scannerFactory(config.ScannerConfig{Kind: "lines"})
	require.NoError(t, err)

	sc, writer := session.NewContext(session.NewMemoryKV(), nil)
	d := dashboard.New(context.Background(), dashboard.Config{
		Session:  sc,
		Writer:   writer,
		Remote:   api.New(ts.URL+"/api", api.TokenFunc(sc.Token)),
		Location: sh.location,
		Scanners: scanners,
		OnChange: sh.invalidate,
		Notify:   sh.notify,
	})
	t.Cleanup(d.Close)
	return sh, d, &out
}

func TestLoginAndNavigate(t *testing.T) {
	sh, d, out := newTestShell(t)
	ctx := context.Background()

	sh.draw(d)
	assert.Contains(t, out.String(), "Challenge:")

	_, err := sh.exec(ctx, d, "users")
	assert.ErrorContains(t, err, "not logged in")

	_, err = sh.exec(ctx, d, "login admin@vault.test "+mockapi.SeedPassword+" wrong!")
	require.Error(t, err)

	answer := d.Gate().View().Challenge
	_, err = sh.exec(ctx, d, "login admin@vault.test "+mockapi.SeedPassword+" "+answer)
	require.NoError(t, err)

	_, err = sh.exec(ctx, d, "#users")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		s := d.Screen()
		return s.Panel != nil && !s.Panel.Loading
	}, 2*time.Second, 5*time.Millisecond)

	out.Reset()
	sh.draw(d)
	assert.Contains(t, out.String(), "Sam Student")
	assert.Contains(t, out.String(), "admin #users>")

	quit, err := sh.exec(ctx, d, "logout")
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Nil(t, d.Panel())

	quit, _ = sh.exec(ctx, d, "quit")
	assert.True(t, quit)
}

func TestQRWithoutScanner(t *testing.T) {
	sh, d, _ := newTestShell(t)
	_, err := sh.exec(context.Background(), d, "qr payload")
	assert.ErrorContains(t, err, "no scanner is running")
}
