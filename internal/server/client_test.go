package server

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhy3800/MovieWebsite/pkg/logger"
	"github.com/zhy3800/MovieWebsite/pkg/reconcile"
)

type recordingNav struct {
	notices   []string
	redirects []string
}

func (n *recordingNav) Notify(msg string)    { n.notices = append(n.notices, msg) }
func (n *recordingNav) Redirect(path string) { n.redirects = append(n.redirects, path) }

func TestSessionAgainstServer(t *testing.T) {
	s := newTestServer(t)
	s.signup("alice")

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ctx := context.Background()
	api := reconcile.NewHTTPClient(srv.URL+"/api", srv.Client())
	backend := reconcile.NewMemoryBackend()
	nav := &recordingNav{}
	session := reconcile.NewSession(backend.Handle(), api, nav, reconcile.WithLogger(logger.Nop()))

	_, err := session.Login(ctx, "alice", "wrong-password")
	var apiErr *reconcile.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "INVALID_CREDENTIALS", apiErr.Code)

	user, err := session.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	on, err := session.ToggleFavorite(ctx, 2)
	require.NoError(t, err)
	assert.True(t, on)

	remote, err := session.CheckFavorite(ctx, 2)
	require.NoError(t, err)
	assert.True(t, remote)

	stored, err := session.Rate(ctx, 2, 9)
	require.NoError(t, err)
	assert.Equal(t, 5.0, stored)

	r, err := session.LoadRating(ctx, 2)
	require.NoError(t, err)
	assert.True(t, r.Rated)
	assert.Equal(t, 5.0, r.Rating)

	require.NoError(t, session.Resync(ctx))
	assert.True(t, session.IsFavorited(ctx, 2))

	off, err := session.ToggleFavorite(ctx, 2)
	require.NoError(t, err)
	assert.False(t, off)
	assert.Empty(t, nav.notices)

	// a forged but well-formed token is rejected by the server
	tab := backend.Handle()
	require.NoError(t, tab.Set(ctx, reconcile.KeyToken, "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.c2ln"))
	forged := reconcile.NewSession(tab, api, nav)
	require.True(t, forged.Restore(ctx))

	_, err = forged.CheckFavorite(ctx, 2)
	assert.True(t, reconcile.IsUnauthorized(err))
	assert.Equal(t, reconcile.StateExpired, forged.LastInvalidation())
	assert.Contains(t, nav.redirects, reconcile.LoginPath)
}
