package session_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantgate/pkg/session"
)

func TestHeaderTransport_GetToken(t *testing.T) {
	t.Parallel()
	tr := session.NewHeaderTransport("Authorization")

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "bearer", header: "Bearer tok", want: "tok"},
		{name: "case insensitive", header: "bearer tok", want: "tok"},
		{name: "wrong scheme", header: "Basic tok"},
		{name: "prefix only", header: "Bearer"},
		{name: "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, err := tr.GetToken(r)
			if tt.want == "" {
				assert.ErrorIs(t, err, session.ErrSessionNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHeaderTransport_NoPrefix(t *testing.T) {
	t.Parallel()
	tr := session.NewHeaderTransport("X-Session", session.WithHeaderPrefix(""))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Session", "raw")
	got, err := tr.GetToken(r)
	require.NoError(t, err)
	assert.Equal(t, "raw", got)

	w := httptest.NewRecorder()
	require.NoError(t, tr.SetToken(w, "raw", time.Minute))
	assert.Equal(t, "raw", w.Header().Get("X-Session"))
	assert.NotEmpty(t, w.Header().Get("X-Session-Expires"))

	require.NoError(t, tr.ClearToken(w))
	assert.Empty(t, w.Header().Get("X-Session"))
	assert.Empty(t, w.Header().Get("X-Session-Expires"))
}

func TestCompositeTransport_Order(t *testing.T) {
	t.Parallel()
	tr := session.NewCompositeTransport(
		session.NewHeaderTransport("X-First", session.WithHeaderPrefix("")),
		session.NewHeaderTransport("X-Second", session.WithHeaderPrefix("")),
	)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Second", "second")
	got, err := tr.GetToken(r)
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	r.Header.Set("X-First", "first")
	got, err = tr.GetToken(r)
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	_, err = tr.GetToken(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}
