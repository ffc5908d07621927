package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandaprad/tixly/internal/auth"
)

func TestTokenProvider(t *testing.T) {
	p := auth.NewTokenProvider(map[string]string{"secret-token": "user-1"})

	r := httptest.NewRequest(http.MethodGet, "/events", nil)
	r.Header.Set("Authorization", "Bearer secret-token")
	s, err := p.FromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "user-1", s.UserID)
}

func TestTokenProviderRejects(t *testing.T) {
	p := auth.NewTokenProvider(map[string]string{"secret-token": "user-1"})

	cases := map[string]string{
		"no header":     "",
		"wrong scheme":  "Basic secret-token",
		"unknown token": "Bearer nope",
		"empty token":   "Bearer ",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/events", nil)
			if header != "" {
				r.Header.Set("Authorization", header)
			}
			_, err := p.FromRequest(r)
			assert.ErrorIs(t, err, auth.ErrNoSession)
		})
	}
}

func TestMiddleware(t *testing.T) {
	p := auth.NewTokenProvider(map[string]string{"secret-token": "user-1"})
	var got *auth.Session
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	protected := auth.Middleware(p)(next)

	// Valid token: session lands in the context.
	r := httptest.NewRequest(http.MethodGet, "/events", nil)
	r.Header.Set("Authorization", "Bearer secret-token")
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.UserID)

	// Missing token: 401, handler never runs.
	got = nil
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, got)
	assert.JSONEq(t, `{"error":"authentication required"}`, w.Body.String())
}
