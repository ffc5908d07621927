// Package auth is the session-provider boundary. Credentials and login
// flows live in the surrounding platform; this package only resolves a
// request to an organizer identity and carries it through the request
// context. Check-in itself never touches it: check-in is event-scoped.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrNoSession is returned when a request carries no valid session.
var ErrNoSession = errors.New("no valid session")

// Session is the explicit identity context handed to operations that
// need to know the acting organizer.
type Session struct {
	UserID string
}

// Provider resolves a request to a session.
type Provider interface {
	FromRequest(r *http.Request) (*Session, error)
}

// TokenProvider maps static bearer tokens to organizer user ids. It
// stands in for the platform's real session service.
type TokenProvider struct {
	tokens map[string]string
}

// NewTokenProvider constructs a TokenProvider from a token→userID map.
func NewTokenProvider(tokens map[string]string) *TokenProvider {
	return &TokenProvider{tokens: tokens}
}

// FromRequest resolves the Authorization bearer token.
func (p *TokenProvider) FromRequest(r *http.Request) (*Session, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return nil, ErrNoSession
	}
	userID, ok := p.tokens[strings.TrimSpace(token)]
	if !ok {
		return nil, ErrNoSession
	}
	return &Session{UserID: userID}, nil
}

type ctxKey struct{}

// Middleware rejects requests without a valid session and stores the
// session in the request context for handlers downstream.
func Middleware(p Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := p.FromRequest(r)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"authentication required"}`))
				return
			}
			ctx := context.WithValue(r.Context(), ctxKey{}, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the session stored by Middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok
}
