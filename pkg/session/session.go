// Package session carries the authenticated registrar session through a request context.
// Every registrar call reads its token from here and nowhere else.
package session

import (
	"context"
	"strconv"
	"time"
)

// UserType mirrors the registrar account kind without importing models.
type UserType string

// Session is the server-held state behind a gateway token.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	UserID    int       `json:"user_id"`
	Username  string    `json:"username"`
	UserType  UserType  `json:"user_type"`
	CreatedAt time.Time `json:"created_at"`
}

// Actor identifies the session owner in logs and job records.
func (s *Session) Actor() string {
	if s == nil {
		return ""
	}
	if s.Username != "" {
		return s.Username
	}
	return strconv.Itoa(s.UserID)
}

type contextKey struct{}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session, or nil when the context is anonymous.
func FromContext(ctx context.Context) *Session {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}

// Token returns the registrar token bound to ctx, or "".
func Token(ctx context.Context) string {
	if s := FromContext(ctx); s != nil {
		return s.Token
	}
	return ""
}

// WithToken binds a bare registrar token, as used by the CLI.
func WithToken(ctx context.Context, token string) context.Context {
	return WithSession(ctx, &Session{Token: token})
}
