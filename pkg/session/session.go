package session

import (
	"context"
	"fmt"
	"time"
)

// Session holds per-visitor data between requests.
//
// Values round-trip through JSON, so numbers read back as float64 and
// nested objects as map[string]any.
type Session struct {
	CreatedAt time.Time
	ExpiresAt time.Time
	Values    map[string]any
	ID        string

	dirty     bool
	isNew     bool
	destroyed bool
}

func newSession(id string, now time.Time, ttl time.Duration) *Session {
	return &Session{
		ID:        id,
		Values:    make(map[string]any),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		isNew:     true,
		dirty:     true,
	}
}

// Set stores a value and marks the session dirty.
func (s *Session) Set(key string, val any) {
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	s.Values[key] = val
	s.dirty = true
}

func (s *Session) Get(key string) (any, bool) {
	val, ok := s.Values[key]
	return val, ok
}

// Delete removes key, marking the session dirty only if it existed.
func (s *Session) Delete(key string) {
	if _, ok := s.Values[key]; ok {
		delete(s.Values, key)
		s.dirty = true
	}
}

// Clear drops all values.
func (s *Session) Clear() {
	if len(s.Values) == 0 {
		return
	}
	s.Values = make(map[string]any)
	s.dirty = true
}

func (s *Session) IsDirty() bool     { return s.dirty }
func (s *Session) IsNew() bool       { return s.isNew }
func (s *Session) IsDestroyed() bool { return s.destroyed }

// Value returns the value under key as T.
func Value[T any](s *Session, key string) (T, error) {
	var zero T
	if s == nil {
		return zero, ErrNotFound
	}
	val, ok := s.Get(key)
	if !ok {
		return zero, ErrNotFound
	}
	typed, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("%w for key %q: %T", ErrTypeMismatch, key, val)
	}
	return typed, nil
}

// ValueOr returns the value under key as T, or def.
func ValueOr[T any](s *Session, key string, def T) T {
	val, err := Value[T](s, key)
	if err != nil {
		return def
	}
	return val
}

type contextKey struct{}

// WithContext attaches s to ctx.
func WithContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session attached by the session middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}
