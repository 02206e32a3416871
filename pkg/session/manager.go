package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/meract/pkg/cookie"
	"github.com/dmitrymomot/meract/pkg/storage"
)

const (
	DefaultCookieName = "MERACTSESSID"
	DefaultPrefix     = "sessions"
	DefaultTTL        = time.Hour
)

type record struct {
	CreatedAt time.Time      `json:"created_at"`
	Values    map[string]any `json:"values"`
}

// Manager loads and persists sessions in a storage driver, keyed by an id
// carried in a cookie.
type Manager struct {
	store      *storage.Storage[record]
	signer     *cookie.Signer
	now        func() time.Time
	cookieName string
	path       string
	domain     string
	ttl        time.Duration
	secure     bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithCookieName sets the session cookie name. Default: MERACTSESSID.
func WithCookieName(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.cookieName = name
		}
	}
}

// WithTTL sets how long an idle session lives. Default: one hour.
func WithTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.ttl = d
		}
	}
}

// WithSigner signs the cookie value. Unsigned ids are rejected once set.
func WithSigner(s *cookie.Signer) Option {
	return func(m *Manager) {
		m.signer = s
	}
}

// WithSecure marks the cookie Secure.
func WithSecure(secure bool) Option {
	return func(m *Manager) {
		m.secure = secure
	}
}

// WithCookiePath sets the cookie path. Default: "/".
func WithCookiePath(path string) Option {
	return func(m *Manager) {
		if path != "" {
			m.path = path
		}
	}
}

// WithCookieDomain sets the cookie domain.
func WithCookieDomain(domain string) Option {
	return func(m *Manager) {
		m.domain = domain
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a Manager keeping sessions under the "sessions"
// prefix of driver.
func NewManager(driver storage.Driver, opts ...Option) *Manager {
	m := &Manager{
		cookieName: DefaultCookieName,
		path:       "/",
		ttl:        DefaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.store = storage.New[record](driver, nil,
		storage.WithPrefix(DefaultPrefix),
		storage.WithDefaultTTL(m.ttl),
	)
	return m
}

func (m *Manager) CookieName() string   { return m.cookieName }
func (m *Manager) CookiePath() string   { return m.path }
func (m *Manager) CookieDomain() string { return m.domain }
func (m *Manager) Secure() bool         { return m.secure }
func (m *Manager) TTL() time.Duration   { return m.ttl }

// Load returns the session named by a cookie value. A missing, forged or
// expired id yields a fresh session; only storage failures are errors.
func (m *Manager) Load(ctx context.Context, cookieValue string) (*Session, error) {
	id := m.decode(cookieValue)
	if id == "" {
		return m.create(), nil
	}

	rec, err := m.store.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return m.create(), nil
	}
	if err != nil {
		return nil, err
	}

	values := rec.Values
	if values == nil {
		values = make(map[string]any)
	}
	return &Session{
		ID:        id,
		Values:    values,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: m.now().Add(m.ttl),
	}, nil
}

// Save persists s and extends its lifetime. Unchanged sessions only have
// their TTL refreshed.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	if s.destroyed {
		return ErrDestroyed
	}

	s.ExpiresAt = m.now().Add(m.ttl)
	if !s.dirty && !s.isNew {
		err := m.store.Touch(ctx, s.ID, m.ttl)
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
	}

	if err := m.store.Set(ctx, s.ID, record{CreatedAt: s.CreatedAt, Values: s.Values}, m.ttl); err != nil {
		return err
	}
	s.dirty = false
	s.isNew = false
	return nil
}

// Destroy removes s from storage.
func (m *Manager) Destroy(ctx context.Context, s *Session) error {
	if err := m.store.Remove(ctx, s.ID); err != nil {
		return err
	}
	s.destroyed = true
	s.Values = make(map[string]any)
	return nil
}

// Regenerate moves s to a new id, keeping its values. Call after login.
func (m *Manager) Regenerate(ctx context.Context, s *Session) error {
	if err := m.store.Remove(ctx, s.ID); err != nil {
		return err
	}
	s.ID = uuid.NewString()
	s.isNew = true
	s.dirty = true
	return nil
}

// CookieValue returns the value to send in the session cookie.
func (m *Manager) CookieValue(s *Session) string {
	if m.signer == nil {
		return s.ID
	}
	return m.signer.Sign(s.ID)
}

func (m *Manager) decode(value string) string {
	if value == "" || m.signer == nil {
		return value
	}
	id, err := m.signer.Verify(value)
	if err != nil {
		return ""
	}
	return id
}

func (m *Manager) create() *Session {
	return newSession(uuid.NewString(), m.now(), m.ttl)
}
