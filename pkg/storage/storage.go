package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// DefaultTTL is the lifetime of entries set without an explicit TTL when
// New is given no WithDefaultTTL option.
const DefaultTTL = time.Hour

// Driver persists raw entries. A ttl <= 0 stores an entry that never
// expires. Get and Expire return ErrNotFound for missing or expired keys.
type Driver interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Sweep removes expired entries and reports how many were removed.
	Sweep(ctx context.Context) (int, error)

	Close() error
}

// Marshaler converts values to and from the bytes kept by a Driver.
type Marshaler[V any] interface {
	Marshal(v V) ([]byte, error)
	Unmarshal(data []byte) (V, error)
}

type jsonMarshaler[V any] struct{}

func (jsonMarshaler[V]) Marshal(v V) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Join(ErrMarshal, err)
	}
	return data, nil
}

func (jsonMarshaler[V]) Unmarshal(data []byte) (V, error) {
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.Join(ErrUnmarshal, err)
	}
	return v, nil
}

// Storage is a typed key/value store with TTLs and optional key namespacing.
//
// TTL semantics for Set and Touch:
//   - positive: the entry expires after this duration
//   - zero: the storage default TTL applies
//   - negative: the entry never expires
type Storage[V any] struct {
	driver     Driver
	marshaler  Marshaler[V]
	prefix     string
	defaultTTL time.Duration
}

// Option configures a Storage.
type Option func(*options)

type options struct {
	prefix     string
	defaultTTL time.Duration
}

// WithPrefix namespaces all keys as "prefix:key".
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithDefaultTTL sets the TTL used when Set is called with zero.
// Zero or a negative value makes such entries permanent. Default: one hour.
func WithDefaultTTL(d time.Duration) Option {
	return func(o *options) {
		o.defaultTTL = d
	}
}

// New creates a Storage over driver. A nil marshaler selects JSON.
//
// Example:
//
//	driver := storage.NewMemory()
//	users := storage.New[User](driver, nil, storage.WithPrefix("users"))
//	err := users.Set(ctx, "42", user, 10*time.Minute)
func New[V any](driver Driver, m Marshaler[V], opts ...Option) *Storage[V] {
	o := &options{defaultTTL: DefaultTTL}
	for _, opt := range opts {
		opt(o)
	}
	if m == nil {
		m = jsonMarshaler[V]{}
	}
	return &Storage[V]{
		driver:     driver,
		marshaler:  m,
		prefix:     o.prefix,
		defaultTTL: o.defaultTTL,
	}
}

// Prefix returns a view of the same driver with keys namespaced under p,
// nested below the current prefix if any.
func (s *Storage[V]) Prefix(p string) *Storage[V] {
	view := *s
	if s.prefix == "" {
		view.prefix = p
	} else {
		view.prefix = s.prefix + ":" + p
	}
	return &view
}

// Set stores value under key.
func (s *Storage[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	if err := validateKey(key); err != nil {
		return err
	}
	data, err := s.marshaler.Marshal(value)
	if err != nil {
		return err
	}
	return s.driver.Set(ctx, s.key(key), data, s.resolveTTL(ttl))
}

// Get returns the value under key, or ErrNotFound when it is missing or
// has expired. Drivers remove expired entries they come across.
func (s *Storage[V]) Get(ctx context.Context, key string) (V, error) {
	var zero V
	if err := validateKey(key); err != nil {
		return zero, err
	}
	data, err := s.driver.Get(ctx, s.key(key))
	if err != nil {
		return zero, err
	}
	return s.marshaler.Unmarshal(data)
}

// Has reports whether key holds a live entry.
func (s *Storage[V]) Has(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	_, err := s.driver.Get(ctx, s.key(key))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Remove deletes key. Removing a missing key is not an error.
func (s *Storage[V]) Remove(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return s.driver.Delete(ctx, s.key(key))
}

// Touch resets the TTL of an existing entry.
func (s *Storage[V]) Touch(ctx context.Context, key string, ttl time.Duration) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return s.driver.Expire(ctx, s.key(key), s.resolveTTL(ttl))
}

// Sweep removes expired entries across the whole driver, regardless of
// this view's prefix.
func (s *Storage[V]) Sweep(ctx context.Context) (int, error) {
	return s.driver.Sweep(ctx)
}

func (s *Storage[V]) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

// resolveTTL maps the public TTL semantics onto the driver's, where
// anything <= 0 means "never expires".
func (s *Storage[V]) resolveTTL(ttl time.Duration) time.Duration {
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	return max(ttl, 0)
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	return nil
}
