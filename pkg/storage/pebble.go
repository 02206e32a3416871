package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
)

// pebbleHeader is the size of the expiry prefix stored before each value:
// big-endian Unix nanoseconds, zero for entries that never expire.
const pebbleHeader = 8

// Pebble is an embedded on-disk driver.
type Pebble struct {
	// mu guards db and serializes every operation, so an expired entry seen
	// by Get or Sweep cannot be deleted after a concurrent Set replaced it.
	mu  sync.Mutex
	db  *pebble.DB
	now func() time.Time
}

// PebbleOption configures the Pebble driver.
type PebbleOption func(*Pebble)

// WithPebbleClock replaces time.Now, for tests.
func WithPebbleClock(now func() time.Time) PebbleOption {
	return func(p *Pebble) {
		if now != nil {
			p.now = now
		}
	}
}

// OpenPebble opens (or creates) a Pebble database at dir.
func OpenPebble(dir string, opts ...PebbleOption) (*Pebble, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	p := &Pebble{db: db, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Pebble) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return ErrClosed
	}
	return p.db.Set([]byte(key), p.encode(value, ttl), pebble.Sync)
}

func (p *Pebble) Get(_ context.Context, key string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil, ErrClosed
	}

	expiresAt, value, err := p.read(key)
	if err != nil {
		return nil, err
	}
	if p.expired(expiresAt) {
		if err := p.db.Delete([]byte(key), pebble.Sync); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return value, nil
}

func (p *Pebble) Delete(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return ErrClosed
	}
	return p.db.Delete([]byte(key), pebble.Sync)
}

func (p *Pebble) Expire(_ context.Context, key string, ttl time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return ErrClosed
	}

	expiresAt, value, err := p.read(key)
	if err != nil {
		return err
	}
	if p.expired(expiresAt) {
		if err := p.db.Delete([]byte(key), pebble.Sync); err != nil {
			return err
		}
		return ErrNotFound
	}
	return p.db.Set([]byte(key), p.encode(value, ttl), pebble.Sync)
}

// Sweep scans every key and deletes expired entries in one batch.
func (p *Pebble) Sweep(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return 0, ErrClosed
	}

	iter, err := p.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}

	batch := p.db.NewBatch()
	defer batch.Close()

	removed := 0
	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			_ = iter.Close()
			return 0, err
		}
		expiresAt, _ := decodePebble(iter.Value())
		if p.expired(expiresAt) {
			if err := batch.Delete(append([]byte(nil), iter.Key()...), nil); err != nil {
				_ = iter.Close()
				return 0, err
			}
			removed++
		}
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}

	if removed == 0 {
		return 0, nil
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, err
	}
	return removed, nil
}

// Healthcheck reports whether the database is open.
func (p *Pebble) Healthcheck(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return ErrClosed
	}
	return nil
}

// Close closes the database. It is safe to call more than once.
func (p *Pebble) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

// read returns a copy of the stored value with its expiry. Callers hold mu.
func (p *Pebble) read(key string) (int64, []byte, error) {
	raw, closer, err := p.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return 0, nil, ErrNotFound
		}
		return 0, nil, err
	}
	defer closer.Close()

	expiresAt, value := decodePebble(raw)
	return expiresAt, append([]byte(nil), value...), nil
}

func (p *Pebble) encode(value []byte, ttl time.Duration) []byte {
	out := make([]byte, pebbleHeader+len(value))
	if ttl > 0 {
		binary.BigEndian.PutUint64(out, uint64(p.now().Add(ttl).UnixNano()))
	}
	copy(out[pebbleHeader:], value)
	return out
}

func (p *Pebble) expired(expiresAt int64) bool {
	return expiresAt != 0 && p.now().UnixNano() >= expiresAt
}

func decodePebble(raw []byte) (int64, []byte) {
	if len(raw) < pebbleHeader {
		return 0, raw
	}
	return int64(binary.BigEndian.Uint64(raw[:pebbleHeader])), raw[pebbleHeader:]
}

var _ Driver = (*Pebble)(nil)
