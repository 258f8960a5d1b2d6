package credentials

import (
	"errors"
	"sync"
	"time"
)

// ErrNoKeys indicates that the pool was constructed without any credentials.
var ErrNoKeys = errors.New("credentials: no api keys configured")

// DefaultCooldown is how long a key stays excluded after MarkError.
const DefaultCooldown = 5 * time.Minute

type keyState struct {
	value       string
	lastErrorAt time.Time
}

// Pool hands out provider API keys round-robin, temporarily excluding keys
// that were observed failing for auth or quota reasons. The round-robin index
// advances on every Next call, independent of cooldown filtering. When every
// key is cooling down the pool clears all marks and falls back to plain
// round-robin rather than blocking: retrying a possibly broken key beats
// deadlocking the pipeline.
type Pool struct {
	mu       sync.Mutex
	keys     []*keyState
	index    int
	cooldown time.Duration
	now      func() time.Time
}

// Option customizes pool construction.
type Option func(*Pool)

// WithCooldown overrides the error cooldown window.
func WithCooldown(d time.Duration) Option {
	return func(p *Pool) { p.cooldown = d }
}

// WithClock injects the time source, so tests can control the cooldown window.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) { p.now = now }
}

// NewPool builds a pool over the given ordered keys.
func NewPool(keys []string, opts ...Option) (*Pool, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	p := &Pool{
		keys:     make([]*keyState, 0, len(keys)),
		cooldown: DefaultCooldown,
		now:      time.Now,
	}
	for _, k := range keys {
		p.keys = append(p.keys, &keyState{value: k})
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Size returns the number of configured keys.
func (p *Pool) Size() int {
	return len(p.keys)
}

// Next returns the next usable key. It never blocks and never fails.
func (p *Pool) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	var valid []*keyState
	for _, k := range p.keys {
		if k.lastErrorAt.IsZero() || now.Sub(k.lastErrorAt) > p.cooldown {
			valid = append(valid, k)
		}
	}

	if len(valid) == 0 {
		for _, k := range p.keys {
			k.lastErrorAt = time.Time{}
		}
		valid = p.keys
	}

	key := valid[p.index%len(valid)]
	p.index++
	return key.value
}

// MarkError records the current time against the key, excluding it from
// selection until the cooldown window elapses. Unknown keys are ignored.
func (p *Pool) MarkError(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range p.keys {
		if k.value == key {
			k.lastErrorAt = p.now()
			return
		}
	}
}
