package transport

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Pool caches opened Transports by key (typically a destination address)
// so concurrent callers asking for the same destination share one dial in
// flight rather than racing two, grounded on sip/transport_connection_pool.go's
// addSingleflight.
type Pool struct {
	mu sync.RWMutex
	m  map[string]Transport
	sf singleflight.Group
}

// NewPool returns an empty connection cache.
func NewPool() *Pool {
	return &Pool{m: make(map[string]Transport)}
}

// Get returns the cached Transport for key, opening a new one via open if
// absent. Concurrent Get calls for the same key that miss the cache share
// a single in-flight open.
func (p *Pool) Get(ctx context.Context, key string, open func() (Transport, error)) (Transport, error) {
	p.mu.RLock()
	if t, ok := p.m[key]; ok {
		p.mu.RUnlock()
		return t, nil
	}
	p.mu.RUnlock()

	v, err, _ := p.sf.Do(key, func() (interface{}, error) {
		p.mu.RLock()
		if t, ok := p.m[key]; ok {
			p.mu.RUnlock()
			return t, nil
		}
		p.mu.RUnlock()

		t, err := open()
		if err != nil {
			return nil, err
		}
		if err := t.Open(ctx); err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.m[key] = t
		p.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Transport), nil
}

// Evict removes key from the cache (without closing the transport; the
// caller owns Close once it stops using the returned value).
func (p *Pool) Evict(key string) {
	p.mu.Lock()
	delete(p.m, key)
	p.mu.Unlock()
}

// Clear closes and removes every cached transport.
func (p *Pool) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for k, t := range p.m {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.m, k)
	}
	return firstErr
}
