package fbb

import (
	"context"
	"fmt"

	"github.com/n4xyz/gofbb/transport"
)

// Dialer dedupes concurrent requests to reach the same peer behind
// transport.Pool's singleflight-backed cache, grounded on
// sip/transport_connection_pool.go's addSingleflight: concurrent callers
// asking Dialer.Connect for the same key share one underlying dial rather
// than racing two.
//
// An FBB connection carries exactly one session to completion (SID
// exchange through FQ), never multiplexed, so Connect evicts key from the
// pool once its Session.Connect returns: the next call for that key always
// dials fresh rather than reusing an already-closed transport.
type Dialer struct {
	pool *transport.Pool
}

// NewDialer returns a Dialer with an empty transport cache.
func NewDialer() *Dialer {
	return &Dialer{pool: transport.NewPool()}
}

// Connect obtains a transport for key via open (opening it only once even
// if several goroutines call Connect for the same key concurrently),
// queues outbound on a new Session built from cfg, and runs it to
// completion.
func (d *Dialer) Connect(ctx context.Context, key string, open func() (transport.Transport, error), cfg SessionConfig, outbound []*Outbound, opts ...Option) (*Report, error) {
	t, err := d.pool.Get(ctx, key, open)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrTransport, key, err)
	}
	defer d.pool.Evict(key)

	sess, err := NewSession(openedTransport{t}, cfg, opts...)
	if err != nil {
		return nil, err
	}
	for _, o := range outbound {
		sess.Queue(o)
	}
	return sess.Connect(ctx)
}

// openedTransport makes Session.Connect's own Open call a no-op: the pool
// already opened the underlying transport once via singleflight, and a
// second Open here would just repeat work Dialer already deduped.
type openedTransport struct{ transport.Transport }

func (openedTransport) Open(context.Context) error { return nil }
