// Package pool implements the Bolt/1 connection pool: a bounded
// per-address FIFO of validated, idle connections shared across many
// goroutines (spec.md §4.7).
package pool

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/mickamy/boltstream/collector"
	"github.com/mickamy/boltstream/failure"
	"github.com/mickamy/boltstream/metrics"
	"github.com/mickamy/boltstream/session"
)

// Connector creates and initializes a brand new connection to addr:
// dial, handshake, and INIT. The pool calls it only when under
// MaxSessions capacity for that address.
type Connector interface {
	Connect(ctx context.Context, addr string) (*session.Connection, error)
}

// ConnectorFunc adapts a plain function to a Connector.
type ConnectorFunc func(ctx context.Context, addr string) (*session.Connection, error)

func (f ConnectorFunc) Connect(ctx context.Context, addr string) (*session.Connection, error) {
	return f(ctx, addr)
}

// ErrPoolFull is returned by Acquire when AcquireTimeout elapses while
// waiting for capacity.
var ErrPoolFull = fmt.Errorf("pool: acquire timed out, pool is at capacity")

// ErrTerminated is returned by Acquire once Close has run; a release
// after Close disposes the connection instead.
var ErrTerminated = fmt.Errorf("pool: pool has been closed")

type addressPool struct {
	sem    *semaphore.Weighted // one unit per live connection slot
	queue  []*PooledConnection // available, validated connections
	liveMu sync.Mutex
	live   int
}

// Pool is a connection pool keyed by server address.
type Pool struct {
	settings  Settings
	connector Connector

	mu        sync.Mutex
	pools     map[string]*addressPool
	terminated bool

	metrics *metrics.PoolMetrics
}

// New returns a Pool using connector to create new connections and
// settings to bound pool behavior.
func New(connector Connector, settings Settings) *Pool {
	return &Pool{
		settings:  settings,
		connector: connector,
		pools:     make(map[string]*addressPool),
		metrics:   metrics.NewPoolMetrics(),
	}
}

// Metrics exposes the pool's Prometheus collectors for registration by
// the embedding application. Safe to ignore if metrics aren't needed.
func (p *Pool) Metrics() *metrics.PoolMetrics { return p.metrics }

func (p *Pool) addressPoolFor(addr string) *addressPool {
	p.mu.Lock()
	defer p.mu.Unlock()
	ap, ok := p.pools[addr]
	if !ok {
		ap = &addressPool{sem: semaphore.NewWeighted(int64(p.settings.MaxSessions))}
		p.pools[addr] = ap
	}
	return ap
}

// Acquire returns a validated connection to addr, creating one if
// under capacity, reusing a queued one if available, or blocking up to
// AcquireTimeout if at capacity.
func (p *Pool) Acquire(ctx context.Context, addr string) (*PooledConnection, error) {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return nil, ErrTerminated
	}
	p.mu.Unlock()

	ap := p.addressPoolFor(addr)

	if pc, ok := ap.dequeue(); ok {
		p.metrics.RecordAcquire(addr)
		p.metrics.SetAvailable(addr, ap.available())
		return pc, nil
	}

	acquireCtx, cancel := context.WithTimeout(ctx, p.settings.AcquireTimeout)
	defer cancel()
	if err := ap.sem.Acquire(acquireCtx, 1); err != nil {
		return nil, ErrPoolFull
	}

	connectCtx, connectCancel := context.WithTimeout(ctx, p.settings.ConnectionTimeout)
	defer connectCancel()
	conn, err := p.connector.Connect(connectCtx, addr)
	if err != nil {
		ap.sem.Release(1)
		return nil, fmt.Errorf("pool: connect %s: %w", addr, err)
	}

	ap.liveMu.Lock()
	ap.live++
	ap.liveMu.Unlock()

	p.metrics.RecordAcquire(addr)
	p.metrics.SetLive(addr, ap.liveCount())
	return newPooledConnection(conn, addr, p.release), nil
}

// release is the callback PooledConnection.Close invokes: it validates
// the connection and either re-enqueues or disposes it.
func (p *Pool) release(pc *PooledConnection) {
	p.mu.Lock()
	terminated := p.terminated
	p.mu.Unlock()

	ap := p.addressPoolFor(pc.address)

	if terminated {
		p.dispose(ap, pc)
		return
	}

	if !p.validate(ap, pc) {
		p.dispose(ap, pc)
		return
	}

	if !ap.enqueue(pc, int(p.settings.MaxSessions)) {
		p.dispose(ap, pc)
		return
	}
	p.metrics.SetAvailable(pc.address, ap.available())
}

// validate runs the re-enqueue-vs-dispose checks from spec.md §4.7.
func (p *Pool) validate(ap *addressPool, pc *PooledConnection) bool {
	if pc.Unrecoverable() {
		return false
	}
	if pc.IdleTime() > p.settings.IdleTimeBeforeConnectionTest {
		if err := resetConnection(pc); err != nil {
			p.metrics.RecordValidationFailed(pc.address)
			return false
		}
		return true
	}
	if err := resetConnection(pc); err != nil {
		p.metrics.RecordValidationFailed(pc.address)
		return false
	}
	return true
}

// resetConnection sends RESET and reports whether it succeeded: an
// error from Reset itself (transport, codec, or the stored server
// failure sync() returns) or a FAILURE delivered to the RESET collector.
func resetConnection(pc *PooledConnection) error {
	var resetFailure error
	col := collector.Func{
		Failure: func(code, msg string) {
			resetFailure = &failure.ServerFailure{Code: code, Message: msg}
		},
	}
	if err := pc.Reset(col); err != nil {
		return err
	}
	return resetFailure
}

func (p *Pool) dispose(ap *addressPool, pc *PooledConnection) {
	_ = pc.Dispose()
	ap.liveMu.Lock()
	ap.live--
	ap.liveMu.Unlock()
	ap.sem.Release(1)
	p.metrics.RecordDisposed(pc.address)
	p.metrics.SetLive(pc.address, ap.liveCount())
}

// Close terminates the pool: subsequent Acquire calls fail, subsequent
// Release calls dispose, and every currently queued connection is
// disposed now.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.terminated = true
	pools := p.pools
	p.mu.Unlock()

	for addr, ap := range pools {
		for {
			pc, ok := ap.dequeue()
			if !ok {
				break
			}
			p.dispose(ap, pc)
		}
		p.metrics.SetAvailable(addr, ap.available())
	}
	return nil
}

func (ap *addressPool) dequeue() (*PooledConnection, bool) {
	ap.liveMu.Lock()
	defer ap.liveMu.Unlock()
	if len(ap.queue) == 0 {
		return nil, false
	}
	pc := ap.queue[0]
	ap.queue = ap.queue[1:]
	return pc, true
}

// enqueue appends pc to the tail if the queue has room under max;
// returns false if the queue is already full.
func (ap *addressPool) enqueue(pc *PooledConnection, max int) bool {
	ap.liveMu.Lock()
	defer ap.liveMu.Unlock()
	if len(ap.queue) >= max {
		return false
	}
	ap.queue = append(ap.queue, pc)
	return true
}

func (ap *addressPool) available() int {
	ap.liveMu.Lock()
	defer ap.liveMu.Unlock()
	return len(ap.queue)
}

func (ap *addressPool) liveCount() int {
	ap.liveMu.Lock()
	defer ap.liveMu.Unlock()
	return ap.live
}
