package pool

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mickamy/boltstream/collector"
	"github.com/mickamy/boltstream/failure"
	"github.com/mickamy/boltstream/packstream"
	"github.com/mickamy/boltstream/session"
)

// PooledConnection wraps a session.Connection borrowed from a Pool. It
// intercepts every delegated operation so a caught error can flag the
// connection for disposal and attempt recovery, per spec.md §4.6.
type PooledConnection struct {
	conn    *session.Connection
	address string
	release func(*PooledConnection)

	// OnError, if set, is invoked with the original error every time a
	// delegated operation fails.
	OnError func(error)

	unrecoverable bool
	lastUsed      time.Time
}

func newPooledConnection(conn *session.Connection, address string, release func(*PooledConnection)) *PooledConnection {
	return &PooledConnection{conn: conn, address: address, release: release, lastUsed: time.Now()}
}

// Unrecoverable reports whether this connection must be disposed
// rather than returned to the pool.
func (p *PooledConnection) Unrecoverable() bool { return p.unrecoverable }

// IdleTime is now minus the last time this connection completed an
// operation (or was released back to the pool).
func (p *PooledConnection) IdleTime() time.Duration { return time.Since(p.lastUsed) }

// ID exposes the underlying connection's identifier.
func (p *PooledConnection) ID() uuid.UUID { return p.conn.ID() }

func (p *PooledConnection) touch() { p.lastUsed = time.Now() }

// intercept runs op and, on error, performs the recovery sequence
// spec.md §4.6 describes: flag unrecoverable server failures, attempt
// an ACK_FAILURE for every other error unless ACK_FAILURE is muted,
// invoke OnError, and re-raise.
func (p *PooledConnection) intercept(op func() error) error {
	err := op()
	p.touch()
	if err == nil {
		return nil
	}

	var sf *failure.ServerFailure
	if isServerFailure(err, &sf) && sf.IsUnrecoverable() {
		p.unrecoverable = true
	} else if !p.conn.AckFailureMuted() {
		if ackErr := p.tryAckFailure(); ackErr != nil {
			err = fmt.Errorf("%w (ack_failure also failed: %v)", err, ackErr)
		}
	}

	if p.OnError != nil {
		p.OnError(err)
	}
	return err
}

func isServerFailure(err error, target **failure.ServerFailure) bool {
	sf, ok := err.(*failure.ServerFailure)
	if !ok {
		return false
	}
	*target = sf
	return true
}

func (p *PooledConnection) tryAckFailure() error {
	var ackErr error
	col := collector.Func{Failure: func(code, msg string) {
		ackErr = &failure.ServerFailure{Code: code, Message: msg}
	}}
	if err := p.conn.AckFailure(col); err != nil {
		return err
	}
	if err := p.conn.Sync(); err != nil {
		return err
	}
	return ackErr
}

// Run queues a Cypher statement for execution.
func (p *PooledConnection) Run(statement string, parameters packstream.Map, col collector.Collector) error {
	return p.intercept(func() error { return p.conn.Run(statement, parameters, col) })
}

// PullAll queues a request to stream all remaining records.
func (p *PooledConnection) PullAll(col collector.Collector) error {
	return p.intercept(func() error { return p.conn.PullAll(col) })
}

// DiscardAll queues a request to discard all remaining records.
func (p *PooledConnection) DiscardAll(col collector.Collector) error {
	return p.intercept(func() error { return p.conn.DiscardAll(col) })
}

// Reset interrupts the session and clears any failed state.
func (p *PooledConnection) Reset(col collector.Collector) error {
	return p.intercept(func() error { return p.conn.Reset(col) })
}

// Sync flushes queued requests and drains their responses.
func (p *PooledConnection) Sync() error {
	return p.intercept(func() error { return p.conn.Sync() })
}

// Close does not close the underlying session: it calls the
// pool-supplied release callback, which validates and either
// re-enqueues or disposes the connection.
func (p *PooledConnection) Close() {
	p.touch()
	p.release(p)
}

// Dispose closes the underlying session. Only the pool calls this,
// after validation decides a connection cannot be reused.
func (p *PooledConnection) Dispose() error {
	return p.conn.Close()
}
