// Package session implements the Bolt/1 protocol session: handshake,
// pipelined request queueing, and the FIFO response dispatch that
// pairs each queued request to its collector (spec.md §4.4).
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mickamy/boltstream/chunk"
	"github.com/mickamy/boltstream/collector"
	"github.com/mickamy/boltstream/failure"
	"github.com/mickamy/boltstream/message"
	"github.com/mickamy/boltstream/packstream"
	"github.com/mickamy/boltstream/transport"
)

// pending pairs a queued message with the collector that will receive
// its response.
type pending struct {
	msg Message
	c   collector.Collector
}

// Message is a re-export so callers don't need to import the message
// package just to hand a request to Connection.
type Message = message.Message

// Connection is a single Bolt/1 protocol session: SocketConnection in
// spec.md §4.4. It is not safe for concurrent or reentrant use; guard
// enforces that at Init, Run, PullAll, DiscardAll, AckFailure, Reset
// and Sync. Flush, ReceiveOne, ClearError, SetAckFailureMuted, Close
// and the read-only accessors are not guarded.
type Connection struct {
	id uuid.UUID

	ch     transport.Channel
	writer *message.Writer
	reader *message.Reader
	resp   *collector.Handler

	guard guard

	state       State
	interrupted bool
	ackMuted    bool
	lastUsed    time.Time

	queue []pending

	// ServerInfo is populated from the INIT response's meta once Init
	// has completed.
	ServerInfo packstream.Map
}

// Dial opens a transport channel, performs the handshake, and returns
// an un-initialized Connection. Callers must call Init before issuing
// any other request.
func Dial(dialer transport.Dialer, addr string, connectTimeout time.Duration) (*Connection, error) {
	ch, err := dialer.Dial(addr, connectTimeout)
	if err != nil {
		return nil, &CannotConnectError{Address: addr, Cause: err}
	}
	if _, err := handshake(ch, addr); err != nil {
		_ = ch.Close()
		return nil, err
	}

	out := chunk.NewOutput(ch)
	in := chunk.NewInput(ch)
	return &Connection{
		id:       uuid.New(),
		ch:       ch,
		writer:   message.NewWriter(out),
		reader:   message.NewReader(in),
		resp:     collector.NewHandler(),
		state:    StateIdle,
		lastUsed: time.Now(),
	}, nil
}

// ID identifies this connection for logging and pool bookkeeping.
func (c *Connection) ID() uuid.UUID { return c.id }

// State reports the current protocol state machine state.
func (c *Connection) State() State { return c.state }

// IdleTime returns how long this connection has sat unused since its
// last completed operation.
func (c *Connection) IdleTime() time.Duration { return time.Since(c.lastUsed) }

// Init sends INIT and synchronously waits for its response, capturing
// the server identification string into ServerInfo. spec.md §4.4:
// INIT is the one request that is not pipelined.
func (c *Connection) Init(clientName string, authToken packstream.Map) error {
	if err := c.guard.enter(); err != nil {
		return err
	}
	defer c.guard.leave()

	var meta packstream.Map
	var initErr error
	col := collector.Func{
		Success: func(m packstream.Map) { meta = m },
		Failure: func(code, msg string) { initErr = &failure.ServerFailure{Code: code, Message: msg} },
	}
	c.enqueue(message.Init(clientName, authToken), col)
	if err := c.sync(); err != nil {
		return err
	}
	if initErr != nil {
		return initErr
	}
	c.ServerInfo = meta
	return nil
}

// Run queues a RUN request and its collector without blocking.
func (c *Connection) Run(statement string, parameters packstream.Map, col collector.Collector) error {
	if err := c.guard.enter(); err != nil {
		return err
	}
	defer c.guard.leave()
	return c.queueOp(message.Run(statement, parameters), col)
}

// PullAll queues a PULL_ALL request.
func (c *Connection) PullAll(col collector.Collector) error {
	if err := c.guard.enter(); err != nil {
		return err
	}
	defer c.guard.leave()
	return c.queueOp(message.PullAll(), col)
}

// DiscardAll queues a DISCARD_ALL request.
func (c *Connection) DiscardAll(col collector.Collector) error {
	if err := c.guard.enter(); err != nil {
		return err
	}
	defer c.guard.leave()
	return c.queueOp(message.DiscardAll(), col)
}

// AckFailure queues an ACK_FAILURE request, clearing Failed state and
// the stored server failure once its SUCCESS arrives (otherwise
// ReceiveOne would keep observing the stale failure on every later
// receive and never let the session leave Failed).
func (c *Connection) AckFailure(col collector.Collector) error {
	if err := c.guard.enter(); err != nil {
		return err
	}
	defer c.guard.leave()
	return c.queueOp(message.AckFailure(), collector.Func{
		Success: func(m packstream.Map) {
			c.resp.ClearError()
			c.state = StateIdle
			if col != nil {
				col.OnSuccess(m)
			}
		},
		Failure: func(code, msg string) {
			if col != nil {
				col.OnFailure(code, msg)
			}
		},
		Ignored_: func() {
			if col != nil {
				col.OnIgnored()
			}
		},
		Complete: func() {
			if col != nil {
				col.OnComplete()
			}
		},
	})
}

// Reset sends RESET. Unlike the other operations it is not merely
// queued: per spec.md §4.4, reset_async drains the pending queue first
// (each throwing to its collector) and moves the session straight to
// Interrupted, then RESET itself is queued and flushed.
func (c *Connection) Reset(col collector.Collector) error {
	if err := c.guard.enter(); err != nil {
		return err
	}
	defer c.guard.leave()

	c.drainInterrupted()
	c.interrupted = true
	c.state = StateInterrupted
	c.enqueue(message.Reset(), collector.Func{
		Success: func(packstream.Map) {
			c.interrupted = false
			c.ackMuted = false
			c.resp.ClearError()
			c.state = StateIdle
			if col != nil {
				col.OnSuccess(packstream.Map{})
			}
		},
		Failure: func(code, msg string) {
			if col != nil {
				col.OnFailure(code, msg)
			}
		},
		Ignored_: func() {
			if col != nil {
				col.OnIgnored()
			}
		},
		Complete: func() {
			if col != nil {
				col.OnComplete()
			}
		},
	})
	return c.sync()
}

// queueOp rejects new requests while Failed (mirroring the server's
// own IGNORED behaviour locally for everything except ACK_FAILURE and
// RESET; AckFailure passes through queueOp, Reset bypasses it and
// enqueues directly).
func (c *Connection) queueOp(m message.Message, col collector.Collector) error {
	if c.state == StateFailed && m.Signature != message.SigAckFailure && m.Signature != message.SigReset {
		sf := c.resp.ServerFailureOccurred()
		return fmt.Errorf("session: connection is in a failed state awaiting ACK_FAILURE/RESET: %v", sf)
	}
	c.enqueue(m, col)
	return nil
}

func (c *Connection) enqueue(m message.Message, col collector.Collector) {
	if col == nil {
		col = collector.NoOp
	}
	c.queue = append(c.queue, pending{msg: m, c: col})
	c.state = StatePending
}

// drainInterrupted empties the pending queue, synchronously throwing
// an interruption to each collector without a round trip: they were
// queued locally and will never be answered now that RESET supersedes
// them.
func (c *Connection) drainInterrupted() {
	for _, p := range c.queue {
		p.c.OnFailure("", "session was interrupted before this request was sent")
		p.c.OnComplete()
	}
	c.queue = c.queue[:0]
}

// Flush writes every queued message to the wire in FIFO order and
// clears the local queue; it does not wait for responses.
func (c *Connection) Flush() error {
	for _, p := range c.queue {
		c.resp.Enqueue(p.c)
		if err := c.writer.Write(p.msg); err != nil {
			return fmt.Errorf("session: flush: %w", err)
		}
	}
	c.queue = c.queue[:0]
	return nil
}

// ReceiveOne reads exactly one server message and dispatches it to the
// response handler, updating the state machine as described in
// spec.md §4.4.
func (c *Connection) ReceiveOne() error {
	if err := message.Dispatch(c.reader, c.resp); err != nil {
		return fmt.Errorf("session: receive: %w", err)
	}
	if sf := c.resp.ServerFailureOccurred(); sf != nil {
		c.state = StateFailed
	} else if c.resp.Pending() == 0 && c.state == StatePending {
		c.state = StateIdle
	}
	return nil
}

// sync is flush() + drain all pending collectors, per spec.md §4.4.
func (c *Connection) sync() error {
	if err := c.Flush(); err != nil {
		return err
	}
	for c.resp.Pending() > 0 {
		if err := c.ReceiveOne(); err != nil {
			return err
		}
	}
	c.lastUsed = time.Now()
	if sf := c.resp.ServerFailureOccurred(); sf != nil {
		return sf
	}
	return nil
}

// Sync is the public form of sync, exposed for pooled connections and
// callers that build up several pipelined requests before flushing.
func (c *Connection) Sync() error {
	if err := c.guard.enter(); err != nil {
		return err
	}
	defer c.guard.leave()
	return c.sync()
}

// ServerFailureOccurred exposes the response handler's stored failure,
// if any, for callers that want to inspect it without triggering the
// sync() error path.
func (c *Connection) ServerFailureOccurred() *failure.ServerFailure {
	return c.resp.ServerFailureOccurred()
}

// ClearError clears a stored server failure, called after a successful
// ACK_FAILURE or RESET.
func (c *Connection) ClearError() {
	c.resp.ClearError()
	if c.state == StateFailed {
		c.state = StateIdle
	}
}

// AckFailureMuted reports whether automatic ACK_FAILURE (issued by a
// PooledConnection wrapper) is currently suppressed.
func (c *Connection) AckFailureMuted() bool { return c.ackMuted }

// SetAckFailureMuted toggles automatic ACK_FAILURE suppression.
func (c *Connection) SetAckFailureMuted(muted bool) { c.ackMuted = muted }

// Close closes the underlying channel. It does not attempt graceful
// protocol shutdown; Bolt/1 has none.
func (c *Connection) Close() error {
	return c.ch.Close()
}

// CannotConnectError wraps a transport-level dial failure, per
// spec.md §4.4's handshake rules.
type CannotConnectError struct {
	Address string
	Cause   error
}

func (e *CannotConnectError) Error() string {
	return fmt.Sprintf("session: cannot connect to %s: %v", e.Address, e.Cause)
}

func (e *CannotConnectError) Unwrap() error { return e.Cause }
