package collector

import (
	"fmt"
	"sync"

	"github.com/mickamy/boltstream/failure"
	"github.com/mickamy/boltstream/packstream"
)

// Handler maintains the FIFO of collectors for in-flight requests and
// routes decoded server messages to the head of that queue, per
// spec.md §4.5. It satisfies message.Handler.
type Handler struct {
	mu    sync.Mutex
	queue []Collector

	lastFailure       *failure.ServerFailure
	protocolViolation bool
}

// NewHandler returns an empty Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Enqueue appends c to the tail of the FIFO, atomically pairing it
// with the request that is about to be sent. This is the central
// invariant spec.md §9 calls out: enqueue happens at the point the
// message is queued for send, not when its response arrives.
func (h *Handler) Enqueue(c Collector) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queue = append(h.queue, c)
}

// Pending returns the number of collectors still awaiting a terminal
// response.
func (h *Handler) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

func (h *Handler) head() (Collector, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.queue) == 0 {
		return nil, fmt.Errorf("collector: received a response with no collector queued (protocol desync)")
	}
	return h.queue[0], nil
}

func (h *Handler) pop() Collector {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := h.queue[0]
	h.queue = h.queue[1:]
	return c
}

// OnRecord delivers RECORD fields to the head collector without
// popping it — records may arrive any number of times before the
// terminal response for RUN/PULL_ALL.
func (h *Handler) OnRecord(fields []packstream.Value) error {
	c, err := h.head()
	if err != nil {
		return err
	}
	c.OnRecord(fields)
	return nil
}

// OnSuccess pops the head collector and delivers the terminal success.
func (h *Handler) OnSuccess(meta packstream.Map) error {
	if _, err := h.head(); err != nil {
		return err
	}
	c := h.pop()
	c.OnSuccess(meta)
	c.OnComplete()
	return nil
}

// OnFailure pops the head collector, delivers the terminal failure,
// and records it so the session can surface it after the receive loop
// (spec.md §4.5, §7).
func (h *Handler) OnFailure(code, msg string) error {
	if _, err := h.head(); err != nil {
		return err
	}
	c := h.pop()
	sf := &failure.ServerFailure{Code: code, Message: msg}

	h.mu.Lock()
	h.lastFailure = sf
	if sf.IsProtocolViolation() {
		h.protocolViolation = true
	}
	h.mu.Unlock()

	c.OnFailure(code, msg)
	c.OnComplete()
	return nil
}

// OnIgnored pops the head collector and delivers the terminal ignored
// outcome (the server IGNOREs requests queued behind an unacknowledged
// FAILURE).
func (h *Handler) OnIgnored() error {
	if _, err := h.head(); err != nil {
		return err
	}
	c := h.pop()
	c.OnIgnored()
	c.OnComplete()
	return nil
}

// ServerFailureOccurred returns the most recently stored FAILURE, if
// any has not been cleared by ClearError.
func (h *Handler) ServerFailureOccurred() *failure.ServerFailure {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastFailure
}

// ProtocolViolationErrorOccurred reports whether the stored failure
// (if any) was a protocol violation.
func (h *Handler) ProtocolViolationErrorOccurred() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.protocolViolation
}

// ClearError clears the stored failure, called after a successful
// ACK_FAILURE or RESET.
func (h *Handler) ClearError() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastFailure = nil
	h.protocolViolation = false
}
