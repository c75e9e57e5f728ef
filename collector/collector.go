// Package collector implements the per-request callback contract
// (§3, §4.5 of spec.md): each queued request gets one Collector that
// receives zero or more records followed by exactly one terminal
// response, and a FIFO Handler that routes decoded messages to the
// head of an in-flight queue.
package collector

import "github.com/mickamy/boltstream/packstream"

// Collector receives the streamed response to a single queued request.
// Exactly one of OnSuccess/OnFailure/OnIgnored is called, optionally
// preceded by any number of OnRecord calls (only for RUN/PULL_ALL).
// OnComplete always runs last, after the terminal callback, whether or
// not the request reached the server.
type Collector interface {
	OnRecord(fields []packstream.Value)
	OnSuccess(meta packstream.Map)
	OnFailure(code, msg string)
	OnIgnored()
	OnComplete()
}

// Event is a lightweight summary of one collector's outcome, used by
// the tui package to drive a live traffic view without coupling it to
// a specific Collector implementation.
type Event struct {
	Request  string
	Records  int
	Meta     packstream.Map
	Code     string
	Message  string
	Ignored  bool
	Complete bool
}

// Func adapts five plain functions into a Collector, following the
// shape of a minimal anonymous listener — useful for RESET/ACK_FAILURE
// requests that only care about the terminal outcome.
type Func struct {
	Success  func(meta packstream.Map)
	Failure  func(code, msg string)
	Ignored_ func()
	Record   func(fields []packstream.Value)
	Complete func()
}

func (f Func) OnRecord(fields []packstream.Value) {
	if f.Record != nil {
		f.Record(fields)
	}
}

func (f Func) OnSuccess(meta packstream.Map) {
	if f.Success != nil {
		f.Success(meta)
	}
}

func (f Func) OnFailure(code, msg string) {
	if f.Failure != nil {
		f.Failure(code, msg)
	}
}

func (f Func) OnIgnored() {
	if f.Ignored_ != nil {
		f.Ignored_()
	}
}

func (f Func) OnComplete() {
	if f.Complete != nil {
		f.Complete()
	}
}

// NoOp is a Collector that discards every callback, used for requests
// whose outcome the caller doesn't need to observe (e.g. a fire-and-
// forget RESET issued purely to clear interrupt state).
var NoOp Collector = Func{}
