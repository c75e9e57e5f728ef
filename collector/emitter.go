package collector

import "github.com/mickamy/boltstream/packstream"

// EventEmitter returns a Collector that accumulates one request's
// outcome and sends a summary Event to ch when it completes. request
// is the Cypher statement text (or a synthetic label for PULL_ALL/
// DISCARD_ALL/RESET) the tui package displays alongside the outcome.
//
// Sends are non-blocking: a full or unread channel drops the event
// rather than stalling the session that produced it.
func EventEmitter(ch chan<- Event, request string) Collector {
	e := &eventAccumulator{ch: ch, ev: Event{Request: request}}
	return e
}

type eventAccumulator struct {
	ch chan<- Event
	ev Event
}

func (a *eventAccumulator) OnRecord(fields []packstream.Value) {
	a.ev.Records++
}

func (a *eventAccumulator) OnSuccess(meta packstream.Map) {
	a.ev.Meta = meta
}

func (a *eventAccumulator) OnFailure(code, msg string) {
	a.ev.Code = code
	a.ev.Message = msg
}

func (a *eventAccumulator) OnIgnored() {
	a.ev.Ignored = true
}

func (a *eventAccumulator) OnComplete() {
	a.ev.Complete = true
	select {
	case a.ch <- a.ev:
	default:
	}
}
