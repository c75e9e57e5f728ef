// Package message implements the Bolt/1 message catalogue: ten
// request/response structures, each a PackStream Struct identified by
// a fixed one-byte signature.
package message

import "github.com/mickamy/boltstream/packstream"

// Signature identifies one of the ten Bolt/1 message types.
type Signature byte

const (
	SigInit       Signature = 0x01
	SigRun        Signature = 0x10
	SigDiscardAll Signature = 0x2F
	SigPullAll    Signature = 0x3F
	SigAckFailure Signature = 0x0E
	SigReset      Signature = 0x0F

	SigSuccess Signature = 0x70
	SigRecord  Signature = 0x71
	SigIgnored Signature = 0x7E
	SigFailure Signature = 0x7F
)

func (s Signature) String() string {
	switch s {
	case SigInit:
		return "INIT"
	case SigRun:
		return "RUN"
	case SigDiscardAll:
		return "DISCARD_ALL"
	case SigPullAll:
		return "PULL_ALL"
	case SigAckFailure:
		return "ACK_FAILURE"
	case SigReset:
		return "RESET"
	case SigSuccess:
		return "SUCCESS"
	case SigRecord:
		return "RECORD"
	case SigIgnored:
		return "IGNORED"
	case SigFailure:
		return "FAILURE"
	default:
		return "UNKNOWN"
	}
}

// Message is any of the ten Bolt/1 structures, reduced to its
// signature and PackStream fields.
type Message struct {
	Signature Signature
	Fields    []packstream.Value
}

// Init builds an INIT(client_name, auth_token) request.
func Init(clientName string, authToken packstream.Map) Message {
	return Message{
		Signature: SigInit,
		Fields:    []packstream.Value{packstream.String(clientName), packstream.MapValue(authToken)},
	}
}

// Run builds a RUN(statement, parameters) request.
func Run(statement string, parameters packstream.Map) Message {
	return Message{
		Signature: SigRun,
		Fields:    []packstream.Value{packstream.String(statement), packstream.MapValue(parameters)},
	}
}

// DiscardAll builds a DISCARD_ALL request (no fields).
func DiscardAll() Message { return Message{Signature: SigDiscardAll} }

// PullAll builds a PULL_ALL request (no fields).
func PullAll() Message { return Message{Signature: SigPullAll} }

// AckFailure builds an ACK_FAILURE request (no fields).
func AckFailure() Message { return Message{Signature: SigAckFailure} }

// Reset builds a RESET request (no fields).
func Reset() Message { return Message{Signature: SigReset} }

// Success builds a SUCCESS(meta) response.
func Success(meta packstream.Map) Message {
	return Message{Signature: SigSuccess, Fields: []packstream.Value{packstream.MapValue(meta)}}
}

// Record builds a RECORD(fields) response.
func Record(fields []packstream.Value) Message {
	return Message{Signature: SigRecord, Fields: []packstream.Value{packstream.List(fields...)}}
}

// Ignored builds an IGNORED response (no fields).
func Ignored() Message { return Message{Signature: SigIgnored} }

// Failure builds a FAILURE(meta) response; meta carries "code" and
// "message" string entries.
func Failure(code, msg string) Message {
	meta := packstream.Map{
		{Key: "code", Value: packstream.String(code)},
		{Key: "message", Value: packstream.String(msg)},
	}
	return Message{Signature: SigFailure, Fields: []packstream.Value{packstream.MapValue(meta)}}
}

// Meta returns the single Map field carried by SUCCESS/FAILURE
// messages, or ok=false if the message doesn't have that shape.
func (m Message) Meta() (packstream.Map, bool) {
	if len(m.Fields) != 1 || m.Fields[0].Kind != packstream.KindMap {
		return nil, false
	}
	return m.Fields[0].Map, true
}

// RecordFields returns the field list carried by a RECORD message, or
// ok=false if the message doesn't have that shape.
func (m Message) RecordFields() ([]packstream.Value, bool) {
	if m.Signature != SigRecord || len(m.Fields) != 1 || m.Fields[0].Kind != packstream.KindList {
		return nil, false
	}
	return m.Fields[0].List, true
}

// FailureCode returns the "code"/"message" pair from a FAILURE
// message's meta map.
func (m Message) FailureCode() (code, msg string, ok bool) {
	meta, isMeta := m.Meta()
	if !isMeta || m.Signature != SigFailure {
		return "", "", false
	}
	codeVal, hasCode := meta.Get("code")
	msgVal, hasMsg := meta.Get("message")
	if !hasCode || !hasMsg {
		return "", "", false
	}
	return codeVal.String, msgVal.String, true
}

// ToValue converts a Message to the Struct Value the codec packs.
func (m Message) ToValue() packstream.Value {
	return packstream.StructValue(packstream.Struct{Signature: byte(m.Signature), Fields: m.Fields})
}

// FromValue converts a decoded Struct Value back into a Message.
// InvalidStructureSignatureError is returned for bytes not in the
// ten-message catalogue.
func FromValue(v packstream.Value) (Message, error) {
	if v.Kind != packstream.KindStruct {
		return Message{}, &InvalidStructSizeError{Reason: "expected a PackStream structure"}
	}
	sig := Signature(v.Struct.Signature)
	switch sig {
	case SigInit, SigRun, SigDiscardAll, SigPullAll, SigAckFailure, SigReset,
		SigSuccess, SigRecord, SigIgnored, SigFailure:
		return Message{Signature: sig, Fields: v.Struct.Fields}, nil
	default:
		return Message{}, &InvalidStructureSignatureError{Signature: v.Struct.Signature}
	}
}
