package message_test

import (
	"bytes"
	"testing"

	"github.com/mickamy/boltstream/chunk"
	"github.com/mickamy/boltstream/message"
	"github.com/mickamy/boltstream/packstream"
)

func TestWriteReadRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  message.Message
	}{
		{"init", message.Init("boltstream/1.0", packstream.Map{
			{Key: "scheme", Value: packstream.String("basic")},
			{Key: "principal", Value: packstream.String("u")},
			{Key: "credentials", Value: packstream.String("p")},
		})},
		{"run", message.Run("RETURN 1", packstream.Map{})},
		{"pull_all", message.PullAll()},
		{"discard_all", message.DiscardAll()},
		{"reset", message.Reset()},
		{"ack_failure", message.AckFailure()},
		{"success", message.Success(packstream.Map{{Key: "server", Value: packstream.String("Neo4j/3.0.0")}})},
		{"record", message.Record([]packstream.Value{packstream.Int(1)})},
		{"ignored", message.Ignored()},
		{"failure", message.Failure("Neo.ClientError.Statement.SyntaxError", "bad statement")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			w := message.NewWriter(chunk.NewOutput(&buf))
			if err := w.Write(tt.msg); err != nil {
				t.Fatalf("Write: %v", err)
			}

			r := message.NewReader(chunk.NewInput(&buf))
			got, err := r.Read()
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if got.Signature != tt.msg.Signature {
				t.Fatalf("signature = %s, want %s", got.Signature, tt.msg.Signature)
			}
			if len(got.Fields) != len(tt.msg.Fields) {
				t.Fatalf("field count = %d, want %d", len(got.Fields), len(tt.msg.Fields))
			}
			for i := range got.Fields {
				if !got.Fields[i].Equal(tt.msg.Fields[i]) {
					t.Fatalf("field %d = %+v, want %+v", i, got.Fields[i], tt.msg.Fields[i])
				}
			}
		})
	}
}

func TestFailureMetaFields(t *testing.T) {
	t.Parallel()

	m := message.Failure("Neo.ClientError.Statement.SyntaxError", "bad statement")
	code, msg, ok := m.FailureCode()
	if !ok {
		t.Fatal("FailureCode: ok = false")
	}
	if code != "Neo.ClientError.Statement.SyntaxError" || msg != "bad statement" {
		t.Fatalf("FailureCode = (%q, %q)", code, msg)
	}
}

func TestFromValueRejectsUnknownSignature(t *testing.T) {
	t.Parallel()

	_, err := message.FromValue(packstream.StructValue(packstream.Struct{Signature: 0x99}))
	if err == nil {
		t.Fatal("expected error for unknown signature")
	}
}

type recordingHandler struct {
	successes [][]string
	records   int
	failures  []string
	ignored   int
}

func (h *recordingHandler) OnSuccess(meta packstream.Map) error {
	h.successes = append(h.successes, nil)
	return nil
}
func (h *recordingHandler) OnRecord(fields []packstream.Value) error { h.records++; return nil }
func (h *recordingHandler) OnFailure(code, msg string) error {
	h.failures = append(h.failures, code)
	return nil
}
func (h *recordingHandler) OnIgnored() error { h.ignored++; return nil }

func TestDispatchRoutesBySignature(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := message.NewWriter(chunk.NewOutput(&buf))
	for _, m := range []message.Message{
		message.Success(packstream.Map{}),
		message.Record([]packstream.Value{packstream.Int(1)}),
		message.Ignored(),
		message.Failure("Neo.ClientError.Request.Invalid", "bad"),
	} {
		if err := w.Write(m); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	r := message.NewReader(chunk.NewInput(&buf))
	h := &recordingHandler{}
	for i := 0; i < 4; i++ {
		if err := message.Dispatch(r, h); err != nil {
			t.Fatalf("Dispatch %d: %v", i, err)
		}
	}
	if len(h.successes) != 1 || h.records != 1 || h.ignored != 1 || len(h.failures) != 1 {
		t.Fatalf("unexpected dispatch counts: %+v", h)
	}
}
