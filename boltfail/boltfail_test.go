package boltfail_test

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/mickamy/boltstream/boltfail"
	"github.com/mickamy/boltstream/failure"
	"github.com/mickamy/boltstream/session"
)

func TestWrapClassifiesServerFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code string
		want boltfail.Kind
	}{
		{"Neo.ClientError.Request.Invalid", boltfail.Client},
		{"Neo.ClientError.Statement.SyntaxError", boltfail.Client},
		{"Neo.TransientError.Transaction.DeadlockDetected", boltfail.Transient},
		{"Neo.DatabaseError.General.UnknownFailure", boltfail.Database},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			t.Parallel()
			sf := &failure.ServerFailure{Code: tt.code, Message: "x"}
			pe := boltfail.Wrap(sf)
			var pub *boltfail.PublicException
			if !errors.As(pe, &pub) {
				t.Fatalf("Wrap did not return a PublicException: %v", pe)
			}
			if pub.Kind != tt.want {
				t.Fatalf("Kind = %v, want %v", pub.Kind, tt.want)
			}
		})
	}
}

func TestWrapClassifiesCannotConnect(t *testing.T) {
	t.Parallel()

	err := &session.CannotConnectError{Address: "db:7687", Cause: io.EOF}
	pe := boltfail.Wrap(err)
	var pub *boltfail.PublicException
	if !errors.As(pe, &pub) {
		t.Fatalf("not a PublicException: %v", pe)
	}
	if pub.Kind != boltfail.ServiceUnavailable {
		t.Fatalf("Kind = %v, want ServiceUnavailable", pub.Kind)
	}
}

func TestWrapDefaultsUnrecognizedErrorsToClient(t *testing.T) {
	t.Parallel()

	pe := boltfail.Wrap(fmt.Errorf("chunk: read header: %w", io.ErrUnexpectedEOF))
	var pub *boltfail.PublicException
	if !errors.As(pe, &pub) {
		t.Fatalf("not a PublicException: %v", pe)
	}
	if pub.Kind != boltfail.Client {
		t.Fatalf("Kind = %v, want Client", pub.Kind)
	}
}

func TestWrapIsIdempotent(t *testing.T) {
	t.Parallel()

	once := boltfail.Wrap(&failure.ServerFailure{Code: "Neo.DatabaseError.General.UnknownFailure"})
	twice := boltfail.Wrap(once)
	if once != twice {
		t.Fatal("Wrap should return an already-wrapped PublicException unchanged")
	}
}

func TestWrapNilIsNil(t *testing.T) {
	t.Parallel()
	if boltfail.Wrap(nil) != nil {
		t.Fatal("Wrap(nil) must be nil")
	}
}
