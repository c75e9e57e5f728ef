package failure_test

import (
	"testing"

	"github.com/mickamy/boltstream/failure"
)

func TestClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code string
		want string
	}{
		{"Neo.ClientError.Request.Invalid", "ClientError"},
		{"Neo.ClientError.Statement.SyntaxError", "ClientError"},
		{"Neo.TransientError.Transaction.DeadlockDetected", "TransientError"},
		{"Neo.DatabaseError.General.UnknownFailure", "DatabaseError"},
		{"malformed", ""},
	}
	for _, tt := range tests {
		sf := &failure.ServerFailure{Code: tt.code}
		if got := sf.Classification(); got != tt.want {
			t.Errorf("Classification(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestIsProtocolViolation(t *testing.T) {
	t.Parallel()

	sf := &failure.ServerFailure{Code: "Neo.ClientError.Request.Invalid"}
	if !sf.IsProtocolViolation() {
		t.Fatal("expected Request.* to be a protocol violation")
	}
	sf = &failure.ServerFailure{Code: "Neo.ClientError.Statement.SyntaxError"}
	if sf.IsProtocolViolation() {
		t.Fatal("expected a non-Request ClientError not to be a protocol violation")
	}
}

func TestIsUnrecoverable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code string
		want bool
	}{
		{"Neo.ClientError.Request.Invalid", true},
		{"Neo.ClientError.Statement.SyntaxError", false},
		{"Neo.TransientError.Transaction.DeadlockDetected", false},
		{"Neo.DatabaseError.General.UnknownFailure", true},
	}
	for _, tt := range tests {
		sf := &failure.ServerFailure{Code: tt.code}
		if got := sf.IsUnrecoverable(); got != tt.want {
			t.Errorf("IsUnrecoverable(%q) = %v, want %v", tt.code, got, tt.want)
		}
		if got := sf.IsRecoverable(); got != !tt.want {
			t.Errorf("IsRecoverable(%q) = %v, want %v", tt.code, got, !tt.want)
		}
	}
}
