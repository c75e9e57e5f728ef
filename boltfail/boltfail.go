// Package boltfail maps every internal error this module can produce
// into exactly one of four user-facing exception kinds, applied once
// at the public API surface (spec.md §7, §9(b)).
package boltfail

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/mickamy/boltstream/failure"
	"github.com/mickamy/boltstream/session"
)

// Kind identifies one of the four exported exception categories.
type Kind int

const (
	// ServiceUnavailable covers transport and connect-time failures:
	// the server could not be reached or the connection died mid-use.
	ServiceUnavailable Kind = iota
	// Client covers protocol desync, codec errors, and caller misuse —
	// errors a retry against the same server cannot fix.
	Client
	// Transient covers recoverable server failures the caller may
	// retry, typically after backing off.
	Transient
	// Database covers unrecoverable server-side failures outside the
	// ClientError/TransientError classifications.
	Database
)

func (k Kind) String() string {
	switch k {
	case ServiceUnavailable:
		return "ServiceUnavailableException"
	case Client:
		return "ClientException"
	case Transient:
		return "TransientException"
	case Database:
		return "DatabaseException"
	default:
		return "UnknownException"
	}
}

// PublicException is the single exported error type this module's
// public API surface returns. It carries the original internal error
// and the Kind it was classified as.
type PublicException struct {
	Kind Kind
	Err  error
}

func (e *PublicException) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *PublicException) Unwrap() error { return e.Err }

// Wrap classifies err into a PublicException. It is total: every error
// this module can produce maps to exactly one Kind, and anything
// unrecognized falls through to Client rather than surfacing an
// unimplemented-mapping branch.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var alreadyWrapped *PublicException
	if errors.As(err, &alreadyWrapped) {
		return err
	}

	var sf *failure.ServerFailure
	if errors.As(err, &sf) {
		if sf.IsProtocolViolation() {
			return &PublicException{Kind: Client, Err: err}
		}
		switch sf.Classification() {
		case "ClientError":
			return &PublicException{Kind: Client, Err: err}
		case "TransientError":
			return &PublicException{Kind: Transient, Err: err}
		default:
			return &PublicException{Kind: Database, Err: err}
		}
	}

	var connErr *session.CannotConnectError
	if errors.As(err, &connErr) {
		return &PublicException{Kind: ServiceUnavailable, Err: err}
	}

	var hsErr *session.HandshakeError
	if errors.As(err, &hsErr) {
		return &PublicException{Kind: ServiceUnavailable, Err: err}
	}

	if isTransportError(err) {
		return &PublicException{Kind: ServiceUnavailable, Err: err}
	}

	// Codec errors, protocol desync, and plain caller misuse (reentrant
	// session use, pool-terminated, pool-full) all land here: none of
	// them are recoverable by retrying, and none originate server-side.
	return &PublicException{Kind: Client, Err: err}
}

// isTransportError reports whether err originates from net.Conn I/O:
// closed connections, resets, and timeouts.
func isTransportError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
