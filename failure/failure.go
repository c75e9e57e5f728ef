// Package failure classifies Bolt/1 server failure codes
// ("Neo.<classification>.<category>.<title>") into the recoverability
// rules spec.md §7 defines.
package failure

import "strings"

// ServerFailure is a typed server-originated error carrying the code
// and message from a FAILURE message's meta map.
type ServerFailure struct {
	Code    string
	Message string
}

func (e *ServerFailure) Error() string {
	return "server failure: [" + e.Code + "] " + e.Message
}

// classification returns the dot-separated second segment of code,
// e.g. "ClientError" from "Neo.ClientError.Statement.SyntaxError".
func classification(code string) string {
	parts := strings.SplitN(code, ".", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// Classification returns the code's "Neo.<classification>.*" segment
// verbatim, e.g. "ClientError" or "TransientError". Callers that need
// to distinguish ClientError from TransientError (spec.md §7's
// ClientException/TransientException split) should branch on this
// rather than on IsRecoverable, which collapses both into one bucket.
func (e *ServerFailure) Classification() string {
	return classification(e.Code)
}

// IsProtocolViolation reports whether code begins with
// "Neo.ClientError.Request", per spec.md §6.
func (e *ServerFailure) IsProtocolViolation() bool {
	return strings.HasPrefix(e.Code, "Neo.ClientError.Request")
}

// IsUnrecoverable reports whether the session/connection must be
// disposed after this failure: any code outside {ClientError,
// TransientError}, or any protocol violation.
func (e *ServerFailure) IsUnrecoverable() bool {
	if e.IsProtocolViolation() {
		return true
	}
	switch classification(e.Code) {
	case "ClientError", "TransientError":
		return false
	default:
		return true
	}
}

// IsRecoverable is the negation of IsUnrecoverable, kept as a separate
// method since callers read more naturally with one name or the other.
func (e *ServerFailure) IsRecoverable() bool {
	return !e.IsUnrecoverable()
}
