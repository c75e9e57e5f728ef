// Package transport supplies the duplex byte channel a session speaks
// over. spec.md §1 keeps the protocol layer ignorant of TCP/TLS
// details; Channel is the seam that lets session dial either.
package transport

import (
	"io"
	"net"
	"time"
)

// Channel is a duplex byte stream with deadline control, satisfied by
// both *net.TCPConn and *tls.Conn.
type Channel interface {
	io.Reader
	io.Writer
	io.Closer
	SetDeadline(t time.Time) error
}

// Dialer opens a Channel to addr. TCPDialer and TLSDialer implement it;
// session.Connection depends only on this interface so it never
// branches on transport kind.
type Dialer interface {
	Dial(addr string, timeout time.Duration) (Channel, error)
}

var _ Channel = (net.Conn)(nil)
