package transport

import (
	"fmt"
	"net"
	"time"
)

// TCPDialer dials plain, unencrypted TCP connections.
type TCPDialer struct {
	KeepAlive time.Duration
}

// NewTCPDialer returns a TCPDialer with a 30s keepalive, matching the
// default net.Dialer behaviour.
func NewTCPDialer() *TCPDialer {
	return &TCPDialer{KeepAlive: 30 * time.Second}
}

func (d *TCPDialer) Dial(addr string, timeout time.Duration) (Channel, error) {
	dialer := net.Dialer{
		Timeout:   timeout,
		KeepAlive: d.KeepAlive,
	}
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	return conn, nil
}
