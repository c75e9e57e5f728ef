package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"time"
)

// TLSDialer dials TLS connections. Unlike a mutual-TLS peer, a Bolt/1
// client only ever authenticates the server: TrustedCACertPath is
// optional, and when empty the platform root pool is used.
type TLSDialer struct {
	TrustedCACertPath string
	ServerName        string
	InsecureSkipVerify bool
	KeepAlive         time.Duration
}

// NewTLSDialer returns a TLSDialer that verifies the server against the
// platform root CA pool.
func NewTLSDialer(serverName string) *TLSDialer {
	return &TLSDialer{ServerName: serverName, KeepAlive: 30 * time.Second}
}

func (d *TLSDialer) config() (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         d.ServerName,
		InsecureSkipVerify: d.InsecureSkipVerify,
	}
	if d.TrustedCACertPath == "" {
		return cfg, nil
	}
	pool, err := loadCACertPool(d.TrustedCACertPath)
	if err != nil {
		return nil, err
	}
	cfg.RootCAs = pool
	return cfg, nil
}

func (d *TLSDialer) Dial(addr string, timeout time.Duration) (Channel, error) {
	cfg, err := d.config()
	if err != nil {
		return nil, err
	}
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: d.KeepAlive,
	}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("transport: tls dial %s: %w", addr, err)
	}
	return conn, nil
}

func loadCACertPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("transport: read trusted CA certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("transport: failed to parse trusted CA certificate from %s", path)
	}
	return pool, nil
}
