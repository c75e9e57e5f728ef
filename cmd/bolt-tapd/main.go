// Command bolt-tapd runs a pooled Bolt/1 connection to a single
// address and exposes the pool's Prometheus metrics over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mickamy/boltstream/packstream"
	"github.com/mickamy/boltstream/pool"
	"github.com/mickamy/boltstream/session"
	"github.com/mickamy/boltstream/transport"
	"github.com/mickamy/boltstream/web"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet("bolt-tapd", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "bolt-tapd — pooled Bolt/1 connection with Prometheus metrics\n\nUsage:\n  bolt-tapd [flags] <addr>\n\nFlags:\n")
		fs.PrintDefaults()
	}

	listenAddr := fs.String("listen", ":9180", "address to serve /metrics and /healthz on")
	maxSessions := fs.Uint("max-sessions", 10, "maximum pooled sessions per address")
	acquireTimeout := fs.Duration("acquire-timeout", 60*time.Second, "time to wait for a pooled session")
	connectTimeout := fs.Duration("connect-timeout", 5*time.Second, "time to wait for a new connection to be established")
	useTLS := fs.Bool("tls", false, "connect over TLS")
	showVersion := fs.Bool("version", false, "show version and exit")

	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("bolt-tapd %s\n", version)
		return
	}
	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	if err := run(fs.Arg(0), *listenAddr, uint32(*maxSessions), *acquireTimeout, *connectTimeout, *useTLS); err != nil {
		fmt.Fprintln(os.Stderr, "bolt-tapd:", err)
		os.Exit(1)
	}
}

func run(addr, listenAddr string, maxSessions uint32, acquireTimeout, connectTimeout time.Duration, useTLS bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var dialer transport.Dialer = transport.NewTCPDialer()
	if useTLS {
		dialer = transport.NewTLSDialer(hostOf(addr))
	}

	connector := pool.ConnectorFunc(func(ctx context.Context, addr string) (*session.Connection, error) {
		conn, err := session.Dial(dialer, addr, connectTimeout)
		if err != nil {
			return nil, err
		}
		if err := conn.Init("bolt-tapd/1.0", packstream.Map{{Key: "scheme", Value: packstream.String("none")}}); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil
	})

	settings := pool.DefaultSettings()
	settings.MaxSessions = maxSessions
	settings.AcquireTimeout = acquireTimeout
	settings.ConnectionTimeout = connectTimeout

	p := pool.New(connector, settings)
	defer p.Close()

	srv := web.New(p.Metrics().Collectors()...)

	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", listenAddr, err)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(lis)
	}()

	keepWarm(ctx, p, addr)

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// keepWarm acquires and releases one session against addr so the pool
// (and its metrics) reflect real connection health before the first
// client request arrives.
func keepWarm(ctx context.Context, p *pool.Pool, addr string) {
	conn, err := p.Acquire(ctx, addr)
	if err != nil {
		return
	}
	conn.Close()
}

func hostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
