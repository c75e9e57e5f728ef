// Command bolt-tap is an interactive Bolt/1 client: it opens one
// session, reads Cypher statements from stdin, and watches the live
// request/response traffic in a terminal UI.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mickamy/boltstream/collector"
	"github.com/mickamy/boltstream/packstream"
	"github.com/mickamy/boltstream/session"
	"github.com/mickamy/boltstream/transport"
	"github.com/mickamy/boltstream/tui"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet("bolt-tap", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "bolt-tap — Watch Bolt/1 traffic in real-time\n\nUsage:\n  bolt-tap [flags] <addr>\n\nFlags:\n")
		fs.PrintDefaults()
	}

	tls := fs.Bool("tls", false, "connect over TLS")
	user := fs.String("user", "", "basic auth principal")
	password := fs.String("password", "", "basic auth credentials")
	nplus1Threshold := fs.Int("nplus1-threshold", 5, "N+1 detection threshold (0 to disable)")
	nplus1Window := fs.Duration("nplus1-window", time.Second, "N+1 detection time window")
	nplus1Cooldown := fs.Duration("nplus1-cooldown", 10*time.Second, "N+1 alert cooldown per statement")
	showVersion := fs.Bool("version", false, "show version and exit")

	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("bolt-tap %s\n", version)
		return
	}

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	if err := run(fs.Arg(0), *tls, *user, *password, *nplus1Threshold, *nplus1Window, *nplus1Cooldown); err != nil {
		fmt.Fprintln(os.Stderr, "bolt-tap:", err)
		os.Exit(1)
	}
}

func run(addr string, useTLS bool, user, password string, threshold int, window, cooldown time.Duration) error {
	var dialer transport.Dialer = transport.NewTCPDialer()
	if useTLS {
		dialer = transport.NewTLSDialer(hostOf(addr))
	}

	conn, err := session.Dial(dialer, addr, 5*time.Second)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	authToken := packstream.Map{{Key: "scheme", Value: packstream.String("none")}}
	if user != "" {
		authToken = packstream.Map{
			{Key: "scheme", Value: packstream.String("basic")},
			{Key: "principal", Value: packstream.String(user)},
			{Key: "credentials", Value: packstream.String(password)},
		}
	}
	if err := conn.Init("bolt-tap/1.0", authToken); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	events := make(chan collector.Event, 64)
	go readStatements(conn, events)

	model := tui.New(events, threshold, window, cooldown)
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

func readStatements(conn *session.Connection, events chan<- collector.Event) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		stmt := strings.TrimSpace(scanner.Text())
		if stmt == "" {
			continue
		}
		if err := conn.Run(stmt, packstream.Map{}, collector.EventEmitter(events, stmt)); err != nil {
			continue
		}
		if err := conn.PullAll(collector.NoOp); err != nil {
			continue
		}
		_ = conn.Sync()
	}
}

func hostOf(addr string) string {
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		return addr[:i]
	}
	return addr
}
