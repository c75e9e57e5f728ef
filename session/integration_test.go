package session_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mickamy/boltstream/packstream"
	"github.com/mickamy/boltstream/session"
	"github.com/mickamy/boltstream/transport"
)

// startNeo4j boots a Neo4j 3.5 container, the last major line that
// speaks Bolt/1 only (4.x negotiates Bolt/2+), and returns its
// host:port address with auth disabled.
func startNeo4j(t *testing.T) string {
	t.Helper()

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "neo4j:3.5",
		ExposedPorts: []string{"7687/tcp"},
		Env:          map[string]string{"NEO4J_AUTH": "none"},
		WaitingFor:   wait.ForListeningPort("7687/tcp").WithStartupTimeout(90 * time.Second),
	}
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start neo4j container: %v", err)
	}
	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("terminate neo4j container: %v", err)
		}
	})

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("get host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "7687/tcp")
	if err != nil {
		t.Fatalf("get port: %v", err)
	}
	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestSessionAgainstRealNeo4j(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed integration test in -short mode")
	}
	t.Parallel()

	addr := startNeo4j(t)

	conn, err := session.Dial(transport.NewTCPDialer(), addr, 10*time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if err := conn.Init("boltstream-integration/1.0", packstream.Map{
		{Key: "scheme", Value: packstream.String("none")},
	}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	var records [][]packstream.Value
	var runOK, pullOK bool
	runCol := &integrationCollector{onSuccess: func(packstream.Map) { runOK = true }}
	pullCol := &integrationCollector{
		onRecord:  func(f []packstream.Value) { records = append(records, f) },
		onSuccess: func(packstream.Map) { pullOK = true },
	}

	if err := conn.Run("RETURN 1", packstream.Map{}, runCol); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := conn.PullAll(pullCol); err != nil {
		t.Fatalf("PullAll: %v", err)
	}
	if err := conn.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if !runOK || !pullOK {
		t.Fatalf("expected RUN and PULL_ALL to both succeed, runOK=%v pullOK=%v", runOK, pullOK)
	}
	if len(records) != 1 || len(records[0]) != 1 || records[0][0].Int != 1 {
		t.Fatalf("got records %+v, want a single record [1]", records)
	}
}

type integrationCollector struct {
	onRecord  func([]packstream.Value)
	onSuccess func(packstream.Map)
}

func (c *integrationCollector) OnRecord(f []packstream.Value) {
	if c.onRecord != nil {
		c.onRecord(f)
	}
}
func (c *integrationCollector) OnSuccess(m packstream.Map) {
	if c.onSuccess != nil {
		c.onSuccess(m)
	}
}
func (c *integrationCollector) OnFailure(code, msg string) {}
func (c *integrationCollector) OnIgnored()                 {}
func (c *integrationCollector) OnComplete()                {}
