package dashfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// TestStart_BlocksUntilContextCancelled verifies that Start blocks until the
// provided context is cancelled.
func TestStart_BlocksUntilContextCancelled(t *testing.T) {
	d, err := New(testEndpoint,
		WithLogger(testLogger()),
		WithPort(0),
		WithTransportChain(&fakeTransport{name: "direct", body: payloadP}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("Start() returned early with error: %v", err)
	default:
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after context cancellation")
	}
}

// TestStart_ReturnsImmediatelyIfContextAlreadyCancelled verifies that Start
// does no work with a dead context.
func TestStart_ReturnsImmediatelyIfContextAlreadyCancelled(t *testing.T) {
	direct := &fakeTransport{name: "direct", body: payloadP}
	d, err := New(testEndpoint, WithLogger(testLogger()), WithPort(0), WithTransportChain(direct))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.Start(ctx); err != nil {
		t.Errorf("Start() error = %v", err)
	}
	if direct.calls.Load() != 0 {
		t.Errorf("transport called %d times with a cancelled context", direct.calls.Load())
	}
}

// TestStart_RefreshesImmediatelyThenEveryInterval drives the schedule with a
// fake clock: one fetch at start, one per elapsed interval.
func TestStart_RefreshesImmediatelyThenEveryInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var hookCalls atomic.Int32
	direct := &fakeTransport{name: "direct", body: payloadP}

	d, err := New(testEndpoint,
		WithLogger(testLogger()),
		WithPort(0),
		WithClock(clock),
		WithFilters(Filters{StudentID: "s1"}),
		WithTransportChain(direct),
		WithViewHook(func(DashboardState) { hookCalls.Add(1) }),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	waitFor(t, "initial refresh", func() bool { return hookCalls.Load() == 1 })

	for want := int32(2); want <= 3; want++ {
		clock.BlockUntil(1)
		clock.Advance(60 * time.Second)
		waitFor(t, fmt.Sprintf("refresh %d", want), func() bool { return hookCalls.Load() == want })
	}

	cancel()
	<-done

	if q := direct.seen[0].Query(); q.Get(ParamStudentID) != "s1" {
		t.Errorf("scheduled refresh did not send filters: %v", q)
	}
}

// TestStart_FailingRefreshKeepsRunning checks that a failed refresh neither
// stops the schedule nor surfaces an error from Start.
func TestStart_FailingRefreshKeepsRunning(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var failures atomic.Int32
	direct := &fakeTransport{name: "direct", err: fmt.Errorf("down")}

	d, err := New(testEndpoint,
		WithLogger(testLogger()),
		WithPort(0),
		WithClock(clock),
		WithTransportChain(direct),
		WithErrorHook(func(error) { failures.Add(1) }),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	waitFor(t, "first failure", func() bool { return failures.Load() == 1 })
	clock.BlockUntil(1)
	clock.Advance(60 * time.Second)
	waitFor(t, "second failure", func() bool { return failures.Load() == 2 })

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Start() error = %v", err)
	}
}

func TestStart_ServesState(t *testing.T) {
	port := freePort(t)
	var refreshed atomic.Bool
	d, err := New(testEndpoint,
		WithLogger(testLogger()),
		WithPort(port),
		WithTransportChain(&fakeTransport{name: "direct", body: payloadP}),
		WithViewHook(func(DashboardState) { refreshed.Store(true) }),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	waitFor(t, "first refresh", refreshed.Load)

	resp, err := http.Get(fmt.Sprintf("http://localhost:%d/api/state", port))
	if err != nil {
		t.Fatalf("GET /api/state error = %v", err)
	}
	defer resp.Body.Close()

	var got DashboardState
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got.Conversations) != 1 || len(got.Students) != 1 {
		t.Errorf("served state = %+v", got)
	}

	metrics, err := http.Get(fmt.Sprintf("http://localhost:%d/metrics", port))
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer metrics.Body.Close()
	body, err := io.ReadAll(metrics.Body)
	if err != nil {
		t.Fatalf("reading /metrics: %v", err)
	}
	if !strings.Contains(string(body), "dashfeed_refresh_total") {
		t.Error("metrics endpoint does not expose refresh counter")
	}
}

func TestStart_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	d, err := New(testEndpoint,
		WithLogger(testLogger()),
		WithPort(ln.Addr().(*net.TCPAddr).Port),
		WithTransportChain(&fakeTransport{name: "direct", body: payloadP}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = d.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "failed to start HTTP server") {
		t.Errorf("Start() error = %v, want bind failure", err)
	}
}
