package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/dashfeed"
	"github.com/jpalmerr/dashfeed/internal/mockendpoint"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// mock endpoint that only answers JSONP, so the fallback is visible in the logs
	ln, err := net.Listen("tcp", "127.0.0.1:9999")
	if err != nil {
		logger.Error("failed to start mock endpoint", "error", err)
		os.Exit(1)
	}
	mock := mockendpoint.New(mockendpoint.Options{
		RejectJSON: true,
		MaxLatency: 200 * time.Millisecond,
		Logger:     logger.With("component", "mock"),
	})
	go func() { _ = http.Serve(ln, mock) }()

	d, err := dashfeed.New("http://127.0.0.1:9999/exec",
		dashfeed.WithRefreshInterval(10*time.Second),
		dashfeed.WithPort(8080),
		dashfeed.WithTimeout(5*time.Second),
		dashfeed.WithLogger(logger),
		dashfeed.WithViewHook(func(s dashfeed.DashboardState) {
			fmt.Printf("view: %d conversations from %d students\n", len(s.Conversations), len(s.Students))
		}),
		dashfeed.WithErrorHook(func(err error) {
			fmt.Printf("view: refresh failed: %v\n", err)
		}),
	)
	if err != nil {
		logger.Error("failed to create dashboard", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  dashfeed demo")
	fmt.Println()
	fmt.Println("  State:   http://localhost:8080/api/state")
	fmt.Println("  Stream:  http://localhost:8080/api/sse")
	fmt.Println("  Status:  http://localhost:8080/api/status")
	fmt.Println("  Metrics: http://localhost:8080/metrics")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// on-demand refresh for a single student, next to the scheduled ones
	go func() {
		time.Sleep(3 * time.Second)
		if s := d.Fetcher().Refresh(ctx, dashfeed.FiltersFromMap(map[string]string{"studentID": "s2"})); s != nil {
			fmt.Printf("filtered refresh: %d conversations\n", len(s.Conversations))
		}
	}()

	if err := d.Start(ctx); err != nil {
		logger.Error("dashboard error", "error", err)
		os.Exit(1)
	}
}
