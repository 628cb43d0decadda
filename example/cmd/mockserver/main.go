// Standalone mock endpoint for trying the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver [-reject-json] [-addr :9999]
//
// Then in another terminal:
//
//	go run ./cmd/dashfeed serve -c example/config.yaml
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jpalmerr/dashfeed/internal/mockendpoint"
)

func main() {
	addr := flag.String("addr", ":9999", "listen address")
	rejectJSON := flag.Bool("reject-json", false, "fail plain requests so clients fall back to JSONP")
	latency := flag.Duration("max-latency", 200*time.Millisecond, "maximum random delay per request")
	flag.Parse()

	fmt.Printf("Mock dashboard endpoint on %s/exec\n", *addr)
	if *rejectJSON {
		fmt.Println("Plain JSON requests are rejected; only JSONP answers")
	}
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	handler := mockendpoint.New(mockendpoint.Options{
		RejectJSON: *rejectJSON,
		MaxLatency: *latency,
	})

	if err := http.ListenAndServe(*addr, handler); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
