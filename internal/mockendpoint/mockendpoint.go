// Package mockendpoint serves synthetic dashboard data the way the real
// script endpoint does: plain JSON by default, JSONP when a callback
// parameter is given. It backs the examples and local testing of the CLI.
package mockendpoint

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
)

// callbackPattern restricts JSONP callback names to plain identifiers.
var callbackPattern = regexp.MustCompile(`^[A-Za-z_$][0-9A-Za-z_$.]*$`)

// Options control how the mock misbehaves.
type Options struct {
	// RejectJSON answers plain requests with 500 so clients have to fall
	// back to JSONP.
	RejectJSON bool

	// MaxLatency adds a random delay up to this duration to each request.
	MaxLatency time.Duration

	Logger *slog.Logger
}

// Handler serves the mock dashboard data.
type Handler struct {
	opts     Options
	requests atomic.Int64
}

// New creates a mock endpoint [Handler].
func New(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{opts: opts}
}

// Requests returns the number of requests served so far.
func (h *Handler) Requests() int64 {
	return h.requests.Load()
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := h.requests.Add(1)
	if h.opts.MaxLatency > 0 {
		time.Sleep(time.Duration(rand.Int63n(int64(h.opts.MaxLatency))))
	}

	q := r.URL.Query()
	callback := q.Get("callback")

	h.opts.Logger.Info("request",
		"n", n,
		"studentID", q.Get("studentID"),
		"date", q.Get("date"),
		"jsonp", callback != "",
	)

	if callback == "" && h.opts.RejectJSON {
		http.Error(w, "direct access disabled", http.StatusInternalServerError)
		return
	}

	body, err := json.Marshal(Generate(q.Get("studentID"), q.Get("date"), n))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if callback == "" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
		return
	}

	if !callbackPattern.MatchString(callback) {
		http.Error(w, "invalid callback", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/javascript")
	_, _ = fmt.Fprintf(w, "%s(%s);", callback, body)
}

var students = []struct{ id, name string }{
	{"s1", "Ada Lovelace"},
	{"s2", "Grace Hopper"},
	{"s3", "Alan Turing"},
}

// Generate builds a dashboard payload. seq varies the number of
// conversations so successive refreshes are distinguishable.
func Generate(studentID, date string, seq int64) map[string]any {
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	studentMap := map[string]any{}
	var conversations []map[string]any
	for i, s := range students {
		if studentID != "" && s.id != studentID {
			continue
		}
		studentMap[s.id] = map[string]any{"name": s.name}

		for j := 0; j < int(seq%3)+1; j++ {
			conversations = append(conversations, map[string]any{
				"id":        fmt.Sprintf("%s-%d-%d", s.id, seq, j),
				"studentID": s.id,
				"date":      date,
				"messages":  (i+1)*2 + j,
				"topic":     strings.ToLower(strings.Fields(s.name)[1]),
			})
		}
	}

	if conversations == nil {
		conversations = []map[string]any{}
	}
	return map[string]any{
		"conversations": conversations,
		"students":      studentMap,
	}
}
