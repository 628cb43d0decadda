package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const callbackPrefix = "dashfeed_cb_"

// jsonpPattern matches `name(payload)` with an optional `/**/` guard and an
// optional trailing semicolon.
// Group 1: callback name
// Group 2: payload
var jsonpPattern = regexp.MustCompile(`^(?:/\*\*/\s*)?([A-Za-z_$][0-9A-Za-z_$.]*)\s*\(([\s\S]*)\)\s*;?$`)

// callbackRegistry holds the callbacks of in-flight JSONP requests.
type callbackRegistry struct {
	mu      sync.Mutex
	pending map[string]func(json.RawMessage)
}

func newCallbackRegistry() *callbackRegistry {
	return &callbackRegistry{pending: make(map[string]func(json.RawMessage))}
}

func (r *callbackRegistry) register(name string, fn func(json.RawMessage)) {
	r.mu.Lock()
	r.pending[name] = fn
	r.mu.Unlock()
}

func (r *callbackRegistry) unregister(name string) {
	r.mu.Lock()
	delete(r.pending, name)
	r.mu.Unlock()
}

// invoke calls and removes the named callback.
func (r *callbackRegistry) invoke(name string, payload json.RawMessage) error {
	r.mu.Lock()
	fn, ok := r.pending[name]
	delete(r.pending, name)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCallback, name)
	}
	fn(payload)
	return nil
}

func (r *callbackRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// JSONP fetches the payload as a script that calls a named callback.
//
// Every request gets its own callback name, registered only while that
// request is in flight. The payload is delivered by invoking the callback the
// script names, so a response meant for another request is rejected.
type JSONP struct {
	client    *Client
	settings  Settings
	callbacks *callbackRegistry
	newName   func() string
}

// NewJSONP creates a [JSONP] strategy.
func NewJSONP(client *Client, settings Settings) *JSONP {
	return &JSONP{
		client:    client,
		settings:  settings,
		callbacks: newCallbackRegistry(),
		newName:   newCallbackName,
	}
}

// Name returns [NameJSONP].
func (j *JSONP) Name() string { return NameJSONP }

// Pending returns the number of callbacks currently registered.
func (j *JSONP) Pending() int { return j.callbacks.len() }

// Fetch adds a callback parameter to target, issues the GET and returns the
// argument the script passes to that callback.
func (j *JSONP) Fetch(ctx context.Context, target *url.URL) ([]byte, error) {
	name := j.newName()

	var payload json.RawMessage
	j.callbacks.register(name, func(p json.RawMessage) { payload = p })
	defer j.callbacks.unregister(name)

	u := *target
	q := u.Query()
	q.Set("callback", name)
	u.RawQuery = q.Encode()
	raw := u.String()

	resp := j.client.Get(ctx, raw, j.settings.headersWith("application/javascript"), j.settings.Timeout)
	j.settings.logResponse(NameJSONP, resp)
	if err := checkResponse(NameJSONP, raw, resp); err != nil {
		return nil, err
	}

	called, arg, err := parseJSONP(resp.Body)
	if err != nil {
		return nil, &ParseError{Transport: NameJSONP, Err: err}
	}
	if err := j.callbacks.invoke(called, arg); err != nil {
		return nil, &ParseError{Transport: NameJSONP, Err: err}
	}
	return payload, nil
}

// parseJSONP splits a JSONP body into the callback name and its JSON argument.
func parseJSONP(body []byte) (string, json.RawMessage, error) {
	m := jsonpPattern.FindSubmatch([]byte(strings.TrimSpace(string(body))))
	if m == nil {
		return "", nil, errors.New("body is not a jsonp callback invocation")
	}
	arg := []byte(strings.TrimSpace(string(m[2])))
	if !json.Valid(arg) {
		return "", nil, errors.New("jsonp callback argument is not valid json")
	}
	return string(m[1]), json.RawMessage(arg), nil
}

// newCallbackName returns a unique, valid JavaScript identifier.
func newCallbackName() string {
	return callbackPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}
