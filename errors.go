package dashfeed

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/jpalmerr/dashfeed/internal/transport"
)

// ErrTransportExhausted is matched (via errors.Is) by every error returned
// from [Fetcher.Fetch] when no transport produced data.
var ErrTransportExhausted = errors.New("all transports failed")

// NetworkError reports a connection failure or a non-2xx response from one
// transport.
type NetworkError = transport.NetworkError

// ParseError reports a response body that could not be decoded.
type ParseError = transport.ParseError

// FetchFailure is returned by [Fetcher.Fetch] when every transport failed.
//
// Unwrap yields the last underlying error, so errors.As finds the
// [NetworkError] or [ParseError] of the final attempt.
type FetchFailure struct {
	// Attempts holds one error per transport tried, in order.
	Attempts []error

	// Last is the error of the final attempt.
	Last error
}

func (f *FetchFailure) Error() string {
	merr := &multierror.Error{
		Errors: f.Attempts,
		ErrorFormat: func(es []error) string {
			msgs := make([]string, len(es))
			for i, e := range es {
				msgs[i] = e.Error()
			}
			return strings.Join(msgs, "; ")
		},
	}
	if len(f.Attempts) == 0 {
		return ErrTransportExhausted.Error()
	}
	return fmt.Sprintf("%s: %s", ErrTransportExhausted, merr.Error())
}

func (f *FetchFailure) Unwrap() error { return f.Last }

// Is reports whether target is [ErrTransportExhausted].
func (f *FetchFailure) Is(target error) bool {
	return target == ErrTransportExhausted
}

// newFetchFailure builds a [FetchFailure] from the collected attempt errors.
func newFetchFailure(attempts *multierror.Error) *FetchFailure {
	f := &FetchFailure{}
	if attempts != nil {
		f.Attempts = attempts.Errors
	}
	if n := len(f.Attempts); n > 0 {
		f.Last = f.Attempts[n-1]
	}
	return f
}
