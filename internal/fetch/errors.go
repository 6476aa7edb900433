package fetch

import (
	"errors"
	"fmt"
)

// ErrRobotsDisallowed marks a URL the site's robots policy forbids for the
// harvester's user agent. It is a permanent, policy-level failure and is
// never retried.
var ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

// FetchError reports a transient fetch failure: a non-success status or a
// transport error. It is retried up to the fixed budget before surfacing.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
