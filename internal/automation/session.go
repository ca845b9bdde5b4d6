// Package automation wraps a live browser behind a small [Session] interface
// so the Amazon Music client, the reconciliation engine and tests can drive
// page interactions without knowing about the underlying driver.
//
// Every wait is timeout-bounded and reports expiry as a typed "not found"
// result instead of an error: an element that never rendered is an expected
// outcome on an uncontrolled web UI, not a failure.
package automation

import (
	"context"
	"time"
)

// Session is an exclusive, stateful handle to one browser instance.
//
// Start must be called before any page operation and Stop must run exactly
// once per started session, on error paths included. Sessions are not safe
// for concurrent use; the engine serializes all access.
type Session interface {
	// Start launches the browser. Calling Start on a started session is an error.
	Start(ctx context.Context) error

	// Stop tears the browser down. Safe to call on a session that never
	// started or already stopped.
	Stop() error

	// Navigate loads the given URL in the session's tab.
	Navigate(ctx context.Context, url string) error

	// WaitVisible blocks until the CSS selector matches a visible element or
	// the timeout expires. Expiry returns (false, nil), not an error.
	WaitVisible(ctx context.Context, sel string, timeout time.Duration) (bool, error)

	// Click clicks the first element matching the CSS selector.
	Click(ctx context.Context, sel string) error

	// SendKeys types into the element matching the CSS selector.
	SendKeys(ctx context.Context, sel, keys string) error

	// ClearInput empties the value of the matching input element.
	ClearInput(ctx context.Context, sel string) error

	// PressEnter submits the element matching the CSS selector.
	PressEnter(ctx context.Context, sel string) error

	// ZoomOut shrinks the page so lazily rendered rows materialize before a
	// scrape.
	ZoomOut(ctx context.Context) error

	// HTML returns the document's current outer HTML.
	HTML(ctx context.Context) (string, error)
}
