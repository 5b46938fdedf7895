// Package browser defines the capability interface the action engine drives,
// and its chromedp-backed implementation.
package browser

import (
	"context"
	"time"

	"github.com/evidenceworks/webproof/pkg/selector"
)

// Config is the browser-session configuration, built once at run start.
type Config struct {
	Headless bool
	// Timeout bounds each individual browser operation (navigate, click,
	// inspect, capture).
	Timeout time.Duration
	// HARPath, when set, enables continuous network capture; the trace is
	// written there when the session closes.
	HARPath string
}

// Session is the capability interface required from a browser backend.
// One session maps to one browser context and page; the engine performs no
// parallel operations against it.
type Session interface {
	// Navigate loads the URL and waits for DOM content.
	Navigate(ctx context.Context, url string) error
	// WaitNetworkIdle blocks until the network has been quiet, bounded by
	// the given timeout (callers pass max(idle target, operation timeout)).
	WaitNetworkIdle(ctx context.Context, timeout time.Duration) error
	// Screenshot captures a full-page PNG to path.
	Screenshot(ctx context.Context, path string) error
	// DumpDOM writes the serialized document to path.
	DumpDOM(ctx context.Context, path string) error
	// URL reports the page's current URL.
	URL(ctx context.Context) (string, error)
	// Title reports the page's current title.
	Title(ctx context.Context) (string, error)
	// Click resolves one strategy and clicks the match, returning a
	// strategy-specific error on failure.
	selector.Clicker
	// Inspect resolves one strategy without side effects.
	selector.Inspector
	// Close tears down the browser and flushes the network trace.
	Close() error
}
