package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/evidenceworks/webproof/pkg/selector"
)

// snippetLimit bounds the outer-HTML snippet returned by Inspect.
const snippetLimit = 200

// networkQuiet is how long the wire must stay silent before the network
// counts as idle.
const networkQuiet = 500 * time.Millisecond

// ChromeSession drives a headless Chrome instance over CDP.
type ChromeSession struct {
	cfg         Config
	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
	har         *harRecorder
}

// NewChromeSession launches Chrome and opens one page. The parent context
// bounds the whole session lifetime.
func NewChromeSession(parent context.Context, cfg Config) (*ChromeSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx)

	s := &ChromeSession{
		cfg:         cfg,
		ctx:         ctx,
		cancelCtx:   cancelCtx,
		cancelAlloc: cancelAlloc,
	}

	if cfg.HARPath != "" {
		s.har = newHARRecorder()
		chromedp.ListenTarget(ctx, s.har.listen)
	}

	// Start the browser and enable network events up front so the HAR
	// capture covers the first navigation.
	if err := chromedp.Run(ctx, network.Enable()); err != nil {
		cancelCtx()
		cancelAlloc()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	return s, nil
}

// Close tears down the browser and writes the HAR trace if capture was on.
func (s *ChromeSession) Close() error {
	s.cancelCtx()
	s.cancelAlloc()
	if s.har != nil {
		if err := s.har.WriteFile(s.cfg.HARPath); err != nil {
			return fmt.Errorf("write network trace: %w", err)
		}
	}
	return nil
}

// op runs browser actions under the per-operation timeout. Chromedp actions
// must run on a context descending from the session's chromedp context, so
// the caller's context only contributes an earlier deadline when it has one.
func (s *ChromeSession) op(ctx context.Context, actions ...chromedp.Action) error {
	timeout := s.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}
	tctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(tctx, actions...)
}

// Navigate loads the URL, returning once DOM content is available.
func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	if err := s.op(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// WaitNetworkIdle blocks until no requests have been in flight for a quiet
// window, or the timeout elapses.
func (s *ChromeSession) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if s.har == nil || s.har.idleFor(networkQuiet) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("wait for network idle: timeout after %s", timeout)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		case <-s.ctx.Done():
			return s.ctx.Err()
		}
	}
}

// Screenshot captures a full-page PNG to path.
func (s *ChromeSession) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := s.op(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("screenshot dir: %w", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	return nil
}

// DumpDOM writes the serialized document to path.
func (s *ChromeSession) DumpDOM(ctx context.Context, path string) error {
	var html string
	if err := s.op(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("dump dom: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("dom dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		return fmt.Errorf("write dom: %w", err)
	}
	return nil
}

// URL reports the page's current URL.
func (s *ChromeSession) URL(ctx context.Context) (string, error) {
	var url string
	if err := s.op(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("read url: %w", err)
	}
	return url, nil
}

// Title reports the page's current title.
func (s *ChromeSession) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.op(ctx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("read title: %w", err)
	}
	return title, nil
}

// Click resolves one strategy and clicks the first visible match.
func (s *ChromeSession) Click(ctx context.Context, sel selector.Strategy) error {
	query, opt, err := toQuery(sel)
	if err != nil {
		return err
	}
	if err := s.op(ctx,
		chromedp.ScrollIntoView(query, opt),
		chromedp.Click(query, opt, chromedp.NodeVisible),
	); err != nil {
		return fmt.Errorf("%s: %w", sel.Kind, err)
	}
	return nil
}

// Inspect resolves one strategy without clicking, reporting found state and
// a bounded outer-HTML snippet of the first match.
func (s *ChromeSession) Inspect(ctx context.Context, sel selector.Strategy) (selector.Inspection, error) {
	query, opt, err := toQuery(sel)
	if err != nil {
		return selector.Inspection{}, err
	}

	var nodes []*cdp.Node
	if err := s.op(ctx, chromedp.Nodes(query, &nodes, opt, chromedp.AtLeast(0))); err != nil {
		return selector.Inspection{}, fmt.Errorf("%s: %w", sel.Kind, err)
	}
	if len(nodes) == 0 {
		return selector.Inspection{}, nil
	}

	var html string
	err = s.op(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		html, err = dom.GetOuterHTML().WithNodeID(nodes[0].NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return selector.Inspection{}, fmt.Errorf("%s: outer html: %w", sel.Kind, err)
	}
	if len(html) > snippetLimit {
		html = html[:snippetLimit]
	}
	return selector.Inspection{Found: true, Snippet: html}, nil
}

// toQuery maps a strategy to a chromedp query and query option.
func toQuery(s selector.Strategy) (string, chromedp.QueryOption, error) {
	switch s.Kind {
	case selector.CSS:
		return s.Query, chromedp.ByQuery, nil
	case selector.XPath:
		return s.Query, chromedp.BySearch, nil
	case selector.Text:
		return textXPath(s.Query), chromedp.BySearch, nil
	case selector.Aria:
		return ariaXPath(s.Query), chromedp.BySearch, nil
	}
	return "", nil, fmt.Errorf("unknown strategy kind %q", s.Kind)
}

// textXPath matches any element whose own text contains the query.
func textXPath(q string) string {
	return fmt.Sprintf(`//*[text()[contains(., %s)]]`, xpathString(q))
}

// ariaXPath approximates a role=link accessible-name lookup: links (or
// role="link" elements) matched by contained text or aria-label, case
// insensitive on the ASCII range.
func ariaXPath(q string) string {
	lower := xpathString(strings.ToLower(q))
	lc := `translate(., "ABCDEFGHIJKLMNOPQRSTUVWXYZ", "abcdefghijklmnopqrstuvwxyz")`
	lcLabel := `translate(@aria-label, "ABCDEFGHIJKLMNOPQRSTUVWXYZ", "abcdefghijklmnopqrstuvwxyz")`
	return fmt.Sprintf(`//a[contains(%s, %s)] | //*[@role="link"][contains(%s, %s)] | //a[contains(%s, %s)]`,
		lc, lower, lc, lower, lcLabel, lower)
}

// xpathString quotes s as an XPath string literal.
func xpathString(s string) string {
	if !strings.Contains(s, `'`) {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	// Contains both quote kinds: build with concat().
	parts := strings.Split(s, `'`)
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+p+"'")
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
