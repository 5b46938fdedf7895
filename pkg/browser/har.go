package browser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
)

// HAR 1.2 document structure. Only the fields standard viewers require are
// populated; bodies are not captured.

type harFile struct {
	Log harLog `json:"log"`
}

type harLog struct {
	Version string     `json:"version"`
	Creator harCreator `json:"creator"`
	Entries []harEntry `json:"entries"`
}

type harCreator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type harEntry struct {
	StartedDateTime string      `json:"startedDateTime"`
	Time            float64     `json:"time"`
	Request         harRequest  `json:"request"`
	Response        harResponse `json:"response"`
	Cache           struct{}    `json:"cache"`
	Timings         harTimings  `json:"timings"`
	Comment         string      `json:"comment,omitempty"`
}

type harRequest struct {
	Method      string      `json:"method"`
	URL         string      `json:"url"`
	HTTPVersion string      `json:"httpVersion"`
	Headers     []harHeader `json:"headers"`
	QueryString []harHeader `json:"queryString"`
	HeadersSize int         `json:"headersSize"`
	BodySize    int         `json:"bodySize"`
}

type harResponse struct {
	Status      int         `json:"status"`
	StatusText  string      `json:"statusText"`
	HTTPVersion string      `json:"httpVersion"`
	Headers     []harHeader `json:"headers"`
	Content     harContent  `json:"content"`
	RedirectURL string      `json:"redirectURL"`
	HeadersSize int         `json:"headersSize"`
	BodySize    int         `json:"bodySize"`
}

type harContent struct {
	Size     int    `json:"size"`
	MimeType string `json:"mimeType"`
}

type harTimings struct {
	Send    float64 `json:"send"`
	Wait    float64 `json:"wait"`
	Receive float64 `json:"receive"`
}

type harHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// pendingEntry accumulates CDP network events for one request until loading
// finishes.
type pendingEntry struct {
	seq      int
	started  time.Time
	method   string
	url      string
	status   int
	statusT  string
	mime     string
	protocol string
	size     int
	failed   string
	done     bool
}

// harRecorder captures request/response events continuously at the session
// level and renders them as a HAR document on close. It also tracks the
// in-flight request count for network-idle detection.
type harRecorder struct {
	mu           sync.Mutex
	entries      map[network.RequestID]*pendingEntry
	redirects    []*pendingEntry // flushed hops of redirected requests
	seq          int
	inflight     int
	lastActivity time.Time
}

func newHARRecorder() *harRecorder {
	return &harRecorder{
		entries:      make(map[network.RequestID]*pendingEntry),
		lastActivity: time.Now(),
	}
}

// listen consumes chromedp target events. Non-network events are ignored.
func (h *harRecorder) listen(ev interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		h.seq++
		if prev, ok := h.entries[e.RequestID]; ok && !prev.done {
			// An HTTP redirect reuses the RequestID: the event fires
			// again for the next hop, carrying the hop's response. Flush
			// the previous hop as its own entry; the logical request is
			// still the one already counted in flight.
			prev.done = true
			if e.RedirectResponse != nil {
				prev.status = int(e.RedirectResponse.Status)
				prev.statusT = e.RedirectResponse.StatusText
				prev.mime = e.RedirectResponse.MimeType
				prev.protocol = e.RedirectResponse.Protocol
			}
			h.redirects = append(h.redirects, prev)
		} else {
			h.inflight++
		}
		h.entries[e.RequestID] = &pendingEntry{
			seq:     h.seq,
			started: e.WallTime.Time(),
			method:  e.Request.Method,
			url:     e.Request.URL,
		}
		h.lastActivity = time.Now()

	case *network.EventResponseReceived:
		if p, ok := h.entries[e.RequestID]; ok {
			p.status = int(e.Response.Status)
			p.statusT = e.Response.StatusText
			p.mime = e.Response.MimeType
			p.protocol = e.Response.Protocol
		}
		h.lastActivity = time.Now()

	case *network.EventLoadingFinished:
		if p, ok := h.entries[e.RequestID]; ok && !p.done {
			p.done = true
			p.size = int(e.EncodedDataLength)
			h.inflight--
		}
		h.lastActivity = time.Now()

	case *network.EventLoadingFailed:
		if p, ok := h.entries[e.RequestID]; ok && !p.done {
			p.done = true
			p.failed = e.ErrorText
			h.inflight--
		}
		h.lastActivity = time.Now()
	}
}

// idleFor reports whether no requests are in flight and the wire has been
// quiet for at least the given window.
func (h *harRecorder) idleFor(quiet time.Duration) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inflight <= 0 && time.Since(h.lastActivity) >= quiet
}

// WriteFile renders the captured traffic as HAR 1.2 JSON.
func (h *harRecorder) WriteFile(path string) error {
	h.mu.Lock()
	pending := make([]*pendingEntry, 0, len(h.entries)+len(h.redirects))
	pending = append(pending, h.redirects...)
	for _, p := range h.entries {
		pending = append(pending, p)
	}
	h.mu.Unlock()

	sort.Slice(pending, func(i, j int) bool { return pending[i].seq < pending[j].seq })

	entries := make([]harEntry, 0, len(pending))
	for _, p := range pending {
		e := harEntry{
			StartedDateTime: p.started.UTC().Format(time.RFC3339Nano),
			Request: harRequest{
				Method:      p.method,
				URL:         p.url,
				HTTPVersion: p.protocol,
				Headers:     []harHeader{},
				QueryString: []harHeader{},
				HeadersSize: -1,
				BodySize:    -1,
			},
			Response: harResponse{
				Status:      p.status,
				StatusText:  p.statusT,
				HTTPVersion: p.protocol,
				Headers:     []harHeader{},
				Content:     harContent{Size: p.size, MimeType: p.mime},
				HeadersSize: -1,
				BodySize:    p.size,
			},
			Timings: harTimings{Send: -1, Wait: -1, Receive: -1},
		}
		if p.failed != "" {
			e.Comment = "loading failed: " + p.failed
		}
		entries = append(entries, e)
	}

	doc := harFile{Log: harLog{
		Version: "1.2",
		Creator: harCreator{Name: "webproof", Version: "0.1"},
		Entries: entries,
	}}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal har: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("har dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write har: %w", err)
	}
	return nil
}
