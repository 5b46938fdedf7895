// Package selector implements locator strategies and the ordered-fallback
// resolution engine used to target page elements.
package selector

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind identifies one locator strategy family.
type Kind string

const (
	// Aria locates by accessible role and name (link with the given name).
	Aria Kind = "aria"
	// Text locates by visible text, substring match.
	Text Kind = "text"
	// CSS locates by CSS query, first match.
	CSS Kind = "css"
	// XPath locates by XPath query, first match.
	XPath Kind = "xpath"
)

// Strategy is one named method of locating a page element.
type Strategy struct {
	Kind  Kind   `json:"strategy"`
	Query string `json:"query"`
}

func (s Strategy) String() string {
	return fmt.Sprintf("%s: %s", s.Kind, s.Query)
}

// Known reports whether the strategy kind is one the engine implements.
func (s Strategy) Known() bool {
	switch s.Kind {
	case Aria, Text, CSS, XPath:
		return true
	}
	return false
}

// roleNameRe extracts the name clause from role shorthand like
// "link[name=/pricing/i]" or "button[name=Submit]".
var roleNameRe = regexp.MustCompile(`\[name=/?([^\]]+)\]?`)

// Parse converts the task-file strategy list into Strategy values.
// Each entry is a "kind: query" string; the role shorthand
// ("role: link[name=/pricing/i]") is desugared into an aria strategy by
// extracting the name clause. Unknown kinds are preserved as-is so the
// resolver can record them as failed attempts instead of aborting the run.
func Parse(entries []string) []Strategy {
	parsed := make([]Strategy, 0, len(entries))
	for _, e := range entries {
		kind, query, ok := strings.Cut(e, ":")
		if !ok {
			continue
		}
		kind = strings.TrimSpace(kind)
		query = strings.TrimSpace(query)

		if kind == "role" {
			// role: link[name=/pricing/i] → aria: pricing
			if m := roleNameRe.FindStringSubmatch(query); m != nil {
				query = strings.TrimSuffix(m[1], "/i")
				query = strings.Trim(query, "/")
			}
			kind = string(Aria)
		}

		parsed = append(parsed, Strategy{Kind: Kind(kind), Query: query})
	}
	return parsed
}

// DefaultStrategies builds the standard fallback chain for a link with the
// given visible text: accessible name, visible text, href substring, and a
// case-insensitive XPath.
func DefaultStrategies(text string) []Strategy {
	lower := strings.ToLower(text)
	return []Strategy{
		{Kind: Aria, Query: text},
		{Kind: Text, Query: text},
		{Kind: CSS, Query: fmt.Sprintf(`a[href*="%s"]`, lower)},
		{Kind: XPath, Query: fmt.Sprintf(`//a[contains(translate(., %q, %q), %q)]`, strings.ToUpper(text), lower, lower)},
	}
}
