package browser

import (
	"strings"
	"testing"

	"github.com/evidenceworks/webproof/pkg/selector"
)

func TestToQueryMapsStrategyKinds(t *testing.T) {
	tests := []struct {
		s       selector.Strategy
		want    string
		wantErr bool
	}{
		{s: selector.Strategy{Kind: selector.CSS, Query: "#login"}, want: "#login"},
		{s: selector.Strategy{Kind: selector.XPath, Query: "//a[1]"}, want: "//a[1]"},
		{s: selector.Strategy{Kind: selector.Text, Query: "Pricing"}, want: `//*[text()[contains(., 'Pricing')]]`},
		{s: selector.Strategy{Kind: "warp", Query: "x"}, wantErr: true},
	}
	for _, tt := range tests {
		got, _, err := toQuery(tt.s)
		if tt.wantErr {
			if err == nil {
				t.Errorf("toQuery(%v): expected error", tt.s)
			}
			continue
		}
		if err != nil {
			t.Errorf("toQuery(%v): %v", tt.s, err)
			continue
		}
		if got != tt.want {
			t.Errorf("toQuery(%v) = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestAriaXPathIsCaseInsensitive(t *testing.T) {
	q := ariaXPath("Pricing")
	if !strings.Contains(q, "'pricing'") {
		t.Errorf("aria xpath should compare lowercased text: %s", q)
	}
	if !strings.Contains(q, "@aria-label") {
		t.Errorf("aria xpath should also match aria-label: %s", q)
	}
}

func TestXPathStringQuoting(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain", "'plain'"},
		{"it's", `"it's"`},
		{`both ' and "`, `concat('both ', "'", ' and "')`},
	}
	for _, tt := range tests {
		if got := xpathString(tt.in); got != tt.want {
			t.Errorf("xpathString(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
