package selector

import "context"

// Clicker resolves a single strategy against the live page and clicks the
// matched element. Implementations return a strategy-specific error when
// the element cannot be found, is not visible, or the click times out.
type Clicker interface {
	Click(ctx context.Context, s Strategy) error
}

// Inspector resolves a single strategy without side effects, reporting
// whether an element matched and a bounded snippet of its outer markup.
type Inspector interface {
	Inspect(ctx context.Context, s Strategy) (Inspection, error)
}

// Inspection is the read-only view of one matched (or unmatched) element.
type Inspection struct {
	Found   bool   `json:"found"`
	Snippet string `json:"outer_html,omitempty"`
}

// Attempt records one resolution try. Successful attempts carry only the
// strategy identity; failures also carry the error detail.
type Attempt struct {
	Strategy
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Result is the outcome of an ordered resolution. Chosen is nil when every
// strategy failed; Attempts always holds the complete trail.
type Result struct {
	Chosen   *Strategy
	Attempts []Attempt
}

const unknownStrategyError = "unknown strategy"

// Click tries each strategy strictly in order, returning on the first one
// whose resolution and click both succeed. Every strategy produces an
// attempt record; an unrecognized kind is recorded as a failed attempt and
// resolution continues with the next strategy.
func Click(ctx context.Context, c Clicker, strategies []Strategy) Result {
	var res Result
	for _, s := range strategies {
		if !s.Known() {
			res.Attempts = append(res.Attempts, Attempt{Strategy: s, Error: unknownStrategyError})
			continue
		}
		if err := c.Click(ctx, s); err != nil {
			res.Attempts = append(res.Attempts, Attempt{Strategy: s, Error: err.Error()})
			continue
		}
		res.Attempts = append(res.Attempts, Attempt{Strategy: s, OK: true})
		chosen := s
		res.Chosen = &chosen
		return res
	}
	return res
}

// InspectionRecord pairs a strategy with its read-only inspection outcome.
type InspectionRecord struct {
	Strategy
	Found   bool   `json:"found"`
	Snippet string `json:"outer_html,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Inspect evaluates every strategy in the list — no short-circuit — and
// returns the found/not-found state of each. This supports diagnostic
// extraction separate from action-oriented clicking.
func Inspect(ctx context.Context, ins Inspector, strategies []Strategy) []InspectionRecord {
	records := make([]InspectionRecord, 0, len(strategies))
	for _, s := range strategies {
		if !s.Known() {
			records = append(records, InspectionRecord{Strategy: s, Error: unknownStrategyError})
			continue
		}
		info, err := ins.Inspect(ctx, s)
		if err != nil {
			records = append(records, InspectionRecord{Strategy: s, Error: err.Error()})
			continue
		}
		records = append(records, InspectionRecord{Strategy: s, Found: info.Found, Snippet: info.Snippet})
	}
	return records
}
