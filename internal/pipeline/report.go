package pipeline

import (
	"fmt"
	"strings"
)

// ItemError records a single posting that failed a pipeline stage. Per-item
// failures never abort the run; they accumulate here instead.
type ItemError struct {
	SourceURL string `json:"source_url"`
	Stage     string `json:"stage"`
	Reason    string `json:"reason"`
}

// Report aggregates the counters of one pipeline run. Scanned always equals
// the size of the input batch; the remaining counters partition what happened
// to each posting.
type Report struct {
	Scanned      int         `json:"scanned"`
	Deduplicated int         `json:"deduplicated"`
	Flagged      int         `json:"flagged"`
	Scored       int         `json:"scored"`
	Queued       int         `json:"queued"`
	Rejected     int         `json:"rejected"`
	Applied      int         `json:"applied"`
	Errors       []ItemError `json:"errors,omitempty"`
}

// Summary renders the report as a human-readable block, suitable for the
// console and the report email body.
func (r *Report) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Pipeline run summary\n")
	fmt.Fprintf(&b, "  scanned:      %d\n", r.Scanned)
	fmt.Fprintf(&b, "  deduplicated: %d\n", r.Deduplicated)
	fmt.Fprintf(&b, "  flagged:      %d\n", r.Flagged)
	fmt.Fprintf(&b, "  scored:       %d\n", r.Scored)
	fmt.Fprintf(&b, "  queued:       %d\n", r.Queued)
	fmt.Fprintf(&b, "  rejected:     %d\n", r.Rejected)
	fmt.Fprintf(&b, "  applied:      %d\n", r.Applied)
	fmt.Fprintf(&b, "  errors:       %d\n", len(r.Errors))

	for _, e := range r.Errors {
		fmt.Fprintf(&b, "    [%s] %s: %s\n", e.Stage, e.SourceURL, e.Reason)
	}

	return b.String()
}
