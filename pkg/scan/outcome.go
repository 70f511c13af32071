package scan

import (
	"time"

	"cardscan/pkg/catalog"
	"cardscan/pkg/ocr"
)

// Step is one entry of an outcome's trace.
type Step struct {
	State  State     `json:"state"`
	At     time.Time `json:"at"`
	Reason Reason    `json:"reason,omitempty"`
	Note   string    `json:"note,omitempty"`
}

// Outcome is the terminal result for one image. Exactly one is produced per
// submitted image and it is not changed afterwards.
type Outcome struct {
	ID         string          `json:"id"`
	Source     string          `json:"source"`
	State      State           `json:"state"`
	Accepted   bool            `json:"accepted"`
	Method     Method          `json:"method,omitempty"`
	Record     *catalog.Record `json:"record,omitempty"`
	Confidence *float64        `json:"confidence,omitempty"`
	Identifier string          `json:"identifier,omitempty"`
	Hint       string          `json:"hint,omitempty"`
	Match      *catalog.Match  `json:"match,omitempty"`
	Reason     Reason          `json:"reason,omitempty"`
	Message    string          `json:"message,omitempty"`
	Attempts   []ocr.Attempt   `json:"attempts,omitempty"`
	Trace      []Step          `json:"trace"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Duration is how long the scan took.
func (o Outcome) Duration() time.Duration { return o.FinishedAt.Sub(o.StartedAt) }

// Visited reports whether the scan passed through s.
func (o Outcome) Visited(s State) bool {
	for _, st := range o.Trace {
		if st.State == s {
			return true
		}
	}
	return false
}
