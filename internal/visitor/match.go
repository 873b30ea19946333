package visitor

import "fmt"

// Outcome classifies a match attempt.
type Outcome string

const (
	OutcomeMatched         Outcome = "matched"
	OutcomeNoMatch         Outcome = "no_match"
	OutcomeTransportError  Outcome = "transport_error"
	OutcomeServerError     Outcome = "server_error"
	OutcomeUnauthenticated Outcome = "unauthenticated"
	OutcomeCancelled       Outcome = "cancelled"
)

// MatchResult is what the returning-visitor lookup produced. Visitor is set only when
// Outcome is OutcomeMatched.
type MatchResult struct {
	Outcome     Outcome `json:"outcome"`
	Visitor     *Record `json:"visitor,omitempty"`
	Distance    float64 `json:"distance,omitempty"`
	HasDistance bool    `json:"-"`
	Message     string  `json:"message,omitempty"`
	Next        string  `json:"next,omitempty"` // screen to move to, empty to stay
}

func (r MatchResult) Matched() bool {
	return r.Outcome == OutcomeMatched && r.Visitor != nil
}

// Confidence renders the match distance for display, or "" when the backend sent none.
func (r MatchResult) Confidence() string {
	if !r.HasDistance {
		return ""
	}
	return ConfidencePercent(r.Distance)
}

// ConfidencePercent formats (1 - distance) as a percentage with one decimal.
// Display only; whether a face matched is decided by the backend.
func ConfidencePercent(distance float64) string {
	return fmt.Sprintf("%.1f%%", (1-distance)*100)
}
