// Package scan drives one card image from recognition to a catalog record,
// falling back to a paid remote extractor only when the free path is
// inconclusive.
package scan

// State is a step of the scan state machine.
type State string

const (
	StateDetecting       State = "detecting"
	StateReadingFree     State = "reading_free"
	StateMatchingFree    State = "matching_free"
	StateAcceptedFree    State = "accepted_free"
	StateFallbackPending State = "fallback_pending"
	StateReadingPaid     State = "reading_paid"
	StateMatchingPaid    State = "matching_paid"
	StateAcceptedPaid    State = "accepted_paid"
	StateFailed          State = "failed"
)

var transitions = map[State][]State{
	StateDetecting:       {StateReadingFree, StateFailed},
	StateReadingFree:     {StateMatchingFree, StateFallbackPending},
	StateMatchingFree:    {StateAcceptedFree, StateFallbackPending, StateFailed},
	StateFallbackPending: {StateReadingPaid, StateFailed},
	StateReadingPaid:     {StateMatchingPaid, StateFailed},
	StateMatchingPaid:    {StateAcceptedPaid, StateFailed},
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateAcceptedFree || s == StateAcceptedPaid || s == StateFailed
}

// CanTransition reports whether from -> to is an edge of the machine.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Reason classifies why a path did not produce a record.
type Reason string

const (
	ReasonParseFailure          Reason = "parse_failure"
	ReasonLowConfidence         Reason = "low_confidence"
	ReasonAmbiguousMatch        Reason = "ambiguous_match"
	ReasonNotFound              Reason = "not_found"
	ReasonCapabilityUnavailable Reason = "capability_unavailable"
	ReasonNetworkFailure        Reason = "network_failure"
	ReasonInvalidResponse       Reason = "invalid_response"
	ReasonCatalogUnavailable    Reason = "catalog_unavailable"
	ReasonInvalidImage          Reason = "invalid_image"
	ReasonCanceled              Reason = "canceled"
)

// Method says which path accepted a record.
type Method string

const (
	MethodFree Method = "free"
	MethodPaid Method = "paid"
)
