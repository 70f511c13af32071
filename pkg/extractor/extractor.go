// Package extractor calls a remote vision model to read a card identifier
// when local recognition was inconclusive. Every call costs money, so
// nothing here retries.
package extractor

import (
	"context"
	"errors"
	"fmt"
)

// Prompt asks for the identifier and the character name as a JSON object.
const Prompt = `You are reading a photographed collectible card.
Return only a JSON object with two fields:
  "cardNumber": the card identifier printed on the card, formatted PREFIX-NUMBER (for example "SC-045"),
  "hero": the character or card name printed on the card, or "" if you cannot read it.
Do not add any other text.`

// Extraction is the structured answer of a remote model.
type Extraction struct {
	CardNumber string `json:"cardNumber"`
	Hero       string `json:"hero,omitempty"`
}

// Extractor reads a compressed card image remotely.
type Extractor interface {
	Extract(ctx context.Context, jpeg []byte) (Extraction, error)
	Ready() bool
	Name() string
}

var (
	// ErrUnavailable is returned when the extractor has no usable client.
	ErrUnavailable = errors.New("paid extractor unavailable")

	// ErrNetwork covers transport failures and non-success responses.
	ErrNetwork = errors.New("paid extractor request failed")

	// ErrInvalidResponse is returned for empty or unparsable bodies and for
	// answers without a card number.
	ErrInvalidResponse = errors.New("paid extractor returned an invalid response")
)

// Error wraps a failure with the provider operation and detail.
type Error struct {
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("extractor: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("extractor: %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(op string, err error, details string) *Error {
	return &Error{Op: op, Err: err, Details: details}
}
