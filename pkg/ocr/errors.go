package ocr

import "errors"

var (
	// ErrRecognizerUnavailable is returned when the recognition engine failed
	// to initialize or has been closed.
	ErrRecognizerUnavailable = errors.New("recognizer unavailable")

	// ErrNoRegions is returned when a strategy has nothing to read.
	ErrNoRegions = errors.New("no regions configured")
)
