package ocr

// bestAttempt picks the attempt to report when no region parsed: highest
// confidence, earlier region on ties.
func bestAttempt(attempts []Attempt) Attempt {
	if len(attempts) == 0 {
		return Attempt{}
	}
	best := attempts[0]
	for _, a := range attempts[1:] {
		if a.Confidence > best.Confidence {
			best = a
		}
	}
	return best
}
