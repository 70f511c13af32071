package ocr

import "testing"

func TestBestAttemptTieKeepsFirst(t *testing.T) {
	got := bestAttempt([]Attempt{{Region: "a", Confidence: 50}, {Region: "b", Confidence: 50}})
	if got.Region != "a" {
		t.Fatalf("tie should keep the earlier region, got %s", got.Region)
	}
}

func TestBestAttemptHigherConfidence(t *testing.T) {
	got := bestAttempt([]Attempt{{Region: "a", Confidence: 10}, {Region: "b", Confidence: 70}})
	if got.Region != "b" {
		t.Fatalf("expected b got %s", got.Region)
	}
}
