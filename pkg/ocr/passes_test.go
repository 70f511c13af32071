package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

type scriptedRecognizer struct {
	out   []Recognition
	errs  []error
	calls int
	ready bool
}

func (s *scriptedRecognizer) Ready() bool { return s.ready }

func (s *scriptedRecognizer) Recognize(_ context.Context, _ *image.Gray) (Recognition, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return Recognition{}, s.errs[i]
	}
	if i < len(s.out) {
		return s.out[i], nil
	}
	return Recognition{}, nil
}

func blankCard() image.Image {
	return imaging.New(250, 350, color.NRGBA{255, 255, 255, 255})
}

func TestStrategyStopsAtFirstParsedRegion(t *testing.T) {
	rec := &scriptedRecognizer{ready: true, out: []Recognition{{Text: "SC O45", Confidence: 72}, {Text: "XX-99", Confidence: 95}}}
	r, err := NewRegionStrategy(rec).Read(context.Background(), blankCard())
	if err != nil {
		t.Fatal(err)
	}
	if rec.calls != 1 {
		t.Fatalf("expected early exit after first region, calls=%d", rec.calls)
	}
	if r.Best.Identifier != "SC-045" || r.Best.Region != "bottom-left" {
		t.Fatalf("unexpected best %+v", r.Best)
	}
}

func TestStrategyFallsToSecondRegion(t *testing.T) {
	rec := &scriptedRecognizer{ready: true, out: []Recognition{{Text: "~~", Confidence: 90}, {Text: "KB 12", Confidence: 40}}}
	r, err := NewRegionStrategy(rec).Read(context.Background(), blankCard())
	if err != nil {
		t.Fatal(err)
	}
	if r.Best.Identifier != "KB-12" || r.Best.Region != "bottom-right" || len(r.Attempts) != 2 {
		t.Fatalf("unexpected reading %+v", r)
	}
}

func TestStrategyReturnsHigherConfidenceWhenNothingParses(t *testing.T) {
	rec := &scriptedRecognizer{ready: true, out: []Recognition{{Text: "...", Confidence: 30}, {Text: "???", Confidence: 55}}}
	r, err := NewRegionStrategy(rec).Read(context.Background(), blankCard())
	if err != nil {
		t.Fatal(err)
	}
	if r.Best.Parsed() || r.Best.Region != "bottom-right" || r.Best.Confidence != 55 {
		t.Fatalf("unexpected best %+v", r.Best)
	}
}

func TestStrategyUnavailable(t *testing.T) {
	_, err := NewRegionStrategy(&scriptedRecognizer{}).Read(context.Background(), blankCard())
	if !errors.Is(err, ErrRecognizerUnavailable) {
		t.Fatalf("expected ErrRecognizerUnavailable got %v", err)
	}
}

func TestStrategyAllRegionsFail(t *testing.T) {
	boom := errors.New("engine crashed")
	rec := &scriptedRecognizer{ready: true, errs: []error{boom, boom}}
	_, err := NewRegionStrategy(rec).Read(context.Background(), blankCard())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped engine error got %v", err)
	}
}

func TestStrategyCustomRegions(t *testing.T) {
	rec := &scriptedRecognizer{ready: true, out: []Recognition{{Text: "AB-1", Confidence: 80}}}
	s := NewRegionStrategy(rec, WithRegions([]Region{{Name: "top", X: 0, Y: 0, W: 1, H: 0.2}}))
	r, err := s.Read(context.Background(), blankCard())
	if err != nil || r.Best.Region != "top" {
		t.Fatalf("unexpected reading %+v err=%v", r, err)
	}
}
