package scan

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"

	"cardscan/pkg/catalog"
	"cardscan/pkg/extractor"
	"cardscan/pkg/ocr"
)

type fakeRecognizer struct {
	texts []ocr.Recognition
	calls int
	ready bool
}

func (f *fakeRecognizer) Ready() bool { return f.ready }

func (f *fakeRecognizer) Recognize(_ context.Context, _ *image.Gray) (ocr.Recognition, error) {
	i := f.calls
	f.calls++
	if i < len(f.texts) {
		return f.texts[i], nil
	}
	return ocr.Recognition{}, nil
}

type fakeExtractor struct {
	out   extractor.Extraction
	err   error
	calls int
	bytes int
}

func (f *fakeExtractor) Name() string { return "fake" }
func (f *fakeExtractor) Ready() bool  { return true }
func (f *fakeExtractor) Extract(_ context.Context, jpeg []byte) (extractor.Extraction, error) {
	f.calls++
	f.bytes = len(jpeg)
	return f.out, f.err
}

// countingResolver records whether matching was attempted.
type countingResolver struct {
	*catalog.Matcher
	calls int
}

func (c *countingResolver) Match(id, hint string) catalog.Match {
	c.calls++
	return c.Matcher.Match(id, hint)
}

func card() image.Image {
	return imaging.New(250, 350, color.NRGBA{240, 240, 240, 255})
}

func records(recs ...catalog.Record) *countingResolver {
	return &countingResolver{Matcher: catalog.NewMatcher(catalog.New(recs))}
}

func strategy(texts ...ocr.Recognition) (*ocr.RegionStrategy, *fakeRecognizer) {
	rec := &fakeRecognizer{ready: true, texts: texts}
	return ocr.NewRegionStrategy(rec), rec
}

func TestScanEndToEndFree(t *testing.T) {
	reader, _ := strategy(ocr.Recognition{Text: "SC O45", Confidence: 72})
	tally := NewTally()
	o := New(reader, records(catalog.Record{Identifier: "SC-045", Name: "Bo"}), WithSink(tally))
	out := o.Scan(context.Background(), card(), "front.jpg")
	if !out.Accepted || out.State != StateAcceptedFree || out.Method != MethodFree {
		t.Fatalf("expected free acceptance, got %+v", out)
	}
	if out.Record.Name != "Bo" || out.Identifier != "SC-045" || out.Confidence == nil || *out.Confidence != 72 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out.ID == "" || len(out.Trace) != 4 {
		t.Fatalf("expected id and 4-step trace, got %q %+v", out.ID, out.Trace)
	}
	if s := tally.Snapshot(); s.FreeAccepted != 1 || s.CostUnits != 0 {
		t.Fatalf("unexpected tally %+v", s)
	}
}

func TestScanLowConfidenceSkipsFreeMatching(t *testing.T) {
	reader, _ := strategy(ocr.Recognition{Text: "SC-045", Confidence: 40})
	res := records(catalog.Record{Identifier: "SC-045", Name: "Bo"})
	out := New(reader, res).Scan(context.Background(), card(), "x")
	if res.calls != 0 || out.Visited(StateMatchingFree) {
		t.Fatalf("low confidence must not reach matching, calls=%d trace=%+v", res.calls, out.Trace)
	}
	if !out.Visited(StateFallbackPending) {
		t.Fatalf("expected fallback, trace=%+v", out.Trace)
	}
	if out.Trace[1].Reason != ReasonLowConfidence {
		t.Fatalf("expected low confidence note, got %+v", out.Trace[1])
	}
	if out.Accepted || out.Reason != ReasonCapabilityUnavailable {
		t.Fatalf("expected capability failure, got %+v", out)
	}
}

func TestScanNoIdentifierNoPaid(t *testing.T) {
	reader, _ := strategy(ocr.Recognition{Text: "~~", Confidence: 90}, ocr.Recognition{Text: "..", Confidence: 20})
	out := New(reader, records(catalog.Record{Identifier: "SC-045", Name: "Bo"})).Scan(context.Background(), card(), "x")
	if out.State != StateFailed || out.Reason != ReasonCapabilityUnavailable {
		t.Fatalf("expected Failed{CapabilityUnavailable}, got %+v", out)
	}
	if out.Trace[1].Reason != ReasonParseFailure || len(out.Attempts) != 2 {
		t.Fatalf("expected parse failure with both attempts, got %+v", out)
	}
}

func TestScanPaidResolvesWithHint(t *testing.T) {
	reader, _ := strategy()
	ex := &fakeExtractor{out: extractor.Extraction{CardNumber: "sc o45", Hero: "Ken"}}
	tally := NewTally()
	o := New(reader, records(
		catalog.Record{Identifier: "SC-045", Name: "Bo"},
		catalog.Record{Identifier: "SC-045", Name: "Ken"},
	), WithPaidExtractor(ex), WithSink(tally), WithCostUnits(3))
	out := o.Scan(context.Background(), card(), "x")
	if out.State != StateAcceptedPaid || out.Method != MethodPaid || out.Record.Name != "Ken" {
		t.Fatalf("expected paid acceptance of Ken, got %+v", out)
	}
	if out.Confidence != nil || out.Identifier != "SC-045" || out.Hint != "Ken" {
		t.Fatalf("unexpected paid outcome %+v", out)
	}
	if ex.calls != 1 || ex.bytes == 0 {
		t.Fatalf("extractor must be called once with an image, calls=%d", ex.calls)
	}
	s := tally.Snapshot()
	if s.PaidAccepted != 1 || s.PaidCalls != 1 || s.CostUnits != 3 {
		t.Fatalf("unexpected tally %+v", s)
	}
}

func TestScanFreeAmbiguousFallsBackToPaid(t *testing.T) {
	reader, _ := strategy(ocr.Recognition{Text: "SC-045", Confidence: 90})
	ex := &fakeExtractor{out: extractor.Extraction{CardNumber: "SC-045", Hero: "Bo"}}
	out := New(reader, records(
		catalog.Record{Identifier: "SC-045", Name: "Bo"},
		catalog.Record{Identifier: "SC-045", Name: "Ken"},
	), WithPaidExtractor(ex)).Scan(context.Background(), card(), "x")
	if out.State != StateAcceptedPaid || out.Record.Name != "Bo" {
		t.Fatalf("expected paid acceptance, got %+v", out)
	}
	if !out.Visited(StateMatchingFree) || out.Trace[2].Reason != ReasonAmbiguousMatch {
		t.Fatalf("free ambiguity should be traced, got %+v", out.Trace)
	}
}

func TestScanPaidFailures(t *testing.T) {
	cases := []struct {
		name string
		ex   *fakeExtractor
		want Reason
	}{
		{"invalid", &fakeExtractor{err: &extractor.Error{Op: "t", Err: extractor.ErrInvalidResponse}}, ReasonInvalidResponse},
		{"network", &fakeExtractor{err: &extractor.Error{Op: "t", Err: extractor.ErrNetwork}}, ReasonNetworkFailure},
		{"not found", &fakeExtractor{out: extractor.Extraction{CardNumber: "ZZ-999", Hero: "Bo"}}, ReasonNotFound},
		{"ambiguous", &fakeExtractor{out: extractor.Extraction{CardNumber: "SC-047"}}, ReasonAmbiguousMatch},
	}
	for _, c := range cases {
		reader, _ := strategy()
		tally := NewTally()
		out := New(reader, records(
			catalog.Record{Identifier: "SC-045", Name: "Bo"},
			catalog.Record{Identifier: "SC-046", Name: "Ken"},
		), WithPaidExtractor(c.ex), WithSink(tally)).Scan(context.Background(), card(), c.name)
		if out.State != StateFailed || out.Reason != c.want || out.Message == "" {
			t.Fatalf("%s: expected %s, got %+v", c.name, c.want, out)
		}
		if c.ex.calls != 1 {
			t.Fatalf("%s: paid path must not retry, calls=%d", c.name, c.ex.calls)
		}
		if s := tally.Snapshot(); s.CostUnits != 0 || s.Failed[c.want] != 1 {
			t.Fatalf("%s: unexpected tally %+v", c.name, s)
		}
	}
}

func TestScanCatalogUnavailable(t *testing.T) {
	reader, rec := strategy(ocr.Recognition{Text: "SC-045", Confidence: 99})
	out := New(reader, catalog.NewMatcher(&catalog.Catalog{})).Scan(context.Background(), card(), "x")
	if out.Reason != ReasonCatalogUnavailable || rec.calls != 0 {
		t.Fatalf("expected immediate CatalogUnavailable, got %+v (calls=%d)", out, rec.calls)
	}
}

func TestScanRecognizerNotReadyUsesPaid(t *testing.T) {
	reader := ocr.NewRegionStrategy(&fakeRecognizer{})
	ex := &fakeExtractor{out: extractor.Extraction{CardNumber: "SC-045", Hero: "Bo"}}
	out := New(reader, records(catalog.Record{Identifier: "SC-045", Name: "Bo"}), WithPaidExtractor(ex)).
		Scan(context.Background(), card(), "x")
	if out.State != StateAcceptedPaid || out.Trace[1].Reason != ReasonCapabilityUnavailable {
		t.Fatalf("expected paid acceptance after unavailable recognizer, got %+v", out)
	}
}

type markRectifier struct{ called bool }

func (m *markRectifier) Rectify(_ context.Context, img image.Image) (image.Image, error) {
	m.called = true
	return imaging.Clone(img), nil
}

type brokenRectifier struct{}

func (brokenRectifier) Rectify(context.Context, image.Image) (image.Image, error) {
	return nil, errors.New("no card edges")
}

func TestScanRectifier(t *testing.T) {
	reader, _ := strategy(ocr.Recognition{Text: "SC-045", Confidence: 80})
	mark := &markRectifier{}
	out := New(reader, records(catalog.Record{Identifier: "SC-045", Name: "Bo"}), WithRectifier(mark)).
		Scan(context.Background(), card(), "x")
	if !mark.called || !out.Accepted {
		t.Fatalf("rectifier must run before reading, got %+v", out)
	}

	reader, _ = strategy(ocr.Recognition{Text: "SC-045", Confidence: 80})
	out = New(reader, records(catalog.Record{Identifier: "SC-045", Name: "Bo"}), WithRectifier(brokenRectifier{})).
		Scan(context.Background(), card(), "x")
	if !out.Accepted {
		t.Fatalf("a failing rectifier must not fail the scan, got %+v", out)
	}
}

func TestThresholdOption(t *testing.T) {
	reader, _ := strategy(ocr.Recognition{Text: "SC-045", Confidence: 72})
	out := New(reader, records(catalog.Record{Identifier: "SC-045", Name: "Bo"}), WithThreshold(80)).
		Scan(context.Background(), card(), "x")
	if out.Accepted {
		t.Fatalf("72 is below a threshold of 80, got %+v", out)
	}
}

func TestTransitions(t *testing.T) {
	if !CanTransition(StateReadingFree, StateFallbackPending) || CanTransition(StateReadingFree, StateAcceptedFree) {
		t.Fatalf("free reading must go through matching before acceptance")
	}
	if CanTransition(StateMatchingPaid, StateFallbackPending) {
		t.Fatalf("paid path has no fallback")
	}
	for _, s := range []State{StateAcceptedFree, StateAcceptedPaid, StateFailed} {
		if !s.Terminal() || len(transitions[s]) != 0 {
			t.Fatalf("%s must be terminal", s)
		}
	}
}

func TestCapabilities(t *testing.T) {
	reader, _ := strategy()
	c := New(reader, records(catalog.Record{Identifier: "A-1"})).Capabilities()
	if !c.Catalog || !c.Recognizer || c.Paid {
		t.Fatalf("unexpected capabilities %+v", c)
	}
}
