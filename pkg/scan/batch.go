package scan

import (
	"context"
	"image"
	"time"
)

// DefaultYieldGap is the pause between two images of a batch.
const DefaultYieldGap = 50 * time.Millisecond

// Item is one image of a batch. Open is called only when the item's turn
// comes so a large batch does not hold every decoded image at once.
type Item struct {
	Source string
	Open   func() (image.Image, error)
}

// Batch scans items one after another, each to a terminal state, pausing
// between them. Cancellation is checked between images only; items not
// started when ctx ends get a canceled outcome, so the result always has one
// outcome per item, in order. each, when non-nil, sees every outcome as it is
// produced.
func (o *Orchestrator) Batch(ctx context.Context, items []Item, each func(Outcome)) []Outcome {
	outs := make([]Outcome, 0, len(items))
	emit := func(out Outcome) {
		outs = append(outs, out)
		if each != nil {
			each(out)
		}
	}
	for i, it := range items {
		if i > 0 && o.gap > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(o.gap):
			}
		}
		if ctx.Err() != nil {
			emit(o.skipped(it.Source, ReasonCanceled, "batch canceled before this image started"))
			continue
		}
		img, err := it.Open()
		if err != nil {
			emit(o.skipped(it.Source, ReasonInvalidImage, err.Error()))
			continue
		}
		emit(o.Scan(ctx, img, it.Source))
	}
	return outs
}

// skipped produces the outcome of an image that never reached the pipeline.
func (o *Orchestrator) skipped(source string, reason Reason, msg string) Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	r := o.newRun(source)
	r.enter(StateDetecting, "", "")
	return o.fail(r, reason, msg)
}
