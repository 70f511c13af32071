package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cardscan/pkg/catalog"
	"cardscan/pkg/extractor"
	"cardscan/pkg/logger"
	"cardscan/pkg/ocr"
)

// DefaultThreshold is the minimum free-path confidence for catalog matching.
const DefaultThreshold = 60

// Reader reads identifier candidates from a card image.
type Reader interface {
	Read(ctx context.Context, img image.Image) (ocr.Reading, error)
	Ready() bool
}

// Resolver resolves identifiers against the catalog.
type Resolver interface {
	Match(identifier, hint string) catalog.Match
	Ready() bool
}

// Rectifier is an optional upstream step that finds the card boundary and
// corrects perspective before reading.
type Rectifier interface {
	Rectify(ctx context.Context, img image.Image) (image.Image, error)
}

// Orchestrator owns the branching between the free and paid paths. Scans are
// serialized: the recognizer session and the paid budget are shared.
type Orchestrator struct {
	mu sync.Mutex

	reader    Reader
	resolver  Resolver
	paid      extractor.Extractor
	rectifier Rectifier
	sink      Sink

	threshold float64
	maxSide   int
	quality   int
	costUnits int64
	gap       time.Duration

	log zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPaidExtractor enables the paid path. A nil extractor leaves it absent.
func WithPaidExtractor(ex extractor.Extractor) Option {
	return func(o *Orchestrator) { o.paid = ex }
}

// WithRectifier installs a boundary and perspective correction step.
func WithRectifier(r Rectifier) Option {
	return func(o *Orchestrator) { o.rectifier = r }
}

// WithSink sets where acceptances, failures and costs are reported.
func WithSink(s Sink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

// WithThreshold sets the free-path confidence floor.
func WithThreshold(t float64) Option {
	return func(o *Orchestrator) { o.threshold = t }
}

// WithCompression sets the longest side and JPEG quality of paid uploads.
func WithCompression(maxSide, quality int) Option {
	return func(o *Orchestrator) { o.maxSide, o.quality = maxSide, quality }
}

// WithCostUnits sets the cost charged per paid acceptance.
func WithCostUnits(n int64) Option {
	return func(o *Orchestrator) { o.costUnits = n }
}

// WithYieldGap sets the pause between images of a batch.
func WithYieldGap(d time.Duration) Option {
	return func(o *Orchestrator) { o.gap = d }
}

// WithLogger sets the orchestrator logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// New builds an orchestrator around a reader and a resolver.
func New(reader Reader, resolver Resolver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		reader:    reader,
		resolver:  resolver,
		sink:      NewTally(),
		threshold: DefaultThreshold,
		maxSide:   extractor.DefaultMaxSide,
		quality:   extractor.DefaultJPEGQuality,
		costUnits: 1,
		gap:       DefaultYieldGap,
		log:       logger.WithComponent("scan"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Capabilities reports the readiness of every collaborator.
type Capabilities struct {
	Catalog    bool   `json:"catalog"`
	Recognizer bool   `json:"recognizer"`
	Paid       bool   `json:"paid"`
	PaidName   string `json:"paid_provider,omitempty"`
}

// Capabilities queries readiness without scanning.
func (o *Orchestrator) Capabilities() Capabilities {
	c := Capabilities{
		Catalog:    o.resolver != nil && o.resolver.Ready(),
		Recognizer: o.reader != nil && o.reader.Ready(),
	}
	if o.paid != nil {
		c.Paid = o.paid.Ready()
		c.PaidName = o.paid.Name()
	}
	return c
}

// Scan runs one image to a terminal state.
func (o *Orchestrator) Scan(ctx context.Context, img image.Image, source string) Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()

	r := o.newRun(source)
	r.enter(StateDetecting, "", "")
	if o.resolver == nil || !o.resolver.Ready() {
		return o.fail(r, ReasonCatalogUnavailable, "catalog is not loaded")
	}
	if o.rectifier != nil {
		if fixed, err := o.rectifier.Rectify(ctx, img); err != nil {
			r.log.Warn().Err(err).Msg("rectification failed, reading original image")
		} else if fixed != nil {
			img = fixed
		}
	}

	r.enter(StateReadingFree, "", "")
	if o.free(ctx, r, img) {
		return o.accept(r, StateAcceptedFree)
	}

	r.enter(StateFallbackPending, "", "")
	if o.paid == nil || !o.paid.Ready() {
		return o.fail(r, ReasonCapabilityUnavailable, "free path inconclusive and no paid extractor is configured")
	}
	return o.paidPath(ctx, r, img)
}

// free runs the local path. It reports true when a record was accepted; every
// other result leaves a reason in the trace and routes to the fallback.
func (o *Orchestrator) free(ctx context.Context, r *run, img image.Image) bool {
	if o.reader == nil || !o.reader.Ready() {
		r.note(ReasonCapabilityUnavailable, "recognizer not ready")
		return false
	}
	reading, err := o.reader.Read(ctx, img)
	r.out.Attempts = reading.Attempts
	if err != nil {
		r.log.Warn().Err(err).Msg("free read failed")
		r.note(ReasonCapabilityUnavailable, err.Error())
		return false
	}
	best := reading.Best
	if !best.Parsed() {
		r.note(ReasonParseFailure, fmt.Sprintf("no identifier in %q", best.RawText))
		return false
	}
	if best.Confidence < o.threshold {
		r.note(ReasonLowConfidence, fmt.Sprintf("%s at %.1f below %.1f", best.Identifier, best.Confidence, o.threshold))
		return false
	}

	r.enter(StateMatchingFree, "", "")
	m := o.resolver.Match(best.Identifier, "")
	r.out.Identifier = best.Identifier
	r.out.Match = &m
	if !m.Resolved() {
		r.note(reasonFor(m.Status), fmt.Sprintf("%s: %s", best.Identifier, m.Status))
		return false
	}
	conf := best.Confidence
	r.out.Method = MethodFree
	r.out.Record = m.Record
	r.out.Confidence = &conf
	return true
}

func (o *Orchestrator) paidPath(ctx context.Context, r *run, img image.Image) Outcome {
	r.enter(StateReadingPaid, "", o.paid.Name())
	data, err := extractor.Compress(img, o.maxSide, o.quality)
	if err != nil {
		return o.fail(r, ReasonInvalidImage, err.Error())
	}
	o.sink.PaidCall()
	ex, err := o.paid.Extract(ctx, data)
	if err != nil {
		return o.fail(r, reasonForExtract(err), err.Error())
	}
	id, ok := ocr.ExtractIdentifier(ex.CardNumber)
	if !ok {
		id = catalog.NormalizeIdentifier(ex.CardNumber)
	}
	if ex.Hero == "" {
		r.log.Warn().Str("identifier", id).Msg("paid extractor returned no name; disambiguation will be weaker")
	}

	r.enter(StateMatchingPaid, "", "")
	m := o.resolver.Match(id, ex.Hero)
	r.out.Identifier = id
	r.out.Hint = ex.Hero
	r.out.Match = &m
	r.out.Confidence = nil
	if !m.Resolved() {
		return o.fail(r, reasonFor(m.Status), fmt.Sprintf("%s (%s): %s", id, ex.Hero, m.Status))
	}
	r.out.Method = MethodPaid
	r.out.Record = m.Record
	o.sink.Cost(o.costUnits)
	return o.accept(r, StateAcceptedPaid)
}

func (o *Orchestrator) accept(r *run, s State) Outcome {
	r.enter(s, "", "")
	r.out.Accepted = true
	out := r.finish()
	o.sink.Accepted(out)
	r.log.Info().Str("method", string(out.Method)).Str("identifier", out.Record.Identifier).
		Str("name", out.Record.Name).Dur("took", out.Duration()).Msg("card accepted")
	return out
}

func (o *Orchestrator) fail(r *run, reason Reason, msg string) Outcome {
	r.enter(StateFailed, reason, msg)
	r.out.Accepted = false
	r.out.Method = ""
	r.out.Record = nil
	r.out.Reason = reason
	r.out.Message = msg
	out := r.finish()
	o.sink.Failed(out)
	r.log.Warn().Str("reason", string(reason)).Str("message", msg).Dur("took", out.Duration()).Msg("scan failed")
	return out
}

func reasonFor(s catalog.Status) Reason {
	switch s {
	case catalog.StatusAmbiguous:
		return ReasonAmbiguousMatch
	case catalog.StatusUnavailable:
		return ReasonCatalogUnavailable
	}
	return ReasonNotFound
}

func reasonForExtract(err error) Reason {
	switch {
	case errors.Is(err, extractor.ErrInvalidResponse):
		return ReasonInvalidResponse
	case errors.Is(err, extractor.ErrUnavailable):
		return ReasonCapabilityUnavailable
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	}
	return ReasonNetworkFailure
}

// run carries the in-progress outcome of one scan.
type run struct {
	out Outcome
	log zerolog.Logger
}

func (o *Orchestrator) newRun(source string) *run {
	id := uuid.NewString()
	return &run{
		out: Outcome{ID: id, Source: source, StartedAt: time.Now()},
		log: o.log.With().Str("scan_id", id).Str("source", source).Logger(),
	}
}

func (r *run) enter(s State, reason Reason, note string) {
	if n := len(r.out.Trace); n > 0 && !CanTransition(r.out.Trace[n-1].State, s) {
		r.log.Error().Str("from", string(r.out.Trace[n-1].State)).Str("to", string(s)).Msg("unexpected transition")
	}
	r.out.State = s
	r.out.Trace = append(r.out.Trace, Step{State: s, At: time.Now(), Reason: reason, Note: note})
	r.log.Debug().Str("state", string(s)).Msg("enter")
}

// note annotates the current step with why the free path gave up.
func (r *run) note(reason Reason, msg string) {
	if n := len(r.out.Trace); n > 0 {
		r.out.Trace[n-1].Reason = reason
		r.out.Trace[n-1].Note = msg
	}
	r.log.Debug().Str("reason", string(reason)).Str("note", msg).Msg("free path inconclusive")
}

func (r *run) finish() Outcome {
	r.out.FinishedAt = time.Now()
	return r.out
}
