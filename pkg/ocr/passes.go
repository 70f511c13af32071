package ocr

import (
	"context"
	"fmt"
	"image"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultRegions lists where identifiers are printed across catalog editions.
func DefaultRegions() []Region {
	return []Region{
		{Name: "bottom-left", X: 0.02, Y: 0.84, W: 0.40, H: 0.14},
		{Name: "bottom-right", X: 0.58, Y: 0.84, W: 0.40, H: 0.14},
	}
}

// Reading is what a strategy produced for one card: the attempt chosen and
// every attempt made, in region order.
type Reading struct {
	Best     Attempt
	Attempts []Attempt
}

// RegionStrategy reads regions in order and stops at the first one whose
// text parses as an identifier.
type RegionStrategy struct {
	regions []Region
	pre     Preprocessor
	rec     Recognizer
	log     zerolog.Logger
}

// StrategyOption configures a RegionStrategy.
type StrategyOption func(*RegionStrategy)

// WithRegions replaces the default regions. Order is preserved.
func WithRegions(regions []Region) StrategyOption {
	return func(s *RegionStrategy) {
		if len(regions) > 0 {
			s.regions = append([]Region(nil), regions...)
		}
	}
}

// WithPreprocessor replaces the default preprocessing parameters.
func WithPreprocessor(p Preprocessor) StrategyOption {
	return func(s *RegionStrategy) { s.pre = p }
}

// WithLogger sets the strategy logger.
func WithLogger(l zerolog.Logger) StrategyOption {
	return func(s *RegionStrategy) { s.log = l }
}

// NewRegionStrategy builds a strategy around rec.
func NewRegionStrategy(rec Recognizer, opts ...StrategyOption) *RegionStrategy {
	s := &RegionStrategy{
		regions: DefaultRegions(),
		pre:     DefaultPreprocessor(),
		rec:     rec,
		log:     log.Logger.With().Str("component", "ocr").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready reports whether the underlying recognizer can be used.
func (s *RegionStrategy) Ready() bool {
	return s.rec != nil && s.rec.Ready()
}

// Regions returns a copy of the configured regions.
func (s *RegionStrategy) Regions() []Region {
	return append([]Region(nil), s.regions...)
}

// Read runs preprocess, recognize and extract over the regions. It returns an
// error only when the recognizer is unavailable or failed on every region; a
// read that parsed nothing is not an error.
func (s *RegionStrategy) Read(ctx context.Context, img image.Image) (Reading, error) {
	if !s.Ready() {
		return Reading{}, ErrRecognizerUnavailable
	}
	if len(s.regions) == 0 {
		return Reading{}, ErrNoRegions
	}
	var (
		attempts []Attempt
		failures int
		lastErr  error
	)
	for _, region := range s.regions {
		a := s.readRegion(ctx, img, region)
		attempts = append(attempts, a)
		if a.Err != nil {
			failures++
			lastErr = a.Err
			continue
		}
		if a.Parsed() {
			s.log.Debug().Str("region", region.Name).Str("identifier", a.Identifier).
				Float64("confidence", a.Confidence).Msg("identifier parsed")
			return Reading{Best: a, Attempts: attempts}, nil
		}
	}
	if failures == len(attempts) {
		return Reading{Attempts: attempts}, fmt.Errorf("recognize: %w", lastErr)
	}
	best := bestAttempt(attempts)
	s.log.Debug().Str("region", best.Region).Float64("confidence", best.Confidence).
		Str("text", snippet(best.RawText, 80)).Msg("no identifier in any region")
	return Reading{Best: best, Attempts: attempts}, nil
}

func (s *RegionStrategy) readRegion(ctx context.Context, img image.Image, region Region) Attempt {
	bin := s.pre.Binarize(img, region)
	res, err := s.rec.Recognize(ctx, bin)
	if err != nil {
		s.log.Warn().Err(err).Str("region", region.Name).Msg("recognition failed")
		return Attempt{Region: region.Name, Err: err}
	}
	a := Attempt{Region: region.Name, RawText: res.Text, Confidence: res.Confidence}
	if id, ok := ExtractIdentifier(res.Text); ok {
		a.Identifier = id
	}
	return a
}
