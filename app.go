package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"cardscan/models"
	"cardscan/pkg/catalog"
	"cardscan/pkg/config"
	"cardscan/pkg/extractor"
	"cardscan/pkg/logger"
	"cardscan/pkg/ocr"
	"cardscan/pkg/ocr/tesseract"
	"cardscan/pkg/scan"
)

// app is the wired pipeline shared by serve, scan and watch.
type app struct {
	cfg     *config.Config
	cat     *catalog.Catalog
	matcher *catalog.Matcher
	rec     *tesseract.Client
	paid    extractor.Extractor
	tally   *scan.Tally
	orch    *scan.Orchestrator
	db      *gorm.DB
	log     zerolog.Logger
}

// newApp builds the pipeline. Missing capabilities do not fail startup: an
// unloaded catalog, a broken Tesseract install or an absent API key each
// surface as typed failures on the scans that need them.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:   cfg,
		cat:   &catalog.Catalog{},
		tally: scan.NewTally(),
		log:   logger.WithComponent("app"),
	}
	if err := a.loadCatalog(); err != nil {
		a.log.Error().Err(err).Str("source", cfg.CatalogSource).Msg("catalog unavailable; scans will fail until it loads")
	}

	a.rec = tesseract.New(cfg.TesseractLang)

	paid, err := extractor.New(ctx, extractor.Settings{
		Provider: cfg.PaidProvider,
		APIKey:   cfg.PaidAPIKey(),
		Model:    paidModel(cfg),
		BaseURL:  cfg.OpenAIBaseURL,
	})
	if err != nil {
		a.log.Warn().Err(err).Msg("paid extractor disabled")
	}
	a.paid = paid
	if a.paid == nil {
		a.log.Info().Msg("no paid extractor configured; inconclusive free reads will fail")
	}

	t := cfg.Tuning
	a.matcher = catalog.NewMatcher(a.cat,
		catalog.WithMaxDistance(t.MaxDistance),
		catalog.WithAutoAcceptDistance(t.AutoAcceptDistance),
		catalog.WithMatcherLogger(logger.WithComponent("catalog")),
	)
	reader := ocr.NewRegionStrategy(a.rec,
		ocr.WithRegions(regionsFrom(cfg)),
		ocr.WithPreprocessor(ocr.Preprocessor{Scale: t.Scale, HalfWindow: t.HalfWindow, Bias: t.Bias}),
	)
	a.orch = scan.New(reader, a.matcher,
		scan.WithPaidExtractor(a.paid),
		scan.WithSink(a.tally),
		scan.WithThreshold(t.ConfidenceThreshold),
		scan.WithCompression(t.PaidMaxSide, t.PaidJPEGQuality),
		scan.WithCostUnits(t.PaidCostUnits),
		scan.WithYieldGap(time.Duration(t.YieldGapMS)*time.Millisecond),
	)
	return a, nil
}

// loadCatalog publishes the configured catalog source.
func (a *app) loadCatalog() error {
	records, source, err := readCatalog(a.cfg, &a.db)
	if err != nil {
		return err
	}
	a.cat.Load(records, source)
	a.log.Info().Str("source", source).Int("records", len(records)).Msg("catalog loaded")
	return nil
}

// readCatalog reads records from a file or, for the source "db", from
// postgres. dbp caches the connection for later use.
func readCatalog(cfg *config.Config, dbp **gorm.DB) ([]catalog.Record, string, error) {
	if cfg.CatalogSource != "db" {
		records, err := catalog.LoadFile(cfg.CatalogSource)
		return records, cfg.CatalogSource, err
	}
	if *dbp == nil {
		db, err := openDB(cfg.DBDSN, cfg.DBAutoMigrate)
		if err != nil {
			return nil, "", err
		}
		*dbp = db
	}
	records, err := models.LoadRecords(*dbp)
	if err != nil {
		return nil, "", err
	}
	if len(records) == 0 {
		return nil, "", fmt.Errorf("%w: catalog_entries", catalog.ErrEmptyCatalog)
	}
	return records, "postgres:catalog_entries", nil
}

func (a *app) Close() {
	if a.rec != nil {
		_ = a.rec.Close()
	}
	if c, ok := a.paid.(interface{ Close() error }); ok {
		_ = c.Close()
	}
	if a.db != nil {
		closeDB(a.db)
	}
}

func regionsFrom(cfg *config.Config) []ocr.Region {
	out := make([]ocr.Region, 0, len(cfg.Tuning.Regions))
	for _, r := range cfg.Tuning.Regions {
		out = append(out, ocr.Region{Name: r.Name, X: r.X, Y: r.Y, W: r.W, H: r.H})
	}
	return out
}

func paidModel(cfg *config.Config) string {
	if cfg.PaidProvider == "openai" {
		return cfg.OpenAIModel
	}
	return cfg.GeminiModel
}
