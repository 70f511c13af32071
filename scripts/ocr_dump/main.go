package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"

	"cardscan/pkg/logger"
	"cardscan/pkg/ocr"
	"cardscan/pkg/ocr/tesseract"
)

type dumpLine struct {
	File     string        `json:"file"`
	Best     string        `json:"best,omitempty"`
	Attempts []ocr.Attempt `json:"attempts"`
	Error    string        `json:"error,omitempty"`
}

// Dumps every region attempt for a set of images as JSON lines. Useful to
// build a corpus for tuning the threshold and region boxes.
func main() {
	glob := flag.String("glob", "", "image glob, e.g. 'photos/*.jpg'")
	lang := flag.String("lang", "eng", "tesseract language")
	flag.Parse()
	_ = logger.Setup(logger.LogConfig{Level: "info", Format: "console", Output: "stderr"})
	if *glob == "" {
		log.Fatal().Msg("--glob is required")
	}
	paths, err := filepath.Glob(*glob)
	if err != nil {
		log.Fatal().Err(err).Msg("bad glob")
	}
	sort.Strings(paths)

	rec := tesseract.New(*lang)
	defer rec.Close()
	strategy := ocr.NewRegionStrategy(rec)
	enc := json.NewEncoder(os.Stdout)
	ctx := context.Background()
	for _, p := range paths {
		line := dumpLine{File: p}
		img, err := ocr.OpenImage(p)
		if err == nil {
			var reading ocr.Reading
			reading, err = strategy.Read(ctx, img)
			line.Attempts = reading.Attempts
			line.Best = reading.Best.Identifier
		}
		if err != nil {
			line.Error = err.Error()
		}
		if err := enc.Encode(line); err != nil {
			log.Fatal().Err(err).Msg("write")
		}
	}
	log.Info().Int("images", len(paths)).Msg("dump complete")
}
