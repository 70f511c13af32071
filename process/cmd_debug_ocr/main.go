package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/rs/zerolog/log"

	"cardscan/pkg/logger"
	"cardscan/pkg/ocr"
	"cardscan/pkg/ocr/tesseract"
)

func main() {
	f := flag.String("file", "", "image file to OCR")
	lang := flag.String("lang", "eng", "tesseract language")
	flag.Parse()
	_ = logger.Setup(logger.DefaultConfig())
	if *f == "" {
		log.Fatal().Msg("-file required")
	}

	img, err := ocr.OpenImage(*f)
	if err != nil {
		log.Fatal().Err(err).Msg("open")
	}
	rec := tesseract.New(*lang)
	defer rec.Close()

	reading, err := ocr.NewRegionStrategy(rec).Read(context.Background(), img)
	if err != nil {
		log.Fatal().Err(err).Msg("ocr error")
	}
	for _, a := range reading.Attempts {
		fmt.Printf("region=%s conf=%.1f id=%q raw=%q err=%v\n", a.Region, a.Confidence, a.Identifier, a.RawText, a.Err)
	}
	fmt.Printf("best: region=%s id=%q conf=%.1f\n", reading.Best.Region, reading.Best.Identifier, reading.Best.Confidence)
}
