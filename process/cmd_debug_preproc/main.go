package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	"cardscan/pkg/logger"
	"cardscan/pkg/ocr"
)

// Writes the binarized crop of every default region so thresholds can be
// checked by eye.
func main() {
	f := flag.String("file", "", "card image")
	out := flag.String("out", os.TempDir(), "output directory")
	scale := flag.Int("scale", 3, "upscale factor")
	half := flag.Int("half-window", 10, "threshold half window")
	bias := flag.Int("bias", 8, "threshold bias")
	flag.Parse()
	_ = logger.Setup(logger.DefaultConfig())
	if *f == "" {
		log.Fatal().Msg("-file required")
	}

	img, err := ocr.OpenImage(*f)
	if err != nil {
		log.Fatal().Err(err).Msg("open")
	}
	pre := ocr.Preprocessor{Scale: *scale, HalfWindow: *half, Bias: *bias}
	base := strings.TrimSuffix(filepath.Base(*f), filepath.Ext(*f))
	for _, region := range ocr.DefaultRegions() {
		bin := pre.Binarize(img, region)
		dst := filepath.Join(*out, base+"."+region.Name+".png")
		if err := imaging.Save(bin, dst); err != nil {
			log.Fatal().Err(err).Str("path", dst).Msg("save")
		}
		fmt.Printf("%s %dx%d -> %s\n", region.Name, bin.Bounds().Dx(), bin.Bounds().Dy(), dst)
	}
}
