package extractor

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func TestCompressFitsLongestSide(t *testing.T) {
	img := imaging.New(3000, 2000, color.NRGBA{200, 10, 10, 255})
	data, err := Compress(img, 1024, 80)
	if err != nil {
		t.Fatal(err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if format != "jpeg" || cfg.Width != 1024 || cfg.Height > 1024 {
		t.Fatalf("unexpected output %s %dx%d", format, cfg.Width, cfg.Height)
	}
}

func TestCompressKeepsSmallImages(t *testing.T) {
	img := imaging.New(300, 400, color.NRGBA{255, 255, 255, 255})
	data, err := Compress(img, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width != 300 || cfg.Height != 400 {
		t.Fatalf("small image must not be resized: %+v %v", cfg, err)
	}
}
