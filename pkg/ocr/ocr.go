package ocr

import (
	"context"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// Recognizer is a text recognition engine working on binarized images.
// Ready reports whether the engine initialized; callers check it before use.
type Recognizer interface {
	Recognize(ctx context.Context, img *image.Gray) (Recognition, error)
	Ready() bool
}

// Recognition is the raw engine output for one image.
type Recognition struct {
	Text       string
	Confidence float64 // 0..100
}

// Attempt is the result of reading one region: the raw text, the engine's
// confidence and the identifier parsed from it (empty when none parsed).
type Attempt struct {
	Region     string  `json:"region"`
	RawText    string  `json:"raw_text"`
	Confidence float64 `json:"confidence"`
	Identifier string  `json:"identifier,omitempty"`
	Err        error   `json:"-"`
}

// Parsed reports whether an identifier was extracted.
func (a Attempt) Parsed() bool { return a.Identifier != "" }

// OpenImage loads an image from disk honouring EXIF orientation, which phone
// photos of cards nearly always carry.
func OpenImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	return img, nil
}

// DecodeImage is OpenImage for an upload stream.
func DecodeImage(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
