package ocr

import (
	"image"

	"github.com/disintegration/imaging"
)

// Region is a fractional rectangle of a source image. X, Y, W and H are in [0,1].
type Region struct {
	Name string
	X    float64
	Y    float64
	W    float64
	H    float64
}

// Rect maps the region onto bounds. The result always lies inside bounds and
// is at least 1x1 so a degenerate region still yields an image.
func (r Region) Rect(bounds image.Rectangle) image.Rectangle {
	bw, bh := bounds.Dx(), bounds.Dy()
	x0 := bounds.Min.X + int(r.X*float64(bw))
	y0 := bounds.Min.Y + int(r.Y*float64(bh))
	x1 := x0 + int(r.W*float64(bw)+0.5)
	y1 := y0 + int(r.H*float64(bh)+0.5)
	x0 = clamp(x0, bounds.Min.X, bounds.Max.X-1)
	y0 = clamp(y0, bounds.Min.Y, bounds.Max.Y-1)
	x1 = clamp(x1, x0+1, bounds.Max.X)
	y1 = clamp(y1, y0+1, bounds.Max.Y)
	return image.Rect(x0, y0, x1, y1)
}

// Preprocessor turns a card region into an upscaled black/white image for
// recognition. The zero value is not usable; start from DefaultPreprocessor.
type Preprocessor struct {
	Scale      int // upscale factor applied after cropping
	HalfWindow int // half-width of the square mean window
	Bias       int // a pixel is ink when gray < mean - Bias
}

// DefaultPreprocessor returns the tuned defaults: 3x upscale, 21x21 window, bias 8.
func DefaultPreprocessor() Preprocessor {
	return Preprocessor{Scale: 3, HalfWindow: 10, Bias: 8}
}

// Binarize crops region out of src at native resolution, upscales it and
// applies a local mean threshold. Every output pixel is 0 or 255.
func (p Preprocessor) Binarize(src image.Image, region Region) *image.Gray {
	scale := p.Scale
	if scale < 1 {
		scale = 1
	}
	rect := region.Rect(src.Bounds())
	if src.Bounds().Empty() {
		return image.NewGray(image.Rect(0, 0, scale, scale))
	}
	crop := imaging.Crop(src, rect)
	up := imaging.Resize(crop, rect.Dx()*scale, rect.Dy()*scale, imaging.Lanczos)
	return adaptiveThreshold(luminance(up), p.HalfWindow, p.Bias)
}

// luminance converts to 8-bit gray with 0.299R + 0.587G + 0.114B.
func luminance(img *image.NRGBA) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			r := int(row[x*4])
			g := int(row[x*4+1])
			bb := int(row[x*4+2])
			out.Pix[y*out.Stride+x] = uint8((299*r + 587*g + 114*bb + 500) / 1000)
		}
	}
	return out
}

// adaptiveThreshold applies a mean threshold over a (2*half+1) square window,
// clamped at the borders. Window sums come from a summed-area table so the
// pass stays linear in pixel count.
func adaptiveThreshold(gray *image.Gray, half int, bias int) *image.Gray {
	if half < 1 {
		half = 1
	}
	w := gray.Bounds().Dx()
	h := gray.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))

	// ints has a zero row and column so lookups need no edge cases.
	stride := w + 1
	ints := make([]int, stride*(h+1))
	for y := 0; y < h; y++ {
		rowSum := 0
		for x := 0; x < w; x++ {
			rowSum += int(gray.Pix[y*gray.Stride+x])
			ints[(y+1)*stride+x+1] = ints[y*stride+x+1] + rowSum
		}
	}

	for y := 0; y < h; y++ {
		y0 := clamp(y-half, 0, h-1)
		y1 := clamp(y+half, 0, h-1)
		for x := 0; x < w; x++ {
			x0 := clamp(x-half, 0, w-1)
			x1 := clamp(x+half, 0, w-1)
			sum := ints[(y1+1)*stride+x1+1] - ints[y0*stride+x1+1] - ints[(y1+1)*stride+x0] + ints[y0*stride+x0]
			count := (x1 - x0 + 1) * (y1 - y0 + 1)
			pix := int(gray.Pix[y*gray.Stride+x])
			// pix < sum/count - bias, kept in integers.
			var v uint8 = 255
			if pix*count < sum-bias*count {
				v = 0
			}
			out.Pix[y*out.Stride+x] = v
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
