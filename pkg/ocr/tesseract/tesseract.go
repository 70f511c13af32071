// Package tesseract adapts a long-lived Tesseract session to ocr.Recognizer.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"

	"cardscan/pkg/logger"
	"cardscan/pkg/ocr"
)

// Whitelist restricts recognition to what identifiers are made of.
const Whitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-"

// Client owns one gosseract session. Scans are serialized so the mutex is
// only contended when the HTTP server and a watcher share a process.
type Client struct {
	mu     sync.Mutex
	client *gosseract.Client
	ready  bool
	log    zerolog.Logger
}

// New starts a session for lang and probes it once. A session that fails the
// probe is kept but reports not ready, so callers route around it.
func New(lang string) *Client {
	c := &Client{log: logger.WithComponent("tesseract")}
	if lang == "" {
		lang = "eng"
	}
	cl := gosseract.NewClient()
	if err := configure(cl, lang); err != nil {
		c.log.Error().Err(err).Msg("tesseract configuration failed")
		_ = cl.Close()
		return c
	}
	c.client = cl
	if err := c.probe(); err != nil {
		c.log.Error().Err(err).Str("lang", lang).Msg("tesseract not available")
		return c
	}
	c.ready = true
	c.log.Info().Str("lang", lang).Str("version", gosseract.Version()).Msg("tesseract ready")
	return c
}

func configure(cl *gosseract.Client, lang string) error {
	if err := cl.SetLanguage(lang); err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	if err := cl.SetWhitelist(Whitelist); err != nil {
		return fmt.Errorf("set whitelist: %w", err)
	}
	if err := cl.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return fmt.Errorf("set page seg mode: %w", err)
	}
	return nil
}

// probe forces engine initialization on a blank image.
func (c *Client) probe() error {
	blank := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range blank.Pix {
		blank.Pix[i] = 255
	}
	_, err := c.text(blank)
	return err
}

var _ ocr.Recognizer = (*Client)(nil)

// Ready reports whether the session initialized.
func (c *Client) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Recognize reads a single line from img. Confidence is the mean of the word
// confidences Tesseract reports, 0 when it found no words.
func (c *Client) Recognize(ctx context.Context, img *image.Gray) (ocr.Recognition, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Recognition{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return ocr.Recognition{}, ocr.ErrRecognizerUnavailable
	}
	text, err := c.text(img)
	if err != nil {
		return ocr.Recognition{}, err
	}
	boxes, err := c.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return ocr.Recognition{}, fmt.Errorf("word boxes: %w", err)
	}
	return ocr.Recognition{Text: strings.TrimSpace(text), Confidence: meanConfidence(boxes)}, nil
}

func (c *Client) text(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	if err := c.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract text: %w", err)
	}
	return text, nil
}

func meanConfidence(boxes []gosseract.BoundingBox) float64 {
	sum, n := 0.0, 0
	for _, b := range boxes {
		if strings.TrimSpace(b.Word) == "" {
			continue
		}
		sum += b.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	conf := sum / float64(n)
	if conf < 0 {
		return 0
	}
	if conf > 100 {
		return 100
	}
	return conf
}

// Close releases the session. The client is not ready afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = false
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}
