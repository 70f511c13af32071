// Package inbox scans images dropped into a directory. Files are picked up
// once their size stops changing, scanned one at a time in name order, and
// moved to processed/ or failed/ with a JSON sidecar holding the outcome.
package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"cardscan/pkg/logger"
	"cardscan/pkg/ocr"
	"cardscan/pkg/scan"
)

const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
	LockFile     = ".cardscan.lock"
)

// ErrLocked is returned by Run when another watcher owns the directory.
var ErrLocked = errors.New("inbox is being watched by another process")

// Scanner is the part of the orchestrator the inbox drives.
type Scanner interface {
	Batch(ctx context.Context, items []scan.Item, each func(scan.Outcome)) []scan.Outcome
}

type Inbox struct {
	dir     string
	scanner Scanner
	stable  time.Duration
	tick    time.Duration
	each    func(scan.Outcome)
	log     zerolog.Logger
}

type Option func(*Inbox)

// WithStability sets how long a file must stay quiet before it is scanned.
func WithStability(d time.Duration) Option {
	return func(in *Inbox) {
		if d > 0 {
			in.stable = d
		}
	}
}

// WithOutcomeHook is called for every outcome as soon as it is known.
func WithOutcomeHook(fn func(scan.Outcome)) Option {
	return func(in *Inbox) { in.each = fn }
}

func WithLogger(l zerolog.Logger) Option {
	return func(in *Inbox) { in.log = l }
}

func New(dir string, s Scanner, opts ...Option) *Inbox {
	in := &Inbox{
		dir:     dir,
		scanner: s,
		stable:  300 * time.Millisecond,
		tick:    250 * time.Millisecond,
		log:     logger.WithComponent("inbox"),
	}
	for _, o := range opts {
		o(in)
	}
	return in
}

// Drain scans every supported file already in the directory.
func (in *Inbox) Drain(ctx context.Context) ([]scan.Outcome, error) {
	names, err := listImageFiles(in.dir)
	if err != nil {
		return nil, err
	}
	return in.process(ctx, names), nil
}

// Run drains the directory and then watches it until ctx is done. Only one
// Run may own a directory at a time.
func (in *Inbox) Run(ctx context.Context) error {
	lock := flock.New(filepath.Join(in.dir, LockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			in.log.Warn().Err(err).Msg("failed to release inbox lock")
		}
	}()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(in.dir); err != nil {
		return err
	}
	if _, err := in.Drain(ctx); err != nil {
		return err
	}
	in.log.Info().Str("dir", in.dir).Msg("watching")

	pending := map[string]time.Time{}
	ticker := time.NewTicker(in.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if filepath.Dir(ev.Name) != filepath.Clean(in.dir) {
				continue
			}
			name := filepath.Base(ev.Name)
			if isSupportedExt(name) {
				pending[name] = time.Now()
			}
		case <-ticker.C:
			now := time.Now()
			var ready []string
			for name, t := range pending {
				if now.Sub(t) > in.stable {
					ready = append(ready, name)
					delete(pending, name)
				}
			}
			sort.Strings(ready)
			in.process(ctx, ready)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			in.log.Warn().Err(err).Msg("watch error")
		}
	}
}

func (in *Inbox) process(ctx context.Context, names []string) []scan.Outcome {
	if len(names) == 0 {
		return nil
	}
	items := make([]scan.Item, len(names))
	for i, name := range names {
		path := filepath.Join(in.dir, name)
		items[i] = scan.Item{
			Source: name,
			Open:   func() (image.Image, error) { return ocr.OpenImage(path) },
		}
	}
	outs := in.scanner.Batch(ctx, items, in.each)
	for i, o := range outs {
		if o.Reason == scan.ReasonCanceled {
			// left in place for the next run
			continue
		}
		if err := in.file(names[i], o); err != nil {
			in.log.Error().Err(err).Str("file", names[i]).Msg("move failed")
		}
	}
	return outs
}

// file moves a scanned image out of the inbox and writes its outcome next
// to it.
func (in *Inbox) file(name string, o scan.Outcome) error {
	dest := FailedDir
	if o.Accepted {
		dest = ProcessedDir
	}
	dir := filepath.Join(in.dir, dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(dir, name)
	if err := move(filepath.Join(in.dir, name), dst); err != nil {
		return err
	}
	b, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(dst+".json", b, 0o644)
}

func listImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

func isSupportedExt(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff":
		return true
	}
	return false
}

// move renames src to dst, copying across filesystems when rename fails.
func move(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	return copyRemove(src, dst)
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		return errors.Join(err, out.Close(), os.Remove(dst))
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
