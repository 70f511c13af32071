package inbox

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofrs/flock"

	"cardscan/pkg/scan"
)

// nameScanner accepts every image whose name contains "good".
type nameScanner struct {
	mu   sync.Mutex
	seen []string
}

func (s *nameScanner) Batch(ctx context.Context, items []scan.Item, each func(scan.Outcome)) []scan.Outcome {
	out := make([]scan.Outcome, 0, len(items))
	for _, it := range items {
		o := scan.Outcome{Source: it.Source, State: scan.StateFailed, Reason: scan.ReasonNotFound}
		if _, err := it.Open(); err != nil {
			o.Reason = scan.ReasonInvalidImage
		} else if strings.Contains(it.Source, "good") {
			o.State, o.Accepted, o.Reason = scan.StateAcceptedFree, true, ""
		}
		s.mu.Lock()
		s.seen = append(s.seen, it.Source)
		s.mu.Unlock()
		if each != nil {
			each(o)
		}
		out = append(out, o)
	}
	return out
}

func (s *nameScanner) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.seen...)
}

func writeCard(t *testing.T, path string) {
	t.Helper()
	img := imaging.New(40, 60, color.White)
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestDrainFilesByOutcome(t *testing.T) {
	dir := t.TempDir()
	writeCard(t, filepath.Join(dir, "b_good.png"))
	writeCard(t, filepath.Join(dir, "a_bad.jpg"))
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "c_broken.png"), []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := &nameScanner{}
	var hooked int
	outs, err := New(dir, s, WithOutcomeHook(func(scan.Outcome) { hooked++ })).Drain(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(outs) != 3 || hooked != 3 {
		t.Fatalf("expected 3 outcomes and 3 hook calls, got %d/%d", len(outs), hooked)
	}
	if got := s.names(); strings.Join(got, ",") != "a_bad.jpg,b_good.png,c_broken.png" {
		t.Fatalf("unexpected scan order %v", got)
	}

	for _, p := range []string{
		filepath.Join(dir, ProcessedDir, "b_good.png"),
		filepath.Join(dir, ProcessedDir, "b_good.png.json"),
		filepath.Join(dir, FailedDir, "a_bad.jpg"),
		filepath.Join(dir, FailedDir, "c_broken.png.json"),
		filepath.Join(dir, "notes.txt"),
	} {
		if !exists(p) {
			t.Errorf("expected %s to exist", p)
		}
	}
	if exists(filepath.Join(dir, "b_good.png")) {
		t.Errorf("accepted file should have left the inbox")
	}
}

func TestCanceledFilesStay(t *testing.T) {
	dir := t.TempDir()
	writeCard(t, filepath.Join(dir, "good.png"))
	in := New(dir, cancelScanner{})
	if _, err := in.Drain(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !exists(filepath.Join(dir, "good.png")) {
		t.Fatalf("canceled file should remain in the inbox")
	}
}

type cancelScanner struct{}

func (cancelScanner) Batch(_ context.Context, items []scan.Item, _ func(scan.Outcome)) []scan.Outcome {
	out := make([]scan.Outcome, len(items))
	for i, it := range items {
		out[i] = scan.Outcome{Source: it.Source, State: scan.StateFailed, Reason: scan.ReasonCanceled}
	}
	return out
}

func TestRunPicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()
	s := &nameScanner{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- New(dir, s, WithStability(50*time.Millisecond)).Run(ctx) }()

	// give the watcher a moment to register
	time.Sleep(100 * time.Millisecond)
	writeCard(t, filepath.Join(dir, "late_good.png"))

	target := filepath.Join(dir, ProcessedDir, "late_good.png")
	deadline := time.Now().Add(5 * time.Second)
	for !exists(target) {
		if time.Now().After(deadline) {
			t.Fatalf("file was not processed; scanned %v", s.names())
		}
		time.Sleep(25 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRunRefusesLockedDir(t *testing.T) {
	dir := t.TempDir()
	held := flock.New(filepath.Join(dir, LockFile))
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Fatalf("could not take lock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	err := New(dir, &nameScanner{}).Run(context.Background())
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestIsSupportedExt(t *testing.T) {
	cases := map[string]bool{
		"card.PNG":    true,
		"card.jpeg":   true,
		"card.webp":   false,
		".hidden.png": false,
		"card.json":   false,
	}
	for name, want := range cases {
		if got := isSupportedExt(name); got != want {
			t.Errorf("isSupportedExt(%q) = %v, want %v", name, got, want)
		}
	}
}
