package game

import (
	"errors"
	"image"
	"io"
	"log/slog"
	"sync"
	"testing"

	"gocv.io/x/gocv"
)

type stubCapture struct {
	mu    sync.Mutex
	calls int
	img   image.Image
	err   error
}

func (c *stubCapture) CaptureScreen() (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.img, c.err
}

func (c *stubCapture) captureCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDetectUnknownTemplateFailsClosed(t *testing.T) {
	capture := &stubCapture{}
	d := NewDetector(testLogger(), capture, "")

	if d.Detect("never_loaded", 0.8) {
		t.Error("unknown template must report no match")
	}
	// an unknown name must not cost a screen capture
	if capture.captureCalls() != 0 {
		t.Errorf("capture called %d times, want 0", capture.captureCalls())
	}

	if d.IsInBattle(0.8) {
		t.Error("IsInBattle must fail closed without a template")
	}
	if d.IsBattleMenuVisible(0.8) {
		t.Error("IsBattleMenuVisible must fail closed without a template")
	}
}

func TestDetectCaptureErrorFailsClosed(t *testing.T) {
	capture := &stubCapture{err: errors.New("display unavailable")}
	d := NewDetector(testLogger(), capture, "")

	d.mu.Lock()
	d.templates[TemplateHPBar] = gocv.Mat{}
	d.mu.Unlock()

	if d.IsInBattle(0.8) {
		t.Error("capture failure must report no match")
	}
	if capture.captureCalls() != 1 {
		t.Errorf("capture called %d times, want 1", capture.captureCalls())
	}
}

// gatedCapture signals when a detection reaches the capture stage and holds
// it there until released.
type gatedCapture struct {
	entered chan struct{}
	release chan struct{}
}

func (c *gatedCapture) CaptureScreen() (image.Image, error) {
	close(c.entered)
	<-c.release
	return nil, errors.New("capture aborted")
}

func TestDetectHoldsTemplateLockForWholeMatch(t *testing.T) {
	capture := &gatedCapture{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	d := NewDetector(testLogger(), capture, "")

	d.mu.Lock()
	d.templates[TemplateHPBar] = gocv.Mat{}
	d.mu.Unlock()

	done := make(chan bool, 1)
	go func() { done <- d.IsInBattle(0.8) }()

	<-capture.entered
	// a template swap closes the old mat under the write lock; it must not be
	// able to acquire it while a detection is still using that mat
	if d.mu.TryLock() {
		d.mu.Unlock()
		t.Fatal("write lock acquired while a detection was in flight")
	}
	close(capture.release)

	if got := <-done; got {
		t.Error("failed capture must report no match")
	}
	if !d.mu.TryLock() {
		t.Fatal("write lock should be free once the detection returned")
	}
	d.mu.Unlock()
}

func TestHasTemplate(t *testing.T) {
	d := NewDetector(testLogger(), &stubCapture{}, "")

	if d.HasTemplate(TemplateHPBar) {
		t.Error("fresh detector should not report templates")
	}

	d.mu.Lock()
	d.templates[TemplateHPBar] = gocv.Mat{}
	d.mu.Unlock()

	if !d.HasTemplate(TemplateHPBar) {
		t.Error("registered template should be reported")
	}
}

func TestLoadTemplateBytesRejectsGarbage(t *testing.T) {
	d := NewDetector(testLogger(), &stubCapture{}, t.TempDir())

	if err := d.LoadTemplateBytes(TemplateHPBar, []byte("not an image")); err == nil {
		t.Error("expected decode error for non-image bytes")
	}
	if d.HasTemplate(TemplateHPBar) {
		t.Error("failed load must not register a template")
	}
}
