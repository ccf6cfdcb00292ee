package game

import (
	"errors"
	"image"

	"github.com/kbinani/screenshot"
)

// CaptureProvider supplies a raster snapshot of the screen on demand. The
// detector consumes it through this interface so tests can feed canned frames
// and capture failures.
type CaptureProvider interface {
	CaptureScreen() (image.Image, error)
}

// ScreenCapturer grabs the primary display. The game is expected to run
// full screen or windowed on display 0.
type ScreenCapturer struct {
	displayID int
}

func NewScreenCapturer() *ScreenCapturer {
	return &ScreenCapturer{displayID: 0}
}

func (c *ScreenCapturer) CaptureScreen() (image.Image, error) {
	if screenshot.NumActiveDisplays() <= c.displayID {
		return nil, errors.New("no active display to capture")
	}

	img, err := screenshot.CaptureDisplay(c.displayID)
	if err != nil {
		return nil, err
	}

	return img, nil
}
