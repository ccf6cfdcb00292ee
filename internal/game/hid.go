package game

import (
	"github.com/go-vgo/robotgo"
)

// HID simulates keyboard input towards the game window. All calls are
// fire-and-forget: the game gives no feedback channel, correctness comes from
// the fixed timings of the calling scripts.
type HID struct{}

func NewHID() *HID {
	return &HID{}
}

// Press taps a key (down and up).
func (h *HID) Press(key string) {
	robotgo.KeyTap(key)
}

// KeyDown holds a key until KeyUp is called, used for timed directional
// movement.
func (h *HID) KeyDown(key string) {
	_ = robotgo.KeyDown(key)
}

func (h *HID) KeyUp(key string) {
	_ = robotgo.KeyUp(key)
}
