package bot

import (
	"time"

	"github.com/quietgrove/kanto/internal/config"
)

// The battle menu layout is fixed by the game: FIGHT opens a 2x2 ability grid
// with the cursor on slot 1 after the reset presses below. These scripts are
// blind navigation paths through that layout, kept as data so the fragile
// assumptions live in one place.

type scriptInput int

const (
	inputUp scriptInput = iota
	inputDown
	inputLeft
	inputRight
	inputConfirm
)

type scriptStep struct {
	Input scriptInput
	// Delay is waited after the press before the next step.
	Delay time.Duration
}

func (s scriptStep) key(kb config.KeyBindings) string {
	switch s.Input {
	case inputUp:
		return kb.Up
	case inputDown:
		return kb.Down
	case inputLeft:
		return kb.Left
	case inputRight:
		return kb.Right
	case inputConfirm:
		return kb.Confirm
	}
	return kb.Confirm
}

const (
	stepDelay    = 100 * time.Millisecond
	confirmDelay = 300 * time.Millisecond
)

// openFightScript selects FIGHT and resets the ability cursor to the top-left
// slot regardless of where the game left it.
var openFightScript = []scriptStep{
	{inputUp, stepDelay},
	{inputConfirm, confirmDelay},
	{inputUp, stepDelay},
	{inputUp, stepDelay},
	{inputLeft, stepDelay},
}

// abilitySlotScripts navigates from slot 1 to the requested slot. Slot 1
// needs no movement, slot 2 is one step right, slot 3 one step down, slot 4
// both.
var abilitySlotScripts = map[int][]scriptStep{
	1: {},
	2: {{inputRight, stepDelay}},
	3: {{inputDown, stepDelay}},
	4: {{inputDown, stepDelay}, {inputRight, stepDelay}},
}

var confirmScript = []scriptStep{
	{inputConfirm, confirmDelay},
}

// fleeScript navigates to RUN and confirms.
var fleeScript = []scriptStep{
	{inputUp, stepDelay},
	{inputDown, stepDelay},
	{inputRight, stepDelay},
	{inputConfirm, confirmDelay},
}
