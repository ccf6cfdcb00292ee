package bot

import (
	"context"
	"sync"
	"time"

	"github.com/quietgrove/kanto/internal/config"
)

type Direction int

const (
	DirectionUp Direction = iota
	DirectionDown
	DirectionLeft
	DirectionRight
)

func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	case DirectionLeft:
		return "left"
	case DirectionRight:
		return "right"
	}
	return "unknown"
}

func (d Direction) key(kb config.KeyBindings) string {
	switch d {
	case DirectionUp:
		return kb.Up
	case DirectionDown:
		return kb.Down
	case DirectionLeft:
		return kb.Left
	case DirectionRight:
		return kb.Right
	}
	return kb.Up
}

const (
	// settle delay after releasing a directional key
	moveSettleDelay = 100 * time.Millisecond
	// dwell at each pole of the bounce pattern
	poleDwellDelay = 200 * time.Millisecond
)

// MovementEngine walks the character back and forth between two tiles to
// trigger encounter checks. Movement is purely time based: a direction key is
// held for a duration computed from the configured per-tile cost, plus a turn
// cost when the character is not already facing that way.
type MovementEngine struct {
	hid  Inputs
	wait Waiter

	mu     sync.Mutex
	facing Direction
}

func NewMovementEngine(hid Inputs, wait Waiter, pattern string) *MovementEngine {
	return &MovementEngine{
		hid:    hid,
		wait:   wait,
		facing: startingDirection(pattern),
	}
}

func startingDirection(pattern string) Direction {
	if pattern == config.PatternVertical {
		return DirectionUp
	}
	return DirectionLeft
}

// MoveDuration is the hold time for one move: turn cost when changing facing,
// plus the per-tile cost for each space. Pure so the cost model is testable
// on its own.
func MoveDuration(t config.MovementTimings, dir, facing Direction, spaces int) time.Duration {
	d := t.TimePerSpace * time.Duration(spaces)
	if dir != facing {
		d += t.TimeToTurn
	}
	return d
}

// Move holds the direction key for the computed duration, releases it and
// settles. Facing updates to the new direction even when the move is
// cancelled mid-hold, since the turn has already been issued to the game.
func (m *MovementEngine) Move(ctx context.Context, t config.MovementTimings, kb config.KeyBindings, dir Direction, spaces int) error {
	m.mu.Lock()
	facing := m.facing
	m.facing = dir
	m.mu.Unlock()

	key := dir.key(kb)
	m.hid.KeyDown(key)
	err := m.wait.Wait(ctx, MoveDuration(t, dir, facing, spaces))
	m.hid.KeyUp(key)
	if err != nil {
		return err
	}

	return m.wait.Wait(ctx, moveSettleDelay)
}

// Cycle bounces once between the two poles of the configured axis, dwelling
// at each pole so the encounter check can fire.
func (m *MovementEngine) Cycle(ctx context.Context) error {
	t := config.GetMovementTimings()
	kb := config.Snapshot().KeyBindings

	first, second := DirectionLeft, DirectionRight
	if t.Pattern == config.PatternVertical {
		first, second = DirectionUp, DirectionDown
	}

	if err := m.Move(ctx, t, kb, first, t.Spaces); err != nil {
		return err
	}
	if err := m.wait.Wait(ctx, poleDwellDelay); err != nil {
		return err
	}
	if err := m.Move(ctx, t, kb, second, t.Spaces); err != nil {
		return err
	}
	return m.wait.Wait(ctx, poleDwellDelay)
}

// SetPattern switches the bounce axis and resets facing to the new axis's
// starting pole, so the first move of the next cycle is not charged a stale
// turn cost.
func (m *MovementEngine) SetPattern(pattern string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.facing = startingDirection(pattern)
}

func (m *MovementEngine) Facing() Direction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.facing
}
