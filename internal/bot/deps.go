package bot

import (
	"context"
	"time"

	"github.com/quietgrove/kanto/internal/utils"
)

// Detector reads screen state for the engine's polling loop. Implemented by
// game.Detector; faked in tests.
type Detector interface {
	IsInBattle(threshold float64) bool
	IsBattleMenuVisible(threshold float64) bool
	HasTemplate(name string) bool
}

// Inputs is the simulated keyboard. Implemented by game.HID.
type Inputs interface {
	Press(key string)
	KeyDown(key string)
	KeyUp(key string)
}

// Waiter separates the timing model from real suspension so timing behaviour
// is testable without wall-clock sleeps. The production implementation blocks,
// honouring context cancellation at every wait.
type Waiter interface {
	Wait(ctx context.Context, d time.Duration) error
}

type sleepWaiter struct{}

func (sleepWaiter) Wait(ctx context.Context, d time.Duration) error {
	return utils.SleepCtx(ctx, d)
}
