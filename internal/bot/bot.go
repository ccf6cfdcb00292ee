package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/quietgrove/kanto/internal/config"
	"github.com/quietgrove/kanto/internal/event"
	"github.com/quietgrove/kanto/internal/game"
)

// Status is the bot lifecycle state. Exactly one is active at a time; every
// transition site switches over the full set so a new state cannot be added
// without the compiler pointing at the consumers.
type Status int

const (
	StatusStopped Status = iota
	StatusMoving
	StatusInBattle
	StatusAttacking
	StatusFleeing
	StatusTraveling
	StatusHealing
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusMoving:
		return "moving"
	case StatusInBattle:
		return "in_battle"
	case StatusAttacking:
		return "attacking"
	case StatusFleeing:
		return "fleeing"
	case StatusTraveling:
		return "traveling"
	case StatusHealing:
		return "healing"
	}
	return "unknown"
}

var ErrMissingHPTemplate = errors.New("hp_bar template is not loaded, the bot cannot detect battles")

const (
	// idle delay between loop polls
	pollDelay = 100 * time.Millisecond
	// wait for the flee animation before trying to travel
	fleeSettleDelay = 2 * time.Second
	// wait after the travel animation before interacting
	postTravelDelay = 2 * time.Second
	// confirm presses towards the recovery attendant and the pause between them
	healInteractions = 5
	healStepDelay    = 800 * time.Millisecond
)

// Bot is the automation state machine. A single background worker owns all
// detection and input; the control surface only reads snapshots and writes
// configuration.
type Bot struct {
	logger   *slog.Logger
	detector Detector
	hid      Inputs
	wait     Waiter
	movement *MovementEngine
	battle   *BattlePolicy
	stats    *Stats

	mu       sync.Mutex
	status   Status
	cancelFn context.CancelFunc
	done     chan struct{}
}

func New(logger *slog.Logger, detector Detector, hid Inputs) *Bot {
	return newBot(logger, detector, hid, sleepWaiter{})
}

func newBot(logger *slog.Logger, detector Detector, hid Inputs, wait Waiter) *Bot {
	return &Bot{
		logger:   logger,
		detector: detector,
		hid:      hid,
		wait:     wait,
		movement: NewMovementEngine(hid, wait, config.Snapshot().Movement.Pattern),
		battle:   NewBattlePolicy(logger, detector, hid, wait),
		stats:    NewStats(),
	}
}

func (b *Bot) Stats() *Stats {
	return b.stats
}

func (b *Bot) Movement() *MovementEngine {
	return b.movement
}

func (b *Bot) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

func (b *Bot) setStatus(s Status) {
	b.mu.Lock()
	prev := b.status
	b.status = s
	b.mu.Unlock()

	if prev != s {
		b.logger.Debug("status change", slog.String("from", prev.String()), slog.String("to", s.String()))
	}
}

func (b *Bot) Running() bool {
	return b.Status() != StatusStopped
}

// Start launches the worker loop. Idempotent: starting a running bot is a
// no-op. Refused when the hp_bar reference bitmap is missing, since without
// it the loop would walk forever into battles it cannot see.
func (b *Bot) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status != StatusStopped {
		return nil
	}
	if !b.detector.HasTemplate(game.TemplateHPBar) {
		return ErrMissingHPTemplate
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancelFn = cancel
	b.done = make(chan struct{})
	b.status = StatusMoving

	sessionID := b.stats.StartSession()
	event.Send(event.BotStarted(event.Text("bot started"), sessionID))

	go b.run(ctx)

	return nil
}

// Stop cancels the worker. Idempotent; the loop observes the cancellation at
// its next wait, so the worst-case latency is the longest single script delay.
func (b *Bot) Stop() {
	b.mu.Lock()
	cancel := b.cancelFn
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Done reports a channel closed when the worker has fully exited. Nil when
// the bot never started.
func (b *Bot) Done() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

func (b *Bot) run(ctx context.Context) {
	defer func() {
		b.mu.Lock()
		b.status = StatusStopped
		b.cancelFn = nil
		done := b.done
		b.mu.Unlock()
		event.Send(event.BotStopped(event.Text("bot stopped")))
		close(done)
	}()

	startup := time.Duration(config.Snapshot().Battle.StartupDelaySeconds) * time.Second
	if err := b.wait.Wait(ctx, startup); err != nil {
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}

		cfg := config.Snapshot()

		if b.detector.IsInBattle(cfg.Battle.DetectionThreshold) {
			b.setStatus(StatusInBattle)
			b.stats.IncBattles()
			event.Send(event.BattleStarted(event.Text("battle encountered")))

			if config.AnyAbilityUsesLeft() {
				b.setStatus(StatusAttacking)
			} else {
				b.setStatus(StatusFleeing)
			}

			outcome, err := b.battle.HandleBattle(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				b.logger.Warn("battle loop ended abnormally", slog.Any("error", err))
			}

			switch outcome {
			case BattleFled:
				b.setStatus(StatusFleeing)
				b.stats.IncFlees()
				event.Send(event.BattleFinished(event.Text("fled from battle"), event.OutcomeFled))

				// re-read the flag: encounters can run for minutes and the
				// operator may have toggled escalation from the panel meanwhile
				if config.Snapshot().Recovery.Enabled {
					if b.recover(ctx) {
						// resources are restored, hand control back to the operator
						return
					}
					if ctx.Err() != nil {
						return
					}
				}
			case BattleResolved:
				event.Send(event.BattleFinished(event.Text("battle resolved"), event.OutcomeResolved))
			}

			b.setStatus(StatusMoving)
		} else if b.Status() == StatusMoving {
			if err := b.movement.Cycle(ctx); err != nil {
				return
			}
			b.stats.IncMovementCycles()
			if err := b.wait.Wait(ctx, config.GetMovementTimings().CycleDelay); err != nil {
				return
			}
		}

		if err := b.wait.Wait(ctx, pollDelay); err != nil {
			return
		}
	}
}

// recover travels to the recovery point and restores every ability's uses.
// Returns true when the full cycle succeeded, which always stops the bot:
// the operator is expected to re-supervise after a resource reset. A battle
// starting before the travel key is pressed abandons the attempt; the caller
// falls back to moving and the next flee retries.
func (b *Bot) recover(ctx context.Context) bool {
	cfg := config.Snapshot()

	// let the flee animation finish before pressing anything
	if err := b.wait.Wait(ctx, fleeSettleDelay); err != nil {
		return false
	}

	if b.detector.IsInBattle(cfg.Battle.DetectionThreshold) {
		b.logger.Info("recovery postponed, battle active again")
		return false
	}

	b.setStatus(StatusTraveling)
	event.Send(event.RecoveryStarted(event.Text("traveling to recovery point")))
	b.logger.Info("traveling to recovery point")

	b.hid.Press(cfg.KeyBindings.Travel)
	if err := b.wait.Wait(ctx, time.Duration(cfg.Recovery.TravelWaitMs)*time.Millisecond); err != nil {
		return false
	}
	if err := b.wait.Wait(ctx, postTravelDelay); err != nil {
		return false
	}

	b.setStatus(StatusHealing)
	b.logger.Info("restoring ability uses")

	for i := 0; i < healInteractions; i++ {
		if err := b.wait.Wait(ctx, healStepDelay); err != nil {
			return false
		}
		b.hid.Press(cfg.KeyBindings.Confirm)
	}
	if err := b.wait.Wait(ctx, healStepDelay); err != nil {
		return false
	}

	config.ResetAbilityUses()
	event.Send(event.RecoveryFinished(event.Text("ability uses restored, stopping")))
	b.logger.Info("recovery finished, stopping bot")

	return true
}
