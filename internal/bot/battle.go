package bot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/quietgrove/kanto/internal/config"
)

type BattleOutcome int

const (
	BattleResolved BattleOutcome = iota
	BattleFled
)

// maxBattleIterations bounds the encounter loop. The game always ends a
// battle eventually, but a stale template match could keep reporting
// battle-active forever; the cap turns that into a logged abort instead of a
// stuck worker. At the default 11s action wait this is around ten minutes.
const maxBattleIterations = 60

var ErrBattleTimeout = errors.New("battle still active after iteration cap")

// BattlePolicy resolves one encounter at a time: pick an ability while uses
// remain, fall back to the backup slot, flee when both are dry.
type BattlePolicy struct {
	logger   *slog.Logger
	detector Detector
	hid      Inputs
	wait     Waiter
}

func NewBattlePolicy(logger *slog.Logger, detector Detector, hid Inputs, wait Waiter) *BattlePolicy {
	return &BattlePolicy{
		logger:   logger,
		detector: detector,
		hid:      hid,
		wait:     wait,
	}
}

// chooseAbility returns the slot to fight with, or 0 when every enabled slot
// is exhausted. remaining reports the use counter for a slot id.
func chooseAbility(remaining func(id int) int, primary, backup int, useBackup bool) int {
	if remaining(primary) > 0 {
		return primary
	}
	if useBackup && remaining(backup) > 0 {
		return backup
	}
	return 0
}

func chooseConfiguredAbility(cfg config.KantoCfg) int {
	return chooseAbility(func(id int) int {
		return cfg.Abilities[id-1].Remaining
	}, cfg.Battle.PrimaryAbility, cfg.Battle.BackupAbility, cfg.Battle.UseBackup)
}

// HandleBattle drives the encounter until the HP bar disappears or the policy
// flees. Configuration is re-snapshotted every iteration so threshold and
// ability edits from the panel take effect mid-encounter.
func (b *BattlePolicy) HandleBattle(ctx context.Context) (BattleOutcome, error) {
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return BattleResolved, err
		}
		if i >= maxBattleIterations {
			return BattleResolved, ErrBattleTimeout
		}

		cfg := config.Snapshot()
		threshold := cfg.Battle.DetectionThreshold

		if !b.detector.IsInBattle(threshold) {
			return BattleResolved, nil
		}

		if b.detector.IsBattleMenuVisible(threshold) {
			slot := chooseConfiguredAbility(cfg)
			if slot == 0 {
				b.logger.Info("no ability uses left, fleeing")
				if err := b.runScript(ctx, fleeScript, cfg.KeyBindings); err != nil {
					return BattleFled, err
				}
				return BattleFled, nil
			}

			if err := b.fight(ctx, slot, cfg.KeyBindings); err != nil {
				return BattleResolved, err
			}
		}

		// wait out the turn animation and the opponent's move
		if err := b.wait.Wait(ctx, time.Duration(cfg.Battle.AttackWaitMs)*time.Millisecond); err != nil {
			return BattleResolved, err
		}

		if !b.detector.IsInBattle(threshold) {
			return BattleResolved, nil
		}
	}
}

// fight opens the FIGHT menu, navigates to the slot and confirms. The use
// counter is decremented only after the whole script ran, so a cancellation
// mid-script does not burn a use that was never issued.
func (b *BattlePolicy) fight(ctx context.Context, slot int, kb config.KeyBindings) error {
	b.logger.Debug("using ability", slog.Int("slot", slot))

	if err := b.runScript(ctx, openFightScript, kb); err != nil {
		return err
	}
	if err := b.runScript(ctx, abilitySlotScripts[slot], kb); err != nil {
		return err
	}
	if err := b.runScript(ctx, confirmScript, kb); err != nil {
		return err
	}

	return config.ConsumeAbilityUse(slot)
}

func (b *BattlePolicy) runScript(ctx context.Context, steps []scriptStep, kb config.KeyBindings) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.hid.Press(step.key(kb))
		if err := b.wait.Wait(ctx, step.Delay); err != nil {
			return err
		}
	}
	return nil
}
