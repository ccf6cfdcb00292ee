package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/quietgrove/kanto/internal/config"
)

// fakeWaiter records requested durations without suspending, so loops driven
// by it iterate as fast as the scheduler allows.
type fakeWaiter struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (w *fakeWaiter) Wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	w.waits = append(w.waits, d)
	w.mu.Unlock()
	return nil
}

type fakeHID struct {
	mu      sync.Mutex
	presses []string
	downs   []string
	ups     []string
}

func (h *fakeHID) Press(key string) {
	h.mu.Lock()
	h.presses = append(h.presses, key)
	h.mu.Unlock()
}

func (h *fakeHID) KeyDown(key string) {
	h.mu.Lock()
	h.downs = append(h.downs, key)
	h.mu.Unlock()
}

func (h *fakeHID) KeyUp(key string) {
	h.mu.Lock()
	h.ups = append(h.ups, key)
	h.mu.Unlock()
}

func (h *fakeHID) pressed() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.presses...)
}

func (h *fakeHID) countPressed(key string) int {
	n := 0
	for _, k := range h.pressed() {
		if k == key {
			n++
		}
	}
	return n
}

// fakeDetector reports in-battle for the first battleChecks calls and
// out-of-battle afterwards, which is enough to script one encounter.
type fakeDetector struct {
	mu           sync.Mutex
	battleChecks int
	menuVisible  bool
	templates    map[string]bool
	battleCalls  int

	// menuHook runs once, on the first menu check, from the worker goroutine.
	menuHook func()
}

func (d *fakeDetector) IsInBattle(threshold float64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.battleCalls++
	return d.battleCalls <= d.battleChecks
}

func (d *fakeDetector) IsBattleMenuVisible(threshold float64) bool {
	d.mu.Lock()
	hook := d.menuHook
	d.menuHook = nil
	visible := d.menuVisible
	d.mu.Unlock()

	if hook != nil {
		hook()
	}
	return visible
}

func (d *fakeDetector) HasTemplate(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.templates[name]
}

// setTestConfig installs a fresh default configuration for the test and
// restores the previous one on cleanup.
func setTestConfig(t *testing.T) *config.KantoCfg {
	t.Helper()

	prev := config.Kanto
	t.Cleanup(func() { config.Kanto = prev })

	cfg := &config.KantoCfg{}
	cfg.Movement.TimePerSpaceMs = 200
	cfg.Movement.TimeToTurnMs = 120
	cfg.Movement.CycleDelayMs = 500
	cfg.Movement.Pattern = config.PatternHorizontal
	cfg.Movement.Spaces = 2
	cfg.Battle.DetectionThreshold = 0.8
	cfg.Battle.AttackWaitMs = 100
	cfg.Battle.StartupDelaySeconds = 1
	cfg.Battle.PrimaryAbility = 1
	cfg.Battle.BackupAbility = 2
	cfg.Battle.UseBackup = true
	cfg.Recovery.TravelWaitMs = 100
	cfg.KeyBindings = config.KeyBindings{
		Up:      "up",
		Down:    "down",
		Left:    "left",
		Right:   "right",
		Confirm: "z",
		Travel:  "9",
	}
	for i := range cfg.Abilities {
		cfg.Abilities[i].MaxUses = 10
		cfg.Abilities[i].Remaining = 10
	}

	config.Kanto = cfg
	return cfg
}
