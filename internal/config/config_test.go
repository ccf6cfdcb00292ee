package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func newTestCfg() *KantoCfg {
	cfg := &KantoCfg{}
	applyDefaults(cfg)
	for i := range cfg.Abilities {
		cfg.Abilities[i].Remaining = cfg.Abilities[i].MaxUses
	}
	return cfg
}

func setTestConfig(t *testing.T) *KantoCfg {
	t.Helper()
	prev := Kanto
	t.Cleanup(func() { Kanto = prev })
	Kanto = newTestCfg()
	return Kanto
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *KantoCfg)
		wantErr bool
	}{
		{"defaults are valid", func(cfg *KantoCfg) {}, false},
		{"threshold above one", func(cfg *KantoCfg) { cfg.Battle.DetectionThreshold = 1.2 }, true},
		{"negative threshold", func(cfg *KantoCfg) { cfg.Battle.DetectionThreshold = -0.1 }, true},
		{"unknown pattern", func(cfg *KantoCfg) { cfg.Movement.Pattern = "diagonal" }, true},
		{"spaces too large", func(cfg *KantoCfg) { cfg.Movement.Spaces = 5 }, true},
		{"spaces zero", func(cfg *KantoCfg) { cfg.Movement.Spaces = 0 }, true},
		{"time per space out of range", func(cfg *KantoCfg) { cfg.Movement.TimePerSpaceMs = 500 }, true},
		{"turn time out of range", func(cfg *KantoCfg) { cfg.Movement.TimeToTurnMs = 10 }, true},
		{"cycle delay out of range", func(cfg *KantoCfg) { cfg.Movement.CycleDelayMs = 5000 }, true},
		{"primary ability out of range", func(cfg *KantoCfg) { cfg.Battle.PrimaryAbility = 5 }, true},
		{"backup ability out of range", func(cfg *KantoCfg) { cfg.Battle.BackupAbility = 0 }, true},
		{"zero max uses", func(cfg *KantoCfg) { cfg.Abilities[0].MaxUses = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestCfg()
			tt.mutate(cfg)
			err := validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConsumeAbilityUseFloorsAtZero(t *testing.T) {
	cfg := setTestConfig(t)
	cfg.Abilities[0].Remaining = 1

	if err := ConsumeAbilityUse(1); err != nil {
		t.Fatalf("ConsumeAbilityUse: %v", err)
	}
	if err := ConsumeAbilityUse(1); err != nil {
		t.Fatalf("ConsumeAbilityUse: %v", err)
	}

	remaining, _, _ := AbilityUses(1)
	if remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}
}

func TestAbilityIDValidation(t *testing.T) {
	setTestConfig(t)

	for _, id := range []int{-1, 0, 5} {
		if err := ConsumeAbilityUse(id); !errors.Is(err, ErrInvalidAbility) {
			t.Errorf("ConsumeAbilityUse(%d) error = %v, want ErrInvalidAbility", id, err)
		}
		if _, _, err := AbilityUses(id); !errors.Is(err, ErrInvalidAbility) {
			t.Errorf("AbilityUses(%d) error = %v, want ErrInvalidAbility", id, err)
		}
		if err := SetAbilityMaxUses(id, 10); !errors.Is(err, ErrInvalidAbility) {
			t.Errorf("SetAbilityMaxUses(%d) error = %v, want ErrInvalidAbility", id, err)
		}
	}
}

func TestSetAbilityMaxUsesResetsRemaining(t *testing.T) {
	cfg := setTestConfig(t)
	cfg.Abilities[1].Remaining = 3

	if err := SetAbilityMaxUses(2, 15); err != nil {
		t.Fatalf("SetAbilityMaxUses: %v", err)
	}

	remaining, max, _ := AbilityUses(2)
	if max != 15 || remaining != 15 {
		t.Errorf("uses = %d/%d, want 15/15", remaining, max)
	}

	if err := SetAbilityMaxUses(2, 0); err == nil {
		t.Error("SetAbilityMaxUses(2, 0) should fail")
	}
}

func TestResetAbilityUses(t *testing.T) {
	cfg := setTestConfig(t)
	for i := range cfg.Abilities {
		cfg.Abilities[i].Remaining = 0
	}

	ResetAbilityUses()
	ResetAbilityUses()

	for i := 1; i <= NumAbilities; i++ {
		remaining, max, _ := AbilityUses(i)
		if remaining != max {
			t.Errorf("ability %d remaining = %d, want %d", i, remaining, max)
		}
	}
}

func TestAnyAbilityUsesLeft(t *testing.T) {
	cfg := setTestConfig(t)
	cfg.Battle.UseBackup = true

	if !AnyAbilityUsesLeft() {
		t.Error("expected uses left with full counters")
	}

	cfg.Abilities[0].Remaining = 0
	if !AnyAbilityUsesLeft() {
		t.Error("expected backup uses to count while backup is enabled")
	}

	cfg.Battle.UseBackup = false
	if AnyAbilityUsesLeft() {
		t.Error("disabled backup must not count towards uses left")
	}

	cfg.Battle.UseBackup = true
	cfg.Abilities[1].Remaining = 0
	if AnyAbilityUsesLeft() {
		t.Error("expected no uses left with both slots dry")
	}
}

func TestConcurrentCounterUpdates(t *testing.T) {
	setTestConfig(t)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = ConsumeAbilityUse(1)
				_ = AnyAbilityUsesLeft()
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = SetAbilityMaxUses(1, 10+i%5)
			ResetAbilityUses()
		}
	}()
	wg.Wait()

	remaining, max, err := AbilityUses(1)
	if err != nil {
		t.Fatalf("AbilityUses: %v", err)
	}
	if remaining < 0 || remaining > max {
		t.Errorf("remaining %d outside [0,%d]", remaining, max)
	}
}

func TestValidateAndSaveCarriesRemainingCounters(t *testing.T) {
	tmp := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmp, "config"), 0755); err != nil {
		t.Fatal(err)
	}
	prevWD, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(tmp); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prevWD) })

	cfg := setTestConfig(t)
	cfg.Abilities[0].Remaining = 4
	cfg.Abilities[1].Remaining = 7

	incoming := *cfg
	incoming.Abilities[1].MaxUses = 30
	incoming.Movement.Spaces = 3

	if err := ValidateAndSave(incoming); err != nil {
		t.Fatalf("ValidateAndSave: %v", err)
	}

	// untouched maximum keeps the live counter
	remaining, _, _ := AbilityUses(1)
	if remaining != 4 {
		t.Errorf("ability 1 remaining = %d, want 4", remaining)
	}
	// changed maximum resets to the new maximum
	remaining, max, _ := AbilityUses(2)
	if max != 30 || remaining != 30 {
		t.Errorf("ability 2 uses = %d/%d, want 30/30", remaining, max)
	}
	if Snapshot().Movement.Spaces != 3 {
		t.Errorf("spaces = %d, want 3", Snapshot().Movement.Spaces)
	}

	if _, err := os.Stat(filepath.Join(tmp, "config", "kanto.yaml")); err != nil {
		t.Errorf("expected persisted config file: %v", err)
	}
}

func TestValidateAndSaveRejectsInvalidConfigAtomically(t *testing.T) {
	cfg := setTestConfig(t)
	before := cfg.Movement.Spaces

	incoming := *cfg
	incoming.Movement.Spaces = 9

	if err := ValidateAndSave(incoming); err == nil {
		t.Fatal("expected validation error")
	}
	if Snapshot().Movement.Spaces != before {
		t.Errorf("rejected write mutated live config: spaces = %d, want %d", Snapshot().Movement.Spaces, before)
	}
}
