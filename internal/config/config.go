package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	cp "github.com/otiai10/copy"
	"gopkg.in/yaml.v3"
)

var (
	cfgMux sync.RWMutex
	Kanto  *KantoCfg

	Version = "dev"
)

// NumAbilities is the size of the in-game ability list. Slots are addressed
// 1..NumAbilities everywhere outside this package.
const NumAbilities = 4

const (
	PatternHorizontal = "horizontal"
	PatternVertical   = "vertical"
)

var ErrInvalidAbility = errors.New("ability id must be between 1 and 4")

// AbilityCfg tracks the use counters for one ability slot. Remaining is
// runtime state and is intentionally not persisted: a restart starts from a
// full counter, same as re-opening the game after a recovery trip.
type AbilityCfg struct {
	MaxUses   int `yaml:"maxUses"`
	Remaining int `yaml:"-"`
}

type KeyBindings struct {
	Up      string `yaml:"up"`
	Down    string `yaml:"down"`
	Left    string `yaml:"left"`
	Right   string `yaml:"right"`
	Confirm string `yaml:"confirm"`
	Travel  string `yaml:"travel"`
}

type KantoCfg struct {
	Debug struct {
		Log bool `yaml:"log"`
	} `yaml:"debug"`
	FirstRun           bool   `yaml:"firstRun"`
	LogSaveDirectory   string `yaml:"logSaveDirectory"`
	TemplatesDirectory string `yaml:"templatesDirectory"`

	Server struct {
		Port         int  `yaml:"port"`
		OpenWindow   bool `yaml:"openWindow"`
		WindowWidth  int  `yaml:"windowWidth"`
		WindowHeight int  `yaml:"windowHeight"`
	} `yaml:"server"`

	Movement struct {
		TimePerSpaceMs int    `yaml:"timePerSpaceMs"`
		TimeToTurnMs   int    `yaml:"timeToTurnMs"`
		CycleDelayMs   int    `yaml:"cycleDelayMs"`
		Pattern        string `yaml:"pattern"`
		Spaces         int    `yaml:"spaces"`
	} `yaml:"movement"`

	Battle struct {
		DetectionThreshold  float64 `yaml:"detectionThreshold"`
		AttackWaitMs        int     `yaml:"attackWaitMs"`
		StartupDelaySeconds int     `yaml:"startupDelaySeconds"`
		PrimaryAbility      int     `yaml:"primaryAbility"`
		BackupAbility       int     `yaml:"backupAbility"`
		UseBackup           bool    `yaml:"useBackup"`
	} `yaml:"battle"`

	Recovery struct {
		Enabled      bool `yaml:"enabled"`
		TravelWaitMs int  `yaml:"travelWaitMs"`
	} `yaml:"recovery"`

	KeyBindings KeyBindings `yaml:"keyBindings"`

	Abilities [NumAbilities]AbilityCfg `yaml:"abilities"`

	Discord struct {
		Enabled   bool     `yaml:"enabled"`
		BotAdmins []string `yaml:"botAdmins"`
		ChannelID string   `yaml:"channelId"`
		Token     string   `yaml:"token"`
	} `yaml:"discord"`
	Telegram struct {
		Enabled bool   `yaml:"enabled"`
		ChatID  int64  `yaml:"chatId"`
		Token   string `yaml:"token"`
	} `yaml:"telegram"`
	Ngrok struct {
		Enabled       bool   `yaml:"enabled"`
		Authtoken     string `yaml:"authtoken"`
		Region        string `yaml:"region"`
		Domain        string `yaml:"domain"`
		BasicAuthUser string `yaml:"basicAuthUser"`
		BasicAuthPass string `yaml:"basicAuthPass"`
	} `yaml:"ngrok"`
}

// Load reads config/kanto.yaml into the package-level config. On first run
// the bundled template directory is copied in place so the user starts from
// a working file.
func Load() error {
	cfgMux.Lock()
	defer cfgMux.Unlock()

	cfgPath := getAbsPath(filepath.Join("config", "kanto.yaml"))
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := cp.Copy(getAbsPath(filepath.Join("config", "template")), getAbsPath("config")); err != nil {
			return fmt.Errorf("error creating config from template: %w", err)
		}
	}

	r, err := os.Open(cfgPath)
	if err != nil {
		return fmt.Errorf("error loading kanto.yaml: %w", err)
	}
	defer r.Close()

	cfg := &KantoCfg{}
	d := yaml.NewDecoder(r)
	if err = d.Decode(cfg); err != nil {
		return fmt.Errorf("error reading config %s: %w", cfgPath, err)
	}

	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return err
	}

	for i := range cfg.Abilities {
		cfg.Abilities[i].Remaining = cfg.Abilities[i].MaxUses
	}
	decryptRemoteTokens(cfg)

	Kanto = cfg

	return nil
}

func applyDefaults(cfg *KantoCfg) {
	if cfg.LogSaveDirectory == "" {
		cfg.LogSaveDirectory = "logs"
	}
	if cfg.TemplatesDirectory == "" {
		cfg.TemplatesDirectory = "templates"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8087
	}
	if cfg.Movement.TimePerSpaceMs == 0 {
		cfg.Movement.TimePerSpaceMs = 200
	}
	if cfg.Movement.TimeToTurnMs == 0 {
		cfg.Movement.TimeToTurnMs = 120
	}
	if cfg.Movement.CycleDelayMs == 0 {
		cfg.Movement.CycleDelayMs = 500
	}
	if cfg.Movement.Pattern == "" {
		cfg.Movement.Pattern = PatternHorizontal
	}
	if cfg.Movement.Spaces == 0 {
		cfg.Movement.Spaces = 1
	}
	if cfg.Battle.DetectionThreshold == 0 {
		cfg.Battle.DetectionThreshold = 0.8
	}
	if cfg.Battle.AttackWaitMs == 0 {
		cfg.Battle.AttackWaitMs = 11000
	}
	if cfg.Battle.StartupDelaySeconds == 0 {
		cfg.Battle.StartupDelaySeconds = 3
	}
	if cfg.Battle.PrimaryAbility == 0 {
		cfg.Battle.PrimaryAbility = 1
	}
	if cfg.Battle.BackupAbility == 0 {
		cfg.Battle.BackupAbility = 2
	}
	if cfg.Recovery.TravelWaitMs == 0 {
		cfg.Recovery.TravelWaitMs = 6000
	}
	if cfg.KeyBindings.Up == "" {
		cfg.KeyBindings = KeyBindings{
			Up:      "up",
			Down:    "down",
			Left:    "left",
			Right:   "right",
			Confirm: "z",
			Travel:  "9",
		}
	}
	for i := range cfg.Abilities {
		if cfg.Abilities[i].MaxUses == 0 {
			cfg.Abilities[i].MaxUses = 20
		}
	}
}

func validate(cfg *KantoCfg) error {
	if cfg.Battle.DetectionThreshold < 0 || cfg.Battle.DetectionThreshold > 1 {
		return fmt.Errorf("detection threshold %.2f outside [0,1]", cfg.Battle.DetectionThreshold)
	}
	if cfg.Movement.TimePerSpaceMs < 150 || cfg.Movement.TimePerSpaceMs > 300 {
		return fmt.Errorf("time per space %dms outside 150..300", cfg.Movement.TimePerSpaceMs)
	}
	if cfg.Movement.TimeToTurnMs < 80 || cfg.Movement.TimeToTurnMs > 200 {
		return fmt.Errorf("turn time %dms outside 80..200", cfg.Movement.TimeToTurnMs)
	}
	if cfg.Movement.CycleDelayMs < 300 || cfg.Movement.CycleDelayMs > 2000 {
		return fmt.Errorf("cycle delay %dms outside 300..2000", cfg.Movement.CycleDelayMs)
	}
	if cfg.Movement.Pattern != PatternHorizontal && cfg.Movement.Pattern != PatternVertical {
		return fmt.Errorf("unknown movement pattern %q", cfg.Movement.Pattern)
	}
	if cfg.Movement.Spaces < 1 || cfg.Movement.Spaces > 4 {
		return fmt.Errorf("movement spaces %d outside 1..4", cfg.Movement.Spaces)
	}
	if !validAbilityID(cfg.Battle.PrimaryAbility) || !validAbilityID(cfg.Battle.BackupAbility) {
		return ErrInvalidAbility
	}
	for i, a := range cfg.Abilities {
		if a.MaxUses <= 0 {
			return fmt.Errorf("ability %d max uses must be positive", i+1)
		}
	}
	return nil
}

func validAbilityID(id int) bool {
	return id >= 1 && id <= NumAbilities
}

// Snapshot returns a consistent copy of the whole configuration. The worker
// reads through this so a control-surface write can never be observed half
// applied.
func Snapshot() KantoCfg {
	cfgMux.RLock()
	defer cfgMux.RUnlock()
	return *Kanto
}

// MovementTimings is the subset the movement engine needs per move.
type MovementTimings struct {
	TimePerSpace time.Duration
	TimeToTurn   time.Duration
	CycleDelay   time.Duration
	Pattern      string
	Spaces       int
}

func GetMovementTimings() MovementTimings {
	cfgMux.RLock()
	defer cfgMux.RUnlock()
	return MovementTimings{
		TimePerSpace: time.Duration(Kanto.Movement.TimePerSpaceMs) * time.Millisecond,
		TimeToTurn:   time.Duration(Kanto.Movement.TimeToTurnMs) * time.Millisecond,
		CycleDelay:   time.Duration(Kanto.Movement.CycleDelayMs) * time.Millisecond,
		Pattern:      Kanto.Movement.Pattern,
		Spaces:       Kanto.Movement.Spaces,
	}
}

// AbilityUses returns the remaining and maximum uses for an ability slot.
func AbilityUses(id int) (remaining, max int, err error) {
	if !validAbilityID(id) {
		return 0, 0, ErrInvalidAbility
	}
	cfgMux.RLock()
	defer cfgMux.RUnlock()
	a := Kanto.Abilities[id-1]
	return a.Remaining, a.MaxUses, nil
}

// ConsumeAbilityUse decrements the remaining counter for one ability,
// flooring at zero. Called only after a fight script executed successfully.
func ConsumeAbilityUse(id int) error {
	if !validAbilityID(id) {
		return ErrInvalidAbility
	}
	cfgMux.Lock()
	defer cfgMux.Unlock()
	if Kanto.Abilities[id-1].Remaining > 0 {
		Kanto.Abilities[id-1].Remaining--
	}
	return nil
}

// SetAbilityMaxUses updates the maximum for one slot and resets its remaining
// counter, mirroring the behaviour of editing the value on the panel.
func SetAbilityMaxUses(id, max int) error {
	if !validAbilityID(id) {
		return ErrInvalidAbility
	}
	if max <= 0 {
		return fmt.Errorf("max uses must be positive, got %d", max)
	}
	cfgMux.Lock()
	defer cfgMux.Unlock()
	Kanto.Abilities[id-1].MaxUses = max
	Kanto.Abilities[id-1].Remaining = max
	return nil
}

// ResetAbilityUses restores every remaining counter to its maximum.
func ResetAbilityUses() {
	cfgMux.Lock()
	defer cfgMux.Unlock()
	for i := range Kanto.Abilities {
		Kanto.Abilities[i].Remaining = Kanto.Abilities[i].MaxUses
	}
}

// AnyAbilityUsesLeft reports whether the configured abilities can still
// fight: the primary slot, plus the backup slot when backup is enabled.
func AnyAbilityUsesLeft() bool {
	cfgMux.RLock()
	defer cfgMux.RUnlock()
	if Kanto.Abilities[Kanto.Battle.PrimaryAbility-1].Remaining > 0 {
		return true
	}
	if Kanto.Battle.UseBackup && Kanto.Abilities[Kanto.Battle.BackupAbility-1].Remaining > 0 {
		return true
	}
	return false
}

// ValidateAndSave validates a full configuration, persists it to disk and
// swaps it in as the live one. Ability remaining counters are carried over
// unchanged; only their maximums come from the incoming value.
func ValidateAndSave(cfg KantoCfg) error {
	if err := validate(&cfg); err != nil {
		return err
	}

	cfgMux.Lock()
	defer cfgMux.Unlock()

	for i := range cfg.Abilities {
		cfg.Abilities[i].Remaining = Kanto.Abilities[i].Remaining
		if cfg.Abilities[i].MaxUses != Kanto.Abilities[i].MaxUses {
			cfg.Abilities[i].Remaining = cfg.Abilities[i].MaxUses
		}
		if cfg.Abilities[i].Remaining > cfg.Abilities[i].MaxUses {
			cfg.Abilities[i].Remaining = cfg.Abilities[i].MaxUses
		}
	}

	if err := writeConfig(&cfg); err != nil {
		return err
	}

	Kanto = &cfg

	return nil
}

// Save persists the current live configuration, used after single-field
// mutations from the control surface.
func Save() error {
	cfgMux.RLock()
	defer cfgMux.RUnlock()
	return writeConfig(Kanto)
}

func writeConfig(cfg *KantoCfg) error {
	onDisk := *cfg
	encryptRemoteTokens(&onDisk)

	text, err := yaml.Marshal(&onDisk)
	if err != nil {
		return fmt.Errorf("error marshalling kanto config: %w", err)
	}

	if err := os.WriteFile(getAbsPath(filepath.Join("config", "kanto.yaml")), text, 0644); err != nil {
		return fmt.Errorf("error writing kanto config: %w", err)
	}

	return nil
}

func getAbsPath(relPath string) string {
	cwd, err := os.Getwd()
	if err != nil {
		// error is surfaced by the Load open call
		return relPath
	}
	return filepath.Join(cwd, relPath)
}
