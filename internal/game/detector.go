package game

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"
)

// Template names the detector knows about. hp_bar signals a battle is
// active, battle_menu that it is our turn to act.
const (
	TemplateHPBar      = "hp_bar"
	TemplateBattleMenu = "battle_menu"
)

var storedTemplateFiles = map[string][]string{
	TemplateHPBar:      {"hp_bar.png", "hp_bar.jpg"},
	TemplateBattleMenu: {"battle_menu.png", "battle_options.png", "battle_menu.jpg"},
}

// Detector holds the reference bitmaps and matches them against fresh screen
// captures. Every Detect call re-captures: the game state can change between
// calls and the outer loop relies on exactly that for polling.
type Detector struct {
	logger   *slog.Logger
	capture  CaptureProvider
	storeDir string

	mu        sync.RWMutex
	templates map[string]gocv.Mat
}

func NewDetector(logger *slog.Logger, capture CaptureProvider, storeDir string) *Detector {
	return &Detector{
		logger:    logger,
		capture:   capture,
		storeDir:  storeDir,
		templates: make(map[string]gocv.Mat),
	}
}

// LoadStoredTemplates picks up the bitmaps persisted from a previous session.
// Missing files are fine, an undecodable one is reported and skipped.
func (d *Detector) LoadStoredTemplates() {
	for name, files := range storedTemplateFiles {
		for _, file := range files {
			path := filepath.Join(d.storeDir, file)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := d.LoadTemplateFile(name, path); err != nil {
				d.logger.Warn("skipping stored template", slog.String("file", path), slog.Any("error", err))
				continue
			}
			break
		}
	}
}

// LoadTemplateFile reads a reference bitmap from disk, replacing any previous
// one under the same name, and persists a copy to the canonical store so it
// survives restarts.
func (d *Detector) LoadTemplateFile(name, path string) error {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		return fmt.Errorf("could not decode template image %s", path)
	}

	return d.install(name, mat)
}

// LoadTemplateBytes decodes an uploaded bitmap, used by the control surface.
func (d *Detector) LoadTemplateBytes(name string, data []byte) error {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return fmt.Errorf("could not decode template %s: %w", name, err)
	}
	if mat.Empty() {
		return fmt.Errorf("template %s decoded to an empty image", name)
	}

	return d.install(name, mat)
}

func (d *Detector) install(name string, mat gocv.Mat) error {
	if d.storeDir != "" {
		if err := os.MkdirAll(d.storeDir, 0755); err == nil {
			canonical := filepath.Join(d.storeDir, name+".png")
			if ok := gocv.IMWrite(canonical, mat); !ok {
				d.logger.Warn("could not persist template", slog.String("name", name))
			}
		}
	}

	d.mu.Lock()
	if old, ok := d.templates[name]; ok {
		_ = old.Close()
	}
	d.templates[name] = mat
	d.mu.Unlock()

	d.logger.Info("template loaded", slog.String("name", name))

	return nil
}

func (d *Detector) HasTemplate(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.templates[name]
	return ok
}

// Detect captures the screen and template-matches the named bitmap against
// it, reporting whether the best normalized cross-correlation score reaches
// the threshold. Fails closed: unknown names, capture errors and undersized
// frames all come back as "not detected", logged for diagnostics, never as an
// error to the caller.
func (d *Detector) Detect(name string, threshold float64) bool {
	// the read lock covers the whole match: a concurrent upload replacing the
	// template closes the old mat, which must not happen mid-MatchTemplate
	d.mu.RLock()
	defer d.mu.RUnlock()

	tmpl, ok := d.templates[name]
	if !ok {
		return false
	}

	img, err := d.capture.CaptureScreen()
	if err != nil {
		d.logger.Debug("screen capture failed, treating as no match", slog.String("template", name), slog.Any("error", err))
		return false
	}

	screen, err := gocv.ImageToMatRGB(img)
	if err != nil {
		d.logger.Debug("could not convert capture to mat", slog.Any("error", err))
		return false
	}
	defer screen.Close()

	if tmpl.Cols() > screen.Cols() || tmpl.Rows() > screen.Rows() {
		d.logger.Debug("template larger than captured frame", slog.String("template", name))
		return false
	}

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	gocv.MatchTemplate(screen, tmpl, &result, gocv.TmCcoeffNormed, mask)
	_, maxVal, _, _ := gocv.MinMaxLoc(result)

	return float64(maxVal) >= threshold
}

// IsInBattle reports whether the battle HP bar is on screen.
func (d *Detector) IsInBattle(threshold float64) bool {
	return d.Detect(TemplateHPBar, threshold)
}

// IsBattleMenuVisible reports whether the fight/bag/run menu is on screen.
func (d *Detector) IsBattleMenuVisible(threshold float64) bool {
	return d.Detect(TemplateBattleMenu, threshold)
}

// Close releases the template mats.
func (d *Detector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for name, mat := range d.templates {
		_ = mat.Close()
		delete(d.templates, name)
	}
}
