package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/quietgrove/kanto/internal/bot"
	"github.com/quietgrove/kanto/internal/config"
	"github.com/quietgrove/kanto/internal/game"
)

//go:embed all:assets
var assetsFS embed.FS

//go:embed all:templates
var templatesFS embed.FS

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HttpServer is the control surface: it reads engine snapshots for display
// and writes configuration. It never runs detection or input scripts itself.
type HttpServer struct {
	logger    *slog.Logger
	server    *http.Server
	bot       *bot.Bot
	detector  *game.Detector
	templates *template.Template
	wsServer  *WebSocketServer
}

func New(logger *slog.Logger, b *bot.Bot, detector *game.Detector) (*HttpServer, error) {
	helperFuncs := template.FuncMap{
		"add": func(a, b int) int { return a + b },
	}

	templates, err := template.New("").Funcs(helperFuncs).ParseFS(templatesFS, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("error parsing templates: %w", err)
	}

	return &HttpServer{
		logger:    logger,
		bot:       b,
		detector:  detector,
		templates: templates,
	}, nil
}

type AbilityStatus struct {
	Remaining int `json:"remaining"`
	MaxUses   int `json:"maxUses"`
}

type StatusData struct {
	Version    string                             `json:"version"`
	Status     string                             `json:"status"`
	Running    bool                               `json:"running"`
	Stats      bot.StatsSnapshot                  `json:"stats"`
	Abilities  [config.NumAbilities]AbilityStatus `json:"abilities"`
	HPBar      bool                               `json:"hpBarLoaded"`
	BattleMenu bool                               `json:"battleMenuLoaded"`
	Config     config.KantoCfg                    `json:"config"`
}

func (s *HttpServer) getStatusData() StatusData {
	cfg := config.Snapshot()
	// the panel renders settings, never credentials
	cfg.Discord.Token = ""
	cfg.Telegram.Token = ""
	cfg.Ngrok.Authtoken = ""
	cfg.Ngrok.BasicAuthPass = ""

	data := StatusData{
		Version:    config.Version,
		Status:     s.bot.Status().String(),
		Running:    s.bot.Running(),
		Stats:      s.bot.Stats().Snapshot(),
		HPBar:      s.detector.HasTemplate(game.TemplateHPBar),
		BattleMenu: s.detector.HasTemplate(game.TemplateBattleMenu),
		Config:     cfg,
	}
	for i, a := range cfg.Abilities {
		data.Abilities[i] = AbilityStatus{Remaining: a.Remaining, MaxUses: a.MaxUses}
	}

	return data
}

// BroadcastStatus pushes the status snapshot to every websocket client on a
// fixed cadence, driving the live panel refresh.
func (s *HttpServer) BroadcastStatus() {
	for {
		jsonData, err := json.Marshal(s.getStatusData())
		if err != nil {
			s.logger.Error("failed to marshal status data", slog.Any("error", err))
			time.Sleep(1 * time.Second)
			continue
		}

		s.wsServer.broadcast <- jsonData
		time.Sleep(1 * time.Second)
	}
}

func (s *HttpServer) Listen(port int) error {
	s.wsServer = NewWebSocketServer(s.logger)
	go s.wsServer.Run()
	go s.BroadcastStatus()

	http.HandleFunc("/", s.getRoot)
	http.HandleFunc("/start", s.startBot)
	http.HandleFunc("/stop", s.stopBot)
	http.HandleFunc("/ws", s.wsServer.HandleWebSocket)
	http.HandleFunc("/initial-data", s.initialData)
	http.HandleFunc("/api/config", s.updateConfig)
	http.HandleFunc("/api/template", s.uploadTemplate)
	http.HandleFunc("/api/reset-uses", s.resetUses)

	assets, _ := fs.Sub(assetsFS, "assets")
	http.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(http.FS(assets))))

	s.server = &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: nil}

	return s.server.ListenAndServe()
}

func (s *HttpServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

func (s *HttpServer) getRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if err := s.templates.ExecuteTemplate(w, "index.gohtml", s.getStatusData()); err != nil {
		s.logger.Error("failed to render index template", slog.Any("error", err))
	}
}

func (s *HttpServer) initialData(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.getStatusData()); err != nil {
		s.logger.Error("failed to encode status data", slog.Any("error", err))
	}
}

func (s *HttpServer) startBot(w http.ResponseWriter, r *http.Request) {
	if err := s.bot.Start(); err != nil {
		if errors.Is(err, bot.ErrMissingHPTemplate) {
			http.Error(w, "Load the HP bar image first", http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.initialData(w, r)
}

func (s *HttpServer) stopBot(w http.ResponseWriter, r *http.Request) {
	s.bot.Stop()
	s.initialData(w, r)
}

func (s *HttpServer) resetUses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	config.ResetAbilityUses()
	s.initialData(w, r)
}

// updateConfig applies form writes to a copy of the live configuration and
// swaps it in atomically. Any invalid field rejects the whole write and the
// prior values stay in effect.
func (s *HttpServer) updateConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	cfg := config.Snapshot()

	if err := applyConfigForm(&cfg, r.Form); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	oldPattern := config.Snapshot().Movement.Pattern
	cfg.FirstRun = false // settings have been reviewed, hide the welcome hint
	if err := config.ValidateAndSave(cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if cfg.Movement.Pattern != oldPattern {
		s.bot.Movement().SetPattern(cfg.Movement.Pattern)
	}

	s.initialData(w, r)
}

func applyConfigForm(cfg *config.KantoCfg, form map[string][]string) error {
	get := func(key string) (string, bool) {
		v, ok := form[key]
		if !ok || len(v) == 0 {
			return "", false
		}
		return v[0], true
	}

	if v, ok := get("detectionThreshold"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("detection threshold must be a number: %q", v)
		}
		cfg.Battle.DetectionThreshold = f
	}

	intFields := map[string]*int{
		"timePerSpaceMs": &cfg.Movement.TimePerSpaceMs,
		"timeToTurnMs":   &cfg.Movement.TimeToTurnMs,
		"cycleDelayMs":   &cfg.Movement.CycleDelayMs,
		"spaces":         &cfg.Movement.Spaces,
		"attackWaitMs":   &cfg.Battle.AttackWaitMs,
		"primaryAbility": &cfg.Battle.PrimaryAbility,
		"backupAbility":  &cfg.Battle.BackupAbility,
	}
	for key, target := range intFields {
		if v, ok := get(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s must be a number: %q", key, v)
			}
			*target = n
		}
	}

	if v, ok := get("pattern"); ok {
		cfg.Movement.Pattern = v
	}
	if v, ok := get("useBackup"); ok {
		cfg.Battle.UseBackup = v == "true" || v == "on"
	}
	if v, ok := get("recoveryEnabled"); ok {
		cfg.Recovery.Enabled = v == "true" || v == "on"
	}

	for i := 1; i <= config.NumAbilities; i++ {
		if v, ok := get(fmt.Sprintf("maxUses%d", i)); ok {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("max uses for ability %d must be a positive number: %q", i, v)
			}
			cfg.Abilities[i-1].MaxUses = n
		}
	}

	return nil
}

// uploadTemplate receives a reference bitmap from the panel and hands it to
// the detector, which also persists it to the canonical store.
func (s *HttpServer) uploadTemplate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		http.Error(w, "invalid upload", http.StatusBadRequest)
		return
	}

	name := r.FormValue("name")
	if name != game.TemplateHPBar && name != game.TemplateBattleMenu {
		http.Error(w, fmt.Sprintf("unknown template name %q", name), http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "missing image file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "could not read image file", http.StatusBadRequest)
		return
	}

	if err := s.detector.LoadTemplateBytes(name, data); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.initialData(w, r)
}
