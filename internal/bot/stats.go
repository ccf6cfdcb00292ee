package bot

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Stats are monotonic run counters. They survive start/stop cycles and reset
// only with the process; each start just stamps a new session id.
type Stats struct {
	mu             sync.RWMutex
	sessionID      string
	startedAt      time.Time
	movementCycles int
	battles        int
	flees          int
}

type StatsSnapshot struct {
	SessionID      string    `json:"sessionId"`
	StartedAt      time.Time `json:"startedAt"`
	MovementCycles int       `json:"movementCycles"`
	Battles        int       `json:"battles"`
	Flees          int       `json:"flees"`
}

func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) StartSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = uuid.NewString()
	s.startedAt = time.Now()
	return s.sessionID
}

func (s *Stats) IncMovementCycles() {
	s.mu.Lock()
	s.movementCycles++
	s.mu.Unlock()
}

func (s *Stats) IncBattles() {
	s.mu.Lock()
	s.battles++
	s.mu.Unlock()
}

func (s *Stats) IncFlees() {
	s.mu.Lock()
	s.flees++
	s.mu.Unlock()
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StatsSnapshot{
		SessionID:      s.sessionID,
		StartedAt:      s.startedAt,
		MovementCycles: s.movementCycles,
		Battles:        s.battles,
		Flees:          s.flees,
	}
}
