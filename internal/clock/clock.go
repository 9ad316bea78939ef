// Package clock implements the 1Hz countdown service spec.md §4.D
// describes. It is grounded on hardware/brightness/brightness.go's
// ticker-driven background goroutine with an idempotent quit channel,
// generalized from stepwise brightness ramping to turn-based chess time
// control.
package clock

import (
	"sync"
	"time"

	"github.com/vincent99/chessboard/internal/chesscore"
	"github.com/vincent99/chessboard/internal/store"
)

// FlagHandler is notified exactly once when a side's clock reaches zero.
type FlagHandler func(color chesscore.Color)

// Service owns the periodic tick and serializes start/pause/resume under a
// single lock, same discipline hardware/brightness/brightness.go's Stop()
// uses to make repeated calls safe.
type Service struct {
	clock   *store.ClockStore
	onFlag  FlagHandler

	mu      sync.Mutex
	running bool
	quit    chan struct{}
	done    chan struct{}
}

// New constructs a clock service bound to the given clock sub-store.
func New(clockStore *store.ClockStore, onFlag FlagHandler) *Service {
	return &Service{clock: clockStore, onFlag: onFlag}
}

// Start begins ticking if not already running. Idempotent: a second call
// while already running is a no-op.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.clock.SetRunning(true)
	s.quit = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.quit, s.done)
}

// Pause stops ticking without losing remaining time. Idempotent.
func (s *Service) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.quit)
	<-s.done
	s.running = false
	s.clock.SetRunning(false)
}

// Resume is an alias of Start kept for call-site clarity after a Pause.
func (s *Service) Resume() {
	s.Start()
}

// SwitchTurn swaps the active color and applies the increment to the mover,
// called by internal/game once a move completes.
func (s *Service) SwitchTurn() {
	s.clock.SwitchTurn()
}

func (s *Service) run(quit, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			flagged := s.clock.Tick()
			if !flagged {
				continue
			}
			color := s.clock.Get().ActiveColor
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			if s.onFlag != nil {
				s.onFlag(color)
			}
			return
		}
	}
}
