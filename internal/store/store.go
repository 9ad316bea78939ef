// Package store implements the five observable sub-stores spec.md §4.C
// names: game, clock, analysis, system, and chromecast. Each is grounded on
// hub.go's Hub — a mutex-guarded set of observers and a fan-out to them —
// generalized from one client map into five independently
// typed, independently subscribable stores. Notification is synchronous
// from the mutator's own goroutine; subscribers must return quickly and
// post any long work back to their own queue, same discipline as
// hub.go's per-client buffered send channel.
package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vincent99/chessboard/internal/chesscore"
)

// GameState is the *game* sub-store's value: the authoritative position
// plus the metadata needed to persist and display it.
type GameState struct {
	ID         string
	StartedAt  time.Time
	WhiteName  string
	BlackName  string
	OpeningFEN string
	Moves      []chesscore.Move
	Position   *chesscore.Position
	Result     chesscore.Outcome
	Reason     chesscore.TerminationReason
}

// GameStore holds the single in-play GameState and fans out changes.
type GameStore struct {
	mu        sync.RWMutex
	state     GameState
	observers []func(GameState)
}

// NewGameStore seeds the store with a fresh game.
func NewGameStore() *GameStore {
	return &GameStore{state: GameState{Position: chesscore.NewPosition()}}
}

func (s *GameStore) Get() GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *GameStore) Subscribe(fn func(GameState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// StartGame replaces the store's state with a brand-new game, preserving
// the invariant that opening_fen/move_list are reset.
func (s *GameStore) StartGame(white, black, openingFEN string) {
	pos := chesscore.NewPosition()
	if openingFEN != "" {
		if p, err := chesscore.NewPositionFromFEN(openingFEN); err == nil {
			pos = p
		}
	}
	s.mutate(func(g *GameState) {
		*g = GameState{
			ID:         uuid.NewString(),
			StartedAt:  time.Now(),
			WhiteName:  white,
			BlackName:  black,
			OpeningFEN: openingFEN,
			Position:   pos,
		}
	})
}

// Resume seeds the store from a persisted record for resume-on-boot,
// restoring the position from fen (the game's last known position)
// rather than replaying its move list.
func (s *GameStore) Resume(id string, startedAt time.Time, white, black, openingFEN, fen string) error {
	pos := chesscore.NewPosition()
	if fen != "" {
		p, err := chesscore.NewPositionFromFEN(fen)
		if err != nil {
			return err
		}
		pos = p
	}
	s.mutate(func(g *GameState) {
		*g = GameState{
			ID:         id,
			StartedAt:  startedAt,
			WhiteName:  white,
			BlackName:  black,
			OpeningFEN: openingFEN,
			Position:   pos,
		}
	})
	return nil
}

// ApplyMove pushes m onto the position and move list, preserving the
// invariant that the position's FEN stays consistent with the move stack.
func (s *GameStore) ApplyMove(m chesscore.Move) error {
	var err error
	s.mutate(func(g *GameState) {
		if pushErr := g.Position.Push(m); pushErr != nil {
			err = pushErr
			return
		}
		g.Moves = append(g.Moves, m)
	})
	return err
}

// Terminate sets the result, which implies running == false in the clock
// store; callers are responsible for also stopping ClockStore.
func (s *GameStore) Terminate(result chesscore.Outcome, reason chesscore.TerminationReason) {
	s.mutate(func(g *GameState) {
		g.Result = result
		g.Reason = reason
	})
}

func (s *GameStore) mutate(fn func(*GameState)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state
	obs := append([]func(GameState){}, s.observers...)
	s.mu.Unlock()

	for _, o := range obs {
		o(snapshot)
	}
}

// ClockState is the *clock* sub-store's value.
type ClockState struct {
	WhiteMS     int64
	BlackMS     int64
	ActiveColor chesscore.Color
	Running     bool
	Timed       bool
	IncrementMS int64
}

type ClockStore struct {
	mu        sync.RWMutex
	state     ClockState
	observers []func(ClockState)
}

func NewClockStore() *ClockStore {
	return &ClockStore{}
}

func (s *ClockStore) Get() ClockState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *ClockStore) Subscribe(fn func(ClockState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Set installs a whole new clock configuration, e.g. at game start.
func (s *ClockStore) Set(state ClockState) {
	s.mutate(func(c *ClockState) { *c = state })
}

// Tick is invoked once per second by internal/clock while running && timed;
// it decrements the active player's remaining time.
func (s *ClockStore) Tick() (flagged bool) {
	s.mutate(func(c *ClockState) {
		if !c.Running || !c.Timed {
			return
		}
		if c.ActiveColor == chesscore.White {
			c.WhiteMS -= 1000
			if c.WhiteMS <= 0 {
				c.WhiteMS = 0
				c.Running = false
				flagged = true
			}
		} else {
			c.BlackMS -= 1000
			if c.BlackMS <= 0 {
				c.BlackMS = 0
				c.Running = false
				flagged = true
			}
		}
	})
	return flagged
}

// SwitchTurn swaps the active color and applies the increment to the
// player who just moved (the color active *before* the switch).
func (s *ClockStore) SwitchTurn() {
	s.mutate(func(c *ClockState) {
		moved := c.ActiveColor
		c.ActiveColor = c.ActiveColor.Other()
		if !c.Timed || c.IncrementMS == 0 {
			return
		}
		if moved == chesscore.White {
			c.WhiteMS += c.IncrementMS
		} else {
			c.BlackMS += c.IncrementMS
		}
	})
}

func (s *ClockStore) SetRunning(running bool) {
	s.mutate(func(c *ClockState) { c.Running = running })
}

func (s *ClockStore) mutate(fn func(*ClockState)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state
	obs := append([]func(ClockState){}, s.observers...)
	s.mu.Unlock()

	for _, o := range obs {
		o(snapshot)
	}
}

// AnalysisEntry is one ply's engine evaluation, keyed by ply number.
type AnalysisEntry struct {
	Ply       int
	ScoreCP   int
	MateIn    int // 0 if not a forced mate
	BestLine  []chesscore.Move
	DepthReached int
}

// AnalysisStore is append-only keyed by ply, truncated on new game.
type AnalysisStore struct {
	mu        sync.RWMutex
	history   []AnalysisEntry
	observers []func(AnalysisEntry)
}

func NewAnalysisStore() *AnalysisStore {
	return &AnalysisStore{}
}

func (s *AnalysisStore) Subscribe(fn func(AnalysisEntry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *AnalysisStore) History() []AnalysisEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AnalysisEntry(nil), s.history...)
}

// Append adds an entry for a new ply. Appending an entry for a ply already
// present overwrites it in place (deepening analysis), never grows the
// history length for that ply.
func (s *AnalysisStore) Append(e AnalysisEntry) {
	s.mu.Lock()
	if e.Ply < len(s.history) {
		s.history[e.Ply] = e
	} else {
		for len(s.history) < e.Ply {
			s.history = append(s.history, AnalysisEntry{Ply: len(s.history)})
		}
		s.history = append(s.history, e)
	}
	obs := append([]func(AnalysisEntry){}, s.observers...)
	s.mu.Unlock()

	for _, o := range obs {
		o(e)
	}
}

// Reset truncates the history on a new game.
func (s *AnalysisStore) Reset() {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()
}

// SystemState is the *system* sub-store's value: daemon-wide status not
// owned by any single subsystem.
type SystemState struct {
	Battery       byte
	Charging      bool
	ControllerMode string // MENU | SETTINGS | GAME | IDLE | SHUTDOWN
	BluetoothPaired bool
}

type SystemStore struct {
	mu        sync.RWMutex
	state     SystemState
	observers []func(SystemState)
}

func NewSystemStore() *SystemStore {
	return &SystemStore{}
}

func (s *SystemStore) Get() SystemState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *SystemStore) Subscribe(fn func(SystemState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *SystemStore) Update(fn func(*SystemState)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state
	obs := append([]func(SystemState){}, s.observers...)
	s.mu.Unlock()

	for _, o := range obs {
		o(snapshot)
	}
}

// ChromecastState mirrors the teacher's chromecast/companion-screen intent
// from hub.go's screenClients path, repurposed here as the sub-store for
// whichever companion display (phone app, browser) is currently mirroring
// the board.
type ChromecastState struct {
	Connected bool
	DeviceName string
}

type ChromecastStore struct {
	mu        sync.RWMutex
	state     ChromecastState
	observers []func(ChromecastState)
}

func NewChromecastStore() *ChromecastStore {
	return &ChromecastStore{}
}

func (s *ChromecastStore) Get() ChromecastState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *ChromecastStore) Subscribe(fn func(ChromecastState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *ChromecastStore) Update(fn func(*ChromecastState)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state
	obs := append([]func(ChromecastState){}, s.observers...)
	s.mu.Unlock()

	for _, o := range obs {
		o(snapshot)
	}
}

// Store bundles the five sub-stores the orchestrator constructs at boot.
type Store struct {
	Game       *GameStore
	Clock      *ClockStore
	Analysis   *AnalysisStore
	System     *SystemStore
	Chromecast *ChromecastStore
}

// New constructs all five sub-stores.
func New() *Store {
	return &Store{
		Game:       NewGameStore(),
		Clock:      NewClockStore(),
		Analysis:   NewAnalysisStore(),
		System:     NewSystemStore(),
		Chromecast: NewChromecastStore(),
	}
}
