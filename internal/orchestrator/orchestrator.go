// Package orchestrator drives the top-level state machine (spec.md §3,
// §4.L): boot sequence, resume-or-menu decision, and a signal-gated
// clean shutdown, wiring every other package together the way main.go
// wires the hub and its background loops.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/vincent99/chessboard/internal/board"
	"github.com/vincent99/chessboard/internal/boarderr"
	"github.com/vincent99/chessboard/internal/chesscore"
	"github.com/vincent99/chessboard/internal/clock"
	"github.com/vincent99/chessboard/internal/config"
	"github.com/vincent99/chessboard/internal/controller"
	"github.com/vincent99/chessboard/internal/display"
	"github.com/vincent99/chessboard/internal/emulate"
	"github.com/vincent99/chessboard/internal/emulate/chessnut"
	"github.com/vincent99/chessboard/internal/emulate/millennium"
	"github.com/vincent99/chessboard/internal/emulate/pegasus"
	"github.com/vincent99/chessboard/internal/game"
	"github.com/vincent99/chessboard/internal/link"
	"github.com/vincent99/chessboard/internal/persist"
	"github.com/vincent99/chessboard/internal/player"
	"github.com/vincent99/chessboard/internal/store"
	"github.com/vincent99/chessboard/internal/transport"
)

// State is the top-level application state spec.md §3 names.
type State int

const (
	StateBoot State = iota
	StateMenu
	StateSettings
	StateGame
	StateIdle
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateBoot:
		return "BOOT"
	case StateMenu:
		return "MENU"
	case StateSettings:
		return "SETTINGS"
	case StateGame:
		return "GAME"
	case StateIdle:
		return "IDLE"
	case StateShutdown:
		return "SHUTDOWN"
	default:
		return "UNKNOWN"
	}
}

// Options configures which optional subsystems the orchestrator brings
// up; set by cmd/boardd's flags.
type Options struct {
	ConfigDefaultsPath string
	ConfigUserPath     string
	DBPath             string
	LinkPort           string
	LinkBaud           int
	NoBluetooth        bool
	SimulatedDisplay   bool
	Resume             bool // explicit --resume/--no-resume override; nil-equivalent handled by caller
	ResumeSet          bool
}

// Daemon holds every wired subsystem and the current top-level state.
type Daemon struct {
	mu    sync.Mutex
	state State

	cfg   *config.Config
	store *store.Store
	db    *persist.Store

	lnk    *link.Link
	brd    *board.Board
	clk    *clock.Service
	engine *game.Engine

	registry   *player.Registry
	installQ   *player.InstallQueue
	dispatcher *emulate.Dispatcher
	manager    *controller.Manager
	local      *localController

	whitePlayer player.Player
	blackPlayer player.Player

	screen *display.Screen
	driver display.Driver

	bleServer    *transport.BLEServer
	rfcommServer *transport.RFCOMMServer
}

// Boot brings up every subsystem in the order spec.md §4.L specifies:
// display + splash, link with retry, subscribe events, start services,
// then resume-or-menu.
func Boot(opts Options) (*Daemon, error) {
	d := &Daemon{state: StateBoot}

	cfg, err := config.Load(opts.ConfigDefaultsPath, opts.ConfigUserPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", boarderr.ErrConfig, err)
	}
	d.cfg = cfg

	if err := d.initDisplay(opts.SimulatedDisplay); err != nil {
		log.Printf("orchestrator: display init failed (continuing without display): %v", err)
	} else {
		d.showSplash("booting")
	}

	lnk, err := link.Open(link.Config{Port: opts.LinkPort, Baud: opts.LinkBaud})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", boarderr.ErrHardwareInitFailed, err)
	}
	d.lnk = lnk

	onWarning := make(chan struct{}, 1)
	onSleep := make(chan struct{}, 1)
	d.brd = board.New(lnk, board.Config{
		InactivityTimeout: time.Duration(cfg.InactivityTimeoutS) * time.Second,
		InactivityWarning: time.Duration(cfg.InactivityWarningS) * time.Second,
	}, onWarning, onSleep)

	d.store = store.New()

	db, err := persist.Open(opts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", boarderr.ErrPersistence, err)
	}
	d.db = db

	d.clk = clock.New(d.store.Clock, func(color chesscore.Color) {
		log.Printf("orchestrator: clock flagged for %v", color)
	})

	d.engine = game.New(d.store, d.brd, d.clk, d.db, game.Config{}, game.Alerts{
		OnGameOver: func(result chesscore.Outcome, reason chesscore.TerminationReason) {
			d.setState(StateMenu)
		},
	})

	d.registry = player.NewRegistry(60 * time.Second)
	d.installQ = player.NewInstallQueue()

	d.dispatcher = emulate.NewDispatcher(millennium.New(), pegasus.New(), chessnut.New())

	d.local = newLocalController(d.engine)
	remote := &remoteController{}
	d.manager = controller.NewManager(d.local, remote, engineClockAdapter{d.clk}, d.dispatcher)

	// Local routes physical lift/place/key events to 4.E (spec.md §4.I);
	// wired once here and gated by d.local's activate/deactivate rather
	// than by re-subscribing on every controller switch.
	d.brd.SubscribeLift(d.local.onLift)
	d.brd.SubscribePlace(d.local.onPlace)
	d.brd.SubscribeKeys(d.local.onKeyPress)

	// Local also routes to the active player's request_move: whenever the
	// game store's position changes, ask whichever side to move isn't
	// human to produce one.
	d.store.Game.Subscribe(d.requestMoveIfNeeded)

	if !opts.NoBluetooth {
		if err := d.startTransports(); err != nil {
			log.Printf("orchestrator: bluetooth init failed (continuing local-only): %v", err)
		}
	}

	rec, err := d.db.UnterminatedGame()
	if err != nil {
		log.Printf("orchestrator: check unterminated game failed: %v", err)
	}
	if opts.ResumeSet && !opts.Resume {
		rec = nil
	}
	if rec != nil {
		d.resumeGame(rec)
	} else {
		d.setState(StateMenu)
		// No unterminated record: start a fresh local human-only game
		// immediately rather than leaving the engine and board wired but
		// idle. Opponent selection (engine/online) happens later from the
		// on-board menu once that UI exists; until then this is the only
		// path that actually begins play.
		d.StartLocalGame(player.NewHuman(), player.NewHuman(), "White", "Black")
	}

	return d, nil
}

// StartLocalGame begins a new local game between white and black,
// recording it in both the observable store and persistence. Players
// are assigned before the store mutation below, so the d.store.Game
// subscriber registered in Boot already issues the first request_move
// (if the side to move isn't Human) as part of that mutation.
func (d *Daemon) StartLocalGame(white, black player.Player, whiteName, blackName string) {
	d.whitePlayer = white
	d.blackPlayer = black

	white.Start()
	black.Start()
	white.OnNewGame()
	black.OnNewGame()

	d.store.Game.StartGame(whiteName, blackName, "")
	gs := d.store.Game.Get()

	if err := d.db.StartGame(gs.ID, gs.StartedAt, whiteName, blackName, "local", gs.OpeningFEN); err != nil {
		log.Printf("orchestrator: persist start game failed: %v", err)
	}

	d.setState(StateGame)
}

// requestMoveIfNeeded asks whichever player is on move to produce one, if
// that player isn't a Human (Human moves are formed entirely from
// physical lift/place events via d.local).
func (d *Daemon) requestMoveIfNeeded(gs store.GameState) {
	if gs.Position == nil {
		return
	}
	pl := d.whitePlayer
	if gs.Position.Turn() == chesscore.Black {
		pl = d.blackPlayer
	}
	if pl != nil {
		pl.RequestMove(gs.Position)
	}
}

func (d *Daemon) initDisplay(simulated bool) error {
	if simulated {
		d.driver = display.NewSimulatedDriver()
	} else {
		d.driver = display.NewEPD(display.EPDConfig{Width: 128, Height: 296, Invert: true})
	}
	d.screen = display.NewScreen(128, 296, d.driver, display.DefaultPlannerConfig())
	return d.screen.Connect()
}

func (d *Daemon) showSplash(msg string) {
	if d.screen == nil {
		return
	}
	splash := display.NewSplashWidget(display.Rect{MinX: 0, MinY: 0, MaxX: 128, MaxY: 296}, msg)
	d.screen.AddWidget(splash)
	_, _, _ = d.screen.RenderFrame(time.Now())
}

func (d *Daemon) startTransports() error {
	mux := transport.NewMultiplexer(d.dispatcher, d.manager, func() *chesscore.Position {
		return d.store.Game.Get().Position
	})
	d.bleServer = transport.NewBLEServer(mux.OnFrame)
	if err := d.bleServer.Start(); err != nil {
		return err
	}
	d.rfcommServer = transport.NewRFCOMMServer(mux.OnFrame)
	return d.rfcommServer.Start()
}

func (d *Daemon) resumeGame(rec *persist.GameRecord) {
	log.Printf("orchestrator: resuming unterminated game %s", rec.ID)

	fen := rec.OpeningFEN
	moves, err := d.db.MovesForGame(rec.ID)
	if err != nil {
		log.Printf("orchestrator: load moves for resume failed: %v", err)
	} else if len(moves) > 0 {
		fen = moves[len(moves)-1].FENAfter
	}
	if err := d.store.Game.Resume(rec.ID, rec.StartedAt, rec.White, rec.Black, rec.OpeningFEN, fen); err != nil {
		log.Printf("orchestrator: restore position for resume failed: %v", err)
	}

	// The persisted record names the players but not their kind (human,
	// engine, online); resume always reconstructs Human, since a resumed
	// game resumes on the same physical board a human sits at.
	d.whitePlayer = player.NewHuman()
	d.blackPlayer = player.NewHuman()
	d.whitePlayer.Start()
	d.blackPlayer.Start()

	d.engine.OnReconnect()
	d.setState(StateGame)
	d.requestMoveIfNeeded(d.store.Game.Get())
}

func (d *Daemon) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

func (d *Daemon) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Run blocks serving until ctx is cancelled (typically by a signal
// handler in cmd/boardd), then performs the clean shutdown sequence.
func (d *Daemon) Run(ctx context.Context) {
	<-ctx.Done()
	d.Shutdown()
}

// Shutdown performs the clean shutdown: pause the clock, close the game
// database, send sleep to the controller, close the link, engine registry
// and install queue, and close the display. The BLE and RFCOMM servers are
// not closed.
func (d *Daemon) Shutdown() {
	d.setState(StateShutdown)

	if d.clk != nil {
		d.clk.Pause()
	}
	if d.db != nil {
		d.db.Close()
	}
	if d.brd != nil {
		d.brd.RequestSleep()
	}
	if d.rfcommServer != nil {
		// best-effort; no explicit close surface beyond process exit for
		// the D-Bus-registered profile.
	}
	if d.lnk != nil {
		d.lnk.Close()
	}
	if d.registry != nil {
		d.registry.Close()
	}
	if d.installQ != nil {
		d.installQ.Close()
	}
	if d.screen != nil {
		d.screen.Close()
	}
}

// localController routes board events to the game engine (spec.md §4.I:
// "Local: routes events to 4.E"). Board subscriptions are registered
// once, at Boot; Activate/Deactivate gate whether they actually reach the
// engine, since link.Subscribe has no unsubscribe.
type localController struct {
	engine *game.Engine

	mu     sync.Mutex
	active bool
}

func newLocalController(engine *game.Engine) *localController {
	return &localController{engine: engine, active: true}
}

func (l *localController) Activate() {
	l.mu.Lock()
	l.active = true
	l.mu.Unlock()
}

func (l *localController) Deactivate() {
	l.mu.Lock()
	l.active = false
	l.mu.Unlock()
}

func (l *localController) isActive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

func (l *localController) onLift(sq chesscore.Square) {
	if l.isActive() {
		l.engine.OnLift(sq)
	}
}

func (l *localController) onPlace(sq chesscore.Square) {
	if l.isActive() {
		l.engine.OnPlace(sq)
	}
}

func (l *localController) onKeyPress(key byte) {
	if l.isActive() {
		l.engine.OnKeyPress(key)
	}
}

// remoteController is active when an app is connected; frame routing
// itself happens in transport.Multiplexer, so this only needs to track
// activation for the manager's bookkeeping.
type remoteController struct{}

func (r *remoteController) Activate()   {}
func (r *remoteController) Deactivate() {}

// engineClockAdapter exposes clock.Service's Pause as the narrow
// controller.Clock interface.
type engineClockAdapter struct {
	clk *clock.Service
}

func (a engineClockAdapter) Pause() { a.clk.Pause() }
