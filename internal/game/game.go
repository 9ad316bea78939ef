// Package game owns the authoritative chess position and the physical
// move-formation state machine spec.md §4.E describes: lift/place
// resolution, castling, promotion, takeback, gesture detection, correction
// mode and termination. It is the daemon's hard core; nothing here is
// grounded on a single teacher file the way lower layers are, but its
// concurrency discipline — a single internal lock serializing all mutating
// entry points, background work handed off via short-lived goroutines —
// follows the same shape as hardware/brightness/brightness.go's guarded
// state plus hub.go's synchronous-fan-out stores that sit beneath it.
package game

import (
	"log"
	"sync"
	"time"

	"github.com/vincent99/chessboard/internal/board"
	"github.com/vincent99/chessboard/internal/chesscore"
	"github.com/vincent99/chessboard/internal/clock"
	"github.com/vincent99/chessboard/internal/store"
)

// BoardOps is the slice of *board.Board the engine drives directly: LED
// guidance, board-state reads, and event gating during a modal promotion
// choice. Kept as an interface (rather than a concrete *board.Board) so
// tests can exercise the state machine against a fake.
type BoardOps interface {
	PauseEvents()
	ResumeEvents()
	ReadBoardState() (chesscore.PiecePresenceBitmap, error)
	LEDs(squares []chesscore.Square, intensity byte) error
	LEDFlash(from, to chesscore.Square, pattern board.FlashPattern) error
	LEDsOff() error
}

// Persister is the narrow interface internal/persist satisfies; kept local
// to avoid a dependency cycle (persist depends on chesscore, not game).
type Persister interface {
	RecordMove(gameID string, ply int, m chesscore.Move, fenAfter string) error
	RecordResult(gameID string, result chesscore.Outcome, reason chesscore.TerminationReason) error
}

// Alerts carries the display-facing notifications the engine raises, all
// optional.
type Alerts struct {
	OnCheck            func(color chesscore.Color)
	OnQueenThreatened  func(color chesscore.Color)
	OnPromotionPrompt  func(from, to chesscore.Square)
	OnPromotionTimeout func()
	OnGameOver         func(result chesscore.Outcome, reason chesscore.TerminationReason)
	OnResignMenu       func(color chesscore.Color)
	OnDrawOffer        func()
	OnCorrectionStart  func(missing, spurious chesscore.PiecePresenceBitmap)
	OnCorrectionEnd    func()
	OnLinkLost         func()
}

// Config tunes the engine's timing windows.
type Config struct {
	CastleSettleWindow     time.Duration // default 3s
	PromotionTimeout       time.Duration // default 15s
	KingLiftResignWindow   time.Duration // default 3s
}

func (c Config) withDefaults() Config {
	if c.CastleSettleWindow == 0 {
		c.CastleSettleWindow = 3 * time.Second
	}
	if c.PromotionTimeout == 0 {
		c.PromotionTimeout = 15 * time.Second
	}
	if c.KingLiftResignWindow == 0 {
		c.KingLiftResignWindow = 3 * time.Second
	}
	return c
}

type castleHalf struct {
	kingFrom, kingTo   chesscore.Square
	rookFrom, rookTo   chesscore.Square
	haveKingHalf       bool
	haveRookHalf       bool
	deadline           time.Time
}

type promotionState struct {
	from, to chesscore.Square
	timer    *time.Timer
	resultCh chan chesscore.PieceType
}

// Engine is the move-formation state machine. All exported methods are
// safe for concurrent use; mutating methods take the internal lock.
type Engine struct {
	cfg     Config
	store   *store.Store
	board   BoardOps
	clock   *clock.Service
	persist Persister
	alerts  Alerts

	mu sync.Mutex

	liftedFrom Square
	castle     *castleHalf
	promo      *promotionState

	correctionMode    bool
	expected          chesscore.PiecePresenceBitmap
	bufferedDuringFix []pendingEvent

	kingLiftAt map[chesscore.Color]time.Time
	kingLiftCancel map[chesscore.Color]chan struct{}

	ply int
}

type pendingEvent struct {
	isLift bool
	square Square
}

// Square is a local alias to keep this file's signatures terse.
type Square = chesscore.Square

// New constructs an Engine bound to the given stores, board, clock and
// persistence hook.
func New(st *store.Store, b BoardOps, clk *clock.Service, p Persister, cfg Config, alerts Alerts) *Engine {
	return &Engine{
		cfg:            cfg.withDefaults(),
		store:          st,
		board:          b,
		clock:          clk,
		persist:        p,
		alerts:         alerts,
		liftedFrom:     chesscore.NoSquare,
		kingLiftAt:     make(map[chesscore.Color]time.Time),
		kingLiftCancel: make(map[chesscore.Color]chan struct{}),
	}
}

// OnLift handles a LiftPiece event from 4.B.
func (e *Engine) OnLift(sq Square) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.promo != nil {
		return // board events paused during a promotion choice; defensive no-op
	}
	if e.correctionMode {
		e.bufferedDuringFix = append(e.bufferedDuringFix, pendingEvent{isLift: true, square: sq})
		return
	}

	pos := e.store.Game.Get().Position
	piece, ok := pos.PieceAt(sq)
	if !ok {
		return
	}

	if piece.Type == chesscore.King {
		e.startKingLiftTimer(piece.Color)
	}

	if e.castle != nil {
		e.continueCastleLift(sq, piece)
		return
	}

	if piece.Type == chesscore.Rook && e.isCastleRookOrigin(pos, sq, piece.Color) {
		e.castle = e.beginRookFirstCastle(sq, piece.Color)
		return
	}
	if piece.Type == chesscore.King && e.isCastleKingOrigin(sq, piece.Color) {
		// King lift alone is ambiguous between a plain king move and the
		// start of king-first castling; defer the decision to OnPlace,
		// where the destination square disambiguates.
	}

	e.liftedFrom = sq
}

func (e *Engine) startKingLiftTimer(color chesscore.Color) {
	if _, already := e.kingLiftCancel[color]; already {
		return
	}
	cancel := make(chan struct{})
	e.kingLiftCancel[color] = cancel
	e.kingLiftAt[color] = time.Now()

	go func() {
		select {
		case <-time.After(e.cfg.KingLiftResignWindow):
			e.mu.Lock()
			_, stillLifted := e.kingLiftCancel[color]
			e.mu.Unlock()
			if stillLifted && e.alerts.OnResignMenu != nil {
				e.alerts.OnResignMenu(color)
			}
		case <-cancel:
		}
	}()
}

func (e *Engine) cancelKingLiftTimer(color chesscore.Color) {
	if ch, ok := e.kingLiftCancel[color]; ok {
		close(ch)
		delete(e.kingLiftCancel, color)
	}
}

// OnPlace handles a PlacePiece event from 4.B.
func (e *Engine) OnPlace(sq Square) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.promo != nil {
		return
	}
	if e.correctionMode {
		e.bufferedDuringFix = append(e.bufferedDuringFix, pendingEvent{isLift: false, square: sq})
		e.checkCorrectionConverged()
		return
	}

	if e.castle != nil {
		e.continueCastlePlace(sq)
		return
	}

	if e.liftedFrom == chesscore.NoSquare {
		return
	}
	from := e.liftedFrom
	e.liftedFrom = chesscore.NoSquare

	pos := e.store.Game.Get().Position
	piece, _ := pos.PieceAt(from)
	e.cancelKingLiftTimer(piece.Color)

	if sq == from {
		return // no-op: lift then place back down
	}

	if piece.Type == chesscore.King && e.isCastleKingOrigin(from, piece.Color) && e.isCastleKingTarget(sq, piece.Color) {
		e.castle = e.beginKingFirstCastle(from, sq, piece.Color)
		return
	}

	dests := pos.LegalDestinations(from)
	legal := false
	for _, d := range dests {
		if d == sq {
			legal = true
			break
		}
	}
	if !legal {
		e.enterCorrectionMode()
		return
	}

	if pos.IsPromotion(from, sq) {
		e.beginPromotion(from, sq)
		return
	}

	move, ok := pos.IsLegal(from, sq, chesscore.NoPieceType)
	if !ok {
		e.enterCorrectionMode()
		return
	}
	e.commitMove(move)
	e.checkKingsInCenter()
}

// OnKeyPress handles a key event, used for promotion choice and takeback.
// key is the controller-assigned key code; 'q','r','b','n' are promotion
// letters, 't' is takeback. Other keys are ignored; resign and draw are
// reached through Resign and OfferDraw, not through this method.
func (e *Engine) OnKeyPress(key byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.promo != nil {
		if pt, err := chesscore.ParsePieceType(string(key)); err == nil {
			select {
			case e.promo.resultCh <- pt:
			default:
			}
		}
		return
	}

	switch key {
	case 't', 'T':
		e.takebackLocked()
	}
}

func (e *Engine) beginPromotion(from, to Square) {
	e.board.PauseEvents()
	ps := &promotionState{from: from, to: to, resultCh: make(chan chesscore.PieceType, 1)}
	e.promo = ps
	if e.alerts.OnPromotionPrompt != nil {
		e.alerts.OnPromotionPrompt(from, to)
	}

	go func() {
		var chosen chesscore.PieceType
		select {
		case chosen = <-ps.resultCh:
		case <-time.After(e.cfg.PromotionTimeout):
			chosen = chesscore.Queen
			if e.alerts.OnPromotionTimeout != nil {
				e.alerts.OnPromotionTimeout()
			}
		}

		e.mu.Lock()
		defer e.mu.Unlock()
		e.board.ResumeEvents()
		e.promo = nil

		pos := e.store.Game.Get().Position
		move, ok := pos.IsLegal(from, to, chosen)
		if !ok {
			e.enterCorrectionMode()
			return
		}
		e.commitMove(move)
		e.checkKingsInCenter()
	}()
}

func (e *Engine) takebackLocked() {
	m, err := e.store.Game.Get().Position.Pop()
	if err != nil {
		return
	}
	log.Printf("game: takeback %s", m.UCI())
	e.enterCorrectionMode()
}

// commitMove assumes e.mu is held. It pushes the move, persists it,
// switches the clock, and raises check/queen-threat/termination alerts.
func (e *Engine) commitMove(m chesscore.Move) {
	gs := e.store.Game.Get()
	if err := e.store.Game.ApplyMove(m); err != nil {
		log.Printf("game: illegal move slipped through IsLegal: %v", err)
		e.enterCorrectionMode()
		return
	}
	e.ply++
	if e.persist != nil {
		fenAfter := e.store.Game.Get().Position.FEN()
		if err := e.persist.RecordMove(gs.ID, e.ply, m, fenAfter); err != nil {
			log.Printf("game: persist move failed (not retried): %v", err)
		}
	}
	if e.clock != nil {
		e.clock.SwitchTurn()
	}

	pos := e.store.Game.Get().Position
	if pos.InCheck() && e.alerts.OnCheck != nil {
		e.alerts.OnCheck(pos.Turn())
	}
	if e.queenThreatened(pos) && e.alerts.OnQueenThreatened != nil {
		e.alerts.OnQueenThreatened(pos.Turn().Other())
	}

	if result, reason, done := pos.Outcome(); done {
		e.terminate(result, reason)
	}
}

// queenThreatened reports whether the queen belonging to the side not to
// move sits on a square the side to move can legally capture on.
func (e *Engine) queenThreatened(pos *chesscore.Position) bool {
	for sq := Square(0); sq < 64; sq++ {
		p, ok := pos.PieceAt(sq)
		if !ok || p.Type != chesscore.Queen || p.Color == pos.Turn() {
			continue
		}
		for from := Square(0); from < 64; from++ {
			for _, d := range pos.LegalDestinations(from) {
				if d == sq {
					return true
				}
			}
		}
	}
	return false
}

func (e *Engine) terminate(result chesscore.Outcome, reason chesscore.TerminationReason) {
	gs := e.store.Game.Get()
	e.store.Game.Terminate(result, reason)
	if e.clock != nil {
		e.clock.Pause()
	}
	if e.persist != nil {
		if err := e.persist.RecordResult(gs.ID, result, reason); err != nil {
			log.Printf("game: persist result failed: %v", err)
		}
	}
	if e.alerts.OnGameOver != nil {
		e.alerts.OnGameOver(result, reason)
	}
}

// Resign forces termination by resignation, triggered from the king-lift
// resign menu or a menu key press.
func (e *Engine) Resign(color chesscore.Color) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pos := e.store.Game.Get().Position
	pos.Resign(color)
	if result, reason, done := pos.Outcome(); done {
		e.terminate(result, reason)
	}
}

// OfferDraw forces a draw-by-agreement termination.
func (e *Engine) OfferDraw() {
	e.mu.Lock()
	defer e.mu.Unlock()
	pos := e.store.Game.Get().Position
	pos.DrawByAgreement()
	if result, reason, done := pos.Outcome(); done {
		e.terminate(result, reason)
	}
}

func (e *Engine) checkKingsInCenter() {
	centers := map[Square]bool{}
	for _, s := range []string{"d4", "d5", "e4", "e5"} {
		sq, _ := chesscore.ParseSquare(s)
		centers[sq] = true
	}
	pos := e.store.Game.Get().Position
	whiteIn, blackIn := false, false
	for sq := range centers {
		p, ok := pos.PieceAt(sq)
		if !ok || p.Type != chesscore.King {
			continue
		}
		if p.Color == chesscore.White {
			whiteIn = true
		} else {
			blackIn = true
		}
	}
	if whiteIn && blackIn && e.alerts.OnDrawOffer != nil {
		e.alerts.OnDrawOffer()
	}
}

// LinkLost pauses the game on a serial link failure; the next OnLift/OnPlace
// after reconnect will find the position and physical board diverged and
// enter correction mode via OnReconnect.
func (e *Engine) LinkLost() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clock != nil {
		e.clock.Pause()
	}
	if e.alerts.OnLinkLost != nil {
		e.alerts.OnLinkLost()
	}
}

// OnReconnect re-synchronizes against the physical board after a link
// failure or at boot when resuming an unterminated game.
func (e *Engine) OnReconnect() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enterCorrectionMode()
}
