package player

import (
	"log"
	"time"

	"github.com/vincent99/chessboard/internal/chesscore"
)

// EngineConfig describes which engine process to acquire from the
// Registry and how long it may think per move.
type EngineConfig struct {
	Key       EngineKey
	Path      string
	Args      []string
	ThinkTime time.Duration
}

// EnginePlayer spawns or shares a long-lived engine process via the
// Registry. Its move is a *pending* move shown on the board via LED
// guidance (the caller's onMove callback is expected to drive that); the
// move only commits once the human physically executes it on the board,
// which is internal/game's job.
type EnginePlayer struct {
	cfg      EngineConfig
	registry *Registry
	onMove   MoveCallback

	driver *uciDriver
}

// NewEnginePlayer constructs an engine player bound to registry. onMove is
// called once per RequestMove with the engine's chosen move.
func NewEnginePlayer(cfg EngineConfig, registry *Registry, onMove MoveCallback) *EnginePlayer {
	if cfg.ThinkTime == 0 {
		cfg.ThinkTime = 3 * time.Second
	}
	return &EnginePlayer{cfg: cfg, registry: registry, onMove: onMove}
}

func (p *EnginePlayer) Start() error {
	d, err := p.registry.Acquire(p.cfg.Key, p.cfg.Path, p.cfg.Args...)
	if err != nil {
		return err
	}
	p.driver = d
	return nil
}

func (p *EnginePlayer) Stop() {
	if p.driver != nil {
		p.registry.Release(p.cfg.Key)
		p.driver = nil
	}
}

func (p *EnginePlayer) RequestMove(pos *chesscore.Position) {
	if p.driver == nil {
		return
	}
	go func() {
		uciMove, err := p.driver.GoMove(pos.FEN(), nil, p.cfg.ThinkTime)
		if err != nil {
			log.Printf("player: engine move request failed: %v", err)
			return
		}
		m, ok := parseUCIMove(pos, uciMove)
		if !ok {
			log.Printf("player: engine returned unparseable/illegal move %q", uciMove)
			return
		}
		if p.onMove != nil {
			p.onMove(m)
		}
	}()
}

func (p *EnginePlayer) OnOpponentMove(chesscore.Move, *chesscore.Position) {}
func (p *EnginePlayer) OnNewGame()                                        {}

func parseUCIMove(pos *chesscore.Position, uci string) (chesscore.Move, bool) {
	if len(uci) < 4 {
		return chesscore.Move{}, false
	}
	from, err := chesscore.ParseSquare(uci[0:2])
	if err != nil {
		return chesscore.Move{}, false
	}
	to, err := chesscore.ParseSquare(uci[2:4])
	if err != nil {
		return chesscore.Move{}, false
	}
	promo := chesscore.NoPieceType
	if len(uci) == 5 {
		promo, _ = chesscore.ParsePieceType(uci[4:5])
	}
	return pos.IsLegal(from, to, promo)
}
