// Package player implements the uniform Player contract spec.md §4.F
// defines — Human, UCI engine, and Online opponent — plus the Engine
// Registry that deduplicates engine processes across the engine player,
// the hint assistant, and hand-brain. The UCI driver's command vocabulary
// and channel-based processing shape are grounded on
// herohde-morlock/pkg/engine/uci/uci.go, a complete UCI driver in the
// pack; this package is the GUI side of that same protocol rather than
// the engine side, so request/response roles are swapped but the
// vocabulary and line framing are identical. The Online player uses
// github.com/gorilla/websocket the same way the teacher's main.go /ws
// handler does.
package player

import (
	"github.com/vincent99/chessboard/internal/chesscore"
)

// Player is the uniform contract spec.md §4.F names.
type Player interface {
	Start() error
	Stop()
	// RequestMove asks the player to produce a move for pos; result is
	// delivered asynchronously via onMove, which the caller provides once
	// at construction. A Human player never calls onMove itself — moves
	// arrive through the game engine's lift/place resolution instead.
	RequestMove(pos *chesscore.Position)
	OnOpponentMove(m chesscore.Move, pos *chesscore.Position)
	OnNewGame()
}

// MoveCallback is invoked once a non-human player has decided on a move.
// The move is a *pending* move: spec.md §4.F requires it be displayed via
// LED guidance and only committed once the human physically executes it,
// which is the game engine's job, not the player's.
type MoveCallback func(m chesscore.Move)

// Human is a no-op Player: all of its moves are formed by internal/game
// from lift/place events, so RequestMove/OnOpponentMove are intentionally
// empty.
type Human struct{}

func NewHuman() *Human                                               { return &Human{} }
func (h *Human) Start() error                                        { return nil }
func (h *Human) Stop()                                               {}
func (h *Human) RequestMove(pos *chesscore.Position)                 {}
func (h *Human) OnOpponentMove(m chesscore.Move, pos *chesscore.Position) {}
func (h *Human) OnNewGame()                                          {}
