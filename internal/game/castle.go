package game

import (
	"time"

	"github.com/vincent99/chessboard/internal/chesscore"
)

// castleSquares returns kingFrom, rookFrom and rookTo for kingside/queenside
// castling for the given color, keyed by the king's destination kingTo
// (g-file = kingside, c-file = queenside); ok is false for any other file.
func castleSquares(color chesscore.Color, kingTo Square) (kingFrom, rookFrom, rookTo Square, ok bool) {
	rank := 0
	if color == chesscore.Black {
		rank = 7
	}
	kingFrom = chesscore.NewSquare(4, rank)
	switch kingTo.File() {
	case 6: // g-file: kingside
		return kingFrom, chesscore.NewSquare(7, rank), chesscore.NewSquare(5, rank), true
	case 2: // c-file: queenside
		return kingFrom, chesscore.NewSquare(0, rank), chesscore.NewSquare(3, rank), true
	default:
		return chesscore.NoSquare, chesscore.NoSquare, chesscore.NoSquare, false
	}
}

func (e *Engine) isCastleKingOrigin(sq Square, color chesscore.Color) bool {
	rank := 0
	if color == chesscore.Black {
		rank = 7
	}
	return sq == chesscore.NewSquare(4, rank)
}

func (e *Engine) isCastleKingTarget(sq Square, color chesscore.Color) bool {
	rank := 0
	if color == chesscore.Black {
		rank = 7
	}
	return sq == chesscore.NewSquare(6, rank) || sq == chesscore.NewSquare(2, rank)
}

func (e *Engine) isCastleRookOrigin(pos *chesscore.Position, sq Square, color chesscore.Color) bool {
	rank := 0
	if color == chesscore.Black {
		rank = 7
	}
	return sq == chesscore.NewSquare(0, rank) || sq == chesscore.NewSquare(7, rank)
}

// beginKingFirstCastle is called from OnPlace once the king's own move
// completes onto a castling target square; it buffers the half-move and
// waits for the rook to follow within the settle window.
func (e *Engine) beginKingFirstCastle(from, to Square, color chesscore.Color) *castleHalf {
	kingFrom, rookFrom, rookTo, ok := castleSquares(color, to)
	if !ok || kingFrom != from {
		return nil
	}
	ch := &castleHalf{
		kingFrom: kingFrom, kingTo: to,
		rookFrom: rookFrom, rookTo: rookTo,
		haveKingHalf: true,
		deadline:     time.Now().Add(e.cfg.CastleSettleWindow),
	}
	e.scheduleCastleTimeout(ch)
	return ch
}

// beginRookFirstCastle is called from OnLift when a rook on its home square
// is lifted; the ordering is only confirmed once the king half arrives, so
// this buffers a tentative half keyed on the rook's origin and is
// discarded if the rook is placed back or placed anywhere but its castling
// target.
func (e *Engine) beginRookFirstCastle(rookFrom Square, color chesscore.Color) *castleHalf {
	rank := 0
	if color == chesscore.Black {
		rank = 7
	}
	var rookTo, kingTo Square
	if rookFrom.File() == 7 {
		rookTo, kingTo = chesscore.NewSquare(5, rank), chesscore.NewSquare(6, rank)
	} else {
		rookTo, kingTo = chesscore.NewSquare(3, rank), chesscore.NewSquare(2, rank)
	}
	ch := &castleHalf{
		kingFrom: chesscore.NewSquare(4, rank), kingTo: kingTo,
		rookFrom: rookFrom, rookTo: rookTo,
		deadline: time.Now().Add(e.cfg.CastleSettleWindow),
	}
	e.scheduleCastleTimeout(ch)
	return ch
}

func (e *Engine) scheduleCastleTimeout(ch *castleHalf) {
	go func() {
		time.Sleep(time.Until(ch.deadline))
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.castle == ch && !(ch.haveKingHalf && ch.haveRookHalf) {
			// Settle window elapsed with only one half complete: abandon the
			// castle attempt and let the physical board diverge into
			// correction mode rather than silently dropping the half-move.
			e.castle = nil
			e.enterCorrectionMode()
		}
	}()
}

func (e *Engine) continueCastleLift(sq Square, piece chesscore.Piece) {
	ch := e.castle
	if ch.haveKingHalf && !ch.haveRookHalf && sq == ch.rookFrom {
		return // rook half's lift; completion happens on place
	}
	if !ch.haveKingHalf && ch.haveRookHalf && sq == ch.kingFrom {
		return // king half's lift; completion happens on place
	}
	// Any other lift while a castle is pending is unrelated to it; abandon
	// the buffered half and fall through to normal move formation.
	e.castle = nil
	e.liftedFrom = sq
}

func (e *Engine) continueCastlePlace(sq Square) {
	ch := e.castle
	switch {
	case ch.haveKingHalf && sq == ch.rookTo:
		ch.haveRookHalf = true
	case ch.haveRookHalf && sq == ch.kingTo:
		ch.haveKingHalf = true
	case !ch.haveKingHalf && !ch.haveRookHalf && sq == ch.rookTo:
		// Rook-first: the rook reached its castling target; wait for the king.
		ch.haveRookHalf = true
	default:
		e.castle = nil
		e.enterCorrectionMode()
		return
	}

	if ch.haveKingHalf && ch.haveRookHalf {
		e.castle = nil
		pos := e.store.Game.Get().Position
		if king, ok := pos.PieceAt(ch.kingFrom); ok {
			e.cancelKingLiftTimer(king.Color)
		}
		move, ok := pos.IsLegal(ch.kingFrom, ch.kingTo, chesscore.NoPieceType)
		if !ok {
			e.enterCorrectionMode()
			return
		}
		e.commitMove(move)
	}
}
