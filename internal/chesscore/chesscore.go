// Package chesscore wraps github.com/corentings/chess/v2 with the square
// index, piece-presence bitmap, and move types spec.md §3 requires, and is
// the only package that imports the chess library directly. Everything else
// in the daemon only ever sees Square, PiecePresenceBitmap, Move and
// Position from this package.
package chesscore

import (
	"fmt"
	"strings"

	chesslib "github.com/corentings/chess/v2"
)

// Square is a 0..63 file-major index: 0 = a1, 7 = h1, 8 = a2, ..., 63 = h8.
type Square int

// NoSquare is used where a square-valued field is absent (e.g. no en
// passant target).
const NoSquare Square = -1

func (s Square) File() int { return int(s) % 8 }
func (s Square) Rank() int { return int(s) / 8 }

func NewSquare(file, rank int) Square { return Square(rank*8 + file) }

func (s Square) String() string {
	if s < 0 || s > 63 {
		return "-"
	}
	return fmt.Sprintf("%c%d", 'a'+s.File(), s.Rank()+1)
}

// ParseSquare parses algebraic notation ("e4") into a Square.
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("chesscore: invalid square %q", s)
	}
	file := int(s[0] - 'a')
	rank := int(s[1] - '1')
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare, fmt.Errorf("chesscore: invalid square %q", s)
	}
	return NewSquare(file, rank), nil
}

// Color is chess.White or chess.Black.
type Color int

const (
	White Color = iota
	Black
)

func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

// PieceType is one of the six piece kinds, independent of color.
type PieceType int

const (
	NoPieceType PieceType = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

// Piece is a colored piece occupying a square.
type Piece struct {
	Type  PieceType
	Color Color
}

// FENByte is the FEN letter for a piece: uppercase for white, lowercase for
// black. Emulators (4.H) build their board-state replies from this.
func (p Piece) FENByte() byte {
	var b byte
	switch p.Type {
	case Pawn:
		b = 'p'
	case Knight:
		b = 'n'
	case Bishop:
		b = 'b'
	case Rook:
		b = 'r'
	case Queen:
		b = 'q'
	case King:
		b = 'k'
	default:
		return '.'
	}
	if p.Color == White {
		b -= 'a' - 'A'
	}
	return b
}

// Move is an ordered pair of squares plus an optional promotion piece.
type Move struct {
	From      Square
	To        Square
	Promotion PieceType
}

func (m Move) UCI() string {
	s := m.From.String() + m.To.String()
	switch m.Promotion {
	case Queen:
		s += "q"
	case Rook:
		s += "r"
	case Bishop:
		s += "b"
	case Knight:
		s += "n"
	}
	return s
}

// PiecePresenceBitmap is a 64-bit mask, bit i set means square i is occupied
// by some piece, independent of identity. Used to compare the authoritative
// position against the physical sensor grid.
type PiecePresenceBitmap uint64

func (b PiecePresenceBitmap) Has(sq Square) bool {
	return b&(1<<uint(sq)) != 0
}

func (b *PiecePresenceBitmap) Set(sq Square) {
	*b |= 1 << uint(sq)
}

// Popcount returns the number of set bits.
func (b PiecePresenceBitmap) Popcount() int {
	n := 0
	for v := uint64(b); v != 0; v &= v - 1 {
		n++
	}
	return n
}

// Diff returns the squares present in one bitmap but not the other, as two
// bitmaps: missing (set in want but not have) and spurious (set in have but
// not want).
func Diff(have, want PiecePresenceBitmap) (missing, spurious PiecePresenceBitmap) {
	missing = want &^ have
	spurious = have &^ want
	return
}

// Outcome is the closed set of game termination results spec.md §3 defines
// for the game record's result field.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeWhiteWins Outcome = "1-0"
	OutcomeBlackWins Outcome = "0-1"
	OutcomeDraw      Outcome = "1/2-1/2"
)

// TerminationReason names why a game ended, for game-over observers and
// persistence.
type TerminationReason string

const (
	ReasonNone                TerminationReason = ""
	ReasonCheckmate           TerminationReason = "checkmate"
	ReasonStalemate           TerminationReason = "stalemate"
	ReasonInsufficientMaterial TerminationReason = "insufficient_material"
	ReasonFiftyMoveRule       TerminationReason = "fifty_move_rule"
	ReasonThreefoldRepetition TerminationReason = "threefold_repetition"
	ReasonResignation         TerminationReason = "resignation"
	ReasonDrawAgreement       TerminationReason = "draw_agreement"
	ReasonFlagFall            TerminationReason = "flag_fall"
	ReasonAbort               TerminationReason = "abort"
)

// Position wraps the underlying chess library's game/position pair. It owns
// no concurrency control of its own; callers (internal/game) serialize
// access under their own lock.
type Position struct {
	g *chesslib.Game
}

// NewPosition creates a position at the standard starting array.
func NewPosition() *Position {
	return &Position{g: chesslib.NewGame()}
}

// NewPositionFromFEN creates a position from a FEN string, used when
// resuming a persisted game.
func NewPositionFromFEN(fen string) (*Position, error) {
	opt, err := chesslib.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("chesscore: parse fen: %w", err)
	}
	return &Position{g: chesslib.NewGame(opt)}, nil
}

// FEN returns the current position in Forsyth-Edwards notation.
func (p *Position) FEN() string {
	return p.g.FEN()
}

// Turn returns the side to move.
func (p *Position) Turn() Color {
	if p.g.Position().Turn() == chesslib.White {
		return White
	}
	return Black
}

// PieceAt returns the piece on sq, or ok=false if the square is empty.
func (p *Position) PieceAt(sq Square) (Piece, bool) {
	lp := toLibSquare(sq)
	pc := p.g.Position().Board().Piece(lp)
	if pc == chesslib.NoPiece {
		return Piece{}, false
	}
	return fromLibPiece(pc), true
}

// PresenceBitmap projects the placement to a 64-bit occupancy mask.
func (p *Position) PresenceBitmap() PiecePresenceBitmap {
	var bm PiecePresenceBitmap
	for sq := Square(0); sq < 64; sq++ {
		if _, ok := p.PieceAt(sq); ok {
			bm.Set(sq)
		}
	}
	return bm
}

// LegalDestinations returns the squares a piece on `from` may legally move
// to, used by the game engine to narrow a lift event to an expected set of
// completing places.
func (p *Position) LegalDestinations(from Square) []Square {
	var dests []Square
	lf := toLibSquare(from)
	for _, m := range p.g.ValidMoves() {
		if m.S1() == lf {
			dests = append(dests, fromLibSquare(m.S2()))
		}
	}
	return dests
}

// IsLegal reports whether the given from/to/promotion triple is a legal
// move from the current position, and returns the resolved Move (with
// promotion normalized) if so.
func (p *Position) IsLegal(from, to Square, promo PieceType) (Move, bool) {
	lf, lt := toLibSquare(from), toLibSquare(to)
	for _, m := range p.g.ValidMoves() {
		if m.S1() == lf && m.S2() == lt {
			if m.Promo() != chesslib.NoPieceType && toPieceType(m.Promo()) != promo {
				continue
			}
			return Move{From: from, To: to, Promotion: toPieceType(m.Promo())}, true
		}
	}
	return Move{}, false
}

// IsPromotion reports whether a pawn move from->to reaches the last rank
// and therefore requires a promotion choice.
func (p *Position) IsPromotion(from, to Square) bool {
	pc, ok := p.PieceAt(from)
	if !ok || pc.Type != Pawn {
		return false
	}
	return to.Rank() == 0 || to.Rank() == 7
}

// Push commits a move to the position, appending it to the internal move
// stack. The move must have come from IsLegal or LegalDestinations.
func (p *Position) Push(m Move) error {
	uci := m.UCI()
	if err := p.g.MoveStr(uci); err != nil {
		return fmt.Errorf("chesscore: push %s: %w", uci, err)
	}
	return nil
}

// Pop removes the last move from the position (used by takeback). The chess
// library does not expose an undo primitive, so the game is rebuilt by
// replaying every move but the last onto a new game that starts from the
// standard starting array.
func (p *Position) Pop() (Move, error) {
	hist := p.g.Moves()
	if len(hist) == 0 {
		return Move{}, fmt.Errorf("chesscore: no move to pop")
	}
	last := hist[len(hist)-1]
	m := Move{From: fromLibSquare(last.S1()), To: fromLibSquare(last.S2()), Promotion: toPieceType(last.Promo())}

	replay := hist[:len(hist)-1]
	ng := chesslib.NewGame()
	for _, mv := range replay {
		if err := ng.Move(mv); err != nil {
			return Move{}, fmt.Errorf("chesscore: replay during pop: %w", err)
		}
	}
	p.g = ng
	return m, nil
}

// MoveList returns the full history as UCI strings, for persistence.
func (p *Position) MoveList() []string {
	hist := p.g.Moves()
	out := make([]string, len(hist))
	for i, m := range hist {
		out[i] = Move{From: fromLibSquare(m.S1()), To: fromLibSquare(m.S2()), Promotion: toPieceType(m.Promo())}.UCI()
	}
	return out
}

// InCheck reports whether the side to move is in check.
func (p *Position) InCheck() bool {
	return p.g.Position().Status() == chesslib.Check
}

// Outcome reports whether the game has ended and why. ok is false while
// the game is still in progress.
func (p *Position) Outcome() (Outcome, TerminationReason, bool) {
	switch p.g.Outcome() {
	case chesslib.WhiteWon:
		return OutcomeWhiteWins, reasonFromMethod(p.g.Method()), true
	case chesslib.BlackWon:
		return OutcomeBlackWins, reasonFromMethod(p.g.Method()), true
	case chesslib.Draw:
		return OutcomeDraw, reasonFromMethod(p.g.Method()), true
	default:
		return OutcomeNone, ReasonNone, false
	}
}

func reasonFromMethod(m chesslib.Method) TerminationReason {
	switch m {
	case chesslib.Checkmate:
		return ReasonCheckmate
	case chesslib.Stalemate:
		return ReasonStalemate
	case chesslib.InsufficientMaterial:
		return ReasonInsufficientMaterial
	case chesslib.FiftyMoveRule:
		return ReasonFiftyMoveRule
	case chesslib.ThreefoldRepetition:
		return ReasonThreefoldRepetition
	case chesslib.Resignation:
		return ReasonResignation
	case chesslib.DrawOffer:
		return ReasonDrawAgreement
	default:
		return ReasonNone
	}
}

// Resign forces an outcome, used for gesture-resign and key-triggered
// resignation.
func (p *Position) Resign(color Color) {
	if color == White {
		p.g.Resign(chesslib.White)
	} else {
		p.g.Resign(chesslib.Black)
	}
}

// DrawByAgreement forces a draw outcome, used for kings-in-center and
// menu-driven draw offers.
func (p *Position) DrawByAgreement() {
	p.g.Draw(chesslib.DrawOffer)
}

// toLibSquare / fromLibSquare convert between our file-major index and the
// library's own square numbering, which (per the library's documented
// convention, same as notnil/chess) is also file-major a1..h8 — the
// conversion is the identity today but is kept as an explicit boundary so a
// future library swap only touches this file.
func toLibSquare(s Square) chesslib.Square   { return chesslib.Square(s) }
func fromLibSquare(s chesslib.Square) Square { return Square(s) }

func fromLibPiece(p chesslib.Piece) Piece {
	color := White
	if p.Color() == chesslib.Black {
		color = Black
	}
	return Piece{Type: toPieceType(p.Type()), Color: color}
}

func toPieceType(t chesslib.PieceType) PieceType {
	switch t {
	case chesslib.Pawn:
		return Pawn
	case chesslib.Knight:
		return Knight
	case chesslib.Bishop:
		return Bishop
	case chesslib.Rook:
		return Rook
	case chesslib.Queen:
		return Queen
	case chesslib.King:
		return King
	default:
		return NoPieceType
	}
}

// ParsePieceType parses a single FEN/key-press letter ("q","r","b","n")
// case-insensitively, used by the promotion chooser.
func ParsePieceType(s string) (PieceType, error) {
	switch strings.ToLower(s) {
	case "q":
		return Queen, nil
	case "r":
		return Rook, nil
	case "b":
		return Bishop, nil
	case "n":
		return Knight, nil
	default:
		return NoPieceType, fmt.Errorf("chesscore: invalid promotion piece %q", s)
	}
}
