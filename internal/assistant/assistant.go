// Package assistant implements the two suggest() contracts spec.md §4.G
// names: hand-brain (automatic, per-turn) and hint (on-demand). Both share
// the Engine Registry's connections from internal/player, so turning on
// hand-brain alongside an engine opponent never spawns a second process
// for the same (name, elo_section).
package assistant

import (
	"time"

	"github.com/vincent99/chessboard/internal/chesscore"
	"github.com/vincent99/chessboard/internal/player"
)

// SuggestionKind discriminates the closed Suggestion union spec.md §4.G
// defines.
type SuggestionKind int

const (
	SuggestPieceType SuggestionKind = iota
	SuggestMove
	SuggestSquares
	SuggestEval
	SuggestText
)

// Suggestion is a tagged union; only the field matching Kind is valid.
type Suggestion struct {
	Kind      SuggestionKind
	Piece     chesscore.PieceType
	Move      chesscore.Move
	Squares   [2]chesscore.Square // from, to
	EvalCP    int
	Text      string
}

// Assistant is the shared contract both implementations satisfy.
type Assistant interface {
	Suggest(pos *chesscore.Position, forColor chesscore.Color) (Suggestion, error)
}

// HandBrain runs automatically on the player's turn and names only the
// piece type the engine would move, leaving square selection to the
// human — the "hand" supplies the engine's "brain" choice of piece.
type HandBrain struct {
	key       player.EngineKey
	registry  *player.Registry
	path      string
	args      []string
	thinkTime time.Duration
}

// NewHandBrain constructs a hand-brain assistant sharing registry.
func NewHandBrain(registry *player.Registry, key player.EngineKey, path string, args []string, thinkTime time.Duration) *HandBrain {
	if thinkTime == 0 {
		thinkTime = 2 * time.Second
	}
	return &HandBrain{key: key, registry: registry, path: path, args: args, thinkTime: thinkTime}
}

func (h *HandBrain) Suggest(pos *chesscore.Position, forColor chesscore.Color) (Suggestion, error) {
	d, err := h.registry.Acquire(h.key, h.path, h.args...)
	if err != nil {
		return Suggestion{}, err
	}
	defer h.registry.Release(h.key)

	uciMove, err := d.GoMove(pos.FEN(), nil, h.thinkTime)
	if err != nil {
		return Suggestion{}, err
	}
	from, toErr := chesscore.ParseSquare(uciMove[0:2])
	if toErr != nil {
		return Suggestion{}, toErr
	}
	piece, ok := pos.PieceAt(from)
	if !ok {
		return Suggestion{}, err
	}
	return Suggestion{Kind: SuggestPieceType, Piece: piece.Type}, nil
}

// Hint runs on demand (a key press) and produces either the engine's best
// move as a from/to square pair, or a pre-registered puzzle solution if
// one is configured for the current position's FEN.
type Hint struct {
	key       player.EngineKey
	registry  *player.Registry
	path      string
	args      []string
	thinkTime time.Duration

	puzzleSolutions map[string]chesscore.Move // keyed by FEN
}

// NewHint constructs a hint assistant sharing registry. puzzleSolutions
// may be nil.
func NewHint(registry *player.Registry, key player.EngineKey, path string, args []string, thinkTime time.Duration, puzzleSolutions map[string]chesscore.Move) *Hint {
	if thinkTime == 0 {
		thinkTime = 3 * time.Second
	}
	return &Hint{key: key, registry: registry, path: path, args: args, thinkTime: thinkTime, puzzleSolutions: puzzleSolutions}
}

func (h *Hint) Suggest(pos *chesscore.Position, forColor chesscore.Color) (Suggestion, error) {
	if m, ok := h.puzzleSolutions[pos.FEN()]; ok {
		return Suggestion{Kind: SuggestSquares, Squares: [2]chesscore.Square{m.From, m.To}}, nil
	}

	d, err := h.registry.Acquire(h.key, h.path, h.args...)
	if err != nil {
		return Suggestion{}, err
	}
	defer h.registry.Release(h.key)

	uciMove, err := d.GoMove(pos.FEN(), nil, h.thinkTime)
	if err != nil {
		return Suggestion{}, err
	}
	from, err := chesscore.ParseSquare(uciMove[0:2])
	if err != nil {
		return Suggestion{}, err
	}
	to, err := chesscore.ParseSquare(uciMove[2:4])
	if err != nil {
		return Suggestion{}, err
	}
	return Suggestion{Kind: SuggestSquares, Squares: [2]chesscore.Square{from, to}}, nil
}
