package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vincent99/chessboard/internal/board"
	"github.com/vincent99/chessboard/internal/chesscore"
	"github.com/vincent99/chessboard/internal/store"
)

// fakeBoard satisfies BoardOps against an in-memory presence bitmap that
// the test drives directly, standing in for the physical sensor grid.
type fakeBoard struct {
	presence chesscore.PiecePresenceBitmap
	paused   bool
}

func (f *fakeBoard) PauseEvents()  { f.paused = true }
func (f *fakeBoard) ResumeEvents() { f.paused = false }
func (f *fakeBoard) ReadBoardState() (chesscore.PiecePresenceBitmap, error) {
	return f.presence, nil
}
func (f *fakeBoard) LEDs([]chesscore.Square, byte) error { return nil }
func (f *fakeBoard) LEDFlash(chesscore.Square, chesscore.Square, board.FlashPattern) error {
	return nil
}
func (f *fakeBoard) LEDsOff() error { return nil }

func sq(s string) chesscore.Square {
	v, err := chesscore.ParseSquare(s)
	if err != nil {
		panic(err)
	}
	return v
}

func newTestEngine(t *testing.T) (*Engine, *store.Store, *fakeBoard) {
	t.Helper()
	st := store.New()
	st.Game.StartGame("white", "black", "")
	fb := &fakeBoard{presence: st.Game.Get().Position.PresenceBitmap()}
	e := New(st, fb, nil, nil, Config{}, Alerts{})
	return e, st, fb
}

func TestSimplePawnMove(t *testing.T) {
	e, st, fb := newTestEngine(t)

	e.OnLift(sq("e2"))
	e.OnPlace(sq("e4"))

	require.Len(t, st.Game.Get().Moves, 1)
	require.Equal(t, "e2e4", st.Game.Get().Moves[0].UCI())
	fb.presence = st.Game.Get().Position.PresenceBitmap()
}

func TestLiftThenPlaceBackIsNoOp(t *testing.T) {
	e, st, _ := newTestEngine(t)

	e.OnLift(sq("e2"))
	e.OnPlace(sq("e2"))

	require.Empty(t, st.Game.Get().Moves)
}

func TestIllegalPlaceEntersCorrectionMode(t *testing.T) {
	e, st, fb := newTestEngine(t)

	e.OnLift(sq("e2"))
	// e5 is not a legal destination for the e2 pawn on move 1. The physical
	// board now has e2 empty and a piece on e5.
	moved := st.Game.Get().Position.PresenceBitmap()
	moved &^= 1 << uint(sq("e2"))
	moved.Set(sq("e5"))
	fb.presence = moved
	e.OnPlace(sq("e5"))

	require.True(t, e.correctionMode)
	require.Empty(t, st.Game.Get().Moves)
}

func TestCorrectionModeConvergesWhenPhysicalMatchesExpected(t *testing.T) {
	e, st, fb := newTestEngine(t)

	e.OnLift(sq("e2"))
	moved := st.Game.Get().Position.PresenceBitmap() // physical board after the pawn lands on e5
	moved &^= 1 << uint(sq("e2"))
	moved.Set(sq("e5"))
	fb.presence = moved
	e.OnPlace(sq("e5")) // illegal -> correction mode, expected bitmap = start position
	require.True(t, e.correctionMode)

	fb.presence = e.expected // user fixed the board back to the expected layout
	e.OnPlace(sq("a1"))      // any place event re-checks convergence

	require.False(t, e.correctionMode)
}

func TestKingFirstCastlingBothHalvesCommit(t *testing.T) {
	e, st, fb := newTestEngine(t)

	for _, uci := range []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1c4", "f8c5"} {
		from, to := sq(uci[0:2]), sq(uci[2:4])
		pos := st.Game.Get().Position
		m, ok := pos.IsLegal(from, to, chesscore.NoPieceType)
		require.True(t, ok, uci)
		require.NoError(t, st.Game.ApplyMove(m))
	}
	fb.presence = st.Game.Get().Position.PresenceBitmap()

	e.OnLift(sq("e1"))
	e.OnPlace(sq("g1"))
	require.NotNil(t, e.castle)

	e.OnLift(sq("h1"))
	e.OnPlace(sq("f1"))

	require.Nil(t, e.castle)
	last := st.Game.Get().Moves[len(st.Game.Get().Moves)-1]
	require.Equal(t, "e1g1", last.UCI())
}

func TestPromotionDefaultsToQueenOnTimeout(t *testing.T) {
	st := store.New()
	st.Game.StartGame("white", "black", "")

	// March a white pawn to the seventh rank by direct store mutation so
	// the test only has to exercise the final promoting push.
	pos, err := chesscore.NewPositionFromFEN("8/4Pk2/8/8/8/8/8/4K3 w - - 0 1")
	require.NoError(t, err)
	*st.Game.Get().Position = *pos // swap in the prepared position

	fb := &fakeBoard{presence: st.Game.Get().Position.PresenceBitmap()}
	done := make(chan struct{})
	e := New(st, fb, nil, nil, Config{PromotionTimeout: 20 * time.Millisecond}, Alerts{
		OnPromotionTimeout: func() { close(done) },
	})

	e.OnLift(sq("e7"))
	e.OnPlace(sq("e8"))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("promotion did not time out")
	}
	time.Sleep(10 * time.Millisecond) // let the commit goroutine finish
	last := st.Game.Get().Moves[len(st.Game.Get().Moves)-1]
	require.Equal(t, "e7e8q", last.UCI())
}
