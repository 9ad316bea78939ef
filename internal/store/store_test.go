package store

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vincent99/chessboard/internal/chesscore"
)

func TestGameStoreStartAndApplyMove(t *testing.T) {
	s := NewGameStore()
	var notified GameState
	s.Subscribe(func(g GameState) { notified = g })

	s.StartGame("Alice", "Bob", "")
	require.Equal(t, "Alice", notified.WhiteName)
	require.NotEmpty(t, notified.ID)

	from, _ := chesscore.ParseSquare("e2")
	to, _ := chesscore.ParseSquare("e4")
	move, ok := s.Get().Position.IsLegal(from, to, chesscore.NoPieceType)
	require.True(t, ok)

	require.NoError(t, s.ApplyMove(move))
	require.Len(t, s.Get().Moves, 1)
	require.Equal(t, s.Get().Position.FEN(), notified.Position.FEN())
}

func TestClockStoreFlagsAtZero(t *testing.T) {
	c := NewClockStore()
	c.Set(ClockState{WhiteMS: 2000, BlackMS: 1000, ActiveColor: chesscore.White, Running: true, Timed: true})

	require.False(t, c.Tick())
	flagged := c.Tick()
	require.True(t, flagged)
	require.False(t, c.Get().Running)
	require.Equal(t, int64(0), c.Get().WhiteMS)
}

func TestClockStoreSwitchTurnAppliesIncrementToMover(t *testing.T) {
	c := NewClockStore()
	c.Set(ClockState{WhiteMS: 5000, BlackMS: 5000, ActiveColor: chesscore.White, Running: true, Timed: true, IncrementMS: 2000})

	c.SwitchTurn()
	got := c.Get()
	require.Equal(t, chesscore.Black, got.ActiveColor)
	require.Equal(t, int64(7000), got.WhiteMS)
	require.Equal(t, int64(5000), got.BlackMS)
}

func TestAnalysisStoreResetTruncates(t *testing.T) {
	a := NewAnalysisStore()
	a.Append(AnalysisEntry{Ply: 0, ScoreCP: 20})
	a.Append(AnalysisEntry{Ply: 1, ScoreCP: -10})
	require.Len(t, a.History(), 2)

	a.Reset()
	require.Empty(t, a.History())
}
