package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vincent99/chessboard/internal/chesscore"
	"github.com/vincent99/chessboard/internal/store"
)

func TestServiceStartPauseIdempotent(t *testing.T) {
	cs := store.NewClockStore()
	cs.Set(store.ClockState{WhiteMS: 10_000, BlackMS: 10_000, ActiveColor: chesscore.White, Timed: true})

	svc := New(cs, nil)
	svc.Start()
	svc.Start() // no-op, must not panic or double-start the ticker goroutine
	require.True(t, cs.Get().Running)

	svc.Pause()
	svc.Pause() // no-op
	require.False(t, cs.Get().Running)
}

func TestServiceFlagsOnTimeout(t *testing.T) {
	cs := store.NewClockStore()
	cs.Set(store.ClockState{WhiteMS: 900, BlackMS: 10_000, ActiveColor: chesscore.White, Timed: true})

	flagged := make(chan chesscore.Color, 1)
	svc := New(cs, func(c chesscore.Color) { flagged <- c })
	svc.Start()

	select {
	case c := <-flagged:
		require.Equal(t, chesscore.White, c)
	case <-time.After(3 * time.Second):
		t.Fatal("clock did not flag within expected window")
	}
	require.False(t, cs.Get().Running)
}

func TestSwitchTurnAppliesIncrement(t *testing.T) {
	cs := store.NewClockStore()
	cs.Set(store.ClockState{WhiteMS: 5000, BlackMS: 5000, ActiveColor: chesscore.White, Timed: true, IncrementMS: 1000})

	svc := New(cs, nil)
	svc.SwitchTurn()

	got := cs.Get()
	require.Equal(t, chesscore.Black, got.ActiveColor)
	require.Equal(t, int64(6000), got.WhiteMS)
}
