package persist_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vincent99/chessboard/internal/chesscore"
	"github.com/vincent99/chessboard/internal/persist"
)

func newTestStore(t *testing.T) *persist.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "games.db")
	s, err := persist.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStartGameRejectsSecondUnterminatedGame(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.StartGame("g1", time.Now(), "Alice", "Bob", "local", chesscore.NewPosition().FEN()))

	err := s.StartGame("g2", time.Now(), "Carol", "Dave", "local", chesscore.NewPosition().FEN())
	require.Error(t, err)
}

func TestRecordMoveAndResult(t *testing.T) {
	s := newTestStore(t)
	fen := chesscore.NewPosition().FEN()
	require.NoError(t, s.StartGame("g1", time.Now(), "Alice", "Bob", "local", fen))

	m := chesscore.Move{From: mustSquare("e2"), To: mustSquare("e4")}
	require.NoError(t, s.RecordMove("g1", 1, m, "fen-after-e4"))

	moves, err := s.MovesForGame("g1")
	require.NoError(t, err)
	require.Len(t, moves, 1)
	require.Equal(t, "e2e4", moves[0].UCI)
	require.Equal(t, "fen-after-e4", moves[0].FENAfter)

	require.NoError(t, s.RecordResult("g1", chesscore.OutcomeWhiteWins, chesscore.ReasonCheckmate))

	rec, err := s.UnterminatedGame()
	require.NoError(t, err)
	require.Nil(t, rec, "game was just terminated")
}

func TestUnterminatedGameResume(t *testing.T) {
	s := newTestStore(t)
	fen := chesscore.NewPosition().FEN()
	require.NoError(t, s.StartGame("g1", time.Now(), "Alice", "Bob", "local", fen))

	rec, err := s.UnterminatedGame()
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "g1", rec.ID)
	require.Equal(t, fen, rec.OpeningFEN)
}

func mustSquare(s string) chesscore.Square {
	sq, err := chesscore.ParseSquare(s)
	if err != nil {
		panic(err)
	}
	return sq
}
