package board

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vincent99/chessboard/internal/chesscore"
)

func TestHardwareSquareRoundTrip(t *testing.T) {
	for file := 0; file < 8; file++ {
		for rank := 0; rank < 8; rank++ {
			sq := chesscore.NewSquare(file, rank)
			hw := toHardwareSquare(sq)
			require.Equal(t, sq, fromHardwareSquare(hw))
		}
	}
}

func TestHardwareSquareIsColumnMajorFlipped(t *testing.T) {
	// a1 (file 0, rank 0) sits at the bottom of a board-flipped column, so
	// its hardware index is file*8 + (7-rank) = 0*8 + 7 = 7.
	a1 := chesscore.NewSquare(0, 0)
	require.Equal(t, byte(7), toHardwareSquare(a1))

	// h8 (file 7, rank 7) is file*8 + (7-7) = 56.
	h8 := chesscore.NewSquare(7, 7)
	require.Equal(t, byte(56), toHardwareSquare(h8))
}
