package emulate_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vincent99/chessboard/internal/chesscore"
	"github.com/vincent99/chessboard/internal/emulate"
	"github.com/vincent99/chessboard/internal/emulate/chessnut"
	"github.com/vincent99/chessboard/internal/emulate/millennium"
	"github.com/vincent99/chessboard/internal/emulate/pegasus"
)

func TestDispatcherLocksOnFirstAcceptingProtocol(t *testing.T) {
	d := emulate.NewDispatcher(millennium.New(), pegasus.New(), chessnut.New())

	// Pegasus's board-request frame is [0x00][0x00] (zero-length payload).
	req := []byte{0x00, 0x00}

	pos := chesscore.NewPosition()
	locked, replies, err := d.Dispatch(req, pos)
	require.NoError(t, err)
	require.NotNil(t, locked)
	require.Equal(t, emulate.ProtocolPegasus, locked.Protocol())
	require.Len(t, replies, 1)

	// A second frame returns the same locked emulator.
	locked2, _, err := d.Dispatch([]byte{0x00, 0x00}, pos)
	require.NoError(t, err)
	require.Equal(t, locked, locked2)
}

func TestMillenniumBoardStateRoundTrip(t *testing.T) {
	e := millennium.New()
	pos := chesscore.NewPosition()
	frame := e.EncodeBoardState(pos)
	require.NotEmpty(t, frame)

	// A valid inbound 'S' request is the command byte followed by its own
	// XOR checksum (a single-byte body's checksum equals the byte
	// itself), both parity-encoded.
	req := []byte{applyParity('S'), applyParity('S')}
	replies, err := e.Parse(req, pos)
	require.NoError(t, err)
	require.Len(t, replies, 1)

	// The reply must reflect the live position, not an always-empty
	// board: decode it back and compare square-by-square.
	got := decodeMillenniumBoardState(t, replies[0])
	for sq := chesscore.Square(0); sq < 64; sq++ {
		want, wantOK := pos.PieceAt(sq)
		if !wantOK {
			require.Equal(t, byte('.'), got[sq], "square %v should be empty", sq)
			continue
		}
		require.Equal(t, want.FENByte(), got[sq], "square %v", sq)
	}
}

// decodeMillenniumBoardState strips parity and the leading 's' + trailing
// checksum byte from a board-state reply, returning the 64 piece bytes.
func decodeMillenniumBoardState(t *testing.T, frame []byte) []byte {
	t.Helper()
	require.Len(t, frame, 66)
	plain := make([]byte, len(frame))
	for i, b := range frame {
		plain[i] = b & 0x7F
	}
	require.Equal(t, byte('s'), plain[0])
	return plain[1:65]
}

func applyParity(b byte) byte {
	low := b & 0x7F
	ones := 0
	for v := low; v != 0; v &= v - 1 {
		ones++
	}
	if ones%2 != 0 {
		low |= 0x80
	}
	return low
}

func TestChessnutBoardStateRoundTrip(t *testing.T) {
	pos := chesscore.NewPosition()
	e := chessnut.New()
	frame := e.EncodeBoardState(pos)
	require.Len(t, frame, 33)

	decoded := chessnut.DecodeBoardState(frame[1:])
	for sq := chesscore.Square(0); sq < 64; sq++ {
		want, wantOK := pos.PieceAt(sq)
		got := decoded[sq]
		if !wantOK {
			require.Equal(t, chesscore.Piece{}, got, "square %v should be empty", sq)
			continue
		}
		require.Equal(t, want, got, "square %v", sq)
	}
}

func TestPegasusBoardStateUsesHardwareIndexing(t *testing.T) {
	pos := chesscore.NewPosition()
	e := pegasus.New()
	frame := e.EncodeBoardState(pos)
	require.Equal(t, byte(0x01), frame[0])
	require.Equal(t, byte(64), frame[1])
	require.Len(t, frame, 66)
	// a1 (white rook) sits at hardware index 7, h8 (black rook) at 56.
	require.Equal(t, byte('R'), frame[2+7])
	require.Equal(t, byte('r'), frame[2+56])
}
