package link

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	f := Frame{Type: TypeLiftEvent, Addr1: 0x01, Addr2: 0x02, Payload: []byte{42}}
	wire := f.Encode()

	got, n, err := Decode(wire)
	require.NoError(t, err)
	require.Equal(t, len(wire), n)
	require.Equal(t, f.Type, got.Type)
	require.Equal(t, f.Addr1, got.Addr1)
	require.Equal(t, f.Addr2, got.Addr2)
	require.Equal(t, f.Payload, got.Payload)
}

// TestChecksumClosure is testable property #1 from spec.md §8: every frame
// emitted by the link layer passes its own parser.
func TestChecksumClosure(t *testing.T) {
	frames := []Frame{
		{Type: TypeInitAck},
		{Type: TypeBoardState, Payload: make([]byte, 8)},
		{Type: TypeLEDSet, Payload: []byte{12, 255}},
		{Type: TypeKeyEvent, Payload: []byte{3}},
	}
	for _, f := range frames {
		wire := f.Encode()
		_, n, err := Decode(wire)
		require.NoError(t, err)
		require.Equal(t, len(wire), n)
	}
}

func TestDecodeIncompleteFrameAsksForMore(t *testing.T) {
	f := Frame{Type: TypeLiftEvent, Payload: []byte{1, 2, 3}}
	wire := f.Encode()

	_, _, err := Decode(wire[:len(wire)-2])
	require.ErrorIs(t, err, errShort)
}

func TestDecodeChecksumMismatchIsInvalidFrame(t *testing.T) {
	f := Frame{Type: TypeLiftEvent, Payload: []byte{7}}
	wire := f.Encode()
	wire[len(wire)-1] ^= 0xFF // corrupt checksum

	_, consumed, err := Decode(wire)
	require.ErrorIs(t, err, ErrInvalidFrame)
	require.Equal(t, len(wire), consumed)
}
