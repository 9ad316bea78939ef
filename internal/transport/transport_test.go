package transport_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vincent99/chessboard/internal/chesscore"
	"github.com/vincent99/chessboard/internal/controller"
	"github.com/vincent99/chessboard/internal/emulate"
	"github.com/vincent99/chessboard/internal/emulate/millennium"
	"github.com/vincent99/chessboard/internal/emulate/pegasus"
	"github.com/vincent99/chessboard/internal/transport"
)

func TestRFCOMMFrameRoundTrip(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03, 0xff}
	encoded := transport.EncodeRFCOMMFrame(payload)

	decoded, consumed, err := transport.DecodeRFCOMMFrame(encoded)
	require.NoError(t, err)
	require.Equal(t, payload, decoded)
	require.Equal(t, len(encoded), consumed)
}

func TestRFCOMMFrameDetectsCorruption(t *testing.T) {
	encoded := transport.EncodeRFCOMMFrame([]byte{0x01, 0x02})
	encoded[2] ^= 0xff // corrupt the payload without touching the crc

	_, _, err := transport.DecodeRFCOMMFrame(encoded)
	require.ErrorIs(t, err, transport.ErrBadCRC)
}

func TestAssemblerResyncsPastCorruptFrame(t *testing.T) {
	good1 := transport.EncodeRFCOMMFrame([]byte{0xaa})
	good2 := transport.EncodeRFCOMMFrame([]byte{0xbb, 0xcc})

	stream := append([]byte{}, good1...)
	stream = append(stream, 0xde, 0xad, 0xbe, 0xef) // garbage with no valid frame
	stream = append(stream, good2...)

	var asm transport.Assembler
	frames := asm.Feed(stream)
	require.Len(t, frames, 2)
	require.Equal(t, []byte{0xaa}, frames[0])
	require.Equal(t, []byte{0xbb, 0xcc}, frames[1])
}

func TestAssemblerFeedsAcrossPartialReads(t *testing.T) {
	encoded := transport.EncodeRFCOMMFrame([]byte{0x11, 0x22, 0x33})

	var asm transport.Assembler
	frames := asm.Feed(encoded[:2])
	require.Empty(t, frames, "incomplete frame yields nothing yet")

	frames = asm.Feed(encoded[2:])
	require.Len(t, frames, 1)
	require.Equal(t, []byte{0x11, 0x22, 0x33}, frames[0])
}

type fakeController struct{ active bool }

func (f *fakeController) Activate()   { f.active = true }
func (f *fakeController) Deactivate() { f.active = false }

func TestMultiplexerDispatchesAndSwitchesToRemote(t *testing.T) {
	d := emulate.NewDispatcher(millennium.New(), pegasus.New())
	local, remote := &fakeController{}, &fakeController{}
	mgr := controller.NewManager(local, remote, nil, d)
	mux := transport.NewMultiplexer(d, mgr, func() *chesscore.Position { return chesscore.NewPosition() })

	var replies [][]byte
	mux.OnFrame([]byte{0x00, 0x00}, func(b []byte) error {
		replies = append(replies, b)
		return nil
	})

	require.Equal(t, controller.ModeRemote, mgr.Mode())
	require.Len(t, replies, 1)
}

func TestMultiplexerDisconnectClearsLockAndReturnsLocal(t *testing.T) {
	d := emulate.NewDispatcher(millennium.New(), pegasus.New())
	local, remote := &fakeController{}, &fakeController{}
	mgr := controller.NewManager(local, remote, nil, d)
	mux := transport.NewMultiplexer(d, mgr, func() *chesscore.Position { return chesscore.NewPosition() })

	mux.OnFrame([]byte{0x00, 0x00}, func(b []byte) error { return nil })
	require.Equal(t, controller.ModeRemote, mgr.Mode())

	mux.OnDisconnect()
	require.Equal(t, controller.ModeLocal, mgr.Mode())
	require.Nil(t, d.Locked())
}
