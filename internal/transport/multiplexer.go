package transport

import (
	"log"

	"github.com/vincent99/chessboard/internal/chesscore"
	"github.com/vincent99/chessboard/internal/controller"
	"github.com/vincent99/chessboard/internal/emulate"
)

// Multiplexer fans frames from every registered channel (BLE GATT writes,
// RFCOMM reads) into the auto-detect dispatcher, writes replies back down
// whichever channel they arrived on, and tells the controller manager
// about connect/disconnect transitions.
type Multiplexer struct {
	dispatcher *emulate.Dispatcher
	manager    *controller.Manager
	position   func() *chesscore.Position
}

// NewMultiplexer wires a dispatcher and controller manager together.
// position is called on every inbound frame to fetch the live
// authoritative position, so board-state queries answer with what's
// actually on the board rather than an always-empty one.
func NewMultiplexer(dispatcher *emulate.Dispatcher, manager *controller.Manager, position func() *chesscore.Position) *Multiplexer {
	return &Multiplexer{dispatcher: dispatcher, manager: manager, position: position}
}

// OnFrame is the shared FrameHandler passed to BLEServer and
// RFCOMMServer: it dispatches through the locked (or auto-detecting)
// emulator and writes back every reply the emulator produces.
func (m *Multiplexer) OnFrame(frame []byte, reply func([]byte) error) {
	m.manager.OnAppFrame()

	var pos *chesscore.Position
	if m.position != nil {
		pos = m.position()
	}

	_, replies, err := m.dispatcher.Dispatch(frame, pos)
	if err != nil {
		log.Printf("transport: unrecognized frame, dropping: %v", err)
		return
	}
	for _, r := range replies {
		if err := reply(r); err != nil {
			log.Printf("transport: write reply failed: %v", err)
			return
		}
	}
}

// OnDisconnect clears the locked emulator and returns control to local,
// per spec.md §4.J's "a dropped connection clears the locked emulator".
func (m *Multiplexer) OnDisconnect() {
	m.manager.OnAppDisconnect()
}
