// Package emulate defines the shared Emulator contract and the
// protocol auto-detect dispatcher spec.md §4.H requires. Each concrete
// emulator (millennium, pegasus, chessnut) is stateless with respect to
// the chess position: the caller passes the live position to Parse and
// EncodeBoardState, and the emulator keeps no copy of it. The closed,
// vendor-documented wire formats themselves have no ecosystem library fit
// and are encoded directly as byte slices, justified in DESIGN.md.
package emulate

import (
	"fmt"

	"github.com/vincent99/chessboard/internal/chesscore"
)

// Protocol identifies one of the three emulated board brands.
type Protocol int

const (
	ProtocolNone Protocol = iota
	ProtocolMillennium
	ProtocolPegasus
	ProtocolChessnut
)

func (p Protocol) String() string {
	switch p {
	case ProtocolMillennium:
		return "millennium"
	case ProtocolPegasus:
		return "pegasus"
	case ProtocolChessnut:
		return "chessnut"
	default:
		return "none"
	}
}

// Emulator is the contract every protocol implementation satisfies.
// Parse consumes one inbound frame from the app plus the live
// authoritative position (needed to answer board-state queries) and
// returns zero or more outbound reply frames; EncodeBoardState produces
// an unsolicited or queried board-state frame from that same position.
type Emulator interface {
	Protocol() Protocol
	Parse(frame []byte, pos *chesscore.Position) ([][]byte, error)
	EncodeBoardState(pos *chesscore.Position) []byte
	EncodeMoveAck(m chesscore.Move) []byte
	EncodeBattery(pct byte) []byte
	EncodeLED(sq chesscore.Square, on bool) []byte
}

// ErrUnrecognized is returned by Parse when the bytes do not match this
// emulator's framing at all (as opposed to matching the framing but
// failing validation); the dispatcher uses this distinction to decide
// whether to try the next parser in order.
var ErrUnrecognized = fmt.Errorf("emulate: frame not recognized by this protocol")

// Dispatcher implements the fixed-order auto-detect/lock-on: on the first
// received frame it tries each parser (Millennium, Pegasus, Chessnut) in
// turn and locks onto the first that accepts the frame without error.
// Subsequent frames go only to the locked emulator until Reset is called
// (on disconnect).
type Dispatcher struct {
	candidates []Emulator
	locked     Emulator
}

// NewDispatcher builds a dispatcher trying emulators in the given order.
func NewDispatcher(emulators ...Emulator) *Dispatcher {
	return &Dispatcher{candidates: emulators}
}

// Locked returns the currently locked emulator, or nil if none has locked
// on yet.
func (d *Dispatcher) Locked() Emulator {
	return d.locked
}

// Reset clears the lock, e.g. on transport disconnect.
func (d *Dispatcher) Reset() {
	d.locked = nil
}

// Dispatch routes frame to the locked emulator, or (if none is locked yet)
// tries each candidate in order and locks onto the first success. pos is
// the live authoritative position, threaded through so board-state query
// handlers can answer with what's actually on the board instead of an
// always-empty one.
func (d *Dispatcher) Dispatch(frame []byte, pos *chesscore.Position) (Emulator, [][]byte, error) {
	if d.locked != nil {
		replies, err := d.locked.Parse(frame, pos)
		return d.locked, replies, err
	}

	for _, candidate := range d.candidates {
		replies, err := candidate.Parse(frame, pos)
		if err == nil {
			d.locked = candidate
			return candidate, replies, nil
		}
	}
	return nil, nil, fmt.Errorf("emulate: no registered protocol accepted the first frame")
}
