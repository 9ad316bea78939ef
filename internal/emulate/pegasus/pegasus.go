// Package pegasus implements the DGT Pegasus emulator: binary framing
// over the Nordic UART service, spec.md §4.H.
package pegasus

import (
	"github.com/vincent99/chessboard/internal/chesscore"
	"github.com/vincent99/chessboard/internal/emulate"
)

const (
	typeBoardRequest byte = 0x00
	typeBoardState   byte = 0x01
	typeMove         byte = 0x02
	typeBattery      byte = 0x03
	typeLED          byte = 0x04
)

// Emulator implements emulate.Emulator for the Pegasus protocol.
type Emulator struct{}

func New() *Emulator { return &Emulator{} }

func (e *Emulator) Protocol() emulate.Protocol { return emulate.ProtocolPegasus }

// Parse decodes one [type][length][payload] frame. length covers payload
// only, not the two header bytes. pos is the live position, used to
// answer the board-state request.
func (e *Emulator) Parse(frame []byte, pos *chesscore.Position) ([][]byte, error) {
	if len(frame) < 2 {
		return nil, emulate.ErrUnrecognized
	}
	typ, length := frame[0], int(frame[1])
	if len(frame) != 2+length {
		return nil, emulate.ErrUnrecognized
	}

	switch typ {
	case typeBoardRequest:
		return [][]byte{e.EncodeBoardState(pos)}, nil
	default:
		return nil, emulate.ErrUnrecognized
	}
}

func frameOf(typ byte, payload []byte) []byte {
	out := make([]byte, 2+len(payload))
	out[0] = typ
	out[1] = byte(len(payload))
	copy(out[2:], payload)
	return out
}

// EncodeBoardState answers with a 64-byte piece map in hardware indexing
// (column-major, board-flipped, same addressing internal/board converts
// at its own boundary).
func (e *Emulator) EncodeBoardState(pos *chesscore.Position) []byte {
	payload := make([]byte, 64)
	for sq := chesscore.Square(0); sq < 64; sq++ {
		hw := toHardwareIndex(sq)
		payload[hw] = '.'
		if pos == nil {
			continue
		}
		if p, ok := pos.PieceAt(sq); ok {
			payload[hw] = p.FENByte()
		}
	}
	return frameOf(typeBoardState, payload)
}

func toHardwareIndex(sq chesscore.Square) int {
	file, rank := sq.File(), sq.Rank()
	return file*8 + (7 - rank)
}

func (e *Emulator) EncodeMoveAck(m chesscore.Move) []byte {
	return frameOf(typeMove, []byte(m.UCI()))
}

func (e *Emulator) EncodeBattery(pct byte) []byte {
	return frameOf(typeBattery, []byte{pct})
}

func (e *Emulator) EncodeLED(sq chesscore.Square, on bool) []byte {
	state := byte(0)
	if on {
		state = 1
	}
	return frameOf(typeLED, []byte{byte(toHardwareIndex(sq)), state})
}
