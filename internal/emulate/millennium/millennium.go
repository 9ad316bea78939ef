// Package millennium implements the Millennium ChessLink emulator:
// 7-bit-parity ASCII command/response framing with a trailing XOR
// checksum, spec.md §4.H.
package millennium

import (
	"fmt"

	"github.com/vincent99/chessboard/internal/chesscore"
	"github.com/vincent99/chessboard/internal/emulate"
)

// Emulator implements emulate.Emulator for the Millennium ChessLink
// protocol.
type Emulator struct{}

func New() *Emulator { return &Emulator{} }

func (e *Emulator) Protocol() emulate.Protocol { return emulate.ProtocolMillennium }

// applyParity sets bit 7 to the even parity of the low 7 bits, matching
// the wire's 7-bit-payload-plus-parity byte shape.
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

func stripParity(b byte) byte { return b & 0x7F }

func checksum(b []byte) byte {
	var x byte
	for _, v := range b {
		x ^= v
	}
	return x
}

// Parse decodes one inbound command frame: parity-stripped bytes, last
// byte is the XOR checksum of the preceding bytes. Returns
// emulate.ErrUnrecognized if the frame isn't even long enough to carry a
// command and checksum, which lets the dispatcher try the next protocol.
// pos is the live position, used to answer the 'S' board-state query.
func (e *Emulator) Parse(frame []byte, pos *chesscore.Position) ([][]byte, error) {
	if len(frame) < 2 {
		return nil, emulate.ErrUnrecognized
	}
	plain := make([]byte, len(frame))
	for i, b := range frame {
		plain[i] = stripParity(b)
	}
	body, want := plain[:len(plain)-1], plain[len(plain)-1]
	if checksum(body) != want {
		return nil, emulate.ErrUnrecognized
	}

	cmd := body[0]
	switch cmd {
	case 'V':
		return [][]byte{e.frame([]byte("v1.0"))}, nil
	case 'S':
		return [][]byte{e.EncodeBoardState(pos)}, nil
	case 'X':
		return [][]byte{e.frame([]byte("x"))}, nil
	case 'W', 'I':
		return [][]byte{e.frame([]byte{toLower(cmd)})}, nil
	case 'R':
		return [][]byte{e.frame([]byte("r"))}, nil
	case 'L':
		if len(body) < 3 {
			return nil, fmt.Errorf("millennium: short L command")
		}
		return [][]byte{e.frame([]byte("l"))}, nil
	default:
		return nil, emulate.ErrUnrecognized
	}
}

func toLower(b byte) byte { return b + ('a' - 'A') }

// frame appends the XOR checksum and re-applies parity to every byte.
func (e *Emulator) frame(body []byte) []byte {
	out := make([]byte, len(body)+1)
	copy(out, body)
	out[len(body)] = checksum(body)
	for i, b := range out {
		out[i] = applyParity(b)
	}
	return out
}

// EncodeBoardState produces the 's'+64-piece-char response. pos may be
// nil, in which case all squares report empty ('.').
func (e *Emulator) EncodeBoardState(pos *chesscore.Position) []byte {
	body := make([]byte, 65)
	body[0] = 's'
	for sq := chesscore.Square(0); sq < 64; sq++ {
		body[1+sq] = '.'
		if pos == nil {
			continue
		}
		if p, ok := pos.PieceAt(sq); ok {
			body[1+sq] = p.FENByte()
		}
	}
	return e.frame(body)
}

func (e *Emulator) EncodeMoveAck(m chesscore.Move) []byte {
	return e.frame([]byte("m" + m.UCI()))
}

func (e *Emulator) EncodeBattery(pct byte) []byte {
	return e.frame([]byte{'b', pct})
}

func (e *Emulator) EncodeLED(sq chesscore.Square, on bool) []byte {
	state := byte('0')
	if on {
		state = '1'
	}
	return e.frame([]byte{'l', byte(sq), state})
}
