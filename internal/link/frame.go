package link

import (
	"encoding/binary"
	"fmt"

	"github.com/vincent99/chessboard/internal/boarderr"
)

// ErrInvalidFrame is an alias of boarderr.ErrInvalidFrame kept local for
// terser %w wrapping in this file.
var ErrInvalidFrame = boarderr.ErrInvalidFrame

// FrameType is the closed set of type bytes the micro-controller protocol
// defines: requests/responses and unsolicited events share the same byte
// space (spec.md §4.A, §6).
type FrameType byte

const (
	TypeInitAck      FrameType = 0x01
	TypeBoardState   FrameType = 0x10
	TypeLEDSet       FrameType = 0x11
	TypeLEDsOff      FrameType = 0x12
	TypeSound        FrameType = 0x13
	TypeSleep        FrameType = 0x14
	TypeKeyEvent     FrameType = 0x20
	TypeLiftEvent    FrameType = 0x21
	TypePlaceEvent   FrameType = 0x22
	TypeBatteryEvent FrameType = 0x23
	TypeChargerEvent FrameType = 0x24
)

// Frame is one on-wire message: [type][length hi][length lo][addr1][addr2][payload...][checksum].
// Length is the total frame size including the 5-byte header and the
// trailing checksum byte.
type Frame struct {
	Type    FrameType
	Addr1   byte
	Addr2   byte
	Payload []byte
}

const headerSize = 5 // type + 2 length bytes + 2 address bytes
const minFrameSize = headerSize + 1 // + checksum

// Encode serializes f to its wire representation, appending the checksum.
func (f Frame) Encode() []byte {
	total := headerSize + len(f.Payload) + 1
	buf := make([]byte, total)
	buf[0] = byte(f.Type)
	binary.BigEndian.PutUint16(buf[1:3], uint16(total))
	buf[3] = f.Addr1
	buf[4] = f.Addr2
	copy(buf[headerSize:], f.Payload)
	buf[total-1] = checksum(buf[:total-1])
	return buf
}

// checksum is the low byte of the arithmetic sum of all preceding bytes.
func checksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}
	return sum
}

// Decode parses a single frame out of buf, returning the frame and the
// number of bytes consumed. It returns errShort if buf does not yet contain
// a complete frame (the caller should read more and retry), or an error
// wrapping ErrInvalidFrame (the boarderr alias above) if the length field
// is too small or the checksum does not match.
func Decode(buf []byte) (Frame, int, error) {
	if len(buf) < headerSize {
		return Frame{}, 0, errShort
	}
	total := int(binary.BigEndian.Uint16(buf[1:3]))
	if total < minFrameSize {
		return Frame{}, 0, fmt.Errorf("%w: length %d too small", ErrInvalidFrame, total)
	}
	if len(buf) < total {
		return Frame{}, 0, errShort
	}

	got := checksum(buf[:total-1])
	want := buf[total-1]
	if got != want {
		return Frame{}, total, fmt.Errorf("%w: checksum mismatch (got %02x want %02x)", ErrInvalidFrame, got, want)
	}

	f := Frame{
		Type:    FrameType(buf[0]),
		Addr1:   buf[3],
		Addr2:   buf[4],
		Payload: append([]byte(nil), buf[headerSize:total-1]...),
	}
	return f, total, nil
}

var errShort = fmt.Errorf("link: incomplete frame")
