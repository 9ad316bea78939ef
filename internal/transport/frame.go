// Package transport multiplexes the three BLE GATT services and the
// classic RFCOMM SPP channel onto the protocol auto-detect dispatcher,
// spec.md §4.J.
package transport

import (
	"encoding/binary"
	"fmt"

	"github.com/sigurn/crc16"
)

// rfcommFrameTable is the CRC16-CCITT variant DGT-class serial/BLE
// framing historically uses for the classic RFCOMM SPP path (the BLE
// GATT paths carry each vendor's own framing verbatim and never touch
// this).
var rfcommFrameTable = crc16.MakeTable(crc16.CCITT_FALSE)

// EncodeRFCOMMFrame wraps payload as [length(2 LE)][payload][crc16(2 LE)].
func EncodeRFCOMMFrame(payload []byte) []byte {
	out := make([]byte, 2+len(payload)+2)
	binary.LittleEndian.PutUint16(out[0:2], uint16(len(payload)))
	copy(out[2:], payload)
	sum := crc16.Checksum(out[:2+len(payload)], rfcommFrameTable)
	binary.LittleEndian.PutUint16(out[2+len(payload):], sum)
	return out
}

// ErrShortFrame signals the assembler needs more bytes.
var ErrShortFrame = fmt.Errorf("transport: incomplete rfcomm frame")

// ErrBadCRC signals a corrupted rfcomm frame.
var ErrBadCRC = fmt.Errorf("transport: rfcomm frame checksum mismatch")

// maxRFCOMMPayload bounds the length field; a larger value cannot be a
// frame start, so the decoder rejects it instead of waiting for more bytes.
const maxRFCOMMPayload = 512

var errBadLength = fmt.Errorf("transport: rfcomm frame length out of range")

// DecodeRFCOMMFrame extracts one frame from the head of buf, returning
// the payload, the number of bytes consumed, and an error. ErrShortFrame
// means the caller should read more bytes and retry; any other error
// means buf[0] should be dropped and decoding retried (resync).
func DecodeRFCOMMFrame(buf []byte) (payload []byte, consumed int, err error) {
	if len(buf) < 4 {
		return nil, 0, ErrShortFrame
	}
	length := int(binary.LittleEndian.Uint16(buf[0:2]))
	if length > maxRFCOMMPayload {
		return nil, 0, errBadLength
	}
	total := 2 + length + 2
	if len(buf) < total {
		return nil, 0, ErrShortFrame
	}
	want := binary.LittleEndian.Uint16(buf[total-2 : total])
	got := crc16.Checksum(buf[:total-2], rfcommFrameTable)
	if got != want {
		return nil, 0, ErrBadCRC
	}
	return buf[2 : 2+length], total, nil
}

// Assembler accumulates bytes from a stream-oriented transport (RFCOMM)
// and yields complete frames as they arrive.
type Assembler struct {
	buf []byte
}

// Feed appends newly-read bytes and returns every complete frame it can
// now extract, resyncing past any corrupted frame.
func (a *Assembler) Feed(b []byte) [][]byte {
	a.buf = append(a.buf, b...)
	var frames [][]byte
	for {
		payload, consumed, err := DecodeRFCOMMFrame(a.buf)
		switch err {
		case nil:
			frames = append(frames, payload)
			a.buf = a.buf[consumed:]
		case ErrShortFrame:
			return frames
		default:
			a.buf = a.buf[1:]
		}
	}
}
