// Package board wraps internal/link with chess-domain operations: the LED
// array, piezo patterns, board-state reads, lift/key/place subscriptions,
// and the inactivity timer. It generalizes hardware/led/led.go's single-bit
// Controller (On/Off/Blink driven by a bitmask write) into a 64-square array
// addressed through the link layer, and generalizes the ticker-driven
// background-goroutine shape of hardware/brightness/brightness.go into the
// inactivity timer below.
package board

import (
	"sync"
	"time"

	"github.com/vincent99/chessboard/internal/chesscore"
	"github.com/vincent99/chessboard/internal/link"
)

// Tone is one of the closed set of piezo patterns the controller firmware
// understands.
type Tone byte

const (
	ToneGeneral Tone = iota
	ToneFactory
	TonePower
	ToneWrongMove
	ToneCorrect
)

// FlashPattern selects how led_flash animates between two squares.
type FlashPattern byte

const (
	FlashSteady FlashPattern = iota
	FlashPulse
	FlashBlink
)

const (
	defaultInactivityTimeout = 900 * time.Second
	defaultInactivityWarning = 120 * time.Second
)

// Config tunes the inactivity timer; zero values take the spec.md defaults.
type Config struct {
	InactivityTimeout time.Duration
	InactivityWarning time.Duration
}

func (c Config) withDefaults() Config {
	if c.InactivityTimeout == 0 {
		c.InactivityTimeout = defaultInactivityTimeout
	}
	if c.InactivityWarning == 0 {
		c.InactivityWarning = defaultInactivityWarning
	}
	return c
}

// Board is the chess-domain facade over a *link.Link.
type Board struct {
	cfg  Config
	link *link.Link

	mu         sync.Mutex
	lastActive time.Time
	warning    bool

	onWarning chan struct{} // fires once when the warning countdown begins
	onSleep   chan struct{} // fires once when request_sleep is issued
	quit      chan struct{}
	done      chan struct{}
}

// New wraps l and starts the inactivity timer goroutine. onWarning and
// onSleep, if non-nil, receive a single notification each; the caller is
// expected to drive the display alert and shutdown sequence from them.
func New(l *link.Link, cfg Config, onWarning, onSleep chan struct{}) *Board {
	b := &Board{
		cfg:        cfg.withDefaults(),
		link:       l,
		lastActive: time.Now(),
		onWarning:  onWarning,
		onSleep:    onSleep,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	l.Subscribe(link.ClassKey, func(link.Event) { b.touch() })
	l.Subscribe(link.ClassLift, func(link.Event) { b.touch() })
	l.Subscribe(link.ClassPlace, func(link.Event) { b.touch() })

	go b.runInactivityTimer()
	return b
}

// Close stops the inactivity timer goroutine.
func (b *Board) Close() {
	close(b.quit)
	<-b.done
}

func (b *Board) touch() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastActive = time.Now()
	b.warning = false
}

func (b *Board) runInactivityTimer() {
	defer close(b.done)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-b.quit:
			return
		case <-ticker.C:
			b.mu.Lock()
			idle := time.Since(b.lastActive)
			warning := b.warning
			switch {
			case !warning && idle >= b.cfg.InactivityTimeout:
				b.warning = true
				b.mu.Unlock()
				notify(b.onWarning)
			case warning && idle >= b.cfg.InactivityTimeout+b.cfg.InactivityWarning:
				b.mu.Unlock()
				b.RequestSleep()
				notify(b.onSleep)
				return
			default:
				b.mu.Unlock()
			}
		}
	}
}

func notify(ch chan struct{}) {
	if ch == nil {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

// LEDs lights the given squares (hardware-layer LED array) at the given
// intensity (0-255).
func (b *Board) LEDs(squares []chesscore.Square, intensity byte) error {
	payload := make([]byte, 0, len(squares)+1)
	payload = append(payload, intensity)
	for _, sq := range squares {
		payload = append(payload, toHardwareSquare(sq))
	}
	return b.link.Send(link.Frame{Type: link.TypeLEDSet, Payload: payload})
}

// LEDFlash animates a from->to guidance hint (correction mode, hint
// highlighting) using the given pattern.
func (b *Board) LEDFlash(from, to chesscore.Square, pattern FlashPattern) error {
	payload := []byte{toHardwareSquare(from), toHardwareSquare(to), byte(pattern)}
	return b.link.Send(link.Frame{Type: link.TypeLEDSet, Payload: payload})
}

// LEDsOff extinguishes the entire array.
func (b *Board) LEDsOff() error {
	return b.link.Send(link.Frame{Type: link.TypeLEDsOff})
}

// Beep plays one of the closed set of piezo patterns.
func (b *Board) Beep(tone Tone) error {
	return b.link.Send(link.Frame{Type: link.TypeSound, Payload: []byte{byte(tone)}})
}

// ReadBoardState requests the current physical piece-presence bitmap,
// translating from the hardware's column-major, board-flipped addressing to
// the chess 0..63 index at this boundary so that no consumer above 4.B ever
// sees the hardware layout.
func (b *Board) ReadBoardState() (chesscore.PiecePresenceBitmap, error) {
	resp, err := b.link.Request(link.Frame{Type: link.TypeBoardState})
	if err != nil {
		return 0, err
	}
	var bm chesscore.PiecePresenceBitmap
	for hwSq := 0; hwSq < 64 && hwSq/8 < len(resp.Payload); hwSq++ {
		byteIdx := hwSq / 8
		bitIdx := uint(hwSq % 8)
		if resp.Payload[byteIdx]&(1<<bitIdx) == 0 {
			continue
		}
		bm.Set(fromHardwareSquare(byte(hwSq)))
	}
	return bm, nil
}

// SubscribeKeys, SubscribeLift and SubscribePlace register handlers for the
// corresponding hardware event classes, delivering chess-domain squares.
func (b *Board) SubscribeKeys(handler func(key byte)) {
	b.link.Subscribe(link.ClassKey, func(ev link.Event) {
		b.touch()
		handler(ev.Key)
	})
}

func (b *Board) SubscribeLift(handler func(sq chesscore.Square)) {
	b.link.Subscribe(link.ClassLift, func(ev link.Event) {
		b.touch()
		handler(fromHardwareSquare(ev.Square))
	})
}

func (b *Board) SubscribePlace(handler func(sq chesscore.Square)) {
	b.link.Subscribe(link.ClassPlace, func(ev link.Event) {
		b.touch()
		handler(fromHardwareSquare(ev.Square))
	})
}

// PauseEvents and ResumeEvents gate key/lift/place delivery, e.g. while a
// modal promotion chooser owns key input.
func (b *Board) PauseEvents()  { b.link.PauseEvents() }
func (b *Board) ResumeEvents() { b.link.ResumeEvents() }

// RequestSleep tells the controller to power down after a final beep.
func (b *Board) RequestSleep() error {
	return b.link.Send(link.Frame{Type: link.TypeSleep})
}

// toHardwareSquare and fromHardwareSquare convert between the chess 0..63
// index (a1=0, file-major) and the sensor matrix's column-major,
// board-flipped addressing.
func toHardwareSquare(sq chesscore.Square) byte {
	file := sq.File()
	rank := sq.Rank()
	flippedRank := 7 - rank
	return byte(file*8 + flippedRank)
}

func fromHardwareSquare(hw byte) chesscore.Square {
	file := int(hw) / 8
	flippedRank := int(hw) % 8
	rank := 7 - flippedRank
	return chesscore.NewSquare(file, rank)
}
