// Package link implements the framed serial transport to the chessboard's
// micro-controller (spec.md §4.A). It is grounded on two shapes from the
// teacher repo: hardware/i2c/i2c.go's single-transaction request/response
// over a file descriptor, and hardware/expander/expander.go's Watch(), a
// ticker-driven read pump that publishes parsed events onto a channel. Here
// the two are split into distinct concerns per spec.md §5: a request mutex
// serializes request/response transactions, while a separate pump goroutine
// owns the only blocking read of the port and must never be gated by a
// pending request.
package link

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/tarm/serial"
	"github.com/vincent99/chessboard/internal/boarderr"
)

// EventClass is one of the five event kinds a caller may subscribe to.
type EventClass int

const (
	ClassKey EventClass = iota
	ClassLift
	ClassPlace
	ClassBattery
	ClassCharger
)

// Event is a single parsed occurrence off the wire, in arrival order.
type Event struct {
	Class   EventClass
	Square  byte // valid for ClassLift/ClassPlace, hardware-layer square index
	Key     byte // valid for ClassKey
	Battery byte // valid for ClassBattery, 0-100
	Charger bool // valid for ClassCharger
}

// Config holds the serial port parameters and retry/timeout knobs.
type Config struct {
	Port            string
	Baud            int
	InitRetries     int           // default 3
	InitDeadline    time.Duration // default 10s
	RequestDeadline time.Duration // default 2s
	PollInterval    time.Duration // default 5ms
}

func (c Config) withDefaults() Config {
	if c.InitRetries == 0 {
		c.InitRetries = 3
	}
	if c.InitDeadline == 0 {
		c.InitDeadline = 10 * time.Second
	}
	if c.RequestDeadline == 0 {
		c.RequestDeadline = 2 * time.Second
	}
	if c.PollInterval == 0 {
		c.PollInterval = 5 * time.Millisecond
	}
	return c
}

// Link is the serial transport. All exported methods are safe for
// concurrent use.
type Link struct {
	cfg Config
	port io.ReadWriteCloser

	reqMu sync.Mutex // serializes request/response transactions (spec.md §5.2)

	pumpQuit chan struct{}
	pumpDone chan struct{}

	mu       sync.Mutex // guards handlers, pending response routing, and paused
	handlers [5]func(Event)
	pending  map[pendingKey]chan Frame // keyed by type+address, one outstanding per key
	readBuf  []byte
	paused   bool
}

// pendingKey identifies one outstanding request: responses are matched
// only by type+address (spec.md §4.A), never by type alone, so two
// concurrently-addressable peripherals sharing a frame type can't steal
// each other's response.
type pendingKey struct {
	Type  FrameType
	Addr1 byte
	Addr2 byte
}

func keyOf(f Frame) pendingKey {
	return pendingKey{Type: f.Type, Addr1: f.Addr1, Addr2: f.Addr2}
}

// Open opens the serial port, retrying the open up to cfg.InitRetries times
// (cfg.InitDeadline is used as the port's read timeout), then performs the
// init handshake once, bounded by cfg.RequestDeadline; a failed handshake
// is not retried. Returns boarderr.ErrHardwareInitFailed if every open
// attempt fails or the handshake fails.
func Open(cfg Config) (*Link, error) {
	cfg = cfg.withDefaults()

	var port io.ReadWriteCloser
	var lastErr error
	for attempt := 0; attempt < cfg.InitRetries; attempt++ {
		p, err := serial.OpenPort(&serial.Config{Name: cfg.Port, Baud: cfg.Baud, ReadTimeout: cfg.InitDeadline})
		if err != nil {
			lastErr = err
			time.Sleep(100 * time.Millisecond)
			continue
		}
		port = p
		lastErr = nil
		break
	}
	if port == nil {
		return nil, fmt.Errorf("%w: open %s: %v", boarderr.ErrHardwareInitFailed, cfg.Port, lastErr)
	}

	l := &Link{
		cfg:      cfg,
		port:     port,
		pumpQuit: make(chan struct{}),
		pumpDone: make(chan struct{}),
		pending:  make(map[pendingKey]chan Frame),
	}

	// The handshake's response is routed by the pump, so it must be running.
	go l.pump()
	if err := l.handshake(); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("%w: %v", boarderr.ErrHardwareInitFailed, err)
	}
	return l, nil
}

func (l *Link) handshake() error {
	_, err := l.Request(Frame{Type: TypeInitAck})
	return err
}

// Close stops the pump and closes the underlying port.
func (l *Link) Close() error {
	close(l.pumpQuit)
	<-l.pumpDone
	return l.port.Close()
}

// Subscribe registers handler for one event class. Only one handler per
// class is supported; a later call replaces the previous one. Handlers run
// on the pump goroutine and must return quickly — they must not perform
// blocking I/O (spec.md §5).
func (l *Link) Subscribe(class EventClass, handler func(Event)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[class] = handler
}

// PauseEvents / ResumeEvents let 4.B gate delivery during promotion choosers
// and similar modal UI without stopping the pump entirely.
func (l *Link) PauseEvents() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused = true
}

func (l *Link) ResumeEvents() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused = false
}

// Request writes req and blocks until a matching response (same type, same
// addresses) arrives or cfg.RequestDeadline elapses. Concurrent callers are
// serialized; events are delivered independently by the pump and are never
// blocked by a pending request.
func (l *Link) Request(req Frame) (Frame, error) {
	l.reqMu.Lock()
	defer l.reqMu.Unlock()

	key := keyOf(req)
	ch := make(chan Frame, 1)
	l.mu.Lock()
	l.pending[key] = ch
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		delete(l.pending, key)
		l.mu.Unlock()
	}()

	if _, err := l.port.Write(req.Encode()); err != nil {
		return Frame{}, fmt.Errorf("%w: write: %v", boarderr.ErrLinkTimeout, err)
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-time.After(l.cfg.RequestDeadline):
		return Frame{}, boarderr.ErrLinkTimeout
	}
}

// Send is a fire-and-forget write for direct commands (LED set, sound,
// sleep) that only expect a bare acknowledgement, which this call does not
// wait for.
func (l *Link) Send(f Frame) error {
	if _, err := l.port.Write(f.Encode()); err != nil {
		return fmt.Errorf("%w: %v", boarderr.ErrLinkTimeout, err)
	}
	return nil
}

// pump is the only goroutine that ever calls l.port.Read. It polls the
// controller at cfg.PollInterval (mirroring hardware/expander/expander.go's
// Watch loop), parses whatever frames have accumulated, routes responses to
// any waiting Request call, and dispatches events to subscribers exactly
// once in arrival order.
func (l *Link) pump() {
	defer close(l.pumpDone)

	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	chunk := make([]byte, 4096)
	for {
		select {
		case <-l.pumpQuit:
			return
		case <-ticker.C:
			n, err := l.port.Read(chunk)
			if err != nil {
				continue // transient read timeout; controller resends events on next poll
			}
			if n == 0 {
				continue
			}
			l.readBuf = append(l.readBuf, chunk[:n]...)
			l.drain()
		}
	}
}

func (l *Link) drain() {
	for {
		f, consumed, err := Decode(l.readBuf)
		if err != nil {
			if err == errShort {
				return // wait for more bytes
			}
			// Checksum mismatch or malformed frame: log and discard up to
			// consumed bytes (or one byte if we can't even find a length).
			if consumed == 0 {
				consumed = 1
			}
			log.Printf("link: discarding invalid frame: %v", err)
			l.readBuf = l.readBuf[consumed:]
			continue
		}
		l.readBuf = l.readBuf[consumed:]
		l.route(f)
	}
}

func (l *Link) route(f Frame) {
	l.mu.Lock()
	if ch, ok := l.pending[keyOf(f)]; ok {
		l.mu.Unlock()
		select {
		case ch <- f:
		default:
		}
		return
	}
	paused := l.paused
	var handler func(Event)
	var class EventClass
	var ok bool
	switch f.Type {
	case TypeKeyEvent:
		class, ok = ClassKey, true
	case TypeLiftEvent:
		class, ok = ClassLift, true
	case TypePlaceEvent:
		class, ok = ClassPlace, true
	case TypeBatteryEvent:
		class, ok = ClassBattery, true
	case TypeChargerEvent:
		class, ok = ClassCharger, true
	}
	if ok {
		handler = l.handlers[class]
	}
	l.mu.Unlock()

	if !ok || handler == nil || paused {
		return
	}
	handler(eventFromFrame(class, f))
}

func eventFromFrame(class EventClass, f Frame) Event {
	ev := Event{Class: class}
	if len(f.Payload) == 0 {
		return ev
	}
	switch class {
	case ClassKey:
		ev.Key = f.Payload[0]
	case ClassLift, ClassPlace:
		ev.Square = f.Payload[0]
	case ClassBattery:
		ev.Battery = f.Payload[0]
	case ClassCharger:
		ev.Charger = f.Payload[0] != 0
	}
	return ev
}
