// Package controller implements the Local/Remote arbitration spec.md
// §4.I describes: ControllerManager holds the active controller and
// switches between them on menu selection, app connect, or app
// disconnect, flushing pending events and pausing the clock across the
// switch.
package controller

import (
	"sync"

	"github.com/vincent99/chessboard/internal/emulate"
)

// Mode is the active controller.
type Mode int

const (
	ModeLocal Mode = iota
	ModeRemote
)

// Controller is satisfied by both the local game-play controller and the
// remote emulator-relay controller.
type Controller interface {
	// Activate is called when this controller becomes the active one; it
	// should flush any state left over from being inactive.
	Activate()
	// Deactivate is called when control passes to the other controller.
	Deactivate()
}

// Clock is the narrow clock-service surface the manager pauses across a
// switch.
type Clock interface {
	Pause()
}

// Manager holds the active controller and performs switches per spec.md
// §4.I's three triggers: menu-selected local play, an app connecting and
// sending a valid frame, and the app disconnecting.
type Manager struct {
	mu     sync.Mutex
	mode   Mode
	local  Controller
	remote Controller
	clock  Clock

	dispatcher *emulate.Dispatcher

	relay *ShadowRelay
}

// NewManager constructs a manager starting in local mode.
func NewManager(local, remote Controller, clock Clock, dispatcher *emulate.Dispatcher) *Manager {
	m := &Manager{mode: ModeLocal, local: local, remote: remote, clock: clock, dispatcher: dispatcher}
	local.Activate()
	return m
}

// Mode reports the currently active controller.
func (m *Manager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// SelectLocal switches to local play from the menu.
func (m *Manager) SelectLocal() {
	m.switchTo(ModeLocal)
}

// OnAppFrame is called when an app frame arrives on the transport; the
// first valid frame after a disconnect switches control to remote.
func (m *Manager) OnAppFrame() {
	m.switchTo(ModeRemote)
}

// OnAppDisconnect returns control to local and clears the locked emulator.
func (m *Manager) OnAppDisconnect() {
	if m.dispatcher != nil {
		m.dispatcher.Reset()
	}
	m.switchTo(ModeLocal)
}

func (m *Manager) switchTo(mode Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode == mode {
		return
	}
	if m.clock != nil {
		m.clock.Pause()
	}

	var leaving, entering Controller
	if mode == ModeLocal {
		leaving, entering = m.remote, m.local
	} else {
		leaving, entering = m.local, m.remote
	}
	leaving.Deactivate()
	m.mode = mode
	entering.Activate()
}

// ShadowRelay is the relay-mode protocol debugging aid: it forwards every
// app-to-proxy byte to a second RFCOMM connection opened against a real
// "shadow" board of the emulated brand, and diffs its responses against
// ours without ever feeding shadow responses back to the app.
type ShadowRelay struct {
	mu      sync.Mutex
	enabled bool
	write   func(b []byte) error // writes to the shadow board
	onDiff  func(ours, shadow []byte)
}

// NewShadowRelay constructs a relay bound to the shadow board's writer.
// onDiff, if non-nil, is called whenever the shadow's response differs
// from ours; it is only ever used for logging.
func NewShadowRelay(write func([]byte) error, onDiff func(ours, shadow []byte)) *ShadowRelay {
	return &ShadowRelay{write: write, onDiff: onDiff}
}

func (r *ShadowRelay) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
}

func (r *ShadowRelay) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// Forward mirrors an app-to-proxy frame to the shadow board when enabled.
func (r *ShadowRelay) Forward(frame []byte) {
	r.mu.Lock()
	enabled := r.enabled
	r.mu.Unlock()
	if !enabled || r.write == nil {
		return
	}
	_ = r.write(frame)
}

// Compare diffs the shadow board's reply against ours, logging via onDiff
// on mismatch. It never returns a value the app sees.
func (r *ShadowRelay) Compare(ours, shadow []byte) {
	r.mu.Lock()
	enabled := r.enabled
	r.mu.Unlock()
	if !enabled {
		return
	}
	if string(ours) != string(shadow) && r.onDiff != nil {
		r.onDiff(ours, shadow)
	}
}
