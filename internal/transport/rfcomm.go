package transport

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

func fdToFile(fd int) *os.File {
	return os.NewFile(uintptr(fd), "rfcomm")
}

const (
	bluezBusName      = "org.bluez"
	bluezAdapterPath  = dbus.ObjectPath("/org/bluez/hci0")
	bluezProfilePath  = dbus.ObjectPath("/com/vincent99/chessboard/profile")
	bluezAgentPath    = dbus.ObjectPath("/com/vincent99/chessboard/agent")
	spp               = "00001101-0000-1000-8000-00805f9b34fb" // classic SPP UUID
)

// RFCOMMServer registers a Bluetooth SPP profile with BlueZ over D-Bus,
// accepts classic connections, and fans decoded frames into onFrame.
type RFCOMMServer struct {
	conn    *dbus.Conn
	onFrame FrameHandler

	mu        sync.Mutex
	connected net.Conn
}

func NewRFCOMMServer(onFrame FrameHandler) *RFCOMMServer {
	return &RFCOMMServer{onFrame: onFrame}
}

// Start connects to the system bus, registers the NoInputNoOutput
// pairing agent, and registers the SPP profile object. Each inbound RFCOMM
// connection BlueZ hands over is served on its own goroutine; only the
// most recent one is tracked in connected.
func (s *RFCOMMServer) Start() error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("transport: connect system bus: %w", err)
	}
	s.conn = conn

	if err := s.registerAgent(); err != nil {
		return fmt.Errorf("transport: register pairing agent: %w", err)
	}
	if err := s.registerProfile(); err != nil {
		return fmt.Errorf("transport: register spp profile: %w", err)
	}
	return nil
}

func (s *RFCOMMServer) registerAgent() error {
	agentManager := s.conn.Object(bluezBusName, dbus.ObjectPath("/org/bluez"))
	if err := s.conn.Export(agent{}, bluezAgentPath, "org.bluez.Agent1"); err != nil {
		return err
	}
	call := agentManager.Call("org.bluez.AgentManager1.RegisterAgent", 0, bluezAgentPath, "NoInputNoOutput")
	if call.Err != nil {
		return call.Err
	}
	return agentManager.Call("org.bluez.AgentManager1.RequestDefaultAgent", 0, bluezAgentPath).Err
}

func (s *RFCOMMServer) registerProfile() error {
	profileManager := s.conn.Object(bluezBusName, dbus.ObjectPath("/org/bluez"))
	if err := s.conn.Export(&profile{server: s}, bluezProfilePath, "org.bluez.Profile1"); err != nil {
		return err
	}
	opts := map[string]dbus.Variant{
		"Name":    dbus.MakeVariant("Universal Chessboard"),
		"Role":    dbus.MakeVariant("server"),
		"Channel": dbus.MakeVariant(uint16(1)),
	}
	return profileManager.Call("org.bluez.ProfileManager1.RegisterProfile", 0, bluezProfilePath, spp, opts).Err
}

// SetDiscoverable toggles discoverability for the given window; it
// reverts to non-discoverable automatically after d elapses.
func (s *RFCOMMServer) SetDiscoverable(d time.Duration) error {
	adapter := s.conn.Object(bluezBusName, bluezAdapterPath)
	if err := setAdapterProperty(adapter, "Discoverable", true); err != nil {
		return fmt.Errorf("transport: set discoverable: %w", err)
	}
	time.AfterFunc(d, func() {
		_ = setAdapterProperty(adapter, "Discoverable", false)
	})
	return nil
}

func setAdapterProperty(adapter dbus.BusObject, name string, value interface{}) error {
	return adapter.Call("org.freedesktop.DBus.Properties.Set", 0,
		"org.bluez.Adapter1", name, dbus.MakeVariant(value)).Err
}

// PairedDevices lists the addresses of every device BlueZ reports as
// paired with this adapter.
func (s *RFCOMMServer) PairedDevices() ([]string, error) {
	var managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	root := s.conn.Object(bluezBusName, dbus.ObjectPath("/"))
	if err := root.Call("org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0).Store(&managedObjects); err != nil {
		return nil, fmt.Errorf("transport: get managed objects: %w", err)
	}
	var out []string
	for _, ifaces := range managedObjects {
		dev, ok := ifaces["org.bluez.Device1"]
		if !ok {
			continue
		}
		paired, _ := dev["Paired"].Value().(bool)
		if !paired {
			continue
		}
		if addr, ok := dev["Address"].Value().(string); ok {
			out = append(out, addr)
		}
	}
	return out, nil
}

// onConnection is invoked by profile.NewConnection for each accepted
// RFCOMM socket; it runs the read loop until disconnect.
func (s *RFCOMMServer) onConnection(fd int) {
	conn, err := net.FileConn(fdToFile(fd))
	if err != nil {
		return
	}
	s.mu.Lock()
	s.connected = conn
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.connected = nil
		s.mu.Unlock()
		conn.Close()
	}()

	var asm Assembler
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		for _, frame := range asm.Feed(buf[:n]) {
			s.onFrame(frame, func(b []byte) error {
				_, err := conn.Write(EncodeRFCOMMFrame(b))
				return err
			})
		}
	}
}

// Disconnected reports whether no app is currently connected over RFCOMM.
func (s *RFCOMMServer) Disconnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected == nil
}

// profile implements org.bluez.Profile1's NewConnection/RequestDisconnection.
type profile struct {
	server *RFCOMMServer
}

func (p *profile) NewConnection(device dbus.ObjectPath, fd dbus.UnixFD, opts map[string]dbus.Variant) *dbus.Error {
	go p.server.onConnection(int(fd))
	return nil
}

func (p *profile) RequestDisconnection(device dbus.ObjectPath) *dbus.Error {
	p.server.mu.Lock()
	defer p.server.mu.Unlock()
	if p.server.connected != nil {
		p.server.connected.Close()
		p.server.connected = nil
	}
	return nil
}

func (p *profile) Release() *dbus.Error { return nil }

// agent implements org.bluez.Agent1 with NoInputNoOutput semantics: every
// request is auto-accepted, no PIN/passkey exchange is possible.
type agent struct{}

func (agent) Release() *dbus.Error { return nil }
func (agent) RequestPinCode(device dbus.ObjectPath) (string, *dbus.Error) {
	return "", dbus.NewError("org.bluez.Error.Rejected", nil)
}
func (agent) DisplayPinCode(device dbus.ObjectPath, pincode string) *dbus.Error { return nil }
func (agent) RequestPasskey(device dbus.ObjectPath) (uint32, *dbus.Error) {
	return 0, dbus.NewError("org.bluez.Error.Rejected", nil)
}
func (agent) DisplayPasskey(device dbus.ObjectPath, passkey uint32, entered uint16) *dbus.Error {
	return nil
}
func (agent) RequestConfirmation(device dbus.ObjectPath, passkey uint32) *dbus.Error { return nil }
func (agent) RequestAuthorization(device dbus.ObjectPath) *dbus.Error                { return nil }
func (agent) AuthorizeService(device dbus.ObjectPath, uuid string) *dbus.Error       { return nil }
func (agent) Cancel() *dbus.Error                                                   { return nil }
