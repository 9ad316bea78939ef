package transport

import (
	"fmt"
	"sync"

	"tinygo.org/x/bluetooth"
)

// Vendor-assigned service/characteristic UUIDs. The Nordic UART Service
// UUIDs are the well-known constants; Millennium's and Chessnut's are
// fixed by their own vendor specs and are placeholders here pending the
// exact published values.
var (
	millenniumServiceUUID = bluetooth.NewUUID([16]byte{
		0x49, 0x0a, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	})
	millenniumWriteCharUUID  = bluetooth.NewUUID([16]byte{0x49, 0x0a, 0x00, 0x02})
	millenniumNotifyCharUUID = bluetooth.NewUUID([16]byte{0x49, 0x0a, 0x00, 0x03})

	nordicUARTServiceUUID = bluetooth.ServiceUUIDNordicUART
	nordicUARTRXCharUUID  = bluetooth.CharacteristicUUIDUARTRX
	nordicUARTTXCharUUID  = bluetooth.CharacteristicUUIDUARTTX

	chessnutServiceUUID = bluetooth.NewUUID([16]byte{
		0x1b, 0x7e, 0x86, 0x70, 0xae, 0x50, 0x44, 0x60,
		0xba, 0x9c, 0xd8, 0x1e, 0x1e, 0x95, 0xf2, 0xbd,
	})
	chessnutWriteCharUUID  = bluetooth.NewUUID([16]byte{0x1b, 0x7e, 0x86, 0x71})
	chessnutNotifyCharUUID = bluetooth.NewUUID([16]byte{0x1b, 0x7e, 0x86, 0x72})

	// chessnutManufacturerID is the vendor's BLE SIG company identifier
	// used in the required manufacturer-data advertisement blob.
	chessnutManufacturerID uint16 = 0x0000
)

// FrameHandler receives one decoded application frame from any transport
// channel, plus a function to write a reply back down the same channel
// it arrived on.
type FrameHandler func(frame []byte, reply func([]byte) error)

// BLEServer registers the three GATT services (Millennium, Nordic UART,
// Chessnut) and their advertisements on the default adapter.
type BLEServer struct {
	adapter *bluetooth.Adapter
	onFrame FrameHandler

	mu          sync.Mutex
	millNotify  bluetooth.Characteristic
	pegNotify   bluetooth.Characteristic
	chessNotify bluetooth.Characteristic
}

func NewBLEServer(onFrame FrameHandler) *BLEServer {
	return &BLEServer{adapter: bluetooth.DefaultAdapter, onFrame: onFrame}
}

// Start enables the adapter, registers all three services, and begins
// one advertisement carrying all three service UUIDs under the local name
// "MILLENNIUM CHESS"; no separate Pegasus or Chessnut name is advertised.
func (s *BLEServer) Start() error {
	if err := s.adapter.Enable(); err != nil {
		return fmt.Errorf("transport: enable adapter: %w", err)
	}

	if err := s.addMillenniumService(); err != nil {
		return fmt.Errorf("transport: millennium service: %w", err)
	}
	if err := s.addNordicUARTService(); err != nil {
		return fmt.Errorf("transport: nordic uart service: %w", err)
	}
	if err := s.addChessnutService(); err != nil {
		return fmt.Errorf("transport: chessnut service: %w", err)
	}

	adv := s.adapter.DefaultAdvertisement()
	if err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName: "MILLENNIUM CHESS",
		ServiceUUIDs: []bluetooth.UUID{
			millenniumServiceUUID, nordicUARTServiceUUID, chessnutServiceUUID,
		},
		ManufacturerData: []bluetooth.ManufacturerDataElement{
			{CompanyID: chessnutManufacturerID, Data: []byte{0x00}},
		},
	}); err != nil {
		return fmt.Errorf("transport: configure advertisement: %w", err)
	}
	return adv.Start()
}

func (s *BLEServer) addMillenniumService() error {
	return s.adapter.AddService(&bluetooth.Service{
		UUID: millenniumServiceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &s.millNotify,
				UUID:   millenniumNotifyCharUUID,
				Flags:  bluetooth.CharacteristicNotifyPermission,
			},
			{
				UUID:  millenniumWriteCharUUID,
				Flags: bluetooth.CharacteristicWritePermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					s.onFrame(value, func(b []byte) error {
						_, err := s.millNotify.Write(b)
						return err
					})
				},
			},
		},
	})
}

func (s *BLEServer) addNordicUARTService() error {
	return s.adapter.AddService(&bluetooth.Service{
		UUID: nordicUARTServiceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &s.pegNotify,
				UUID:   nordicUARTTXCharUUID,
				Flags:  bluetooth.CharacteristicNotifyPermission,
			},
			{
				UUID:  nordicUARTRXCharUUID,
				Flags: bluetooth.CharacteristicWritePermission | bluetooth.CharacteristicWriteWithoutResponsePermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					s.onFrame(value, func(b []byte) error {
						_, err := s.pegNotify.Write(b)
						return err
					})
				},
			},
		},
	})
}

func (s *BLEServer) addChessnutService() error {
	return s.adapter.AddService(&bluetooth.Service{
		UUID: chessnutServiceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &s.chessNotify,
				UUID:   chessnutNotifyCharUUID,
				Flags:  bluetooth.CharacteristicNotifyPermission,
			},
			{
				UUID:  chessnutWriteCharUUID,
				Flags: bluetooth.CharacteristicWritePermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					s.onFrame(value, func(b []byte) error {
						_, err := s.chessNotify.Write(b)
						return err
					})
				},
			},
		},
	})
}
