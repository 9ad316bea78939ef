package display

import (
	"time"

	"github.com/warthog618/go-gpiocdev"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Command constants for a UC8151/SSD1680-class e-paper controller.
const (
	cmdPanelSetting        = 0x00
	cmdPowerSetting        = 0x01
	cmdPowerOn             = 0x04
	cmdBoosterSoftStart    = 0x06
	cmdDataStartTransmit1  = 0x10
	cmdDisplayRefresh      = 0x12
	cmdDataStartTransmit2  = 0x13
	cmdPLLControl          = 0x30
	cmdVCOMAndDataInterval = 0x50
	cmdResolutionSetting   = 0x61
	cmdPartialWindow       = 0x90
	cmdPartialIn           = 0x91
	cmdPartialOut          = 0x92
	cmdPowerOff            = 0x02
	cmdDeepSleep           = 0x07
)

// EPDConfig holds the e-paper panel's hardware wiring, following the
// SPI/GPIO shape oled.go uses for its own panel.
type EPDConfig struct {
	SPIPort  string
	SPISpeed physic.Frequency
	GPIOChip string
	DCPin    int
	ResetPin int
	BusyPin  int
	Width    int
	Height   int
	// Invert normalizes widget polarity (0=background,1=foreground) to
	// the panel's own bit convention; this panel wants 0=white,1=black,
	// so the orchestrator sets Invert to true. NewEPD applies no default.
	// See Framebuffer.PackMono.
	Invert bool
}

// EPD drives a 1-bit e-paper panel over SPI, following oled.go's
// connect/init/blit shape but replacing the always-full double-buffered
// blit with the dirty-rect refresh plans the scheduler produces.
type EPD struct {
	cfg     EPDConfig
	spiPort spi.PortCloser
	spiConn spi.Conn
	dcLine  *gpiocdev.Line
	rstLine *gpiocdev.Line
	busy    *gpiocdev.Line
}

func NewEPD(cfg EPDConfig) *EPD {
	return &EPD{cfg: cfg}
}

func (d *EPD) Connect() error {
	if _, err := host.Init(); err != nil {
		return err
	}
	port, err := spireg.Open(d.cfg.SPIPort)
	if err != nil {
		return err
	}
	conn, err := port.Connect(d.cfg.SPISpeed, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return err
	}
	chip := d.cfg.GPIOChip
	if chip == "" {
		chip = "gpiochip0"
	}
	dc, err := gpiocdev.RequestLine(chip, d.cfg.DCPin, gpiocdev.AsOutput(0))
	if err != nil {
		port.Close()
		return err
	}
	rst, err := gpiocdev.RequestLine(chip, d.cfg.ResetPin, gpiocdev.AsOutput(1))
	if err != nil {
		dc.Close()
		port.Close()
		return err
	}
	busy, err := gpiocdev.RequestLine(chip, d.cfg.BusyPin, gpiocdev.AsInput)
	if err != nil {
		dc.Close()
		rst.Close()
		port.Close()
		return err
	}

	d.spiPort, d.spiConn, d.dcLine, d.rstLine, d.busy = port, conn, dc, rst, busy

	if err := d.reset(); err != nil {
		return err
	}
	d.writeCmd(cmdPowerSetting, 0x03, 0x00, 0x2b, 0x2b)
	d.writeCmd(cmdBoosterSoftStart, 0x17, 0x17, 0x17)
	d.writeCmd(cmdPowerOn)
	d.waitBusy()
	d.writeCmd(cmdPanelSetting, 0x0f)
	d.writeCmd(cmdResolutionSetting,
		byte(d.cfg.Width>>8), byte(d.cfg.Width),
		byte(d.cfg.Height>>8), byte(d.cfg.Height),
	)
	d.writeCmd(cmdVCOMAndDataInterval, 0x17)
	return nil
}

func (d *EPD) Close() error {
	d.writeCmd(cmdPowerOff)
	d.waitBusy()
	d.writeCmd(cmdDeepSleep, 0xa5)
	d.dcLine.Close()
	d.rstLine.Close()
	d.busy.Close()
	return d.spiPort.Close()
}

// Refresh sends a full or partial refresh per plan's mode. Partial mode
// targets only the plan's rectangles, bounded by the panel's partial
// window command.
func (d *EPD) Refresh(plan RefreshPlan, frame *Framebuffer) error {
	if plan.Mode == Full {
		d.writeCmd(cmdDataStartTransmit2)
		d.writeData(frame.PackMono(Rect{0, 0, frame.Width, frame.Height}, d.cfg.Invert))
		d.writeCmd(cmdDisplayRefresh)
		d.waitBusy()
		return nil
	}

	d.writeCmd(cmdPartialIn)
	for _, r := range plan.Rects {
		d.setPartialWindow(r)
		d.writeCmd(cmdDataStartTransmit2)
		d.writeData(frame.PackMono(r, d.cfg.Invert))
		d.writeCmd(cmdDisplayRefresh)
		d.waitBusy()
	}
	d.writeCmd(cmdPartialOut)
	return nil
}

func (d *EPD) setPartialWindow(r Rect) {
	d.writeCmd(cmdPartialWindow,
		byte(r.MinX>>8), byte(r.MinX), byte(r.MaxX>>8), byte(r.MaxX),
		byte(r.MinY>>8), byte(r.MinY), byte(r.MaxY>>8), byte(r.MaxY),
		0x01,
	)
}

func (d *EPD) reset() error {
	if err := d.rstLine.SetValue(0); err != nil {
		return err
	}
	time.Sleep(20 * time.Millisecond)
	if err := d.rstLine.SetValue(1); err != nil {
		return err
	}
	time.Sleep(20 * time.Millisecond)
	return nil
}

func (d *EPD) waitBusy() {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		v, err := d.busy.Value()
		if err != nil || v == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (d *EPD) spiWrite(data []byte) { _ = d.spiConn.Tx(data, nil) }

func (d *EPD) writeData(data []byte) {
	_ = d.dcLine.SetValue(1)
	d.spiWrite(data)
}

func (d *EPD) writeCmd(cmd byte, data ...byte) {
	_ = d.dcLine.SetValue(0)
	d.spiWrite([]byte{cmd})
	if len(data) > 0 {
		d.writeData(data)
	}
}
