package midi

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardnew/usbmidi/device/hal"
	"github.com/ardnew/usbmidi/pkg"
)

// DataPath owns the two bulk endpoints of the MIDI Streaming interface. It
// keeps the OUT endpoint armed with its receive buffer whenever the
// interface is active and forwards completions to the listener.
type DataPath struct {
	mutex sync.Mutex

	ctrl     hal.Controller
	listener Listener

	outMaxPacket uint16
	inMaxPacket  uint16

	active bool
	txBusy bool

	// Written only by the controller between PrepareReceive and DataOut.
	rxBuf [DefaultMaxPacketSize]byte
}

// NewDataPath creates an inactive data path for the endpoint sizes in cfg.
// A nil listener drops received packets.
func NewDataPath(ctrl hal.Controller, cfg *Config, listener Listener) *DataPath {
	dp := &DataPath{ctrl: ctrl}
	dp.Configure(cfg)
	dp.SetListener(listener)
	return dp
}

// Configure sets the bulk packet sizes used by the next Init.
func (dp *DataPath) Configure(cfg *Config) {
	dp.mutex.Lock()
	defer dp.mutex.Unlock()
	dp.outMaxPacket = min(cfg.OutMaxPacketSize, uint16(len(dp.rxBuf)))
	dp.inMaxPacket = cfg.InMaxPacketSize
}

// SetListener replaces the packet consumer.
func (dp *DataPath) SetListener(listener Listener) {
	if listener == nil {
		listener = nopListener{}
	}
	dp.mutex.Lock()
	dp.listener = listener
	dp.mutex.Unlock()
}

// IsActive reports whether the endpoints are open.
func (dp *DataPath) IsActive() bool {
	dp.mutex.Lock()
	defer dp.mutex.Unlock()
	return dp.active
}

// Init opens Bulk OUT then Bulk IN and arms the first receive. An open
// failure is returned without retry. If IN fails to open, OUT is closed
// again. Calling Init on an active data path does nothing.
func (dp *DataPath) Init(configIndex uint8) error {
	dp.mutex.Lock()
	defer dp.mutex.Unlock()

	if dp.active {
		return nil
	}

	out := hal.EndpointConfig{Address: EndpointOut, Attributes: hal.TransferTypeBulk, MaxPacketSize: dp.outMaxPacket}
	in := hal.EndpointConfig{Address: EndpointIn, Attributes: hal.TransferTypeBulk, MaxPacketSize: dp.inMaxPacket}

	if err := dp.ctrl.OpenEndpoint(out); err != nil {
		return fmt.Errorf("%w: 0x%02X: %w", pkg.ErrEndpointOpen, out.Address, err)
	}
	if err := dp.ctrl.OpenEndpoint(in); err != nil {
		_ = dp.ctrl.CloseEndpoint(out.Address)
		return fmt.Errorf("%w: 0x%02X: %w", pkg.ErrEndpointOpen, in.Address, err)
	}
	if err := dp.ctrl.PrepareReceive(EndpointOut, dp.rxBuf[:dp.outMaxPacket]); err != nil {
		_ = dp.ctrl.CloseEndpoint(in.Address)
		_ = dp.ctrl.CloseEndpoint(out.Address)
		return fmt.Errorf("arm 0x%02X: %w", out.Address, err)
	}

	dp.active = true
	dp.txBusy = false
	pkg.LogDebug(pkg.ComponentDataPath, "endpoints open",
		"config", configIndex,
		"outMaxPacket", dp.outMaxPacket,
		"inMaxPacket", dp.inMaxPacket)
	return nil
}

// Deinit closes both endpoints. Any pending receive is abandoned. The data
// path is inactive afterwards even if a close fails.
func (dp *DataPath) Deinit(configIndex uint8) error {
	dp.mutex.Lock()
	defer dp.mutex.Unlock()

	if !dp.active {
		return nil
	}
	dp.active = false
	dp.txBusy = false

	var errs []error
	for _, addr := range [...]uint8{EndpointOut, EndpointIn} {
		if err := dp.ctrl.CloseEndpoint(addr); err != nil {
			errs = append(errs, fmt.Errorf("%w: 0x%02X: %w", pkg.ErrEndpointClose, addr, err))
		}
	}
	pkg.LogDebug(pkg.ComponentDataPath, "endpoints closed", "config", configIndex, "errors", len(errs))
	return errors.Join(errs...)
}

// DataOut handles completion of a Bulk OUT transfer of n bytes. The
// received bytes go to the listener, then the buffer is armed again before
// DataOut returns unless the listener deinitialized the path. Completions for other endpoints or while inactive are
// ignored.
func (dp *DataPath) DataOut(ep uint8, n int) error {
	dp.mutex.Lock()
	if !dp.active || ep != EndpointOut&0x0F {
		dp.mutex.Unlock()
		return nil
	}
	n = max(0, min(n, int(dp.outMaxPacket)))
	listener := dp.listener
	size := dp.outMaxPacket
	dp.mutex.Unlock()

	pkg.LogTrace(pkg.ComponentDataPath, "rx", "bytes", n)
	listener.PacketReceived(dp.rxBuf[:n])

	// The listener may have deinitialized the path.
	dp.mutex.Lock()
	active := dp.active
	dp.mutex.Unlock()
	if !active {
		return nil
	}
	if err := dp.ctrl.PrepareReceive(EndpointOut, dp.rxBuf[:size]); err != nil {
		return fmt.Errorf("re-arm 0x%02X: %w", EndpointOut, err)
	}
	return nil
}

// DataIn handles completion of a Bulk IN transfer.
func (dp *DataPath) DataIn(ep uint8) error {
	dp.mutex.Lock()
	if !dp.active || ep != EndpointIn&0x0F {
		dp.mutex.Unlock()
		return nil
	}
	dp.txBusy = false
	listener := dp.listener
	dp.mutex.Unlock()

	pkg.LogTrace(pkg.ComponentDataPath, "tx complete")
	listener.ReadyToSend()
	return nil
}

// Send submits one Bulk IN transfer of whole event packets. It does not
// buffer: a second Send before ReadyToSend returns ErrBusy.
func (dp *DataPath) Send(data []byte) error {
	dp.mutex.Lock()
	defer dp.mutex.Unlock()

	if !dp.active {
		return pkg.ErrNotConfigured
	}
	if len(data) == 0 || len(data)%EventPacketSize != 0 {
		return fmt.Errorf("%d bytes is not a whole number of event packets: %w",
			len(data), pkg.ErrInvalidParameter)
	}
	if len(data) > int(dp.inMaxPacket) {
		return fmt.Errorf("%d bytes exceeds packet size %d: %w",
			len(data), dp.inMaxPacket, pkg.ErrBufferTooSmall)
	}
	if dp.txBusy {
		return pkg.ErrBusy
	}
	if err := dp.ctrl.Transmit(EndpointIn, data); err != nil {
		return fmt.Errorf("transmit 0x%02X: %w", EndpointIn, err)
	}
	dp.txBusy = true
	return nil
}
