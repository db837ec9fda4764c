package device

import (
	"encoding/binary"
	"sync"

	"github.com/ardnew/usbmidi/device/hal"
	"github.com/ardnew/usbmidi/pkg"
)

// MaxDescriptorResponseSize is the maximum size for descriptor responses.
// This covers the largest MIDI Streaming configuration descriptor.
const MaxDescriptorResponseSize = 512

// StandardRequestHandler answers chapter 9 standard requests on EP0 on
// behalf of a controller stack, serving descriptors from the registered
// callback tables and forwarding class requests and configuration changes
// to them. It tracks the USB device state.
type StandardRequestHandler struct {
	mutex     sync.Mutex
	callbacks hal.Callbacks
	state     State
	previous  State // State before suspend
	address   uint8
	config    uint8
	speed     hal.Speed

	// Pre-allocated response buffer to avoid allocations on hot path.
	// The returned slice from HandleSetup references this buffer.
	responseBuf [MaxDescriptorResponseSize]byte
}

// NewStandardRequestHandler creates a new standard request handler in the
// Powered state.
func NewStandardRequestHandler() *StandardRequestHandler {
	return &StandardRequestHandler{state: StatePowered, speed: hal.SpeedFull}
}

// SetCallbacks installs the callback tables requests are routed to.
func (h *StandardRequestHandler) SetCallbacks(cb hal.Callbacks) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.callbacks = cb
}

// Callbacks returns the installed callback tables.
func (h *StandardRequestHandler) Callbacks() hal.Callbacks {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.callbacks
}

// State returns the current device state.
func (h *StandardRequestHandler) State() State {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.state
}

// Address returns the assigned device address.
func (h *StandardRequestHandler) Address() uint8 {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.address
}

// Configuration returns the active configuration value, or 0.
func (h *StandardRequestHandler) Configuration() uint8 {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.config
}

// Speed returns the negotiated bus speed.
func (h *StandardRequestHandler) Speed() hal.Speed {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.speed
}

// Reset handles a bus reset at the given speed. An active configuration is
// deactivated before the lifecycle observer is told about the reset.
func (h *StandardRequestHandler) Reset(speed hal.Speed) {
	h.mutex.Lock()
	cfg := h.config
	cb := h.callbacks
	h.state = StateDefault
	h.address = 0
	h.config = 0
	h.speed = speed
	h.mutex.Unlock()

	if cfg != 0 && cb.Class != nil {
		if err := cb.Class.Deactivate(cfg); err != nil {
			pkg.LogWarn(pkg.ComponentHAL, "deactivate on reset failed", "error", err)
		}
	}
	if cb.Lifecycle != nil {
		cb.Lifecycle.Reset(speed)
	}
	pkg.LogDebug(pkg.ComponentHAL, "bus reset", "speed", speed.String())
}

// MarkConfigured forces the Configured state with configuration cfg without
// running any callbacks. Used when a session established by an earlier
// firmware stage is adopted as-is.
func (h *StandardRequestHandler) MarkConfigured(cfg uint8) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.state = StateConfigured
	h.config = cfg
}

// Suspend handles USB suspend.
func (h *StandardRequestHandler) Suspend() {
	h.mutex.Lock()
	if h.state == StateSuspended {
		h.mutex.Unlock()
		return
	}
	h.previous = h.state
	h.state = StateSuspended
	cb := h.callbacks
	h.mutex.Unlock()

	if cb.Lifecycle != nil {
		cb.Lifecycle.Suspended()
	}
	pkg.LogDebug(pkg.ComponentHAL, "device suspended")
}

// Resume handles USB resume.
func (h *StandardRequestHandler) Resume() {
	h.mutex.Lock()
	if h.state != StateSuspended {
		h.mutex.Unlock()
		return
	}
	h.state = h.previous
	cb := h.callbacks
	h.mutex.Unlock()

	if cb.Lifecycle != nil {
		cb.Lifecycle.Resumed()
	}
	pkg.LogDebug(pkg.ComponentHAL, "device resumed")
}

// Detach handles loss of the bus session. An active configuration is
// deactivated before the lifecycle observer is told.
func (h *StandardRequestHandler) Detach() {
	h.mutex.Lock()
	cfg := h.config
	cb := h.callbacks
	h.state = StatePowered
	h.address = 0
	h.config = 0
	h.mutex.Unlock()

	if cfg != 0 && cb.Class != nil {
		if err := cb.Class.Deactivate(cfg); err != nil {
			pkg.LogWarn(pkg.ComponentHAL, "deactivate on detach failed", "error", err)
		}
	}
	if cb.Lifecycle != nil {
		cb.Lifecycle.Disconnected()
	}
}

// HandleSetup processes a SETUP request.
// Returns the response data (may be nil) and an error. Errors stall EP0.
func (h *StandardRequestHandler) HandleSetup(setup *hal.SetupPacket) ([]byte, error) {
	if setup.RequestType&RequestTypeTypeMask != RequestTypeStandard {
		cb := h.Callbacks()
		if cb.Class == nil {
			return nil, pkg.ErrInvalidRequest
		}
		return nil, cb.Class.Setup(setup)
	}

	switch setup.RequestType & RequestTypeRecipientMask {
	case RequestRecipientDevice:
		return h.handleDeviceRequest(setup)
	case RequestRecipientInterface:
		return h.handleInterfaceRequest(setup)
	default:
		return nil, pkg.ErrInvalidRequest
	}
}

// handleDeviceRequest handles device-level standard requests.
func (h *StandardRequestHandler) handleDeviceRequest(setup *hal.SetupPacket) ([]byte, error) {
	switch setup.Request {
	case RequestGetStatus:
		if setup.Length < 2 {
			return nil, pkg.ErrInvalidRequest
		}
		// Bus powered, no remote wakeup
		binary.LittleEndian.PutUint16(h.responseBuf[:2], 0)
		return h.responseBuf[:2], nil
	case RequestSetAddress:
		return nil, h.setAddress(uint8(setup.Value & 0x7F))
	case RequestGetDescriptor:
		return h.getDescriptor(setup)
	case RequestGetConfiguration:
		h.responseBuf[0] = h.Configuration()
		return h.responseBuf[:1], nil
	case RequestSetConfiguration:
		return nil, h.setConfiguration(uint8(setup.Value & 0xFF))
	case RequestSetDescriptor:
		return nil, pkg.ErrNotSupported
	default:
		return nil, pkg.ErrInvalidRequest
	}
}

// handleInterfaceRequest handles interface-level standard requests.
// MIDI Streaming interfaces have a single alternate setting.
func (h *StandardRequestHandler) handleInterfaceRequest(setup *hal.SetupPacket) ([]byte, error) {
	if h.State() != StateConfigured {
		return nil, pkg.ErrInvalidRequest
	}
	switch setup.Request {
	case RequestGetStatus:
		h.responseBuf[0], h.responseBuf[1] = 0, 0
		return h.responseBuf[:2], nil
	case RequestGetInterface:
		h.responseBuf[0] = 0
		return h.responseBuf[:1], nil
	case RequestSetInterface:
		if setup.Value != 0 {
			return nil, pkg.ErrInvalidRequest
		}
		return nil, nil
	default:
		return nil, pkg.ErrInvalidRequest
	}
}

// setAddress handles SET_ADDRESS request.
func (h *StandardRequestHandler) setAddress(address uint8) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.state != StateDefault && h.state != StateAddress {
		return pkg.ErrInvalidRequest
	}
	h.address = address
	if address == 0 {
		h.state = StateDefault
	} else {
		h.state = StateAddress
	}
	pkg.LogDebug(pkg.ComponentHAL, "device address set", "address", address)
	return nil
}

// setConfiguration handles SET_CONFIGURATION request.
func (h *StandardRequestHandler) setConfiguration(value uint8) error {
	h.mutex.Lock()
	if h.state != StateAddress && h.state != StateConfigured {
		h.mutex.Unlock()
		return pkg.ErrInvalidRequest
	}
	old := h.config
	cb := h.callbacks
	speed := h.speed
	h.mutex.Unlock()

	if cb.Class == nil {
		return pkg.ErrInvalidRequest
	}

	if old != 0 && old != value {
		if err := cb.Class.Deactivate(old); err != nil {
			return err
		}
		h.mutex.Lock()
		h.config = 0
		h.state = StateAddress
		h.mutex.Unlock()
	}
	// SET_CONFIGURATION(0) returns to Address without a lifecycle event;
	// only reset and detach end the session for the lifecycle observer.
	if value == 0 || old == value {
		return nil
	}

	var desc ConfigurationDescriptor
	if err := ParseConfigurationDescriptor(cb.Class.ConfigurationDescriptor(speed), &desc); err != nil {
		return err
	}
	if desc.ConfigurationValue != value {
		return pkg.ErrInvalidRequest
	}

	if err := cb.Class.Activate(value); err != nil {
		return err
	}

	h.mutex.Lock()
	h.config = value
	h.state = StateConfigured
	h.mutex.Unlock()

	if cb.Lifecycle != nil {
		cb.Lifecycle.Configured()
	}
	pkg.LogDebug(pkg.ComponentHAL, "device configured", "configuration", value)
	return nil
}

// getDescriptor handles GET_DESCRIPTOR request.
func (h *StandardRequestHandler) getDescriptor(setup *hal.SetupPacket) ([]byte, error) {
	cb := h.Callbacks()
	speed := h.Speed()

	var data []byte
	switch setup.DescriptorType() {
	case DescriptorTypeDevice:
		if cb.Descriptors != nil {
			data = cb.Descriptors.DeviceDescriptor(speed)
		}
	case DescriptorTypeConfiguration:
		if cb.Class != nil && setup.DescriptorIndex() == 0 {
			data = cb.Class.ConfigurationDescriptor(speed)
		}
	case DescriptorTypeString:
		var ok bool
		if cb.Descriptors != nil {
			data, ok = cb.Descriptors.StringDescriptor(speed, setup.DescriptorIndex())
		}
		if !ok && cb.Class != nil {
			data, _ = cb.Class.StringDescriptor(speed, setup.DescriptorIndex())
		}
	case DescriptorTypeDeviceQualifier:
		// Full-speed only device
		return nil, pkg.ErrNotSupported
	}

	if len(data) == 0 {
		return nil, pkg.ErrInvalidRequest
	}

	n := copy(h.responseBuf[:], data)
	if n < len(data) {
		return nil, pkg.ErrBufferTooSmall
	}
	if n > int(setup.Length) {
		n = int(setup.Length)
	}
	return h.responseBuf[:n], nil
}

// GetDescriptorSetup fills a GET_DESCRIPTOR request for the given type and
// index, asking for up to length bytes.
func GetDescriptorSetup(out *hal.SetupPacket, descType, index uint8, length uint16) {
	out.RequestType = RequestDirectionDeviceToHost | RequestTypeStandard | RequestRecipientDevice
	out.Request = RequestGetDescriptor
	out.Value = uint16(descType)<<8 | uint16(index)
	out.Index = 0
	if descType == DescriptorTypeString && index != 0 {
		out.Index = LangIDUSEnglish
	}
	out.Length = length
}

// SetAddressSetup fills a SET_ADDRESS request.
func SetAddressSetup(out *hal.SetupPacket, address uint8) {
	*out = hal.SetupPacket{
		RequestType: RequestTypeStandard | RequestRecipientDevice,
		Request:     RequestSetAddress,
		Value:       uint16(address),
	}
}

// SetConfigurationSetup fills a SET_CONFIGURATION request.
func SetConfigurationSetup(out *hal.SetupPacket, value uint8) {
	*out = hal.SetupPacket{
		RequestType: RequestTypeStandard | RequestRecipientDevice,
		Request:     RequestSetConfiguration,
		Value:       uint16(value),
	}
}
