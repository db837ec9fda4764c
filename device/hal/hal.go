package hal

import (
	"context"
)

// Speed represents the USB connection speed.
type Speed uint8

// USB speed constants (USB 2.0 Specification).
const (
	SpeedUnknown Speed = iota // Not connected or unknown
	SpeedLow                  // Low Speed (1.5 Mbit/s)
	SpeedFull                 // Full Speed (12 Mbit/s)
	SpeedHigh                 // High Speed (480 Mbit/s)
)

// String returns a human-readable speed name.
func (s Speed) String() string {
	switch s {
	case SpeedLow:
		return "Low Speed"
	case SpeedFull:
		return "Full Speed"
	case SpeedHigh:
		return "High Speed"
	default:
		return "Unknown"
	}
}

// Endpoint transfer types (bmAttributes bits 1..0).
const (
	TransferTypeControl     = 0x00
	TransferTypeIsochronous = 0x01
	TransferTypeBulk        = 0x02
	TransferTypeInterrupt   = 0x03
)

// EndpointConfig describes an endpoint the class asks the controller to open.
type EndpointConfig struct {
	Address       uint8  // Endpoint address including direction bit
	Attributes    uint8  // Transfer type
	MaxPacketSize uint16 // Maximum packet size
}

// Number returns the endpoint number (0-15).
func (e *EndpointConfig) Number() uint8 {
	return e.Address & 0x0F
}

// IsIn returns true if this is an IN endpoint (device to host).
func (e *EndpointConfig) IsIn() bool {
	return e.Address&0x80 != 0
}

// TransferType returns the transfer type (control, bulk, interrupt, isochronous).
func (e *EndpointConfig) TransferType() uint8 {
	return e.Attributes & 0x03
}

// SetupPacket represents a USB SETUP packet.
type SetupPacket struct {
	RequestType uint8  // Request characteristics
	Request     uint8  // Specific request
	Value       uint16 // Request-specific value
	Index       uint16 // Request-specific index
	Length      uint16 // Number of bytes to transfer
}

// SetupPacketSize is the size of a USB SETUP packet in bytes.
const SetupPacketSize = 8

// ParseSetupPacket parses raw bytes into a SetupPacket.
// Returns false if data is too short.
func ParseSetupPacket(data []byte, out *SetupPacket) bool {
	if len(data) < SetupPacketSize {
		return false
	}
	out.RequestType = data[0]
	out.Request = data[1]
	out.Value = uint16(data[2]) | uint16(data[3])<<8
	out.Index = uint16(data[4]) | uint16(data[5])<<8
	out.Length = uint16(data[6]) | uint16(data[7])<<8
	return true
}

// MarshalTo writes the setup packet to buf.
// Returns the number of bytes written (8), or 0 if buf is too small.
func (s *SetupPacket) MarshalTo(buf []byte) int {
	if len(buf) < SetupPacketSize {
		return 0
	}
	buf[0] = s.RequestType
	buf[1] = s.Request
	buf[2] = byte(s.Value)
	buf[3] = byte(s.Value >> 8)
	buf[4] = byte(s.Index)
	buf[5] = byte(s.Index >> 8)
	buf[6] = byte(s.Length)
	buf[7] = byte(s.Length >> 8)
	return SetupPacketSize
}

// DescriptorType returns the descriptor type of a GET_DESCRIPTOR request.
func (s *SetupPacket) DescriptorType() uint8 {
	return uint8(s.Value >> 8)
}

// DescriptorIndex returns the descriptor index of a GET_DESCRIPTOR request.
func (s *SetupPacket) DescriptorIndex() uint8 {
	return uint8(s.Value)
}

// DescriptorProvider supplies the standard descriptors served on EP0.
//
// Returned slices are owned by the provider and must not be modified.
type DescriptorProvider interface {
	// DeviceDescriptor returns the 18-byte device descriptor.
	DeviceDescriptor(speed Speed) []byte

	// StringDescriptor returns the string descriptor at index, or false if
	// no such string exists.
	StringDescriptor(speed Speed, index uint8) ([]byte, bool)
}

// ClassHandler is the class callback table a controller stack invokes.
//
// Every method runs synchronously in the controller's interrupt context and
// must not block.
type ClassHandler interface {
	// Activate is called when the host selects configuration cfg.
	Activate(cfg uint8) error

	// Deactivate is called when configuration cfg is torn down.
	Deactivate(cfg uint8) error

	// Setup handles a class or vendor request on EP0.
	Setup(req *SetupPacket) error

	// EP0RxReady is called when the OUT data stage of a request completes.
	EP0RxReady() error

	// DataIn is called when an IN transfer on endpoint number ep completes.
	DataIn(ep uint8) error

	// DataOut is called when an OUT transfer on endpoint number ep completes
	// with n bytes.
	DataOut(ep uint8, n int) error

	// ConfigurationDescriptor returns the full configuration descriptor.
	ConfigurationDescriptor(speed Speed) []byte

	// StringDescriptor returns a class-owned string descriptor, or false if
	// the class does not own index.
	StringDescriptor(speed Speed, index uint8) ([]byte, bool)
}

// LifecycleObserver receives bus-level device events from the controller.
type LifecycleObserver interface {
	Init()
	Reset(speed Speed)
	Configured()
	Suspended()
	Resumed()
	Connected()
	Disconnected()
}

// Callbacks bundles the three callback tables registered with a controller.
type Callbacks struct {
	Descriptors DescriptorProvider
	Class       ClassHandler
	Lifecycle   LifecycleObserver
}

// Controller is the vendor device-controller stack the MIDI function runs on.
//
// Platform vendors implement this interface on top of their USB controller
// driver. Apart from Init, methods are called from the function's own
// callbacks and must not block.
type Controller interface {
	// Init fully initializes the controller and registers callbacks.
	// A nil callbacks keeps whatever hooks are already installed.
	Init(ctx context.Context, callbacks *Callbacks) error

	// InitPHY brings up the board-level USB pins and clocks only.
	InitPHY() error

	// InstallCallbacks replaces the registered callback tables without
	// touching controller state.
	InstallCallbacks(callbacks Callbacks) error

	// EnableInterrupts enables the controller's interrupt line.
	EnableInterrupts() error

	// SetConfigured marks the device as configured with configuration cfg.
	SetConfigured(cfg uint8) error

	// Connect attaches the device to the bus (pull-up enabled).
	Connect() error

	// Disconnect detaches the device from the bus.
	Disconnect() error

	// IsSessionActive reports whether a host session is already established.
	IsSessionActive() bool

	// OpenEndpoint opens a data endpoint.
	OpenEndpoint(ep EndpointConfig) error

	// CloseEndpoint closes a data endpoint.
	CloseEndpoint(address uint8) error

	// PrepareReceive arms an OUT endpoint to receive into buf. The
	// controller owns buf until it reports DataOut for address.
	PrepareReceive(address uint8, buf []byte) error

	// Transmit hands data to an IN endpoint. The controller reports
	// DataIn for address when the transfer completes.
	Transmit(address uint8, data []byte) error
}
