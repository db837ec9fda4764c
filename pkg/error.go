package pkg

import "errors"

// Build-configuration errors. These are reported before any descriptor
// bytes are emitted.
var (
	// ErrPortCount indicates a MIDI port count outside [1, 8].
	ErrPortCount = errors.New("port count out of range")

	// ErrStringTooLong indicates a string would not fit in a single
	// control transfer once encoded as a string descriptor.
	ErrStringTooLong = errors.New("string descriptor too long")

	// ErrInvalidParameter indicates an invalid configuration parameter.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Hardware and stack errors. These are propagated to the caller without
// local retry.
var (
	// ErrEndpointOpen indicates the controller failed to open an endpoint.
	ErrEndpointOpen = errors.New("endpoint open failed")

	// ErrEndpointClose indicates the controller failed to close an endpoint.
	ErrEndpointClose = errors.New("endpoint close failed")

	// ErrUnsupportedMode indicates an unknown initialization mode selector.
	ErrUnsupportedMode = errors.New("unsupported initialization mode")

	// ErrNotConfigured indicates the interface is not active.
	ErrNotConfigured = errors.New("interface not configured")

	// ErrInvalidEndpoint indicates an invalid endpoint address.
	ErrInvalidEndpoint = errors.New("invalid endpoint")

	// ErrBufferTooSmall indicates the provided buffer is too small.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrBusy indicates the endpoint already has a transfer in flight.
	ErrBusy = errors.New("resource busy")

	// ErrInvalidRequest indicates an invalid or unsupported control request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotSupported indicates an unsupported operation or feature.
	ErrNotSupported = errors.New("not supported")
)

// Descriptor decoding errors.
var (
	// ErrDescriptorTooShort indicates the descriptor data is too short.
	ErrDescriptorTooShort = errors.New("descriptor too short")

	// ErrDescriptorTypeMismatch indicates the descriptor type does not match expected.
	ErrDescriptorTypeMismatch = errors.New("descriptor type mismatch")
)

// Status is the result code handed back to a vendor device-controller stack
// from a class or lifecycle callback.
type Status uint8

// Status values.
const (
	StatusOK   Status = iota // Callback completed
	StatusBusy               // Resource busy, the stack may retry
	StatusFail               // Callback failed
)

// String returns a string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusBusy:
		return "busy"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// StatusOf maps an error returned by a callback to the status code the
// controller expects.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrBusy):
		return StatusBusy
	default:
		return StatusFail
	}
}
