// Package device implements the class-independent parts of a USB 2.0
// full-speed device: standard descriptor encoding and parsing, and the
// chapter 9 standard request handler that controllers drive on EP0.
//
// Hardware is reached through the interfaces in
// [github.com/ardnew/usbmidi/device/hal]. A class such as
// [github.com/ardnew/usbmidi/device/class/midi] supplies the descriptors
// and class callbacks; the [StandardRequestHandler] answers GET_DESCRIPTOR,
// SET_ADDRESS and SET_CONFIGURATION and raises lifecycle events.
//
// # Device States
//
// The handler tracks the USB 2.0 device state machine:
//
//	Attached → Powered → Default → Address → Configured → Suspended
//
// # Zero-Allocation Design
//
// Encoding follows patterns suited to bare-metal and TinyGo targets:
//
//   - Serialization via MarshalTo(buf) instead of allocating Bytes()
//   - Parse functions with output parameters instead of returning pointers
//   - Caller-provided buffers for descriptor and string generation
//
// # Example
//
//	var buf [device.DeviceDescriptorSize]byte
//	desc := device.DeviceDescriptor{
//	    USBVersion:     0x0200,
//	    VendorID:       0x16C0,
//	    ProductID:      0x05E4,
//	    MaxPacketSize0: 64,
//	}
//	desc.MarshalTo(buf[:])
//
// Descriptor blobs are walked one descriptor at a time with [Walk].
package device
