// Package midi implements a USB Audio Class 1.0 MIDI Streaming function
// exposing one to eight virtual MIDI cables over a single bulk endpoint
// pair.
//
// # Architecture
//
// The function is made of four parts, bound together by [Device]:
//
//   - [Compose] builds the device, configuration and string descriptors
//     for a [Config] once. The configuration describes a jack graph of
//     four jacks per port (see [Topology]) and the Bulk OUT 0x02 and Bulk
//     IN 0x81 endpoints with their MS_GENERAL jack associations.
//   - [Lifecycle] turns controller bus events into connection-state
//     notifications.
//   - [DataPath] opens and closes the bulk endpoints and keeps Bulk OUT
//     armed with its single receive buffer.
//   - [Device.Init] sequences controller initialization, optionally
//     adopting a session established by an earlier firmware stage.
//
// The controller itself is abstracted by [hal.Controller]. The function
// registers three callback tables with it: [Descriptors] as the
// [hal.DescriptorProvider], [Class] as the [hal.ClassHandler] and
// [Lifecycle] as the [hal.LifecycleObserver].
//
// # Jack Identifiers
//
// Port p (zero-based) owns jacks 4p+1 to 4p+4:
//
//	4p+1  MIDI IN,  embedded   host to device, fed by Bulk OUT
//	4p+2  MIDI IN,  external   device input connector
//	4p+3  MIDI OUT, embedded   source 4p+2, feeds Bulk IN
//	4p+4  MIDI OUT, external   source 4p+1, device output connector
//
// # Usage
//
//	cfg := midi.DefaultConfig()
//	cfg.Ports = 2
//
//	dev, err := midi.New(ctrl, cfg, midi.ListenerFuncs{
//	    OnConnectionStateChanged: func(connected bool) { ... },
//	    OnPacketReceived:         func(data []byte) { ... },
//	})
//	if err != nil {
//	    return err
//	}
//	if err := dev.Init(ctx, midi.ModePreserve); err != nil {
//	    return err
//	}
//
//	// Send event packets once ReadyToSend reports the endpoint idle
//	err = dev.Send([]byte{0x09, 0x90, 0x3C, 0x7F})
//
// Listener methods run in the controller's interrupt context. The slice
// passed to PacketReceived aliases the receive buffer and is re-armed as
// soon as the call returns.
package midi
