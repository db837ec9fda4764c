// Package sim implements an in-memory [hal.Controller] for tests and tooling.
//
// The simulated controller stands in for a vendor device-controller stack.
// It records every operation the function asks of it, can inject failures
// into any of them, and lets the caller play the host side of the bus:
//
//	ctrl := sim.New()
//	ctrl.SetSessionActive(true)
//	// ... initialize the function against ctrl ...
//	enum, err := ctrl.Enumerate()               // descriptors + SET_CONFIGURATION
//	err = ctrl.DeliverOut(0x02, packet)          // host sends 4-byte events
//	data, err := ctrl.CompleteIn(0x81)           // host collects a transmission
//	ctrl.Suspend(); ctrl.Resume(); ctrl.Unplug() // bus events
//
// Standard control requests are answered by
// [github.com/ardnew/usbmidi/device.StandardRequestHandler], which serves
// descriptors from the installed callback tables.
//
// Callbacks into the function run synchronously on the goroutine that
// raised the event, with no controller lock held, the way an interrupt
// handler would call them.
package sim
