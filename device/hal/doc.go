// Package hal defines the boundary between the MIDI device function and a
// vendor USB device-controller stack.
//
// The controller stack owns the hardware and the control pipe. The function
// registers three callback tables with it through [Callbacks]:
//
//   - [DescriptorProvider] serves the device and string descriptors
//   - [ClassHandler] serves the configuration descriptor and handles
//     endpoint completions and class requests
//   - [LifecycleObserver] receives bus events (reset, configured,
//     suspend, resume, disconnect)
//
// The function in turn drives the controller through [Controller] to open
// endpoints, arm receives and hand over transmissions.
//
// # Concurrency
//
// Callbacks run synchronously in the controller's interrupt context. They
// must not block and must not wait on the controller. Only
// [Controller.Init] may block, and it honours its context.
//
// # Implementing a Controller
//
//	type MyController struct {
//	    // Platform-specific fields
//	}
//
//	func (c *MyController) Init(ctx context.Context, cb *hal.Callbacks) error {
//	    // Reset the core and register cb (keep existing hooks if nil)
//	    return nil
//	}
//
//	// ... implement remaining Controller methods
//
// A simulated controller for tests and tooling is available in
// [github.com/ardnew/usbmidi/device/hal/sim].
package hal
