package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/ardnew/usbmidi/device"
	"github.com/ardnew/usbmidi/device/hal"
	"github.com/ardnew/usbmidi/pkg"
)

// MaxEndpoints is the maximum number of data endpoints (1-15 IN and OUT).
const MaxEndpoints = 15

// endpoint is the controller-side state of one data endpoint.
type endpoint struct {
	config   hal.EndpointConfig
	open     bool
	armed    []byte // OUT: receive buffer owned by the controller
	inFlight []byte // IN: transmission not yet completed
}

// Controller implements hal.Controller in memory. The test or tool driving
// it plays the host: it enumerates the device, delivers OUT packets,
// completes IN transfers and raises bus events. Every callback into the
// function runs synchronously on the caller's goroutine with no controller
// lock held, as in an interrupt handler.
type Controller struct {
	mutex sync.Mutex

	std *device.StandardRequestHandler

	sessionActive bool
	connected     bool
	phyUp         bool
	irqEnabled    bool

	// IN at [0-14], OUT at [15-29]
	endpoints [MaxEndpoints * 2]endpoint

	calls    []string
	failures map[string]error
}

var _ hal.Controller = (*Controller)(nil)

// New creates a simulated controller with no host session.
func New() *Controller {
	return &Controller{
		std:      device.NewStandardRequestHandler(),
		failures: make(map[string]error),
	}
}

// SetSessionActive sets whether a host session (VBUS with a valid B-session)
// is present.
func (c *Controller) SetSessionActive(active bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.sessionActive = active
}

// FailOn makes the named operation return err until cleared with a nil err.
// Names match the entries recorded by Calls, e.g. "open 0x81" or "connect".
func (c *Controller) FailOn(op string, err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err == nil {
		delete(c.failures, op)
		return
	}
	c.failures[op] = err
}

// Calls returns the controller operations invoked so far, in order.
func (c *Controller) Calls() []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

// ClearCalls discards the recorded call log.
func (c *Controller) ClearCalls() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.calls = c.calls[:0]
}

// State returns the USB device state tracked by the control pipe.
func (c *Controller) State() device.State {
	return c.std.State()
}

// IsConnected reports whether the device is attached to the bus.
func (c *Controller) IsConnected() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.connected
}

// IsOpen reports whether the endpoint at address is open.
func (c *Controller) IsOpen(address uint8) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	ep := c.slot(address)
	return ep != nil && ep.open
}

// Endpoint returns the configuration the endpoint at address was opened
// with, or false if it is closed.
func (c *Controller) Endpoint(address uint8) (hal.EndpointConfig, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	ep := c.slot(address)
	if ep == nil || !ep.open {
		return hal.EndpointConfig{}, false
	}
	return ep.config, true
}

// IsArmed reports whether the OUT endpoint at address has a receive pending.
func (c *Controller) IsArmed(address uint8) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	ep := c.slot(address)
	return ep != nil && ep.armed != nil
}

// recordLocked appends op to the call log and returns an injected failure.
// Caller must hold c.mutex.
func (c *Controller) recordLocked(op string) error {
	c.calls = append(c.calls, op)
	if err := c.failures[op]; err != nil {
		pkg.LogDebug(pkg.ComponentHAL, "injected failure", "op", op, "error", err)
		return err
	}
	return nil
}

func (c *Controller) record(op string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.recordLocked(op)
}

// slot returns the endpoint state for address, or nil for EP0 and
// out-of-range numbers. Caller must hold c.mutex.
func (c *Controller) slot(address uint8) *endpoint {
	ref := hal.EndpointConfig{Address: address}
	num := ref.Number()
	if num == 0 || num > MaxEndpoints {
		return nil
	}
	if ref.IsIn() {
		return &c.endpoints[num-1]
	}
	return &c.endpoints[MaxEndpoints+num-1]
}

// Init resets the simulated core, closes every endpoint and registers
// callbacks. A nil callbacks keeps the installed hooks.
func (c *Controller) Init(ctx context.Context, callbacks *hal.Callbacks) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.record("init"); err != nil {
		return err
	}

	// Core reset tears down whatever configuration the old hooks saw
	c.std.Detach()
	if callbacks != nil {
		c.std.SetCallbacks(*callbacks)
	}

	c.mutex.Lock()
	for i := range c.endpoints {
		c.endpoints[i] = endpoint{}
	}
	c.connected = false
	c.phyUp = true
	c.irqEnabled = true
	c.mutex.Unlock()

	if cb := c.std.Callbacks(); cb.Lifecycle != nil {
		cb.Lifecycle.Init()
	}
	pkg.LogDebug(pkg.ComponentHAL, "controller initialized", "keepHooks", callbacks == nil)
	return nil
}

// InitPHY brings up the simulated pins and clocks.
func (c *Controller) InitPHY() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err := c.recordLocked("init-phy"); err != nil {
		return err
	}
	c.phyUp = true
	return nil
}

// InstallCallbacks replaces the registered callback tables.
func (c *Controller) InstallCallbacks(callbacks hal.Callbacks) error {
	if err := c.record("install-callbacks"); err != nil {
		return err
	}
	c.std.SetCallbacks(callbacks)
	return nil
}

// EnableInterrupts enables event delivery.
func (c *Controller) EnableInterrupts() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err := c.recordLocked("enable-interrupts"); err != nil {
		return err
	}
	c.irqEnabled = true
	return nil
}

// SetConfigured adopts configuration cfg without enumeration.
func (c *Controller) SetConfigured(cfg uint8) error {
	if err := c.record(fmt.Sprintf("set-configured %d", cfg)); err != nil {
		return err
	}
	c.std.MarkConfigured(cfg)
	return nil
}

// Connect enables the pull-up. With an active session the lifecycle
// observer is told the device is connected.
func (c *Controller) Connect() error {
	c.mutex.Lock()
	if err := c.recordLocked("connect"); err != nil {
		c.mutex.Unlock()
		return err
	}
	c.connected = true
	session := c.sessionActive
	c.mutex.Unlock()

	if cb := c.std.Callbacks(); session && cb.Lifecycle != nil {
		cb.Lifecycle.Connected()
	}
	return nil
}

// Disconnect disables the pull-up, tearing down any active configuration.
func (c *Controller) Disconnect() error {
	c.mutex.Lock()
	if err := c.recordLocked("disconnect"); err != nil {
		c.mutex.Unlock()
		return err
	}
	wasConnected := c.connected
	c.connected = false
	c.mutex.Unlock()

	if wasConnected {
		c.std.Detach()
	}
	return nil
}

// IsSessionActive reports whether a host session is present.
func (c *Controller) IsSessionActive() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.sessionActive
}

// OpenEndpoint opens a data endpoint.
func (c *Controller) OpenEndpoint(cfg hal.EndpointConfig) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err := c.recordLocked(fmt.Sprintf("open 0x%02X", cfg.Address)); err != nil {
		return err
	}
	ep := c.slot(cfg.Address)
	if ep == nil || cfg.TransferType() == hal.TransferTypeControl {
		return pkg.ErrInvalidEndpoint
	}
	if ep.open {
		return pkg.ErrBusy
	}
	*ep = endpoint{config: cfg, open: true}
	return nil
}

// CloseEndpoint closes a data endpoint, abandoning any pending transfer.
func (c *Controller) CloseEndpoint(address uint8) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err := c.recordLocked(fmt.Sprintf("close 0x%02X", address)); err != nil {
		return err
	}
	ep := c.slot(address)
	if ep == nil || !ep.open {
		return pkg.ErrInvalidEndpoint
	}
	*ep = endpoint{}
	return nil
}

// PrepareReceive arms an OUT endpoint with buf.
func (c *Controller) PrepareReceive(address uint8, buf []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err := c.recordLocked(fmt.Sprintf("prepare-receive 0x%02X", address)); err != nil {
		return err
	}
	ep := c.slot(address)
	if ep == nil || !ep.open || ep.config.IsIn() {
		return pkg.ErrInvalidEndpoint
	}
	if ep.armed != nil {
		return pkg.ErrBusy
	}
	if len(buf) == 0 {
		return pkg.ErrBufferTooSmall
	}
	ep.armed = buf
	return nil
}

// Transmit queues data on an IN endpoint.
func (c *Controller) Transmit(address uint8, data []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err := c.recordLocked(fmt.Sprintf("transmit 0x%02X", address)); err != nil {
		return err
	}
	ep := c.slot(address)
	if ep == nil || !ep.open || !ep.config.IsIn() {
		return pkg.ErrInvalidEndpoint
	}
	if ep.inFlight != nil {
		return pkg.ErrBusy
	}
	if len(data) > int(ep.config.MaxPacketSize) {
		return pkg.ErrBufferTooSmall
	}
	ep.inFlight = append(make([]byte, 0, len(data)), data...)
	return nil
}
