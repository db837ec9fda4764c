package midi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ardnew/usbmidi/device/hal"
	"github.com/ardnew/usbmidi/pkg"
)

// Mode selects how Init treats an existing controller session.
type Mode uint8

// Initialization modes.
const (
	// ModePreserve adopts an established host session without dropping
	// the bus connection, and fully initializes otherwise.
	ModePreserve Mode = iota

	// ModeForceReinit always reinitializes the controller and reconnects.
	ModeForceReinit

	// ModeForceReinitKeepHooks reinitializes like ModeForceReinit but keeps
	// whatever callbacks are installed, so a driver that registered its
	// own hooks stays in control.
	ModeForceReinitKeepHooks
)

var modeNames = [...]string{
	ModePreserve:             "preserve",
	ModeForceReinit:          "force-reinit",
	ModeForceReinitKeepHooks: "force-reinit-keep-hooks",
}

// String returns the mode name.
func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ParseMode parses a mode name as returned by Mode.String.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(m), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, pkg.ErrUnsupportedMode)
}

// SettleTime is how long the device stays detached during a full
// initialization so the host notices the disconnect.
const SettleTime = 50 * time.Millisecond

// Device is a USB MIDI function bound to one controller. It owns the
// composed descriptors, the lifecycle adapter and the data path.
type Device struct {
	ctrl        hal.Controller
	descriptors *Descriptors
	lifecycle   *Lifecycle
	data        *DataPath
	class       *Class
	callbacks   hal.Callbacks

	sleep func(ctx context.Context, d time.Duration) error
}

// New composes the descriptors for cfg and assembles the function. Nothing
// is sent to ctrl until Init. A nil listener drops every notification.
func New(ctrl hal.Controller, cfg Config, listener Listener) (*Device, error) {
	descriptors, err := Compose(cfg)
	if err != nil {
		return nil, err
	}

	d := &Device{
		ctrl:        ctrl,
		descriptors: descriptors,
		lifecycle:   NewLifecycle(listener),
		data:        NewDataPath(ctrl, &descriptors.config, listener),
		sleep:       sleepContext,
	}
	d.class = NewClass(descriptors, d.data)
	d.callbacks = hal.Callbacks{
		Descriptors: descriptors,
		Class:       d.class,
		Lifecycle:   d.lifecycle,
	}
	return d, nil
}

// Descriptors returns the composed descriptor set.
func (d *Device) Descriptors() *Descriptors { return d.descriptors }

// Lifecycle returns the lifecycle adapter.
func (d *Device) Lifecycle() *Lifecycle { return d.lifecycle }

// DataPath returns the endpoint data path.
func (d *Device) DataPath() *DataPath { return d.data }

// Callbacks returns the callback tables Init registers with the controller.
func (d *Device) Callbacks() hal.Callbacks { return d.callbacks }

// SetListener replaces the upper-layer listener.
func (d *Device) SetListener(listener Listener) {
	d.lifecycle.SetListener(listener)
	d.data.SetListener(listener)
}

// Send submits event packets on the Bulk IN endpoint.
func (d *Device) Send(data []byte) error {
	return d.data.Send(data)
}

// IsConnected reports whether the host has the function configured.
func (d *Device) IsConnected() bool {
	return d.lifecycle.IsConnected()
}

// IsInitialized reports whether the controller has an established host
// session.
func (d *Device) IsInitialized() bool {
	return d.ctrl.IsSessionActive()
}

// Init brings the function up on the controller.
//
// In ModePreserve with an active session the existing connection is
// adopted: the callbacks are installed, the configuration is marked active
// and the data path opened, without touching the bus. Every other case runs
// a full controller initialization followed by a disconnect, a SettleTime
// pause and a reconnect. An unknown mode fails before any controller call.
func (d *Device) Init(ctx context.Context, mode Mode) error {
	if int(mode) >= len(modeNames) {
		return fmt.Errorf("%s: %w", mode, pkg.ErrUnsupportedMode)
	}

	cfg := d.descriptors.config
	d.data.Configure(&cfg)

	if mode == ModePreserve && d.ctrl.IsSessionActive() {
		if err := d.preserve(); err != nil {
			return err
		}
		pkg.LogInfo(pkg.ComponentInit, "session preserved", "mode", mode)
		return nil
	}

	if err := d.reinit(ctx, mode); err != nil {
		return err
	}
	pkg.LogInfo(pkg.ComponentInit, "controller initialized", "mode", mode)
	return nil
}

func (d *Device) preserve() error {
	if err := d.ctrl.InitPHY(); err != nil {
		return fmt.Errorf("init phy: %w", err)
	}
	if err := d.ctrl.InstallCallbacks(d.callbacks); err != nil {
		return fmt.Errorf("install callbacks: %w", err)
	}
	if err := d.ctrl.EnableInterrupts(); err != nil {
		return fmt.Errorf("enable interrupts: %w", err)
	}
	if err := d.ctrl.SetConfigured(ConfigurationValue); err != nil {
		return fmt.Errorf("set configured: %w", err)
	}
	if err := d.data.Init(ConfigurationValue); err != nil {
		return err
	}
	d.lifecycle.Configured()
	return nil
}

func (d *Device) reinit(ctx context.Context, mode Mode) error {
	d.lifecycle.Disconnected()
	if err := d.data.Deinit(ConfigurationValue); err != nil {
		pkg.LogWarn(pkg.ComponentInit, "closing endpoints before reinit", "error", err)
	}

	var callbacks *hal.Callbacks
	if mode != ModeForceReinitKeepHooks {
		callbacks = &d.callbacks
	}
	if err := d.ctrl.Init(ctx, callbacks); err != nil {
		return fmt.Errorf("controller init: %w", err)
	}
	if err := d.ctrl.Disconnect(); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	pkg.LogDebug(pkg.ComponentInit, "settling", "duration", SettleTime)
	if err := d.sleep(ctx, SettleTime); err != nil {
		return err
	}
	if err := d.ctrl.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
