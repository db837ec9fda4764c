package sim

import (
	"fmt"

	"github.com/ardnew/usbmidi/device"
	"github.com/ardnew/usbmidi/device/hal"
	"github.com/ardnew/usbmidi/pkg"
)

// Enumeration holds what a host learned while enumerating the device.
type Enumeration struct {
	Device        device.DeviceDescriptor
	Configuration []byte           // Full configuration descriptor
	Strings       map[uint8]string // Decoded strings by index
}

// Control runs one control transfer on EP0 from the 8 raw SETUP bytes and
// returns the data stage.
func (c *Controller) Control(raw []byte) ([]byte, error) {
	var setup hal.SetupPacket
	if !hal.ParseSetupPacket(raw, &setup) {
		return nil, pkg.ErrInvalidRequest
	}
	if !c.IsConnected() {
		return nil, pkg.ErrNotConfigured
	}
	data, err := c.std.HandleSetup(&setup)
	if err != nil {
		pkg.LogDebug(pkg.ComponentHAL, "control request stalled",
			"request", setup.Request, "value", setup.Value, "error", err)
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// request sends setup as raw SETUP bytes.
func (c *Controller) request(setup *hal.SetupPacket) ([]byte, error) {
	var raw [hal.SetupPacketSize]byte
	setup.MarshalTo(raw[:])
	return c.Control(raw[:])
}

// Enumerate plays a host enumerating the device: bus reset, device
// descriptor, address assignment, configuration descriptor (header then
// full length), every string the descriptors reference and finally
// SET_CONFIGURATION with the reported configuration value.
func (c *Controller) Enumerate() (*Enumeration, error) {
	c.mutex.Lock()
	connected := c.connected && c.sessionActive
	c.mutex.Unlock()
	if !connected {
		return nil, fmt.Errorf("enumerate: %w", pkg.ErrNotConfigured)
	}

	c.Reset(hal.SpeedFull)

	var setup hal.SetupPacket
	device.GetDescriptorSetup(&setup, device.DescriptorTypeDevice, 0, 64)
	data, err := c.request(&setup)
	if err != nil {
		return nil, fmt.Errorf("get device descriptor: %w", err)
	}
	e := &Enumeration{Strings: make(map[uint8]string)}
	if err := device.ParseDeviceDescriptor(data, &e.Device); err != nil {
		return nil, fmt.Errorf("parse device descriptor: %w", err)
	}

	device.SetAddressSetup(&setup, 1)
	if _, err := c.request(&setup); err != nil {
		return nil, fmt.Errorf("set address: %w", err)
	}

	device.GetDescriptorSetup(&setup, device.DescriptorTypeConfiguration, 0, device.ConfigurationDescriptorSize)
	data, err = c.request(&setup)
	if err != nil {
		return nil, fmt.Errorf("get configuration header: %w", err)
	}
	var cfg device.ConfigurationDescriptor
	if err := device.ParseConfigurationDescriptor(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse configuration header: %w", err)
	}

	device.GetDescriptorSetup(&setup, device.DescriptorTypeConfiguration, 0, cfg.TotalLength)
	e.Configuration, err = c.request(&setup)
	if err != nil {
		return nil, fmt.Errorf("get configuration: %w", err)
	}
	if len(e.Configuration) != int(cfg.TotalLength) {
		return nil, fmt.Errorf("configuration is %d bytes, wTotalLength %d: %w",
			len(e.Configuration), cfg.TotalLength, pkg.ErrDescriptorTooShort)
	}

	for _, index := range referencedStrings(&e.Device, e.Configuration) {
		device.GetDescriptorSetup(&setup, device.DescriptorTypeString, index, 255)
		data, err := c.request(&setup)
		if err != nil {
			return nil, fmt.Errorf("get string %d: %w", index, err)
		}
		s, err := device.ParseStringDescriptor(data)
		if err != nil {
			return nil, fmt.Errorf("parse string %d: %w", index, err)
		}
		e.Strings[index] = s
	}

	device.SetConfigurationSetup(&setup, cfg.ConfigurationValue)
	if _, err := c.request(&setup); err != nil {
		return nil, fmt.Errorf("set configuration: %w", err)
	}

	pkg.LogDebug(pkg.ComponentHAL, "enumeration complete",
		"vid", e.Device.VendorID, "pid", e.Device.ProductID,
		"configLength", len(e.Configuration))
	return e, nil
}

// referencedStrings collects the nonzero string indices named by the device
// descriptor, interface descriptors and MIDI jack descriptors, in order of
// first reference.
func referencedStrings(dev *device.DeviceDescriptor, config []byte) []uint8 {
	var seen [256]bool
	var out []uint8
	add := func(index uint8) {
		if index != 0 && !seen[index] {
			seen[index] = true
			out = append(out, index)
		}
	}
	add(dev.ManufacturerIndex)
	add(dev.ProductIndex)
	add(dev.SerialNumberIndex)

	_ = device.Walk(config, func(desc []byte) error {
		switch {
		case desc[1] == device.DescriptorTypeConfiguration && len(desc) >= 7:
			add(desc[6])
		case desc[1] == device.DescriptorTypeInterface && len(desc) >= 9:
			add(desc[8])
		case desc[1] == device.DescriptorTypeCSInterface && len(desc) >= 3:
			// iJack is the last byte of MIDI IN (0x02) and OUT (0x03) jacks
			if desc[2] == 0x02 || desc[2] == 0x03 {
				add(desc[len(desc)-1])
			}
		}
		return nil
	})
	return out
}

// Reset raises a bus reset at speed.
func (c *Controller) Reset(speed hal.Speed) {
	c.mutex.Lock()
	for i := range c.endpoints {
		c.endpoints[i].armed = nil
		c.endpoints[i].inFlight = nil
	}
	c.mutex.Unlock()
	c.std.Reset(speed)
}

// Suspend raises a bus suspend.
func (c *Controller) Suspend() { c.std.Suspend() }

// Resume raises a bus resume.
func (c *Controller) Resume() { c.std.Resume() }

// Unplug ends the host session: VBUS is lost and the device detaches.
func (c *Controller) Unplug() {
	c.mutex.Lock()
	c.sessionActive = false
	c.connected = false
	c.mutex.Unlock()
	c.std.Detach()
}

// DeliverOut delivers one OUT packet from the host. The packet is copied
// into the buffer armed for address, the endpoint is disarmed and the class
// DataOut callback runs before DeliverOut returns.
func (c *Controller) DeliverOut(address uint8, data []byte) error {
	c.mutex.Lock()
	ep := c.slot(address)
	if ep == nil || !ep.open || ep.config.IsIn() {
		c.mutex.Unlock()
		return pkg.ErrInvalidEndpoint
	}
	if ep.armed == nil {
		// The host would see NAK
		c.mutex.Unlock()
		return pkg.ErrBusy
	}
	if len(data) > len(ep.armed) || len(data) > int(ep.config.MaxPacketSize) {
		c.mutex.Unlock()
		return pkg.ErrBufferTooSmall
	}
	n := copy(ep.armed, data)
	ep.armed = nil
	num := ep.config.Number()
	c.mutex.Unlock()

	cb := c.std.Callbacks()
	if cb.Class == nil {
		return pkg.ErrNotConfigured
	}
	err := cb.Class.DataOut(num, n)
	if err != nil {
		pkg.LogDebug(pkg.ComponentHAL, "data out callback failed",
			"endpoint", address, "status", pkg.StatusOf(err), "error", err)
	}
	return err
}

// CompleteIn completes the transfer in flight on an IN endpoint, returning
// the transmitted bytes after the class DataIn callback has run.
func (c *Controller) CompleteIn(address uint8) ([]byte, error) {
	c.mutex.Lock()
	ep := c.slot(address)
	if ep == nil || !ep.open || !ep.config.IsIn() {
		c.mutex.Unlock()
		return nil, pkg.ErrInvalidEndpoint
	}
	data := ep.inFlight
	if data == nil {
		c.mutex.Unlock()
		return nil, pkg.ErrBusy
	}
	ep.inFlight = nil
	num := ep.config.Number()
	c.mutex.Unlock()

	cb := c.std.Callbacks()
	if cb.Class == nil {
		return data, pkg.ErrNotConfigured
	}
	return data, cb.Class.DataIn(num)
}
