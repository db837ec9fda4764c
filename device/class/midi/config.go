package midi

import (
	"fmt"

	"github.com/ardnew/usbmidi/device"
	"github.com/ardnew/usbmidi/pkg"
)

// Strings holds the device's standard string descriptor texts.
type Strings struct {
	Manufacturer  string
	Product       string
	Serial        string
	Configuration string
	Interface     string
}

// texts returns the strings in descriptor index order, starting at
// StringManufacturer.
func (s *Strings) texts() [StringInterface]string {
	return [StringInterface]string{
		s.Manufacturer, s.Product, s.Serial, s.Configuration, s.Interface,
	}
}

// Config selects the shape of the MIDI function.
type Config struct {
	// Ports is the number of virtual MIDI cables, 1 to MaxPorts.
	Ports int

	// AudioControl adds the Audio Control interface ahead of the MIDI
	// Streaming interface.
	AudioControl bool

	VendorID      uint16
	ProductID     uint16
	DeviceVersion uint16 // BCD

	MaxPacketSize0   uint8
	OutMaxPacketSize uint16
	InMaxPacketSize  uint16

	// MaxPower is bMaxPower, in 2 mA units.
	MaxPower uint8

	Strings Strings

	// PortNames optionally names each port. When set it must have exactly
	// Ports entries, and every jack of port p references string 6+p.
	PortNames []string
}

// Default identifiers. 0x16C0/0x05E4 is the shared VID/PID pair for
// USB-MIDI class devices.
const (
	DefaultVendorID      = 0x16C0
	DefaultProductID     = 0x05E4
	DefaultDeviceVersion = 0x0100
	DefaultMaxPacketSize = 64
	DefaultMaxPower      = 0x32 // 100 mA
)

// DefaultConfig returns a single-port configuration without the Audio
// Control interface.
func DefaultConfig() Config {
	return Config{
		Ports:            1,
		VendorID:         DefaultVendorID,
		ProductID:        DefaultProductID,
		DeviceVersion:    DefaultDeviceVersion,
		MaxPacketSize0:   DefaultMaxPacketSize,
		OutMaxPacketSize: DefaultMaxPacketSize,
		InMaxPacketSize:  DefaultMaxPacketSize,
		MaxPower:         DefaultMaxPower,
		Strings: Strings{
			Manufacturer:  "usbmidi",
			Product:       "USB MIDI Interface",
			Serial:        "42",
			Configuration: "MIDI Configuration",
			Interface:     "MIDI Streaming",
		},
	}
}

// Validate reports the first build-configuration error in c. A valid
// configuration always composes.
func (c *Config) Validate() error {
	if c.Ports < 1 || c.Ports > MaxPorts {
		return fmt.Errorf("%d ports: %w", c.Ports, pkg.ErrPortCount)
	}
	switch c.MaxPacketSize0 {
	case 8, 16, 32, 64:
	default:
		return fmt.Errorf("bMaxPacketSize0 %d: %w", c.MaxPacketSize0, pkg.ErrInvalidParameter)
	}
	if err := validateBulkSize("OUT", c.OutMaxPacketSize); err != nil {
		return err
	}
	if err := validateBulkSize("IN", c.InMaxPacketSize); err != nil {
		return err
	}
	if len(c.PortNames) != 0 && len(c.PortNames) != c.Ports {
		return fmt.Errorf("%d port names for %d ports: %w",
			len(c.PortNames), c.Ports, pkg.ErrInvalidParameter)
	}

	limit := int(c.MaxPacketSize0)
	texts := c.Strings.texts()
	for _, s := range texts {
		if err := checkString(s, limit); err != nil {
			return err
		}
	}
	for _, s := range c.PortNames {
		if err := checkString(s, limit); err != nil {
			return err
		}
	}
	return nil
}

// validateBulkSize accepts the full-speed bulk packet sizes.
func validateBulkSize(dir string, size uint16) error {
	switch size {
	case 8, 16, 32, 64:
		return nil
	}
	return fmt.Errorf("bulk %s wMaxPacketSize %d: %w", dir, size, pkg.ErrInvalidParameter)
}

func checkString(s string, limit int) error {
	size, err := device.StringDescriptorSize(s)
	if err != nil {
		return fmt.Errorf("%q: %w", s, pkg.ErrInvalidParameter)
	}
	if size > limit {
		return fmt.Errorf("%q encodes to %d bytes, limit %d: %w", s, size, limit, pkg.ErrStringTooLong)
	}
	return nil
}
