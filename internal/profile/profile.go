// Package profile loads USB MIDI device profiles from YAML or TOML files.
//
// A profile is the file form of [midi.Config]. Omitted fields take the
// values of [midi.DefaultConfig], so a minimal profile only names what it
// changes:
//
//	ports: 2
//	port_names: [Synth, Drums]
//	strings:
//	  product: Desk Controller
//	  serial: auto
//
// A serial of "auto" derives a stable serial number from the vendor ID,
// product ID and product string.
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/ardnew/usbmidi/device/class/midi"
	"github.com/ardnew/usbmidi/pkg"
)

// Format is a profile file encoding.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrUnknownFormat indicates a profile path with an unrecognized extension.
var ErrUnknownFormat = errors.New("unknown profile format")

// AutoSerial is the serial value that requests a derived serial number.
const AutoSerial = "auto"

// MaxPowerLimit is the largest bus current a profile may request, in mA.
const MaxPowerLimit = 500

// Strings are the device string texts of a profile.
type Strings struct {
	Manufacturer  string `yaml:"manufacturer,omitempty" toml:"manufacturer,omitempty"`
	Product       string `yaml:"product,omitempty" toml:"product,omitempty"`
	Serial        string `yaml:"serial,omitempty" toml:"serial,omitempty"`
	Configuration string `yaml:"configuration,omitempty" toml:"configuration,omitempty"`
	Interface     string `yaml:"interface,omitempty" toml:"interface,omitempty"`
}

// Profile describes one MIDI function. Zero fields mean "default".
type Profile struct {
	Ports         int      `yaml:"ports,omitempty" toml:"ports,omitempty"`
	AudioControl  bool     `yaml:"audio_control,omitempty" toml:"audio_control,omitempty"`
	VendorID      uint16   `yaml:"vendor_id,omitempty" toml:"vendor_id,omitempty"`
	ProductID     uint16   `yaml:"product_id,omitempty" toml:"product_id,omitempty"`
	DeviceVersion uint16   `yaml:"device_version,omitempty" toml:"device_version,omitempty"`
	EP0PacketSize uint8    `yaml:"ep0_packet_size,omitempty" toml:"ep0_packet_size,omitempty"`
	OutPacketSize uint16   `yaml:"out_packet_size,omitempty" toml:"out_packet_size,omitempty"`
	InPacketSize  uint16   `yaml:"in_packet_size,omitempty" toml:"in_packet_size,omitempty"`
	MaxPowerMA    int      `yaml:"max_power_ma,omitempty" toml:"max_power_ma,omitempty"`
	Strings       Strings  `yaml:"strings,omitempty" toml:"strings,omitempty"`
	PortNames     []string `yaml:"port_names,omitempty" toml:"port_names,omitempty"`
}

// Default returns the profile equivalent of midi.DefaultConfig.
func Default() *Profile {
	return FromConfig(midi.DefaultConfig())
}

// FromConfig returns the profile describing cfg.
func FromConfig(cfg midi.Config) *Profile {
	return &Profile{
		Ports:         cfg.Ports,
		AudioControl:  cfg.AudioControl,
		VendorID:      cfg.VendorID,
		ProductID:     cfg.ProductID,
		DeviceVersion: cfg.DeviceVersion,
		EP0PacketSize: cfg.MaxPacketSize0,
		OutPacketSize: cfg.OutMaxPacketSize,
		InPacketSize:  cfg.InMaxPacketSize,
		MaxPowerMA:    int(cfg.MaxPower) * 2,
		Strings: Strings{
			Manufacturer:  cfg.Strings.Manufacturer,
			Product:       cfg.Strings.Product,
			Serial:        cfg.Strings.Serial,
			Configuration: cfg.Strings.Configuration,
			Interface:     cfg.Strings.Interface,
		},
		PortNames: append([]string(nil), cfg.PortNames...),
	}
}

// FormatOf returns the format implied by path's extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("%s: %w", path, ErrUnknownFormat)
}

// Load reads the profile at path.
func Load(path string) (*Profile, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	pkg.LogDebug(pkg.ComponentCLI, "profile loaded", "path", path, "format", format)
	return p, nil
}

// Decode reads a profile in format from r. Unknown keys are rejected.
func Decode(r io.Reader, format Format) (*Profile, error) {
	var p Profile
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	case FormatTOML:
		if err := toml.NewDecoder(r).Strict(true).Decode(&p); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}
	return &p, nil
}

// Encode writes p to w in format.
func Encode(w io.Writer, format Format, p *Profile) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Order(toml.OrderPreserve).Encode(p); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	}
	return fmt.Errorf("%q: %w", format, ErrUnknownFormat)
}

// Config resolves the profile against midi.DefaultConfig and validates the
// result.
func (p *Profile) Config() (midi.Config, error) {
	cfg := midi.DefaultConfig()

	if p.Ports != 0 {
		cfg.Ports = p.Ports
	}
	cfg.AudioControl = p.AudioControl
	setNonZero(&cfg.VendorID, p.VendorID)
	setNonZero(&cfg.ProductID, p.ProductID)
	setNonZero(&cfg.DeviceVersion, p.DeviceVersion)
	setNonZero(&cfg.MaxPacketSize0, p.EP0PacketSize)
	setNonZero(&cfg.OutMaxPacketSize, p.OutPacketSize)
	setNonZero(&cfg.InMaxPacketSize, p.InPacketSize)

	if p.MaxPowerMA != 0 {
		if p.MaxPowerMA < 0 || p.MaxPowerMA > MaxPowerLimit {
			return midi.Config{}, fmt.Errorf("max_power_ma %d: %w", p.MaxPowerMA, pkg.ErrInvalidParameter)
		}
		// bMaxPower is in 2 mA units, rounded up
		cfg.MaxPower = uint8((p.MaxPowerMA + 1) / 2)
	}

	setNonZero(&cfg.Strings.Manufacturer, p.Strings.Manufacturer)
	setNonZero(&cfg.Strings.Product, p.Strings.Product)
	setNonZero(&cfg.Strings.Serial, p.Strings.Serial)
	setNonZero(&cfg.Strings.Configuration, p.Strings.Configuration)
	setNonZero(&cfg.Strings.Interface, p.Strings.Interface)
	if strings.EqualFold(cfg.Strings.Serial, AutoSerial) {
		cfg.Strings.Serial = DeriveSerial(cfg.VendorID, cfg.ProductID, cfg.Strings.Product)
	}

	cfg.PortNames = append([]string(nil), p.PortNames...)

	if err := cfg.Validate(); err != nil {
		return midi.Config{}, err
	}
	return cfg, nil
}

func setNonZero[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}

// serialNamespace scopes derived serial numbers.
var serialNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/ardnew/usbmidi/serial"))

// SerialLength is the number of hex digits in a derived serial.
const SerialLength = 16

// DeriveSerial returns a serial number that is stable for a given vendor
// ID, product ID and product string. It is the leading SerialLength hex
// digits of a name-based (SHA-1) UUID, in upper case.
func DeriveSerial(vendorID, productID uint16, product string) string {
	name := fmt.Sprintf("%04x:%04x:%s", vendorID, productID, product)
	id := uuid.NewSHA1(serialNamespace, []byte(name))
	digits := strings.ReplaceAll(id.String(), "-", "")
	return strings.ToUpper(digits[:SerialLength])
}
