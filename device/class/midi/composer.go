package midi

import (
	"fmt"

	"github.com/ardnew/usbmidi/device"
	"github.com/ardnew/usbmidi/device/hal"
	"github.com/ardnew/usbmidi/pkg"
)

// USBRelease is the bcdUSB reported in the device descriptor.
const USBRelease = 0x0200

// acInterfaceSize is the Audio Control interface plus its class-specific
// header.
const acInterfaceSize = device.InterfaceDescriptorSize + ACHeaderDescriptorSize

// ClassSpecificSize returns wTotalLength of the class-specific MIDI
// Streaming descriptors for n ports: the MS header, 30 bytes of jacks per
// port and both bulk endpoints with their MS_GENERAL companions.
func ClassSpecificSize(n int) int {
	return MSHeaderDescriptorSize +
		n*(2*InJackDescriptorSize+2*OutJackDescriptorSize) +
		2*(device.AudioEndpointDescriptorSize+MSEndpointDescriptorSize(n))
}

// ConfigurationSize returns wTotalLength of the full configuration
// descriptor for n ports, with or without the Audio Control interface.
func ConfigurationSize(n int, audioControl bool) int {
	size := device.ConfigurationDescriptorSize + device.InterfaceDescriptorSize + ClassSpecificSize(n)
	if audioControl {
		size += acInterfaceSize
	}
	return size
}

// BuildDeviceDescriptor returns the 18-byte device descriptor for cfg.
func BuildDeviceDescriptor(cfg *Config) []byte {
	buf := make([]byte, device.DeviceDescriptorSize)
	(&device.DeviceDescriptor{
		USBVersion:        USBRelease,
		MaxPacketSize0:    cfg.MaxPacketSize0,
		VendorID:          cfg.VendorID,
		ProductID:         cfg.ProductID,
		DeviceVersion:     cfg.DeviceVersion,
		ManufacturerIndex: StringManufacturer,
		ProductIndex:      StringProduct,
		SerialNumberIndex: StringSerial,
		NumConfigurations: 1,
	}).MarshalTo(buf)
	return buf
}

// BuildConfigurationDescriptor returns the full configuration descriptor
// for the ports of t. The output depends only on t and cfg.
func BuildConfigurationDescriptor(t *Topology, cfg *Config) []byte {
	n := t.NumPorts()
	size := ConfigurationSize(n, cfg.AudioControl)
	buf := make([]byte, size)

	numInterfaces := uint8(1)
	streamInterface := uint8(0)
	if cfg.AudioControl {
		numInterfaces = 2
		streamInterface = 1
	}

	off := (&device.ConfigurationDescriptor{
		TotalLength:        uint16(size),
		NumInterfaces:      numInterfaces,
		ConfigurationValue: ConfigurationValue,
		Attributes:         device.ConfigAttrBusPowered,
		MaxPower:           cfg.MaxPower,
	}).MarshalTo(buf)

	if cfg.AudioControl {
		off += (&device.InterfaceDescriptor{
			InterfaceNumber:   0,
			InterfaceClass:    device.ClassAudio,
			InterfaceSubClass: SubclassAudioControl,
			InterfaceIndex:    StringInterface,
		}).MarshalTo(buf[off:])
		off += (&ACHeaderDescriptor{
			ADCRelease:      ADCRelease,
			TotalLength:     ACHeaderDescriptorSize,
			StreamInterface: streamInterface,
		}).MarshalTo(buf[off:])
	}

	off += (&device.InterfaceDescriptor{
		InterfaceNumber:   streamInterface,
		NumEndpoints:      2,
		InterfaceClass:    device.ClassAudio,
		InterfaceSubClass: SubclassMIDIStreaming,
		InterfaceIndex:    StringInterface,
	}).MarshalTo(buf[off:])
	off += (&MSHeaderDescriptor{
		MSCRelease:  MSCRelease,
		TotalLength: uint16(ClassSpecificSize(n)),
	}).MarshalTo(buf[off:])

	named := len(cfg.PortNames) != 0
	for _, port := range t.Ports() {
		var name uint8
		if named {
			name = uint8(StringFirstPort + port.Index)
		}
		off += (&InJackDescriptor{
			JackType: port.EmbeddedIn.Locality,
			JackID:   port.EmbeddedIn.ID,
			JackName: name,
		}).MarshalTo(buf[off:])
		off += (&InJackDescriptor{
			JackType: port.ExternalIn.Locality,
			JackID:   port.ExternalIn.ID,
			JackName: name,
		}).MarshalTo(buf[off:])
		off += (&OutJackDescriptor{
			JackType:  port.EmbeddedOut.Locality,
			JackID:    port.EmbeddedOut.ID,
			SourceID:  port.EmbeddedOut.Source,
			SourcePin: 1,
			JackName:  name,
		}).MarshalTo(buf[off:])
		off += (&OutJackDescriptor{
			JackType:  port.ExternalOut.Locality,
			JackID:    port.ExternalOut.ID,
			SourceID:  port.ExternalOut.Source,
			SourcePin: 1,
			JackName:  name,
		}).MarshalTo(buf[off:])
	}

	off += (&device.AudioEndpointDescriptor{
		EndpointAddress: EndpointOut,
		Attributes:      hal.TransferTypeBulk,
		MaxPacketSize:   cfg.OutMaxPacketSize,
	}).MarshalTo(buf[off:])
	off += (&MSEndpointDescriptor{Jacks: t.EmbeddedInIDs()}).MarshalTo(buf[off:])
	off += (&device.AudioEndpointDescriptor{
		EndpointAddress: EndpointIn,
		Attributes:      hal.TransferTypeBulk,
		MaxPacketSize:   cfg.InMaxPacketSize,
	}).MarshalTo(buf[off:])
	off += (&MSEndpointDescriptor{Jacks: t.EmbeddedOutIDs()}).MarshalTo(buf[off:])

	if off != size {
		panic(fmt.Sprintf("midi: configuration descriptor wrote %d of %d bytes", off, size))
	}
	return buf
}

// BuildStringDescriptor encodes text as a string descriptor. Text whose
// descriptor would exceed limit bytes is rejected, never truncated.
func BuildStringDescriptor(text string, limit int) ([]byte, error) {
	size, err := device.StringDescriptorSize(text)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", text, pkg.ErrInvalidParameter)
	}
	if size > limit {
		return nil, fmt.Errorf("%q encodes to %d bytes, limit %d: %w", text, size, limit, pkg.ErrStringTooLong)
	}
	buf := make([]byte, size)
	if _, err := device.StringDescriptorTo(buf, text); err != nil {
		return nil, err
	}
	return buf, nil
}

// Descriptors is the immutable descriptor set of one MIDI function. It
// serves the device-level descriptors as a [hal.DescriptorProvider].
type Descriptors struct {
	config   Config
	topology *Topology

	device        []byte
	configuration []byte
	strings       [StringFirstPort][]byte // Indexed by string index
	portNames     [][]byte                // Indexed by port
}

var _ hal.DescriptorProvider = (*Descriptors)(nil)

// Compose validates cfg and builds every descriptor once.
func Compose(cfg Config) (*Descriptors, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t, err := NewTopology(cfg.Ports)
	if err != nil {
		return nil, err
	}
	cfg.PortNames = append([]string(nil), cfg.PortNames...)

	d := &Descriptors{
		config:        cfg,
		topology:      t,
		device:        BuildDeviceDescriptor(&cfg),
		configuration: BuildConfigurationDescriptor(t, &cfg),
	}

	lang := make([]byte, 4)
	device.LanguageDescriptorTo(lang, device.LangIDUSEnglish)
	d.strings[StringLanguage] = lang

	limit := int(cfg.MaxPacketSize0)
	texts := cfg.Strings.texts()
	for i, s := range texts {
		if d.strings[StringManufacturer+i], err = BuildStringDescriptor(s, limit); err != nil {
			return nil, err
		}
	}
	for _, s := range cfg.PortNames {
		desc, err := BuildStringDescriptor(s, limit)
		if err != nil {
			return nil, err
		}
		d.portNames = append(d.portNames, desc)
	}

	pkg.LogDebug(pkg.ComponentDescriptor, "composed descriptors",
		"ports", cfg.Ports,
		"audioControl", cfg.AudioControl,
		"totalLength", len(d.configuration))
	return d, nil
}

// Config returns the configuration the set was built from.
func (d *Descriptors) Config() Config {
	c := d.config
	c.PortNames = append([]string(nil), d.config.PortNames...)
	return c
}

// Topology returns the jack graph described by the set.
func (d *Descriptors) Topology() *Topology {
	return d.topology
}

// DeviceDescriptor returns the device descriptor. The same bytes serve
// every speed.
func (d *Descriptors) DeviceDescriptor(hal.Speed) []byte {
	return d.device
}

// Configuration returns the full configuration descriptor.
func (d *Descriptors) Configuration() []byte {
	return d.configuration
}

// StringDescriptor returns one of the standard strings: the language table
// at index 0 followed by manufacturer, product, serial, configuration and
// interface.
func (d *Descriptors) StringDescriptor(_ hal.Speed, index uint8) ([]byte, bool) {
	if int(index) >= len(d.strings) {
		return nil, false
	}
	return d.strings[index], true
}

// PortNameDescriptor returns the jack name string at index, or false if
// the ports are unnamed or index belongs to no port.
func (d *Descriptors) PortNameDescriptor(index uint8) ([]byte, bool) {
	p := int(index) - StringFirstPort
	if p < 0 || p >= len(d.portNames) {
		return nil, false
	}
	return d.portNames[p], true
}
