package midi

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/usbmidi/device"
	"github.com/ardnew/usbmidi/pkg"
)

// Class-specific descriptor sizes.
const (
	ACHeaderDescriptorSize = 9
	MSHeaderDescriptorSize = 7
	InJackDescriptorSize   = 6
	OutJackDescriptorSize  = 9 // One input pin
	msEndpointBaseSize     = 4
)

// MSEndpointDescriptorSize returns the size of a class-specific MS_GENERAL
// endpoint descriptor associating n embedded jacks.
func MSEndpointDescriptorSize(n int) int {
	return msEndpointBaseSize + n
}

// ACHeaderDescriptor is the class-specific Audio Control interface header
// for an AC interface with a single streaming interface in its collection.
type ACHeaderDescriptor struct {
	ADCRelease      uint16 // bcdADC
	TotalLength     uint16 // wTotalLength of class-specific AC descriptors
	StreamInterface uint8  // baInterfaceNr(1)
}

// MarshalTo serializes the header to buf.
// Returns the number of bytes written (always 9 if buf is large enough).
func (d *ACHeaderDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < ACHeaderDescriptorSize {
		return 0
	}
	buf[0] = ACHeaderDescriptorSize
	buf[1] = device.DescriptorTypeCSInterface
	buf[2] = ACHeader
	binary.LittleEndian.PutUint16(buf[3:5], d.ADCRelease)
	binary.LittleEndian.PutUint16(buf[5:7], d.TotalLength)
	buf[7] = 1 // bInCollection
	buf[8] = d.StreamInterface
	return ACHeaderDescriptorSize
}

// MSHeaderDescriptor is the class-specific MIDI Streaming interface header.
type MSHeaderDescriptor struct {
	MSCRelease  uint16 // bcdMSC
	TotalLength uint16 // wTotalLength of class-specific MS descriptors
}

// MarshalTo serializes the header to buf.
// Returns the number of bytes written (always 7 if buf is large enough).
func (d *MSHeaderDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < MSHeaderDescriptorSize {
		return 0
	}
	buf[0] = MSHeaderDescriptorSize
	buf[1] = device.DescriptorTypeCSInterface
	buf[2] = MSHeader
	binary.LittleEndian.PutUint16(buf[3:5], d.MSCRelease)
	binary.LittleEndian.PutUint16(buf[5:7], d.TotalLength)
	return MSHeaderDescriptorSize
}

// InJackDescriptor is a MIDI IN jack descriptor.
type InJackDescriptor struct {
	JackType uint8
	JackID   uint8
	JackName uint8 // iJack
}

// MarshalTo serializes the jack to buf.
// Returns the number of bytes written (always 6 if buf is large enough).
func (d *InJackDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < InJackDescriptorSize {
		return 0
	}
	buf[0] = InJackDescriptorSize
	buf[1] = device.DescriptorTypeCSInterface
	buf[2] = MIDIInJack
	buf[3] = d.JackType
	buf[4] = d.JackID
	buf[5] = d.JackName
	return InJackDescriptorSize
}

// OutJackDescriptor is a MIDI OUT jack descriptor with one input pin.
type OutJackDescriptor struct {
	JackType  uint8
	JackID    uint8
	SourceID  uint8 // baSourceID(1)
	SourcePin uint8 // baSourcePin(1)
	JackName  uint8 // iJack
}

// MarshalTo serializes the jack to buf.
// Returns the number of bytes written (always 9 if buf is large enough).
func (d *OutJackDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < OutJackDescriptorSize {
		return 0
	}
	buf[0] = OutJackDescriptorSize
	buf[1] = device.DescriptorTypeCSInterface
	buf[2] = MIDIOutJack
	buf[3] = d.JackType
	buf[4] = d.JackID
	buf[5] = 1 // bNrInputPins
	buf[6] = d.SourceID
	buf[7] = d.SourcePin
	buf[8] = d.JackName
	return OutJackDescriptorSize
}

// MSEndpointDescriptor is the class-specific MS_GENERAL endpoint descriptor
// listing the embedded jacks bound to a bulk endpoint.
type MSEndpointDescriptor struct {
	Jacks []uint8 // baAssocJackID
}

// MarshalTo serializes the descriptor to buf.
// Returns the number of bytes written, or 0 if buf is too small.
func (d *MSEndpointDescriptor) MarshalTo(buf []byte) int {
	size := MSEndpointDescriptorSize(len(d.Jacks))
	if len(buf) < size {
		return 0
	}
	buf[0] = uint8(size)
	buf[1] = device.DescriptorTypeCSEndpoint
	buf[2] = MSGeneral
	buf[3] = uint8(len(d.Jacks))
	copy(buf[4:size], d.Jacks)
	return size
}

// ParsedEndpoint is a bulk endpoint recovered from a configuration
// descriptor together with its associated jacks.
type ParsedEndpoint struct {
	Endpoint device.AudioEndpointDescriptor
	Jacks    []uint8
}

// ParsedConfiguration is the MIDI Streaming view of a configuration
// descriptor, as a host driver would build it.
type ParsedConfiguration struct {
	Header          device.ConfigurationDescriptor
	AudioControl    bool
	Interfaces      []device.InterfaceDescriptor
	StreamingLength uint16 // wTotalLength from the MS header
	Jacks           []Jack
	JackNames       map[uint8]uint8 // iJack by jack ID
	Endpoints       []ParsedEndpoint
}

// ParseConfiguration decodes a MIDI Streaming configuration descriptor.
// OUT jacks must have exactly one input pin.
func ParseConfiguration(data []byte) (*ParsedConfiguration, error) {
	pc := &ParsedConfiguration{JackNames: make(map[uint8]uint8)}
	if err := device.ParseConfigurationDescriptor(data, &pc.Header); err != nil {
		return nil, err
	}
	if int(pc.Header.TotalLength) != len(data) {
		return nil, fmt.Errorf("wTotalLength %d, have %d bytes: %w",
			pc.Header.TotalLength, len(data), pkg.ErrDescriptorTooShort)
	}

	var subclass uint8
	err := device.Walk(data[device.ConfigurationDescriptorSize:], func(desc []byte) error {
		switch desc[1] {
		case device.DescriptorTypeInterface:
			var iface device.InterfaceDescriptor
			if err := device.ParseInterfaceDescriptor(desc, &iface); err != nil {
				return err
			}
			subclass = iface.InterfaceSubClass
			if subclass == SubclassAudioControl {
				pc.AudioControl = true
			}
			pc.Interfaces = append(pc.Interfaces, iface)

		case device.DescriptorTypeCSInterface:
			if subclass != SubclassMIDIStreaming {
				return nil
			}
			return pc.parseStreamingInterface(desc)

		case device.DescriptorTypeEndpoint:
			var ep device.AudioEndpointDescriptor
			if err := device.ParseAudioEndpointDescriptor(desc, &ep); err != nil {
				return err
			}
			pc.Endpoints = append(pc.Endpoints, ParsedEndpoint{Endpoint: ep})

		case device.DescriptorTypeCSEndpoint:
			if len(desc) < msEndpointBaseSize || desc[2] != MSGeneral {
				return pkg.ErrDescriptorTypeMismatch
			}
			n := int(desc[3])
			if len(desc) != MSEndpointDescriptorSize(n) || len(pc.Endpoints) == 0 {
				return pkg.ErrDescriptorTooShort
			}
			last := &pc.Endpoints[len(pc.Endpoints)-1]
			last.Jacks = append([]uint8(nil), desc[4:4+n]...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pc, nil
}

func (pc *ParsedConfiguration) parseStreamingInterface(desc []byte) error {
	if len(desc) < 3 {
		return pkg.ErrDescriptorTooShort
	}
	switch desc[2] {
	case MSHeader:
		if len(desc) < MSHeaderDescriptorSize {
			return pkg.ErrDescriptorTooShort
		}
		pc.StreamingLength = binary.LittleEndian.Uint16(desc[5:7])
	case MIDIInJack:
		if len(desc) < InJackDescriptorSize {
			return pkg.ErrDescriptorTooShort
		}
		pc.Jacks = append(pc.Jacks, Jack{ID: desc[4], Kind: JackIn, Locality: desc[3], Port: int(desc[4]-1) / JacksPerPort})
		pc.JackNames[desc[4]] = desc[5]
	case MIDIOutJack:
		if len(desc) < OutJackDescriptorSize || desc[5] != 1 {
			return fmt.Errorf("jack %d: %w", desc[4], pkg.ErrDescriptorTooShort)
		}
		pc.Jacks = append(pc.Jacks, Jack{ID: desc[4], Kind: JackOut, Locality: desc[3], Source: desc[6], Port: int(desc[4]-1) / JacksPerPort})
		pc.JackNames[desc[4]] = desc[8]
	}
	return nil
}
