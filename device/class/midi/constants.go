package midi

// Audio interface subclass codes.
const (
	SubclassAudioControl  = 0x01 // Audio Control
	SubclassMIDIStreaming = 0x03 // MIDI Streaming
)

// Class-specific Audio Control interface descriptor subtypes.
const (
	ACHeader = 0x01 // HEADER
)

// Class-specific MIDI Streaming interface descriptor subtypes.
const (
	MSHeader    = 0x01 // MS_HEADER
	MIDIInJack  = 0x02 // MIDI_IN_JACK
	MIDIOutJack = 0x03 // MIDI_OUT_JACK
)

// Class-specific MIDI Streaming endpoint descriptor subtypes.
const (
	MSGeneral = 0x01 // MS_GENERAL
)

// Jack types.
const (
	JackEmbedded = 0x01
	JackExternal = 0x02
)

// Class release numbers (BCD).
const (
	ADCRelease = 0x0100 // Audio Device Class 1.0
	MSCRelease = 0x0100 // MIDI Streaming 1.0
)

// Endpoint addresses of the MIDI Streaming interface.
const (
	EndpointOut = 0x02 // Bulk OUT, host to device
	EndpointIn  = 0x81 // Bulk IN, device to host
)

// String descriptor indices.
const (
	StringLanguage      = 0
	StringManufacturer  = 1
	StringProduct       = 2
	StringSerial        = 3
	StringConfiguration = 4
	StringInterface     = 5
	StringFirstPort     = 6 // Port p names use index StringFirstPort+p
)

// MaxPorts is the largest supported number of virtual MIDI cables.
const MaxPorts = 8

// JacksPerPort is the number of jacks each port contributes.
const JacksPerPort = 4

// EventPacketSize is the size of one USB-MIDI event packet.
const EventPacketSize = 4

// ConfigurationValue is the only configuration the device offers.
const ConfigurationValue = 1
