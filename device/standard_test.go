package device

import (
	"errors"
	"testing"

	"github.com/ardnew/usbmidi/device/hal"
	"github.com/ardnew/usbmidi/pkg"
)

// testFunction is a minimal set of callback tables recording calls.
type testFunction struct {
	config   []byte
	events   []string
	activate error
}

func newTestFunction() *testFunction {
	var cfg [ConfigurationDescriptorSize]byte
	(&ConfigurationDescriptor{
		TotalLength:        ConfigurationDescriptorSize,
		ConfigurationValue: 1,
		Attributes:         ConfigAttrBusPowered,
	}).MarshalTo(cfg[:])
	return &testFunction{config: cfg[:]}
}

func (f *testFunction) callbacks() hal.Callbacks {
	return hal.Callbacks{Descriptors: f, Class: f, Lifecycle: f}
}

func (f *testFunction) DeviceDescriptor(hal.Speed) []byte {
	var buf [DeviceDescriptorSize]byte
	(&DeviceDescriptor{USBVersion: 0x0200, MaxPacketSize0: 64, NumConfigurations: 1}).MarshalTo(buf[:])
	return buf[:]
}

func (f *testFunction) StringDescriptor(_ hal.Speed, index uint8) ([]byte, bool) {
	switch index {
	case 0:
		return []byte{0x04, 0x03, 0x09, 0x04}, true
	case 6:
		// Owned by the class
		return []byte{0x04, 0x03, 'X', 0}, true
	}
	return nil, false
}

func (f *testFunction) Activate(cfg uint8) error {
	f.events = append(f.events, "activate")
	return f.activate
}

func (f *testFunction) Deactivate(cfg uint8) error {
	f.events = append(f.events, "deactivate")
	return nil
}

func (f *testFunction) Setup(*hal.SetupPacket) error {
	f.events = append(f.events, "setup")
	return nil
}

func (f *testFunction) EP0RxReady() error                        { return nil }
func (f *testFunction) DataIn(uint8) error                       { return nil }
func (f *testFunction) DataOut(uint8, int) error                 { return nil }
func (f *testFunction) ConfigurationDescriptor(hal.Speed) []byte { return f.config }

func (f *testFunction) Init()           { f.events = append(f.events, "init") }
func (f *testFunction) Reset(hal.Speed) { f.events = append(f.events, "reset") }
func (f *testFunction) Configured()     { f.events = append(f.events, "configured") }
func (f *testFunction) Suspended()      { f.events = append(f.events, "suspended") }
func (f *testFunction) Resumed()        { f.events = append(f.events, "resumed") }
func (f *testFunction) Connected()      { f.events = append(f.events, "connected") }
func (f *testFunction) Disconnected()   { f.events = append(f.events, "disconnected") }

func enumerated(t *testing.T, f *testFunction) *StandardRequestHandler {
	t.Helper()
	h := NewStandardRequestHandler()
	h.SetCallbacks(f.callbacks())
	h.Reset(hal.SpeedFull)

	var setup hal.SetupPacket
	SetAddressSetup(&setup, 5)
	if _, err := h.HandleSetup(&setup); err != nil {
		t.Fatalf("SET_ADDRESS error = %v", err)
	}
	return h
}

func TestStandardRequestHandler_GetDescriptor(t *testing.T) {
	f := newTestFunction()
	h := enumerated(t, f)

	var setup hal.SetupPacket
	GetDescriptorSetup(&setup, DescriptorTypeDevice, 0, 64)
	data, err := h.HandleSetup(&setup)
	if err != nil {
		t.Fatalf("HandleSetup() error = %v", err)
	}
	if len(data) != DeviceDescriptorSize {
		t.Errorf("device descriptor length = %d, want 18", len(data))
	}

	// Host asks for the header first
	GetDescriptorSetup(&setup, DescriptorTypeDevice, 0, 8)
	data, err = h.HandleSetup(&setup)
	if err != nil || len(data) != 8 {
		t.Errorf("truncated request: len = %d, err = %v", len(data), err)
	}

	GetDescriptorSetup(&setup, DescriptorTypeConfiguration, 0, 255)
	data, err = h.HandleSetup(&setup)
	if err != nil || len(data) != ConfigurationDescriptorSize {
		t.Errorf("configuration: len = %d, err = %v", len(data), err)
	}

	GetDescriptorSetup(&setup, DescriptorTypeConfiguration, 1, 255)
	if _, err = h.HandleSetup(&setup); !errors.Is(err, pkg.ErrInvalidRequest) {
		t.Errorf("configuration 1: err = %v, want ErrInvalidRequest", err)
	}

	GetDescriptorSetup(&setup, DescriptorTypeString, 0, 255)
	data, err = h.HandleSetup(&setup)
	if err != nil || len(data) != 4 {
		t.Errorf("languages: len = %d, err = %v", len(data), err)
	}

	GetDescriptorSetup(&setup, DescriptorTypeString, 9, 255)
	if _, err = h.HandleSetup(&setup); !errors.Is(err, pkg.ErrInvalidRequest) {
		t.Errorf("unknown string: err = %v, want ErrInvalidRequest", err)
	}

	GetDescriptorSetup(&setup, DescriptorTypeDeviceQualifier, 0, 10)
	if _, err = h.HandleSetup(&setup); !errors.Is(err, pkg.ErrNotSupported) {
		t.Errorf("qualifier: err = %v, want ErrNotSupported", err)
	}
}

func TestStandardRequestHandler_SetConfiguration(t *testing.T) {
	f := newTestFunction()
	h := enumerated(t, f)
	if h.State() != StateAddress || h.Address() != 5 {
		t.Fatalf("state = %v address = %d", h.State(), h.Address())
	}

	var setup hal.SetupPacket
	SetConfigurationSetup(&setup, 2)
	if _, err := h.HandleSetup(&setup); !errors.Is(err, pkg.ErrInvalidRequest) {
		t.Errorf("unknown configuration: err = %v", err)
	}

	SetConfigurationSetup(&setup, 1)
	if _, err := h.HandleSetup(&setup); err != nil {
		t.Fatalf("SET_CONFIGURATION error = %v", err)
	}
	if h.State() != StateConfigured || h.Configuration() != 1 {
		t.Errorf("state = %v config = %d", h.State(), h.Configuration())
	}

	GetDescriptorSetup(&setup, 0, 0, 1)
	setup.Request = RequestGetConfiguration
	data, err := h.HandleSetup(&setup)
	if err != nil || len(data) != 1 || data[0] != 1 {
		t.Errorf("GET_CONFIGURATION = %v, %v", data, err)
	}

	// Selecting the active configuration again is a no-op
	SetConfigurationSetup(&setup, 1)
	if _, err := h.HandleSetup(&setup); err != nil {
		t.Fatalf("repeat SET_CONFIGURATION error = %v", err)
	}

	SetConfigurationSetup(&setup, 0)
	if _, err := h.HandleSetup(&setup); err != nil {
		t.Fatalf("SET_CONFIGURATION(0) error = %v", err)
	}
	if h.State() != StateAddress {
		t.Errorf("state = %v, want Address", h.State())
	}

	// Deconfiguring raises no lifecycle event
	want := []string{"reset", "activate", "configured", "deactivate"}
	if len(f.events) != len(want) {
		t.Fatalf("events = %v, want %v", f.events, want)
	}
	for i := range want {
		if f.events[i] != want[i] {
			t.Errorf("events[%d] = %s, want %s", i, f.events[i], want[i])
		}
	}
}

func TestStandardRequestHandler_ActivateFailure(t *testing.T) {
	f := newTestFunction()
	f.activate = pkg.ErrEndpointOpen
	h := enumerated(t, f)

	var setup hal.SetupPacket
	SetConfigurationSetup(&setup, 1)
	if _, err := h.HandleSetup(&setup); !errors.Is(err, pkg.ErrEndpointOpen) {
		t.Errorf("err = %v, want ErrEndpointOpen", err)
	}
	if h.State() != StateAddress {
		t.Errorf("state = %v, want Address", h.State())
	}
}

func TestStandardRequestHandler_SuspendResumeReset(t *testing.T) {
	f := newTestFunction()
	h := enumerated(t, f)

	var setup hal.SetupPacket
	SetConfigurationSetup(&setup, 1)
	if _, err := h.HandleSetup(&setup); err != nil {
		t.Fatalf("SET_CONFIGURATION error = %v", err)
	}

	h.Suspend()
	h.Suspend()
	if h.State() != StateSuspended {
		t.Errorf("state = %v, want Suspended", h.State())
	}
	h.Resume()
	if h.State() != StateConfigured {
		t.Errorf("state = %v, want Configured", h.State())
	}
	h.Reset(hal.SpeedFull)
	if h.State() != StateDefault || h.Configuration() != 0 {
		t.Errorf("state = %v config = %d", h.State(), h.Configuration())
	}

	want := []string{"reset", "activate", "configured", "suspended", "resumed", "deactivate", "reset"}
	if len(f.events) != len(want) {
		t.Fatalf("events = %v, want %v", f.events, want)
	}
	for i := range want {
		if f.events[i] != want[i] {
			t.Errorf("events[%d] = %s, want %s", i, f.events[i], want[i])
		}
	}
}

func TestStandardRequestHandler_ClassRequest(t *testing.T) {
	f := newTestFunction()
	h := enumerated(t, f)

	setup := hal.SetupPacket{RequestType: RequestTypeClass | RequestRecipientInterface, Request: 0x01}
	if _, err := h.HandleSetup(&setup); err != nil {
		t.Fatalf("class request error = %v", err)
	}
	if f.events[len(f.events)-1] != "setup" {
		t.Errorf("class Setup not called: %v", f.events)
	}

	// Interface requests require the Configured state
	setup = hal.SetupPacket{RequestType: RequestDirectionDeviceToHost | RequestRecipientInterface, Request: RequestGetInterface, Length: 1}
	if _, err := h.HandleSetup(&setup); !errors.Is(err, pkg.ErrInvalidRequest) {
		t.Errorf("unconfigured GET_INTERFACE err = %v", err)
	}
}

func TestStandardRequestHandler_Detach(t *testing.T) {
	f := newTestFunction()
	h := enumerated(t, f)
	h.MarkConfigured(1)
	h.Detach()

	if h.State() != StatePowered {
		t.Errorf("state = %v, want Powered", h.State())
	}
	n := len(f.events)
	if n < 2 || f.events[n-2] != "deactivate" || f.events[n-1] != "disconnected" {
		t.Errorf("events = %v", f.events)
	}
}
