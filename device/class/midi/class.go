package midi

import (
	"github.com/ardnew/usbmidi/device/hal"
	"github.com/ardnew/usbmidi/pkg"
)

// Class is the class callback table of the MIDI function. It binds the
// composed descriptors to the data path.
type Class struct {
	descriptors *Descriptors
	data        *DataPath
}

var _ hal.ClassHandler = (*Class)(nil)

// NewClass creates the class callback table.
func NewClass(descriptors *Descriptors, data *DataPath) *Class {
	return &Class{descriptors: descriptors, data: data}
}

// Activate opens the data path for configuration cfg.
func (c *Class) Activate(cfg uint8) error {
	return c.data.Init(cfg)
}

// Deactivate closes the data path.
func (c *Class) Deactivate(cfg uint8) error {
	return c.data.Deinit(cfg)
}

// Setup handles class requests. MIDI Streaming defines none, so every
// request is accepted and ignored.
func (c *Class) Setup(req *hal.SetupPacket) error {
	pkg.LogDebug(pkg.ComponentClass, "class request ignored",
		"bmRequestType", req.RequestType,
		"bRequest", req.Request)
	return nil
}

// EP0RxReady does nothing; there are no class OUT data stages.
func (c *Class) EP0RxReady() error {
	return nil
}

// DataIn forwards a Bulk IN completion.
func (c *Class) DataIn(ep uint8) error {
	return c.data.DataIn(ep)
}

// DataOut forwards a Bulk OUT completion.
func (c *Class) DataOut(ep uint8, n int) error {
	return c.data.DataOut(ep, n)
}

// ConfigurationDescriptor returns the composed configuration descriptor.
func (c *Class) ConfigurationDescriptor(hal.Speed) []byte {
	return c.descriptors.Configuration()
}

// StringDescriptor serves the port name strings referenced by iJack.
func (c *Class) StringDescriptor(_ hal.Speed, index uint8) ([]byte, bool) {
	return c.descriptors.PortNameDescriptor(index)
}
