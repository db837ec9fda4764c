package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/ardnew/usbmidi/device"
	"github.com/ardnew/usbmidi/device/class/midi"
	"github.com/ardnew/usbmidi/device/hal"
	"github.com/ardnew/usbmidi/internal/usbid"
	"github.com/ardnew/usbmidi/pkg"
)

// Descriptors prints the device, configuration and string descriptors.
type Descriptors struct {
	ProfileFlag `embed:""`

	Format string `help:"Output format: hex, c or raw" default:"hex" enum:"hex,c,raw"`
	Which  string `help:"Descriptors to print: device, config, strings or all" default:"all" enum:"device,config,strings,all"`
	Color  string `help:"Highlight descriptor headers: auto, always or never" default:"auto" enum:"auto,always,never"`
	USBIDs string `help:"usb.ids database naming the vendor and product; standard locations are searched when empty" name:"usb-ids" type:"path"`
}

// block is one named descriptor blob. A non-empty tag replaces the
// per-descriptor label.
type block struct {
	name string
	tag  string
	data []byte
}

func (b *block) label(desc []byte) string {
	if b.tag != "" {
		return b.tag
	}
	return label(desc)
}

func (c *Descriptors) Run(out io.Writer) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	d, err := midi.Compose(cfg)
	if err != nil {
		return err
	}

	blocks := c.blocks(d)
	switch c.Format {
	case "raw":
		for _, b := range blocks {
			if _, err := out.Write(b.data); err != nil {
				return err
			}
		}
		return nil
	case "c":
		return writeC(out, blocks)
	default:
		if names := c.names(); names != nil {
			if _, err := fmt.Fprintf(out, "# %s\n", names.Describe(cfg.VendorID, cfg.ProductID)); err != nil {
				return err
			}
		}
		return writeHex(out, blocks, useColor(c.Color, out))
	}
}

// names opens the usb.ids database, returning nil when none is available.
func (c *Descriptors) names() *usbid.Database {
	var paths []string
	if c.USBIDs != "" {
		paths = append(paths, c.USBIDs)
	}
	db, err := usbid.Open(paths...)
	if err != nil {
		pkg.LogDebug(pkg.ComponentCLI, "vendor names unavailable", "error", err)
		return nil
	}
	return db
}

func (c *Descriptors) blocks(d *midi.Descriptors) []block {
	var blocks []block
	if c.Which == "device" || c.Which == "all" {
		blocks = append(blocks, block{name: "device", data: d.DeviceDescriptor(hal.SpeedFull)})
	}
	if c.Which == "config" || c.Which == "all" {
		blocks = append(blocks, block{name: "configuration", data: d.Configuration()})
	}
	if c.Which == "strings" || c.Which == "all" {
		for i := uint8(midi.StringLanguage); i <= midi.StringInterface; i++ {
			if s, ok := d.StringDescriptor(hal.SpeedFull, i); ok {
				b := block{name: fmt.Sprintf("string %d", i), data: s}
				if i == midi.StringLanguage {
					b.tag = "STRING LANGID"
				}
				blocks = append(blocks, b)
			}
		}
		for i := uint8(midi.StringFirstPort); ; i++ {
			s, ok := d.PortNameDescriptor(i)
			if !ok {
				break
			}
			blocks = append(blocks, block{name: fmt.Sprintf("string %d", i), data: s})
		}
	}
	return blocks
}

// useColor reports whether output to w should carry ANSI escapes.
func useColor(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := w.(*os.File)
	if !ok || os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

const (
	ansiHeader = "\x1b[36m"
	ansiReset  = "\x1b[0m"
)

func writeHex(w io.Writer, blocks []block, color bool) error {
	for _, b := range blocks {
		if _, err := fmt.Fprintf(w, "# %s (%d bytes)\n", b.name, len(b.data)); err != nil {
			return err
		}
		err := device.Walk(b.data, func(desc []byte) error {
			_, err := fmt.Fprintf(w, "%-24s %s\n", b.label(desc), hexBytes(desc, color))
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// hexBytes formats desc as spaced hex, optionally highlighting the
// bLength and bDescriptorType header.
func hexBytes(desc []byte, color bool) string {
	if !color || len(desc) < 2 {
		return fmt.Sprintf("% X", desc)
	}
	s := ansiHeader + fmt.Sprintf("% X", desc[:2]) + ansiReset
	if len(desc) > 2 {
		s += " " + fmt.Sprintf("% X", desc[2:])
	}
	return s
}

func writeC(w io.Writer, blocks []block) error {
	for _, b := range blocks {
		name := strings.ReplaceAll(b.name, " ", "_") + "_descriptor"
		if _, err := fmt.Fprintf(w, "static const uint8_t %s[%d] = {\n", name, len(b.data)); err != nil {
			return err
		}
		err := device.Walk(b.data, func(desc []byte) error {
			var sb strings.Builder
			sb.WriteString("\t")
			for _, v := range desc {
				fmt.Fprintf(&sb, "0x%02X, ", v)
			}
			_, err := fmt.Fprintf(w, "%s// %s\n", sb.String(), b.label(desc))
			return err
		})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprint(w, "};\n\n"); err != nil {
			return err
		}
	}
	return nil
}

// label names a single descriptor by its type and subtype.
func label(desc []byte) string {
	if len(desc) < 2 {
		return "?"
	}
	switch desc[1] {
	case device.DescriptorTypeDevice:
		return "DEVICE"
	case device.DescriptorTypeConfiguration:
		return "CONFIGURATION"
	case device.DescriptorTypeInterface:
		if len(desc) > 6 && desc[6] == midi.SubclassAudioControl {
			return "INTERFACE AudioControl"
		}
		return "INTERFACE MIDIStreaming"
	case device.DescriptorTypeEndpoint:
		if len(desc) < 3 {
			break
		}
		if desc[2]&device.EndpointDirectionIn != 0 {
			return fmt.Sprintf("ENDPOINT 0x%02X IN", desc[2])
		}
		return fmt.Sprintf("ENDPOINT 0x%02X OUT", desc[2])
	case device.DescriptorTypeString:
		s, err := device.ParseStringDescriptor(desc)
		if err != nil {
			break
		}
		return fmt.Sprintf("STRING %q", s)
	case device.DescriptorTypeCSInterface:
		if len(desc) < 5 {
			break
		}
		switch desc[2] {
		case midi.MSHeader:
			return "CS_INTERFACE HEADER"
		case midi.MIDIInJack:
			return fmt.Sprintf("MIDI_IN_JACK %d", desc[4])
		case midi.MIDIOutJack:
			return fmt.Sprintf("MIDI_OUT_JACK %d", desc[4])
		}
	case device.DescriptorTypeCSEndpoint:
		return "CS_ENDPOINT MS_GENERAL"
	}
	return fmt.Sprintf("TYPE 0x%02X", desc[1])
}
