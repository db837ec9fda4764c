package cmd

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ardnew/usbmidi/device/class/midi"
	"github.com/ardnew/usbmidi/device/hal"
	"github.com/ardnew/usbmidi/device/hal/sim"
	"github.com/ardnew/usbmidi/pkg"
)

// ErrUnknownEvent indicates a simulate event that could not be parsed.
var ErrUnknownEvent = errors.New("unknown event")

// Simulate drives a MIDI device on the simulated controller through a list
// of host events, printing a transcript.
type Simulate struct {
	ProfileFlag `embed:""`

	Mode          string   `help:"Init mode: preserve, force-reinit or force-reinit-keep-hooks" default:"force-reinit" enum:"preserve,force-reinit,force-reinit-keep-hooks"`
	SessionActive bool     `help:"Start with a host session present" default:"true" negatable:""`
	Echo          bool     `help:"Send every received packet back on Bulk IN" default:"true" negatable:""`
	Events        []string `help:"Host events: plug, enumerate, suspend, resume, reset, unplug, in, out:<hex>, send:<hex>, init:<mode>" default:"enumerate,out:09903c7f,in,suspend,resume,unplug" sep:","`
}

func (c *Simulate) Run(ctx context.Context, out io.Writer) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	mode, err := midi.ParseMode(c.Mode)
	if err != nil {
		return err
	}

	ctrl := sim.New()
	ctrl.SetSessionActive(c.SessionActive)

	var dev *midi.Device
	listener := midi.ListenerFuncs{
		OnConnectionStateChanged: func(connected bool) {
			fmt.Fprintf(out, "  connected=%t\n", connected)
		},
		OnPacketReceived: func(data []byte) {
			fmt.Fprintf(out, "  rx % x\n", data)
			if !c.Echo {
				return
			}
			if err := dev.Send(append([]byte(nil), data...)); err != nil {
				fmt.Fprintf(out, "  echo: %v\n", err)
			}
		},
		OnReadyToSend: func() {
			fmt.Fprintln(out, "  ready")
		},
	}
	dev, err = midi.New(ctrl, cfg, listener)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "init %s\n", mode)
	if err := dev.Init(ctx, mode); err != nil {
		return err
	}

	for _, event := range c.Events {
		event = strings.TrimSpace(event)
		if event == "" {
			continue
		}
		fmt.Fprintln(out, event)
		err := c.apply(ctx, out, ctrl, dev, event)
		if errors.Is(err, ErrUnknownEvent) {
			return err
		}
		if err != nil {
			fmt.Fprintf(out, "  error: %v [%s]\n", err, pkg.StatusOf(err))
		}
	}

	_, err = fmt.Fprintf(out, "state=%s connected=%t\n", dev.Lifecycle().State(), dev.IsConnected())
	return err
}

// apply plays one host event against the device.
func (c *Simulate) apply(ctx context.Context, out io.Writer, ctrl *sim.Controller, dev *midi.Device, event string) error {
	name, arg, _ := strings.Cut(event, ":")
	name = strings.ToLower(name)
	switch name {
	case "plug":
		ctrl.SetSessionActive(true)
		return ctrl.Connect()
	case "enumerate", "configured":
		e, err := ctrl.Enumerate()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %04X:%04X %q, %d-byte configuration\n",
			e.Device.VendorID, e.Device.ProductID, e.Strings[midi.StringProduct], len(e.Configuration))
		return nil
	case "suspend":
		ctrl.Suspend()
		return nil
	case "resume":
		ctrl.Resume()
		return nil
	case "reset":
		ctrl.Reset(hal.SpeedFull)
		return nil
	case "unplug", "disconnected":
		ctrl.Unplug()
		return nil
	case "in":
		data, err := ctrl.CompleteIn(midi.EndpointIn)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  tx % x\n", data)
		return nil
	case "out", "send":
		data, err := hex.DecodeString(arg)
		if err != nil {
			return fmt.Errorf("%s: %w: %w", event, ErrUnknownEvent, err)
		}
		if name == "send" {
			return dev.Send(data)
		}
		return ctrl.DeliverOut(midi.EndpointOut, data)
	case "init":
		mode, err := midi.ParseMode(arg)
		if err != nil {
			return fmt.Errorf("%s: %w: %w", event, ErrUnknownEvent, err)
		}
		return dev.Init(ctx, mode)
	}
	pkg.LogDebug(pkg.ComponentCLI, "unknown simulate event", "event", event)
	return fmt.Errorf("%q: %w", event, ErrUnknownEvent)
}
