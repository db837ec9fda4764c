// Package cmd implements the usbmidi command line.
package cmd

import (
	"io"

	"github.com/ardnew/usbmidi/device/class/midi"
	"github.com/ardnew/usbmidi/internal/profile"
	"github.com/ardnew/usbmidi/pkg"
)

// Log holds the logging flags shared by every command.
type Log struct {
	Level  string `help:"Log level: trace, debug, info, warn, error" default:"warn" enum:"trace,debug,info,warn,error" env:"USBMIDI_LOG_LEVEL"`
	Format string `help:"Log format: text or json" default:"text" enum:"text,json" env:"USBMIDI_LOG_FORMAT"`
}

// Setup points the package logger at w using the configured level and format.
func (l *Log) Setup(w io.Writer) {
	pkg.SetLogOutput(w, pkg.ParseFormat(l.Format))
	pkg.SetLogLevel(pkg.ParseLevel(l.Level))
}

// CLI is the root command structure for Kong CLI parsing.
type CLI struct {
	Log `embed:"" prefix:"log."`

	Config string `help:"Defaults file (YAML or TOML) applied before flags and environment" type:"path" env:"USBMIDI_CONFIG"`

	Descriptors Descriptors `cmd:"" help:"Print the composed USB descriptors"`
	Simulate    Simulate    `cmd:"" help:"Run the device against a simulated controller and host"`
	Profile     ShowProfile `cmd:"" help:"Print the effective device profile"`
	Version     ShowVersion `cmd:"" help:"Print version information"`
}

// ProfileFlag selects the device profile a command operates on.
type ProfileFlag struct {
	Profile string `help:"Device profile (YAML or TOML); defaults are used when empty" short:"p" type:"path" env:"USBMIDI_PROFILE"`
}

// config resolves the selected profile.
func (f *ProfileFlag) config() (midi.Config, error) {
	if f.Profile == "" {
		return midi.DefaultConfig(), nil
	}
	p, err := profile.Load(f.Profile)
	if err != nil {
		return midi.Config{}, err
	}
	return p.Config()
}
