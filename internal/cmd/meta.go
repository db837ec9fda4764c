package cmd

import (
	"fmt"
	"io"
	"runtime/debug"
	"time"
)

// Build metadata, overridable with -ldflags "-X".
var (
	Version = ""
	Commit  = ""
	Date    = ""
)

var descriptionTemplate = `
USB Audio-Class MIDI device composer and simulator
  Version: %s (%s)
           %s
  Source:  https://github.com/ardnew/usbmidi
`

// Description returns the root help description.
func Description() string {
	return fmt.Sprintf(descriptionTemplate, Version, Commit, Date)
}

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		if Version == "" {
			Version = info.Main.Version
			if Version == "" || Version == "(devel)" {
				Version = "dev"
			}
		}
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if Commit == "" {
					Commit = setting.Value[:min(len(setting.Value), 7)]
				}
			case "vcs.time":
				if Date == "" {
					if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
						Date = t.Format("2006-01-02")
					} else {
						Date = setting.Value
					}
				}
			}
		}
	}
	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
	if Date == "" {
		Date = "unknown"
	}
}

// ShowVersion prints build metadata.
type ShowVersion struct{}

func (c *ShowVersion) Run(out io.Writer) error {
	_, err := fmt.Fprintf(out, "%s %s (%s) %s\n", AppName, Version, Commit, Date)
	return err
}
