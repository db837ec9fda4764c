package cmd

import (
	"io"

	"github.com/ardnew/usbmidi/internal/profile"
)

// ShowProfile prints the effective profile with every default filled in
// and any derived serial resolved.
type ShowProfile struct {
	ProfileFlag `embed:""`

	Output string `help:"Output format: yaml or toml" short:"o" default:"yaml" enum:"yaml,toml"`
}

func (c *ShowProfile) Run(out io.Writer) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	return profile.Encode(out, profile.Format(c.Output), profile.FromConfig(cfg))
}
