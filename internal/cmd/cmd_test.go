package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/usbmidi/device/class/midi"
	"github.com/ardnew/usbmidi/internal/profile"
)

// run parses args as a usbmidi command line and runs the selected command,
// returning what it wrote to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, kong.Name(AppName), kong.Exit(func(int) {}))
	require.NoError(t, err)

	kctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	kctx.BindTo(context.Background(), (*context.Context)(nil))
	kctx.BindTo(&buf, (*io.Writer)(nil))
	err = kctx.Run()
	return buf.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDescriptors_Hex(t *testing.T) {
	out, err := run(t, "descriptors")
	require.NoError(t, err)

	for _, want := range []string{
		"# device (18 bytes)",
		"12 01 00 02 00 00 00 40 C0 16 E4 05 00 01 01 02 03 01",
		"# configuration (83 bytes)",
		"INTERFACE MIDIStreaming",
		"CS_INTERFACE HEADER",
		"MIDI_IN_JACK 1",
		"MIDI_IN_JACK 2",
		"MIDI_OUT_JACK 3",
		"MIDI_OUT_JACK 4",
		"ENDPOINT 0x02 OUT",
		"ENDPOINT 0x81 IN",
		"CS_ENDPOINT MS_GENERAL",
		"STRING LANGID",
		`STRING "usbmidi"`,
		`STRING "MIDI Streaming"`,
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "AudioControl")
	assert.NotContains(t, out, "\x1b[", "no color off a terminal")
}

func TestDescriptors_Raw(t *testing.T) {
	d, err := midi.Compose(midi.DefaultConfig())
	require.NoError(t, err)

	out, err := run(t, "descriptors", "--format=raw", "--which=config")
	require.NoError(t, err)
	assert.Equal(t, d.Configuration(), []byte(out))

	out, err = run(t, "descriptors", "--format=raw", "--which=device")
	require.NoError(t, err)
	assert.Equal(t, d.DeviceDescriptor(0), []byte(out))
}

func TestDescriptors_C(t *testing.T) {
	out, err := run(t, "descriptors", "--format=c", "--which=device")
	require.NoError(t, err)
	assert.Equal(t, "static const uint8_t device_descriptor[18] = {\n"+
		"\t0x12, 0x01, 0x00, 0x02, 0x00, 0x00, 0x00, 0x40, 0xC0, 0x16, 0xE4, 0x05, 0x00, 0x01, 0x01, 0x02, 0x03, 0x01, // DEVICE\n"+
		"};\n\n", out)

	out, err = run(t, "descriptors", "--format=c", "--which=strings")
	require.NoError(t, err)
	assert.Contains(t, out, "static const uint8_t string_0_descriptor[4] = {\n\t0x04, 0x03, 0x09, 0x04, // STRING LANGID\n")
}

func TestDescriptors_Color(t *testing.T) {
	out, err := run(t, "descriptors", "--which=device", "--color=always")
	require.NoError(t, err)
	assert.Contains(t, out, ansiHeader+"12 01"+ansiReset+" 00 02")

	out, err = run(t, "descriptors", "--which=device", "--color=never")
	require.NoError(t, err)
	assert.NotContains(t, out, "\x1b[")
}

func TestDescriptors_Profile(t *testing.T) {
	path := writeFile(t, "desk.yaml", "ports: 2\naudio_control: true\nport_names: [Synth, Drums]\n")

	out, err := run(t, "descriptors", "--profile", path, "--format=raw", "--which=config")
	require.NoError(t, err)
	assert.Len(t, out, midi.ConfigurationSize(2, true))

	out, err = run(t, "descriptors", "-p", path)
	require.NoError(t, err)
	assert.Contains(t, out, "INTERFACE AudioControl")
	assert.Contains(t, out, "MIDI_OUT_JACK 8")
	assert.Contains(t, out, `STRING "Synth"`)
	assert.Contains(t, out, `STRING "Drums"`)
}

func TestDescriptors_VendorNames(t *testing.T) {
	ids := writeFile(t, "usb.ids", "16c0  Van Ooijen Technische Informatica\n\t05e4  Free shared USB VID/PID pair for MIDI devices\n")

	out, err := run(t, "descriptors", "--which=device", "--usb-ids", ids)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out,
		"# 16C0:05E4 Van Ooijen Technische Informatica Free shared USB VID/PID pair for MIDI devices\n# device (18 bytes)\n"))

	// Names are only printed in hex form
	out, err = run(t, "descriptors", "--which=device", "--format=raw", "--usb-ids", ids)
	require.NoError(t, err)
	assert.Len(t, out, 18)
}

func TestDescriptors_Errors(t *testing.T) {
	_, err := run(t, "descriptors", "--format=xml")
	assert.Error(t, err)

	_, err = run(t, "descriptors", "--profile", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeFile(t, "bad.toml", "ports = 12\n")
	_, err = run(t, "descriptors", "--profile", path)
	assert.Error(t, err)
}

func TestSimulate_Default(t *testing.T) {
	out, err := run(t, "simulate")
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"init force-reinit",
		"enumerate",
		"  connected=true",
		`  16C0:05E4 "USB MIDI Interface", 83-byte configuration`,
		"out:09903c7f",
		"  rx 09 90 3c 7f",
		"in",
		"  ready",
		"  tx 09 90 3c 7f",
		"suspend",
		"resume",
		"unplug",
		"  connected=false",
		"state=Disconnected connected=false",
		"",
	}, "\n"), out)
}

func TestSimulate_NoEcho(t *testing.T) {
	out, err := run(t, "simulate", "--no-echo", "--events=enumerate,out:09903c7f,in")
	require.NoError(t, err)
	assert.Contains(t, out, "  rx 09 90 3c 7f\n")
	assert.Contains(t, out, "in\n  error: ")
	assert.True(t, strings.HasSuffix(out, "state=Configured connected=true\n"))
}

func TestSimulate_Send(t *testing.T) {
	out, err := run(t, "simulate", "--events=send:0bb00764,enumerate,send:0bb00764,send:0bb00764,in")
	require.NoError(t, err)
	assert.Contains(t, out, "send:0bb00764\n  error: ", "send before configuration")
	assert.Contains(t, out, "  tx 0b b0 07 64\n")
	assert.Equal(t, 2, strings.Count(out, "  error: "))
	assert.Contains(t, out, "[busy]", "second send while in flight")
}

func TestSimulate_PlugAfterUnplug(t *testing.T) {
	out, err := run(t, "simulate", "--events=enumerate,unplug,plug,enumerate")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "  connected=true"))
	assert.True(t, strings.HasSuffix(out, "state=Configured connected=true\n"))
}

func TestSimulate_Preserve(t *testing.T) {
	out, err := run(t, "simulate", "--mode=preserve", "--events=out:09903c7f,in")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "init preserve\n  connected=true\n"))
	assert.Contains(t, out, "  tx 09 90 3c 7f\n")

	out, err = run(t, "simulate", "--mode=preserve", "--no-session-active", "--events=plug,enumerate")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "state=Configured connected=true\n"))
}

func TestSimulate_Errors(t *testing.T) {
	_, err := run(t, "simulate", "--events=wiggle")
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = run(t, "simulate", "--events=init:sideways")
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = run(t, "simulate", "--events=enumerate,out:0g")
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = run(t, "simulate", "--mode=hard")
	assert.Error(t, err)
}

func TestShowProfile(t *testing.T) {
	out, err := run(t, "profile")
	require.NoError(t, err)
	p, err := profile.Decode(strings.NewReader(out), profile.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, profile.Default(), p)

	path := writeFile(t, "desk.yml", "ports: 3\nstrings:\n  serial: auto\n")
	out, err = run(t, "profile", "-p", path, "-o", "toml")
	require.NoError(t, err)
	p, err = profile.Decode(strings.NewReader(out), profile.FormatTOML)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Ports)
	assert.Len(t, p.Strings.Serial, profile.SerialLength, "serial resolved")
}

func TestShowVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, AppName+" "+Version+" "))
}

func TestConfigCandidatePaths(t *testing.T) {
	yamlPaths, tomlPaths := ConfigCandidatePaths("defaults.TOML")
	assert.Empty(t, yamlPaths)
	assert.Equal(t, []string{"defaults.TOML"}, tomlPaths)

	yamlPaths, tomlPaths = ConfigCandidatePaths("defaults.yml")
	assert.Equal(t, []string{"defaults.yml"}, yamlPaths)
	assert.Empty(t, tomlPaths)

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	yamlPaths, tomlPaths = ConfigCandidatePaths("")
	require.Len(t, yamlPaths, 2)
	require.Len(t, tomlPaths, 1)
	assert.Equal(t, filepath.Join(AppName, "config.yaml"), lastTwo(yamlPaths[0]))
	assert.Equal(t, filepath.Join(AppName, "config.toml"), lastTwo(tomlPaths[0]))
}

func lastTwo(path string) string {
	return filepath.Join(filepath.Base(filepath.Dir(path)), filepath.Base(path))
}
