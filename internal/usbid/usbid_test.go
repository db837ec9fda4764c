package usbid

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `#
# List of USB ID's
#
16c0  Van Ooijen Technische Informatica
	05e4  Free shared USB VID/PID pair for MIDI devices
	05dc  shared ID for use with libusb
1209  Generic
	0001  pid.codes Test PID
		00  interface line
zzzz  Not a vendor
	beef  Orphan product
C 01  Audio
	01  Control Device
`

func TestParse(t *testing.T) {
	db, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, "Van Ooijen Technische Informatica", db.Vendor(0x16C0))
	assert.Equal(t, "Free shared USB VID/PID pair for MIDI devices", db.Product(0x16C0, 0x05E4))
	assert.Equal(t, "pid.codes Test PID", db.Product(0x1209, 0x0001))
	assert.Empty(t, db.Product(0x1209, 0x0002))
	assert.Empty(t, db.Vendor(0xFFFF))

	assert.Len(t, db.vendors, 2)
	assert.Len(t, db.products, 3, "class section and orphans skipped")
}

func TestDatabase_Describe(t *testing.T) {
	db, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, "16C0:05E4 Van Ooijen Technische Informatica Free shared USB VID/PID pair for MIDI devices",
		db.Describe(0x16C0, 0x05E4))
	assert.Equal(t, "1209:0042 Generic", db.Describe(0x1209, 0x0042))
	assert.Equal(t, "ABCD:0001", db.Describe(0xABCD, 0x0001))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "usb.ids")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	db, err := Open(filepath.Join(dir, "missing.ids"), path)
	require.NoError(t, err)
	assert.Equal(t, "Generic", db.Vendor(0x1209))

	_, err = Open(filepath.Join(dir, "missing.ids"))
	assert.ErrorIs(t, err, ErrNotFound)
}
