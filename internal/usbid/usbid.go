// Package usbid resolves vendor and product IDs to names using the usb.ids
// database shipped with most Linux distributions.
//
// Only vendor lines ("vvvv  Name") and the product lines nested under them
// ("\tpppp  Name") are read. Device class, language and HID sections end the
// vendor list and are skipped.
package usbid

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ardnew/usbmidi/pkg"
)

// DefaultPaths lists the standard locations of the database.
var DefaultPaths = []string{
	"/usr/share/hwdata/usb.ids",
	"/var/lib/usbutils/usb.ids",
	"/usr/share/misc/usb.ids",
}

// ErrNotFound indicates that none of the candidate database paths exist.
var ErrNotFound = errors.New("usb.ids database not found")

// Database maps vendor and product IDs to names. It is read-only once
// parsed and safe for concurrent use.
type Database struct {
	vendors  map[uint16]string
	products map[uint32]string
}

// Open parses the first database found among paths, or DefaultPaths when
// paths is empty.
func Open(paths ...string) (*Database, error) {
	if len(paths) == 0 {
		paths = DefaultPaths
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		defer f.Close()
		db, err := Parse(f)
		if err != nil {
			return nil, err
		}
		pkg.LogDebug(pkg.ComponentCLI, "usb.ids loaded", "path", path,
			"vendors", len(db.vendors), "products", len(db.products))
		return db, nil
	}
	return nil, ErrNotFound
}

// Parse reads a database in usb.ids format from r.
func Parse(r io.Reader) (*Database, error) {
	db := &Database{
		vendors:  make(map[uint16]string),
		products: make(map[uint32]string),
	}

	var vid uint16
	inVendor := false
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}
		if line[0] == '\t' {
			if !inVendor || strings.HasPrefix(line, "\t\t") {
				continue
			}
			if pid, name, ok := entry(line[1:]); ok {
				db.products[key(vid, pid)] = name
			}
			continue
		}
		id, name, ok := entry(line)
		inVendor = ok
		if ok {
			vid = id
			db.vendors[vid] = name
		}
	}
	return db, scanner.Err()
}

// entry splits "xxxx  Name" into its hex ID and name.
func entry(line string) (uint16, string, bool) {
	if len(line) < 6 || line[4] != ' ' {
		return 0, "", false
	}
	id, err := strconv.ParseUint(line[:4], 16, 16)
	if err != nil {
		return 0, "", false
	}
	return uint16(id), strings.TrimSpace(line[5:]), true
}

func key(vid, pid uint16) uint32 { return uint32(vid)<<16 | uint32(pid) }

// Vendor returns the name of vid, or "" when unknown.
func (db *Database) Vendor(vid uint16) string {
	return db.vendors[vid]
}

// Product returns the name of pid under vid, or "" when unknown.
func (db *Database) Product(vid, pid uint16) string {
	return db.products[key(vid, pid)]
}

// Describe returns "vvvv:pppp Vendor Product", omitting unknown names.
func (db *Database) Describe(vid, pid uint16) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%04X:%04X", vid, pid)
	for _, name := range []string{db.Vendor(vid), db.Product(vid, pid)} {
		if name != "" {
			sb.WriteByte(' ')
			sb.WriteString(name)
		}
	}
	return sb.String()
}
