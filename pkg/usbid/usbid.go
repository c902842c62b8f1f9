package usbid

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// DefaultPaths lists the standard locations for the USB ID database.
var DefaultPaths = []string{
	"/usr/share/hwdata/usb.ids",
	"/var/lib/usbutils/usb.ids",
	"/usr/share/misc/usb.ids",
	"/usr/local/share/usb.ids",
}

// builtin covers the devices stkctl looks for even without usb.ids.
var builtin = map[uint16]vendor{
	0x03EB: {
		name: "Atmel Corp.",
		products: map[uint16]string{
			0x2104: "AVR ISP mkII",
			0x2106: "STK600 development board",
			0x206C: "LUFA Bulk Vendor Demo",
		},
	},
}

type vendor struct {
	name     string
	products map[uint16]string
}

// Database maps vendor and product IDs to names.
type Database struct {
	mu      sync.RWMutex
	vendors map[uint16]vendor
	source  string
}

// Load reads the first database found in [DefaultPaths]. When none is
// present the returned database knows only the built-in entries.
func Load() *Database {
	return LoadFrom(DefaultPaths...)
}

// LoadFrom reads the first readable file among paths.
func LoadFrom(paths ...string) *Database {
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		db, err := Parse(f)
		f.Close()
		if err != nil {
			continue
		}
		db.source = path
		return db
	}
	return Builtin()
}

// Builtin returns a database holding only the built-in entries.
func Builtin() *Database {
	db := &Database{vendors: make(map[uint16]vendor)}
	db.merge()
	return db
}

// Parse reads the usb.ids format from r. Built-in entries fill in IDs the
// file does not name.
func Parse(r io.Reader) (*Database, error) {
	db := &Database{vendors: make(map[uint16]vendor)}

	scanner := bufio.NewScanner(r)
	var current uint16
	inVendors := true

	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		if line[0] != '\t' {
			// "C 00  ..." opens the class section; vendors come first.
			id, name, ok := splitEntry(line)
			if !ok {
				inVendors = false
				continue
			}
			inVendors = true
			current = id
			db.vendors[id] = vendor{name: name, products: make(map[uint16]string)}
			continue
		}

		if !inVendors || strings.HasPrefix(line, "\t\t") {
			continue
		}
		id, name, ok := splitEntry(line[1:])
		if !ok {
			continue
		}
		if v, found := db.vendors[current]; found {
			v.products[id] = name
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	db.merge()
	return db, nil
}

// splitEntry parses "xxxx  Name".
func splitEntry(line string) (uint16, string, bool) {
	if len(line) < 6 || line[4] != ' ' {
		return 0, "", false
	}
	id, err := strconv.ParseUint(line[:4], 16, 16)
	if err != nil {
		return 0, "", false
	}
	return uint16(id), strings.TrimLeft(line[5:], " "), true
}

func (db *Database) merge() {
	for id, bv := range builtin {
		v, ok := db.vendors[id]
		if !ok {
			v = vendor{name: bv.name, products: make(map[uint16]string)}
			db.vendors[id] = v
		}
		for pid, name := range bv.products {
			if _, ok := v.products[pid]; !ok {
				v.products[pid] = name
			}
		}
	}
}

// Source returns the file the database was read from, or "" for the
// built-in table.
func (db *Database) Source() string {
	return db.source
}

// Vendor returns the vendor name for vid, or "".
func (db *Database) Vendor(vid uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.vendors[vid].name
}

// Product returns the product name for vid:pid, or "".
func (db *Database) Product(vid, pid uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.vendors[vid].products[pid]
}

// Name returns "Vendor Product", falling back to hex IDs for unknown parts.
func (db *Database) Name(vid, pid uint16) string {
	v := db.Vendor(vid)
	if v == "" {
		v = fmt.Sprintf("%04x", vid)
	}
	p := db.Product(vid, pid)
	if p == "" {
		p = fmt.Sprintf("%04x", pid)
	}
	return v + " " + p
}

// Len returns the number of known vendors.
func (db *Database) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.vendors)
}
