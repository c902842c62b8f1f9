package usbid

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `# usb.ids excerpt
03eb  Atmel Corp.
	2104  AVR ISP mkII
	2ffb  at90usb AVR DFU bootloader
		00  interface line
1d50  OpenMoko, Inc.
	6018  Black Magic Debug Probe (Application)

C 00  (Defined at Interface level)
	01  Audio
`

func TestParse(t *testing.T) {
	db, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	tests := []struct {
		vid, pid uint16
		want     string
	}{
		{0x03EB, 0x2104, "Atmel Corp. AVR ISP mkII"},
		{0x03EB, 0x2FFB, "Atmel Corp. at90usb AVR DFU bootloader"},
		{0x03EB, 0x206C, "Atmel Corp. LUFA Bulk Vendor Demo"},
		{0x1D50, 0x6018, "OpenMoko, Inc. Black Magic Debug Probe (Application)"},
		{0x1D50, 0x0001, "OpenMoko, Inc. 0001"},
		{0xBEEF, 0xCAFE, "beef cafe"},
	}

	for _, tt := range tests {
		if got := db.Name(tt.vid, tt.pid); got != tt.want {
			t.Errorf("Name(%04x, %04x) = %q, want %q", tt.vid, tt.pid, got, tt.want)
		}
	}
}

func TestParseSkipsClasses(t *testing.T) {
	db, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := db.Product(0x1D50, 0x0001); got != "" {
		t.Errorf("class entry leaked into vendor table: %q", got)
	}
	if got := db.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestLoadFrom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usb.ids")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	db := LoadFrom("/nonexistent/usb.ids", path)
	if db.Source() != path {
		t.Errorf("Source() = %q, want %q", db.Source(), path)
	}
	if got := db.Vendor(0x1D50); got != "OpenMoko, Inc." {
		t.Errorf("Vendor(1d50) = %q", got)
	}
}

func TestLoadFromMissing(t *testing.T) {
	db := LoadFrom("/nonexistent/usb.ids")
	if db.Source() != "" {
		t.Errorf("Source() = %q, want built-in", db.Source())
	}
	if got := db.Name(0x03EB, 0x206C); got != "Atmel Corp. LUFA Bulk Vendor Demo" {
		t.Errorf("Name() = %q", got)
	}
}
