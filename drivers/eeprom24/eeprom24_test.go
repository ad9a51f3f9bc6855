package eeprom24

import (
	"bytes"
	"io"
	"testing"

	"tinygo.org/x/drivers"
)

// Compile-time check.
var _ drivers.I2C = (*fakeEEPROM)(nil)

// fakeEEPROM is a page-verifying 24Cxx model based at AddressDefault: writes
// that cross a physical page boundary inside one transaction fail the test,
// which is exactly the corruption a real part would commit silently.
type fakeEEPROM struct {
	t        *testing.T
	mem      []byte
	pagesize uint
	txCount  int
}

func newFakeEEPROM(t *testing.T, cfg Config) *fakeEEPROM {
	f := &fakeEEPROM{t: t, mem: make([]byte, cfg.Size), pagesize: cfg.PageSize}
	for i := range f.mem {
		f.mem[i] = 0x24
	}
	return f
}

func (f *fakeEEPROM) Tx(addr uint16, w, r []byte) error {
	f.txCount++
	if len(w) == 0 {
		f.t.Errorf("transaction without memory pointer")
		return nil
	}
	mem := (uint(addr-AddressDefault) << 8) | uint(w[0])

	page := mem &^ (f.pagesize - 1)
	for _, b := range w[1:] {
		if mem&^(f.pagesize-1) != page {
			f.t.Errorf("write crossed page boundary %#04x -> %#04x", page, mem&^(f.pagesize-1))
		}
		f.mem[mem%uint(len(f.mem))] = b
		mem++
	}
	for i := range r {
		r[i] = f.mem[mem%uint(len(f.mem))]
		mem++
	}
	return nil
}

func TestWriteReadRoundTrip(t *testing.T) {
	cfg := Conf24C04
	cfg.WriteDelay = 0 // keep the test fast
	fake := newFakeEEPROM(t, cfg)
	d, err := New(fake, AddressDefault, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Unaligned start, spans pages and the 256-byte block boundary.
	payload := make([]byte, 300)
	for i := range payload {
		payload[i] = byte(i)
	}
	if _, err := d.Seek(13, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	n, err := d.Write(payload)
	if err != nil || n != len(payload) {
		t.Fatalf("Write = %d, %v", n, err)
	}

	if _, err := d.Seek(13, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	got := make([]byte, len(payload))
	if _, err := io.ReadFull(d, got); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch")
	}
}

func TestReadEOF(t *testing.T) {
	cfg := Conf24C02
	cfg.WriteDelay = 0
	fake := newFakeEEPROM(t, cfg)
	d, err := New(fake, 0, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := d.Seek(-3, io.SeekEnd); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([]byte, 16)
	n, err := d.Read(buf)
	if n != 3 {
		t.Fatalf("Read = %d, want 3", n)
	}
	if err != nil && err != io.EOF {
		t.Fatalf("Read: %v", err)
	}
	if n, err = d.Read(buf); n != 0 || err != io.EOF {
		t.Fatalf("Read past end = %d, %v, want 0, EOF", n, err)
	}
}

func TestWriteEOF(t *testing.T) {
	cfg := Conf24C02
	cfg.WriteDelay = 0
	fake := newFakeEEPROM(t, cfg)
	d, err := New(fake, 0, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := d.Seek(-4, io.SeekEnd); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	n, err := d.Write(make([]byte, 10))
	if n != 4 || err != io.EOF {
		t.Fatalf("Write = %d, %v, want 4, EOF", n, err)
	}
}

func TestSeekBounds(t *testing.T) {
	cfg := Conf24C02
	fake := newFakeEEPROM(t, cfg)
	d, err := New(fake, 0, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := d.Seek(-1, io.SeekStart); err == nil {
		t.Errorf("negative position accepted")
	}
	if _, err := d.Seek(1, io.SeekEnd); err == nil {
		t.Errorf("position past array accepted")
	}
	if pos, err := d.Seek(0, io.SeekEnd); err != nil || pos != int64(cfg.Size) {
		t.Errorf("Seek end = %d, %v", pos, err)
	}
}

func TestNewValidation(t *testing.T) {
	fake := newFakeEEPROM(t, Conf24C02)
	if _, err := New(fake, 0, Config{Size: 256, PageSize: 6}); err == nil {
		t.Errorf("non-power-of-two page accepted")
	}
	if _, err := New(fake, 0, Config{Size: 4096, PageSize: 32}); err == nil {
		t.Errorf("two-byte-pointer part accepted")
	}
}
