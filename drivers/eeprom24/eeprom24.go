// Package eeprom24 drives 24Cxx-style serial EEPROMs over any
// tinygo.org/x/drivers I2C bus and presents the array as an
// io.ReadWriteSeeker.
//
// Parts up to 2 kbit fold the upper bits of the memory pointer into the
// device address (one extra address per 256-byte block); writes are bounded
// to one physical page per bus transaction and followed by the part's
// self-timed write delay.
package eeprom24

import (
	"io"
	"time"

	"tinygo.org/x/drivers"

	"atmhal-go/errcode"
	"atmhal-go/x/mathx"
)

// AddressDefault is the base 7-bit address with A2..A0 strapped low.
const AddressDefault = 0x50

// Config describes one EEPROM part.
type Config struct {
	Size       uint // array size in bytes
	PageSize   uint // write page size in bytes, power of two
	WriteDelay time.Duration
}

// Common parts.
var (
	Conf24C02 = Config{Size: 256, PageSize: 8, WriteDelay: 5 * time.Millisecond}
	Conf24C04 = Config{Size: 512, PageSize: 16, WriteDelay: 5 * time.Millisecond}
	Conf24C16 = Config{Size: 2048, PageSize: 16, WriteDelay: 5 * time.Millisecond}
)

// Device is one EEPROM with a seekable memory pointer.
type Device struct {
	bus  drivers.I2C
	addr uint16
	cfg  Config
	p    uint

	// Fixed write buffer: pointer byte plus one page.
	w []byte
}

var _ io.ReadWriteSeeker = (*Device)(nil)

// New validates the part description and returns the device. The bus must
// already be configured.
func New(bus drivers.I2C, addr uint16, cfg Config) (*Device, error) {
	if addr == 0 {
		addr = AddressDefault
	}
	if cfg.Size == 0 || cfg.PageSize == 0 || cfg.PageSize&(cfg.PageSize-1) != 0 {
		return nil, &errcode.E{C: errcode.InvalidArgument, Op: "eeprom24.New", Msg: "bad size/page configuration"}
	}
	if cfg.Size > 2048 {
		// Larger parts use a two-byte memory pointer this driver does not speak.
		return nil, &errcode.E{C: errcode.Unsupported, Op: "eeprom24.New", Msg: "array larger than 2 kbit x8"}
	}
	return &Device{
		bus:  bus,
		addr: addr,
		cfg:  cfg,
		w:    make([]byte, 1+cfg.PageSize),
	}, nil
}

// blockAddr returns the device address for the 256-byte block holding p.
func (d *Device) blockAddr(p uint) uint16 {
	return d.addr + uint16(p>>8)
}

// Read fills b from the current pointer, stopping at the end of the array
// with io.EOF.
func (d *Device) Read(b []byte) (int, error) {
	end := mathx.Min(d.p+uint(len(b)), d.cfg.Size)
	if end == d.p {
		if len(b) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}

	rb := b[:end-d.p]
	ptr := [1]byte{byte(d.p)}
	if err := d.bus.Tx(d.blockAddr(d.p), ptr[:], rb); err != nil {
		return 0, err
	}
	d.p = end
	return len(rb), nil
}

// Write stores b at the current pointer, splitting on page boundaries and
// waiting out the self-timed write cycle after each page. A short count with
// io.EOF is returned when the array ends first.
func (d *Device) Write(b []byte) (int, error) {
	written := 0
	for len(b) > 0 && d.p < d.cfg.Size {
		inPage := d.p & (d.cfg.PageSize - 1)
		n := mathx.Min(uint(len(b)), d.cfg.PageSize-inPage)
		n = mathx.Min(n, d.cfg.Size-d.p)

		wb := append(d.w[:0], byte(d.p))
		wb = append(wb, b[:n]...)
		if err := d.bus.Tx(d.blockAddr(d.p), wb, nil); err != nil {
			return written, err
		}
		time.Sleep(d.cfg.WriteDelay)

		d.p += n
		b = b[n:]
		written += int(n)
	}
	if len(b) > 0 {
		return written, io.EOF
	}
	return written, nil
}

// Seek moves the memory pointer.
func (d *Device) Seek(offset int64, whence int) (int64, error) {
	var np int64
	switch whence {
	case io.SeekStart:
		np = offset
	case io.SeekCurrent:
		np = int64(d.p) + offset
	case io.SeekEnd:
		np = int64(d.cfg.Size) + offset
	default:
		return int64(d.p), &errcode.E{C: errcode.InvalidArgument, Op: "eeprom24.Seek", Msg: "invalid whence"}
	}
	if np < 0 || np > int64(d.cfg.Size) {
		return int64(d.p), &errcode.E{C: errcode.InvalidArgument, Op: "eeprom24.Seek", Msg: "position outside array"}
	}
	d.p = uint(np)
	return np, nil
}
