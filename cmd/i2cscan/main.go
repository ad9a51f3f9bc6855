//go:build tinygo

// i2cscan probes every 7-bit address on i2c0 with an address-only write and
// prints the responders, in the spirit of i2cdetect. Flash it to an eval
// board for bring-up.
package main

import (
	"time"

	"atmhal-go/diag"
	"atmhal-go/drivers/atmi2c"
	"atmhal-go/x/conv"
)

// Peripheral input clock on the eval board.
const baseClockHz = 16_000_000

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)

	ctrl, err := atmi2c.New(atmi2c.Config{
		Instance:  0,
		Regs:      atmi2c.MMIO(atmi2c.I2C0Base),
		SDAPullup: true,
		Mode:      atmi2c.ModeController,
		Frequency: 100_000,
		BaseClock: func() uint32 { return baseClockHz },
		Sink:      diag.Console,
	})
	if err != nil {
		println("i2cscan: init failed:", err.Error())
		return
	}

	println("i2cscan: probing 0x08..0x77")
	found := 0
	for addr := uint16(0x08); addr <= 0x77; addr++ {
		if ctrl.Tx(addr, nil, nil) != nil {
			continue
		}
		var h [2]byte
		println("  device at 0x" + string(conv.U8Hex(h[:], byte(addr))))
		found++
	}
	if found == 0 {
		println("i2cscan: no devices found")
	}
}
