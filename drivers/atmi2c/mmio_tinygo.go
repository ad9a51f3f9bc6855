//go:build tinygo

package atmi2c

import (
	"runtime/volatile"
	"unsafe"
)

// Register block layout of the APB I2C core.
type regBlock struct {
	transactionSetup  volatile.Register32
	transactionStatus volatile.Register32
	outgoingData      volatile.Register32
	incomingData      volatile.Register32
	clockControl      volatile.Register32
}

// Instance base addresses on the APB bridge.
const (
	I2C0Base uintptr = 0x4000_3000
	I2C1Base uintptr = 0x4000_3400
)

// MMIO returns a register backend over the peripheral at base.
func MMIO(base uintptr) Registers {
	return &mmio{r: (*regBlock)(unsafe.Pointer(base))}
}

type mmio struct {
	r *regBlock
}

func (m *mmio) SetOutgoingData(v uint32)     { m.r.outgoingData.Set(v) }
func (m *mmio) SetTransactionSetup(v uint32) { m.r.transactionSetup.Set(v) }
func (m *mmio) TransactionStatus() uint32    { return m.r.transactionStatus.Get() }
func (m *mmio) IncomingData() uint32         { return m.r.incomingData.Get() }
func (m *mmio) SetClockControl(v uint32)     { m.r.clockControl.Set(v) }
