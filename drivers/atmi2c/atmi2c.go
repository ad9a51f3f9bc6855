// Package atmi2c drives the Atmosic on-chip I2C block in controller mode.
//
// The hardware executes one byte transaction at a time: software programs a
// descriptor (head framing, data byte, ACK bit, tail framing) into
// TRANSACTION_SETUP/OUTGOING_DATA, asserts GO, and polls TRANSACTION_STATUS
// until the engine stops. This driver stitches those byte transactions into
// generic multi-message transfers and also exposes the tinygo.org/x/drivers
// Tx surface so stock device drivers can sit on top of it.
//
// Polling mode only; no target mode, 10-bit addressing, high/ultra speed,
// or DMA.
package atmi2c

import (
	"runtime"
	"sync"

	"tinygo.org/x/drivers"

	"atmhal-go/diag"
	"atmhal-go/errcode"
	"atmhal-go/x/conv"
	"atmhal-go/x/mathx"
)

var _ drivers.I2C = (*Controller)(nil)

// Config word layout, mode bits plus a speed-tier sub-field.
const (
	Addr10Bits     uint32 = 1 << 0
	ModeController uint32 = 1 << 4

	speedShift = 1
	speedMask  = 0x7

	SpeedStandard uint32 = 1 // 100 kHz
	SpeedFast     uint32 = 2 // 400 kHz
	SpeedFastPlus uint32 = 3 // 1 MHz
	SpeedHigh     uint32 = 4 // not supported by this block
	SpeedUltra    uint32 = 5 // not supported by this block
)

// SpeedWord encodes a speed tier into its config-word sub-field.
func SpeedWord(tier uint32) uint32 { return (tier & speedMask) << speedShift }

func speedOf(word uint32) uint32 { return (word >> speedShift) & speedMask }

// speedHertz maps a speed tier to its bus frequency. Tiers the block cannot
// generate report !ok rather than a sentinel frequency.
func speedHertz(tier uint32) (uint32, bool) {
	switch tier {
	case SpeedStandard:
		return 100_000, true
	case SpeedFast:
		return 400_000, true
	case SpeedFastPlus:
		return 1_000_000, true
	default:
		return 0, false
	}
}

// speedFromHz picks the slowest tier that covers a board-declared bitrate.
func speedFromHz(hz uint32) uint32 {
	switch {
	case hz <= 100_000:
		return SpeedStandard
	case hz <= 400_000:
		return SpeedFast
	default:
		return SpeedFastPlus
	}
}

// Address direction bit, appended below the 7-bit target address.
const (
	dirWrite = 0
	dirRead  = 1
)

// MsgFlags carries the direction and framing flags of one Msg.
type MsgFlags uint8

const (
	MsgWrite MsgFlags = 0
	MsgRead  MsgFlags = 1 << 0
	MsgStop  MsgFlags = 1 << 1
)

func (f MsgFlags) isRead() bool { return f&MsgRead != 0 }
func (f MsgFlags) stop() bool   { return f&MsgStop != 0 }

// Msg is one unit of a transfer. The caller owns Buf for the duration of the
// call; reads fill it, writes consume it. A zero-length Buf is legal only for
// a write that also carries MsgStop (an address-only probe).
type Msg struct {
	Buf   []byte
	Flags MsgFlags
}

// PowerSeq is the power-sequencer collaborator on parts whose retention
// latch holds the I2C pads frozen after deep sleep. Nil when the variant has
// no such latch.
type PowerSeq interface {
	EnableClock()
	DisableClock()
	ClearI2CLatch()
}

// DefaultPollLimit bounds the completion poll of one byte transaction.
const DefaultPollLimit = 100_000

// Config is the frozen board-description record for one controller instance.
type Config struct {
	// Instance is the block number, used only in diagnostics.
	Instance int
	// Regs is the register backend (MMIO on hardware, a fake in tests).
	Regs Registers
	// SDAPullup enables the internal pull-up on the data pad.
	SDAPullup bool
	// ConfigurePins performs pin-mux and clock-gating setup. Re-invoked on
	// every reconfigure, so it must be idempotent. Nil means the pads are
	// owned elsewhere.
	ConfigurePins func()
	// Mode is the initial mode word; it must include ModeController.
	Mode uint32
	// Frequency is the board-default bus bitrate in hertz.
	Frequency uint32
	// BaseClock returns the peripheral input clock in hertz.
	BaseClock func() uint32
	// PollLimit overrides DefaultPollLimit when positive.
	PollLimit int
	// Pseq is the optional retention-latch collaborator.
	Pseq PowerSeq
	// Sink receives error/timeout diagnostics. Nil means diag.Discard.
	Sink diag.Sink
}

// Controller owns one I2C block. All exported methods are safe for
// concurrent use except Configure, which must not race an in-flight
// Transfer (board-level contract, matching the hardware's expectations).
type Controller struct {
	regs      Registers
	cfg       Config
	sink      diag.Sink
	pollLimit int

	mu   sync.Mutex // one in-flight transfer per instance
	word uint32     // last accepted mode+speed word
}

// New validates the board record, applies the initial configuration and
// returns the controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Regs == nil {
		return nil, &errcode.E{C: errcode.InvalidArgument, Op: "atmi2c.New", Msg: "nil register backend"}
	}
	if cfg.BaseClock == nil {
		return nil, &errcode.E{C: errcode.InvalidArgument, Op: "atmi2c.New", Msg: "nil base clock query"}
	}
	c := &Controller{
		regs:      cfg.Regs,
		cfg:       cfg,
		sink:      cfg.Sink,
		pollLimit: cfg.PollLimit,
	}
	if c.sink == nil {
		c.sink = diag.Discard
	}
	if c.pollLimit <= 0 {
		c.pollLimit = DefaultPollLimit
	}
	if err := c.Configure(cfg.Mode | SpeedWord(speedFromHz(cfg.Frequency))); err != nil {
		return nil, err
	}
	return c, nil
}

// Configure applies a mode+speed word. Target mode is not implemented, so
// the word must carry ModeController; a rejected word leaves the previous
// configuration untouched.
func (c *Controller) Configure(word uint32) error {
	if word&ModeController == 0 {
		c.sink.Log("i2c: target mode not supported")
		return errcode.Unsupported
	}
	c.word = word

	if c.cfg.ConfigurePins != nil {
		c.cfg.ConfigurePins()
	}

	// The retention latch keeps the pads frozen out of deep sleep; open it
	// under a scoped clock-enable bracket.
	if c.cfg.Pseq != nil {
		c.cfg.Pseq.EnableClock()
		c.cfg.Pseq.ClearI2CLatch()
		c.cfg.Pseq.DisableClock()
	}

	return c.setSpeed(speedOf(word))
}

func (c *Controller) setSpeed(tier uint32) error {
	hz, ok := speedHertz(tier)
	if !ok {
		c.sink.Log("i2c: speed tier not supported")
		return errcode.Unsupported
	}
	div := c.cfg.BaseClock()/(hz*4) - 1
	c.regs.SetClockControl(mathx.Clamp(div, 0, clkDivMask))
	return nil
}

// Transfer executes msgs against the 7-bit target address as one bus
// transaction, back to back without releasing the bus unless a message
// carries MsgStop. It blocks until any in-flight transfer on this instance
// completes, then until the bus work is done; the first failing message
// aborts the rest.
func (c *Controller) Transfer(msgs []Msg, addr uint16) error {
	if c.word&Addr10Bits != 0 {
		c.sink.Log("i2c: 10-bit addressing not supported")
		return errcode.Unsupported
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range msgs {
		var err error
		if msgs[i].Flags.isRead() {
			err = c.readMsg(addr, msgs[i])
		} else {
			err = c.writeMsg(addr, msgs[i], i == 0)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Tx implements drivers.I2C: a write of w followed, under a repeated start,
// by a read into r. Either slice may be empty; both empty probes the address.
func (c *Controller) Tx(addr uint16, w, r []byte) error {
	var msgs [2]Msg
	n := 0
	if len(w) > 0 || len(r) == 0 {
		m := Msg{Buf: w, Flags: MsgWrite}
		if len(r) == 0 {
			m.Flags |= MsgStop
		}
		msgs[n] = m
		n++
	}
	if len(r) > 0 {
		msgs[n] = Msg{Buf: r, Flags: MsgRead | MsgStop}
		n++
	}
	return c.Transfer(msgs[:n], addr)
}

// readMsg runs one read message: address phase, then ACK every byte except
// the last, which is NACKed to end the message and framed with STOP or
// RESTART depending on MsgStop.
func (c *Controller) readMsg(addr uint16, msg Msg) error {
	if len(msg.Buf) == 0 {
		c.sink.Log("i2c: zero-length read")
		return errcode.InvalidArgument
	}

	if err := c.outByte(headStart, addrByte(addr, dirRead), tailStall); err != nil {
		return err
	}

	last := len(msg.Buf) - 1
	for i := 0; i < last; i++ {
		b, err := c.inByte(false, tailStall)
		if err != nil {
			return err
		}
		msg.Buf[i] = b
	}

	t := tailRestart
	if msg.Flags.stop() {
		t = tailStop
	}
	b, err := c.inByte(true, t)
	if err != nil {
		return err
	}
	msg.Buf[last] = b
	return nil
}

// writeMsg runs one write message. Only the first message of a transfer
// carries the address phase; its tail is STOP for an address-only probe and
// STALL when a body follows.
func (c *Controller) writeMsg(addr uint16, msg Msg, first bool) error {
	if len(msg.Buf) == 0 && !msg.Flags.stop() {
		c.sink.Log("i2c: zero-length write without stop")
		return errcode.InvalidArgument
	}

	if first {
		t := tailStop
		if len(msg.Buf) > 0 {
			t = tailStall
		}
		if err := c.outByte(headStart, addrByte(addr, dirWrite), t); err != nil {
			return err
		}
	}
	if len(msg.Buf) == 0 {
		return nil
	}

	last := len(msg.Buf) - 1
	for i := 0; i < last; i++ {
		if err := c.outByte(headStall, msg.Buf[i], tailStall); err != nil {
			return err
		}
	}

	t := tailStall
	if msg.Flags.stop() {
		t = tailStop
	}
	return c.outByte(headStall, msg.Buf[last], t)
}

// addrByte masks addr to 7 bits and makes room for the direction bit.
func addrByte(addr uint16, dir byte) byte {
	return byte(addr&0x7F)<<1 | dir
}

// outByte drives one outgoing byte. The controller drives all 8 data bits,
// so DATA_OE is the bit inverse of the value.
func (c *Controller) outByte(h head, val byte, t tail) error {
	out := uint32(val) | uint32(^val)<<outOEShift
	if c.cfg.SDAPullup {
		out |= outPullup
	}
	c.regs.SetOutgoingData(out)

	c.regs.SetTransactionSetup(setupGo | setupAckToDrive | setupMaster |
		uint32(t)<<setupTailShift | uint32(h)<<setupHeadShift)

	if err := c.waitDone("write"); err != nil {
		return err
	}

	var err error
	if c.regs.TransactionStatus()&statusAckValue != 0 {
		err = errcode.BusNack
	}

	// Deassert GO.
	c.regs.SetTransactionSetup(setupMaster)
	return err
}

// inByte receives one byte, driving back the given ACK slot value. The head
// is always STALL: receiving continues a transaction the address phase
// started.
func (c *Controller) inByte(nack bool, t tail) (byte, error) {
	var out uint32
	if c.cfg.SDAPullup {
		out = outPullup
	}
	c.regs.SetOutgoingData(out)

	setup := setupGo | setupMasterAck | setupMaster |
		uint32(t)<<setupTailShift | uint32(headStall)<<setupHeadShift
	if nack {
		setup |= setupAckToDrive
	}
	c.regs.SetTransactionSetup(setup)

	if err := c.waitDone("read"); err != nil {
		return 0, err
	}

	b := byte(c.regs.IncomingData())

	// Deassert GO.
	c.regs.SetTransactionSetup(setupMaster)
	return b, nil
}

// waitDone polls until the engine stops running, yielding the processor each
// lap. Exceeding the poll ceiling clears the whole setup register so GO
// cannot stay asserted behind a wedged bus.
func (c *Controller) waitDone(op string) error {
	for i := 0; c.regs.TransactionStatus()&statusRunning != 0; i++ {
		if i > c.pollLimit {
			status := c.regs.TransactionStatus()
			c.regs.SetTransactionSetup(0)
			c.logTimeout(op, status)
			return errcode.BusTimeout
		}
		runtime.Gosched()
	}
	return nil
}

func (c *Controller) logTimeout(op string, status uint32) {
	var line [64]byte
	var num [20]byte
	b := append(line[:0], "i2c"...)
	b = append(b, conv.Utoa(num[:], uint64(c.cfg.Instance))...)
	b = append(b, ": "...)
	b = append(b, op...)
	b = append(b, " timed out status=0x"...)
	var h [8]byte
	b = append(b, conv.U32Hex(h[:], status)...)
	c.sink.Log(string(b))
}
