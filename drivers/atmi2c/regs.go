package atmi2c

// Registers is the access surface over one I2C block. The hardware state
// machine is driven entirely through whole-register writes (no
// read-modify-write), which keeps this interface small and makes a scripted
// software backend trivial to provide for host testing. The real
// memory-mapped backend lives behind the tinygo build tag.
type Registers interface {
	SetOutgoingData(v uint32)
	SetTransactionSetup(v uint32)
	TransactionStatus() uint32
	IncomingData() uint32
	SetClockControl(v uint32)
}

// Head framing of one byte transaction: issue a START, or hold the bus
// (STALL) to continue a transaction already in flight.
type head uint32

const (
	headStart head = 0
	headStall head = 1
)

// Tail framing: release the bus (STOP), hold it for the next byte (STALL),
// or issue a repeated START without releasing it (RESTART).
type tail uint32

const (
	tailStop    tail = 0
	tailStall   tail = 1
	tailRestart tail = 2
)

// TRANSACTION_SETUP fields. Writing GO executes the descriptor currently
// programmed into the register.
const (
	setupGo         = 1 << 0
	setupTailShift  = 1
	setupHeadShift  = 3
	setupAckToDrive = 1 << 4 // ACK is active low: 1 drives NACK
	setupMasterAck  = 1 << 5 // controller drives the ACK slot (receive path)
	setupMaster     = 1 << 6 // act as controller
)

// TRANSACTION_STATUS fields.
const (
	statusRunning  = 1 << 0
	statusAckValue = 1 << 1 // active low: set means the target did not ACK
)

// OUTGOING_DATA fields. DATA_OE is a per-bit output enable; the controller
// drives every bit it transmits and none while receiving.
const (
	outOEShift = 8
	outPullup  = 1 << 16
)

// CLOCK_CONTROL divider field width.
const clkDivMask = 0xFFFF
