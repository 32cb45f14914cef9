package mfcmodbus

// Device register map. Each telemetry value is an IEEE-754 float spread over
// a pair of consecutive registers.
const (
	regSetpoint       uint16 = 1349 // holding pair, read-write
	regValveDrive     uint16 = 1351
	regPressure       uint16 = 1353
	regTemperature    uint16 = 1359
	regVolumetricFlow uint16 = 1361
	regMassFlow       uint16 = 1363

	// Telemetry block covering all six float pairs in one input-register
	// read.
	blockStart uint16 = 1349
	blockLen   uint16 = 16

	// PID access: the control pair accepts [opcode, operand] words, the
	// result register holds the most recently selected gain value.
	regPIDControl uint16 = 999
	regPIDResult  uint16 = 1000

	regPairLen uint16 = 2
)

// Word offsets of the float pairs inside the telemetry block.
const (
	offSetpoint       = 0
	offValveDrive     = 2
	offPressure       = 4
	offTemperature    = 10
	offVolumetricFlow = 12
	offMassFlow       = 14
)

// Opcodes accepted by the PID control pair.
const (
	opSelectSlot uint16 = 14 // operand: slot index 0..2 (P, D, I)
	opSetP       uint16 = 8  // operand: new P gain
	opSetD       uint16 = 9  // operand: new D gain
	opSetI       uint16 = 10 // operand: new I gain
)
