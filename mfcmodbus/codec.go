package mfcmodbus

import "math"

// EncodeFloat32 splits the IEEE-754 big-endian bit pattern of value into a
// (high, low) register pair. Defined for all finite and non-finite float bit
// patterns.
func EncodeFloat32(value float32) (hi, lo uint16) {
	bits := math.Float32bits(value)
	return uint16(bits >> 16), uint16(bits)
}

// DecodeFloat32 reassembles the 32-bit pattern (hi << 16) | lo and
// reinterprets it as an IEEE-754 float. It is the bit-exact inverse of
// EncodeFloat32.
func DecodeFloat32(hi, lo uint16) float32 {
	return math.Float32frombits(uint32(hi)<<16 | uint32(lo))
}
