package vm

import "math"

// float64FromBits decodes an IEEE-754 double from its raw bits, matching
// the little-endian encoding image.go reads for NUM constants.
func float64FromBits(bits uint64) float64 {
	return math.Float64frombits(bits)
}

func float64ToBits(f float64) uint64 {
	return math.Float64bits(f)
}
