package vartable

import "math"

func float32FromUint32(bits uint32) float32 { return math.Float32frombits(bits) }
func float32Bits(f float32) uint32          { return math.Float32bits(f) }
func float64FromBits(raw int64) float64     { return math.Float64frombits(uint64(raw)) }
func float64Bits(f float64) uint64          { return math.Float64bits(f) }
