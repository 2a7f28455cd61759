package simulator

import "math"

// Key is a cache key identifying one (tenant, item) pair across all tenants
type Key int64

// KeyCodec maps (tenant, item) pairs into one flat key space and back.
// Simulators only talk to this interface, never to the arithmetic behind it.
type KeyCodec interface {
	Encode(tenant, item int) Key
	Tenant(key Key) int
}

// ChooseMultiplier returns the smallest power of ten strictly greater than
// every key space size, starting at 10.
func ChooseMultiplier(keySpaceSizes []int) int64 {
	maxSize := 0
	for _, size := range keySpaceSizes {
		if size > maxSize {
			maxSize = size
		}
	}
	multiplier := int64(10)
	for multiplier <= int64(maxSize) {
		if multiplier > math.MaxInt64/10 {
			return math.MaxInt64
		}
		multiplier *= 10
	}
	return multiplier
}

// DecimalCodec encodes keys as tenant*Multiplier + item.
// Multiplier must exceed every tenant's key space size.
type DecimalCodec struct {
	Multiplier int64
}

// NewDecimalCodec creates a codec wide enough for the given key spaces
func NewDecimalCodec(keySpaceSizes []int) DecimalCodec {
	return DecimalCodec{Multiplier: ChooseMultiplier(keySpaceSizes)}
}

func (c DecimalCodec) Encode(tenant, item int) Key {
	return Key(int64(tenant)*c.Multiplier + int64(item))
}

func (c DecimalCodec) Tenant(key Key) int {
	return int(int64(key) / c.Multiplier)
}
