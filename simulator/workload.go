package simulator

import (
	"math"
	"math/rand"
)

// Tenant is one simulated workload. Index is 1-based.
type Tenant struct {
	Index             int     `json:"index"`
	CallRate          float64 `json:"callRate"`          // Relative rate as configured
	NormalizedRate    float64 `json:"normalizedRate"`    // CallRate / min(CallRate); the least active tenant has 1
	KeySpaceSize      int     `json:"keySpaceSize"`      // Distinct items the tenant references
	DedicatedCapacity int     `json:"dedicatedCapacity"` // Capacity of its standalone cache
	Calls             int     `json:"calls"`             // Accesses generated for the tenant
}

// NormalizeCallRates divides every rate by the smallest one
func NormalizeCallRates(rates []float64) []float64 {
	minRate := minFloat(rates)
	normalized := make([]float64, len(rates))
	for i, rate := range rates {
		normalized[i] = rate / minRate
	}
	return normalized
}

// ApportionCalls returns round(normalized rate * minCalls) for every tenant,
// so the least active tenant issues exactly minCalls accesses.
func ApportionCalls(rates []float64, minCalls int) []int {
	normalized := NormalizeCallRates(rates)
	calls := make([]int, len(rates))
	for i, rate := range normalized {
		calls[i] = int(math.Round(rate * float64(minCalls)))
	}
	return calls
}

// NewTenants builds the tenants of a validated configuration
func NewTenants(config SimConfig) []Tenant {
	normalized := NormalizeCallRates(config.CallRates)
	calls := ApportionCalls(config.CallRates, config.MinTenantCalls)
	tenants := make([]Tenant, config.Tenants)
	for i := range tenants {
		t := i + 1
		tenants[i] = Tenant{
			Index:             t,
			CallRate:          config.CallRates[i],
			NormalizedRate:    normalized[i],
			KeySpaceSize:      config.KeySpaceSizeFor(t),
			DedicatedCapacity: config.CapacityFor(t),
			Calls:             calls[i],
		}
	}
	return tenants
}

// WorkloadGenerator produces call sequences of encoded keys
type WorkloadGenerator struct {
	codec        KeyCodec
	dist         KeyDistribution
	zipfExponent float64
	rng          *rand.Rand
}

// NewWorkloadGenerator creates a generator drawing from rng
func NewWorkloadGenerator(codec KeyCodec, dist KeyDistribution, zipfExponent float64, rng *rand.Rand) *WorkloadGenerator {
	return &WorkloadGenerator{
		codec:        codec,
		dist:         dist,
		zipfExponent: zipfExponent,
		rng:          rng,
	}
}

// Generate draws numCalls items from the tenant's key space and returns
// their encoded keys in generation order.
func (g *WorkloadGenerator) Generate(tenant Tenant, numCalls int) []Key {
	sampler := NewKeySampler(g.dist, g.zipfExponent, g.rng, tenant.KeySpaceSize)
	calls := make([]Key, numCalls)
	for i := range calls {
		calls[i] = g.codec.Encode(tenant.Index, sampler.Next())
	}
	return calls
}

// Interleave concatenates the sequences and applies a uniform random
// permutation, emulating tenants issuing calls concurrently.
// The input sequences are not modified.
func Interleave(sequences [][]Key, rng *rand.Rand) []Key {
	total := 0
	for _, seq := range sequences {
		total += len(seq)
	}
	stream := make([]Key, 0, total)
	for _, seq := range sequences {
		stream = append(stream, seq...)
	}
	rng.Shuffle(len(stream), func(i, j int) {
		stream[i], stream[j] = stream[j], stream[i]
	})
	return stream
}
