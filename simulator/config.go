package simulator

import (
	"fmt"
	"math"
)

// MinTenantCallsFloor is the smallest accepted MinTenantCalls
const MinTenantCallsFloor = 10

// SimConfig holds all simulation parameters.
// KeySpaceSizes and DedicatedCapacities accept one value for every tenant or a
// single value broadcast to all tenants.
type SimConfig struct {
	// Tenants
	Tenants   int       `json:"tenants" yaml:"tenants"`     // Number of co-located tenants (>= 1)
	CallRates []float64 `json:"callRates" yaml:"callRates"` // Relative call rate per tenant (> 0)

	// Workload
	MinTenantCalls  int             `json:"minTenantCalls" yaml:"minTenantCalls"`             // Calls issued by the least active tenant (>= 10)
	KeySpaceSizes   []int           `json:"keySpaceSizes" yaml:"keySpaceSizes"`               // Distinct items per tenant
	KeyDistribution KeyDistribution `json:"keyDistribution" yaml:"keyDistribution"`           // How items are drawn from a key space
	ZipfExponent    float64         `json:"zipfExponent,omitempty" yaml:"zipfExponent,omitempty"` // s parameter for zipf (> 1)

	// Caches
	DedicatedCapacities []int `json:"dedicatedCapacities" yaml:"dedicatedCapacities"` // Standalone cache capacity per tenant; the shared cache gets the sum

	// Simulation Control
	RecordingPeriod int   `json:"recordingPeriod" yaml:"recordingPeriod"` // Co-located calls between metric snapshots (>= 1)
	RandomSeed      int64 `json:"randomSeed" yaml:"randomSeed"`           // Random seed for reproducibility (0 = random seed)
}

// DefaultConfig returns the defaults of the command line tool
func DefaultConfig() SimConfig {
	return SimConfig{
		Tenants:             1,
		CallRates:           []float64{1.0},
		MinTenantCalls:      10000,
		KeySpaceSizes:       []int{100},
		KeyDistribution:     KeyDistUniform,
		DedicatedCapacities: []int{80},
		RecordingPeriod:     100,
		RandomSeed:          0,
	}
}

// Validate checks that the configuration can be simulated
func (c *SimConfig) Validate() error {
	if c.Tenants < 1 {
		return ErrInvalidConfig(fmt.Sprintf("tenants must be >= 1, got %d", c.Tenants))
	}
	if len(c.CallRates) != c.Tenants {
		return ErrInvalidConfig(fmt.Sprintf("expected %d call rates, got %d", c.Tenants, len(c.CallRates)))
	}
	for i, rate := range c.CallRates {
		if !(rate > 0) || math.IsInf(rate, 1) {
			return ErrInvalidConfig(fmt.Sprintf("call rate of tenant #%d must be a positive number, got %v", i+1, rate))
		}
	}
	if c.MinTenantCalls < MinTenantCallsFloor {
		return ErrInvalidConfig(fmt.Sprintf("minTenantCalls must be >= %d, got %d", MinTenantCallsFloor, c.MinTenantCalls))
	}
	if err := validatePerTenant("keySpaceSizes", c.KeySpaceSizes, c.Tenants); err != nil {
		return err
	}
	if err := validatePerTenant("dedicatedCapacities", c.DedicatedCapacities, c.Tenants); err != nil {
		return err
	}
	if c.RecordingPeriod < 1 {
		return ErrInvalidConfig(fmt.Sprintf("recordingPeriod must be >= 1, got %d", c.RecordingPeriod))
	}
	if c.KeyDistribution != KeyDistUniform && c.KeyDistribution != KeyDistZipf {
		return ErrInvalidConfig(fmt.Sprintf("unsupported key distribution %s", c.KeyDistribution))
	}
	if c.KeyDistribution == KeyDistZipf && c.ZipfExponent != 0 &&
		(!(c.ZipfExponent > 1) || math.IsInf(c.ZipfExponent, 0)) {
		return ErrInvalidConfig(fmt.Sprintf("zipfExponent must be a finite number > 1, got %v", c.ZipfExponent))
	}

	// The shared cache holds every dedicated capacity at once
	total := 0
	for t := 1; t <= c.Tenants; t++ {
		capacity := c.CapacityFor(t)
		if capacity > math.MaxInt-total {
			return ErrInvalidConfig(fmt.Sprintf("dedicatedCapacities overflow the shared cache capacity at tenant #%d", t))
		}
		total += capacity
	}

	// The largest encoded key is Tenants*M + (M-1); it must fit in a Key.
	multiplier := ChooseMultiplier(c.KeySpaceSizes)
	if multiplier > math.MaxInt64/int64(c.Tenants+1) {
		return ErrInvalidConfig(fmt.Sprintf("key spaces too large to encode %d tenants (multiplier %d)", c.Tenants, multiplier))
	}

	// Call volumes must stay addressable
	minRate := minFloat(c.CallRates)
	for i, rate := range c.CallRates {
		if math.Round(rate/minRate*float64(c.MinTenantCalls)) > math.MaxInt32 {
			return ErrInvalidConfig(fmt.Sprintf("tenant #%d would receive too many calls (rate %v)", i+1, rate))
		}
	}
	return nil
}

func validatePerTenant(name string, values []int, tenants int) error {
	if len(values) != 1 && len(values) != tenants {
		return ErrInvalidConfig(fmt.Sprintf("%s must hold 1 or %d values, got %d", name, tenants, len(values)))
	}
	for i, v := range values {
		if v < 1 {
			return ErrInvalidConfig(fmt.Sprintf("%s[%d] must be >= 1, got %d", name, i, v))
		}
	}
	return nil
}

// KeySpaceSizeFor returns the key space size of tenant t (1-based)
func (c *SimConfig) KeySpaceSizeFor(t int) int {
	return broadcast(c.KeySpaceSizes, t)
}

// CapacityFor returns the dedicated capacity of tenant t (1-based)
func (c *SimConfig) CapacityFor(t int) int {
	return broadcast(c.DedicatedCapacities, t)
}

// ColocatedCapacity returns the shared cache capacity: the sum of dedicated capacities
func (c *SimConfig) ColocatedCapacity() int {
	total := 0
	for t := 1; t <= c.Tenants; t++ {
		total += c.CapacityFor(t)
	}
	return total
}

func broadcast(values []int, t int) int {
	if len(values) == 1 {
		return values[0]
	}
	return values[t-1]
}

func minFloat(values []float64) float64 {
	m := math.Inf(1)
	for _, v := range values {
		if v < m {
			m = v
		}
	}
	return m
}
