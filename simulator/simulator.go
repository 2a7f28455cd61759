package simulator

import (
	"fmt"
	"math/rand"
	"strings"
)

// TenantResult pairs a tenant's standalone baseline with its co-located series
type TenantResult struct {
	Tenant     Tenant           `json:"tenant"`
	Designated DesignatedResult `json:"designated"`
	Series     Series           `json:"series"`
}

// Results is the raw output of one run, handed to reporting collaborators
type Results struct {
	Config     SimConfig       `json:"config"`
	Multiplier int64           `json:"multiplier"`
	Tenants    []TenantResult  `json:"tenants"`
	Colocated  ColocatedResult `json:"colocated"`
}

// Simulator runs the designated and co-located modes for one configuration.
// It has NO concurrency primitives; callers serialize access.
type Simulator struct {
	config     SimConfig
	tenants    []Tenant
	codec      DecimalCodec
	rng        *rand.Rand
	sequences  [][]Key
	designated []DesignatedResult
	colocated  *ColocatedSimulator

	// Event logging callback (optional, for UI/debugging)
	LogEvent func(msg string)
}

// NewSimulator creates a new simulator.
// The simulator starts dormant; call Reset (or Run) to generate workloads.
func NewSimulator(config SimConfig) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.KeyDistribution == KeyDistZipf && config.ZipfExponent == 0 {
		config.ZipfExponent = DefaultZipfExponent
	}
	if config.RandomSeed == 0 {
		config.RandomSeed = rand.Int63()
	}
	return &Simulator{
		config:  config,
		tenants: NewTenants(config),
		codec:   NewDecimalCodec(config.KeySpaceSizes),
	}, nil
}

// Reset regenerates every tenant's calls from the seed, runs the designated
// mode and prepares a fresh co-located run. Repeated resets reproduce the
// same run.
func (s *Simulator) Reset() error {
	s.rng = newRand(s.config.RandomSeed)

	rates := make([]string, len(s.tenants))
	calls := make([]string, len(s.tenants))
	for i, t := range s.tenants {
		rates[i] = fmt.Sprintf("%.2f", t.NormalizedRate)
		calls[i] = fmt.Sprintf("%d", t.Calls)
	}
	s.logEvent("Normalized tenant call rates: [%s]", strings.Join(rates, ", "))
	s.logEvent("Each tenant's cache will receive [%s] calls", strings.Join(calls, ", "))
	s.logEvent("Generating %s cache calls over tenant-disjoint keys (multiplier %d)",
		s.config.KeyDistribution, s.codec.Multiplier)

	gen := NewWorkloadGenerator(s.codec, s.config.KeyDistribution, s.config.ZipfExponent, s.rng)
	s.sequences = make([][]Key, len(s.tenants))
	s.designated = make([]DesignatedResult, len(s.tenants))
	for i, t := range s.tenants {
		s.sequences[i] = gen.Generate(t, t.Calls)
		result, err := RunDesignated(t, s.sequences[i])
		if err != nil {
			return err
		}
		s.designated[i] = result
		s.logEvent("Running standalone, LRU cache of tenant #%d of size %d would generate approximately %.2f%% of cache misses",
			t.Index, t.DedicatedCapacity, result.MissRate)
	}
	s.logEvent("Note: standalone miss rates include cold cache misses")

	colocated, err := NewColocatedSimulator(s.tenants, s.sequences, s.codec, s.config.RecordingPeriod, s.rng)
	if err != nil {
		return err
	}
	s.colocated = colocated
	s.logEvent("Initialized co-located LRU cache of size %d for %d calls",
		s.config.ColocatedCapacity(), colocated.TotalCalls())
	return nil
}

// Step advances the co-located run by one recording period.
// It returns false when there is nothing left to simulate (or Reset was not called).
func (s *Simulator) Step() bool {
	if s.colocated == nil {
		return false
	}
	return s.colocated.StepPeriod()
}

// Done reports whether the co-located run has replayed every call
func (s *Simulator) Done() bool {
	return s.colocated == nil || s.colocated.Done()
}

// Run resets the simulator, drains the co-located run and returns the results
func (s *Simulator) Run() (*Results, error) {
	if err := s.Reset(); err != nil {
		return nil, err
	}
	for s.Step() {
	}
	s.logEvent("Co-located run completed after %d calls", s.colocated.Processed())
	return s.Results(), nil
}

// Results returns the output recorded so far; nil before Reset
func (s *Simulator) Results() *Results {
	if s.colocated == nil {
		return nil
	}
	colocated := s.colocated.Result()
	results := &Results{
		Config:     s.config,
		Multiplier: s.codec.Multiplier,
		Tenants:    make([]TenantResult, len(s.tenants)),
		Colocated:  colocated,
	}
	for i, t := range s.tenants {
		results.Tenants[i] = TenantResult{
			Tenant:     t,
			Designated: s.designated[i],
			Series:     colocated.Series[i],
		}
	}
	return results
}

// Config returns the effective configuration (seed resolved)
func (s *Simulator) Config() SimConfig {
	return s.config
}

// Tenants returns the tenants of the run
func (s *Simulator) Tenants() []Tenant {
	return append([]Tenant(nil), s.tenants...)
}

// Codec returns the key codec shared by all tenants
func (s *Simulator) Codec() KeyCodec {
	return s.codec
}

// Designated returns the standalone baselines computed by the last Reset
func (s *Simulator) Designated() []DesignatedResult {
	return append([]DesignatedResult(nil), s.designated...)
}

// Sequences returns the per-tenant call sequences generated by the last Reset
func (s *Simulator) Sequences() [][]Key {
	sequences := make([][]Key, len(s.sequences))
	for i, seq := range s.sequences {
		sequences[i] = append([]Key(nil), seq...)
	}
	return sequences
}

// Processed returns the number of co-located calls replayed so far
func (s *Simulator) Processed() int {
	if s.colocated == nil {
		return 0
	}
	return s.colocated.Processed()
}

// TotalCalls returns the length of the co-located stream
func (s *Simulator) TotalCalls() int {
	if s.colocated == nil {
		return 0
	}
	return s.colocated.TotalCalls()
}

// Latest returns every tenant's most recent co-located sample
func (s *Simulator) Latest() []Sample {
	if s.colocated == nil {
		return nil
	}
	return s.colocated.Recorder().Latest()
}

// logEvent sends a log message to the LogEvent callback, if set
func (s *Simulator) logEvent(format string, args ...interface{}) {
	if s.LogEvent != nil {
		s.LogEvent(fmt.Sprintf(format, args...))
	}
}
