package simulator

import (
	"fmt"
	"math/rand"
)

// ColocatedResult holds the shared-cache run: one hit-rate series per tenant
type ColocatedResult struct {
	Capacity    int        `json:"capacity"`
	TotalCalls  int        `json:"totalCalls"`
	Checkpoints []int      `json:"checkpoints"`
	Series      []Series   `json:"series"` // Indexed by tenant-1
	Calls       []int      `json:"calls"`  // Final per-tenant call counts
	Misses      []int      `json:"misses"` // Final per-tenant miss counts
	Cache       CacheStats `json:"cache"`
}

// ColocatedSimulator replays an interleaved call stream of all tenants
// through one shared cache. It is single-threaded: every call is resolved
// (hit/miss, recency update, eviction, snapshot) before the next one.
type ColocatedSimulator struct {
	cache     *LRUCache
	codec     KeyCodec
	recorder  *Recorder
	stream    []Key
	period    int
	processed int
}

// NewColocatedSimulator builds the shared cache, sized as the sum of the
// tenants' dedicated capacities, and interleaves their call sequences.
// sequences[i] belongs to tenants[i].
func NewColocatedSimulator(tenants []Tenant, sequences [][]Key, codec KeyCodec, recordingPeriod int, rng *rand.Rand) (*ColocatedSimulator, error) {
	if len(sequences) != len(tenants) {
		return nil, ErrInvalidConfig(fmt.Sprintf("expected %d call sequences, got %d", len(tenants), len(sequences)))
	}
	if recordingPeriod < 1 {
		return nil, ErrInvalidConfig(fmt.Sprintf("recordingPeriod must be >= 1, got %d", recordingPeriod))
	}

	capacity := 0
	for _, t := range tenants {
		capacity += t.DedicatedCapacity
	}

	sim := &ColocatedSimulator{
		codec:    codec,
		recorder: NewRecorder(len(tenants)),
		stream:   Interleave(sequences, rng),
		period:   recordingPeriod,
	}
	cache, err := NewLRUCache(capacity, func(key Key) {
		sim.recorder.RecordMiss(sim.codec.Tenant(key))
	})
	if err != nil {
		return nil, err
	}
	sim.cache = cache
	return sim, nil
}

// Access processes the next call of the stream. It returns false once the
// stream is exhausted.
func (s *ColocatedSimulator) Access() bool {
	if s.Done() {
		return false
	}
	key := s.stream[s.processed]
	s.cache.Access(key)
	s.recorder.RecordCall(s.codec.Tenant(key))
	s.processed++

	if s.processed%s.period == 0 || s.processed == len(s.stream) {
		s.recorder.Snapshot(s.processed)
	}
	return true
}

// StepPeriod processes calls up to and including the next snapshot.
// It returns false if the stream was already exhausted.
func (s *ColocatedSimulator) StepPeriod() bool {
	if s.Done() {
		return false
	}
	for s.Access() {
		if s.processed%s.period == 0 || s.Done() {
			break
		}
	}
	return true
}

// Run drains the remaining stream and returns the result
func (s *ColocatedSimulator) Run() ColocatedResult {
	for s.Access() {
	}
	return s.Result()
}

// Done reports whether every call has been processed
func (s *ColocatedSimulator) Done() bool {
	return s.processed >= len(s.stream)
}

// Processed returns the number of calls replayed so far
func (s *ColocatedSimulator) Processed() int {
	return s.processed
}

// TotalCalls returns the length of the interleaved stream
func (s *ColocatedSimulator) TotalCalls() int {
	return len(s.stream)
}

// Stream returns a copy of the interleaved call stream
func (s *ColocatedSimulator) Stream() []Key {
	return append([]Key(nil), s.stream...)
}

// Recorder exposes the running per-tenant counters
func (s *ColocatedSimulator) Recorder() *Recorder {
	return s.recorder
}

// Result materializes the series recorded so far
func (s *ColocatedSimulator) Result() ColocatedResult {
	n := s.recorder.Tenants()
	result := ColocatedResult{
		Capacity:    s.cache.Capacity(),
		TotalCalls:  len(s.stream),
		Checkpoints: s.recorder.Checkpoints(),
		Series:      make([]Series, n),
		Calls:       make([]int, n),
		Misses:      make([]int, n),
		Cache:       s.cache.Stats(),
	}
	for t := 1; t <= n; t++ {
		result.Series[t-1] = s.recorder.Series(t)
		result.Calls[t-1] = s.recorder.Calls(t)
		result.Misses[t-1] = s.recorder.Misses(t)
	}
	return result
}
