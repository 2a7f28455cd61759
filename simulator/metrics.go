package simulator

// Sample is one point of a tenant's co-located hit-rate series
type Sample struct {
	Calls   int     `json:"calls"`   // Co-located calls processed (all tenants) when recorded
	HitRate float64 `json:"hitRate"` // Tenant hit rate in percent over all of its calls so far
}

// Series is a tenant's hit rate over time, ordered by strictly increasing Calls
type Series []Sample

// Last returns the most recent sample
func (s Series) Last() Sample {
	if len(s) == 0 {
		return Sample{}
	}
	return s[len(s)-1]
}

// Recorder accumulates per-tenant call and miss counters and materializes
// hit-rate samples at recording checkpoints. Tenants are 1-based.
type Recorder struct {
	calls       []int
	misses      []int
	checkpoints []int
	series      []Series
}

// NewRecorder creates a recorder whose series all start at (0, 0)
func NewRecorder(tenants int) *Recorder {
	r := &Recorder{
		calls:       make([]int, tenants),
		misses:      make([]int, tenants),
		checkpoints: []int{0},
		series:      make([]Series, tenants),
	}
	for i := range r.series {
		r.series[i] = Series{{Calls: 0, HitRate: 0}}
	}
	return r
}

// Tenants returns the number of tracked tenants
func (r *Recorder) Tenants() int {
	return len(r.calls)
}

// RecordCall counts one call issued by tenant t
func (r *Recorder) RecordCall(t int) {
	r.calls[t-1]++
}

// RecordMiss counts one miss suffered by tenant t
func (r *Recorder) RecordMiss(t int) {
	r.misses[t-1]++
}

// Calls returns the running call count of tenant t
func (r *Recorder) Calls(t int) int {
	return r.calls[t-1]
}

// Misses returns the running miss count of tenant t
func (r *Recorder) Misses(t int) int {
	return r.misses[t-1]
}

// HitRate returns the current hit rate of tenant t in percent, 0 before its first call
func (r *Recorder) HitRate(t int) float64 {
	calls := r.calls[t-1]
	if calls == 0 {
		return 0
	}
	return 100 * (1 - float64(r.misses[t-1])/float64(calls))
}

// Snapshot appends (processed, hit rate) to every tenant's series.
// A checkpoint that does not advance past the previous one is ignored.
func (r *Recorder) Snapshot(processed int) {
	if processed <= r.checkpoints[len(r.checkpoints)-1] {
		return
	}
	r.checkpoints = append(r.checkpoints, processed)
	for t := 1; t <= len(r.series); t++ {
		r.series[t-1] = append(r.series[t-1], Sample{Calls: processed, HitRate: r.HitRate(t)})
	}
}

// Checkpoints returns a copy of the recorded call counts, starting at 0
func (r *Recorder) Checkpoints() []int {
	return append([]int(nil), r.checkpoints...)
}

// Series returns a copy of tenant t's series
func (r *Recorder) Series(t int) Series {
	return append(Series(nil), r.series[t-1]...)
}

// Latest returns the most recent sample of every tenant, indexed by t-1
func (r *Recorder) Latest() []Sample {
	latest := make([]Sample, len(r.series))
	for i, s := range r.series {
		latest[i] = s.Last()
	}
	return latest
}
