package simulator

// DesignatedResult is a tenant's standalone baseline.
//
// MissRate includes cold-start misses from the initially empty cache, so it
// is an upper bound on the steady-state miss rate. WarmMissRate leaves out the
// first reference to every distinct key.
type DesignatedResult struct {
	Tenant       int     `json:"tenant"`
	Capacity     int     `json:"capacity"`
	Calls        int     `json:"calls"`
	Misses       int     `json:"misses"`
	ColdMisses   int     `json:"coldMisses"`
	MissRate     float64 `json:"missRate"`     // Percent, cold misses included
	HitRate      float64 `json:"hitRate"`      // 100 - MissRate
	WarmMissRate float64 `json:"warmMissRate"` // Percent of non-first references that missed
}

// RunDesignated replays a tenant's calls, in order, through a fresh cache of
// its dedicated capacity. Nothing is shared between invocations.
func RunDesignated(tenant Tenant, calls []Key) (DesignatedResult, error) {
	misses := 0
	cache, err := NewLRUCache(tenant.DedicatedCapacity, func(Key) {
		misses++
	})
	if err != nil {
		return DesignatedResult{}, err
	}

	seen := make(map[Key]struct{}, min(tenant.KeySpaceSize, len(calls)))
	for _, key := range calls {
		cache.Access(key)
		seen[key] = struct{}{}
	}

	result := DesignatedResult{
		Tenant:     tenant.Index,
		Capacity:   tenant.DedicatedCapacity,
		Calls:      len(calls),
		Misses:     misses,
		ColdMisses: len(seen),
	}
	if result.Calls > 0 {
		result.MissRate = 100 * float64(misses) / float64(result.Calls)
		result.HitRate = 100 - result.MissRate
	}
	if warmCalls := result.Calls - result.ColdMisses; warmCalls > 0 {
		result.WarmMissRate = 100 * float64(misses-result.ColdMisses) / float64(warmCalls)
	}
	return result, nil
}
