package aggregate

// Totals maps a resource identifier to a quantity.
type Totals map[string]int64

// ShardTotals maps a shard name to that shard's totals.
type ShardTotals map[string]Totals

// Add accumulates src into t.
func (t Totals) Add(src Totals) {
	for res, n := range src {
		t[res] += n
	}
}

// Get returns the quantity of res, 0 when absent.
func (t Totals) Get(res string) int64 { return t[res] }

// Shard returns the totals of one shard, creating them if needed.
func (s ShardTotals) Shard(name string) Totals {
	t, ok := s[name]
	if !ok {
		t = Totals{}
		s[name] = t
	}
	return t
}

// Merge collapses per-shard totals into one grand total.
func Merge(s ShardTotals) Totals {
	out := Totals{}
	for _, t := range s {
		out.Add(t)
	}
	return out
}

// Plain returns s as nested plain maps for wire messages. Inner maps are shared.
func (s ShardTotals) Plain() map[string]map[string]int64 {
	out := make(map[string]map[string]int64, len(s))
	for shard, t := range s {
		out[shard] = t
	}
	return out
}
