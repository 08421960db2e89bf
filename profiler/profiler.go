// Package profiler counts per-PC execution frequency. It mirrors the
// hot-path counting vm.PerformanceStatistics already does for reporting,
// scoped down to a single counter map. The interpreter feeds it through its
// Profiler field; the jit package does not consult it, and nothing in the
// tree calls HotList or HotThreshold.
package profiler

import "sort"

// Profiler tallies how many times each guest PC has been reached.
type Profiler struct {
	counts map[uint32]uint64
}

// New creates an empty profiler.
func New() *Profiler {
	return &Profiler{counts: make(map[uint32]uint64)}
}

// Record increments the execution count for pc.
func (p *Profiler) Record(pc uint32) {
	p.counts[pc]++
}

// Count returns how many times pc has been recorded.
func (p *Profiler) Count(pc uint32) uint64 {
	return p.counts[pc]
}

// HotEntry pairs a PC with its execution count.
type HotEntry struct {
	PC    uint32
	Count uint64
}

// HotList returns the n most-executed PCs, highest count first, breaking
// ties by ascending PC so the result is deterministic.
func (p *Profiler) HotList(n int) []HotEntry {
	entries := make([]HotEntry, 0, len(p.counts))
	for pc, count := range p.counts {
		entries = append(entries, HotEntry{PC: pc, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].PC < entries[j].PC
	})
	if n > 0 && n < len(entries) {
		return entries[:n]
	}
	return entries
}

// HotThreshold returns every PC whose count has reached or exceeded
// threshold, in ascending PC order.
func (p *Profiler) HotThreshold(threshold uint64) []uint32 {
	var pcs []uint32
	for pc, count := range p.counts {
		if count >= threshold {
			pcs = append(pcs, pc)
		}
	}
	sort.Slice(pcs, func(i, j int) bool { return pcs[i] < pcs[j] })
	return pcs
}

// Reset clears all recorded counts.
func (p *Profiler) Reset() {
	p.counts = make(map[uint32]uint64)
}
