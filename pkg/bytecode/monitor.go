package bytecode

import (
	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
)

// Monitor is the per-strand instrumentation bundle: opcode counts, object
// counts, a tracing flag, and a start/stop lifecycle. Exactly one Monitor
// is "current" in a VMState at a time; installStrand swaps it wholesale
// when the incoming strand carries a different one.
type Monitor struct {
	id            string
	mu            deadlock.Mutex
	running       bool
	OpcodeCounts  map[Opcode]uint64
	ObCounts      map[Tag]uint64
	Tracing       bool
}

// NewMonitor allocates a fresh, stopped Monitor with a generated id. Using
// a generated id rather than a sequence counter means monitors created on
// different strands never collide even if one is cloned mid-Fork.
func NewMonitor() *Monitor {
	return &Monitor{
		id:           uuid.NewString(),
		OpcodeCounts: make(map[Opcode]uint64),
		ObCounts:     make(map[Tag]uint64),
	}
}

func (m *Monitor) ID() string { return m.id }

// Start marks the monitor as the one actively accruing counts.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
}

// Stop marks the monitor as no longer active. installMonitor calls this on
// the outgoing monitor before swapping in the incoming one.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
}

func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// BumpOpcode increments the count for op.
func (m *Monitor) BumpOpcode(op Opcode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OpcodeCounts[op]++
}

// BumpOb increments the count for a value of the given tag. No handler in
// this package calls it, so ObCounts only grows when a caller bumps it.
func (m *Monitor) BumpOb(tag Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ObCounts[tag]++
}

// Snapshot returns a point-in-time copy of the counters, so a host can
// inspect a running strand's instrumentation without stopping it. This is
// a supplement beyond the base engine contract, grounded in the style of
// a periodic-sampling profiler.
func (m *Monitor) Snapshot() (opcodes map[Opcode]uint64, obs map[Tag]uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	opcodes = make(map[Opcode]uint64, len(m.OpcodeCounts))
	for k, v := range m.OpcodeCounts {
		opcodes[k] = v
	}
	obs = make(map[Tag]uint64, len(m.ObCounts))
	for k, v := range m.ObCounts {
		obs[k] = v
	}
	return opcodes, obs
}
