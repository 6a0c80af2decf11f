package bytecode

import "testing"

func TestMonitorLifecycleAndCounters(t *testing.T) {
	m := NewMonitor()
	if m.Running() {
		t.Fatalf("a fresh Monitor should not be running")
	}
	m.Start()
	if !m.Running() {
		t.Fatalf("Start() should mark the monitor running")
	}
	m.BumpOpcode(OpHalt)
	m.BumpOpcode(OpHalt)
	m.BumpOb(OTfixnum)

	opcodes, obs := m.Snapshot()
	if opcodes[OpHalt] != 2 {
		t.Errorf("opcodes[OpHalt] = %d, want 2", opcodes[OpHalt])
	}
	if obs[OTfixnum] != 1 {
		t.Errorf("obs[OTfixnum] = %d, want 1", obs[OTfixnum])
	}

	m.Stop()
	if m.Running() {
		t.Errorf("Stop() should mark the monitor not running")
	}
}

func TestMonitorIDsAreUnique(t *testing.T) {
	a, b := NewMonitor(), NewMonitor()
	if a.ID() == b.ID() {
		t.Errorf("two monitors got the same id: %s", a.ID())
	}
}

func TestGlobalEnvWithEntryIsImmutable(t *testing.T) {
	g := NewGlobalEnv(3)
	g2, ok := g.WithEntry(1, Fixnum(5))
	if !ok {
		t.Fatalf("WithEntry(1) should succeed")
	}
	if v, _ := g.Entry(1); v != NIV {
		t.Errorf("original GlobalEnv entry was mutated: %v", v)
	}
	if v, _ := g2.Entry(1); v != Fixnum(5) {
		t.Errorf("new GlobalEnv entry = %v, want Fixnum(5)", v)
	}
	if _, ok := g.WithEntry(10, Fixnum(1)); ok {
		t.Errorf("WithEntry out of range should fail")
	}
}
