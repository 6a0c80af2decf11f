package bytecode

// getNextStrand implements §4.3. Returns true if the VM should exit
// (NoWorkLeft): both pools are empty and no async signals are
// outstanding.
func getNextStrand(state *VMState) (exit bool) {
	if len(state.StrandPool) > 0 {
		head := state.StrandPool[0]
		tail := state.StrandPool[1:]
		state.StrandPool = tail
		installStrand(head, state)
		return false
	}
	return tryAwakeSleepingStrand(state)
}

// tryAwakeSleepingStrand handles the three cases the scheduler section
// enumerates for an empty strand pool.
func tryAwakeSleepingStrand(state *VMState) (exit bool) {
	if len(state.SleeperPool) == 0 {
		if state.Nsigs == 0 {
			return true // NoWorkLeft
		}
		state.DoAsyncWaitFlag = true
		return false // WaitForAsync
	}

	sleepers := state.SleeperPool
	state.SleeperPool = nil
	for _, s := range sleepers {
		s.ScheduleStrand(state)
	}

	head := state.StrandPool[0]
	state.StrandPool = state.StrandPool[1:]
	installStrand(head, state)
	return false
}

// installStrand swaps in strand as the running ctxt, installing its
// monitor first if it differs from the current one.
func installStrand(strand *Ctxt, state *VMState) {
	if strand.Monitor != state.CurrentMonitor {
		installMonitor(strand.Monitor, state)
	}
	installCtxt(strand, state)
}

// installMonitor stops the outgoing monitor, copies its counters into
// state, makes the incoming monitor current, takes the incoming monitor's
// tracing flag as state.Debug, and starts it.
func installMonitor(next *Monitor, state *VMState) {
	if state.CurrentMonitor != nil {
		state.CurrentMonitor.Stop()
		opcodes, obs := state.CurrentMonitor.Snapshot()
		state.Bytecodes = opcodes
		state.ObCounts = obs
	}
	if next == nil {
		next = NewMonitor()
	}
	state.CurrentMonitor = next
	state.Debug = next.Tracing
	next.Start()
}

// installCtxt makes strand the running ctxt and syncs the flattened
// code/pc scratch fields to match it.
func installCtxt(strand *Ctxt, state *VMState) {
	state.Ctxt = strand
	state.Code = strand.Code
	state.PC = strand.PC
}
