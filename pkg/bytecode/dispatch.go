package bytecode

// Run steps state until exitFlag or doAsyncWaitFlag is set or the code
// runs out, per §4.1.
// Precondition: state.Code is non-empty and state.PC is a valid resume
// point (0 for a fresh state).
func Run(state *VMState) {
	for !state.ExitFlag && !state.DoAsyncWaitFlag {
		if state.Code == nil || int(state.PC) >= len(state.Code.Ops) {
			return
		}
		ins := state.Code.Ops[state.PC]
		state.PC++
		state.Ctxt.PC = state.PC
		state.Bytecodes[ins.Op]++
		if state.CurrentMonitor != nil {
			state.CurrentMonitor.BumpOpcode(ins.Op)
		}

		dispatch(state, ins)

		runFlagMachine(state)

		if state.ExitFlag || state.DoAsyncWaitFlag {
			return
		}
	}
}

// Step runs exactly one dispatch-loop iteration: fetch, handler, flag
// machine. Exposed for tests that want to assert on intermediate state
// rather than run to completion.
func Step(state *VMState) {
	if state.ExitFlag || state.Code == nil || int(state.PC) >= len(state.Code.Ops) {
		return
	}
	ins := state.Code.Ops[state.PC]
	state.PC++
	state.Ctxt.PC = state.PC
	state.Bytecodes[ins.Op]++
	if state.CurrentMonitor != nil {
		state.CurrentMonitor.BumpOpcode(ins.Op)
	}
	dispatch(state, ins)
	runFlagMachine(state)
}

// Disassemble renders state's currently installed Code, via the
// package-level Disassemble (which the CLI's -disasm flag calls directly
// on the loaded Code).
func (state *VMState) Disassemble() string {
	if state.Code == nil {
		return "; <no code installed>\n"
	}
	return Disassemble(state.Code)
}
