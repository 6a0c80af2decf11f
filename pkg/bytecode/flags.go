package bytecode

// runFlagMachine implements §4.2. Ordering is load-bearing: transmit,
// then return, then error recovery, then strand switch — a handler may
// have requested transmit and return in the same step, and the contract
// is transmit-first.
func runFlagMachine(state *VMState) {
	if state.DoXmitFlag {
		doXmit(state)
		state.DoXmitFlag = false
	}
	if state.DoRtnFlag {
		doRtn(state)
		state.DoRtnFlag = false
	}
	if state.VMErrorFlag {
		recovered := false
		if state.ErrorPolicy == ErrorPolicyVMError && state.Ctxt != nil {
			recovered = state.Ctxt.VMError(state)
		}
		state.VMErrorFlag = false
		if !recovered {
			state.DoNextThreadFlag = true
		}
	}
	if state.DoNextThreadFlag {
		state.DoNextThreadFlag = false
		if exit := getNextStrand(state); exit {
			state.ExitFlag = true
		}
	}
}

// doXmit dispatches on ctxt.Trgt. A StdOprn target dispatches through its
// own Dispatch hook; any other target is a documented pass-through
// limitation (the source only ever wired up StdOprn here too). Per §4.5,
// an Upcall/Suspend signal seen here routes through handleException under
// xmitOpFamily, the same escape hatch applyPrim uses for the apply-prim
// family — Suspend is a no-op outside that family, handleException
// already knows that.
func doXmit(state *VMState) {
	ctxt := state.Ctxt
	if op, ok := ctxt.Trgt.(*StdOprn); ok {
		switch err := op.Dispatch(state); err.Kind {
		case ErrNone:
			// ok
		case ErrDeadThread:
			state.DoNextThreadFlag = true
		case ErrUpcall:
			handleException(state, SysUpcall, xmitOpFamily, nil)
		case ErrSuspend:
			handleException(state, SysSuspend, xmitOpFamily, nil)
		default:
			ctxt.VMError(state)
		}
	}
	if state.XmitDataVal.Next {
		state.DoNextThreadFlag = true
	}
}

// doRtn invokes ctxt.Ret(ctxt.Rslt). A store failure raises vmErrorFlag;
// otherwise, if the Rtn* opcode that set doRtnFlag asked for a
// next-thread switch (the n operand, captured in DoRtnData), that switch
// happens now.
func doRtn(state *VMState) {
	ctxt := state.Ctxt
	if isError := ctxt.Ret(state, ctxt.Rslt); isError {
		state.VMErrorFlag = true
		return
	}
	if state.DoRtnData {
		state.DoNextThreadFlag = true
	}
}
