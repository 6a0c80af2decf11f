package bytecode

import "testing"

// TestDoXmitUpcallRoutesThroughXmitFamily exercises §4.5's "otherwise"
// branch: a StdOprn target that signals Upcall must reach
// handleException under xmitOpFamily, not fall through to the generic
// VMError default. OnXmitUpcall is the hook that proves it got there.
func TestDoXmitUpcallRoutesThroughXmitFamily(t *testing.T) {
	state := newTestState(NewCode())

	var sawUpcall bool
	state.Hooks.OnXmitUpcall = func(state *VMState) { sawUpcall = true }

	state.Ctxt.Trgt = &StdOprn{Name: "test-upcall", Fn: func(state *VMState) RblError {
		return UpcallError()
	}}
	state.DoXmitFlag = true

	runFlagMachine(state)

	if !sawUpcall {
		t.Errorf("Upcall from doXmit should have reached OnXmitUpcall")
	}
	if state.VMErrorFlag {
		t.Errorf("Upcall should not fall through to VMError")
	}
}

// TestDoXmitSuspendOutsideApplyPrimIsNoOp checks the other half of the same
// "otherwise" branch: Suspend seen via doXmit is a documented no-op, since
// OnApplyPrimSuspend only fires for the apply-prim family.
func TestDoXmitSuspendOutsideApplyPrimIsNoOp(t *testing.T) {
	state := newTestState(NewCode())

	var sawSuspend bool
	state.Hooks.OnApplyPrimSuspend = func(state *VMState, dest *Location) { sawSuspend = true }

	state.Ctxt.Trgt = &StdOprn{Name: "test-suspend", Fn: func(state *VMState) RblError {
		return SuspendError()
	}}
	state.DoXmitFlag = true

	runFlagMachine(state)

	if sawSuspend {
		t.Errorf("Suspend outside the apply-prim family should be a no-op")
	}
	if state.VMErrorFlag || state.ExitFlag {
		t.Errorf("Suspend outside apply-prim should not fault the VM")
	}
}

// TestDoXmitUnrecognizedErrorStillFaults confirms the default branch still
// catches everything else (e.g. ErrInvalid) the way it did before — only
// Upcall/Suspend were pulled out into handleException.
func TestDoXmitUnrecognizedErrorStillFaults(t *testing.T) {
	state := newTestState(NewCode())

	state.Ctxt.Trgt = &StdOprn{Name: "test-invalid", Fn: func(state *VMState) RblError {
		return InvalidError()
	}}
	state.DoXmitFlag = true

	runFlagMachine(state)

	if !state.DoNextThreadFlag && !state.ExitFlag {
		t.Errorf("an unrecognized xmit error should still raise vmErrorFlag and switch strands")
	}
}

// TestErrorPolicyVMErrorCanRecover shows the two ErrorPolicy values now
// produce genuinely different control flow: ErrorPolicyVMError consults
// OnVMError and, told the strand recovered, skips the automatic
// next-thread switch that ErrorPolicyNextThreadOnly always takes. With an
// empty strand pool, a switch that does happen runs the VM out of work
// and sets ExitFlag — so "did we switch" is observable as ExitFlag here.
func TestErrorPolicyVMErrorCanRecover(t *testing.T) {
	state := newTestState(NewCode())
	state.ErrorPolicy = ErrorPolicyVMError
	state.Hooks.OnVMError = func(state *VMState) bool { return true }

	state.VMErrorFlag = true
	runFlagMachine(state)

	if state.ExitFlag {
		t.Errorf("a recovered VMError under ErrorPolicyVMError should not force a next-thread switch")
	}
	if state.VMErrorFlag {
		t.Errorf("VMErrorFlag should be cleared after handling")
	}
}

// TestErrorPolicyNextThreadOnlyAlwaysSwitches is the control: the default
// policy never consults OnVMError and always switches, even if a hook that
// would have said "recovered" is installed.
func TestErrorPolicyNextThreadOnlyAlwaysSwitches(t *testing.T) {
	state := newTestState(NewCode())
	state.ErrorPolicy = ErrorPolicyNextThreadOnly
	state.Hooks.OnVMError = func(state *VMState) bool { return true }

	state.VMErrorFlag = true
	runFlagMachine(state)

	if !state.ExitFlag {
		t.Errorf("ErrorPolicyNextThreadOnly should always switch strands regardless of OnVMError")
	}
}
