package bytecode

// opFamily distinguishes which opcode family is inspecting a sys-value
// result, since handleException's Upcall/Suspend branches read
// differently depending on whether the caller is an ApplyPrim* handler
// or a doXmit dispatch.
type opFamily int

const (
	applyPrimOpFamily opFamily = iota
	xmitOpFamily
)

// ExceptionHooks are the extension points §4.5 leaves as stubs: "may
// enqueue to sleeper pool, may signal async wait, may log". A host wires
// its own object-system policy in here. NewVMState installs
// defaultExceptionHooks, a conservative, observable default (log when
// debugging, otherwise a no-op), so the engine runs standalone before a
// host supplies one. A zero ExceptionHooks has nil hooks; only a nil
// OnVMError is checked before it is called.
type ExceptionHooks struct {
	OnApplyPrimUpcall  func(state *VMState, dest *Location)
	OnXmitUpcall       func(state *VMState)
	OnApplyPrimSuspend func(state *VMState, dest *Location)

	// OnVMError is consulted by Ctxt.VMError under ErrorPolicyVMError: it
	// reports whether the strand recovered (true) so the flag machine can
	// skip the automatic next-thread switch. Unused under
	// ErrorPolicyNextThreadOnly, which always switches. The zero value
	// (nil) means "no recovery policy installed" — VMError then behaves
	// like ErrorPolicyNextThreadOnly even when ErrorPolicyVMError is
	// selected, until a host wires one in.
	OnVMError func(state *VMState) bool

	// OnFormalsMismatch fires when Extend's template fails to match the
	// current argvec. OnMissingBinding fires when a LookupTo* opcode's
	// env walk exhausts without finding the key. Neither is in the
	// source's sys-code taxonomy; both are real failure paths a rewrite
	// has to give somewhere, so they live alongside the other hooks
	// rather than as silent no-ops.
	OnFormalsMismatch func(state *VMState, tmpl *Template)
	OnMissingBinding  func(state *VMState, key string)
}

func defaultExceptionHooks() ExceptionHooks {
	return ExceptionHooks{
		OnApplyPrimUpcall: func(state *VMState, dest *Location) {
			state.debugf("apply-prim upcall (no object-system hook installed)")
		},
		OnXmitUpcall: func(state *VMState) {
			state.debugf("xmit upcall (no object-system hook installed)")
		},
		OnApplyPrimSuspend: func(state *VMState, dest *Location) {
			state.debugf("apply-prim suspend (no object-system hook installed)")
		},
		OnFormalsMismatch: func(state *VMState, tmpl *Template) {
			state.debugf("formals mismatch against template %v", tmpl)
		},
		OnMissingBinding: func(state *VMState, key string) {
			state.debugf("unbound variable: %s", key)
		},
	}
}

// handleException dispatches a SysVal result seen at the primitive-apply
// or doXmit boundary, per §4.5. Interrupt and any unrecognized code are
// fatal ("suicide" in the glossary's terms): the VM halts rather than
// guess at recovery.
func handleException(state *VMState, code SysCode, family opFamily, dest *Location) {
	switch code {
	case SysUpcall:
		if family == applyPrimOpFamily {
			state.Hooks.OnApplyPrimUpcall(state, dest)
		} else {
			state.Hooks.OnXmitUpcall(state)
		}
	case SysSuspend:
		if family == applyPrimOpFamily {
			state.Hooks.OnApplyPrimSuspend(state, dest)
		}
		// Suspend outside the apply-prim family is a documented no-op.
	case SysSleep:
		handleSleep(state)
	case SysInvalid, SysDeadThread:
		// no-op
	case SysInterrupt:
		fatalSuicide(state, "interrupt sys-code reached handleException")
	default:
		fatalSuicide(state, "unknown sys-code reached handleException")
	}
}

// handleSleep moves the current strand to the sleeper pool, the one
// concretely-specified (non-stub) exception behavior: §5 says Sleep
// "moves the strand to sleeper pool (via external hook)".
func handleSleep(state *VMState) {
	if state.Ctxt != nil {
		state.SleeperPool = append(state.SleeperPool, state.Ctxt)
	}
}

// fatalSuicide terminates the VM immediately per the source's "suicide"
// behavior for unknown sys-codes, unknown opcodes, and unknown
// interrupts — these are non-recoverable aborts, logged with context
// when debug is on.
func fatalSuicide(state *VMState, reason string) {
	state.ExitFlag = true
	state.ExitCode = 1
	state.debugf("fatal: %s", reason)
}
