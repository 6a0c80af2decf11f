package bytecode

import "fmt"

// Prim is an externally-defined primitive operation callable from
// bytecode via ApplyPrimTag/Arg/Reg/Cmd. The object system's actual
// primitive table lives outside this package — this interface, plus
// PrimTable, is the fixed contract it is consumed through.
type Prim interface {
	// DispatchHelper runs the primitive against ctxt's current argvec
	// and returns its result.
	DispatchHelper(ctxt *Ctxt) Result
	// RuntimeError builds a RuntimeError-kind RblError carrying msg,
	// letting a primitive report a diagnostic in the host's own voice.
	RuntimeError(msg string, state *VMState) RblError
}

// PrimFunc adapts a plain function to Prim for the common case where a
// primitive has no state of its own beyond its closure.
type PrimFunc func(ctxt *Ctxt) Result

func (f PrimFunc) DispatchHelper(ctxt *Ctxt) Result { return f(ctxt) }
func (f PrimFunc) RuntimeError(msg string, state *VMState) RblError {
	return RuntimeErrorOf(msg)
}

// PrimTable is the primTable[k] of the spec: primitives addressed
// positionally by the k operand. Register additionally gives each
// primitive a name, which Lookup resolves back to its index — the hot
// path (ApplyPrim's k lookup) never touches names.
type PrimTable struct {
	prims []Prim
	names map[string]int
}

func NewPrimTable() *PrimTable {
	return &PrimTable{names: make(map[string]int)}
}

// Register appends p to the table under name and returns its positional
// index (the k operand a compiler would bake in).
func (t *PrimTable) Register(name string, p Prim) int {
	k := len(t.prims)
	t.prims = append(t.prims, p)
	t.names[name] = k
	return k
}

// Get returns the k'th primitive, or (nil, false) if k is out of range —
// a fatal condition for the apply-prim handler, since a Code object
// indexing past its own primitive table is a compiler/linker bug.
func (t *PrimTable) Get(k int) (Prim, bool) {
	if t == nil || k < 0 || k >= len(t.prims) {
		return nil, false
	}
	return t.prims[k], true
}

// Lookup resolves a primitive by the name it was Registered under.
func (t *PrimTable) Lookup(name string) (int, bool) {
	k, ok := t.names[name]
	return k, ok
}

// applyPrim implements §4.4 for all four ApplyPrim* opcodes. dest
// describes where ApplyPrimTag/Arg/Reg wants the result stored; a nil
// dest means ApplyCmd's "discard" behavior.
func applyPrim(state *VMState, k int, unwind bool, nargs uint16, nextThread bool, dest *Location) {
	ctxt := state.Ctxt
	ctxt.Nargs = nargs

	prim, ok := state.Prims.Get(k)
	if !ok {
		state.ExitFlag = true
		state.ExitCode = 1
		state.debugf("unknown primitive index: %d", k)
		return
	}

	var res Result
	if unwind {
		res = unwindAndApplyPrim(state, prim, ctxt)
	} else {
		res = prim.DispatchHelper(ctxt)
	}

	if res.IsErr() && res.UnwrapErr().Kind == ErrDeadThread {
		state.DoNextThreadFlag = true
		return
	}
	if res.IsErr() {
		// Non-DeadThread RblErrors outside the sysval channel are a
		// host-side contract violation — Prim is specified to signal
		// everything else (Upcall, Suspend, ...) by returning an Ok
		// SysValOb, not an error. Treat it the same as vmErrorFlag.
		ctxt.VMError(state)
		return
	}

	ob := res.Unwrap()
	if ob != nil && ob.IsSysVal() {
		sysCode, _ := ob.SysVal()
		handleException(state, sysCode, applyPrimOpFamily, dest)
		state.DoNextThreadFlag = true
		return
	}

	if dest == nil {
		if nextThread {
			state.DoNextThreadFlag = true
		}
		return
	}

	storeRes := Store(*dest, state.Ctxt, state.GlobalEnv, ob)
	switch storeRes.Kind {
	case StoreFail:
		state.VMErrorFlag = true
	case StoreCtxtKind:
		state.Ctxt = storeRes.Ctxt
		if nextThread {
			state.DoNextThreadFlag = true
		}
	case StoreGlobalKind:
		state.GlobalEnv = storeRes.Env
		if nextThread {
			state.DoNextThreadFlag = true
		}
	}
}

// unwindAndApplyPrim implements the scoped argvec save/restore around a
// primitive call when the u (unwind) flag is set. It flattens the
// &rest tail, runs the primitive against a temporary view of the
// argvec, and restores the original argvec/nargs on the way out.
//
// The restore is deliberately of the *pre-call* ctxt fields, not of a
// "tmpState" snapshot: any mutation the primitive made to state outside
// ctxt.Argvec/Nargs (global env, counters) is preserved, unlike the
// documented source behavior where the caller discarded the whole
// tmpState and silently lost such mutations. This is a considered
// deviation, not an oversight.
func unwindAndApplyPrim(state *VMState, prim Prim, ctxt *Ctxt) Result {
	savedArgvec := ctxt.Argvec
	savedNargs := ctxt.Nargs
	defer func() {
		ctxt.Argvec = savedArgvec
		ctxt.Nargs = savedNargs
	}()

	flat := ctxt.Argvec.FlattenRest()
	switch flat.Kind {
	case RestFlattened:
		ctxt.Argvec = flat.Tuple
		ctxt.Nargs = uint16(flat.Tuple.Len())
	case RestAbsent:
		ctxt.Argvec = NILTuple
		ctxt.Nargs = 0
	case RestInvalid:
		return Err(RuntimeErrorOf("&rest value is not a tuple"))
	}
	return prim.DispatchHelper(ctxt)
}

func (state *VMState) debugf(format string, args ...any) {
	if state.Debug {
		state.DebugInfo = append(state.DebugInfo, fmt.Sprintf(format, args...))
	}
}
