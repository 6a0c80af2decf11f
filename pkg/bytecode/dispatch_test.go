package bytecode

import "testing"

func newTestState(c *Code) *VMState {
	return NewVMState(c, NewGlobalEnv(4), NewPrimTable())
}

func TestRunHaltsImmediately(t *testing.T) {
	a := NewAssembler()
	a.Emit(OpHalt)
	state := newTestState(a.Code())

	Run(state)

	if !state.ExitFlag {
		t.Fatalf("Run should set ExitFlag on Halt")
	}
	if state.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", state.ExitCode)
	}
}

func TestRunImmediateLiteralIntoRegister(t *testing.T) {
	a := NewAssembler()
	a.Emit(OpImmediateLitToReg, 1, 5) // v=1 (Fixnum(1)), r=5
	a.Emit(OpHalt)
	state := newTestState(a.Code())

	Run(state)

	v, ok := state.Ctxt.GetReg(5)
	if !ok || v != Fixnum(1) {
		t.Errorf("reg[5] = %v, %v; want Fixnum(1), true", v, ok)
	}
}

func TestRunImmediateLiteralOutOfRangeIsFatal(t *testing.T) {
	a := NewAssembler()
	a.Emit(OpImmediateLitToReg, 99, 0)
	state := newTestState(a.Code())

	Run(state)

	if !state.ExitFlag || state.ExitCode != 1 {
		t.Errorf("out-of-range immediate literal should be fatal: ExitFlag=%v ExitCode=%d", state.ExitFlag, state.ExitCode)
	}
}

func TestRunJmpSkipsInstructions(t *testing.T) {
	a := NewAssembler()
	a.Emit(OpJmp, 2)
	a.Emit(OpImmediateLitToReg, 0, 0) // skipped; would set reg[0] = Fixnum(0)
	a.Emit(OpHalt)
	state := newTestState(a.Code())

	_, _ = state.Ctxt.SetReg(0, Fixnum(99)) // sentinel distinct from the skipped write

	Run(state)

	v, ok := state.Ctxt.GetReg(0)
	if !ok || v != Fixnum(99) {
		t.Errorf("Jmp should have skipped the instruction that sets reg[0]; got %v, %v", v, ok)
	}
}

func TestRunJmpFalseTakenWhenRsltIsFalse(t *testing.T) {
	a := NewAssembler()
	a.Emit(OpImmediateLitToRslt, 9) // RBLFALSE
	a.Emit(OpJmpFalse, 3)
	a.Emit(OpImmediateLitToReg, 0, 7) // skipped
	a.Emit(OpHalt)
	state := newTestState(a.Code())

	Run(state)

	if v, ok := state.Ctxt.GetReg(7); ok && v == Fixnum(0) {
		t.Errorf("JmpFalse should have skipped the instruction setting reg[7]")
	}
}

func TestRunJmpFalseNotTakenWhenRsltIsTrue(t *testing.T) {
	a := NewAssembler()
	a.Emit(OpImmediateLitToRslt, 8) // RBLTRUE
	a.Emit(OpJmpFalse, 3)
	litZero := a.Lit(Fixnum(0))
	a.Emit(OpIndLitToReg, litZero, 7)
	a.Emit(OpHalt)
	state := newTestState(a.Code())

	Run(state)

	v, ok := state.Ctxt.GetReg(7)
	if !ok || v != Fixnum(0) {
		t.Errorf("JmpFalse should not have skipped when rslt is true: reg[7] = %v, %v", v, ok)
	}
}

// TestRunForkAndNxt exercises the scheduler: Fork clones the current strand
// with a different resume pc and prepends it to the strand pool, then Nxt
// switches to it. The forked strand runs the tail of the same Code object
// and halts; the original strand is abandoned without ever reaching its
// own next instruction.
func TestRunForkAndNxt(t *testing.T) {
	a := NewAssembler()
	a.Emit(OpFork, 2)
	a.Emit(OpNxt)
	litAnswer := a.Lit(Fixnum(42))
	a.Emit(OpIndLitToRslt, litAnswer)
	a.Emit(OpHalt)
	state := newTestState(a.Code())

	Run(state)

	if !state.ExitFlag || state.ExitCode != 0 {
		t.Fatalf("expected a clean halt: ExitFlag=%v ExitCode=%d", state.ExitFlag, state.ExitCode)
	}
	if state.Ctxt.Rslt != Fixnum(42) {
		t.Errorf("Rslt = %v, want Fixnum(42) from the forked strand", state.Ctxt.Rslt)
	}
}

// TestApplyPrimDeadThreadSwitchesStrands exercises §4.4's DeadThread path:
// a primitive reporting DeadThread should trigger a next-thread switch
// rather than a VM error, and with no other work queued the VM should exit
// cleanly (NoWorkLeft) rather than running off the end of the program.
func TestApplyPrimDeadThreadSwitchesStrands(t *testing.T) {
	prims := NewPrimTable()
	k := prims.Register("die", PrimFunc(func(ctxt *Ctxt) Result {
		return Err(DeadThreadError())
	}))

	a := NewAssembler()
	a.Emit(OpApplyCmd, int32(k), 0, 0, 0)
	a.Emit(OpHalt) // never reached
	state := NewVMState(a.Code(), NewGlobalEnv(1), prims)

	Run(state)

	if !state.ExitFlag {
		t.Fatalf("expected the VM to exit once no strand remains")
	}
	if state.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0 (NoWorkLeft is not a failure)", state.ExitCode)
	}
}

// TestApplyPrimUnknownIndexIsFatal checks the "compiler bug, not a
// recoverable VM condition" contract for an out-of-range primitive index.
func TestApplyPrimUnknownIndexIsFatal(t *testing.T) {
	a := NewAssembler()
	a.Emit(OpApplyCmd, 99, 0, 0, 0)
	state := newTestState(a.Code())

	Run(state)

	if !state.ExitFlag || state.ExitCode != 1 {
		t.Errorf("unknown primitive index should be fatal: ExitFlag=%v ExitCode=%d", state.ExitFlag, state.ExitCode)
	}
}

// TestReturnStoresIntoParentFrame exercises Ctxt.Ret directly: a child
// ctxt's Tag (set by one of the Rtn* opcodes before doRtn runs) addresses
// a slot in the *parent's* frame, not the child's own — Ret evaluates it
// against c.Parent even though c owns the Tag value.
func TestReturnStoresIntoParentFrame(t *testing.T) {
	state := newTestState(NewCode())
	parent := state.Ctxt
	child := NewCtxt(parent)
	child.Tag = CtxtRegLoc(2)
	child.Rslt = Fixnum(7)
	state.Ctxt = child

	if isErr := child.Ret(state, child.Rslt); isErr {
		t.Fatalf("Ret reported an error")
	}

	v, ok := parent.GetReg(2)
	if !ok || v != Fixnum(7) {
		t.Errorf("parent.Regs[2] = %v, %v; want Fixnum(7), true", v, ok)
	}
	if state.Ctxt != parent {
		t.Errorf("Ret should install the parent ctxt as current on return")
	}
}

// TestReturnFromRootCtxtHalts checks the other branch of Ctxt.Ret: a ctxt
// with no parent is the program's root strand, and returning from it ends
// the run rather than failing.
func TestReturnFromRootCtxtHalts(t *testing.T) {
	state := newTestState(NewCode())
	if isErr := state.Ctxt.Ret(state, Fixnum(1)); isErr {
		t.Fatalf("Ret from the root ctxt should not report an error")
	}
	if !state.ExitFlag || state.ExitCode != 0 {
		t.Errorf("ExitFlag=%v ExitCode=%d, want true, 0", state.ExitFlag, state.ExitCode)
	}
}

func TestApplyPrimUnwindFlattensRestAndRestoresArgvec(t *testing.T) {
	prims := NewPrimTable()
	var seenLen int
	k := prims.Register("count-rest", PrimFunc(func(ctxt *Ctxt) Result {
		seenLen = ctxt.Argvec.Len()
		return Ok(Fixnum(int64(seenLen)))
	}))

	state := NewVMState(NewCode(), NewGlobalEnv(1), prims)
	state.Ctxt.Argvec = &Tuple{Elems: []Ob{Fixnum(1), &Tuple{Elems: []Ob{Fixnum(2), Fixnum(3)}}}}
	savedArgvec := state.Ctxt.Argvec

	reg := CtxtRegLoc(0)
	applyPrim(state, k, true, 2, false, &reg)

	if seenLen != 3 {
		t.Errorf("primitive saw argvec len %d, want 3 after &rest flattening", seenLen)
	}
	if state.Ctxt.Argvec != savedArgvec {
		t.Errorf("unwindAndApplyPrim should restore the original argvec after the call")
	}
	v, ok := state.Ctxt.GetReg(0)
	if !ok || v != Fixnum(3) {
		t.Errorf("reg[0] = %v, %v; want Fixnum(3)", v, ok)
	}
}
