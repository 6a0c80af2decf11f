package bytecode

// NumRegs is the size of a Ctxt's context-register file. The spec leaves
// the count unspecified; this is generous enough for the register
// conventions real opcode streams use (self, rslt mirrors, a handful of
// scratch slots) without making Ctxt unreasonably large to clone on Fork.
const NumRegs = 32

// Ctxt is the execution record of one strand: the "Ctxt" of the glossary.
// Push/PushAlloc create a child by setting Parent; Pop walks back up.
type Ctxt struct {
	Tag         Location
	Argvec      *Tuple
	Nargs       uint16
	Env         *Env
	SelfEnv     *Env
	Code        *Code
	PC          uint32
	Rslt        Ob
	Trgt        Ob
	Monitor     *Monitor
	Outstanding int32
	Parent      *Ctxt

	Regs [NumRegs]Ob
}

// NewCtxt returns a fresh, empty Ctxt with parent as its continuation
// link, matching the state Push/PushAlloc each build from (Fork uses
// Clone instead).
func NewCtxt(parent *Ctxt) *Ctxt {
	c := &Ctxt{
		Argvec: NILTuple,
		Rslt:   NIV,
		Trgt:   NIV,
		Parent: parent,
	}
	for i := range c.Regs {
		c.Regs[i] = NIV
	}
	if parent != nil {
		c.Env = parent.Env
		c.SelfEnv = parent.SelfEnv
		c.Code = parent.Code
		c.Monitor = parent.Monitor
	}
	return c
}

// Clone makes a shallow copy of c suitable for Fork: same code/env/monitor,
// independent Regs array and Parent link (Fork sets PC on the clone and
// prepends it to the strand pool, but never touches c itself).
func (c *Ctxt) Clone() *Ctxt {
	clone := *c
	clone.Regs = c.Regs
	return &clone
}

// GetReg reads the r'th context register. The second return is false for
// an out-of-range r — callers turn that into the register-access-failure
// policy (exitFlag/exitCode/debugInfo), never a panic.
func (c *Ctxt) GetReg(r int) (Ob, bool) {
	if c == nil || r < 0 || r >= len(c.Regs) {
		return nil, false
	}
	return c.Regs[r], true
}

// SetReg returns a Ctxt with register r set to ob. The mutation is in
// place on c (Regs is a fixed array, not shared), but the result is
// still returned explicitly so callers that model stores as "replace the
// ctxt" (see Store) have something to install.
func (c *Ctxt) SetReg(r int, ob Ob) (*Ctxt, bool) {
	if c == nil || r < 0 || r >= len(c.Regs) {
		return nil, false
	}
	c.Regs[r] = ob
	return c, true
}

// Ret implements ctxt.ret(result): one of the Rtn* opcodes set c.Tag to
// describe where the result belongs, but an ArgReg/CtxtReg Tag addresses a
// slot in the *resuming* frame, not this one about to be discarded — so
// the Location is evaluated against c.Parent, even though c itself owns
// the Tag value. The bool return is "isError" — true means the store
// failed and the flag machine should raise vmErrorFlag rather than
// proceed.
func (c *Ctxt) Ret(state *VMState, result Ob) (isError bool) {
	if c.Parent == nil {
		state.ExitFlag = true
		state.ExitCode = 0
		return false
	}
	res := Store(c.Tag, c.Parent, state.GlobalEnv, result)
	switch res.Kind {
	case StoreFail:
		return true
	case StoreCtxtKind:
		state.Ctxt = res.Ctxt
	case StoreGlobalKind:
		state.GlobalEnv = res.Env
		state.Ctxt = c.Parent
	}
	state.Code = state.Ctxt.Code
	state.PC = state.Ctxt.PC
	return false
}

// ScheduleStrand appends c to the ready pool. Newly-forked strands use
// prepend instead (see OpFork in handlers.go) — ScheduleStrand's append is
// specifically the "strand becomes ready again" path: a woken sleeper or
// the parent of a ctxt that just executed UpcallResume.
func (c *Ctxt) ScheduleStrand(state *VMState) {
	state.StrandPool = append(state.StrandPool, c)
}

// VMError marks c (and thus the VM) as having hit the general escape
// hatch. Under ErrorPolicyVMError the flag machine asks state.Hooks.OnVMError
// whether this strand recovered; the bool return carries that answer back
// so runFlagMachine can decide whether a next-thread switch is still
// warranted. Under ErrorPolicyNextThreadOnly the hook is not called and
// VMError returns false — that policy always switches, matching the
// source's compatibility behavior.
func (c *Ctxt) VMError(state *VMState) bool {
	state.VMErrorFlag = true
	if state.ErrorPolicy == ErrorPolicyVMError && state.Hooks.OnVMError != nil {
		return state.Hooks.OnVMError(state)
	}
	return false
}
