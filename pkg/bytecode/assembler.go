package bytecode

// Assembler builds a Code object instruction-by-instruction. It exists for
// tests to construct opcode streams without pulling in a full
// surface-language compiler — the engine itself never calls it, and the
// CLI host loads serialized Code instead.
type Assembler struct {
	code *Code
}

// NewAssembler returns an Assembler over a fresh, empty Code.
func NewAssembler() *Assembler {
	return &Assembler{code: NewCode()}
}

// Lit interns ob in the literal pool and returns its index, reusing the
// index of an already-equal fixnum/bool/symbol so small programs don't
// accumulate duplicate literal-pool entries.
func (a *Assembler) Lit(ob Ob) int32 {
	for i, existing := range a.code.Lits {
		if literalsEqual(existing, ob) {
			return int32(i)
		}
	}
	return int32(a.code.AddLit(ob))
}

func literalsEqual(a, b Ob) bool {
	switch av := a.(type) {
	case Fixnum:
		bv, ok := b.(Fixnum)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Symbol:
		bv, ok := b.(Symbol)
		return ok && av == bv
	default:
		return false
	}
}

// Emit appends one instruction and returns its pc, so callers can patch a
// jump target (via Patch) once the destination is known.
func (a *Assembler) Emit(op Opcode, operands ...int32) int {
	var ins Instruction
	ins.Op = op
	fields := [5]*int32{&ins.A, &ins.B, &ins.C, &ins.D, &ins.E}
	for i, v := range operands {
		if i >= len(fields) {
			break
		}
		*fields[i] = v
	}
	pc := len(a.code.Ops)
	a.code.Ops = append(a.code.Ops, ins)
	return pc
}

// Here returns the pc the next Emit call will use, for forward-jump math
// that doesn't go through Patch.
func (a *Assembler) Here() int32 { return int32(len(a.code.Ops)) }

// Patch rewrites the operand at slot (0-based) of the instruction at pc.
// Used to back-patch a jump target opcode-emitted before its destination
// pc was known.
func (a *Assembler) Patch(pc int, slot int, value int32) {
	ins := &a.code.Ops[pc]
	fields := [5]*int32{&ins.A, &ins.B, &ins.C, &ins.D, &ins.E}
	if slot < 0 || slot >= len(fields) {
		return
	}
	*fields[slot] = value
}

// Code returns the Code object built so far. The Assembler remains usable
// afterward; callers that want a snapshot should Serialize/DeserializeCode
// round-trip it.
func (a *Assembler) Code() *Code { return a.code }
