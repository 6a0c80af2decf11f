package bytecode

import "fmt"

// Opcode identifies one dispatch-loop instruction. Values are grouped into
// ranges by category, the way the operand table in the external interface
// section groups them by the register/location family they touch.
type Opcode byte

const (
	// Control transfer (0x00-0x0F) — §4.6.
	OpHalt        Opcode = 0x00
	OpPush        Opcode = 0x01
	OpPop         Opcode = 0x02
	OpNargs       Opcode = 0x03 // operand: n
	OpAlloc       Opcode = 0x04 // operand: n
	OpPushAlloc   Opcode = 0x05 // operand: n
	OpExtend      Opcode = 0x06 // operand: v (template literal index)
	OpOutstanding Opcode = 0x07 // operands: p, n
	OpFork        Opcode = 0x08 // operand: p
	OpSend        Opcode = 0x09 // operand: m (nargs)
	OpUpcallRtn   Opcode = 0x0A // operands: v, n
	OpUpcallResume Opcode = 0x0B
	OpNxt         Opcode = 0x0C
	OpJmp         Opcode = 0x0D // operand: n (target pc)
	OpJmpCut      Opcode = 0x0E // operands: m (lift levels), n (target pc)
	OpJmpFalse    Opcode = 0x0F // operand: n (target pc)

	// Xmit family (0x10-0x12) — tag/arg/reg variants, plus Rtn family
	// (0x13-0x16).
	OpXmitTag Opcode = 0x10 // operands: v, m, n
	OpXmitArg Opcode = 0x11 // operands: a, m, n
	OpXmitReg Opcode = 0x12 // operands: r, m, n

	OpRtn    Opcode = 0x13 // operand: n
	OpRtnTag Opcode = 0x14 // operands: v, n
	OpRtnArg Opcode = 0x15 // operands: a, n
	OpRtnReg Opcode = 0x16 // operands: r, n

	// Primitive application (0x20-0x2F) — §4.4.
	OpApplyPrimTag Opcode = 0x20 // operands: k, u, m, n, v
	OpApplyPrimArg Opcode = 0x21 // operands: k, u, m, n, a
	OpApplyPrimReg Opcode = 0x22 // operands: k, u, m, n, r
	OpApplyCmd     Opcode = 0x23 // operands: k, u, m, n

	// Lookup & transfer (0x30-0x4F) — §4.7.
	OpLookupToArg Opcode = 0x30 // operands: a, v
	OpLookupToReg Opcode = 0x31 // operands: r, v

	OpXferLexToArg Opcode = 0x32 // operands: l, i, o, a
	OpXferLexToReg Opcode = 0x33 // operands: l, i, o, r

	OpXferGlobalToArg Opcode = 0x34 // operands: g, a
	OpXferGlobalToReg Opcode = 0x35 // operands: g, r

	OpXferArgToArg Opcode = 0x36 // operands: s, d

	OpXferRsltToArg  Opcode = 0x37 // operand: a
	OpXferRsltToReg  Opcode = 0x38 // operand: r
	OpXferRsltToDest Opcode = 0x39 // store rslt via ctxt.Tag

	OpXferArgToRslt Opcode = 0x3A // operand: a
	OpXferRegToRslt Opcode = 0x3B // operand: r
	OpXferSrcToRslt Opcode = 0x3C // fetch via ctxt.Tag

	OpIndLitToArg  Opcode = 0x3D // operands: v, a
	OpIndLitToReg  Opcode = 0x3E // operands: v, r
	OpIndLitToRslt Opcode = 0x3F // operand: v

	OpImmediateLitToArg Opcode = 0x40 // operands: v, a
	OpImmediateLitToReg Opcode = 0x41 // operands: v, r
	OpImmediateLitToRslt Opcode = 0x42 // operand: v

	// Unknown is the fatal catch-all for a byte that decodes to no
	// defined opcode.
	OpUnknown Opcode = 0xFF
)

// OpcodeInfo documents an opcode's operand shape for the disassembler and
// for tests that want to assert "this opcode reads an argvec slot" style
// properties without a giant switch of their own.
type OpcodeInfo struct {
	Name     string
	NumArgs  int // number of Instruction operand fields actually used
	ArgNames [5]string
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpHalt:        {"HALT", 0, [5]string{}},
	OpPush:        {"PUSH", 0, [5]string{}},
	OpPop:         {"POP", 0, [5]string{}},
	OpNargs:       {"NARGS", 1, [5]string{"n"}},
	OpAlloc:       {"ALLOC", 1, [5]string{"n"}},
	OpPushAlloc:   {"PUSH_ALLOC", 1, [5]string{"n"}},
	OpExtend:      {"EXTEND", 1, [5]string{"v"}},
	OpOutstanding: {"OUTSTANDING", 2, [5]string{"p", "n"}},
	OpFork:        {"FORK", 1, [5]string{"p"}},
	OpSend:        {"SEND", 1, [5]string{"m"}},
	OpUpcallRtn:   {"UPCALL_RTN", 2, [5]string{"v", "n"}},
	OpUpcallResume: {"UPCALL_RESUME", 0, [5]string{}},
	OpNxt:         {"NXT", 0, [5]string{}},
	OpJmp:         {"JMP", 1, [5]string{"n"}},
	OpJmpCut:      {"JMP_CUT", 2, [5]string{"m", "n"}},
	OpJmpFalse:    {"JMP_FALSE", 1, [5]string{"n"}},

	OpXmitTag: {"XMIT_TAG", 3, [5]string{"v", "m", "n"}},
	OpXmitArg: {"XMIT_ARG", 3, [5]string{"a", "m", "n"}},
	OpXmitReg: {"XMIT_REG", 3, [5]string{"r", "m", "n"}},

	OpRtn:    {"RTN", 1, [5]string{"n"}},
	OpRtnTag: {"RTN_TAG", 2, [5]string{"v", "n"}},
	OpRtnArg: {"RTN_ARG", 2, [5]string{"a", "n"}},
	OpRtnReg: {"RTN_REG", 2, [5]string{"r", "n"}},

	OpApplyPrimTag: {"APPLY_PRIM_TAG", 5, [5]string{"k", "u", "m", "n", "v"}},
	OpApplyPrimArg: {"APPLY_PRIM_ARG", 5, [5]string{"k", "u", "m", "n", "a"}},
	OpApplyPrimReg: {"APPLY_PRIM_REG", 5, [5]string{"k", "u", "m", "n", "r"}},
	OpApplyCmd:     {"APPLY_CMD", 4, [5]string{"k", "u", "m", "n"}},

	OpLookupToArg: {"LOOKUP_TO_ARG", 2, [5]string{"a", "v"}},
	OpLookupToReg: {"LOOKUP_TO_REG", 2, [5]string{"r", "v"}},

	OpXferLexToArg: {"XFER_LEX_TO_ARG", 4, [5]string{"l", "i", "o", "a"}},
	OpXferLexToReg: {"XFER_LEX_TO_REG", 4, [5]string{"l", "i", "o", "r"}},

	OpXferGlobalToArg: {"XFER_GLOBAL_TO_ARG", 2, [5]string{"g", "a"}},
	OpXferGlobalToReg: {"XFER_GLOBAL_TO_REG", 2, [5]string{"g", "r"}},

	OpXferArgToArg: {"XFER_ARG_TO_ARG", 2, [5]string{"s", "d"}},

	OpXferRsltToArg:  {"XFER_RSLT_TO_ARG", 1, [5]string{"a"}},
	OpXferRsltToReg:  {"XFER_RSLT_TO_REG", 1, [5]string{"r"}},
	OpXferRsltToDest: {"XFER_RSLT_TO_DEST", 0, [5]string{}},

	OpXferArgToRslt: {"XFER_ARG_TO_RSLT", 1, [5]string{"a"}},
	OpXferRegToRslt: {"XFER_REG_TO_RSLT", 1, [5]string{"r"}},
	OpXferSrcToRslt: {"XFER_SRC_TO_RSLT", 0, [5]string{}},

	OpIndLitToArg:  {"INDLIT_TO_ARG", 2, [5]string{"v", "a"}},
	OpIndLitToReg:  {"INDLIT_TO_REG", 2, [5]string{"v", "r"}},
	OpIndLitToRslt: {"INDLIT_TO_RSLT", 1, [5]string{"v"}},

	OpImmediateLitToArg:  {"IMMLIT_TO_ARG", 2, [5]string{"v", "a"}},
	OpImmediateLitToReg:  {"IMMLIT_TO_REG", 2, [5]string{"v", "r"}},
	OpImmediateLitToRslt: {"IMMLIT_TO_RSLT", 1, [5]string{"v"}},
}

// GetOpcodeInfo returns metadata for op, or a synthesized "UNKNOWN" entry
// if op is not in the table (including OpUnknown itself).
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

func (op Opcode) String() string { return GetOpcodeInfo(op).Name }

// AllOpcodes returns every defined opcode, for tests that want to assert
// exhaustive metadata coverage.
func AllOpcodes() []Opcode {
	ops := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		ops = append(ops, op)
	}
	return ops
}

// vmLiterals is the fixed, ordered immediate literal table: Fixnum(0..7),
// RBLTRUE, RBLFALSE, NIL, NIV — twelve entries, addressed by
// ImmediateLitToArg/Reg/Rslt's v operand. It is process-wide and
// immutable, per the design note about global singletons.
var vmLiterals = [12]Ob{
	Fixnum(0), Fixnum(1), Fixnum(2), Fixnum(3),
	Fixnum(4), Fixnum(5), Fixnum(6), Fixnum(7),
	RBLTRUE, RBLFALSE, NILTuple, NIV,
}

// ImmediateLiteral returns the v'th entry of the fixed immediate literal
// table, or (nil, false) if v is out of range.
func ImmediateLiteral(v int) (Ob, bool) {
	if v < 0 || v >= len(vmLiterals) {
		return nil, false
	}
	return vmLiterals[v], true
}
