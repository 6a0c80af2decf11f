package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders every instruction in c as one line per pc, in the
// offset-prefixed listing style the predecessor's chunk disassembler used.
func Disassemble(c *Code) string {
	return DisassembleWithName(c, "code")
}

// DisassembleWithName is Disassemble with a header line naming the unit,
// useful when dumping several Code objects (one per method/block) in a
// single listing.
func DisassembleWithName(c *Code, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "; === %s ===\n", name)
	for pc, ins := range c.Ops {
		b.WriteString(disassembleInstruction(c, pc, ins))
		b.WriteByte('\n')
	}
	if len(c.Lits) > 0 {
		b.WriteString("; literals\n")
		for i, lit := range c.Lits {
			fmt.Fprintf(&b, ";   %4d  %s\n", i, formatLit(lit))
		}
	}
	return b.String()
}

func disassembleInstruction(c *Code, pc int, ins Instruction) string {
	info := GetOpcodeInfo(ins.Op)
	operands := [5]int32{ins.A, ins.B, ins.C, ins.D, ins.E}

	var parts []string
	for i := 0; i < info.NumArgs; i++ {
		name := info.ArgNames[i]
		val := operands[i]
		if isLiteralOperand(ins.Op, name) {
			parts = append(parts, fmt.Sprintf("%s=%d(%s)", name, val, formatLit(safeLit(c, int(val)))))
		} else {
			parts = append(parts, fmt.Sprintf("%s=%d", name, val))
		}
	}

	line := fmt.Sprintf("%4d  %-16s", pc, info.Name)
	if len(parts) > 0 {
		line += " " + strings.Join(parts, " ")
	}
	return line
}

// isLiteralOperand reports whether the named operand of op indexes the
// literal pool (the "v" slots) rather than an argvec/register/count.
func isLiteralOperand(op Opcode, name string) bool {
	if name != "v" {
		return false
	}
	switch op {
	case OpExtend, OpXmitTag, OpRtnTag, OpApplyPrimTag,
		OpLookupToArg, OpLookupToReg,
		OpIndLitToArg, OpIndLitToReg, OpIndLitToRslt,
		OpUpcallRtn:
		return true
	default:
		return false
	}
}

func safeLit(c *Code, v int) Ob {
	if v < 0 || v >= len(c.Lits) {
		return nil
	}
	return c.Lits[v]
}

func formatLit(ob Ob) string {
	if ob == nil {
		return "?"
	}
	if s, ok := ob.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", ob)
}
