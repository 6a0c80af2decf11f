package bytecode

import "testing"

func TestOpcodeInfoCoversDocumentedArgCount(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" {
			t.Errorf("opcode 0x%02X has no name in the info table", byte(op))
		}
		for i := info.NumArgs; i < len(info.ArgNames); i++ {
			if info.ArgNames[i] != "" {
				t.Errorf("%s: ArgNames[%d] = %q beyond declared NumArgs=%d", info.Name, i, info.ArgNames[i], info.NumArgs)
			}
		}
	}
}

func TestUnknownOpcodeStringDoesNotPanic(t *testing.T) {
	got := Opcode(0x99).String()
	if got == "" {
		t.Errorf("String() on an undefined opcode returned empty")
	}
}

func TestImmediateLiteralTable(t *testing.T) {
	for i := 0; i <= 7; i++ {
		v, ok := ImmediateLiteral(i)
		if !ok || v != Fixnum(int64(i)) {
			t.Errorf("ImmediateLiteral(%d) = %v, %v; want Fixnum(%d), true", i, v, ok, i)
		}
	}
	if v, ok := ImmediateLiteral(8); !ok || v != RBLTRUE {
		t.Errorf("ImmediateLiteral(8) = %v, %v; want RBLTRUE, true", v, ok)
	}
	if _, ok := ImmediateLiteral(-1); ok {
		t.Errorf("ImmediateLiteral(-1) should fail")
	}
	if _, ok := ImmediateLiteral(12); ok {
		t.Errorf("ImmediateLiteral(12) should fail, table has 12 entries (0-11)")
	}
}
