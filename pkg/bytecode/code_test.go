package bytecode

import "testing"

func TestCodeSerializeRoundTrip(t *testing.T) {
	c := NewCode()
	c.AddLit(Fixnum(7))
	c.AddLit(Bool(true))
	c.AddLit(NIV)
	c.AddLit(ABSENT)
	c.AddLit(Symbol("foo"))
	c.AddLit(&Template{Keymeta: []string{"x", "y"}, Rest: "rest"})
	c.AddLit(GlobalLocationAtom(3).Atom)
	c.AddLit(NILTuple)
	c.Ops = []Instruction{
		{Op: OpIndLitToRslt, A: 0},
		{Op: OpRtn, A: 1},
		{Op: OpHalt},
	}

	data, err := c.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	got, err := DeserializeCode(data)
	if err != nil {
		t.Fatalf("DeserializeCode: %v", err)
	}

	if got.Len() != c.Len() {
		t.Fatalf("Len() = %d, want %d", got.Len(), c.Len())
	}
	for i, ins := range c.Ops {
		if got.Ops[i] != ins {
			t.Errorf("Ops[%d] = %+v, want %+v", i, got.Ops[i], ins)
		}
	}
	if len(got.Lits) != len(c.Lits) {
		t.Fatalf("len(Lits) = %d, want %d", len(got.Lits), len(c.Lits))
	}

	if got.Lits[0] != Fixnum(7) {
		t.Errorf("Lits[0] = %v, want Fixnum(7)", got.Lits[0])
	}
	if got.Lits[1] != Bool(true) {
		t.Errorf("Lits[1] = %v, want Bool(true)", got.Lits[1])
	}
	if got.Lits[4] != Symbol("foo") {
		t.Errorf("Lits[4] = %v, want Symbol(foo)", got.Lits[4])
	}
	tmpl, ok := got.Lits[5].(*Template)
	if !ok || tmpl.Rest != "rest" || len(tmpl.Keymeta) != 2 {
		t.Errorf("Lits[5] = %v, want Template{x,y / rest}", got.Lits[5])
	}
	if Store(LocationAtom(got.Lits[6]), nil, NewGlobalEnv(4), Fixnum(1)).Kind != StoreGlobalKind {
		t.Errorf("Lits[6] did not round-trip as a global-index marker")
	}
}

func TestDeserializeCodeRejectsBadMagic(t *testing.T) {
	data := []byte("XXXX\x00\x01\x00\x00\x00\x00\x00\x00")
	if _, err := DeserializeCode(data); err == nil {
		t.Errorf("DeserializeCode with bad magic should fail")
	}
}

func TestDeserializeCodeRejectsTruncated(t *testing.T) {
	if _, err := DeserializeCode([]byte{0, 1, 2}); err == nil {
		t.Errorf("DeserializeCode on a too-short buffer should fail")
	}
}

func TestCodeLitPanicsOutOfRange(t *testing.T) {
	c := NewCode()
	defer func() {
		if recover() == nil {
			t.Errorf("Lit(out of range) should panic")
		}
	}()
	_ = c.Lit(0)
}
