package bytecode

import "testing"

func TestFetchStoreArgReg(t *testing.T) {
	ctxt := NewCtxt(nil)
	ctxt.Argvec = NewTuple(2, NIV)
	loc := ArgRegLoc(1)

	res := Store(loc, ctxt, nil, Fixnum(42))
	if res.Kind != StoreCtxtKind {
		t.Fatalf("Store(ArgReg) Kind = %v, want StoreCtxtKind", res.Kind)
	}
	v, ok := Fetch(loc, ctxt, nil)
	if !ok || v != Fixnum(42) {
		t.Errorf("Fetch(ArgReg) = %v, %v; want Fixnum(42), true", v, ok)
	}
}

func TestFetchStoreArgRegOutOfRangeFails(t *testing.T) {
	ctxt := NewCtxt(nil)
	ctxt.Argvec = NewTuple(1, NIV)
	res := Store(ArgRegLoc(5), ctxt, nil, Fixnum(1))
	if res.Kind != StoreFail {
		t.Errorf("Store(ArgReg, out of range) Kind = %v, want StoreFail", res.Kind)
	}
}

func TestFetchStoreCtxtReg(t *testing.T) {
	ctxt := NewCtxt(nil)
	loc := CtxtRegLoc(3)

	res := Store(loc, ctxt, nil, Fixnum(99))
	if res.Kind != StoreCtxtKind {
		t.Fatalf("Store(CtxtReg) Kind = %v, want StoreCtxtKind", res.Kind)
	}
	v, ok := Fetch(loc, res.Ctxt, nil)
	if !ok || v != Fixnum(99) {
		t.Errorf("Fetch(CtxtReg) = %v, %v; want Fixnum(99), true", v, ok)
	}
}

func TestFetchStoreCtxtRegOutOfRange(t *testing.T) {
	ctxt := NewCtxt(nil)
	if res := Store(CtxtRegLoc(NumRegs), ctxt, nil, Fixnum(1)); res.Kind != StoreFail {
		t.Errorf("Store(CtxtReg, out of range) Kind = %v, want StoreFail", res.Kind)
	}
}

func TestStoreLocationAtomGlobal(t *testing.T) {
	g := NewGlobalEnv(2)
	loc := GlobalLocationAtom(1)

	res := Store(loc, nil, g, Fixnum(7))
	if res.Kind != StoreGlobalKind {
		t.Fatalf("Store(global atom) Kind = %v, want StoreGlobalKind", res.Kind)
	}
	v, ok := res.Env.Entry(1)
	if !ok || v != Fixnum(7) {
		t.Errorf("Entry(1) = %v, %v; want Fixnum(7), true", v, ok)
	}
	// the original GlobalEnv must be untouched (immutable update).
	if orig, _ := g.Entry(1); orig == Fixnum(7) {
		t.Errorf("original GlobalEnv was mutated in place")
	}
}

func TestStoreLocationAtomOrdinaryLiteralFails(t *testing.T) {
	loc := LocationAtom(Fixnum(5))
	res := Store(loc, nil, NewGlobalEnv(1), Fixnum(1))
	if res.Kind != StoreFail {
		t.Errorf("Store(ordinary literal atom) Kind = %v, want StoreFail", res.Kind)
	}
}

func TestFetchLocationAtom(t *testing.T) {
	loc := LocationAtom(Fixnum(123))
	v, ok := Fetch(loc, nil, nil)
	if !ok || v != Fixnum(123) {
		t.Errorf("Fetch(atom) = %v, %v; want Fixnum(123), true", v, ok)
	}
}

func TestFetchStoreLimboAlwaysFails(t *testing.T) {
	if _, ok := Fetch(LIMBO, nil, nil); ok {
		t.Errorf("Fetch(LIMBO) should fail")
	}
	if res := Store(LIMBO, nil, nil, Fixnum(1)); res.Kind != StoreFail {
		t.Errorf("Store(LIMBO) Kind = %v, want StoreFail", res.Kind)
	}
}
