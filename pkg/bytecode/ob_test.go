package bytecode

import "testing"

func TestTupleElemSetElemBounds(t *testing.T) {
	tup := NewTuple(3, NIV)
	if !tup.SetElem(1, Fixnum(7)) {
		t.Fatalf("SetElem(1) should succeed")
	}
	v, ok := tup.Elem(1)
	if !ok || v != Fixnum(7) {
		t.Errorf("Elem(1) = %v, %v; want Fixnum(7), true", v, ok)
	}
	if tup.SetElem(3, Fixnum(0)) {
		t.Errorf("SetElem(3) on a 3-element tuple should fail")
	}
	if _, ok := tup.Elem(-1); ok {
		t.Errorf("Elem(-1) should fail")
	}
}

func TestTupleFlattenRest(t *testing.T) {
	tests := []struct {
		name    string
		tuple   *Tuple
		wantLen int
		wantKind RestKind
	}{
		{"empty", &Tuple{}, 0, RestFlattened},
		{"no rest tail", &Tuple{Elems: []Ob{Fixnum(1), Fixnum(2)}}, 0, RestInvalid},
		{"absent rest", &Tuple{Elems: []Ob{Fixnum(1), ABSENT}}, 1, RestAbsent},
		{"flattened rest", &Tuple{Elems: []Ob{Fixnum(1), &Tuple{Elems: []Ob{Fixnum(2), Fixnum(3)}}}}, 3, RestFlattened},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.tuple.FlattenRest()
			if got.Kind != tc.wantKind {
				t.Fatalf("Kind = %v, want %v", got.Kind, tc.wantKind)
			}
			if got.Kind != RestInvalid && got.Tuple.Len() != tc.wantLen {
				t.Errorf("Len() = %d, want %d", got.Tuple.Len(), tc.wantLen)
			}
		})
	}
}

func TestTemplateMatchPatternExact(t *testing.T) {
	tmpl := &Template{Keymeta: []string{"x", "y"}}
	argvec := &Tuple{Elems: []Ob{Fixnum(1), Fixnum(2)}}

	bound, ok := tmpl.MatchPattern(argvec, 2)
	if !ok {
		t.Fatalf("exact-arity match should succeed")
	}
	if bound.Len() != 2 {
		t.Errorf("bound.Len() = %d, want 2", bound.Len())
	}

	if _, ok := tmpl.MatchPattern(argvec, 1); ok {
		t.Errorf("arity shortfall against a fixed template should fail")
	}
}

func TestTemplateMatchPatternRest(t *testing.T) {
	tmpl := &Template{Keymeta: []string{"x"}, Rest: "rest"}
	argvec := &Tuple{Elems: []Ob{Fixnum(1), Fixnum(2), Fixnum(3)}}

	bound, ok := tmpl.MatchPattern(argvec, 3)
	if !ok {
		t.Fatalf("&rest match should succeed")
	}
	if bound.Len() != 2 {
		t.Fatalf("bound.Len() = %d, want 2 (x, rest-tuple)", bound.Len())
	}
	rest, ok := bound.Elem(1)
	if !ok {
		t.Fatalf("bound[1] missing")
	}
	restTuple, ok := rest.(*Tuple)
	if !ok || restTuple.Len() != 2 {
		t.Errorf("rest tuple = %v, want a 2-element tuple", rest)
	}

	if _, ok := tmpl.MatchPattern(argvec, 0); ok {
		t.Errorf("arity shortfall below the fixed prefix should fail even with &rest")
	}
}

func TestEnvExtendWithAndLookupOBO(t *testing.T) {
	tmpl := &Template{Keymeta: []string{"a", "b"}}
	root := &Env{}
	child := root.ExtendWith(tmpl, &Tuple{Elems: []Ob{Fixnum(10), Fixnum(20)}})

	v, err := child.LookupOBO(child, "b", nil)
	if err.Kind != ErrNone {
		t.Fatalf("lookup of bound name failed: %v", err)
	}
	if v != Fixnum(20) {
		t.Errorf("lookup(b) = %v, want Fixnum(20)", v)
	}

	if _, err := child.LookupOBO(child, "nope", nil); err.Kind != ErrAbsent {
		t.Errorf("lookup of unbound name: Kind = %v, want ErrAbsent", err.Kind)
	}
}

func TestStdOprnDispatchPanicsWithoutFn(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("Dispatch with nil Fn should panic")
		}
	}()
	op := &StdOprn{Name: "broken"}
	_ = op.Dispatch(nil)
}
