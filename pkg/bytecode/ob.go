package bytecode

import "fmt"

// Tag is the capability tag every Ob exposes, mirroring the source
// language's OTxxx constants.
type Tag int

const (
	OTfixnum Tag = iota
	OTbool
	OTtuple
	OTtemplate
	OTenv
	OTstdoprn
	OTactor
	OTsysval
	OTniv
	OTabsent
	OTuser
)

func (t Tag) String() string {
	names := [...]string{"fixnum", "bool", "tuple", "template", "env", "stdoprn", "actor", "sysval", "niv", "absent", "user"}
	if int(t) < len(names) {
		return names[t]
	}
	return "Tag(?)"
}

// Ob is the discriminated value every register, argvec slot, and literal
// holds. Variants implement it directly; embedders of user-defined object
// kinds only need to satisfy this interface to participate in the engine
// (lookup, slot access, primitive arguments) without the engine knowing
// their concrete shape.
type Ob interface {
	Tag() Tag
	IsSysVal() bool
	SysVal() (SysCode, bool)
	Slot(i int) (Ob, bool)
}

// Fixnum is a fixed-precision integer.
type Fixnum int64

func (f Fixnum) Tag() Tag                      { return OTfixnum }
func (f Fixnum) IsSysVal() bool                { return false }
func (f Fixnum) SysVal() (SysCode, bool)       { return 0, false }
func (f Fixnum) Slot(i int) (Ob, bool)         { return nil, false }
func (f Fixnum) String() string                { return fmt.Sprintf("%d", int64(f)) }

// Bool is a boolean value (RBLTRUE / RBLFALSE in the immediate literal
// table).
type Bool bool

func (b Bool) Tag() Tag                { return OTbool }
func (b Bool) IsSysVal() bool          { return false }
func (b Bool) SysVal() (SysCode, bool) { return 0, false }
func (b Bool) Slot(i int) (Ob, bool)   { return nil, false }
func (b Bool) String() string {
	if bool(b) {
		return "#t"
	}
	return "#f"
}

var (
	RBLTRUE  Ob = Bool(true)
	RBLFALSE Ob = Bool(false)
)

// Niv is the "no value" sentinel.
type Niv struct{}

func (Niv) Tag() Tag                { return OTniv }
func (Niv) IsSysVal() bool          { return false }
func (Niv) SysVal() (SysCode, bool) { return 0, false }
func (Niv) Slot(i int) (Ob, bool)   { return nil, false }
func (Niv) String() string          { return "#niv" }

var NIV Ob = Niv{}

// Absent marks a missing binding or a missing &rest tail.
type Absent struct{}

func (Absent) Tag() Tag                { return OTabsent }
func (Absent) IsSysVal() bool          { return false }
func (Absent) SysVal() (SysCode, bool) { return 0, false }
func (Absent) Slot(i int) (Ob, bool)   { return nil, false }
func (Absent) String() string          { return "#absent" }

var ABSENT Ob = Absent{}

// SysValOb carries a system-level control signal through the ordinary value
// channel, per the design note that these must stay values in the tagged
// union rather than become Go errors.
type SysValOb struct {
	Code SysCode
}

func (s SysValOb) Tag() Tag                { return OTsysval }
func (s SysValOb) IsSysVal() bool          { return true }
func (s SysValOb) SysVal() (SysCode, bool) { return s.Code, true }
func (s SysValOb) Slot(i int) (Ob, bool)   { return nil, false }
func (s SysValOb) String() string          { return "#sysval<" + s.Code.String() + ">" }

// RestKind classifies how a Tuple's &rest tail disposed when flattened.
type RestKind int

const (
	RestFlattened RestKind = iota
	RestAbsent
	RestInvalid
)

// FlattenResult is the outcome of Tuple.FlattenRest.
type FlattenResult struct {
	Kind  RestKind
	Tuple *Tuple
}

// Tuple is an ordered, fixed-length sequence of Ob. The NIL tuple is the
// zero-length Tuple, used as both the empty argvec and the empty-rest
// marker value.
type Tuple struct {
	Elems []Ob
}

var NILTuple = &Tuple{}

func NewTuple(n int, fill Ob) *Tuple {
	t := &Tuple{Elems: make([]Ob, n)}
	for i := range t.Elems {
		t.Elems[i] = fill
	}
	return t
}

func (t *Tuple) Tag() Tag       { return OTtuple }
func (t *Tuple) IsSysVal() bool { return false }
func (t *Tuple) SysVal() (SysCode, bool) {
	return 0, false
}
func (t *Tuple) Slot(i int) (Ob, bool) { return t.Elem(i) }
func (t *Tuple) Len() int              { return len(t.Elems) }

// Elem returns the i'th element, or (nil, false) if i is out of range.
func (t *Tuple) Elem(i int) (Ob, bool) {
	if i < 0 || i >= len(t.Elems) {
		return nil, false
	}
	return t.Elems[i], true
}

// SetElem writes the i'th element in place. Returns false if i is out of
// range — callers treat that as a store failure, never a panic.
func (t *Tuple) SetElem(i int, ob Ob) bool {
	if i < 0 || i >= len(t.Elems) {
		return false
	}
	t.Elems[i] = ob
	return true
}

// FlattenRest implements the &rest-tail disposal contract ApplyPrim's
// unwind path relies on: an empty tuple flattens to NIL, a Tuple in the
// tail position is spliced onto the elements before it, an Absent
// sentinel in the tail position means "no rest supplied" (it is dropped),
// and anything else there is an invalid rest value.
func (t *Tuple) FlattenRest() FlattenResult {
	if t == nil || len(t.Elems) == 0 {
		return FlattenResult{Kind: RestFlattened, Tuple: NILTuple}
	}
	last := t.Elems[len(t.Elems)-1]
	switch v := last.(type) {
	case *Tuple:
		flat := make([]Ob, 0, len(t.Elems)-1+len(v.Elems))
		flat = append(flat, t.Elems[:len(t.Elems)-1]...)
		flat = append(flat, v.Elems...)
		return FlattenResult{Kind: RestFlattened, Tuple: &Tuple{Elems: flat}}
	case Absent:
		return FlattenResult{Kind: RestAbsent, Tuple: &Tuple{Elems: t.Elems[:len(t.Elems)-1]}}
	default:
		return FlattenResult{Kind: RestInvalid}
	}
}

// Template is a pattern used to bind actuals into a new Env frame.
// Keymeta holds the formal parameter names in position order; if Rest is
// non-empty the last formal collects any overflow actuals into a tuple
// (the "&rest" tail).
type Template struct {
	Keymeta []string
	Rest    string
}

func (tm *Template) Tag() Tag                { return OTtemplate }
func (tm *Template) IsSysVal() bool          { return false }
func (tm *Template) SysVal() (SysCode, bool) { return 0, false }
func (tm *Template) Slot(i int) (Ob, bool)   { return nil, false }

// MatchPattern binds argvec[0:nargs] against the template. Exact arity
// matches always succeed; a shortfall or (absent &rest) excess fails.
func (tm *Template) MatchPattern(argvec *Tuple, nargs uint16) (*Tuple, bool) {
	n := int(nargs)
	fixed := len(tm.Keymeta)
	if tm.Rest == "" {
		if n != fixed {
			return nil, false
		}
		return &Tuple{Elems: append([]Ob{}, argvec.Elems[:n]...)}, true
	}
	if n < fixed {
		return nil, false
	}
	bound := make([]Ob, 0, fixed+1)
	bound = append(bound, argvec.Elems[:fixed]...)
	rest := &Tuple{Elems: append([]Ob{}, argvec.Elems[fixed:n]...)}
	bound = append(bound, rest)
	return &Tuple{Elems: bound}, true
}

// Env is a lexical-frame chain. Meta, when set, is the Template that
// describes this frame's slot names — LookupToArg/Reg walks it via
// lookupOBO ("by one", i.e. this frame, then its parent).
type Env struct {
	Parent *Env
	Slots  []Ob
	Meta   *Template
}

func (e *Env) Tag() Tag                { return OTenv }
func (e *Env) IsSysVal() bool          { return false }
func (e *Env) SysVal() (SysCode, bool) { return 0, false }
func (e *Env) Slot(i int) (Ob, bool) {
	if e == nil || i < 0 || i >= len(e.Slots) {
		return nil, false
	}
	return e.Slots[i], true
}

// ExtendWith builds a new child Env binding keymeta's names to tuple's
// elements, per-slot, one level deeper than e.
func (e *Env) ExtendWith(keymeta *Template, tuple *Tuple) *Env {
	return &Env{
		Parent: e,
		Slots:  append([]Ob{}, tuple.Elems...),
		Meta:   keymeta,
	}
}

// LookupOBO resolves key against this frame, walking Parent links, on
// behalf of selfEnv (the actor-extension view used by XferLexToArg/Reg's
// indirection flag). Returns AbsentError if the chain is exhausted, or
// UpcallError if ctxt asks the object system to re-dispatch — the real
// decision belongs to the external object-system hook; this default walk
// only ever returns a value or AbsentError, and exists so the engine is
// runnable standalone before a host wires in its own resolver.
func (e *Env) LookupOBO(selfEnv *Env, key string, ctxt *Ctxt) (Ob, RblError) {
	for frame := e; frame != nil; frame = frame.Parent {
		if frame.Meta == nil {
			continue
		}
		for i, name := range frame.Meta.Keymeta {
			if name == key {
				v, ok := frame.Slot(i)
				if !ok {
					break
				}
				return v, RblError{}
			}
		}
	}
	return nil, AbsentError()
}

// StdOprn is a standard operation: a value that, when transmitted to
// (ctxt.trgt), dispatches through its own Dispatch hook rather than
// through generic primitive application. This is the one doXmit target
// case the dispatch loop is specified to understand natively; see
// flags.go.
type StdOprn struct {
	Name string
	Fn   func(state *VMState) RblError
}

func (s *StdOprn) Tag() Tag                { return OTstdoprn }
func (s *StdOprn) IsSysVal() bool          { return false }
func (s *StdOprn) SysVal() (SysCode, bool) { return 0, false }
func (s *StdOprn) Slot(i int) (Ob, bool)   { return nil, false }

// Dispatch runs the operation's handler against the current VM state. A
// nil Fn is a configuration error on the host's part, not a VM fault, so
// it panics rather than threading another error case through every
// caller.
func (s *StdOprn) Dispatch(state *VMState) RblError {
	if s.Fn == nil {
		panic("bytecode: StdOprn " + s.Name + " has no dispatch function")
	}
	return s.Fn(state)
}

// Actor is a minimal actor object: a slot vector plus an opaque handle to
// whatever the embedding object system's vtable/class machinery uses for
// method resolution. The engine never reads Handle; it is there purely so
// host-side Prim implementations can recover their own object on an Ob
// they got back from argvec.
type Actor struct {
	Slots  []Ob
	Handle any
}

func (a *Actor) Tag() Tag                { return OTactor }
func (a *Actor) IsSysVal() bool          { return false }
func (a *Actor) SysVal() (SysCode, bool) { return 0, false }
func (a *Actor) Slot(i int) (Ob, bool) {
	if a == nil || i < 0 || i >= len(a.Slots) {
		return nil, false
	}
	return a.Slots[i], true
}
