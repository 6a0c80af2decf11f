package bytecode

// Symbol is an interned-looking atom used as an environment lookup key or
// a message selector. It is not one of the variants §3 enumerates by name,
// but the lookup/transfer opcodes (LookupToArg/Reg, and the Extend
// template's keymeta) need some literal-pool atom to carry a name, and
// this is the natural one.
type Symbol string

func (Symbol) Tag() Tag                { return OTuser }
func (Symbol) IsSysVal() bool          { return false }
func (Symbol) SysVal() (SysCode, bool) { return 0, false }
func (Symbol) Slot(i int) (Ob, bool)   { return nil, false }
func (s Symbol) String() string        { return string(s) }
