package bytecode

// LocKind discriminates the four Location variants.
type LocKind int

const (
	LocArgReg LocKind = iota
	LocCtxtReg
	LocAtom
	LocLimbo
)

// Location addresses a place a value can be fetched from or stored to: an
// argument-vector slot, a context register, a literal-pool atom used as a
// tag, or LIMBO (nowhere — Fetch and Store against it always fail).
type Location struct {
	Kind LocKind
	N    int
	Atom Ob
}

var LIMBO = Location{Kind: LocLimbo}

func ArgRegLoc(n int) Location    { return Location{Kind: LocArgReg, N: n} }
func CtxtRegLoc(n int) Location   { return Location{Kind: LocCtxtReg, N: n} }
func LocationAtom(lit Ob) Location { return Location{Kind: LocAtom, Atom: lit} }

// StoreKind discriminates the three outcomes of a store.
type StoreKind int

const (
	StoreFail StoreKind = iota
	StoreCtxtKind
	StoreGlobalKind
)

// StoreResult is the outcome of Location.Store: either a failure, a
// Ctxt, or a replacement GlobalEnv. ArgReg and CtxtReg writes mutate the
// ctxt in place and hand the same *Ctxt back; callers install whichever
// Ctxt or GlobalEnv came back.
type StoreResult struct {
	Kind  StoreKind
	Ctxt  *Ctxt
	Env   *GlobalEnv
}

// Fetch reads the value addressed by loc. ArgReg and CtxtReg read through
// ctxt; LocationAtom returns its literal directly; LIMBO never holds a
// value.
func Fetch(loc Location, ctxt *Ctxt, globalEnv *GlobalEnv) (Ob, bool) {
	switch loc.Kind {
	case LocArgReg:
		if ctxt == nil || ctxt.Argvec == nil {
			return nil, false
		}
		return ctxt.Argvec.Elem(loc.N)
	case LocCtxtReg:
		if ctxt == nil {
			return nil, false
		}
		return ctxt.GetReg(loc.N)
	case LocAtom:
		return loc.Atom, loc.Atom != nil
	case LocLimbo:
		return nil, false
	default:
		return nil, false
	}
}

// Store writes ob to the place addressed by loc, against ctxt/globalEnv.
// ArgReg writes produce a StoreCtxt result carrying the same *Ctxt (argvec
// mutation is in place, since Tuple.SetElem is), CtxtReg writes produce a
// StoreCtxt result carrying a replacement *Ctxt from Ctxt.SetReg, and a
// LocationAtom destination that names a global-env index produces a
// StoreGlobal result. Anything else — an out-of-range register, an atom
// that isn't a global-env marker, LIMBO — is StoreFail.
func Store(loc Location, ctxt *Ctxt, globalEnv *GlobalEnv, ob Ob) StoreResult {
	switch loc.Kind {
	case LocArgReg:
		if ctxt == nil || ctxt.Argvec == nil || !ctxt.Argvec.SetElem(loc.N, ob) {
			return StoreResult{Kind: StoreFail}
		}
		return StoreResult{Kind: StoreCtxtKind, Ctxt: ctxt}
	case LocCtxtReg:
		if ctxt == nil {
			return StoreResult{Kind: StoreFail}
		}
		next, ok := ctxt.SetReg(loc.N, ob)
		if !ok {
			return StoreResult{Kind: StoreFail}
		}
		return StoreResult{Kind: StoreCtxtKind, Ctxt: next}
	case LocAtom:
		if g, ok := loc.Atom.(globalIndex); ok {
			next, ok := globalEnv.WithEntry(int(g), ob)
			if !ok {
				return StoreResult{Kind: StoreFail}
			}
			return StoreResult{Kind: StoreGlobalKind, Env: next}
		}
		return StoreResult{Kind: StoreFail}
	default:
		return StoreResult{Kind: StoreFail}
	}
}

// globalIndex is a literal-pool atom that names a global-env slot rather
// than carrying a value directly, letting LocationAtom address the global
// env the same way it addresses any other literal-backed tag.
type globalIndex int

func (globalIndex) Tag() Tag                { return OTuser }
func (globalIndex) IsSysVal() bool          { return false }
func (globalIndex) SysVal() (SysCode, bool) { return 0, false }
func (globalIndex) Slot(i int) (Ob, bool)   { return nil, false }

// GlobalLocationAtom builds a LocationAtom literal that Store resolves
// against the global environment at index g.
func GlobalLocationAtom(g int) Location {
	return LocationAtom(globalIndex(g))
}
