package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Snapshot is a point-in-time, CBOR-encoded dump of a VMState's schedulable
// state: the global environment plus every strand waiting in the strand
// and sleeper pools. It is a diagnostic artifact for the CLI host's
// -snapshot flag, not a suspend/resume checkpoint: a Code object's
// instruction stream, a Ctxt's Env chain, and an Actor's opaque Handle are
// deliberately left out, since reconstructing them needs the external
// compiler and object system this package treats as fixed collaborators.
// Capturing only the literal-safe value union (the same one Code's literal
// pool already knows how to round-trip) keeps this honest about what it
// can and can't reproduce.
type Snapshot struct {
	GlobalEnv   []snapOb
	StrandPool  []strandSnapshot
	SleeperPool []strandSnapshot
}

type strandSnapshot struct {
	Tag         locSnapshot
	Nargs       uint16
	PC          uint32
	Outstanding int32
	Rslt        snapOb
	Trgt        snapOb
	Argvec      []snapOb
	Regs        []snapOb
}

type locSnapshot struct {
	Kind uint8
	N    int
	Atom snapOb
}

// snapOb is the wire shape for one Ob value in a snapshot. Unlike litWire
// (which only needs to round-trip compiler-emitted literals), this also
// has to carry Tuples of arbitrary depth, since an argvec or a register
// can hold one at suspend time — hence the recursive Elems field.
type snapOb struct {
	Kind  uint8    `cbor:"1,keyasint"`
	I     int64    `cbor:"2,keyasint,omitempty"`
	B     bool     `cbor:"3,keyasint,omitempty"`
	S     string   `cbor:"4,keyasint,omitempty"`
	Elems []snapOb `cbor:"5,keyasint,omitempty"`
}

const (
	snapKindFixnum uint8 = iota
	snapKindBool
	snapKindNiv
	snapKindAbsent
	snapKindSymbol
	snapKindTuple
	snapKindGlobalIndex
	snapKindSysVal
	// snapKindOpaque marks a value this format cannot represent (Env,
	// Actor, StdOprn, or anything else outside the literal-safe union).
	// It decodes back to NIV rather than failing the whole snapshot.
	snapKindOpaque
)

func obToSnap(ob Ob) snapOb {
	switch v := ob.(type) {
	case nil:
		return snapOb{Kind: snapKindOpaque}
	case Fixnum:
		return snapOb{Kind: snapKindFixnum, I: int64(v)}
	case Bool:
		return snapOb{Kind: snapKindBool, B: bool(v)}
	case Niv:
		return snapOb{Kind: snapKindNiv}
	case Absent:
		return snapOb{Kind: snapKindAbsent}
	case Symbol:
		return snapOb{Kind: snapKindSymbol, S: string(v)}
	case globalIndex:
		return snapOb{Kind: snapKindGlobalIndex, I: int64(v)}
	case SysValOb:
		return snapOb{Kind: snapKindSysVal, I: int64(v.Code)}
	case *Tuple:
		if v == nil {
			return snapOb{Kind: snapKindTuple}
		}
		elems := make([]snapOb, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = obToSnap(e)
		}
		return snapOb{Kind: snapKindTuple, Elems: elems}
	default:
		return snapOb{Kind: snapKindOpaque}
	}
}

func snapToOb(s snapOb) Ob {
	switch s.Kind {
	case snapKindFixnum:
		return Fixnum(s.I)
	case snapKindBool:
		return Bool(s.B)
	case snapKindNiv:
		return NIV
	case snapKindAbsent:
		return ABSENT
	case snapKindSymbol:
		return Symbol(s.S)
	case snapKindGlobalIndex:
		return globalIndex(s.I)
	case snapKindSysVal:
		return SysValOb{Code: SysCode(s.I)}
	case snapKindTuple:
		elems := make([]Ob, len(s.Elems))
		for i, e := range s.Elems {
			elems[i] = snapToOb(e)
		}
		return &Tuple{Elems: elems}
	default:
		return NIV
	}
}

func locToSnap(loc Location) locSnapshot {
	return locSnapshot{Kind: uint8(loc.Kind), N: loc.N, Atom: obToSnap(loc.Atom)}
}

func snapToLoc(s locSnapshot) Location {
	return Location{Kind: LocKind(s.Kind), N: s.N, Atom: snapToOb(s.Atom)}
}

func ctxtToSnap(c *Ctxt) strandSnapshot {
	argvec := []snapOb{}
	if c.Argvec != nil {
		argvec = make([]snapOb, len(c.Argvec.Elems))
		for i, e := range c.Argvec.Elems {
			argvec[i] = obToSnap(e)
		}
	}
	regs := make([]snapOb, len(c.Regs))
	for i, r := range c.Regs {
		regs[i] = obToSnap(r)
	}
	return strandSnapshot{
		Tag:         locToSnap(c.Tag),
		Nargs:       c.Nargs,
		PC:          c.PC,
		Outstanding: c.Outstanding,
		Rslt:        obToSnap(c.Rslt),
		Trgt:        obToSnap(c.Trgt),
		Argvec:      argvec,
		Regs:        regs,
	}
}

// SnapshotVMState captures state's global env and both scheduler pools as
// a Snapshot, then CBOR-encodes it.
func SnapshotVMState(state *VMState) ([]byte, error) {
	snap := Snapshot{}
	if state.GlobalEnv != nil {
		snap.GlobalEnv = make([]snapOb, len(state.GlobalEnv.Entries))
		for i, e := range state.GlobalEnv.Entries {
			snap.GlobalEnv[i] = obToSnap(e)
		}
	}
	for _, s := range state.StrandPool {
		snap.StrandPool = append(snap.StrandPool, ctxtToSnap(s))
	}
	for _, s := range state.SleeperPool {
		snap.SleeperPool = append(snap.SleeperPool, ctxtToSnap(s))
	}
	data, err := cbor.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("bytecode: encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot reverses SnapshotVMState's encoding for inspection (the
// CLI's -snapshot dump). It does not reconstruct a runnable VMState.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("bytecode: decode snapshot: %w", err)
	}
	return snap, nil
}
