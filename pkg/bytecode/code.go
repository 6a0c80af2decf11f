package bytecode

import (
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CodeVersion is the current serialized-Code format version.
const CodeVersion uint16 = 1

// CodeMagic identifies a serialized Code object: "RSBC" (RoSette
// ByteCode), renamed from the stack-machine predecessor's "TTBC" tag now
// that the format underneath it is a different machine entirely.
var CodeMagic = []byte{'R', 'S', 'B', 'C'}

// Instruction is one decoded opcode plus up to five small operand fields.
// Which fields are meaningful, and what they mean, is opcode-specific —
// see the comments in opcodes.go and the operand-letter convention table
// they echo (a, d, s, r, g, v, l, i, o, k, m, n, u, p).
type Instruction struct {
	Op Opcode
	A  int32
	B  int32
	C  int32
	D  int32
	E  int32
}

// Code is the read-only structure an external compiler produces and this
// engine consumes: a decoded opcode sequence plus a literal pool, indexed
// directly by pc and by the v operand respectively. Unlike the
// byte-stream chunk format this package replaces, pc indexes Ops
// positionally — there is no variable-width instruction decoding on the
// hot path.
type Code struct {
	Ops  []Instruction
	Lits []Ob
}

// NewCode returns an empty, growable Code ready for an Assembler to fill.
func NewCode() *Code {
	return &Code{
		Ops:  make([]Instruction, 0, 16),
		Lits: make([]Ob, 0, 8),
	}
}

// Lit returns the v'th literal-pool entry. Panics on an out-of-range v,
// matching the spec's "indexed by opcode operands" contract: an opcode
// stream that indexes past the literal pool it was compiled against is a
// compiler bug, not a recoverable VM condition.
func (c *Code) Lit(v int) Ob {
	return c.Lits[v]
}

// AddLit appends ob to the literal pool and returns its index.
func (c *Code) AddLit(ob Ob) int {
	idx := len(c.Lits)
	c.Lits = append(c.Lits, ob)
	return idx
}

// Len returns the number of instructions.
func (c *Code) Len() int { return len(c.Ops) }

// Serialize encodes the code object to bytes: a small fixed header, the
// instruction stream as fixed-width records, then the literal pool
// CBOR-encoded. CBOR is used for the literal pool specifically because it
// already has to round-trip the Ob union elsewhere in this module (see
// snapshot.go); reusing it here avoids a second hand-rolled tagged format
// for the same value union.
func (c *Code) Serialize() ([]byte, error) {
	lits, err := encodeLits(c.Lits)
	if err != nil {
		return nil, fmt.Errorf("bytecode: encode literal pool: %w", err)
	}

	buf := make([]byte, 0, 12+len(c.Ops)*24+len(lits))
	buf = append(buf, CodeMagic...)
	buf = binary.BigEndian.AppendUint16(buf, CodeVersion)
	buf = binary.BigEndian.AppendUint16(buf, 0) // flags, reserved
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(c.Ops)))
	for _, ins := range c.Ops {
		buf = append(buf, byte(ins.Op))
		buf = binary.BigEndian.AppendUint32(buf, uint32(ins.A))
		buf = binary.BigEndian.AppendUint32(buf, uint32(ins.B))
		buf = binary.BigEndian.AppendUint32(buf, uint32(ins.C))
		buf = binary.BigEndian.AppendUint32(buf, uint32(ins.D))
		buf = binary.BigEndian.AppendUint32(buf, uint32(ins.E))
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(lits)))
	buf = append(buf, lits...)
	return buf, nil
}

// DeserializeCode decodes a Code object produced by Serialize.
func DeserializeCode(data []byte) (*Code, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("bytecode: code too short: need at least 12 bytes, got %d", len(data))
	}
	if string(data[0:4]) != string(CodeMagic) {
		return nil, fmt.Errorf("bytecode: bad magic: expected %q, got %q", CodeMagic, data[0:4])
	}
	version := binary.BigEndian.Uint16(data[4:6])
	if version > CodeVersion {
		return nil, fmt.Errorf("bytecode: code version %d newer than supported %d", version, CodeVersion)
	}
	pos := 8
	if pos+4 > len(data) {
		return nil, fmt.Errorf("bytecode: truncated reading instruction count")
	}
	count := binary.BigEndian.Uint32(data[pos:])
	pos += 4

	c := &Code{Ops: make([]Instruction, count)}
	for i := range c.Ops {
		if pos+21 > len(data) {
			return nil, fmt.Errorf("bytecode: truncated reading instruction %d", i)
		}
		c.Ops[i] = Instruction{
			Op: Opcode(data[pos]),
			A:  int32(binary.BigEndian.Uint32(data[pos+1:])),
			B:  int32(binary.BigEndian.Uint32(data[pos+5:])),
			C:  int32(binary.BigEndian.Uint32(data[pos+9:])),
			D:  int32(binary.BigEndian.Uint32(data[pos+13:])),
			E:  int32(binary.BigEndian.Uint32(data[pos+17:])),
		}
		pos += 21
	}

	if pos+4 > len(data) {
		return nil, fmt.Errorf("bytecode: truncated reading literal pool length")
	}
	litsLen := binary.BigEndian.Uint32(data[pos:])
	pos += 4
	if pos+int(litsLen) > len(data) {
		return nil, fmt.Errorf("bytecode: truncated reading literal pool")
	}
	lits, err := decodeLits(data[pos : pos+int(litsLen)])
	if err != nil {
		return nil, fmt.Errorf("bytecode: decode literal pool: %w", err)
	}
	c.Lits = lits
	return c, nil
}

// litWire is the CBOR-on-the-wire shape of a literal-pool entry. Only the
// Ob kinds that legitimately appear as compiled-in literals are
// represented: fixnums, booleans, the niv/absent sentinels, sys-values,
// symbols (lookup keys and selectors), templates (Extend's formal
// pattern), and global-slot markers (the LocationAtom a compiler wires up
// for a global reference). Composite runtime objects (Tuple beyond NIL,
// Env, Actor, StdOprn) are built by the VM itself, never loaded as
// literals.
type litWire struct {
	Kind uint8    `cbor:"1,keyasint"`
	I    int64    `cbor:"2,keyasint,omitempty"`
	B    bool     `cbor:"3,keyasint,omitempty"`
	S    string   `cbor:"4,keyasint,omitempty"`
	Keys []string `cbor:"5,keyasint,omitempty"`
	Rest string   `cbor:"6,keyasint,omitempty"`
}

const (
	litKindFixnum uint8 = iota
	litKindBool
	litKindNiv
	litKindAbsent
	litKindSysVal
	litKindSymbol
	litKindTemplate
	litKindGlobalIndex
	litKindNilTuple
)

func encodeLits(lits []Ob) ([]byte, error) {
	wire := make([]litWire, len(lits))
	for i, ob := range lits {
		w, err := obToWire(ob)
		if err != nil {
			return nil, err
		}
		wire[i] = w
	}
	return cbor.Marshal(wire)
}

func decodeLits(data []byte) ([]Ob, error) {
	var wire []litWire
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	lits := make([]Ob, len(wire))
	for i, w := range wire {
		lits[i] = wireToOb(w)
	}
	return lits, nil
}

func obToWire(ob Ob) (litWire, error) {
	switch v := ob.(type) {
	case Fixnum:
		return litWire{Kind: litKindFixnum, I: int64(v)}, nil
	case Bool:
		return litWire{Kind: litKindBool, B: bool(v)}, nil
	case Niv:
		return litWire{Kind: litKindNiv}, nil
	case Absent:
		return litWire{Kind: litKindAbsent}, nil
	case SysValOb:
		return litWire{Kind: litKindSysVal, I: int64(v.Code)}, nil
	case Symbol:
		return litWire{Kind: litKindSymbol, S: string(v)}, nil
	case *Template:
		return litWire{Kind: litKindTemplate, Keys: v.Keymeta, Rest: v.Rest}, nil
	case globalIndex:
		return litWire{Kind: litKindGlobalIndex, I: int64(v)}, nil
	case *Tuple:
		if v == nil || len(v.Elems) == 0 {
			return litWire{Kind: litKindNilTuple}, nil
		}
		return litWire{}, fmt.Errorf("non-empty tuple literal is not serializable")
	default:
		return litWire{}, fmt.Errorf("literal kind %T is not serializable", ob)
	}
}

func wireToOb(w litWire) Ob {
	switch w.Kind {
	case litKindFixnum:
		return Fixnum(w.I)
	case litKindBool:
		return Bool(w.B)
	case litKindNiv:
		return NIV
	case litKindAbsent:
		return ABSENT
	case litKindSysVal:
		return SysValOb{Code: SysCode(w.I)}
	case litKindSymbol:
		return Symbol(w.S)
	case litKindTemplate:
		return &Template{Keymeta: w.Keys, Rest: w.Rest}
	case litKindGlobalIndex:
		return globalIndex(w.I)
	case litKindNilTuple:
		return NILTuple
	default:
		return NIV
	}
}
