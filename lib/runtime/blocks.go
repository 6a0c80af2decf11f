package runtime

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/chazu/rosette/pkg/bytecode"
)

// CaptureCell holds a captured variable with reference semantics. The
// register engine has no lexical-write opcode, so a block's captures are
// bound into the root Ctxt's registers (see InvokeDirect) rather than
// into an Env frame: register reads and writes are already first-class
// opcodes, and capture slots are few enough to fit the register file
// comfortably.
type CaptureCell struct {
	Value      Value
	Name       string
	Source     int // 0=local, 1=param, 2=ivar, 3=capture
	InstanceID string
	Closed     bool
}

// Get returns the current value
func (c *CaptureCell) Get() Value {
	if c == nil {
		return NilValue()
	}
	return c.Value
}

// Set updates the captured value
func (c *CaptureCell) Set(v Value) {
	if c != nil {
		c.Value = v
	}
}

// Block represents a compiled block body with captured variables
type Block struct {
	ID       string
	Code     *bytecode.Code
	Captures []*CaptureCell

	// Context from enclosing method
	InstanceID string
	ClassName  string
}

// BlockRunner manages block registration and execution
type BlockRunner struct {
	registry map[string]*Block
	mu       sync.RWMutex
	counter  uint64

	prims *bytecode.PrimTable

	// Callbacks for integration
	dispatcher *Dispatcher
	os         *ObjectSpace
}

// NewBlockRunner creates a new block runner
func NewBlockRunner(os *ObjectSpace) *BlockRunner {
	br := &BlockRunner{
		registry: make(map[string]*Block),
		os:       os,
		prims:    bytecode.NewPrimTable(),
	}
	br.registerHostPrims()
	return br
}

// SetDispatcher sets the dispatcher for message sends from blocks
func (br *BlockRunner) SetDispatcher(d *Dispatcher) {
	br.dispatcher = d
}

// registerHostPrims wires the three fixed entry points a compiled block
// body calls via ApplyPrim to reach the surrounding object runtime: a
// message send, and instance-variable get/set. Their positional index is
// assigned here and never changes across a process's lifetime, so a
// compiler targeting this runtime can bake the indices in.
func (br *BlockRunner) registerHostPrims() {
	br.prims.Register("send", bytecode.PrimFunc(br.sendPrim))
	br.prims.Register("get-ivar", bytecode.PrimFunc(br.getIvarPrim))
	br.prims.Register("set-ivar", bytecode.PrimFunc(br.setIvarPrim))
}

func (br *BlockRunner) sendPrim(ctxt *bytecode.Ctxt) bytecode.Result {
	if ctxt.Argvec.Len() < 2 {
		return bytecode.Err(bytecode.RuntimeErrorOf("send requires at least (receiver selector)"))
	}
	receiver := obAsString(elemOrAbsent(ctxt.Argvec, 0))
	selector := obAsString(elemOrAbsent(ctxt.Argvec, 1))
	args := make([]string, 0, ctxt.Argvec.Len()-2)
	for i := 2; i < ctxt.Argvec.Len(); i++ {
		args = append(args, obAsString(elemOrAbsent(ctxt.Argvec, i)))
	}

	result, err := br.SendMessage(receiver, selector, args...)
	if err != nil {
		return bytecode.Err(bytecode.RuntimeErrorOf(err.Error()))
	}
	return bytecode.Ok(bytecode.Symbol(result))
}

func (br *BlockRunner) getIvarPrim(ctxt *bytecode.Ctxt) bytecode.Result {
	if ctxt.Argvec.Len() != 2 {
		return bytecode.Err(bytecode.RuntimeErrorOf("get-ivar requires (instanceID varName)"))
	}
	instanceID := obAsString(elemOrAbsent(ctxt.Argvec, 0))
	varName := obAsString(elemOrAbsent(ctxt.Argvec, 1))
	v, err := br.GetInstanceVar(instanceID, varName)
	if err != nil {
		return bytecode.Err(bytecode.RuntimeErrorOf(err.Error()))
	}
	return bytecode.Ok(ValueToOb(v))
}

func (br *BlockRunner) setIvarPrim(ctxt *bytecode.Ctxt) bytecode.Result {
	if ctxt.Argvec.Len() != 3 {
		return bytecode.Err(bytecode.RuntimeErrorOf("set-ivar requires (instanceID varName value)"))
	}
	instanceID := obAsString(elemOrAbsent(ctxt.Argvec, 0))
	varName := obAsString(elemOrAbsent(ctxt.Argvec, 1))
	value := ObToValue(elemOrAbsent(ctxt.Argvec, 2))
	if err := br.SetInstanceVar(instanceID, varName, value); err != nil {
		return bytecode.Err(bytecode.RuntimeErrorOf(err.Error()))
	}
	return bytecode.Ok(bytecode.NIV)
}

func elemOrAbsent(t *bytecode.Tuple, i int) bytecode.Ob {
	if v, ok := t.Elem(i); ok {
		return v
	}
	return bytecode.ABSENT
}

func obAsString(ob bytecode.Ob) string {
	if sym, ok := ob.(bytecode.Symbol); ok {
		return string(sym)
	}
	if fx, ok := ob.(bytecode.Fixnum); ok {
		return fmt.Sprintf("%d", int64(fx))
	}
	return ""
}

// RegisterBlock registers a compiled block body and returns its ID
func (br *BlockRunner) RegisterBlock(code *bytecode.Code, captures []*CaptureCell, instanceID, className string) string {
	br.mu.Lock()
	defer br.mu.Unlock()

	id := atomic.AddUint64(&br.counter, 1)
	blockID := fmt.Sprintf("bytecode_block_%d", id)

	br.registry[blockID] = &Block{
		ID:         blockID,
		Code:       code,
		Captures:   captures,
		InstanceID: instanceID,
		ClassName:  className,
	}

	return blockID
}

// RegisterBlockWithID registers a block with a specific ID
func (br *BlockRunner) RegisterBlockWithID(id string, block *Block) {
	br.mu.Lock()
	defer br.mu.Unlock()
	block.ID = id
	br.registry[id] = block
}

// GetBlock retrieves a block by ID
func (br *BlockRunner) GetBlock(id string) *Block {
	br.mu.RLock()
	defer br.mu.RUnlock()
	return br.registry[id]
}

// UnregisterBlock removes a block from the registry
func (br *BlockRunner) UnregisterBlock(id string) {
	br.mu.Lock()
	defer br.mu.Unlock()
	delete(br.registry, id)
}

// Invoke executes a block by ID with arguments
func (br *BlockRunner) Invoke(blockID string, args []Value) Value {
	br.mu.RLock()
	block, ok := br.registry[blockID]
	br.mu.RUnlock()

	if !ok {
		return ErrorValue(fmt.Sprintf("block not found: %s", blockID))
	}

	return br.InvokeDirect(block, args)
}

// InvokeDirect executes a block when you have the pointer. Captures are
// bound into the root Ctxt's registers before running, positionally
// (capture i lands in Regs[i]) — a block compiled against this runtime is
// expected to address its captures that way. Mutations a primitive makes
// to those registers during the run are copied back into the CaptureCell
// values afterward, giving captures reference semantics even though the
// engine's registers are plain value slots.
func (br *BlockRunner) InvokeDirect(block *Block, args []Value) Value {
	if block == nil {
		return ErrorValue("nil block")
	}
	if len(block.Captures) > bytecode.NumRegs {
		return ErrorValue(fmt.Sprintf("block has %d captures, register file holds %d", len(block.Captures), bytecode.NumRegs))
	}

	state := bytecode.NewVMState(block.Code, bytecode.NewGlobalEnv(0), br.prims)
	ctxt := state.Ctxt

	for i, cap := range block.Captures {
		if cap != nil {
			ctxt.SetReg(i, ValueToOb(cap.Value))
		}
	}

	argvec := bytecode.NewTuple(len(args), bytecode.NIV)
	for i, arg := range args {
		argvec.SetElem(i, ValueToOb(arg))
	}
	ctxt.Argvec = argvec
	ctxt.Nargs = uint16(len(args))

	bytecode.Run(state)

	for i, cap := range block.Captures {
		if cap == nil {
			continue
		}
		if v, ok := ctxt.GetReg(i); ok {
			cap.Value = ObToValue(v)
		}
	}

	return ObToValue(ctxt.Rslt)
}

// ============================================================================
// Host callbacks the "send"/"get-ivar"/"set-ivar" prims dispatch through
// ============================================================================

// SendMessage dispatches a message from bytecode execution
func (br *BlockRunner) SendMessage(receiver, selector string, args ...string) (string, error) {
	if br.dispatcher == nil {
		return "", fmt.Errorf("no dispatcher configured")
	}

	// Convert string args to Values
	valueArgs := make([]Value, len(args))
	for i, arg := range args {
		valueArgs[i] = StringValue(arg)
	}

	result := br.dispatcher.Send(receiver, selector, valueArgs)

	if result.Type == TypeError {
		return "", fmt.Errorf("%s", result.ErrorMsg)
	}

	return result.AsString(), nil
}

// GetInstanceVar reads an instance variable, preserving its Value type
// (Int/Bool/String/...) rather than flattening it to a string.
func (br *BlockRunner) GetInstanceVar(instanceID, varName string) (Value, error) {
	if br.os == nil {
		return NilValue(), fmt.Errorf("no object space configured")
	}

	inst := br.os.GetInstance(instanceID)
	if inst == nil {
		return NilValue(), fmt.Errorf("instance not found: %s", instanceID)
	}

	return inst.GetVar(varName), nil
}

// SetInstanceVar writes an instance variable.
func (br *BlockRunner) SetInstanceVar(instanceID, varName string, value Value) error {
	if br.os == nil {
		return fmt.Errorf("no object space configured")
	}

	inst := br.os.GetInstance(instanceID)
	if inst == nil {
		return fmt.Errorf("instance not found: %s", instanceID)
	}

	inst.SetVar(varName, value)
	return nil
}

// BlockStats returns statistics about the block registry
func (br *BlockRunner) BlockStats() (count int) {
	br.mu.RLock()
	defer br.mu.RUnlock()
	return len(br.registry)
}

// ClearRegistry removes all blocks from the registry
func (br *BlockRunner) ClearRegistry() {
	br.mu.Lock()
	defer br.mu.Unlock()
	br.registry = make(map[string]*Block)
}
