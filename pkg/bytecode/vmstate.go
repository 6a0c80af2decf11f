package bytecode

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ErrorPolicy resolves the documented open question around vmErrorFlag:
// the source leaves handleVirtualMachineError defined but unused, so a
// rewrite must decide, rather than guess, whether seeing the flag just
// switches strands (the source's actual behavior) or hands off to
// Ctxt.VMError for a real recovery attempt. Both are implemented; the
// caller picks.
type ErrorPolicy int

const (
	// ErrorPolicyNextThreadOnly preserves the source's compatibility
	// behavior: vmErrorFlag only ever triggers a next-thread switch.
	// This is the default.
	ErrorPolicyNextThreadOnly ErrorPolicy = iota
	// ErrorPolicyVMError hands the error to the Hooks.OnVMError hook,
	// letting a host attempt recovery; the flag machine switches strands
	// only when the hook reports no recovery.
	ErrorPolicyVMError
)

// XmitData is the scratch the flag machine reads when doXmitFlag is set.
type XmitData struct {
	Unwind bool
	Next   bool
}

// VMState is the full aggregate execution context a dispatch step reads
// and writes. See doc.go for the component map; see §3 for the field
// list this mirrors field-for-field.
type VMState struct {
	Ctxt           *Ctxt
	Code           *Code
	PC             uint32
	GlobalEnv      *GlobalEnv
	CurrentMonitor *Monitor

	StrandPool  []*Ctxt
	SleeperPool []*Ctxt

	DoXmitFlag       bool
	DoRtnFlag        bool
	DoNextThreadFlag bool
	VMErrorFlag      bool
	ExitFlag         bool
	DoAsyncWaitFlag  bool
	Debug            bool

	XmitDataVal XmitData
	DoRtnData   bool
	Loc         Location

	Bytecodes map[Opcode]uint64
	ObCounts  map[Tag]uint64
	Nsigs     uint32
	ExitCode  int

	DebugInfo []string

	Prims       *PrimTable
	Hooks       ExceptionHooks
	ErrorPolicy ErrorPolicy
}

// NewVMState builds a VMState ready to Run from pc 0 of code, rooted at a
// fresh Ctxt whose Code is code.
func NewVMState(code *Code, globalEnv *GlobalEnv, prims *PrimTable) *VMState {
	root := NewCtxt(nil)
	root.Code = code
	root.Monitor = NewMonitor()

	state := &VMState{
		Ctxt:           root,
		Code:           code,
		GlobalEnv:      globalEnv,
		CurrentMonitor: root.Monitor,
		Bytecodes:      make(map[Opcode]uint64),
		ObCounts:       make(map[Tag]uint64),
		Prims:          prims,
		Hooks:          defaultExceptionHooks(),
	}
	root.Monitor.Start()
	return state
}

// RunAsyncHost drives Run across doAsyncWaitFlag cycles: whenever Run
// returns because both strand pools went empty while signals were still
// outstanding, it runs injectSignal to let the host deliver one (or
// more), then resumes. This is the "outer host... expected to inject
// signals and re-invoke" the scheduler description calls for, given a
// concrete shape rather than left to every caller to reinvent.
func RunAsyncHost(ctx context.Context, state *VMState, injectSignal func(ctx context.Context, state *VMState) error) error {
	for {
		Run(state)
		if !state.DoAsyncWaitFlag {
			return nil
		}
		state.DoAsyncWaitFlag = false

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return injectSignal(gctx, state) })
		if err := g.Wait(); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
