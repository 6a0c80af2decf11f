package bytecode

// dispatch routes one decoded Instruction to its handler. Each handler is
// a pure state transition over state — it never raises; it encodes its
// outcome into state's flags, per the error-handling propagation policy.
func dispatch(state *VMState, ins Instruction) {
	switch ins.Op {
	case OpHalt:
		state.ExitFlag = true
		state.ExitCode = 0

	case OpPush:
		state.Ctxt = NewCtxt(state.Ctxt)

	case OpPop:
		if state.Ctxt.Parent != nil {
			state.Ctxt = state.Ctxt.Parent
		}

	case OpNargs:
		state.Ctxt.Nargs = uint16(ins.A)

	case OpAlloc:
		state.Ctxt.Argvec = NewTuple(int(ins.A), NIV)

	case OpPushAlloc:
		state.Ctxt = NewCtxt(state.Ctxt)
		state.Ctxt.Argvec = NewTuple(int(ins.A), NIV)

	case OpExtend:
		opExtend(state, ins.A)

	case OpOutstanding:
		state.Ctxt.PC = uint32(ins.A)
		state.PC = uint32(ins.A)
		state.Ctxt.Outstanding = ins.B

	case OpFork:
		clone := state.Ctxt.Clone()
		clone.PC = uint32(ins.A)
		state.StrandPool = append([]*Ctxt{clone}, state.StrandPool...)

	case OpSend:
		state.Ctxt.Parent = nil
		state.Ctxt.Nargs = uint16(ins.A)
		state.XmitDataVal = XmitData{}
		state.DoXmitFlag = true

	case OpUpcallRtn:
		opUpcallRtn(state, ins.A, ins.B)

	case OpUpcallResume:
		if state.Ctxt.Parent != nil {
			state.Ctxt.Parent.ScheduleStrand(state)
		}
		state.DoNextThreadFlag = true

	case OpNxt:
		if exit := getNextStrand(state); exit {
			state.ExitFlag = true
			state.ExitCode = 0
		}

	case OpJmp:
		jumpTo(state, ins.A)

	case OpJmpCut:
		env := state.Ctxt.Env
		for i := int32(0); i < ins.A && env != nil; i++ {
			env = env.Parent
		}
		state.Ctxt.Env = env
		jumpTo(state, ins.B)

	case OpJmpFalse:
		if b, ok := state.Ctxt.Rslt.(Bool); ok && !bool(b) {
			jumpTo(state, ins.A)
		}

	case OpXmitTag:
		state.Ctxt.Tag = LocationAtom(state.Code.Lit(int(ins.A)))
		finishXmitSetup(state, ins.B, ins.C)

	case OpXmitArg:
		state.Ctxt.Tag = ArgRegLoc(int(ins.A))
		finishXmitSetup(state, ins.B, ins.C)

	case OpXmitReg:
		state.Ctxt.Tag = CtxtRegLoc(int(ins.A))
		finishXmitSetup(state, ins.B, ins.C)

	case OpRtn:
		state.DoRtnData = ins.A != 0
		state.DoRtnFlag = true

	case OpRtnTag:
		state.Ctxt.Tag = LocationAtom(state.Code.Lit(int(ins.A)))
		state.DoRtnData = ins.B != 0
		state.DoRtnFlag = true

	case OpRtnArg:
		state.Ctxt.Tag = ArgRegLoc(int(ins.A))
		state.DoRtnData = ins.B != 0
		state.DoRtnFlag = true

	case OpRtnReg:
		state.Ctxt.Tag = CtxtRegLoc(int(ins.A))
		state.DoRtnData = ins.B != 0
		state.DoRtnFlag = true

	case OpApplyPrimTag:
		dest := LocationAtom(state.Code.Lit(int(ins.E)))
		applyPrim(state, int(ins.A), ins.B != 0, uint16(ins.C), ins.D != 0, &dest)

	case OpApplyPrimArg:
		dest := ArgRegLoc(int(ins.E))
		applyPrim(state, int(ins.A), ins.B != 0, uint16(ins.C), ins.D != 0, &dest)

	case OpApplyPrimReg:
		dest := CtxtRegLoc(int(ins.E))
		applyPrim(state, int(ins.A), ins.B != 0, uint16(ins.C), ins.D != 0, &dest)

	case OpApplyCmd:
		applyPrim(state, int(ins.A), ins.B != 0, uint16(ins.C), ins.D != 0, nil)

	case OpLookupToArg:
		opLookup(state, ins.B, func(ob Ob) { state.Ctxt.Argvec.SetElem(int(ins.A), ob) })

	case OpLookupToReg:
		opLookup(state, ins.B, func(ob Ob) {
			if _, ok := state.Ctxt.SetReg(int(ins.A), ob); !ok {
				registerAccessFailure(state, int(ins.A))
			}
		})

	case OpXferLexToArg:
		val := lexFetch(state.Ctxt, ins.A, ins.B, ins.C)
		state.Ctxt.Argvec.SetElem(int(ins.D), val)

	case OpXferLexToReg:
		val := lexFetch(state.Ctxt, ins.A, ins.B, ins.C)
		if _, ok := state.Ctxt.SetReg(int(ins.D), val); !ok {
			registerAccessFailure(state, int(ins.D))
		}

	case OpXferGlobalToArg:
		ob, ok := state.GlobalEnv.Entry(int(ins.A))
		if !ok {
			ob = ABSENT
		}
		state.Ctxt.Argvec.SetElem(int(ins.B), ob)

	case OpXferGlobalToReg:
		ob, ok := state.GlobalEnv.Entry(int(ins.A))
		if !ok {
			ob = ABSENT
		}
		if _, ok := state.Ctxt.SetReg(int(ins.B), ob); !ok {
			registerAccessFailure(state, int(ins.B))
		}

	case OpXferArgToArg:
		v, _ := state.Ctxt.Argvec.Elem(int(ins.A))
		state.Ctxt.Argvec.SetElem(int(ins.B), v)

	case OpXferRsltToArg:
		state.Ctxt.Argvec.SetElem(int(ins.A), state.Ctxt.Rslt)

	case OpXferRsltToReg:
		if _, ok := state.Ctxt.SetReg(int(ins.A), state.Ctxt.Rslt); !ok {
			registerAccessFailure(state, int(ins.A))
		}

	case OpXferRsltToDest:
		storeToTag(state, state.Ctxt.Rslt)

	case OpXferArgToRslt:
		if v, ok := state.Ctxt.Argvec.Elem(int(ins.A)); ok {
			state.Ctxt.Rslt = v
		}

	case OpXferRegToRslt:
		if v, ok := state.Ctxt.GetReg(int(ins.A)); ok {
			state.Ctxt.Rslt = v
		} else {
			registerAccessFailure(state, int(ins.A))
		}

	case OpXferSrcToRslt:
		if v, ok := Fetch(state.Ctxt.Tag, state.Ctxt, state.GlobalEnv); ok {
			state.Ctxt.Rslt = v
		}

	case OpIndLitToArg:
		state.Ctxt.Argvec.SetElem(int(ins.B), state.Code.Lit(int(ins.A)))

	case OpIndLitToReg:
		if _, ok := state.Ctxt.SetReg(int(ins.B), state.Code.Lit(int(ins.A))); !ok {
			registerAccessFailure(state, int(ins.B))
		}

	case OpIndLitToRslt:
		state.Ctxt.Rslt = state.Code.Lit(int(ins.A))

	case OpImmediateLitToArg:
		lit, ok := ImmediateLiteral(int(ins.A))
		if !ok {
			registerAccessFailure(state, int(ins.A))
			return
		}
		state.Ctxt.Argvec.SetElem(int(ins.B), lit)

	case OpImmediateLitToReg:
		lit, ok := ImmediateLiteral(int(ins.A))
		if !ok {
			registerAccessFailure(state, int(ins.A))
			return
		}
		if _, ok := state.Ctxt.SetReg(int(ins.B), lit); !ok {
			registerAccessFailure(state, int(ins.B))
		}

	case OpImmediateLitToRslt:
		lit, ok := ImmediateLiteral(int(ins.A))
		if !ok {
			registerAccessFailure(state, int(ins.A))
			return
		}
		state.Ctxt.Rslt = lit

	default:
		state.ExitFlag = true
		state.ExitCode = 1
		state.debugf("unknown opcode: 0x%02X", byte(ins.Op))
	}
}

func jumpTo(state *VMState, n int32) {
	state.PC = uint32(n)
	state.Ctxt.PC = uint32(n)
}

func finishXmitSetup(state *VMState, m, n int32) {
	state.Ctxt.Nargs = uint16(m)
	state.XmitDataVal = XmitData{Next: n != 0}
	state.DoXmitFlag = true
}

// opExtend implements the Extend(v) opcode: bind argvec against the
// template literal at v, installing the resulting frame on success or
// invoking state.Hooks.OnFormalsMismatch on failure.
func opExtend(state *VMState, v int32) {
	tmpl, ok := state.Code.Lit(int(v)).(*Template)
	if !ok {
		state.debugf("Extend literal %d is not a Template", v)
		state.DoNextThreadFlag = true
		return
	}
	ctxt := state.Ctxt
	actuals, ok := tmpl.MatchPattern(ctxt.Argvec, ctxt.Nargs)
	if !ok {
		state.Hooks.OnFormalsMismatch(state, tmpl)
		state.DoNextThreadFlag = true
		return
	}
	ctxt.Nargs = 0
	ctxt.Env = ctxt.Env.ExtendWith(tmpl, actuals)
}

// opUpcallRtn implements UpcallRtn(v,n): the destination is the Location
// named by literal v, stored against ctxt.Parent — not the current ctxt,
// since an upcall return always targets the frame that issued the
// original call. Deliberately does not touch doRtnData/doRtnFlag (see
// the design notes on this opcode's documented inconsistency with the
// rest of the return family).
func opUpcallRtn(state *VMState, v, n int32) {
	ctxt := state.Ctxt
	if ctxt.Parent == nil {
		state.VMErrorFlag = true
		return
	}
	dest := LocationAtom(state.Code.Lit(int(v)))
	res := Store(dest, ctxt.Parent, state.GlobalEnv, ctxt.Rslt)
	switch res.Kind {
	case StoreFail:
		state.VMErrorFlag = true
	case StoreCtxtKind:
		state.Ctxt = res.Ctxt
		state.Code = state.Ctxt.Code
		state.PC = state.Ctxt.PC
	case StoreGlobalKind:
		state.GlobalEnv = res.Env
	}
	if n != 0 {
		state.DoNextThreadFlag = true
	}
}

// opLookup implements LookupToArg/Reg: resolve the Symbol literal at v
// against ctxt.SelfEnv and hand the result to store.
func opLookup(state *VMState, v int32, store func(Ob)) {
	ctxt := state.Ctxt
	key, ok := state.Code.Lit(int(v)).(Symbol)
	if !ok {
		state.debugf("LookupTo* literal %d is not a Symbol", v)
		state.DoNextThreadFlag = true
		return
	}
	ob, err := ctxt.SelfEnv.LookupOBO(ctxt.SelfEnv, string(key), ctxt)
	switch err.Kind {
	case ErrNone:
		store(ob)
	case ErrUpcall:
		state.DoNextThreadFlag = true
	default:
		state.Hooks.OnMissingBinding(state, string(key))
		state.DoNextThreadFlag = true
	}
}

// lexFetch walks ctxt.Env up l parent links, then reads slot o — directly
// if the actor-indirection flag i is clear, or through slot 0's Actor
// extension view if it is set. A failed walk or slot read yields ABSENT
// rather than a VM fault: the lexical-addressing opcodes have no failure
// path of their own in the opcode table, unlike the register family.
func lexFetch(ctxt *Ctxt, l, i, o int32) Ob {
	env := ctxt.Env
	for k := int32(0); k < l && env != nil; k++ {
		env = env.Parent
	}
	if env == nil {
		return ABSENT
	}
	if i != 0 {
		actorSlot, ok := env.Slot(0)
		if !ok {
			return ABSENT
		}
		act, ok := actorSlot.(*Actor)
		if !ok {
			return ABSENT
		}
		v, ok := act.Slot(int(o))
		if !ok {
			return ABSENT
		}
		return v
	}
	v, ok := env.Slot(int(o))
	if !ok {
		return ABSENT
	}
	return v
}

func storeToTag(state *VMState, ob Ob) {
	res := Store(state.Ctxt.Tag, state.Ctxt, state.GlobalEnv, ob)
	switch res.Kind {
	case StoreFail:
		state.VMErrorFlag = true
	case StoreCtxtKind:
		state.Ctxt = res.Ctxt
	case StoreGlobalKind:
		state.GlobalEnv = res.Env
	}
}

// registerAccessFailure implements §4.8: a direct register-index opcode
// (as opposed to a generic Location store, which uses vmErrorFlag) that
// addresses a nonexistent register is fatal.
func registerAccessFailure(state *VMState, r int) {
	state.ExitFlag = true
	state.ExitCode = 1
	state.debugf("Unknown register: %d", r)
}
