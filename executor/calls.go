package executor

import (
	"rtvm/op"
	"rtvm/optype"
)

// doApp implements phase 1 of §4.5: push a new prepared call for
// functionID, expanding the stack by its declared frame size. frame_size
// is the callee's entire addressable region - its parameters occupy the
// low end of it (written by doPar below) and its own locals the rest, so
// a callee reads its first parameter at Loc(0) exactly like any other
// local.
func (e *Executor) doApp(functionID optype.Word) error {
	if functionID >= optype.Word(len(e.functions)) {
		return &Error{Kind: UnknownFunction, ID: functionID}
	}
	fn := &e.functions[functionID]
	basePtr := e.memory.Len()
	if err := e.memory.Expand(fn.FrameSize); err != nil {
		return memErr(err)
	}
	e.callStack = append(e.callStack, call{function: fn, basePtr: basePtr})
	e.preparedCall = true
	e.parameterPtr = 0
	return nil
}

// doPar implements phase 2 of §4.5: read the argument in the caller's
// context (current(), which - since preparedCall is true - is the
// second-from-top/caller frame) and write it at the callee's next
// parameter slot, starting at Loc(0) of the callee's already-allocated
// frame. The function author is responsible for sizing frame_size to
// cover every parameter it declares Par for.
func (e *Executor) doPar(un op.UnOp, k optype.Kind) error {
	eff, err := e.unOperand(un)
	if err != nil {
		return err
	}
	v, err := e.read(k, eff)
	if err != nil {
		return err
	}

	callee, err := e.top()
	if err != nil {
		return err
	}
	addr := callee.basePtr + e.parameterPtr
	if err := e.memory.Set(k, addr, v); err != nil {
		return memErr(err)
	}
	e.parameterPtr += k.Size()
	return nil
}

// doClf implements phase 3 of §4.5: activate the prepared call. retPtr
// must already be resolved to a concrete word value (readWord'd from the
// caller's context by the Clf case in Execute, or passed directly by
// Call for the bootstrap entry call).
func (e *Executor) doClf(retPtr optype.Word) error {
	callee, err := e.top()
	if err != nil {
		return err
	}
	callee.retValPtr = retPtr
	callee.retProgramCounter = e.programCounter

	e.preparedCall = false
	e.programCounter = 0
	e.parameterPtr = 0
	return nil
}

// doRet implements §4.5's Ret: optionally write a return value into the
// caller's Ret(0) slot, then pop the active call and restore the
// caller's PC and stack length. The popped frame narrows by exactly its
// declared frame_size: parameters live inside that region, not past it,
// so no separate bookkeeping of argument bytes is needed.
func (e *Executor) doRet(un op.UnOp, k optype.Kind) error {
	callee, err := e.top()
	if err != nil {
		return err
	}

	if un.X.Kind != op.Emp {
		eff, err := e.unOperand(un)
		if err != nil {
			return err
		}
		v, err := e.read(k, eff)
		if err != nil {
			return err
		}
		if err := e.memory.Set(k, callee.retValPtr, v); err != nil {
			return memErr(err)
		}
	}

	popped := e.callStack[len(e.callStack)-1]
	e.callStack = e.callStack[:len(e.callStack)-1]
	e.programCounter = popped.retProgramCounter
	if err := e.memory.Narrow(popped.function.FrameSize); err != nil {
		return memErr(err)
	}
	return nil
}
