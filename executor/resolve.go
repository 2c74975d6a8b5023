package executor

import (
	"rtvm/op"
	"rtvm/optype"
)

// resolveOffset returns a's operand with its byte offset (U, for the
// Loc/Ind/Ret/Ref/Glb kinds) replaced by a.U + word-value-of-offset, per
// §4.1's offset application rule. Val and Emp retain their own meaning:
// the offset still adds into U, which for Val is the literal payload
// itself (offset on an immediate shifts the immediate).
func (e *Executor) resolveOffset(a op.Operand, offset op.Operand) (op.Operand, error) {
	ov, err := e.readWord(offset)
	if err != nil {
		return op.Operand{}, err
	}
	a.U += ov
	return a, nil
}

// unOperand returns the effective operand for un, applying its offset
// when Variant is VariantFirst.
func (e *Executor) unOperand(un op.UnOp) (op.Operand, error) {
	if un.Variant == op.VariantNone {
		return un.X, nil
	}
	return e.resolveOffset(un.X, un.Offset)
}

// binOperands returns the effective (x, y) operand pair for bin, applying
// its offset per Variant (None/First/Second/Both).
func (e *Executor) binOperands(bin op.BinOp) (x, y op.Operand, err error) {
	switch bin.Variant {
	case op.VariantNone:
		return bin.X, bin.Y, nil
	case op.VariantFirst:
		x, err = e.resolveOffset(bin.X, bin.Offset)
		return x, bin.Y, err
	case op.VariantSecond:
		y, err = e.resolveOffset(bin.Y, bin.Offset)
		return bin.X, y, err
	case op.VariantBoth:
		x, err = e.resolveOffset(bin.X, bin.Offset)
		if err != nil {
			return op.Operand{}, op.Operand{}, err
		}
		y, err = e.resolveOffset(bin.Y, bin.Offset)
		return x, y, err
	default:
		return op.Operand{}, op.Operand{}, errEndOfProgram()
	}
}

// read resolves a as kind k per §4.1.
func (e *Executor) read(k optype.Kind, a op.Operand) (optype.Word, error) {
	switch a.Kind {
	case op.Loc:
		c, err := e.current()
		if err != nil {
			return 0, err
		}
		v, err := e.memory.Get(k, c.basePtr+a.U)
		if err != nil {
			return 0, memErr(err)
		}
		return v, nil

	case op.Ind:
		if a.U == 0 {
			return 0, &Error{Kind: NullPointerDereference}
		}
		c, err := e.current()
		if err != nil {
			return 0, err
		}
		addr, err := e.memory.Get(wordKind, c.basePtr+a.U)
		if err != nil {
			return 0, memErr(err)
		}
		v, err := e.memory.Get(k, addr)
		if err != nil {
			return 0, memErr(err)
		}
		return v, nil

	case op.Ret:
		c, err := e.current()
		if err != nil {
			return 0, err
		}
		v, err := e.memory.Get(k, c.retValPtr+a.U)
		if err != nil {
			return 0, memErr(err)
		}
		return v, nil

	case op.Val:
		return optype.Truncate(k, a.U), nil

	case op.Ref:
		c, err := e.current()
		if err != nil {
			return 0, err
		}
		return optype.Truncate(k, c.basePtr+a.U), nil

	case op.Glb:
		v, err := e.memory.Get(k, a.U)
		if err != nil {
			return 0, memErr(err)
		}
		return v, nil

	default: // op.Emp
		return 0, &Error{Kind: IncorrectOperation}
	}
}

// write resolves a as a write target of kind k, storing value. Val, Ref,
// and Emp are never legal write targets.
func (e *Executor) write(k optype.Kind, a op.Operand, value optype.Word) error {
	switch a.Kind {
	case op.Loc:
		c, err := e.current()
		if err != nil {
			return err
		}
		if err := e.memory.Set(k, c.basePtr+a.U, value); err != nil {
			return memErr(err)
		}
		return nil

	case op.Ind:
		if a.U == 0 {
			return &Error{Kind: NullPointerDereference}
		}
		c, err := e.current()
		if err != nil {
			return err
		}
		addr, err := e.memory.Get(wordKind, c.basePtr+a.U)
		if err != nil {
			return memErr(err)
		}
		if err := e.memory.Set(k, addr, value); err != nil {
			return memErr(err)
		}
		return nil

	case op.Ret:
		c, err := e.current()
		if err != nil {
			return err
		}
		if err := e.memory.Set(k, c.retValPtr+a.U, value); err != nil {
			return memErr(err)
		}
		return nil

	case op.Glb:
		if err := e.memory.Set(k, a.U, value); err != nil {
			return memErr(err)
		}
		return nil

	default: // op.Val, op.Ref, op.Emp
		return &Error{Kind: IncorrectOperation}
	}
}

// wordKind is the kind used to read a pointer out of memory for Ind
// resolution: always the full word width, regardless of the operation's
// own declared OpType.
const wordKind = optype.Uw

// readWord reads a as a plain word value - used for untyped-wire operands
// (End/Slp/Go/App/Clf/Sfd/Gfd/Zer/Cmp/Cpy addresses and counts, and every
// offset operand).
func (e *Executor) readWord(a op.Operand) (optype.Word, error) {
	return e.read(wordKind, a)
}

// writeWord writes value to a as a plain word - used for Gfd.
func (e *Executor) writeWord(a op.Operand, value optype.Word) error {
	return e.write(wordKind, a, value)
}
