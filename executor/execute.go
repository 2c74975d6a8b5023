package executor

import (
	"rtvm/op"
	"rtvm/optype"
)

// Execute performs exactly one operation: the dispatcher at the heart of
// this package. It resolves the current call's next Op, dispatches on
// its opcode (and, for typed opcodes, its OpType), and returns once that
// single operation has fully completed or failed.
//
// Grounded on the teacher's execNextInstruction (vm/exec.go): fetch at
// pc, dispatch in one flat switch, mutate state, return. The teacher
// increments its pc unconditionally before dispatch and lets jump-style
// cases overwrite it afterward; we use the same shape, just gated so
// that PC only advances on the success path (§4.10: errors never move
// PC), and past the operand/type layer the teacher's ISA doesn't have.
func (e *Executor) Execute() (Result, error) {
	c, err := e.current()
	if err != nil {
		return Result{}, err
	}
	prog := c.function.Program
	pc := int(e.programCounter)
	if pc < 0 || pc >= len(prog) {
		return Result{}, errEndOfProgram()
	}
	o := prog[pc]

	switch o.Code {
	case op.Nop:
		e.programCounter++
		return Result{Status: StatusOK}, nil

	case op.Fls:
		if err := e.files.Flush(); err != nil {
			return Result{}, filesErr(err)
		}
		e.programCounter++
		return Result{Status: StatusOK}, nil

	case op.End:
		v, err := e.readWord(o.A)
		if err != nil {
			return Result{}, err
		}
		return Result{Status: StatusEnd, Value: v}, nil

	case op.Slp:
		v, err := e.readWord(o.A)
		if err != nil {
			return Result{}, err
		}
		return Result{Status: StatusSleep, Value: v}, nil

	case op.Go:
		target, err := e.readWord(o.A)
		if err != nil {
			return Result{}, err
		}
		e.programCounter = target
		return Result{Status: StatusOK}, nil

	case op.App:
		fid, err := e.readWord(o.A)
		if err != nil {
			return Result{}, err
		}
		if err := e.doApp(fid); err != nil {
			return Result{}, err
		}
		e.programCounter++
		return Result{Status: StatusOK}, nil

	case op.Par:
		if err := e.doPar(o.Un, o.Type); err != nil {
			return Result{}, err
		}
		e.programCounter++
		return Result{Status: StatusOK}, nil

	case op.Clf:
		retPtr, err := e.readWord(o.A)
		if err != nil {
			return Result{}, err
		}
		e.programCounter++
		if err := e.doClf(retPtr); err != nil {
			e.programCounter--
			return Result{}, err
		}
		return Result{Status: StatusOK}, nil

	case op.Ret:
		if err := e.doRet(o.Un, o.Type); err != nil {
			return Result{}, err
		}
		return Result{Status: StatusOK}, nil

	case op.Set:
		if err := e.execSet(o.Bin, o.Type); err != nil {
			return Result{}, err
		}
		e.programCounter++
		return Result{Status: StatusOK}, nil

	case op.Cnv:
		if err := e.execCnv(o); err != nil {
			return Result{}, err
		}
		e.programCounter++
		return Result{Status: StatusOK}, nil

	case op.Add, op.Sub, op.Mul, op.Div, op.Mod, op.And, op.Or, op.Xor:
		if err := e.execBinArith(o.Code, o.Type, o.Bin, o); err != nil {
			return Result{}, err
		}
		e.programCounter++
		return Result{Status: StatusOK}, nil

	case op.Shl, op.Shr:
		if err := e.execShift(o.Code, o.Type, o); err != nil {
			return Result{}, err
		}
		e.programCounter++
		return Result{Status: StatusOK}, nil

	case op.Not, op.Neg, op.Inc, op.Dec:
		if err := e.execUnary(o.Code, o.Type, o.Un, o); err != nil {
			return Result{}, err
		}
		e.programCounter++
		return Result{Status: StatusOK}, nil

	case op.Ift, op.Iff:
		pass, err := e.condUnary(o.Code, o.Type, o.Un)
		if err != nil {
			return Result{}, err
		}
		return e.applyCond(pass)

	case op.Ife, op.Ifl, op.Ifg, op.Ine, op.Inl, op.Ing,
		op.Ifa, op.Ifo, op.Ifx, op.Ina, op.Ino, op.Inx:
		x, y, err := e.binOperands(o.Bin)
		if err != nil {
			return Result{}, err
		}
		vx, err := e.read(o.Type, x)
		if err != nil {
			return Result{}, err
		}
		vy, err := e.read(o.Type, y)
		if err != nil {
			return Result{}, err
		}
		pass, err := e.condPass(o.Code, o.Type, vx, vy, o)
		if err != nil {
			return Result{}, err
		}
		return e.applyCond(pass)

	case op.In:
		if err := e.execIn(o.Bin); err != nil {
			return Result{}, err
		}
		e.programCounter++
		return Result{Status: StatusOK}, nil

	case op.Out:
		if err := e.execOut(o.Un); err != nil {
			return Result{}, err
		}
		e.programCounter++
		return Result{Status: StatusOK}, nil

	case op.Sfd:
		v, err := e.readWord(o.A)
		if err != nil {
			return Result{}, err
		}
		if err := e.files.SetCurrent(v); err != nil {
			return Result{}, filesErr(err)
		}
		e.programCounter++
		return Result{Status: StatusOK}, nil

	case op.Gfd:
		if err := e.writeWord(o.A, e.files.Current()); err != nil {
			return Result{}, err
		}
		e.programCounter++
		return Result{Status: StatusOK}, nil

	case op.Zer:
		addr, err := e.readWord(o.A)
		if err != nil {
			return Result{}, err
		}
		n, err := e.readWord(o.B)
		if err != nil {
			return Result{}, err
		}
		if err := e.memory.Zero(addr, n); err != nil {
			return Result{}, memErr(err)
		}
		e.programCounter++
		return Result{Status: StatusOK}, nil

	case op.Cpy:
		dst, src, n, err := e.readThree(o.A, o.B, o.C)
		if err != nil {
			return Result{}, err
		}
		if err := e.memory.Copy(dst, src, n); err != nil {
			return Result{}, memErr(err)
		}
		e.programCounter++
		return Result{Status: StatusOK}, nil

	case op.Cmp:
		a, b, n, err := e.readThree(o.A, o.B, o.C)
		if err != nil {
			return Result{}, err
		}
		eq, err := e.memory.Compare(a, b, n)
		if err != nil {
			return Result{}, memErr(err)
		}
		return e.applyCond(eq)

	default:
		return Result{}, errIncorrect(o)
	}
}

func (e *Executor) readThree(a, b, c op.Operand) (va, vb, vc optype.Word, err error) {
	if va, err = e.readWord(a); err != nil {
		return
	}
	if vb, err = e.readWord(b); err != nil {
		return
	}
	vc, err = e.readWord(c)
	return
}

// applyCond advances PC normally when pass is true, or performs the
// conditional-skip rule (§4.2) when it is false.
func (e *Executor) applyCond(pass bool) (Result, error) {
	if pass {
		e.programCounter++
		return Result{Status: StatusOK}, nil
	}
	if err := e.skipGuarded(); err != nil {
		return Result{}, err
	}
	return Result{Status: StatusOK}, nil
}

// skipGuarded implements §4.2: starting one past the just-evaluated
// conditional, skip every contiguous conditional opcode, then skip
// exactly one more (non-conditional) instruction.
func (e *Executor) skipGuarded() error {
	c, err := e.current()
	if err != nil {
		return err
	}
	prog := c.function.Program
	e.programCounter++
	for int(e.programCounter) < len(prog) && prog[e.programCounter].Code.Conditional() {
		e.programCounter++
	}
	e.programCounter++
	return nil
}

func (e *Executor) condUnary(code op.Opcode, k optype.Kind, un op.UnOp) (bool, error) {
	eff, err := e.unOperand(un)
	if err != nil {
		return false, err
	}
	v, err := e.read(k, eff)
	if err != nil {
		return false, err
	}
	zero := optype.IsZero(k, v)
	if code == op.Ift {
		return !zero, nil
	}
	return zero, nil
}

// condPass evaluates a binary conditional/inverted-conditional opcode.
// Ine is the boolean negation of Ife (equality is always decidable, even
// for NaN: it's simply false). Inl/Ing, however, are not negations of
// Ifl/Ifg but their own orderings - >= and <= respectively - matching the
// original source's exec_inl/exec_ing. On an unordered (NaN) float
// compare every ordering predicate, If* and In* alike, is false: a naive
// !(ok && cmp<0) would make Inl pass on NaN, which the original does not.
func (e *Executor) condPass(code op.Opcode, k optype.Kind, x, y optype.Word, o op.Op) (bool, error) {
	switch code {
	case op.Ife, op.Ine, op.Ifl, op.Ifg, op.Inl, op.Ing:
		cmp, ok := optype.Cmp(k, x, y)
		switch code {
		case op.Ife:
			return ok && cmp == 0, nil
		case op.Ine:
			return !(ok && cmp == 0), nil
		case op.Ifl:
			return ok && cmp < 0, nil
		case op.Ifg:
			return ok && cmp > 0, nil
		case op.Inl:
			return ok && cmp >= 0, nil
		default: // op.Ing
			return ok && cmp <= 0, nil
		}

	case op.Ifa, op.Ifo, op.Ifx, op.Ina, op.Ino, op.Inx:
		if k.Float() {
			return false, errIncorrect(o)
		}
		var v optype.Word
		switch code {
		case op.Ifa, op.Ina:
			v = optype.And(k, x, y)
		case op.Ifo, op.Ino:
			v = optype.Or(k, x, y)
		default: // op.Ifx, op.Inx
			v = optype.Xor(k, x, y)
		}
		zero := optype.IsZero(k, v)
		switch code {
		case op.Ifa, op.Ifo, op.Ifx:
			return !zero, nil
		default:
			return zero, nil
		}

	default:
		return false, errIncorrect(o)
	}
}

func (e *Executor) execSet(bin op.BinOp, k optype.Kind) error {
	x, y, err := e.binOperands(bin)
	if err != nil {
		return err
	}
	v, err := e.read(k, y)
	if err != nil {
		return err
	}
	return e.write(k, x, v)
}

func (e *Executor) execCnv(o op.Op) error {
	v, err := e.read(o.Type, o.B)
	if err != nil {
		return err
	}
	converted := optype.Convert(o.Type, o.Type2, v)
	return e.write(o.Type2, o.A, converted)
}

func (e *Executor) execBinArith(code op.Opcode, k optype.Kind, bin op.BinOp, o op.Op) error {
	x, y, err := e.binOperands(bin)
	if err != nil {
		return err
	}
	vx, err := e.read(k, x)
	if err != nil {
		return err
	}
	vy, err := e.read(k, y)
	if err != nil {
		return err
	}

	var result optype.Word
	switch code {
	case op.Add:
		result = optype.Add(k, vx, vy)
	case op.Sub:
		result = optype.Sub(k, vx, vy)
	case op.Mul:
		result = optype.Mul(k, vx, vy)
	case op.Div:
		if optype.IsZero(k, vy) {
			return &Error{Kind: DivisionByZero, Op: &o}
		}
		result = optype.Div(k, vx, vy)
	case op.Mod:
		if optype.IsZero(k, vy) {
			return &Error{Kind: DivisionByZero, Op: &o}
		}
		result = optype.Mod(k, vx, vy)
	case op.And:
		if k.Float() {
			return errIncorrect(o)
		}
		result = optype.And(k, vx, vy)
	case op.Or:
		if k.Float() {
			return errIncorrect(o)
		}
		result = optype.Or(k, vx, vy)
	case op.Xor:
		if k.Float() {
			return errIncorrect(o)
		}
		result = optype.Xor(k, vx, vy)
	}
	return e.write(k, x, result)
}

func (e *Executor) execUnary(code op.Opcode, k optype.Kind, un op.UnOp, o op.Op) error {
	eff, err := e.unOperand(un)
	if err != nil {
		return err
	}
	v, err := e.read(k, eff)
	if err != nil {
		return err
	}

	var result optype.Word
	switch code {
	case op.Not:
		if k.Float() {
			return errIncorrect(o)
		}
		result = optype.Not(k, v)
	case op.Neg:
		result = optype.Neg(k, v)
	case op.Inc:
		result = optype.Inc(k, v)
	default: // op.Dec
		result = optype.Dec(k, v)
	}
	return e.write(k, eff, result)
}

func (e *Executor) execShift(code op.Opcode, k optype.Kind, o op.Op) error {
	if k.Float() {
		return errIncorrect(o)
	}
	v, err := e.read(k, o.A)
	if err != nil {
		return err
	}
	countWord, err := e.read(optype.U8, o.B)
	if err != nil {
		return err
	}
	count := uint8(countWord)

	var result optype.Word
	if code == op.Shl {
		result = optype.Shl(k, v, count)
	} else {
		result = optype.Shr(k, v, count)
	}
	return e.write(k, o.A, result)
}

func (e *Executor) execIn(bin op.BinOp) error {
	x, y, err := e.binOperands(bin)
	if err != nil {
		return err
	}
	b, ok, err := e.files.Read()
	if err != nil {
		return filesErr(err)
	}
	if y.Kind != op.Emp {
		flag := optype.Word(0)
		if ok {
			flag = 1
		}
		if err := e.write(optype.U8, y, flag); err != nil {
			return err
		}
	}
	var v optype.Word
	if ok {
		v = optype.Word(b)
	}
	return e.write(optype.U8, x, v)
}

func (e *Executor) execOut(un op.UnOp) error {
	eff, err := e.unOperand(un)
	if err != nil {
		return err
	}
	v, err := e.read(optype.U8, eff)
	if err != nil {
		return err
	}
	if err := e.files.Write(byte(v)); err != nil {
		return filesErr(err)
	}
	return nil
}
