package asm

import (
	"fmt"
	"strconv"
	"strings"

	"rtvm/op"
	"rtvm/optype"
)

var mnemonics = map[string]op.Opcode{
	"nop": op.Nop, "end": op.End, "slp": op.Slp, "set": op.Set, "cnv": op.Cnv,
	"add": op.Add, "sub": op.Sub, "mul": op.Mul, "div": op.Div, "mod": op.Mod,
	"shl": op.Shl, "shr": op.Shr, "and": op.And, "or": op.Or, "xor": op.Xor,
	"not": op.Not, "neg": op.Neg, "inc": op.Inc, "dec": op.Dec, "go": op.Go,
	"ift": op.Ift, "iff": op.Iff, "ife": op.Ife, "ifl": op.Ifl, "ifg": op.Ifg,
	"ine": op.Ine, "inl": op.Inl, "ing": op.Ing, "ifa": op.Ifa, "ifo": op.Ifo,
	"ifx": op.Ifx, "ina": op.Ina, "ino": op.Ino, "inx": op.Inx,
	"app": op.App, "par": op.Par, "clf": op.Clf, "ret": op.Ret,
	"in": op.In, "out": op.Out, "fls": op.Fls, "sfd": op.Sfd, "gfd": op.Gfd,
	"zer": op.Zer, "cmp": op.Cmp, "cpy": op.Cpy,
}

var kindNames = map[string]optype.Kind{
	"u8": optype.U8, "i8": optype.I8, "u16": optype.U16, "i16": optype.I16,
	"u32": optype.U32, "i32": optype.I32, "u64": optype.U64, "i64": optype.I64,
	"uw": optype.Uw, "iw": optype.Iw, "f32": optype.F32, "f64": optype.F64,
}

// unOpcodes and binOpcodes list the opcodes whose primary operand(s)
// support the '@' runtime-offset suffix. See op.Op's field comments.
var unOpcodes = map[op.Opcode]bool{
	op.Par: true, op.Ret: true, op.Not: true, op.Neg: true, op.Inc: true,
	op.Dec: true, op.Ift: true, op.Iff: true, op.Out: true,
}

var binOpcodes = map[op.Opcode]bool{
	op.Set: true, op.Add: true, op.Sub: true, op.Mul: true, op.Div: true,
	op.Mod: true, op.And: true, op.Or: true, op.Xor: true,
	op.Ife: true, op.Ifl: true, op.Ifg: true, op.Ine: true, op.Inl: true,
	op.Ing: true, op.Ifa: true, op.Ifo: true, op.Ifx: true, op.Ina: true,
	op.Ino: true, op.Inx: true, op.In: true,
}

// takesType reports whether code carries one OpType tag as its first
// assembly argument. Cnv (two types) is parsed separately, and every other
// opcode takes no type argument at all.
func takesType(code op.Opcode) bool {
	switch code {
	case op.Set, op.Add, op.Sub, op.Mul, op.Div, op.Mod, op.And, op.Or, op.Xor,
		op.Not, op.Neg, op.Inc, op.Dec, op.Ift, op.Iff,
		op.Ife, op.Ifl, op.Ifg, op.Ine, op.Inl, op.Ing,
		op.Ifa, op.Ifo, op.Ifx, op.Ina, op.Ino, op.Inx,
		op.Par, op.Ret, op.Shl, op.Shr:
		return true
	default:
		return false
	}
}

// parseLine assembles one preprocessed instruction line (mnemonic plus
// whitespace-separated arguments) into an Op, resolving any bare
// identifier operand value against labels (jump/call targets are plain
// op-indices in this ISA, not byte addresses).
func parseLine(line string, labels map[string]optype.Word) (op.Op, error) {
	fields := strings.Fields(line)
	mnemonic := strings.ToLower(fields[0])
	code, ok := mnemonics[mnemonic]
	if !ok {
		return op.Op{}, fmt.Errorf("unknown mnemonic %q", fields[0])
	}
	args := fields[1:]

	o := op.Op{Code: code}

	if code == op.Cnv {
		if len(args) != 4 {
			return op.Op{}, fmt.Errorf("cnv requires: <from-type> <to-type> <dst> <src>")
		}
		from, ok := kindNames[strings.ToLower(args[0])]
		if !ok {
			return op.Op{}, fmt.Errorf("unknown type %q", args[0])
		}
		to, ok := kindNames[strings.ToLower(args[1])]
		if !ok {
			return op.Op{}, fmt.Errorf("unknown type %q", args[1])
		}
		dst, err := parseOperand(args[2], to, labels)
		if err != nil {
			return op.Op{}, err
		}
		src, err := parseOperand(args[3], from, labels)
		if err != nil {
			return op.Op{}, err
		}
		o.Type, o.Type2, o.A, o.B = from, to, dst, src
		return o, nil
	}

	if takesType(code) {
		if len(args) < 1 {
			return op.Op{}, fmt.Errorf("%s requires a type argument", mnemonic)
		}
		k, ok := kindNames[strings.ToLower(args[0])]
		if !ok {
			return op.Op{}, fmt.Errorf("unknown type %q", args[0])
		}
		o.Type = k
		args = args[1:]
	}

	switch {
	case code == op.Shl || code == op.Shr:
		if len(args) != 2 {
			return op.Op{}, fmt.Errorf("%s requires: <x> <count>", mnemonic)
		}
		x, err := parseOperand(args[0], o.Type, labels)
		if err != nil {
			return op.Op{}, err
		}
		count, err := parseOperand(args[1], optype.U8, labels)
		if err != nil {
			return op.Op{}, err
		}
		o.A, o.B = x, count
		return o, nil

	case code == op.Zer:
		if len(args) != 2 {
			return op.Op{}, fmt.Errorf("zer requires: <addr> <n>")
		}
		a, err := parseOperand(args[0], optype.Uw, labels)
		if err != nil {
			return op.Op{}, err
		}
		b, err := parseOperand(args[1], optype.Uw, labels)
		if err != nil {
			return op.Op{}, err
		}
		o.A, o.B = a, b
		return o, nil

	case code == op.Cmp || code == op.Cpy:
		if len(args) != 3 {
			return op.Op{}, fmt.Errorf("%s requires: <a> <b> <n>", mnemonic)
		}
		a, err := parseOperand(args[0], optype.Uw, labels)
		if err != nil {
			return op.Op{}, err
		}
		b, err := parseOperand(args[1], optype.Uw, labels)
		if err != nil {
			return op.Op{}, err
		}
		n, err := parseOperand(args[2], optype.Uw, labels)
		if err != nil {
			return op.Op{}, err
		}
		o.A, o.B, o.C = a, b, n
		return o, nil

	case code == op.End || code == op.Slp || code == op.Go || code == op.App ||
		code == op.Sfd || code == op.Gfd:
		if len(args) != 1 {
			return op.Op{}, fmt.Errorf("%s requires exactly one operand", mnemonic)
		}
		a, err := parseOperand(args[0], optype.Uw, labels)
		if err != nil {
			return op.Op{}, err
		}
		o.A = a
		return o, nil

	case code == op.Clf:
		if len(args) != 1 {
			return op.Op{}, fmt.Errorf("clf requires exactly one operand")
		}
		a, err := parseOperand(args[0], optype.Uw, labels)
		if err != nil {
			return op.Op{}, err
		}
		o.A = a
		return o, nil

	case code == op.Nop || code == op.Fls:
		if len(args) != 0 {
			return op.Op{}, fmt.Errorf("%s takes no operands", mnemonic)
		}
		return o, nil

	case unOpcodes[code]:
		if len(args) != 1 {
			return op.Op{}, fmt.Errorf("%s requires exactly one operand", mnemonic)
		}
		un, err := parseUnOp(args[0], o.Type, labels)
		if err != nil {
			return op.Op{}, err
		}
		o.Un = un
		return o, nil

	case binOpcodes[code]:
		if len(args) != 2 {
			return op.Op{}, fmt.Errorf("%s requires exactly two operands", mnemonic)
		}
		bin, err := parseBinOp(args[0], args[1], o.Type, labels)
		if err != nil {
			return op.Op{}, err
		}
		o.Bin = bin
		return o, nil

	default:
		return op.Op{}, fmt.Errorf("internal: opcode %s has no operand schema", code)
	}
}

// parseUnOp parses a single "<operand>" or "<operand>@<offset>" token
// into a UnOp. k types the operand's literal value (Val tokens only),
// unused for any other operand kind.
func parseUnOp(tok string, k optype.Kind, labels map[string]optype.Word) (op.UnOp, error) {
	base, offsetTok, hasOffset := strings.Cut(tok, "@")
	x, err := parseOperand(base, k, labels)
	if err != nil {
		return op.UnOp{}, err
	}
	if !hasOffset {
		return op.UnOp{X: x}, nil
	}
	offset, err := parseOperand(offsetTok, optype.Uw, labels)
	if err != nil {
		return op.UnOp{}, err
	}
	return op.UnOp{X: x, Variant: op.VariantFirst, Offset: offset}, nil
}

// parseBinOp parses the "<x>" and "<y>" tokens of a two-operand
// instruction, each optionally suffixed with "@<offset>". The wire
// format has one shared Offset operand per BinOp, so at most one side
// (or both, carrying the identical offset expression) may use it.
func parseBinOp(xtok, ytok string, k optype.Kind, labels map[string]optype.Word) (op.BinOp, error) {
	xbase, xoff, xHas := strings.Cut(xtok, "@")
	ybase, yoff, yHas := strings.Cut(ytok, "@")

	x, err := parseOperand(xbase, k, labels)
	if err != nil {
		return op.BinOp{}, err
	}
	y, err := parseOperand(ybase, k, labels)
	if err != nil {
		return op.BinOp{}, err
	}

	switch {
	case !xHas && !yHas:
		return op.BinOp{X: x, Y: y}, nil
	case xHas && !yHas:
		off, err := parseOperand(xoff, optype.Uw, labels)
		if err != nil {
			return op.BinOp{}, err
		}
		return op.BinOp{X: x, Y: y, Variant: op.VariantFirst, Offset: off}, nil
	case !xHas && yHas:
		off, err := parseOperand(yoff, optype.Uw, labels)
		if err != nil {
			return op.BinOp{}, err
		}
		return op.BinOp{X: x, Y: y, Variant: op.VariantSecond, Offset: off}, nil
	default: // both
		if xoff != yoff {
			return op.BinOp{}, fmt.Errorf("both operands carry an offset but they differ (%q vs %q); the wire format has one shared offset", xoff, yoff)
		}
		off, err := parseOperand(xoff, optype.Uw, labels)
		if err != nil {
			return op.BinOp{}, err
		}
		return op.BinOp{X: x, Y: y, Variant: op.VariantBoth, Offset: off}, nil
	}
}

// parseOperand parses one bare operand token: l<n> Loc, i<n> Ind, r<n>
// Ret, f<n> Ref, g<n> Glb, _ Emp, or v<literal> Val (literal may be a
// decimal or 0x-hex integer, a 'c' character, a float when k is F32/F64,
// or a bare label name resolved against labels).
func parseOperand(tok string, k optype.Kind, labels map[string]optype.Word) (op.Operand, error) {
	if tok == "_" {
		return op.Operand{Kind: op.Emp}, nil
	}
	if len(tok) < 2 {
		return op.Operand{}, fmt.Errorf("malformed operand %q", tok)
	}
	prefix, rest := tok[0], tok[1:]

	kindByPrefix := map[byte]op.OperandKind{
		'l': op.Loc, 'i': op.Ind, 'r': op.Ret, 'f': op.Ref, 'g': op.Glb,
	}
	if opKind, ok := kindByPrefix[prefix]; ok {
		n, err := strconv.ParseUint(rest, 0, 64)
		if err != nil {
			return op.Operand{}, fmt.Errorf("bad offset in operand %q: %w", tok, err)
		}
		return op.Operand{Kind: opKind, U: optype.Word(n)}, nil
	}
	if prefix == 'v' {
		w, err := parseLiteral(rest, k, labels)
		if err != nil {
			return op.Operand{}, fmt.Errorf("bad value in operand %q: %w", tok, err)
		}
		return op.Operand{Kind: op.Val, U: w}, nil
	}
	return op.Operand{}, fmt.Errorf("unknown operand prefix in %q (want l/i/r/f/g/v/_)", tok)
}

func parseLiteral(s string, k optype.Kind, labels map[string]optype.Word) (optype.Word, error) {
	if addr, ok := labels[s]; ok {
		return addr, nil
	}
	if len(s) == 3 && s[0] == '\'' && s[2] == '\'' {
		return optype.Word(s[1]), nil
	}
	if k.Float() && strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		return optype.FromFloat(k, f), nil
	}
	base := 10
	if strings.HasPrefix(s, "0x") {
		base = 16
		s = s[2:]
	}
	if strings.HasPrefix(s, "-") {
		n, err := strconv.ParseInt(s, base, 64)
		if err != nil {
			return 0, err
		}
		return optype.Word(uint64(n)), nil
	}
	n, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return 0, err
	}
	return optype.Word(n), nil
}
