// Package op defines the operand and operation vocabulary shared by the
// decoder and the executor: the seven operand kinds, the four offset
// variants, and the roughly forty-five opcodes, in the exact order the
// wire format's opcode table (§6 of the spec this module implements)
// assigns them byte values.
//
// Grounded on the teacher's Bytecode enum (vm/bytecode.go): a small
// integer-backed enum with a String() method and a handful of predicate
// methods (IsRegisterOp, IsConditional-equivalent) used by the dispatcher
// instead of a virtual method table.
package op

import "rtvm/optype"

// OperandKind tags one of the seven operand shapes.
type OperandKind uint8

const (
	Loc OperandKind = iota
	Ind
	Ret
	Val
	Ref
	Glb
	Emp
)

var operandKindNames = [...]string{"Loc", "Ind", "Ret", "Val", "Ref", "Glb", "Emp"}

func (k OperandKind) String() string {
	if int(k) < len(operandKindNames) {
		return operandKindNames[k]
	}
	return "InvalidOperandKind"
}

// Valid reports whether k is one of the seven defined operand kinds.
func (k OperandKind) Valid() bool { return int(k) < len(operandKindNames) }

// Operand is a tagged operand value: U holds the literal payload for Val,
// the byte offset for Loc/Ind/Ret/Ref, or the absolute address for Glb.
// Emp ignores U.
type Operand struct {
	Kind OperandKind
	U    optype.Word
}

// Empty is the canonical Operand{Emp}.
var Empty = Operand{Kind: Emp}

func (o Operand) String() string {
	if o.Kind == Emp {
		return "Emp"
	}
	return o.Kind.String() + "(" + itoa(o.U) + ")"
}

func itoa(w optype.Word) string {
	if w == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for w > 0 {
		i--
		buf[i] = byte('0' + w%10)
		w /= 10
	}
	return string(buf[i:])
}

// Variant tags which operand(s) of a UnOp/BinOp carry a runtime offset.
type Variant uint8

const (
	VariantNone Variant = iota
	VariantFirst
	VariantSecond
	VariantBoth
)

func (v Variant) String() string {
	switch v {
	case VariantNone:
		return "None"
	case VariantFirst:
		return "First"
	case VariantSecond:
		return "Second"
	case VariantBoth:
		return "Both"
	default:
		return "InvalidVariant"
	}
}

// Valid reports whether v is one of the four defined variants.
func (v Variant) Valid() bool { return v <= VariantBoth }

// UnOp is a single operand with an optional runtime offset (VariantNone or
// VariantFirst only - VariantSecond/VariantBoth are a decode-time error for
// any UnOp-shaped opcode).
type UnOp struct {
	X       Operand
	Variant Variant
	Offset  Operand
}

// NewUnOp builds an offset-free UnOp, the common case in hand-written Op
// literals (tests, the assembler).
func NewUnOp(x Operand) UnOp { return UnOp{X: x, Variant: VariantNone} }

// BinOp is a pair of operands with an optional runtime offset applied to
// the first, second, or both.
type BinOp struct {
	X, Y    Operand
	Variant Variant
	Offset  Operand
}

// NewBinOp builds an offset-free BinOp.
func NewBinOp(x, y Operand) BinOp { return BinOp{X: x, Y: y, Variant: VariantNone} }

// Opcode enumerates every operation, in exactly the order the wire
// format's fixed opcode table assigns byte values.
type Opcode uint8

const (
	Nop Opcode = iota
	End
	Slp
	Set
	Cnv
	Add
	Sub
	Mul
	Div
	Mod
	Shl
	Shr
	And
	Or
	Xor
	Not
	Neg
	Inc
	Dec
	Go
	Ift
	Iff
	Ife
	Ifl
	Ifg
	Ine
	Inl
	Ing
	Ifa
	Ifo
	Ifx
	Ina
	Ino
	Inx
	App
	Par
	Clf
	Ret
	In
	Out
	Fls
	Sfd
	Gfd
	Zer
	Cmp
	Cpy

	numOpcodes = int(Cpy) + 1
)

var opcodeNames = [numOpcodes]string{
	Nop: "Nop", End: "End", Slp: "Slp", Set: "Set", Cnv: "Cnv",
	Add: "Add", Sub: "Sub", Mul: "Mul", Div: "Div", Mod: "Mod",
	Shl: "Shl", Shr: "Shr", And: "And", Or: "Or", Xor: "Xor",
	Not: "Not", Neg: "Neg", Inc: "Inc", Dec: "Dec", Go: "Go",
	Ift: "Ift", Iff: "Iff", Ife: "Ife", Ifl: "Ifl", Ifg: "Ifg",
	Ine: "Ine", Inl: "Inl", Ing: "Ing", Ifa: "Ifa", Ifo: "Ifo", Ifx: "Ifx",
	Ina: "Ina", Ino: "Ino", Inx: "Inx",
	App: "App", Par: "Par", Clf: "Clf", Ret: "Ret",
	In: "In", Out: "Out", Fls: "Fls", Sfd: "Sfd", Gfd: "Gfd",
	Zer: "Zer", Cmp: "Cmp", Cpy: "Cpy",
}

func (c Opcode) String() string {
	if int(c) < numOpcodes {
		return opcodeNames[c]
	}
	return "InvalidOpcode"
}

// Valid reports whether c is one of the defined opcodes.
func (c Opcode) Valid() bool { return int(c) < numOpcodes }

// Conditional reports whether c is one of the test-and-maybe-skip opcodes
// that the conditional-skip rule (§4.2) treats as chainable guards. Cmp is
// deliberately included: a failed Cmp skips exactly like a failed If*.
func (c Opcode) Conditional() bool {
	switch c {
	case Ift, Iff, Ife, Ifl, Ifg, Ine, Inl, Ing, Ifa, Ifo, Ifx, Ina, Ino, Inx, Cmp:
		return true
	default:
		return false
	}
}

// Op is one decoded operation. Only the fields relevant to Code are
// populated; see the per-opcode comments below for which fields apply.
type Op struct {
	Code Opcode

	// Type is the primary OpType tag, present on every typed opcode.
	Type optype.Kind
	// Type2 is Cnv's destination type tag (the wire format's secondary
	// nibble). Unused by every other opcode.
	Type2 optype.Kind

	// Un holds the operand for single-operand typed opcodes: Par, Ret,
	// Not, Neg, Inc, Dec, Ift, Iff, Out.
	Un UnOp

	// Bin holds the operand pair for two-operand typed opcodes that
	// support a runtime offset: Set, Add/Sub/Mul/Div/Mod, And/Or/Xor,
	// Ife/Ifl/.../Inx, In (X=data, Y=eof flag or Emp). Cnv and Shl/Shr
	// are typed two-operand opcodes too, but the wire format gives them
	// no offset support at all, so they use the plain A/B fields below
	// instead of Bin.
	Bin BinOp

	// A, B, C hold the plain (untyped-wire, offset-free) operands for
	// End, Slp, Go, App, Clf, Sfd, Gfd (A only), Zer (A=dst, B=n),
	// Cmp/Cpy (A, B, C), Cnv (A=dst, B=src; Type=src tag, Type2=dst
	// tag), and Shl/Shr (A=x, B=y; y is always read/written as u8
	// regardless of Type).
	A, B, C Operand
}

// Function is one callable unit: a frame size and an ordered instruction
// stream. Ops reference other functions by index for App.
type Function struct {
	FrameSize optype.Word
	Program   []Op
}
