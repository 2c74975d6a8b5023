// Package decoder turns a byte stream into op.Op values and back. It
// implements the wire format described in §6 of the spec this module
// builds: a one-byte opcode, an optional meta byte carrying a type tag
// and/or an offset variant, and a handful of operand bytes (each either a
// one-byte short-form Loc or a long-form tagged/sized value).
//
// Grounded on the teacher's little-endian byte<->word helpers
// (uint32FromBytes/uint32ToBytes in vm/vm.go, built on encoding/binary)
// generalized here to the 1-4 byte variable-width operand encoding the
// wire format uses instead of a fixed 4-byte word.
package decoder

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"rtvm/op"
	"rtvm/optype"
)

// ErrorKind classifies a decode failure.
type ErrorKind uint8

const (
	UnexpectedEnd ErrorKind = iota
	UnknownOpcode
	UndefinedOperation
	IncorrectVariant
	ReadError
)

var errorKindNames = [...]string{
	"unexpected end of input",
	"unknown opcode",
	"undefined operation",
	"incorrect variant",
	"read error",
}

func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return "invalid decode error kind"
}

// Error reports why a decode failed. Encode reports its own failures as
// plain errors, not as *Error.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decoder: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("decoder: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Bit layout of the meta byte (type/variant) and the long operand byte.
const (
	opTypeBits     = 0x0F
	opTypeLeftBits = 0xF0
	variantBits    = 0xC0
	longOperandBit = 0x80
	kindBits       = 0x70
	sizeBits       = 0x03
)

var operandTagByKind = [...]byte{
	op.Loc: 0, op.Ind: 1, op.Ret: 2, op.Val: 3, op.Ref: 4, op.Glb: 5, op.Emp: 6,
}

var operandKindByTag = [...]op.OperandKind{
	0: op.Loc, 1: op.Ind, 2: op.Ret, 3: op.Val, 4: op.Ref, 5: op.Glb, 6: op.Emp,
}

func readByte(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, readErr(err)
	}
	return buf[0], nil
}

func readErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return &Error{Kind: UnexpectedEnd}
	}
	return &Error{Kind: ReadError, Err: err}
}

func decodeKind(tag byte) (optype.Kind, error) {
	k, ok := optype.New(tag)
	if !ok {
		return 0, &Error{Kind: UndefinedOperation}
	}
	return k, nil
}

func decodeVariant(tag byte) (op.Variant, error) {
	v := op.Variant(tag)
	if !v.Valid() {
		return 0, &Error{Kind: UndefinedOperation}
	}
	return v, nil
}

// decodeTypeVariant reads one meta byte: bits 0-3 are an OpType, bits 6-7
// are a Variant. Used by every (BinOp|UnOp, OpType) shaped opcode, and by
// In/Out, which read the same byte but discard the type.
func decodeTypeVariant(r io.Reader) (optype.Kind, op.Variant, error) {
	meta, err := readByte(r)
	if err != nil {
		return 0, 0, err
	}
	k, err := decodeKind(meta & opTypeBits)
	if err != nil {
		return 0, 0, err
	}
	v, err := decodeVariant((meta & variantBits) >> 6)
	if err != nil {
		return 0, 0, err
	}
	return k, v, nil
}

// decodeType reads a bare OpType from its own meta byte (Shl/Shr: no
// variant bits are consulted, though the byte is still fully consumed).
func decodeType(r io.Reader) (optype.Kind, error) {
	meta, err := readByte(r)
	if err != nil {
		return 0, err
	}
	return decodeKind(meta & opTypeBits)
}

// decodeTwoTypes reads Cnv's meta byte: bits 0-3 are the source type,
// bits 4-7 are the destination type. There are no variant bits at all.
func decodeTwoTypes(r io.Reader) (src, dst optype.Kind, err error) {
	meta, err := readByte(r)
	if err != nil {
		return 0, 0, err
	}
	src, err = decodeKind(meta & opTypeBits)
	if err != nil {
		return 0, 0, err
	}
	dst, err = decodeKind((meta & opTypeLeftBits) >> 4)
	if err != nil {
		return 0, 0, err
	}
	return src, dst, nil
}

// decodeOperand reads one operand: a short-form Loc in a single byte
// when its high bit is clear, or a long-form tagged/sized value (1-4
// little-endian payload bytes) when it is set.
func decodeOperand(r io.Reader) (op.Operand, error) {
	meta, err := readByte(r)
	if err != nil {
		return op.Operand{}, err
	}
	if meta&longOperandBit == 0 {
		return op.Operand{Kind: op.Loc, U: optype.Word(meta &^ longOperandBit)}, nil
	}

	n := int(meta&sizeBits) + 1
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:n]); err != nil {
		return op.Operand{}, readErr(err)
	}
	var padded [4]byte
	copy(padded[:], buf[:n])
	value := optype.Word(binary.LittleEndian.Uint32(padded[:]))

	tag := (meta & kindBits) >> 4
	if int(tag) >= len(operandKindByTag) {
		return op.Operand{}, &Error{Kind: UndefinedOperation}
	}
	kind := operandKindByTag[tag]
	if !kind.Valid() {
		return op.Operand{}, &Error{Kind: UndefinedOperation}
	}
	return op.Operand{Kind: kind, U: value}, nil
}

// decodeBinOp reads a BinOp's X and Y operands, then - per variant -
// zero, one (applied to X or Y), or one (applied to both) offset
// operand.
func decodeBinOp(r io.Reader, variant op.Variant) (op.BinOp, error) {
	x, err := decodeOperand(r)
	if err != nil {
		return op.BinOp{}, err
	}
	y, err := decodeOperand(r)
	if err != nil {
		return op.BinOp{}, err
	}
	bin := op.NewBinOp(x, y)

	switch variant {
	case op.VariantNone:
		return bin, nil
	case op.VariantFirst, op.VariantSecond, op.VariantBoth:
		offset, err := decodeOperand(r)
		if err != nil {
			return op.BinOp{}, err
		}
		bin.Variant = variant
		bin.Offset = offset
		return bin, nil
	default:
		return op.BinOp{}, &Error{Kind: IncorrectVariant}
	}
}

// decodeUnOp reads a UnOp's X operand, then - for VariantFirst only -
// one offset operand. VariantSecond/VariantBoth are a decode-time error:
// a UnOp has nothing to apply a second offset to.
func decodeUnOp(r io.Reader, variant op.Variant) (op.UnOp, error) {
	x, err := decodeOperand(r)
	if err != nil {
		return op.UnOp{}, err
	}
	un := op.NewUnOp(x)

	switch variant {
	case op.VariantNone:
		return un, nil
	case op.VariantFirst:
		offset, err := decodeOperand(r)
		if err != nil {
			return op.UnOp{}, err
		}
		un.Variant = op.VariantFirst
		un.Offset = offset
		return un, nil
	default:
		return op.UnOp{}, &Error{Kind: IncorrectVariant}
	}
}

// Decode reads exactly one Op from r.
func Decode(r io.Reader) (op.Op, error) {
	b, err := readByte(r)
	if err != nil {
		return op.Op{}, err
	}
	code := op.Opcode(b)
	if !code.Valid() {
		return op.Op{}, &Error{Kind: UnknownOpcode}
	}

	switch code {
	case op.Nop, op.Fls:
		return op.Op{Code: code}, nil

	case op.End, op.Slp, op.Go, op.App, op.Clf, op.Sfd, op.Gfd:
		a, err := decodeOperand(r)
		if err != nil {
			return op.Op{}, err
		}
		return op.Op{Code: code, A: a}, nil

	case op.Zer:
		a, err := decodeOperand(r)
		if err != nil {
			return op.Op{}, err
		}
		bOperand, err := decodeOperand(r)
		if err != nil {
			return op.Op{}, err
		}
		return op.Op{Code: code, A: a, B: bOperand}, nil

	case op.Cmp, op.Cpy:
		a, err := decodeOperand(r)
		if err != nil {
			return op.Op{}, err
		}
		bOperand, err := decodeOperand(r)
		if err != nil {
			return op.Op{}, err
		}
		c, err := decodeOperand(r)
		if err != nil {
			return op.Op{}, err
		}
		return op.Op{Code: code, A: a, B: bOperand, C: c}, nil

	case op.Cnv:
		src, dst, err := decodeTwoTypes(r)
		if err != nil {
			return op.Op{}, err
		}
		dstOperand, err := decodeOperand(r)
		if err != nil {
			return op.Op{}, err
		}
		srcOperand, err := decodeOperand(r)
		if err != nil {
			return op.Op{}, err
		}
		return op.Op{Code: code, Type: src, Type2: dst, A: dstOperand, B: srcOperand}, nil

	case op.Shl, op.Shr:
		t, err := decodeType(r)
		if err != nil {
			return op.Op{}, err
		}
		x, err := decodeOperand(r)
		if err != nil {
			return op.Op{}, err
		}
		y, err := decodeOperand(r)
		if err != nil {
			return op.Op{}, err
		}
		return op.Op{Code: code, Type: t, A: x, B: y}, nil

	case op.In:
		_, variant, err := decodeTypeVariant(r)
		if err != nil {
			return op.Op{}, err
		}
		bin, err := decodeBinOp(r, variant)
		if err != nil {
			return op.Op{}, err
		}
		return op.Op{Code: code, Bin: bin}, nil

	case op.Out:
		_, variant, err := decodeTypeVariant(r)
		if err != nil {
			return op.Op{}, err
		}
		un, err := decodeUnOp(r, variant)
		if err != nil {
			return op.Op{}, err
		}
		return op.Op{Code: code, Un: un}, nil

	case op.Par, op.Ret, op.Not, op.Neg, op.Inc, op.Dec, op.Ift, op.Iff:
		t, variant, err := decodeTypeVariant(r)
		if err != nil {
			return op.Op{}, err
		}
		un, err := decodeUnOp(r, variant)
		if err != nil {
			return op.Op{}, err
		}
		return op.Op{Code: code, Type: t, Un: un}, nil

	case op.Set, op.Add, op.Sub, op.Mul, op.Div, op.Mod, op.And, op.Or, op.Xor,
		op.Ife, op.Ifl, op.Ifg, op.Ine, op.Inl, op.Ing,
		op.Ifa, op.Ifo, op.Ifx, op.Ina, op.Ino, op.Inx:
		t, variant, err := decodeTypeVariant(r)
		if err != nil {
			return op.Op{}, err
		}
		bin, err := decodeBinOp(r, variant)
		if err != nil {
			return op.Op{}, err
		}
		return op.Op{Code: code, Type: t, Bin: bin}, nil

	default:
		return op.Op{}, &Error{Kind: UnknownOpcode}
	}
}

// DecodeProgram reads Ops from r until input runs out exactly on an
// opcode boundary, which is a clean end rather than an error; running
// out partway through an Op still reports UnexpectedEnd.
func DecodeProgram(r io.Reader) ([]op.Op, error) {
	br := bufio.NewReader(r)
	var ops []op.Op
	for {
		if _, err := br.Peek(1); err == io.EOF {
			return ops, nil
		}
		o, err := Decode(br)
		if err != nil {
			return ops, err
		}
		ops = append(ops, o)
	}
}
