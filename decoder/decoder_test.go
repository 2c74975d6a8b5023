package decoder

import (
	"bytes"
	"testing"

	"rtvm/op"
	"rtvm/optype"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(format, args...)
	}
}

func decodeBytes(t *testing.T, code []byte) op.Op {
	t.Helper()
	r := bytes.NewReader(code)
	o, err := Decode(r)
	assert(t, err == nil, "decode should succeed, got %v", err)
	assert(t, r.Len() == 0, "decode should consume every byte, %d left over", r.Len())
	return o
}

func TestDecodeUnexpectedEnd(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{byte(op.Inc)}))
	derr, ok := err.(*Error)
	assert(t, ok && derr.Kind == UnexpectedEnd, "truncated Inc should report UnexpectedEnd, got %v", err)
}

func TestDecodeUnknownOpcode(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{0xFF}))
	derr, ok := err.(*Error)
	assert(t, ok && derr.Kind == UnknownOpcode, "invalid opcode byte should report UnknownOpcode, got %v", err)
}

func TestDecodeUnShort(t *testing.T) {
	code := []byte{byte(op.Inc), 0b0000_0011, 16}
	got := decodeBytes(t, code)
	want := op.Op{Code: op.Inc, Type: optype.I16, Un: op.NewUnOp(op.Operand{Kind: op.Loc, U: 16})}
	assert(t, got == want, "got %+v want %+v", got, want)
}

func TestDecodeUnLong(t *testing.T) {
	code := []byte{byte(op.Inc), 0b0000_0011, 0b1001_0000, 16}
	got := decodeBytes(t, code)
	want := op.Op{Code: op.Inc, Type: optype.I16, Un: op.NewUnOp(op.Operand{Kind: op.Ind, U: 16})}
	assert(t, got == want, "got %+v want %+v", got, want)
}

func TestDecodeUnFirstOffset(t *testing.T) {
	code := []byte{byte(op.Inc), 0b0100_0011, 0b1001_0000, 16, 0b1100_0000, 1}
	got := decodeBytes(t, code)
	un := op.NewUnOp(op.Operand{Kind: op.Ind, U: 16})
	un.Variant = op.VariantFirst
	un.Offset = op.Operand{Kind: op.Ref, U: 1}
	want := op.Op{Code: op.Inc, Type: optype.I16, Un: un}
	assert(t, got == want, "got %+v want %+v", got, want)
}

func TestDecodeUnSecondVariantIsIncorrect(t *testing.T) {
	code := []byte{byte(op.Inc), 0b1000_0011, 16}
	_, err := Decode(bytes.NewReader(code))
	derr, ok := err.(*Error)
	assert(t, ok && derr.Kind == IncorrectVariant, "Inc with VariantSecond must be rejected, got %v", err)
}

func TestDecodeBinShort(t *testing.T) {
	code := []byte{byte(op.Set), 0b0000_0011, 8, 16}
	got := decodeBytes(t, code)
	want := op.Op{Code: op.Set, Type: optype.I16, Bin: op.NewBinOp(
		op.Operand{Kind: op.Loc, U: 8}, op.Operand{Kind: op.Loc, U: 16})}
	assert(t, got == want, "got %+v want %+v", got, want)
}

func TestDecodeBinLong(t *testing.T) {
	code := []byte{byte(op.Add), 0b0000_0100, 0b1000_0001, 8, 0, 0b1001_0000, 16}
	got := decodeBytes(t, code)
	want := op.Op{Code: op.Add, Type: optype.U32, Bin: op.NewBinOp(
		op.Operand{Kind: op.Loc, U: 8}, op.Operand{Kind: op.Ind, U: 16})}
	assert(t, got == want, "got %+v want %+v", got, want)
}

func TestDecodeBinFirstOffset(t *testing.T) {
	code := []byte{byte(op.Set), 0b0100_0100, 0b1010_0000, 8, 0b1100_0000, 16, 0b1011_0000, 5}
	got := decodeBytes(t, code)
	bin := op.NewBinOp(op.Operand{Kind: op.Ret, U: 8}, op.Operand{Kind: op.Ref, U: 16})
	bin.Variant = op.VariantFirst
	bin.Offset = op.Operand{Kind: op.Val, U: 5}
	want := op.Op{Code: op.Set, Type: optype.U32, Bin: bin}
	assert(t, got == want, "got %+v want %+v", got, want)
}

func TestDecodeBinSecondOffset(t *testing.T) {
	code := []byte{byte(op.Div), 0b1000_0100, 0b1010_0000, 8, 0b1100_0000, 16, 0b1011_0000, 5}
	got := decodeBytes(t, code)
	bin := op.NewBinOp(op.Operand{Kind: op.Ret, U: 8}, op.Operand{Kind: op.Ref, U: 16})
	bin.Variant = op.VariantSecond
	bin.Offset = op.Operand{Kind: op.Val, U: 5}
	want := op.Op{Code: op.Div, Type: optype.U32, Bin: bin}
	assert(t, got == want, "got %+v want %+v", got, want)
}

func TestDecodeBinBothOffset(t *testing.T) {
	code := []byte{byte(op.Mod), 0b1100_0100, 0b1010_0000, 8, 0b1100_0000, 16, 0b1011_0000, 5}
	got := decodeBytes(t, code)
	bin := op.NewBinOp(op.Operand{Kind: op.Ret, U: 8}, op.Operand{Kind: op.Ref, U: 16})
	bin.Variant = op.VariantBoth
	bin.Offset = op.Operand{Kind: op.Val, U: 5}
	want := op.Op{Code: op.Mod, Type: optype.U32, Bin: bin}
	assert(t, got == want, "got %+v want %+v", got, want)
}

func TestDecodeCnv(t *testing.T) {
	code := []byte{byte(op.Cnv), 0b0010_0000, 12, 9}
	got := decodeBytes(t, code)
	want := op.Op{
		Code: op.Cnv, Type: optype.U8, Type2: optype.U16,
		A: op.Operand{Kind: op.Loc, U: 12}, B: op.Operand{Kind: op.Loc, U: 9},
	}
	assert(t, got == want, "got %+v want %+v", got, want)
}

func TestDecodeShl(t *testing.T) {
	code := []byte{byte(op.Shl), 0b0000_0100, 12, 9}
	got := decodeBytes(t, code)
	want := op.Op{Code: op.Shl, Type: optype.U32,
		A: op.Operand{Kind: op.Loc, U: 12}, B: op.Operand{Kind: op.Loc, U: 9}}
	assert(t, got == want, "got %+v want %+v", got, want)
}

func TestDecodeIfeFirstOffset(t *testing.T) {
	code := []byte{byte(op.Ife), 0b0100_0010, 12, 0b1100_0000, 8, 0b1100_0000, 4}
	got := decodeBytes(t, code)
	bin := op.NewBinOp(op.Operand{Kind: op.Loc, U: 12}, op.Operand{Kind: op.Ref, U: 8})
	bin.Variant = op.VariantFirst
	bin.Offset = op.Operand{Kind: op.Ref, U: 4}
	want := op.Op{Code: op.Ife, Type: optype.U16, Bin: bin}
	assert(t, got == want, "got %+v want %+v", got, want)
}

func TestDecodeApp(t *testing.T) {
	code := []byte{byte(op.App), 0b1100_0000, 8}
	got := decodeBytes(t, code)
	want := op.Op{Code: op.App, A: op.Operand{Kind: op.Ref, U: 8}}
	assert(t, got == want, "got %+v want %+v", got, want)
}

func TestDecodeIn(t *testing.T) {
	code := []byte{byte(op.In), 0b1100_0000, 0, 2, 1}
	got := decodeBytes(t, code)
	bin := op.NewBinOp(op.Operand{Kind: op.Loc, U: 0}, op.Operand{Kind: op.Loc, U: 2})
	bin.Variant = op.VariantBoth
	bin.Offset = op.Operand{Kind: op.Loc, U: 1}
	want := op.Op{Code: op.In, Bin: bin}
	assert(t, got == want, "got %+v want %+v", got, want)
}

func TestDecodeOut(t *testing.T) {
	code := []byte{byte(op.Out), 0b0100_0000, 0, 1}
	got := decodeBytes(t, code)
	un := op.NewUnOp(op.Operand{Kind: op.Loc, U: 0})
	un.Variant = op.VariantFirst
	un.Offset = op.Operand{Kind: op.Loc, U: 1}
	want := op.Op{Code: op.Out, Un: un}
	assert(t, got == want, "got %+v want %+v", got, want)
}

func TestDecodeFls(t *testing.T) {
	got := decodeBytes(t, []byte{byte(op.Fls)})
	assert(t, got == op.Op{Code: op.Fls}, "got %+v", got)
}

func TestDecodeCpy(t *testing.T) {
	code := []byte{byte(op.Cpy), 0, 1, 0b1011_0000, 12}
	got := decodeBytes(t, code)
	want := op.Op{Code: op.Cpy,
		A: op.Operand{Kind: op.Loc, U: 0},
		B: op.Operand{Kind: op.Loc, U: 1},
		C: op.Operand{Kind: op.Val, U: 12},
	}
	assert(t, got == want, "got %+v want %+v", got, want)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	bin := op.NewBinOp(op.Operand{Kind: op.Ret, U: 200}, op.Operand{Kind: op.Ref, U: 16})
	bin.Variant = op.VariantBoth
	bin.Offset = op.Operand{Kind: op.Val, U: 70000}

	ops := []op.Op{
		{Code: op.Nop},
		{Code: op.Fls},
		{Code: op.End, A: op.Operand{Kind: op.Loc, U: 3}},
		{Code: op.Mod, Type: optype.U32, Bin: bin},
		{Code: op.Cnv, Type: optype.F32, Type2: optype.I64,
			A: op.Operand{Kind: op.Glb, U: 4096}, B: op.Operand{Kind: op.Loc, U: 12}},
		{Code: op.Shr, Type: optype.Iw,
			A: op.Operand{Kind: op.Loc, U: 12}, B: op.Operand{Kind: op.Val, U: 3}},
		{Code: op.Cmp,
			A: op.Operand{Kind: op.Loc, U: 0}, B: op.Operand{Kind: op.Loc, U: 4}, C: op.Operand{Kind: op.Val, U: 8}},
	}

	for _, want := range ops {
		var buf bytes.Buffer
		assert(t, Encode(&buf, want) == nil, "encode should succeed for %+v", want)
		got, err := Decode(&buf)
		assert(t, err == nil, "decode of freshly encoded op should succeed, got %v", err)
		assert(t, got == want, "round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestDecodeProgramStopsCleanlyAtEnd(t *testing.T) {
	var buf bytes.Buffer
	_ = Encode(&buf, op.Op{Code: op.Nop})
	_ = Encode(&buf, op.Op{Code: op.Fls})

	ops, err := DecodeProgram(&buf)
	assert(t, err == nil, "decoding a well-formed program should not error, got %v", err)
	assert(t, len(ops) == 2 && ops[0].Code == op.Nop && ops[1].Code == op.Fls,
		"expected [Nop, Fls], got %+v", ops)
}
