package asm

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	"rtvm/op"
	"rtvm/optype"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestAssembleSimpleFunction(t *testing.T) {
	src := `
.func 8
	set u32 l0 v42
	add u32 l4 l0
	ret u32 l4
.end
`
	funcs, err := Assemble(src)
	assert(t, err == nil, "assemble: %v", err)
	assert(t, len(funcs) == 1, "expected 1 function, got %d", len(funcs))

	fn := funcs[0]
	assert(t, fn.FrameSize == 8, "expected frame size 8, got %d", fn.FrameSize)
	assert(t, len(fn.Program) == 3, "expected 3 ops, got %d", len(fn.Program))

	assert(t, fn.Program[0].Code == op.Set, "op0 code = %v", fn.Program[0].Code)
	assert(t, fn.Program[0].Type == optype.U32, "op0 type = %v", fn.Program[0].Type)
	assert(t, fn.Program[0].Bin.X == op.Operand{Kind: op.Loc, U: 0}, "op0.X = %v", fn.Program[0].Bin.X)
	assert(t, fn.Program[0].Bin.Y == op.Operand{Kind: op.Val, U: 42}, "op0.Y = %v", fn.Program[0].Bin.Y)

	assert(t, fn.Program[2].Code == op.Ret, "op2 code = %v", fn.Program[2].Code)
	assert(t, fn.Program[2].Un.X == op.Operand{Kind: op.Loc, U: 4}, "op2.X = %v", fn.Program[2].Un.X)
}

func TestAssembleLabels(t *testing.T) {
	src := `
.func 4
loop:
	ift u32 l0
	go vloop
	end v0
.end
`
	funcs, err := Assemble(src)
	assert(t, err == nil, "assemble: %v", err)
	fn := funcs[0]
	assert(t, len(fn.Program) == 3, "expected 3 ops, got %d", len(fn.Program))
	assert(t, fn.Program[1].Code == op.Go, "op1 code = %v", fn.Program[1].Code)
	assert(t, fn.Program[1].A == op.Operand{Kind: op.Val, U: 0}, "loop label resolved to %v, want op-index 0", fn.Program[1].A)
}

func TestAssembleOffsetVariant(t *testing.T) {
	src := `
.func 16
	add u32 l0@l8 l4
.end
`
	funcs, err := Assemble(src)
	assert(t, err == nil, "assemble: %v", err)
	bin := funcs[0].Program[0].Bin
	assert(t, bin.Variant == op.VariantFirst, "variant = %v, want First", bin.Variant)
	assert(t, bin.Offset == op.Operand{Kind: op.Loc, U: 8}, "offset = %v", bin.Offset)
}

func TestAssembleCnv(t *testing.T) {
	src := `
.func 8
	cnv u32 f32 l4 l0
.end
`
	funcs, err := Assemble(src)
	assert(t, err == nil, "assemble: %v", err)
	o := funcs[0].Program[0]
	assert(t, o.Code == op.Cnv, "code = %v", o.Code)
	assert(t, o.Type == optype.U32, "src type = %v", o.Type)
	assert(t, o.Type2 == optype.F32, "dst type = %v", o.Type2)
	assert(t, o.A == op.Operand{Kind: op.Loc, U: 4}, "dst operand = %v", o.A)
	assert(t, o.B == op.Operand{Kind: op.Loc, U: 0}, "src operand = %v", o.B)
}

func TestAssembleFloatLiteral(t *testing.T) {
	src := `
.func 4
	set f32 l0 v1.5
.end
`
	funcs, err := Assemble(src)
	assert(t, err == nil, "assemble: %v", err)
	y := funcs[0].Program[0].Bin.Y
	assert(t, y.Kind == op.Val, "kind = %v", y.Kind)
	assert(t, y.U == optype.FromFloat(optype.F32, 1.5), "value = %d", y.U)
}

func TestAssembleMultipleFunctions(t *testing.T) {
	src := `
.func 4
	ret u32 l0
.end
.func 8
	app v0
	par u32 l0
	clf v0
.end
`
	funcs, err := Assemble(src)
	assert(t, err == nil, "assemble: %v", err)
	assert(t, len(funcs) == 2, "expected 2 functions, got %d", len(funcs))
	assert(t, funcs[0].FrameSize == 4, "func0 frame = %d", funcs[0].FrameSize)
	assert(t, funcs[1].FrameSize == 8, "func1 frame = %d", funcs[1].FrameSize)
}

func TestAssembleErrorsAggregate(t *testing.T) {
	src := `
.func 4
	bogus l0
	set u99 l0 v1
.end
`
	_, err := Assemble(src)
	assert(t, err != nil, "expected error")
	msg := err.Error()
	assert(t, len(msg) > 0, "expected non-empty aggregated error message")
}

func TestAssembleUnterminatedFunc(t *testing.T) {
	src := `
.func 4
	nop
`
	_, err := Assemble(src)
	assert(t, err != nil, "expected error for missing .end")
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	src := `
.func 12
	par u32 l0
	par u32 l4
dividend_check:
	ine u32 l4 v0
	div u32 l8 l0
	mod u32 l8 l4
	ret u32 l8
.end
`
	funcs, err := Assemble(src)
	assert(t, err == nil, "assemble: %v", err)

	var buf bytes.Buffer
	assert(t, EncodeProgram(&buf, funcs) == nil, "encode failed")

	decoded, err := DecodeProgram(&buf)
	assert(t, err == nil, "decode: %v", err)
	assert(t, len(decoded) == len(funcs), "expected %d functions, got %d", len(funcs), len(decoded))
	assert(t, decoded[0].FrameSize == funcs[0].FrameSize, "frame size mismatch")
	assert(t, len(decoded[0].Program) == len(funcs[0].Program), "program length mismatch")
	for i := range funcs[0].Program {
		assert(t, fmt.Sprintf("%+v", decoded[0].Program[i]) == fmt.Sprintf("%+v", funcs[0].Program[i]),
			"op %d mismatch: got %+v, want %+v", i, decoded[0].Program[i], funcs[0].Program[i])
	}
}

func TestEncodeProgramSnapshot(t *testing.T) {
	src := `
.func 8
	set u32 l0 v1
	add u32 l4 l0
	ret u32 l4
.end
`
	funcs, err := Assemble(src)
	assert(t, err == nil, "assemble: %v", err)

	var buf bytes.Buffer
	assert(t, EncodeProgram(&buf, funcs) == nil, "encode failed")

	snaps.MatchSnapshot(t, hex.EncodeToString(buf.Bytes()))
}

func TestDecodeProgramBadMagic(t *testing.T) {
	_, err := DecodeProgram(bytes.NewReader([]byte("nope")))
	assert(t, err != nil, "expected error for bad magic")
}
