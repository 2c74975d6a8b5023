package optype

import (
	"fmt"
	"math"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

func TestWrappingArithmetic(t *testing.T) {
	assert(t, Add(U8, 250, 10) == 4, "u8 add should wrap")
	assert(t, Sub(U8, 0, 1) == 255, "u8 sub should wrap")
	assert(t, Add(I8, Word(uint8(127)), 1) == Word(uint8(128)), "i8 add should wrap into negative range")
	assert(t, Mul(U16, 60000, 2) == 54464, "u16 mul should wrap")
}

func TestDivModSigned(t *testing.T) {
	a := Word(uint32(int32(-7)))
	b := Word(uint32(int32(2)))
	q := Div(I32, a, b)
	assert(t, int32(uint32(q)) == -3, "signed division should truncate toward zero, got %d", int32(uint32(q)))

	r := Mod(I32, a, b)
	assert(t, int32(uint32(r)) == -1, "signed modulus should carry dividend's sign, got %d", int32(uint32(r)))
}

func TestShiftWraps(t *testing.T) {
	assert(t, Shl(U8, 1, 8) == 1, "u8 shift left by 8 should wrap to a no-op shift")
	assert(t, Shr(I8, Word(uint8(0x80)), 1) == Word(uint8(0xC0)), "i8 arithmetic shift right should sign-extend")
}

func TestCompareNaNUnordered(t *testing.T) {
	nan := fromFloat(F32, math.NaN())
	_, ok := Cmp(F32, nan, nan)
	assert(t, !ok, "NaN compared against itself must be unordered")
}

func TestConvertRoundTrips(t *testing.T) {
	minusOne := int32(-1)
	w := Convert(I32, I8, Word(uint32(minusOne)))
	assert(t, int8(uint8(w)) == -1, "narrowing i32 -1 to i8 should preserve -1")

	minusFive := int32(-5)
	f := Convert(I32, F64, Word(uint32(minusFive)))
	assert(t, math.Float64frombits(f) == -5.0, "int->float should produce exact value for small magnitudes")

	back := Convert(F64, I32, f)
	assert(t, int32(uint32(back)) == -5, "float->int should invert exactly when in range")
}

func TestConvertSaturatesFloatToInt(t *testing.T) {
	huge := fromFloat(F64, 1e20)
	w := Convert(F64, I32, huge)
	assert(t, int32(uint32(w)) == math.MaxInt32, "overflowing float->int should saturate to the max representable value")
}

func TestSizes(t *testing.T) {
	assert(t, U8.Size() == 1 && U64.Size() == 8 && Uw.Size() == 8 && F32.Size() == 4, "unexpected kind sizes")
}
