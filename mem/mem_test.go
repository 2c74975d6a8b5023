package mem

import (
	"fmt"
	"testing"

	"rtvm/optype"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

func TestExpandNarrowRoundTrip(t *testing.T) {
	m := New()
	assert(t, m.Len() == 0, "fresh memory should be empty")

	assert(t, m.Expand(16) == nil, "expand should succeed")
	assert(t, m.Len() == 16, "length should track expand")

	assert(t, m.Set(optype.I32, 0, optype.Word(uint32(42))) == nil, "set should succeed in bounds")
	v, err := m.Get(optype.I32, 0)
	assert(t, err == nil && int32(uint32(v)) == 42, "get should read back what was set")

	assert(t, m.Narrow(16) == nil, "narrow should succeed")
	assert(t, m.Len() == 0, "narrow should fully restore length")
}

func TestOutOfBoundsIsMemoryError(t *testing.T) {
	m := New()
	_, err := m.Get(optype.U8, 0)
	assert(t, err != nil, "reading past the end must fail")
	var memErr *Error
	assert(t, castErr(err, &memErr), "error must be *mem.Error")
}

func castErr(err error, target **Error) bool {
	e, ok := err.(*Error)
	if ok {
		*target = e
	}
	return ok
}

func TestZeroCopyCompare(t *testing.T) {
	m := New()
	_ = m.Expand(16)

	_ = m.Set(optype.U8, 0, 0xFF)
	_ = m.Set(optype.U8, 8, 0xFF)
	_ = m.Set(optype.U8, 15, 0xFF)
	assert(t, m.Zero(0, 16) == nil, "zero should succeed")

	v0, _ := m.Get(optype.U64, 0)
	v8, _ := m.Get(optype.U64, 8)
	assert(t, v0 == 0 && v8 == 0, "zero should clear the full requested range")

	_ = m.Set(optype.U32, 0, optype.Word(uint32(0x10EF)))
	assert(t, m.Copy(4, 0, 4) == nil, "copy should succeed")
	src, _ := m.Get(optype.U32, 0)
	dst, _ := m.Get(optype.U32, 4)
	assert(t, src == dst, "copy should duplicate the source region exactly")

	eq, err := m.Compare(0, 4, 4)
	assert(t, err == nil && eq, "compare should report equal regions as equal")

	_ = m.Set(optype.U8, 4, 0x00)
	neq, _ := m.Compare(0, 4, 4)
	assert(t, !neq, "compare should report unequal regions as unequal")
}
