package files

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

func TestOpenWriteFlushReadBack(t *testing.T) {
	reg := NewRegistry()

	var out bytes.Buffer
	h := reg.Open(NewStream(nil, &out))
	assert(t, reg.SetCurrent(h) == nil, "set_current on a freshly opened handle should succeed")

	for _, b := range []byte("Hello!") {
		assert(t, reg.Write(b) == nil, "write should succeed")
	}
	assert(t, reg.Flush() == nil, "flush should succeed")
	assert(t, out.String() == "Hello!", "flushed output should match what was written, got %q", out.String())
}

func TestReadReturnsEOFFlag(t *testing.T) {
	reg := NewRegistry()
	h := reg.Open(NewStream(strings.NewReader("A"), nil))
	_ = reg.SetCurrent(h)

	b, ok, err := reg.Read()
	assert(t, err == nil && ok && b == 'A', "first read should return the byte")

	_, ok, err = reg.Read()
	assert(t, err == nil && !ok, "read past the end should report ok=false, not an error")
}

func TestUnknownHandleIsError(t *testing.T) {
	reg := NewRegistry()
	assert(t, reg.SetCurrent(99) != nil, "set_current on an unopened handle must fail")
}

func TestCloseRemovesHandle(t *testing.T) {
	reg := NewRegistry()
	var out bytes.Buffer
	h := reg.Open(NewStream(nil, &out))
	_, err := reg.Close(h)
	assert(t, err == nil, "closing an open handle should succeed")
	assert(t, reg.SetCurrent(h) != nil, "a closed handle must no longer be selectable")
}
