// Package files implements the executor's file-descriptor registry: a set
// of byte-stream handles, a "current handle" selector, and single-byte
// read/write/flush operations.
//
// Grounded on the teacher's HardwareDevice abstraction (vm/devices.go) -
// GetInfo/TrySend/Reset/Close becomes Open/Close/Read/Write/Flush here -
// but trimmed to a synchronous registry: the spec is explicitly
// single-threaded (§5), so there is no goroutine, response bus, or
// non-blocking channel the way the teacher's consoleIO device needs for
// its async stdin reader.
package files

import (
	"bufio"
	"fmt"
	"io"

	"rtvm/optype"
)

// Error reports a bad handle or a failed read/write/flush.
type Error struct {
	Op     string
	Handle optype.Word
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("files error: %s on handle %d: %v", e.Op, e.Handle, e.Err)
	}
	return fmt.Sprintf("files error: %s on handle %d", e.Op, e.Handle)
}

func (e *Error) Unwrap() error { return e.Err }

// Stream is a single opened byte-stream backing one handle.
type Stream struct {
	r *bufio.Reader
	w *bufio.Writer
}

// NewStream wraps an io.Reader/io.Writer pair (either may be nil) as one
// registry handle.
func NewStream(r io.Reader, w io.Writer) *Stream {
	s := &Stream{}
	if r != nil {
		s.r = bufio.NewReader(r)
	}
	if w != nil {
		s.w = bufio.NewWriter(w)
	}
	return s
}

// Registry is the executor's file-descriptor table: open streams indexed
// by handle, plus a "current" handle that In/Out/Fls act upon.
type Registry struct {
	streams map[optype.Word]*Stream
	next    optype.Word
	current optype.Word
}

// NewRegistry returns an empty registry with handle 0 reserved (Sfd/Gfd
// never produce or accept handle 0 as a valid, opened stream).
func NewRegistry() *Registry {
	return &Registry{streams: make(map[optype.Word]*Stream), next: 1}
}

// Open registers stream and returns its newly assigned handle.
func (r *Registry) Open(stream *Stream) optype.Word {
	h := r.next
	r.next++
	r.streams[h] = stream
	return h
}

// Close removes handle from the registry and returns the stream that was
// backing it, flushing any buffered writes first.
func (r *Registry) Close(handle optype.Word) (*Stream, error) {
	s, ok := r.streams[handle]
	if !ok {
		return nil, &Error{Op: "close", Handle: handle}
	}
	if s.w != nil {
		if err := s.w.Flush(); err != nil {
			return nil, &Error{Op: "close", Handle: handle, Err: err}
		}
	}
	delete(r.streams, handle)
	if r.current == handle {
		r.current = 0
	}
	return s, nil
}

// SetCurrent makes handle the target of subsequent Read/Write/Flush calls.
func (r *Registry) SetCurrent(handle optype.Word) error {
	if _, ok := r.streams[handle]; !ok {
		return &Error{Op: "set_current", Handle: handle}
	}
	r.current = handle
	return nil
}

// Current returns the active handle.
func (r *Registry) Current() optype.Word { return r.current }

func (r *Registry) currentStream() (*Stream, error) {
	s, ok := r.streams[r.current]
	if !ok {
		return nil, &Error{Op: "current", Handle: r.current}
	}
	return s, nil
}

// Read returns one byte from the current stream. ok is false on EOF.
func (r *Registry) Read() (b byte, ok bool, err error) {
	s, err := r.currentStream()
	if err != nil {
		return 0, false, err
	}
	if s.r == nil {
		return 0, false, &Error{Op: "read", Handle: r.current}
	}
	b, err = s.r.ReadByte()
	if err == io.EOF {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, &Error{Op: "read", Handle: r.current, Err: err}
	}
	return b, true, nil
}

// Write appends one byte to the current stream.
func (r *Registry) Write(b byte) error {
	s, err := r.currentStream()
	if err != nil {
		return err
	}
	if s.w == nil {
		return &Error{Op: "write", Handle: r.current}
	}
	if err := s.w.WriteByte(b); err != nil {
		return &Error{Op: "write", Handle: r.current, Err: err}
	}
	return nil
}

// Flush pushes any buffered writes on the current stream to its sink.
func (r *Registry) Flush() error {
	s, err := r.currentStream()
	if err != nil {
		return err
	}
	if s.w == nil {
		return nil
	}
	if err := s.w.Flush(); err != nil {
		return &Error{Op: "flush", Handle: r.current, Err: err}
	}
	return nil
}
