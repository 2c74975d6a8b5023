package asm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"rtvm/decoder"
	"rtvm/op"
)

// magic identifies an assembled program file. version lets a future
// format change be rejected cleanly instead of misparsed.
var magic = [4]byte{'R', 'T', 'V', 'M'}

const formatVersion uint32 = 1

// EncodeProgram writes funcs as a self-contained container: a fixed
// header (magic, version, function count), then one [frame_size,
// byte_length] pair per function, then each function's §6 wire-format
// instruction stream back to back. The length-prefixed layout lets
// DecodeProgram read each function's stream without scanning for a
// terminator, since Opcodes alone don't self-delimit a stream boundary
// the way a single Function's Program slice does in memory.
func EncodeProgram(w io.Writer, funcs []op.Function) error {
	bodies := make([][]byte, len(funcs))
	for i, fn := range funcs {
		var buf bytes.Buffer
		for _, o := range fn.Program {
			if err := decoder.Encode(&buf, o); err != nil {
				return fmt.Errorf("asm: encoding function %d: %w", i, err)
			}
		}
		bodies[i] = buf.Bytes()
	}

	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, formatVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(funcs))); err != nil {
		return err
	}
	for i, fn := range funcs {
		if err := binary.Write(w, binary.LittleEndian, uint32(fn.FrameSize)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(bodies[i]))); err != nil {
			return err
		}
	}
	for _, body := range bodies {
		if _, err := w.Write(body); err != nil {
			return err
		}
	}
	return nil
}

// DecodeProgram reads back a container written by EncodeProgram.
func DecodeProgram(r io.Reader) ([]op.Function, error) {
	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return nil, fmt.Errorf("asm: reading magic: %w", err)
	}
	if gotMagic != magic {
		return nil, fmt.Errorf("asm: not an assembled program file (bad magic %q)", gotMagic[:])
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("asm: reading version: %w", err)
	}
	if version != formatVersion {
		return nil, fmt.Errorf("asm: unsupported format version %d (want %d)", version, formatVersion)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("asm: reading function count: %w", err)
	}

	type header struct {
		frameSize uint32
		length    uint32
	}
	headers := make([]header, count)
	for i := range headers {
		if err := binary.Read(r, binary.LittleEndian, &headers[i].frameSize); err != nil {
			return nil, fmt.Errorf("asm: reading function %d header: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &headers[i].length); err != nil {
			return nil, fmt.Errorf("asm: reading function %d header: %w", i, err)
		}
	}

	funcs := make([]op.Function, count)
	for i, h := range headers {
		body := io.LimitReader(r, int64(h.length))
		program, err := decoder.DecodeProgram(body)
		if err != nil {
			return nil, fmt.Errorf("asm: decoding function %d: %w", i, err)
		}
		funcs[i] = op.Function{FrameSize: uint64(h.frameSize), Program: program}
	}
	return funcs, nil
}
