// Package asm implements a line-oriented assembler for the executor's
// instruction set: text source in, a slice of op.Function out (and, via
// encode.go, the §6 wire-format bytes the decoder package reads back).
//
// Grounded on the teacher's two-pass pipeline (vm/compile.go,
// vm/parse.go): strip comments and whitespace, turn labels into
// addresses, then parse each remaining line into an instruction. Unlike
// the teacher's fixed single-program-per-file model, this spec has
// multiple independently callable functions, so source is additionally
// split on `.func <frame_size>` / `.end` directive pairs - new ground,
// built in the teacher's own textual style.
package asm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"rtvm/op"
	"rtvm/optype"
)

// Error reports one malformed assembly line, tagged with its 1-based
// source line number so a driver can point a user at it directly.
type Error struct {
	Line int
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("asm: line %d: %v", e.Line, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

var commentPattern = regexp.MustCompile(`//.*`)

// rawLine is one preprocessed, comment-free instruction line still in
// source form, tagged with the line number it came from (for errors).
type rawLine struct {
	srcLine int
	text    string
}

// funcSource is one `.func`/`.end` block: its declared frame size, the
// instruction lines inside it, and the label -> op-index map resolved
// from those lines.
type funcSource struct {
	frameSize optype.Word
	lines     []rawLine
	labels    map[string]optype.Word
}

// Assemble parses src (one assembly-language program, possibly many
// functions) into the op.Function slice the executor consumes. Every
// malformed line is collected via multierr rather than stopping at the
// first, so a caller sees every problem in a file in one pass.
func Assemble(src string) ([]op.Function, error) {
	funcs, err := splitFunctions(src)
	if err != nil {
		return nil, err
	}

	result := make([]op.Function, len(funcs))
	var errs error
	for i, fs := range funcs {
		fn, ferrs := assembleFunction(fs)
		if ferrs != nil {
			errs = multierr.Append(errs, ferrs)
			continue
		}
		result[i] = fn
	}
	if errs != nil {
		return nil, errs
	}
	return result, nil
}

// splitFunctions preprocesses src line by line (stripping comments and
// blank lines) and groups the result into `.func <frame_size>` / `.end`
// blocks, resolving each block's labels to the op-index they name.
func splitFunctions(src string) ([]funcSource, error) {
	var funcs []funcSource
	var cur *funcSource
	var errs error

	for i, raw := range strings.Split(src, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(commentPattern.ReplaceAllString(raw, ""))
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, ".func"):
			if cur != nil {
				errs = multierr.Append(errs, &Error{Line: lineNo, Err: fmt.Errorf("nested .func (missing .end)")})
				continue
			}
			fields := strings.Fields(line)
			if len(fields) != 2 {
				errs = multierr.Append(errs, &Error{Line: lineNo, Err: fmt.Errorf(".func requires exactly one frame_size argument")})
				continue
			}
			n, err := strconv.ParseUint(fields[1], 0, 64)
			if err != nil {
				errs = multierr.Append(errs, &Error{Line: lineNo, Err: fmt.Errorf("bad frame_size: %w", err)})
				continue
			}
			cur = &funcSource{frameSize: optype.Word(n), labels: make(map[string]optype.Word)}

		case line == ".end":
			if cur == nil {
				errs = multierr.Append(errs, &Error{Line: lineNo, Err: fmt.Errorf(".end without a matching .func")})
				continue
			}
			funcs = append(funcs, *cur)
			cur = nil

		case strings.HasSuffix(line, ":"):
			if cur == nil {
				errs = multierr.Append(errs, &Error{Line: lineNo, Err: fmt.Errorf("label outside of a .func block")})
				continue
			}
			label := strings.TrimSuffix(line, ":")
			if strings.ContainsAny(label, " \t") {
				errs = multierr.Append(errs, &Error{Line: lineNo, Err: fmt.Errorf("invalid label %q", label)})
				continue
			}
			cur.labels[label] = optype.Word(len(cur.lines))

		default:
			if cur == nil {
				errs = multierr.Append(errs, &Error{Line: lineNo, Err: fmt.Errorf("instruction outside of a .func block")})
				continue
			}
			cur.lines = append(cur.lines, rawLine{srcLine: lineNo, text: line})
		}
	}
	if cur != nil {
		errs = multierr.Append(errs, &Error{Line: len(strings.Split(src, "\n")), Err: fmt.Errorf("unterminated .func (missing .end)")})
	}
	if errs != nil {
		return nil, errs
	}
	return funcs, nil
}

func assembleFunction(fs funcSource) (op.Function, error) {
	program := make([]op.Op, len(fs.lines))
	var errs error
	for i, rl := range fs.lines {
		o, err := parseLine(rl.text, fs.labels)
		if err != nil {
			errs = multierr.Append(errs, &Error{Line: rl.srcLine, Err: err})
			continue
		}
		program[i] = o
	}
	if errs != nil {
		return op.Function{}, errs
	}
	return op.Function{FrameSize: fs.frameSize, Program: program}, nil
}
