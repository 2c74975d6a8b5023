// Package executor implements the instruction executor: the
// single-threaded interpreter loop that resolves typed operands against
// a layered memory model, dispatches opcodes over twelve numeric types
// with well-defined wrapping and conversion semantics, manages a call
// stack with deferred call preparation, enforces a conditional-skip
// control model, and reports precise, categorized failures.
//
// Grounded on the teacher's VM struct and execNextInstruction dispatch
// loop (vm/vm.go, vm/exec.go): one flat switch over the opcode, with
// registers/pc/sp as the teacher's mutable state standing in for our
// functions/memory/call_stack/program_counter. The teacher's single-step
// contract (one ExecNextInstruction call = one instruction, errors stick
// in vm.errcode) is exactly this package's Execute() contract, widened
// from a fixed 32-bit ISA to the spec's 12-type operand model and
// explicit call stack.
package executor

import (
	"fmt"

	"rtvm/files"
	"rtvm/mem"
	"rtvm/op"
	"rtvm/optype"
)

// ErrorKind classifies an execution failure.
type ErrorKind uint8

const (
	EndOfProgram ErrorKind = iota
	MemoryError
	FilesError
	IncorrectOperation
	UnknownFunction
	DivisionByZero
	NullPointerDereference
	OperationOverflow
)

var errorKindNames = [...]string{
	"end of program",
	"memory error",
	"files error",
	"incorrect operation",
	"unknown function",
	"division by zero",
	"null pointer dereference",
	"operation overflow",
}

func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return "invalid error kind"
}

// Error reports why Execute failed. Op, when non-nil, is the operation
// that was being executed at the time of failure.
type Error struct {
	Kind ErrorKind
	Op   *op.Op
	ID   optype.Word // UnknownFunction's out-of-range id, when applicable
	Err  error        // wrapped mem.Error/files.Error, when applicable
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	switch e.Kind {
	case UnknownFunction:
		msg = fmt.Sprintf("%s: %d", msg, e.ID)
	}
	if e.Op != nil {
		msg = fmt.Sprintf("%s (op %s)", msg, e.Op.Code)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func errEndOfProgram() error { return &Error{Kind: EndOfProgram} }

func errIncorrect(o op.Op) error {
	cp := o
	return &Error{Kind: IncorrectOperation, Op: &cp}
}

func memErr(err error) error {
	return &Error{Kind: MemoryError, Err: err}
}

func filesErr(err error) error {
	return &Error{Kind: FilesError, Err: err}
}

// Status is the non-error outcome of one Execute call.
type Status uint8

const (
	// StatusOK means one opcode executed normally; the caller should
	// call Execute again to continue.
	StatusOK Status = iota
	// StatusEnd means the program reached an End op; Value holds its
	// operand's word value.
	StatusEnd
	// StatusSleep means the program reached a Slp op; Value holds its
	// operand's word value. PC is not advanced - a subsequent Execute
	// resumes at the same Slp instruction, so a driver that wants to
	// actually advance must itself skip it (e.g. by decoding the next
	// op and stepping PC), matching the "driver decides" contract of
	// §4.6.
	StatusSleep
)

// Result is Execute's success value.
type Result struct {
	Status Status
	Value  optype.Word
}

// call is one call-stack frame: the FunctionCall record of the spec.
type call struct {
	function          *op.Function
	basePtr           optype.Word
	retValPtr         optype.Word
	retProgramCounter optype.Word
}

// Executor is the instruction interpreter. The zero value is not usable;
// construct with New or NewWithLimits.
type Executor struct {
	functions []op.Function
	memory    *mem.Memory
	files     *files.Registry

	programCounter optype.Word
	callStack      []call
	preparedCall   bool
	parameterPtr   optype.Word
}

// New returns an executor over functions with unbounded stack/heap
// memory and an empty file registry.
func New(functions []op.Function) *Executor {
	return NewWithLimits(functions, 0, 0)
}

// NewWithLimits returns an executor whose memory refuses to grow past
// the larger of stackCap and heapCap bytes; when both are 0 it is
// unbounded. The global region shares the same Memory as the stack, so
// this one limit bounds both, since nothing in this spec's operand model
// ever narrows the global region independently of the stack.
func NewWithLimits(functions []op.Function, stackCap, heapCap optype.Word) *Executor {
	limit := stackCap
	if heapCap > limit {
		limit = heapCap
	}
	return &Executor{
		functions: functions,
		memory:    mem.NewWithLimit(limit),
		files:     files.NewRegistry(),
	}
}

// Files exposes the executor's file registry so a driver can Open/Close
// streams before or between Execute calls.
func (e *Executor) Files() *files.Registry { return e.files }

// Memory exposes the executor's backing memory, primarily so a driver
// can seed global state or inspect results after termination.
func (e *Executor) Memory() *mem.Memory { return e.memory }

// ProgramCounter returns the current call's next instruction index, for
// a driver that wants to display state or implement breakpoints between
// Execute calls.
func (e *Executor) ProgramCounter() optype.Word { return e.programCounter }

// CallDepth returns the number of active call-stack frames, 0 once the
// outermost call has returned.
func (e *Executor) CallDepth() int { return len(e.callStack) }

// current returns the FunctionCall that operand resolution should use:
// the second-from-top frame during parameter marshalling, the top frame
// otherwise (§4.7).
func (e *Executor) current() (*call, error) {
	n := len(e.callStack)
	if e.preparedCall {
		if n < 2 {
			return nil, errEndOfProgram()
		}
		return &e.callStack[n-2], nil
	}
	if n < 1 {
		return nil, errEndOfProgram()
	}
	return &e.callStack[n-1], nil
}

func (e *Executor) top() (*call, error) {
	if len(e.callStack) == 0 {
		return nil, errEndOfProgram()
	}
	return &e.callStack[len(e.callStack)-1], nil
}

// Call composes App then Clf to bootstrap an entry call: it pushes
// functionID's frame and activates it with retValPtr as the (unused,
// since nothing above this call will ever read it) return slot.
func (e *Executor) Call(functionID optype.Word, retValPtr optype.Word) error {
	if err := e.doApp(functionID); err != nil {
		return err
	}
	return e.doClf(retValPtr)
}
