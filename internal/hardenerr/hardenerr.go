// Package hardenerr defines the µTX hardener's error taxonomy (spec §7):
// MalformedIR, MissingFunction, and BuilderFailure. All three are surfaced
// to the pass caller as a single typed value; the pass never recovers
// locally and a partially-mutated module is the caller's to discard.
package hardenerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies which member of the spec §7 taxonomy an Error belongs to.
type Kind string

const (
	// MalformedIR covers operand type mismatches, missing alignment,
	// unexpected opcodes where one was required, and unparseable phi text.
	MalformedIR Kind = "malformed_ir"
	// MissingFunction means the named function does not exist in the module.
	MissingFunction Kind = "missing_function"
	// BuilderFailure means the underlying IR builder rejected an emitted
	// instruction (e.g. a type mismatch assembling an OR).
	BuilderFailure Kind = "builder_failure"
)

// Error codes, mirroring the H0xxx range convention of the teacher's
// internal/errors/codes.go E0xxx ranges.
const (
	CodeBadOperand      = "H0001" // operand is not the expected kind
	CodeBadAlignment    = "H0002" // missing or unreadable access width
	CodeBadOpcode       = "H0003" // instruction is not the opcode required
	CodeUnparseablePhi  = "H0004" // phi text didn't match either known pattern
	CodeMissingFunc     = "H0100" // named function absent from module
	CodeBuilderRejected = "H0200" // IR builder refused an emitted instruction
)

// Error is the single typed error value the hardener surfaces to callers.
type Error struct {
	Kind Kind
	Code string

	// Context, populated where available; any may be empty.
	Function    string
	Block       string
	Instruction string

	msg   string
	cause error
}

func (e *Error) Error() string {
	loc := e.Function
	if e.Block != "" {
		loc = fmt.Sprintf("%s/%s", loc, e.Block)
	}
	if loc == "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.msg)
	}
	return fmt.Sprintf("[%s] in %s: %s", e.Code, loc, e.msg)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// Message returns the human-readable message without the code/location
// prefix Error() adds.
func (e *Error) Message() string { return e.msg }

// New builds a bare Error of the given kind.
func New(kind Kind, code, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a causal error (via github.com/pkg/errors) to a new Error.
func Wrap(cause error, kind Kind, code, format string, args ...interface{}) *Error {
	return &Error{
		Kind:  kind,
		Code:  code,
		msg:   fmt.Sprintf(format, args...),
		cause: errors.Wrap(cause, fmt.Sprintf(format, args...)),
	}
}

// WithContext returns a copy of e annotated with function/block/instruction
// location, for callers that discover context after the error is raised.
func (e *Error) WithContext(function, block, instruction string) *Error {
	cp := *e
	cp.Function = function
	cp.Block = block
	cp.Instruction = instruction
	return &cp
}

// MalformedIRf is a convenience constructor for the most common taxonomy
// member.
func MalformedIRf(code, format string, args ...interface{}) *Error {
	return New(MalformedIR, code, format, args...)
}

// MissingFunctionf reports that a named function was not found.
func MissingFunctionf(name string) *Error {
	return New(MissingFunction, CodeMissingFunc, "function %q not found in module", name)
}

// BuilderFailuref reports that the IR builder rejected an emitted
// instruction.
func BuilderFailuref(format string, args ...interface{}) *Error {
	return New(BuilderFailure, CodeBuilderRejected, format, args...)
}
