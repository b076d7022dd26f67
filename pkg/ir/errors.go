package ir

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownOpcode is returned for opcode values or mnemonics outside the catalog.
	ErrUnknownOpcode = errors.New("ir: unknown opcode")

	// ErrArity is returned when an instruction is built with the wrong
	// number of operands for its opcode.
	ErrArity = errors.New("ir: operand count does not match opcode arity")

	// ErrRegisterSpace is returned when a function defines more registers
	// than a 16-bit operand can address.
	ErrRegisterSpace = errors.New("ir: register space exhausted")

	// ErrInternal marks compiler-internal IR defects found by the
	// validator, as opposed to errors in the user's source program.
	ErrInternal = errors.New("ir: internal compiler error")
)

// ArityError describes an arity mismatch at construction time.
type ArityError struct {
	Op  Opcode
	Got int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("ir: %s takes %d operands, got %d", e.Op, e.Op.Arity(), e.Got)
}

func (e *ArityError) Unwrap() error { return ErrArity }
