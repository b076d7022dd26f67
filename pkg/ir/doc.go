// Package ir defines the intermediate representation handed from the Scrap
// front-end to later compiler stages.
//
// A Function body is a linear sequence of fixed-arity instructions over
// virtual registers, in the style of three-address code:
//
//	0000  r0 =    intk #0  ; 1
//	0001  r1 =    add r0, r0
//	0002  r2 =    intk #1  ; 2
//	0003  r3 =    eq r1, r2
//	0004          assert r3
//	0005          ret r1
//
// # Opcodes
//
// The opcode catalog is closed. Each opcode has a fixed arity (0 to 3),
// reported by Opcode.Arity, and a set of classifiers (HasResult,
// IsMutator, IsCondBranch, IsUncondBranch, IsBranchTarget, IsTerminator)
// that later stages use instead of switching on opcodes themselves.
//
// # Instructions
//
// Instructions are built with one constructor per opcode (Add, Intk,
// Seti, ...), each taking exactly the operands its opcode needs. New
// builds an instruction from a run-time opcode and reports an arity
// mismatch as an error; MustNew panics instead. Only the first Arity()
// operand slots are ever visible.
//
// # Registers
//
// Registers [0, NumPosArgs) are the positional arguments, the next
// NumUpvalues registers are upvalues, and the instruction at position p
// defines register NumPosArgs+NumUpvalues+p if its opcode has a result.
// Constant-loading opcodes (INTK, STRK) index the function's pools, and
// branches name the position of a JTARG, JLOOP or JFOR marker.
//
// # Validation
//
// Function does not check constant indices, branch targets or
// def-before-use. Validate does, reporting every finding as an Issue
// wrapping ErrInternal, which separates IR defects from errors in the
// user's program.
package ir
