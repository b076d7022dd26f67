package ir

// Arity returns the number of operands an opcode takes, or -1 for values
// outside the catalog. This switch is the only place arity is defined.
func (op Opcode) Arity() int {
	switch op {
	case NOP, JTARG, JLOOP, SARG, RETV:
		return 0
	case MOV, JUMP, ASSERT, NOT, BOOL, RET,
		INTK, STRK, BOOLK, TYPEK,
		NEG, ABS, FLOOR, CEIL, BITNOT, LEN:
		return 1
	case CMOV, JFOR, SETI:
		return 3
	default:
		if !op.Valid() {
			return -1
		}
		return 2
	}
}

// Arity is the function form of Opcode.Arity.
func Arity(op Opcode) int {
	return op.Arity()
}

// HasResult reports whether the instruction defines a virtual register
// that later instructions may read.
//
// CALL yields the callee's return value. TCALL never returns to this
// function, and ATYPE is treated as an assertion, so neither has a result.
func (op Opcode) HasResult() bool {
	switch op {
	case NOP, JTARG, JLOOP, JFOR,
		JUMP, JT, JF,
		ASSERT, ATYPE,
		RET, RETV, TCALL,
		SETI, DELI:
		return false
	}
	return op.Valid()
}

// IsMutator reports whether the instruction has an observable effect
// beyond defining its register.
func (op Opcode) IsMutator() bool {
	switch op {
	case SETI, DELI, ASSERT, ATYPE, CALL, TCALL, RET, RETV:
		return true
	}
	return false
}

// IsCondBranch reports whether op may or may not transfer control.
func (op Opcode) IsCondBranch() bool {
	return op == JT || op == JF || op == JFOR
}

// IsUncondBranch reports whether op always transfers control.
func (op Opcode) IsUncondBranch() bool {
	return op == JUMP
}

// IsBranch reports whether op carries a branch-target operand.
func (op Opcode) IsBranch() bool {
	return op.IsCondBranch() || op.IsUncondBranch()
}

// IsBranchTarget reports whether op is a jump destination marker.
func (op Opcode) IsBranchTarget() bool {
	return op == JTARG || op == JLOOP || op == JFOR
}

// IsForwardTarget reports whether op may only be reached by forward branches.
func (op Opcode) IsForwardTarget() bool {
	return op == JTARG
}

// IsReverseTarget reports whether op may only be reached by back-edges.
func (op Opcode) IsReverseTarget() bool {
	return op == JLOOP || op == JFOR
}

// IsTerminator reports whether control never falls through to the next
// instruction.
func (op Opcode) IsTerminator() bool {
	switch op {
	case JUMP, RET, RETV, TCALL:
		return true
	}
	return false
}
