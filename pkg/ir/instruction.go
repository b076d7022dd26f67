package ir

import (
	"fmt"
	"strings"
)

// Reg is a virtual-register index local to a Function.
type Reg uint16

// MaxOperands is the largest arity of any opcode.
const MaxOperands = 3

// Instruction is one opcode plus its operands.
//
// The operand array has a fixed shape, but only the first Arity() slots
// are reachable through the accessors; the rest are always zero.
// The zero Instruction is a NOP.
type Instruction struct {
	op   Opcode
	args [MaxOperands]uint16
}

// New builds an instruction from an opcode and an operand list whose
// length must equal the opcode's arity. It is meant for producers that
// pick opcodes at run time, such as decoders; code that knows the opcode
// statically should use the per-opcode constructors instead.
func New(op Opcode, args ...uint16) (Instruction, error) {
	if !op.Valid() {
		return Instruction{}, fmt.Errorf("%w: 0x%02x", ErrUnknownOpcode, uint8(op))
	}
	if len(args) != op.Arity() {
		return Instruction{}, &ArityError{Op: op, Got: len(args)}
	}
	in := Instruction{op: op}
	copy(in.args[:], args)
	return in, nil
}

// MustNew is like New but panics on a construction contract violation.
func MustNew(op Opcode, args ...uint16) Instruction {
	in, err := New(op, args...)
	if err != nil {
		panic(err)
	}
	return in
}

// Op returns the instruction's opcode.
func (in Instruction) Op() Opcode { return in.op }

// Arity returns the number of operands the instruction carries.
func (in Instruction) Arity() int { return in.op.Arity() }

// Args returns a copy of the meaningful operands.
func (in Instruction) Args() []uint16 {
	n := in.op.Arity()
	out := make([]uint16, n)
	copy(out, in.args[:n])
	return out
}

// Arg returns operand i. Panics if i is not below the opcode's arity.
func (in Instruction) Arg(i int) uint16 {
	if i < 0 || i >= in.op.Arity() {
		panic(fmt.Sprintf("ir: %s has no operand %d", in.op, i))
	}
	return in.args[i]
}

// Reg returns operand i as a register index.
func (in Instruction) Reg(i int) Reg {
	return Reg(in.Arg(i))
}

// Target returns the branch-target position of a branch instruction.
// The second result is false if the opcode has no target operand.
func (in Instruction) Target() (int, bool) {
	for i, k := range in.op.Operands() {
		if k == KindTarget {
			return int(in.args[i]), true
		}
	}
	return 0, false
}

// withTarget returns a copy with the branch-target operand replaced.
func (in Instruction) withTarget(t uint16) (Instruction, bool) {
	for i, k := range in.op.Operands() {
		if k == KindTarget {
			in.args[i] = t
			return in, true
		}
	}
	return in, false
}

// String formats the instruction as "op a, b".
func (in Instruction) String() string {
	n := in.op.Arity()
	if n <= 0 {
		return in.op.String()
	}
	var sb strings.Builder
	sb.WriteString(in.op.String())
	for i := 0; i < n; i++ {
		if i == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%d", in.args[i])
	}
	return sb.String()
}

func inst0(op Opcode) Instruction { return Instruction{op: op} }

func inst1(op Opcode, a uint16) Instruction {
	return Instruction{op: op, args: [MaxOperands]uint16{a}}
}

func inst2(op Opcode, a, b uint16) Instruction {
	return Instruction{op: op, args: [MaxOperands]uint16{a, b}}
}

func inst3(op Opcode, a, b, c uint16) Instruction {
	return Instruction{op: op, args: [MaxOperands]uint16{a, b, c}}
}

func unary(op Opcode, a Reg) Instruction { return inst1(op, uint16(a)) }
func binary(op Opcode, a, b Reg) Instruction { return inst2(op, uint16(a), uint16(b)) }

// Per-opcode constructors. Each takes exactly the operands its opcode
// requires, so an arity mismatch cannot be expressed.

func Nop() Instruction { return inst0(NOP) }
func Phi(a, b Reg) Instruction { return binary(PHI, a, b) }
func Mov(a Reg) Instruction { return unary(MOV, a) }
func Cmov(c, a, b Reg) Instruction { return inst3(CMOV, uint16(c), uint16(a), uint16(b)) }
func Jtarg() Instruction { return inst0(JTARG) }
func Jloop() Instruction { return inst0(JLOOP) }
func Jump(target uint16) Instruction { return inst1(JUMP, target) }
func Jt(c Reg, target uint16) Instruction { return inst2(JT, uint16(c), target) }
func Jf(c Reg, target uint16) Instruction { return inst2(JF, uint16(c), target) }

// Jfor marks a loop header that advances iterator i over x; exit is the
// forward target taken once x is exhausted.
func Jfor(i, x Reg, exit uint16) Instruction {
	return inst3(JFOR, uint16(i), uint16(x), exit)
}

func Assert(c Reg) Instruction { return unary(ASSERT, c) }
func Atype(c Reg, tag uint16) Instruction { return inst2(ATYPE, uint16(c), tag) }

func Eq(a, b Reg) Instruction { return binary(EQ, a, b) }
func Neq(a, b Reg) Instruction { return binary(NEQ, a, b) }
func In(a, b Reg) Instruction { return binary(IN, a, b) }
func Nin(a, b Reg) Instruction { return binary(NIN, a, b) }
func Lt(a, b Reg) Instruction { return binary(LT, a, b) }
func Geq(a, b Reg) Instruction { return binary(GEQ, a, b) }
func Gt(a, b Reg) Instruction { return binary(GT, a, b) }
func Leq(a, b Reg) Instruction { return binary(LEQ, a, b) }

func And(a, b Reg) Instruction { return binary(AND, a, b) }
func Not2(a, b Reg) Instruction { return binary(NOT2, a, b) }
func Or(a, b Reg) Instruction { return binary(OR, a, b) }
func Xor(a, b Reg) Instruction { return binary(XOR, a, b) }
func Not(a Reg) Instruction { return unary(NOT, a) }
func Bool(a Reg) Instruction { return unary(BOOL, a) }

func Sarg() Instruction { return inst0(SARG) }
func Call(f, args Reg) Instruction { return binary(CALL, f, args) }
func Ret(a Reg) Instruction { return unary(RET, a) }
func Retv() Instruction { return inst0(RETV) }
func Tcall(f, args Reg) Instruction { return binary(TCALL, f, args) }

func Intk(index uint16) Instruction { return inst1(INTK, index) }
func Strk(index uint16) Instruction { return inst1(STRK, index) }
func Typek(tag uint16) Instruction { return inst1(TYPEK, tag) }

func Boolk(v bool) Instruction {
	if v {
		return inst1(BOOLK, 1)
	}
	return inst1(BOOLK, 0)
}

func Add(a, b Reg) Instruction { return binary(ADD, a, b) }
func Sub(a, b Reg) Instruction { return binary(SUB, a, b) }
func Mul(a, b Reg) Instruction { return binary(MUL, a, b) }
func Fdiv(a, b Reg) Instruction { return binary(FDIV, a, b) }
func Mod(a, b Reg) Instruction { return binary(MOD, a, b) }
func Pow(a, b Reg) Instruction { return binary(POW, a, b) }
func Div(a, b Reg) Instruction { return binary(DIV, a, b) }
func Min(a, b Reg) Instruction { return binary(MIN, a, b) }
func Max(a, b Reg) Instruction { return binary(MAX, a, b) }
func Neg(a Reg) Instruction { return unary(NEG, a) }
func Abs(a Reg) Instruction { return unary(ABS, a) }
func Floor(a Reg) Instruction { return unary(FLOOR, a) }
func Ceil(a Reg) Instruction { return unary(CEIL, a) }

func BitAnd(a, b Reg) Instruction { return binary(BITAND, a, b) }
func BitOr(a, b Reg) Instruction { return binary(BITOR, a, b) }
func BitXor(a, b Reg) Instruction { return binary(BITXOR, a, b) }
func BitAnot(a, b Reg) Instruction { return binary(BITANOT, a, b) }
func BitShr(a, b Reg) Instruction { return binary(BITSHR, a, b) }
func BitShl(a, b Reg) Instruction { return binary(BITSHL, a, b) }
func BitNot(a Reg) Instruction { return unary(BITNOT, a) }

func Cat(a, b Reg) Instruction { return binary(CAT, a, b) }
func Fmt(a, b Reg) Instruction { return binary(FMT, a, b) }

func Geti(a, i Reg) Instruction { return binary(GETI, a, i) }
func Seti(a, i, v Reg) Instruction { return inst3(SETI, uint16(a), uint16(i), uint16(v)) }
func Deli(a, i Reg) Instruction { return binary(DELI, a, i) }

func Len(a Reg) Instruction { return unary(LEN, a) }
