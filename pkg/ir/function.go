package ir

import (
	"fmt"
	"slices"
)

// maxPoolSize is the number of entries a 16-bit operand can index.
const maxPoolSize = 1 << 16

// Function is a compiled unit: argument and upvalue counts, two constant
// pools and a flat instruction stream.
//
// Registers [0, NumPosArgs) hold positional arguments and the next
// NumUpvalues registers hold upvalues. The instruction at position p
// defines register RegisterBase()+p when its opcode has a result.
//
// A front-end builds a Function by appending in program order and then
// hands it to the next stage; nothing in this package mutates a Function
// it did not build. Pool ranges, branch targets and def-before-use are
// checked by Validate, not by the builder.
type Function struct {
	NumPosArgs  int
	NumUpvalues int

	StrkTable []string
	IntkTable []int32
	Text      []Instruction
}

// NewFunction creates an empty function.
func NewFunction(numPosArgs, numUpvalues int) *Function {
	if numPosArgs < 0 || numUpvalues < 0 {
		panic(fmt.Sprintf("ir: negative argument counts (%d, %d)", numPosArgs, numUpvalues))
	}
	return &Function{
		NumPosArgs:  numPosArgs,
		NumUpvalues: numUpvalues,
		Text:        make([]Instruction, 0, 32),
	}
}

// PushInt appends an integer constant and returns its index.
// Panics if the pool is full.
func (f *Function) PushInt(v int32) uint16 {
	if len(f.IntkTable) >= maxPoolSize {
		panic("ir: integer constant pool full")
	}
	f.IntkTable = append(f.IntkTable, v)
	return uint16(len(f.IntkTable) - 1)
}

// PushString appends a string constant and returns its index.
// Panics if the pool is full.
func (f *Function) PushString(s string) uint16 {
	if len(f.StrkTable) >= maxPoolSize {
		panic("ir: string constant pool full")
	}
	f.StrkTable = append(f.StrkTable, s)
	return uint16(len(f.StrkTable) - 1)
}

// AddInt adds an integer constant to the pool and returns its index.
// If the constant already exists, returns the existing index.
func (f *Function) AddInt(v int32) uint16 {
	if i := slices.Index(f.IntkTable, v); i >= 0 {
		return uint16(i)
	}
	return f.PushInt(v)
}

// AddString adds a string constant to the pool and returns its index.
// If the constant already exists, returns the existing index.
func (f *Function) AddString(s string) uint16 {
	if i := slices.Index(f.StrkTable, s); i >= 0 {
		return uint16(i)
	}
	return f.PushString(s)
}

// Emit appends an instruction and returns its position.
func (f *Function) Emit(in Instruction) int {
	f.Text = append(f.Text, in)
	return len(f.Text) - 1
}

// Def appends a result-producing instruction and returns the register it
// defines. Panics if the opcode has no result or the register space is
// exhausted.
func (f *Function) Def(in Instruction) Reg {
	if !in.op.HasResult() {
		panic(fmt.Sprintf("ir: %s defines no register", in.op))
	}
	r, ok := f.RegisterAt(len(f.Text))
	if !ok {
		panic(ErrRegisterSpace)
	}
	f.Emit(in)
	return r
}

// EmitBranch appends a branch whose target is not known yet and returns
// its position for a later PatchTarget.
func (f *Function) EmitBranch(in Instruction) int {
	if _, ok := in.Target(); !ok {
		panic(fmt.Sprintf("ir: %s has no branch target", in.op))
	}
	return f.Emit(in)
}

// PatchTarget points the branch at position pos to the instruction at target.
func (f *Function) PatchTarget(pos, target int) {
	if target < 0 || target >= maxPoolSize {
		panic(fmt.Sprintf("ir: branch target %d out of operand range", target))
	}
	in, ok := f.Text[pos].withTarget(uint16(target))
	if !ok {
		panic(fmt.Sprintf("ir: %s at %d has no branch target", f.Text[pos].op, pos))
	}
	f.Text[pos] = in
}

// PatchHere points the branch at position pos to the next instruction
// to be emitted.
func (f *Function) PatchHere(pos int) {
	f.PatchTarget(pos, len(f.Text))
}

// Len returns the number of instructions.
func (f *Function) Len() int {
	return len(f.Text)
}

// At returns the instruction at position p.
// Panics if p is out of bounds.
func (f *Function) At(p int) Instruction {
	return f.Text[p]
}

// RegisterBase returns the first register defined by an instruction.
func (f *Function) RegisterBase() int {
	return f.NumPosArgs + f.NumUpvalues
}

// NumRegisters returns the size of the register space, counting
// positions whose instruction has no result.
func (f *Function) NumRegisters() int {
	return f.RegisterBase() + len(f.Text)
}

// RegisterAt returns the register defined by the instruction at position p.
// The second result is false if that register is not addressable.
func (f *Function) RegisterAt(p int) (Reg, bool) {
	r := f.RegisterBase() + p
	if p < 0 || r >= maxPoolSize {
		return 0, false
	}
	return Reg(r), true
}

// RegisterSource classifies what defines a register.
type RegisterSource uint8

const (
	// SourceNone means the register is outside the function's register space.
	SourceNone RegisterSource = iota
	// SourceArg is a positional argument.
	SourceArg
	// SourceUpvalue is a captured variable from an enclosing function.
	SourceUpvalue
	// SourceInstr is the result of an instruction.
	SourceInstr
)

// String returns a human-readable name for RegisterSource.
func (s RegisterSource) String() string {
	switch s {
	case SourceNone:
		return "none"
	case SourceArg:
		return "arg"
	case SourceUpvalue:
		return "upvalue"
	case SourceInstr:
		return "instr"
	default:
		return fmt.Sprintf("RegisterSource(%d)", s)
	}
}

// DefinerOf reports where register r comes from. For SourceInstr the
// second result is the defining position; for SourceArg and
// SourceUpvalue it is the argument or upvalue index.
func (f *Function) DefinerOf(r Reg) (RegisterSource, int) {
	i := int(r)
	switch {
	case i < f.NumPosArgs:
		return SourceArg, i
	case i < f.RegisterBase():
		return SourceUpvalue, i - f.NumPosArgs
	case i < f.NumRegisters():
		return SourceInstr, i - f.RegisterBase()
	default:
		return SourceNone, -1
	}
}

// Clone returns a deep copy, so that another stage can take ownership
// while the original stays untouched.
func (f *Function) Clone() *Function {
	return &Function{
		NumPosArgs:  f.NumPosArgs,
		NumUpvalues: f.NumUpvalues,
		StrkTable:   slices.Clone(f.StrkTable),
		IntkTable:   slices.Clone(f.IntkTable),
		Text:        slices.Clone(f.Text),
	}
}

// Opcodes returns the opcode of every instruction in program order.
func (f *Function) Opcodes() []Opcode {
	ops := make([]Opcode, len(f.Text))
	for i, in := range f.Text {
		ops[i] = in.op
	}
	return ops
}
