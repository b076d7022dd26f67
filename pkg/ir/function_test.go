package ir

import (
	"slices"
	"testing"
)

// buildAssertSum builds:
//
//	x = 1 + 1
//	assert x == 2
//	return x
func buildAssertSum() *Function {
	f := NewFunction(0, 0)
	one := f.Def(Intk(f.PushInt(1)))
	x := f.Def(Add(one, one))
	two := f.Def(Intk(f.PushInt(2)))
	eq := f.Def(Eq(x, two))
	f.Emit(Assert(eq))
	f.Emit(Ret(x))
	return f
}

func TestNewFunction(t *testing.T) {
	f := NewFunction(2, 1)
	if f.NumPosArgs != 2 || f.NumUpvalues != 1 {
		t.Errorf("counts = %d, %d; want 2, 1", f.NumPosArgs, f.NumUpvalues)
	}
	if f.Len() != 0 || len(f.IntkTable) != 0 || len(f.StrkTable) != 0 {
		t.Error("new function is not empty")
	}
	if f.RegisterBase() != 3 {
		t.Errorf("RegisterBase() = %d, want 3", f.RegisterBase())
	}
}

func TestNewFunctionNegativeCounts(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewFunction(-1, 0) did not panic")
		}
	}()
	NewFunction(-1, 0)
}

func TestAssertSumRoundTrip(t *testing.T) {
	f := buildAssertSum()

	want := []Opcode{INTK, ADD, INTK, EQ, ASSERT, RET}
	if got := f.Opcodes(); !slices.Equal(got, want) {
		t.Errorf("opcodes = %v, want %v", got, want)
	}
	if f.Len() != 6 {
		t.Errorf("Len() = %d, want 6", f.Len())
	}
	if !slices.Equal(f.IntkTable, []int32{1, 2}) {
		t.Errorf("IntkTable = %v, want [1 2]", f.IntkTable)
	}
	if len(f.StrkTable) != 0 {
		t.Errorf("StrkTable = %v, want empty", f.StrkTable)
	}
	if got := f.At(1).Args(); !slices.Equal(got, []uint16{0, 0}) {
		t.Errorf("add operands = %v, want [0 0]", got)
	}
	if got := f.At(3).Args(); !slices.Equal(got, []uint16{1, 2}) {
		t.Errorf("eq operands = %v, want [1 2]", got)
	}
	if err := Validate(f); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestFunctionConstants(t *testing.T) {
	f := NewFunction(0, 0)

	if idx := f.AddString("hello"); idx != 0 {
		t.Errorf("first string index = %d, want 0", idx)
	}
	if idx := f.AddString("world"); idx != 1 {
		t.Errorf("second string index = %d, want 1", idx)
	}
	if idx := f.AddString("hello"); idx != 0 {
		t.Errorf("duplicate string index = %d, want 0", idx)
	}
	if idx := f.PushString("hello"); idx != 2 {
		t.Errorf("pushed duplicate index = %d, want 2", idx)
	}

	if idx := f.AddInt(7); idx != 0 {
		t.Errorf("first int index = %d, want 0", idx)
	}
	if idx := f.AddInt(7); idx != 0 {
		t.Errorf("duplicate int index = %d, want 0", idx)
	}
	if idx := f.PushInt(-3); idx != 1 {
		t.Errorf("second int index = %d, want 1", idx)
	}
	if !slices.Equal(f.IntkTable, []int32{7, -3}) {
		t.Errorf("IntkTable = %v", f.IntkTable)
	}
}

func TestFunctionRegisters(t *testing.T) {
	f := NewFunction(2, 1)
	k := f.Def(Intk(f.PushInt(5)))
	if k != 3 {
		t.Errorf("first defined register = %d, want 3", k)
	}
	f.Emit(Assert(0))
	sum := f.Def(Add(k, 1))
	if sum != 5 {
		t.Errorf("register after assert = %d, want 5", sum)
	}

	tests := []struct {
		r    Reg
		src  RegisterSource
		want int
	}{
		{0, SourceArg, 0},
		{1, SourceArg, 1},
		{2, SourceUpvalue, 0},
		{3, SourceInstr, 0},
		{4, SourceInstr, 1},
		{5, SourceInstr, 2},
		{6, SourceNone, -1},
	}
	for _, tt := range tests {
		src, idx := f.DefinerOf(tt.r)
		if src != tt.src || idx != tt.want {
			t.Errorf("DefinerOf(%d) = %s, %d; want %s, %d", tt.r, src, idx, tt.src, tt.want)
		}
	}
}

func TestDefWithoutResultPanics(t *testing.T) {
	f := NewFunction(0, 0)
	defer func() {
		if recover() == nil {
			t.Error("Def(retv) did not panic")
		}
	}()
	f.Def(Retv())
}

func TestPatchTarget(t *testing.T) {
	f := NewFunction(1, 0)
	c := f.Def(Bool(0))
	jf := f.EmitBranch(Jf(c, 0))
	f.Emit(Retv())
	f.PatchHere(jf)
	f.Emit(Jtarg())
	f.Emit(Retv())

	if got, _ := f.At(jf).Target(); got != 3 {
		t.Errorf("patched target = %d, want 3", got)
	}
	if f.At(jf).Reg(0) != c {
		t.Errorf("patch clobbered the condition operand: %v", f.At(jf))
	}
	if err := Validate(f); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestEmitBranchRequiresTarget(t *testing.T) {
	f := NewFunction(0, 0)
	defer func() {
		if recover() == nil {
			t.Error("EmitBranch(add) did not panic")
		}
	}()
	f.EmitBranch(Add(0, 0))
}

func TestClone(t *testing.T) {
	f := buildAssertSum()
	f.PushString("s")
	g := f.Clone()

	g.IntkTable[0] = 100
	g.StrkTable[0] = "changed"
	g.Text[0] = Nop()

	if f.IntkTable[0] != 1 || f.StrkTable[0] != "s" || f.Text[0].Op() != INTK {
		t.Error("mutating the clone changed the original")
	}
}
