package ir

import (
	"fmt"
	"strings"
)

// Opcode identifies one instruction kind.
// The set is closed: adding a constant requires a matching entry in
// opcodeInfoTable and a case in Arity, or the catalog tests fail.
type Opcode uint8

const (
	// ========================================================================
	// Utilities
	// ========================================================================

	NOP  Opcode = iota // nop
	PHI                // phi a, b          merge a and b at a join
	MOV                // mov a             a
	CMOV               // cmov c, a, b      c ? a : b

	// ========================================================================
	// Branch targets
	// ========================================================================

	JTARG // jtarg             forward jump target
	JLOOP // jloop             reverse jump target
	JFOR  // jfor i, x, e      for i in x { ... } e:  (reverse jump target)

	// ========================================================================
	// Branching
	// ========================================================================

	JUMP // jump t            goto t
	JT   // jt c, t           if c goto t
	JF   // jf c, t           if !c goto t

	// ========================================================================
	// Assertions
	// ========================================================================

	ASSERT // assert c
	ATYPE  // atype c, t        c : t

	// ========================================================================
	// Predicates (result is always boolean)
	// ========================================================================

	EQ  // eq a, b           a == b
	NEQ // neq a, b          a != b
	IN  // in a, b           a in b
	NIN // nin a, b          a not in b
	LT  // lt a, b           a < b
	GEQ // geq a, b          a >= b
	GT  // gt a, b           a > b
	LEQ // leq a, b          a <= b

	// ========================================================================
	// Boolean operations (operands are converted to boolean)
	// ========================================================================

	AND  // and a, b          a and b
	NOT2 // not2 a, b         a and not b
	OR   // or a, b           a or b
	XOR  // xor a, b          a xor b
	NOT  // not a             not a
	BOOL // bool a            bool(a)

	// ========================================================================
	// Function calls
	// ========================================================================

	SARG  // sarg              start argument list
	CALL  // call f, a         f(a...)
	RET   // ret a             return a
	RETV  // retv              return (void)
	TCALL // tcall f, a        return f(a...)

	// ========================================================================
	// Constants
	// ========================================================================

	INTK  // intk i            load integer constant #i
	STRK  // strk i            load string constant #i
	BOOLK // boolk x           load false (x==0) or true (x==1)
	TYPEK // typek t           load type tag t

	// ========================================================================
	// Arithmetic
	// ========================================================================

	ADD   // add a, b          a + b
	SUB   // sub a, b          a - b
	MUL   // mul a, b          a * b
	FDIV  // fdiv a, b         a // b (floor division)
	MOD   // mod a, b          a % b
	POW   // pow a, b          a ** b
	DIV   // div a, b          a / b (true division)
	MIN   // min a, b
	MAX   // max a, b
	NEG   // neg a             -a
	ABS   // abs a
	FLOOR // floor a
	CEIL  // ceil a

	// ========================================================================
	// Bitwise
	// ========================================================================

	BITAND  // bitand a, b       a & b
	BITOR   // bitor a, b        a | b
	BITXOR  // bitxor a, b       a ^ b
	BITANOT // bitanot a, b      a &^ b
	BITSHR  // bitshr a, b       a >> b
	BITSHL  // bitshl a, b       a << b
	BITNOT  // bitnot a          ^a

	// ========================================================================
	// Strings
	// ========================================================================

	CAT // cat a, b          a .. b
	FMT // fmt a, b          a %% b

	// ========================================================================
	// Indexing
	// ========================================================================

	GETI // geti a, i         a[i]
	SETI // seti a, i, v      a[i] = v
	DELI // deli a, i         del a[i]

	// ========================================================================
	// Collections
	// ========================================================================

	LEN // len a             len(a)

	numOpcodes
)

// Family groups opcodes by semantic category.
type Family uint8

const (
	FamilyUtility Family = iota
	FamilyBranchTarget
	FamilyBranch
	FamilyAssertion
	FamilyPredicate
	FamilyBoolean
	FamilyCall
	FamilyConstant
	FamilyArithmetic
	FamilyBitwise
	FamilyString
	FamilyIndexing
	FamilyCollection
)

var familyNames = [...]string{
	FamilyUtility:      "utility",
	FamilyBranchTarget: "branch-target",
	FamilyBranch:       "branch",
	FamilyAssertion:    "assertion",
	FamilyPredicate:    "predicate",
	FamilyBoolean:      "boolean",
	FamilyCall:         "call",
	FamilyConstant:     "constant",
	FamilyArithmetic:   "arithmetic",
	FamilyBitwise:      "bitwise",
	FamilyString:       "string",
	FamilyIndexing:     "indexing",
	FamilyCollection:   "collection",
}

func (f Family) String() string {
	if int(f) < len(familyNames) {
		return familyNames[f]
	}
	return fmt.Sprintf("Family(%d)", f)
}

// OperandKind says how an operand slot is interpreted.
type OperandKind uint8

const (
	// KindReg is a virtual-register index.
	KindReg OperandKind = iota
	// KindIntK is an index into the function's integer constant pool.
	KindIntK
	// KindStrK is an index into the function's string constant pool.
	KindStrK
	// KindBool is an inline boolean literal (0 or 1).
	KindBool
	// KindType is an opaque type tag.
	KindType
	// KindTarget is the position of a branch-target marker.
	KindTarget
	// KindArgs is a register holding an argument list opened by SARG.
	KindArgs
)

func (k OperandKind) String() string {
	switch k {
	case KindReg:
		return "reg"
	case KindIntK:
		return "intk"
	case KindStrK:
		return "strk"
	case KindBool:
		return "bool"
	case KindType:
		return "type"
	case KindTarget:
		return "target"
	case KindArgs:
		return "args"
	default:
		return fmt.Sprintf("OperandKind(%d)", k)
	}
}

// IsRegister reports whether the operand refers to a virtual register.
func (k OperandKind) IsRegister() bool {
	return k == KindReg || k == KindArgs
}

// OpcodeInfo provides metadata about each opcode for printing and validation.
type OpcodeInfo struct {
	Name     string        // Assembly mnemonic
	Family   Family        // Semantic category
	Operands []OperandKind // One entry per operand slot
}

var (
	none    = []OperandKind{}
	reg1    = []OperandKind{KindReg}
	reg2    = []OperandKind{KindReg, KindReg}
	reg3    = []OperandKind{KindReg, KindReg, KindReg}
	condTgt = []OperandKind{KindReg, KindTarget}
	callOps = []OperandKind{KindReg, KindArgs}
)

// opcodeInfoTable is indexed by Opcode and must cover the whole catalog.
var opcodeInfoTable = [numOpcodes]OpcodeInfo{
	NOP:  {"nop", FamilyUtility, none},
	PHI:  {"phi", FamilyUtility, reg2},
	MOV:  {"mov", FamilyUtility, reg1},
	CMOV: {"cmov", FamilyUtility, reg3},

	JTARG: {"jtarg", FamilyBranchTarget, none},
	JLOOP: {"jloop", FamilyBranchTarget, none},
	JFOR:  {"jfor", FamilyBranchTarget, []OperandKind{KindReg, KindReg, KindTarget}},

	JUMP: {"jump", FamilyBranch, []OperandKind{KindTarget}},
	JT:   {"jt", FamilyBranch, condTgt},
	JF:   {"jf", FamilyBranch, condTgt},

	ASSERT: {"assert", FamilyAssertion, reg1},
	ATYPE:  {"atype", FamilyAssertion, []OperandKind{KindReg, KindType}},

	EQ:  {"eq", FamilyPredicate, reg2},
	NEQ: {"neq", FamilyPredicate, reg2},
	IN:  {"in", FamilyPredicate, reg2},
	NIN: {"nin", FamilyPredicate, reg2},
	LT:  {"lt", FamilyPredicate, reg2},
	GEQ: {"geq", FamilyPredicate, reg2},
	GT:  {"gt", FamilyPredicate, reg2},
	LEQ: {"leq", FamilyPredicate, reg2},

	AND:  {"and", FamilyBoolean, reg2},
	NOT2: {"not2", FamilyBoolean, reg2},
	OR:   {"or", FamilyBoolean, reg2},
	XOR:  {"xor", FamilyBoolean, reg2},
	NOT:  {"not", FamilyBoolean, reg1},
	BOOL: {"bool", FamilyBoolean, reg1},

	SARG:  {"sarg", FamilyCall, none},
	CALL:  {"call", FamilyCall, callOps},
	RET:   {"ret", FamilyCall, reg1},
	RETV:  {"retv", FamilyCall, none},
	TCALL: {"tcall", FamilyCall, callOps},

	INTK:  {"intk", FamilyConstant, []OperandKind{KindIntK}},
	STRK:  {"strk", FamilyConstant, []OperandKind{KindStrK}},
	BOOLK: {"boolk", FamilyConstant, []OperandKind{KindBool}},
	TYPEK: {"typek", FamilyConstant, []OperandKind{KindType}},

	ADD:   {"add", FamilyArithmetic, reg2},
	SUB:   {"sub", FamilyArithmetic, reg2},
	MUL:   {"mul", FamilyArithmetic, reg2},
	FDIV:  {"fdiv", FamilyArithmetic, reg2},
	MOD:   {"mod", FamilyArithmetic, reg2},
	POW:   {"pow", FamilyArithmetic, reg2},
	DIV:   {"div", FamilyArithmetic, reg2},
	MIN:   {"min", FamilyArithmetic, reg2},
	MAX:   {"max", FamilyArithmetic, reg2},
	NEG:   {"neg", FamilyArithmetic, reg1},
	ABS:   {"abs", FamilyArithmetic, reg1},
	FLOOR: {"floor", FamilyArithmetic, reg1},
	CEIL:  {"ceil", FamilyArithmetic, reg1},

	BITAND:  {"bitand", FamilyBitwise, reg2},
	BITOR:   {"bitor", FamilyBitwise, reg2},
	BITXOR:  {"bitxor", FamilyBitwise, reg2},
	BITANOT: {"bitanot", FamilyBitwise, reg2},
	BITSHR:  {"bitshr", FamilyBitwise, reg2},
	BITSHL:  {"bitshl", FamilyBitwise, reg2},
	BITNOT:  {"bitnot", FamilyBitwise, reg1},

	CAT: {"cat", FamilyString, reg2},
	FMT: {"fmt", FamilyString, reg2},

	GETI: {"geti", FamilyIndexing, reg2},
	SETI: {"seti", FamilyIndexing, reg3},
	DELI: {"deli", FamilyIndexing, reg2},

	LEN: {"len", FamilyCollection, reg1},
}

var opcodeByName = func() map[string]Opcode {
	m := make(map[string]Opcode, numOpcodes)
	for op := Opcode(0); op < numOpcodes; op++ {
		m[opcodeInfoTable[op].Name] = op
	}
	return m
}()

// Valid reports whether op is part of the catalog.
func (op Opcode) Valid() bool {
	return op < numOpcodes
}

// Info returns metadata for an opcode.
// Returns a zero OpcodeInfo with an "unknown" name if the opcode is not recognized.
func (op Opcode) Info() OpcodeInfo {
	if !op.Valid() {
		return OpcodeInfo{Name: fmt.Sprintf("unknown(0x%02x)", uint8(op))}
	}
	return opcodeInfoTable[op]
}

// String returns the assembly mnemonic of an opcode.
func (op Opcode) String() string {
	return op.Info().Name
}

// Family returns the semantic category of an opcode.
func (op Opcode) Family() Family {
	return op.Info().Family
}

// Operands returns the kind of each operand slot. The result has exactly
// Arity() entries and must not be modified.
func (op Opcode) Operands() []OperandKind {
	return op.Info().Operands
}

// ParseOpcode looks up an opcode by mnemonic, ignoring case.
func ParseOpcode(name string) (Opcode, error) {
	if op, ok := opcodeByName[strings.ToLower(name)]; ok {
		return op, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOpcode, name)
}

// AllOpcodes returns every opcode in declaration order.
func AllOpcodes() []Opcode {
	ops := make([]Opcode, numOpcodes)
	for i := range ops {
		ops[i] = Opcode(i)
	}
	return ops
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return int(numOpcodes)
}
