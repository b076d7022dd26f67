package ir

import (
	"fmt"
	"strings"
)

// IssueKind classifies a validation finding.
type IssueKind uint8

const (
	IssueConstant     IssueKind = iota // constant-pool index out of range
	IssueLiteral                       // inline literal out of range
	IssueTarget                        // bad branch target
	IssueRegister                      // register does not name a value
	IssueUseBeforeDef                  // register not defined on every path
	IssueFallthrough                   // control reaches the end of the text
	IssueRegisterSpace                 // more registers than operands can address
)

func (k IssueKind) String() string {
	switch k {
	case IssueConstant:
		return "constant"
	case IssueLiteral:
		return "literal"
	case IssueTarget:
		return "target"
	case IssueRegister:
		return "register"
	case IssueUseBeforeDef:
		return "use-before-def"
	case IssueFallthrough:
		return "fallthrough"
	case IssueRegisterSpace:
		return "register-space"
	default:
		return fmt.Sprintf("IssueKind(%d)", k)
	}
}

// Issue is one invariant violation found by Validate.
type Issue struct {
	Kind IssueKind
	Pos  int // instruction position, -1 for function-level issues
	Op   Opcode
	Slot int // operand slot, -1 if the issue concerns the whole instruction
	Msg  string
}

func (i *Issue) Error() string {
	switch {
	case i.Pos < 0:
		return fmt.Sprintf("ir: %s", i.Msg)
	case i.Slot < 0:
		return fmt.Sprintf("ir: %04d %s: %s", i.Pos, i.Op, i.Msg)
	default:
		return fmt.Sprintf("ir: %04d %s: operand %d: %s", i.Pos, i.Op, i.Slot, i.Msg)
	}
}

// Unwrap marks every issue as an internal compiler error.
func (i *Issue) Unwrap() error { return ErrInternal }

// ValidationError aggregates the issues found in one Function.
type ValidationError struct {
	Issues []*Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return e.Issues[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "ir: %d issues:", len(e.Issues))
	for _, i := range e.Issues {
		sb.WriteString("\n\t")
		sb.WriteString(i.Error())
	}
	return sb.String()
}

func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Issues))
	for i, is := range e.Issues {
		errs[i] = is
	}
	return errs
}

// Has reports whether any issue has the given kind.
func (e *ValidationError) Has(kind IssueKind) bool {
	for _, i := range e.Issues {
		if i.Kind == kind {
			return true
		}
	}
	return false
}

type options struct {
	dataflow         bool
	allowFallthrough bool
}

// Option adjusts what Validate checks.
type Option func(*options)

// WithoutDataflow skips the path-sensitive def-before-use check. Uses
// other than PHI operands are still required to follow their definition
// in program order.
func WithoutDataflow() Option {
	return func(o *options) { o.dataflow = false }
}

// AllowFallthrough accepts functions whose last instruction is not a
// terminator.
func AllowFallthrough() Option {
	return func(o *options) { o.allowFallthrough = true }
}

type validator struct {
	f      *Function
	opts   options
	issues []*Issue
	// bad marks (position, slot) pairs already reported, so the dataflow
	// pass does not pile on.
	bad map[[2]int]bool
}

// Validate checks the invariants the builder does not enforce: constant
// indices, branch targets and def-before-use on every control-flow path.
// It returns nil or a *ValidationError whose issues all wrap ErrInternal.
func Validate(f *Function, opts ...Option) error {
	v := &validator{
		f:    f,
		opts: options{dataflow: true},
		bad:  make(map[[2]int]bool),
	}
	for _, o := range opts {
		o(&v.opts)
	}

	if f.NumRegisters() > maxPoolSize {
		v.report(IssueRegisterSpace, -1, NOP, -1, "%d registers exceed the 16-bit operand range", f.NumRegisters())
	}
	for p, in := range f.Text {
		v.checkInstruction(p, in)
	}
	if !v.opts.allowFallthrough {
		v.checkEnd()
	}
	if v.opts.dataflow && len(f.Text) > 0 {
		v.checkPaths()
	}

	if len(v.issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: v.issues}
}

func (v *validator) report(kind IssueKind, pos int, op Opcode, slot int, format string, args ...any) {
	v.issues = append(v.issues, &Issue{
		Kind: kind,
		Pos:  pos,
		Op:   op,
		Slot: slot,
		Msg:  fmt.Sprintf(format, args...),
	})
	if pos >= 0 && slot >= 0 {
		v.bad[[2]int{pos, slot}] = true
	}
}

func (v *validator) checkInstruction(p int, in Instruction) {
	op := in.op
	for slot, kind := range op.Operands() {
		x := in.args[slot]
		switch kind {
		case KindIntK:
			if int(x) >= len(v.f.IntkTable) {
				v.report(IssueConstant, p, op, slot, "integer constant #%d out of range (pool has %d)", x, len(v.f.IntkTable))
			}
		case KindStrK:
			if int(x) >= len(v.f.StrkTable) {
				v.report(IssueConstant, p, op, slot, "string constant #%d out of range (pool has %d)", x, len(v.f.StrkTable))
			}
		case KindBool:
			if x > 1 {
				v.report(IssueLiteral, p, op, slot, "boolean literal %d is not 0 or 1", x)
			}
		case KindTarget:
			v.checkTarget(p, op, slot, int(x))
		case KindReg, KindArgs:
			v.checkRegister(p, op, slot, kind, Reg(x))
		}
	}
}

func (v *validator) checkTarget(p int, op Opcode, slot, t int) {
	if t >= len(v.f.Text) {
		v.report(IssueTarget, p, op, slot, "target %d out of range (text has %d)", t, len(v.f.Text))
		return
	}
	dest := v.f.Text[t].op
	switch {
	case op == JUMP && t < p:
		if !dest.IsReverseTarget() {
			v.report(IssueTarget, p, op, slot, "backward target %d is %s, want jloop or jfor", t, dest)
		}
	case t <= p:
		v.report(IssueTarget, p, op, slot, "target %d does not follow the branch", t)
	case !dest.IsForwardTarget():
		v.report(IssueTarget, p, op, slot, "forward target %d is %s, want jtarg", t, dest)
	}
}

func (v *validator) checkRegister(p int, op Opcode, slot int, kind OperandKind, r Reg) {
	src, q := v.f.DefinerOf(r)
	switch src {
	case SourceNone:
		v.report(IssueRegister, p, op, slot, "register %d out of range", r)
		return
	case SourceArg, SourceUpvalue:
		if kind == KindArgs {
			v.report(IssueRegister, p, op, slot, "register %d is an %s, want an argument list", r, src)
		}
		return
	}

	def := v.f.Text[q].op
	switch {
	case !def.HasResult():
		v.report(IssueRegister, p, op, slot, "register %d names %s at %d, which has no result", r, def, q)
	case kind == KindArgs && def != SARG:
		v.report(IssueRegister, p, op, slot, "register %d is defined by %s, want sarg", r, def)
	case q == p && op == PHI:
		v.report(IssueUseBeforeDef, p, op, slot, "phi reads its own result")
	case q >= p && op != PHI:
		v.report(IssueUseBeforeDef, p, op, slot, "register %d is defined later, at %d", r, q)
	}
}

func (v *validator) checkEnd() {
	n := len(v.f.Text)
	if n == 0 {
		v.report(IssueFallthrough, -1, NOP, -1, "function has no instructions")
		return
	}
	if last := v.f.Text[n-1]; !last.op.IsTerminator() {
		v.report(IssueFallthrough, n-1, last.op, -1, "control falls off the end of the function")
	}
}

// checkPaths reports register uses that are preceded by their definition
// in program order but not on every path through the CFG. A PHI operand
// only needs a definition on some path reaching the PHI, which is how a
// loop header reads a value from the back edge.
func (v *validator) checkPaths() {
	g := BuildCFG(v.f)
	must := g.definedOnEntry(v.f)
	may := g.mayBeDefinedOnEntry(v.f)
	reachable := g.Reachable()

	n := len(v.f.Text)
	for _, b := range g.Blocks {
		if !reachable[b.Index] {
			continue
		}
		defined := newPosSet(n, false)
		defined.copyFrom(must[b.Index])
		possible := newPosSet(n, false)
		possible.copyFrom(may[b.Index])
		for p := b.Start; p < b.End; p++ {
			in := v.f.Text[p]
			for slot, kind := range in.op.Operands() {
				if !kind.IsRegister() || v.bad[[2]int{p, slot}] {
					continue
				}
				src, q := v.f.DefinerOf(Reg(in.args[slot]))
				if src != SourceInstr {
					continue
				}
				switch {
				case in.op == PHI && !possible.has(q):
					v.report(IssueUseBeforeDef, p, in.op, slot,
						"register %d is not defined on any path into the phi (defined at %d)", in.args[slot], q)
				case in.op != PHI && !defined.has(q):
					v.report(IssueUseBeforeDef, p, in.op, slot,
						"register %d is not defined on every path (defined at %d)", in.args[slot], q)
				}
			}
			if in.op.HasResult() {
				defined.add(p)
				possible.add(p)
			}
		}
	}
}
