package ir

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Disassemble returns a human-readable listing of the function.
func Disassemble(f *Function) string {
	return DisassembleWithName(f, "")
}

// DisassembleWithName returns a human-readable listing with a name header.
func DisassembleWithName(f *Function, name string) string {
	var sb strings.Builder

	// Header
	if name != "" {
		fmt.Fprintf(&sb, "; === %s ===\n", name)
	}
	sb.WriteString("; Scrap IR function\n")
	fmt.Fprintf(&sb, "; Arguments: %d, upvalues: %d\n", f.NumPosArgs, f.NumUpvalues)
	sb.WriteString("\n")

	// Constants
	if len(f.IntkTable) > 0 {
		sb.WriteString("; Integer constants:\n")
		for i, v := range f.IntkTable {
			fmt.Fprintf(&sb, ";   [%3d] %d\n", i, v)
		}
		sb.WriteString("\n")
	}
	if len(f.StrkTable) > 0 {
		sb.WriteString("; String constants:\n")
		for i, s := range f.StrkTable {
			fmt.Fprintf(&sb, ";   [%3d] %q\n", i, truncate(s, 40))
		}
		sb.WriteString("\n")
	}

	// Text section
	sb.WriteString("; Text:\n")
	for p := range f.Text {
		sb.WriteString(DisassembleInstruction(f, p))
		sb.WriteByte('\n')
	}

	return sb.String()
}

// DisassembleInstruction formats the instruction at position p, with its
// defined register and constant values resolved against f.
func DisassembleInstruction(f *Function, p int) string {
	in := f.Text[p]
	op := in.op

	dest := ""
	if op.HasResult() {
		if r, ok := f.RegisterAt(p); ok {
			dest = fmt.Sprintf("r%d =", r)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%04d  %-8s%s", p, dest, op)
	var comments []string
	for slot, kind := range op.Operands() {
		if slot == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(", ")
		}
		x := in.args[slot]
		sb.WriteString(formatOperand(kind, x))
		if c := operandComment(f, kind, x); c != "" {
			comments = append(comments, c)
		}
	}
	if len(comments) > 0 {
		sb.WriteString("  ; ")
		sb.WriteString(strings.Join(comments, ", "))
	}
	return sb.String()
}

func formatOperand(kind OperandKind, x uint16) string {
	switch kind {
	case KindReg, KindArgs:
		return fmt.Sprintf("r%d", x)
	case KindIntK, KindStrK:
		return fmt.Sprintf("#%d", x)
	case KindBool:
		switch x {
		case 0:
			return "false"
		case 1:
			return "true"
		}
		return fmt.Sprintf("bool(%d)", x)
	case KindType:
		return fmt.Sprintf("type(%d)", x)
	case KindTarget:
		return fmt.Sprintf("@%d", x)
	default:
		return fmt.Sprintf("%d", x)
	}
}

func operandComment(f *Function, kind OperandKind, x uint16) string {
	i := int(x)
	switch kind {
	case KindIntK:
		if i < len(f.IntkTable) {
			return fmt.Sprintf("%d", f.IntkTable[i])
		}
		return "<bad constant>"
	case KindStrK:
		if i < len(f.StrkTable) {
			return fmt.Sprintf("%q", truncate(f.StrkTable[i], 20))
		}
		return "<bad constant>"
	case KindTarget:
		if i < len(f.Text) {
			return "-> " + f.Text[i].op.String()
		}
		return "<bad target>"
	}
	return ""
}

// truncate shortens long strings for readability. The cut never splits a
// multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n - 3
	for i := 1; i < utf8.UTFMax && cut > 0 && !utf8.RuneStart(s[cut]); i++ {
		cut--
	}
	return s[:cut] + "..."
}
