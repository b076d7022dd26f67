package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/chazu/scrap/config"
	"github.com/chazu/scrap/pipeline"
	"github.com/chazu/scrap/pkg/ir"
)

// ---------------------------------------------------------------------------
// scrapir demo: hand-assembled sample function
// ---------------------------------------------------------------------------

// buildDemo assembles:
//
//	x = 1 + 1
//	assert x == 2
//	return x
func buildDemo() *ir.Function {
	f := ir.NewFunction(0, 0)

	// x = 1 + 1
	one := f.Def(ir.Intk(f.PushInt(1)))
	x := f.Def(ir.Add(one, one))

	// assert x == 2
	two := f.Def(ir.Intk(f.PushInt(2)))
	eq := f.Def(ir.Eq(x, two))
	f.Emit(ir.Assert(eq))

	// return x
	f.Emit(ir.Ret(x))
	return f
}

func runDemo(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	emitCBOR := fs.Bool("cbor", false, "Write the encoded function to stdout instead of a listing")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	f := buildDemo()
	if err := ir.Validate(f); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if *emitCBOR {
		data, err := ir.MarshalFunction(f)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if _, err := stdout.Write(data); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	fp, err := ir.Fingerprint(f)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprint(stdout, ir.DisassembleWithName(f, "demo"))
	fmt.Fprintf(stdout, "\n; Fingerprint: %s\n", hex.EncodeToString(fp[:8]))
	return 0
}

// ---------------------------------------------------------------------------
// scrapir opcodes: catalog table
// ---------------------------------------------------------------------------

func runOpcodes(stdout io.Writer) int {
	tw := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "OPCODE\tARITY\tFAMILY\tOPERANDS\tFLAGS")
	for _, op := range ir.AllOpcodes() {
		kinds := make([]string, 0, ir.MaxOperands)
		for _, k := range op.Operands() {
			kinds = append(kinds, k.String())
		}
		operands := strings.Join(kinds, ",")
		if operands == "" {
			operands = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", op, op.Arity(), op.Family(), operands, opcodeFlags(op))
	}
	if err := tw.Flush(); err != nil {
		return 1
	}
	return 0
}

func opcodeFlags(op ir.Opcode) string {
	var flags []string
	if op.HasResult() {
		flags = append(flags, "result")
	}
	if op.IsMutator() {
		flags = append(flags, "mutator")
	}
	if op.IsCondBranch() {
		flags = append(flags, "cond")
	}
	if op.IsUncondBranch() {
		flags = append(flags, "uncond")
	}
	if op.IsBranchTarget() {
		flags = append(flags, "target")
	}
	if op.IsTerminator() {
		flags = append(flags, "term")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}

// ---------------------------------------------------------------------------
// scrapir check: validate functions handed over by another stage
// ---------------------------------------------------------------------------

// readUnits decodes a stream of concatenated CBOR-encoded functions.
func readUnits(r io.Reader) ([]pipeline.Unit, error) {
	fr := ir.NewFunctionReader(bufio.NewReader(r))
	var units []pipeline.Unit
	for i := 0; ; i++ {
		f, err := fr.Next()
		if errors.Is(err, io.EOF) {
			return units, nil
		}
		if err != nil {
			return nil, fmt.Errorf("function %d: %w", i, err)
		}
		units = append(units, pipeline.Unit{Name: fmt.Sprintf("#%d", i), Func: f})
	}
}

func runCheck(ctx context.Context, cfg *config.Config, stdin io.Reader, stdout, stderr io.Writer) int {
	units, err := readUnits(stdin)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	results, err := pipeline.NewChecker(cfg).Check(ctx, units)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	status := 0
	for _, r := range results {
		switch {
		case !r.OK():
			fmt.Fprintf(stdout, "FAIL %v\n", r.Err)
			status = 1
		case r.DuplicateOf >= 0:
			fmt.Fprintf(stdout, "ok   %s (same as %s)\n", r.Name, results[r.DuplicateOf].Name)
		default:
			fmt.Fprintf(stdout, "ok   %s %s\n", r.Name, hex.EncodeToString(r.Fingerprint[:8]))
		}
	}
	return status
}
