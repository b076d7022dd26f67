package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/scrap/config"
	"github.com/chazu/scrap/pkg/ir"
)

// runCLI runs the command against an empty scrap.toml so the result does not
// depend on the working directory.
func runCLI(t *testing.T, stdin []byte, args ...string) (int, string, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.FileName), nil, 0644); err != nil {
		t.Fatal(err)
	}
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"-config", dir}, args...), bytes.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestDemo(t *testing.T) {
	code, out, errOut := runCLI(t, nil, "demo")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	for _, want := range []string{"; === demo ===", "intk", "assert", "; Fingerprint: "} {
		if !strings.Contains(out, want) {
			t.Errorf("demo output missing %q:\n%s", want, out)
		}
	}
}

func TestOpcodesTable(t *testing.T) {
	code, out, _ := runCLI(t, nil, "opcodes")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 62 {
		t.Fatalf("got %d lines, want header + 61 opcodes", len(lines))
	}
	if !strings.HasPrefix(lines[0], "OPCODE") {
		t.Errorf("header = %q", lines[0])
	}
	var jfor string
	for _, l := range lines {
		if strings.HasPrefix(l, "jfor ") {
			jfor = l
		}
	}
	if jfor == "" {
		t.Fatal("no jfor row")
	}
	for _, want := range []string{" 3 ", "cond", "target"} {
		if !strings.Contains(jfor, want) {
			t.Errorf("jfor row %q missing %q", jfor, want)
		}
	}
}

func TestDemoPipedToCheck(t *testing.T) {
	code, encoded, errOut := runCLI(t, nil, "demo", "-cbor")
	if code != 0 {
		t.Fatalf("demo -cbor: exit %d: %s", code, errOut)
	}

	stream := []byte(encoded + encoded)
	code, out, errOut := runCLI(t, stream, "check")
	if code != 0 {
		t.Fatalf("check: exit %d: %s", code, errOut)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("check output:\n%s", out)
	}
	if !strings.HasPrefix(lines[0], "ok   #0 ") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "ok   #1 (same as #0)" {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestCheckBinaryStringConstant(t *testing.T) {
	f := ir.NewFunction(0, 0)
	r := f.Def(ir.Strk(f.PushString("\x80\x81")))
	f.Emit(ir.Ret(r))
	data, err := ir.MarshalFunction(f)
	if err != nil {
		t.Fatal(err)
	}

	code, out, errOut := runCLI(t, data, "check")
	if code != 0 {
		t.Fatalf("check: exit %d: %s", code, errOut)
	}
	if !strings.HasPrefix(out, "ok   #0 ") {
		t.Errorf("check output = %q", out)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestDemoWriteError(t *testing.T) {
	var stderr bytes.Buffer
	if code := runDemo([]string{"-cbor"}, failingWriter{}, &stderr); code != 1 {
		t.Errorf("exit %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "Error: broken pipe") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestCheckRejectsGarbage(t *testing.T) {
	code, _, errOut := runCLI(t, []byte{0xff, 0x00, 0x13}, "check")
	if code != 1 {
		t.Errorf("exit %d, want 1", code)
	}
	if !strings.Contains(errOut, "function 0") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestCheckEmptyInput(t *testing.T) {
	code, out, errOut := runCLI(t, nil, "check")
	if code != 0 || out != "" {
		t.Errorf("exit %d, stdout %q, stderr %q", code, out, errOut)
	}
}

func TestUnknownCommand(t *testing.T) {
	code, _, errOut := runCLI(t, nil, "frobnicate")
	if code != 2 {
		t.Errorf("exit %d, want 2", code)
	}
	if !strings.Contains(errOut, `unknown command "frobnicate"`) {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestNoCommand(t *testing.T) {
	code, _, errOut := runCLI(t, nil)
	if code != 2 || !strings.Contains(errOut, "Usage: scrapir") {
		t.Errorf("exit %d, stderr %q", code, errOut)
	}
}
