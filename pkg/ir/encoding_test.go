package ir

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func TestEncodingRoundTrip(t *testing.T) {
	for name, build := range disasmBuilders {
		t.Run(name, func(t *testing.T) {
			f := build()
			data, err := MarshalFunction(f)
			if err != nil {
				t.Fatalf("MarshalFunction: %v", err)
			}
			g, err := UnmarshalFunction(data)
			if err != nil {
				t.Fatalf("UnmarshalFunction: %v", err)
			}
			if g.NumPosArgs != f.NumPosArgs || g.NumUpvalues != f.NumUpvalues {
				t.Errorf("counts = %d, %d; want %d, %d", g.NumPosArgs, g.NumUpvalues, f.NumPosArgs, f.NumUpvalues)
			}
			if !slices.Equal(g.IntkTable, f.IntkTable) || !slices.Equal(g.StrkTable, f.StrkTable) {
				t.Errorf("pools = %v %v, want %v %v", g.IntkTable, g.StrkTable, f.IntkTable, f.StrkTable)
			}
			if !slices.Equal(g.Text, f.Text) {
				t.Errorf("text = %v, want %v", g.Text, f.Text)
			}
			if Disassemble(g) != Disassemble(f) {
				t.Error("listing changed across the round trip")
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	a, err := Fingerprint(buildAssertSum())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Fingerprint(buildAssertSum())
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("identical functions have different fingerprints")
	}

	f := buildAssertSum()
	f.IntkTable[1] = 3
	c, err := Fingerprint(f)
	if err != nil {
		t.Fatal(err)
	}
	if c == a {
		t.Error("changing a constant did not change the fingerprint")
	}

	d, err := Fingerprint(f.Clone())
	if err != nil {
		t.Fatal(err)
	}
	if d != c {
		t.Error("clone has a different fingerprint")
	}
}

func encodeWire(t *testing.T, w wireFunction) []byte {
	t.Helper()
	data, err := cbor.Marshal(w)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestUnmarshalRejectsArityMismatch(t *testing.T) {
	data := encodeWire(t, wireFunction{
		Text: []wireInstruction{
			{Op: uint8(INTK), Args: []uint16{0}},
			{Op: uint8(ADD), Args: []uint16{0}},
		},
		Intk: []int32{1},
	})
	_, err := UnmarshalFunction(data)
	if !errors.Is(err, ErrArity) {
		t.Errorf("err = %v, want ErrArity", err)
	}
}

func TestUnmarshalRejectsUnknownOpcode(t *testing.T) {
	data := encodeWire(t, wireFunction{
		Text: []wireInstruction{{Op: 250}},
	})
	_, err := UnmarshalFunction(data)
	if !errors.Is(err, ErrUnknownOpcode) {
		t.Errorf("err = %v, want ErrUnknownOpcode", err)
	}
}

func TestUnmarshalRejectsNegativeCounts(t *testing.T) {
	data := encodeWire(t, wireFunction{NumPosArgs: -1})
	if _, err := UnmarshalFunction(data); err == nil {
		t.Error("negative argument count accepted")
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	if _, err := UnmarshalFunction([]byte{0xff, 0x00, 0x13}); err == nil {
		t.Error("garbage accepted")
	}
}

// buildBinaryString pools a string constant that is not valid UTF-8.
func buildBinaryString() *Function {
	f := NewFunction(0, 0)
	r := f.Def(Strk(f.PushString("\xff\xfe raw")))
	f.Emit(Ret(r))
	return f
}

func TestEncodingNonUTF8String(t *testing.T) {
	f := buildBinaryString()
	expectValid(t, f)

	data, err := MarshalFunction(f)
	if err != nil {
		t.Fatalf("MarshalFunction: %v", err)
	}
	g, err := UnmarshalFunction(data)
	if err != nil {
		t.Fatalf("UnmarshalFunction: %v", err)
	}
	if !slices.Equal(g.StrkTable, f.StrkTable) {
		t.Errorf("strk = %q, want %q", g.StrkTable, f.StrkTable)
	}
}

func TestFunctionReader(t *testing.T) {
	var stream bytes.Buffer
	for _, f := range []*Function{buildAssertSum(), buildBinaryString()} {
		data, err := MarshalFunction(f)
		if err != nil {
			t.Fatal(err)
		}
		stream.Write(data)
	}

	fr := NewFunctionReader(&stream)
	var got []*Function
	for {
		f, err := fr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, f)
	}
	if len(got) != 2 {
		t.Fatalf("read %d functions, want 2", len(got))
	}
	if got[1].StrkTable[0] != "\xff\xfe raw" {
		t.Errorf("second function strk = %q", got[1].StrkTable)
	}
}

func TestFunctionReaderTruncated(t *testing.T) {
	data, err := MarshalFunction(buildAssertSum())
	if err != nil {
		t.Fatal(err)
	}
	fr := NewFunctionReader(bytes.NewReader(data[:len(data)-1]))
	if _, err := fr.Next(); err == nil || err == io.EOF {
		t.Errorf("Next on truncated input = %v, want a decode error", err)
	}
}

// FuzzUnmarshalFunction ensures decoding never panics and that anything
// it accepts satisfies the arity contract and can be listed.
func FuzzUnmarshalFunction(f *testing.F) {
	for _, build := range disasmBuilders {
		data, err := MarshalFunction(build())
		if err != nil {
			f.Fatal(err)
		}
		f.Add(data)
	}
	binary, err := MarshalFunction(buildBinaryString())
	if err != nil {
		f.Fatal(err)
	}
	f.Add(binary)
	f.Add([]byte{})
	f.Add([]byte{0xa0})

	f.Fuzz(func(t *testing.T, data []byte) {
		fn, err := UnmarshalFunction(data)
		if err != nil {
			return
		}
		for p, in := range fn.Text {
			if len(in.Args()) != in.Op().Arity() {
				t.Fatalf("instruction %d violates arity: %v", p, in)
			}
		}
		_ = Validate(fn)
		_ = Disassemble(fn)
	})
}
