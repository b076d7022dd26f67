package ir

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// The encoding below is for handing a Function between compilation
// stages that do not share memory. It is not a bytecode file format and
// carries no version header.

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("ir: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em

	// String constants are arbitrary Go strings and need not be UTF-8.
	dm, err := cbor.DecOptions{UTF8: cbor.UTF8DecodeInvalid}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("ir: failed to create CBOR dec mode: %v", err))
	}
	cborDecMode = dm
}

type wireInstruction struct {
	_    struct{} `cbor:",toarray"`
	Op   uint8
	Args []uint16
}

type wireFunction struct {
	NumPosArgs  int               `cbor:"1,keyasint"`
	NumUpvalues int               `cbor:"2,keyasint"`
	Strk        []string          `cbor:"3,keyasint,omitempty"`
	Intk        []int32           `cbor:"4,keyasint,omitempty"`
	Text        []wireInstruction `cbor:"5,keyasint,omitempty"`
}

// MarshalFunction serializes a Function to canonical CBOR. Equal
// functions always produce identical bytes.
func MarshalFunction(f *Function) ([]byte, error) {
	w := wireFunction{
		NumPosArgs:  f.NumPosArgs,
		NumUpvalues: f.NumUpvalues,
		Strk:        f.StrkTable,
		Intk:        f.IntkTable,
		Text:        make([]wireInstruction, len(f.Text)),
	}
	for i, in := range f.Text {
		w.Text[i] = wireInstruction{Op: uint8(in.op), Args: in.Args()}
	}
	return cborEncMode.Marshal(&w)
}

// UnmarshalFunction deserializes a Function from CBOR bytes. Every
// instruction is rebuilt through New, so unknown opcodes and arity
// mismatches are reported as errors.
func UnmarshalFunction(data []byte) (*Function, error) {
	var w wireFunction
	if err := cborDecMode.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("ir: unmarshal function: %w", err)
	}
	if w.NumPosArgs < 0 || w.NumUpvalues < 0 {
		return nil, fmt.Errorf("ir: unmarshal function: negative argument counts (%d, %d)", w.NumPosArgs, w.NumUpvalues)
	}
	if w.NumPosArgs > maxPoolSize || w.NumUpvalues > maxPoolSize {
		return nil, fmt.Errorf("ir: unmarshal function: %w", ErrRegisterSpace)
	}
	if len(w.Strk) > maxPoolSize || len(w.Intk) > maxPoolSize {
		return nil, fmt.Errorf("ir: unmarshal function: constant pool exceeds %d entries", maxPoolSize)
	}

	f := &Function{
		NumPosArgs:  w.NumPosArgs,
		NumUpvalues: w.NumUpvalues,
		StrkTable:   w.Strk,
		IntkTable:   w.Intk,
		Text:        make([]Instruction, 0, len(w.Text)),
	}
	for i, wi := range w.Text {
		in, err := New(Opcode(wi.Op), wi.Args...)
		if err != nil {
			return nil, fmt.Errorf("ir: unmarshal function: instruction %d: %w", i, err)
		}
		f.Text = append(f.Text, in)
	}
	return f, nil
}

// FunctionReader decodes a stream of concatenated encoded functions.
type FunctionReader struct {
	dec *cbor.Decoder
}

// NewFunctionReader returns a FunctionReader reading from r.
func NewFunctionReader(r io.Reader) *FunctionReader {
	return &FunctionReader{dec: cborDecMode.NewDecoder(r)}
}

// Next decodes the next function. It returns io.EOF once the stream is
// exhausted.
func (fr *FunctionReader) Next() (*Function, error) {
	var raw cbor.RawMessage
	if err := fr.dec.Decode(&raw); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("ir: read function: %w", err)
	}
	return UnmarshalFunction(raw)
}

// Fingerprint returns the SHA-256 of the function's canonical encoding.
// Two functions with the same pools and text share a fingerprint.
func Fingerprint(f *Function) ([32]byte, error) {
	data, err := MarshalFunction(f)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}
