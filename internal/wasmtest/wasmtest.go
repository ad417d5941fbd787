// Package wasmtest assembles WebAssembly modules that implement the module
// contract, for tests that need a real module without a compiler.
package wasmtest

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// Core value types.
const (
	I32 byte = 0x7f
	I64 byte = 0x7e
	F32 byte = 0x7d
	F64 byte = 0x7c
)

// Signature overrides the core signature of one export.
type Signature struct {
	Params  []byte
	Results []byte
}

// Import declares a function import of type () -> ().
type Import struct {
	Module string
	Name   string
}

// Module describes a generated contract module. The zero value exports
// on_load, on_unload and update, all returning 0.
type Module struct {
	OnLoadStatus   uint32
	OnUnloadStatus uint32
	UpdateStatus   uint32

	// Omit leaves the named exports out.
	Omit []string
	// Trap makes the named exports execute unreachable.
	Trap []string
	// Signatures replaces the contract signature of the named exports.
	Signatures map[string]Signature
	// Imports are declared before the module's own functions.
	Imports []Import
}

const (
	opUnreachable = 0x00
	opEnd         = 0x0b
	opGlobalGet   = 0x23
	opGlobalSet   = 0x24
	opI32Const    = 0x41
	opI64Const    = 0x42
	opF32Const    = 0x43
	opF64Const    = 0x44
	opI32Add      = 0x6a
)

type function struct {
	name string
	sig  Signature
	body []byte
}

// CountUpdateCalls is exported by every generated module. It returns the
// number of update calls since the last on_load.
const CountUpdateCalls = "count_update_calls"

// Bytes encodes the module.
func (m Module) Bytes() []byte {
	var funcs []function
	add := func(name string, sig Signature, body []byte) {
		if m.omitted(name) {
			return
		}
		if override, ok := m.Signatures[name]; ok {
			sig = override
			body = nil
		}
		if m.traps(name) {
			body = []byte{opUnreachable}
		}
		if body == nil {
			body = constResults(sig.Results)
		}
		funcs = append(funcs, function{name: name, sig: sig, body: body})
	}

	status := Signature{Results: []byte{I32}}
	add("on_load", status, concat(
		[]byte{opI32Const, 0x00, opGlobalSet, 0x00},
		i32Const(m.OnLoadStatus),
	))
	add("on_unload", status, i32Const(m.OnUnloadStatus))
	add("update", Signature{Params: []byte{F64}, Results: []byte{I32}}, concat(
		[]byte{opGlobalGet, 0x00, opI32Const, 0x01, opI32Add, opGlobalSet, 0x00},
		i32Const(m.UpdateStatus),
	))
	add(CountUpdateCalls, status, []byte{opGlobalGet, 0x00})

	var out bytes.Buffer
	out.Write([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00})

	// type section: imports share type 0, then one type per function
	var types bytes.Buffer
	writeU32(&types, uint32(1+len(funcs)))
	writeFuncType(&types, Signature{})
	for _, f := range funcs {
		writeFuncType(&types, f.sig)
	}
	writeSection(&out, 1, types.Bytes())

	if len(m.Imports) > 0 {
		var imports bytes.Buffer
		writeU32(&imports, uint32(len(m.Imports)))
		for _, imp := range m.Imports {
			writeName(&imports, imp.Module)
			writeName(&imports, imp.Name)
			imports.Write([]byte{0x00, 0x00})
		}
		writeSection(&out, 2, imports.Bytes())
	}

	var fsec bytes.Buffer
	writeU32(&fsec, uint32(len(funcs)))
	for i := range funcs {
		writeU32(&fsec, uint32(i+1))
	}
	writeSection(&out, 3, fsec.Bytes())

	// one mutable i32 global counting update calls
	writeSection(&out, 6, []byte{0x01, I32, 0x01, opI32Const, 0x00, opEnd})

	var exports bytes.Buffer
	writeU32(&exports, uint32(len(funcs)))
	for i, f := range funcs {
		writeName(&exports, f.name)
		exports.WriteByte(0x00)
		writeU32(&exports, uint32(len(m.Imports)+i))
	}
	writeSection(&out, 7, exports.Bytes())

	var code bytes.Buffer
	writeU32(&code, uint32(len(funcs)))
	for _, f := range funcs {
		var body bytes.Buffer
		body.WriteByte(0x00) // no locals
		body.Write(f.body)
		body.WriteByte(opEnd)
		writeU32(&code, uint32(body.Len()))
		code.Write(body.Bytes())
	}
	writeSection(&out, 10, code.Bytes())

	return out.Bytes()
}

// Write encodes the module to dir/filename and returns the path.
func (m Module) Write(t testing.TB, dir, filename string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, m.Bytes(), 0o644); err != nil {
		t.Fatalf("write module: %v", err)
	}
	return path
}

func (m Module) omitted(name string) bool { return contains(m.Omit, name) }
func (m Module) traps(name string) bool   { return contains(m.Trap, name) }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func constResults(results []byte) []byte {
	var b []byte
	for _, r := range results {
		switch r {
		case I32:
			b = append(b, opI32Const, 0x00)
		case I64:
			b = append(b, opI64Const, 0x00)
		case F32:
			b = append(b, opF32Const)
			b = binary.LittleEndian.AppendUint32(b, math.Float32bits(0))
		case F64:
			b = append(b, opF64Const)
			b = binary.LittleEndian.AppendUint64(b, math.Float64bits(0))
		}
	}
	return b
}

func i32Const(v uint32) []byte {
	return append([]byte{opI32Const}, appendS32(nil, int32(v))...)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func writeSection(w *bytes.Buffer, id byte, data []byte) {
	w.WriteByte(id)
	writeU32(w, uint32(len(data)))
	w.Write(data)
}

func writeFuncType(w *bytes.Buffer, sig Signature) {
	w.WriteByte(0x60)
	writeU32(w, uint32(len(sig.Params)))
	w.Write(sig.Params)
	writeU32(w, uint32(len(sig.Results)))
	w.Write(sig.Results)
}

func writeName(w *bytes.Buffer, s string) {
	writeU32(w, uint32(len(s)))
	w.WriteString(s)
}

func writeU32(w *bytes.Buffer, v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

func appendS32(b []byte, v int32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}
