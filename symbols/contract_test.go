package symbols

import (
	"testing"

	"go.bytecodealliance.org/wit"
)

func TestContract(t *testing.T) {
	c := Contract()
	if len(c) != 3 {
		t.Fatalf("expected 3 exports, got %d", len(c))
	}

	tests := []struct {
		name      string
		signature string
	}{
		{OnLoad, "() -> u32"},
		{OnUnload, "() -> u32"},
		{Update, "(f64) -> u32"},
	}
	for i, tt := range tests {
		if c[i].Name != tt.name {
			t.Errorf("export %d: name = %q, want %q", i, c[i].Name, tt.name)
		}
		if got := c[i].Signature(); got != tt.signature {
			t.Errorf("%s: signature = %q, want %q", tt.name, got, tt.signature)
		}
	}
}

func TestNames(t *testing.T) {
	names := Names()
	want := []string{OnLoad, OnUnload, Update}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestParseContract(t *testing.T) {
	exports, err := parseContract(`
		tick: func(a: u32, b: f32) -> u64;
		noop: func();
	`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(exports) != 2 {
		t.Fatalf("expected 2 exports, got %d", len(exports))
	}
	if got := exports[0].Signature(); got != "(u32, f32) -> u64" {
		t.Errorf("tick signature = %q", got)
	}
	if got := exports[1].Signature(); got != "() -> ()" {
		t.Errorf("noop signature = %q", got)
	}

	if _, err := parseContract("nothing here"); err == nil {
		t.Error("expected error for text without functions")
	}
}

func TestCoreType(t *testing.T) {
	tests := []struct {
		typ  wit.Type
		want byte
		ok   bool
	}{
		{wit.Bool{}, CoreI32, true},
		{wit.U32{}, CoreI32, true},
		{wit.S16{}, CoreI32, true},
		{wit.U64{}, CoreI64, true},
		{wit.F32{}, CoreF32, true},
		{wit.F64{}, CoreF64, true},
		{wit.String{}, 0, false},
	}
	for _, tt := range tests {
		got, ok := CoreType(tt.typ)
		if got != tt.want || ok != tt.ok {
			t.Errorf("CoreType(%T) = (%#x, %v), want (%#x, %v)", tt.typ, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCoreTypes(t *testing.T) {
	got, ok := CoreTypes([]wit.Type{wit.F64{}, wit.U32{}})
	if !ok || len(got) != 2 || got[0] != CoreF64 || got[1] != CoreI32 {
		t.Errorf("CoreTypes = %v, %v", got, ok)
	}
	if _, ok := CoreTypes([]wit.Type{wit.String{}}); ok {
		t.Error("expected string to have no flat core type")
	}
}

func TestCoreName(t *testing.T) {
	if CoreName(CoreF64) != "f64" || CoreName(CoreI32) != "i32" {
		t.Error("unexpected core names")
	}
	if CoreName(0x01) != "0x01" {
		t.Errorf("CoreName(0x01) = %q", CoreName(0x01))
	}
}
