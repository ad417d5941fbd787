// Package symbols defines the module contract and binds its entry points.
//
// Every module exports exactly three functions with a flat C calling
// convention. The contract is written in WIT so backends that can see
// export signatures (WebAssembly) check them; the native backend can only
// check names.
package symbols

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"go.bytecodealliance.org/wit"
)

// Export names of the module contract.
const (
	OnLoad   = "on_load"
	OnUnload = "on_unload"
	Update   = "update"
)

// contractWIT declares the entry points in resolution order.
const contractWIT = `
on_load: func() -> u32;
on_unload: func() -> u32;
update: func(delta-time: f64) -> u32;
`

// Export describes one required entry point.
type Export struct {
	Name    string
	Params  []wit.Type
	Results []wit.Type
}

// Signature renders the export as "(f64) -> u32".
func (e Export) Signature() string {
	return Signature(e.Params, e.Results)
}

// Signature renders a parameter and result list.
func Signature(params, results []wit.Type) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(typeName(p))
	}
	b.WriteString(") -> ")
	switch len(results) {
	case 0:
		b.WriteString("()")
	case 1:
		b.WriteString(typeName(results[0]))
	default:
		b.WriteByte('(')
		for i, r := range results {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(typeName(r))
		}
		b.WriteByte(')')
	}
	return b.String()
}

var (
	contract     []Export
	contractOnce sync.Once
)

// Contract returns the required exports in resolution order.
func Contract() []Export {
	contractOnce.Do(func() {
		exports, err := parseContract(contractWIT)
		if err != nil {
			panic(fmt.Sprintf("symbols: invalid contract: %v", err))
		}
		contract = exports
	})
	return contract
}

// Names returns the required export names in resolution order.
func Names() []string {
	c := Contract()
	names := make([]string, len(c))
	for i, e := range c {
		names[i] = e.Name
	}
	return names
}

var funcPattern = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?`)

// parseContract extracts function signatures from WIT text, keeping
// declaration order. Pattern: name: func(params) -> result;
func parseContract(text string) ([]Export, error) {
	var exports []Export
	for _, match := range funcPattern.FindAllStringSubmatch(text, -1) {
		e := Export{Name: match[1]}

		if params := strings.TrimSpace(match[2]); params != "" {
			for _, p := range strings.Split(params, ",") {
				typStr := p
				if idx := strings.LastIndex(p, ":"); idx != -1 {
					typStr = p[idx+1:]
				}
				t, err := wit.ParseType(strings.TrimSpace(typStr))
				if err != nil {
					return nil, fmt.Errorf("%s: param type %q: %w", e.Name, typStr, err)
				}
				e.Params = append(e.Params, t)
			}
		}

		if result := strings.TrimSpace(match[3]); result != "" && result != "()" {
			t, err := wit.ParseType(result)
			if err != nil {
				return nil, fmt.Errorf("%s: result type %q: %w", e.Name, result, err)
			}
			e.Results = []wit.Type{t}
		}

		exports = append(exports, e)
	}
	if len(exports) == 0 {
		return nil, fmt.Errorf("no functions found in contract")
	}
	return exports, nil
}

// Core value type codes, as encoded in the WebAssembly binary format.
const (
	CoreI32 byte = 0x7f
	CoreI64 byte = 0x7e
	CoreF32 byte = 0x7d
	CoreF64 byte = 0x7c
)

// CoreType returns the flat core value type a primitive WIT type lowers to.
func CoreType(t wit.Type) (byte, bool) {
	switch t.(type) {
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		return CoreI32, true
	case wit.U64, wit.S64:
		return CoreI64, true
	case wit.F32:
		return CoreF32, true
	case wit.F64:
		return CoreF64, true
	default:
		return 0, false
	}
}

// CoreTypes lowers a list of primitive WIT types.
func CoreTypes(types []wit.Type) ([]byte, bool) {
	out := make([]byte, 0, len(types))
	for _, t := range types {
		c, ok := CoreType(t)
		if !ok {
			return nil, false
		}
		out = append(out, c)
	}
	return out, true
}

// CoreName names a core value type code.
func CoreName(c byte) string {
	switch c {
	case CoreI32:
		return "i32"
	case CoreI64:
		return "i64"
	case CoreF32:
		return "f32"
	case CoreF64:
		return "f64"
	default:
		return fmt.Sprintf("0x%02x", c)
	}
}

func typeName(t wit.Type) string {
	switch t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	default:
		return fmt.Sprintf("%T", t)
	}
}
