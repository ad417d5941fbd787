package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/modhost/errors"
	"github.com/wippyai/modhost/symbols"
)

// WasmExtension is appended to a logical name to form a module filename.
const WasmExtension = ".wasm"

// wasiModuleName is the import namespace served when WASI is enabled.
const wasiModuleName = "wasi_snapshot_preview1"

// WazeroConfig holds configuration for the WebAssembly backend
type WazeroConfig struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// EnableWASI links wasi_snapshot_preview1 so modules built against a
	// libc can be instantiated. Without it such modules fail to load with
	// an UnresolvedImportsError.
	EnableWASI bool
}

// Wazero loads WebAssembly core modules.
type Wazero struct {
	runtime wazero.Runtime
	wasi    bool

	closeMu sync.Mutex
	closed  bool
}

// NewWazero creates a WebAssembly backend with its own runtime.
func NewWazero(ctx context.Context, cfg *WazeroConfig) (*Wazero, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg == nil {
		cfg = &WazeroConfig{}
	}
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	r := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	w := &Wazero{runtime: r, wasi: cfg.EnableWASI}

	if cfg.EnableWASI {
		if _, err := instantiateWASI(ctx, r); err != nil {
			_ = r.Close(ctx)
			return nil, fmt.Errorf("instantiate WASI: %w", err)
		}
	}
	return w, nil
}

// Name implements Backend.
func (w *Wazero) Name() string { return "wasm" }

// Filename implements Backend.
func (w *Wazero) Filename(name string) string { return name + WasmExtension }

// Open implements Backend. It compiles and instantiates the module as an
// anonymous instance, so the same file can be opened again after a reload.
func (w *Wazero) Open(ctx context.Context, path string) (Library, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Load(path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Load(abs, err)
	}
	if info.IsDir() {
		return nil, errors.New(errors.PhaseOpen, errors.KindLoad).
			Path(abs).
			Detail("path is a directory").
			Build()
	}

	wasmBytes, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.Load(abs, err)
	}

	compiled, err := w.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Load(abs, fmt.Errorf("compile failed: %w", err))
	}

	if unresolved := w.unresolvedImports(compiled); len(unresolved) > 0 {
		_ = compiled.Close(ctx)
		return nil, errors.Load(abs, errors.NewUnresolvedImportsError(unresolved))
	}

	modCfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions("_initialize")
	if w.wasi {
		modCfg = modCfg.WithStdout(os.Stdout).WithStderr(os.Stderr)
	}

	mod, err := w.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, errors.Load(abs, fmt.Errorf("instantiate failed: %w", err))
	}

	Logger().Debug("module instantiated",
		zap.String("path", abs),
		zap.Int("exports", len(compiled.ExportedFunctions())))

	return &wazeroLibrary{path: abs, compiled: compiled, mod: mod}, nil
}

// unresolvedImports lists function imports this backend cannot satisfy,
// as "module#function".
func (w *Wazero) unresolvedImports(compiled wazero.CompiledModule) []string {
	var missing []string
	for _, fn := range compiled.ImportedFunctions() {
		modName, funcName, _ := fn.Import()
		if w.wasi && modName == wasiModuleName {
			continue
		}
		missing = append(missing, modName+"#"+funcName)
	}
	sort.Strings(missing)
	return missing
}

// Close implements Backend. It closes every instance still open.
func (w *Wazero) Close(ctx context.Context) error {
	w.closeMu.Lock()
	defer w.closeMu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.runtime.Close(ctx)
}

type wazeroLibrary struct {
	path     string
	compiled wazero.CompiledModule
	mod      api.Module
}

func (l *wazeroLibrary) Path() string { return l.path }

// Resolve checks each export against the contract before binding it.
// Entry points run with ctx's values but never its cancellation: a frame
// is not abandoned halfway.
func (l *wazeroLibrary) Resolve(ctx context.Context) (*symbols.Table, error) {
	if l.mod == nil {
		return nil, errors.Misuse(errors.PhaseResolve, "", "resolve after close")
	}
	callCtx := context.WithoutCancel(ctx)

	defs := l.compiled.ExportedFunctions()
	fns := make(map[string]api.Function, 3)
	for _, export := range symbols.Contract() {
		def, ok := defs[export.Name]
		if !ok {
			return nil, errors.SymbolResolution(l.path, export.Name, nil)
		}
		if err := checkSignature(l.path, export, def); err != nil {
			return nil, err
		}
		fns[export.Name] = l.mod.ExportedFunction(export.Name)
	}

	return symbols.NewTable(l.path, symbols.Funcs{
		OnLoad:   nullary(callCtx, fns[symbols.OnLoad]),
		OnUnload: nullary(callCtx, fns[symbols.OnUnload]),
		Update: func(dt float64) (uint32, error) {
			return first(fns[symbols.Update].Call(callCtx, api.EncodeF64(dt)))
		},
	})
}

func (l *wazeroLibrary) Close(ctx context.Context) error {
	if l.mod == nil {
		return errors.New(errors.PhaseShutdown, errors.KindMisuse).
			Path(l.path).
			Detail("library already closed").
			Build()
	}
	mod, compiled := l.mod, l.compiled
	l.mod, l.compiled = nil, nil

	if err := mod.Close(ctx); err != nil {
		_ = compiled.Close(ctx)
		return errors.Close(l.path, err)
	}
	if err := compiled.Close(ctx); err != nil {
		return errors.Close(l.path, err)
	}
	Logger().Debug("module closed", zap.String("path", l.path))
	return nil
}

func checkSignature(path string, export symbols.Export, def api.FunctionDefinition) error {
	wantParams, _ := symbols.CoreTypes(export.Params)
	wantResults, _ := symbols.CoreTypes(export.Results)
	if sameTypes(wantParams, def.ParamTypes()) && sameTypes(wantResults, def.ResultTypes()) {
		return nil
	}
	return errors.SignatureMismatch(path, export.Name,
		coreSignature(wantParams, wantResults),
		coreSignature(def.ParamTypes(), def.ResultTypes()))
}

func sameTypes(want []byte, got []api.ValueType) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if api.ValueType(want[i]) != got[i] {
			return false
		}
	}
	return true
}

func coreSignature(params, results []api.ValueType) string {
	list := func(types []api.ValueType) string {
		s := "("
		for i, t := range types {
			if i > 0 {
				s += ", "
			}
			s += symbols.CoreName(t)
		}
		return s + ")"
	}
	return list(params) + " -> " + list(results)
}

func nullary(ctx context.Context, fn api.Function) func() (uint32, error) {
	return func() (uint32, error) {
		return first(fn.Call(ctx))
	}
}

func first(results []uint64, err error) (uint32, error) {
	if err != nil {
		return 0, err
	}
	if len(results) != 1 {
		return 0, fmt.Errorf("expected 1 result, got %d", len(results))
	}
	return api.DecodeU32(results[0]), nil
}
