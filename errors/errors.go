package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/wippyai/modhost"
)

// Phase indicates which lifecycle step produced the error
type Phase string

const (
	PhaseOpen       Phase = "open"       // mapping the library
	PhaseResolve    Phase = "resolve"    // binding exported entry points
	PhaseInitialize Phase = "initialize" // on_load
	PhaseUpdate     Phase = "update"     // per-frame update
	PhaseShutdown   Phase = "shutdown"   // on_unload and unmap
	PhaseReload     Phase = "reload"     // artifact install
)

// Kind categorizes the error
type Kind string

const (
	KindLoad             Kind = "load"
	KindSymbolResolution Kind = "symbol_resolution"
	KindOnLoad           Kind = "on_load"
	KindOnUnload         Kind = "on_unload"
	KindUpdate           Kind = "update"
	KindReload           Kind = "reload"
	KindClose            Kind = "close"
	KindMisuse           Kind = "misuse"
)

// Sentinels match any error of the same Kind regardless of Phase.
var (
	ErrLoad             = &Error{Kind: KindLoad}
	ErrSymbolResolution = &Error{Kind: KindSymbolResolution}
	ErrOnLoad           = &Error{Kind: KindOnLoad}
	ErrOnUnload         = &Error{Kind: KindOnUnload}
	ErrUpdate           = &Error{Kind: KindUpdate}
	ErrReload           = &Error{Kind: KindReload}
	ErrClose            = &Error{Kind: KindClose}
	ErrMisuse           = &Error{Kind: KindMisuse}
)

// Error is the structured error type used throughout the host
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Module string // logical module name
	Path   string // library file path
	Symbol string // export name, for resolution failures
	Detail string
	Status modhost.Status // module-reported status, nonzero when set
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Module != "" {
		b.WriteString(" module ")
		b.WriteString(e.Module)
	}
	if e.Path != "" {
		b.WriteString(" (")
		b.WriteString(e.Path)
		b.WriteByte(')')
	}
	if e.Symbol != "" {
		b.WriteString(" symbol ")
		b.WriteString(e.Symbol)
	}
	switch {
	case e.Status == modhost.StatusTrap && e.Cause != nil:
		b.WriteString(" trapped")
	case e.Status != modhost.StatusOK:
		b.WriteString(" status ")
		b.WriteString(e.Status.String())
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Module sets the logical module name
func (b *Builder) Module(name string) *Builder {
	b.err.Module = name
	return b
}

// Path sets the library file path
func (b *Builder) Path(path string) *Builder {
	b.err.Path = path
	return b
}

// Symbol sets the export name
func (b *Builder) Symbol(name string) *Builder {
	b.err.Symbol = name
	return b
}

// Status sets the module-reported status code
func (b *Builder) Status(s modhost.Status) *Builder {
	b.err.Status = s
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Load creates a library loading error
func Load(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseOpen,
		Kind:   KindLoad,
		Path:   path,
		Detail: "open library",
		Cause:  cause,
	}
}

// SymbolResolution creates an error for a required export that is missing
func SymbolResolution(path, symbol string, cause error) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindSymbolResolution,
		Path:   path,
		Symbol: symbol,
		Detail: fmt.Sprintf("required export %q not found", symbol),
		Cause:  cause,
	}
}

// SignatureMismatch creates an error for an export whose signature differs
// from the module contract
func SignatureMismatch(path, symbol, want, got string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindSymbolResolution,
		Path:   path,
		Symbol: symbol,
		Detail: fmt.Sprintf("signature mismatch: want %s, got %s", want, got),
	}
}

// OnLoad creates an initialization failure error
func OnLoad(module string, status modhost.Status, cause error) *Error {
	return &Error{
		Phase:  PhaseInitialize,
		Kind:   KindOnLoad,
		Module: module,
		Status: status,
		Cause:  cause,
	}
}

// OnUnload creates a teardown failure error
func OnUnload(module string, status modhost.Status, cause error) *Error {
	return &Error{
		Phase:  PhaseShutdown,
		Kind:   KindOnUnload,
		Module: module,
		Status: status,
		Cause:  cause,
	}
}

// Update creates a per-frame failure error
func Update(module string, status modhost.Status, cause error) *Error {
	return &Error{
		Phase:  PhaseUpdate,
		Kind:   KindUpdate,
		Module: module,
		Status: status,
		Cause:  cause,
	}
}

// Reload creates an artifact install error
func Reload(path, detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseReload,
		Kind:   KindReload,
		Path:   path,
		Detail: detail,
		Cause:  cause,
	}
}

// Close creates an unmap failure error
func Close(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseShutdown,
		Kind:   KindClose,
		Path:   path,
		Detail: "close library",
		Cause:  cause,
	}
}

// Misuse creates an error for a lifecycle call made out of order by the host
func Misuse(phase Phase, module, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMisuse,
		Module: module,
		Detail: detail,
	}
}

// StatusOf returns the module-reported status carried by err, if any.
func StatusOf(err error) (modhost.Status, bool) {
	var e *Error
	if !stderrors.As(err, &e) || e.Status == modhost.StatusOK {
		return modhost.StatusOK, false
	}
	return e.Status, true
}

// SymbolOf returns the export name carried by a resolution error.
func SymbolOf(err error) string {
	var e *Error
	if !stderrors.As(err, &e) {
		return ""
	}
	return e.Symbol
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if !stderrors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// UnresolvedImport represents a single import a module needs from the host
type UnresolvedImport struct {
	Module   string // e.g., "env"
	Function string // e.g., "host_log"
}

// UnresolvedImportsError is returned when a module imports functions the
// host does not provide
type UnresolvedImportsError struct {
	Imports []UnresolvedImport
}

// NewUnresolvedImportsError creates an error from a list of "module#function" strings
func NewUnresolvedImportsError(imports []string) *UnresolvedImportsError {
	result := &UnresolvedImportsError{
		Imports: make([]UnresolvedImport, 0, len(imports)),
	}
	for _, imp := range imports {
		mod, fn := parseImportKey(imp)
		result.Imports = append(result.Imports, UnresolvedImport{
			Module:   mod,
			Function: fn,
		})
	}
	return result
}

func parseImportKey(key string) (module, function string) {
	mod, fn, found := strings.Cut(key, "#")
	if found {
		return mod, fn
	}
	return key, ""
}

func (e *UnresolvedImportsError) Error() string {
	if len(e.Imports) == 0 {
		return "unresolved imports: none specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%d unresolved import(s):\n", len(e.Imports)))

	// Group by module for cleaner output
	byModule := make(map[string][]string)
	var order []string
	for _, imp := range e.Imports {
		if _, exists := byModule[imp.Module]; !exists {
			order = append(order, imp.Module)
		}
		byModule[imp.Module] = append(byModule[imp.Module], imp.Function)
	}

	for _, mod := range order {
		b.WriteString("\n  ")
		b.WriteString(mod)
		b.WriteString(":\n")
		for _, fn := range byModule[mod] {
			b.WriteString("    - ")
			b.WriteString(fn)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *UnresolvedImportsError) Is(target error) bool {
	_, ok := target.(*UnresolvedImportsError)
	return ok
}
