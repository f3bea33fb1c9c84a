// Package directive implements the named-handler dispatch surface
// parsers use to invoke pseudo-ops (section, global, equ, ...) against an
// Object, modelled on yasm's Directive.h/NameValue.h.
package directive

import (
	"fmt"

	"github.com/intuitionamiga/ieasm/expr"
)

// ValueKind tags what a NameValue's value actually holds.
type ValueKind int

const (
	ValueIdent ValueKind = iota // identifier, optionally raw-id-prefixed
	ValueString
	ValueExpr
)

// NameValue is one (optional name, value) pair as parsed from a
// directive's argument list.
type NameValue struct {
	Name     string // empty if positional
	Kind     ValueKind
	Ident    string
	RawIdent bool // true if the identifier carried the raw-id sigil
	Str      string
	Expr     *expr.Expr
}

// SymbolResolver promotes a raw identifier to a symbol reference; owned by
// whichever Object implementation calls into this package, avoiding a
// directive->object import cycle.
type SymbolResolver interface {
	ResolveIdent(name string) (expr.SymbolRef, error)
}

// AsExpr promotes an identifier NameValue to a symbol-leaf Expr via sr, or
// returns the value directly if it already is one.
func (nv NameValue) AsExpr(sr SymbolResolver) (*expr.Expr, error) {
	switch nv.Kind {
	case ValueExpr:
		return nv.Expr, nil
	case ValueIdent:
		sym, err := sr.ResolveIdent(nv.Ident)
		if err != nil {
			return nil, err
		}
		return expr.SymbolLeaf(sym), nil
	default:
		return nil, fmt.Errorf("directive: value is a string, not convertible to Expr")
	}
}

// AsString returns the value as a raw string: an identifier is returned
// verbatim (not symbol-resolved), a string literal is returned unescaped.
func (nv NameValue) AsString() (string, error) {
	switch nv.Kind {
	case ValueIdent:
		return nv.Ident, nil
	case ValueString:
		return nv.Str, nil
	default:
		return "", fmt.Errorf("directive: value is an Expr, not convertible to string")
	}
}

// AsID strips the raw-identifier sigil (if present) and returns the bare
// name; fails if the value is not an identifier.
func (nv NameValue) AsID() (string, error) {
	if nv.Kind != ValueIdent {
		return "", fmt.Errorf("directive: value is not an identifier")
	}
	return nv.Ident, nil
}

// Flags gate pre-call validation of a directive's argument list.
type Flags int

const (
	FlagAny            Flags = 0
	FlagArgRequired    Flags = 1 << iota
	FlagFirstMustBeID
)

// Info is what a Handler receives: the object-facing context plus the
// parsed positional and extended ("objext") argument lists.
type Info struct {
	Object           ObjectContext
	NameValues       []NameValue
	ObjextNameValues []NameValue
	Source           interface{}
}

// ObjectContext is the minimal view of an Object a Handler needs;
// *object.Object implements this structurally, avoiding a
// directive->object import cycle.
type ObjectContext interface {
	SymbolResolver
	CurrentSectionName() string
	SetCurrentSection(name string) error
}

// Handler processes one directive invocation.
type Handler func(info Info) error

// entry pairs a Handler with its pre-call validation flags.
type entry struct {
	handler Handler
	flags   Flags
}

// ErrUnknownDirective is returned by Manager.Lookup when no handler is
// registered for (name, parserKeyword).
type ErrUnknownDirective struct {
	Name          string
	ParserKeyword string
}

func (e *ErrUnknownDirective) Error() string {
	return fmt.Sprintf("directive: unknown directive %q for parser keyword %q", e.Name, e.ParserKeyword)
}

// ErrArgError is returned when an invocation fails Flags validation.
type ErrArgError struct {
	Name   string
	Reason string
}

func (e *ErrArgError) Error() string {
	return fmt.Sprintf("directive: %q: %s", e.Name, e.Reason)
}

// Manager maps (name, parser_keyword) to one handler, mirroring
// yasm's DirectiveManager.
type Manager struct {
	byKey map[string]entry
}

func New() *Manager {
	return &Manager{byKey: make(map[string]entry)}
}

func key(name, parserKeyword string) string { return parserKeyword + "\x00" + name }

// Register installs h under (name, parserKeyword). A later call for the
// same key replaces the earlier one, matching yasm's directive-table
// override semantics for parser-specific spellings of the same pseudo-op.
func (m *Manager) Register(name, parserKeyword string, flags Flags, h Handler) {
	m.byKey[key(name, parserKeyword)] = entry{handler: h, flags: flags}
}

// Lookup resolves (name, parserKeyword) to a handler, or
// ErrUnknownDirective.
func (m *Manager) Lookup(name, parserKeyword string) (Handler, Flags, error) {
	e, ok := m.byKey[key(name, parserKeyword)]
	if !ok {
		return nil, 0, &ErrUnknownDirective{Name: name, ParserKeyword: parserKeyword}
	}
	return e.handler, e.flags, nil
}

// Call validates info against the registered flags and invokes the
// handler.
func (m *Manager) Call(name, parserKeyword string, info Info) error {
	h, flags, err := m.Lookup(name, parserKeyword)
	if err != nil {
		return err
	}
	if flags&FlagArgRequired != 0 && len(info.NameValues) == 0 {
		return &ErrArgError{Name: name, Reason: "at least one argument is required"}
	}
	if flags&FlagFirstMustBeID != 0 {
		if len(info.NameValues) == 0 || info.NameValues[0].Kind != ValueIdent {
			return &ErrArgError{Name: name, Reason: "first argument must be an identifier"}
		}
	}
	return h(info)
}
