// Package symtab implements the symbol table: named references with
// deferred definition, label/equ/extern/common variants, and the
// define-once invariant.
//
// The teacher's IE64Assembler keeps three flat maps — labels, equates,
// sets (assembler/ie64asm.go:210-212) — each holding only the one kind of
// value its name implies, with no shared state-transition or redefinition
// check across them (an EQU can silently alias a label name). This
// package generalizes that into a single Symbol type with one state per
// name, so redefinition is checked uniformly regardless of variant.
package symtab

import (
	"fmt"

	"github.com/intuitionamiga/ieasm/expr"
	"github.com/intuitionamiga/ieasm/loc"
)

// State is the symbol's current definition variant.
type State int

const (
	StateUndefined State = iota
	StateEqu
	StateLabel
	StateCommon
	StateExtern
	StateAbsolute // absolute-section-relative: bound to an Expr in an absolute block
)

func (s State) String() string {
	switch s {
	case StateUndefined:
		return "undefined"
	case StateEqu:
		return "equ"
	case StateLabel:
		return "label"
	case StateCommon:
		return "common"
	case StateExtern:
		return "extern"
	case StateAbsolute:
		return "absolute"
	default:
		return "unknown"
	}
}

// Visibility controls symbol emission scope.
type Visibility int

const (
	VisLocal Visibility = iota
	VisGlobal
	VisWeak
)

// TypeKind classifies what a symbol names, mirroring ELF/COFF st_type.
type TypeKind int

const (
	TypeNotype TypeKind = iota
	TypeObject
	TypeFunction
)

// SourceRef is an opaque handle into the external lexer/parser's source
// location tracking; the core never inspects it, only threads it through
// diagnostics.
type SourceRef interface{}

// Common carries the extra attributes of a `common` declaration: size and
// alignment, plus yasm's nobase flag for aligned-common blocks that never
// receive a base-relative offset.
type Common struct {
	Size   *expr.Expr
	Align  *expr.Expr
	NoBase bool
}

// Symbol is a name plus a state variant and shared attributes.
type Symbol struct {
	name string
	state State

	equValue   *expr.Expr
	label      loc.Location
	common     Common
	absValue   *expr.Expr

	visibility Visibility
	typeKind   TypeKind
	size       *expr.Expr

	defSource SourceRef
	useSource SourceRef
	hasUse    bool

	assocData map[interface{}]interface{}
}

// SymbolName implements expr.SymbolRef so a *Symbol can be used directly
// as an Expr leaf term.
func (s *Symbol) SymbolName() string { return s.name }

// Name returns the symbol's name.
func (s *Symbol) Name() string { return s.name }

// State returns the current definition state.
func (s *Symbol) State() State { return s.state }

// SymbolRedefinition is returned when a second, non-identical definition
// is attempted for an already-defined symbol.
type SymbolRedefinition struct {
	Name string
	From State
	To   State
}

func (e *SymbolRedefinition) Error() string {
	return fmt.Sprintf("symtab: symbol %q already defined as %s, cannot redefine as %s", e.Name, e.From, e.To)
}

// ErrSpecialSymbol is returned when code attempts to redefine a
// pre-registered special symbol.
type ErrSpecialSymbol struct{ Name string }

func (e *ErrSpecialSymbol) Error() string {
	return fmt.Sprintf("symtab: %q is a special symbol and cannot be redefined", e.Name)
}

// Table is the symbol table owned exclusively by one Object.
type Table struct {
	byName  map[string]*Symbol
	special map[string]bool
}

// New creates an empty table.
func New() *Table {
	return &Table{byName: make(map[string]*Symbol), special: make(map[string]bool)}
}

// LookupOrCreate is idempotent: repeated calls with the same name return
// the same handle.
func (t *Table) LookupOrCreate(name string) *Symbol {
	if s, ok := t.byName[name]; ok {
		return s
	}
	s := &Symbol{name: name, state: StateUndefined, assocData: make(map[interface{}]interface{})}
	t.byName[name] = s
	return s
}

// Lookup returns the symbol if it exists, without creating it.
func (t *Table) Lookup(name string) (*Symbol, bool) {
	s, ok := t.byName[name]
	return s, ok
}

// RegisterSpecial pre-registers a special symbol (section-start, assembly
// position, ...) that can never be redefined by user code.
func (t *Table) RegisterSpecial(name string, s *Symbol) {
	t.byName[name] = s
	t.special[name] = true
}

// All returns every symbol in the table, for iteration by the emitter or
// an object-format writer (deterministic by insertion is not guaranteed;
// callers needing determinism should sort by Name()).
func (t *Table) All() []*Symbol {
	out := make([]*Symbol, 0, len(t.byName))
	for _, s := range t.byName {
		out = append(out, s)
	}
	return out
}

func (t *Table) checkRedefinable(s *Symbol) error {
	if t.special[s.name] {
		return &ErrSpecialSymbol{Name: s.name}
	}
	return nil
}

// DefineLabel binds the symbol to a Location. A redefinition to an
// identical Location is accepted (idempotent re-declaration); any other
// prior state, or a different Location, fails.
func (t *Table) DefineLabel(s *Symbol, at loc.Location, src SourceRef) error {
	if err := t.checkRedefinable(s); err != nil {
		return err
	}
	if s.state == StateUndefined {
		s.state = StateLabel
		s.label = at
		s.defSource = src
		return nil
	}
	if s.state == StateLabel && s.label.Equal(at) {
		return nil
	}
	return &SymbolRedefinition{Name: s.name, From: s.state, To: StateLabel}
}

// DefineEqu binds the symbol to an Expr re-evaluated at each dereference.
// A redefinition with a structurally identical (post-simplification)
// right-hand side is accepted; anything else fails.
func (t *Table) DefineEqu(s *Symbol, value *expr.Expr, src SourceRef) error {
	if err := t.checkRedefinable(s); err != nil {
		return err
	}
	if s.state == StateUndefined {
		s.state = StateEqu
		s.equValue = value
		s.defSource = src
		return nil
	}
	if s.state == StateEqu && exprEqualEnough(s.equValue, value) {
		return nil
	}
	return &SymbolRedefinition{Name: s.name, From: s.state, To: StateEqu}
}

// DefineAbsolute binds the symbol to an Expr inside an absolute section
// block.
func (t *Table) DefineAbsolute(s *Symbol, value *expr.Expr, src SourceRef) error {
	if err := t.checkRedefinable(s); err != nil {
		return err
	}
	if s.state == StateUndefined {
		s.state = StateAbsolute
		s.absValue = value
		s.defSource = src
		return nil
	}
	if s.state == StateAbsolute && exprEqualEnough(s.absValue, value) {
		return nil
	}
	return &SymbolRedefinition{Name: s.name, From: s.state, To: StateAbsolute}
}

func exprEqualEnough(a, b *expr.Expr) bool {
	sa, err1 := a.Clone().Simplify(expr.Options{})
	sb, err2 := b.Clone().Simplify(expr.Options{})
	if err1 != nil || err2 != nil {
		return false
	}
	return sa.Equal(sb)
}

// DeclareExtern marks the symbol as declared-but-external.
func (t *Table) DeclareExtern(s *Symbol, src SourceRef) error {
	if err := t.checkRedefinable(s); err != nil {
		return err
	}
	if s.state == StateUndefined {
		s.state = StateExtern
		s.defSource = src
		return nil
	}
	if s.state == StateExtern {
		return nil
	}
	return &SymbolRedefinition{Name: s.name, From: s.state, To: StateExtern}
}

// DeclareCommon declares a common symbol with the given size and
// alignment.
func (t *Table) DeclareCommon(s *Symbol, c Common, src SourceRef) error {
	if err := t.checkRedefinable(s); err != nil {
		return err
	}
	if s.state == StateUndefined {
		s.state = StateCommon
		s.common = c
		s.defSource = src
		return nil
	}
	if s.state == StateCommon {
		return nil
	}
	return &SymbolRedefinition{Name: s.name, From: s.state, To: StateCommon}
}

// Use records the first-use source location; monotonic, earliest wins.
func (s *Symbol) Use(src SourceRef) {
	if !s.hasUse {
		s.useSource = src
		s.hasUse = true
	}
}

func (s *Symbol) UseSource() (SourceRef, bool) { return s.useSource, s.hasUse }
func (s *Symbol) DefSource() SourceRef         { return s.defSource }

// Visibility get/set.
func (s *Symbol) Visibility() Visibility        { return s.visibility }
func (s *Symbol) SetVisibility(v Visibility)    { s.visibility = v }
func (s *Symbol) TypeKind() TypeKind            { return s.typeKind }
func (s *Symbol) SetTypeKind(k TypeKind)        { s.typeKind = k }
func (s *Symbol) Size() *expr.Expr              { return s.size }
func (s *Symbol) SetSize(e *expr.Expr)          { s.size = e }
func (s *Symbol) Common() (Common, bool)        { c := s.common; return c, s.state == StateCommon }

// AssocData is the arbitrary per-symbol side table object formats use to
// stash format-specific metadata without the symbol table knowing about
// them, grounded on yasm's AssocDataContainer.
func (s *Symbol) AssocData(key interface{}) (interface{}, bool) {
	v, ok := s.assocData[key]
	return v, ok
}

func (s *Symbol) SetAssocData(key, value interface{}) {
	s.assocData[key] = value
}

// Value is the result of resolving a symbol against the current state of
// the assembly.
type Value struct {
	// Kind is one of ValueInt, ValueLocation, ValueUnresolved.
	Kind     ValueKind
	Int      *expr.Expr // fully-simplified Expr wrapping a BigInt leaf
	Location loc.Location
	Symbol   *Symbol // set when Kind == ValueUnresolved
}

type ValueKind int

const (
	ValueUnresolved ValueKind = iota
	ValueInt
	ValueLocation
)

// ResolveValue returns a Value variant: concrete integer for a fully
// resolved equ, Location for labels, or "unresolved symbolic" otherwise.
func (s *Symbol) ResolveValue(opts expr.Options) (Value, error) {
	switch s.state {
	case StateLabel:
		return Value{Kind: ValueLocation, Location: s.label}, nil
	case StateAbsolute, StateEqu:
		e := s.equValue
		if s.state == StateAbsolute {
			e = s.absValue
		}
		se, err := e.Clone().Simplify(opts)
		if err != nil {
			return Value{}, err
		}
		if _, ok := se.AsInt(); ok {
			return Value{Kind: ValueInt, Int: se}, nil
		}
		if l, ok := se.AsLocation(); ok {
			return Value{Kind: ValueLocation, Location: l}, nil
		}
		return Value{Kind: ValueUnresolved, Symbol: s}, nil
	default:
		return Value{Kind: ValueUnresolved, Symbol: s}, nil
	}
}
