// Package object implements the top-level aggregate: sections, the symbol
// table, the architecture handle, the directive table, and the
// current-section cursor. It generalizes the teacher's IE64Assembler
// (assembler/ie64asm.go's labels/equates/sets maps plus its
// addWarning/addError/GetWarnings diagnostics) into the owning object a
// whole assembly is built against, and supplies the symtab-backed
// expr.SymbolResolveFunc every bytecode content's Finalize needs.
package object

import (
	"fmt"

	"github.com/intuitionamiga/ieasm/arch"
	"github.com/intuitionamiga/ieasm/bytecode"
	"github.com/intuitionamiga/ieasm/directive"
	"github.com/intuitionamiga/ieasm/expr"
	"github.com/intuitionamiga/ieasm/loc"
	"github.com/intuitionamiga/ieasm/objfmt"
	"github.com/intuitionamiga/ieasm/optimizer"
	"github.com/intuitionamiga/ieasm/section"
	"github.com/intuitionamiga/ieasm/symtab"
)

// coreParserKeyword is the parser_keyword this package registers its own
// directive handlers under; an embedding driver that defines its own
// directive spellings for section/equ/global/extern/common registers
// them under its own keyword instead, leaving these as the library
// default.
const coreParserKeyword = "ieasm"

// Config controls an Object's construction, mirroring how
// NewIE64Assembler took no hidden globals: every knob the assembly needs
// is passed explicitly rather than read from a package-level default.
type Config struct {
	// Aggressive disables the bounded 1*Register simplification exception.
	Aggressive bool
	// OscillationConstant overrides the optimizer's default iteration-cap
	// multiplier; zero means use the optimizer package's default.
	OscillationConstant int
}

// Object owns every section, the symbol table, the architecture handle,
// and the directive table for one assembly.
type Object struct {
	arch   arch.Arch
	format objfmt.Format
	cfg    Config

	symbols *symtab.Table

	sections []*section.Section
	byName   map[string]*section.Section
	current  string

	directives *directive.Manager

	warnings []string
	errors   []string
}

// New constructs an empty Object over the given architecture and object
// format, pre-creating whatever sections the format declares as
// predefined (".text", ".data", ...) and leaving the cursor on the first
// one, matching yasm's behavior of always having a current section.
func New(a arch.Arch, format objfmt.Format, cfg Config) *Object {
	o := &Object{
		arch:    a,
		format:  format,
		cfg:     cfg,
		symbols: symtab.New(),
		byName:  make(map[string]*section.Section),
	}
	for _, name := range format.SectionPolicy().Predefined {
		o.getOrCreateSection(name, o.attrsFor(name))
	}
	if len(o.sections) > 0 {
		o.current = o.sections[0].Name()
	}
	o.registerDefaultDirectives()
	return o
}

// Directives returns the directive table so a driver can register its own
// parser-specific spellings alongside (or in place of) the defaults.
func (o *Object) Directives() *directive.Manager { return o.directives }

// DoDirective looks up and invokes a registered directive by name,
// building the directive.Info envelope around this Object.
func (o *Object) DoDirective(name string, nv, objextNv []directive.NameValue, source interface{}) error {
	return o.directives.Call(name, coreParserKeyword, directive.Info{
		Object:           o,
		NameValues:       nv,
		ObjextNameValues: objextNv,
		Source:           source,
	})
}

// registerDefaultDirectives installs the handful of pseudo-ops every
// assembly needs regardless of source syntax: section switching, equ
// binding, and the extern/global/common visibility declarations. Each
// closes over the concrete Object rather than routing through the
// directive.ObjectContext interface, since defining an equ or declaring a
// common symbol needs methods (DefineEqu, DeclareExtern, DeclareCommon)
// that interface deliberately omits to keep it small for third-party
// directive providers.
func (o *Object) registerDefaultDirectives() {
	o.directives = directive.New()

	o.directives.Register("section", coreParserKeyword, directive.FlagFirstMustBeID, func(info directive.Info) error {
		name, err := info.NameValues[0].AsID()
		if err != nil {
			return err
		}
		return o.SetCurrentSection(name)
	})

	o.directives.Register("equ", coreParserKeyword, directive.FlagArgRequired|directive.FlagFirstMustBeID, func(info directive.Info) error {
		name, err := info.NameValues[0].AsID()
		if err != nil {
			return err
		}
		if len(info.NameValues) < 2 {
			return &directive.ErrArgError{Name: "equ", Reason: "missing value"}
		}
		val, err := info.NameValues[1].AsExpr(o)
		if err != nil {
			return err
		}
		_, err = o.DefineEqu(name, val, info.Source)
		return err
	})

	o.directives.Register("global", coreParserKeyword, directive.FlagFirstMustBeID, func(info directive.Info) error {
		name, err := info.NameValues[0].AsID()
		if err != nil {
			return err
		}
		sym := o.symbols.LookupOrCreate(name)
		sym.SetVisibility(symtab.VisGlobal)
		return nil
	})

	o.directives.Register("extern", coreParserKeyword, directive.FlagFirstMustBeID, func(info directive.Info) error {
		name, err := info.NameValues[0].AsID()
		if err != nil {
			return err
		}
		_, err = o.DeclareExtern(name, info.Source)
		return err
	})

	o.directives.Register("common", coreParserKeyword, directive.FlagArgRequired|directive.FlagFirstMustBeID, func(info directive.Info) error {
		name, err := info.NameValues[0].AsID()
		if err != nil {
			return err
		}
		if len(info.NameValues) < 2 {
			return &directive.ErrArgError{Name: "common", Reason: "missing size"}
		}
		sizeExpr, err := info.NameValues[1].AsExpr(o)
		if err != nil {
			return err
		}
		_, err = o.DeclareCommon(name, symtab.Common{Size: sizeExpr}, info.Source)
		return err
	})
}

func (o *Object) attrsFor(name string) section.Attrs {
	pol := o.format.SectionPolicy()
	return section.Attrs{
		Code: pol.IsCode != nil && pol.IsCode(name),
		BSS:  pol.IsBSS != nil && pol.IsBSS(name),
	}
}

func (o *Object) simplifyOpts() expr.Options { return expr.Options{Aggressive: o.cfg.Aggressive} }

// Arch returns the architecture handle, for directive handlers that need
// to build Instruction content or resolve a register name.
func (o *Object) Arch() arch.Arch { return o.arch }

// Symbols returns the owned symbol table.
func (o *Object) Symbols() *symtab.Table { return o.symbols }

// --- Diagnostics ----------------------------------------------------------

// AddWarning records a non-fatal diagnostic; warnings never abort the
// assembly.
func (o *Object) AddWarning(format string, args ...interface{}) {
	o.warnings = append(o.warnings, fmt.Sprintf(format, args...))
}

// AddError records a hard diagnostic; the caller decides when to stop
// driving the parse/finalize pipeline in response.
func (o *Object) AddError(format string, args ...interface{}) {
	o.errors = append(o.errors, fmt.Sprintf(format, args...))
}

func (o *Object) Warnings() []string { return o.warnings }
func (o *Object) Errors() []string   { return o.errors }
func (o *Object) HasErrors() bool    { return len(o.errors) > 0 }

// --- Sections --------------------------------------------------------------

// GetOrCreateSection is idempotent on name: a second call with different
// attrs fails, matching spec.md §4.4's re-declaration rule.
func (o *Object) GetOrCreateSection(name string, attrs section.Attrs) (*section.Section, error) {
	if s, ok := o.byName[name]; ok {
		if !s.Attrs().Equal(attrs) {
			return nil, &SectionAttrConflict{Name: name}
		}
		return s, nil
	}
	return o.getOrCreateSection(name, attrs), nil
}

func (o *Object) getOrCreateSection(name string, attrs section.Attrs) *section.Section {
	s := section.New(name, attrs, 0)
	o.byName[name] = s
	o.sections = append(o.sections, s)
	return s
}

// SectionAttrConflict is returned when GetOrCreateSection is called twice
// for the same name with differing attributes.
type SectionAttrConflict struct{ Name string }

func (e *SectionAttrConflict) Error() string {
	return fmt.Sprintf("object: section %q already declared with different attributes", e.Name)
}

// Sections returns every section in registration order.
func (o *Object) Sections() []*section.Section { return o.sections }

// CurrentSectionName implements directive.ObjectContext.
func (o *Object) CurrentSectionName() string { return o.current }

// CurrentSection returns the section the cursor currently points at, or
// nil if no section has been created yet.
func (o *Object) CurrentSection() *section.Section {
	return o.byName[o.current]
}

// SetCurrentSection implements directive.ObjectContext: it moves the
// cursor to an already-declared section, creating it with default
// (no-attribute) classification if this is its first mention, mirroring
// how a bare `section foo` directive in most assemblers both declares and
// switches.
func (o *Object) SetCurrentSection(name string) error {
	if _, ok := o.byName[name]; !ok {
		o.getOrCreateSection(name, section.Attrs{})
	}
	o.current = name
	return nil
}

// --- Symbols ---------------------------------------------------------------

// ResolveIdent implements directive.SymbolResolver: it promotes a raw
// identifier to a symbol reference, creating an undefined placeholder on
// first mention exactly as lookup_or_create does.
func (o *Object) ResolveIdent(name string) (expr.SymbolRef, error) {
	return o.symbols.LookupOrCreate(name), nil
}

// resolveSymbol is the concrete expr.SymbolResolveFunc backing every
// bytecode content's Finalize call: a resolved equ/absolute splices in
// its value, a label splices in its Location, and anything still
// unresolved (extern, common, or an undefined symbol used before
// definition) is spliced back in as the same symbol leaf so a later
// finalize pass, the optimizer, or the emitter's emit_value/emit_reloc
// callback can each decide for themselves whether that is acceptable.
func (o *Object) resolveSymbol(ref expr.SymbolRef) (*expr.Expr, error) {
	sym, ok := ref.(*symtab.Symbol)
	if !ok {
		return nil, fmt.Errorf("object: symbol resolver given a non-symtab reference %T", ref)
	}
	v, err := sym.ResolveValue(o.simplifyOpts())
	if err != nil {
		return nil, err
	}
	switch v.Kind {
	case symtab.ValueInt:
		return v.Int, nil
	case symtab.ValueLocation:
		return expr.LocationLeaf(v.Location), nil
	default:
		return expr.SymbolLeaf(sym), nil
	}
}

// FinalizeContext builds the bytecode.FinalizeContext every optimizer run
// and ad-hoc Finalize call uses, wiring this Object's symbol resolver and
// simplify options.
func (o *Object) FinalizeContext() bytecode.FinalizeContext {
	return bytecode.FinalizeContext{Opts: o.simplifyOpts(), Resolve: o.resolveSymbol}
}

// Here appends a zero-length marker bytecode to the current section and
// returns an Expr referencing its Location, mirroring how yasm anchors
// the `$` assembly-position operator to a real (but weightless) bytecode
// rather than tracking position as a side value that could drift out of
// sync with the optimizer's offsets.
func (o *Object) Here(source interface{}) (*expr.Expr, error) {
	s := o.CurrentSection()
	if s == nil {
		return nil, fmt.Errorf("object: no current section")
	}
	marker := newPositionMarker(s, source)
	s.Append(marker, 1)
	return expr.LocationLeaf(loc.New(marker, 0)), nil
}

// newPositionMarker builds the zero-length, weightless bytecode Here and
// DefineLabel anchor a position to. Inside an Absolute section only
// Reserve content is permitted, so the marker there is a zero-count
// Reserve instead of the ordinary Fill used everywhere else — both have
// EffectiveLen 0, so the anchoring technique is unaffected.
func newPositionMarker(s *section.Section, source interface{}) *bytecode.Bytecode {
	if s.Attrs().Absolute {
		return bytecode.New(&bytecode.Reserve{Count: zeroExpr(), ItemSize: 1}, source)
	}
	return bytecode.New(&bytecode.Fill{Length: zeroExpr()}, source)
}

// DefineLabel binds name to the current assembly position via the same
// zero-length marker technique as Here, then records the label in the
// symbol table. Inside an Absolute section the binding goes through
// DefineAbsolute instead of DefineLabel, giving the symbol
// absolute-section-relative state. Every call appends its own marker, so
// a second definition of the same name always fails with
// symtab.SymbolRedefinition, even when no bytes lie between the two.
func (o *Object) DefineLabel(name string, source interface{}) (*symtab.Symbol, error) {
	s := o.CurrentSection()
	if s == nil {
		return nil, fmt.Errorf("object: no current section")
	}
	marker := newPositionMarker(s, source)
	s.Append(marker, 1)
	at := loc.New(marker, 0)

	sym := o.symbols.LookupOrCreate(name)
	if s.Attrs().Absolute {
		if err := o.symbols.DefineAbsolute(sym, expr.LocationLeaf(at), source); err != nil {
			return nil, err
		}
	} else if err := o.symbols.DefineLabel(sym, at, source); err != nil {
		return nil, err
	}
	marker.AddSymbolBack(sym)
	return sym, nil
}

// DefineEqu binds name to value, re-simplified against the current symbol
// table so self-consistent forward references between equs resolve as far
// as they can immediately.
func (o *Object) DefineEqu(name string, value *expr.Expr, source interface{}) (*symtab.Symbol, error) {
	se, err := o.FinalizeContext().ResolveAndSimplify(value.Clone())
	if err != nil {
		return nil, err
	}
	sym := o.symbols.LookupOrCreate(name)
	if err := o.symbols.DefineEqu(sym, se, source); err != nil {
		return nil, err
	}
	return sym, nil
}

// DeclareExtern marks name as declared-but-external.
func (o *Object) DeclareExtern(name string, source interface{}) (*symtab.Symbol, error) {
	sym := o.symbols.LookupOrCreate(name)
	if err := o.symbols.DeclareExtern(sym, source); err != nil {
		return nil, err
	}
	return sym, nil
}

// DeclareCommon declares name as a common symbol of the given size and
// alignment.
func (o *Object) DeclareCommon(name string, c symtab.Common, source interface{}) (*symtab.Symbol, error) {
	sym := o.symbols.LookupOrCreate(name)
	if err := o.symbols.DeclareCommon(sym, c, source); err != nil {
		return nil, err
	}
	return sym, nil
}

// --- Optimizer ---------------------------------------------------------------

// Optimize drives the optimizer's full Pass 0-3 pipeline over every
// section in registration order.
func (o *Object) Optimize() (*optimizer.Result, error) {
	return optimizer.Run(o.sections, o.FinalizeContext(), optimizer.Config{OscillationConstant: o.cfg.OscillationConstant})
}
