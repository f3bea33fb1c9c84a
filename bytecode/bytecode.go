// Package bytecode implements the polymorphic emission unit: a tagged
// sum of content variants (Data, LEB128, Reserve, Align, Org, Incbin,
// Instruction, Fill) sharing the finalize/calc_len/expand/emit protocol
// the optimizer and emitter drive.
//
// The teacher's assembler/ie64asm.go has no bytecode abstraction at all —
// assembleDC, assembleDS, assembleAlign and assembleIncbin each write
// bytes straight into a flat program buffer during a single evaluation
// pass. This package generalizes those four functions (plus the
// instruction encoder) into the two-phase sizing protocol a span-driven
// optimizer needs, keeping each variant's byte-layout logic recognizably
// close to its teacher counterpart.
package bytecode

import (
	"fmt"

	"github.com/intuitionamiga/ieasm/arch"
	"github.com/intuitionamiga/ieasm/bigint"
	"github.com/intuitionamiga/ieasm/expr"
)

// SpecialKind classifies a content variant for the optimizer/emitter
// paths that need to special-case one of three content shapes.
type SpecialKind int

const (
	KindNone SpecialKind = iota
	KindReservation
	KindOrigin
	KindInstruction
)

// AddSpanFunc is supplied to CalcLen so a content variant can register a
// length-dependency edge on a location-difference or symbol-relative
// Expr. Positive ids mean "expand only outside the threshold window";
// negative ids mean "expand on every change".
type AddSpanFunc func(id int, dependent *expr.Expr, negThres, posThres int64)

// FinalizeContext carries what Finalize needs to resolve parse-time
// Exprs: the simplification options in effect for this assembly, plus
// the symbol-resolution callback the owning Object supplies so content
// Finalize methods can replace Symbol terms with their current value
// without this package importing symtab.
type FinalizeContext struct {
	Opts    expr.Options
	Resolve expr.SymbolResolveFunc
}

// ResolveAndSimplify is the two-step normalization every content
// Finalize method runs on a parse-time Expr: replace symbol references
// with their current value, then apply the algebraic rewrite pipeline.
// Resolve may be nil (no symbol table wired up yet, e.g. in tests), in
// which case only Simplify runs.
func (ctx FinalizeContext) ResolveAndSimplify(e *expr.Expr) (*expr.Expr, error) {
	if ctx.Resolve != nil {
		re, err := expr.ResolveSymbols(e, ctx.Resolve)
		if err != nil {
			return nil, err
		}
		e = re
	}
	return e.Simplify(ctx.Opts)
}

// ErrUnresolvedSymbol is returned by Finalize when a field that must be
// concrete at finalize time (an org target, an align boundary, a reserve
// count) still contains an unresolved symbol.
type ErrUnresolvedSymbol struct {
	Field string
}

func (e *ErrUnresolvedSymbol) Error() string {
	return fmt.Sprintf("bytecode: %s must resolve to a concrete value at finalize time", e.Field)
}

// Content is the shared protocol every bytecode variant implements.
type Content interface {
	Finalize(bc *Bytecode, ctx FinalizeContext) error
	CalcLen(bc *Bytecode, addSpan AddSpanFunc) (int, error)
	Expand(bc *Bytecode, spanID int, oldVal, newVal int64) (keep bool, negThres, posThres int64, delta int, err error)
	Emit(bc *Bytecode, out []byte, emitValue arch.EmitValueFunc, emitReloc arch.EmitRelocFunc) error
	SpecialKind() SpecialKind
}

// Bytecode is the atomic emission unit appended to a section.
type Bytecode struct {
	content Content

	Source interface{} // opaque line-source identifier from the parser collaborator

	// Multiple is the repeat-count Expr (defaults to an Ident(1) leaf);
	// a constant multiple repeats the base emission that many times, a
	// Reserve gap is scaled instead of repeated.
	Multiple *expr.Expr

	sectionName string
	index       int

	// Fixed holds already-resolved prefix/opcode bytes an Instruction
	// content can prepend without re-deriving them on every CalcLen call.
	Fixed []byte
	// tailLen is the variable-length portion's current byte length estimate;
	// updated by CalcLen/Expand, materialized only by Emit.
	tailLen int

	offset     uint64
	offsetKnown bool

	symbols []SymbolBack
}

// SymbolBack is a weak back-reference from a bytecode to a symbol that
// points at it, maintained so diagnostics can report "defined here"
// without the symbol table scanning every bytecode.
type SymbolBack interface {
	SymbolName() string
}

// New wraps a content variant into a Bytecode with a default multiple of
// 1 and no fixed prefix.
func New(content Content, source interface{}) *Bytecode {
	return &Bytecode{
		content:  content,
		Source:   source,
		Multiple: expr.Int(bigint.One()),
	}
}

// Content returns the underlying variant for type-switches by callers
// that need variant-specific fields (the optimizer never needs this; only
// directive handlers constructing/inspecting bytecodes do).
func (bc *Bytecode) Content() Content { return bc.content }

// SetSection/Section/SetIndex/Index are set by Section.Append;
// loc.BytecodeRef is satisfied through these.
func (bc *Bytecode) SetSection(name string) { bc.sectionName = name }
func (bc *Bytecode) Section() string        { return bc.sectionName }
func (bc *Bytecode) SetIndex(i int)         { bc.index = i }
func (bc *Bytecode) Index() int             { return bc.index }

// SetOffset/Offset implement the resolved-position half of loc.BytecodeRef.
func (bc *Bytecode) SetOffset(off uint64) { bc.offset, bc.offsetKnown = off, true }
func (bc *Bytecode) Offset() (uint64, bool) {
	return bc.offset, bc.offsetKnown
}

// TailLen/SetTailLen are the optimizer's view of the variable portion's
// current length; FixedLen is len(Fixed). TotalLen is their sum.
func (bc *Bytecode) TailLen() int        { return bc.tailLen }
func (bc *Bytecode) SetTailLen(n int)    { bc.tailLen = n }
func (bc *Bytecode) FixedLen() int       { return len(bc.Fixed) }
func (bc *Bytecode) TotalLen() int       { return bc.FixedLen() + bc.tailLen }

// AddSymbolBack records a weak back-reference from this bytecode to a
// symbol that points at it.
func (bc *Bytecode) AddSymbolBack(s SymbolBack) { bc.symbols = append(bc.symbols, s) }
func (bc *Bytecode) SymbolBacks() []SymbolBack  { return bc.symbols }

// Finalize, CalcLen, Expand, Emit, SpecialKind delegate to the content,
// threading the receiver through so content code can read/write Fixed
// and the multiple Expr.
func (bc *Bytecode) Finalize(ctx FinalizeContext) error {
	m, err := ctx.ResolveAndSimplify(bc.Multiple.Clone())
	if err != nil {
		return err
	}
	bc.Multiple = m
	return bc.content.Finalize(bc, ctx)
}

// EffectiveLen is TotalLen repeated bc.Multiple times; it fails if the
// multiple has not folded to a concrete non-negative integer by the time
// it's called (which Finalize guarantees for every bytecode the
// optimizer walks).
func (bc *Bytecode) EffectiveLen() (int, error) {
	n, ok := bc.ConstantMultiple()
	if !ok {
		return 0, fmt.Errorf("bytecode: multiple expression did not resolve to a concrete integer")
	}
	if n < 0 {
		return 0, fmt.Errorf("bytecode: multiple %d is negative", n)
	}
	return n * bc.TotalLen(), nil
}

func (bc *Bytecode) CalcLen(addSpan AddSpanFunc) (int, error) {
	return bc.content.CalcLen(bc, addSpan)
}

func (bc *Bytecode) Expand(spanID int, oldVal, newVal int64) (bool, int64, int64, int, error) {
	return bc.content.Expand(bc, spanID, oldVal, newVal)
}

func (bc *Bytecode) Emit(out []byte, emitValue arch.EmitValueFunc, emitReloc arch.EmitRelocFunc) error {
	return bc.content.Emit(bc, out, emitValue, emitReloc)
}

func (bc *Bytecode) SpecialKind() SpecialKind { return bc.content.SpecialKind() }

// ConstantMultiple returns the multiple's value when it has folded to a
// concrete integer, or ok=false if it is still symbolic. A negative value
// is returned as is, with ok=true; EffectiveLen is what rejects it.
func (bc *Bytecode) ConstantMultiple() (n int, ok bool) {
	v, isInt := bc.Multiple.AsInt()
	if !isInt {
		return 0, false
	}
	return int(v.Int64()), true
}
