// Package emit implements the Emitter: the final walk over every
// section's bytecodes in Object-declared order, materializing bytes (or,
// for Reserve content, reporting a gap) and adapting the object format's
// emit_value/emit_reloc callback protocol into the arch package's
// callback shape.
//
// The teacher has no separate emission phase: assembleDC/assembleDS/
// assembleAlign/assembleIncbin (ie64asm.go:1744-1999) write straight into
// the program buffer as they're parsed. This package generalizes that
// single combined parse-and-emit step into the dedicated final pass a
// two-phase (size-then-emit) pipeline needs, grounded on spec.md §4.6.
package emit

import (
	"fmt"

	"github.com/intuitionamiga/ieasm/arch"
	"github.com/intuitionamiga/ieasm/bytecode"
	"github.com/intuitionamiga/ieasm/expr"
	"github.com/intuitionamiga/ieasm/objfmt"
	"github.com/intuitionamiga/ieasm/section"
)

// Sink receives the Emitter's output: materialized bytes at a section-
// relative offset, or a gap length for content (Reserve) that never
// produces real bytes.
type Sink interface {
	WriteBytes(sectionName string, offset uint64, data []byte) error
	WriteGap(sectionName string, offset uint64, length int) error
}

// UnresolvedMultipleError is returned when a bytecode's multiple
// expression never folded to a concrete integer by emit time, which
// should not happen if Optimize already succeeded since EffectiveLen
// requires the same fold. A multiple that folded to a negative integer
// does not raise this error; that bytecode emits nothing.
type UnresolvedMultipleError struct {
	Section string
	Index   int
}

func (e *UnresolvedMultipleError) Error() string {
	return fmt.Sprintf("emit: section %q bytecode %d: multiple did not resolve to a concrete integer", e.Section, e.Index)
}

// Emitter walks sections in the order given and writes every bytecode's
// content to sink.
type Emitter struct {
	Arch   arch.Arch
	Format objfmt.Format
}

// New builds an Emitter bound to the given architecture and object
// format collaborators.
func New(a arch.Arch, format objfmt.Format) *Emitter {
	return &Emitter{Arch: a, Format: format}
}

// Run walks every section's bytecodes in append order and emits each one
// to sink.
func (e *Emitter) Run(sections []*section.Section, sink Sink) error {
	for _, s := range sections {
		for _, bc := range s.All() {
			if err := e.emitOne(s, bc, sink); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Emitter) emitOne(s *section.Section, bc *bytecode.Bytecode, sink Sink) error {
	base, _ := bc.Offset()

	if bc.SpecialKind() == bytecode.KindReservation {
		eff, err := bc.EffectiveLen()
		if err != nil {
			return err
		}
		return sink.WriteGap(s.Name(), base, eff)
	}

	mult, ok := bc.ConstantMultiple()
	if !ok {
		return &UnresolvedMultipleError{Section: s.Name(), Index: bc.Index()}
	}
	unitLen := bc.TotalLen()
	for i := 0; i < mult; i++ {
		buf := make([]byte, unitLen)
		emitValue, emitReloc := e.callbacks(s, base+uint64(i*unitLen))
		if err := bc.Emit(buf, emitValue, emitReloc); err != nil {
			return err
		}
		if err := sink.WriteBytes(s.Name(), base+uint64(i*unitLen), buf); err != nil {
			return err
		}
	}
	return nil
}

// callbacks builds one emit_value/emit_reloc pair for a single unit of
// one bytecode's emission, tracking a running cursor so a relocation's
// recorded offset reflects its actual position within the unit: every
// content variant that calls these callbacks does so in strictly
// increasing, non-overlapping destination order (Data/LEB128 walk their
// value list left to right), so the cursor needs no more bookkeeping than
// "advance by how many bytes were just written".
func (e *Emitter) callbacks(s *section.Section, unitBase uint64) (arch.EmitValueFunc, arch.EmitRelocFunc) {
	cursor := 0
	emitValue := func(value *expr.Expr, dest []byte, warnMode int) error {
		err := e.Format.EmitValue(value, dest, e.Arch.ByteOrder(), warnMode)
		cursor += len(dest)
		return err
	}
	emitReloc := func(sym expr.SymbolRef, dest []byte, valueSizeBits int, warnMode int) error {
		off := unitBase + uint64(cursor)
		err := e.Format.EmitReloc(sym, dest, valueSizeBits, warnMode)
		s.AddReloc(section.Reloc{Offset: off, Symbol: sym.SymbolName()})
		cursor += len(dest)
		return err
	}
	return emitValue, emitReloc
}
