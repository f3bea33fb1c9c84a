// Package objfmt declares the capability interface a concrete
// object-format writer (ELF, COFF, Mach-O, ...) supplies to the core.
// Concrete writers are out of scope for this module (spec §1); only the
// interface the emitter depends on lives here.
package objfmt

import (
	"io"

	"github.com/intuitionamiga/ieasm/arch"
	"github.com/intuitionamiga/ieasm/expr"
)

// SectionPolicy tells the core which standard section names an object
// format predefines and how each should be classified.
type SectionPolicy struct {
	// Predefined lists section names the format wants present even if the
	// source never references them (e.g. ".text", ".data", ".bss").
	Predefined []string
	// IsCode/IsBSS classify a section name for the format's own header
	// generation; the core itself is attribute-agnostic beyond what
	// Section.Attrs already records.
	IsCode func(name string) bool
	IsBSS  func(name string) bool
}

// Format is the object-format collaborator the Emitter delegates value
// placement and relocation recording to.
type Format interface {
	// Name identifies the format (for diagnostics).
	Name() string

	// SectionPolicy reports this format's section naming conventions.
	SectionPolicy() SectionPolicy

	// EmitValue evaluates value against final offsets; if it resolves to
	// a concrete BigInt it is packed into dest using byteOrder, warning
	// per warnMode on truncation. If it is still symbolic, the format is
	// expected to call back into EmitReloc itself (the emitter does not
	// do this on the format's behalf, since only the format knows its
	// addend conventions).
	EmitValue(value *expr.Expr, dest []byte, byteOrder arch.ByteOrder, warnMode int) error

	// EmitReloc records a relocation against the given symbol at dest's
	// position within the bytecode currently being emitted, tagged with
	// a format-specific relocation kind the core never inspects.
	EmitReloc(sym expr.SymbolRef, dest []byte, valueSizeBits int, warnMode int) error

	// Write serializes the fully-emitted object to sink. Out of scope:
	// this module ships no concrete implementation of Write.
	Write(sink io.Writer) error
}
