// Package section implements the ordered bytecode container Sections in
// an Object own: append-only sequence, per-member alignment tracking,
// and virtual base bookkeeping. The teacher has no section abstraction
// at all (assembler/ie64asm.go assembles into one flat program buffer),
// so this package is a genuine addition generalizing that single
// implicit section into the named, attributed kind this core requires.
package section

import (
	"fmt"

	"github.com/intuitionamiga/ieasm/bytecode"
)

// Attrs classifies a section for the object format's header generation;
// apart from comparing Attrs in Equal, the core itself reads only
// Absolute (Reserve contents are reported as gaps in every section, BSS
// or not), to enforce the rule that an absolute section (yasm's "absolute" block, a symbol-table
// fixture rather than real output) may only ever contain Reserve
// bytecodes. Enforcement lives in Object's factory layer, the only path
// through which bytecodes are constructed, rather than here: Section
// stays a generic ordered container with no content-kind policy of its
// own.
type Attrs struct {
	Code     bool
	ReadOnly bool
	BSS      bool
	Absolute bool
}

// Equal reports whether two Attrs describe the same section
// classification, used by Object.GetOrCreateSection to detect a
// conflicting re-declaration.
func (a Attrs) Equal(b Attrs) bool {
	return a.Code == b.Code && a.ReadOnly == b.ReadOnly && a.BSS == b.BSS && a.Absolute == b.Absolute
}

// Reloc is one relocation produced into this section by the emitter.
type Reloc struct {
	Offset uint64
	Symbol string
	Kind   int // format-specific, never inspected by the core
}

// Section is an ordered, append-only sequence of bytecodes.
type Section struct {
	name      string
	attrs     Attrs
	virtBase  uint64
	alignment int // highest per-member alignment observed, in bytes
	maxSize   int // 0 means unbounded

	bytecodes []*bytecode.Bytecode
	relocs    []Reloc
}

// New creates an empty section with the given name, attributes, and
// virtual base address.
func New(name string, attrs Attrs, virtBase uint64) *Section {
	return &Section{name: name, attrs: attrs, virtBase: virtBase, alignment: 1}
}

func (s *Section) Name() string     { return s.name }
func (s *Section) Attrs() Attrs     { return s.attrs }
func (s *Section) VirtBase() uint64 { return s.virtBase }

// MaxSize is the section's declared maximum byte length, 0 meaning
// unbounded. SetMaxSize sets it; optimizer.Run fails with a
// SectionOverflowError when a converged size exceeds a non-zero maximum.
func (s *Section) MaxSize() int     { return s.maxSize }
func (s *Section) SetMaxSize(n int) { s.maxSize = n }

// Alignment reports the highest per-member alignment observed via
// Append, defaulting to 1 (no constraint) for a section with no aligned
// members.
func (s *Section) Alignment() int { return s.alignment }

// Append adds bc to the end of the section and returns its index. memberAlign
// is the alignment this particular bytecode demands (1 if none); it folds
// into the section's tracked effective alignment via max, never shrinking it.
func (s *Section) Append(bc *bytecode.Bytecode, memberAlign int) int {
	idx := len(s.bytecodes)
	bc.SetSection(s.name)
	bc.SetIndex(idx)
	s.bytecodes = append(s.bytecodes, bc)
	if memberAlign > s.alignment {
		s.alignment = memberAlign
	}
	return idx
}

// First returns the first bytecode, or nil if the section is empty.
func (s *Section) First() *bytecode.Bytecode {
	if len(s.bytecodes) == 0 {
		return nil
	}
	return s.bytecodes[0]
}

// Next returns the bytecode following index, or nil past the end.
func (s *Section) Next(index int) *bytecode.Bytecode {
	if index+1 >= len(s.bytecodes) {
		return nil
	}
	return s.bytecodes[index+1]
}

// BytecodeAt returns the bytecode at index, or an error if out of range.
func (s *Section) BytecodeAt(index int) (*bytecode.Bytecode, error) {
	if index < 0 || index >= len(s.bytecodes) {
		return nil, fmt.Errorf("section %q: bytecode index %d out of range (len %d)", s.name, index, len(s.bytecodes))
	}
	return s.bytecodes[index], nil
}

// Len returns the number of bytecodes appended so far.
func (s *Section) Len() int { return len(s.bytecodes) }

// All returns the bytecodes in append order. Callers must not mutate the
// returned slice; removal never occurs so its length is stable across a
// single assembly pass.
func (s *Section) All() []*bytecode.Bytecode { return s.bytecodes }

// AddReloc records a relocation produced into this section by the
// emitter.
func (s *Section) AddReloc(r Reloc) { s.relocs = append(s.relocs, r) }

// Relocs returns every relocation recorded into this section so far.
func (s *Section) Relocs() []Reloc { return s.relocs }
