// Package loc defines the weak location reference shared by the expression
// engine, the symbol table and the bytecode/section model.
//
// A Location never owns the bytecode it points at: it is a (bytecode
// reference, offset-within-bytecode) pair. Keeping BytecodeRef a small
// interface here, rather than importing the bytecode package directly,
// breaks what would otherwise be an import cycle between expr (which needs
// Location as a leaf) and bytecode (which needs Expr for its content).
package loc

// BytecodeRef is the minimal view of a bytecode that a Location needs.
// *bytecode.Bytecode implements this without bytecode importing loc's
// sibling packages.
type BytecodeRef interface {
	// Section is the name of the section owning the bytecode.
	Section() string
	// Index is the bytecode's dense index within its section, assigned
	// by Section.Append.
	Index() int
	// Offset is the bytecode's resolved start offset within its section.
	// Valid only after the optimizer has converged.
	Offset() (uint64, bool)
}

// Location is a weak reference to a byte position: the bytecode that owns
// the position, plus an offset within that bytecode's own fixed portion.
type Location struct {
	BC  BytecodeRef
	Off uint64
}

// New builds a Location.
func New(bc BytecodeRef, off uint64) Location {
	return Location{BC: bc, Off: off}
}

// IsValid reports whether the Location refers to a bytecode.
func (l Location) IsValid() bool {
	return l.BC != nil
}

// Offset returns the final absolute offset within the owning section, if
// the optimizer has resolved it.
func (l Location) Offset() (uint64, bool) {
	if l.BC == nil {
		return 0, false
	}
	base, ok := l.BC.Offset()
	if !ok {
		return 0, false
	}
	return base + l.Off, true
}

// Section returns the name of the section owning this location's bytecode.
func (l Location) Section() string {
	if l.BC == nil {
		return ""
	}
	return l.BC.Section()
}

// SameSection reports whether two locations live in sections with fully
// known relative placement, i.e. literally the same section. Cross-section
// distances are never statically known by the core except when both
// locations fall in the same section.
func (l Location) SameSection(other Location) bool {
	return l.IsValid() && other.IsValid() && l.Section() == other.Section()
}

// Equal reports whether two locations refer to the same bytecode and
// offset.
func (l Location) Equal(other Location) bool {
	return l.BC == other.BC && l.Off == other.Off
}
