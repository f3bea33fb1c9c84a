// Package arch declares the capability interfaces a target-architecture
// plugin supplies to the core: register/modifier lookup, instruction
// encoding, and the handful of architecture-specific constants the
// bytecode and optimizer layers need (byte order, fill pattern, operand
// size inference). Concrete architectures live in their own sub-packages
// (arch/ie64 is the one adapted from the teacher's opcode table).
package arch

import (
	"github.com/intuitionamiga/ieasm/expr"
)

// ByteOrder is the architecture's default multi-byte value layout.
type ByteOrder int

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

// Mode selects an address/operand width family (16/32/64-bit).
type Mode int

const (
	Mode16 Mode = 16
	Mode32 Mode = 32
	Mode64 Mode = 64
)

// Register is a resolved architecture register handle; it satisfies
// expr.Register structurally.
type Register interface {
	RegName() string
}

// Modifier is a resolved target modifier (e.g. an addressing-mode suffix)
// handle, returned alongside register lookups.
type Modifier interface {
	ModifierName() string
}

// Operand is one parsed instruction operand: a register, an Expr
// (immediate/displacement/memory reference), or a modifier, as the parser
// collaborator has already classified it. The Arch decides how to pack
// these into bytes.
type Operand struct {
	Register Register
	Modifier Modifier
	Value    *expr.Expr
}

// InstructionSpec is everything the parser collaborator extracts from one
// source line needed to build an Instruction bytecode content: an opcode
// family/mnemonic (architecture-defined token), optional size suffix, and
// the ordered operand list.
type InstructionSpec struct {
	Mnemonic string
	Operands []Operand
}

// Arch is the capability surface a target-architecture plugin implements.
// Its NewInstruction builds opaque, architecture-owned instruction state
// from a parsed spec; the core drives the returned Instruction only
// through its Len/Spans/Expand/Encode methods, never examining it.
type Arch interface {
	// Name identifies the architecture (for diagnostics).
	Name() string

	// LookupRegister resolves a register name to a handle, or ok=false.
	LookupRegister(name string) (Register, bool)

	// LookupModifier resolves a target-modifier name to a handle.
	LookupModifier(name string) (Modifier, bool)

	// LookupPrefix resolves an instruction-prefix mnemonic (e.g. a
	// repeat/lock token on architectures that have them) to a handle
	// carrying no further state the core needs.
	LookupPrefix(name string) (interface{}, bool)

	// NewInstruction builds opaque instruction state from a parsed spec,
	// or fails if the mnemonic/operand combination is not recognized.
	NewInstruction(spec InstructionSpec) (Instruction, error)

	// ByteOrder is the architecture's default multi-byte layout.
	ByteOrder() ByteOrder

	// CodeFill returns n bytes of the architecture's preferred
	// no-operation fill pattern, used by Align when no explicit fill is
	// given.
	CodeFill(n int) []byte

	// Mode reports the architecture's configured address width.
	Mode() Mode

	// OperandSize infers an operand's natural size in bytes from its
	// register/modifier classification, used by Data/Instruction sizing
	// when the source didn't specify one explicitly.
	OperandSize(op Operand) int
}

// Instruction is the architecture-owned encoded form of one instruction,
// opaque to the core. Concrete architectures implement this to back
// bytecode's Instruction content variant.
type Instruction interface {
	// Len returns the instruction's current encoded length in bytes.
	// For fixed-length ISAs this never changes; for variable-length
	// branch encodings it reflects the currently-selected form.
	Len() int

	// Spans returns the dependent Exprs (if any) whose evaluated value
	// determines whether this instruction must grow (e.g. a branch
	// displacement against a short/long threshold window), paired with
	// the threshold window each one is checked against.
	Spans() []InstructionSpan

	// Expand is called when a span this instruction registered leaves its
	// window; it must grow to its next larger form (if one exists) and
	// report whether it did, plus the new thresholds if it can expand
	// again.
	Expand(spanID int, newVal int64) (grew bool, negThres, posThres int64)

	// Encode renders the instruction's bytes at its current length,
	// resolving any remaining symbolic operand against the supplied
	// value/reloc callbacks.
	Encode(dest []byte, emitValue EmitValueFunc, emitReloc EmitRelocFunc) error
}

// InstructionSpan is one growth-triggering dependency an Instruction
// registers during calc_len.
type InstructionSpan struct {
	ID               int
	Dependent        *expr.Expr
	NegThres, PosThres int64
}

// EmitValueFunc and EmitRelocFunc mirror the emitter's callback protocol
// (package emit); Arch and bytecode content call them during Encode/emit
// rather than importing package emit, which would invert the dependency.
type EmitValueFunc func(value *expr.Expr, dest []byte, warnMode int) error
type EmitRelocFunc func(sym expr.SymbolRef, dest []byte, valueSizeBits int, warnMode int) error
