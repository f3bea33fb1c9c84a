package object

import (
	"fmt"

	"github.com/intuitionamiga/ieasm/arch"
	"github.com/intuitionamiga/ieasm/bigint"
	"github.com/intuitionamiga/ieasm/bytecode"
	"github.com/intuitionamiga/ieasm/expr"
	"github.com/intuitionamiga/ieasm/section"
)

func zeroExpr() *expr.Expr { return expr.Int(bigint.Zero()) }
func oneExpr() *expr.Expr  { return expr.Int(bigint.One()) }

// appendToCurrent is the shared tail of every factory below: wrap content
// into a Bytecode and append it to the cursor's section.
func (o *Object) appendToCurrent(content bytecode.Content, memberAlign int, source interface{}) (*bytecode.Bytecode, error) {
	s := o.CurrentSection()
	if s == nil {
		return nil, &NoCurrentSectionError{}
	}
	bc := bytecode.New(content, source)
	if err := checkAbsolute(s, bc); err != nil {
		return nil, err
	}
	s.Append(bc, memberAlign)
	return bc, nil
}

// checkAbsolute rejects anything but Reserve content in a section
// declared Absolute.
func checkAbsolute(s *section.Section, bc *bytecode.Bytecode) error {
	if s.Attrs().Absolute && bc.SpecialKind() != bytecode.KindReservation {
		return &AbsoluteSectionError{Section: s.Name()}
	}
	return nil
}

// NoCurrentSectionError is returned by any create_* factory called before
// a section has been selected.
type NoCurrentSectionError struct{}

func (e *NoCurrentSectionError) Error() string { return "object: no current section to append to" }

// AbsoluteSectionError is returned when anything other than a Reserve
// bytecode is appended to an Absolute section.
type AbsoluteSectionError struct{ Section string }

func (e *AbsoluteSectionError) Error() string {
	return fmt.Sprintf("object: section %q is absolute, only reserve content is permitted", e.Section)
}

// CreateData builds a `db`/`dw`/`dl`/`dq`-family bytecode, grounded on
// spec.md §6's create_data(values, element_size_bytes, append_zero,
// arch?, source). The arch parameter from the distilled spec (used only
// to infer an element size from a register/modifier operand, which this
// core never does for Data) is folded into the caller already having
// chosen elementSize.
func (o *Object) CreateData(values []bytecode.DataValue, elementSize int, appendZero bool, source interface{}) (*bytecode.Bytecode, error) {
	return o.appendToCurrent(&bytecode.Data{Values: values, ElementSize: elementSize, AppendZero: appendZero}, elementSize, source)
}

// CreateLEB128 builds a variable-length-integer bytecode.
func (o *Object) CreateLEB128(values []*expr.Expr, signed bool, source interface{}) (*bytecode.Bytecode, error) {
	return o.appendToCurrent(&bytecode.LEB128{Values: values, Signed: signed}, 1, source)
}

// CreateReserve builds a `ds`-family gap bytecode: count_expr items of
// itemSize bytes each.
func (o *Object) CreateReserve(count *expr.Expr, itemSize int, source interface{}) (*bytecode.Bytecode, error) {
	return o.appendToCurrent(&bytecode.Reserve{Count: count, ItemSize: itemSize}, itemSize, source)
}

// codeFillUnit is the tile length passed to Arch.CodeFill when an Align
// has no explicit fill pattern. IE64's fixed 8-byte instructions make any
// multiple of 8 tile correctly; a variable-length architecture plugin
// would need its own natural instruction length exposed here instead.
const codeFillUnit = 8

// CreateAlign builds an Align bytecode padding to the next boundary-byte
// multiple. maxSkip, if non-nil, must already fold to a concrete integer
// (yasm requires max-skip to be a compile-time constant; this core
// follows suit rather than deferring it to Finalize like boundary itself).
func (o *Object) CreateAlign(boundary *expr.Expr, fill []byte, maxSkip *expr.Expr, source interface{}) (*bytecode.Bytecode, error) {
	skip := 0
	if maxSkip != nil {
		se, err := o.FinalizeContext().ResolveAndSimplify(maxSkip.Clone())
		if err != nil {
			return nil, err
		}
		iv, ok := se.AsInt()
		if !ok {
			return nil, &bytecode.ErrUnresolvedSymbol{Field: "align max-skip"}
		}
		skip = int(iv.Int64())
	}
	a := &bytecode.Align{Boundary: boundary, Fill: fill, MaxSkip: skip}
	if len(fill) == 0 {
		a.NOPFill = o.arch.CodeFill(codeFillUnit)
	}
	memberAlign := 1
	if bv, ok := boundary.AsInt(); ok {
		memberAlign = int(bv.Int64())
	}
	return o.appendToCurrent(a, memberAlign, source)
}

// CreateOrg builds an Org bytecode setting the absolute offset within the
// current section.
func (o *Object) CreateOrg(target *expr.Expr, fillByte byte, source interface{}) (*bytecode.Bytecode, error) {
	return o.appendToCurrent(&bytecode.Org{Target: target, Fill: fillByte}, 1, source)
}

// CreateIncbin builds an Incbin bytecode reading [start, start+maxlen)
// from name via search.
func (o *Object) CreateIncbin(name string, start, maxLen *expr.Expr, search bytecode.IncludeSearcher, source interface{}) (*bytecode.Bytecode, error) {
	return o.appendToCurrent(&bytecode.Incbin{Name: name, Start: start, MaxLen: maxLen, Search: search}, 1, source)
}

// CreateFill builds an explicit length-times-value bytecode.
func (o *Object) CreateFill(length *expr.Expr, value byte, source interface{}) (*bytecode.Bytecode, error) {
	return o.appendToCurrent(&bytecode.Fill{Length: length, Value: value}, 1, source)
}

// CreateInstruction asks the architecture to encode spec and appends the
// resulting Instruction content.
func (o *Object) CreateInstruction(spec arch.InstructionSpec, source interface{}) (*bytecode.Bytecode, error) {
	inst, err := o.arch.NewInstruction(spec)
	if err != nil {
		return nil, err
	}
	return o.appendToCurrent(&bytecode.Instruction{Arch: inst}, o.arch.OperandSize(arch.Operand{}), source)
}
