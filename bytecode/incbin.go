package bytecode

import (
	"fmt"

	"github.com/intuitionamiga/ieasm/arch"
	"github.com/intuitionamiga/ieasm/expr"
)

// IncludeSearcher locates and reads a raw binary include file; owned by
// the external parser/driver collaborator so this package never touches
// the filesystem directly.
type IncludeSearcher interface {
	ReadInclude(name string) ([]byte, error)
}

// Incbin embeds a byte slice `[start, start+maxlen)` read from a file
// outside the current source. Grounded on the teacher's assembleIncbin,
// which reads the whole file and copies a sub-slice into the program
// buffer; ieasm defers the actual read to Finalize so the slice bounds
// can depend on the symbol table (e.g. a computed length).
type Incbin struct {
	Name    string
	Start   *expr.Expr // defaults to 0 if nil
	MaxLen  *expr.Expr // defaults to "rest of file" if nil
	Search  IncludeSearcher

	data []byte
}

// IOError is the distinct error type for every incbin failure that
// originates from the file side of the operation (read failure, start
// past EOF, or an explicit maxlen that would run past EOF) rather than
// from expression resolution.
type IOError struct {
	Name   string
	Reason string
}

func (e *IOError) Error() string {
	return fmt.Sprintf("bytecode: incbin %q: %s", e.Name, e.Reason)
}

func (i *Incbin) SpecialKind() SpecialKind { return KindNone }

func (i *Incbin) Finalize(bc *Bytecode, ctx FinalizeContext) error {
	raw, err := i.Search.ReadInclude(i.Name)
	if err != nil {
		return &IOError{Name: i.Name, Reason: err.Error()}
	}

	start := 0
	if i.Start != nil {
		se, err := ctx.ResolveAndSimplify(i.Start.Clone())
		if err != nil {
			return err
		}
		iv, ok := se.AsInt()
		if !ok {
			return &ErrUnresolvedSymbol{Field: "incbin start"}
		}
		start = int(iv.Int64())
	}
	if start < 0 || start > len(raw) {
		return &IOError{Name: i.Name, Reason: fmt.Sprintf("start %d out of range (file is %d bytes)", start, len(raw))}
	}

	// With no explicit maxlen, an incbin reads to EOF: clamping is the
	// correct behavior, not an error. An explicit maxlen is a caller
	// assertion about the file's size; if it reaches past EOF, the file
	// does not contain what the caller claimed, so this fails rather than
	// silently returning fewer bytes than asked for.
	if i.MaxLen == nil {
		i.data = raw[start:]
		return nil
	}

	se, err := ctx.ResolveAndSimplify(i.MaxLen.Clone())
	if err != nil {
		return err
	}
	iv, ok := se.AsInt()
	if !ok {
		return &ErrUnresolvedSymbol{Field: "incbin maxlen"}
	}
	maxLen := int(iv.Int64())
	if maxLen < 0 {
		return &IOError{Name: i.Name, Reason: fmt.Sprintf("negative maxlen %d", maxLen)}
	}
	end := start + maxLen
	if end > len(raw) {
		return &IOError{Name: i.Name, Reason: fmt.Sprintf("maxlen %d at start %d runs past end of file (file is %d bytes)", maxLen, start, len(raw))}
	}

	i.data = raw[start:end]
	return nil
}

func (i *Incbin) CalcLen(bc *Bytecode, addSpan AddSpanFunc) (int, error) {
	return len(i.data), nil
}

func (i *Incbin) Expand(bc *Bytecode, spanID int, oldVal, newVal int64) (bool, int64, int64, int, error) {
	return false, 0, 0, 0, nil
}

func (i *Incbin) Emit(bc *Bytecode, out []byte, emitValue arch.EmitValueFunc, emitReloc arch.EmitRelocFunc) error {
	copy(out, i.data)
	return nil
}
