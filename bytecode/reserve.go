package bytecode

import (
	"github.com/intuitionamiga/ieasm/arch"
	"github.com/intuitionamiga/ieasm/expr"
)

// Reserve is the `ds`-family content: an item count times an item size,
// producing a gap rather than materialized bytes. Grounded on the
// teacher's assembleDS, which advances the program cursor by count*size
// without writing anything.
//
// Emit still zero-fills its output slice so the content stays correct
// under any caller that materializes every byte (e.g. a format with no
// notion of an uninitialized section); a caller that wants a true
// bss-style hole checks SpecialKind() == KindReservation first and skips
// calling Emit altogether.
type Reserve struct {
	Count    *expr.Expr
	ItemSize int

	count int // resolved at Finalize
}

func (r *Reserve) SpecialKind() SpecialKind { return KindReservation }

func (r *Reserve) Finalize(bc *Bytecode, ctx FinalizeContext) error {
	se, err := ctx.ResolveAndSimplify(r.Count.Clone())
	if err != nil {
		return err
	}
	r.Count = se
	iv, ok := se.AsInt()
	if !ok {
		return &ErrUnresolvedSymbol{Field: "reserve count"}
	}
	r.count = int(iv.Int64())
	return nil
}

func (r *Reserve) CalcLen(bc *Bytecode, addSpan AddSpanFunc) (int, error) {
	return r.count * r.ItemSize, nil
}

func (r *Reserve) Expand(bc *Bytecode, spanID int, oldVal, newVal int64) (bool, int64, int64, int, error) {
	return false, 0, 0, 0, nil
}

func (r *Reserve) Emit(bc *Bytecode, out []byte, emitValue arch.EmitValueFunc, emitReloc arch.EmitRelocFunc) error {
	for i := range out {
		out[i] = 0
	}
	return nil
}
