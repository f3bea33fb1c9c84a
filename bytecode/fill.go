package bytecode

import (
	"github.com/intuitionamiga/ieasm/arch"
	"github.com/intuitionamiga/ieasm/expr"
)

// Fill is an explicit length times a repeated fill value, the simplest
// content variant: both length and bytes are known after Finalize.
type Fill struct {
	Length *expr.Expr
	Value  byte

	length int
}

func (f *Fill) SpecialKind() SpecialKind { return KindNone }

func (f *Fill) Finalize(bc *Bytecode, ctx FinalizeContext) error {
	se, err := ctx.ResolveAndSimplify(f.Length.Clone())
	if err != nil {
		return err
	}
	f.Length = se
	iv, ok := se.AsInt()
	if !ok {
		return &ErrUnresolvedSymbol{Field: "fill length"}
	}
	f.length = int(iv.Int64())
	return nil
}

func (f *Fill) CalcLen(bc *Bytecode, addSpan AddSpanFunc) (int, error) {
	return f.length, nil
}

func (f *Fill) Expand(bc *Bytecode, spanID int, oldVal, newVal int64) (bool, int64, int64, int, error) {
	return false, 0, 0, 0, nil
}

func (f *Fill) Emit(bc *Bytecode, out []byte, emitValue arch.EmitValueFunc, emitReloc arch.EmitRelocFunc) error {
	for i := range out {
		out[i] = f.Value
	}
	return nil
}
