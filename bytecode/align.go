package bytecode

import (
	"fmt"

	"github.com/intuitionamiga/ieasm/arch"
	"github.com/intuitionamiga/ieasm/expr"
)

// alignSpanID is the self-referential span every Align bytecode registers:
// its own length depends on its own start offset modulo the boundary, so
// growth of any preceding bytecode must re-trigger this content's
// CalcLen/Expand.
const alignSpanID = -1

// Align pads to the next multiple of a power-of-two boundary, filling
// with an explicit byte pattern or the architecture's NOP sequence.
// Grounded on the teacher's assembleAlign, which pads the flat program
// buffer to the next boundary with zero bytes; ieasm generalizes the
// fill source and adds the optional skip cap yasm's Align.cpp supports.
type Align struct {
	Boundary *expr.Expr // power-of-two boundary, resolved at Finalize
	Fill     []byte     // explicit fill pattern; nil means use NOPFill
	NOPFill  []byte     // architecture-provided NOP sequence, used when Fill is nil
	MaxSkip  int        // 0 means unbounded

	boundary int
}

func (a *Align) SpecialKind() SpecialKind { return KindNone }

func (a *Align) Finalize(bc *Bytecode, ctx FinalizeContext) error {
	se, err := ctx.ResolveAndSimplify(a.Boundary.Clone())
	if err != nil {
		return err
	}
	a.Boundary = se
	iv, ok := se.AsInt()
	if !ok {
		return &ErrUnresolvedSymbol{Field: "align boundary"}
	}
	n := int(iv.Int64())
	if n <= 0 || n&(n-1) != 0 {
		return fmt.Errorf("bytecode: align boundary %d is not a power of two", n)
	}
	a.boundary = n
	return nil
}

// padFor returns how many fill bytes are needed to bring startOffset up
// to the next multiple of the boundary.
func (a *Align) padFor(startOffset uint64) int {
	rem := int(startOffset) % a.boundary
	if rem == 0 {
		return 0
	}
	return a.boundary - rem
}

func (a *Align) CalcLen(bc *Bytecode, addSpan AddSpanFunc) (int, error) {
	off, known := bc.Offset()
	if !known {
		// First pass: no start offset yet, assume worst case (boundary-1)
		// and register the self span so later passes correct it.
		addSpan(alignSpanID, nil, 0, 0)
		return a.boundary - 1, nil
	}
	n := a.padFor(off)
	if a.MaxSkip > 0 && n > a.MaxSkip {
		return 0, nil
	}
	addSpan(alignSpanID, nil, 0, 0)
	return n, nil
}

func (a *Align) Expand(bc *Bytecode, spanID int, oldVal, newVal int64) (bool, int64, int64, int, error) {
	off, known := bc.Offset()
	if !known {
		return true, 0, 0, 0, nil
	}
	oldLen := bc.TailLen()
	newLen := a.padFor(off)
	if a.MaxSkip > 0 && newLen > a.MaxSkip {
		newLen = 0
	}
	return true, 0, 0, newLen - oldLen, nil
}

func (a *Align) Emit(bc *Bytecode, out []byte, emitValue arch.EmitValueFunc, emitReloc arch.EmitRelocFunc) error {
	pattern := a.Fill
	if len(pattern) == 0 {
		pattern = a.NOPFill
	}
	if len(pattern) == 0 {
		for i := range out {
			out[i] = 0
		}
		return nil
	}
	for i := range out {
		out[i] = pattern[i%len(pattern)]
	}
	return nil
}
