package bytecode

import (
	"github.com/intuitionamiga/ieasm/arch"
	"github.com/intuitionamiga/ieasm/expr"
)

const orgSpanID = -2

// Org sets the bytecode's absolute offset within its section, emitting
// fill bytes to bridge the gap between the section's natural running
// offset and the requested target. Grounded on the `org` handling in the
// teacher's directive dispatch, generalized from an immediate program
// cursor assignment into a fill-emitting bytecode so preceding bytecodes
// can still grow without corrupting a fixed absolute target.
type Org struct {
	Target *expr.Expr // absolute offset, resolved at Finalize
	Fill   byte

	target int
}

func (o *Org) SpecialKind() SpecialKind { return KindOrigin }

func (o *Org) Finalize(bc *Bytecode, ctx FinalizeContext) error {
	se, err := ctx.ResolveAndSimplify(o.Target.Clone())
	if err != nil {
		return err
	}
	o.Target = se
	iv, ok := se.AsInt()
	if !ok {
		return &ErrUnresolvedSymbol{Field: "org target"}
	}
	o.target = int(iv.Int64())
	return nil
}

func (o *Org) gapFor(startOffset uint64) (int, error) {
	gap := o.target - int(startOffset)
	if gap < 0 {
		return 0, &OrgBacktrackError{Target: o.target, Offset: startOffset}
	}
	return gap, nil
}

// OrgBacktrackError is returned by CalcLen or Expand when preceding
// content has already grown past an org target; Org's self-referential
// span makes the optimizer re-check this on every expansion round.
type OrgBacktrackError struct {
	Target int
	Offset uint64
}

func (e *OrgBacktrackError) Error() string {
	return "bytecode: org target is behind the current section offset"
}

func (o *Org) CalcLen(bc *Bytecode, addSpan AddSpanFunc) (int, error) {
	addSpan(orgSpanID, nil, 0, 0)
	off, known := bc.Offset()
	if !known {
		return 0, nil
	}
	return o.gapFor(off)
}

func (o *Org) Expand(bc *Bytecode, spanID int, oldVal, newVal int64) (bool, int64, int64, int, error) {
	off, known := bc.Offset()
	if !known {
		return true, 0, 0, 0, nil
	}
	oldLen := bc.TailLen()
	newLen, err := o.gapFor(off)
	if err != nil {
		return false, 0, 0, 0, err
	}
	return true, 0, 0, newLen - oldLen, nil
}

func (o *Org) Emit(bc *Bytecode, out []byte, emitValue arch.EmitValueFunc, emitReloc arch.EmitRelocFunc) error {
	for i := range out {
		out[i] = o.Fill
	}
	return nil
}
