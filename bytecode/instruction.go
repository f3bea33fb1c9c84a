package bytecode

import (
	"github.com/intuitionamiga/ieasm/arch"
)

// Instruction owns an architecture-encoded instruction and forwards the
// sizing/emission protocol straight to it; this content variant's whole
// job is translating between the core's AddSpanFunc convention and the
// architecture's InstructionSpan list, since the architecture plugin is
// the only party that understands short/long branch thresholds.
type Instruction struct {
	Arch arch.Instruction

	spanByID map[int]arch.InstructionSpan
}

func (i *Instruction) SpecialKind() SpecialKind { return KindInstruction }

func (i *Instruction) Finalize(bc *Bytecode, ctx FinalizeContext) error {
	return nil
}

func (i *Instruction) CalcLen(bc *Bytecode, addSpan AddSpanFunc) (int, error) {
	i.spanByID = make(map[int]arch.InstructionSpan)
	for _, s := range i.Arch.Spans() {
		i.spanByID[s.ID] = s
		addSpan(s.ID, s.Dependent, s.NegThres, s.PosThres)
	}
	return i.Arch.Len(), nil
}

func (i *Instruction) Expand(bc *Bytecode, spanID int, oldVal, newVal int64) (bool, int64, int64, int, error) {
	before := i.Arch.Len()
	grew, negThres, posThres := i.Arch.Expand(spanID, newVal)
	if !grew {
		return false, 0, 0, 0, nil
	}
	return true, negThres, posThres, i.Arch.Len() - before, nil
}

func (i *Instruction) Emit(bc *Bytecode, out []byte, emitValue arch.EmitValueFunc, emitReloc arch.EmitRelocFunc) error {
	return i.Arch.Encode(out, emitValue, emitReloc)
}
