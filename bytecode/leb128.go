package bytecode

import (
	"math/big"

	"github.com/intuitionamiga/ieasm/arch"
	"github.com/intuitionamiga/ieasm/expr"
)

// leb128MaxLen is the worst-case byte length reserved for a 64-bit value
// whose sign/magnitude cannot be determined at finalize time (9 full
// 7-bit groups plus one terminal group covers any int64/uint64).
const leb128MaxLen = 10

// LEB128 is a list of Exprs emitted as signed or unsigned variable-length
// integers. Values that fold to a constant at finalize get their exact
// minimal encoding length; values that stay symbolic reserve the
// worst-case length so the bytecode never needs to grow later (the
// optimizer's no-shrink invariant forbids the reverse).
type LEB128 struct {
	Values []*expr.Expr
	Signed bool

	lens []int // per-value length decided at CalcLen, reused by Emit
}

func (l *LEB128) SpecialKind() SpecialKind { return KindNone }

func (l *LEB128) Finalize(bc *Bytecode, ctx FinalizeContext) error {
	for i, v := range l.Values {
		se, err := ctx.ResolveAndSimplify(v.Clone())
		if err != nil {
			return err
		}
		l.Values[i] = se
	}
	return nil
}

func (l *LEB128) CalcLen(bc *Bytecode, addSpan AddSpanFunc) (int, error) {
	l.lens = make([]int, len(l.Values))
	total := 0
	for i, v := range l.Values {
		n := leb128MaxLen
		if iv, ok := v.AsInt(); ok {
			if l.Signed {
				n = leb128SignedLen(iv.BigInt())
			} else {
				n = leb128UnsignedLen(iv.BigInt())
			}
		}
		l.lens[i] = n
		total += n
	}
	return total, nil
}

func (l *LEB128) Expand(bc *Bytecode, spanID int, oldVal, newVal int64) (bool, int64, int64, int, error) {
	return false, 0, 0, 0, nil
}

func (l *LEB128) Emit(bc *Bytecode, out []byte, emitValue arch.EmitValueFunc, emitReloc arch.EmitRelocFunc) error {
	pos := 0
	for i, v := range l.Values {
		n := l.lens[i]
		sv, err := v.Clone().Simplify(expr.Options{})
		if err != nil {
			return err
		}
		iv, ok := sv.AsInt()
		if !ok {
			return &ErrUnresolvedSymbol{Field: "leb128 value"}
		}
		var bytes []byte
		if l.Signed {
			bytes = encodeSignedPadded(iv.BigInt(), n)
		} else {
			bytes = encodeUnsignedPadded(iv.BigInt(), n)
		}
		copy(out[pos:pos+n], bytes)
		pos += n
	}
	return nil
}

func leb128UnsignedLen(v *big.Int) int {
	n := new(big.Int).Set(v)
	count := 0
	for {
		count++
		n.Rsh(n, 7)
		if n.Sign() == 0 {
			return count
		}
	}
}

func leb128SignedLen(v *big.Int) int {
	n := new(big.Int).Set(v)
	minusOne := big.NewInt(-1)
	count := 0
	for {
		count++
		byteVal := new(big.Int).And(n, big.NewInt(0x7f))
		n.Rsh(n, 7)
		if (n.Sign() == 0 && byteVal.Bit(6) == 0) || (n.Cmp(minusOne) == 0 && byteVal.Bit(6) == 1) {
			return count
		}
	}
}

func encodeUnsignedPadded(v *big.Int, targetLen int) []byte {
	out := make([]byte, targetLen)
	n := new(big.Int).Set(v)
	for i := 0; i < targetLen; i++ {
		b := byte(new(big.Int).And(n, big.NewInt(0x7f)).Int64())
		n.Rsh(n, 7)
		if i == targetLen-1 {
			out[i] = b
		} else {
			out[i] = b | 0x80
		}
	}
	return out
}

func encodeSignedPadded(v *big.Int, targetLen int) []byte {
	out := make([]byte, targetLen)
	n := new(big.Int).Set(v)
	for i := 0; i < targetLen; i++ {
		b := byte(new(big.Int).And(n, big.NewInt(0x7f)).Int64())
		n.Rsh(n, 7)
		if i == targetLen-1 {
			out[i] = b
		} else {
			out[i] = b | 0x80
		}
	}
	return out
}
