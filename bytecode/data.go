package bytecode

import (
	"fmt"

	"github.com/intuitionamiga/ieasm/arch"
	"github.com/intuitionamiga/ieasm/bigint"
	"github.com/intuitionamiga/ieasm/expr"
)

// DataValueKind tags what one Data element holds.
type DataValueKind int

const (
	DataExpr DataValueKind = iota
	DataString
	DataRaw
)

// DataValue is one element of a Data content's value list.
type DataValue struct {
	Kind DataValueKind
	Expr *expr.Expr
	Str  string
	Raw  []byte
}

// Data is the `db`/`dw`/`dl`/`dq`-family content: a list of uniform
// element-size values, grounded on assembleDC's byte/word/long emission
// loop in the teacher.
type Data struct {
	Values      []DataValue
	ElementSize int
	// AppendZero pads each String value with one trailing zero element,
	// for C-string literal helpers (`db "hi", 0` written as one value).
	AppendZero bool
}

func (d *Data) SpecialKind() SpecialKind { return KindNone }

func (d *Data) Finalize(bc *Bytecode, ctx FinalizeContext) error {
	for i, v := range d.Values {
		if v.Kind != DataExpr {
			continue
		}
		se, err := ctx.ResolveAndSimplify(v.Expr.Clone())
		if err != nil {
			return err
		}
		d.Values[i].Expr = se
	}
	return nil
}

func (d *Data) itemLen(v DataValue) int {
	switch v.Kind {
	case DataExpr:
		return d.ElementSize
	case DataString:
		n := len(v.Str) * d.ElementSize
		if d.AppendZero {
			n += d.ElementSize
		}
		return n
	case DataRaw:
		return len(v.Raw)
	default:
		return 0
	}
}

func (d *Data) CalcLen(bc *Bytecode, addSpan AddSpanFunc) (int, error) {
	total := 0
	for _, v := range d.Values {
		total += d.itemLen(v)
	}
	return total, nil
}

func (d *Data) Expand(bc *Bytecode, spanID int, oldVal, newVal int64) (bool, int64, int64, int, error) {
	return false, 0, 0, 0, nil
}

func (d *Data) Emit(bc *Bytecode, out []byte, emitValue arch.EmitValueFunc, emitReloc arch.EmitRelocFunc) error {
	pos := 0
	for _, v := range d.Values {
		switch v.Kind {
		case DataExpr:
			if err := emitValue(v.Expr, out[pos:pos+d.ElementSize], 0); err != nil {
				return err
			}
			pos += d.ElementSize
		case DataString:
			for _, ch := range []byte(v.Str) {
				leaf := expr.Int(bigint.FromInt64(int64(ch)))
				if err := emitValue(leaf, out[pos:pos+d.ElementSize], 0); err != nil {
					return err
				}
				pos += d.ElementSize
			}
			if d.AppendZero {
				leaf := expr.Int(bigint.Zero())
				if err := emitValue(leaf, out[pos:pos+d.ElementSize], 0); err != nil {
					return err
				}
				pos += d.ElementSize
			}
		case DataRaw:
			copy(out[pos:pos+len(v.Raw)], v.Raw)
			pos += len(v.Raw)
		default:
			return fmt.Errorf("bytecode: data: unknown value kind %d", v.Kind)
		}
	}
	return nil
}
