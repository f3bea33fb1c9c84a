package optimizer

import "github.com/intuitionamiga/ieasm/expr"

// evalIntLike evaluates a span's dependent Expr — expected to be an
// Add/Mul combination of Location and BigInt leaves left over after
// simplify's negation distribution rewrote every SUB/NEG into that form
// — into a concrete int64 displacement. Any term that isn't yet
// resolvable (an unknown-offset Location, a still-symbolic leaf) makes
// the whole evaluation fail.
func evalIntLike(e *expr.Expr) (int64, bool) {
	if e == nil {
		return 0, false
	}
	switch e.Op {
	case expr.OpIdent:
		return evalLeaf(e)
	case expr.OpAdd:
		sum := int64(0)
		for _, t := range e.Terms {
			v, ok := evalTerm(t)
			if !ok {
				return 0, false
			}
			sum += v
		}
		return sum, true
	case expr.OpMul:
		product := int64(1)
		for _, t := range e.Terms {
			v, ok := evalTerm(t)
			if !ok {
				return 0, false
			}
			product *= v
		}
		return product, true
	case expr.OpSub:
		if len(e.Terms) != 2 {
			return 0, false
		}
		a, ok := evalTerm(e.Terms[0])
		if !ok {
			return 0, false
		}
		b, ok := evalTerm(e.Terms[1])
		if !ok {
			return 0, false
		}
		return a - b, true
	case expr.OpNeg:
		if len(e.Terms) != 1 {
			return 0, false
		}
		v, ok := evalTerm(e.Terms[0])
		if !ok {
			return 0, false
		}
		return -v, true
	default:
		return 0, false
	}
}

func evalLeaf(e *expr.Expr) (int64, bool) {
	if len(e.Terms) != 1 {
		return 0, false
	}
	return evalTerm(e.Terms[0])
}

func evalTerm(t expr.Term) (int64, bool) {
	switch t.Kind {
	case expr.TermInt:
		return t.Int.Int64(), true
	case expr.TermLocation:
		off, ok := t.Location.Offset()
		if !ok {
			return 0, false
		}
		return int64(off), true
	case expr.TermExpr:
		return evalIntLike(t.Expr)
	default:
		return 0, false
	}
}
