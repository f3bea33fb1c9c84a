package expr

// SymbolResolveFunc resolves a Symbol term encountered during
// ResolveSymbols to its current value (an Int leaf for a resolved equ, a
// Location leaf for a label, or an error if the symbol must not remain
// undefined at this call site).
type SymbolResolveFunc func(SymbolRef) (*Expr, error)

// ResolveSymbols walks e and replaces every Symbol term, at any depth,
// with the Expr resolve returns for it. It does not level or fold the
// result; callers follow with Simplify so a resolved single-term ident
// splices back into its parent's flat term list instead of lingering as
// an extra nesting level.
func ResolveSymbols(e *Expr, resolve SymbolResolveFunc) (*Expr, error) {
	if e == nil {
		return nil, nil
	}
	newTerms := make([]Term, len(e.Terms))
	for i, t := range e.Terms {
		nt, err := resolveTerm(t, resolve)
		if err != nil {
			return nil, err
		}
		newTerms[i] = nt
	}
	return &Expr{Op: e.Op, Terms: newTerms}, nil
}

func resolveTerm(t Term, resolve SymbolResolveFunc) (Term, error) {
	switch t.Kind {
	case TermSymbol:
		resolved, err := resolve(t.Symbol)
		if err != nil {
			return Term{}, err
		}
		return exprTerm(resolved), nil
	case TermExpr:
		resolved, err := ResolveSymbols(t.Expr, resolve)
		if err != nil {
			return Term{}, err
		}
		return exprTerm(resolved), nil
	default:
		return t, nil
	}
}
