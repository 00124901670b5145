package query

import "sort"

// Normalize reduces a syntax tree to a canonical boolean expression over
// tag, metatag, and constant atoms. It applies constant folding, flattening
// of nested same-kind And/Or, duplicate-child elimination, double-negation
// elimination, and the complement laws, then orders children by their
// canonical rendering. The same tree always normalizes to the same
// expression, child order included, so generated SQL is stable.
//
// This is best-effort canonicalization, not full minimization: distribution
// is never applied, and negations stay where they are because the compiler
// handles them natively with EXCEPT. Normalize is idempotent.
func Normalize(e Expr) Expr {
	switch e := e.(type) {
	case *NotExpr:
		return normalizeNot(e)
	case *AndExpr:
		return normalizeNary(e.Children, true)
	case *OrExpr:
		return normalizeNary(e.Children, false)
	default:
		// Tags, metatags, and constants are already canonical.
		return e
	}
}

func normalizeNot(e *NotExpr) Expr {
	child := Normalize(e.Child)
	switch child := child.(type) {
	case Const:
		return !child
	case *NotExpr:
		// Double negation.
		return child.Child
	}
	return Not(child)
}

// normalizeNary canonicalizes an And (conjunction=true) or Or node. The two
// cases are duals: And absorbs False and drops True, Or absorbs True and
// drops False.
func normalizeNary(children []Expr, conjunction bool) Expr {
	absorbing := Const(!conjunction) // False for And, True for Or
	neutral := Const(conjunction)    // True for And, False for Or

	var flat []Expr
	seen := make(map[string]bool)
	negated := make(map[string]bool)

	var add func(e Expr) bool
	add = func(e Expr) bool {
		e = Normalize(e)
		if e == absorbing {
			return false
		}
		if e == neutral {
			return true
		}
		// Flatten same-kind children.
		if conjunction {
			if inner, ok := e.(*AndExpr); ok {
				for _, c := range inner.Children {
					if !add(c) {
						return false
					}
				}
				return true
			}
		} else {
			if inner, ok := e.(*OrExpr); ok {
				for _, c := range inner.Children {
					if !add(c) {
						return false
					}
				}
				return true
			}
		}
		key := e.String()
		if seen[key] {
			return true
		}
		seen[key] = true
		if not, ok := e.(*NotExpr); ok {
			negated[not.Child.String()] = true
		}
		flat = append(flat, e)
		return true
	}

	for _, c := range children {
		if !add(c) {
			return absorbing
		}
	}

	// Complement law: x together with -x collapses the whole node.
	for _, e := range flat {
		if _, ok := e.(*NotExpr); ok {
			continue
		}
		if negated[e.String()] {
			return absorbing
		}
	}

	if len(flat) == 0 {
		return neutral
	}
	if len(flat) == 1 {
		return flat[0]
	}

	sort.Slice(flat, func(i, j int) bool {
		return flat[i].String() < flat[j].String()
	})
	if conjunction {
		return &AndExpr{Children: flat}
	}
	return &OrExpr{Children: flat}
}

// Evaluate computes the truth value of an expression under an assignment of
// atoms to booleans. Atoms are keyed by their canonical rendering; missing
// atoms evaluate to false. Used to check that normalization preserves
// meaning.
func Evaluate(e Expr, assignment map[string]bool) bool {
	switch e := e.(type) {
	case Const:
		return bool(e)
	case *NotExpr:
		return !Evaluate(e.Child, assignment)
	case *AndExpr:
		for _, c := range e.Children {
			if !Evaluate(c, assignment) {
				return false
			}
		}
		return true
	case *OrExpr:
		for _, c := range e.Children {
			if Evaluate(c, assignment) {
				return true
			}
		}
		return false
	default:
		return assignment[e.String()]
	}
}
