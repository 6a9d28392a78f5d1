package afpipeline

// NNFEngine is the black-box contract §1/§4.6 declares for negation-normal
// and conjunctive-normal form conversion: NNF/CNF conversion itself is
// named explicitly as out of scope ("treated as black-box passes with
// declared input/output contracts"). Convert returns a primary rewritten
// expression plus auxiliary side-formulas (the defining equations for any
// freshly introduced names), mirroring the shape nnf::next + the
// defined-names table produce in the original.
type NNFEngine interface {
	Convert(mgr Manager, dn *definedNames, e Expr) (primary Expr, side []Expr, changed bool)
}

// defaultNNFEngine is a reference implementation sufficient for §8 scenario
// 4 (AND survives until NNF conversion): it pushes negation inward over
// not/and/or (De Morgan) and leaves every other node untouched — quantifier
// skolemization and Tseitin-style CNF clause naming are exactly the
// theory-internal detail the spec places out of scope. It names no
// subformulas: dn is left untouched and no side-formulas are returned.
type defaultNNFEngine struct{}

func newDefaultNNFEngine() NNFEngine { return &defaultNNFEngine{} }

func (n *defaultNNFEngine) Convert(mgr Manager, dn *definedNames, e Expr) (Expr, []Expr, bool) {
	memo := make(map[uint64]Expr)
	var push func(Expr, bool) Expr
	push = func(x Expr, negate bool) Expr {
		key := x.Id()
		if negate {
			key = ^key
		}
		if out, ok := memo[key]; ok {
			return out
		}
		var out Expr
		switch x.Kind() {
		case KindNot:
			inner, _ := mgr.IsNot(x)
			out = push(inner, !negate)
		case KindAnd:
			children, _ := mgr.IsAnd(x)
			rewritten := make([]Expr, len(children))
			for i, c := range children {
				rewritten[i] = push(c, negate)
			}
			if negate {
				out = mgr.Or(rewritten...)
			} else {
				out = mgr.And(rewritten...)
			}
		case KindOr:
			children, _ := mgr.IsOr(x)
			rewritten := make([]Expr, len(children))
			for i, c := range children {
				rewritten[i] = push(c, negate)
			}
			if negate {
				out = mgr.And(rewritten...)
			} else {
				out = mgr.Or(rewritten...)
			}
		default:
			if negate {
				out = mgr.Not(x)
			} else {
				out = x
			}
		}
		memo[key] = out
		return out
	}

	out := push(e, false)
	return out, nil, out.Id() != e.Id()
}

// nnfCnf implements §4.3 step 5 / §4.6: for each pending formula, run the
// NNF/CNF engine, push its primary output and every side-formula through
// the simplifier once more, then substitute the pending suffix with the
// result.
func (s *Store) nnfCnf() error {
	return s.rewritePass("nnf_cnf", func(e Expr, p Proof) (Expr, Proof, []Expr, []Proof, bool) {
		primary, side, changed := s.nnf.Convert(s.mgr, s.names, e)
		if !changed && len(side) == 0 {
			return e, p, nil, nil, false
		}

		out, rp := s.simp.Simplify(primary)
		newP := s.mgr.MkModusPonens(p, s.mgr.MkModusPonens(s.mgr.MkRewrite(e, primary), rp))

		var sideA []Expr
		var sideP []Proof
		for _, sf := range side {
			simplified, srp := s.simp.Simplify(sf)
			sideA = append(sideA, simplified)
			sideP = append(sideP, s.mgr.MkModusPonens(s.mgr.MkAsserted(sf), srp))
		}
		return out, newP, sideA, sideP, true
	})
}
