package afpipeline

// pullNestedQuantifiers implements §4.3 step 8 / §4.9: merges a quantifier
// whose body is itself a quantifier of the same kind (forall x. forall y. P)
// into a single quantifier over the combined variable list, the prenexing
// step that keeps later quantifier passes from having to recurse through
// nested binders.
func (s *Store) pullNestedQuantifiers() error {
	return s.simpleRewritePass("pull_nested_quantifiers", func(e Expr) (Expr, bool) {
		return pullNestedForall(s.mgr, e)
	})
}

func pullNestedForall(mgr Manager, e Expr) (Expr, bool) {
	vars, body, ok := mgr.IsForall(e)
	if !ok {
		return e, false
	}
	innerVars, innerBody, innerOK := mgr.IsForall(body)
	if !innerOK {
		return e, false
	}
	merged := append(append([]Expr{}, vars...), innerVars...)
	return mgr.Forall(merged, innerBody), true
}

// applyDistributeForall implements §4.3 step 13 / §6's distribute_forall:
// pushes a forall inward over a top-level And in its body
// (forall x. (P x && Q x)  ->  (forall x. P x) && (forall x. Q x)), the
// standard Miniscoping transformation.
func (s *Store) applyDistributeForall() error {
	return s.simpleRewritePass("apply_distribute_forall", func(e Expr) (Expr, bool) {
		vars, body, ok := s.mgr.IsForall(e)
		if !ok {
			return e, false
		}
		children, isAnd := s.mgr.IsAnd(body)
		if !isAnd {
			return e, false
		}
		distributed := make([]Expr, len(children))
		for i, c := range children {
			distributed[i] = s.mgr.Forall(vars, c)
		}
		return s.mgr.And(distributed...), true
	})
}

// cheapQuantFourierMotzkin implements §4.3 step 17 / §6's eliminate_bounds:
// a cheap, syntactic special case of Fourier-Motzkin elimination — when a
// quantified formula's body is a disjunction containing `not (x < v)` for a
// bound variable x and a value v, drop that disjunct when a looser bound
// `not (x < v')` (v' <= v) elsewhere in the same clause subsumes it. Real
// Fourier-Motzkin
// elimination is arithmetic-theory-internal detail (§1); this reference
// implementation only handles the single-redundant-disjunct shape needed to
// exercise the pass's plumbing.
func (s *Store) cheapQuantFourierMotzkin() error {
	return s.simpleRewritePass("cheap_quant_fourier_motzkin", func(e Expr) (Expr, bool) {
		vars, body, ok := s.mgr.IsForall(e)
		if !ok {
			return e, false
		}
		children, isOr := s.mgr.IsOr(body)
		if !isOr || len(children) < 2 {
			return e, false
		}
		pruned, changed := dropRedundantBoundDisjunct(s.mgr, vars, children)
		if !changed {
			return e, false
		}
		return s.mgr.Forall(vars, s.mgr.Or(pruned...)), true
	})
}

// dropRedundantBoundDisjunct removes a `not (x < v)` disjunct when a second
// `not (x < v')` disjunct for the same bound variable x has v' <= v: then
// x >= v implies x >= v', so in a disjunction the looser bound subsumes the
// tighter one and the tighter one is dropped.
func dropRedundantBoundDisjunct(mgr Manager, vars, children []Expr) ([]Expr, bool) {
	type bound struct {
		idx int
		x   Expr
		v   float64
	}
	var bounds []bound
	for i, c := range children {
		inner, isNot := mgr.IsNot(c)
		if !isNot {
			continue
		}
		lt := inner.Subexprs()
		if inner.Kind() != KindLt || len(lt) != 2 {
			continue
		}
		if !isBoundVar(vars, lt[0]) {
			continue
		}
		val, ok := numericPayload(lt[1])
		if !ok {
			continue
		}
		bounds = append(bounds, bound{idx: i, x: lt[0], v: val})
	}
	if len(bounds) < 2 {
		return children, false
	}
	drop := make(map[int]bool)
	for i := range bounds {
		for j := range bounds {
			if i == j || bounds[i].x.Id() != bounds[j].x.Id() {
				continue
			}
			if bounds[j].v <= bounds[i].v && bounds[j].idx != bounds[i].idx && !drop[bounds[j].idx] {
				drop[bounds[i].idx] = true
			}
		}
	}
	if len(drop) == 0 {
		return children, false
	}
	out := make([]Expr, 0, len(children))
	for i, c := range children {
		if !drop[i] {
			out = append(out, c)
		}
	}
	return out, true
}

func isBoundVar(vars []Expr, e Expr) bool {
	for _, v := range vars {
		if v.Id() == e.Id() {
			return true
		}
	}
	return false
}

// refineInjAxiom implements §4.3 step 12 / §4.9: unlike every other pass it
// is in-place over the pending indices — no swap-suffix. The real
// heuristic deciding *when* to refine an injectivity axiom is
// theory-internal (§1); this reference implementation modifies nothing. It
// logs as a candidate every pending forall over exactly two variables whose
// body is a plain equality (isInjAxiomShape). The implication form
// forall x, y. f(x) = f(y) -> x = y, which this AST can only express as a
// disjunction, is not matched, because bodies that are an Or are rejected.
func (s *Store) refineInjAxiom() error {
	pending := s.pending()
	for i, e := range pending {
		if isInjAxiomShape(s.mgr, e) {
			if s.log.GetSink() != nil {
				s.log.V(2).Info("refine_inj_axiom candidate", "index", s.qhead+i)
			}
		}
	}
	return nil
}

func isInjAxiomShape(mgr Manager, e Expr) bool {
	vars, body, ok := mgr.IsForall(e)
	if !ok || len(vars) != 2 {
		return false
	}
	if _, isOr := mgr.IsOr(body); isOr {
		return false
	}
	_, _, isEq := mgr.IsEq(body)
	return isEq
}

// elimBVsFromQuantifiers implements §4.3 step 20 / §6's bb_quantifiers:
// eliminates bit-vector-sorted bound variables from a quantifier by
// bit-blasting them into their constituent Boolean bits. Bit-blasting
// itself is bit-vector-theory-internal detail (§1); this reference
// implementation leaves every formula unchanged, whether or not a bound
// variable is BVMarker-wrapped, existing to exercise the pass's gate
// (Config.BBQuantifiers) and its place in the fixed pass order.
func (s *Store) elimBVsFromQuantifiers() error {
	return s.simpleRewritePass("elim_bvs_from_quantifiers", func(e Expr) (Expr, bool) {
		vars, _, ok := s.mgr.IsForall(e)
		if !ok {
			return e, false
		}
		for _, v := range vars {
			if v.Kind() == KindBV {
				return e, false
			}
		}
		return e, false
	})
}
