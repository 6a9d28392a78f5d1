package afpipeline

// applyBit2Int implements §4.3 step 16 / §6's simplify_bit2int: rewrites a
// BVMarker-wrapped expression that is actually a Value payload into its
// plain integer value node, the "bit2int" normalization that lets the
// arithmetic plugin see through a bit-vector literal. The general
// bits-to-integer transformation for non-literal bit-vector terms is
// bit-vector-theory-internal detail (§1); this reference implementation
// handles the literal case, which is the only one the pending suffix can
// exhibit with the reference AST façade's BVMarker (§4.11).
func (s *Store) applyBit2Int() error {
	return s.simpleRewritePass("apply_bit2int", func(e Expr) (Expr, bool) {
		return bit2IntRewrite(s.mgr, e)
	})
}

func bit2IntRewrite(mgr Manager, e Expr) (Expr, bool) {
	memo := make(map[uint64]Expr)
	var walk func(Expr) Expr
	walk = func(x Expr) Expr {
		if out, ok := memo[x.Id()]; ok {
			return out
		}
		children := x.Subexprs()
		newChildren := make([]Expr, len(children))
		changed := false
		for i, c := range children {
			nc := walk(c)
			newChildren[i] = nc
			if nc.Id() != c.Id() {
				changed = true
			}
		}
		out := x
		if changed {
			out = rebuildWithChildren(mgr, x, newChildren)
		}
		if out.Kind() == KindBV {
			inner := out.Subexprs()[0]
			if mgr.IsValue(inner) {
				out = inner
			}
		}
		memo[x.Id()] = out
		return out
	}
	out := walk(e)
	return out, out.Id() != e.Id()
}

// inferPatterns implements §4.3 step 18 / §6's ematching: the black-box
// contract §1 names explicitly ("pattern inference ... treated as black-box
// passes with declared input/output contracts"). Real trigger inference is
// e-matching-internal heuristic detail entirely outside this component's
// scope — it only ever fires on quantified formulas, which this component
// never instantiates (§1's "no quantifier instantiation" non-goal) — so the
// reference implementation is the identity transform, existing solely to
// occupy the fixed pass-order slot and honor its gate
// (Config.EMatching && has_quantifiers).
func (s *Store) inferPatterns() error {
	return nil
}

// maxBVSharing implements §4.3 step 19 / §4.8: hands every pending formula
// to the bit-vector sharing analyzer, followed by reduce-and-solve.
func (s *Store) maxBVSharing() error {
	if err := s.simpleRewritePass("max_bv_sharing", func(e Expr) (Expr, bool) {
		out := s.bv.Rewrite(s.mgr, e)
		return out, out.Id() != e.Id()
	}); err != nil {
		return err
	}
	return s.reduceAssertedFormulas()
}
