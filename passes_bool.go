package afpipeline

// propagateBooleans implements §4.5: an iterative fixpoint that alternately
// simplifies the pending suffix left-to-right then right-to-left, caching
// e -> true (or, when e is a negation, (not e)' -> false) after each
// formula. Stops when a pass makes no changes; if any change occurred
// across the outer loop, finishes with reduce_asserted_formulas. The cache
// is flushed at the start of each inner pass and after each completes — its
// lifetime is a single directional sweep, per §4.5's closing note.
func (s *Store) propagateBooleans() error {
	anyChange := false
	for {
		changedLTR, err := s.booleanSweep(true)
		if err != nil || s.canceled() || s.inconsistent {
			return err
		}
		changedRTL, err := s.booleanSweep(false)
		if err != nil || s.canceled() || s.inconsistent {
			return err
		}
		if changedLTR || changedRTL {
			anyChange = true
		}
		if !changedLTR && !changedRTL {
			break
		}
	}
	if anyChange {
		return s.reduceAssertedFormulas()
	}
	return nil
}

// booleanSweep runs one directional pass over the pending suffix, caching
// each formula's truth value into the simplifier before moving to the next
// one so later formulas in the same sweep see earlier ones' values.
func (s *Store) booleanSweep(leftToRight bool) (bool, error) {
	s.simp.FlushCache()
	defer s.simp.FlushCache()

	pending := s.pending()
	proofs := s.pendingProofs()
	n := len(pending)

	newA := make([]Expr, n)
	newP := make([]Proof, n)
	changed := false

	order := make([]int, n)
	for i := range order {
		if leftToRight {
			order[i] = i
		} else {
			order[i] = n - 1 - i
		}
	}

	for _, i := range order {
		if s.canceled() {
			return changed, nil
		}
		e := pending[i]
		var p Proof
		if s.mgr.ProofsEnabled() {
			p = proofs[i]
		}
		out, rp := s.simp.Simplify(e)
		if out.Id() != e.Id() {
			changed = true
			p = s.mgr.MkModusPonens(p, rp)
		}
		newA[i] = out
		newP[i] = p

		if s.mgr.IsFalse(out) {
			s.inconsistent = true
		}
		if !s.mgr.IsValue(out) {
			if inner, isNot := s.mgr.IsNot(out); isNot {
				s.simp.CacheResult(inner, s.mgr.False(), s.mgr.MkIffFalse(p))
			} else {
				s.simp.CacheResult(out, s.mgr.True(), s.mgr.MkIffTrue(p))
			}
		}
	}

	s.swapSuffix(newA, newP)
	return changed, nil
}
