package afpipeline

// propagateValues implements §4.4: flush the cache first, so the
// "already cached" filter below only ever sees conflicts discovered within
// this pass rather than stale memoization noise from some earlier,
// unrelated Simplify() call; then scan all of A (not just the pending
// suffix) exactly once for equalities x = v with v a concrete value and x
// neither a value nor already cached; cache-inject x -> v into the
// simplifier, then re-simplify the rest of the pending formulas under that
// augmented cache. The cache is always flushed again at the end, whether or
// not any equality was accepted, since leaving x -> v live would silently
// drop x from every later pass (§9's "cache-as-substitution trick").
func (s *Store) propagateValues() error {
	s.simp.FlushCache()
	defer s.simp.FlushCache()

	type accepted struct {
		srcIdx int
		x, v   Expr
		p      Proof
	}

	var acceptedEqs []accepted
	var restIdx []int

	for i, e := range s.a {
		x, v, p, ok := asValueEquality(s.mgr, e, s.proofAt(i))
		if ok && s.simp.IsCached(x) {
			ok = false
		}
		if ok {
			acceptedEqs = append(acceptedEqs, accepted{srcIdx: i, x: x, v: v, p: p})
			s.simp.CacheResult(x, v, p)
		} else {
			restIdx = append(restIdx, i)
		}
	}

	if len(acceptedEqs) == 0 {
		return nil
	}

	var retainedA []Expr
	var retainedP []Proof
	for _, acc := range acceptedEqs {
		if acc.srcIdx >= s.qhead {
			retainedA = append(retainedA, s.mgr.Eq(acc.x, acc.v))
			retainedP = append(retainedP, acc.p)
		}
	}

	var simplifiedA []Expr
	var simplifiedP []Proof
	for _, idx := range restIdx {
		if idx < s.qhead {
			continue
		}
		e := s.a[idx]
		p := s.proofAt(idx)
		out, rp := s.simp.Simplify(e)
		if out.Id() == e.Id() {
			simplifiedA = append(simplifiedA, e)
			simplifiedP = append(simplifiedP, p)
		} else {
			simplifiedA = append(simplifiedA, out)
			simplifiedP = append(simplifiedP, s.mgr.MkModusPonens(p, rp))
		}
	}

	newA := append(retainedA, simplifiedA...)
	newP := append(retainedP, simplifiedP...)
	s.swapSuffix(newA, newP)
	return nil
}

func (s *Store) proofAt(i int) Proof {
	if !s.mgr.ProofsEnabled() {
		return Proof{}
	}
	return s.p[i]
}

// asValueEquality recognizes x = v or v = x where v is a concrete value and
// x is not itself a value (a value-equals-value formula is the arithPlugin's
// job to fold, not value propagation's). The v = x orientation is swapped to
// the canonical x = v, applying the symmetry rule to the proof, per §4.4.
func asValueEquality(mgr Manager, e Expr, p Proof) (x, v Expr, outP Proof, ok bool) {
	lhs, rhs, isEq := mgr.IsEq(e)
	if !isEq {
		return nil, nil, Proof{}, false
	}
	switch {
	case mgr.IsValue(rhs) && !mgr.IsValue(lhs):
		return lhs, rhs, p, true
	case mgr.IsValue(lhs) && !mgr.IsValue(rhs):
		return rhs, lhs, mgr.MkSymmetry(p), true
	default:
		return nil, nil, Proof{}, false
	}
}
