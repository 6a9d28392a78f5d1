package afpipeline

// Reduce implements §4.3's top-level reduce(): the pipeline orchestrator
// that runs every enabled pass, in the fixed order, checking cancellation
// and inconsistency after each one. It is a no-op when the store is already
// inconsistent, cancelled, has nothing pending, or preprocessing is
// disabled by configuration.
func (s *Store) Reduce() error {
	if s.inconsistent || s.canceled() || s.qhead == len(s.a) || !s.cfg.Preprocess {
		return nil
	}
	s.state = StateReducing

	if s.macro.HasMacros() {
		if err := s.expandMacrosStep(); err != nil {
			return err
		}
		if stop, err := s.checkpoint(); stop {
			return err
		}
	}

	steps := []struct {
		name string
		run  func() error
		gate func() bool
	}{
		{"force-eliminate-and-off", func() error { s.simp.SetEliminateAnd(false); return nil }, always},
		{"propagate_booleans", s.propagateBooleans, func() bool { return s.cfg.PropagateBooleans }},
		{"propagate_values", s.propagateValues, func() bool { return s.cfg.PropagateValues }},
		{"find_macros", s.findMacrosStep, func() bool { return s.cfg.MacroFinder && s.hasQuantifiersPending() }},
		{"nnf_cnf", s.nnfCnf, func() bool { return s.cfg.NNFCnf || s.cfg.MBQI && s.hasQuantifiersPending() }},
		{"eliminate_and", func() error { s.simp.SetEliminateAnd(s.cfg.EliminateAnd); return s.reduceAssertedFormulas() }, func() bool { return s.cfg.EliminateAnd }},
		{"pull_cheap_ite_trees", s.pullCheapIteTrees, func() bool { return s.cfg.PullCheapITETrees }},
		{"pull_nested_quantifiers", s.pullNestedQuantifiers, func() bool { return s.cfg.PullNestedQuantifiers && s.hasQuantifiersPending() }},
		{"ng_lift_ite", s.ngLiftIte, func() bool { return s.cfg.NgLiftIte != LiftIteNone }},
		{"lift_ite", s.liftIte, func() bool { return s.cfg.LiftIte != LiftIteNone }},
		{"eliminate_term_ite", s.eliminateTermIte, func() bool { return s.cfg.EliminateTermIteEnabled() }},
		{"refine_inj_axiom", s.refineInjAxiom, func() bool { return s.cfg.RefineInjAxiom && s.hasQuantifiersPending() }},
		{"apply_distribute_forall", s.applyDistributeForall, func() bool { return s.cfg.DistributeForall && s.hasQuantifiersPending() }},
		{"find_macros_2", s.findMacrosStep, func() bool { return s.cfg.MacroFinder && s.hasQuantifiersPending() }},
		{"apply_quasi_macros", s.applyQuasiMacros, func() bool { return s.cfg.QuasiMacros && s.hasQuantifiersPending() }},
		{"apply_bit2int", s.applyBit2Int, func() bool { return s.cfg.SimplifyBit2Int }},
		{"cheap_quant_fourier_motzkin", s.cheapQuantFourierMotzkin, func() bool { return s.cfg.EliminateBounds && s.hasQuantifiersPending() }},
		{"infer_patterns", s.inferPatterns, func() bool { return s.cfg.EMatching && s.hasQuantifiersPending() }},
		{"max_bv_sharing", s.maxBVSharing, func() bool { return s.cfg.MaxBVSharing && s.hasBVPending() }},
		{"elim_bvs_from_quantifiers", s.elimBVsFromQuantifiers, func() bool { return s.cfg.BBQuantifiers }},
		{"reduce_asserted_formulas", s.reduceAssertedFormulas, always},
	}

	for _, step := range steps {
		if !step.gate() {
			continue
		}
		if s.log.GetSink() != nil {
			s.log.V(1).Info("pipeline step", "step", step.name)
		}
		if err := step.run(); err != nil {
			return err
		}
		if stop, err := s.checkpoint(); stop {
			return err
		}
	}

	// temporary HACK: max_bv_sharing and some earlier passes can disturb
	// arithmetic/bit-vector associativity that reduce_asserted_formulas
	// already renormalized once above; re-run it until the underlying
	// passes are made order-independent (§9 open question).
	if err := s.reduceAssertedFormulas(); err != nil {
		return err
	}
	if stop, err := s.checkpoint(); stop {
		return err
	}

	s.simp.FlushCache()
	if !s.inconsistent {
		s.state = StateCollecting
	}
	return nil
}

func always() bool { return true }

// checkpoint implements the "after every pass: check cancellation, check
// inconsistency; on either, stop and return" rule (§4.3). Returns
// (stop=true, nil) on cancellation per §5's "cancellation does not set the
// inconsistent flag" and never returns an error for it.
func (s *Store) checkpoint() (bool, error) {
	if s.canceled() {
		s.state = StateCancelled
		return true, nil
	}
	if s.inconsistent {
		s.state = StateInconsistent
		return true, nil
	}
	return false, nil
}

func (s *Store) hasQuantifiersPending() bool {
	for _, e := range s.pending() {
		if s.mgr.HasQuantifier(e) {
			return true
		}
	}
	return false
}

func (s *Store) hasBVPending() bool {
	for _, e := range s.pending() {
		if s.mgr.HasBV(e) {
			return true
		}
	}
	return false
}

// reduceAssertedFormulas is "reduce-and-solve" (§4.3): flush the cache, then
// run the per-pass template with the simplifier itself as the transformer.
// Most passes end by calling this to renormalize after their own rewrite.
func (s *Store) reduceAssertedFormulas() error {
	s.simp.FlushCache()
	return s.rewritePass("reduce_asserted_formulas", func(e Expr, p Proof) (Expr, Proof, []Expr, []Proof, bool) {
		out, rp := s.simp.Simplify(e)
		if out.Id() == e.Id() {
			return e, p, nil, nil, false
		}
		return out, s.mgr.MkModusPonens(p, rp), nil, nil, true
	})
}

// passTransformer is the signature §4.3's per-pass template wraps: given one
// pending (expression, proof) pair, produce a rewritten pair plus any
// side-formulas the pass wants appended to the output suffix (eliminate_term_ite
// and nnf_cnf are the two passes that use the side-formula channel, §4.9).
type passTransformer func(e Expr, p Proof) (e2 Expr, p2 Proof, sideA []Expr, sideP []Proof, changed bool)

// rewritePass implements the rewrite-pass template of §4.3: iterate
// A[qhead:], transform each pair, compose proofs via modus-ponens on change,
// accumulate into A'/P', then swap-suffix. It checks cancellation inside the
// loop (not just at pass boundaries) so a pass over a very large pending
// suffix remains responsive (§5 "checked ... inside long loops").
func (s *Store) rewritePass(name string, transform passTransformer) error {
	pending := s.pending()
	proofs := s.pendingProofs()

	newA := make([]Expr, 0, len(pending))
	newP := make([]Proof, 0, len(pending))

	for i, e := range pending {
		if s.canceled() {
			return nil
		}
		var p Proof
		if s.mgr.ProofsEnabled() {
			p = proofs[i]
		}
		e2, p2, sideA, sideP, changed := transform(e, p)
		if !changed {
			newA = append(newA, e)
			newP = append(newP, p)
			continue
		}
		newA = append(newA, e2)
		newP = append(newP, p2)
		newA = append(newA, sideA...)
		newP = append(newP, sideP...)
	}

	s.swapSuffix(newA, newP)
	return nil
}
