package afpipeline

// findMacrosStep implements §4.7's find_macros: hand the pending suffix to
// the macro finder, which detects definitions, records them in the macro
// manager, removes consumed defining assertions, and emits the expanded
// residue. Reduce-and-solve runs unconditionally, whether or not a macro was
// found, matching find_macros_core's swap+reduce_and_solve call on every
// invocation.
func (s *Store) findMacrosStep() error {
	residue, changed := s.macroFinder.FindMacros(s.mgr, s.macro, s.pending())
	if changed {
		s.applyExpansionToResidue(residue)
	}
	return s.reduceAssertedFormulas()
}

// applyExpansionToResidue rewrites every surviving formula by expanding
// macro applications, rebuilding proofs for the ones that actually changed
// and preserving the pairing with proofs for the rest.
func (s *Store) applyExpansionToResidue(residue []Expr) {
	proofs := s.pendingProofs()
	oldPending := s.pending()

	oldProofByID := make(map[uint64]Proof, len(oldPending))
	for i, e := range oldPending {
		if s.mgr.ProofsEnabled() {
			oldProofByID[e.Id()] = proofs[i]
		}
	}

	newA := make([]Expr, len(residue))
	newP := make([]Proof, len(residue))
	for i, e := range residue {
		expanded := expandMacros(s.mgr, s.macro, e)
		incoming := oldProofByID[e.Id()]
		if expanded.Id() != e.Id() {
			newA[i] = expanded
			newP[i] = s.mgr.MkModusPonens(incoming, s.mgr.MkRewrite(e, expanded))
		} else {
			newA[i] = e
			newP[i] = incoming
		}
	}
	s.swapSuffix(newA, newP)
}

// expandMacrosStep implements §4.7's expand_macros: the same code path as
// find_macros, invoked at the top of reduce() when macros are already
// present from a previous scope.
func (s *Store) expandMacrosStep() error {
	s.applyExpansionToResidue(s.pending())
	return s.reduceAssertedFormulas()
}

// applyQuasiMacros implements §4.3 step 15 / §4.7: run the quasi-macro
// detector in a fixpoint loop until it makes no progress, then
// reduce-and-solve.
func (s *Store) applyQuasiMacros() error {
	anyChange := false
	for {
		if s.canceled() || s.inconsistent {
			break
		}
		residue, changed := s.quasiMacroFinder.ApplyQuasiMacros(s.mgr, s.macro, s.pending())
		if !changed {
			break
		}
		anyChange = true
		s.applyExpansionToResidue(residue)
	}
	if anyChange {
		return s.reduceAssertedFormulas()
	}
	return nil
}
