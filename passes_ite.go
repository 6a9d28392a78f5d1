package afpipeline

// pullCheapIteTrees implements §4.3 step 7 / §4.9: a rewrite pass that
// hoists an ITE whose condition is "cheap" (here: any Boolean-valued
// condition, since cost estimation is theory-internal detail out of scope
// per §1) out of a surrounding And/Or, turning `f(ite(c, a, b))` shaped
// formulas into `ite(c, f(a), f(b))` when f is Not/And/Or — the
// propositional case of ite-pulling; term-level pulling across
// uninterpreted function arguments is eliminate_term_ite's job (§4.9).
func (s *Store) pullCheapIteTrees() error {
	return s.simpleRewritePass("pull_cheap_ite_trees", func(e Expr) (Expr, bool) {
		return pullIteFromPropositional(s.mgr, e)
	})
}

func pullIteFromPropositional(mgr Manager, e Expr) (Expr, bool) {
	switch e.Kind() {
	case KindNot:
		inner, _ := mgr.IsNot(e)
		if cond, then, els, ok := asITE(mgr, inner); ok {
			return mgr.ITE(cond, mgr.Not(then), mgr.Not(els)), true
		}
	case KindAnd:
		children, _ := mgr.IsAnd(e)
		for i, c := range children {
			if cond, then, els, ok := asITE(mgr, c); ok {
				return mgr.ITE(cond, replaceAt(mgr, KindAnd, children, i, then), replaceAt(mgr, KindAnd, children, i, els)), true
			}
		}
	case KindOr:
		children, _ := mgr.IsOr(e)
		for i, c := range children {
			if cond, then, els, ok := asITE(mgr, c); ok {
				return mgr.ITE(cond, replaceAt(mgr, KindOr, children, i, then), replaceAt(mgr, KindOr, children, i, els)), true
			}
		}
	}
	return e, false
}

func asITE(mgr Manager, e Expr) (cond, then, els Expr, ok bool) {
	if e.Kind() != KindITE {
		return nil, nil, nil, false
	}
	c := e.Subexprs()
	return c[0], c[1], c[2], true
}

func replaceAt(mgr Manager, k Kind, children []Expr, idx int, with Expr) Expr {
	out := make([]Expr, len(children))
	copy(out, children)
	out[idx] = with
	if k == KindAnd {
		return mgr.And(out...)
	}
	return mgr.Or(out...)
}

// ngLiftIte and liftIte both implement §4.3 steps 9/10 with the strength
// controlled by LiftIteMode (§6): "none" is a no-op, "conservative" lifts
// one ITE that is a direct child of a top-level Not/And/Or, and "full" runs
// liftAllITEs. §6's coupling rule (full forces ng_lift_ite to none; both
// conservative forces ng_lift_ite to none) is enforced by Config.Setup, not
// here; other combinations (e.g. lift_ite=conservative with
// ng_lift_ite=full) leave both passes active.
func (s *Store) ngLiftIte() error {
	return s.liftIteWithMode(s.cfg.NgLiftIte)
}

func (s *Store) liftIte() error {
	return s.liftIteWithMode(s.cfg.LiftIte)
}

func (s *Store) liftIteWithMode(mode LiftIteMode) error {
	if mode == LiftIteNone {
		return nil
	}
	full := mode == LiftIteFull
	return s.simpleRewritePass("lift_ite", func(e Expr) (Expr, bool) {
		if full {
			return liftAllITEs(s.mgr, e)
		}
		return pullIteFromPropositional(s.mgr, e)
	})
}

// liftAllITEs is the "full" strength of lift_ite: it applies
// pullIteFromPropositional until it reports no change. Once an ITE has been
// hoisted the formula's top is that ITE, which pullIteFromPropositional does
// not rewrite, so at most one ITE is lifted per call; ITEs nested deeper
// than a direct child of the top-level Not/And/Or, or inside the branches of
// the lifted ITE, are not lifted.
func liftAllITEs(mgr Manager, e Expr) (Expr, bool) {
	changed := false
	cur := e
	for {
		next, ok := pullIteFromPropositional(mgr, cur)
		if !ok {
			break
		}
		cur = next
		changed = true
	}
	return cur, changed
}

// eliminateTermIte implements §4.3 step 11 / §4.9: replaces an ITE that
// appears as a *term* argument (inside an uninterpreted Apply, not under a
// Boolean connective) with a fresh name plus a defining equation emitted as
// a side-formula, mirroring term_ite_elimination's Tseitin-style naming.
// Suppressed outright when lift_ite is "full" (Config.EliminateTermIteEnabled).
func (s *Store) eliminateTermIte() error {
	return s.rewritePass("eliminate_term_ite", func(e Expr, p Proof) (Expr, Proof, []Expr, []Proof, bool) {
		out, defs, changed := eliminateTermITEsIn(s.mgr, s.names, e)
		if !changed {
			return e, p, nil, nil, false
		}
		newP := s.mgr.MkModusPonens(p, s.mgr.MkRewrite(e, out))
		sideP := make([]Proof, len(defs))
		for i := range defs {
			sideP[i] = s.mgr.MkAsserted(defs[i])
		}
		return out, newP, defs, sideP, true
	})
}

// eliminateTermITEsIn walks e bottom-up, and whenever it finds an ITE
// reachable as an Apply argument (rather than as the whole formula or a
// Boolean-connective child), replaces it with a fresh defined name and
// records name = ite(...) as a side-formula.
func eliminateTermITEsIn(mgr Manager, dn *definedNames, e Expr) (Expr, []Expr, bool) {
	var defs []Expr
	memo := make(map[uint64]Expr)
	var walk func(Expr, bool) Expr
	walk = func(x Expr, isTermPosition bool) Expr {
		if out, ok := memo[x.Id()]; ok {
			return out
		}
		var childIsTerm bool
		switch x.Kind() {
		case KindApply:
			childIsTerm = true
		default:
			childIsTerm = isTermPosition
		}
		children := x.Subexprs()
		newChildren := make([]Expr, len(children))
		changed := false
		for i, c := range children {
			nc := walk(c, childIsTerm)
			newChildren[i] = nc
			if nc.Id() != c.Id() {
				changed = true
			}
		}
		out := x
		if changed {
			out = rebuildWithChildren(mgr, x, newChildren)
		}
		if isTermPosition && out.Kind() == KindITE {
			name := dn.Define(mgr, out)
			defs = append(defs, mgr.Eq(name, out))
			out = name
		}
		memo[x.Id()] = out
		return out
	}
	out := walk(e, false)
	return out, defs, out.Id() != e.Id() || len(defs) > 0
}

// simpleRewritePass adapts a (Expr) -> (Expr, bool) transformer, with no
// side-formulas, into the §4.3 rewrite-pass template, composing a plain
// rewrite proof on change.
func (s *Store) simpleRewritePass(name string, f func(Expr) (Expr, bool)) error {
	return s.rewritePass(name, func(e Expr, p Proof) (Expr, Proof, []Expr, []Proof, bool) {
		out, changed := f(e)
		if !changed {
			return e, p, nil, nil, false
		}
		return out, s.mgr.MkModusPonens(p, s.mgr.MkRewrite(e, out)), nil, nil, true
	})
}
