package afpipeline

// Plugin is a single theory's rewrite-rule set. The simplifier core
// dispatches every subterm to the plugin chain in registration order,
// bottom-up (§4.1). A plugin must be idempotent on its own fixed points,
// must produce a proof whose conclusion equates input and output, and must
// leave expressions it does not recognize untouched — exactly the three
// obligations §4.1 places on "Plugins must".
type Plugin interface {
	Name() string
	// Simplify inspects e (whose children are already in normal form) and
	// either returns it unchanged (changed=false), or returns a rewritten
	// expression together with the proof of e <-> e' (changed=true).
	Simplify(mgr Manager, e Expr) (rewritten Expr, p Proof, changed bool)
}

// basicPlugin is the Boolean theory: the teacher registers this first
// (setup_simplifier_plugins in asserted_formulas.cpp: "bsimp = alloc(basic_simplifier_plugin...)").
// It owns not/and/or/ite folding over KindValue and the eliminate_and
// rewrite (§4.1's "eliminate_and flag").
type basicPlugin struct {
	eliminateAnd func() bool
}

func (p *basicPlugin) Name() string { return "basic" }

func (p *basicPlugin) Simplify(mgr Manager, e Expr) (Expr, Proof, bool) {
	switch e.Kind() {
	case KindNot:
		inner, _ := mgr.IsNot(e)
		if mgr.IsTrue(inner) {
			return foldTo(mgr, e, mgr.False(), "not-true")
		}
		if mgr.IsFalse(inner) {
			return foldTo(mgr, e, mgr.True(), "not-false")
		}
		if grandchild, ok := mgr.IsNot(inner); ok {
			return foldTo(mgr, e, grandchild, "double-negation")
		}
	case KindAnd:
		children, _ := mgr.IsAnd(e)
		for _, c := range children {
			if mgr.IsFalse(c) {
				return foldTo(mgr, e, mgr.False(), "and-false")
			}
		}
		if p.eliminateAnd != nil && p.eliminateAnd() {
			negated := make([]Expr, len(children))
			for i, c := range children {
				negated[i] = mgr.Not(c)
			}
			rewritten := mgr.Not(mgr.Or(negated...))
			return foldTo(mgr, e, rewritten, "eliminate-and")
		}
	case KindOr:
		children, _ := mgr.IsOr(e)
		for _, c := range children {
			if mgr.IsTrue(c) {
				return foldTo(mgr, e, mgr.True(), "or-true")
			}
		}
	case KindITE:
		c := e.Subexprs()
		cond, then, els := c[0], c[1], c[2]
		if mgr.IsTrue(cond) {
			return foldTo(mgr, e, then, "ite-true")
		}
		if mgr.IsFalse(cond) {
			return foldTo(mgr, e, els, "ite-false")
		}
		if then.Id() == els.Id() {
			return foldTo(mgr, e, then, "ite-same-branch")
		}
	}
	return e, Proof{}, false
}

func foldTo(mgr Manager, from, to Expr, rule string) (Expr, Proof, bool) {
	return to, mgr.MkRewriteStar(from, to, rule), true
}

// arithPlugin is a minimal stand-in for arith_simplifier_plugin: it folds
// Lt over KindValue payloads it can compare, and simplifies Eq when both
// sides are values. Real arithmetic (§1's "individual theory rewriter
// plugins ... their internals are not [specified]") lives outside this
// component; this plugin exists only so propagate_values (§4.4) and
// cheap_quant_fourier_motzkin (§4.3 step 17) have something concrete to
// exercise in tests.
type arithPlugin struct{}

func (p *arithPlugin) Name() string { return "arith" }

func (p *arithPlugin) Simplify(mgr Manager, e Expr) (Expr, Proof, bool) {
	switch e.Kind() {
	case KindEq:
		lhs, rhs, _ := mgr.IsEq(e)
		if mgr.IsValue(lhs) && mgr.IsValue(rhs) {
			if lhs.Id() == rhs.Id() {
				return foldTo(mgr, e, mgr.True(), "eq-refl")
			}
			la, lok := comparablePayload(lhs)
			ra, rok := comparablePayload(rhs)
			if lok && rok {
				if la == ra {
					return foldTo(mgr, e, mgr.True(), "eq-const-true")
				}
				return foldTo(mgr, e, mgr.False(), "eq-const-false")
			}
		}
	case KindLt:
		c := e.Subexprs()
		lhs, rhs := c[0], c[1]
		if mgr.IsValue(lhs) && mgr.IsValue(rhs) {
			la, lok := numericPayload(lhs)
			ra, rok := numericPayload(rhs)
			if lok && rok {
				if la < ra {
					return foldTo(mgr, e, mgr.True(), "lt-const-true")
				}
				return foldTo(mgr, e, mgr.False(), "lt-const-false")
			}
		}
	}
	return e, Proof{}, false
}

func comparablePayload(e Expr) (any, bool) {
	n, ok := e.(*node)
	if !ok {
		return nil, false
	}
	return n.val, true
}

func numericPayload(e Expr) (float64, bool) {
	n, ok := e.(*node)
	if !ok {
		return 0, false
	}
	switch v := n.val.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// passthroughPlugin honors the Plugin contract for theories whose internals
// are declared out of scope by §1 (array, bit-vector, datatype,
// floating-point, sequence): it never rewrites, satisfying "must not modify
// expressions they do not recognize" vacuously for every expression. bv
// additionally records invocation so Simplifier.HasBV/§4.8's has_bv() can
// approximate presence of bit-vector operations the way
// bv_simplifier_plugin::reduce_invoked() does in the original.
type passthroughPlugin struct {
	name     string
	invoked  *bool
}

func (p *passthroughPlugin) Name() string { return p.name }

func (p *passthroughPlugin) Simplify(mgr Manager, e Expr) (Expr, Proof, bool) {
	if p.invoked != nil && e.Kind() == KindBV {
		*p.invoked = true
	}
	return e, Proof{}, false
}

func newArrayPlugin() Plugin      { return &passthroughPlugin{name: "array"} }
func newDatatypePlugin() Plugin   { return &passthroughPlugin{name: "datatype"} }
func newFPAPlugin() Plugin        { return &passthroughPlugin{name: "fpa"} }
func newSeqPlugin() Plugin        { return &passthroughPlugin{name: "seq"} }
func newBVPlugin(invoked *bool) Plugin {
	return &passthroughPlugin{name: "bv", invoked: invoked}
}
