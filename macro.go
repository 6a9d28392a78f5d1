package afpipeline

// macroDef is an oriented rewrite rule head(x0, ..., xn) -> body (§3,
// "Macro manager").
type macroDef struct {
	head   Expr   // the symbol used as the applied function's head
	params []Expr // bound parameters, in order
	body   Expr
}

// macroFrame is the per-scope snapshot needed to roll back both the macro
// set and the forbidden-head set on pop_scope, matching the assertion
// store's own scope semantics (invariant 5).
type macroFrame struct {
	macroCount    int
	forbiddenKeys []string
}

// macroManager is the scoped macro table with forbidden-head semantics:
// once a symbol has been used as a macro head, no later pass in the same
// scope may choose it as a new macro head, even if that pass's own
// heuristic would otherwise accept it (§3, §4.7).
type macroManager struct {
	defs      []macroDef
	forbidden map[string]bool
	frames    []macroFrame
}

func newMacroManager() *macroManager {
	return &macroManager{forbidden: make(map[string]bool), frames: []macroFrame{{}}}
}

func (m *macroManager) HasMacros() bool { return len(m.defs) > 0 }

func (m *macroManager) IsForbidden(headName string) bool { return m.forbidden[headName] }

// Forbid marks headName so no later pass may claim it as a macro head. Used
// both when a macro is recorded and when Commit marks newly-committed
// formula heads as forbidden (§4.2 commit contract).
func (m *macroManager) Forbid(headName string) {
	if m.forbidden[headName] {
		return
	}
	m.forbidden[headName] = true
	top := len(m.frames) - 1
	m.frames[top].forbiddenKeys = append(m.frames[top].forbiddenKeys, headName)
}

// Record adds a macro definition and forbids its head in one step, unless
// the head is already forbidden — in which case the caller's proposed
// macro must be rejected, per the forbidden-head contract.
func (m *macroManager) Record(headName string, def macroDef) bool {
	if m.forbidden[headName] {
		return false
	}
	m.defs = append(m.defs, def)
	top := len(m.frames) - 1
	m.frames[top].macroCount++
	m.Forbid(headName)
	return true
}

func (m *macroManager) Defs() []macroDef { return m.defs }

func (m *macroManager) Push() {
	m.frames = append(m.frames, macroFrame{})
}

func (m *macroManager) Pop() error {
	if len(m.frames) <= 1 {
		return NewPreconditionViolated("macroManager.Pop", "no scope to pop")
	}
	top := len(m.frames) - 1
	frame := m.frames[top]
	m.defs = m.defs[:len(m.defs)-frame.macroCount]
	for _, k := range frame.forbiddenKeys {
		delete(m.forbidden, k)
	}
	m.frames = m.frames[:top]
	return nil
}

func (m *macroManager) Reset() {
	m.defs = nil
	m.forbidden = make(map[string]bool)
	m.frames = []macroFrame{{}}
}

// MacroFinder is the black-box contract §1/§4.7 describes: detect ground
// and quantified definitions in the pending suffix, record them, and
// return the residue with consumed defining assertions removed. The real
// finder's heuristics (which quantified equalities "look like" macros) are
// out of scope; this reference implementation recognizes the single
// canonical shape the spec's scenario 5 exercises: `forall x. f(x) = body`
// where `f` does not already occur in body and is not forbidden.
type MacroFinder interface {
	FindMacros(mgr Manager, mm *macroManager, pending []Expr) (residue []Expr, changed bool)
}

type defaultMacroFinder struct{}

func newDefaultMacroFinder() MacroFinder { return &defaultMacroFinder{} }

func (f *defaultMacroFinder) FindMacros(mgr Manager, mm *macroManager, pending []Expr) ([]Expr, bool) {
	out := make([]Expr, 0, len(pending))
	changed := false
	for _, e := range pending {
		vars, body, isForall := mgr.IsForall(e)
		if !isForall || len(vars) == 0 {
			out = append(out, e)
			continue
		}
		lhs, rhs, isEq := mgr.IsEq(body)
		if !isEq {
			out = append(out, e)
			continue
		}
		head, args, isApply := mgr.IsApply(lhs)
		if !isApply || head.Kind() != KindSymbol {
			out = append(out, e)
			continue
		}
		headName := head.String()
		if mm.IsForbidden(headName) || !argsAreDistinctVars(args, vars) || occursIn(rhs, head.Id()) {
			out = append(out, e)
			continue
		}
		ok := mm.Record(headName, macroDef{head: head, params: vars, body: rhs})
		if ok {
			changed = true
			continue // consumed: the defining assertion is not retained
		}
		out = append(out, e)
	}
	return out, changed
}

func argsAreDistinctVars(args, vars []Expr) bool {
	if len(args) != len(vars) {
		return false
	}
	for i, a := range args {
		if a.Id() != vars[i].Id() {
			return false
		}
	}
	return true
}

func occursIn(e Expr, id uint64) bool {
	return anySubterm(e, func(x Expr) bool { return x.Id() == id })
}

// expandMacros substitutes every recorded macro application in e with its
// body, applied bottom-up until no macro head remains reachable — the code
// path find_macros and expand_macros share (§4.7).
func expandMacros(mgr Manager, mm *macroManager, e Expr) Expr {
	if !mm.HasMacros() {
		return e
	}
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
		rebuilt := x
		if changed {
			rebuilt = rebuildWithChildren(mgr, x, newChildren)
		}
		if head, args, ok := mgr.IsApply(rebuilt); ok && head.Kind() == KindSymbol {
			for _, def := range mm.Defs() {
				if def.head.Id() != head.Id() {
					continue
				}
				if len(args) != len(def.params) {
					continue
				}
				subst := make(map[uint64]Expr, len(args))
				for i, p := range def.params {
					subst[p.Id()] = args[i]
				}
				rebuilt = walk(substitute(mgr, def.body, subst))
				break
			}
		}
		memo[x.Id()] = rebuilt
		return rebuilt
	}
	return walk(e)
}

func substitute(mgr Manager, e Expr, subst map[uint64]Expr) Expr {
	if repl, ok := subst[e.Id()]; ok {
		return repl
	}
	children := e.Subexprs()
	if len(children) == 0 {
		return e
	}
	newChildren := make([]Expr, len(children))
	changed := false
	for i, c := range children {
		nc := substitute(mgr, c, subst)
		newChildren[i] = nc
		if nc.Id() != c.Id() {
			changed = true
		}
	}
	if !changed {
		return e
	}
	return rebuildWithChildren(mgr, e, newChildren)
}

// QuasiMacroFinder is the second black-box contract of §4.7: it detects
// definitions that only conditionally determine a symbol's value (e.g.
// `x = ite(c, f(y), z)` shaped equalities) rather than a full macro. This
// reference implementation declares the contract but finds nothing,
// because quasi-macro heuristics are explicitly theory-internal detail the
// spec places out of scope alongside macro finding itself (§1).
type QuasiMacroFinder interface {
	ApplyQuasiMacros(mgr Manager, mm *macroManager, pending []Expr) (residue []Expr, changed bool)
}

type defaultQuasiMacroFinder struct{}

func newDefaultQuasiMacroFinder() QuasiMacroFinder { return &defaultQuasiMacroFinder{} }

func (f *defaultQuasiMacroFinder) ApplyQuasiMacros(mgr Manager, mm *macroManager, pending []Expr) ([]Expr, bool) {
	return pending, false
}
