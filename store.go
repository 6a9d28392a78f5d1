package afpipeline

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"github.com/mattn/go-isatty"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// storeState is the state-machine label of §4.10. It is diagnostic only —
// no operation branches on it directly, each operation's own guard clauses
// already enforce the same transitions — but Store.State() exposes it for
// callers and tests that want to assert on it (§8's invariant tests read
// naturally against these labels).
type storeState int

const (
	StateCollecting storeState = iota
	StateReducing
	StateCommitted
	StateInconsistent
	StateCancelled
)

func (s storeState) String() string {
	switch s {
	case StateCollecting:
		return "Collecting"
	case StateReducing:
		return "Reducing"
	case StateCommitted:
		return "Committed"
	case StateInconsistent:
		return "Inconsistent"
	case StateCancelled:
		return "Cancelled"
	}
	return "Unknown"
}

// scopeSnapshot is the per-push record §3 describes: size of A at push time
// and the inconsistent flag at push time, enough to restore both on pop.
type scopeSnapshot struct {
	sizeAtPush         int
	inconsistentAtPush bool
}

// Store is the incremental assertion store: an ordered sequence of
// (expression, proof) pairs with a committed-head pointer and a scope
// stack (§3, §4.2). It owns the Simplifier, macro manager, bit-vector
// sharing analyzer and defined-names table, and is responsible for
// push/popping all four together (invariant 5, §9 "single scoped
// capability").
type Store struct {
	mgr Manager
	cfg Config

	simp  *Simplifier
	macro *macroManager
	bv    *bvSharingAnalyzer
	names *definedNames

	macroFinder      MacroFinder
	quasiMacroFinder QuasiMacroFinder
	nnf              NNFEngine

	a []Expr
	p []Proof

	qhead        int
	inconsistent bool
	cancelled    func() bool

	scopes []scopeSnapshot
	state  storeState

	lastDisplay string
	log         logr.Logger
}

// NewStore constructs an empty store wired to mgr and cfg. canceled may be
// nil, in which case cancellation is never observed (§5A).
func NewStore(mgr Manager, cfg Config, canceled func() bool, log logr.Logger) *Store {
	cfg.Setup()
	if canceled == nil {
		canceled = func() bool { return false }
	}
	return &Store{
		mgr:              mgr,
		cfg:              cfg,
		simp:             NewSimplifier(mgr, log),
		macro:            newMacroManager(),
		bv:               newBVSharingAnalyzer(),
		names:            newDefinedNames(),
		macroFinder:      newDefaultMacroFinder(),
		quasiMacroFinder: newDefaultQuasiMacroFinder(),
		nnf:              newDefaultNNFEngine(),
		cancelled:        canceled,
		state:            StateCollecting,
		log:              log,
	}
}

func (s *Store) canceled() bool { return s.cancelled() }

// Config returns a copy of the store's configuration. Changing toggles on
// the copy has no effect on the store until it is passed to SetConfig,
// which re-applies the coupling rules.
func (s *Store) Config() Config { return s.cfg }

func (s *Store) SetConfig(c Config) {
	c.Setup()
	s.cfg = c
}

// SetEliminateAnd implements §6's set_eliminate_and: flips the flag on the
// simplifier, flushing its cache (§4.1).
func (s *Store) SetEliminateAnd(v bool) { s.simp.SetEliminateAnd(v) }

// HasBV implements §6's has_bv(): approximated by whether the bit-vector
// plugin has ever fired (§4.8).
func (s *Store) HasBV() bool { return s.simp.HasBV() }

func (s *Store) Inconsistent() bool { return s.inconsistent }

func (s *Store) State() storeState { return s.state }

// GetAssertions returns a snapshot of A (§4.2).
func (s *Store) GetAssertions() []Expr {
	out := make([]Expr, len(s.a))
	copy(out, s.a)
	return out
}

// GetFormulasLastLevel implements §6's get_formulas_last_level: size of A at
// the top of the scope stack, or 0 when the scope stack is empty (§9 open
// question: callers distinguishing "top level, nothing asserted" from "top
// level, some asserted" must use len(GetAssertions()) instead).
func (s *Store) GetFormulasLastLevel() int {
	if len(s.scopes) == 0 {
		return 0
	}
	return s.scopes[len(s.scopes)-1].sizeAtPush
}

func (s *Store) QHead() int { return s.qhead }

// Init bulk-seeds the store. Fails with PreconditionViolated if the store is
// not empty (§4.2).
func (s *Store) Init(formulas []Expr, proofs []Proof) error {
	if len(s.a) != 0 {
		return NewPreconditionViolated("Store.Init", "store is not empty")
	}
	if s.mgr.ProofsEnabled() && proofs != nil && len(proofs) != len(formulas) {
		return NewPreconditionViolated("Store.Init", "len(proofs) != len(formulas) when proofs enabled")
	}
	s.a = append(s.a, formulas...)
	if s.mgr.ProofsEnabled() {
		if proofs == nil {
			proofs = make([]Proof, len(formulas))
			for i, f := range formulas {
				proofs[i] = s.mgr.MkAsserted(f)
			}
		}
		s.p = append(s.p, proofs...)
	}
	for _, f := range formulas {
		if s.mgr.IsFalse(f) {
			s.inconsistent = true
			s.state = StateInconsistent
		}
	}
	return nil
}

// Assert implements §4.2's assert: the pre-simplifier (if enabled) then the
// main simplifier run on e, with eliminate_and forced false beforehand (ANDs
// must survive until NNF). The result is appended to A (and P, when proofs
// are enabled). If the simplified result is the literal false, inconsistent
// is set.
func (s *Store) Assert(e Expr, p Proof) {
	if s.inconsistent || s.canceled() {
		return
	}
	if !s.cfg.Preprocess {
		s.a = append(s.a, e)
		if s.mgr.ProofsEnabled() {
			s.p = append(s.p, p)
		}
		s.markInconsistentIfFalse(e)
		return
	}

	s.simp.SetEliminateAnd(false)

	cur, curProof := e, p
	if s.cfg.PreSimplifier {
		s.simp.SetPresimp(true)
		cur, curProof = s.runSimplify(cur, curProof)
		s.simp.SetPresimp(false)
	}
	cur, curProof = s.runSimplify(cur, curProof)

	s.a = append(s.a, cur)
	if s.mgr.ProofsEnabled() {
		s.p = append(s.p, curProof)
	}
	s.markInconsistentIfFalse(cur)
}

// AssertOnly implements §6's assert(e) overload: proofs are synthesized via
// MkAsserted when proof production is enabled, otherwise the zero sentinel.
func (s *Store) AssertOnly(e Expr) {
	s.Assert(e, s.mgr.MkAsserted(e))
}

func (s *Store) runSimplify(e Expr, incoming Proof) (Expr, Proof) {
	out, rewriteProof := s.simp.Simplify(e)
	if out.Id() == e.Id() {
		return e, incoming
	}
	return out, s.mgr.MkModusPonens(incoming, rewriteProof)
}

func (s *Store) markInconsistentIfFalse(e Expr) {
	if s.mgr.IsFalse(e) {
		s.inconsistent = true
		s.state = StateInconsistent
	}
}

// PushScope implements §4.2's push_scope: commits first (the caller must
// have fully preprocessed before entering a nested scope, invariant 4),
// then records the snapshot and pushes every scoped sub-component together
// (invariant 5, §9).
func (s *Store) PushScope() {
	s.Commit(-1)
	s.scopes = append(s.scopes, scopeSnapshot{sizeAtPush: len(s.a), inconsistentAtPush: s.inconsistent})
	s.macro.Push()
	s.bv.Push()
	s.names.Push()
}

// PopScope implements §4.2's pop_scope(n): pops n scope frames, trimming A/P
// back to each frame's size_at_push, restoring inconsistent, and resetting
// qhead to size_at_push (invariant: qhead <= |A| after pop). Popping more
// frames than exist is a PreconditionViolated.
func (s *Store) PopScope(n int) error {
	if n < 0 || n > len(s.scopes) {
		return NewPreconditionViolated("Store.PopScope", fmt.Sprintf("cannot pop %d scopes, only %d open", n, len(s.scopes)))
	}
	for i := 0; i < n; i++ {
		top := len(s.scopes) - 1
		snap := s.scopes[top]
		s.a = s.a[:snap.sizeAtPush]
		if s.mgr.ProofsEnabled() {
			s.p = s.p[:snap.sizeAtPush]
		}
		s.inconsistent = snap.inconsistentAtPush
		s.qhead = snap.sizeAtPush
		s.scopes = s.scopes[:top]

		if err := s.macro.Pop(); err != nil {
			return err
		}
		if err := s.bv.Pop(); err != nil {
			return err
		}
		if err := s.names.Pop(); err != nil {
			return err
		}
	}
	s.simp.FlushCache()
	if s.inconsistent {
		s.state = StateInconsistent
	} else {
		s.state = StateCollecting
	}
	return nil
}

// Reset clears everything back to the fresh-store state (§4.2).
func (s *Store) Reset() {
	s.a = nil
	s.p = nil
	s.qhead = 0
	s.inconsistent = false
	s.scopes = nil
	s.state = StateCollecting
	s.simp.FlushCache()
	s.macro.Reset()
	s.bv.Reset()
	s.names.Reset()
}

// Commit implements §4.2's commit: marks the heads of newly-committed
// formulas as forbidden macro heads, then advances qhead. newQHead < 0
// means "commit everything" (|A|). newQHead > |A| is a PreconditionViolated.
func (s *Store) Commit(newQHead int) error {
	if newQHead < 0 {
		newQHead = len(s.a)
	}
	if newQHead > len(s.a) {
		return NewPreconditionViolated("Store.Commit", fmt.Sprintf("new_qhead %d > |A| %d", newQHead, len(s.a)))
	}
	if newQHead < s.qhead {
		return NewPreconditionViolated("Store.Commit", "new_qhead must not move backward")
	}
	for i := s.qhead; i < newQHead; i++ {
		forbidAppliedHeads(s.mgr, s.a[i], s.macro)
	}
	s.qhead = newQHead
	if !s.inconsistent {
		s.state = StateCommitted
	}
	if s.cfg.DisplayFeatures {
		s.collectStaticFeatures()
	}
	return nil
}

// forbidAppliedHeads walks e and forbids every KindApply head symbol it
// finds, the way committing a formula like f(x) > 0 must prevent a later
// macro pass from redefining f within the same scope.
func forbidAppliedHeads(mgr Manager, e Expr, mm *macroManager) {
	visited := make(map[uint64]bool)
	var walk func(Expr)
	walk = func(x Expr) {
		if visited[x.Id()] {
			return
		}
		visited[x.Id()] = true
		if head, _, ok := mgr.IsApply(x); ok && head.Kind() == KindSymbol {
			mm.Forbid(head.String())
		}
		for _, c := range x.Subexprs() {
			walk(c)
		}
	}
	walk(e)
}

// GetInconsistencyProof implements §4.2: when inconsistent, scan A for the
// literal false and return its proof. Fails with MissingInvariant if no such
// entry is found (§9 open question: treated here as a fatal invariant
// violation, never a legitimately recoverable state) and with
// PreconditionViolated if the store is not inconsistent.
func (s *Store) GetInconsistencyProof() (Proof, error) {
	if !s.inconsistent {
		return Proof{}, NewPreconditionViolated("Store.GetInconsistencyProof", "store is not inconsistent")
	}
	for i, e := range s.a {
		if s.mgr.IsFalse(e) {
			if s.mgr.ProofsEnabled() {
				return s.p[i], nil
			}
			return Proof{}, nil
		}
	}
	return Proof{}, NewMissingInvariant("inconsistent is set but no literal false is present in A")
}

// pending returns A[qhead:], the slice most passes operate on.
func (s *Store) pending() []Expr {
	return s.a[s.qhead:]
}

func (s *Store) pendingProofs() []Proof {
	if !s.mgr.ProofsEnabled() {
		return nil
	}
	return s.p[s.qhead:]
}

// swapSuffix replaces A[qhead:] (and P[qhead:]) with newA/newP, the
// "swap-suffix" step every rewrite pass ends with (§4.3). A literal false in
// the new suffix sets inconsistent.
func (s *Store) swapSuffix(newA []Expr, newP []Proof) {
	s.a = append(s.a[:s.qhead:s.qhead], newA...)
	if s.mgr.ProofsEnabled() {
		s.p = append(s.p[:s.qhead:s.qhead], newP...)
	}
	for _, e := range newA {
		s.markInconsistentIfFalse(e)
	}
}

// CollectStaticFeatures implements §6's optional collect_static_features()
// diagnostic: logs a summary of the current assertion set's shape. Also
// invoked automatically from Commit when Config.DisplayFeatures is set.
func (s *Store) CollectStaticFeatures() {
	s.collectStaticFeatures()
}

func (s *Store) collectStaticFeatures() {
	if s.log.GetSink() == nil {
		return
	}
	s.log.V(1).Info("static features", "num_assertions", len(s.a), "qhead", s.qhead,
		"has_bv", s.HasBV(), "has_macros", s.macro.HasMacros(), "num_scopes", len(s.scopes))
}

// Display renders a human-readable dump of the assertion set (§6's
// display(out)). Colorized when out is a terminal, following the
// isatty/fatih-color pattern the pack's tony-format CLI uses for its own
// terminal output.
func (s *Store) Display(out io.Writer) {
	useColor := false
	if f, ok := out.(interface{ Fd() uintptr }); ok {
		useColor = isatty.IsTerminal(f.Fd())
	}
	label := func(text string) string {
		if !useColor {
			return text
		}
		return color.New(color.FgCyan, color.Bold).Sprint(text)
	}
	fmt.Fprintf(out, "%s (qhead=%d, inconsistent=%v, scopes=%d)\n",
		label("assertions"), s.qhead, s.inconsistent, len(s.scopes))
	for i, e := range s.a {
		marker := "pending"
		if i < s.qhead {
			marker = "committed"
		}
		fmt.Fprintf(out, "  [%d/%s] %s\n", i, marker, e.String())
	}
}

// DisplayLL implements §6's display_ll(out, visited): a dump restricted to
// the current scope level's formulas, i.e. A[last_level:]. After the first
// call it prints an inline diff (diffmatchpatch's DiffPrettyText, with
// insertions and deletions marked by terminal colors) against the previous
// DisplayLL call's output instead of the plain dump — making reduce()'s
// effect on this level legible across successive calls, the way the pack's
// go-diff-based tooling renders structured-text deltas.
func (s *Store) DisplayLL(out io.Writer, visited map[uint64]bool) {
	start := s.GetFormulasLastLevel()
	var b []byte
	for i := start; i < len(s.a); i++ {
		e := s.a[i]
		if visited != nil {
			if visited[e.Id()] {
				continue
			}
			visited[e.Id()] = true
		}
		b = append(b, []byte(fmt.Sprintf("[%d] %s\n", i, e.String()))...)
	}
	current := string(b)
	if s.lastDisplay != "" {
		dmp := diffmatchpatch.New()
		diffs := dmp.DiffMain(s.lastDisplay, current, false)
		fmt.Fprint(out, dmp.DiffPrettyText(diffs))
	} else {
		fmt.Fprint(out, current)
	}
	s.lastDisplay = current
}
