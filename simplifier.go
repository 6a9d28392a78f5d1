package afpipeline

import (
	"sync"

	"github.com/go-logr/logr"
)

type cacheEntry struct {
	to Expr
	p  Proof
}

// Simplifier is the composition-of-theory-plugins core (§4.1): it dispatches
// an expression to the fixed plugin chain and memoizes results, mirroring
// expr_builder.go's bucketed cache except keyed by expression identity
// rather than structural hash, since Simplify's cache is a substitution
// table (§9, "cache-as-substitution trick"), not a hash-consing table.
type Simplifier struct {
	mu      sync.Mutex
	mgr     Manager
	plugins []Plugin
	cache   map[uint64]cacheEntry

	eliminateAnd bool
	presimp      bool
	bvInvoked    bool

	log logr.Logger
}

// NewSimplifier registers the fixed plugin chain in the order §4.1 mandates:
// basic (Boolean), arithmetic, array, bit-vector, datatype, floating-point,
// sequence.
func NewSimplifier(mgr Manager, log logr.Logger) *Simplifier {
	s := &Simplifier{
		mgr:   mgr,
		cache: make(map[uint64]cacheEntry),
		log:   log,
	}
	basic := &basicPlugin{eliminateAnd: func() bool { return s.eliminateAnd }}
	s.plugins = []Plugin{
		basic,
		&arithPlugin{},
		newArrayPlugin(),
		newBVPlugin(&s.bvInvoked),
		newDatatypePlugin(),
		newFPAPlugin(),
		newSeqPlugin(),
	}
	return s
}

// Register appends a theory plugin to the chain. Only used to extend the
// fixed set constructed by NewSimplifier (e.g. in tests); production wiring
// registers all seven plugins once, at construction, per §4.1.
func (s *Simplifier) Register(p Plugin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plugins = append(s.plugins, p)
}

// SetEliminateAnd flips the eliminate_and flag. Changing it invalidates
// every memoized rewrite, because whether "and" folds to
// not(or(not,not,...)) is baked into any cached result that passed through
// an And node (§4.1, §3 cache invalidation list).
func (s *Simplifier) SetEliminateAnd(v bool) {
	s.mu.Lock()
	changed := s.eliminateAnd != v
	s.eliminateAnd = v
	s.mu.Unlock()
	if changed {
		s.FlushCache()
	}
}

func (s *Simplifier) EliminateAnd() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eliminateAnd
}

// SetPresimp sets §4.1's presimp flag, which Store.Assert turns on for its
// pre-simplification run. No plugin reads the flag, so Simplify rewrites
// the same way whether it is set or not; there is no lighter variant.
func (s *Simplifier) SetPresimp(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presimp = v
}

// HasBV approximates whether any bit-vector operation has ever been
// simplified, the way bv_simplifier_plugin::reduce_invoked() does (§4.8).
func (s *Simplifier) HasBV() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bvInvoked
}

// FlushCache drops every memoized result. Invalidation points are listed in
// §3: scope pop, eliminate_and toggle, end of value propagation, end of
// every full reduce cycle.
func (s *Simplifier) FlushCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[uint64]cacheEntry)
}

// IsCached probes for a memoized entry without simplifying.
func (s *Simplifier) IsCached(e Expr) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cache[e.Id()]
	return ok
}

// CacheResult externally injects a rewrite rule, used by propagate_values
// and propagate_booleans to pre-seed the substitution environment (§9,
// "cache-as-substitution trick").
func (s *Simplifier) CacheResult(a, b Expr, p Proof) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[a.Id()] = cacheEntry{to: b, p: p}
}

// Simplify returns the normal form of e and a proof of e <-> e' (when
// proofs are enabled). Each plugin runs, in registration order, on every
// subterm; rewriting proceeds bottom-up and repeats a subterm through the
// full chain until no plugin further rewrites it, satisfying the "plugins
// must be idempotent on their fixed points" contract compositionally.
func (s *Simplifier) Simplify(e Expr) (Expr, Proof) {
	memo := make(map[uint64]Expr)
	pmemo := make(map[uint64]Proof)
	out := s.simplifyRec(e, memo, pmemo)
	return out, pmemo[e.Id()]
}

func (s *Simplifier) simplifyRec(e Expr, memo map[uint64]Expr, pmemo map[uint64]Proof) Expr {
	if out, ok := memo[e.Id()]; ok {
		return out
	}

	s.mu.Lock()
	if entry, ok := s.cache[e.Id()]; ok {
		s.mu.Unlock()
		memo[e.Id()] = entry.to
		pmemo[e.Id()] = entry.p
		return entry.to
	}
	s.mu.Unlock()

	children := e.Subexprs()
	newChildren := make([]Expr, len(children))
	anyChildChanged := false
	for i, c := range children {
		nc := s.simplifyRec(c, memo, pmemo)
		newChildren[i] = nc
		if nc.Id() != c.Id() {
			anyChildChanged = true
		}
	}

	rebuilt := e
	if anyChildChanged {
		rebuilt = rebuildWithChildren(s.mgr, e, newChildren)
	}

	cur := rebuilt
	var curProof Proof
	if anyChildChanged {
		curProof = s.mgr.MkRewriteStar(e, rebuilt, "congruence")
	}

	for {
		changedThisPass := false
		for _, p := range s.plugins {
			next, pr, changed := p.Simplify(s.mgr, cur)
			if !changed {
				continue
			}
			if s.log.GetSink() != nil {
				s.log.V(2).Info("plugin rewrite", "plugin", p.Name(), "from", cur.String(), "to", next.String())
			}
			curProof = s.mgr.MkModusPonens(curProof, pr)
			cur = next
			changedThisPass = true
		}
		if !changedThisPass {
			break
		}
	}

	memo[e.Id()] = cur
	pmemo[e.Id()] = curProof

	s.mu.Lock()
	s.cache[e.Id()] = cacheEntry{to: cur, p: curProof}
	s.mu.Unlock()

	return cur
}

// rebuildWithChildren reconstructs e with newChildren substituted in,
// using the Manager's smart constructors so structural simplifications
// (constant folding, flattening) apply on the way back up, matching how
// expr_builder.go's smart constructors are the only way to build a node.
func rebuildWithChildren(mgr Manager, e Expr, nc []Expr) Expr {
	switch e.Kind() {
	case KindNot:
		return mgr.Not(nc[0])
	case KindAnd:
		return mgr.And(nc...)
	case KindOr:
		return mgr.Or(nc...)
	case KindEq:
		return mgr.Eq(nc[0], nc[1])
	case KindLt:
		return mgr.Lt(nc[0], nc[1])
	case KindITE:
		return mgr.ITE(nc[0], nc[1], nc[2])
	case KindForall:
		vars, _, _ := mgr.IsForall(e)
		return mgr.Forall(vars, nc[0])
	case KindApply:
		return mgr.Apply(nc[0], nc[1:]...)
	case KindBV:
		return mgr.BVMarker(nc[0])
	default:
		return e
	}
}
