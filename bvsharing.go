package afpipeline

import (
	"sort"

	"github.com/mitchellh/hashstructure"
)

// bvSharingAnalyzer is the scoped, monotone analyzer of §4.8: it rewrites
// bit-vector operator trees to maximize common-subterm sharing by
// reordering commutative operands by a stable key, the same trick
// expr_builder.go uses for arithmetic Add/Mul via sort.Slice(..., Id()),
// generalized here to hash-based keys so the ordering survives across the
// scope pushes/pops the sharing analyzer itself must track (invariant 5).
//
// It keeps no per-scope data: the ordering key is recomputed from each
// operand on every Rewrite. It only counts scope depth, so that its
// Push/Pop stay matched with the macro manager and defined-names table and
// a Pop with no open scope is reported as an error.
type bvSharingAnalyzer struct {
	frames int
}

func newBVSharingAnalyzer() *bvSharingAnalyzer { return &bvSharingAnalyzer{frames: 1} }

func (a *bvSharingAnalyzer) Push() { a.frames++ }

func (a *bvSharingAnalyzer) Pop() error {
	if a.frames <= 1 {
		return NewPreconditionViolated("bvSharingAnalyzer.Pop", "no scope to pop")
	}
	a.frames--
	return nil
}

func (a *bvSharingAnalyzer) Reset() { a.frames = 1 }

// Rewrite reassociates commutative bit-vector operator subtrees in e by a
// stable structural key so that syntactically different but semantically
// commutative arrangements of the same operands hash-cons to the same
// node. Non-BV subterms pass through untouched.
func (a *bvSharingAnalyzer) Rewrite(mgr Manager, e Expr) Expr {
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
			reordered := reassociate(mgr, inner)
			if reordered.Id() != inner.Id() {
				out = mgr.BVMarker(reordered)
			}
		}
		memo[x.Id()] = out
		return out
	}
	return walk(e)
}

// reassociate reorders the operands of a commutative operator (modeled
// here by KindAnd/KindOr wrapped inside a bit-vector marker, since the
// reference AST façade has no dedicated BV arithmetic nodes; see
// SPEC_FULL.md §4.11) by a stable hash key rather than by Id(), so the
// order is deterministic across separately-interned but structurally
// identical operand sets.
func reassociate(mgr Manager, e Expr) Expr {
	var children []Expr
	switch e.Kind() {
	case KindAnd:
		children, _ = mgr.IsAnd(e)
	case KindOr:
		children, _ = mgr.IsOr(e)
	default:
		return e
	}
	keyed := make([]Expr, len(children))
	copy(keyed, children)
	sort.SliceStable(keyed, func(i, j int) bool {
		return sharingKey(keyed[i]) < sharingKey(keyed[j])
	})
	if e.Kind() == KindAnd {
		return mgr.And(keyed...)
	}
	return mgr.Or(keyed...)
}

// sharingKey computes a stable ordering key from an operand's structure
// rather than its interner-assigned id, so two operands built via
// different construction paths but structurally equal still sort
// identically. Falls back to Id() if hashing fails, which only happens for
// payload types hashstructure cannot walk.
func sharingKey(e Expr) uint64 {
	h, err := hashstructure.Hash(exprSignatureOf(e), nil)
	if err != nil {
		return e.Id()
	}
	return h
}

// exprSignature builds a hashable plain-data mirror of e's shape, since
// hashstructure cannot walk the Expr interface directly (it holds
// unexported fields and internal pointers that would make the hash
// dependent on interning order rather than structure).
type exprSignature struct {
	Kind Kind
	Str  string
}

func exprSignatureOf(e Expr) exprSignature {
	return exprSignature{Kind: e.Kind(), Str: e.String()}
}
