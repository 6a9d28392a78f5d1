package afpipeline

import (
	"testing"

	"github.com/go-logr/logr"
)

func TestSimplifierFoldsDoubleNegation(t *testing.T) {
	in := NewInterner(false)
	simp := NewSimplifier(in, logr.Discard())
	x := in.Symbol("x")
	e := in.Not(in.Not(x))
	out, _ := simp.Simplify(e)
	if out.Id() != x.Id() {
		t.Errorf("expected !!x to simplify to x, got %s", out.String())
	}
}

func TestSimplifierMemoizes(t *testing.T) {
	in := NewInterner(false)
	simp := NewSimplifier(in, logr.Discard())
	x := in.Symbol("x")
	e := in.Not(in.Not(x))
	simp.Simplify(e)
	if !simp.IsCached(e) {
		t.Errorf("expected Simplify to memoize its result")
	}
	simp.FlushCache()
	if simp.IsCached(e) {
		t.Errorf("expected FlushCache to drop memoized results")
	}
}

func TestSetEliminateAndFlushesCache(t *testing.T) {
	in := NewInterner(false)
	simp := NewSimplifier(in, logr.Discard())
	x := in.Symbol("x")
	y := in.Symbol("y")
	e := in.And(x, y)
	simp.Simplify(e)
	if !simp.IsCached(e) {
		t.Fatalf("expected e to be cached before toggling eliminate_and")
	}
	simp.SetEliminateAnd(true)
	if simp.IsCached(e) {
		t.Errorf("expected SetEliminateAnd to flush the cache on change")
	}
}

func TestEliminateAndRewrite(t *testing.T) {
	in := NewInterner(false)
	simp := NewSimplifier(in, logr.Discard())
	simp.SetEliminateAnd(true)
	x := in.Symbol("x")
	y := in.Symbol("y")
	out, _ := simp.Simplify(in.And(x, y))
	if out.Kind() != KindNot {
		t.Errorf("expected and(x,y) to rewrite to not(or(not x, not y)), got %s", out.String())
	}
}

func TestCacheResultActsAsSubstitution(t *testing.T) {
	in := NewInterner(false)
	simp := NewSimplifier(in, logr.Discard())
	x := in.Symbol("x")
	three := in.Value(3)
	simp.CacheResult(x, three, Proof{})
	out, _ := simp.Simplify(x)
	if out.Id() != three.Id() {
		t.Errorf("expected cached substitution x -> 3 to apply, got %s", out.String())
	}
}

func TestHasBVTracksPluginInvocation(t *testing.T) {
	in := NewInterner(false)
	simp := NewSimplifier(in, logr.Discard())
	if simp.HasBV() {
		t.Fatalf("expected HasBV to be false before any bit-vector term is simplified")
	}
	x := in.Symbol("x")
	simp.Simplify(in.BVMarker(x))
	if !simp.HasBV() {
		t.Errorf("expected HasBV to be true after simplifying a BVMarker term")
	}
}
