package afpipeline

import "testing"

func TestInternerHashConsing(t *testing.T) {
	in := NewInterner(false)
	a := in.Symbol("x")
	b := in.Symbol("x")
	if a.Id() != b.Id() {
		t.Errorf("expected hash-consing to return the same node for Symbol(\"x\") twice")
	}
	c := in.Symbol("y")
	if a.Id() == c.Id() {
		t.Errorf("expected distinct symbols to get distinct ids")
	}
}

func TestAndFlattensAndFolds(t *testing.T) {
	in := NewInterner(false)
	x := in.Symbol("x")
	y := in.Symbol("y")
	flat := in.And(in.And(x, y), in.True())
	children, ok := in.IsAnd(flat)
	if !ok {
		t.Fatalf("expected And(And(x,y), true) to flatten to a binary And")
	}
	if len(children) != 2 {
		t.Errorf("expected 2 children after flattening + true removal, got %d", len(children))
	}

	folded := in.And(x, in.False())
	if !in.IsFalse(folded) {
		t.Errorf("expected And(x, false) to fold to false")
	}
}

func TestEqOfIdenticalExprIsTrue(t *testing.T) {
	in := NewInterner(false)
	x := in.Symbol("x")
	if !in.IsTrue(in.Eq(x, x)) {
		t.Errorf("expected Eq(x, x) to fold to true")
	}
}

func TestProofsDisabledYieldSentinel(t *testing.T) {
	in := NewInterner(false)
	x := in.Symbol("x")
	p := in.MkAsserted(x)
	if p.Conclusion() != nil {
		t.Errorf("expected the zero Proof sentinel when proofs are disabled")
	}
}

func TestProofsEnabledRecordConclusion(t *testing.T) {
	in := NewInterner(true)
	x := in.Symbol("x")
	p := in.MkAsserted(x)
	if p.Conclusion() == nil {
		t.Fatalf("expected a real conclusion when proofs are enabled")
	}
}

func TestHasQuantifierAndHasBV(t *testing.T) {
	in := NewInterner(false)
	x := in.Symbol("x")
	forall := in.Forall([]Expr{x}, in.Eq(x, x))
	if !in.HasQuantifier(forall) {
		t.Errorf("expected HasQuantifier to find the forall")
	}
	bv := in.BVMarker(x)
	if !in.HasBV(bv) {
		t.Errorf("expected HasBV to find the BVMarker")
	}
	if in.HasBV(forall) {
		t.Errorf("did not expect HasBV to find a bit-vector where there is none")
	}
}
