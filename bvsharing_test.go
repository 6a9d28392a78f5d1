package afpipeline

import "testing"

func TestBVSharingIsIdempotent(t *testing.T) {
	in := NewInterner(false)
	a := newBVSharingAnalyzer()

	x := in.Symbol("x")
	y := in.Symbol("y")
	z := in.Symbol("z")

	e := in.BVMarker(in.Or(x, y, z))
	once := a.Rewrite(in, e)
	twice := a.Rewrite(in, once)

	if once.Id() != twice.Id() {
		t.Errorf("expected the sharing analyzer to be a fixed point on its own output")
	}
}

func TestBVSharingLeavesNonBVSubtreesUntouched(t *testing.T) {
	in := NewInterner(false)
	a := newBVSharingAnalyzer()

	p := in.Symbol("p")
	q := in.Symbol("q")
	e := in.And(p, q)

	out := a.Rewrite(in, e)
	if out.Id() != e.Id() {
		t.Errorf("expected a non-BV expression to pass through the sharing analyzer unchanged")
	}
}

func TestBVSharingScopeStack(t *testing.T) {
	a := newBVSharingAnalyzer()
	a.Push()
	if err := a.Pop(); err != nil {
		t.Fatalf("unexpected error popping a pushed scope: %v", err)
	}
	if err := a.Pop(); err == nil {
		t.Errorf("expected popping with no open scope to fail")
	}
}
