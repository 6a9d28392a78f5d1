package afpipeline

import (
	"testing"

	"github.com/go-logr/logr"
)

func TestPullNestedQuantifiersMerges(t *testing.T) {
	in := NewInterner(false)
	s := NewStore(in, DefaultConfig(), nil, logr.Discard())

	x := in.Symbol("x")
	y := in.Symbol("y")
	inner := in.Forall([]Expr{y}, in.Eq(x, y))
	e := in.Forall([]Expr{x}, inner)
	s.AssertOnly(e)

	if err := s.pullNestedQuantifiers(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pending := s.pending()
	vars, _, ok := in.IsForall(pending[0])
	if !ok {
		t.Fatalf("expected a forall at the top")
	}
	if len(vars) != 2 {
		t.Errorf("expected the nested foralls to merge into one binder with 2 variables, got %d", len(vars))
	}
}

func TestDistributeForallPushesIntoAnd(t *testing.T) {
	in := NewInterner(false)
	s := NewStore(in, DefaultConfig(), nil, logr.Discard())

	x := in.Symbol("x")
	f := in.Symbol("f")
	g := in.Symbol("g")
	body := in.And(in.Eq(in.Apply(f, x), x), in.Eq(in.Apply(g, x), x))
	e := in.Forall([]Expr{x}, body)
	s.AssertOnly(e)

	if err := s.applyDistributeForall(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pending := s.pending()
	children, ok := in.IsAnd(pending[0])
	if !ok {
		t.Fatalf("expected the top-level shape to be an And of two foralls, got %s", pending[0].String())
	}
	for _, c := range children {
		if _, _, ok := in.IsForall(c); !ok {
			t.Errorf("expected every conjunct to be its own forall, got %s", c.String())
		}
	}
}
