package afpipeline

import (
	"testing"

	"github.com/go-logr/logr"
)

func TestPullCheapIteTreesHoistsFromAnd(t *testing.T) {
	in := NewInterner(false)
	s := NewStore(in, DefaultConfig(), nil, logr.Discard())

	c := in.Symbol("c")
	a := in.Symbol("a")
	b := in.Symbol("b")
	q := in.Symbol("q")
	e := in.And(in.ITE(c, a, b), q)
	s.AssertOnly(e)

	if err := s.pullCheapIteTrees(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pending := s.pending()
	if len(pending) != 1 || pending[0].Kind() != KindITE {
		t.Errorf("expected the ITE to be hoisted to the top level, got %s", pending[0].String())
	}
}

func TestEliminateTermIteNamesTermPositionITE(t *testing.T) {
	in := NewInterner(false)
	s := NewStore(in, DefaultConfig(), nil, logr.Discard())

	c := in.Symbol("c")
	a := in.Value(1)
	b := in.Value(2)
	f := in.Symbol("f")
	e := in.Lt(in.Apply(f, in.ITE(c, a, b)), in.Value(10))
	s.AssertOnly(e)

	if err := s.eliminateTermIte(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pending := s.pending()
	if len(pending) < 2 {
		t.Fatalf("expected a defining side-formula to be appended, got %d formulas", len(pending))
	}
	foundITE := false
	for _, p := range pending {
		if anySubterm(p, func(x Expr) bool { return x.Kind() == KindITE }) {
			foundITE = true
		}
	}
	if !foundITE {
		t.Errorf("expected the ITE to survive in the defining side-formula")
	}
}
