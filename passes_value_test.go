package afpipeline

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"
)

func TestAsValueEqualityCanonicalizesOrientation(t *testing.T) {
	in := NewInterner(true)
	x := in.Symbol("x")
	v := in.Value(3)

	_, _, _, ok := asValueEquality(in, in.Eq(v, x), Proof{})
	if !ok {
		t.Fatalf("expected v = x to be recognized")
	}
	gotX, gotV, _, _ := asValueEquality(in, in.Eq(v, x), Proof{})
	if gotX.Id() != x.Id() || gotV.Id() != v.Id() {
		t.Errorf("expected v = x to canonicalize to x = v, got x=%s v=%s", gotX.String(), gotV.String())
	}
}

func TestAsValueEqualityRejectsValueEqualsValue(t *testing.T) {
	in := NewInterner(false)
	_, _, _, ok := asValueEquality(in, in.Eq(in.Value(1), in.Value(2)), Proof{})
	if ok {
		t.Errorf("expected value = value to be rejected (that is the arith plugin's job, not value propagation)")
	}
}

func TestPropagateValuesScansCommittedPrefixToo(t *testing.T) {
	// x = 3 is committed; the pending formula using x must still be
	// rewritten, per §4.4's "scan all of A" rule.
	in := NewInterner(false)
	s := NewStore(in, DefaultConfig(), nil, logr.Discard())

	x := in.Symbol("x")
	y := in.Symbol("y")
	s.AssertOnly(in.Eq(x, in.Value(3)))
	require.NoError(t, s.Reduce())
	require.NoError(t, s.Commit(-1))

	s.AssertOnly(in.Lt(x, y))
	require.NoError(t, s.propagateValues())

	pending := s.pending()
	for _, e := range pending {
		for _, sym := range in.Symbols(e) {
			if sym.Id() == x.Id() {
				t.Errorf("expected x to be propagated out of the pending formula even though x = 3 is committed, got %s", e.String())
			}
		}
	}
}
