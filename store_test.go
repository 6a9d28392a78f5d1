package afpipeline

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, proofs bool) (*Store, *Interner) {
	in := NewInterner(proofs)
	cfg := DefaultConfig()
	s := NewStore(in, cfg, nil, logr.Discard())
	return s, in
}

func TestInitRejectsNonEmptyStore(t *testing.T) {
	s, in := newTestStore(t, false)
	s.AssertOnly(in.Symbol("x"))
	err := s.Init([]Expr{in.True()}, nil)
	require.Error(t, err)
	assert.True(t, IsPreconditionViolated(err))
}

func TestReduceOnEmptyPendingSuffixIsNoop(t *testing.T) {
	s, _ := newTestStore(t, false)
	before := s.GetAssertions()
	require.NoError(t, s.Reduce())
	assert.Equal(t, before, s.GetAssertions())
}

func TestScopeRollback(t *testing.T) {
	// §8 scenario 3: assert(a); push_scope(); assert(b); pop_scope(1).
	s, in := newTestStore(t, false)
	a := in.Symbol("a")
	b := in.Symbol("b")

	s.AssertOnly(a)
	require.NoError(t, s.Reduce())
	require.NoError(t, s.Commit(-1))

	s.PushScope()
	s.AssertOnly(b)

	require.NoError(t, s.PopScope(1))
	require.NoError(t, s.Commit(-1))

	got := s.GetAssertions()
	require.Len(t, got, 1)
	assert.Equal(t, a.Id(), got[0].Id())
	assert.Equal(t, len(got), s.QHead())
}

func TestInconsistencyDetection(t *testing.T) {
	// §8 scenario 2: assert(x = 1); assert(x = 2); reduce.
	s, in := newTestStore(t, true)
	x := in.Symbol("x")
	s.AssertOnly(in.Eq(x, in.Value(1)))
	s.AssertOnly(in.Eq(x, in.Value(2)))
	require.NoError(t, s.Reduce())

	assert.True(t, s.Inconsistent())
	p, err := s.GetInconsistencyProof()
	require.NoError(t, err)
	assert.NotNil(t, p.Conclusion())
}

func TestInconsistencyStickiness(t *testing.T) {
	s, in := newTestStore(t, false)
	x := in.Symbol("x")
	s.AssertOnly(in.Eq(x, in.Value(1)))
	s.AssertOnly(in.Eq(x, in.Value(2)))
	require.NoError(t, s.Reduce())
	require.True(t, s.Inconsistent())

	// further mutating operations are no-ops while inconsistent.
	before := s.GetAssertions()
	s.AssertOnly(in.Symbol("y"))
	assert.Equal(t, before, s.GetAssertions())
	assert.True(t, s.Inconsistent())
}

func TestPopScopeBeyondDepthIsProgrammerError(t *testing.T) {
	s, _ := newTestStore(t, false)
	err := s.PopScope(1)
	require.Error(t, err)
	assert.True(t, IsPreconditionViolated(err))
}

func TestCommitBeyondSizeIsProgrammerError(t *testing.T) {
	s, in := newTestStore(t, false)
	s.AssertOnly(in.Symbol("x"))
	err := s.Commit(5)
	require.Error(t, err)
	assert.True(t, IsPreconditionViolated(err))
}

func TestGetInconsistencyProofRequiresInconsistentState(t *testing.T) {
	s, _ := newTestStore(t, false)
	_, err := s.GetInconsistencyProof()
	require.Error(t, err)
	assert.True(t, IsPreconditionViolated(err))
}

func TestIdempotentReduce(t *testing.T) {
	s, in := newTestStore(t, false)
	x := in.Symbol("x")
	y := in.Symbol("y")
	s.AssertOnly(in.Eq(x, in.Value(3)))
	s.AssertOnly(in.Lt(in.Value(0), y))
	require.NoError(t, s.Reduce())

	after1 := s.GetAssertions()
	require.NoError(t, s.Reduce())
	after2 := s.GetAssertions()

	require.Len(t, after1, len(after2))
	for i := range after1 {
		assert.Equal(t, after1[i].Id(), after2[i].Id())
	}
}

func TestHasBVBecomesTrueOnlyWithBVTerm(t *testing.T) {
	s, in := newTestStore(t, false)
	assert.False(t, s.HasBV())
	x := in.Symbol("x")
	s.AssertOnly(in.Eq(x, in.Value(1)))
	require.NoError(t, s.Reduce())
	assert.False(t, s.HasBV())

	s.AssertOnly(in.BVMarker(in.Symbol("y")))
	require.NoError(t, s.Reduce())
	assert.True(t, s.HasBV())
}

func TestCancellationSafety(t *testing.T) {
	// §8 scenario 6: the cancel flag is set before reduce, so reduce returns
	// at its first cancellation check; the assertion set stays valid and a
	// later reduce (with the flag cleared) completes.
	in := NewInterner(false)
	cfg := DefaultConfig()
	cancelled := false
	s := NewStore(in, cfg, func() bool { return cancelled }, logr.Discard())

	for i := 0; i < 50; i++ {
		x := in.Symbol("v")
		s.AssertOnly(in.Eq(x, in.Value(i)))
	}

	cancelled = true
	require.NoError(t, s.Reduce())
	assert.False(t, s.Inconsistent())
	assert.LessOrEqual(t, s.QHead(), len(s.GetAssertions()))

	cancelled = false
	require.NoError(t, s.Reduce())
}

func TestGetFormulasLastLevel(t *testing.T) {
	s, in := newTestStore(t, false)
	assert.Equal(t, 0, s.GetFormulasLastLevel())

	s.AssertOnly(in.Symbol("a"))
	require.NoError(t, s.Commit(-1))
	s.PushScope()
	assert.Equal(t, 1, s.GetFormulasLastLevel())
}
