package afpipeline

import "testing"

func TestMacroManagerForbiddenHeadRejectsReuse(t *testing.T) {
	mm := newMacroManager()
	ok := mm.Record("f", macroDef{})
	if !ok {
		t.Fatalf("expected the first Record for f to succeed")
	}
	ok2 := mm.Record("f", macroDef{})
	if ok2 {
		t.Errorf("expected a second Record for the same head to be rejected")
	}
}

func TestMacroManagerScopeRollback(t *testing.T) {
	mm := newMacroManager()
	mm.Record("f", macroDef{})
	mm.Push()
	mm.Record("g", macroDef{})
	if !mm.IsForbidden("g") {
		t.Fatalf("expected g forbidden within the nested scope")
	}
	if err := mm.Pop(); err != nil {
		t.Fatalf("unexpected error popping: %v", err)
	}
	if mm.IsForbidden("g") {
		t.Errorf("expected g's forbidden-head status to roll back with the scope")
	}
	if !mm.IsForbidden("f") {
		t.Errorf("expected f (from the outer scope) to remain forbidden")
	}
}

func TestMacroManagerPopWithoutPushIsError(t *testing.T) {
	mm := newMacroManager()
	if err := mm.Pop(); err == nil {
		t.Errorf("expected popping with no open scope to fail")
	}
}

func TestFindMacrosDetectsCanonicalShape(t *testing.T) {
	in := NewInterner(false)
	mm := newMacroManager()
	finder := newDefaultMacroFinder()

	x := in.Symbol("x")
	f := in.Symbol("f")
	def := in.Forall([]Expr{x}, in.Eq(in.Apply(f, x), x))

	residue, changed := finder.FindMacros(in, mm, []Expr{def})
	if !changed {
		t.Fatalf("expected the canonical macro shape to be detected")
	}
	if len(residue) != 0 {
		t.Errorf("expected the defining assertion to be consumed, got residue %v", residue)
	}
	if !mm.IsForbidden("f") {
		t.Errorf("expected f to be forbidden after being recorded as a macro head")
	}
}

func TestFindMacrosRejectsNonDistinctArgs(t *testing.T) {
	in := NewInterner(false)
	mm := newMacroManager()
	finder := newDefaultMacroFinder()

	x := in.Symbol("x")
	y := in.Symbol("y")
	f := in.Symbol("f")
	// forall x. f(y) = x -- f's argument is not the bound variable.
	def := in.Forall([]Expr{x}, in.Eq(in.Apply(f, y), x))

	residue, changed := finder.FindMacros(in, mm, []Expr{def})
	if changed {
		t.Errorf("expected a non-distinct-args shape to be rejected, not a macro")
	}
	if len(residue) != 1 {
		t.Errorf("expected the rejected formula to survive in the residue")
	}
}

func TestExpandMacrosSubstitutesApplication(t *testing.T) {
	in := NewInterner(false)
	mm := newMacroManager()
	x := in.Symbol("x")
	f := in.Symbol("f")
	mm.Record("f", macroDef{head: f, params: []Expr{x}, body: x})

	e := in.Lt(in.Apply(f, in.Value(2)), in.Value(3))
	out := expandMacros(in, mm, e)

	stillHasF := anySubterm(out, func(x Expr) bool {
		head, _, ok := in.IsApply(x)
		return ok && head.Id() == f.Id()
	})
	if stillHasF {
		t.Errorf("expected f(2) to be expanded away, got %s", out.String())
	}
}
