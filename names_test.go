package afpipeline

import "testing"

func TestDefinedNamesAssignsStableName(t *testing.T) {
	in := NewInterner(false)
	dn := newDefinedNames()
	e := in.Eq(in.Symbol("x"), in.Symbol("y"))

	n1 := dn.Define(in, e)
	n2 := dn.Define(in, e)
	if n1.Id() != n2.Id() {
		t.Errorf("expected Define to return the same name for the same expression")
	}
}

func TestDefinedNamesScopeRollback(t *testing.T) {
	in := NewInterner(false)
	dn := newDefinedNames()
	e := in.Eq(in.Symbol("x"), in.Symbol("y"))

	dn.Push()
	dn.Define(in, e)
	if _, ok := dn.Lookup(e); !ok {
		t.Fatalf("expected the name to be defined within the nested scope")
	}
	if err := dn.Pop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := dn.Lookup(e); ok {
		t.Errorf("expected the name to be discarded after popping its scope")
	}
}

func TestDefinedNamesPopWithoutPushIsError(t *testing.T) {
	dn := newDefinedNames()
	if err := dn.Pop(); err == nil {
		t.Errorf("expected popping with no open scope to fail")
	}
}

func TestDefinedNamesReset(t *testing.T) {
	in := NewInterner(false)
	dn := newDefinedNames()
	e := in.Symbol("x")
	dn.Define(in, e)
	dn.Reset()
	if _, ok := dn.Lookup(e); ok {
		t.Errorf("expected Reset to clear the table")
	}
}
