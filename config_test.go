package afpipeline

import "testing"

func TestLiftIteCoupling(t *testing.T) {
	c := DefaultConfig()
	c.LiftIte = LiftIteFull
	c.NgLiftIte = LiftIteConservative
	c.Setup()
	if c.NgLiftIte != LiftIteNone {
		t.Errorf("expected lift_ite=full to force ng_lift_ite=none, got %v", c.NgLiftIte)
	}
}

func TestBothConservativeCoupling(t *testing.T) {
	c := DefaultConfig()
	c.LiftIte = LiftIteConservative
	c.NgLiftIte = LiftIteConservative
	c.Setup()
	if c.NgLiftIte != LiftIteNone {
		t.Errorf("expected both conservative to force ng_lift_ite=none, got %v", c.NgLiftIte)
	}
}

func TestRelevancyCoupling(t *testing.T) {
	c := DefaultConfig()
	c.RelevancyLvl = 0
	c.RelevancyLemma = true
	c.Setup()
	if c.RelevancyLemma {
		t.Errorf("expected relevancy_lvl=0 to force relevancy_lemma=false")
	}
}

func TestEliminateTermIteSuppressedUnderFullLiftIte(t *testing.T) {
	c := DefaultConfig()
	c.LiftIte = LiftIteFull
	c.EliminateTermIte = true
	c.Setup()
	if c.EliminateTermIteEnabled() {
		t.Errorf("expected eliminate_term_ite to be suppressed when lift_ite=full")
	}
}

func TestLoadConfigMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/does/not/exist.yaml")
	if err != nil {
		t.Fatalf("unexpected error for a missing config file: %v", err)
	}
	if !cfg.Preprocess {
		t.Errorf("expected defaults when the config file does not exist")
	}
}
