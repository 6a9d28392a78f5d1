package afpipeline

import (
	"os"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
)

// LiftIteMode is the strength of ITE lifting (§6): none, conservative, full.
type LiftIteMode string

const (
	LiftIteNone         LiftIteMode = "none"
	LiftIteConservative LiftIteMode = "conservative"
	LiftIteFull         LiftIteMode = "full"
)

// Config enumerates every pass toggle and coupling rule the orchestrator
// consults (§6). Field names track the spec's flag names so that the
// pipeline reads as a direct transcription of the fixed pass order.
type Config struct {
	Preprocess bool `yaml:"preprocess"`

	PreSimplifier bool `yaml:"pre_simplifier"`

	PropagateBooleans bool `yaml:"propagate_booleans"`
	PropagateValues   bool `yaml:"propagate_values"`

	MacroFinder bool `yaml:"macro_finder"`
	QuasiMacros bool `yaml:"quasi_macros"`

	NNFCnf bool `yaml:"nnf_cnf"`
	MBQI   bool `yaml:"mbqi"`

	EliminateAnd bool `yaml:"eliminate_and"`

	PullCheapITETrees    bool `yaml:"pull_cheap_ite_trees"`
	PullNestedQuantifiers bool `yaml:"pull_nested_quantifiers"`

	LiftIte   LiftIteMode `yaml:"lift_ite"`
	NgLiftIte LiftIteMode `yaml:"ng_lift_ite"`

	EliminateTermIte bool `yaml:"eliminate_term_ite"`

	RefineInjAxiom   bool `yaml:"refine_inj_axiom"`
	DistributeForall bool `yaml:"distribute_forall"`

	SimplifyBit2Int bool `yaml:"simplify_bit2int"`
	EliminateBounds bool `yaml:"eliminate_bounds"`
	EMatching       bool `yaml:"ematching"`
	MaxBVSharing    bool `yaml:"max_bv_sharing"`
	BBQuantifiers   bool `yaml:"bb_quantifiers"`

	RelevancyLvl   int  `yaml:"relevancy_lvl"`
	RelevancyLemma bool `yaml:"relevancy_lemma"`

	DisplayFeatures bool `yaml:"display_features"`
}

// DefaultConfig returns a single baseline configuration (gosmt has no config
// surface at all; this follows the more general "sane defaults" pattern from
// the pack's operator-lifecycle-manager config structs). preprocess and most
// interior passes default on; mbqi/ematching/bb_quantifiers default off since
// they gate expensive, declared-out-of-scope machinery (quantifier
// instantiation, e-matching), and distribute_forall, simplify_bit2int and
// eliminate_bounds also default off.
func DefaultConfig() Config {
	return Config{
		Preprocess:            true,
		PreSimplifier:         true,
		PropagateBooleans:     true,
		PropagateValues:       true,
		MacroFinder:           true,
		QuasiMacros:           true,
		NNFCnf:                true,
		MBQI:                  false,
		EliminateAnd:          true,
		PullCheapITETrees:     true,
		PullNestedQuantifiers: true,
		LiftIte:               LiftIteConservative,
		NgLiftIte:             LiftIteConservative,
		EliminateTermIte:      true,
		RefineInjAxiom:        true,
		DistributeForall:      false,
		SimplifyBit2Int:       false,
		EliminateBounds:       false,
		EMatching:             false,
		MaxBVSharing:          true,
		BBQuantifiers:         false,
		RelevancyLvl:          2,
		RelevancyLemma:        true,
		DisplayFeatures:       false,
	}
}

// LoadConfig reads a YAML configuration file and applies it on top of
// DefaultConfig, then normalizes coupling rules. A missing file is not an
// error the caller must special-case for; it simply yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.Setup()
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}
	cfg.Setup()
	return cfg, nil
}

// Setup normalizes the coupling rules §6 documents, the way
// asserted_formulas::setup() reconciles interdependent parameters before
// the first reduce(). It must be called after any direct field mutation
// that could violate a coupling rule.
func (c *Config) Setup() {
	if c.LiftIte == LiftIteFull {
		c.NgLiftIte = LiftIteNone
	}
	if c.LiftIte == LiftIteConservative && c.NgLiftIte == LiftIteConservative {
		c.NgLiftIte = LiftIteNone
	}
	if c.RelevancyLvl == 0 {
		c.RelevancyLemma = false
	}
}

// EliminateTermIteEnabled reports whether the eliminate_term_ite pass
// should run: it is suppressed outright when lift_ite is "full" (§6).
func (c *Config) EliminateTermIteEnabled() bool {
	return c.EliminateTermIte && c.LiftIte != LiftIteFull
}
