package fusion

import (
	"math"

	"github.com/mrinal140420/phishing-email-sentinel/internal/config"
	"github.com/mrinal140420/phishing-email-sentinel/internal/core"
)

// Fuser combines the symbolic rule score with the probabilistic ML
// signal into one bounded decision. Pure and deterministic; the
// weights and threshold are the recalibration surface and come from
// configuration.
type Fuser struct {
	rulesWeight float64
	mlWeight    float64
	threshold   float64
}

// NewFuser creates a decision fuser from configuration
func NewFuser(cfg config.FusionConfig) *Fuser {
	return &Fuser{
		rulesWeight: cfg.RulesWeight,
		mlWeight:    cfg.MLWeight,
		threshold:   cfg.VerdictThreshold,
	}
}

// Fuse computes the weighted final score and verdict. A degraded ML
// signal is not special-cased: its floored probability participates
// unchanged, which naturally suppresses its influence. The verdict is
// decided on the full-precision score; the reported score is rounded
// to three decimal places for presentation.
func (f *Fuser) Fuse(ruleEval core.RuleEvaluation, signal core.MLSignal) core.Decision {
	raw := ruleEval.Score*f.rulesWeight + signal.Probability*f.mlWeight
	raw = math.Min(math.Max(raw, 0.0), 1.0)

	verdict := core.VerdictBenign
	if raw >= f.threshold {
		verdict = core.VerdictPhishing
	}

	rulesTriggered := make([]string, 0, len(ruleEval.Triggered))
	for _, outcome := range ruleEval.Triggered {
		rulesTriggered = append(rulesTriggered, outcome.RuleID)
	}

	return core.Decision{
		FinalScore:     math.Round(raw*1000) / 1000,
		Verdict:        verdict,
		RulesTriggered: rulesTriggered,
		RulesWeight:    f.rulesWeight,
		MLWeight:       f.mlWeight,
	}
}
