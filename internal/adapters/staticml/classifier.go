package staticml

import (
	"context"

	"go.uber.org/zap"

	"github.com/mrinal140420/phishing-email-sentinel/internal/core"
	"github.com/mrinal140420/phishing-email-sentinel/internal/mltext"
)

// SourceLabel identifies readings produced by this classifier
const SourceLabel = "static"

// Classifier is a deterministic classifier that returns a fixed
// probability for any non-empty input. It backs offline runs and
// tests, and doubles as the reference for the degraded-reading
// contract: empty cleaned text yields the degraded floor.
type Classifier struct {
	probability float64
	policy      core.MLPolicy
	cleaner     *mltext.Cleaner
	logger      *zap.Logger
}

// NewClassifier creates a static classifier returning the given
// probability, clamped through the policy.
func NewClassifier(probability float64, policy core.MLPolicy, cleaner *mltext.Cleaner, logger *zap.Logger) *Classifier {
	return &Classifier{
		probability: probability,
		policy:      policy,
		cleaner:     cleaner,
		logger:      logger,
	}
}

// Predict returns the configured probability for any non-empty text
func (c *Classifier) Predict(ctx context.Context, text string) core.MLSignal {
	cleaned := c.cleaner.Clean(text)
	if cleaned == "" {
		return c.policy.Degraded(SourceLabel)
	}
	prob := c.policy.Clamp(c.probability)
	return core.MLSignal{
		Probability:    prob,
		ConfidenceBand: c.policy.Band(prob),
		SourceLabel:    SourceLabel,
	}
}
