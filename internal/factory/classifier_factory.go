package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mrinal140420/phishing-email-sentinel/internal/adapters/bedrock"
	"github.com/mrinal140420/phishing-email-sentinel/internal/adapters/gemini"
	"github.com/mrinal140420/phishing-email-sentinel/internal/adapters/openai"
	"github.com/mrinal140420/phishing-email-sentinel/internal/adapters/staticml"
	"github.com/mrinal140420/phishing-email-sentinel/internal/config"
	"github.com/mrinal140420/phishing-email-sentinel/internal/core"
	"github.com/mrinal140420/phishing-email-sentinel/internal/mltext"
)

// ClassifierFactory creates classifiers based on configuration
type ClassifierFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	cleaner *mltext.Cleaner
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger, cleaner *mltext.Cleaner) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:     cfg,
		logger:  logger,
		cleaner: cleaner,
	}
}

// CreateClassifier creates a classifier for the configured provider
func (f *ClassifierFactory) CreateClassifier() (core.Classifier, error) {
	mlCfg := f.cfg.GetML()

	switch mlCfg.Provider {
	case "bedrock":
		return bedrock.NewClassifier(f.cfg.GetBedrock(), mlCfg.Policy, f.cleaner, f.logger), nil
	case "gemini":
		return gemini.NewClassifier(f.cfg.GetGemini(), mlCfg.Policy, f.cleaner, f.logger), nil
	case "openai":
		return openai.NewClassifier(f.cfg.GetOpenAI(), mlCfg.Policy, f.cleaner, f.logger), nil
	case "static":
		return staticml.NewClassifier(f.cfg.GetFloat64("static.probability"), mlCfg.Policy, f.cleaner, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported classifier provider: %s", mlCfg.Provider)
	}
}
