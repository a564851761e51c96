package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mrinal140420/phishing-email-sentinel/internal/allowlist"
	"github.com/mrinal140420/phishing-email-sentinel/internal/api"
	"github.com/mrinal140420/phishing-email-sentinel/internal/config"
	"github.com/mrinal140420/phishing-email-sentinel/internal/core"
	"github.com/mrinal140420/phishing-email-sentinel/internal/factory"
	"github.com/mrinal140420/phishing-email-sentinel/internal/fusion"
	"github.com/mrinal140420/phishing-email-sentinel/internal/logging"
	"github.com/mrinal140420/phishing-email-sentinel/internal/mltext"
	"github.com/mrinal140420/phishing-email-sentinel/internal/parser"
	"github.com/mrinal140420/phishing-email-sentinel/internal/rules"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register the classifier text cleaner
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *mltext.Cleaner {
		return mltext.NewCleaner(cfg.GetML().MaxTextSize, logger)
	}); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStorageFactory); err != nil {
		return nil, err
	}

	// Register classifier
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.Classifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return nil, err
	}

	// Register scan store
	if err := container.Provide(func(f *factory.StorageFactory) (core.ScanStore, error) {
		return f.CreateScanStore()
	}); err != nil {
		return nil, err
	}

	// Register pipeline stages
	if err := container.Provide(func(logger *zap.Logger) core.EmailParser {
		return parser.New(logger)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config) core.RuleEngine {
		return rules.NewEngine(cfg.GetRules())
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config) core.DecisionFuser {
		return fusion.NewFuser(cfg.GetFusion())
	}); err != nil {
		return nil, err
	}

	// Register allowlist
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.AllowlistChecker {
		return allowlist.NewChecker(cfg.GetStringSlice("scan.allowlisted_domains"), logger)
	}); err != nil {
		return nil, err
	}

	// Register scan service
	if err := container.Provide(func(
		cfg *config.Config,
		emailParser core.EmailParser,
		ruleEngine core.RuleEngine,
		classifier core.Classifier,
		fuser core.DecisionFuser,
		store core.ScanStore,
		checker core.AllowlistChecker,
		logger *zap.Logger,
	) *core.ScanService {
		return core.NewScanService(
			emailParser,
			ruleEngine,
			classifier,
			fuser,
			store,
			checker,
			logger,
			cfg.GetFusion().FailOpen,
		)
	}); err != nil {
		return nil, err
	}

	// Register HTTP server
	if err := container.Provide(api.NewServer); err != nil {
		return nil, err
	}

	return container, nil
}
