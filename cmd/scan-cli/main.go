package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/mrinal140420/phishing-email-sentinel/internal/allowlist"
	"github.com/mrinal140420/phishing-email-sentinel/internal/config"
	"github.com/mrinal140420/phishing-email-sentinel/internal/core"
	"github.com/mrinal140420/phishing-email-sentinel/internal/factory"
	"github.com/mrinal140420/phishing-email-sentinel/internal/fusion"
	"github.com/mrinal140420/phishing-email-sentinel/internal/logging"
	"github.com/mrinal140420/phishing-email-sentinel/internal/mltext"
	"github.com/mrinal140420/phishing-email-sentinel/internal/parser"
	"github.com/mrinal140420/phishing-email-sentinel/internal/rules"
)

var (
	// Classifier flags
	provider          = flag.String("provider", "static", "Classifier provider (bedrock, gemini, openai, static)")
	staticProbability = flag.Float64("static-probability", 0.05, "Probability returned by the static classifier")
	maxTokens         = flag.Int("max-tokens", 256, "Maximum tokens for model response")

	// Bedrock flags
	bedrockRegion  = flag.String("bedrock-region", "us-east-1", "AWS region for Bedrock")
	bedrockModelID = flag.String("bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Gemini flags
	geminiAPIKey    = flag.String("gemini-api-key", "", "API key for Google Gemini")
	geminiModelName = flag.String("gemini-model", "gemini-pro", "Gemini model name")

	// OpenAI flags
	openaiAPIKey    = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiModelName = flag.String("openai-model", "gpt-4", "OpenAI model name")

	// Decision flags
	verdictThreshold = flag.Float64("threshold", 0.5, "Final score threshold for a PHISHING verdict")
	allowDomains     = flag.String("allowlist", "", "Comma-separated list of allowlisted sender domains")

	// Input flags
	inputFile  = flag.String("file", "", "Input email file (use stdin if not specified)")
	jsonOutput = flag.Bool("json", false, "Print the raw ScanResult JSON only")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var cfg *config.Config
	if *configFile != "" {
		cfg, err = config.New()
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		cfg = createConfigFromFlags()
	}

	cleaner := mltext.NewCleaner(cfg.GetML().MaxTextSize, logger)
	classifier, err := factory.NewClassifierFactory(cfg, logger, cleaner).CreateClassifier()
	if err != nil {
		logger.Fatal("Failed to create classifier", zap.Error(err))
	}

	service := core.NewScanService(
		parser.New(logger),
		rules.NewEngine(cfg.GetRules()),
		classifier,
		fusion.NewFuser(cfg.GetFusion()),
		nil, // no persistence for one-shot scans
		allowlist.NewChecker(cfg.GetStringSlice("scan.allowlisted_domains"), logger),
		logger,
		cfg.GetFusion().FailOpen,
	)

	raw, err := readInput()
	if err != nil {
		logger.Fatal("Failed to read email input", zap.Error(err))
	}

	result := service.Scan(context.Background(), raw)

	if closer, ok := classifier.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close classifier", zap.Error(err))
		}
	}

	if *jsonOutput {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			logger.Fatal("Failed to encode result", zap.Error(err))
		}
		fmt.Println(string(encoded))
		return
	}

	fmt.Printf("\n=== Scan Result ===\n")
	fmt.Printf("Scan ID: %s\n", result.ScanID)
	fmt.Printf("Verdict: %s\n", result.Verdict)
	fmt.Printf("Confidence: %.3f\n", result.Confidence)
	fmt.Printf("Rules triggered: %s\n", strings.Join(result.Signals.Rules, ", "))
	fmt.Printf("ML probability: %.3f\n", result.Signals.MLProbability)
	if result.Error != nil {
		fmt.Printf("Error: [%s] %s\n", result.Error.Type, result.Error.Message)
	}
	fmt.Printf("Timestamp: %s\n", result.Timestamp)
}

// readInput reads the raw email from the input file or stdin
func readInput() (string, error) {
	if *inputFile != "" {
		data, err := os.ReadFile(*inputFile)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	v.Set("ml.provider", *provider)

	switch *provider {
	case "bedrock":
		v.Set("bedrock.region", *bedrockRegion)
		v.Set("bedrock.model_id", *bedrockModelID)
		v.Set("bedrock.max_tokens", *maxTokens)
	case "gemini":
		v.Set("gemini.api_key", *geminiAPIKey)
		v.Set("gemini.model_name", *geminiModelName)
		v.Set("gemini.max_tokens", *maxTokens)
	case "openai":
		v.Set("openai.api_key", *openaiAPIKey)
		v.Set("openai.model_name", *openaiModelName)
		v.Set("openai.max_tokens", *maxTokens)
	case "static":
		v.Set("static.probability", *staticProbability)
	}

	v.Set("fusion.verdict_threshold", *verdictThreshold)

	if *allowDomains != "" {
		domains := strings.Split(*allowDomains, ",")
		for i, domain := range domains {
			domains[i] = strings.TrimSpace(domain)
		}
		v.Set("scan.allowlisted_domains", domains)
	}

	return config.NewFromViper(v)
}
