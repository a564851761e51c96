package config

import (
	"github.com/mrinal140420/phishing-email-sentinel/internal/core"
)

// MLConfig represents the classifier provider selection and policy
type MLConfig struct {
	Provider    string
	MaxTextSize int
	Policy      core.MLPolicy
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// RuleWeights holds the additive weight of each heuristic rule
type RuleWeights struct {
	SuspiciousSenderDomain float64
	UrgentSubject          float64
	MultipleDomains        float64
	URLMismatch            float64
	SuspiciousPhrases      float64
}

// RulesConfig holds the tunable keyword lists and weights of the rule
// battery, so tuning never requires redeploying logic.
type RulesConfig struct {
	SuspiciousTLDs    []string
	UrgencyKeywords   []string
	SuspiciousPhrases []string
	Weights           RuleWeights
}

// FusionConfig is the decision policy surface: signal weights, the
// verdict threshold and the parse-failure policy.
type FusionConfig struct {
	RulesWeight      float64
	MLWeight         float64
	VerdictThreshold float64
	FailOpen         bool
}

// GetML returns the classifier configuration
func (c *Config) GetML() MLConfig {
	return MLConfig{
		Provider:    c.GetString("ml.provider"),
		MaxTextSize: c.GetInt("ml.max_text_size"),
		Policy: core.MLPolicy{
			Floor:      c.GetFloat64("ml.probability_floor"),
			HighBand:   c.GetFloat64("ml.confidence_high"),
			MediumBand: c.GetFloat64("ml.confidence_medium"),
		},
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetRules returns the rule engine configuration
func (c *Config) GetRules() RulesConfig {
	return RulesConfig{
		SuspiciousTLDs:    c.GetStringSlice("rules.suspicious_tlds"),
		UrgencyKeywords:   c.GetStringSlice("rules.urgency_keywords"),
		SuspiciousPhrases: c.GetStringSlice("rules.suspicious_phrases"),
		Weights: RuleWeights{
			SuspiciousSenderDomain: c.GetFloat64("rules.weights.suspicious_sender_domain"),
			UrgentSubject:          c.GetFloat64("rules.weights.urgent_subject"),
			MultipleDomains:        c.GetFloat64("rules.weights.multiple_domains"),
			URLMismatch:            c.GetFloat64("rules.weights.url_mismatch"),
			SuspiciousPhrases:      c.GetFloat64("rules.weights.suspicious_phrases"),
		},
	}
}

// GetFusion returns the decision fusion configuration
func (c *Config) GetFusion() FusionConfig {
	return FusionConfig{
		RulesWeight:      c.GetFloat64("fusion.rules_weight"),
		MLWeight:         c.GetFloat64("fusion.ml_weight"),
		VerdictThreshold: c.GetFloat64("fusion.verdict_threshold"),
		FailOpen:         c.GetBool("fusion.fail_open"),
	}
}
