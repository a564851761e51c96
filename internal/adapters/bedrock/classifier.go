package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/mrinal140420/phishing-email-sentinel/internal/config"
	"github.com/mrinal140420/phishing-email-sentinel/internal/core"
	"github.com/mrinal140420/phishing-email-sentinel/internal/mltext"
)

const promptFormat = `You are a phishing detection system. Analyze the following email text and estimate the probability that it is a phishing attempt.
Respond with a JSON object containing:
- phishing_probability: number between 0 and 1 (higher means more likely to be phishing)

Email text:
%s

Respond only with the JSON object and nothing else.`

// phishingResponse represents the structured response from the model
type phishingResponse struct {
	PhishingProbability float64 `json:"phishing_probability"`
}

type clientState int

const (
	stateUnloaded clientState = iota
	stateReady
	stateFailed
)

// Classifier implements the core.Classifier contract over Amazon
// Bedrock. Loading the AWS configuration is deferred to first use and
// guarded so exactly one initialization happens; Predict never returns
// an error.
type Classifier struct {
	cfg     config.BedrockConfig
	policy  core.MLPolicy
	cleaner *mltext.Cleaner
	logger  *zap.Logger

	mu     sync.Mutex
	state  clientState
	client *bedrockruntime.Client
}

// NewClassifier creates a new Bedrock classifier
func NewClassifier(cfg config.BedrockConfig, policy core.MLPolicy, cleaner *mltext.Cleaner, logger *zap.Logger) *Classifier {
	return &Classifier{
		cfg:     cfg,
		policy:  policy,
		cleaner: cleaner,
		logger:  logger,
	}
}

func (c *Classifier) ensureClient(ctx context.Context) (*bedrockruntime.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateReady:
		return c.client, nil
	case stateFailed:
		return nil, fmt.Errorf("bedrock client previously failed to initialize")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(c.cfg.Region))
	if err != nil {
		c.state = stateFailed
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	c.client = bedrockruntime.NewFromConfig(awsCfg)
	c.state = stateReady
	c.logger.Info("Initialized Bedrock classifier",
		zap.String("region", c.cfg.Region),
		zap.String("model_id", c.cfg.ModelID))
	return c.client, nil
}

func (c *Classifier) isAnthropicModel() bool {
	return strings.HasPrefix(c.cfg.ModelID, "anthropic.")
}

func (c *Classifier) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.cfg.ModelID, "amazon.titan")
}

// Predict estimates the phishing probability of the given email text
func (c *Classifier) Predict(ctx context.Context, text string) core.MLSignal {
	cleaned := c.cleaner.Clean(text)
	if cleaned == "" {
		return c.policy.Degraded(c.cfg.ModelID)
	}

	client, err := c.ensureClient(ctx)
	if err != nil {
		c.logger.Warn("Bedrock classifier unavailable", zap.Error(err))
		return c.policy.Degraded(c.cfg.ModelID)
	}

	prompt := fmt.Sprintf(promptFormat, cleaned)

	var payload []byte
	if c.isAnthropicModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               prompt,
			"max_tokens_to_sample": c.cfg.MaxTokens,
			"temperature":          c.cfg.Temperature,
			"top_p":                c.cfg.TopP,
		})
	} else if c.isAmazonTitanModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.cfg.MaxTokens,
				"temperature":   c.cfg.Temperature,
				"topP":          c.cfg.TopP,
			},
		})
	} else {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  c.cfg.MaxTokens,
			"temperature": c.cfg.Temperature,
			"top_p":       c.cfg.TopP,
		})
	}
	if err != nil {
		c.logger.Warn("Failed to marshal Bedrock payload", zap.Error(err))
		return c.policy.Degraded(c.cfg.ModelID)
	}

	resp, err := client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.cfg.ModelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		c.logger.Warn("Bedrock inference failed", zap.Error(err))
		return c.policy.Degraded(c.cfg.ModelID)
	}

	responseText, err := c.extractCompletion(resp.Body)
	if err != nil {
		c.logger.Warn("Failed to read Bedrock response", zap.Error(err))
		return c.policy.Degraded(c.cfg.ModelID)
	}

	prob, err := parseProbability(responseText)
	if err != nil {
		c.logger.Warn("Failed to parse Bedrock response", zap.Error(err))
		return c.policy.Degraded(c.cfg.ModelID)
	}

	prob = c.policy.Clamp(prob)
	return core.MLSignal{
		Probability:    prob,
		ConfidenceBand: c.policy.Band(prob),
		SourceLabel:    c.cfg.ModelID,
	}
}

// extractCompletion pulls the generated text out of the model-specific
// response envelope.
func (c *Classifier) extractCompletion(body []byte) (string, error) {
	if c.isAnthropicModel() {
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		return claudeResp.Completion, nil
	}
	if c.isAmazonTitanModel() {
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("empty Titan response")
		}
		return titanResp.Results[0].OutputText, nil
	}
	var genericResp struct {
		Completion string `json:"completion"`
		Text       string `json:"text"`
	}
	if err := json.Unmarshal(body, &genericResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal model response: %w", err)
	}
	if genericResp.Completion != "" {
		return genericResp.Completion, nil
	}
	return genericResp.Text, nil
}

// parseProbability extracts the probability from the model's JSON
// reply, tolerating surrounding prose.
func parseProbability(responseText string) (float64, error) {
	var parsed phishingResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err == nil {
		return parsed.PhishingProbability, nil
	}

	jsonStart := strings.Index(responseText, "{")
	jsonEnd := strings.LastIndex(responseText, "}")
	if jsonStart < 0 || jsonEnd <= jsonStart {
		return 0, fmt.Errorf("no JSON object in model response")
	}
	if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd+1]), &parsed); err != nil {
		return 0, fmt.Errorf("failed to parse model response as JSON: %w", err)
	}
	return parsed.PhishingProbability, nil
}
