package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sashabaranov/go-openai"
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

// Classifier implements the core.Classifier contract over OpenAI chat
// completions. The client is built lazily on first call; once ready it
// is reused for every subsequent call. Predict never returns an error:
// any failure maps to the degraded neutral reading.
type Classifier struct {
	cfg     config.OpenAIConfig
	policy  core.MLPolicy
	cleaner *mltext.Cleaner
	logger  *zap.Logger

	mu     sync.Mutex
	state  clientState
	client *openai.Client
}

// NewClassifier creates a new OpenAI classifier
func NewClassifier(cfg config.OpenAIConfig, policy core.MLPolicy, cleaner *mltext.Cleaner, logger *zap.Logger) *Classifier {
	return &Classifier{
		cfg:     cfg,
		policy:  policy,
		cleaner: cleaner,
		logger:  logger,
	}
}

// ensureClient performs the guarded one-time initialization. Exactly
// one goroutine builds the client under concurrent first use; a failed
// init leaves the classifier in the failed state.
func (c *Classifier) ensureClient() (*openai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateReady:
		return c.client, nil
	case stateFailed:
		return nil, fmt.Errorf("openai client previously failed to initialize")
	}

	if c.cfg.APIKey == "" {
		c.state = stateFailed
		return nil, fmt.Errorf("openai api key is not configured")
	}

	c.client = openai.NewClient(c.cfg.APIKey)
	c.state = stateReady
	c.logger.Info("Initialized OpenAI classifier", zap.String("model", c.cfg.ModelName))
	return c.client, nil
}

// Predict estimates the phishing probability of the given email text
func (c *Classifier) Predict(ctx context.Context, text string) core.MLSignal {
	cleaned := c.cleaner.Clean(text)
	if cleaned == "" {
		return c.policy.Degraded(c.cfg.ModelName)
	}

	client, err := c.ensureClient()
	if err != nil {
		c.logger.Warn("OpenAI classifier unavailable", zap.Error(err))
		return c.policy.Degraded(c.cfg.ModelName)
	}

	req := openai.ChatCompletionRequest{
		Model: c.cfg.ModelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a phishing detection system. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(promptFormat, cleaned),
			},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		TopP:        c.cfg.TopP,
	}
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: "json"}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Warn("OpenAI inference failed", zap.Error(err))
		return c.policy.Degraded(c.cfg.ModelName)
	}
	if len(resp.Choices) == 0 {
		c.logger.Warn("Empty response from OpenAI")
		return c.policy.Degraded(c.cfg.ModelName)
	}

	prob, err := parseProbability(resp.Choices[0].Message.Content)
	if err != nil {
		c.logger.Warn("Failed to parse OpenAI response", zap.Error(err))
		return c.policy.Degraded(c.cfg.ModelName)
	}

	prob = c.policy.Clamp(prob)
	return core.MLSignal{
		Probability:    prob,
		ConfidenceBand: c.policy.Band(prob),
		SourceLabel:    c.cfg.ModelName,
	}
}

// parseProbability extracts the probability from the model's JSON
// reply, tolerating surrounding prose.
func parseProbability(responseText string) (float64, error) {
	var parsed phishingResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err == nil {
		return parsed.PhishingProbability, nil
	}

	jsonStart := -1
	jsonEnd := -1
	for i := 0; i < len(responseText); i++ {
		if responseText[i] == '{' {
			jsonStart = i
			break
		}
	}
	for i := len(responseText) - 1; i >= 0; i-- {
		if responseText[i] == '}' {
			jsonEnd = i + 1
			break
		}
	}
	if jsonStart < 0 || jsonEnd <= jsonStart {
		return 0, fmt.Errorf("no JSON object in model response")
	}
	if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd]), &parsed); err != nil {
		return 0, fmt.Errorf("failed to parse model response as JSON: %w", err)
	}
	return parsed.PhishingProbability, nil
}
