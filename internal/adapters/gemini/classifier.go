package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

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

// Classifier implements the core.Classifier contract over Google
// Gemini. The heavy client construction is deferred to first use and
// guarded so exactly one initialization happens; Predict never returns
// an error.
type Classifier struct {
	cfg     config.GeminiConfig
	policy  core.MLPolicy
	cleaner *mltext.Cleaner
	logger  *zap.Logger

	mu     sync.Mutex
	state  clientState
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewClassifier creates a new Gemini classifier
func NewClassifier(cfg config.GeminiConfig, policy core.MLPolicy, cleaner *mltext.Cleaner, logger *zap.Logger) *Classifier {
	return &Classifier{
		cfg:     cfg,
		policy:  policy,
		cleaner: cleaner,
		logger:  logger,
	}
}

func (c *Classifier) ensureModel(ctx context.Context) (*genai.GenerativeModel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateReady:
		return c.model, nil
	case stateFailed:
		return nil, fmt.Errorf("gemini client previously failed to initialize")
	}

	if c.cfg.APIKey == "" {
		c.state = stateFailed
		return nil, fmt.Errorf("gemini api key is not configured")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.cfg.APIKey))
	if err != nil {
		c.state = stateFailed
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(c.cfg.ModelName)
	model.SetTemperature(c.cfg.Temperature)
	model.SetTopP(c.cfg.TopP)
	model.SetMaxOutputTokens(int32(c.cfg.MaxTokens))

	c.client = client
	c.model = model
	c.state = stateReady
	c.logger.Info("Initialized Gemini classifier", zap.String("model", c.cfg.ModelName))
	return c.model, nil
}

// Predict estimates the phishing probability of the given email text
func (c *Classifier) Predict(ctx context.Context, text string) core.MLSignal {
	cleaned := c.cleaner.Clean(text)
	if cleaned == "" {
		return c.policy.Degraded(c.cfg.ModelName)
	}

	model, err := c.ensureModel(ctx)
	if err != nil {
		c.logger.Warn("Gemini classifier unavailable", zap.Error(err))
		return c.policy.Degraded(c.cfg.ModelName)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(fmt.Sprintf(promptFormat, cleaned)))
	if err != nil {
		c.logger.Warn("Gemini inference failed", zap.Error(err))
		return c.policy.Degraded(c.cfg.ModelName)
	}

	responseText := extractText(resp)
	if responseText == "" {
		c.logger.Warn("Empty response from Gemini")
		return c.policy.Degraded(c.cfg.ModelName)
	}

	prob, err := parseProbability(responseText)
	if err != nil {
		c.logger.Warn("Failed to parse Gemini response", zap.Error(err))
		return c.policy.Degraded(c.cfg.ModelName)
	}

	prob = c.policy.Clamp(prob)
	return core.MLSignal{
		Probability:    prob,
		ConfidenceBand: c.policy.Band(prob),
		SourceLabel:    c.cfg.ModelName,
	}
}

// Close closes the underlying Gemini client if it was ever built
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractText concatenates the text parts of the first candidate
func extractText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
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
