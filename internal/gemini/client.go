// Package gemini drafts candidate corrections for the annotator to edit.
// The feature is optional: the server runs without it when no API key is
// configured.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/ratelimit"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const systemInstruction = `You are a Tamil grammar correction assistant. ` +
	`Given one grammatically incorrect Tamil sentence, produce the corrected ` +
	`sentence. Change only what is needed to make the sentence grammatical; ` +
	`preserve the author's word choice and meaning. Respond with JSON of the ` +
	`form {"corrected": "<sentence>"} and nothing else.`

// Client wraps the Gemini API client
type Client struct {
	client     *genai.Client
	model      *genai.GenerativeModel
	limiter    *ratelimit.RateLimiter
	logger     *zap.Logger
	modelName  string
	maxRetries int
	retryDelay time.Duration
}

// Config for the Gemini client
type Config struct {
	APIKey            string
	ModelName         string // Default: "gemini-2.0-flash-exp"
	MaxRetries        int
	RetryDelay        time.Duration
	RequestsPerMinute int // Default: 8, conservative for the free tier
}

type suggestion struct {
	Corrected string `json:"corrected"`
}

// NewClient creates a new Gemini client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	if cfg.ModelName == "" {
		cfg.ModelName = "gemini-2.0-flash-exp"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = 8
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.ModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}
	model.ResponseMIMEType = "application/json"
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr[float32](0.3),
		TopP:            genai.Ptr[float32](0.9),
		MaxOutputTokens: genai.Ptr[int32](300),
	}

	logger.Info("Gemini suggestion client initialized",
		zap.String("model", cfg.ModelName),
		zap.Int("max_retries", cfg.MaxRetries))

	return &Client{
		client:     client,
		model:      model,
		limiter:    ratelimit.NewRateLimiter(cfg.RequestsPerMinute),
		logger:     logger,
		modelName:  cfg.ModelName,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Close closes the Gemini client
func (c *Client) Close() error {
	return c.client.Close()
}

// Suggest returns a draft correction for one incorrect sentence
func (c *Client) Suggest(ctx context.Context, incorrect string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	prompt := fmt.Sprintf("Incorrect sentence:\n%s", incorrect)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying Gemini request",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", c.maxRetries))
			time.Sleep(c.retryDelay)
		}

		resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			lastErr = fmt.Errorf("gemini API error: %w", err)
			c.logger.Error("Gemini API error", zap.Error(err), zap.Int("attempt", attempt+1))
			continue
		}

		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			lastErr = fmt.Errorf("empty response from gemini")
			continue
		}

		textPart, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
		if !ok {
			lastErr = fmt.Errorf("unexpected response type from gemini")
			continue
		}

		corrected, err := parseSuggestion(string(textPart))
		if err != nil {
			lastErr = err
			continue
		}
		return corrected, nil
	}

	return "", fmt.Errorf("gemini suggestion failed after %d attempts: %w", c.maxRetries, lastErr)
}

// parseSuggestion extracts the corrected sentence, stripping the markdown
// fences the model sometimes wraps its JSON in
func parseSuggestion(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	var s suggestion
	if err := json.Unmarshal([]byte(clean), &s); err != nil {
		return "", fmt.Errorf("failed to parse gemini response: %w", err)
	}
	if s.Corrected == "" {
		return "", fmt.Errorf("gemini response missing corrected sentence")
	}
	return s.Corrected, nil
}
