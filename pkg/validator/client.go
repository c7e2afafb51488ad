package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// defaultTimeout bounds a validation request well below the document lease,
// so a hung endpoint never holds a worker long enough for the lease to expire
// and a second worker to re-claim the document.
const defaultTimeout = 45 * time.Second

// Config holds configuration for the naming-authority client.
type Config struct {
	Endpoint string // Base URL, e.g. "https://api.openai.com/v1"
	Model    string
	APIKey   string        // Optional for local endpoints
	Timeout  time.Duration // Per-request deadline; defaultTimeout when zero
}

// OpenAIClient validates parameter names against an OpenAI-compatible
// naming-authority endpoint with a single batched request per call.
type OpenAIClient struct {
	client   *openai.Client
	endpoint string
	model    string
	timeout  time.Duration
	logger   *zap.Logger
}

var _ Client = (*OpenAIClient)(nil)

// NewOpenAIClient creates a naming-authority client.
func NewOpenAIClient(cfg *Config, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")

	return &OpenAIClient{
		client:   openai.NewClientWithConfig(clientConfig),
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		timeout:  timeout,
		logger:   logger.Named("validator"),
	}, nil
}

const systemMessage = "You are a medical reference-data validator. " +
	"You normalize health test parameter names and never receive test results."

// ValidateNames submits the candidate-name batch in one chat-completion
// request and correlates the response back to the submitted names.
func (c *OpenAIClient) ValidateNames(ctx context.Context, queries []NameQuery) ([]Result, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	payload, err := json.MarshalIndent(queries, "", "  ")
	if err != nil {
		return nil, &ProtocolError{Message: "failed to encode name queries", Cause: err}
	}

	prompt := buildPrompt(string(payload))

	c.logger.Debug("validation request",
		zap.String("model", c.model),
		zap.Int("query_count", len(queries)))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
	})
	if err != nil {
		c.logger.Error("validation request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, &TransportError{Message: "naming authority request failed", Cause: err}
	}

	if len(resp.Choices) == 0 {
		return nil, &ProtocolError{Message: "no choices in response"}
	}

	c.logger.Info("validation request completed",
		zap.Int("query_count", len(queries)),
		zap.Duration("elapsed", time.Since(start)))

	return correlate(queries, resp.Choices[0].Message.Content)
}

func buildPrompt(payload string) string {
	return "Validate the following list of health test parameter names. " +
		"For each item, decide whether the name (including abbreviated or " +
		"case-insensitive forms) is a recognized health test parameter, and if " +
		"so return its normalized name. " +
		"Return ONLY a valid JSON array of objects, one per input item, where " +
		"each object has the keys \"name\" (the input name, unchanged) and " +
		"\"validated_name\" (the normalized name, or null if the name is not a " +
		"recognized health test parameter). " +
		"Do not wrap the JSON in markdown formatting or add any commentary.\n\n" +
		"Parameters:\n" + payload
}

// wireResult is the response element shape expected from the naming authority.
type wireResult struct {
	Name          string  `json:"name"`
	ValidatedName *string `json:"validated_name"`
}

// correlate parses the model response and matches it back to the submitted
// queries by normalized name. Queries missing from the response are
// unrecognized; extra response entries are ignored.
func correlate(queries []NameQuery, content string) ([]Result, error) {
	jsonStr, err := extractJSONArray(content)
	if err != nil {
		return nil, &ProtocolError{Message: "unparseable response", Cause: err}
	}

	var wire []wireResult
	if err := json.Unmarshal([]byte(jsonStr), &wire); err != nil {
		return nil, &ProtocolError{Message: "unexpected response shape", Cause: err}
	}

	byName := make(map[string]wireResult, len(wire))
	for _, w := range wire {
		byName[normalizeName(w.Name)] = w
	}

	results := make([]Result, 0, len(queries))
	for _, q := range queries {
		r := Result{Name: q.Name}
		if w, ok := byName[normalizeName(q.Name)]; ok && w.ValidatedName != nil && strings.TrimSpace(*w.ValidatedName) != "" {
			r.ValidatedName = strings.TrimSpace(*w.ValidatedName)
			r.Recognized = true
		}
		results = append(results, r)
	}

	return results, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
