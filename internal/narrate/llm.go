package narrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"pivot-trader/internal/models"
	"pivot-trader/pkg/utils"
)

// DefaultModel is used when no model is configured.
const DefaultModel = openai.GPT4oMini

// Completer sends a system and user prompt to a language model.
type Completer interface {
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// OpenAIClient implements Completer using the OpenAI API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI client. An empty baseURL uses the
// public endpoint.
func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// CompleteWithSystem sends a prompt with system message to the LLM.
func (c *OpenAIClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}
	return resp.Choices[0].Message.Content, nil
}

const systemPrompt = `You are a disciplined swing trader writing a short note for a client.
Rewrite the draft in your own voice in at most 120 words.
Keep every number exactly as given. Do not add levels, targets or advice that are not in the data.
If a plan is WAIT, say so plainly.`

// LLMNarrator asks a language model to phrase the decision and falls back to
// another narrator when the model fails or changes the numbers.
type LLMNarrator struct {
	client   Completer
	fallback Narrator
	timeout  time.Duration
	retry    utils.RetryConfig
	logger   zerolog.Logger
}

// LLMOption configures an LLMNarrator.
type LLMOption func(*LLMNarrator)

// WithTimeout bounds a single narration call including retries.
func WithTimeout(d time.Duration) LLMOption {
	return func(n *LLMNarrator) { n.timeout = d }
}

// WithRetry sets the retry policy for model calls.
func WithRetry(cfg utils.RetryConfig) LLMOption {
	return func(n *LLMNarrator) { n.retry = cfg }
}

// WithLogger sets the logger used to report fallbacks.
func WithLogger(logger zerolog.Logger) LLMOption {
	return func(n *LLMNarrator) { n.logger = logger }
}

// NewLLMNarrator creates a model-backed narrator. A nil fallback uses the
// template narrator.
func NewLLMNarrator(client Completer, fallback Narrator, opts ...LLMOption) *LLMNarrator {
	if fallback == nil {
		fallback = NewTemplateNarrator()
	}
	n := &LLMNarrator{
		client:   client,
		fallback: fallback,
		timeout:  30 * time.Second,
		retry:    utils.DefaultRetryConfig(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Narrate returns the model's note, or the fallback narration when the
// model call fails.
func (n *LLMNarrator) Narrate(ctx context.Context, symbol string, d *models.Decision) (string, error) {
	text, err := n.complete(ctx, symbol, d)
	if err == nil {
		return text, nil
	}
	if errors.Is(err, context.Canceled) {
		return "", err
	}
	n.logger.Warn().Err(err).Str("symbol", symbol).Msg("LLM narration failed, using template")
	return n.fallback.Narrate(ctx, symbol, d)
}

func (n *LLMNarrator) complete(ctx context.Context, symbol string, d *models.Decision) (string, error) {
	prompt, err := buildPrompt(symbol, d)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	text, err := utils.RetryWithResult(ctx, n.retry, func() (string, error) {
		return n.client.CompleteWithSystem(ctx, systemPrompt, prompt)
	})
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty narration")
	}
	if missing := missingLevels(text, d); len(missing) > 0 {
		return "", fmt.Errorf("narration dropped levels %v", missing)
	}
	return text, nil
}

func buildPrompt(symbol string, d *models.Decision) (string, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode decision: %w", err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\n\nDecision data:\n%s\n\nDraft:\n%s\n", symbol, data, Render(symbol, d))
	return b.String(), nil
}

// missingLevels lists the base plan prices absent from the text.
func missingLevels(text string, d *models.Decision) []string {
	if !d.Base.IsActionable() {
		return nil
	}
	var missing []string
	for _, v := range []float64{d.Base.Entry, d.Base.TP1, d.Base.TP2, d.Base.SL} {
		s := utils.FormatPrice(v)
		if !strings.Contains(text, s) && !strings.Contains(text, strconv.FormatFloat(v, 'f', -1, 64)) {
			missing = append(missing, s)
		}
	}
	return missing
}
