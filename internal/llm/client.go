// Package llm provides the language-model call abstraction for the agent
// core. It wraps the Anthropic SDK with three interchangeable sources
// (direct API, AWS Bedrock, custom OpenAI-compatible endpoint), retry
// with backoff for transient provider failures, and token tracking.
package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/sszhu/biomni/internal/config"
	"github.com/sszhu/biomni/pkg/models"
)

// Message is one conversation message sent to the provider.
type Message struct {
	// Role is the message role. Observation turns are sent with the user
	// role; the provider only understands user/assistant.
	Role models.Role
	// Content is the message text.
	Content string
}

// Request is one provider invocation.
type Request struct {
	// System is the system prompt for the call.
	System string
	// Messages is the running conversation, oldest first.
	Messages []Message
	// MaxTokens caps the sampled output. Zero means the client default.
	MaxTokens int64
}

// Response is the provider's reply.
type Response struct {
	// Text is the concatenated text content of the reply.
	Text string
	// TokensIn and TokensOut are the usage counts reported by the
	// provider for this call.
	TokensIn  int64
	TokensOut int64
}

// Invoker is the call abstraction consumed by the conductor and the
// retriever. Implementations must honor context cancellation and surface
// provider failures as typed errors, never panics.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// Client wraps the Anthropic SDK client with retry and token tracking.
type Client struct {
	inner       anthropic.Client
	model       anthropic.Model
	temperature float64
	maxRetries  int
	tracker     *TokenTracker
}

// defaultMaxTokens bounds a single sampled response.
const defaultMaxTokens = 8192

// NewClient creates a client for the configured source.
func NewClient(cfg *config.Config) (*Client, error) {
	var opts []option.RequestOption

	switch cfg.ResolveSource() {
	case config.SourceBedrock:
		ctx := context.Background()

		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.LLM.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.LLM.AWSRegion))
		}
		if cfg.LLM.AWSProfile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.LLM.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))

	case config.SourceCustom:
		if cfg.LLM.BaseURL == "" {
			return nil, fmt.Errorf("custom source requires llm.base_url")
		}
		opts = append(opts, option.WithBaseURL(cfg.LLM.BaseURL))
		if cfg.LLM.CustomAPIKey != "" {
			opts = append(opts, option.WithAPIKey(cfg.LLM.CustomAPIKey))
		}

	default:
		apiKey := cfg.LLM.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, config.ErrNoAPIKey
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	// The SDK's own retry layer is disabled; retry.go owns backoff so
	// cancellation and logging behave the same across sources.
	opts = append(opts, option.WithMaxRetries(0))

	model := resolveModel(cfg.LLM.Model)
	if cfg.ResolveSource() == config.SourceBedrock {
		model = translateModelForBedrock(model)
	}

	maxRetries := cfg.LLM.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	return &Client{
		inner:       anthropic.NewClient(opts...),
		model:       model,
		temperature: cfg.LLM.Temperature,
		maxRetries:  maxRetries,
		tracker:     NewTokenTracker(),
	}, nil
}

// resolveModel maps the short model names used in config to full model
// identifiers. Unknown names pass through untouched.
func resolveModel(name string) anthropic.Model {
	aliases := map[string]anthropic.Model{
		"claude-sonnet-4-5": anthropic.ModelClaudeSonnet4_5_20250929,
		"claude-sonnet-4":   anthropic.ModelClaudeSonnet4_20250514,
		"claude-haiku-4-5":  anthropic.ModelClaudeHaiku4_5_20251001,
		"claude-opus-4-1":   anthropic.ModelClaudeOpus4_1_20250805,
	}
	if m, ok := aliases[name]; ok {
		return m
	}
	if name == "" {
		return anthropic.ModelClaudeSonnet4_5_20250929
	}
	return anthropic.Model(name)
}

// translateModelForBedrock converts standard Anthropic model names to
// Bedrock cross-region inference profile format: us.anthropic.{model}-v1:0.
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
	}

	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}

	// Might already be Bedrock format or a custom model.
	return model
}

// Model returns the configured model name.
func (c *Client) Model() anthropic.Model {
	return c.model
}

// Tracker returns the token tracker for this client.
func (c *Client) Tracker() *TokenTracker {
	return c.tracker
}

// Invoke makes one provider call, retrying transient failures with
// backoff. It implements Invoker.
func (c *Client) Invoke(ctx context.Context, req Request) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == models.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(c.temperature),
		Messages:    messages,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := c.invokeWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var text string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}

	c.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	return &Response{
		Text:      text,
		TokensIn:  resp.Usage.InputTokens,
		TokensOut: resp.Usage.OutputTokens,
	}, nil
}

// Verify Client implements Invoker at compile time.
var _ Invoker = (*Client)(nil)
