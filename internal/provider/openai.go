package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/sashabaranov/go-openai"
)

const OpenAIName = "openai"

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Logger  *slog.Logger
}

// OpenAI calls the chat completion API. The role is sent as the system
// persona and the serialized payload as the user message.
type OpenAI struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// callOptions are the provider options this backend understands.
type callOptions struct {
	Model       string   `mapstructure:"model"`
	Temperature *float32 `mapstructure:"temperature"`
	MaxTokens   *int     `mapstructure:"max_tokens"`
}

func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai: api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: logger,
	}, nil
}

func (o *OpenAI) Name() string { return OpenAIName }

func (o *OpenAI) Call(ctx context.Context, prompt, role string, opts Options) (Response, error) {
	co, err := decodeCallOptions(opts)
	if err != nil {
		return Response{}, err
	}

	model := o.model
	if co.Model != "" {
		model = co.Model
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf("You are acting as the %q role. Respond with JSON when possible.", role)},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if co.Temperature != nil {
		req.Temperature = *co.Temperature
	}
	if co.MaxTokens != nil {
		req.MaxCompletionTokens = *co.MaxTokens
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, req)
	latency := time.Since(start)
	if err != nil {
		o.logger.Error("openai call failed", "role", role, "model", model, "error", err)
		return Response{}, fmt.Errorf("openai call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, errors.New("openai returned no choices")
	}

	content := resp.Choices[0].Message.Content
	var data any
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		data = content
	}

	if resp.Model != "" {
		model = resp.Model
	}

	return Response{
		Data: data,
		Metadata: Metadata{
			Provider: OpenAIName,
			Latency:  float64(latency.Microseconds()) / 1000.0,
			Model:    model,
		},
	}, nil
}

func decodeCallOptions(opts Options) (callOptions, error) {
	var out callOptions
	if len(opts) == 0 {
		return out, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(map[string]any(opts)); err != nil {
		return out, fmt.Errorf("openai: invalid options: %w", err)
	}
	return out, nil
}
