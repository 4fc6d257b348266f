// Package llm talks to OpenAI-compatible chat-completion APIs.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"scoutchat/internal/domain"
	"scoutchat/internal/infra/config"
	"scoutchat/internal/infra/tracer"
)

// OpenAIProvider implements domain.LLMProvider for any OpenAI-compatible API.
// The API key is fixed at construction.
type OpenAIProvider struct {
	name        string
	model       string
	apiKey      string
	baseURL     string
	temperature float64
	maxTokens   int
	client      *http.Client
	logger      *slog.Logger
	requests    metric.Int64Counter
}

// NewOpenAIProvider creates a provider with configured timeouts.
func NewOpenAIProvider(cfg config.LLMConfig, logger *slog.Logger) (*OpenAIProvider, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.siliconflow.cn/v1"
	}
	name := cfg.Name
	if name == "" {
		name = "openai"
	}

	requests, err := tracer.Meter().Int64Counter("scoutchat.llm.requests",
		metric.WithDescription("Chat completions by provider and outcome"))
	if err != nil {
		return nil, err
	}

	return &OpenAIProvider{
		name:        name,
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client:      NewHTTPClient(cfg),
		logger:      logger,
		requests:    requests,
	}, nil
}

// Chat implements domain.LLMProvider.
func (p *OpenAIProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if req.Model == "" {
		req.Model = p.model
	}
	if req.Temperature == 0 {
		req.Temperature = p.temperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = p.maxTokens
	}

	ctx, span := tracer.StartSpan(ctx, tracer.SpanLLMChat,
		trace.WithAttributes(
			tracer.StringAttr("llm.provider", p.name),
			tracer.StringAttr("llm.model", req.Model),
			tracer.IntAttr("llm.messages", len(req.Messages)),
		),
	)
	defer span.End()

	result, err := p.chat(ctx, req)
	p.record(ctx, err)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	setUsageAttrs(span, result.Usage)
	tracer.SetOK(span)
	logChatCompleted(p.logger, p.name, result)
	return result, nil
}

func (p *OpenAIProvider) chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	const op = "llm.chat"

	body, err := json.Marshal(toOpenAIRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	headers := map[string]string{}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}

	respBody, err := doJSONRequest(ctx, p.client, op, p.baseURL+"/chat/completions", body, headers)
	if err != nil {
		return nil, err
	}

	var oaiResp openaiResponse
	if err := json.Unmarshal(respBody, &oaiResp); err != nil || len(oaiResp.Choices) == 0 || oaiResp.Choices[0].Message.Content == nil {
		return nil, domain.NewDomainError(op, domain.ErrMalformedResponse,
			"Invalid response format: "+strings.TrimSpace(string(respBody)))
	}

	return fromOpenAIResponse(oaiResp), nil
}

func (p *OpenAIProvider) record(ctx context.Context, err error) {
	outcome := "ok"
	if err != nil {
		outcome = strings.ToLower(string(domain.ErrorCodeOf(err)))
	}
	p.requests.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(
		attribute.String("provider", p.name),
		attribute.String("outcome", outcome),
	))
}

// Name implements domain.LLMProvider.
func (p *OpenAIProvider) Name() string { return p.name }

// --- OpenAI API wire types ---

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	Stream      bool            `json:"stream"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
	Created int64          `json:"created"`
}

type openaiChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string  `json:"role"`
		Content *string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type openaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func toOpenAIRequest(req domain.ChatRequest) openaiRequest {
	msgs := make([]openaiMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, openaiMessage{Role: m.Role, Content: m.Content})
	}
	return openaiRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
}

func fromOpenAIResponse(resp openaiResponse) *domain.ChatResponse {
	choice := resp.Choices[0]
	created := time.Now()
	if resp.Created > 0 {
		created = time.Unix(resp.Created, 0)
	}
	return &domain.ChatResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Message: domain.Message{
			Role:      domain.RoleAssistant,
			Content:   *choice.Message.Content,
			Timestamp: created,
		},
		Usage: domain.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		CreatedAt: created,
	}
}

var _ domain.LLMProvider = (*OpenAIProvider)(nil)
