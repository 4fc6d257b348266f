package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/trace"

	"scoutchat/internal/domain"
	"scoutchat/internal/infra/tracer"
)

// maxResponseBody is the maximum response body size we read from LLM APIs.
const maxResponseBody = 10 * 1024 * 1024 // 10 MB

// doJSONRequest performs a JSON POST request and returns the response body.
// Non-200 responses become typed domain errors.
func doJSONRequest(ctx context.Context, client *http.Client, op, url string, body []byte, headers map[string]string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, mapTransportError(ctx, op, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, mapTransportError(ctx, op, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, mapHTTPError(op, httpResp.StatusCode, respBody)
	}

	return respBody, nil
}

// mapHTTPError maps an HTTP status code and body to a domain error whose
// detail reads "API Error: <status> - <message>". The message is the
// provider's error.message when present, else the raw body.
func mapHTTPError(op string, statusCode int, body []byte) error {
	msg := gjson.GetBytes(body, "error.message").String()
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	detail := fmt.Sprintf("API Error: %d - %s", statusCode, msg)

	var sentinel error
	switch {
	case statusCode == http.StatusTooManyRequests: // 429
		sentinel = domain.ErrRateLimit
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden: // 401, 403
		sentinel = domain.ErrAuthInvalid
	case statusCode >= 500:
		sentinel = domain.ErrProviderError
	default:
		sentinel = domain.ErrInvalidInput
	}
	return domain.NewDomainError(op, sentinel, detail)
}

// mapTransportError classifies failures below HTTP: caller cancellation
// passes through, everything else is a network failure.
func mapTransportError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return domain.WrapOp(op, ctx.Err())
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return domain.NewDomainError(op, domain.ErrTimeout, err.Error())
	}
	return domain.NewDomainError(op, domain.ErrNetwork, err.Error())
}

// logChatCompleted logs the standard debug message after a successful LLM chat.
func logChatCompleted(logger *slog.Logger, providerName string, result *domain.ChatResponse) {
	logger.Debug("llm chat completed",
		"provider", providerName,
		"model", result.Model,
		"tokens", result.Usage.TotalTokens,
	)
}

// setUsageAttrs adds token usage attributes to a trace span.
func setUsageAttrs(span trace.Span, usage domain.Usage) {
	span.SetAttributes(
		tracer.IntAttr("llm.prompt_tokens", usage.PromptTokens),
		tracer.IntAttr("llm.completion_tokens", usage.CompletionTokens),
	)
}
