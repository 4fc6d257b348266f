package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"scoutchat/internal/domain"
	"scoutchat/internal/infra/tracer"
)

// proxyError is the failure body returned by the search proxy.
type proxyError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ProxyClient is a Searcher that delegates to a running search proxy over
// HTTP. A non-2xx reply is a search failure.
type ProxyClient struct {
	client  *http.Client
	url     string
	logger  *slog.Logger
	metrics *searchMetrics
}

// NewProxyClient creates a client for the proxy endpoint at url.
func NewProxyClient(url string, timeout time.Duration, logger *slog.Logger) (*ProxyClient, error) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	m, err := newSearchMetrics()
	if err != nil {
		return nil, err
	}
	return &ProxyClient{
		client:  &http.Client{Timeout: timeout},
		url:     url,
		logger:  logger,
		metrics: m,
	}, nil
}

func (c *ProxyClient) Name() string { return "proxy" }

func (c *ProxyClient) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	ctx, span := tracer.StartSpan(ctx, tracer.SpanSearchQuery,
		trace.WithAttributes(tracer.StringAttr("search.searcher", c.Name())),
	)
	defer span.End()

	start := time.Now()
	resp, err := c.post(ctx, req)
	c.metrics.record(ctx, c.Name(), req.Layout, err, time.Since(start))
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	tracer.SetOK(span)
	return resp, nil
}

func (c *ProxyClient) post(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	const op = "search.proxy"

	body, err := json.Marshal(req)
	if err != nil {
		return nil, domain.WrapOp(op, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewDomainError(op, domain.ErrSearchUnreachable, err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		switch {
		case isTimeout(err):
			return nil, domain.NewSubSystemError("search", op, domain.ErrTimeout, err.Error())
		case ctx.Err() != nil:
			return nil, domain.WrapOp(op, ctx.Err())
		}
		return nil, domain.NewDomainError(op, domain.ErrSearchUnreachable, err.Error())
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxSearchBodySize))
	if err != nil {
		return nil, domain.NewDomainError(op, domain.ErrSearchFailed, "read response: "+err.Error())
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		var pe proxyError
		_ = json.Unmarshal(raw, &pe)
		detail := fmt.Sprintf("HTTP %d", httpResp.StatusCode)
		if pe.Error != "" {
			detail += ": " + pe.Error
		}
		c.logger.Debug("search proxy returned failure", "status", httpResp.StatusCode, "code", pe.Code)
		return nil, remoteError(op, domain.ErrorCode(pe.Code), detail)
	}

	var resp domain.SearchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, domain.NewDomainError(op, domain.ErrSearchFailed, "parse response: "+err.Error())
	}
	resp.Query = req.Query
	return &resp, nil
}

// remoteError rebuilds a typed error from a code that crossed the wire,
// keeping its subsystem so ErrorCodeOf round-trips.
func remoteError(op string, code domain.ErrorCode, detail string) error {
	var de *domain.DomainError
	switch err := domain.ErrorFromCode(code); {
	case err == nil:
		return domain.NewDomainError(op, domain.ErrSearchFailed, detail)
	case errors.As(err, &de):
		return domain.NewSubSystemError(de.SubSystem, op, de.Err, detail)
	default:
		return domain.NewDomainError(op, err, detail)
	}
}
