// Package newrelic queries the New Relic Insights API for a single metric value.
package newrelic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"enma/internal/apperr"
	"enma/internal/config"
	"enma/internal/metric"
)

const (
	queryKeyHeader  = "X-Query-Key"
	maxResponseSize = 1 << 20 // 1MB
)

var errUnknownShape = errors.New("response has neither results nor error")

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	accountID  int
	userAgent  string
}

type Option func(*Client)

// WithHTTPClient replaces the pooled client built by New.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

func New(cfg *config.NewRelicConfig, opts ...Option) *Client {
	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 32,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: cfg.ConnectTimeout,
	}

	c := &Client{
		httpClient: &http.Client{Transport: otelhttp.NewTransport(transport)},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		accountID:  cfg.AccountID,
		userAgent:  "enma",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type resultRow struct {
	Result      *float64 `json:"result"`
	Average     *float64 `json:"average"`
	UniqueCount *float64 `json:"uniqueCount"`
}

func (r resultRow) value(f metric.Field) (float64, bool) {
	var v *float64
	switch f {
	case metric.FieldAverage:
		v = r.Average
	case metric.FieldResult:
		v = r.Result
	case metric.FieldUniqueCount:
		v = r.UniqueCount
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// queryResponse covers both envelopes the provider answers with. They are
// told apart by which key is present, never by status code.
type queryResponse struct {
	Results []resultRow `json:"results"`
	Error   *string     `json:"error"`
}

// Query issues one GET for kind over the given window and extracts the
// kind's column from the first result row.
func (c *Client) Query(ctx context.Context, kind metric.Kind, applicationName, startTime, endTime string) (float64, error) {
	if !kind.Valid() {
		return 0, &apperr.TransportError{Op: apperr.OpBuild, Err: fmt.Errorf("unknown metric kind %d", kind)}
	}

	nrql := kind.Query(applicationName, startTime, endTime)
	endpoint := fmt.Sprintf("%s/v1/accounts/%d/query?nrql=%s", c.baseURL, c.accountID, url.QueryEscape(nrql))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, &apperr.TransportError{Op: apperr.OpBuild, Err: err}
	}
	req.Header.Set(queryKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &apperr.TransportError{Op: apperr.OpSend, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	var body queryResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
		return 0, &apperr.TransportError{Op: apperr.OpDecode, Err: fmt.Errorf("status %d: %w", resp.StatusCode, err)}
	}

	switch {
	case body.Error != nil:
		return 0, &apperr.UpstreamError{Message: *body.Error}
	case body.Results == nil:
		return 0, &apperr.TransportError{Op: apperr.OpDecode, Err: fmt.Errorf("status %d: %w", resp.StatusCode, errUnknownShape)}
	case len(body.Results) == 0:
		return 0, apperr.ErrNullMetric
	}

	v, ok := body.Results[0].value(kind.Field())
	if !ok {
		return 0, apperr.ErrNullMetric
	}
	return v, nil
}
