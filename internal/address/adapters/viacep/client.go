// Package viacep implements the postal code lookup capability against the
// ViaCEP web service.
package viacep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"formcheck/internal/address/models"
	"formcheck/pkg/domain"
	"formcheck/pkg/platform/circuit"
	"formcheck/pkg/platform/sentinel"
	"formcheck/pkg/requestcontext"
)

const (
	// DefaultBaseURL is the public ViaCEP endpoint.
	DefaultBaseURL = "https://viacep.com.br"

	providerID = "viacep"

	// maxBodyBytes bounds how much of a response we read.
	maxBodyBytes = 64 << 10
)

// Client issues one GET per lookup. It does not retry; a failed request is
// reported to the caller as is.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuit.Breaker
	tracer     trace.Tracer
	logger     *slog.Logger
	now        func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a ViaCEP client. timeout bounds each HTTP exchange on top of
// whatever deadline the caller's context carries.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		breaker:    circuit.New(providerID),
		tracer:     otel.Tracer("formcheck/address/viacep"),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID identifies the provider in errors, cache records and metrics.
func (c *Client) ID() string {
	return providerID
}

// Lookup implements ports.Lookup.
func (c *Client) Lookup(ctx context.Context, code domain.PostalCode) (*models.Address, error) {
	ctx, span := c.tracer.Start(ctx, "viacep.Lookup", trace.WithAttributes(
		attribute.String("postal_code", code.String()),
		attribute.String("request_id", requestcontext.RequestID(ctx)),
	))
	defer span.End()

	record, err := c.lookup(ctx, code)
	switch {
	case errors.Is(err, models.ErrNotFound):
		span.SetAttributes(attribute.Bool("found", false))
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, string(GetCategory(err)))
	default:
		span.SetAttributes(attribute.Bool("found", true))
	}
	return record, err
}

func (c *Client) lookup(ctx context.Context, code domain.PostalCode) (*models.Address, error) {
	if code.IsNil() {
		return nil, NewLookupError(ErrorInternal, providerID, "postal code is required", nil)
	}
	if !c.breaker.Allow() {
		return nil, NewLookupError(ErrorProviderOutage, providerID, "circuit open", sentinel.ErrCircuitOpen)
	}

	url := fmt.Sprintf("%s/ws/%s/json/", c.baseURL, code.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewLookupError(ErrorInternal, providerID, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json;charset=utf-8")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(ctx, classifyTransportError(ctx, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.fail(ctx, classifyTransportError(ctx, err))
	}

	record, err := parseResponse(providerID, resp.StatusCode, body, c.now())
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, c.fail(ctx, err)
	}
	c.succeed(ctx)
	return record, err
}

func (c *Client) fail(ctx context.Context, err error) error {
	if countsAgainstBreaker(GetCategory(err)) {
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.WarnContext(ctx, "address lookup circuit opened",
				"provider", providerID,
				"error", err,
			)
		}
	}
	return err
}

func (c *Client) succeed(ctx context.Context) {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "address lookup circuit closed", "provider", providerID)
	}
}

func classifyTransportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return NewLookupError(ErrorCanceled, providerID, "lookup canceled", err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return NewLookupError(ErrorTimeout, providerID, "lookup timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewLookupError(ErrorTimeout, providerID, "lookup timed out", err)
	}
	return NewLookupError(ErrorProviderOutage, providerID, "request failed", err)
}
