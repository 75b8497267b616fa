// Package vies talks to the EU VAT Information Exchange System. The Client
// wraps the SOAP codec in a retrying transport: timeouts and the "server busy"
// fault are retried with exponential backoff, everything else is terminal.
package vies

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"vatgate/internal/vies/metrics"
	"vatgate/internal/vies/models"
	"vatgate/internal/vies/soap"
)

const (
	// DefaultEndpoint is the public VIES SOAP service.
	DefaultEndpoint = "https://ec.europa.eu/taxation_customs/vies/services/checkVatService"

	defaultTimeout     = 120 * time.Second
	defaultMaxAttempts = 6
	// MaxAttempts bounds Config.MaxAttempts so the backoff shift stays in range.
	MaxAttempts = 16
	defaultBaseBackoff = time.Second

	maxResponseBytes = 1 << 20
	tracerName       = "vatgate/internal/vies"
)

// Config is the immutable transport configuration.
type Config struct {
	Endpoint    string
	Timeout     time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
	Operation   soap.Operation
	Requester   soap.Requester
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		Endpoint:    DefaultEndpoint,
		Timeout:     defaultTimeout,
		MaxAttempts: defaultMaxAttempts,
		BaseBackoff: defaultBaseBackoff,
		Operation:   soap.OperationCheckVat,
		Requester:   soap.DefaultRequester,
	}
}

// HTTPDoer is the subset of *http.Client the transport needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Sleeper waits for d or until ctx ends, returning ctx.Err() in the latter case.
type Sleeper func(ctx context.Context, d time.Duration) error

// Client sends VAT checks to VIES. It is safe for concurrent use.
type Client struct {
	cfg     Config
	http    HTTPDoer
	sleep   Sleeper
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Client)

func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		c.http = doer
	}
}

// WithSleeper replaces the backoff wait, mainly so tests can record delays.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		c.sleep = s
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = t
	}
}

// New validates cfg and builds a Client. Zero-valued optional fields take
// their defaults.
func New(cfg Config, opts ...Option) (*Client, error) {
	def := DefaultConfig()
	if cfg.Endpoint == "" {
		return nil, errors.New("vies endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.MaxAttempts > MaxAttempts {
		return nil, fmt.Errorf("vies max attempts %d exceeds %d", cfg.MaxAttempts, MaxAttempts)
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = def.BaseBackoff
	}
	if cfg.Operation == "" {
		cfg.Operation = def.Operation
	}
	if _, err := soap.ParseOperation(string(cfg.Operation)); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:    cfg,
		http:   &http.Client{},
		sleep:  sleepContext,
		logger: slog.New(slog.DiscardHandler),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns a copy of the client's effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// CheckOne normalizes an already split country/number pair and sends it.
func (c *Client) CheckOne(ctx context.Context, country, number string) models.Outcome {
	return c.Send(ctx, models.NewVatIdentifier(country, number))
}

// Send checks one identifier and returns its terminal outcome. Failures are
// reported as outcome values, never as Go errors.
func (c *Client) Send(ctx context.Context, id models.VatIdentifier) models.Outcome {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "vies.Send", trace.WithAttributes(
		attribute.String("vies.country", id.CountryCode),
		attribute.String("vies.operation", string(c.cfg.Operation)),
	))
	defer span.End()

	out := c.send(ctx, span, id)

	span.SetAttributes(attribute.String("vies.outcome", string(out.Kind)))
	if out.IsError() {
		span.SetStatus(codes.Error, out.Status())
	}
	if c.metrics != nil {
		c.metrics.IncrementOutcome(string(out.Kind))
		c.metrics.ObserveSend(start)
	}
	return out
}

func (c *Client) send(ctx context.Context, span trace.Span, id models.VatIdentifier) models.Outcome {
	body, err := soap.Encode(id, c.cfg.Operation, c.cfg.Requester)
	if err != nil {
		return models.TransportError(err.Error())
	}

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return canceled(err)
		}
		span.AddEvent("attempt", trace.WithAttributes(attribute.Int("vies.attempt", attempt)))
		if c.metrics != nil {
			c.metrics.IncrementAttempts()
		}

		respBody, err := c.post(ctx, attempt, body)
		if err != nil {
			var ae *AttemptError
			if !errors.As(err, &ae) {
				return models.TransportError(err.Error())
			}
			category := GetCategory(err)
			switch {
			case category == ErrorCanceled:
				return canceled(ae.Underlying)
			case IsRetryable(err) && attempt < c.cfg.MaxAttempts:
				if out, ok := c.backoff(ctx, id, attempt, string(category)); !ok {
					return out
				}
				continue
			case IsRetryable(err):
				return models.TransportError(c.timeoutMessage())
			default:
				return models.TransportError(ae.Message)
			}
		}

		out := soap.Decode(respBody)
		if out.IsServerBusy() && attempt < c.cfg.MaxAttempts {
			if out, ok := c.backoff(ctx, id, attempt, "server_busy"); !ok {
				return out
			}
			continue
		}
		return out
	}
	return models.ServiceFault(models.FaultRetriesExhausted)
}

// backoff waits before the next attempt. ok is false when ctx ended first,
// in which case out is the cancellation outcome.
func (c *Client) backoff(ctx context.Context, id models.VatIdentifier, attempt int, reason string) (out models.Outcome, ok bool) {
	wait := Backoff(c.cfg.BaseBackoff, attempt)
	c.logger.WarnContext(ctx, "vies attempt failed, retrying",
		"vat", id.String(),
		"attempt", attempt,
		"reason", reason,
		"backoff", wait,
	)
	if c.metrics != nil {
		c.metrics.IncrementRetries(reason)
	}
	if err := c.sleep(ctx, wait); err != nil {
		return canceled(err), false
	}
	return models.Outcome{}, true
}

func (c *Client) post(ctx context.Context, attempt int, body []byte) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, newAttemptError(ErrorNetwork, attempt, "HTTP error: "+err.Error(), err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=UTF-8")
	req.Header.Set("SOAPAction", "")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(ctx, attempt, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, newAttemptError(ErrorHTTPStatus, attempt, "HTTP error: "+resp.Status, nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classify(ctx, attempt, err)
	}
	return data, nil
}

// classify maps a request error onto the attempt taxonomy. Parent
// cancellation wins over the per-attempt deadline.
func classify(parent context.Context, attempt int, err error) *AttemptError {
	if perr := parent.Err(); perr != nil {
		return newAttemptError(ErrorCanceled, attempt, "canceled", perr)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newAttemptError(ErrorTimeout, attempt, "timeout", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newAttemptError(ErrorTimeout, attempt, "timeout", err)
	}
	return newAttemptError(ErrorNetwork, attempt, "HTTP error: "+err.Error(), err)
}

func (c *Client) timeoutMessage() string {
	return fmt.Sprintf("Timeout after %g seconds", c.cfg.Timeout.Seconds())
}

func canceled(err error) models.Outcome {
	return models.TransportError("canceled: " + err.Error())
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
