package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-premium-backend/internal/domain"
	"github.com/tbourn/go-premium-backend/internal/sysutil"
)

// ErrUpstreamUnavailable is returned when the prediction endpoint cannot be
// reached, answers with a non-2xx status, or returns something that is not
// JSON. The wrapped message carries the detail for logs only.
var ErrUpstreamUnavailable = errors.New("prediction service unavailable")

// HeaderRequestID is forwarded on every outbound call so upstream logs can be
// correlated with ours.
const HeaderRequestID = "X-Request-ID"

// maxResponseBytes caps how much of an upstream response is read.
const maxResponseBytes = 1 << 20

// DefaultTimeout applies when New is given a non-positive timeout.
const DefaultTimeout = 10 * time.Second

// Client posts feature payloads to a single estimate endpoint. It is safe for
// concurrent use.
type Client struct {
	URL  string
	HTTP *http.Client

	// Header is added to every request (e.g. Authorization for the CLI).
	Header http.Header
}

// New builds a Client for url with its own http.Client bounded by timeout.
func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		URL:  url,
		HTTP: &http.Client{Timeout: timeout},
	}
}

// Estimate sends in to the endpoint and decodes the prediction.
func (c *Client) Estimate(ctx context.Context, in domain.FeatureInput) (domain.PredictionResult, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return domain.PredictionResult{}, err
	}
	raw, err := c.Forward(ctx, body)
	if err != nil {
		return domain.PredictionResult{}, err
	}
	var out domain.PredictionResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.PredictionResult{}, fmt.Errorf("%w: decode: %v", ErrUpstreamUnavailable, err)
	}
	return out, nil
}

// Forward posts body verbatim and returns the raw JSON response. Exactly one
// attempt is made; a timeout counts as an upstream failure.
func (c *Client) Forward(ctx context.Context, body []byte) ([]byte, error) {
	tr := otel.Tracer("predictor/Client")
	ctx, span := tr.Start(ctx, "Forward",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.url", c.URL),
			attribute.Int("http.request_content_length", len(body)),
		),
	)
	defer span.End()

	start := time.Now()
	raw, outcome, err := c.do(ctx, body)
	predictorLat.Observe(time.Since(start).Seconds())
	predictorReqs.WithLabelValues(outcome).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return nil, err
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, body []byte) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, outcomeTransport, fmt.Errorf("%w: build request: %v", ErrUpstreamUnavailable, err)
	}
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if rid := sysutil.RequestIDFrom(ctx); rid != "" {
		req.Header.Set(HeaderRequestID, rid)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, outcomeTransport, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, outcomeTransport, fmt.Errorf("%w: read body: %v", ErrUpstreamUnavailable, err)
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, outcomeBadStatus, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}
	if !json.Valid(raw) {
		return nil, outcomeInvalidBody, fmt.Errorf("%w: response is not JSON", ErrUpstreamUnavailable)
	}
	return raw, outcomeOK, nil
}
