// Package services – EstimateService
//
// This file implements EstimateService, the gateway in front of the premium
// prediction service. It is a stateless relay: it checks that the payload is
// a JSON object carrying every feature key, forwards the bytes unchanged, and
// returns the upstream JSON unchanged. There is no retry and no caching; the
// forwarder's own timeout bounds the call.
//
// Observability: Estimate is OpenTelemetry-instrumented; the outbound call
// carries the trace context and the inbound request id.
package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-premium-backend/internal/domain"
)

// Forwarder relays a raw JSON body to the prediction service.
// *predictor.Client satisfies it.
type Forwarder interface {
	Forward(ctx context.Context, body []byte) ([]byte, error)
}

// EstimateService relays estimate requests to the prediction service.
type EstimateService struct {
	Upstream Forwarder
}

// NewEstimateService constructs an EstimateService around f.
func NewEstimateService(f Forwarder) *EstimateService {
	return &EstimateService{Upstream: f}
}

// Estimate validates payload and returns the upstream response body as is.
//
// Errors:
//   - ErrValidation when payload is not a JSON object or a feature key is
//     missing or null. Values are not range-checked here.
//   - ErrUpstreamUnavailable for any upstream failure, wrapping the cause.
func (s *EstimateService) Estimate(ctx context.Context, payload []byte) ([]byte, error) {
	tr := otel.Tracer("services/EstimateService")
	ctx, span := tr.Start(ctx, "Estimate",
		trace.WithAttributes(attribute.Int("payload.bytes", len(payload))),
	)
	defer span.End()

	if err := checkFeatureKeys(payload); err != nil {
		span.SetStatus(codes.Error, "validation")
		return nil, err
	}

	out, err := s.Upstream.Forward(ctx, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream")
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return out, nil
}

func checkFeatureKeys(payload []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil || obj == nil {
		return fmt.Errorf("%w: body must be a JSON object", ErrValidation)
	}
	for _, k := range domain.FeatureKeys {
		v, ok := obj[k]
		if !ok || string(v) == "null" {
			return fmt.Errorf("%w: missing field %q", ErrValidation, k)
		}
	}
	return nil
}
