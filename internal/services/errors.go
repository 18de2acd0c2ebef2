// Package services defines the business logic for premium estimates and the
// per-user estimate history. This file centralizes the service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the handler
// layer. Wrapped detail (fmt.Errorf with %w) is for logs only and never
// reaches a client.
package services

import "errors"

var (
	// ErrValidation indicates an estimate payload that is not a JSON object or
	// lacks one of the required feature keys.
	ErrValidation = errors.New("invalid estimate request")

	// ErrUpstreamUnavailable indicates the prediction service failed: it was
	// unreachable, timed out, answered non-2xx, or returned a non-JSON body.
	ErrUpstreamUnavailable = errors.New("prediction service unavailable")

	// ErrInvalidRecord indicates a history record that cannot be stored:
	// missing output or timestamp, an unparseable timestamp, or an unknown
	// predictor type.
	ErrInvalidRecord = errors.New("invalid prediction record")

	// ErrRecordNotFound indicates the record does not exist for the caller.
	// Records owned by someone else are reported the same way.
	ErrRecordNotFound = errors.New("prediction record not found")

	// ErrStoreUnavailable indicates the history store failed to read or write.
	ErrStoreUnavailable = errors.New("history store unavailable")
)
