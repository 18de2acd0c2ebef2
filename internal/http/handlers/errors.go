// Package handlers defines the HTTP error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable; clients branch on them. The
// accompanying message is for display only and may change.
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "invalid_record",
//	  "error": "Invalid prediction data format."
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodePayloadTooLarge  = "payload_too_large"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeValidation          = "validation_error"
	ErrCodeUpstreamUnavailable = "upstream_unavailable"
	ErrCodeInvalidRecord       = "invalid_record"
	ErrCodeStoreUnavailable    = "store_unavailable"
	ErrCodeUnauthenticated     = "auth_required"
)

// User-facing messages.
const (
	msgPredictFailed = "Failed to get a prediction from the ML service."
	msgInvalidRecord = "Invalid prediction data format."
	msgSaved         = "Prediction saved successfully."
	msgSaveFailed    = "Failed to save prediction history."
	msgListFailed    = "Failed to fetch prediction history."
	msgNotFound      = "Prediction not found."
	msgTooLarge      = "request body too large"
)
