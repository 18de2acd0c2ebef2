// History HTTP handlers.
//
//   - POST /history       save an estimate for the caller (Idempotency-Key aware)
//   - GET  /history       list the caller's estimates, newest first (ETag support)
//   - GET  /history/:id   fetch one of the caller's estimates
//
// All routes sit behind middleware.Authenticate; the owner is always the
// verified token subject, never a value from the request body.
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-premium-backend/internal/domain"
	"github.com/tbourn/go-premium-backend/internal/http/middleware"
	"github.com/tbourn/go-premium-backend/internal/services"
	"github.com/tbourn/go-premium-backend/internal/utils"
)

// HeaderReplayed is set to "true" when a save was answered from an earlier
// request with the same Idempotency-Key.
const HeaderReplayed = "Idempotency-Replayed"

const maxHistoryLimit = 100

//
// DTOs
//

// SaveHistoryRequest is the JSON payload for saving an estimate.
type SaveHistoryRequest struct {
	// Input is the feature payload the estimate was made from.
	Input *domain.FeatureInput `json:"input"`
	// Output is the predicted annual premium. Required.
	Output *float64 `json:"output" example:"24500.75"`
	// Analysis is the cohort range shown with the estimate, if any.
	Analysis *domain.AgeGroupAnalysis `json:"analysis"`
	// PredictorType defaults to "medical".
	PredictorType string `json:"predictor_type" example:"medical" enums:"medical,car,life"`
	// Timestamp is when the estimate was made, RFC 3339. Required.
	Timestamp string `json:"timestamp" example:"2025-06-01T10:00:00Z"`
}

// SaveHistoryResponse acknowledges a stored estimate.
type SaveHistoryResponse struct {
	Message string `json:"message" example:"Prediction saved successfully."`
	ID      string `json:"id"      example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

//
// Handlers
//

// SaveHistory godoc
// @ID          saveHistory
// @Summary     Save an estimate to the caller's history
// @Description Appends an estimate to the authenticated user's history. A repeated Idempotency-Key returns the first record's id with Idempotency-Replayed: true.
// @Tags        History
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string  false  "Deduplicates retried saves"  example(7b1f6c1e-save-1)
// @Param       body             body    handlers.SaveHistoryRequest  true  "Estimate to save"
//
// @Success     201  {object}  handlers.SaveHistoryResponse
// @Header      201  {string}  Idempotency-Replayed  "true when answered from an earlier request"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid prediction data format"
// @Failure     401  {object}  handlers.ErrorResponse  "No token"
// @Failure     403  {object}  handlers.ErrorResponse  "Invalid or expired token"
// @Failure     413  {object}  handlers.ErrorResponse  "Body too large"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Store failure"
// @Router      /history [post]
func (h *Handlers) SaveHistory(c *gin.Context) {
	owner := ownerID(c)
	if owner == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthenticated, "Authentication required: No token provided.")
		return
	}

	var req SaveHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if bodyTooLarge(err) {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, msgTooLarge)
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeInvalidRecord, msgInvalidRecord)
		return
	}

	key, _ := middleware.GetIdempotencyKey(c)
	id, replayed, err := h.history.SaveIdempotent(c.Request.Context(), owner, key, services.SaveInput{
		Input:         req.Input,
		Output:        req.Output,
		Analysis:      req.Analysis,
		PredictorType: req.PredictorType,
		Timestamp:     req.Timestamp,
	})
	switch {
	case errors.Is(err, services.ErrInvalidRecord):
		middleware.LoggerFrom(c).Debug().Err(err).Msg("history record rejected")
		fail(c, http.StatusBadRequest, ErrCodeInvalidRecord, msgInvalidRecord)
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeStoreUnavailable, msgSaveFailed, err)
		return
	}

	if replayed {
		c.Header(HeaderReplayed, "true")
	}
	middleware.LoggerFrom(c).Info().
		Str("history_id", id).
		Bool("replayed", replayed).
		Bool("key_known", middleware.IsReplay(c)).
		Msg("prediction saved")
	ok(c, http.StatusCreated, SaveHistoryResponse{Message: msgSaved, ID: id})
}

// ListHistory godoc
// @ID          listHistory
// @Summary     List the caller's estimate history
// @Description Returns the authenticated user's estimates ordered by timestamp, newest first. An empty history is an empty array. Supports a weak ETag via If-None-Match.
// @Tags        History
// @Produce     json
// @Security    BearerAuth
//
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"  example(W/\"history:uid:3:1717236000000000000:0\")
// @Param       limit          query   int     false  "Maximum records to return"   minimum(1) maximum(100)
//
// @Success     200  {array}   domain.HistoryRecord
// @Header      200  {string}  ETag  "Weak ETag for the current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse  "No token"
// @Failure     403  {object}  handlers.ErrorResponse  "Invalid or expired token"
// @Failure     500  {object}  handlers.ErrorResponse  "Store failure"
// @Router      /history [get]
func (h *Handlers) ListHistory(c *gin.Context) {
	ctx := c.Request.Context()
	owner := ownerID(c)
	if owner == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthenticated, "Authentication required: No token provided.")
		return
	}

	limit := utils.LimitParam(c.Query("limit"), maxHistoryLimit)

	// ETag pre-check (best effort).
	if count, newest, err := h.history.Stats(ctx, owner); err == nil {
		var ts int64
		if newest != nil {
			ts = newest.UnixNano()
		}
		etag := fmt.Sprintf(`W/"history:%s:%d:%d:%d"`, owner, count, ts, limit)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, err := h.history.ListPage(ctx, owner, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStoreUnavailable, msgListFailed, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// GetHistory godoc
// @ID          getHistory
// @Summary     Get one saved estimate
// @Description Returns a single record from the caller's history. Records of other users are reported as not found.
// @Tags        History
// @Produce     json
// @Security    BearerAuth
//
// @Param       id   path  string  true  "Record ID"
//
// @Success     200  {object}  domain.HistoryRecord
// @Failure     401  {object}  handlers.ErrorResponse  "No token"
// @Failure     403  {object}  handlers.ErrorResponse  "Invalid or expired token"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown record"
// @Failure     500  {object}  handlers.ErrorResponse  "Store failure"
// @Router      /history/{id} [get]
func (h *Handlers) GetHistory(c *gin.Context) {
	owner := ownerID(c)
	if owner == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthenticated, "Authentication required: No token provided.")
		return
	}

	rec, err := h.history.Get(c.Request.Context(), owner, c.Param("id"))
	switch {
	case errors.Is(err, services.ErrRecordNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, msgNotFound)
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeStoreUnavailable, msgListFailed, err)
	default:
		ok(c, http.StatusOK, rec)
	}
}
