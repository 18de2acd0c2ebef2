// Estimate HTTP handler.
//
//   - POST /predict   relay a feature payload to the prediction service
//
// The request and response bodies pass through unchanged; only the presence
// of the feature keys is checked here.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-premium-backend/internal/services"
)

// Predict godoc
// @ID          predictPremium
// @Summary     Estimate an annual premium
// @Description Forwards the feature payload to the prediction service and returns its JSON unchanged. No authentication required.
// @Tags        Estimates
// @Accept      json
// @Produce     json
//
// @Param       body  body  domain.FeatureInput  true  "Feature payload"
//
// @Success     200  {object}  domain.PredictionResult
// @Failure     400  {object}  handlers.ErrorResponse  "A feature key is missing"
// @Failure     413  {object}  handlers.ErrorResponse  "Body too large"
// @Failure     500  {object}  handlers.ErrorResponse  "Prediction service failed"
// @Router      /predict [post]
func (h *Handlers) Predict(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		if bodyTooLarge(err) {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, msgTooLarge)
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "could not read request body")
		return
	}

	out, err := h.estimates.Estimate(c.Request.Context(), body)
	switch {
	case err == nil:
		c.Data(http.StatusOK, "application/json; charset=utf-8", out)
	case errors.Is(err, services.ErrValidation):
		fail(c, http.StatusBadRequest, ErrCodeValidation, "age, bmi, anyTransplants and numberOfMajorSurgeries are required")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeUpstreamUnavailable, msgPredictFailed, err)
	}
}
