// Comparison HTTP handler.
//
//   - POST /compare   place an estimate within its age group's premium range
//
// Stateless and unauthenticated; the presentation math lives in package
// compare.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-premium-backend/internal/compare"
	"github.com/tbourn/go-premium-backend/internal/domain"
)

// CompareRequest carries an estimate and the cohort analysis returned with it.
type CompareRequest struct {
	UserPrice *float64                 `json:"user_price" example:"24500.75"`
	Analysis  *domain.AgeGroupAnalysis `json:"analysis"`
}

// Amount is a premium in whole rupees plus its display form.
type Amount struct {
	Value     int64  `json:"value"     example:"2042"`
	Formatted string `json:"formatted" example:"₹2,042"`
}

// CompareResponse is either a placement (Available) or the fallback message.
type CompareResponse struct {
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`

	Placement *compare.Placement `json:"placement,omitempty"`
	Summary   string             `json:"summary,omitempty"`

	Annual  Amount  `json:"annual"`
	Monthly Amount  `json:"monthly"`
	Min     *Amount `json:"min,omitempty"`
	Avg     *Amount `json:"avg,omitempty"`
	Max     *Amount `json:"max,omitempty"`
}

func amountOf(v float64) Amount {
	return Amount{Value: compare.Round(v), Formatted: compare.FormatINR(v)}
}

func optAmount(v *float64) *Amount {
	if v == nil {
		return nil
	}
	a := amountOf(*v)
	return &a
}

// Compare godoc
// @ID          comparePremium
// @Summary     Compare an estimate with its age group
// @Description Places the estimate on a 0..100 scale between the cohort's minimum and maximum premium. When the range is missing or degenerate, available is false and a fallback message is returned instead.
// @Tags        Estimates
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CompareRequest  true  "Estimate and cohort analysis"
//
// @Success     200  {object}  handlers.CompareResponse
// @Failure     400  {object}  handlers.ErrorResponse  "user_price missing or body malformed"
// @Router      /compare [post]
func (h *Handlers) Compare(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserPrice == nil {
		if err != nil && bodyTooLarge(err) {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, msgTooLarge)
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_price is required")
		return
	}

	price := *req.UserPrice
	monthly := compare.MonthlyEquivalent(price)
	r := compare.RangeOf(req.Analysis)
	resp := CompareResponse{
		Annual:  amountOf(price),
		Monthly: Amount{Value: monthly, Formatted: compare.FormatINR(float64(monthly))},
	}

	p, err := compare.Place(price, r)
	if errors.Is(err, compare.ErrRangeUnavailable) {
		resp.Message = compare.FallbackMessage
		ok(c, http.StatusOK, resp)
		return
	}

	resp.Available = true
	resp.Placement = &p
	resp.Summary = compare.Summary(req.Analysis.AgeRange)
	resp.Min, resp.Avg, resp.Max = optAmount(r.Min), optAmount(r.Avg), optAmount(r.Max)
	ok(c, http.StatusOK, resp)
}
