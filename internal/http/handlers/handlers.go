package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-premium-backend/internal/domain"
	"github.com/tbourn/go-premium-backend/internal/http/middleware"
	"github.com/tbourn/go-premium-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// EstimateService relays validated feature payloads to the prediction
// service and returns its JSON verbatim.
type EstimateService interface {
	Estimate(ctx context.Context, payload []byte) ([]byte, error)
}

// HistoryService stores and lists a user's past estimates.
//
// Implementations must be safe for concurrent use and honor ctx.
type HistoryService interface {
	// SaveIdempotent stores in for ownerID. A non-empty key already used by
	// ownerID returns the earlier id with replayed set.
	SaveIdempotent(ctx context.Context, ownerID, key string, in services.SaveInput) (id string, replayed bool, err error)
	// ListPage returns at most limit records, newest first.
	ListPage(ctx context.Context, ownerID string, limit int) ([]domain.HistoryRecord, error)
	// Get returns one of ownerID's records or services.ErrRecordNotFound.
	Get(ctx context.Context, ownerID, id string) (*domain.HistoryRecord, error)
	// Stats returns the record count and newest creation time for ETags.
	Stats(ctx context.Context, ownerID string) (int64, *time.Time, error)
}

//
// Handler wiring
//

// Handlers groups the estimate, history and comparison endpoints.
type Handlers struct {
	estimates EstimateService
	history   HistoryService
}

// New constructs Handlers bound to the given services.
func New(estimates EstimateService, history HistoryService) *Handlers {
	return &Handlers{estimates: estimates, history: history}
}

// ownerID returns the subject set by middleware.Authenticate. Routes that
// read it are always mounted behind Authenticate.
func ownerID(c *gin.Context) string {
	return middleware.UserID(c)
}

// bodyTooLarge reports whether err came from the router's MaxBytesReader.
func bodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
