// Package services – HistoryService
//
// This file implements HistoryService, which stores and lists a user's past
// estimates. Records are append-only and always scoped by (tenant, owner);
// the owner id comes from the authenticated request, never from the payload.
//
// Writes may carry an idempotency key: a retried save with the same key
// returns the id of the first save instead of storing a duplicate. After a
// successful write an estimate.saved event is published on a best-effort
// basis; publishing failures are logged and never surface to the caller.
//
// Every store failure is reported as ErrStoreUnavailable so callers can map
// it to a generic 500 without leaking driver detail.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-premium-backend/internal/domain"
	"github.com/tbourn/go-premium-backend/internal/events"
	"github.com/tbourn/go-premium-backend/internal/sysutil"
)

// IdempotencyScope namespaces idempotency keys used by history saves.
const IdempotencyScope = "history"

// HistoryRepo defines the repository contract required by HistoryService.
type HistoryRepo interface {
	// CreateHistory inserts a record; ID and CreatedAt are filled when empty.
	CreateHistory(ctx context.Context, db *gorm.DB, rec *domain.HistoryRecord) error

	// ListHistory returns the owner's records newest first; limit <= 0 means all.
	ListHistory(ctx context.Context, db *gorm.DB, tenant, ownerID string, limit int) ([]domain.HistoryRecord, error)

	// GetHistory returns one of the owner's records or gorm.ErrRecordNotFound.
	GetHistory(ctx context.Context, db *gorm.DB, tenant, ownerID, id string) (*domain.HistoryRecord, error)

	// HistoryStats returns the record count and newest CreatedAt for the owner.
	HistoryStats(ctx context.Context, db *gorm.DB, tenant, ownerID string) (int64, *time.Time, error)

	// GetIdempotency returns a live idempotency record or an error.
	GetIdempotency(ctx context.Context, db *gorm.DB, ownerID, scope, key string, now time.Time) (*domain.Idempotency, error)

	// CreateIdempotency stores the outcome of a keyed write.
	CreateIdempotency(ctx context.Context, db *gorm.DB, ownerID, scope, key, recordID string, status int, ttl time.Duration) (*domain.Idempotency, error)
}

// SaveInput is an unvalidated history entry as received from a client.
type SaveInput struct {
	Input         *domain.FeatureInput
	Output        *float64
	Analysis      *domain.AgeGroupAnalysis
	PredictorType string
	Timestamp     string
}

// HistoryService implements the history use-cases.
type HistoryService struct {
	DB   *gorm.DB
	Repo HistoryRepo

	// Tenant is the application namespace records are stored under.
	Tenant string

	// Events receives estimate.saved; nil disables publishing.
	Events events.Publisher
	// Source is stamped on published envelopes.
	Source string

	// IdempotencyTTL bounds how long a key replays the first result.
	IdempotencyTTL time.Duration

	// PublishTimeout bounds the estimate.saved publish after a save.
	PublishTimeout time.Duration
}

// NewHistoryService constructs a HistoryService with a 24h idempotency window
// and no event publisher.
func NewHistoryService(db *gorm.DB, r HistoryRepo, tenant string) *HistoryService {
	return &HistoryService{
		DB:             db,
		Repo:           r,
		Tenant:         tenant,
		Source:         "premium-backend",
		IdempotencyTTL: 24 * time.Hour,
		PublishTimeout: 2 * time.Second,
	}
}

// Save validates in and appends it to ownerID's history, returning the new
// record id.
func (s *HistoryService) Save(ctx context.Context, ownerID string, in SaveInput) (string, error) {
	id, _, err := s.SaveIdempotent(ctx, ownerID, "", in)
	return id, err
}

// SaveIdempotent is Save with an optional idempotency key. When key was
// already used by ownerID within the TTL, the earlier record id is returned
// with replayed set and nothing is written.
func (s *HistoryService) SaveIdempotent(ctx context.Context, ownerID, key string, in SaveInput) (id string, replayed bool, err error) {
	tr := otel.Tracer("services/HistoryService")
	ctx, span := tr.Start(ctx, "Save",
		trace.WithAttributes(
			attribute.String("user.id", ownerID),
			attribute.Bool("idempotency.key_present", key != ""),
		),
	)
	defer span.End()

	key = strings.TrimSpace(key)
	if key != "" {
		prev, err := s.Repo.GetIdempotency(ctx, s.DB, ownerID, IdempotencyScope, key, time.Now().UTC())
		if err == nil && prev != nil {
			span.SetAttributes(attribute.Bool("idempotency.replayed", true))
			return prev.RecordID, true, nil
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, s.storeErr(span, err)
		}
	}

	rec, err := s.buildRecord(ownerID, in)
	if err != nil {
		span.SetStatus(codes.Error, "invalid record")
		return "", false, err
	}
	if err := s.Repo.CreateHistory(ctx, s.DB, rec); err != nil {
		return "", false, s.storeErr(span, err)
	}
	span.SetAttributes(attribute.String("history.id", rec.ID))

	if key != "" {
		if _, err := s.Repo.CreateIdempotency(ctx, s.DB, ownerID, IdempotencyScope, key, rec.ID, http.StatusCreated, s.IdempotencyTTL); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("history_id", rec.ID).Msg("idempotency record not stored")
		}
	}

	s.publishSaved(ctx, rec)
	return rec.ID, false, nil
}

// List returns all of ownerID's records, newest first. An owner without
// records gets an empty slice.
func (s *HistoryService) List(ctx context.Context, ownerID string) ([]domain.HistoryRecord, error) {
	return s.ListPage(ctx, ownerID, 0)
}

// ListPage is List capped at limit records; limit <= 0 means no cap.
func (s *HistoryService) ListPage(ctx context.Context, ownerID string, limit int) ([]domain.HistoryRecord, error) {
	tr := otel.Tracer("services/HistoryService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("user.id", ownerID),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	items, err := s.Repo.ListHistory(ctx, s.DB, s.Tenant, ownerID, limit)
	if err != nil {
		return nil, s.storeErr(span, err)
	}
	if items == nil {
		items = []domain.HistoryRecord{}
	}
	for i := range items {
		items[i].Timestamp = items[i].Timestamp.UTC()
		items[i].CreatedAt = items[i].CreatedAt.UTC()
	}
	span.SetAttributes(attribute.Int("history.count", len(items)))
	return items, nil
}

// Get returns a single record of ownerID's history.
func (s *HistoryService) Get(ctx context.Context, ownerID, id string) (*domain.HistoryRecord, error) {
	tr := otel.Tracer("services/HistoryService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(
			attribute.String("user.id", ownerID),
			attribute.String("history.id", id),
		),
	)
	defer span.End()

	rec, err := s.Repo.GetHistory(ctx, s.DB, s.Tenant, ownerID, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, s.storeErr(span, err)
	}
	rec.Timestamp = rec.Timestamp.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

// Stats returns the owner's record count and newest CreatedAt, used to build
// list ETags.
func (s *HistoryService) Stats(ctx context.Context, ownerID string) (int64, *time.Time, error) {
	count, newest, err := s.Repo.HistoryStats(ctx, s.DB, s.Tenant, ownerID)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count, newest, nil
}

func (s *HistoryService) buildRecord(ownerID string, in SaveInput) (*domain.HistoryRecord, error) {
	if in.Output == nil || strings.TrimSpace(in.Timestamp) == "" {
		return nil, fmt.Errorf("%w: output and timestamp are required", ErrInvalidRecord)
	}
	ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(in.Timestamp))
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %v", ErrInvalidRecord, err)
	}
	pt, err := domain.ParsePredictorType(in.PredictorType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	rec := &domain.HistoryRecord{
		Tenant:        s.Tenant,
		OwnerID:       ownerID,
		Output:        *in.Output,
		Analysis:      in.Analysis,
		PredictorType: pt,
		Timestamp:     ts.UTC(),
	}
	if in.Input != nil {
		rec.Input = *in.Input
	}
	return rec, nil
}

func (s *HistoryService) publishSaved(ctx context.Context, rec *domain.HistoryRecord) {
	if s.Events == nil {
		return
	}
	env, err := events.NewEnvelope(events.TypeEstimateSaved, s.Source, sysutil.RequestIDFrom(ctx), events.EstimateSaved{
		RecordID:       rec.ID,
		OwnerID:        rec.OwnerID,
		PredictorType:  string(rec.PredictorType),
		Output:         rec.Output,
		Timestamp:      rec.Timestamp,
		CollectionPath: domain.CollectionPath(rec.Tenant, rec.OwnerID),
	})
	if err == nil {
		env.Key = rec.OwnerID
		// The record is already committed: detach from the caller's
		// cancellation but never wait longer than PublishTimeout.
		timeout := s.PublishTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		err = s.Events.Publish(pctx, env)
		cancel()
	}
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("history_id", rec.ID).Msg("estimate.saved not published")
	}
}

func (s *HistoryService) storeErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "store")
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
