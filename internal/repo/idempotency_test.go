package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-premium-backend/internal/domain"
)

func TestGetIdempotency_BlankScopeOrKey_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()

	for _, tc := range []struct{ scope, key string }{{"   ", "k1"}, {"history", ""}} {
		rec, err := GetIdempotency(context.Background(), db, "u1", tc.scope, tc.key, now)
		if rec != nil || err != ErrNotFound {
			t.Fatalf("scope=%q key=%q: expected (nil, ErrNotFound), got (%v, %v)", tc.scope, tc.key, rec, err)
		}
	}
}

func TestGetIdempotency_ExpiredOrMissing_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()

	exp := &domain.Idempotency{
		ID:        "expired",
		OwnerID:   "u1",
		Scope:     "history",
		Key:       "k1",
		RecordID:  "h1",
		Status:    201,
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}
	if err := db.Create(exp).Error; err != nil {
		t.Fatalf("seed expired: %v", err)
	}

	rec, err := GetIdempotency(context.Background(), db, "u1", "history", "k1", now)
	if rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for expired, got (%v, %v)", rec, err)
	}

	rec2, err2 := GetIdempotency(context.Background(), db, "u1", "history", "missing", now)
	if rec2 != nil || err2 != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for missing, got (%v, %v)", rec2, err2)
	}
}

func TestGetIdempotency_ScopedToOwner(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()

	if _, err := CreateIdempotency(context.Background(), db, "alice", "history", "k", "h1", 201, time.Hour); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec, err := GetIdempotency(context.Background(), db, "alice", "history", "k", now)
	if err != nil || rec.RecordID != "h1" || rec.Status != 201 {
		t.Fatalf("owner lookup: rec=%+v err=%v", rec, err)
	}
	if _, err := GetIdempotency(context.Background(), db, "bob", "history", "k", now); err != ErrNotFound {
		t.Fatalf("other owner should not see the key, got %v", err)
	}
}

func TestCreateIdempotency_SuccessAndDuplicate(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})

	ttl := 90 * time.Minute
	start := time.Now().UTC()

	rec, err := CreateIdempotency(context.Background(), db, "u9", "history", "k9", "h9", 201, ttl)
	if err != nil {
		t.Fatalf("CreateIdempotency error: %v", err)
	}
	if rec == nil || rec.ID == "" || rec.OwnerID != "u9" || rec.Scope != "history" || rec.Key != "k9" || rec.RecordID != "h9" || rec.Status != 201 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !(rec.ExpiresAt.After(start) && rec.ExpiresAt.Before(start.Add(2*time.Hour))) {
		t.Fatalf("unexpected ExpiresAt: %v", rec.ExpiresAt)
	}

	_, err2 := CreateIdempotency(context.Background(), db, "u9", "history", "k9", "hX", 201, ttl)
	if err2 != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err2)
	}
}

func TestCreateIdempotency_Error_NoTable(t *testing.T) {
	db := newTestDB(t)
	_, err := CreateIdempotency(context.Background(), db, "uX", "history", "kX", "hX", 201, time.Minute)
	if err == nil {
		t.Fatalf("expected error when table is missing")
	}
	if err == ErrDuplicate {
		t.Fatalf("expected non-duplicate error, got ErrDuplicate")
	}
}

func TestIsDuplicate(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("UNIQUE constraint failed: idempotency.key"), true},
		{errors.New(`ERROR: duplicate key value violates unique constraint "ux_owner_scope_key"`), true},
		{errors.New("no such table"), false},
	}
	for _, tc := range cases {
		if got := IsDuplicate(tc.err); got != tc.want {
			t.Fatalf("IsDuplicate(%v)=%v want %v", tc.err, got, tc.want)
		}
	}
}
