package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/tbourn/go-premium-backend/internal/domain"
)

var errNoToken = errors.New("history calls need --token (or PREMIUM_TOKEN)")

// saveRequest mirrors the body accepted by POST /history.
type saveRequest struct {
	Input         domain.FeatureInput      `json:"input"`
	Output        float64                  `json:"output"`
	Analysis      *domain.AgeGroupAnalysis `json:"analysis,omitempty"`
	PredictorType domain.PredictorType     `json:"predictor_type"`
	Timestamp     time.Time                `json:"timestamp"`
}

// apiError is the backend's error envelope.
type apiError struct {
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"error"`
	Status    int    `json:"-"`
}

func (e *apiError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s (HTTP %d, %s, request %s)", e.Message, e.Status, e.Code, e.RequestID)
	}
	return fmt.Sprintf("%s (HTTP %d, %s)", e.Message, e.Status, e.Code)
}

type historyClient struct {
	base  string
	token string
	http  *http.Client
}

func newHistoryClient(base, token string, timeout time.Duration) *historyClient {
	return &historyClient{base: base, token: token, http: &http.Client{Timeout: timeout}}
}

// Save posts rec under an idempotency key and returns the stored id.
func (h *historyClient) Save(ctx context.Context, key string, rec saveRequest) (id string, replayed bool, err error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return "", false, err
	}
	req, err := h.request(ctx, http.MethodPost, "/history", bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", key)

	var out struct {
		Message string `json:"message"`
		ID      string `json:"id"`
	}
	resp, err := h.do(req, http.StatusCreated, &out)
	if err != nil {
		return "", false, err
	}
	return out.ID, resp.Header.Get("Idempotency-Replayed") == "true", nil
}

// List returns at most limit saved records, newest first.
func (h *historyClient) List(ctx context.Context, limit int) ([]domain.HistoryRecord, error) {
	req, err := h.request(ctx, http.MethodGet, "/history?limit="+strconv.Itoa(limit), nil)
	if err != nil {
		return nil, err
	}
	var out []domain.HistoryRecord
	if _, err := h.do(req, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *historyClient) request(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if h.token == "" {
		return nil, errNoToken
	}
	req, err := http.NewRequestWithContext(ctx, method, h.base+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+h.token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (h *historyClient) do(req *http.Request, want int, into any) (*http.Response, error) {
	resp, err := h.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != want {
		ae := &apiError{Status: resp.StatusCode}
		if json.Unmarshal(raw, ae) != nil || ae.Message == "" {
			ae.Message = http.StatusText(resp.StatusCode)
		}
		return nil, ae
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return resp, nil
}
