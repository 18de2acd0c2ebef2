// Package domain defines the premium-estimation data model: the feature
// payload exchanged with the prediction service, the prediction result it
// returns, and the persisted per-user history records. History types are
// mapped with GORM and form the core data layer of the backend.
package domain

import (
	"fmt"
	"time"
)

// FeatureInput is the normalized numeric payload sent to the prediction
// service. JSON keys follow the prediction service's contract, which is why
// they are camelCase unlike the rest of the API.
type FeatureInput struct {
	Age                    int     `json:"age"                    example:"45"`
	BMI                    float64 `json:"bmi"                    example:"22.86"`
	AnyTransplants         int     `json:"anyTransplants"         example:"0"`
	NumberOfMajorSurgeries int     `json:"numberOfMajorSurgeries" example:"1"`
}

// FeatureKeys lists the JSON keys every FeatureInput payload must carry.
var FeatureKeys = []string{"age", "bmi", "anyTransplants", "numberOfMajorSurgeries"}

// AgeGroupAnalysis is the (min, avg, max) premium observed for the user's
// cohort. Any bound may be null when the cohort has too little data.
type AgeGroupAnalysis struct {
	MinPremium *float64 `json:"min_premium"`
	AvgPremium *float64 `json:"avg_premium"`
	MaxPremium *float64 `json:"max_premium"`
	AgeRange   string   `json:"age_range" example:"40-49"`
}

// PredictionResult is the prediction service's response: a point estimate
// plus a statistical range for the user's cohort.
type PredictionResult struct {
	PredictedPremium float64           `json:"predicted_premium"  example:"24500.75"`
	AgeGroupAnalysis *AgeGroupAnalysis `json:"age_group_analysis,omitempty"`
}

// PredictorType identifies which predictor produced a history record.
type PredictorType string

const (
	PredictorMedical PredictorType = "medical"
	PredictorCar     PredictorType = "car"
	PredictorLife    PredictorType = "life"
)

// ParsePredictorType maps a raw value onto a PredictorType. An empty value
// defaults to PredictorMedical, the only predictor currently served.
func ParsePredictorType(s string) (PredictorType, error) {
	switch PredictorType(s) {
	case "":
		return PredictorMedical, nil
	case PredictorMedical, PredictorCar, PredictorLife:
		return PredictorType(s), nil
	default:
		return "", fmt.Errorf("unknown predictor type %q", s)
	}
}

// HistoryRecord is a persisted past estimate owned by exactly one user.
// Records are append-only: they are written once on an explicit save and
// never updated.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Tenant: application namespace the record belongs to (not exposed).
//   - OwnerID: identity-provider subject id of the owner.
//   - Input: FeatureInput snapshot (JSON column).
//   - Output: predicted premium.
//   - Analysis: cohort range snapshot, nil when absent (JSON column).
//   - PredictorType: medical, car or life.
//   - Timestamp: when the prediction was made (client supplied, UTC).
//   - CreatedAt: when the record was stored.
type HistoryRecord struct {
	ID            string            `json:"id"             gorm:"type:char(36);primaryKey"`
	Tenant        string            `json:"-"              gorm:"type:varchar(128);not null;index:idx_owner_history,priority:1"`
	OwnerID       string            `json:"owner_id"       gorm:"type:varchar(128);not null;index:idx_owner_history,priority:2"`
	Input         FeatureInput      `json:"input"          gorm:"type:text;not null;serializer:json"`
	Output        float64           `json:"output"         gorm:"not null"`
	Analysis      *AgeGroupAnalysis `json:"analysis"       gorm:"type:text;serializer:json"`
	PredictorType PredictorType     `json:"predictor_type" gorm:"type:varchar(16);not null;default:'medical';check:predictor_type IN ('medical','car','life')"`
	Timestamp     time.Time         `json:"timestamp"      gorm:"not null;index:idx_owner_history,priority:3,sort:desc"`
	CreatedAt     time.Time         `json:"created_at"`
}

// TableName returns the database table name for HistoryRecord.
func (HistoryRecord) TableName() string { return "prediction_history" }

// CollectionPath returns the logical per-tenant, per-user location of a
// user's history. It is used for logging and event payloads.
func CollectionPath(tenant, ownerID string) string {
	return fmt.Sprintf("artifacts/%s/users/%s/predictions", tenant, ownerID)
}
