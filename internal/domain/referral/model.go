// Package referral persists the routing payload produced for the facility
// matching collaborator: one record per triage decision carrying the risk
// level, recommended facility type, and location fields. Matching and
// notification dispatch happen outside this service.
package referral

import (
	"time"

	"github.com/google/uuid"

	"github.com/triagecare/triage/internal/domain/triage"
)

// Referral statuses.
const (
	StatusPending    = "pending"
	StatusDispatched = "dispatched"
	StatusCancelled  = "cancelled"
)

var validStatuses = map[string]bool{
	StatusPending: true, StatusDispatched: true, StatusCancelled: true,
}

// Referral is a routing request for the facility-matching collaborator.
type Referral struct {
	ID                uuid.UUID                `db:"id" json:"id"`
	CaseID            uuid.UUID                `db:"case_id" json:"case_id"`
	DecisionID        uuid.UUID                `db:"decision_id" json:"decision_id"`
	RiskLevel         triage.RiskLevel         `db:"risk_level" json:"risk_level"`
	FacilityType      triage.FacilityType      `db:"facility_type" json:"facility_type"`
	ComplaintCategory triage.ComplaintCategory `db:"complaint_category" json:"complaint_category"`
	District          string                   `db:"district" json:"district"`
	IsEmergency       bool                     `db:"is_emergency" json:"is_emergency"`
	Status            string                   `db:"status" json:"status"`
	CreatedAt         time.Time                `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time                `db:"updated_at" json:"updated_at"`
}
