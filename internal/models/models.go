package models

import (
	"encoding/json"
	"time"
)

type Trade string

const (
	TradePlumbing     Trade = "plumbing"
	TradeElectrical   Trade = "electrical"
	TradeHVAC         Trade = "hvac"
	TradeStructural   Trade = "structural"
	TradeCustodial    Trade = "custodial"
	TradeLandscaping  Trade = "landscaping"
	TradeSafetyHazard Trade = "safety_hazard"
)

var Trades = []Trade{
	TradePlumbing, TradeElectrical, TradeHVAC, TradeStructural,
	TradeCustodial, TradeLandscaping, TradeSafetyHazard,
}

func (t Trade) Valid() bool {
	for _, v := range Trades {
		if v == t {
			return true
		}
	}
	return false
}

// SafetyCritical reports whether work in this trade is treated as a safety concern
// when the engine authors a work order itself.
func (t Trade) SafetyCritical() bool {
	return t == TradeElectrical || t == TradeStructural || t == TradeSafetyHazard
}

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

type ReportStatus string

const (
	ReportSubmitted  ReportStatus = "submitted"
	ReportAnalyzing  ReportStatus = "analyzing"
	ReportDispatched ReportStatus = "dispatched"
	ReportInProgress ReportStatus = "in_progress"
	ReportResolved   ReportStatus = "resolved"
)

type AssignmentStatus string

const (
	AssignmentPending    AssignmentStatus = "pending"
	AssignmentAccepted   AssignmentStatus = "accepted"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentCompleted  AssignmentStatus = "completed"
	AssignmentCancelled  AssignmentStatus = "cancelled"
)

// ActiveAssignmentStatuses are the statuses that count toward workload and
// toward the one-active-assignment-per-report rule.
var ActiveAssignmentStatuses = []AssignmentStatus{AssignmentPending, AssignmentAccepted, AssignmentInProgress}

func (s AssignmentStatus) Active() bool {
	return s == AssignmentPending || s == AssignmentAccepted || s == AssignmentInProgress
}

func (s AssignmentStatus) Valid() bool {
	return s.Active() || s == AssignmentCompleted || s == AssignmentCancelled
}

type AssignedBy string

const (
	AssignedByAI         AssignedBy = "ai"
	AssignedByManager    AssignedBy = "manager"
	AssignedByBatch      AssignedBy = "batch_engine"
	AssignedByEscalation AssignedBy = "escalation_engine"
	AssignedByPreventive AssignedBy = "preventive_maintenance_engine"
)

type Report struct {
	ID              string       `json:"id"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	Building        string       `json:"building"`
	Room            string       `json:"room"`
	Floor           string       `json:"floor"`
	Lat             *float64     `json:"lat,omitempty"`
	Lng             *float64     `json:"lng,omitempty"`
	Description     string       `json:"description"`
	SuggestedAction string       `json:"suggested_action,omitempty"`
	PhotoRef        string       `json:"photo_ref,omitempty"`
	Trade           Trade        `json:"trade"`
	Priority        Priority     `json:"priority"`
	SafetyConcern   bool         `json:"safety_concern"`
	UrgencyScore    float64      `json:"urgency_score"`
	UpvoteCount     int          `json:"upvote_count"`
	DuplicateOf     *string      `json:"duplicate_of"`
	Status          ReportStatus `json:"status"`
	ReporterName    string       `json:"reporter_name,omitempty"`
	ReporterEmail   string       `json:"reporter_email,omitempty"`
	// GeneratedBy and PatternTrade mark work orders authored by an engine.
	GeneratedBy  string `json:"generated_by,omitempty"`
	PatternTrade *Trade `json:"pattern_trade,omitempty"`
}

func (r Report) Canonical() bool {
	return r.DuplicateOf == nil
}

type Technician struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone"`
	Trade             Trade     `json:"trade"`
	AssignedBuildings []string  `json:"assigned_buildings"`
	IsAvailable       bool      `json:"is_available"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (t Technician) CoversBuilding(building string) bool {
	for _, b := range t.AssignedBuildings {
		if b == building {
			return true
		}
	}
	return false
}

type Assignment struct {
	ID              string           `json:"id"`
	ReportID        string           `json:"report_id"`
	TechnicianID    string           `json:"technician_id"`
	AssignedBy      AssignedBy       `json:"assigned_by"`
	Status          AssignmentStatus `json:"status"`
	Notes           string           `json:"notes"`
	CompletionNotes string           `json:"completion_notes,omitempty"`
	CompletionPhoto string           `json:"completion_photo,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	StartedAt       *time.Time       `json:"started_at,omitempty"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	CancelledAt     *time.Time       `json:"cancelled_at,omitempty"`
}

type SweepKind string

const (
	SweepEscalation SweepKind = "escalation"
	SweepBatch      SweepKind = "batch"
	SweepPreventive SweepKind = "preventive"
)

type SweepRun struct {
	ID         string          `json:"id"`
	Kind       SweepKind       `json:"kind"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Status     string          `json:"status"`
	Summary    json.RawMessage `json:"summary"`
}

type ReportFilter struct {
	IDs           []string
	Statuses      []ReportStatus
	Building      string
	Trade         Trade
	CanonicalOnly bool
	DuplicateOf   string
	CreatedSince  *time.Time
	// Unassigned keeps only reports without a pending/accepted/in_progress assignment.
	Unassigned  bool
	GeneratedBy string
	Limit       int
	Offset      int
}

type AssignmentFilter struct {
	ReportID     string
	TechnicianID string
	Statuses     []AssignmentStatus
}

// AssignmentPatch carries the fields written together with a status change.
type AssignmentPatch struct {
	Notes           *string
	CompletionNotes *string
	CompletionPhoto *string
	StartedAt       *time.Time
	CompletedAt     *time.Time
	CancelledAt     *time.Time
}
