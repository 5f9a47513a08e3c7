package model

import "time"

// Status is a plot's compliance classification. A plot holds exactly one
// status at any time.
type Status string

const (
	StatusCompliant   Status = "COMPLIANT"
	StatusPartial     Status = "PARTIAL"
	StatusEncroached  Status = "ENCROACHED"
	StatusUnused      Status = "UNUSED"
	StatusWarningSent Status = "WARNING_SENT"
	StatusLegalReview Status = "LEGAL_REVIEW"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusCompliant, StatusPartial, StatusEncroached,
		StatusUnused, StatusWarningSent, StatusLegalReview:
		return true
	}
	return false
}

// ActionType identifies an administrative action against a plot.
type ActionType string

const (
	ActionSendToSelf   ActionType = "SEND_TO_SELF"
	ActionIssueWarning ActionType = "ISSUE_WARNING"
)

// Valid reports whether a is a known action type.
func (a ActionType) Valid() bool {
	return a == ActionSendToSelf || a == ActionIssueWarning
}

// ActionHistoryEntry is one immutable audit record on a plot. Entries are
// append-only: never edited, never removed.
type ActionHistoryEntry struct {
	ID         string     `json:"id"`
	ActionType ActionType `json:"action_type"`
	Timestamp  time.Time  `json:"timestamp"`
	Details    string     `json:"details"`
}

// ComplianceRecord holds a plot's current classification and its audit trail.
type ComplianceRecord struct {
	Status               Status               `json:"status"`
	DeviationPercent     float64              `json:"deviation_percent"`
	RequiresManualReview bool                 `json:"requires_manual_review"`
	ActionHistory        []ActionHistoryEntry `json:"action_history,omitempty"`
}
