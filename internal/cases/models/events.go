package models

import (
	"time"

	id "caseflow/pkg/domain"
)

// EventType names a lifecycle transition published on the event channels.
type EventType string

const (
	EventCaseCreated         EventType = "CASE_CREATED"
	EventCaseUpdated         EventType = "CASE_UPDATED"
	EventCaseAssigned        EventType = "CASE_ASSIGNED"
	EventCaseClosed          EventType = "CASE_CLOSED"
	EventCaseEscalated       EventType = "CASE_ESCALATED"
	EventCaseReviewRequested EventType = "CASE_REVIEW_REQUESTED"
	EventCaseDeleted         EventType = "CASE_DELETED"
)

// Metadata keys carried by transition events.
const (
	MetaAssigneeID       = "assigneeId"
	MetaPreviousAssignee = "previousAssignee"
	MetaClosureReason    = "closureReason"
	MetaClosedAt         = "closedAt"
	MetaEscalationReason = "escalationReason"
	MetaPreviousPriority = "previousPriority"
	MetaReviewNote       = "reviewNote"
	MetaChangedFields    = "changedFields"
)

// CaseEvent carries a post-transition snapshot of a case.
type CaseEvent struct {
	EventID   id.EventID     `json:"event_id"`
	EventType EventType      `json:"event_type"`
	Case      *Case          `json:"case"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	TenantID  string         `json:"tenant_id"`
	CellID    string         `json:"cell_id"`
}

// NewCaseEvent snapshots c so later mutations cannot leak into the event.
func NewCaseEvent(eventType EventType, c *Case, metadata map[string]any, now time.Time) *CaseEvent {
	return &CaseEvent{
		EventID:   id.NewEventID(),
		EventType: eventType,
		Case:      c.Clone(),
		Metadata:  metadata,
		Timestamp: now,
		TenantID:  c.TenantID,
		CellID:    c.CellID,
	}
}

// AuditEntry is one materialized event in a case's history.
type AuditEntry struct {
	EventID     id.EventID     `json:"event_id"`
	EventType   EventType      `json:"event_type"`
	CaseID      id.CaseID      `json:"case_id"`
	CaseNumber  string         `json:"case_number"`
	CaseVersion int64          `json:"case_version"`
	Status      Status         `json:"status"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	TenantID    string         `json:"tenant_id"`
	CellID      string         `json:"cell_id"`
}

// AuditEntryFromEvent flattens an event for the history log.
func AuditEntryFromEvent(e *CaseEvent) AuditEntry {
	entry := AuditEntry{
		EventID:   e.EventID,
		EventType: e.EventType,
		Metadata:  e.Metadata,
		Timestamp: e.Timestamp,
		TenantID:  e.TenantID,
		CellID:    e.CellID,
	}
	if e.Case != nil {
		entry.CaseID = e.Case.ID
		entry.CaseNumber = e.Case.CaseNumber
		entry.CaseVersion = e.Case.Version
		entry.Status = e.Case.Status
	}
	return entry
}
