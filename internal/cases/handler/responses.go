package handler

import (
	"caseflow/internal/cases/models"
	id "caseflow/pkg/domain"
)

// OverdueResponse is the body of GET /api/v1/cases/overdue.
type OverdueResponse struct {
	Cases         []*models.Case `json:"cases"`
	OlderThanDays int            `json:"older_than_days"`
}

// HistoryResponse is the body of GET /api/v1/cases/{id}/history.
type HistoryResponse struct {
	CaseID  id.CaseID           `json:"case_id"`
	Entries []models.AuditEntry `json:"entries"`
}
