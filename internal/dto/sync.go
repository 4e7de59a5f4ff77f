package dto

import (
	"time"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
)

// SyncReportResponse is returned by POST /admin/sync.
type SyncReportResponse struct {
	StartedAt   time.Time                     `json:"startedAt"`
	FinishedAt  time.Time                     `json:"finishedAt"`
	Partial     bool                          `json:"partial"`
	Collections []domain.CollectionSyncResult `json:"collections"`
}

// ToSyncReportResponse converts a domain.SyncReport to its DTO.
func ToSyncReportResponse(r *domain.SyncReport) SyncReportResponse {
	return SyncReportResponse{
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		Partial:     r.Partial(),
		Collections: r.Collections,
	}
}
