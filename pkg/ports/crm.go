package ports

import (
	"context"

	"github.com/aretw0/joule/pkg/domain"
)

// CreatedRecord is the receipt of a finalized workflow.
type CreatedRecord struct {
	ID       string              `json:"id"`
	Workflow domain.WorkflowName `json:"workflow"`
	Fields   map[string]any      `json:"fields"`
}

// RecordCreator finalizes a completed guided workflow in the system of record (CRM).
type RecordCreator interface {
	CreateProject(ctx context.Context, sessionID string, data domain.ProjectData) (*CreatedRecord, error)
	CreateBrief(ctx context.Context, sessionID string, data domain.BriefData) (*CreatedRecord, error)
}
