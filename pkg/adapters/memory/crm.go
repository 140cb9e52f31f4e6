package memory

import (
	"context"
	"sync"

	"github.com/aretw0/joule/pkg/domain"
	"github.com/aretw0/joule/pkg/ports"
	"github.com/google/uuid"
)

// CRM implements ports.RecordCreator by keeping created records in memory.
type CRM struct {
	mu      sync.Mutex
	records []ports.CreatedRecord
}

// NewCRM creates an empty in-memory CRM.
func NewCRM() *CRM {
	return &CRM{}
}

func (c *CRM) CreateProject(ctx context.Context, sessionID string, data domain.ProjectData) (*ports.CreatedRecord, error) {
	return c.create(ctx, domain.WorkflowProject, &data)
}

func (c *CRM) CreateBrief(ctx context.Context, sessionID string, data domain.BriefData) (*ports.CreatedRecord, error) {
	return c.create(ctx, domain.WorkflowBrief, &data)
}

func (c *CRM) create(ctx context.Context, w domain.WorkflowName, r domain.Record) (*ports.CreatedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec := ports.CreatedRecord{
		ID:       uuid.NewString(),
		Workflow: w,
		Fields:   domain.Fields(r),
	}

	c.mu.Lock()
	c.records = append(c.records, rec)
	c.mu.Unlock()
	return &rec, nil
}

// Records returns the created records in creation order.
func (c *CRM) Records() []ports.CreatedRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ports.CreatedRecord(nil), c.records...)
}
