package session

import (
	"time"

	"github.com/aretw0/joule/pkg/domain"
)

// View is the client facing projection of a session.
type View struct {
	ID        string                                 `json:"id"`
	Workflow  domain.WorkflowName                    `json:"workflow"`
	Step      int                                    `json:"step"`
	Records   map[domain.WorkflowName]map[string]any `json:"records"`
	History   []domain.Turn                          `json:"history"`
	CreatedAt time.Time                              `json:"created_at"`
	UpdatedAt time.Time                              `json:"updated_at"`
}

// NewView projects s. Every workflow appears in Records, empty or not.
func NewView(s *domain.Session) View {
	records := make(map[domain.WorkflowName]map[string]any)
	for _, w := range domain.WorkflowNames() {
		records[w] = domain.Fields(s.Record(w))
	}
	return View{
		ID:        s.ID,
		Workflow:  s.Workflow(),
		Step:      s.StepIndex(),
		Records:   records,
		History:   s.Read(),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
