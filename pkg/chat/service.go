// Package chat implements the turn orchestrator: it builds the prompt, runs
// the LLM exchange, validates the active workflow step and records the turn.
//
// A turn is all-or-nothing. It runs inside session.Manager.Update, so a turn
// that fails, is canceled or times out leaves the session untouched.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/joule/internal/logging"
	"github.com/aretw0/joule/pkg/agent"
	"github.com/aretw0/joule/pkg/datetime"
	"github.com/aretw0/joule/pkg/domain"
	"github.com/aretw0/joule/pkg/ports"
	"github.com/aretw0/joule/pkg/prompt"
	"github.com/aretw0/joule/pkg/session"
	"github.com/aretw0/joule/pkg/workflow"
)

var (
	// ErrTurnFailed wraps any unanticipated failure of a turn.
	ErrTurnFailed = errors.New("turn failed")
	// ErrInvalidRequest is returned for requests that cannot start a turn.
	ErrInvalidRequest = errors.New("invalid request")
)

// Service processes chat turns. It implements ports.ChatService.
type Service struct {
	sessions    *session.Manager
	agent       *agent.Agent
	catalog     *workflow.Catalog
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	now         func() time.Time
	turnTimeout time.Duration
	maxInput    int
}

var _ ports.ChatService = (*Service)(nil)

// Option configures the Service.
type Option func(*Service)

// WithCatalog replaces the built-in workflow catalog.
func WithCatalog(c *workflow.Catalog) Option {
	return func(s *Service) { s.catalog = c }
}

// WithLifecycleHooks registers turn, workflow and validation observers.
// Workflow and validation events are delivered only after the turn commits.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Service) { s.hooks = hooks }
}

// WithLogger configures a logger for the Service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the clock used for the current datetime of the prompt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTurnTimeout bounds the duration of a turn. Zero means no limit.
func WithTurnTimeout(d time.Duration) Option {
	return func(s *Service) { s.turnTimeout = d }
}

// WithMaxInputSize overrides DefaultMaxInputSize. Zero disables the limit.
func WithMaxInputSize(n int) Option {
	return func(s *Service) { s.maxInput = n }
}

// NewService creates a Service.
func NewService(sessions *session.Manager, a *agent.Agent, opts ...Option) *Service {
	s := &Service{
		sessions: sessions,
		agent:    a,
		catalog:  workflow.Default(),
		logger:   logging.NewNop(),
		now:      time.Now,
		maxInput: DefaultMaxInputSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleTurn processes one inbound chat message.
// Failures other than validation are returned wrapped in ErrTurnFailed.
func (s *Service) HandleTurn(ctx context.Context, req ports.TurnRequest) (*ports.TurnResponse, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, fmt.Errorf("%w: session_id is required", ErrInvalidRequest)
	}
	query, err := SanitizeInput(req.Query, s.maxInput)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	req.Query = query

	if s.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.turnTimeout)
		defer cancel()
	}

	start := s.now()
	end := domain.TurnEvent{EventBase: domain.NewEventBase(domain.EventTurnEnd, req.SessionID)}
	var answer string
	events := &turnEvents{hooks: s.hooks}
	err = s.sessions.Update(ctx, req.SessionID, func(ctx context.Context, sess *domain.Session) error {
		if s.hooks.OnTurnStart != nil {
			s.hooks.OnTurnStart(ctx, &domain.TurnEvent{
				EventBase: domain.NewEventBase(domain.EventTurnStart, sess.ID),
				Workflow:  sess.Workflow(),
				Step:      sess.StepIndex(),
			})
		}

		var err error
		answer, err = s.turn(ctx, sess, req, events)
		end.Workflow, end.Step = sess.Workflow(), sess.StepIndex()
		return err
	})
	if err == nil {
		events.flush(ctx)
	}
	if s.hooks.OnTurnEnd != nil {
		end.Duration = s.now().Sub(start)
		end.Err = err
		s.hooks.OnTurnEnd(ctx, &end)
	}

	if err != nil {
		s.logger.Error("Turn failed", "session_id", req.SessionID, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrTurnFailed, err)
	}
	return &ports.TurnResponse{Answer: answer}, nil
}

func (s *Service) turn(ctx context.Context, sess *domain.Session, req ports.TurnRequest, events *turnEvents) (string, error) {
	previous := sess.Workflow()
	system := s.system(sess, req)

	msgs, err := s.messages(ctx, sess, system, req.Query)
	if err != nil {
		return "", err
	}
	reply, err := s.agent.Run(ctx, msgs, system)
	if err != nil {
		return "", err
	}

	answer, err := s.advance(ctx, sess, req, previous, msgs, reply, events)
	if err != nil {
		return "", err
	}

	sess.Append(domain.UserTurn(req.Query), domain.AssistantTurn(answer))
	return answer, nil
}

// advance validates the current step against the reply and returns the final answer.
func (s *Service) advance(ctx context.Context, sess *domain.Session, req ports.TurnRequest, previous domain.WorkflowName, msgs []domain.Message, reply *agent.Reply, events *turnEvents) (string, error) {
	current := sess.Workflow()
	if current != previous {
		events.workflowChange(&domain.WorkflowEvent{
			EventBase: domain.NewEventBase(domain.EventWorkflowChange, sess.ID),
			From:      previous,
			To:        current,
		})
		s.logger.Debug("Workflow changed, skipping validation", "session_id", sess.ID, "from", previous, "to", current)
		return reply.Answer, nil
	}

	step := s.catalog.State(current, sess.StepIndex()).Step
	if step == nil || step.Validator == nil {
		return reply.Answer, nil
	}
	if !reply.Structured {
		s.logger.Debug("Unstructured answer, skipping validation", "session_id", sess.ID, "step", step.ID)
		return reply.Answer, nil
	}

	raw := reply.ExtractedValue
	if raw == nil {
		raw = req.Query
	}
	value, verr := step.Validator.Validate(raw)
	s.emitValidation(events, sess.ID, current, step.ID, verr)

	if verr != nil {
		correction := append(append([]domain.Message(nil), msgs...), domain.UserMessage(prompt.ValidationFailure(verr.Error())))
		fixed, err := s.agent.Run(ctx, correction, s.system(sess, req))
		if err != nil {
			return "", err
		}
		return fixed.Answer, nil
	}

	if err := sess.SetValue(current, step.Field, value); err != nil {
		return "", fmt.Errorf("failed to store %s: %w", step.Field, err)
	}
	sess.AdvanceStep()

	if s.catalog.StepInstruction(current, sess.StepIndex()) == "" {
		return reply.Answer, nil
	}

	system := s.system(sess, req)
	followup, err := s.messages(ctx, sess, system, prompt.ProceedDirective)
	if err != nil {
		return "", err
	}
	next, err := s.agent.Run(ctx, followup, system)
	if err != nil {
		return "", err
	}
	return next.Answer, nil
}

// system renders the system message from the live state of sess.
func (s *Service) system(sess *domain.Session, req ports.TurnRequest) agent.SystemFunc {
	return func(ctx context.Context) (string, error) {
		w := sess.Workflow()
		idx := sess.StepIndex()
		now, tz := datetime.NowIn(req.Timezone, s.now())

		c := prompt.Context{
			Now:                 now,
			Timezone:            tz,
			Workflow:            w,
			WorkflowInstruction: s.catalog.Instruction(w),
			StepInstruction:     s.catalog.StepInstruction(w, idx),
			UserMail:            req.UserMail,
			MessageFiles:        strings.Join(req.MessageFiles, ","),
		}
		if field, ok := s.catalog.Field(w, idx); ok {
			c.StepField = string(field)
			c.StepFieldType = string(field.Kind())
		}
		return prompt.System(c)
	}
}

func (s *Service) messages(ctx context.Context, sess *domain.Session, system agent.SystemFunc, query string) ([]domain.Message, error) {
	content, err := system(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to render system message: %w", err)
	}
	return prompt.Messages(content, sess.Read(), query), nil
}

func (s *Service) emitValidation(events *turnEvents, sessionID string, w domain.WorkflowName, stepID string, verr error) {
	if verr != nil {
		s.logger.Info("Step input rejected", "session_id", sessionID, "workflow", w, "step", stepID, "reason", verr.Error())
	}
	e := &domain.ValidationEvent{
		EventBase: domain.NewEventBase(domain.EventValidation, sessionID),
		Workflow:  w,
		StepID:    stepID,
		Accepted:  verr == nil,
	}
	if verr != nil {
		e.Reason = verr.Error()
	}
	events.validation(e)
}
