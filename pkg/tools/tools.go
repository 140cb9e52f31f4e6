// Package tools implements the functions the LLM may call during a turn.
//
// Tools that touch session state resolve the session from the context they
// are invoked with (see session.FromContext); they never receive a session id
// from the model.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/joule/internal/logging"
	"github.com/aretw0/joule/pkg/datetime"
	"github.com/aretw0/joule/pkg/domain"
	"github.com/aretw0/joule/pkg/ports"
	"github.com/aretw0/joule/pkg/registry"
	"github.com/aretw0/joule/pkg/session"
	"github.com/mitchellh/mapstructure"
)

const (
	RelativeDateName      = "relative_date"
	SetActiveWorkflowName = "set_active_workflow"
	CreateProjectName     = "create_project"
	CreateBriefName       = "create_brief"
)

// ErrNotConfirmed is returned when a finalize tool runs before the user confirmed the inputs.
var ErrNotConfirmed = errors.New("inputs are not confirmed yet")

// Set holds the dependencies shared by the tools.
type Set struct {
	crm    ports.RecordCreator
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Set.
type Option func(*Set)

// WithClock overrides the clock used when a datetime cannot be parsed.
func WithClock(now func() time.Time) Option {
	return func(s *Set) { s.now = now }
}

// WithLogger configures a logger for tool invocations.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Set) { s.logger = logger }
}

// New creates the tool set. crm receives finalized workflows.
func New(crm ports.RecordCreator, opts ...Option) *Set {
	s := &Set{
		crm:    crm,
		now:    time.Now,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds every tool to reg.
func (s *Set) Register(reg *registry.Registry) {
	reg.Register(relativeDateTool, s.RelativeDate)
	reg.Register(setActiveWorkflowTool, s.SetActiveWorkflow)
	reg.Register(createProjectTool, s.CreateProject)
	reg.Register(createBriefTool, s.CreateBrief)
}

// NewRegistry returns a registry holding every tool of the set.
func (s *Set) NewRegistry() *registry.Registry {
	reg := registry.NewRegistry()
	s.Register(reg)
	return reg
}

func decode(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// RelativeDateInput is the argument set of relative_date.
type RelativeDateInput struct {
	CurrentDatetime string `mapstructure:"current_datetime"`
	Timezone        string `mapstructure:"timezone"`
	OffsetDays      int    `mapstructure:"offset_days"`
	DayType         string `mapstructure:"day_type"`
}

// RelativeDate returns the date offset from a reference datetime as
// "YYYY-MM-DD (Weekday)".
func (s *Set) RelativeDate(ctx context.Context, args map[string]any) (any, error) {
	in := RelativeDateInput{DayType: string(datetime.Calendar)}
	if err := decode(args, &in); err != nil {
		return nil, err
	}
	s.logger.Debug("Tool invoked",
		"tool", RelativeDateName,
		"current_datetime", in.CurrentDatetime,
		"timezone", in.Timezone,
		"offset_days", in.OffsetDays,
		"day_type", in.DayType,
	)

	start := datetime.Parse(in.CurrentDatetime, in.Timezone, s.now())
	return datetime.Format(datetime.Offset(start, in.OffsetDays, datetime.DayType(in.DayType))), nil
}

// SetActiveWorkflowInput is the argument set of set_active_workflow.
type SetActiveWorkflowInput struct {
	Workflow string `mapstructure:"workflow"`
}

// SetActiveWorkflow switches the workflow of the session bound to ctx.
func (s *Set) SetActiveWorkflow(ctx context.Context, args map[string]any) (any, error) {
	var in SetActiveWorkflowInput
	if err := decode(args, &in); err != nil {
		return nil, err
	}
	s.logger.Debug("Tool invoked", "tool", SetActiveWorkflowName, "workflow", in.Workflow)

	w, err := domain.ParseWorkflowName(in.Workflow)
	if err != nil {
		return nil, err
	}

	sess, ok := session.FromContext(ctx)
	if !ok {
		return "No active session; cannot set workflow.", nil
	}
	if err := sess.SetWorkflow(w); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Active workflow for current session set to '%s'.", w), nil
}

// CreateProject sends the confirmed project of the bound session to the CRM.
func (s *Set) CreateProject(ctx context.Context, _ map[string]any) (any, error) {
	s.logger.Debug("Tool invoked", "tool", CreateProjectName)

	sess, ok := session.FromContext(ctx)
	if !ok {
		return "No active session; cannot create project.", nil
	}
	if sess.Project.Confirmed == nil || !*sess.Project.Confirmed {
		return nil, fmt.Errorf("project %w", ErrNotConfirmed)
	}

	rec, err := s.crm.CreateProject(ctx, sess.ID, sess.Project)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	s.logger.Info("Project created", "session_id", sess.ID, "record_id", rec.ID)
	return "OK: Project created successfully.", nil
}

// CreateBrief sends the confirmed brief of the bound session to the CRM.
func (s *Set) CreateBrief(ctx context.Context, _ map[string]any) (any, error) {
	s.logger.Debug("Tool invoked", "tool", CreateBriefName)

	sess, ok := session.FromContext(ctx)
	if !ok {
		return "No active session; cannot create brief.", nil
	}
	if sess.Brief.Confirmed == nil || !*sess.Brief.Confirmed {
		return nil, fmt.Errorf("brief %w", ErrNotConfirmed)
	}

	rec, err := s.crm.CreateBrief(ctx, sess.ID, sess.Brief)
	if err != nil {
		return nil, fmt.Errorf("failed to create brief: %w", err)
	}
	s.logger.Info("Brief created", "session_id", sess.ID, "record_id", rec.ID)
	return fmt.Sprintf("OK: Brief created successfully. Record ID: %s", rec.ID), nil
}
