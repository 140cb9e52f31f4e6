package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/joule/internal/logging"
	"github.com/aretw0/joule/pkg/domain"
	"github.com/aretw0/joule/pkg/registry"
	"github.com/aretw0/joule/pkg/session"
)

// DefaultGracePeriod is how long a cancelled process may take to exit after the interrupt.
const DefaultGracePeriod = 5 * time.Second

// Runner executes allow-listed local processes as tools.
type Runner struct {
	registry    map[string]RegisteredProcess
	baseDir     string
	gracePeriod time.Duration
	logger      *slog.Logger
}

// RegisteredProcess defines an allowed command execution.
type RegisteredProcess struct {
	Command     string
	Args        []string // Default/Template args
	Env         map[string]string
	Description string
	Parameters  map[string]any
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(tools map[string]ProcessConfig) RunnerOption {
	return func(r *Runner) {
		for name, tool := range tools {
			r.registry[name] = RegisteredProcess{
				Command:     tool.Command,
				Args:        tool.Args,
				Env:         tool.Environment,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			}
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithGracePeriod overrides DefaultGracePeriod.
func WithGracePeriod(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.gracePeriod = d
	}
}

func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a new Process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry:    make(map[string]RegisteredProcess),
		gracePeriod: DefaultGracePeriod,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted script/command to the allow-list.
func (r *Runner) Register(name string, command string, args ...string) {
	r.registry[name] = RegisteredProcess{
		Command: command,
		Args:    args,
	}
}

// Names returns the registered tool names in lexical order.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.registry))
	for name := range r.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tools registers every allowed process on reg.
func (r *Runner) Tools(reg *registry.Registry) {
	for _, name := range r.Names() {
		proc := r.registry[name]
		params := proc.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		description := proc.Description
		if description == "" {
			description = fmt.Sprintf("Run the %s command.", name)
		}
		reg.Register(domain.Tool{Name: name, Description: description, Parameters: params},
			func(ctx context.Context, args map[string]any) (any, error) {
				res, err := r.Execute(ctx, domain.ToolCall{ID: name, Name: name, Args: args})
				if err != nil {
					return nil, err
				}
				if res.IsError {
					return nil, errors.New(res.Error)
				}
				return res.Result, nil
			})
	}
}

// Execute runs the process registered under toolCall.Name.
// Arguments are passed as JOULE_ARG_<NAME> environment variables, never as flags.
// Failures are reported in the ToolResult.
func (r *Runner) Execute(ctx context.Context, toolCall domain.ToolCall) (domain.ToolResult, error) {
	proc, ok := r.registry[toolCall.Name]
	if !ok {
		return domain.ToolResult{
			ID:      toolCall.ID,
			IsError: true,
			Error:   fmt.Sprintf("process tool not registered: %s", toolCall.Name),
		}, nil
	}

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = r.gracePeriod

	env := cmd.Environ()
	for k, v := range proc.Env {
		env = append(env, k+"="+v)
	}
	for k, v := range toolCall.Args {
		env = append(env, fmt.Sprintf("JOULE_ARG_%s=%s", strings.ToUpper(k), envValue(v)))
	}
	if id, ok := session.IDFromContext(ctx); ok {
		env = append(env, "JOULE_SESSION_ID="+id)
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	r.logger.Debug("Process tool finished", "tool", toolCall.Name, "duration", time.Since(start), "err", err)

	result := domain.ToolResult{ID: toolCall.ID}
	if err != nil {
		result.IsError = true
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		result.Error = fmt.Sprintf("execution failed: %v. Stderr: %s", err, strings.TrimSpace(stderr.String()))
		return result, nil
	}

	trimmed := strings.TrimSpace(stdout.String())

	// JSON output is decoded, anything else is returned as text.
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var jsonResult any
		if jsonErr := json.Unmarshal([]byte(trimmed), &jsonResult); jsonErr == nil {
			result.Result = jsonResult
			return result, nil
		}
	}
	result.Result = trimmed
	return result, nil
}

// envValue renders primitives with %v and everything else as JSON.
func envValue(v any) string {
	switch v.(type) {
	case string, int, int64, float64, bool:
		return fmt.Sprintf("%v", v)
	case nil:
		return ""
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}
