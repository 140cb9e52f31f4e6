package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/joule/internal/config"
	"github.com/aretw0/joule/pkg/adapters/file"
	httpadapter "github.com/aretw0/joule/pkg/adapters/http"
	"github.com/aretw0/joule/pkg/adapters/llm"
	"github.com/aretw0/joule/pkg/adapters/memory"
	"github.com/aretw0/joule/pkg/adapters/process"
	"github.com/aretw0/joule/pkg/adapters/redis"
	"github.com/aretw0/joule/pkg/agent"
	"github.com/aretw0/joule/pkg/chat"
	"github.com/aretw0/joule/pkg/observability"
	"github.com/aretw0/joule/pkg/persistence/middleware"
	"github.com/aretw0/joule/pkg/ports"
	"github.com/aretw0/joule/pkg/registry"
	"github.com/aretw0/joule/pkg/session"
	"github.com/aretw0/joule/pkg/tools"
	"github.com/aretw0/joule/pkg/workflow"
)

// App is a fully wired agent shared by the serve, chat and mcp commands.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Sessions *session.Manager
	Chat     *chat.Service
	Tools    *registry.Registry
	Catalog  *workflow.Catalog
	Metrics  *observability.Metrics
	Streams  *httpadapter.StreamManager

	closers []func() error
}

// AppOption overrides a collaborator built from the configuration.
type AppOption func(*appOptions)

type appOptions struct {
	model  ports.ChatModel
	crm    ports.RecordCreator
	logger *slog.Logger
}

// WithModel replaces the Azure OpenAI model.
func WithModel(m ports.ChatModel) AppOption {
	return func(o *appOptions) { o.model = m }
}

// WithRecordCreator replaces the in-memory CRM.
func WithRecordCreator(c ports.RecordCreator) AppOption {
	return func(o *appOptions) { o.crm = c }
}

// WithLogger replaces the logger derived from Config.Debug.
func WithLogger(l *slog.Logger) AppOption {
	return func(o *appOptions) { o.logger = l }
}

// NewApp wires the store, the tools, the model and the chat service from cfg.
func NewApp(cfg config.Config, opts ...AppOption) (*App, error) {
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := o.logger
	if logger == nil {
		logger = createLogger(cfg.Debug, cfg.LogFormat)
	}
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Catalog: workflow.Default(),
		Metrics: observability.NewMetrics(),
		Streams: httpadapter.NewStreamManager(logger),
	}

	store, locker, closeStore, err := NewStore(cfg.Store)
	if err != nil {
		return nil, err
	}
	if closeStore != nil {
		app.closers = append(app.closers, closeStore)
	}
	sessionOpts := []session.Option{session.WithLogger(logger)}
	if locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(locker), session.WithLockTTL(cfg.EffectiveLockTTL()))
	}
	app.Sessions = session.NewManager(store, sessionOpts...)

	crm := o.crm
	if crm == nil {
		crm = memory.NewCRM()
	}
	app.Tools = tools.New(crm, tools.WithLogger(logger)).NewRegistry()
	if err := registerProcessTools(app.Tools, cfg.ToolsFile, logger); err != nil {
		app.Close()
		return nil, err
	}

	model := o.model
	if model == nil {
		if err := cfg.RequireLLM(); err != nil {
			app.Close()
			return nil, err
		}
		m, err := llm.New(llm.Config{
			Endpoint:   cfg.LLM.Endpoint,
			APIKey:     cfg.LLM.APIKey,
			Deployment: cfg.LLM.Deployment,
		}, llm.WithTemperature(cfg.LLM.Temperature), llm.WithLogger(logger))
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to create llm client: %w", err)
		}
		model = m
	}

	hooks := observability.Combine(
		observability.LoggingHooks(logger),
		app.Metrics.Hooks(),
		app.Streams.Hooks(),
	)
	a := agent.New(model, app.Tools,
		agent.WithMaxToolRounds(cfg.LLM.MaxToolRounds),
		agent.WithLifecycleHooks(hooks),
		agent.WithLogger(logger),
	)
	app.Chat = chat.NewService(app.Sessions, a,
		chat.WithCatalog(app.Catalog),
		chat.WithLifecycleHooks(hooks),
		chat.WithLogger(logger),
		chat.WithTurnTimeout(cfg.TurnTimeout),
		chat.WithMaxInputSize(cfg.MaxInputSize),
	)
	return app, nil
}

// Close releases the store connection.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewStore builds the configured session store wrapped in the redaction and
// encryption middleware. The locker is nil unless the backend is shared.
func NewStore(cfg config.Store) (ports.SessionStore, ports.DistributedLocker, func() error, error) {
	var (
		store  ports.SessionStore
		locker ports.DistributedLocker
		closer func() error
	)
	switch cfg.Backend {
	case config.BackendMemory:
		store = memory.NewStore()
	case config.BackendFile:
		store = file.New(cfg.Path)
	case config.BackendRedis:
		opts := []redis.Option{redis.WithTTL(cfg.Redis.TTL)}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		rs := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		prefix := cfg.Redis.Prefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		store, locker, closer = rs, redis.NewLocker(rs.Client(), prefix), rs.Close
	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	var mws []middleware.Middleware
	if cfg.EncryptionKey != "" {
		mw, err := encryption(cfg)
		if err != nil {
			return nil, nil, closeQuietly(closer), err
		}
		mws = append(mws, mw)
	}
	if len(cfg.RedactPatterns) > 0 {
		mw, err := middleware.NewPIIMiddleware(cfg.RedactPatterns)
		if err != nil {
			return nil, nil, closeQuietly(closer), fmt.Errorf("invalid redact pattern: %w", err)
		}
		// Redaction runs before encryption so the sealed snapshot is masked too.
		mws = append([]middleware.Middleware{mw}, mws...)
	}
	return middleware.Chain(store, mws...), locker, closer, nil
}

func encryption(cfg config.Store) (middleware.Middleware, error) {
	active, err := middleware.ParseKey(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	ec := middleware.EncryptionConfig{ActiveKey: active}
	for i, k := range cfg.FallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return nil, fmt.Errorf("invalid fallback key %d: %w", i, err)
		}
		ec.FallbackKeys = append(ec.FallbackKeys, key)
	}
	return middleware.NewEncryptionMiddleware(ec)
}

// closeQuietly releases a backend whose wrapping failed.
func closeQuietly(closer func() error) func() error {
	if closer != nil {
		_ = closer()
	}
	return nil
}

func registerProcessTools(reg *registry.Registry, path string, logger *slog.Logger) error {
	if path == "" {
		return nil
	}
	cfg, err := process.LoadTools(path)
	if err != nil {
		return fmt.Errorf("failed to load tools: %w", err)
	}
	if len(cfg) == 0 {
		return nil
	}
	runner := process.NewRunner(
		process.WithRegistry(cfg),
		process.WithBaseDir(filepath.Dir(path)),
		process.WithLogger(logger),
	)
	runner.Tools(reg)
	logger.Info("Process tools registered", "path", path, "tools", runner.Names())
	return nil
}
