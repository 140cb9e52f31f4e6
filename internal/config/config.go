// Package config loads the agent settings from a YAML file overlaid by environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// lockMargin keeps a turn lock alive past the turn deadline while the
// commit is written.
const lockMargin = 30 * time.Second

// DefaultPath is read when no --config flag is given. It may be absent.
const DefaultPath = "joule.yaml"

// Config holds every setting of the agent.
type Config struct {
	Debug       bool          `yaml:"debug"`
	LogFormat   string        `yaml:"log_format"` // text (default) or json
	LLM         LLM           `yaml:"llm"`
	Store       Store         `yaml:"store"`
	HTTP        HTTP          `yaml:"http"`
	MCP         MCP           `yaml:"mcp"`
	TurnTimeout time.Duration `yaml:"turn_timeout"`
	// MaxInputSize caps a user message in bytes. Zero disables the limit.
	MaxInputSize int `yaml:"max_input_size"`
	// ToolsFile lists external process tools. A missing file is ignored.
	ToolsFile string `yaml:"tools_file"`
}

// LLM configures the Azure OpenAI chat deployment.
type LLM struct {
	Endpoint      string  `yaml:"endpoint"`
	APIKey        string  `yaml:"api_key"`
	Deployment    string  `yaml:"deployment"`
	Temperature   float32 `yaml:"temperature"`
	MaxToolRounds int     `yaml:"max_tool_rounds"`
}

// Store configures session persistence.
type Store struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	Redis   Redis  `yaml:"redis"`
	// EncryptionKey is a base64 AES-256 key. Sessions are encrypted at rest when set.
	EncryptionKey string `yaml:"encryption_key"`
	// FallbackKeys decrypt sessions sealed with retired keys.
	FallbackKeys []string `yaml:"fallback_keys"`
	// RedactPatterns are regular expressions masked in persisted history.
	// Later turns replay the masked text to the model, so only list patterns
	// the model never needs back.
	RedactPatterns []string `yaml:"redact_patterns"`
	// LockTTL bounds the distributed turn lock of the redis backend. Zero derives
	// it from TurnTimeout; an explicit value must exceed TurnTimeout.
	LockTTL time.Duration `yaml:"lock_ttl"`
}

// Redis configures the Redis backend.
type Redis struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// HTTP configures the HTTP adapter.
type HTTP struct {
	Port int `yaml:"port"`
}

// MCP configures the MCP adapter.
type MCP struct {
	Transport string `yaml:"transport"`
	Port      int    `yaml:"port"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		LLM: LLM{
			Temperature:   0,
			MaxToolRounds: 8,
		},
		Store: Store{
			Backend: BackendMemory,
			Path:    ".joule/sessions",
			Redis:   Redis{Addr: "localhost:6379", Prefix: "joule:"},
		},
		HTTP:         HTTP{Port: 8080},
		MCP:          MCP{Transport: "stdio", Port: 8081},
		TurnTimeout:  2 * time.Minute,
		MaxInputSize: 4096,
		ToolsFile:    "tools.yaml",
	}
}

// Load reads path over the defaults, then applies the environment.
// A missing file is not an error unless required is set.
func Load(path string, required bool) (Config, error) {
	return load(path, required, os.LookupEnv)
}

func load(path string, required bool, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !required:
		default:
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overlays environment variables read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	parse := func(key string, fn func(string) error) {
		if v, ok := lookup(key); ok && v != "" {
			if err := fn(v); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}

	parse("DEBUG", func(v string) (err error) { c.Debug, err = strconv.ParseBool(v); return })
	parse("JOULE_DEBUG", func(v string) (err error) { c.Debug, err = strconv.ParseBool(v); return })
	str(&c.LogFormat, "JOULE_LOG_FORMAT")

	str(&c.LLM.Endpoint, "AZURE_OPENAI_ENDPOINT", "JOULE_LLM_ENDPOINT")
	str(&c.LLM.APIKey, "AZURE_OPENAI_API_KEY", "JOULE_LLM_API_KEY")
	str(&c.LLM.Deployment, "OPENAI_MODEL_NAME", "AZURE_OPENAI_DEPLOYMENT", "JOULE_LLM_DEPLOYMENT")
	parse("OPENAI_TEMPERATURE", func(v string) error {
		t, err := strconv.ParseFloat(v, 32)
		c.LLM.Temperature = float32(t)
		return err
	})
	parse("JOULE_MAX_TOOL_ROUNDS", func(v string) (err error) { c.LLM.MaxToolRounds, err = strconv.Atoi(v); return })

	str(&c.Store.Backend, "JOULE_STORE")
	str(&c.Store.Path, "JOULE_STORE_PATH")
	str(&c.Store.EncryptionKey, "JOULE_ENCRYPTION_KEY")
	str(&c.Store.Redis.Addr, "JOULE_REDIS_ADDR", "REDIS_ADDR")
	str(&c.Store.Redis.Password, "JOULE_REDIS_PASSWORD", "REDIS_PASSWORD")
	str(&c.Store.Redis.Prefix, "JOULE_REDIS_PREFIX")
	parse("JOULE_REDIS_DB", func(v string) (err error) { c.Store.Redis.DB, err = strconv.Atoi(v); return })
	parse("JOULE_REDIS_TTL", func(v string) (err error) { c.Store.Redis.TTL, err = time.ParseDuration(v); return })

	parse("JOULE_HTTP_PORT", func(v string) (err error) { c.HTTP.Port, err = strconv.Atoi(v); return })
	parse("PORT", func(v string) (err error) { c.HTTP.Port, err = strconv.Atoi(v); return })
	parse("JOULE_LOCK_TTL", func(v string) (err error) { c.Store.LockTTL, err = time.ParseDuration(v); return })
	parse("JOULE_TURN_TIMEOUT", func(v string) (err error) { c.TurnTimeout, err = time.ParseDuration(v); return })
	parse("JOULE_MAX_INPUT_SIZE", func(v string) (err error) { c.MaxInputSize, err = strconv.Atoi(v); return })
	str(&c.ToolsFile, "JOULE_TOOLS_FILE")

	return errors.Join(errs...)
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	switch strings.ToLower(c.MCP.Transport) {
	case "stdio", "sse":
	default:
		errs = append(errs, fmt.Errorf("unknown mcp transport %q", c.MCP.Transport))
	}
	if c.LLM.MaxToolRounds < 1 {
		errs = append(errs, errors.New("llm.max_tool_rounds must be at least 1"))
	}
	if c.TurnTimeout < 0 {
		errs = append(errs, errors.New("turn_timeout must not be negative"))
	}
	if c.MaxInputSize < 0 {
		errs = append(errs, errors.New("max_input_size must not be negative"))
	}
	if c.Store.Backend == BackendRedis {
		switch {
		case c.TurnTimeout == 0:
			errs = append(errs, errors.New("turn_timeout is required with the redis backend"))
		case c.Store.LockTTL != 0 && c.Store.LockTTL <= c.TurnTimeout:
			errs = append(errs, fmt.Errorf("store.lock_ttl (%s) must exceed turn_timeout (%s)", c.Store.LockTTL, c.TurnTimeout))
		}
	}
	if c.Store.LockTTL < 0 {
		errs = append(errs, errors.New("store.lock_ttl must not be negative"))
	}
	return errors.Join(errs...)
}

// EffectiveLockTTL returns Store.LockTTL, or TurnTimeout plus a commit margin
// when it is unset.
func (c Config) EffectiveLockTTL() time.Duration {
	if c.Store.LockTTL > 0 {
		return c.Store.LockTTL
	}
	return c.TurnTimeout + lockMargin
}

// RequireLLM reports missing Azure OpenAI settings.
func (c Config) RequireLLM() error {
	var missing []string
	if c.LLM.Endpoint == "" {
		missing = append(missing, "endpoint (AZURE_OPENAI_ENDPOINT)")
	}
	if c.LLM.APIKey == "" {
		missing = append(missing, "api_key (AZURE_OPENAI_API_KEY)")
	}
	if c.LLM.Deployment == "" {
		missing = append(missing, "deployment (OPENAI_MODEL_NAME)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("llm settings missing: %s", strings.Join(missing, ", "))
	}
	return nil
}
