package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/dfbridge/pkg/core"
	"github.com/spf13/pflag"
)

// Load reads configuration from defaults, the config file, environment variables and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// Only flags that were explicitly set override lower layers.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	path := cfgFile
	if path == "" {
		if cwd, err := os.Getwd(); err == nil {
			path = FindConfigFile(cwd)
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// 3. Environment variables
	// Transform: DFBRIDGE_CHUNK_SIZE -> chunk_size, DFBRIDGE_CONNECTIONS__WH__USER -> connections.wh.user
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			// Transform kebab-case to snake_case for config keys
			key := strings.ReplaceAll(f.Name, "-", "_")
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = path

	baseDir := ""
	if path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			baseDir = filepath.Dir(abs)
		}
	}
	for id, conn := range cfg.Connections {
		conn.Type = strings.ToLower(expandEnvVars(conn.Type))
		conn.Path = expandEnvVars(conn.Path)
		conn.Host = expandEnvVars(conn.Host)
		conn.Database = expandEnvVars(conn.Database)
		conn.User = expandEnvVars(conn.User)
		conn.Password = expandEnvVars(conn.Password)
		conn.Schema = expandEnvVars(conn.Schema)
		for key, v := range conn.Options {
			conn.Options[key] = expandEnvVars(v)
		}
		for key, v := range conn.Params {
			if s, ok := v.(string); ok {
				conn.Params[key] = expandEnvVars(s)
			}
		}
		applyConnectionDefaults(&conn, baseDir)
		cfg.Connections[id] = conn
	}

	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// applyConnectionDefaults fills per-type defaults and resolves file database
// paths relative to the config file directory.
func applyConnectionDefaults(conn *core.ConnectionConfig, baseDir string) {
	switch conn.Type {
	case "postgres", "postgresql":
		if conn.Port == 0 {
			conn.Port = DefaultPostgresPort
		}
	case "duckdb", "sqlite", "sqlite3":
		conn.Path = resolvePathRelativeTo(conn.Path, baseDir)
	}
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Empty paths, in-memory databases and URLs are returned unchanged.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || baseDir == "" || filepath.IsAbs(path) || path == ":memory:" ||
		strings.Contains(path, "://") || strings.HasPrefix(path, "file:") {
		return path
	}
	return filepath.Join(baseDir, path)
}

// FindConfigFile searches startDir and its parents for a config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func FindConfigFile(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		for _, name := range []string{ConfigFileName, AltConfigFileName} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} references. Unset variables are left as written.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return match
	})
}

type configKey struct{}

type loggerKey struct{}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext returns the configuration stored in ctx, or nil.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(configKey{}).(*Config)
	return cfg
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from ctx, falling back to a discard logger.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
