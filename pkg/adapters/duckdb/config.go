package duckdb

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds DuckDB-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// Extensions to install and load (e.g., "httpfs", "spatial", "json")
	Extensions []string `mapstructure:"extensions"`

	// Secrets for cloud storage authentication
	Secrets []SecretConfig `mapstructure:"secrets"`

	// Settings to apply at session level (e.g., memory_limit, threads)
	Settings map[string]string `mapstructure:"settings"`
}

// SecretConfig defines a DuckDB secret for cloud storage.
type SecretConfig struct {
	// Type: "s3", "gcs", "azure", "r2", "huggingface"
	Type string `mapstructure:"type"`

	// Provider: "config", "credential_chain", "service_account", etc.
	Provider string `mapstructure:"provider"`

	Region string `mapstructure:"region,omitempty"`

	// Scope limits the secret to specific paths (string or []string)
	Scope any `mapstructure:"scope,omitempty"`

	KeyID  string `mapstructure:"key_id,omitempty"`
	Secret string `mapstructure:"secret,omitempty"`

	// Endpoint for S3-compatible services (MinIO, etc.)
	Endpoint string `mapstructure:"endpoint,omitempty"`

	// URLStyle: "vhost" or "path" for S3
	URLStyle string `mapstructure:"url_style,omitempty"`

	UseSSL *bool `mapstructure:"use_ssl,omitempty"`
}

// parseParams decodes the generic params map.
func parseParams(raw map[string]any) (*Params, error) {
	params := &Params{}
	if len(raw) == 0 {
		return params, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           params,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create params decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode duckdb params: %w", err)
	}
	return params, nil
}

// buildCreateSecretSQL renders a CREATE SECRET statement, one option per line.
func buildCreateSecretSQL(cfg SecretConfig) string {
	opts := []string{"TYPE " + cfg.Type}
	if cfg.Provider != "" {
		opts = append(opts, "PROVIDER "+cfg.Provider)
	}
	if cfg.Region != "" {
		opts = append(opts, "REGION "+quoteLiteral(cfg.Region))
	}
	if scope := formatScope(cfg.Scope); scope != "" {
		opts = append(opts, "SCOPE "+scope)
	}
	if cfg.KeyID != "" {
		opts = append(opts, "KEY_ID "+quoteLiteral(cfg.KeyID))
	}
	if cfg.Secret != "" {
		opts = append(opts, "SECRET "+quoteLiteral(cfg.Secret))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, "ENDPOINT "+quoteLiteral(cfg.Endpoint))
	}
	if cfg.URLStyle != "" {
		opts = append(opts, "URL_STYLE "+quoteLiteral(cfg.URLStyle))
	}
	if cfg.UseSSL != nil {
		opts = append(opts, fmt.Sprintf("USE_SSL %t", *cfg.UseSSL))
	}
	return "CREATE SECRET (\n    " + strings.Join(opts, ",\n    ") + "\n)"
}

func formatScope(scope any) string {
	var scopes []string
	switch s := scope.(type) {
	case nil:
		return ""
	case string:
		return quoteLiteral(s)
	case []string:
		scopes = s
	case []any:
		for _, v := range s {
			scopes = append(scopes, fmt.Sprint(v))
		}
	default:
		return quoteLiteral(fmt.Sprint(s))
	}
	if len(scopes) == 0 {
		return ""
	}
	quoted := make([]string, len(scopes))
	for i, s := range scopes {
		quoted[i] = quoteLiteral(s)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

// quoteLiteral renders a single-quoted SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
