package duckdb

import (
	"context"
	"testing"

	"github.com/leapstack-labs/dfbridge/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    *Params
		wantErr bool
	}{
		{
			name:  "nil params",
			input: nil,
			want:  &Params{},
		},
		{
			name:  "single extension is widened to a list",
			input: map[string]any{"extensions": "httpfs"},
			want:  &Params{Extensions: []string{"httpfs"}},
		},
		{
			name: "settings from yaml scalars",
			input: map[string]any{
				"settings": map[string]any{"threads": 4, "preserve_insertion_order": false, "memory_limit": "4GB"},
			},
			want: &Params{Settings: map[string]string{
				"threads":                  "4",
				"preserve_insertion_order": "0",
				"memory_limit":             "4GB",
			}},
		},
		{
			name: "secrets for each file location",
			input: map[string]any{
				"extensions": []any{"httpfs"},
				"secrets": []any{
					map[string]any{"type": "s3", "provider": "credential_chain", "scope": []any{"s3://raw", "s3://curated"}},
					map[string]any{"type": "gcs", "key_id": "hmac-id", "secret": "hmac-secret"},
					map[string]any{"type": "azure", "provider": "config", "scope": "az://landing"},
				},
			},
			want: &Params{
				Extensions: []string{"httpfs"},
				Secrets: []SecretConfig{
					{Type: "s3", Provider: "credential_chain", Scope: []any{"s3://raw", "s3://curated"}},
					{Type: "gcs", KeyID: "hmac-id", Secret: "hmac-secret"},
					{Type: "azure", Provider: "config", Scope: "az://landing"},
				},
			},
		},
		{
			name: "minio endpoint",
			input: map[string]any{
				"secrets": []any{map[string]any{
					"type": "s3", "endpoint": "localhost:9000", "url_style": "path", "use_ssl": "false",
				}},
			},
			want: &Params{Secrets: []SecretConfig{
				{Type: "s3", Endpoint: "localhost:9000", URLStyle: "path", UseSSL: boolPtr(false)},
			}},
		},
		{
			name:    "settings must be a map",
			input:   map[string]any{"settings": "threads=4"},
			wantErr: true,
		},
		{
			name:    "secrets must be a list of maps",
			input:   map[string]any{"secrets": []any{"s3"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "failed to decode duckdb params")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatScope(t *testing.T) {
	tests := []struct {
		name  string
		scope any
		want  string
	}{
		{"unset", nil, ""},
		{"string", "s3://a", "'s3://a'"},
		{"empty list", []any{}, ""},
		{"strings", []string{"s3://a", "s3://b"}, "('s3://a', 's3://b')"},
		{"yaml list", []any{"gs://a", 3}, "('gs://a', '3')"},
		{"other scalar", 42, "'42'"},
		{"quotes escaped", "s3://it's", "'s3://it''s'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatScope(tt.scope))
		})
	}
}

func TestBuildCreateSecretSQL_EscapesLiterals(t *testing.T) {
	got := buildCreateSecretSQL(SecretConfig{Type: "s3", Provider: "config", KeyID: "id", Secret: "p'w"})
	assert.Equal(t, "CREATE SECRET (\n    TYPE s3,\n    PROVIDER config,\n    KEY_ID 'id',\n    SECRET 'p''w'\n)", got)
}

func TestConnect_SettingFailureDisconnects(t *testing.T) {
	adp := New(nil)
	err := adp.Connect(context.Background(), core.AdapterConfig{
		Path:   ":memory:",
		Params: map[string]any{"settings": map[string]any{"no_such_setting": "1"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to apply setting no_such_setting")
	assert.False(t, adp.IsConnected())
}

func boolPtr(b bool) *bool {
	return &b
}
