package adapter

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownAdapterError_Error(t *testing.T) {
	err := &UnknownAdapterError{
		Type:      "fake_db",
		Available: []string{"duckdb", "postgres"},
	}

	msg := err.Error()

	assert.NotEmpty(t, msg, "error message should not be empty")
	assert.Contains(t, msg, "fake_db", "error should mention the unknown type 'fake_db'")
	assert.Contains(t, msg, "dfbridge.yaml", "error should mention config file")
}

func TestRegister(t *testing.T) {
	Register("test_adapter_internal", func(_ *slog.Logger) Adapter { return nil }, "test_alias_internal")

	assert.True(t, IsRegistered("test_adapter_internal"), "test_adapter_internal should be registered after Register()")
	assert.True(t, IsRegistered("TEST_ALIAS_INTERNAL"), "aliases are registered case-insensitively")

	factory, ok := Get("test_adapter_internal")
	assert.True(t, ok, "Get(test_adapter_internal) should return true after Register()")
	assert.NotNil(t, factory, "Get(test_adapter_internal) should return non-nil factory")

	assert.Contains(t, ListAdapters(), "test_alias_internal")
}

func TestNewAdapter_EmptyType(t *testing.T) {
	_, err := NewAdapter(Config{Type: ""}, nil)
	require.Error(t, err, "NewAdapter with empty type should fail")
	assert.Equal(t, "adapter type not specified", err.Error(), "error message")
}

func TestNewAdapter_UnknownType(t *testing.T) {
	_, err := NewAdapter(Config{Type: "nonexistent_db"}, nil)
	require.Error(t, err)

	var unknown *UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nonexistent_db", unknown.Type)
}
