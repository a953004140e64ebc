package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// project writes a config with a file-backed SQLite connection and returns its path.
func project(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	cfgPath = filepath.Join(dir, "dfbridge.yaml")
	cfg := `chunk_size: 1
connections:
  lite:
    type: sqlite
    path: warehouse.db
  lake:
    type: s3
    params:
      region: eu-west-1
      secret_access_key: topsecret
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	return dir, cfgPath
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// run executes the root command with args and returns stdout.
func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--config", cfgPath))
	err := cmd.Execute()
	if errOut.Len() > 0 {
		t.Log(errOut.String())
	}
	return out.String(), err
}

func TestRootCmd_Metadata(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "dfbridge", cmd.Use)
	for _, flag := range []string{"config", "verbose", "output", "chunk-size"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}

	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"load", "export", "merge", "schema-exists", "connections", "version", "completion"} {
		assert.Contains(t, names, want)
	}
}

func TestLoadAndExport(t *testing.T) {
	dir, cfgPath := project(t)
	csvPath := writeFile(t, dir, "people.csv", "id,name\n1,Alice\n2,Bob\n")

	out, err := run(t, cfgPath, "load", csvPath, "--conn", "lite", "--table", "people")
	require.NoError(t, err)
	assert.Contains(t, out, `into "people"`)

	out, err = run(t, cfgPath, "export", "people", "--conn", "lite")
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,Alice\n2,Bob\n", out)

	out, err = run(t, cfgPath, "export", "people", "--conn", "lite", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1,"name":"Alice"},{"id":2,"name":"Bob"}]`+"\n", out)

	out, err = run(t, cfgPath, "export", "people", "--conn", "lite", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "(2 rows)")
}

func TestLoad_Append(t *testing.T) {
	dir, cfgPath := project(t)
	first := writeFile(t, dir, "a.ndjson", `{"id":1}`+"\n")
	second := writeFile(t, dir, "b.ndjson", `{"id":2}`+"\n")

	_, err := run(t, cfgPath, "load", first, "--conn", "lite", "--table", "ids")
	require.NoError(t, err)
	_, err = run(t, cfgPath, "load", second, "--conn", "lite", "--table", "ids", "--if-exists", "append")
	require.NoError(t, err)

	out, err := run(t, cfgPath, "export", "ids", "--conn", "lite", "-o", "csv")
	require.NoError(t, err)
	assert.Equal(t, "id\n1\n2\n", out)
}

func TestExport_ToFile(t *testing.T) {
	dir, cfgPath := project(t)
	csvPath := writeFile(t, dir, "people.csv", "id,name\n1,Alice\n")
	_, err := run(t, cfgPath, "load", csvPath, "--conn", "lite", "--table", "people")
	require.NoError(t, err)

	target := filepath.Join(dir, "out", "people.ndjson")
	out, err := run(t, cfgPath, "export", "people", "--conn", "lite", "--to", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 rows")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, `{"id":1,"name":"Alice"}`+"\n", string(data))

	_, err = run(t, cfgPath, "export", "people", "--conn", "lite", "--to", target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = run(t, cfgPath, "export", "people", "--conn", "lite", "--to", target, "--overwrite")
	require.NoError(t, err)
}

func TestMerge(t *testing.T) {
	tests := []struct {
		strategy string
		want     string
	}{
		{"ignore", "id,name\n1,Alice\n2,Bob\n3,Carol\n"},
		{"update", "id,name\n1,Alice\n2,Robert\n3,Carol\n"},
	}

	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			dir, cfgPath := project(t)
			target := writeFile(t, dir, "target.csv", "id,name\n1,Alice\n2,Bob\n")
			source := writeFile(t, dir, "source.csv", "id,name\n2,Robert\n3,Carol\n")
			_, err := run(t, cfgPath, "load", target, "--conn", "lite", "--table", "people")
			require.NoError(t, err)
			_, err = run(t, cfgPath, "load", source, "--conn", "lite", "--table", "staged")
			require.NoError(t, err)

			out, err := run(t, cfgPath, "merge", "staged", "people", "--conn", "lite",
				"--columns", "id,name", "--key", "id", "--if-conflicts", tt.strategy)
			require.NoError(t, err)
			assert.Contains(t, out, "Merged")

			out, err = run(t, cfgPath, "export", "people", "--conn", "lite")
			require.NoError(t, err)
			lines := strings.Split(strings.TrimSpace(out), "\n")
			assert.Equal(t, "id,name", lines[0])
			assert.ElementsMatch(t, strings.Split(strings.TrimSpace(tt.want), "\n")[1:], lines[1:])
		})
	}
}

func TestMerge_Exception(t *testing.T) {
	dir, cfgPath := project(t)
	target := writeFile(t, dir, "target.csv", "id,name\n1,Alice\n")
	source := writeFile(t, dir, "source.csv", "id,name\n1,Other\n")
	_, err := run(t, cfgPath, "load", target, "--conn", "lite", "--table", "people")
	require.NoError(t, err)
	_, err = run(t, cfgPath, "load", source, "--conn", "lite", "--table", "staged")
	require.NoError(t, err)

	_, err = run(t, cfgPath, "merge", "staged", "people", "--conn", "lite", "--columns", "id,name", "--key", "id")
	require.Error(t, err)
}

func TestSchemaExists(t *testing.T) {
	_, cfgPath := project(t)

	out, err := run(t, cfgPath, "schema-exists", "main", "--conn", "lite")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, err = run(t, cfgPath, "schema-exists", "nope", "--conn", "lite")
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)
}

func TestConnections(t *testing.T) {
	_, cfgPath := project(t)

	out, err := run(t, cfgPath, "connections", "--check")
	require.NoError(t, err)
	assert.Contains(t, out, "# config: "+cfgPath)
	assert.Contains(t, out, "type: sqlite")
	assert.Contains(t, out, "secret_access_key:")
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "topsecret")
	assert.Contains(t, out, "lite: ok")
	assert.NotContains(t, out, "lake: ok")
}

func TestCommandErrors(t *testing.T) {
	dir, cfgPath := project(t)
	csvPath := writeFile(t, dir, "people.csv", "id\n1\n")

	tests := []struct {
		name      string
		args      []string
		errSubstr string
	}{
		{
			name:      "unknown connection",
			args:      []string{"export", "people", "--conn", "missing"},
			errSubstr: `connection "missing" not found`,
		},
		{
			name:      "file connection as warehouse",
			args:      []string{"export", "people", "--conn", "lake"},
			errSubstr: "is not a warehouse",
		},
		{
			name:      "invalid if-exists",
			args:      []string{"load", csvPath, "--conn", "lite", "--table", "t", "--if-exists", "upsert"},
			errSubstr: "invalid if_exists",
		},
		{
			name:      "invalid table reference",
			args:      []string{"load", csvPath, "--conn", "lite", "--table", "a..b"},
			errSubstr: "invalid table reference",
		},
		{
			name:      "invalid strategy",
			args:      []string{"merge", "a", "b", "--conn", "lite", "--columns", "id", "--key", "id", "--if-conflicts", "skip"},
			errSubstr: "invalid if_conflicts",
		},
		{
			name:      "multi character delimiter",
			args:      []string{"load", csvPath, "--conn", "lite", "--table", "t", "--delimiter", ";;"},
			errSubstr: "single character",
		},
		{
			name:      "missing required flag",
			args:      []string{"load", csvPath, "--table", "t"},
			errSubstr: `required flag(s) "conn" not set`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, cfgPath, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}
