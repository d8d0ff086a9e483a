package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	paramFlags, execFiles, dialectName, configPath = nil, nil, "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()

	return out.String(), err
}

func TestSQLCommand(t *testing.T) {
	out, err := execute(t, "sql", "testdata/owners.yaml", "--dialect", "sqlite")
	require.NoError(t, err)

	assert.Contains(t, out, `SELECT "users"."id", "users"."name", "pets"."id", "pets"."owner_id", "pets"."name" FROM "users" `+
		`LEFT JOIN "pets" ON "pets"."owner_id" = "users"."id" WHERE "users"."id" <= ? ORDER BY "users"."id" ASC LIMIT ?`)
	assert.Contains(t, out, "-- mode: single")
	assert.Contains(t, out, "-- field: pets_name")
	assert.Contains(t, out, "-- left join pets: not null false")
}

func TestSQLCommandUnknownDialect(t *testing.T) {
	_, err := execute(t, "sql", "testdata/owners.yaml", "--dialect", "oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported dialect "oracle"`)

	_, ok := errors.Cause(err).(stackTracer)
	assert.True(t, ok)
}

func TestRunCommand(t *testing.T) {
	out, err := execute(t, "run", "testdata/owners.yaml", "--exec", "testdata/schema.sql", "-p", "n=1")
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))

	require.Len(t, rows, 1)
	assert.Equal(t, map[string]any{"id": float64(1), "name": "ann"}, rows[0]["users"])
	assert.Equal(t, "rex", rows[0]["pets"].(map[string]any)["name"])
}

func TestParseParams(t *testing.T) {
	params, err := parseParams(map[string]any{"n": 5, "name": "ann"}, []string{"n=1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": "1", "name": "ann"}, params)

	_, err = parseParams(nil, []string{"broken"})
	require.Error(t, err)

	_, ok := errors.Cause(err).(stackTracer)
	assert.True(t, ok)
}
