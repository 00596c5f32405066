package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidScenarioDir(t *testing.T) {
	out, err := execute(t, "text", "validate", "testdata/scenarios")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All 3 file(s) valid")
}

func TestValidate_ValidJSON(t *testing.T) {
	out, err := execute(t, "json", "validate", "testdata/scenarios/token_mint.yaml")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 1, resp.Data.Files)
}

func TestValidate_ArtifactProblems(t *testing.T) {
	out, err := execute(t, "json", "validate", "testdata/artifacts")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  CLIError         `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	assert.Equal(t, 2, resp.Data.Files)
	require.Len(t, resp.Data.Problems, 1)
	assert.Equal(t, filepath.Join("testdata", "artifacts", "view_writes.cue"), resp.Data.Problems[0].File)
	assert.Equal(t, "E111", resp.Data.Problems[0].Code)
	assert.Equal(t, "functions.peek: view functions cannot write storage", resp.Data.Problems[0].Message)
	assert.Equal(t, "E111", resp.Error.Code)
}

func TestValidate_ScenarioReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "half.yaml", "name: half\n")

	out, err := execute(t, "text", "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 2 problem(s)")

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, path)
	assert.Contains(t, out, "E008: description is required")
	assert.Contains(t, out, "E008: steps list is required and must be non-empty")
}

func TestValidate_UnparseableScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "typo.yaml", "name: typo\nprovison: []\n")

	problems := ValidateFiles([]string{filepath.Join(dir, "typo.yaml")})
	require.Len(t, problems, 1)
	assert.Equal(t, ErrCodeScenario, problems[0].Code)
	assert.Contains(t, problems[0].Message, "failed to parse YAML")
}

func TestValidate_CommandErrors(t *testing.T) {
	t.Run("missing path", func(t *testing.T) {
		_, err := execute(t, "text", "validate", filepath.Join(t.TempDir(), "missing"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), "path not found")
	})

	t.Run("nothing to validate", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "notes.md", "# notes")

		_, err := execute(t, "text", "validate", dir)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), "no artifacts or scenarios found")
	})
}
