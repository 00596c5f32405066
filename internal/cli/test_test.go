package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTest_AllPass(t *testing.T) {
	out, err := execute(t, "text", "test", "testdata/scenarios")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ token_init\n")
	assert.Contains(t, out, "✓ token_mint\n")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTest_Filter(t *testing.T) {
	out, err := execute(t, "json", "test", "testdata/scenarios", "--filter", "*_mint")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "token_mint", resp.Data.Scenarios[0].Name)
	assert.True(t, resp.Data.Scenarios[0].Pass)
}

func TestTest_GoldenLifecycle(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "token_init")
	golden := filepath.Join(dir, "golden", "token_init.golden")

	out, err := execute(t, "text", "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ token_init (golden updated)")

	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Equal(t, mustRead(t, "../harness/testdata/golden/token_init.golden"), string(data))

	_, err = execute(t, "text", "test", dir)
	require.NoError(t, err, "a fresh golden file matches")

	require.NoError(t, os.WriteFile(golden, []byte(`{"scenario_name":"token_init","trace":[]}`), 0644))
	out, err = execute(t, "text", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ token_init")
	assert.Contains(t, out, "trace does not match golden file")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTest_FailuresAreCollected(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "token_init", `balance: "20 N" }`, `balance: "1 N" }`)
	writeFile(t, dir, "broken.yaml", "name: broken\n")

	out, err := execute(t, "json", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Error  CLIError   `json:"error"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 2, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 2)

	broken := resp.Data.Scenarios[0]
	assert.Equal(t, "broken.yaml", broken.Name)
	require.Len(t, broken.Errors, 1)
	assert.Contains(t, broken.Errors[0], "failed to load scenario")

	initResult := resp.Data.Scenarios[1]
	assert.Equal(t, "token_init", initResult.Name)
	require.Len(t, initResult.Errors, 1)
	assert.Contains(t, initResult.Errors[0], "expected balance 1 N, got 20 N")
}

func TestTest_Empty(t *testing.T) {
	out, err := execute(t, "text", "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTest_MissingDir(t *testing.T) {
	_, err := execute(t, "text", "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}
