package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copyScenario copies the token artifact and one scenario into dir,
// applying replacements to the scenario text.
func copyScenario(t *testing.T, dir, name string, replace ...string) string {
	t.Helper()
	writeFile(t, dir, "token.cue", mustRead(t, "testdata/scenarios/token.cue"))
	text := mustRead(t, filepath.Join("testdata", "scenarios", name+".yaml"))
	text = strings.NewReplacer(replace...).Replace(text)
	return writeFile(t, dir, name+".yaml", text)
}

func TestRun_TextTrace(t *testing.T) {
	out, err := execute(t, "text", "run", "testdata/scenarios/token_mint.yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ token_mint\n")
	assert.Contains(t, out, "[#0] self_call token.dev-harness-1.test.init = alice.dev-harness-1.test\n")
	assert.Contains(t, out, "[mint] call alice.dev-harness-1.test -> token.dev-harness-1.test.mint = 7\n")
	assert.Contains(t, out, "[stolen] call bob.dev-harness-1.test -> token.dev-harness-1.test.mint: failed: ")
	assert.Contains(t, out, "[#3] call bob.dev-harness-1.test -> token.dev-harness-1.test.buy (deposit 2 N)\n")
	assert.Contains(t, out, "[supply] view token.dev-harness-1.test.supply = 7\n")
	assert.Contains(t, out, "[#5] view_account bob.dev-harness-1.test: 3 N\n")
}

func TestRun_JSON(t *testing.T) {
	out, err := execute(t, "json", "run", "testdata/scenarios/token_init.yaml")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Scenario string           `json:"scenario"`
			Pass     bool             `json:"pass"`
			Trace    []map[string]any `json:"trace"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "token_init", resp.Data.Scenario)
	assert.True(t, resp.Data.Pass)
	require.Len(t, resp.Data.Trace, 3)
	assert.Equal(t, "init", resp.Data.Trace[0]["key"])
	assert.Equal(t, "20 N", resp.Data.Trace[2]["balance"])
}

func TestRun_FailingExpectation(t *testing.T) {
	path := copyScenario(t, t.TempDir(), "token_init", `balance: "20 N" }`, `balance: "19 N" }`)

	out, err := execute(t, "text", "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenario token_init failed")
	assert.Contains(t, out, "✗ token_init\n")
	assert.Contains(t, out, "expected balance 19 N, got 20 N")
}

func TestRun_InvalidScenario(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "half.yaml", "name: half\n")

	out, err := execute(t, "json", "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeScenario, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "description is required")
}

func TestRun_ProvisionFailureIsCommandError(t *testing.T) {
	path := copyScenario(t, t.TempDir(), "token_init", `balance: "20 N"`, `balance: "2000 N"`)

	_, err := execute(t, "text", "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenario could not run")
}

func TestRun_PersistsLedger(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	for i := 0; i < 2; i++ {
		_, err := execute(t, "text", "run", "--db", db, "testdata/scenarios/token_mint.yaml")
		require.NoError(t, err)
	}

	out, err := execute(t, "json", "accounts", "--db", db)
	require.NoError(t, err)

	var resp struct {
		Data []AccountRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 8, "two roots with alice, bob and token each")
	assert.NotEqual(t, resp.Data[0].ID, resp.Data[4].ID, "each run gets its own root")
}
