package cmd_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/modgraph"
	"github.com/GoCodeAlone/modgraph/cmd/modgraph/cmd"
	"github.com/GoCodeAlone/modgraph/config"
	"github.com/GoCodeAlone/modgraph/gateway/yamldir"
	"github.com/GoCodeAlone/modgraph/surrogate"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := cmd.NewRootCommand()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// modulesDir writes a small module set: A <- B <- C, with C also depending
// on a module that does not exist.
func modulesDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"A.yaml": "name: A\ndescription: core\nstatus: implemented\nversion: 1.2.0\ndependencies: []\n",
		"B.yaml": "name: B\ndescription: \"x,y\"\nstatus: placeholder\ndependencies: [A]\n",
		"C.yml":  "name: C\nstatus: error\ndependencies: [B, Ghost]\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func TestRootCommand(t *testing.T) {
	rootCmd := cmd.NewRootCommand()
	assert.NotNil(t, rootCmd)
	assert.Equal(t, "modgraph", rootCmd.Use)

	out, err := run(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "modgraph keeps a collection of named modules")
	for _, sub := range []string{"serve", "validate", "export", "graph", "stats", "bulk", "watch", "config", "metadata", "surrogate"} {
		assert.Contains(t, out, sub)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, cmd.PrintVersion()+"\n", out)
}

func TestValidateCommand(t *testing.T) {
	dir := modulesDir(t)

	out, err := run(t, "validate", "--modules-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "warning: module C depends on unknown module Ghost")
	assert.Contains(t, out, "3 modules, 2 edges, 1 dangling dependencies")

	_, err = run(t, "validate", "--modules-dir", dir, "--strict")
	assert.ErrorIs(t, err, modgraph.ErrValidation)
}

func TestValidateCommand_BadFile(t *testing.T) {
	dir := modulesDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: 1bad\nstatus: implemented\n"), 0o600))

	_, err := run(t, "validate", "--modules-dir", dir)
	assert.ErrorIs(t, err, modgraph.ErrValidation)
}

func TestExportCommand(t *testing.T) {
	dir := modulesDir(t)

	out, err := run(t, "export", "--modules-dir", dir, "--status", "placeholder")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(modgraph.CSVHeader, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `B,"x,y",placeholder,,,,A,`), lines[1])

	out, err = run(t, "export", "--modules-dir", dir, "--filter", "version:>=1.0.0")
	require.NoError(t, err)
	assert.Contains(t, out, "A,core,implemented,1.2.0")
	assert.NotContains(t, out, "\nB,")

	target := filepath.Join(t.TempDir(), "out.csv")
	_, err = run(t, "export", "--modules-dir", dir, "-q", "ghost", "-o", target)
	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\nC,")

	_, err = run(t, "export", "--modules-dir", dir, "--filter", "colour")
	assert.ErrorIs(t, err, modgraph.ErrValidation)
}

func TestGraphCommand(t *testing.T) {
	dir := modulesDir(t)

	out, err := run(t, "graph", "--modules-dir", dir)
	require.NoError(t, err)
	var g modgraph.Graph
	require.NoError(t, json.Unmarshal([]byte(out), &g))
	assert.True(t, g.HasEdge("A", "B"))
	assert.True(t, g.HasEdge("B", "C"))
	assert.Len(t, g.Edges, 2)

	out, err = run(t, "graph", "--modules-dir", dir, "--status", "implemented,placeholder")
	require.NoError(t, err)
	g = modgraph.Graph{}
	require.NoError(t, json.Unmarshal([]byte(out), &g))
	assert.False(t, g.HasNode("C"))
	assert.Len(t, g.Edges, 1)

	_, err = run(t, "graph", "--modules-dir", dir, "--status", "done")
	assert.ErrorIs(t, err, modgraph.ErrInvalidStatus)
}

func TestStatsCommand(t *testing.T) {
	out, err := run(t, "stats", "--modules-dir", modulesDir(t))
	require.NoError(t, err)

	var stats modgraph.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.DependencyCount)
	assert.Equal(t, 1, stats.DanglingCount)
}

func TestMetadataCommand(t *testing.T) {
	out, err := run(t, "metadata", "--modules-dir", modulesDir(t))
	require.NoError(t, err)

	var meta map[string]modgraph.ModuleMetadata
	require.NoError(t, json.Unmarshal([]byte(out), &meta))
	assert.Equal(t, []string{"B"}, meta["A"].Dependents)
	assert.Equal(t, 2, meta["C"].Level)
	assert.Equal(t, 2, meta["C"].DependencyCount)
}

func TestSurrogateCommands(t *testing.T) {
	out, err := run(t, "surrogate", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "static_stub")
	assert.Contains(t, out, "MockLLMSurrogate")

	dir := modulesDir(t)
	out, err = run(t, "surrogate", "run", "B", "--input", "Query=hi", "--modules-dir", dir)
	require.NoError(t, err)
	var result surrogate.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "B", result.ModuleName)
	assert.Equal(t, surrogate.DefaultType, result.SurrogateType)
	assert.Equal(t, map[string]any{"Query": "hi"}, result.Inputs)
	assert.Equal(t, "stub", result.Outputs["result"])
	assert.Equal(t, modgraph.StatusPlaceholder, result.ExecutionInfo.ModuleStatus)

	logPath := filepath.Join(t.TempDir(), "prompts.log")
	t.Setenv("MODGRAPH_SURROGATE_PROMPT_LOG", logPath)
	_, err = run(t, "surrogate", "run", "A", "--type", "mock_llm", "--modules-dir", dir)
	require.NoError(t, err)
	assert.FileExists(t, logPath)

	_, err = run(t, "surrogate", "run", "A", "--type", "gpt", "--modules-dir", dir)
	assert.ErrorIs(t, err, surrogate.ErrUnknownSurrogate)
	_, err = run(t, "surrogate", "run", "Nope", "--modules-dir", dir)
	assert.ErrorIs(t, err, modgraph.ErrNotFound)
	_, err = run(t, "surrogate", "run", "A", "--input", "novalue", "--modules-dir", dir)
	assert.ErrorIs(t, err, modgraph.ErrValidation)
}

func TestBulkStatusCommand(t *testing.T) {
	dir := modulesDir(t)

	out, err := run(t, "bulk", "status", "error", "A", "B", "--modules-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 of 2 modules updated")

	modules, err := yamldir.LoadDir(dir)
	require.NoError(t, err)
	for _, m := range modules {
		assert.Equal(t, modgraph.StatusError, m.Status, m.Name)
	}
}

func TestBulkDeleteCommand_Visible(t *testing.T) {
	dir := modulesDir(t)

	out, err := run(t, "bulk", "delete", "--visible", "--status", "placeholder", "--modules-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 1 modules deleted")
	_, err = os.Stat(filepath.Join(dir, "B.yaml"))
	assert.True(t, os.IsNotExist(err))

	_, err = run(t, "bulk", "delete", "--visible", "--query", "zzz", "--modules-dir", dir)
	assert.ErrorIs(t, err, cmd.ErrNothingSelected)

	_, err = run(t, "bulk", "delete", "Nope", "--modules-dir", dir)
	assert.ErrorIs(t, err, modgraph.ErrNotFound)
}

func TestConfigCommands(t *testing.T) {
	out, err := run(t, "config", "sample", "--format", "toml")
	require.NoError(t, err)
	assert.Contains(t, out, "[server]")

	out, err = run(t, "config", "describe")
	require.NoError(t, err)
	assert.Contains(t, out, "MODGRAPH_SERVER_PORT")
	assert.Contains(t, out, "storage.backend")

	target := filepath.Join(t.TempDir(), "modgraph.yaml")
	_, err = run(t, "config", "sample", "-o", target)
	require.NoError(t, err)
	assert.FileExists(t, target)

	_, err = run(t, "config", "sample", "--format", "ini")
	assert.ErrorIs(t, err, config.ErrUnsupportedFormatType)
}

func TestConfigLayering(t *testing.T) {
	dir := modulesDir(t)

	cfgFile := filepath.Join(t.TempDir(), "modgraph.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("storage:\n  modules_dir: "+dir+"\n"), 0o600))
	out, err := run(t, "stats", "--config", cfgFile)
	require.NoError(t, err)
	assert.Contains(t, out, `"total_modules": 3`)

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("MODGRAPH_STORAGE_BACKEND=memory\n"), 0o600))
	out, err = run(t, "stats", "--config", cfgFile, "--env-file", envFile)
	require.NoError(t, err)
	assert.Contains(t, out, `"total_modules": 0`)

	t.Setenv("MODGRAPH_STORAGE_BACKEND", "carrier-pigeon")
	_, err = run(t, "stats", "--config", cfgFile)
	assert.ErrorIs(t, err, config.ErrConfigInvalid)

	// flags win over the environment
	out, err = run(t, "stats", "--config", cfgFile, "--backend", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, `"total_modules": 3`)
}

func TestUnsupportedConfigFile(t *testing.T) {
	_, err := run(t, "stats", "--config", "modgraph.ini")
	assert.ErrorIs(t, err, cmd.ErrUnsupportedConfigFile)
}

func TestWatchCommand_NothingToWatch(t *testing.T) {
	_, err := run(t, "watch", "--backend", "memory")
	assert.ErrorIs(t, err, cmd.ErrNothingToWatch)
}
