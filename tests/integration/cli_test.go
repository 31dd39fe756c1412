// CLI integration tests: the artvault command surface over a temp data dir.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamlayer/artvault/internal/cli"
	"github.com/dreamlayer/artvault/pkg/types"
)

// runCLI executes the artvault command with global dirs pointed at the
// given environment and returns stdout.
func runCLI(t *testing.T, configDir, dataDir string, args ...string) string {
	t.Helper()
	root := cli.NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config-dir", configDir, "--data-dir", dataDir}, args...))
	require.NoError(t, root.Execute())
	return out.String()
}

func TestCLIVersion(t *testing.T) {
	dir := t.TempDir()
	out := runCLI(t, filepath.Join(dir, "cfg"), filepath.Join(dir, "data"), "version")
	assert.Contains(t, out, "artvault v")
	assert.Contains(t, out, "github.com/dreamlayer/artvault")
}

func TestCLIReportOnSeededData(t *testing.T) {
	dir := t.TempDir()
	configDir := filepath.Join(dir, "cfg")
	dataDir := filepath.Join(dir, "data")

	v := openVault(t, dataDir)
	mustSave(t, v, "seeded for the cli")
	require.NoError(t, v.Close())

	out := runCLI(t, configDir, dataDir, "report", "--json")

	var report types.DiagnosticReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Summary.TotalArtifacts)
	assert.True(t, report.Summary.HasData)
}

func TestCLIExportRestoreRoundtrip(t *testing.T) {
	dir := t.TempDir()
	configDir := filepath.Join(dir, "cfg")
	dataDir := filepath.Join(dir, "data")
	bundlePath := filepath.Join(dir, "bundle.json")

	v := openVault(t, dataDir)
	rec := mustSave(t, v, "exported by cli")
	require.NoError(t, v.Close())

	out := runCLI(t, configDir, dataDir, "export", "--out", bundlePath)
	assert.Contains(t, out, "exported to")

	data, err := os.ReadFile(bundlePath)
	require.NoError(t, err)
	var bundle types.ExportBundle
	require.NoError(t, json.Unmarshal(data, &bundle))
	require.Len(t, bundle.Images, 1)
	assert.Equal(t, rec.ID, bundle.Images[0].ID)

	// Wipe, then bring the data back from the bundle.
	runCLI(t, configDir, dataDir, "clear", "--force")

	v2 := openVault(t, dataDir)
	require.Empty(t, v2.GetAllArtifacts(context.Background()))
	require.NoError(t, v2.Close())

	out = runCLI(t, configDir, dataDir, "restore", bundlePath)
	assert.Contains(t, out, "restored 1 artifacts")

	v3 := openVault(t, dataDir)
	arts := v3.GetAllArtifacts(context.Background())
	require.Len(t, arts, 1)
	assert.Equal(t, rec.ID, arts[0].ID)
}

func TestCLICreatesDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	configDir := filepath.Join(dir, "cfg")
	dataDir := filepath.Join(dir, "data")

	runCLI(t, configDir, dataDir, "report")

	data, err := os.ReadFile(filepath.Join(configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Artvault CLI configuration")
}

func TestCLISyncEmptyQueue(t *testing.T) {
	dir := t.TempDir()
	out := runCLI(t, filepath.Join(dir, "cfg"), filepath.Join(dir, "data"), "sync")
	assert.Contains(t, out, "sync queue is empty")
}
