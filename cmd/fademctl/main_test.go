package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func useSQLite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file:"+filepath.Join(dir, "fadem.db"))
	t.Setenv("FADEM_MODULE", "immobilier")
	return dir
}

func TestScheduleCmd(t *testing.T) {
	out, err := execute(t, "schedule", "--start", "2024-01-15", "--rent", "50000", "--months", "3")
	require.NoError(t, err)

	assert.Contains(t, out, "2024-02-15")
	assert.Contains(t, out, "2024-03-15")
	assert.Contains(t, out, "2024-04-15")
	assert.NotContains(t, out, "2024-05-15")
	assert.Contains(t, out, "150 000 XOF")
}

func TestScheduleCmd_ClampsMonthEnd(t *testing.T) {
	out, err := execute(t, "schedule", "--start", "2024-01-31", "--rent", "1000", "--months", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-02-29")
	assert.Contains(t, out, "2024-03-31")
}

func TestScheduleCmd_RejectsBadInput(t *testing.T) {
	_, err := execute(t, "schedule", "--start", "15/01/2024", "--rent", "50000")
	assert.Error(t, err)

	_, err = execute(t, "schedule", "--start", "2024-01-15", "--rent", "0")
	assert.Error(t, err)
}

func TestExportImportRoundTrip(t *testing.T) {
	dir := useSQLite(t)
	file := filepath.Join(dir, "export.json")

	_, err := execute(t, "export", "-o", file)
	require.NoError(t, err)
	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"module": "immobilier"`)

	out, err := execute(t, "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 0 properties, 0 tenants, 0 active leases")
}

func TestImportCmd_RejectsOtherModule(t *testing.T) {
	dir := useSQLite(t)
	file := filepath.Join(dir, "export.json")
	_, err := execute(t, "export", "-o", file)
	require.NoError(t, err)

	_, err = execute(t, "--module", "vehicules", "import", file)
	assert.ErrorContains(t, err, "module")
}

func TestBackupRestoreAndReset(t *testing.T) {
	useSQLite(t)

	_, err := execute(t, "restore")
	assert.Error(t, err, "no backup yet")

	out, err := execute(t, "backup")
	require.NoError(t, err)
	assert.Contains(t, out, "backup of immobilier written")

	out, err = execute(t, "restore")
	require.NoError(t, err)
	assert.Contains(t, out, "restored")

	_, err = execute(t, "reset")
	assert.ErrorContains(t, err, "--yes")

	out, err = execute(t, "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted fadem_backup_immobilier")
	assert.Contains(t, out, "deleted fadem_immobilier")
}

func TestScanAndStats_EmptyLedger(t *testing.T) {
	useSQLite(t)

	out, err := execute(t, "scan")
	require.NoError(t, err)
	assert.Contains(t, out, "no overdue rent")

	out, err = execute(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, `"currency": "XOF"`)
}
