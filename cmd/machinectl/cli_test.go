package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"machine-service-backend/config"
	"machine-service-backend/internal/api"
	"machine-service-backend/internal/db"
	"machine-service-backend/internal/model"
	"machine-service-backend/internal/roster"
	"machine-service-backend/internal/station"
	"machine-service-backend/internal/store"
	"machine-service-backend/internal/workflow"
)

func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`database:
  driver: sqlite
  dsn: %q
store:
  backend: file
  file_path: %q
roster:
  defaults:
    - { name: Ashoka, epf: "2258" }
    - { name: Jude, epf: "938" }
`, filepath.Join(dir, "cli.db"), filepath.Join(dir, "machines.json"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path, dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestStationsCommand(t *testing.T) {
	out, err := runCLI(t, "stations")
	require.NoError(t, err)
	assert.Contains(t, out, "Initial Inspection")
	assert.Contains(t, out, "Final Inspection")

	out, err = runCLI(t, "stations", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "ws1_task1")
	assert.Contains(t, out, "Check task light")

	_, err = runCLI(t, "stations", "9")
	assert.ErrorContains(t, err, "invalid workstation")
}

func TestCheckInCheckOutQueue(t *testing.T) {
	cfg, _ := writeTestConfig(t)

	out, err := runCLI(t, "-c", cfg, "checkin", "1", "BC1", "--operator", "2258")
	require.NoError(t, err)
	assert.Contains(t, out, "Machine BC1 checked in to workstation 1 (Initial Inspection) by Ashoka")
	assert.Contains(t, out, "Estimated wait: No wait")

	out, err = runCLI(t, "-c", cfg, "checkin", "1", "BC2", "--operator", "938")
	require.NoError(t, err)
	assert.Contains(t, out, "Estimated wait: 15 minutes")

	_, err = runCLI(t, "-c", cfg, "checkin", "1", "BC1", "--operator", "2258")
	assert.ErrorIs(t, err, workflow.ErrConflict)

	_, err = runCLI(t, "-c", cfg, "checkin", "3", "BC3", "--operator", "2258")
	assert.ErrorIs(t, err, workflow.ErrOutOfSequence)

	_, err = runCLI(t, "-c", cfg, "checkin", "1", "BC3")
	assert.ErrorContains(t, err, "--operator is required")

	_, err = runCLI(t, "-c", cfg, "checkin", "1", "BC3", "--operator", "0")
	assert.ErrorIs(t, err, roster.ErrNotFound)

	out, err = runCLI(t, "-c", cfg, "queue", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "BC1")
	assert.Contains(t, out, "BC2")
	assert.Contains(t, out, "Jude (938)")

	_, err = runCLI(t, "-c", cfg, "checkout", "1", "BC1", "--task", "bogus")
	assert.ErrorContains(t, err, "unknown task")

	out, err = runCLI(t, "-c", cfg, "checkout", "1", "BC1", "--task", "ws1_task1,ws1_task2")
	require.NoError(t, err)
	assert.Contains(t, out, "2 of 11 tasks completed")

	out, err = runCLI(t, "-c", cfg, "queue", "1")
	require.NoError(t, err)
	assert.NotContains(t, out, "BC1")

	out, err = runCLI(t, "-c", cfg, "journey", "BC1")
	require.NoError(t, err)
	assert.Contains(t, out, "between workstations, 1 of 6 completed")
	assert.Contains(t, out, "2/11")

	_, err = runCLI(t, "-c", cfg, "journey", "NOPE")
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestFullServiceBackupAndRestore(t *testing.T) {
	cfg, dir := writeTestConfig(t)

	for ws := 1; ws <= station.Count; ws++ {
		_, err := runCLI(t, "-c", cfg, "checkin", strconv.Itoa(ws), "BC9", "--operator", "2258")
		require.NoError(t, err, "checkin %d", ws)
		out, err := runCLI(t, "-c", cfg, "checkout", strconv.Itoa(ws), "BC9", "--all-tasks")
		require.NoError(t, err, "checkout %d", ws)
		if ws == station.FinalStation {
			assert.Contains(t, out, "Service complete")
		}
	}

	out, err := runCLI(t, "-c", cfg, "completed")
	require.NoError(t, err)
	assert.Contains(t, out, "BC9")
	assert.Contains(t, out, "100%")

	report := filepath.Join(dir, "report.xlsx")
	out, err = runCLI(t, "-c", cfg, "export", "-o", report)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 machines")
	wb, err := excelize.OpenFile(report)
	require.NoError(t, err)
	assert.Len(t, wb.GetSheetList(), 4)
	require.NoError(t, wb.Close())

	backupPath := filepath.Join(dir, "backup.json")
	_, err = runCLI(t, "-c", cfg, "backup", "-o", backupPath)
	require.NoError(t, err)

	_, err = runCLI(t, "-c", cfg, "delete", "BC9")
	assert.ErrorContains(t, err, "--yes")
	_, err = runCLI(t, "-c", cfg, "delete", "BC9", "--yes")
	require.NoError(t, err)
	_, err = runCLI(t, "-c", cfg, "journey", "BC9")
	assert.ErrorIs(t, err, workflow.ErrNotFound)

	_, err = runCLI(t, "-c", cfg, "restore", backupPath)
	assert.ErrorContains(t, err, "--yes")
	out, err = runCLI(t, "-c", cfg, "restore", backupPath, "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Restored 1 machines")

	out, err = runCLI(t, "-c", cfg, "journey", "BC9")
	require.NoError(t, err)
	assert.Contains(t, out, "service complete")
}

func TestBackupToStdout(t *testing.T) {
	cfg, _ := writeTestConfig(t)
	_, err := runCLI(t, "-c", cfg, "checkin", "1", "BC1", "--operator", "2258")
	require.NoError(t, err)

	out, err := runCLI(t, "-c", cfg, "backup", "-o", "-")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "{"))
	assert.Contains(t, out, `"machines"`)
	assert.Contains(t, out, `"lastUpdated"`)
}

func TestOperatorsCommands(t *testing.T) {
	cfg, _ := writeTestConfig(t)

	out, err := runCLI(t, "-c", cfg, "operators", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Ashoka")

	out, err = runCLI(t, "-c", cfg, "operators", "add", "Suraj", "5397")
	require.NoError(t, err)
	assert.Contains(t, out, "Added Suraj (EPF 5397)")

	_, err = runCLI(t, "-c", cfg, "operators", "add", "Suraj", "5397")
	assert.ErrorIs(t, err, roster.ErrDuplicate)

	_, err = runCLI(t, "-c", cfg, "operators", "delete", "5397")
	require.NoError(t, err)
	_, err = runCLI(t, "-c", cfg, "operators", "delete", "5397")
	assert.ErrorIs(t, err, roster.ErrNotFound)
}

func TestMissingExplicitConfig(t *testing.T) {
	_, err := runCLI(t, "-c", filepath.Join(t.TempDir(), "absent.yaml"), "queue", "1")
	assert.ErrorContains(t, err, "load config")
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "server.db")), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	ros := roster.New(gdb)
	require.NoError(t, ros.Seed(context.Background(), []model.Operator{{Name: "Jude", EPF: "938"}}))

	s := store.NewGormStore(gdb)
	h := api.NewHandler(api.Deps{
		Engine: workflow.NewEngine(s, workflow.Options{}),
		Roster: ros,
		Store:  s,
		DB:     gdb,
	})
	serverCfg := config.Default().Server
	serverCfg.RateLimitPerSec = 1000
	serverCfg.RateLimitBurst = 1000

	server := httptest.NewServer(api.NewRouter(h, serverCfg))
	t.Cleanup(server.Close)
	return server
}

func TestRemoteServerFlag(t *testing.T) {
	server := newTestServer(t)
	cfg, _ := writeTestConfig(t)

	out, err := runCLI(t, "-c", cfg, "--server", server.URL, "checkin", "1", "RM1", "--operator", "938")
	require.NoError(t, err)
	assert.Contains(t, out, "by Jude")

	// The local roster is not consulted when a server is given.
	_, err = runCLI(t, "-c", cfg, "--server", server.URL, "checkin", "1", "RM2", "--operator", "2258")
	assert.ErrorIs(t, err, roster.ErrNotFound)

	out, err = runCLI(t, "-c", cfg, "--server", server.URL, "queue", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "RM1")

	// Nothing was written to the local store.
	out, err = runCLI(t, "-c", cfg, "queue", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "No machines at workstation 1")

	out, err = runCLI(t, "-c", cfg, "--server", server.URL, "operators", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Jude")
	assert.NotContains(t, out, "Ashoka")
}
