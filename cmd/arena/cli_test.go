package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig creates a sqlite-backed config file and returns its path.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "arena.yaml")
	content := fmt.Sprintf("database:\n  driver: sqlite\n  path: %s\n", filepath.Join(dir, "arena.db"))
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func mustRunCLI(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("arena %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestDBInitSQLite(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out := mustRunCLI(t, "db", "init", "-c", cfgPath)
	if !strings.Contains(out, "Migrated 4 tables") {
		t.Errorf("expected migration summary, got: %s", out)
	}
	if !strings.Contains(out, "initialized successfully") {
		t.Errorf("expected success message, got: %s", out)
	}
}

func TestDBResetRejectsSQLite(t *testing.T) {
	cfgPath := writeTestConfig(t)

	_, err := runCLI(t, "db", "reset", "-c", cfgPath, "--yes")
	if err == nil || !strings.Contains(err.Error(), "mysql") {
		t.Errorf("expected mysql-only error, got: %v", err)
	}
}

func TestBattleFlow(t *testing.T) {
	cfgPath := writeTestConfig(t)
	mustRunCLI(t, "db", "migrate", "-c", cfgPath)

	// Register two completed agent runs.
	var runIDs [2]string
	for i, name := range []string{"browser-use", "notte"} {
		out := mustRunCLI(t, "agent", "create", name, "-c", cfgPath)
		fields := strings.Fields(out)
		if len(fields) < 4 {
			t.Fatalf("unexpected create output: %s", out)
		}
		runIDs[i] = fields[3]
		mustRunCLI(t, "agent", "status", runIDs[i], "completed", "-c", cfgPath)
	}

	out := mustRunCLI(t, "battle", "create", runIDs[0], runIDs[1],
		"-c", cfgPath, "-u", "user-1", "-i", "book a flight")
	fields := strings.Fields(out)
	battleID := fields[len(fields)-1]

	out = mustRunCLI(t, "battle", "vote", battleID, "winner",
		"-c", cfgPath, "-u", "user-1", "-w", runIDs[0])
	if !strings.Contains(out, "(+16)") || !strings.Contains(out, "(-16)") {
		t.Errorf("expected fresh-rating Elo changes in output, got: %s", out)
	}

	out = mustRunCLI(t, "ratings", "-c", cfgPath)
	if !strings.Contains(out, "browser-use") || !strings.Contains(out, "notte") {
		t.Errorf("expected both agents in ratings, got: %s", out)
	}
	if !strings.Contains(out, "816") || !strings.Contains(out, "784") {
		t.Errorf("expected updated ratings 816/784, got: %s", out)
	}
}

func TestVoteWrongUser(t *testing.T) {
	cfgPath := writeTestConfig(t)
	mustRunCLI(t, "db", "migrate", "-c", cfgPath)

	out := mustRunCLI(t, "agent", "create", "browser-use", "-c", cfgPath)
	runA := strings.Fields(out)[3]
	out = mustRunCLI(t, "agent", "create", "notte", "-c", cfgPath)
	runB := strings.Fields(out)[3]
	mustRunCLI(t, "agent", "status", runA, "completed", "-c", cfgPath)
	mustRunCLI(t, "agent", "status", runB, "completed", "-c", cfgPath)

	out = mustRunCLI(t, "battle", "create", runA, runB,
		"-c", cfgPath, "-u", "user-1", "-i", "find a hotel")
	fields := strings.Fields(out)
	battleID := fields[len(fields)-1]

	if _, err := runCLI(t, "battle", "vote", battleID, "tie", "-c", cfgPath, "-u", "user-2"); err == nil {
		t.Error("expected vote by non-creator to fail")
	}
}

func TestSweepEmpty(t *testing.T) {
	cfgPath := writeTestConfig(t)
	mustRunCLI(t, "db", "migrate", "-c", cfgPath)

	out := mustRunCLI(t, "sweep", "-c", cfgPath)
	if !strings.Contains(out, "Swept 0 stale battles") {
		t.Errorf("expected empty sweep, got: %s", out)
	}
}

func TestMatchNoRatings(t *testing.T) {
	cfgPath := writeTestConfig(t)
	mustRunCLI(t, "db", "migrate", "-c", cfgPath)

	if _, err := runCLI(t, "match", "-c", cfgPath); err == nil {
		t.Error("expected match against an empty ratings table to fail")
	}
}
