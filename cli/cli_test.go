// Black-box tests of the full invocation surface: they drive cli.Run the way
// main does and observe only exit codes, artifacts and journals.
package cli_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	icl "parhist/internal/cli"
	"parhist/internal/journal"
	"parhist/internal/worker"
)

// TestMain routes the re-executed test binary into worker mode, so the
// supervisor spawned by these tests uses this binary as its worker
// executable.
func TestMain(m *testing.M) {
	if worker.IsWorkerProcess() {
		os.Exit(worker.Main())
	}
	os.Exit(m.Run())
}

// writeFastConfig writes a TOML config with millisecond staggering so full
// runs complete quickly.
func writeFastConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "parhist.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
sleep_base = "10ms"
sleep_step = "5ms"
sig_wait = "300ms"
poll_interval = "20ms"
read_timeout = "1s"
`), 0o644))
	return path
}

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun_FullCompletion(t *testing.T) {
	workDir := t.TempDir()
	outDir := filepath.Join(workDir, "out")
	cfgPath := writeFastConfig(t, workDir)
	f1 := writeInput(t, workDir, "hello.txt", "AbcAbc")
	f2 := writeInput(t, workDir, "world.txt", "The quick brown fox")

	result, err := icl.Run(context.Background(), []string{
		"-config", cfgPath,
		"-output-dir", outDir,
		f1, f2,
	})
	require.NoError(t, err)
	assert.Equal(t, icl.ExitSuccess, result.ExitCode)
	assert.Equal(t, int64(2), result.Spawned)
	assert.Equal(t, int64(2), result.Terminated)

	matches, err := filepath.Glob(filepath.Join(outDir, "*.hist"))
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	for _, m := range matches {
		raw, err := os.ReadFile(m)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
		assert.Len(t, lines, 26)
	}
}

func TestRun_SigMixedBatch(t *testing.T) {
	workDir := t.TempDir()
	outDir := filepath.Join(workDir, "out")
	cfgPath := writeFastConfig(t, workDir)
	f1 := writeInput(t, workDir, "f1.txt", "aa")
	f2 := writeInput(t, workDir, "f2.txt", "bb")

	result, err := icl.Run(context.Background(), []string{
		"-config", cfgPath,
		"-output-dir", outDir,
		f1, "SIG", f2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Terminated)

	matches, err := filepath.Glob(filepath.Join(outDir, "*.hist"))
	require.NoError(t, err)
	assert.Len(t, matches, 2, "the SIG worker persists nothing")
}

func TestRun_WritesValidJournal(t *testing.T) {
	workDir := t.TempDir()
	outDir := filepath.Join(workDir, "out")
	journalPath := filepath.Join(workDir, "run.json")
	cfgPath := writeFastConfig(t, workDir)
	f := writeInput(t, workDir, "in.txt", "abc")

	result, err := icl.Run(context.Background(), []string{
		"-config", cfgPath,
		"-output-dir", outDir,
		"-journal", journalPath,
		f,
	})
	require.NoError(t, err)
	assert.Equal(t, icl.ExitSuccess, result.ExitCode)

	raw, err := os.ReadFile(journalPath)
	require.NoError(t, err)

	var j journal.RunJournal
	require.NoError(t, json.Unmarshal(raw, &j))
	require.NoError(t, j.Validate())

	kinds := map[journal.EventKind]int{}
	for _, e := range j.Events {
		kinds[e.Kind]++
	}
	assert.Equal(t, 1, kinds[journal.EventWorkerSpawned])
	assert.Equal(t, 1, kinds[journal.EventWorkerTerminated])
	assert.Equal(t, 1, kinds[journal.EventResultPersisted])
}

func TestRun_NoArgumentsFailsBeforeAnySideEffect(t *testing.T) {
	workDir := t.TempDir()
	outDir := filepath.Join(workDir, "out")

	result, err := icl.Run(context.Background(), []string{"-output-dir", outDir})
	require.Error(t, err)
	assert.Equal(t, icl.ExitFailure, result.ExitCode)
	assert.Equal(t, int64(0), result.Spawned)

	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr), "no side effects before validation")
}

func TestRun_TooManyArgumentsFailsBeforeSpawning(t *testing.T) {
	workDir := t.TempDir()
	cfgPath := filepath.Join(workDir, "parhist.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`max_workers = 2`), 0o644))

	result, err := icl.Run(context.Background(), []string{
		"-config", cfgPath,
		"a.txt", "b.txt", "c.txt",
	})
	require.Error(t, err)
	assert.Equal(t, icl.ExitFailure, result.ExitCode)
	assert.Equal(t, int64(0), result.Spawned)
}
