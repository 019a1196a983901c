package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsplit/internal/diag"
	"docsplit/internal/pipeline"
)

// isolate 切换到临时工作目录，隔离 .env/docsplit.yaml 与日志目录。
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, k := range []string{"DOCSPLIT_CONFIG_FILE", "DOCSPLIT_PROFILE", "DOCSPLIT_SOURCE", "DOCSPLIT_OUTPUT_DIR",
		"DOCSPLIT_LOG_LEVEL", "DOCSPLIT_LEDGER_PATH", "DOCSPLIT_COMPONENTS_INFERENCE"} {
		t.Setenv(k, "")
	}
	t.Setenv("DOCSPLIT_LOG_DIR", filepath.Join(dir, "logs"))
	diag.ResetMetrics()
	return dir
}

func execute(args ...string) (int, string, string) {
	var out, errb bytes.Buffer
	code := run(args, &out, &errb)
	return code, out.String(), errb.String()
}

const archDoc = "Export to Sheets\ndocs/foo.md\nHello world\nExport to Sheets\nbar\nOnly this"

func TestRunArchitecture(t *testing.T) {
	dir := isolate(t)
	src := filepath.Join(dir, "arch.txt")
	require.NoError(t, os.WriteFile(src, []byte(archDoc), 0o644))
	out := filepath.Join(dir, "out")

	code, stdout, stderr := execute("--output-dir", out, src)
	require.Equal(t, 0, code, stderr)

	b, err := os.ReadFile(filepath.Join(out, "docs", "foo.md"))
	require.NoError(t, err)
	assert.Equal(t, "Hello world", string(b))
	b, err = os.ReadFile(filepath.Join(out, "docs", "architecture_part_2.md"))
	require.NoError(t, err)
	assert.Equal(t, "bar\nOnly this", string(b))

	assert.Contains(t, stdout, "[run] profile=architecture | source="+src)
	assert.Contains(t, stdout, "[ok] Successfully wrote: docs/foo.md")
	assert.Contains(t, stdout, "Files created/updated: 2 (clean 1, degraded 1, failed 0)")
	assert.Contains(t, stdout, "Errors encountered: 1")
	assert.FileExists(t, filepath.Join(dir, "logs", "docsplit-current.log"))
}

func TestRunStoriesFromEnvAndConfigFile(t *testing.T) {
	dir := isolate(t)
	src := filepath.Join(dir, "stories.txt")
	doc := "intro\n---\nFile: docs/stories/1.1.md\n---\nStory one\n---\nFile: docs/stories/1.2.md\n---\nStory two"
	require.NoError(t, os.WriteFile(src, []byte(doc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docsplit.yaml"), []byte("profile: stories\noutput_dir: out\n"), 0o644))
	t.Setenv("DOCSPLIT_SOURCE", src)

	code, stdout, stderr := execute("--quiet")
	require.Equal(t, 0, code, stderr)
	assert.Empty(t, stdout)
	b, err := os.ReadFile(filepath.Join(dir, "out", "docs", "stories", "1.1.md"))
	require.NoError(t, err)
	assert.Equal(t, "---\nStory one", string(b))
	assert.FileExists(t, filepath.Join(dir, "out", "docs", "stories", "1.2.md"))
}

func TestRunSourceMissing(t *testing.T) {
	isolate(t)
	code, _, stderr := execute("nope.txt")
	assert.Equal(t, 1, code)
	assert.Equal(t, "Error: Source file 'nope.txt' not found.\n", stderr)
}

func TestRunConfigErrors(t *testing.T) {
	dir := isolate(t)
	code, _, stderr := execute("--profile", "missing", "x.txt")
	assert.Equal(t, 3, code)
	assert.Contains(t, stderr, `profile "missing" not found`)

	code, _, _ = execute("--log-level", "loud", "x.txt")
	assert.Equal(t, 3, code)

	code, _, stderr = execute("--no-such-flag")
	assert.Equal(t, 3, code)
	assert.Contains(t, stderr, "unknown flag")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("profil: x\n"), 0o644))
	code, _, stderr = execute("--config", bad, "x.txt")
	assert.Equal(t, 3, code)
	assert.Contains(t, stderr, "parse config")
}

// 中止时退出码 1，并输出已处理部分的总结
func TestRunAborted(t *testing.T) {
	dir := isolate(t)
	src := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(src, []byte(archDoc), 0o644))
	old := pipelineRun
	pipelineRun = func(ctx context.Context, comp pipeline.Components, set pipeline.Settings, logger *diag.Logger) (pipeline.Report, error) {
		return pipeline.Report{State: pipeline.StateProcessing}, context.Canceled
	}
	t.Cleanup(func() { pipelineRun = old })

	code, stdout, stderr := execute(src)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Aborted: context canceled")
	assert.Contains(t, stdout, "--- Summary ---")
}

func TestInitConfig(t *testing.T) {
	dir := isolate(t)
	target := filepath.Join(dir, "cfg")
	code, stdout, stderr := execute("init-config", target)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "created: "+filepath.Join(target, "docsplit.yaml"))
	assert.FileExists(t, filepath.Join(target, ".env"))

	code, stdout, _ = execute("init-config", target)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "skipped (exists): "+filepath.Join(target, "docsplit.yaml"))

	// 生成的模板可直接作为配置使用
	src := filepath.Join(dir, "arch.txt")
	require.NoError(t, os.WriteFile(src, []byte(archDoc), 0o644))
	code, _, stderr = execute("--config", filepath.Join(target, "docsplit.yaml"), "--output-dir", "out", "-q", src)
	require.Equal(t, 0, code, stderr)
	assert.FileExists(t, filepath.Join(dir, "out", "docs", "foo.md"))
}

func TestLedgerAndHistory(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "state", "history.db")

	code, stdout, _ := execute("history", "--ledger", db)
	require.Equal(t, 0, code)
	assert.Equal(t, "No runs recorded.\n", stdout)

	src := filepath.Join(dir, "arch.txt")
	require.NoError(t, os.WriteFile(src, []byte(archDoc), 0o644))
	code, _, stderr := execute("-q", "--ledger", db, "--output-dir", "out", src)
	require.Equal(t, 0, code, stderr)
	code, _, _ = execute("-q", "--ledger", db, "missing.txt")
	require.Equal(t, 1, code)

	t.Setenv("DOCSPLIT_LEDGER_PATH", db)
	code, stdout, stderr = execute("history", "-n", "5")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "written=2 degraded=1 failed=0")
	assert.Contains(t, stdout, "missing.txt")
	assert.Contains(t, stdout, "error: reader read:")

	t.Setenv("DOCSPLIT_LEDGER_PATH", "")
	code, _, stderr = execute("history")
	assert.Equal(t, 3, code)
	assert.Contains(t, stderr, "ledger.path not set")
}
