package testdata

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "docsplit/internal/config"
	"docsplit/internal/diag"
	"docsplit/internal/pipeline"
	"docsplit/pkg/contract"
)

func runProfile(t *testing.T, profile, outDir string) pipeline.Report {
	t.Helper()
	cfg := cfgpkg.Defaults()
	cfg.Profile = profile
	cfg.Source = filepath.Join("files", profile+".txt")
	cfg.OutputDir = outDir
	comp, set, err := cfgpkg.Assemble(cfg)
	require.NoError(t, err)
	rep, err := pipeline.Run(context.Background(), comp, set, diag.Nop())
	require.NoError(t, err)
	require.Equal(t, pipeline.StateDone, rep.State)
	return rep
}

func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		out[filepath.ToSlash(rel)] = string(b)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestE2EArchitecture(t *testing.T) {
	out := t.TempDir()
	rep := runProfile(t, "architecture", out)

	want := map[string]string{
		"docs/index.md":               "# Architecture Overview\n\nThe exporter produces one long document; this repo turns it back into files.",
		"docs/tech-stack.md":          "# Tech Stack\n\n| Category | Technology |\n| --- | --- |\n| Language | Go |\n| Storage | SQLite |",
		"docs/architecture_part_3.md": "Data Models and Schema Changes\nThe schema is unchanged for this release.",
		"docs/coding-standards.md":    "# Coding Standards\n\nRun gofmt before committing.",
	}
	if diff := cmp.Diff(want, readTree(t, out)); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
	o := rep.Outcome
	assert.Equal(t, 4, rep.Records)
	assert.Equal(t, [3]int{4, 1, 0}, [3]int{o.Written, o.Degraded, o.Failed})
	require.Len(t, o.Errors, 1)
	assert.Equal(t, contract.StatusDegraded, o.Entries[2].Status)
}

func TestE2EStories(t *testing.T) {
	out := t.TempDir()
	rep := runProfile(t, "stories", out)

	want := map[string]string{
		"docs/stories/1.1.story.md": "---\n# Story 1.1: Project Setup\n\nStatus: Draft",
		"docs/stories/1.2.story.md": "---\n# Story 1.2: Config Loading\n\nStatus: Approved",
		"docs/stories/1.3.story.md": "# Story 1.3: Missing Separator",
	}
	if diff := cmp.Diff(want, readTree(t, out)); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
	o := rep.Outcome
	assert.Equal(t, [3]int{3, 1, 0}, [3]int{o.Written, o.Degraded, o.Failed})
	require.Len(t, o.Errors, 1)
	assert.Contains(t, o.Errors[0], "Content for 'docs/stories/1.3.story.md' does not start with '---' as expected.")
}

// 同一文档运行两次产出完全相同（覆盖写）
func TestE2EIdempotent(t *testing.T) {
	out := t.TempDir()
	runProfile(t, "architecture", out)
	first := readTree(t, out)
	runProfile(t, "architecture", out)
	assert.Equal(t, first, readTree(t, out))
}
