package filesystem

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsplit/pkg/contract"
)

func boolPtr(b bool) *bool { return &b }

func noTmpLeft(t *testing.T, dir string) {
	t.Helper()
	_ = filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err == nil && strings.HasPrefix(d.Name(), ".tmp-") {
			t.Fatalf("临时文件未清理: %s", p)
		}
		return nil
	})
}

// 原子写：按层级创建目录并写出
func TestWriteAtomicNested(t *testing.T) {
	dir := t.TempDir()
	w, err := New(&Options{OutputDir: dir})
	require.NoError(t, err)

	require.NoError(t, w.Write(context.Background(), "docs/stories/1.1.md", strings.NewReader("---\nbody")))
	b, err := os.ReadFile(filepath.Join(dir, "docs", "stories", "1.1.md"))
	require.NoError(t, err)
	assert.Equal(t, "---\nbody", string(b))
	noTmpLeft(t, dir)
}

// 目标已存在时整体覆盖，不追加
func TestWriteOverwritesExisting(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		dir := t.TempDir()
		w, err := New(&Options{OutputDir: dir, Atomic: boolPtr(atomic)})
		require.NoError(t, err)
		ctx := context.Background()
		require.NoError(t, w.Write(ctx, "out.md", strings.NewReader("a much longer first version")))
		require.NoError(t, w.Write(ctx, "out.md", strings.NewReader("v2")))
		b, err := os.ReadFile(filepath.Join(dir, "out.md"))
		require.NoError(t, err)
		assert.Equal(t, "v2", string(b), "atomic=%v", atomic)
		noTmpLeft(t, dir)
	}
}

// 空正文也会产出空文件
func TestWriteEmptyBody(t *testing.T) {
	dir := t.TempDir()
	w, _ := New(&Options{OutputDir: dir})
	require.NoError(t, w.Write(context.Background(), "docs/empty.md", strings.NewReader("")))
	fi, err := os.Stat(filepath.Join(dir, "docs", "empty.md"))
	require.NoError(t, err)
	assert.Zero(t, fi.Size())
}

func TestWriteFlat(t *testing.T) {
	dir := t.TempDir()
	w, _ := New(&Options{OutputDir: dir, Flat: boolPtr(true)})
	require.NoError(t, w.Write(context.Background(), "docs/a/b.md", strings.NewReader("x")))
	_, err := os.Stat(filepath.Join(dir, "b.md"))
	assert.NoError(t, err)
}

// 路径越界与非法路径
func TestWritePathInvalid(t *testing.T) {
	dir := t.TempDir()
	w, _ := New(&Options{OutputDir: dir})
	for _, p := range []contract.Path{"", "  ", ".", "..", "../bad.md", "a/../../bad.md", "/abs.md"} {
		err := w.Write(context.Background(), p, strings.NewReader("x"))
		assert.ErrorIs(t, err, contract.ErrPathInvalid, "path %q", p)
	}
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestDestMapsUnderRoot(t *testing.T) {
	w, _ := New(&Options{OutputDir: "out"})
	d, err := w.Dest("docs//a.md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", "docs", "a.md"), d)
	assert.Equal(t, "out", w.Root())
}

// 父目录位置被普通文件占用时报告建目录失败
func TestWriteCreateDirectoryFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs"), []byte("file"), 0o644))
	w, _ := New(&Options{OutputDir: dir})
	err := w.Write(context.Background(), "docs/a.md", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create directory ")
}

// 目标是目录时报告写文件失败
func TestWriteFileFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs", "a.md"), 0o755))
	w, _ := New(&Options{OutputDir: dir, Atomic: boolPtr(false)})
	err := w.Write(context.Background(), "docs/a.md", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write file ")
}

func TestWriteCtxCancel(t *testing.T) {
	dir := t.TempDir()
	w, _ := New(&Options{OutputDir: dir})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.Write(ctx, "a.md", strings.NewReader("data")), context.Canceled)
}

func TestNewInvalid(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	_, err = New(&Options{OutputDir: " "})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

// 原子写拷贝失败时清理临时文件
func TestWriteAtomicCopyError(t *testing.T) {
	dir := t.TempDir()
	w, _ := New(&Options{OutputDir: dir})
	err := w.Write(context.Background(), "a.md", errReader{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestReaderWithCtxCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := readerWithCtx(ctx, bytes.NewReader([]byte("data")))
	cancel()
	_, err := r.Read(make([]byte, 1))
	assert.ErrorIs(t, err, context.Canceled)
}
