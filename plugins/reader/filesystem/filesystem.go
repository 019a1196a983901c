package filesystem

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"docsplit/pkg/contract"
)

// Options 为 FileSystem Reader 的可选配置（最小必要）。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `yaml:"buf_size"`
	// AllowInvalidUTF8: 为真时跳过 UTF-8 校验。默认严格校验。
	AllowInvalidUTF8 bool `yaml:"allow_invalid_utf8"`
}

// FileSystem 实现基于文件系统与 STDIN 的 Reader。
type FileSystem struct {
	bufSize int
	lenient bool
	stdin   io.Reader
}

// New 创建 FileSystem Reader。
func New(opts *Options) *FileSystem {
	const defaultBuf = 64 * 1024
	b := defaultBuf
	lenient := false
	if opts != nil {
		if opts.BufSize > 0 {
			b = opts.BufSize
		}
		lenient = opts.AllowInvalidUTF8
	}
	return &FileSystem{bufSize: b, lenient: lenient, stdin: os.Stdin}
}

var _ contract.Reader = (*FileSystem)(nil)

// Read 一次性读取 source 全文；"-" 表示 STDIN。
// 任何读取失败（不存在、是目录、无权限、非法编码）均包裹为 ErrSourceUnavailable。
func (r *FileSystem) Read(ctx context.Context, source string) (contract.RawDocument, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	src := strings.TrimSpace(source)
	if src == "" {
		return "", fmt.Errorf("%w: empty source path", contract.ErrSourceUnavailable)
	}
	var in io.Reader
	if src == "-" {
		in = r.stdin
	} else {
		info, err := os.Stat(src)
		if err != nil {
			return "", fmt.Errorf("%w: %w", contract.ErrSourceUnavailable, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("%w: %s is a directory", contract.ErrSourceUnavailable, src)
		}
		f, err := os.Open(src)
		if err != nil {
			return "", fmt.Errorf("%w: %w", contract.ErrSourceUnavailable, err)
		}
		defer f.Close()
		in = f
	}

	b, err := io.ReadAll(bufio.NewReaderSize(in, r.bufSize))
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", contract.ErrSourceUnavailable, src, err)
	}
	if !r.lenient && !utf8.Valid(b) {
		return "", fmt.Errorf("%w: %s", contract.ErrSourceUnavailable, errInvalidUTF8)
	}
	// 最小必要归一：CRLF→LF，孤立 CR 同样视为换行
	s := strings.ReplaceAll(string(b), "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return contract.RawDocument(s), nil
}

var errInvalidUTF8 = errors.New("decode error: invalid UTF-8")
