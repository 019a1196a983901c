// Package resolve 将 Record 解析为落盘目标：推断、回退、畸形检查与布局规范化。
package resolve

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"docsplit/pkg/contract"
)

// IndexPlaceholder: FallbackName 中的序号占位符。
const IndexPlaceholder = "{index}"

// Layout: 输出路径布局。
type Layout struct {
	// OutputBase: 路径的逻辑基准目录；"." 或空为默认基准。
	OutputBase string
	// DefaultDir: 回退文件所在目录；Normalize 开启时也是推断路径的归属目录。
	DefaultDir string
	// FallbackName: 回退文件名模板，必须包含 {index}。
	FallbackName string
	// Normalize: 默认基准下，将不在 DefaultDir 之下的路径前置 DefaultDir。
	Normalize bool
}

// Resolver 实现 contract.PathResolver。
// 每次运行新建一个实例：seq 为本次运行的解析计数（1 基），回退序号由它派生。
type Resolver struct {
	inf    contract.Inference
	layout Layout
	seq    int
}

var _ contract.PathResolver = (*Resolver)(nil)

// New 构造解析器；FallbackName 缺少 {index} 时报错（回退序号必须互不相同）。
func New(inf contract.Inference, layout Layout) (*Resolver, error) {
	if inf == nil {
		return nil, fmt.Errorf("%w: resolve: nil inference", contract.ErrInvalidInput)
	}
	if !strings.Contains(layout.FallbackName, IndexPlaceholder) {
		return nil, fmt.Errorf("%w: resolve: fallback_name %q must contain %s", contract.ErrInvalidInput, layout.FallbackName, IndexPlaceholder)
	}
	if strings.TrimSpace(layout.OutputBase) == "" {
		layout.OutputBase = "."
	}
	return &Resolver{inf: inf, layout: layout}, nil
}

// Seq 返回已解析的记录数。
func (r *Resolver) Seq() int { return r.seq }

// Resolve 实现 contract.PathResolver。
func (r *Resolver) Resolve(_ context.Context, rec contract.Record) (contract.Target, error) {
	r.seq++
	seq := r.seq

	p, body, declared, err := r.inf.Infer(rec, seq)
	if err == nil && strings.TrimSpace(p) == "" {
		err = contract.NewIssue(contract.ErrPathInference,
			fmt.Sprintf("Empty path inferred. Using default for part %d.", seq), nil)
	}
	if err != nil {
		return contract.Target{
			Path:     r.place(r.FallbackPath(seq)),
			Body:     rec.Text,
			Fallback: true,
		}, err
	}

	t := contract.Target{Path: r.place(strings.TrimSpace(p)), Body: body, Declared: declared}
	if declared {
		return t, checkDeclared(p, body, rec.ExpectPrefix)
	}
	return t, nil
}

// FallbackPath 返回第 seq 条记录的回退路径（未经布局处理）。
func (r *Resolver) FallbackPath(seq int) string {
	name := strings.ReplaceAll(r.layout.FallbackName, IndexPlaceholder, strconv.Itoa(seq))
	return path.Join(r.layout.DefaultDir, name)
}

func (r *Resolver) place(p string) contract.Path {
	np := contract.NormalizePath(p)
	if base := r.layout.OutputBase; base != "." {
		return contract.NormalizePath(path.Join(base, string(np)))
	}
	if r.layout.Normalize && !contract.Under(np, r.layout.DefaultDir) {
		return contract.NormalizePath(path.Join(r.layout.DefaultDir, string(np)))
	}
	return np
}

// checkDeclared 宽松检查声明记录：异常只报告，正文仍原样写出。
func checkDeclared(p, body, expect string) error {
	if strings.TrimSpace(body) == "" {
		return contract.NewIssue(contract.ErrMalformedRecord,
			fmt.Sprintf("Malformed block for inferred path '%s': No content found after the path line.", p), nil)
	}
	if expect != "" && !strings.HasPrefix(body, expect) {
		return contract.NewIssue(contract.ErrMalformedRecord,
			fmt.Sprintf("Content for '%s' does not start with '%s' as expected. Found: '%s...'", p, expect, preview(body, 30)), nil)
	}
	return nil
}

// preview 取前 n 个字符，换行替换为空格。
func preview(s string, n int) string {
	rs := []rune(s)
	if len(rs) > n {
		rs = rs[:n]
	}
	return strings.ReplaceAll(string(rs), "\n", " ")
}
