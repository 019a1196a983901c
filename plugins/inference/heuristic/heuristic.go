package heuristic

import (
	"fmt"
	"regexp"
	"strings"

	"docsplit/pkg/contract"
)

// Options 为首行嗅探策略的可选配置。
type Options struct {
	// Extensions: 视为文件名来源的扩展名（区分大小写，包含点）。
	// 为空时采用默认 [".md", ".txt"]。
	Extensions []string `yaml:"extensions"`
}

// Heuristic: 声明路径优先；否则嗅探首个非空行。
// 候选首行以已知扩展名结尾或包含 '/' 时才尝试提取路径记号。
type Heuristic struct {
	exts []string
}

// New 创建首行嗅探策略。
func New(opts *Options) *Heuristic {
	exts := []string{".md", ".txt"}
	if opts != nil && len(opts.Extensions) > 0 {
		exts = nil
		for _, e := range opts.Extensions {
			if e = strings.TrimSpace(e); e != "" {
				exts = append(exts, e)
			}
		}
	}
	return &Heuristic{exts: exts}
}

var _ contract.Inference = (*Heuristic)(nil)

var pathTokenRe = regexp.MustCompile(`[a-zA-Z0-9_\-/]+\.[a-zA-Z]+`)

// Infer 实现 contract.Inference。
func (h *Heuristic) Infer(rec contract.Record, seq int) (string, string, bool, error) {
	if rec.Declared && rec.DeclaredPath != "" {
		return rec.DeclaredPath, rec.DeclaredBody, true, nil
	}
	header, rest := splitHeader(rec.Text)
	if header == "" || !h.qualifies(header) {
		return "", "", false, contract.NewIssue(contract.ErrPathInference,
			fmt.Sprintf("First line '%s' did not look like a filename. Using default for part %d.", header, seq), nil)
	}
	token := longestToken(header)
	if token == "" {
		return "", "", false, contract.NewIssue(contract.ErrPathInference,
			fmt.Sprintf("Could not parse a valid filename from potential first line: '%s'. Using default for part %d.", header, seq), nil)
	}
	return token, strings.TrimSpace(rest), false, nil
}

func (h *Heuristic) qualifies(header string) bool {
	if strings.Contains(header, "/") {
		return true
	}
	for _, e := range h.exts {
		if strings.HasSuffix(header, e) {
			return true
		}
	}
	return false
}

// longestToken 返回最长的路径记号；等长取最先出现者。
func longestToken(s string) string {
	best := ""
	for _, m := range pathTokenRe.FindAllString(s, -1) {
		if len(m) > len(best) {
			best = m
		}
	}
	return best
}

// splitHeader 返回首个非空行（已裁剪）及其后的全部文本。
func splitHeader(text string) (string, string) {
	for text != "" {
		line, rest, _ := strings.Cut(text, "\n")
		if t := strings.TrimSpace(line); t != "" {
			return t, rest
		}
		text = rest
	}
	return "", ""
}
