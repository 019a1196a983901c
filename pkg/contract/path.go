package contract

import (
	"path"
	"strings"
)

// NormalizePath 规范化路径，统一为跨平台稳定的 Path。
// 规则：
// - 使用正斜杠分隔符
// - 清理多余分隔符与路径片段（.、..）
// - 保留相对/绝对语义，不做隐式绝对化
func NormalizePath(p string) Path {
	s := strings.ReplaceAll(p, "\\", "/")
	return Path(path.Clean(s))
}

// Under 判断 p 是否位于目录 dir 之下（按路径段比较，dir 为空时恒假）。
func Under(p Path, dir string) bool {
	d := strings.TrimSuffix(string(NormalizePath(dir)), "/")
	if d == "" || d == "." {
		return false
	}
	return strings.HasPrefix(string(p), d+"/")
}
