package disabled

import (
	"fmt"

	"docsplit/pkg/contract"
)

// Disabled: 关闭推断，所有记录均落到回退路径（声明路径同样忽略）。
type Disabled struct{}

// New 创建关闭推断策略。
func New() *Disabled { return &Disabled{} }

var _ contract.Inference = (*Disabled)(nil)

// Infer 实现 contract.Inference。
func (Disabled) Infer(_ contract.Record, seq int) (string, string, bool, error) {
	return "", "", false, contract.NewIssue(contract.ErrPathInference,
		fmt.Sprintf("Path inference disabled. Using default for part %d.", seq), nil)
}
