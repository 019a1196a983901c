package declared

import (
	"fmt"

	"docsplit/pkg/contract"
)

// Declared: 严格模式，仅接受 keyed 方言的声明路径，从不嗅探正文。
type Declared struct{}

// New 创建仅声明策略。
func New() *Declared { return &Declared{} }

var _ contract.Inference = (*Declared)(nil)

// Infer 实现 contract.Inference。
func (Declared) Infer(rec contract.Record, seq int) (string, string, bool, error) {
	if rec.Declared && rec.DeclaredPath != "" {
		return rec.DeclaredPath, rec.DeclaredBody, true, nil
	}
	return "", "", false, contract.NewIssue(contract.ErrPathInference,
		fmt.Sprintf("Record %d declares no path. Using default for part %d.", rec.Index+1, seq), nil)
}
