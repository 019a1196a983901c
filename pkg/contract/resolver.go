package contract

import "context"

// Inference: 可插拔的路径推断策略（纯计算，无 I/O）。
// 成功返回 (路径, 正文, 是否来自声明)；失败返回包裹 ErrPathInference 的 *Issue，
// 由 PathResolver 负责回退。seq 为本次运行中该记录的 1 基解析序号，仅用于消息。
type Inference interface {
	Infer(rec Record, seq int) (path string, body string, declared bool, err error)
}

// PathResolver: 为 Record 推导 Target。
// 约束：总是返回可用的 Target；err 非空时为描述降级原因的 *Issue（从不中止运行）。
type PathResolver interface {
	Resolve(ctx context.Context, rec Record) (Target, error)
}
