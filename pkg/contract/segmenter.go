package contract

import "context"

// Segmenter: 将 RawDocument 按方言切分为有序 Record 序列，经 yield 逐条交付。
// 约束：
// 1) 惰性、有限、单遍；yield 返回错误时立即停止并原样返回；
// 2) 保持文档顺序，Index 严格递增；
// 3) 不产出空记录（裁剪后为空的段直接跳过）；
// 4) 无内部并发。
type Segmenter interface {
	Segment(ctx context.Context, doc RawDocument, yield func(Record) error) error
}
