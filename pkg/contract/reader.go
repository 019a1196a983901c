package contract

import "context"

// Reader: 源文档获取抽象。
// 约束：
// 1) 一次性读取全文，运行期间不再重读；
// 2) 做 CRLF→LF 的最小必要归一，不做其他清洗；
// 3) 源不可用时返回包裹 ErrSourceUnavailable 的错误。
type Reader interface {
	Read(ctx context.Context, source string) (RawDocument, error)
}
