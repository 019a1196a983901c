package contract

import (
	"context"
	"io"
)

// Writer: 将正文落盘到目标路径（RecordWriter）。
// 约束：
//  1. 幂等创建父目录；
//  2. 覆盖写（截断或原子替换），从不追加；
//  3. 按字节透传，不读取/修改业务内容；
//  4. 错误直接上抛（不做重试/回退），由编排层记录后继续。
type Writer interface {
	Write(ctx context.Context, path Path, r io.Reader) error
}
