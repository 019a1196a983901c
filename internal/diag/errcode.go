package diag

import (
	"context"
	"errors"
	"os"

	"docsplit/pkg/contract"
)

// Code 是日志/指标使用的错误分类，与退出码解耦。
type Code string

const (
	CodeUnknown   Code = "unknown"
	CodeSource    Code = "source"
	CodeInference Code = "inference"
	CodeMalformed Code = "malformed"
	CodeIO        Code = "io"
	CodeInvariant Code = "invariant"
	CodeCancel    Code = "cancel"
)

// Classify 按哨兵错误与标准库错误类型归类，不做字符串匹配。
// 一条记录聚合多个异常时取最严重者：invariant > io > malformed > inference。
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeUnknown
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return CodeCancel
	case errors.Is(err, contract.ErrSourceUnavailable):
		return CodeSource
	case errors.Is(err, contract.ErrPathInvalid) || errors.Is(err, contract.ErrInvalidInput):
		return CodeInvariant
	case errors.Is(err, contract.ErrWriteFailure):
		return CodeIO
	case errors.Is(err, contract.ErrMalformedRecord):
		return CodeMalformed
	case errors.Is(err, contract.ErrPathInference):
		return CodeInference
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	return CodeUnknown
}
