package contract

import (
	"errors"
	"strings"
)

// 错误分类：仅 ErrSourceUnavailable 为致命，其余均可恢复（记录后继续）。
var (
	// ErrSourceUnavailable: 源文档无法读取，整次运行中止。
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrPathInference: 首行不像路径或模式提取失败，降级为回退路径。
	ErrPathInference = errors.New("path inference failed")
	// ErrMalformedRecord: keyed 记录正文不符合期望，仍按最佳努力写出。
	ErrMalformedRecord = errors.New("malformed record")
	// ErrWriteFailure: 单条记录的建目录或写文件失败。
	ErrWriteFailure = errors.New("write failure")
	// ErrPathInvalid: 目标路径无效/越界（绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvalidInput: 组件收到不满足前置条件的输入（通用哨兵）。
	ErrInvalidInput = errors.New("invalid input")
)

// Issue: 单条可恢复异常。Error() 只返回面向用户的消息；
// errors.Is 同时匹配 Kind 与 Cause。
type Issue struct {
	Kind  error
	Msg   string
	Cause error
}

// NewIssue 构造 Issue。
func NewIssue(kind error, msg string, cause error) *Issue {
	return &Issue{Kind: kind, Msg: msg, Cause: cause}
}

func (e *Issue) Error() string {
	if e.Cause != nil && e.Msg == "" {
		return e.Cause.Error()
	}
	return e.Msg
}

func (e *Issue) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// RecordError 汇总同一记录上的全部异常（推断/畸形/写失败），保证每条记录至多一条错误项。
type RecordError struct {
	Index int
	Path  Path
	Errs  []error
}

func (e *RecordError) Error() string {
	parts := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		if err == nil {
			continue
		}
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, "; ")
}

func (e *RecordError) Unwrap() []error { return e.Errs }
