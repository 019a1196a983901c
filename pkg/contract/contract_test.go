package contract

import (
	"errors"
	"io/fs"
	"testing"
)

// TestNormalizePath 验证路径规范化逻辑。
func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"普通相对路径", "docs/foo.md", "docs/foo.md"},
		{"空串", "", "."},
		{"父目录回退", "./x/../y", "y"},

		// 反斜杠转换
		{"Windows路径", "docs\\stories\\1.1.story.md", "docs/stories/1.1.story.md"},
		{"混合分隔符", "docs\\a/b\\c.md", "docs/a/b/c.md"},

		// path.Clean 功能
		{"清理多余斜杠", "docs//arch///tech-stack.md", "docs/arch/tech-stack.md"},
		{"清理当前目录", "docs/./arch/./x.md", "docs/arch/x.md"},

		// 边界情况
		{"单个点", ".", "."},
		{"双点", "..", ".."},
		{"根路径", "/", "/"},
		{"复杂父目录", "a\\b\\..\\..\\..\\d", "../d"},
		{"中文路径", "文档\\架构.md", "文档/架构.md"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePath(tt.input); string(got) != tt.expected {
				t.Errorf("NormalizePath(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

// TestUnder 目录归属按路径段判断。
func TestUnder(t *testing.T) {
	cases := []struct {
		p    Path
		dir  string
		want bool
	}{
		{"docs/foo.md", "docs", true},
		{"docs/foo.md", "docs/", true},
		{"docsx/foo.md", "docs", false},
		{"foo.md", "docs", false},
		{"docs", "docs", false},
		{"docs/foo.md", "", false},
		{"docs/foo.md", ".", false},
	}
	for _, c := range cases {
		if got := Under(c.p, c.dir); got != c.want {
			t.Fatalf("Under(%q,%q)=%v want %v", c.p, c.dir, got, c.want)
		}
	}
}

// TestIssueUnwrap Issue 同时匹配分类与原因。
func TestIssueUnwrap(t *testing.T) {
	cause := &fs.PathError{Op: "open", Path: "x", Err: fs.ErrPermission}
	is := NewIssue(ErrWriteFailure, "Error writing file x", cause)
	if !errors.Is(is, ErrWriteFailure) || !errors.Is(is, fs.ErrPermission) {
		t.Fatalf("issue 未正确解包")
	}
	if is.Error() != "Error writing file x" {
		t.Fatalf("消息错误: %q", is.Error())
	}
	if NewIssue(nil, "", cause).Error() != cause.Error() {
		t.Fatalf("空消息应回退到 cause")
	}
}

// TestRecordErrorJoin 同一记录的多个异常合并为一条。
func TestRecordErrorJoin(t *testing.T) {
	re := &RecordError{Index: 1, Path: "docs/a.md", Errs: []error{
		NewIssue(ErrPathInference, "first", nil),
		nil,
		NewIssue(ErrWriteFailure, "second", nil),
	}}
	if re.Error() != "first; second" {
		t.Fatalf("合并消息错误: %q", re.Error())
	}
	if !errors.Is(re, ErrPathInference) || !errors.Is(re, ErrWriteFailure) {
		t.Fatalf("RecordError 应可匹配各分类")
	}
	if errors.Is(re, ErrMalformedRecord) {
		t.Fatalf("不应匹配未出现的分类")
	}
}

// TestOutcomeAdd 计数不变量。
func TestOutcomeAdd(t *testing.T) {
	var o Outcome
	o.Add(0, "docs/a.md", true, nil)
	o.Add(1, "docs/architecture_part_2.md", true, errors.New("fallback"))
	o.Add(2, "docs/c.md", false, errors.New("write"))
	o.Add(3, "docs/d.md", false, nil)

	if o.Attempted != 4 || o.Written != 2 || o.Degraded != 1 || o.Failed != 2 {
		t.Fatalf("计数错误: %+v", o)
	}
	if o.Attempted != o.Clean()+o.Degraded+o.Failed {
		t.Fatalf("attempted 不变量被破坏: %+v", o)
	}
	if len(o.Errors) != o.Degraded+o.Failed {
		t.Fatalf("错误数应等于异常记录数: %v", o.Errors)
	}
	if o.Entries[1].Status != StatusDegraded || o.Entries[3].Message != "write failed" {
		t.Fatalf("entry 状态错误: %+v", o.Entries)
	}
}
