package diag

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"docsplit/pkg/contract"
)

// Terminal: 面向用户的进度与总结（非日志）。
// - 每条记录一行：[ok] / [warn] / [fail]
// - TTY 上用 lipgloss 着色，非 TTY（含 CI）输出纯文本
// - 并发安全；写失败后转为禁用态
type Terminal struct {
	w       io.Writer
	enabled bool
	isTTY   bool

	runStart time.Time
	mu       sync.Mutex
}

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8a93a3"))
	headStyle  = lipgloss.NewStyle().Bold(true)
)

// 进程级终端（可选）。
var (
	termMu sync.RWMutex
	term   *Terminal
)

// SetTerminal 设置全局终端（nil 清除）。
func SetTerminal(t *Terminal) { termMu.Lock(); term = t; termMu.Unlock() }

// GetTerminal 返回全局终端（可能为 nil）。
func GetTerminal() *Terminal { termMu.RLock(); defer termMu.RUnlock(); return term }

// NewTerminal 构造终端输出；w 为 nil 时使用 stdout，enabled=false 时总是 no-op。
func NewTerminal(w io.Writer, enabled bool) *Terminal {
	if w == nil {
		w = os.Stdout
	}
	t := &Terminal{w: w, enabled: enabled}
	if os.Getenv("CI") == "" {
		if f, ok := w.(*os.File); ok {
			t.isTTY = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
	}
	return t
}

// RunStart 打印运行头。
func (t *Terminal) RunStart(profile, source string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runStart = time.Now()
	t.println(t.style(headStyle, fmt.Sprintf("[run] profile=%s | source=%s", safe(profile), safe(source))))
}

// Record 打印单条记录的处理结果。
func (t *Terminal) Record(e contract.Entry) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e.Status {
	case contract.StatusWritten:
		t.println(fmt.Sprintf("%s Successfully wrote: %s", t.style(okStyle, "[ok]"), e.Path))
	case contract.StatusDegraded:
		t.println(fmt.Sprintf("%s Wrote %s %s", t.style(warnStyle, "[warn]"), e.Path, t.style(mutedStyle, "("+safe(e.Message)+")")))
	default:
		t.println(fmt.Sprintf("%s %s: %s", t.style(failStyle, "[fail]"), e.Path, safe(e.Message)))
	}
}

// Notice 打印一条提示（例如未找到任何记录）。
func (t *Terminal) Notice(msg string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.println(fmt.Sprintf("%s %s", t.style(warnStyle, "[warn]"), safe(msg)))
}

// RunFinish 打印总结：计数、用时与全部可恢复异常（原文）。
func (t *Terminal) RunFinish(o contract.Outcome) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	var dur time.Duration
	if !t.runStart.IsZero() {
		dur = time.Since(t.runStart)
	}
	t.println("")
	t.println(t.style(headStyle, "--- Summary ---"))
	t.println(fmt.Sprintf("Files created/updated: %d (clean %d, degraded %d, failed %d) in %s",
		o.Written, o.Clean(), o.Degraded, o.Failed, formatDur(dur)))
	if len(o.Errors) == 0 {
		t.println("No errors encountered.")
		return
	}
	t.println(t.style(warnStyle, fmt.Sprintf("Errors encountered: %d", len(o.Errors))))
	for _, msg := range o.Errors {
		t.println("- " + safe(msg))
	}
}

func (t *Terminal) style(s lipgloss.Style, text string) string {
	if !t.isTTY {
		return text
	}
	return s.Render(text)
}

func (t *Terminal) println(s string) {
	if !t.enabled {
		return
	}
	if _, err := io.WriteString(t.w, s+"\n"); err != nil {
		t.enabled = false
	}
}

// safe 去除换行，避免污染单行输出。
func safe(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

func formatDur(d time.Duration) string {
	if d < time.Second {
		ms := d.Milliseconds()
		if ms < 0 {
			ms = 0
		}
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(d.Milliseconds())/1000.0)
}
