package diag

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger: 结构化 JSON 事件日志（zap）。
// 每条事件带 corr_id/comp/stage，可选 path/index/code/dur_ms/count。
// nil *Logger 的所有方法均为 no-op。
type Logger struct {
	corrID string
	z      *zap.Logger
	sink   *RotatingFile
}

// NewLogger 写入 dir 下的轮转文件（10MiB）；文件不可写时退回 stderr。
func NewLogger(corrID, level, dir string) *Logger {
	sink := NewRotatingFile(dir, DefaultLogMaxBytes)
	l := newLogger(corrID, level, zapcore.AddSync(&fallbackWriter{primary: sink, fallback: os.Stderr}))
	l.sink = sink
	return l
}

// NewLoggerTo 将日志写入 w（测试与 logging.dir 为 "-" 时使用）。
func NewLoggerTo(w io.Writer, corrID, level string) *Logger {
	return newLogger(corrID, level, zapcore.AddSync(w))
}

// Nop 返回丢弃一切输出的 Logger。
func Nop() *Logger { return &Logger{z: zap.NewNop()} }

func newLogger(corrID, level string, ws zapcore.WriteSyncer) *Logger {
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     utcRFC3339,
		EncodeDuration: zapcore.MillisDurationEncoder,
	})
	core := zapcore.NewCore(enc, zapcore.Lock(ws), ParseLevel(level))
	z := zap.New(core).With(zap.String("corr_id", corrID))
	return &Logger{corrID: corrID, z: z}
}

func utcRFC3339(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format(time.RFC3339))
}

// ParseLevel 解析 debug|info|warn|error；其他值按 info。
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ValidLevel 判断 s 是否为受支持的级别名。
func ValidLevel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// CorrID 返回本 Logger 的关联 ID。
func (l *Logger) CorrID() string {
	if l == nil {
		return ""
	}
	return l.corrID
}

// LogPath 返回文件日志的当前路径；非文件 sink 时为空。
func (l *Logger) LogPath() string {
	if l == nil || l.sink == nil {
		return ""
	}
	return l.sink.CurrentPath()
}

func (l *Logger) ok() bool { return l != nil && l.z != nil }

func event(comp, stage string, extra ...zap.Field) []zap.Field {
	return append([]zap.Field{zap.String("comp", comp), zap.String("stage", stage)}, extra...)
}

func recordFields(path string, index int) []zap.Field {
	var fs []zap.Field
	if path != "" {
		fs = append(fs, zap.String("path", path))
	}
	if index >= 0 {
		fs = append(fs, zap.Int("index", index))
	}
	return fs
}

func kvFields(kv map[string]string) []zap.Field {
	if len(kv) == 0 {
		return nil
	}
	return []zap.Field{zap.Any("kv", kv)}
}

func durSinceField(since *time.Time) []zap.Field {
	if since == nil {
		return nil
	}
	return []zap.Field{zap.Int64("dur_ms", time.Since(*since).Milliseconds())}
}

// Start 记录 start 事件并返回计时器。
func (l *Logger) Start(comp, msg string) *Timer {
	return l.StartWith(comp, msg, "", -1)
}

// StartWith 记录带 path/index 的 start；index<0 表示不适用。
func (l *Logger) StartWith(comp, msg, path string, index int) *Timer {
	if l.ok() {
		l.z.Info(msg, event(comp, "start", recordFields(path, index)...)...)
	}
	return &Timer{l: l, comp: comp, path: path, index: index, t0: time.Now()}
}

// Info 记录一条 info 事件。
func (l *Logger) Info(comp, msg string, kv map[string]string) {
	if l.ok() {
		l.z.Info(msg, event(comp, "info", kvFields(kv)...)...)
	}
}

// Warn 记录可恢复异常（降级写出等）。
func (l *Logger) Warn(comp string, code Code, msg, path string, index int) {
	if !l.ok() {
		return
	}
	fs := append(recordFields(path, index), zap.String("code", string(code)))
	l.z.Warn(msg, event(comp, "warn", fs...)...)
}

// Error 记录 error 事件。
func (l *Logger) Error(comp string, code Code, msg string, durSince *time.Time) {
	l.ErrorWith(comp, code, msg, durSince, "", -1)
}

// ErrorWith 记录带 path/index 的 error 事件。
func (l *Logger) ErrorWith(comp string, code Code, msg string, durSince *time.Time, path string, index int) {
	if !l.ok() {
		return
	}
	fs := append(recordFields(path, index), zap.String("code", string(code)))
	fs = append(fs, durSinceField(durSince)...)
	l.z.Error(msg, event(comp, "error", fs...)...)
}

// DebugStart 输出调试级 start 事件（level=debug 时生效）。
func (l *Logger) DebugStart(comp, msg string, kv map[string]string) {
	if l.ok() {
		l.z.Debug(msg, event(comp, "start", kvFields(kv)...)...)
	}
}

// Debug 输出调试级事件。
func (l *Logger) Debug(comp, msg string, kv map[string]string) {
	if l.ok() {
		l.z.Debug(msg, event(comp, "debug", kvFields(kv)...)...)
	}
}

// Sync 刷新缓冲并关闭文件 sink。
func (l *Logger) Sync() error {
	if !l.ok() {
		return nil
	}
	err := l.z.Sync()
	if l.sink != nil {
		if cerr := l.sink.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Timer: start→finish 计时。
type Timer struct {
	l     *Logger
	comp  string
	path  string
	index int
	t0    time.Time
}

// Finish 记录 finish 事件；count 为本阶段处理的条目数。
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || !t.l.ok() {
		return
	}
	fs := append(recordFields(t.path, t.index),
		zap.Int64("dur_ms", time.Since(t.t0).Milliseconds()),
		zap.Int64("count", count))
	t.l.z.Info(msg, event(t.comp, "finish", fs...)...)
}

// Since 返回起点时间（供 Error 的 durSince 使用）。
func (t *Timer) Since() *time.Time {
	if t == nil {
		return nil
	}
	t0 := t.t0
	return &t0
}

// fallbackWriter: 主 sink 写失败时转写 fallback，并提示一次 sink 错误。
type fallbackWriter struct {
	primary  *RotatingFile
	fallback io.Writer
	warned   bool
}

func (w *fallbackWriter) Write(p []byte) (int, error) {
	n, err := w.primary.Write(p)
	if err == nil {
		return n, nil
	}
	if !w.warned {
		w.warned = true
		fmt.Fprintf(w.fallback, "logger sink error: %v\n", err)
	}
	return w.fallback.Write(p)
}

func (w *fallbackWriter) Sync() error { return w.primary.Sync() }
