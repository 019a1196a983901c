package diag

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// 进程内计数器：
// - op_total{comp,stage,result}
// - error_total{comp,code}
// - op_duration_ms{comp,stage}（累计毫秒）
var metrics = struct {
	mu   sync.Mutex
	vals map[string]int64
}{vals: map[string]int64{}}

func metricKey(name string, labels ...string) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i := 0; i+1 < len(labels); i += 2 {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%s", labels[i], labels[i+1])
	}
	b.WriteByte('}')
	return b.String()
}

func add(key string, v int64) {
	metrics.mu.Lock()
	metrics.vals[key] += v
	metrics.mu.Unlock()
}

// IncOp 累加操作计数（result=success|degraded|error）。
func IncOp(comp, stage, result string) {
	add(metricKey("op_total", "comp", comp, "stage", stage, "result", result), 1)
}

// IncError 按分类累加错误计数。
func IncError(comp string, code Code) {
	add(metricKey("error_total", "comp", comp, "code", string(code)), 1)
}

// ObserveDuration 累加阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	add(metricKey("op_duration_ms", "comp", comp, "stage", stage), durMS)
}

// Snapshot 返回当前全部计数的副本。
func Snapshot() map[string]int64 {
	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	out := make(map[string]int64, len(metrics.vals))
	for k, v := range metrics.vals {
		out[k] = v
	}
	return out
}

// SnapshotStrings 以字符串值返回快照（用于 debug 日志的 kv 字段）。
func SnapshotStrings() map[string]string {
	snap := Snapshot()
	out := make(map[string]string, len(snap))
	for k, v := range snap {
		out[k] = strconv.FormatInt(v, 10)
	}
	return out
}

// ResetMetrics 清空全部计数。
func ResetMetrics() {
	metrics.mu.Lock()
	metrics.vals = map[string]int64{}
	metrics.mu.Unlock()
}
