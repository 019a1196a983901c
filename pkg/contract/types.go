package contract

// RawDocument: 单次运行的完整源文本（读取后不可变，已做 CRLF→LF 归一）。
type RawDocument string

// Path: 输出路径（正斜杠分隔，经 NormalizePath 规范化）。
type Path string

// Record: 源文档中一段连续的候选子文档。
// 约束：
// - Index 自 0 严格递增，仅对实际产出的记录计数（空段不占序号）；
// - Text 为记录原文（含方言内嵌的元数据行），首尾空白已裁剪；
// - Declared 为真时 DeclaredPath/DeclaredBody 有效（仅 keyed 方言）。
type Record struct {
	Index int
	Text  string

	Declared     bool
	DeclaredPath string
	DeclaredBody string
	// ExpectPrefix: 方言期望正文的起始标记；空表示无期望。
	ExpectPrefix string
}

// Target: 由单个 Record 推导出的落盘目标（ResolvedTarget）。
// 约束：Path 非空且形如路径；Body 不含推断时消费掉的元数据行。
type Target struct {
	Path Path
	Body string
	// Fallback: 使用了合成的默认路径。
	Fallback bool
	// Declared: 路径来自 keyed 方言的声明行。
	Declared bool
}

// DialectKind: 分隔方言标签。
type DialectKind string

const (
	// DialectMarker: 固定标记前置切分（标记可出现在任意位置）。
	DialectMarker DialectKind = "marker"
	// DialectKeyed: "\n<Boundary>\n<Key>\s*" 切分，并捕获声明路径。
	DialectKeyed DialectKind = "keyed"
)

// Dialect: 方言的带标签变体；每次运行只选择一次。
type Dialect struct {
	Kind DialectKind
	// Marker 仅 marker 方言使用。
	Marker string
	// Boundary/Key 仅 keyed 方言使用。
	Boundary string
	Key      string
}
