package contract

// Status: 单条记录的处理结果。
type Status string

const (
	// StatusWritten: 按推断路径写出，无异常。
	StatusWritten Status = "written"
	// StatusDegraded: 已写出，但使用了回退路径或记录了异常。
	StatusDegraded Status = "degraded"
	// StatusFailed: 写出失败。
	StatusFailed Status = "failed"
)

// Entry: 单条记录的处理轨迹。
type Entry struct {
	Index   int
	Path    Path
	Status  Status
	Message string
}

// Outcome: 运行结果累加器（RunOutcome）。
// 不变量：
// - Attempted = (Written-Degraded) + Degraded + Failed；
// - len(Errors) = Degraded + Failed，每条异常记录恰好一条，按处理顺序排列。
type Outcome struct {
	Attempted int
	// Written: 成功写出的文件数（含降级写出）。
	Written  int
	Degraded int
	Failed   int
	Errors   []string
	Entries  []Entry
}

// Add 将单条记录的结果折叠进 Outcome；err 为该记录的汇总异常（可为 nil）。
func (o *Outcome) Add(idx int, path Path, written bool, err error) Entry {
	o.Attempted++
	e := Entry{Index: idx, Path: path}
	switch {
	case !written:
		o.Failed++
		e.Status = StatusFailed
	case err != nil:
		o.Written++
		o.Degraded++
		e.Status = StatusDegraded
	default:
		o.Written++
		e.Status = StatusWritten
	}
	if err != nil {
		e.Message = err.Error()
		o.Errors = append(o.Errors, e.Message)
	} else if !written {
		e.Message = "write failed"
		o.Errors = append(o.Errors, e.Message)
	}
	o.Entries = append(o.Entries, e)
	return e
}

// Clean 返回无异常写出的记录数。
func (o Outcome) Clean() int { return o.Written - o.Degraded }
