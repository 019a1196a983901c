package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"docsplit/internal/diag"
	"docsplit/pkg/contract"
)

// - 严格顺序：读取一次 → 切分一次 → 每条记录立即解析并写出；无并发。
// - 仅源不可读为致命；推断失败、畸形记录、写失败均记录后继续。
// - 同一记录的多个异常折叠为一条错误项。

// State: 运行状态 Idle → Loaded → Processing → Done。
type State string

const (
	StateIdle       State = "idle"
	StateLoaded     State = "loaded"
	StateProcessing State = "processing"
	StateDone       State = "done"
)

// NoRecordsMessage: 文档未切分出任何记录时的提示。
const NoRecordsMessage = "No records found after splitting. Check the source document and the delimiter settings."

// Components 聚合一次运行所需的组件。Resolver 持有本次运行的回退计数，不可跨运行复用。
type Components struct {
	Reader    contract.Reader
	Segmenter contract.Segmenter
	Resolver  contract.PathResolver
	Writer    contract.Writer
}

// Settings 运行期参数。
type Settings struct {
	// Source: 源文档路径；"-" 表示 STDIN。
	Source string
}

// Report: 运行结果。State 为运行停止时所处的状态。
type Report struct {
	State   State
	Outcome contract.Outcome
	// Records: 切分产出的记录数。
	Records int
	Started time.Time
	Elapsed time.Duration
}

// Run 执行 Reader → Segmenter → (PathResolver → Writer)*。
// 返回错误仅有两类：源不可读（包裹 ErrSourceUnavailable）与 ctx 取消；
// 两种情况下 Report 仍反映已处理的部分。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) (rep Report, err error) {
	rep = Report{State: StateIdle, Started: time.Now()}
	defer func() { rep.Elapsed = time.Since(rep.Started) }()
	if err := sanity(comp, set); err != nil {
		return rep, fmt.Errorf("sanity: %w", err)
	}

	// Idle → Loaded
	rtimer := logger.StartWith("reader", "read", set.Source, -1)
	doc, err := comp.Reader.Read(ctx, set.Source)
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, contract.ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", contract.ErrSourceUnavailable, err)
		}
		fail(logger, "reader", "read failed", err, rtimer)
		return rep, fmt.Errorf("reader read: %w", err)
	}
	rtimer.Finish("read", int64(len(doc)))
	diag.IncOp("reader", "finish", "success")
	rep.State = StateLoaded

	// Loaded → Processing
	rep.State = StateProcessing
	stimer := logger.Start("segmenter", "segment")
	err = comp.Segmenter.Segment(ctx, doc, func(rec contract.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rep.Records++
		return processRecord(ctx, comp, rec, &rep.Outcome, logger)
	})
	if err != nil {
		fail(logger, "segmenter", "segment aborted", err, stimer)
		return rep, fmt.Errorf("segment: %w", err)
	}
	stimer.Finish("segment", int64(rep.Records))
	diag.IncOp("segmenter", "finish", "success")
	if rep.Records == 0 {
		logger.Warn("segmenter", diag.CodeUnknown, NoRecordsMessage, set.Source, -1)
		if t := diag.GetTerminal(); t != nil {
			t.Notice(NoRecordsMessage)
		}
	}

	// Processing → Done
	rep.State = StateDone
	o := rep.Outcome
	logger.Info("pipeline", "run done", map[string]string{
		"attempted": strconv.Itoa(o.Attempted),
		"written":   strconv.Itoa(o.Written),
		"degraded":  strconv.Itoa(o.Degraded),
		"failed":    strconv.Itoa(o.Failed),
	})
	diag.ObserveDuration("pipeline", "run", time.Since(rep.Started).Milliseconds())
	logger.Debug("pipeline", "metrics", diag.SnapshotStrings())
	return rep, nil
}

// processRecord 解析并写出单条记录，结果折叠进 out。
// 仅 ctx 取消会返回错误（中止运行）。
func processRecord(ctx context.Context, comp Components, rec contract.Record, out *contract.Outcome, logger *diag.Logger) error {
	timer := logger.StartWith("record", "process", "", rec.Index)

	tg, rerr := comp.Resolver.Resolve(ctx, rec)
	var errs []error
	if rerr != nil {
		errs = append(errs, rerr)
		logger.Warn("resolver", diag.Classify(rerr), rerr.Error(), string(tg.Path), rec.Index)
	}

	werr := comp.Writer.Write(ctx, tg.Path, strings.NewReader(tg.Body))
	if werr != nil {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		errs = append(errs, contract.NewIssue(contract.ErrWriteFailure,
			fmt.Sprintf("Error writing %s: %v", tg.Path, werr), werr))
	}

	var recErr error
	switch len(errs) {
	case 0:
	case 1:
		recErr = errs[0]
	default:
		recErr = &contract.RecordError{Index: rec.Index, Path: tg.Path, Errs: errs}
	}
	entry := out.Add(rec.Index, tg.Path, werr == nil, recErr)
	if t := diag.GetTerminal(); t != nil {
		t.Record(entry)
	}

	switch entry.Status {
	case contract.StatusFailed:
		code := diag.Classify(recErr)
		logger.ErrorWith("writer", code, entry.Message, timer.Since(), string(tg.Path), rec.Index)
		diag.IncOp("record", "finish", "error")
		diag.IncError("writer", code)
	case contract.StatusDegraded:
		diag.IncOp("record", "finish", "degraded")
		diag.IncError("resolver", diag.Classify(recErr))
		timer.Finish("degraded", 1)
	default:
		diag.IncOp("record", "finish", "success")
		timer.Finish("written", 1)
	}
	return nil
}

func fail(logger *diag.Logger, comp, msg string, err error, timer *diag.Timer) {
	code := diag.Classify(err)
	logger.Error(comp, code, fmt.Sprintf("%s: %v", msg, err), timer.Since())
	diag.IncOp(comp, "error", "error")
	diag.IncError(comp, code)
}

func sanity(c Components, s Settings) error {
	if c.Reader == nil || c.Segmenter == nil || c.Resolver == nil || c.Writer == nil {
		return fmt.Errorf("%w: pipeline: missing components", contract.ErrInvalidInput)
	}
	if strings.TrimSpace(s.Source) == "" {
		return fmt.Errorf("%w: pipeline: empty source", contract.ErrInvalidInput)
	}
	return nil
}
