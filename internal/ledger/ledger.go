// Package ledger 记录每次运行的结果（SQLite）。
package ledger

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"docsplit/internal/pipeline"
	"docsplit/pkg/contract"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	corr_id    TEXT NOT NULL,
	profile    TEXT NOT NULL,
	source     TEXT NOT NULL,
	state      TEXT NOT NULL,
	started_at TEXT NOT NULL,
	elapsed_ms INTEGER NOT NULL,
	attempted  INTEGER NOT NULL,
	written    INTEGER NOT NULL,
	degraded   INTEGER NOT NULL,
	failed     INTEGER NOT NULL,
	error      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS run_entries (
	run_id  TEXT NOT NULL,
	idx     INTEGER NOT NULL,
	path    TEXT NOT NULL,
	status  TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	PRIMARY KEY(run_id, idx),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// Run: 一次运行的持久化视图。
type Run struct {
	ID        string
	CorrID    string
	Profile   string
	Source    string
	State     pipeline.State
	Started   time.Time
	Elapsed   time.Duration
	Attempted int
	Written   int
	Degraded  int
	Failed    int
	// Err: 致命错误（源不可读/中止）；正常完成为空。
	Err     string
	Entries []contract.Entry
}

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

// NewID 生成按时间单调递增的 ULID。
func NewID() string {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Now(), idEntropy).String()
}

// FromReport 由运行报告构造 Run；runErr 为 pipeline.Run 返回的错误。
func FromReport(corrID, profile, source string, rep pipeline.Report, runErr error) Run {
	o := rep.Outcome
	r := Run{
		ID:        NewID(),
		CorrID:    corrID,
		Profile:   profile,
		Source:    source,
		State:     rep.State,
		Started:   rep.Started,
		Elapsed:   rep.Elapsed,
		Attempted: o.Attempted,
		Written:   o.Written,
		Degraded:  o.Degraded,
		Failed:    o.Failed,
		Entries:   append([]contract.Entry(nil), o.Entries...),
	}
	if runErr != nil {
		r.Err = runErr.Error()
	}
	return r
}

// Ledger: 运行历史存储。
type Ledger struct {
	db *sql.DB
}

// Open 打开（必要时创建）path 处的数据库并初始化表结构。
func Open(ctx context.Context, path string) (*Ledger, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: ledger: empty path", contract.ErrInvalidInput)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ledger: create dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open: %w", err)
	}
	// 单进程单写者
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("ledger: init: %w", err)
		}
	}
	return &Ledger{db: db}, nil
}

// Close 关闭数据库。
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Save 在一个事务内写入运行行及其全部记录条目。
func (l *Ledger) Save(ctx context.Context, r Run) (err error) {
	if r.ID == "" {
		return fmt.Errorf("%w: ledger: run id empty", contract.ErrInvalidInput)
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger: begin: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, corr_id, profile, source, state, started_at, elapsed_ms, attempted, written, degraded, failed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CorrID, r.Profile, r.Source, string(r.State),
		r.Started.UTC().Format(time.RFC3339Nano), r.Elapsed.Milliseconds(),
		r.Attempted, r.Written, r.Degraded, r.Failed, r.Err)
	if err != nil {
		return fmt.Errorf("ledger: insert run: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_entries (run_id, idx, path, status, message) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("ledger: prepare: %w", err)
	}
	defer stmt.Close()
	for _, e := range r.Entries {
		if _, err = stmt.ExecContext(ctx, r.ID, e.Index, string(e.Path), string(e.Status), e.Message); err != nil {
			return fmt.Errorf("ledger: insert entry %d: %w", e.Index, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("ledger: commit: %w", err)
	}
	return nil
}

// Recent 返回最近 limit 次运行（新的在前），含记录条目。
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := l.db.QueryContext(ctx, `SELECT id, corr_id, profile, source, state, started_at, elapsed_ms,
		attempted, written, degraded, failed, error
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: query runs: %w", err)
	}
	var runs []Run
	for rows.Next() {
		var (
			r       Run
			state   string
			started string
			elapsed int64
		)
		if err := rows.Scan(&r.ID, &r.CorrID, &r.Profile, &r.Source, &state, &started, &elapsed,
			&r.Attempted, &r.Written, &r.Degraded, &r.Failed, &r.Err); err != nil {
			rows.Close()
			return nil, fmt.Errorf("ledger: scan run: %w", err)
		}
		r.State = pipeline.State(state)
		r.Elapsed = time.Duration(elapsed) * time.Millisecond
		if r.Started, err = time.Parse(time.RFC3339Nano, started); err != nil {
			rows.Close()
			return nil, fmt.Errorf("ledger: run %s: started_at: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range runs {
		if runs[i].Entries, err = l.entries(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (l *Ledger) entries(ctx context.Context, runID string) ([]contract.Entry, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT idx, path, status, message FROM run_entries WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("ledger: query entries: %w", err)
	}
	defer rows.Close()
	var out []contract.Entry
	for rows.Next() {
		var (
			e            contract.Entry
			path, status string
		)
		if err := rows.Scan(&e.Index, &path, &status, &e.Message); err != nil {
			return nil, fmt.Errorf("ledger: scan entry: %w", err)
		}
		e.Path, e.Status = contract.Path(path), contract.Status(status)
		out = append(out, e)
	}
	return out, rows.Err()
}
