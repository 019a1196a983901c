package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	cfgpkg "docsplit/internal/config"
	"docsplit/internal/diag"
	"docsplit/internal/ledger"
	"docsplit/internal/pipeline"
	"docsplit/pkg/contract"
)

var pipelineRun = pipeline.Run

// 退出码：0 完成（含降级/失败记录）；1 源不可读或运行中止；3 配置错误。
const (
	exitOK     = 0
	exitRun    = 1
	exitConfig = 3
)

// exitError 携带退出码；消息已由命令自行打印。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func fail(code int, err error) error { return &exitError{code: code, err: err} }

// rootOptions: 全局旗标。空值表示未覆盖。
type rootOptions struct {
	config    string
	profile   string
	outputDir string
	ledger    string
	logLevel  string
	quiet     bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	// 在任何 ENV 读取前加载工作目录下的 .env（不覆盖已有 ENV）。
	_ = cfgpkg.LoadDotEnv(".env")

	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// 旗标/参数解析错误
	fprintf(stderr, "Error: %v\n", err)
	return exitConfig
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "docsplit [source]",
		Short: "按分隔符把导出的长文档切分为多个文件",
		Long: `docsplit 读取一份导出文档（"-" 为 STDIN），按档案选定的方言切分为记录，
为每条记录推断目标路径并写出；无法推断时写入带序号的回退文件。`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSplit(cmd.Context(), opts, args, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.config, "config", "", "配置文件路径（YAML/JSON）；缺省读取 DOCSPLIT_CONFIG_FILE 或 ./"+cfgpkg.DefaultConfigFile)
	pf.StringVar(&opts.profile, "profile", "", "档案名（architecture|stories|自定义）")
	pf.StringVar(&opts.outputDir, "output-dir", "", "输出根目录（覆盖配置）")
	pf.StringVar(&opts.ledger, "ledger", "", "运行历史数据库路径（SQLite）")
	pf.StringVar(&opts.logLevel, "log-level", "", "日志级别 debug|info|warn|error")
	root.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "不输出逐条进度与总结")

	root.AddCommand(newInitConfigCmd(stdout, stderr), newHistoryCmd(opts, stdout, stderr))
	return root
}

func newInitConfigCmd(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [dir]",
		Short: "生成 docsplit.yaml 与 .env 模板（已存在则跳过，不覆盖）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				dir = strings.TrimSpace(args[0])
			}
			created, skipped, err := cfgpkg.WriteTemplates(dir)
			for _, p := range created {
				fprintf(stdout, "created: %s\n", p)
			}
			for _, p := range skipped {
				fprintf(stdout, "skipped (exists): %s\n", p)
			}
			if err != nil {
				fprintf(stderr, "Error: init-config: %v\n", err)
				return fail(exitConfig, err)
			}
			return nil
		},
	}
}

func newHistoryCmd(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "列出最近的运行记录",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(opts, nil)
			if err != nil {
				fprintf(stderr, "Error: %v\n", err)
				return fail(exitConfig, err)
			}
			if strings.TrimSpace(cfg.Ledger.Path) == "" {
				err := errors.New("ledger.path not set (use --ledger or DOCSPLIT_LEDGER_PATH)")
				fprintf(stderr, "Error: %v\n", err)
				return fail(exitConfig, err)
			}
			l, err := ledger.Open(cmd.Context(), cfg.Ledger.Path)
			if err != nil {
				fprintf(stderr, "Error: %v\n", err)
				return fail(exitRun, err)
			}
			defer l.Close()
			runs, err := l.Recent(cmd.Context(), limit)
			if err != nil {
				fprintf(stderr, "Error: %v\n", err)
				return fail(exitRun, err)
			}
			if len(runs) == 0 {
				fprintf(stdout, "No runs recorded.\n")
				return nil
			}
			for _, r := range runs {
				fprintf(stdout, "%s  %s  %-12s %-10s written=%d degraded=%d failed=%d  %s\n",
					r.ID, r.Started.Local().Format(time.DateTime), r.Profile, r.State,
					r.Written, r.Degraded, r.Failed, r.Source)
				if r.Err != "" {
					fprintf(stdout, "    error: %s\n", r.Err)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "显示条数")
	return cmd
}

// resolveConfig: 默认 < 配置文件 < ENV < CLI，合并后校验。
func resolveConfig(opts *rootOptions, args []string) (cfgpkg.Config, error) {
	path := strings.TrimSpace(opts.config)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("DOCSPLIT_CONFIG_FILE"))
	}
	if path == "" {
		if _, err := os.Stat(cfgpkg.DefaultConfigFile); err == nil {
			path = cfgpkg.DefaultConfigFile
		}
	}

	cfg := cfgpkg.Defaults()
	if path != "" {
		base, err := cfgpkg.Load(path, nil)
		if err != nil {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
		cfg = cfgpkg.Merge(cfg, base)
	}
	cfg = cfgpkg.Merge(cfg, cfgpkg.EnvOverlay(os.Environ()))

	over := cfgpkg.Config{
		Profile:   opts.profile,
		OutputDir: opts.outputDir,
		Logging:   cfgpkg.Logging{Level: opts.logLevel},
		Ledger:    cfgpkg.Ledger{Path: opts.ledger},
	}
	if len(args) > 0 {
		over.Source = args[0]
	}
	cfg = cfgpkg.Merge(cfg, over)

	if err := cfgpkg.Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newLogger(corrID string, cfg cfgpkg.Config) *diag.Logger {
	if strings.TrimSpace(cfg.Logging.Dir) == "-" {
		return diag.NewLoggerTo(os.Stderr, corrID, cfg.Logging.Level)
	}
	return diag.NewLogger(corrID, cfg.Logging.Level, cfg.Logging.Dir)
}

func runSplit(ctx context.Context, opts *rootOptions, args []string, stdout, stderr io.Writer) error {
	start := time.Now()
	corrID := ledger.NewID()

	cfg, err := resolveConfig(opts, args)
	if err != nil {
		fprintf(stderr, "Error: %v\n", err)
		return fail(exitConfig, err)
	}
	logger := newLogger(corrID, cfg)
	defer logger.Sync()

	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		fprintf(stderr, "Error: %v\n", err)
		logger.Error("config", diag.Classify(err), "assemble failed: "+err.Error(), &start)
		return fail(exitConfig, err)
	}
	p, _ := cfg.ActiveProfile()
	logger.DebugStart("config", "effective", map[string]string{
		"profile":       cfg.Profile,
		"source":        set.Source,
		"output_dir":    cfg.OutputDir,
		"reader":        p.Components.Reader,
		"segmenter":     p.Components.Segmenter,
		"inference":     p.Components.Inference,
		"writer":        p.Components.Writer,
		"default_dir":   p.Layout.DefaultDir,
		"fallback_name": p.Layout.FallbackName,
		"ledger":        cfg.Ledger.Path,
	})

	term := diag.NewTerminal(stdout, !opts.quiet)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)
	term.RunStart(cfg.Profile, set.Source)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	t := logger.Start("pipeline", "run")
	rep, runErr := pipelineRun(ctx, comp, set, logger)
	saveLedger(cfg, corrID, set.Source, rep, runErr, logger, stderr)

	if runErr != nil {
		code := diag.Classify(runErr)
		logger.Error("pipeline", code, "run failed: "+runErr.Error(), &start)
		diag.IncOp("pipeline", "error", "error")
		diag.IncError("pipeline", code)
		switch {
		case errors.Is(runErr, os.ErrNotExist):
			fprintf(stderr, "Error: Source file '%s' not found.\n", set.Source)
		case errors.Is(runErr, contract.ErrSourceUnavailable):
			fprintf(stderr, "Error: %v\n", runErr)
		default:
			// 中止：仍输出已处理部分的总结
			fprintf(stderr, "Aborted: %v\n", runErr)
			term.RunFinish(rep.Outcome)
		}
		return fail(exitRun, runErr)
	}
	t.Finish("run", int64(rep.Outcome.Attempted))
	term.RunFinish(rep.Outcome)
	return nil
}

// saveLedger: 运行历史写入失败只记录，不影响退出码。
func saveLedger(cfg cfgpkg.Config, corrID, source string, rep pipeline.Report, runErr error, logger *diag.Logger, stderr io.Writer) {
	if strings.TrimSpace(cfg.Ledger.Path) == "" {
		return
	}
	// 运行已中止时 ctx 可能已取消，历史写入使用独立超时
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := func() error {
		l, err := ledger.Open(ctx, cfg.Ledger.Path)
		if err != nil {
			return err
		}
		defer l.Close()
		return l.Save(ctx, ledger.FromReport(corrID, cfg.Profile, source, rep, runErr))
	}()
	if err != nil {
		logger.Warn("ledger", diag.Classify(err), "save run: "+err.Error(), cfg.Ledger.Path, -1)
		fprintf(stderr, "warning: run history not saved: %v\n", err)
	}
}

func fprintf(w io.Writer, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }
