package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// TemplateYAML 是 init-config 生成的完整配置模板：
// 覆盖全部键（值为内置默认），可直接运行。
const TemplateYAML = `# docsplit 配置。优先级：默认 < 本文件 < DOCSPLIT_* 环境变量 < 命令行参数。
profile: architecture
# source: 覆盖当前档案的源文档路径（"-" 为 STDIN）
output_dir: .
logging:
  level: info   # debug|info|warn|error
  dir: logs     # 轮转日志 docsplit-current.log（10MiB）
ledger:
  path: ""      # 例如 .docsplit/history.db；为空不记录运行历史

profiles:
  architecture:
    source: BMAD/Archeticture
    components:
      reader: fs
      segmenter: marker
      inference: heuristic
      writer: fs
    layout:
      output_base: .
      default_dir: docs
      fallback_name: architecture_part_{index}.md
      normalize: true
    options:
      reader:
        buf_size: 65536
        allow_invalid_utf8: false
      segmenter:
        marker: Export to Sheets
      inference:
        extensions: [".md", ".txt"]
      writer:
        atomic: true
        flat: false
        perm_file: 0
        perm_dir: 0
        buf_size: 65536

  stories:
    source: BMAD/Stories
    components:
      reader: fs
      segmenter: keyed
      inference: heuristic
      writer: fs
    layout:
      output_base: .
      default_dir: docs/stories
      fallback_name: story_part_{index}.md
      normalize: false
    options:
      segmenter:
        boundary: "---"
        key: "File:"
`

// TemplateEnv 是 init-config 生成的 .env 模板（全部注释掉）。
const TemplateEnv = `# docsplit 环境变量（不会覆盖进程中已存在的同名变量）
# DOCSPLIT_CONFIG_FILE=docsplit.yaml
# DOCSPLIT_PROFILE=architecture
# DOCSPLIT_SOURCE=
# DOCSPLIT_OUTPUT_DIR=.
# DOCSPLIT_LOG_LEVEL=info
# DOCSPLIT_LOG_DIR=logs
# DOCSPLIT_LEDGER_PATH=
# DOCSPLIT_COMPONENTS_INFERENCE=heuristic
`

// WriteTemplates 在 dir 下生成 docsplit.yaml 与 .env；已存在的文件跳过，不覆盖。
// 返回实际创建的文件与被跳过的文件。
func WriteTemplates(dir string) (created, skipped []string, err error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create config dir: %w", err)
	}
	files := []struct{ name, body string }{
		{DefaultConfigFile, TemplateYAML},
		{".env", TemplateEnv},
	}
	for _, f := range files {
		p := filepath.Join(dir, f.name)
		fh, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				skipped = append(skipped, p)
				continue
			}
			return created, skipped, err
		}
		_, werr := fh.WriteString(f.body)
		cerr := fh.Close()
		if werr != nil {
			return created, skipped, werr
		}
		if cerr != nil {
			return created, skipped, cerr
		}
		created = append(created, p)
	}
	return created, skipped, nil
}
