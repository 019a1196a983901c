package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix: 环境变量前缀。
const EnvPrefix = "DOCSPLIT_"

// DefaultConfigFile: 工作目录下的默认配置文件名。
const DefaultConfigFile = "docsplit.yaml"

// Defaults 返回内置默认配置（含 architecture/stories 两个档案）。
func Defaults() Config {
	return Config{
		Profile:   "architecture",
		OutputDir: ".",
		Logging:   Logging{Level: "info", Dir: "logs"},
		Profiles:  BuiltinProfiles(),
	}
}

// BuiltinProfiles 返回内置档案的新副本。
func BuiltinProfiles() map[string]Profile {
	return map[string]Profile{
		"architecture": {
			Source:     "BMAD/Archeticture",
			Components: Components{Reader: "fs", Segmenter: "marker", Inference: "heuristic", Writer: "fs"},
			Layout: Layout{
				OutputBase:   ".",
				DefaultDir:   "docs",
				FallbackName: "architecture_part_{index}.md",
				Normalize:    boolPtr(true),
			},
		},
		"stories": {
			Source:     "BMAD/Stories",
			Components: Components{Reader: "fs", Segmenter: "keyed", Inference: "heuristic", Writer: "fs"},
			Layout: Layout{
				OutputBase:   ".",
				DefaultDir:   "docs/stories",
				FallbackName: "story_part_{index}.md",
				Normalize:    boolPtr(false),
			},
		},
	}
}

// Load 从文件路径或原始 YAML 解析 Config（严格拒绝未知字段）。
// JSON 是 YAML 的子集，同样可以加载。空文档得到零值 Config。
func Load(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Merge 按优先级合并（后者覆盖前者）；空值不覆盖。
// 档案按键合并，档案内部按字段合并；Options 子树整体替换。
func Merge(base, over Config) Config {
	out := base
	out.Profile = pick(out.Profile, over.Profile)
	out.Source = pick(out.Source, over.Source)
	out.OutputDir = pick(out.OutputDir, over.OutputDir)
	out.Logging.Level = pick(out.Logging.Level, over.Logging.Level)
	out.Logging.Dir = pick(out.Logging.Dir, over.Logging.Dir)
	out.Ledger.Path = pick(out.Ledger.Path, over.Ledger.Path)
	out.Components = mergeComponents(out.Components, over.Components)

	if len(base.Profiles) > 0 || len(over.Profiles) > 0 {
		out.Profiles = make(map[string]Profile, len(base.Profiles)+len(over.Profiles))
		for k, v := range base.Profiles {
			out.Profiles[k] = v
		}
		for k, v := range over.Profiles {
			out.Profiles[k] = mergeProfile(out.Profiles[k], v)
		}
	}
	return out
}

func mergeProfile(base, over Profile) Profile {
	out := base
	out.Source = pick(out.Source, over.Source)
	out.Components = mergeComponents(out.Components, over.Components)
	out.Layout.OutputBase = pick(out.Layout.OutputBase, over.Layout.OutputBase)
	out.Layout.DefaultDir = pick(out.Layout.DefaultDir, over.Layout.DefaultDir)
	out.Layout.FallbackName = pick(out.Layout.FallbackName, over.Layout.FallbackName)
	if over.Layout.Normalize != nil {
		out.Layout.Normalize = boolPtr(*over.Layout.Normalize)
	}
	if over.Options.Reader.Kind != 0 {
		out.Options.Reader = over.Options.Reader
	}
	if over.Options.Segmenter.Kind != 0 {
		out.Options.Segmenter = over.Options.Segmenter
	}
	if over.Options.Inference.Kind != 0 {
		out.Options.Inference = over.Options.Inference
	}
	if over.Options.Writer.Kind != 0 {
		out.Options.Writer = over.Options.Writer
	}
	return out
}

func mergeComponents(base, over Components) Components {
	return Components{
		Reader:    pick(base.Reader, over.Reader),
		Segmenter: pick(base.Segmenter, over.Segmenter),
		Inference: pick(base.Inference, over.Inference),
		Writer:    pick(base.Writer, over.Writer),
	}
}

// EnvOverlay 从环境变量构建覆盖层（仅解析有限键集合，其余忽略）。
// 支持：PROFILE, SOURCE, OUTPUT_DIR, LOG_LEVEL, LOG_DIR, LEDGER_PATH,
// COMPONENTS_{READER,SEGMENTER,INFERENCE,WRITER}。
func EnvOverlay(environ []string) Config {
	var over Config
	for _, kv := range environ {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		val = strings.TrimSpace(val)
		switch strings.TrimPrefix(key, EnvPrefix) {
		case "PROFILE":
			over.Profile = val
		case "SOURCE":
			over.Source = val
		case "OUTPUT_DIR":
			over.OutputDir = val
		case "LOG_LEVEL":
			over.Logging.Level = val
		case "LOG_DIR":
			over.Logging.Dir = val
		case "LEDGER_PATH":
			over.Ledger.Path = val
		case "COMPONENTS_READER":
			over.Components.Reader = val
		case "COMPONENTS_SEGMENTER":
			over.Components.Segmenter = val
		case "COMPONENTS_INFERENCE":
			over.Components.Inference = val
		case "COMPONENTS_WRITER":
			over.Components.Writer = val
		}
	}
	return over
}

// LoadDotEnv 读取 .env（KEY=VALUE 行，# 注释，可选引号），不覆盖已存在的变量。
// 文件不存在时静默返回。
func LoadDotEnv(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.Trim(strings.TrimSpace(v), `"'`)
		if _, exists := os.LookupEnv(k); exists || k == "" {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return err
		}
	}
	return nil
}

func pick(cur, over string) string {
	if t := strings.TrimSpace(over); t != "" {
		return t
	}
	return cur
}

func boolPtr(b bool) *bool { return &b }
