package config

import "gopkg.in/yaml.v3"

// Config: 运行期只读配置（一次解析，运行期不变）。
// YAML 使用 snake_case；未知字段在解析期失败。
type Config struct {
	// Profile: 选用的流水线档案名（profiles 的键）。
	Profile string `yaml:"profile"`
	// Source: 覆盖档案中的源文档路径；"-" 表示 STDIN。
	Source string `yaml:"source,omitempty"`
	// OutputDir: 写出根目录（writer options 未指定 output_dir 时生效）。
	OutputDir string  `yaml:"output_dir"`
	Logging   Logging `yaml:"logging"`
	Ledger    Ledger  `yaml:"ledger"`

	// Components: 覆盖当前档案的组件名（空不覆盖）。
	Components Components `yaml:"components,omitempty"`

	// Profiles: 命名档案；内置 architecture 与 stories，可按字段覆盖或新增。
	Profiles map[string]Profile `yaml:"profiles"`
}

// Logging: 日志级别与目录；轮转阈值固定 10MiB。
type Logging struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// Ledger: 运行历史数据库。Path 为空时不记录。
type Ledger struct {
	Path string `yaml:"path"`
}

// Profile: 一条完整的切分流水线（源、组件、布局、组件选项）。
type Profile struct {
	Source     string     `yaml:"source"`
	Components Components `yaml:"components"`
	Layout     Layout     `yaml:"layout"`
	Options    Options    `yaml:"options,omitempty"`
}

// Components: 注册表中的实现名。
type Components struct {
	Reader    string `yaml:"reader,omitempty"`
	Segmenter string `yaml:"segmenter,omitempty"`
	Inference string `yaml:"inference,omitempty"`
	Writer    string `yaml:"writer,omitempty"`
}

// Layout: 输出路径布局（见 resolve.Layout）。
type Layout struct {
	OutputBase   string `yaml:"output_base"`
	DefaultDir   string `yaml:"default_dir"`
	FallbackName string `yaml:"fallback_name"`
	// Normalize: nil 表示未设置（合并时不覆盖）。
	Normalize *bool `yaml:"normalize"`
}

// Options: 各组件的原样 YAML 子树，由注册表工厂严格解码。
type Options struct {
	Reader    yaml.Node `yaml:"reader,omitempty"`
	Segmenter yaml.Node `yaml:"segmenter,omitempty"`
	Inference yaml.Node `yaml:"inference,omitempty"`
	Writer    yaml.Node `yaml:"writer,omitempty"`
}
