package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"docsplit/internal/diag"
	"docsplit/internal/pipeline"
	"docsplit/internal/resolve"
	"docsplit/pkg/registry"
)

// ActiveProfile 返回合并了顶层覆盖（source、components）后的当前档案。
func (c Config) ActiveProfile() (Profile, error) {
	if strings.TrimSpace(c.Profile) == "" {
		return Profile{}, errors.New("config: profile not set")
	}
	p, ok := c.Profiles[c.Profile]
	if !ok {
		return Profile{}, fmt.Errorf("config: profile %q not found (have %s)", c.Profile, strings.Join(c.ProfileNames(), ", "))
	}
	p.Source = pick(p.Source, c.Source)
	p.Components = mergeComponents(p.Components, c.Components)
	return p, nil
}

// ProfileNames 返回排序后的档案名。
func (c Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for k := range c.Profiles {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	p, err := cfg.ActiveProfile()
	if err != nil {
		return err
	}
	if strings.TrimSpace(p.Source) == "" {
		return fmt.Errorf("config: profile %q: source empty", cfg.Profile)
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return errors.New("config: output_dir empty")
	}
	if !diag.ValidLevel(cfg.Logging.Level) {
		return fmt.Errorf("config: logging.level %q invalid (debug|info|warn|error)", cfg.Logging.Level)
	}
	if name := p.Components.Reader; registry.Reader[name] == nil {
		return fmt.Errorf("config: reader %q not registered", name)
	}
	if name := p.Components.Segmenter; registry.Segmenter[name] == nil {
		return fmt.Errorf("config: segmenter %q not registered", name)
	}
	if name := p.Components.Inference; registry.Inference[name] == nil {
		return fmt.Errorf("config: inference %q not registered", name)
	}
	if name := p.Components.Writer; registry.Writer[name] == nil {
		return fmt.Errorf("config: writer %q not registered", name)
	}
	if !strings.Contains(p.Layout.FallbackName, resolve.IndexPlaceholder) {
		return fmt.Errorf("config: layout.fallback_name %q must contain %s", p.Layout.FallbackName, resolve.IndexPlaceholder)
	}
	if strings.ContainsAny(p.Layout.FallbackName, `/\`) {
		return fmt.Errorf("config: layout.fallback_name %q must be a file name", p.Layout.FallbackName)
	}
	if d := filepath.ToSlash(p.Layout.DefaultDir); strings.HasPrefix(d, "/") || d == ".." || strings.HasPrefix(d, "../") {
		return fmt.Errorf("config: layout.default_dir %q must stay inside the output dir", p.Layout.DefaultDir)
	}
	return nil
}

// Assemble 校验配置并构造一次运行的组件与参数。
// 严格 Options 解析在 registry（工厂）层进行；此处只传原样 YAML 子树。
func Assemble(cfg Config) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	p, _ := cfg.ActiveProfile()

	r, err := registry.Reader[p.Components.Reader](&p.Options.Reader)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("config: reader options: %w", err)
	}
	s, err := registry.Segmenter[p.Components.Segmenter](&p.Options.Segmenter)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("config: segmenter options: %w", err)
	}
	inf, err := registry.Inference[p.Components.Inference](&p.Options.Inference)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("config: inference options: %w", err)
	}
	w, err := registry.Writer[p.Components.Writer](&p.Options.Writer, cfg.OutputDir)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("config: writer options: %w", err)
	}
	normalize := p.Layout.Normalize != nil && *p.Layout.Normalize
	res, err := resolve.New(inf, resolve.Layout{
		OutputBase:   p.Layout.OutputBase,
		DefaultDir:   p.Layout.DefaultDir,
		FallbackName: p.Layout.FallbackName,
		Normalize:    normalize,
	})
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("config: layout: %w", err)
	}

	comp := pipeline.Components{Reader: r, Segmenter: s, Resolver: res, Writer: w}
	return comp, pipeline.Settings{Source: p.Source}, nil
}
