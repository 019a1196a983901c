package delimited

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"docsplit/pkg/contract"
)

// 默认方言参数（与原始导出文档一致）。
const (
	DefaultMarker   = "Export to Sheets"
	DefaultBoundary = "---"
	DefaultKey      = "File:"
)

// Options 为分隔切分器的可选配置；未使用的字段按方言忽略。
type Options struct {
	// Marker: marker 方言的记录前置标记。
	Marker string `yaml:"marker"`
	// Boundary/Key: keyed 方言的边界行与键标签。
	Boundary string `yaml:"boundary"`
	Key      string `yaml:"key"`
}

// Splitter 按单一方言切分文档。方言在构造时选定，运行期不变。
type Splitter struct {
	dialect contract.Dialect
	// keyed 方言的边界模式：\n<boundary>\n<key>\s*
	boundaryRe *regexp.Regexp
}

// New 创建切分器；kind 决定方言，opts 中未给出的参数取默认值。
func New(kind contract.DialectKind, opts *Options) (*Splitter, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	d := contract.Dialect{Kind: kind}
	s := &Splitter{}
	switch kind {
	case contract.DialectMarker:
		d.Marker = o.Marker
		if d.Marker == "" {
			d.Marker = DefaultMarker
		}
	case contract.DialectKeyed:
		d.Boundary, d.Key = o.Boundary, o.Key
		if d.Boundary == "" {
			d.Boundary = DefaultBoundary
		}
		if d.Key == "" {
			d.Key = DefaultKey
		}
		s.boundaryRe = regexp.MustCompile(`\n` + regexp.QuoteMeta(d.Boundary) + `\n` + regexp.QuoteMeta(d.Key) + `\s*`)
	default:
		return nil, fmt.Errorf("%w: unknown dialect %q", contract.ErrInvalidInput, kind)
	}
	s.dialect = d
	return s, nil
}

var _ contract.Segmenter = (*Splitter)(nil)

// Dialect 返回生效的方言。
func (s *Splitter) Dialect() contract.Dialect { return s.dialect }

// Segment 按方言切分并逐条 yield。
func (s *Splitter) Segment(ctx context.Context, doc contract.RawDocument, yield func(contract.Record) error) error {
	switch s.dialect.Kind {
	case contract.DialectMarker:
		return s.segmentMarker(ctx, string(doc), yield)
	case contract.DialectKeyed:
		return s.segmentKeyed(ctx, string(doc), yield)
	}
	return fmt.Errorf("%w: unknown dialect %q", contract.ErrInvalidInput, s.dialect.Kind)
}

// segmentMarker: 在每个标记出现位置之前切开（标记可位于行中）。
// 段首行恰为标记时剥离该行；裁剪后为空的段跳过。
func (s *Splitter) segmentMarker(ctx context.Context, doc string, yield func(contract.Record) error) error {
	marker := s.dialect.Marker
	idx := 0
	start := 0
	emit := func(part string) error {
		text := strings.TrimSpace(part)
		if text == "" {
			return nil
		}
		first, rest, _ := strings.Cut(text, "\n")
		if strings.TrimSpace(first) == marker {
			text = strings.TrimSpace(rest)
		}
		if text == "" {
			return nil
		}
		rec := contract.Record{Index: idx, Text: text}
		idx++
		return yield(rec)
	}
	for pos := 0; pos < len(doc); {
		if err := ctxErr(ctx); err != nil {
			return err
		}
		off := strings.Index(doc[pos:], marker)
		if off < 0 {
			break
		}
		at := pos + off
		if at > start {
			if err := emit(doc[start:at]); err != nil {
				return err
			}
			start = at
		}
		// 允许标记重叠出现：下一次从后一个字节继续查找
		pos = at + 1
	}
	if err := ctxErr(ctx); err != nil {
		return err
	}
	return emit(doc[start:])
}

// segmentKeyed: 按边界模式切分；首个边界之前的内容是头部残留，始终丢弃。
// 每段首行为声明路径，其后为正文。
func (s *Splitter) segmentKeyed(ctx context.Context, doc string, yield func(contract.Record) error) error {
	locs := s.boundaryRe.FindAllStringIndex(doc, -1)
	idx := 0
	for i, loc := range locs {
		if err := ctxErr(ctx); err != nil {
			return err
		}
		end := len(doc)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		text := strings.TrimSpace(doc[loc[1]:end])
		if text == "" {
			continue
		}
		first, body, _ := strings.Cut(text, "\n")
		rec := contract.Record{
			Index:        idx,
			Text:         text,
			Declared:     true,
			DeclaredPath: strings.TrimSpace(first),
			DeclaredBody: body,
			ExpectPrefix: s.dialect.Boundary,
		}
		idx++
		if err := yield(rec); err != nil {
			return err
		}
	}
	return nil
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
