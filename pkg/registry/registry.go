package registry

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"docsplit/pkg/contract"
	"docsplit/plugins/inference/declared"
	"docsplit/plugins/inference/disabled"
	"docsplit/plugins/inference/heuristic"
	rfs "docsplit/plugins/reader/filesystem"
	"docsplit/plugins/segmenter/delimited"
	wfs "docsplit/plugins/writer/filesystem"
)

// strictDecode: 将原样 YAML 子树严格解码到 v，拒绝未知字段。
// nil/空/null 节点保持 v 的零值（默认选项）。
func strictDecode(node *yaml.Node, v any) error {
	if isEmpty(node) {
		return nil
	}
	raw, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: options: %w", contract.ErrInvalidInput, err)
	}
	return nil
}

func isEmpty(node *yaml.Node) bool {
	if node == nil || node.Kind == 0 {
		return true
	}
	if node.Kind == yaml.DocumentNode {
		return len(node.Content) == 0 || isEmpty(node.Content[0])
	}
	return node.Kind == yaml.ScalarNode && node.Tag == "!!null"
}

// noOptions 用于无配置项的组件：只接受空映射。
type noOptions struct{}

// NewReader 工厂签名：接收原样 YAML Options。
type NewReader func(node *yaml.Node) (contract.Reader, error)

// NewSegmenter 工厂签名。
type NewSegmenter func(node *yaml.Node) (contract.Segmenter, error)

// NewInference 工厂签名。
type NewInference func(node *yaml.Node) (contract.Inference, error)

// NewWriter 工厂签名；options 未指定 output_dir 时以 outputDir 为根目录。
type NewWriter func(node *yaml.Node, outputDir string) (contract.Writer, error)

// Reader 工厂注册表（显式、零反射）。
var Reader = map[string]NewReader{
	// fs: 文件/STDIN
	"fs": func(node *yaml.Node) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		return rfs.New(&opts), nil
	},
}

func segmenterFor(kind contract.DialectKind) NewSegmenter {
	return func(node *yaml.Node) (contract.Segmenter, error) {
		var opts delimited.Options
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		return delimited.New(kind, &opts)
	}
}

// Segmenter 工厂注册表；名称即方言。
var Segmenter = map[string]NewSegmenter{
	"marker": segmenterFor(contract.DialectMarker),
	"keyed":  segmenterFor(contract.DialectKeyed),
}

// Inference 工厂注册表。
var Inference = map[string]NewInference{
	// heuristic: 声明路径优先，其次首行嗅探
	"heuristic": func(node *yaml.Node) (contract.Inference, error) {
		var opts heuristic.Options
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		return heuristic.New(&opts), nil
	},
	// declared: 仅接受声明路径
	"declared": func(node *yaml.Node) (contract.Inference, error) {
		if err := strictDecode(node, &noOptions{}); err != nil {
			return nil, err
		}
		return declared.New(), nil
	},
	// disabled: 全部走回退路径
	"disabled": func(node *yaml.Node) (contract.Inference, error) {
		if err := strictDecode(node, &noOptions{}); err != nil {
			return nil, err
		}
		return disabled.New(), nil
	},
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 文件系统（默认原子替换）
	"fs": func(node *yaml.Node, outputDir string) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		if opts.OutputDir == "" {
			opts.OutputDir = outputDir
		}
		return wfs.New(&opts)
	},
}
