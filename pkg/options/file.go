package options

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/alexisbeaulieu97/appbase/pkg/diff"
	apperrors "github.com/alexisbeaulieu97/appbase/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// readConfigFile loads the top-level mapping of a YAML config file.
func readConfigFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewParseError(path, 0, err)
	}

	settings := map[string]any{}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, apperrors.NewParseError(path, extractLine(err), err)
	}
	return settings, nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	_, scanErr := fmt.Sscanf(matches[1], "%d", &line)
	if scanErr != nil {
		return 0
	}

	return line
}

// WriteDefaults renders every config-file option of schema as YAML, each key
// preceded by its usage as a comment.
func WriteDefaults(w io.Writer, schema *Schema) error {
	mapping := &yaml.Node{Kind: yaml.MappingNode}
	schema.File.VisitAll(func(f *pflag.Flag) {
		key := &yaml.Node{
			Kind:        yaml.ScalarNode,
			Tag:         "!!str",
			Value:       f.Name,
			HeadComment: commentFor(f.Usage),
		}
		mapping.Content = append(mapping.Content, key, defaultNode(f))
	})

	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{mapping}}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	return enc.Close()
}

func commentFor(usage string) string {
	if usage == "" {
		return ""
	}
	lines := strings.Split(usage, "\n")
	for i, line := range lines {
		lines[i] = "# " + line
	}
	return strings.Join(lines, "\n")
}

func defaultNode(f *pflag.Flag) *yaml.Node {
	switch f.Value.Type() {
	case "stringSlice", "stringArray", "intSlice", "int32Slice", "int64Slice",
		"uintSlice", "boolSlice", "float32Slice", "float64Slice", "durationSlice":
		seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, item := range splitSliceDefault(f.DefValue) {
			seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: item})
		}
		return seq
	case "bool", "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64", "count",
		"float32", "float64":
		return &yaml.Node{Kind: yaml.ScalarNode, Value: f.DefValue}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.DefValue}
	}
}

// splitSliceDefault parses pflag's "[a,b]" rendering of slice defaults.
func splitSliceDefault(raw string) []string {
	raw = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(raw), "["), "]")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// DiffDefaults compares the config file at path with the defaults the schema
// would write and returns a unified diff, or "" when they match.
func DiffDefaults(schema *Schema, path string) (string, error) {
	var defaults bytes.Buffer
	if err := WriteDefaults(&defaults, schema); err != nil {
		return "", err
	}
	current, err := os.ReadFile(path)
	if err != nil {
		return "", apperrors.NewParseError(path, 0, err)
	}
	return diff.Unified(defaults.Bytes(), current, "defaults", path), nil
}
