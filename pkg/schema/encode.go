package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/aretw0/pacer/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Encode validates set and writes it as a canonical version 2 document.
// Pattern order is preserved.
func Encode(set domain.PatternSet, format Format) ([]byte, error) {
	if err := Validate(set); err != nil {
		return nil, err
	}
	if format == FormatYAML {
		return encodeYAML(set)
	}
	return encodeJSON(set)
}

// Migrate rewrites any accepted document version as canonical version 2 JSON.
func Migrate(data []byte) ([]byte, error) {
	return MigrateTo(data, FormatJSON)
}

// MigrateTo is Migrate with a choice of output encoding.
func MigrateTo(data []byte, format Format) ([]byte, error) {
	set, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Encode(set, format)
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func encodeJSON(set domain.PatternSet) ([]byte, error) {
	var buf bytes.Buffer
	num := func(f float64) error {
		b, err := json.Marshal(f)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}

	buf.WriteString(`{"version":`)
	buf.WriteString(strconv.Itoa(VersionCurrent))

	if s := set.Sensitivity; s != nil {
		buf.WriteString(`,"sensitivity":{"x":`)
		if err := num(s.X); err != nil {
			return nil, err
		}
		buf.WriteString(`,"y":`)
		if err := num(s.Y); err != nil {
			return nil, err
		}
		buf.WriteByte('}')
	}

	buf.WriteString(`,"patterns":{`)
	for i, p := range set.Patterns {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteString(":[")
		for j, step := range p.Steps {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(`{"dx":`)
			if err := num(step.DX); err != nil {
				return nil, err
			}
			buf.WriteString(`,"dy":`)
			if err := num(step.DY); err != nil {
				return nil, err
			}
			buf.WriteString(`,"duration":`)
			if err := num(durationMs(step.Duration)); err != nil {
				return nil, err
			}
			buf.WriteByte('}')
		}
		buf.WriteByte(']')
	}
	buf.WriteString("}}")

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("failed to indent document: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func encodeYAML(set domain.PatternSet) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	root.Content = append(root.Content, strNode("version"), numNode(VersionCurrent))

	if s := set.Sensitivity; s != nil {
		sens := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
		sens.Content = append(sens.Content,
			strNode("x"), numNode(s.X),
			strNode("y"), numNode(s.Y),
		)
		root.Content = append(root.Content, strNode("sensitivity"), sens)
	}

	patterns := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range set.Patterns {
		steps := &yaml.Node{Kind: yaml.SequenceNode}
		for _, step := range p.Steps {
			m := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
			m.Content = append(m.Content,
				strNode("dx"), numNode(step.DX),
				strNode("dy"), numNode(step.DY),
				strNode("duration"), numNode(durationMs(step.Duration)),
			)
			steps.Content = append(steps.Content, m)
		}
		patterns.Content = append(patterns.Content, strNode(p.Name), steps)
	}
	root.Content = append(root.Content, strNode("patterns"), patterns)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func numNode[N int | float64](v N) *yaml.Node {
	f := float64(v)
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(int64(f), 10)}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(f, 'g', -1, 64)}
}
