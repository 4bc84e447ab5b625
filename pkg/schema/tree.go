package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

type nodeKind int

const (
	kindNull nodeKind = iota
	kindMapping
	kindSequence
	kindNumber
	kindOther
)

func (k nodeKind) String() string {
	switch k {
	case kindNull:
		return "null"
	case kindMapping:
		return "object"
	case kindSequence:
		return "list"
	case kindNumber:
		return "number"
	default:
		return "scalar"
	}
}

// node is an order-preserving view of a decoded document.
// Both JSON and YAML input are normalized into it before validation.
type node struct {
	kind  nodeKind
	keys  []string
	vals  []*node
	items []*node
	num   float64
	text  string
}

func (n *node) describe() any {
	switch n.kind {
	case kindNumber:
		return n.num
	case kindOther:
		return n.text
	default:
		return n.kind.String()
	}
}

// parseTree reads JSON when the input looks like a JSON object and YAML otherwise.
// JSON is read with the streaming tokenizer so that tab indentation and other
// constructs YAML rejects still decode.
func parseTree(data []byte) (*node, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, docError("", "document is empty", nil)
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return parseJSON(trimmed)
	}
	return parseYAML(trimmed)
}

func parseJSON(data []byte) (*node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	root, err := readJSONValue(dec)
	if err != nil {
		return nil, docError("", "malformed JSON: "+err.Error(), nil)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, docError("", "malformed JSON: trailing data after document", nil)
	}
	return root, nil
}

func readJSONValue(dec *json.Decoder) (*node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			n := &node{kind: kindMapping}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is not a string")
				}
				val, err := readJSONValue(dec)
				if err != nil {
					return nil, err
				}
				n.keys = append(n.keys, key)
				n.vals = append(n.vals, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		case '[':
			n := &node{kind: kindSequence}
			for dec.More() {
				item, err := readJSONValue(dec)
				if err != nil {
					return nil, err
				}
				n.items = append(n.items, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", v)
	case json.Number:
		f, err := strconv.ParseFloat(v.String(), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil, err
		}
		return &node{kind: kindNumber, num: f, text: v.String()}, nil
	case nil:
		return &node{kind: kindNull, text: "null"}, nil
	default:
		return &node{kind: kindOther, text: fmt.Sprint(v)}, nil
	}
}

func parseYAML(data []byte) (*node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, docError("", "malformed YAML: "+err.Error(), nil)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, docError("", "document is empty", nil)
	}
	return fromYAML(doc.Content[0], 0)
}

// maxAliasDepth bounds alias expansion so that recursive anchors cannot loop.
const maxAliasDepth = 32

func fromYAML(y *yaml.Node, depth int) (*node, error) {
	if depth > maxAliasDepth {
		return nil, docError("", "alias nesting too deep", nil)
	}

	switch y.Kind {
	case yaml.AliasNode:
		return fromYAML(y.Alias, depth+1)
	case yaml.MappingNode:
		n := &node{kind: kindMapping}
		for i := 0; i+1 < len(y.Content); i += 2 {
			k, v := y.Content[i], y.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return nil, docError("", "mapping keys must be scalars", nil)
			}
			val, err := fromYAML(v, depth)
			if err != nil {
				return nil, err
			}
			n.keys = append(n.keys, k.Value)
			n.vals = append(n.vals, val)
		}
		return n, nil
	case yaml.SequenceNode:
		n := &node{kind: kindSequence}
		for _, item := range y.Content {
			child, err := fromYAML(item, depth)
			if err != nil {
				return nil, err
			}
			n.items = append(n.items, child)
		}
		return n, nil
	case yaml.ScalarNode:
		switch y.ShortTag() {
		case "!!int", "!!float":
			var f float64
			if err := y.Decode(&f); err != nil {
				return &node{kind: kindOther, text: y.Value}, nil
			}
			return &node{kind: kindNumber, num: f, text: y.Value}, nil
		case "!!null":
			return &node{kind: kindNull, text: "null"}, nil
		default:
			return &node{kind: kindOther, text: y.Value}, nil
		}
	}
	return nil, docError("", "unsupported YAML node", nil)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
