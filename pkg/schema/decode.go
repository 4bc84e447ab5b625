package schema

import (
	"math"
	"time"

	"github.com/aretw0/pacer/pkg/domain"
)

// maxDurationMs is the largest dwell representable as a time.Duration.
const maxDurationMs = float64(math.MaxInt64 / int64(time.Millisecond))

// stepFields lists the exact key set of a step per document version.
var stepFields = map[int][3]string{
	VersionLegacy:  {"x", "y", "delay"},
	VersionCurrent: {"dx", "dy", "duration"},
}

// Decode parses a JSON or YAML pattern document and validates it.
// Legacy documents are migrated to relative steps.
// The returned error is a *ValidationError describing the first problem found.
func Decode(data []byte) (domain.PatternSet, error) {
	root, err := parseTree(data)
	if err != nil {
		return domain.PatternSet{}, err
	}

	set, err := decodeDocument(root)
	if err != nil {
		return domain.PatternSet{}, err
	}

	if err := Validate(set); err != nil {
		return domain.PatternSet{}, err
	}
	return set, nil
}

func decodeDocument(root *node) (domain.PatternSet, error) {
	if root.kind != kindMapping {
		return domain.PatternSet{}, docError("", "document must be an object", root.describe())
	}

	version := VersionCurrent
	var (
		patterns    *node
		sensitivity *node
	)
	seen := make(map[string]bool, len(root.keys))
	for i, key := range root.keys {
		if seen[key] {
			return domain.PatternSet{}, docError(key, "duplicate key", nil)
		}
		seen[key] = true

		val := root.vals[i]
		switch key {
		case "version":
			v, err := decodeVersion(val)
			if err != nil {
				return domain.PatternSet{}, err
			}
			version = v
		case "sensitivity":
			sensitivity = val
		case "patterns":
			patterns = val
		default:
			return domain.PatternSet{}, docError(key, "unknown key", nil)
		}
	}

	var set domain.PatternSet

	if sensitivity != nil && sensitivity.kind != kindNull {
		sens, err := decodeSensitivity(sensitivity)
		if err != nil {
			return domain.PatternSet{}, err
		}
		set.Sensitivity = sens
	}

	if patterns == nil {
		return domain.PatternSet{}, docError("patterns", "required", nil)
	}
	if patterns.kind != kindMapping {
		return domain.PatternSet{}, docError("patterns", "must be an object of pattern name to steps", patterns.describe())
	}

	names := make(map[string]bool, len(patterns.keys))
	set.Patterns = make([]domain.Pattern, 0, len(patterns.keys))
	for i, name := range patterns.keys {
		if name == "" {
			return domain.PatternSet{}, &ValidationError{Step: -1, Reason: "pattern name must not be empty"}
		}
		if names[name] {
			return domain.PatternSet{}, &ValidationError{Pattern: name, Step: -1, Reason: "duplicate pattern name"}
		}
		names[name] = true

		p, err := decodePattern(name, patterns.vals[i], version)
		if err != nil {
			return domain.PatternSet{}, err
		}
		set.Patterns = append(set.Patterns, p)
	}

	return set, nil
}

func decodeVersion(n *node) (int, error) {
	if n.kind != kindNumber || n.num != math.Trunc(n.num) {
		return 0, docError("version", "must be an integer", n.describe())
	}
	v := int(n.num)
	if _, ok := stepFields[v]; !ok {
		return 0, docError("version", "unsupported document version", v)
	}
	return v, nil
}

func decodeSensitivity(n *node) (*domain.Sensitivity, error) {
	if n.kind != kindMapping {
		return nil, docError("sensitivity", "must be an object with x and y", n.describe())
	}
	vals, err := exactFields(n, [3]string{"x", "y"}, 2, func(field, reason string, value any) error {
		return docError("sensitivity."+field, reason, value)
	})
	if err != nil {
		return nil, err
	}
	return &domain.Sensitivity{X: vals[0], Y: vals[1]}, nil
}

func decodePattern(name string, n *node, version int) (domain.Pattern, error) {
	if n.kind != kindSequence {
		return domain.Pattern{}, &ValidationError{Pattern: name, Step: -1, Reason: "must be a list of steps", Value: n.describe()}
	}

	fields := stepFields[version]
	p := domain.Pattern{Name: name, Steps: make([]domain.Step, 0, len(n.items))}
	var prevX, prevY float64

	for i, item := range n.items {
		fail := func(field, reason string, value any) error {
			return &ValidationError{Pattern: name, Step: i, Field: field, Reason: reason, Value: value}
		}
		if item.kind != kindMapping {
			return domain.Pattern{}, fail("", "step must be an object", item.describe())
		}

		vals, err := exactFields(item, fields, 3, fail)
		if err != nil {
			return domain.Pattern{}, err
		}

		ms := vals[2]
		switch {
		case !finite(ms):
			return domain.Pattern{}, fail(fields[2], "must be a finite number", ms)
		case ms < 0:
			return domain.Pattern{}, fail(fields[2], "must be non-negative", ms)
		case ms > maxDurationMs:
			return domain.Pattern{}, fail(fields[2], "is too large", ms)
		}

		step := domain.Step{
			DX:       vals[0],
			DY:       vals[1],
			Duration: time.Duration(ms * float64(time.Millisecond)),
		}
		if version == VersionLegacy {
			step.DX, step.DY = vals[0]-prevX, vals[1]-prevY
			prevX, prevY = vals[0], vals[1]
		}
		p.Steps = append(p.Steps, step)
	}

	return p, nil
}

// exactFields requires n to contain exactly the first count names in fields,
// each holding a number, and returns the numbers in field order.
func exactFields(n *node, fields [3]string, count int, fail func(field, reason string, value any) error) ([3]float64, error) {
	var out [3]float64
	found := [3]bool{}

	for i, key := range n.keys {
		idx := -1
		for j := 0; j < count; j++ {
			if fields[j] == key {
				idx = j
				break
			}
		}
		if idx < 0 {
			return out, fail(key, "unknown key", nil)
		}
		if found[idx] {
			return out, fail(key, "duplicate key", nil)
		}
		val := n.vals[i]
		if val.kind != kindNumber {
			return out, fail(key, "must be a number", val.describe())
		}
		out[idx] = val.num
		found[idx] = true
	}

	for j := 0; j < count; j++ {
		if !found[j] {
			return out, fail(fields[j], "required", nil)
		}
	}
	return out, nil
}
