package configtree

import (
	"fmt"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// ToPOJO exports the subtree rooted at path as a plain Go value: a leaf
// becomes its decoded JSON value, a container becomes a
// map[string]any keyed by child name. An empty path exports the whole
// tree.
func (t *Tree) ToPOJO(path []string) (any, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	id, ok := t.resolveLocked(path)
	if !ok {
		return nil, fmt.Errorf("configtree: no node at %q", path)
	}
	return t.toPOJOLocked(id)
}

func (t *Tree) toPOJOLocked(id nodeID) (any, error) {
	n := t.nodes[id]
	if n.isLeaf() {
		if len(n.value) == 0 {
			return nil, nil
		}
		var v any
		if err := json.Unmarshal(n.value, &v); err != nil {
			return nil, fmt.Errorf("configtree: decode leaf %q: %w", n.name, err)
		}
		return v, nil
	}

	out := make(map[string]any, len(n.childOrder))
	for _, name := range n.childOrder {
		childID, ok := n.children[name]
		if !ok {
			continue
		}
		v, err := t.toPOJOLocked(childID)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// FromPOJO merges v (as produced by ToPOJO, or any nested
// map[string]any/scalar structure) into the tree at path under timestamp
// ts. Non-map values overwrite the leaf at path directly; maps recurse.
func (t *Tree) FromPOJO(path []string, ts int64, v any) error {
	m, ok := v.(map[string]any)
	if !ok {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("configtree: marshal value at %q: %w", path, err)
		}
		return t.setLeaf(path, ts, raw, false)
	}
	return t.MergeMap(path, ts, m, nil)
}

// ToJSON exports the subtree at path as indented JSON.
func (t *Tree) ToJSON(path []string) ([]byte, error) {
	v, err := t.ToPOJO(path)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(v, "", "  ")
}

// FromJSON merges the JSON document data into the tree at path under
// timestamp ts.
func (t *Tree) FromJSON(path []string, ts int64, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("configtree: unmarshal json: %w", err)
	}
	return t.FromPOJO(path, ts, v)
}

// ToYAML exports the subtree at path as YAML.
func (t *Tree) ToYAML(path []string) ([]byte, error) {
	v, err := t.ToPOJO(path)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(v)
}

// FromYAML merges the YAML document data into the tree at path under
// timestamp ts.
func (t *Tree) FromYAML(path []string, ts int64, data []byte) error {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("configtree: unmarshal yaml: %w", err)
	}
	return t.FromPOJO(path, ts, normalizeYAML(v))
}

// normalizeYAML recursively converts the map[string]any /
// map[any]any mix that yaml.v3 can produce into plain
// map[string]any, so FromPOJO's type switch sees consistent shapes
// regardless of decode source.
func normalizeYAML(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return x
	}
}
