package where

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Parse reads a filter written in YAML or JSON, keeping key order:
//
//	price: {gt: 100, lt: 200}
//	or:
//	  - name: A
//	  - name: B
//
// An empty document yields an empty filter.
func Parse(data []byte) (Filter, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("where: parse: %w", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return Filter{}, nil
		}
		root = root.Content[0]
	}
	if root.Kind == 0 || (root.Kind == yaml.ScalarNode && root.Tag == "!!null") {
		return Filter{}, nil
	}
	return parseFilter(root)
}

func parseFilter(n *yaml.Node) (Filter, error) {
	n = resolve(n)
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("where: parse: line %d: expect a mapping", n.Line)
	}
	f := make(Filter, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i].Value, resolve(n.Content[i+1])
		switch key {
		case And, Or:
			if val.Kind != yaml.SequenceNode {
				return nil, fmt.Errorf("where: parse: line %d: %s expects a sequence", val.Line, key)
			}
			subs := make([]Filter, 0, len(val.Content))
			for _, e := range val.Content {
				sub, err := parseFilter(e)
				if err != nil {
					return nil, err
				}
				subs = append(subs, sub)
			}
			f = append(f, Cond{Key: key, Value: subs})
		case Not:
			sub, err := parseFilter(val)
			if err != nil {
				return nil, err
			}
			f = append(f, Cond{Key: key, Value: sub})
		default:
			v, err := parseValue(val)
			if err != nil {
				return nil, err
			}
			f = append(f, Cond{Key: key, Value: v})
		}
	}
	return f, nil
}

// parseValue decodes a column value. Mappings become ordered Ops.
func parseValue(n *yaml.Node) (any, error) {
	if n.Kind != yaml.MappingNode {
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("where: parse: line %d: %w", n.Line, err)
		}
		return v, nil
	}
	ops := make(Ops, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		var v any
		if err := n.Content[i+1].Decode(&v); err != nil {
			return nil, fmt.Errorf("where: parse: line %d: %w", n.Content[i+1].Line, err)
		}
		ops = append(ops, Op{Name: n.Content[i].Value, Value: v})
	}
	return ops, nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
