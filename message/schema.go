package message

import "fmt"

// SpecEntry is one named node or mark spec of an editor schema.
type SpecEntry struct {
	Name string
	Spec map[string]any
}

// Schema is an editor schema spec with nodes and marks in declaration order.
type Schema struct {
	Nodes   []SpecEntry
	Marks   []SpecEntry
	TopNode string
}

// SchemaSpec returns s in the serialized form carried by Init. Nodes and
// marks are ordered maps encoded as {"content": [name, spec, ...]}.
func (s Schema) SchemaSpec() map[string]any {
	spec := map[string]any{
		"nodes": encodeOrdered(s.Nodes),
		"marks": encodeOrdered(s.Marks),
	}
	if s.TopNode != "" {
		spec["topNode"] = s.TopNode
	}
	return spec
}

// ParseSchemaSpec parses the serialized form produced by Schema.SchemaSpec.
func ParseSchemaSpec(spec map[string]any) (Schema, error) {
	if spec == nil {
		return Schema{}, fmt.Errorf("%w: missing", ErrInvalidSchemaSpec)
	}
	nodes, err := decodeOrdered("nodes", spec["nodes"])
	if err != nil {
		return Schema{}, err
	}
	marks, err := decodeOrdered("marks", spec["marks"])
	if err != nil {
		return Schema{}, err
	}
	s := Schema{Nodes: nodes, Marks: marks}
	if top, ok := spec["topNode"]; ok && top != nil {
		name, ok := top.(string)
		if !ok {
			return Schema{}, fmt.Errorf("%w: topNode must be a string", ErrInvalidSchemaSpec)
		}
		s.TopNode = name
	}
	return s, nil
}

func encodeOrdered(entries []SpecEntry) map[string]any {
	content := make([]any, 0, 2*len(entries))
	for _, e := range entries {
		spec := e.Spec
		if spec == nil {
			spec = map[string]any{}
		}
		content = append(content, e.Name, spec)
	}
	return map[string]any{"content": content}
}

func decodeOrdered(field string, v any) ([]SpecEntry, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be an object", ErrInvalidSchemaSpec, field)
	}
	content, ok := obj["content"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s.content must be a list", ErrInvalidSchemaSpec, field)
	}
	if len(content)%2 != 0 {
		return nil, fmt.Errorf("%w: %s.content has odd length %d", ErrInvalidSchemaSpec, field, len(content))
	}

	entries := make([]SpecEntry, 0, len(content)/2)
	for i := 0; i < len(content); i += 2 {
		name, ok := content[i].(string)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %s.content[%d] must be a name", ErrInvalidSchemaSpec, field, i)
		}
		spec, ok := content[i+1].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s %q must be an object", ErrInvalidSchemaSpec, field, name)
		}
		entries = append(entries, SpecEntry{Name: name, Spec: spec})
	}
	return entries, nil
}
