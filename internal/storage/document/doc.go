package storage_document

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Doc holds top-level fields as raw JSON so nested values keep their bytes.
type Doc map[string]json.RawMessage

func Encode(v any) (Doc, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc Doc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d Doc) Decode(v any) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// Fields builds a partial document from plain values.
func Fields(values map[string]any) (Doc, error) {
	doc := make(Doc, len(values))
	for k, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		doc[k] = raw
	}
	return doc, nil
}

func (d Doc) Merge(fields Doc) Doc {
	out := make(Doc, len(d)+len(fields))
	maps.Copy(out, d)
	maps.Copy(out, fields)
	return out
}

// Strings reads a string array field; a missing or null field is empty.
func (d Doc) Strings(field string) ([]string, error) {
	raw, ok := d[field]
	if !ok {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("field %s is not a string array: %w", field, err)
	}
	return out, nil
}

func union(current, values []string) []string {
	out := slices.Clone(current)
	for _, v := range values {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func remove(current, values []string) []string {
	return slices.DeleteFunc(slices.Clone(current), func(v string) bool {
		return slices.Contains(values, v)
	})
}
