package project

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

var knownKeysCache sync.Map // reflect.Type -> map[string]bool

// jsonKeys returns the top-level JSON keys a struct type decodes, following
// embedded structs the way encoding/json does.
func jsonKeys(t reflect.Type) map[string]bool {
	if cached, ok := knownKeysCache.Load(t); ok {
		return cached.(map[string]bool)
	}
	keys := make(map[string]bool)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if f.Anonymous && name == "" && f.Type.Kind() == reflect.Struct {
			for k := range jsonKeys(f.Type) {
				keys[k] = true
			}
			continue
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		keys[name] = true
	}
	knownKeysCache.Store(t, keys)
	return keys
}

// marshalWithExtra encodes v and adds any extra keys it does not already
// carry.
func marshalWithExtra(v any, extra map[string]json.RawMessage) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return b, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	for k, raw := range extra {
		if _, ok := m[k]; !ok {
			m[k] = raw
		}
	}
	return json.Marshal(m)
}

// unmarshalWithExtra decodes data into v (a pointer to struct) and returns
// the top-level keys v does not model. It returns nil when there are none.
func unmarshalWithExtra(data []byte, v any) (map[string]json.RawMessage, error) {
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	known := jsonKeys(reflect.TypeOf(v).Elem())
	for k := range m {
		if known[k] {
			delete(m, k)
		}
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}

// MergeTop applies each patch to base as a shallow merge over top-level
// keys: a key present in a later patch replaces the whole value of that key,
// keys it does not mention keep their accumulated value. base is never
// modified; the result shares no memory with it.
func MergeTop[P any](base P, patches ...map[string]json.RawMessage) (P, error) {
	var out P
	raw, err := json.Marshal(base)
	if err != nil {
		return out, fmt.Errorf("project: encode base: %w", err)
	}
	var acc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &acc); err != nil {
		return out, fmt.Errorf("project: decode base: %w", err)
	}
	if acc == nil {
		acc = make(map[string]json.RawMessage)
	}
	for _, patch := range patches {
		for k, v := range patch {
			acc[k] = v
		}
	}
	merged, err := json.Marshal(acc)
	if err != nil {
		return out, fmt.Errorf("project: encode merged: %w", err)
	}
	if err := json.Unmarshal(merged, &out); err != nil {
		return out, fmt.Errorf("project: decode merged: %w", err)
	}
	return out, nil
}

// Clone returns a deep copy of v.
func Clone[T any](v T) (T, error) {
	var out T
	raw, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("project: clone: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("project: clone: %w", err)
	}
	return out, nil
}
