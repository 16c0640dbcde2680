package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Extra holds object keys the current schema does not know about, so that
// a load/save round trip never drops data written by a newer or older build.
type Extra map[string]json.RawMessage

// SplitUnknown returns the keys of the JSON object data that do not match a json
// field of the struct type of known.
func SplitUnknown(data []byte, known any) (Extra, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	names := fieldNames(reflect.TypeOf(known))
	var extra Extra
	for key, value := range raw {
		if _, ok := names[key]; ok {
			continue
		}
		if extra == nil {
			extra = make(Extra)
		}
		extra[key] = value
	}
	return extra, nil
}

// MarshalWithExtra encodes v without HTML escaping and appends extra keys.
// Documents call it from MarshalJSON with a method-less alias of themselves.
func MarshalWithExtra(v any, extra Extra) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return MergeUnknown(bytes.TrimSpace(buf.Bytes()), extra)
}

// MergeUnknown appends extra keys to the encoded JSON object, in key order,
// skipping any the object already carries.
func MergeUnknown(encoded []byte, extra Extra) ([]byte, error) {
	if len(extra) == 0 {
		return encoded, nil
	}

	trimmed := bytes.TrimSpace(encoded)
	if len(trimmed) < 2 || trimmed[0] != '{' || trimmed[len(trimmed)-1] != '}' {
		return nil, fmt.Errorf("merge unknown fields: not a json object")
	}

	var present map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &present); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(extra))
	for key := range extra {
		if _, ok := present[key]; !ok {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return encoded, nil
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(trimmed[:len(trimmed)-1])
	needComma := len(present) > 0
	for _, key := range keys {
		if needComma {
			buf.WriteByte(',')
		}
		needComma = true
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(extra[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func fieldNames(t reflect.Type) map[string]struct{} {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	names := make(map[string]struct{})
	if t == nil || t.Kind() != reflect.Struct {
		return names
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if field.Anonymous && name == "" {
			for embedded := range fieldNames(field.Type) {
				names[embedded] = struct{}{}
			}
			continue
		}
		if !field.IsExported() {
			continue
		}
		if name == "" {
			name = field.Name
		}
		names[name] = struct{}{}
	}
	return names
}
