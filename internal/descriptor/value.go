package descriptor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Property is one attribute of an entity descriptor.
type Property struct {
	Key   string
	Value any
}

// Properties is an ordered attribute list. JSON object key order is kept on
// decode; a plain map would lose it.
type Properties []Property

// Get returns the value stored under key.
func (p Properties) Get(key string) (any, bool) {
	for _, prop := range p {
		if prop.Key == key {
			return prop.Value, true
		}
	}
	return nil, false
}

// Set replaces the value under key in place, or appends it.
func (p *Properties) Set(key string, value any) {
	for i := range *p {
		if (*p)[i].Key == key {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Property{Key: key, Value: value})
}

// UnmarshalJSON implements json.Unmarshaler, preserving key order.
func (p *Properties) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = nil
		return nil
	}
	props := Properties{}
	err := decodeOrderedObject(data, func(key string, raw json.RawMessage) error {
		v, err := DecodeValue(raw)
		if err != nil {
			return fmt.Errorf("property %q: %w", key, err)
		}
		props.Set(key, v)
		return nil
	})
	if err != nil {
		return err
	}
	*p = props
	return nil
}

// MarshalJSON implements json.Marshaler, writing keys in list order.
func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(prop.Key)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", prop.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(prop.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", prop.Key, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DecodeValue decodes one JSON value. Integral numbers become int64, other
// numbers float64; objects and arrays are decoded recursively.
func DecodeValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return Scalar(raw), nil
}

// Scalar converts json.Number values (at any depth) into int64 or float64.
// Everything else is returned unchanged.
func Scalar(v any) any {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return string(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Scalar(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = Scalar(elem)
		}
		return out
	default:
		return v
	}
}

// decodeOrderedObject walks a JSON object and calls fn for every member in
// document order.
func decodeOrderedObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// Limit is a row limit. It accepts a JSON number or a numeric string; zero or
// a negative value means no limit.
type Limit int64

// UnmarshalJSON implements json.Unmarshaler.
func (l *Limit) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*l = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("limit %q is not an integer", s)
		}
		*l = Limit(n)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	i, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return fmt.Errorf("limit %s is not a number", n)
		}
		i = int64(f)
	}
	*l = Limit(i)
	return nil
}

// Set reports whether the limit should be rendered.
func (l Limit) Set() bool {
	return l > 0
}
