package graph

// Integer is the two-word integer form some drivers and serialized rows use
// for 64-bit values.
type Integer struct {
	Low  int64 `json:"low" msgpack:"low"`
	High int64 `json:"high" msgpack:"high"`
}

// Normalize returns a copy of rows with integer wrappers collapsed:
//   - top-level values such as count and id
//   - the identity of an entity, which is renamed to id
//   - every integer property of an entity
//
// Wrappers whose high word is non-zero are left alone. Anything it does not
// recognize passes through unchanged; Normalize never fails.
func Normalize(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, row := range rows {
		out[i] = normalizeRow(row)
	}
	return out
}

func normalizeRow(row Row) Row {
	out := make(Row, len(row))
	for key, v := range row {
		if n, ok := collapse(v); ok {
			out[key] = n
			continue
		}
		if entity, ok := v.(map[string]any); ok && isEntity(entity) {
			out[key] = normalizeEntity(entity)
			continue
		}
		out[key] = v
	}
	return out
}

func isEntity(m map[string]any) bool {
	_, hasIdentity := m["identity"]
	_, hasProperties := m["properties"]
	return hasIdentity || hasProperties
}

func normalizeEntity(entity map[string]any) map[string]any {
	out := make(map[string]any, len(entity))
	for k, v := range entity {
		out[k] = v
	}

	if identity, ok := out["identity"]; ok {
		delete(out, "identity")
		if n, ok := collapse(identity); ok {
			out["id"] = n
		} else {
			out["id"] = identity
		}
	}

	if props, ok := out["properties"].(map[string]any); ok {
		normalized := make(map[string]any, len(props))
		for k, v := range props {
			if n, ok := collapse(v); ok {
				normalized[k] = n
			} else {
				normalized[k] = v
			}
		}
		out["properties"] = normalized
	}
	return out
}

// collapse recognizes an integer wrapper with a zero high word: an Integer,
// or a map with exactly the keys low and high.
func collapse(v any) (int64, bool) {
	switch val := v.(type) {
	case Integer:
		if val.High == 0 {
			return val.Low, true
		}
	case *Integer:
		if val != nil && val.High == 0 {
			return val.Low, true
		}
	case map[string]any:
		if len(val) != 2 {
			return 0, false
		}
		low, lok := integral(val["low"])
		high, hok := integral(val["high"])
		if lok && hok && high == 0 {
			return low, true
		}
	}
	return 0, false
}

func integral(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}
