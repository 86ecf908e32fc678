package value

import (
	"encoding/json"
	"math"
	"time"
)

// ToJSON marshals a Value to JSON bytes. Timestamps render as RFC
// 3339 strings and regexes as their pattern source; both are lossy,
// which matches how the pipeline serializes transformed events.
func ToJSON(v Value) ([]byte, error) {
	return json.Marshal(toRaw(v))
}

// ToJSONString is a convenience that returns a string.
func ToJSONString(v Value) string {
	b, err := ToJSON(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func toRaw(v Value) any {
	if v == nil {
		return nil
	}

	switch val := v.(type) {
	case Null:
		return nil

	case Bool:
		return val.Value

	case Int:
		return val.Value

	case Float:
		return val.Value

	case Bytes:
		return val.Value

	case Timestamp:
		return val.Value.UTC().Format(time.RFC3339Nano)

	case Regex:
		return val.Value.String()

	case Array:
		items := make([]any, len(val.Items))
		for i, item := range val.Items {
			items[i] = toRaw(item)
		}
		return items

	case Object:
		fields := make(map[string]any, len(val.Fields))
		for name, f := range val.Fields {
			fields[name] = toRaw(f)
		}
		return fields
	}

	return nil
}

// FromJSON converts JSON bytes to a Value. Whole numbers decode as
// integers, everything else per the obvious mapping.
func FromJSON(data []byte) (Value, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return FromAny(raw), nil
}

// FromAny converts a decoded JSON-shaped Go value to a Value.
func FromAny(v any) Value {
	if v == nil {
		return NewNull()
	}
	switch val := v.(type) {
	case bool:
		return NewBool(val)
	case int:
		return NewInt(int64(val))
	case int64:
		return NewInt(val)
	case float64:
		if val == math.Trunc(val) && !math.IsInf(val, 0) && !math.IsNaN(val) &&
			val >= math.MinInt64 && val <= math.MaxInt64 {
			return NewInt(int64(val))
		}
		return NewFloat(val)
	case string:
		return NewBytes(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return NewInt(i)
		}
		if f, err := val.Float64(); err == nil {
			return NewFloat(f)
		}
		return NewNull()
	case []any:
		items := make([]Value, len(val))
		for i, item := range val {
			items[i] = FromAny(item)
		}
		return NewArray(items)
	case map[string]any:
		fields := make(map[string]Value, len(val))
		for k, item := range val {
			fields[k] = FromAny(item)
		}
		return NewObject(fields)
	}
	return NewNull()
}
