package extract

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ColumnType is the declared output type of a column
type ColumnType string

const (
	TypeAny     ColumnType = "any"
	TypeString  ColumnType = "string"
	TypeNumber  ColumnType = "number"
	TypeInteger ColumnType = "integer"
	TypeBool    ColumnType = "bool"
)

// ParseColumnType maps a type name to a ColumnType. The empty string means TypeAny.
func ParseColumnType(s string) (ColumnType, error) {
	switch ColumnType(strings.ToLower(strings.TrimSpace(s))) {
	case "", TypeAny:
		return TypeAny, nil
	case TypeString, "text":
		return TypeString, nil
	case TypeNumber, "float":
		return TypeNumber, nil
	case TypeInteger, "int":
		return TypeInteger, nil
	case TypeBool, "boolean":
		return TypeBool, nil
	}
	return "", fmt.Errorf("unknown column type %q", s)
}

// UnmarshalJSON accepts any spelling ParseColumnType accepts
func (t *ColumnType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseColumnType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// coerce converts a present scalar into the column type. Mappings and
// sequences are never scalars and always fail.
func coerce(v any, t ColumnType) (any, error) {
	switch v.(type) {
	case map[string]any, []any:
		return nil, fmt.Errorf("%s is not a scalar", kindOf(v))
	}

	switch t {
	case TypeAny, "":
		if n, ok := v.(json.Number); ok {
			if f, err := n.Float64(); err == nil {
				return f, nil
			}
			return n.String(), nil
		}
		if f, ok := toFloat(v); ok {
			return f, nil
		}
		return v, nil
	case TypeString:
		return toString(v)
	case TypeNumber:
		if f, ok := toFloat(v); ok {
			return f, nil
		}
		if s, ok := v.(string); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("%q is not numeric", s)
			}
			return f, nil
		}
		return nil, fmt.Errorf("%s is not numeric", kindOf(v))
	case TypeInteger:
		i, err := toInteger(v)
		if err != nil {
			return nil, err
		}
		return i, nil
	case TypeBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(x))
			if err != nil {
				return nil, fmt.Errorf("%q is not a boolean", x)
			}
			return b, nil
		}
		return nil, fmt.Errorf("%s is not a boolean", kindOf(v))
	}
	return nil, fmt.Errorf("unknown column type %q", t)
}

// maxExactInteger is 2^53; float64 values beyond it no longer hold every integer
const maxExactInteger = 1 << 53

// toInteger parses decimal text exactly before falling back to float
// conversion, so large identifiers keep their digits.
func toInteger(v any) (int64, error) {
	var s string
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return 0, fmt.Errorf("%d is out of integer range", x)
		}
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("%d is out of integer range", x)
		}
		return int64(x), nil
	case json.Number:
		s = x.String()
	case string:
		s = strings.TrimSpace(x)
	default:
		f, ok := toFloat(v)
		if !ok {
			return 0, fmt.Errorf("%s is not an integer", kindOf(v))
		}
		return floatToInteger(f)
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return floatToInteger(f)
}

func floatToInteger(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	if math.Abs(f) > maxExactInteger {
		return 0, fmt.Errorf("%v is out of integer range", f)
	}
	return int64(f), nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	case uint32:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

func toString(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	return nil, fmt.Errorf("%s has no string form", kindOf(v))
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "mapping"
	case []any:
		return "sequence"
	case string:
		return "string"
	case bool:
		return "boolean"
	}
	if _, ok := toFloat(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
