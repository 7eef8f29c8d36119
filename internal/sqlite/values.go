package sqlite

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/mesh-intelligence/powdertrack/pkg/types"
)

// encodeKey converts an ID to the SQL value of a key column.
func encodeKey(kind types.KeyKind, id types.ID) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	if kind == types.KeyText {
		return id, nil
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", id, types.ErrInvalidID)
	}
	return n, nil
}

// decodeKey converts a scanned key value to an ID.
func decodeKey(v any) types.ID {
	switch x := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(x, 10)
	case []byte:
		return string(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// toInt64 accepts the integer shapes that arrive from Go callers and from
// decoded JSON.
func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case float64:
		if x == math.Trunc(x) {
			return int64(x), true
		}
	case json.Number:
		n, err := x.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

// encodeValue converts a field value to the SQL value of column c. refKind
// is the key kind of the referenced table for reference columns.
func encodeValue(c types.Column, refKind types.KeyKind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	bad := func() error {
		return fmt.Errorf("column %s: unexpected %T: %w", c.Name, v, types.ErrInvalidData)
	}
	switch c.Kind {
	case types.ColumnText:
		s, ok := v.(string)
		if !ok {
			return nil, bad()
		}
		return s, nil
	case types.ColumnInteger:
		n, ok := toInt64(v)
		if !ok {
			return nil, bad()
		}
		return n, nil
	case types.ColumnReal:
		f, ok := toFloat64(v)
		if !ok {
			return nil, bad()
		}
		return f, nil
	case types.ColumnBool:
		b, ok := v.(bool)
		if !ok {
			return nil, bad()
		}
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	case types.ColumnTimestamp:
		switch x := v.(type) {
		case time.Time:
			return x.UTC().Format(time.RFC3339Nano), nil
		case string:
			t, err := time.Parse(time.RFC3339Nano, x)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w: %v", c.Name, types.ErrInvalidData, err)
			}
			return t.UTC().Format(time.RFC3339Nano), nil
		}
		return nil, bad()
	case types.ColumnJSON:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w: %v", c.Name, types.ErrInvalidData, err)
		}
		return string(data), nil
	case types.ColumnRef:
		var id types.ID
		switch x := v.(type) {
		case string:
			id = x
		default:
			n, ok := toInt64(v)
			if !ok {
				return nil, bad()
			}
			id = strconv.FormatInt(n, 10)
		}
		if id == "" {
			return nil, nil
		}
		key, err := encodeKey(refKind, id)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		return key, nil
	}
	return nil, bad()
}

// decodeValue converts a scanned SQL value of column c to a field value.
// References come back as IDs; JSON columns come back decoded.
func decodeValue(c types.Column, v any) (any, error) {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil {
		return nil, nil
	}
	switch c.Kind {
	case types.ColumnBool:
		n, ok := toInt64(v)
		if !ok {
			return nil, fmt.Errorf("column %s: %w", c.Name, types.ErrInvalidData)
		}
		return n != 0, nil
	case types.ColumnReal:
		if f, ok := toFloat64(v); ok {
			return f, nil
		}
	case types.ColumnTimestamp:
		if s, ok := v.(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return t, nil
			}
		}
	case types.ColumnJSON:
		s, ok := v.(string)
		if !ok {
			return v, nil
		}
		var out any
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, fmt.Errorf("column %s: %w: %v", c.Name, types.ErrInvalidData, err)
		}
		return out, nil
	case types.ColumnRef:
		return decodeKey(v), nil
	}
	return v, nil
}
