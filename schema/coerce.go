package schema

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/qnighy/minibuf/wire"
)

// Loose conversions from the Go values a caller may put in a Message
// (including what encoding/json produces) to a field's declared type.

func rangeError(v any, typeName string) error {
	return wire.Errorf(wire.ErrRange, "value %v is out of range for %s", v, typeName)
}

func typeError(v any, typeName string) error {
	return wire.Errorf(wire.ErrRange, "cannot use %T as %s", v, typeName)
}

// toInt64 accepts any Go integer kind, integral floats, json.Number and
// decimal strings.
func toInt64(v any, typeName string) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint:
		return uintToInt64(uint64(t), typeName)
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		return uintToInt64(t, typeName)
	case float32:
		return floatToInt64(float64(t), typeName)
	case float64:
		return floatToInt64(t, typeName)
	case json.Number:
		return parseInt64(t.String(), typeName)
	case string:
		return parseInt64(t, typeName)
	default:
		return 0, typeError(v, typeName)
	}
}

func uintToInt64(u uint64, typeName string) (int64, error) {
	if u > math.MaxInt64 {
		return 0, rangeError(u, typeName)
	}
	return int64(u), nil
}

func floatToInt64(f float64, typeName string) (int64, error) {
	// -2^63 is exact; 2^63 is the first float64 out of range.
	if f != math.Trunc(f) || f < -(1<<63) || f >= 1<<63 {
		return 0, rangeError(f, typeName)
	}
	return int64(f), nil
}

func parseInt64(s, typeName string) (int64, error) {
	if strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, typeError(s, typeName)
		}
		return floatToInt64(f, typeName)
	}
	iv, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return 0, rangeError(s, typeName)
		}
		return 0, typeError(s, typeName)
	}
	return iv, nil
}

// toUint64 is the unsigned counterpart of toInt64. Negative values are
// range errors.
func toUint64(v any, typeName string) (uint64, error) {
	switch t := v.(type) {
	case uint:
		return uint64(t), nil
	case uint8:
		return uint64(t), nil
	case uint16:
		return uint64(t), nil
	case uint32:
		return uint64(t), nil
	case uint64:
		return t, nil
	case int, int8, int16, int32, int64:
		i, _ := toInt64(t, typeName)
		if i < 0 {
			return 0, rangeError(v, typeName)
		}
		return uint64(i), nil
	case float32:
		return floatToUint64(float64(t), typeName)
	case float64:
		return floatToUint64(t, typeName)
	case json.Number:
		return parseUint64(t.String(), typeName)
	case string:
		return parseUint64(t, typeName)
	default:
		return 0, typeError(v, typeName)
	}
}

func floatToUint64(f float64, typeName string) (uint64, error) {
	if f != math.Trunc(f) || f < 0 || f >= 1<<64 {
		return 0, rangeError(f, typeName)
	}
	return uint64(f), nil
}

func parseUint64(s, typeName string) (uint64, error) {
	if strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, typeError(s, typeName)
		}
		return floatToUint64(f, typeName)
	}
	if strings.HasPrefix(s, "-") {
		if _, err := strconv.ParseInt(s, 10, 64); err == nil || err.(*strconv.NumError).Err == strconv.ErrRange {
			return 0, rangeError(s, typeName)
		}
		return 0, typeError(s, typeName)
	}
	uv, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return 0, rangeError(s, typeName)
		}
		return 0, typeError(s, typeName)
	}
	return uv, nil
}

func toInt32(v any, typeName string) (int32, error) {
	if t, ok := v.(int32); ok {
		return t, nil
	}
	i, err := toInt64(v, typeName)
	if err != nil {
		return 0, err
	}
	if i < math.MinInt32 || i > math.MaxInt32 {
		return 0, rangeError(v, typeName)
	}
	return int32(i), nil
}

func toUint32(v any, typeName string) (uint32, error) {
	if t, ok := v.(uint32); ok {
		return t, nil
	}
	u, err := toUint64(v, typeName)
	if err != nil {
		return 0, err
	}
	if u > math.MaxUint32 {
		return 0, rangeError(v, typeName)
	}
	return uint32(u), nil
}

func toFloat64(v any, typeName string) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int, int8, int16, int32, int64:
		i, _ := toInt64(t, typeName)
		return float64(i), nil
	case uint, uint8, uint16, uint32, uint64:
		u, _ := toUint64(t, typeName)
		return float64(u), nil
	case json.Number:
		return parseFloat(t.String(), typeName)
	case string:
		return parseFloat(t, typeName)
	default:
		return 0, typeError(v, typeName)
	}
}

func parseFloat(s, typeName string) (float64, error) {
	switch s {
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, typeError(s, typeName)
	}
	return f, nil
}

// toFloat32 rounds to nearest. Positive values up to 2^-150 become +0,
// which makes them default values for implicit presence.
func toFloat32(v any, typeName string) (float32, error) {
	if t, ok := v.(float32); ok {
		return t, nil
	}
	f, err := toFloat64(v, typeName)
	if err != nil {
		return 0, err
	}
	return float32(f), nil
}

func toBool(v any, typeName string) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false, typeError(v, typeName)
		}
		return b, nil
	default:
		return false, typeError(v, typeName)
	}
}

// toBytes accepts []byte as is and decodes strings as standard base64,
// the form JSON uses for bytes.
func toBytes(v any, typeName string) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		b, err := base64.StdEncoding.DecodeString(t)
		if err != nil {
			return nil, wire.Errorf(wire.ErrRange, "invalid base64 for %s: %w", typeName, err)
		}
		return b, nil
	default:
		return nil, typeError(v, typeName)
	}
}

func toString(v any, typeName string) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case json.Number:
		return t.String(), nil
	default:
		return "", typeError(v, typeName)
	}
}
