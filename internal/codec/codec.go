// Package codec converts typed node values to file content and back, and
// infers value metadata from a file's extension suffixes.
package codec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/ohler55/ojg/oj"

	"github.com/uascm/uascm/internal/nodeid"
	"github.com/uascm/uascm/internal/nodetype"
)

// Encode renders a typed value as file content. A nil value always encodes to
// zero-length content regardless of data type.
func Encode(v nodetype.Variant) ([]byte, error) {
	if v.Value == nil {
		return []byte{}, nil
	}
	if v.ArrayType != nodetype.Scalar {
		return encodeNonScalar(v)
	}
	switch v.DataType {
	case nodetype.Boolean:
		b, ok := v.Value.(bool)
		if !ok {
			return nil, encodeTypeError(v)
		}
		return []byte(strconv.FormatBool(b)), nil
	case nodetype.SByte, nodetype.Int16, nodetype.Int32:
		n, ok := toInt64(v.Value)
		if !ok {
			return nil, encodeTypeError(v)
		}
		return []byte(strconv.FormatInt(n, 10)), nil
	case nodetype.Byte, nodetype.UInt16, nodetype.UInt32:
		n, ok := toUint64(v.Value)
		if !ok {
			return nil, encodeTypeError(v)
		}
		return []byte(strconv.FormatUint(n, 10)), nil
	case nodetype.Int64:
		n, ok := toInt64(v.Value)
		if !ok {
			return nil, encodeTypeError(v)
		}
		return oj.Marshal(int64Pair(uint64(n)))
	case nodetype.UInt64:
		n, ok := toUint64(v.Value)
		if !ok {
			return nil, encodeTypeError(v)
		}
		return oj.Marshal(int64Pair(n))
	case nodetype.Float:
		f, ok := toFloat64(v.Value)
		if !ok {
			return nil, encodeTypeError(v)
		}
		return []byte(strconv.FormatFloat(f, 'g', -1, 32)), nil
	case nodetype.Double:
		f, ok := toFloat64(v.Value)
		if !ok {
			return nil, encodeTypeError(v)
		}
		return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
	case nodetype.String, nodetype.XmlElement, nodetype.LocalizedText:
		return textBytes(v.Value)
	case nodetype.NodeIdType:
		switch id := v.Value.(type) {
		case nodeid.NodeId:
			return []byte(id.String()), nil
		case string:
			return []byte(id), nil
		}
		return nil, encodeTypeError(v)
	case nodetype.DateTime:
		switch t := v.Value.(type) {
		case time.Time:
			return []byte(strconv.FormatInt(t.UnixMilli(), 10)), nil
		case int64:
			return []byte(strconv.FormatInt(t, 10)), nil
		}
		return nil, encodeTypeError(v)
	case nodetype.Guid:
		switch g := v.Value.(type) {
		case uuid.UUID:
			return []byte(g.String()), nil
		case string:
			return []byte(g), nil
		}
		return nil, encodeTypeError(v)
	case nodetype.ByteString:
		return textBytes(v.Value)
	default:
		// Identity fallback for value types with no more specific model.
		if raw, err := textBytes(v.Value); err == nil {
			return raw, nil
		}
		return []byte(fmt.Sprintf("%v", v.Value)), nil
	}
}

// Decode is the inverse of Encode for a given data type and shape. Empty
// content always decodes to nil.
func Decode(content []byte, dataType nodetype.DataType, arrayType nodetype.ArrayType) (any, error) {
	if len(content) == 0 {
		return nil, nil
	}
	if arrayType != nodetype.Scalar {
		return decodeNonScalar(content, dataType, arrayType)
	}
	text := string(bytes.TrimSpace(content))
	switch dataType {
	case nodetype.Boolean:
		return strconv.ParseBool(text)
	case nodetype.SByte, nodetype.Int16, nodetype.Int32:
		return strconv.ParseInt(text, 10, 64)
	case nodetype.Byte, nodetype.UInt16, nodetype.UInt32:
		return strconv.ParseUint(text, 10, 64)
	case nodetype.Int64:
		n, err := parseInt64Pair(content)
		if err != nil {
			return nil, err
		}
		return int64(n), nil
	case nodetype.UInt64:
		return parseInt64Pair(content)
	case nodetype.Float, nodetype.Double:
		return strconv.ParseFloat(text, 64)
	case nodetype.String, nodetype.XmlElement, nodetype.LocalizedText:
		return string(content), nil
	case nodetype.NodeIdType:
		return nodeid.Parse(text)
	case nodetype.DateTime:
		ms, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode DateTime: %w", err)
		}
		return time.UnixMilli(ms).UTC(), nil
	case nodetype.Guid:
		return uuid.Parse(text)
	case nodetype.ByteString:
		raw := make([]byte, len(content))
		copy(raw, content)
		return raw, nil
	default:
		// Identity fallback: hand the raw bytes back unchanged.
		raw := make([]byte, len(content))
		copy(raw, content)
		return raw, nil
	}
}

func encodeTypeError(v nodetype.Variant) error {
	return fmt.Errorf("cannot encode %T as %s", v.Value, v.DataType)
}

func textBytes(value any) ([]byte, error) {
	switch x := value.(type) {
	case string:
		return []byte(x), nil
	case []byte:
		raw := make([]byte, len(x))
		copy(raw, x)
		return raw, nil
	}
	return nil, fmt.Errorf("cannot encode %T as text", value)
}

// int64Pair splits a 64-bit integer into its 32-bit halves. Clients without a
// native 64-bit integer reassemble the halves losslessly, which a plain
// decimal rendering cannot guarantee them.
func int64Pair(n uint64) []any {
	return []any{int64(int32(n >> 32)), int64(uint32(n))}
}

func parseInt64Pair(content []byte) (uint64, error) {
	parsed, err := oj.Parse(content)
	if err != nil {
		return 0, fmt.Errorf("decode 64-bit pair: %w", err)
	}
	pair, ok := parsed.([]any)
	if !ok || len(pair) != 2 {
		return 0, fmt.Errorf("decode 64-bit pair: expected two components, got %v", parsed)
	}
	hi, okHi := toInt64(pair[0])
	lo, okLo := toInt64(pair[1])
	if !okHi || !okLo {
		return 0, fmt.Errorf("decode 64-bit pair: non-integer components %v", parsed)
	}
	return uint64(uint32(hi))<<32 | uint64(uint32(lo)), nil
}

func toInt64(value any) (int64, bool) {
	switch n := value.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func toUint64(value any) (uint64, bool) {
	switch n := value.(type) {
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case float64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	}
	return 0, false
}

func toFloat64(value any) (float64, bool) {
	switch f := value.(type) {
	case float32:
		return float64(f), true
	case float64:
		return f, true
	case int:
		return float64(f), true
	case int64:
		return float64(f), true
	}
	return 0, false
}

func base64Encode(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}
