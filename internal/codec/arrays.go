package codec

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ohler55/ojg/oj"

	"github.com/uascm/uascm/internal/nodeid"
	"github.com/uascm/uascm/internal/nodetype"
)

// Arrays and matrices are stored as JSON: a flat JSON array of element
// renderings, or an array of row arrays for a matrix. Element renderings use
// the same special cases as the scalar codec (64-bit pairs, epoch millis,
// base64 byte strings).

func encodeNonScalar(v nodetype.Variant) ([]byte, error) {
	elems, ok := v.Value.([]any)
	if !ok {
		return nil, fmt.Errorf("cannot encode %T as %s %s", v.Value, v.ArrayType, v.DataType)
	}
	if v.ArrayType == nodetype.Matrix {
		rows := make([]any, len(elems))
		for i, row := range elems {
			rowElems, ok := row.([]any)
			if !ok {
				return nil, fmt.Errorf("matrix row %d is %T, not a row", i, row)
			}
			encoded, err := encodeElements(rowElems, v.DataType)
			if err != nil {
				return nil, err
			}
			rows[i] = encoded
		}
		return oj.Marshal(rows)
	}
	encoded, err := encodeElements(elems, v.DataType)
	if err != nil {
		return nil, err
	}
	return oj.Marshal(encoded)
}

func decodeNonScalar(content []byte, dataType nodetype.DataType, arrayType nodetype.ArrayType) (any, error) {
	parsed, err := oj.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", arrayType, err)
	}
	elems, ok := parsed.([]any)
	if !ok {
		return nil, fmt.Errorf("decode %s: content is not a JSON array", arrayType)
	}
	if arrayType == nodetype.Matrix {
		rows := make([]any, len(elems))
		for i, row := range elems {
			rowElems, ok := row.([]any)
			if !ok {
				return nil, fmt.Errorf("decode matrix: row %d is not an array", i)
			}
			decoded, err := decodeElements(rowElems, dataType)
			if err != nil {
				return nil, err
			}
			rows[i] = decoded
		}
		return rows, nil
	}
	return decodeElements(elems, dataType)
}

func encodeElements(elems []any, dataType nodetype.DataType) ([]any, error) {
	out := make([]any, len(elems))
	for i, el := range elems {
		enc, err := encodeElement(el, dataType)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = enc
	}
	return out, nil
}

func encodeElement(el any, dataType nodetype.DataType) (any, error) {
	if el == nil {
		return nil, nil
	}
	switch dataType {
	case nodetype.Boolean:
		b, ok := el.(bool)
		if !ok {
			return nil, fmt.Errorf("cannot encode %T as Boolean", el)
		}
		return b, nil
	case nodetype.SByte, nodetype.Int16, nodetype.Int32:
		n, ok := toInt64(el)
		if !ok {
			return nil, fmt.Errorf("cannot encode %T as %s", el, dataType)
		}
		return n, nil
	case nodetype.Byte, nodetype.UInt16, nodetype.UInt32:
		n, ok := toUint64(el)
		if !ok {
			return nil, fmt.Errorf("cannot encode %T as %s", el, dataType)
		}
		return int64(n), nil
	case nodetype.Int64:
		n, ok := toInt64(el)
		if !ok {
			return nil, fmt.Errorf("cannot encode %T as Int64", el)
		}
		return int64Pair(uint64(n)), nil
	case nodetype.UInt64:
		n, ok := toUint64(el)
		if !ok {
			return nil, fmt.Errorf("cannot encode %T as UInt64", el)
		}
		return int64Pair(n), nil
	case nodetype.Float, nodetype.Double:
		f, ok := toFloat64(el)
		if !ok {
			return nil, fmt.Errorf("cannot encode %T as %s", el, dataType)
		}
		return f, nil
	case nodetype.String, nodetype.XmlElement, nodetype.LocalizedText:
		s, ok := el.(string)
		if !ok {
			return nil, fmt.Errorf("cannot encode %T as %s", el, dataType)
		}
		return s, nil
	case nodetype.NodeIdType:
		id, ok := el.(nodeid.NodeId)
		if !ok {
			return nil, fmt.Errorf("cannot encode %T as NodeId", el)
		}
		return id.String(), nil
	case nodetype.DateTime:
		t, ok := el.(time.Time)
		if !ok {
			return nil, fmt.Errorf("cannot encode %T as DateTime", el)
		}
		return t.UnixMilli(), nil
	case nodetype.Guid:
		g, ok := el.(uuid.UUID)
		if !ok {
			return nil, fmt.Errorf("cannot encode %T as Guid", el)
		}
		return g.String(), nil
	case nodetype.ByteString:
		raw, ok := el.([]byte)
		if !ok {
			return nil, fmt.Errorf("cannot encode %T as ByteString", el)
		}
		return base64Encode(raw), nil
	default:
		return el, nil
	}
}

func decodeElements(elems []any, dataType nodetype.DataType) ([]any, error) {
	out := make([]any, len(elems))
	for i, el := range elems {
		dec, err := decodeElement(el, dataType)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = dec
	}
	return out, nil
}

func decodeElement(el any, dataType nodetype.DataType) (any, error) {
	if el == nil {
		return nil, nil
	}
	switch dataType {
	case nodetype.Boolean:
		b, ok := el.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean, got %T", el)
		}
		return b, nil
	case nodetype.SByte, nodetype.Int16, nodetype.Int32:
		n, ok := toInt64(el)
		if !ok {
			return nil, fmt.Errorf("expected integer, got %T", el)
		}
		return n, nil
	case nodetype.Byte, nodetype.UInt16, nodetype.UInt32:
		n, ok := toUint64(el)
		if !ok {
			return nil, fmt.Errorf("expected unsigned integer, got %T", el)
		}
		return n, nil
	case nodetype.Int64, nodetype.UInt64:
		pair, ok := el.([]any)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("expected two-component pair, got %v", el)
		}
		hi, okHi := toInt64(pair[0])
		lo, okLo := toInt64(pair[1])
		if !okHi || !okLo {
			return nil, fmt.Errorf("non-integer pair components %v", pair)
		}
		n := uint64(uint32(hi))<<32 | uint64(uint32(lo))
		if dataType == nodetype.Int64 {
			return int64(n), nil
		}
		return n, nil
	case nodetype.Float, nodetype.Double:
		f, ok := toFloat64(el)
		if !ok {
			return nil, fmt.Errorf("expected number, got %T", el)
		}
		return f, nil
	case nodetype.String, nodetype.XmlElement, nodetype.LocalizedText:
		s, ok := el.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", el)
		}
		return s, nil
	case nodetype.NodeIdType:
		s, ok := el.(string)
		if !ok {
			return nil, fmt.Errorf("expected node id string, got %T", el)
		}
		return nodeid.Parse(s)
	case nodetype.DateTime:
		ms, ok := toInt64(el)
		if !ok {
			return nil, fmt.Errorf("expected epoch milliseconds, got %T", el)
		}
		return time.UnixMilli(ms).UTC(), nil
	case nodetype.Guid:
		s, ok := el.(string)
		if !ok {
			return nil, fmt.Errorf("expected guid string, got %T", el)
		}
		return uuid.Parse(s)
	case nodetype.ByteString:
		s, ok := el.(string)
		if !ok {
			return nil, fmt.Errorf("expected base64 string, got %T", el)
		}
		return base64.StdEncoding.DecodeString(s)
	default:
		return el, nil
	}
}
