package triple

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// typeTag is a one-byte prefix identifying a value's wire type so that
// byte-wise comparison of two encoded values matches CompareValues
// exactly, including across types (§4.7: "cross-type comparisons are
// deterministic").
type typeTag byte

const (
	tagMin typeTag = iota // nil / missing attribute
	tagBool
	tagNumber
	tagString
	tagTime
	tagBytes
)

// EncodeOrdered serializes v into a byte string such that for any two
// values a, b: bytes.Compare(EncodeOrdered(a), EncodeOrdered(b)) has the
// same sign as CompareValues(a, b). Used to build cursor keys (§4.7) and
// as the ordering key for range-scan index access (§4.1).
func EncodeOrdered(v Value) []byte {
	if v == nil {
		return []byte{byte(tagMin)}
	}
	switch val := v.(type) {
	case bool:
		b := byte(0)
		if val {
			b = 1
		}
		return []byte{byte(tagBool), b}
	case int64:
		return encodeNumber(float64(val))
	case float64:
		return encodeNumber(val)
	case string:
		return append([]byte{byte(tagString)}, []byte(val)...)
	case time.Time:
		buf := make([]byte, 9)
		buf[0] = byte(tagTime)
		binary.BigEndian.PutUint64(buf[1:], uint64(val.UnixNano()))
		return buf
	case []byte:
		return append([]byte{byte(tagBytes)}, val...)
	default:
		// Fall back to string encoding for unrecognized types, keeping
		// byte ordering consistent with stringValue's fallback in
		// CompareValues.
		return append([]byte{byte(tagString)}, []byte(fmt.Sprintf("%v", val))...)
	}
}

// encodeNumber maps a float64 to a big-endian byte sequence that
// preserves numeric order, including negative numbers: flip the sign bit
// always, and flip every bit when the original value is negative.
func encodeNumber(f float64) []byte {
	bits := math.Float64bits(f)
	if f < 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	buf := make([]byte, 9)
	buf[0] = byte(tagNumber)
	binary.BigEndian.PutUint64(buf[1:], bits)
	return buf
}

// EncodeCursor encodes a (value, entity_id) cursor pair into a single
// order-preserving key, used by §4.1's order-scan-to-range-bound
// translation and §4.7's stateful after-cursor predicate.
func EncodeCursor(v Value, id EntityID) []byte {
	vb := EncodeOrdered(v)
	out := make([]byte, 0, len(vb)+1+len(id))
	out = append(out, vb...)
	out = append(out, 0x00) // separator; not escaped, so a string or bytes value containing 0x00 is not delimited unambiguously
	out = append(out, []byte(id)...)
	return out
}
