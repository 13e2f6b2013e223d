package storage

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/Adebesin-Cell/triplit/triple"
)

// valueType tags a serialized triple.Value the same way the teacher's
// datalog.ValueType tags a Datom value, so BadgerStore can round-trip
// values through its interface{}-typed Value field.
type valueType byte

const (
	vtNil valueType = iota
	vtString
	vtInt
	vtFloat
	vtBool
	vtTime
	vtBytes
)

func valueTypeOf(v triple.Value) valueType {
	switch v.(type) {
	case nil:
		return vtNil
	case string:
		return vtString
	case int64:
		return vtInt
	case float64:
		return vtFloat
	case bool:
		return vtBool
	case time.Time:
		return vtTime
	case []byte:
		return vtBytes
	default:
		return vtString
	}
}

func valueBytes(v triple.Value) []byte {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return []byte(val)
	case int64:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(val))
		return buf
	case float64:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, math.Float64bits(val))
		return buf
	case bool:
		if val {
			return []byte{1}
		}
		return []byte{0}
	case time.Time:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(val.UnixNano()))
		return buf
	case []byte:
		return val
	default:
		return []byte(fmt.Sprintf("%v", val))
	}
}

func valueFromBytes(vt valueType, data []byte) (triple.Value, error) {
	switch vt {
	case vtNil:
		return nil, nil
	case vtString:
		return string(data), nil
	case vtInt:
		if len(data) != 8 {
			return nil, fmt.Errorf("int value must be 8 bytes, got %d", len(data))
		}
		return int64(binary.BigEndian.Uint64(data)), nil
	case vtFloat:
		if len(data) != 8 {
			return nil, fmt.Errorf("float value must be 8 bytes, got %d", len(data))
		}
		return math.Float64frombits(binary.BigEndian.Uint64(data)), nil
	case vtBool:
		if len(data) != 1 {
			return nil, fmt.Errorf("bool value must be 1 byte, got %d", len(data))
		}
		return data[0] != 0, nil
	case vtTime:
		if len(data) != 8 {
			return nil, fmt.Errorf("time value must be 8 bytes, got %d", len(data))
		}
		return time.Unix(0, int64(binary.BigEndian.Uint64(data))), nil
	case vtBytes:
		return data, nil
	default:
		return nil, fmt.Errorf("unknown value type: %v", vt)
	}
}

// EncodeTriple serializes a triple for Badger storage: one byte of
// retracted flag, one byte of value type, 8 bytes of tick, a
// length-prefixed client id, a length-prefixed entity id, the attribute
// path (a 2-byte segment count, then each segment length-prefixed), and
// the remaining bytes are the value.
func EncodeTriple(t triple.Triple) []byte {
	buf := make([]byte, 0, 64)
	if t.Retracted {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, byte(valueTypeOf(t.Value)))

	tick := make([]byte, 8)
	binary.BigEndian.PutUint64(tick, t.Timestamp.Tick)
	buf = append(buf, tick...)

	buf = appendLenPrefixed(buf, []byte(t.Timestamp.ClientID))
	buf = appendLenPrefixed(buf, []byte(t.EntityID))

	pathLen := make([]byte, 2)
	binary.BigEndian.PutUint16(pathLen, uint16(len(t.Attribute)))
	buf = append(buf, pathLen...)
	for _, seg := range t.Attribute {
		buf = appendLenPrefixed(buf, []byte(seg))
	}

	buf = append(buf, valueBytes(t.Value)...)
	return buf
}

func appendLenPrefixed(buf, data []byte) []byte {
	l := make([]byte, 4)
	binary.BigEndian.PutUint32(l, uint32(len(data)))
	buf = append(buf, l...)
	return append(buf, data...)
}

// DecodeTriple is the inverse of EncodeTriple.
func DecodeTriple(data []byte) (triple.Triple, error) {
	var t triple.Triple
	if len(data) < 10 {
		return t, fmt.Errorf("triple payload too short: %d bytes", len(data))
	}
	pos := 0
	t.Retracted = data[pos] != 0
	pos++
	vt := valueType(data[pos])
	pos++
	t.Timestamp.Tick = binary.BigEndian.Uint64(data[pos : pos+8])
	pos += 8

	clientID, pos2, err := readLenPrefixed(data, pos)
	if err != nil {
		return t, err
	}
	pos = pos2
	t.Timestamp.ClientID = string(clientID)

	entityID, pos3, err := readLenPrefixed(data, pos)
	if err != nil {
		return t, err
	}
	pos = pos3
	t.EntityID = triple.EntityID(entityID)

	if pos+2 > len(data) {
		return t, fmt.Errorf("truncated attribute path length")
	}
	numSegs := int(binary.BigEndian.Uint16(data[pos : pos+2]))
	pos += 2
	path := make(triple.Path, 0, numSegs)
	for i := 0; i < numSegs; i++ {
		seg, next, err := readLenPrefixed(data, pos)
		if err != nil {
			return t, err
		}
		path = append(path, string(seg))
		pos = next
	}
	t.Attribute = path

	v, err := valueFromBytes(vt, data[pos:])
	if err != nil {
		return t, err
	}
	t.Value = v
	return t, nil
}

func readLenPrefixed(data []byte, pos int) ([]byte, int, error) {
	if pos+4 > len(data) {
		return nil, pos, fmt.Errorf("truncated length prefix at %d", pos)
	}
	l := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if pos+l > len(data) {
		return nil, pos, fmt.Errorf("truncated payload at %d, want %d bytes", pos, l)
	}
	return data[pos : pos+l], pos + l, nil
}
