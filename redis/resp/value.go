package resp

// Kind identifies which alternative of the RedisValue tagged union
// (spec.md §3) a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindSimpleString
	KindBulkString
	KindVerbatimString
	KindSimpleError
	KindBulkError
	KindBigNumber
	KindInteger
	KindDouble
	KindBoolean
	KindArray
	KindSet
	KindPush
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindSimpleString:
		return "SimpleString"
	case KindBulkString:
		return "BulkString"
	case KindVerbatimString:
		return "VerbatimString"
	case KindSimpleError:
		return "SimpleError"
	case KindBulkError:
		return "BulkError"
	case KindBigNumber:
		return "BigNumber"
	case KindInteger:
		return "Integer"
	case KindDouble:
		return "Double"
	case KindBoolean:
		return "Boolean"
	case KindArray:
		return "Array"
	case KindSet:
		return "Set"
	case KindPush:
		return "Push"
	case KindMap:
		return "Map"
	default:
		return "Unknown"
	}
}

// MapEntry is one key/value pair of a Map-kind Value.
type MapEntry struct {
	Key   Value
	Value Value
}

// Value is a tagged union over every RESP3 reply type (spec.md §3's
// RedisValue). Only the fields relevant to Kind are meaningful; the zero
// Value is KindNull. Plain assignment shares the underlying slices; Clone
// makes a deep copy.
type Value struct {
	Kind Kind

	Str            []byte // SimpleString/BulkString/SimpleError/BulkError/BigNumber
	VerbatimFormat string // 3-byte format tag for VerbatimString, e.g. "txt"

	Int    int64
	Double float64
	Bool   bool

	Array []Value    // Array/Set/Push
	Map   []MapEntry // Map

	// Attribute holds the optional side-channel attribute map that may
	// precede any reply (spec.md §3); nil when absent.
	Attribute []MapEntry
}

// IsError reports whether the value is a SimpleError or BulkError.
func (v Value) IsError() bool {
	return v.Kind == KindSimpleError || v.Kind == KindBulkError
}

// Clone returns a deep copy of v, matching the value-level ownership
// semantics spec.md §3 calls for.
func (v Value) Clone() Value {
	out := v
	if v.Str != nil {
		out.Str = append([]byte(nil), v.Str...)
	}
	if v.Array != nil {
		out.Array = make([]Value, len(v.Array))
		for i, e := range v.Array {
			out.Array[i] = e.Clone()
		}
	}
	if v.Map != nil {
		out.Map = make([]MapEntry, len(v.Map))
		for i, e := range v.Map {
			out.Map[i] = MapEntry{Key: e.Key.Clone(), Value: e.Value.Clone()}
		}
	}
	if v.Attribute != nil {
		out.Attribute = make([]MapEntry, len(v.Attribute))
		for i, e := range v.Attribute {
			out.Attribute[i] = MapEntry{Key: e.Key.Clone(), Value: e.Value.Clone()}
		}
	}
	return out
}
