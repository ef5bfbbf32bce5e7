package variable

import "time"

// BaseType enumerates the QTI base types a Variable's scalar components may
// carry (core.v1 §3).
type BaseType int

const (
	BaseTypeIdentifier BaseType = iota
	BaseTypeBoolean
	BaseTypeInteger
	BaseTypeFloat
	BaseTypeString
	BaseTypePoint
	BaseTypePair
	BaseTypeDirectedPair
	BaseTypeDuration
	BaseTypeFile
	BaseTypeURI
)

// Cardinality enumerates container shapes a Variable's value may take.
type Cardinality int

const (
	Single Cardinality = iota
	Multiple
	Ordered
	Record
)

// Point is the scalar representation of the QTI "point" base type.
type Point struct{ X, Y int }

// Pair is the scalar representation of "pair" and "directedPair"; order is
// significant only for directedPair.
type Pair struct{ First, Second string }

// Value holds a Variable's runtime value: either null, a single scalar, a
// multiple/ordered list of same-baseType scalars, or a record of
// independently-typed named fields. A multiple/ordered/record container is
// never mixed-typed within one list (§3 invariant); Record fields may each
// carry their own BaseType.
type Value struct {
	Cardinality Cardinality
	BaseType    BaseType
	isNull      bool

	ident    string
	boolean  bool
	integer  int64
	float    float64
	str      string
	point    Point
	pair     Pair
	duration time.Duration
	file     []byte
	uri      string

	list   []Value
	record map[string]Value
}

// Null constructs the null value for the given cardinality/baseType; a
// variable "may be null (value absent)" per §3.
func Null(card Cardinality, bt BaseType) Value {
	return Value{Cardinality: card, BaseType: bt, isNull: true}
}

func IdentValue(s string) Value { return Value{Cardinality: Single, BaseType: BaseTypeIdentifier, ident: s} }
func BoolValue(b bool) Value    { return Value{Cardinality: Single, BaseType: BaseTypeBoolean, boolean: b} }
func IntValue(i int64) Value    { return Value{Cardinality: Single, BaseType: BaseTypeInteger, integer: i} }
func FloatValue(f float64) Value {
	return Value{Cardinality: Single, BaseType: BaseTypeFloat, float: f}
}
func StringValue(s string) Value { return Value{Cardinality: Single, BaseType: BaseTypeString, str: s} }
func PointValue(x, y int) Value {
	return Value{Cardinality: Single, BaseType: BaseTypePoint, point: Point{x, y}}
}
func PairValue(a, b string) Value {
	return Value{Cardinality: Single, BaseType: BaseTypePair, pair: Pair{a, b}}
}
func DirectedPairValue(a, b string) Value {
	return Value{Cardinality: Single, BaseType: BaseTypeDirectedPair, pair: Pair{a, b}}
}
func DurationValue(d time.Duration) Value {
	return Value{Cardinality: Single, BaseType: BaseTypeDuration, duration: d}
}
func FileValue(b []byte) Value { return Value{Cardinality: Single, BaseType: BaseTypeFile, file: b} }
func URIValue(s string) Value  { return Value{Cardinality: Single, BaseType: BaseTypeURI, uri: s} }

// MultipleValue builds an unordered multiple-cardinality container.
func MultipleValue(bt BaseType, items ...Value) Value {
	return Value{Cardinality: Multiple, BaseType: bt, list: items}
}

// OrderedValue builds an ordered-cardinality container.
func OrderedValue(bt BaseType, items ...Value) Value {
	return Value{Cardinality: Ordered, BaseType: bt, list: items}
}

// RecordValue builds a record container from independently-typed fields.
func RecordValue(fields map[string]Value) Value {
	return Value{Cardinality: Record, record: fields}
}

func (v Value) IsNull() bool { return v.isNull }

func (v Value) Ident() string          { return v.ident }
func (v Value) Bool() bool             { return v.boolean }
func (v Value) Int() int64             { return v.integer }
func (v Value) Float() float64         { return v.float }
func (v Value) Str() string            { return v.str }
func (v Value) Point() Point           { return v.point }
func (v Value) Pair() Pair             { return v.pair }
func (v Value) Duration() time.Duration { return v.duration }
func (v Value) File() []byte           { return v.file }
func (v Value) URI() string            { return v.uri }
func (v Value) List() []Value          { return v.list }
func (v Value) Record() map[string]Value { return v.record }

// Equal implements QTI's "match" semantics for single-cardinality scalars
// and set-equality for multiple/ordered containers (order-sensitive for
// Ordered, order-insensitive for Multiple), used by outcome-processing
// built-ins and test feedback gating (§4.8.5).
func (v Value) Equal(other Value) bool {
	if v.isNull != other.isNull {
		return false
	}
	if v.isNull {
		return true
	}
	if v.Cardinality != other.Cardinality || v.BaseType != other.BaseType {
		return false
	}
	switch v.Cardinality {
	case Single:
		return v.scalarEqual(other)
	case Multiple:
		return multisetEqual(v.list, other.list)
	case Ordered:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case Record:
		if len(v.record) != len(other.record) {
			return false
		}
		for k, vv := range v.record {
			ov, ok := other.record[k]
			if !ok || !vv.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

func (v Value) scalarEqual(o Value) bool {
	switch v.BaseType {
	case BaseTypeIdentifier:
		return v.ident == o.ident
	case BaseTypeBoolean:
		return v.boolean == o.boolean
	case BaseTypeInteger:
		return v.integer == o.integer
	case BaseTypeFloat:
		return v.float == o.float
	case BaseTypeString:
		return v.str == o.str
	case BaseTypePoint:
		return v.point == o.point
	case BaseTypePair, BaseTypeDirectedPair:
		return v.pair == o.pair
	case BaseTypeDuration:
		return v.duration == o.duration
	case BaseTypeURI:
		return v.uri == o.uri
	case BaseTypeFile:
		return string(v.file) == string(o.file)
	}
	return false
}

func multisetEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, av := range a {
		matched := false
		for i, bv := range b {
			if used[i] {
				continue
			}
			if av.Equal(bv) {
				used[i] = true
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// Contains reports whether a multiple/ordered container holds an element
// equal to scalar, used by test feedback gating's multi-cardinality "contains"
// rule (§4.8.5).
func (v Value) Contains(scalar Value) bool {
	if v.Cardinality != Multiple && v.Cardinality != Ordered {
		return v.Equal(scalar)
	}
	for _, item := range v.list {
		if item.Equal(scalar) {
			return true
		}
	}
	return false
}
