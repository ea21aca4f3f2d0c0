package value

import (
	"fmt"
	"sort"
	"strings"
)

// Value is a clear (non secret) value flowing through views: row fields,
// group keys and the native data of clear metrics.
type Value interface {
	isValue()
	Equal(v Value) bool
	String() string
}

var _ Value = Int(0)
var _ Value = Double(0)
var _ Value = Bool(true)
var _ Value = String("")
var _ Value = List{Int(0), Bool(true)}
var _ Value = Dict{"hi": Int(0), "bye": Bool(true)}
var _ Value = nil_{}

type Int int64

func (I Int) isValue() {}
func (I Int) Equal(v Value) bool {
	switch v.(type) {
	case Int:
		return v.(Int) == I
	default:
		return false
	}
}
func (I Int) String() string {
	return fmt.Sprintf("Int(%d)", int64(I))
}

type Double float64

func (d Double) isValue() {}
func (d Double) Equal(v Value) bool {
	switch v.(type) {
	case Double:
		return v.(Double) == d
	default:
		return false
	}
}
func (d Double) String() string {
	return fmt.Sprintf("Double(%v)", float64(d))
}

type Bool bool

func (b Bool) isValue() {}
func (b Bool) Equal(v Value) bool {
	switch v.(type) {
	case Bool:
		return v.(Bool) == b
	default:
		return false
	}
}
func (b Bool) String() string {
	return fmt.Sprintf("Bool(%v)", bool(b))
}

type String string

func (s String) isValue() {}
func (s String) Equal(v Value) bool {
	switch v.(type) {
	case String:
		return v.(String) == s
	default:
		return false
	}
}
func (s String) String() string {
	return fmt.Sprintf("String(%s)", string(s))
}

type nil_ struct{}

var Nil = nil_{}

func (n nil_) isValue() {}
func (n nil_) Equal(v Value) bool {
	switch v.(type) {
	case nil_:
		return true
	default:
		return false
	}
}
func (n nil_) String() string {
	return "Nil"
}

type List []Value

func NewList(values ...Value) List {
	ret := make([]Value, 0, len(values))
	ret = append(ret, values...)
	return ret
}

func (l List) isValue() {}
func (l List) Equal(right Value) bool {
	switch right.(type) {
	case List:
		r := right.(List)
		if len(r) != len(l) {
			return false
		}
		for i, lv := range l {
			if !lv.Equal(r[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
func (l List) String() string {
	sb := strings.Builder{}
	sb.WriteString("[")
	for _, v := range l {
		sb.WriteString(fmt.Sprintf("%v, ", v.String()))
	}
	sb.WriteString("]")
	return sb.String()
}

type Dict map[string]Value

func NewDict(values map[string]Value) Dict {
	ret := make(map[string]Value, len(values))
	for k, v := range values {
		ret[k] = v
	}
	return ret
}

func (d Dict) isValue() {}
func (d Dict) Equal(v Value) bool {
	switch v.(type) {
	case Dict:
		right := v.(Dict)
		if len(right) != len(d) {
			return false
		}
		for k, lv := range d {
			if rv, ok := right[k]; !(ok && lv.Equal(rv)) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String prints keys in sorted order so that it is stable across runs.
func (d Dict) String() string {
	sb := strings.Builder{}
	sb.WriteString("{")
	for _, k := range d.keys() {
		sb.WriteString(fmt.Sprintf("%s: %v, ", k, d[k].String()))
	}
	sb.WriteString("}")
	return sb.String()
}

func (d Dict) Get(k string) (Value, bool) {
	v, ok := d[k]
	return v, ok
}

func (d Dict) keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ToFloat returns the numeric value of Int and Double values.
func ToFloat(v Value) (float64, bool) {
	switch t := v.(type) {
	case Int:
		return float64(t), true
	case Double:
		return float64(t), true
	default:
		return 0, false
	}
}

// IsNumber is true for Int and Double values.
func IsNumber(v Value) bool {
	_, ok := ToFloat(v)
	return ok
}
