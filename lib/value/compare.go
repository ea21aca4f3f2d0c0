package value

import (
	"encoding/binary"
	"math"

	"github.com/zeebo/xxh3"
)

// rank orders the value kinds relative to each other. Int and Double share a
// rank so that numbers are compared by magnitude.
func rank(v Value) int {
	switch v.(type) {
	case nil_:
		return 0
	case Bool:
		return 1
	case Int, Double:
		return 2
	case String:
		return 3
	case List:
		return 4
	case Dict:
		return 5
	default:
		return 6
	}
}

// Compare is a total order over values: it returns -1, 0 or 1 and returns 0
// iff a.Equal(b). Numbers compare by magnitude with Int sorting before an
// equal Double; lists compare lexicographically; dicts compare by their sorted
// (key, value) pairs.
func Compare(a, b Value) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmpInt(int64(ra), int64(rb))
	}
	switch at := a.(type) {
	case nil_:
		return 0
	case Bool:
		bt := b.(Bool)
		switch {
		case at == bt:
			return 0
		case !bool(at):
			return -1
		default:
			return 1
		}
	case Int:
		switch bt := b.(type) {
		case Int:
			return cmpInt(int64(at), int64(bt))
		case Double:
			if c := cmpFloat(float64(at), float64(bt)); c != 0 {
				return c
			}
			return -1
		}
	case Double:
		switch bt := b.(type) {
		case Double:
			return cmpFloat(float64(at), float64(bt))
		case Int:
			if c := cmpFloat(float64(at), float64(bt)); c != 0 {
				return c
			}
			return 1
		}
	case String:
		bt := b.(String)
		switch {
		case at < bt:
			return -1
		case at > bt:
			return 1
		default:
			return 0
		}
	case List:
		return CompareTuples(at, b.(List))
	case Dict:
		bt := b.(Dict)
		ak, bk := at.keys(), bt.keys()
		for i := 0; i < len(ak) && i < len(bk); i++ {
			if ak[i] != bk[i] {
				if ak[i] < bk[i] {
					return -1
				}
				return 1
			}
			if c := Compare(at[ak[i]], bt[bk[i]]); c != 0 {
				return c
			}
		}
		return cmpInt(int64(len(ak)), int64(len(bk)))
	}
	return 0
}

// CompareTuples compares two value tuples lexicographically.
func CompareTuples(a, b []Value) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmpInt(int64(len(a)), int64(len(b)))
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// NaN sorts before every other number and equal to itself.
func cmpFloat(a, b float64) int {
	an, bn := math.IsNaN(a), math.IsNaN(b)
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

const (
	tagNil byte = iota
	tagBool
	tagInt
	tagDouble
	tagString
	tagList
	tagDict
)

// AppendKey appends a canonical binary encoding of v to dst. Values that
// Compare equal have the same encoding.
func AppendKey(dst []byte, v Value) []byte {
	switch t := v.(type) {
	case nil_:
		return append(dst, tagNil)
	case Bool:
		if t {
			return append(dst, tagBool, 1)
		}
		return append(dst, tagBool, 0)
	case Int:
		dst = append(dst, tagInt)
		return binary.BigEndian.AppendUint64(dst, uint64(t))
	case Double:
		f := float64(t)
		switch {
		case f == 0:
			f = 0
		case math.IsNaN(f):
			f = math.NaN()
		}
		dst = append(dst, tagDouble)
		return binary.BigEndian.AppendUint64(dst, math.Float64bits(f))
	case String:
		dst = append(dst, tagString)
		dst = binary.AppendUvarint(dst, uint64(len(t)))
		return append(dst, t...)
	case List:
		dst = append(dst, tagList)
		dst = binary.AppendUvarint(dst, uint64(len(t)))
		for _, e := range t {
			dst = AppendKey(dst, e)
		}
		return dst
	case Dict:
		dst = append(dst, tagDict)
		dst = binary.AppendUvarint(dst, uint64(len(t)))
		for _, k := range t.keys() {
			dst = binary.AppendUvarint(dst, uint64(len(k)))
			dst = append(dst, k...)
			dst = AppendKey(dst, t[k])
		}
		return dst
	default:
		return dst
	}
}

// Hash hashes a tuple of values with xxh3 over their canonical encoding.
func Hash(values ...Value) uint64 {
	var buf []byte
	for _, v := range values {
		buf = AppendKey(buf, v)
	}
	return xxh3.Hash(buf)
}
