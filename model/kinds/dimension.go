package kinds

import (
	"kodiak/lib/value"
)

// dimension holds a clear per-row value such as an input field or a derived
// key. Within a bucket grouped by the column every value is the same; in
// general aggregation keeps the smallest value, which is associative and
// commutative.
type dimension struct {
	val value.Value
	set bool
}

func (d dimension) fold(v value.Value) dimension {
	if !d.set || value.Compare(v, d.val) < 0 {
		return dimension{val: v, set: true}
	}
	return d
}

func (d dimension) merge(o dimension) dimension {
	if !o.set {
		return d
	}
	return d.fold(o.val)
}

func (d dimension) data() value.Value {
	if !d.set {
		return value.Nil
	}
	return d.val
}

func (d dimension) json() (string, error) {
	data, err := value.ToJson(d.data())
	if err != nil {
		return "", err
	}
	return string(data), nil
}
