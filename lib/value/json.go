package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/buger/jsonparser"
)

func (n nil_) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// MarshalJSON always writes a fraction or an exponent, so that whole numbers
// parse back as Double and not as Int.
func (d Double) MarshalJSON() ([]byte, error) {
	f := float64(d)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("can not serialize %v to json", f)
	}
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.AppendFloat(nil, f, 'e', -1, 64), nil
	}
	data := strconv.AppendFloat(nil, f, 'f', -1, 64)
	if !bytes.ContainsRune(data, '.') {
		data = append(data, ".0"...)
	}
	return data, nil
}

// ToJson projects val. FromJson(ToJson(v)) is equal to v for every value.
func ToJson(val Value) ([]byte, error) {
	switch val.(type) {
	case nil_, Bool, Int, Double, String, List, Dict:
		return json.Marshal(val)
	default:
		return nil, fmt.Errorf("json serialization for %T not implemented", val)
	}
}

// FromJson parses a projection. Numbers with a fraction or an exponent are
// Double, all others Int.
func FromJson(data []byte) (Value, error) {
	vdata, vtype, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, err
	}
	return parseJson(vdata, vtype)
}

func parseJson(vdata []byte, vtype jsonparser.ValueType) (Value, error) {
	switch vtype {
	case jsonparser.Null:
		return Nil, nil
	case jsonparser.Boolean:
		v, err := jsonparser.ParseBoolean(vdata)
		return Bool(v), err
	case jsonparser.Number:
		return parseNumber(vdata)
	case jsonparser.String:
		v, err := jsonparser.ParseString(vdata)
		return String(v), err
	case jsonparser.Array:
		return parseList(vdata)
	case jsonparser.Object:
		return parseDict(vdata)
	default:
		return nil, fmt.Errorf("unexpected json type %s", vtype)
	}
}

func parseNumber(vdata []byte) (Value, error) {
	if bytes.ContainsAny(vdata, ".eE") {
		v, err := jsonparser.ParseFloat(vdata)
		return Double(v), err
	}
	v, err := jsonparser.ParseInt(vdata)
	if err != nil {
		return nil, fmt.Errorf("invalid int [%s]: %w", vdata, err)
	}
	return Int(v), nil
}

func parseList(vdata []byte) (Value, error) {
	ret := List{}
	var first error
	_, err := jsonparser.ArrayEach(vdata, func(elem []byte, etype jsonparser.ValueType, _ int, err error) {
		if first != nil {
			return
		}
		if err != nil {
			first = err
			return
		}
		v, err := parseJson(elem, etype)
		if err != nil {
			first = err
			return
		}
		ret = append(ret, v)
	})
	if err != nil {
		return nil, err
	}
	if first != nil {
		return nil, first
	}
	return ret, nil
}

func parseDict(vdata []byte) (Value, error) {
	ret := make(Dict)
	err := jsonparser.ObjectEach(vdata, func(key []byte, elem []byte, etype jsonparser.ValueType, _ int) error {
		k, err := jsonparser.ParseString(key)
		if err != nil {
			return err
		}
		v, err := parseJson(elem, etype)
		if err != nil {
			return err
		}
		ret[k] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}
