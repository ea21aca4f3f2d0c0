package value

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	t.Parallel()
	cases := []struct {
		a, b Value
		want int
	}{
		{Nil, Nil, 0},
		{Nil, Bool(false), -1},
		{Bool(false), Bool(true), -1},
		{Bool(true), Int(0), -1},
		{Int(1), Int(2), -1},
		{Int(2), Double(1.5), 1},
		{Int(1), Double(1), -1},
		{Double(1), Int(1), 1},
		{Double(math.NaN()), Double(-1e9), -1},
		{Int(10), String("1"), -1},
		{String("EU"), String("US"), -1},
		{String("US"), String("US"), 0},
		{List{Int(1)}, List{Int(1), Int(0)}, -1},
		{List{Int(2)}, List{Int(1), Int(0)}, 1},
		{String("z"), List{}, -1},
		{Dict{"a": Int(1)}, Dict{"a": Int(2)}, -1},
		{Dict{"a": Int(1)}, Dict{"b": Int(0)}, -1},
		{Dict{"a": Int(1)}, Dict{"a": Int(1), "b": Int(0)}, -1},
		{List{}, Dict{}, -1},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Compare(c.a, c.b), "compare(%s, %s)", c.a, c.b)
		assert.Equal(t, -c.want, Compare(c.b, c.a), "compare(%s, %s)", c.b, c.a)
	}
}

func TestCompare_ZeroIffEqual(t *testing.T) {
	t.Parallel()
	values := []Value{Nil, Bool(true), Int(1), Double(1), String("1"), List{Int(1)}, Dict{"1": Int(1)}}
	for _, a := range values {
		for _, b := range values {
			assert.Equal(t, a.Equal(b), Compare(a, b) == 0, "%s vs %s", a, b)
		}
	}
}

func TestCompareTuples_Sort(t *testing.T) {
	t.Parallel()
	keys := [][]Value{
		{String("US"), Int(2)},
		{String("EU"), Int(9)},
		{String("US"), Int(1)},
		{String("EU")},
	}
	sort.Slice(keys, func(i, j int) bool { return CompareTuples(keys[i], keys[j]) < 0 })
	assert.Equal(t, [][]Value{
		{String("EU")},
		{String("EU"), Int(9)},
		{String("US"), Int(1)},
		{String("US"), Int(2)},
	}, keys)
}

func TestAppendKey(t *testing.T) {
	t.Parallel()
	values := []Value{
		Nil, Bool(false), Bool(true), Int(0), Int(1), Double(0), Double(1),
		String(""), String("a"), String("ab"), List{}, List{String("a")},
		List{String("a"), String("b")}, Dict{}, Dict{"a": String("b")}, Dict{"ab": String("")},
	}
	seen := make(map[string]Value)
	for _, v := range values {
		k := string(AppendKey(nil, v))
		if prev, ok := seen[k]; ok {
			t.Fatalf("key collision between %s and %s", prev, v)
		}
		seen[k] = v
		assert.Equal(t, k, string(AppendKey(nil, v)))
	}
	// tuple boundaries are encoded
	assert.NotEqual(t, Hash(String("ab"), String("")), Hash(String("a"), String("b")))
	assert.Equal(t, Hash(String("US")), Hash(String("US")))
	assert.Equal(t, Hash(Double(0)), Hash(Double(math.Copysign(0, -1))))
	assert.Equal(t, Hash(Double(math.NaN())), Hash(Double(-math.NaN())))
}
