package column

import (
	"fmt"
	"sort"

	"kodiak/lib/ftypes"
)

// Metadata is the identity of a computable column: a name that is unique
// within a view and the names of the columns that must be computed first.
// It is immutable and shared by every metric instance of one kind.
type Metadata struct {
	name ftypes.ColumnName
	deps []ftypes.ColumnName
}

// New panics on an empty name; metadata is declared once when a kind is
// constructed, so this is a programming error.
func New(name ftypes.ColumnName, deps ...ftypes.ColumnName) *Metadata {
	if len(name) == 0 {
		panic("column name can not be of zero length")
	}
	set := make(map[ftypes.ColumnName]struct{}, len(deps))
	uniq := make([]ftypes.ColumnName, 0, len(deps))
	for _, d := range deps {
		if _, ok := set[d]; ok {
			continue
		}
		set[d] = struct{}{}
		uniq = append(uniq, d)
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i] < uniq[j] })
	return &Metadata{name: name, deps: uniq}
}

func (m *Metadata) Name() ftypes.ColumnName {
	return m.name
}

// Dependencies returns a sorted copy of the dependency names.
func (m *Metadata) Dependencies() []ftypes.ColumnName {
	ret := make([]ftypes.ColumnName, len(m.deps))
	copy(ret, m.deps)
	return ret
}

func (m *Metadata) DependsOn(name ftypes.ColumnName) bool {
	i := sort.Search(len(m.deps), func(i int) bool { return m.deps[i] >= name })
	return i < len(m.deps) && m.deps[i] == name
}

func (m *Metadata) String() string {
	return fmt.Sprintf("%s%v", m.name, m.deps)
}
