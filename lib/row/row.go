package row

import (
	"context"
	"io"
	"sort"

	"kodiak/lib/value"
)

// Row is a read-only view over one input record.
type Row interface {
	Get(field string) (value.Value, bool)
	Fields() []string
}

type dictRow struct {
	fields value.Dict
}

var _ Row = dictRow{}

// New returns a row over a copy of the given fields.
func New(fields map[string]value.Value) Row {
	return dictRow{value.NewDict(fields)}
}

func (r dictRow) Get(field string) (value.Value, bool) {
	v, ok := r.fields[field]
	return v, ok
}

func (r dictRow) Fields() []string {
	ret := make([]string, 0, len(r.fields))
	for k := range r.fields {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

// Source produces rows one at a time and returns io.EOF once exhausted.
type Source interface {
	Next(ctx context.Context) (Row, error)
}

type sliceSource struct {
	rows []Row
	next int
}

func NewSliceSource(rows ...Row) Source {
	return &sliceSource{rows: rows}
}

func (s *sliceSource) Next(ctx context.Context) (Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.rows) {
		return nil, io.EOF
	}
	r := s.rows[s.next]
	s.next++
	return r, nil
}
