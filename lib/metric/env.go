package metric

import (
	"fmt"

	"kodiak/lib/ftypes"
	"kodiak/lib/mpc"
	"kodiak/lib/row"
	"kodiak/lib/value"
)

// Env is the Scope of one row: the row itself plus the data of every column
// defined so far. It is reset between rows and is not safe for concurrent use.
type Env struct {
	row   row.Row
	table map[ftypes.ColumnName]any
}

var _ Scope = (*Env)(nil)

func NewEnv(r row.Row) *Env {
	return &Env{
		row:   r,
		table: make(map[ftypes.ColumnName]any),
	}
}

// Reset points the env at a new row and forgets every defined column.
func (e *Env) Reset(r row.Row) {
	e.row = r
	for k := range e.table {
		delete(e.table, k)
	}
}

func (e *Env) Define(name ftypes.ColumnName, data any) error {
	if _, ok := e.table[name]; ok {
		return fmt.Errorf("re-defining column: '%s'", name)
	}
	e.table[name] = data
	return nil
}

func (e *Env) Get(field string) (value.Value, bool) {
	if e.row == nil {
		return nil, false
	}
	return e.row.Get(field)
}

func (e *Env) Fields() []string {
	if e.row == nil {
		return nil
	}
	return e.row.Fields()
}

func (e *Env) Data(name ftypes.ColumnName) (any, bool) {
	d, ok := e.table[name]
	return d, ok
}

// Field reads a clear field of the row on behalf of col.
func Field(scope Scope, col ftypes.ColumnName, field string) (value.Value, error) {
	v, ok := scope.Get(field)
	if !ok {
		return nil, NewMissingField(col, field)
	}
	return v, nil
}

// Clear reads the clear value of dependency dep on behalf of col.
func Clear(scope Scope, col, dep ftypes.ColumnName) (value.Value, error) {
	d, ok := scope.Data(dep)
	if !ok {
		return nil, NewDependencyUnavailable(col, dep, nil)
	}
	v, ok := d.(value.Value)
	if !ok {
		return nil, NewDependencyUnavailable(col, dep, fmt.Errorf("expected a clear value but got %T", d))
	}
	return v, nil
}

// Secret reads the secret shared value of dependency dep on behalf of col.
func Secret(scope Scope, col, dep ftypes.ColumnName) (mpc.SecInt, error) {
	d, ok := scope.Data(dep)
	if !ok {
		return mpc.SecInt{}, NewDependencyUnavailable(col, dep, nil)
	}
	s, ok := d.(mpc.SecInt)
	if !ok {
		return mpc.SecInt{}, NewDependencyUnavailable(col, dep, fmt.Errorf("expected a secret value but got %T", d))
	}
	return s, nil
}
