package resolver

import (
	"errors"
	"fmt"
	"strings"

	"kodiak/lib/ftypes"

	"github.com/samber/lo"
)

var ErrDependencyGraph = errors.New("invalid dependency graph")

// CyclicDependencyError lists the members of a cycle, starting and ending with
// the same column.
type CyclicDependencyError struct {
	Cycle []ftypes.ColumnName
}

func (e *CyclicDependencyError) Error() string {
	names := lo.Map(e.Cycle, func(n ftypes.ColumnName, _ int) string {
		return string(n)
	})
	return fmt.Sprintf("cyclic dependency: %s", strings.Join(names, " -> "))
}

func (e *CyclicDependencyError) Is(target error) bool {
	return target == ErrDependencyGraph
}

type UnknownDependencyError struct {
	Column     ftypes.ColumnName
	Dependency ftypes.ColumnName
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("column '%s' depends on unknown column '%s'", e.Column, e.Dependency)
}

func (e *UnknownDependencyError) Is(target error) bool {
	return target == ErrDependencyGraph
}

// Node is a column of the dependency graph. *column.Metadata implements it.
type Node interface {
	Name() ftypes.ColumnName
	Dependencies() []ftypes.ColumnName
}

type state uint8

const (
	unvisited state = iota
	visiting
	done
)

// Order returns the names of nodes such that every column comes after all of
// its dependencies. Columns that do not depend on each other keep their
// relative order of declaration. Names must be unique.
func Order(nodes []Node) ([]ftypes.ColumnName, error) {
	index := make(map[ftypes.ColumnName]Node, len(nodes))
	for _, n := range nodes {
		index[n.Name()] = n
	}
	for _, n := range nodes {
		for _, dep := range n.Dependencies() {
			if _, ok := index[dep]; !ok {
				return nil, &UnknownDependencyError{Column: n.Name(), Dependency: dep}
			}
		}
	}

	states := make(map[ftypes.ColumnName]state, len(nodes))
	order := make([]ftypes.ColumnName, 0, len(nodes))
	var stack []ftypes.ColumnName

	var visit func(n Node) error
	visit = func(n Node) error {
		name := n.Name()
		switch states[name] {
		case done:
			return nil
		case visiting:
			start := lo.IndexOf(stack, name)
			cycle := append(append([]ftypes.ColumnName{}, stack[start:]...), name)
			return &CyclicDependencyError{Cycle: cycle}
		}
		states[name] = visiting
		stack = append(stack, name)
		for _, dep := range n.Dependencies() {
			if err := visit(index[dep]); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		states[name] = done
		order = append(order, name)
		return nil
	}
	for _, n := range nodes {
		if err := visit(n); err != nil {
			return nil, err
		}
	}
	return order, nil
}
