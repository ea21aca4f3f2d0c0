package view

import (
	"errors"
	"fmt"

	"kodiak/lib/ftypes"
)

var (
	ErrBuildValidation = errors.New("invalid view")
	ErrAlreadyBuilt    = errors.New("view builder was already built")
	ErrFinalized       = errors.New("aggregator is finalized")
	ErrViewMismatch    = errors.New("aggregators belong to different views")
)

type BuildErrorKind int

const (
	DuplicateColumnName BuildErrorKind = iota
	EmptyGroupingSet
	UnresolvedGroupingMember
	DuplicateGroupingSet
	SecretGroupingMember
	InvalidRole
	InvalidThreshold
)

func (k BuildErrorKind) String() string {
	switch k {
	case DuplicateColumnName:
		return "duplicate column name"
	case EmptyGroupingSet:
		return "empty grouping set"
	case UnresolvedGroupingMember:
		return "unresolved grouping member"
	case DuplicateGroupingSet:
		return "duplicate grouping set"
	case SecretGroupingMember:
		return "secret grouping member"
	case InvalidRole:
		return "invalid role"
	case InvalidThreshold:
		return "invalid threshold"
	default:
		return fmt.Sprintf("build error kind(%d)", int(k))
	}
}

// BuildError is returned by Builder.Build when the configuration is invalid.
// It matches ErrBuildValidation with errors.Is.
type BuildError struct {
	Kind        BuildErrorKind
	Column      ftypes.ColumnName
	GroupingSet ftypes.GroupingSetID
	Detail      string
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrBuildValidation, e.Kind)
	if e.GroupingSet != "" {
		msg = fmt.Sprintf("%s in grouping set '%s'", msg, e.GroupingSet)
	}
	if e.Column != "" {
		msg = fmt.Sprintf("%s: '%s'", msg, e.Column)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Detail)
	}
	return msg
}

func (e *BuildError) Is(target error) bool {
	return target == ErrBuildValidation
}
