package ftypes

import "fmt"

type ColumnName string
type GroupingSetID string

// Role identifies the MPC party that supplies (or receives) a value.
type Role int32

const (
	Publisher Role = 0
	Partner   Role = 1
	// Public marks clear data known to every party.
	Public Role = -1
)

func (r Role) String() string {
	switch r {
	case Publisher:
		return "publisher"
	case Partner:
		return "partner"
	case Public:
		return "public"
	default:
		return fmt.Sprintf("role(%d)", int32(r))
	}
}

// IsParty is true for roles that own a share in the protocol.
func (r Role) IsParty() bool {
	return r == Publisher || r == Partner
}
