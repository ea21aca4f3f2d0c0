package mpc

import (
	"context"
	"errors"
	"fmt"

	"kodiak/lib/ftypes"
)

var (
	ErrPartyUnavailable = errors.New("mpc party unavailable")
	ErrMalformedShare   = errors.New("malformed secret share")
)

// ProtocolError is returned by every interactive protocol step that failed.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("mpc %s failed: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// SecInt is a 64 bit integer held as additive shares modulo 2^64. The zero
// value is not a valid sharing.
type SecInt struct {
	shares [2]uint64
	valid  bool
}

func (s SecInt) Valid() bool {
	return s.valid
}

// String never prints the shares.
func (s SecInt) String() string {
	if !s.valid {
		return "SecInt(invalid)"
	}
	return "SecInt(***)"
}

// SecBool is a bit held as XOR shares.
type SecBool struct {
	shares [2]bool
	valid  bool
}

func (s SecBool) Valid() bool {
	return s.valid
}

func (s SecBool) String() string {
	if !s.valid {
		return "SecBool(invalid)"
	}
	return "SecBool(***)"
}

// Protocol is the secret computation capability consumed by metric kinds.
// Local operations (Add, Sub, Public) never communicate and can not fail;
// every other operation is a protocol round that honours ctx.
type Protocol interface {
	// Share secret-shares v, which is known in the clear by owner.
	Share(ctx context.Context, v int64, owner ftypes.Role) (SecInt, error)
	// Public returns a sharing of a constant known to every party.
	Public(v int64) SecInt
	Add(a, b SecInt) SecInt
	Sub(a, b SecInt) SecInt
	Equal(ctx context.Context, a, b SecInt) (SecBool, error)
	Less(ctx context.Context, a, b SecInt) (SecBool, error)
	// Select returns a if cond is set and b otherwise.
	Select(ctx context.Context, cond SecBool, a, b SecInt) (SecInt, error)
	// Reveal opens a to the given party; ftypes.Public opens it to both.
	Reveal(ctx context.Context, a SecInt, to ftypes.Role) (int64, error)
	RevealBool(ctx context.Context, b SecBool, to ftypes.Role) (bool, error)
}
