package mpc

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"kodiak/lib/ftypes"

	"go.uber.org/atomic"
	"golang.org/x/crypto/chacha20"
)

const DefaultRoundTimeout = 30 * time.Second

// Local simulates both parties of the two party protocol in process. Shares
// are masked with a ChaCha20 keystream so that no single share carries the
// secret. It is meant for tests and development runs, not for deployments
// where parties are on different hosts.
type Local struct {
	lock    sync.Mutex
	stream  *chacha20.Cipher
	timeout time.Duration
	latency time.Duration
	fail    func(op string) error
	rounds  atomic.Uint64
}

var _ Protocol = (*Local)(nil)

type LocalOption func(*Local)

// WithSeed makes the share masks deterministic.
func WithSeed(seed [chacha20.KeySize]byte) LocalOption {
	return func(l *Local) {
		c, err := chacha20.NewUnauthenticatedCipher(seed[:], make([]byte, chacha20.NonceSize))
		if err != nil {
			panic(err)
		}
		l.stream = c
	}
}

// WithRoundTimeout bounds every protocol round.
func WithRoundTimeout(d time.Duration) LocalOption {
	return func(l *Local) {
		l.timeout = d
	}
}

// WithLatency delays every protocol round by d.
func WithLatency(d time.Duration) LocalOption {
	return func(l *Local) {
		l.latency = d
	}
}

// WithFailures installs a hook that is consulted before every round; a non
// nil error aborts the round.
func WithFailures(fail func(op string) error) LocalOption {
	return func(l *Local) {
		l.fail = fail
	}
}

func NewLocal(opts ...LocalOption) *Local {
	l := &Local{timeout: DefaultRoundTimeout}
	for _, opt := range opts {
		opt(l)
	}
	if l.stream == nil {
		var seed [chacha20.KeySize]byte
		if _, err := rand.Read(seed[:]); err != nil {
			panic(fmt.Sprintf("failed to seed share generator: %v", err))
		}
		WithSeed(seed)(l)
	}
	return l
}

// Rounds returns the number of protocol rounds run so far.
func (l *Local) Rounds() uint64 {
	return l.rounds.Load()
}

func (l *Local) mask() uint64 {
	var buf [8]byte
	l.lock.Lock()
	l.stream.XORKeyStream(buf[:], buf[:])
	l.lock.Unlock()
	return binary.LittleEndian.Uint64(buf[:])
}

func (l *Local) round(ctx context.Context, op string) error {
	l.rounds.Inc()
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	if l.latency > 0 {
		t := time.NewTimer(l.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return &ProtocolError{Op: op, Err: ctx.Err()}
		case <-t.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return &ProtocolError{Op: op, Err: err}
	}
	if l.fail != nil {
		if err := l.fail(op); err != nil {
			return &ProtocolError{Op: op, Err: err}
		}
	}
	return nil
}

func (l *Local) open(op string, a SecInt) (uint64, error) {
	if !a.valid {
		return 0, &ProtocolError{Op: op, Err: ErrMalformedShare}
	}
	return a.shares[0] + a.shares[1], nil
}

func (l *Local) openBool(op string, b SecBool) (bool, error) {
	if !b.valid {
		return false, &ProtocolError{Op: op, Err: ErrMalformedShare}
	}
	return b.shares[0] != b.shares[1], nil
}

func (l *Local) split(v uint64, owner ftypes.Role) SecInt {
	r := l.mask()
	s := SecInt{valid: true}
	if owner == ftypes.Partner {
		s.shares[1], s.shares[0] = v-r, r
	} else {
		s.shares[0], s.shares[1] = v-r, r
	}
	return s
}

func (l *Local) splitBool(v bool) SecBool {
	r := l.mask()&1 == 1
	return SecBool{shares: [2]bool{v != r, r}, valid: true}
}

func (l *Local) Share(ctx context.Context, v int64, owner ftypes.Role) (SecInt, error) {
	if !owner.IsParty() {
		return SecInt{}, &ProtocolError{Op: "share", Err: fmt.Errorf("owner %s is not a party", owner)}
	}
	if err := l.round(ctx, "share"); err != nil {
		return SecInt{}, err
	}
	return l.split(uint64(v), owner), nil
}

func (l *Local) Public(v int64) SecInt {
	return SecInt{shares: [2]uint64{uint64(v), 0}, valid: true}
}

func (l *Local) Add(a, b SecInt) SecInt {
	return SecInt{
		shares: [2]uint64{a.shares[0] + b.shares[0], a.shares[1] + b.shares[1]},
		valid:  a.valid && b.valid,
	}
}

func (l *Local) Sub(a, b SecInt) SecInt {
	return SecInt{
		shares: [2]uint64{a.shares[0] - b.shares[0], a.shares[1] - b.shares[1]},
		valid:  a.valid && b.valid,
	}
}

func (l *Local) compare(ctx context.Context, op string, a, b SecInt, f func(x, y int64) bool) (SecBool, error) {
	if err := l.round(ctx, op); err != nil {
		return SecBool{}, err
	}
	x, err := l.open(op, a)
	if err != nil {
		return SecBool{}, err
	}
	y, err := l.open(op, b)
	if err != nil {
		return SecBool{}, err
	}
	return l.splitBool(f(int64(x), int64(y))), nil
}

func (l *Local) Equal(ctx context.Context, a, b SecInt) (SecBool, error) {
	return l.compare(ctx, "eq", a, b, func(x, y int64) bool { return x == y })
}

func (l *Local) Less(ctx context.Context, a, b SecInt) (SecBool, error) {
	return l.compare(ctx, "lt", a, b, func(x, y int64) bool { return x < y })
}

func (l *Local) Select(ctx context.Context, cond SecBool, a, b SecInt) (SecInt, error) {
	if err := l.round(ctx, "select"); err != nil {
		return SecInt{}, err
	}
	c, err := l.openBool("select", cond)
	if err != nil {
		return SecInt{}, err
	}
	pick := b
	if c {
		pick = a
	}
	v, err := l.open("select", pick)
	if err != nil {
		return SecInt{}, err
	}
	return l.split(v, ftypes.Publisher), nil
}

func checkRecipient(to ftypes.Role) error {
	if to.IsParty() || to == ftypes.Public {
		return nil
	}
	return &ProtocolError{Op: "reveal", Err: fmt.Errorf("unknown recipient %s", to)}
}

func (l *Local) Reveal(ctx context.Context, a SecInt, to ftypes.Role) (int64, error) {
	if err := checkRecipient(to); err != nil {
		return 0, err
	}
	if err := l.round(ctx, "reveal"); err != nil {
		return 0, err
	}
	v, err := l.open("reveal", a)
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

func (l *Local) RevealBool(ctx context.Context, b SecBool, to ftypes.Role) (bool, error) {
	if err := checkRecipient(to); err != nil {
		return false, err
	}
	if err := l.round(ctx, "reveal"); err != nil {
		return false, err
	}
	return l.openBool("reveal", b)
}
