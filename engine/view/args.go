package view

import (
	"fmt"
	"strings"

	"github.com/alexflint/go-arg"
)

// Policy decides what Run does with a row that failed to compute.
type Policy string

const (
	// Abort stops the run and returns the compute error.
	Abort Policy = "abort"
	// Skip drops the row and carries on.
	Skip Policy = "skip"
)

func (p *Policy) UnmarshalText(text []byte) error {
	switch Policy(text) {
	case Abort, Skip:
		*p = Policy(text)
		return nil
	default:
		return fmt.Errorf("unknown policy '%s', expected '%s' or '%s'", text, Abort, Skip)
	}
}

type Args struct {
	Workers        int    `arg:"--workers,env:VIEW_WORKERS" default:"1" json:"workers,omitempty"`
	BatchSize      int    `arg:"--batch-size,env:VIEW_BATCH_SIZE" default:"64" json:"batch_size,omitempty"`
	OnComputeError Policy `arg:"--on-compute-error,env:VIEW_ON_COMPUTE_ERROR" default:"abort" json:"on_compute_error,omitempty"`
	// Overrides the threshold of the view when positive.
	MinGroupRows int64 `arg:"--min-group-rows,env:VIEW_MIN_GROUP_ROWS" default:"0" json:"min_group_rows,omitempty"`
}

func DefaultArgs() Args {
	return Args{
		Workers:        1,
		BatchSize:      64,
		OnComputeError: Abort,
	}
}

func (args Args) Valid() error {
	invalid := make([]string, 0)
	if args.Workers < 1 {
		invalid = append(invalid, "WORKERS")
	}
	if args.BatchSize < 1 {
		invalid = append(invalid, "BATCH_SIZE")
	}
	if args.OnComputeError != Abort && args.OnComputeError != Skip {
		invalid = append(invalid, "ON_COMPUTE_ERROR")
	}
	if args.MinGroupRows < 0 {
		invalid = append(invalid, "MIN_GROUP_ROWS")
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid fields: %s", strings.Join(invalid, ", "))
	}
	return nil
}

// ParseArgs parses command line style arguments, falling back to the
// environment and then to the defaults, and validates the result.
func ParseArgs(argv []string) (Args, error) {
	var args Args
	p, err := arg.NewParser(arg.Config{}, &args)
	if err != nil {
		return Args{}, err
	}
	if err := p.Parse(argv); err != nil {
		return Args{}, err
	}
	if err := args.Valid(); err != nil {
		return Args{}, err
	}
	return args, nil
}
