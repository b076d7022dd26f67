// Package pipeline validates batches of compiled functions concurrently.
//
// Each function in a batch is owned by exactly one worker while it is
// checked. Nothing is shared between workers except the read-only opcode
// tables in package ir, so no locking is needed.
package pipeline

import (
	"context"
	"fmt"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/scrap/config"
	"github.com/chazu/scrap/pkg/ir"
)

var log = commonlog.GetLogger("scrap.pipeline")

// Unit is one function handed to the checker.
type Unit struct {
	Name string
	Func *ir.Function
}

// Result is the outcome of checking one Unit.
type Result struct {
	Name        string
	Fingerprint [32]byte
	Err         error

	// DuplicateOf is the index of an earlier unit with the same
	// fingerprint, or -1.
	DuplicateOf int
}

// OK reports whether the unit passed validation.
func (r Result) OK() bool {
	return r.Err == nil
}

// Checker runs ir.Validate over many functions with bounded parallelism.
type Checker struct {
	workers int
	opts    []ir.Option
}

// NewChecker creates a Checker from configuration. A nil config uses
// config.Default().
func NewChecker(cfg *config.Config) *Checker {
	if cfg == nil {
		cfg = config.Default()
	}
	workers := cfg.Pipeline.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Checker{
		workers: workers,
		opts:    cfg.ValidateOptions(),
	}
}

// Check validates every unit and returns one Result per unit, in input
// order. Ownership of each unit's Function passes to the checker until
// Check returns; callers must not modify them concurrently.
//
// Validation failures are reported in the results, not as the returned
// error, which is non-nil only if ctx is cancelled.
func (c *Checker) Check(ctx context.Context, units []Unit) ([]Result, error) {
	results := make([]Result, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i := range units {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = c.checkOne(units[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failed := markDuplicates(results)
	if failed > 0 {
		log.Errorf("%d of %d functions failed validation", failed, len(units))
	} else {
		log.Infof("validated %d functions", len(units))
	}
	return results, nil
}

func (c *Checker) checkOne(u Unit) Result {
	r := Result{Name: u.Name, DuplicateOf: -1}
	if u.Func == nil {
		r.Err = fmt.Errorf("%s: %w: nil function", u.Name, ir.ErrInternal)
		log.Errorf("%v", r.Err)
		return r
	}

	if err := ir.Validate(u.Func, c.opts...); err != nil {
		r.Err = fmt.Errorf("%s: %w", u.Name, err)
		log.Errorf("%v", r.Err)
	} else {
		log.Debugf("%s: ok (%d instructions)", u.Name, u.Func.Len())
	}

	fp, err := ir.Fingerprint(u.Func)
	if err != nil && r.Err == nil {
		r.Err = fmt.Errorf("%s: fingerprint: %w", u.Name, err)
	}
	r.Fingerprint = fp
	return r
}

// markDuplicates links units with equal fingerprints to their first
// occurrence and returns the number of failed units.
func markDuplicates(results []Result) int {
	first := make(map[[32]byte]int, len(results))
	failed := 0
	for i := range results {
		r := &results[i]
		if !r.OK() {
			failed++
			continue
		}
		if j, ok := first[r.Fingerprint]; ok {
			r.DuplicateOf = j
			log.Debugf("%s duplicates %s", r.Name, results[j].Name)
			continue
		}
		first[r.Fingerprint] = i
	}
	return failed
}
