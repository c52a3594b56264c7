package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EvalTimeout is the default hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrEvalTimeout is returned when an evaluation runs past the engine timeout.
	ErrEvalTimeout = errors.New("engine: evaluation timed out")
	// ErrSuperseded is returned to a caller whose evaluation finished after a
	// newer one had started on the same Engine.
	ErrSuperseded = errors.New("engine: evaluation superseded by newer request")
)

type evalResult struct {
	profiles *ProfileSet
	errors   []EvalError
	err      error
}

func (e *Engine) begin() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	return e.generation
}

func (e *Engine) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation == gen
}

// await blocks until ch delivers, the engine timeout passes or ctx ends.
// A timed out interpreter goroutine keeps running; its buffered result is
// dropped.
func (e *Engine) await(ctx context.Context, ch <-chan evalResult, gen uint64) (*ProfileSet, []EvalError, error) {
	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if !e.current(gen) {
			return nil, nil, ErrSuperseded
		}
		return res.profiles, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrEvalTimeout, e.timeout)
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("engine: %w", ctx.Err())
	}
}
