package app

import (
	"context"
	"math/rand/v2"
	"sync/atomic"

	"flagguess/internal/domain"
	"golang.org/x/sync/singleflight"
)

// FlagLoader fetches every flag from a backing store.
type FlagLoader interface {
	LoadFlags(ctx context.Context) ([]domain.Flag, error)
}

// QuestionPool is the process-wide cache of flags. It loads lazily on first
// use and again whenever the cached set is empty; a non-empty pool is never
// refreshed.
type QuestionPool struct {
	loader FlagLoader
	sf     singleflight.Group
	flags  atomic.Pointer[[]domain.Flag]
	intn   func(n int) int
}

func NewQuestionPool(loader FlagLoader) *QuestionPool {
	return &QuestionPool{loader: loader, intn: rand.IntN}
}

// NewQuestionPoolWithPicker is test-only for deterministic selection.
func NewQuestionPoolWithPicker(loader FlagLoader, intn func(n int) int) *QuestionPool {
	return &QuestionPool{loader: loader, intn: intn}
}

// Ensure returns the cached flags, loading them if the cache is empty.
func (p *QuestionPool) Ensure(ctx context.Context) ([]domain.Flag, error) {
	if cached := p.flags.Load(); cached != nil && len(*cached) > 0 {
		return *cached, nil
	}

	result, err, _ := p.sf.Do("flags", func() (interface{}, error) {
		// Another caller may have filled the pool while we waited.
		if cached := p.flags.Load(); cached != nil && len(*cached) > 0 {
			return *cached, nil
		}
		// Shared by every waiting caller, so one caller's cancellation must
		// not fail the rest.
		flags, err := p.loader.LoadFlags(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		snapshot := make([]domain.Flag, len(flags))
		copy(snapshot, flags)
		p.flags.Store(&snapshot)
		return snapshot, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Flag), nil
}

// Next draws a flag uniformly at random. The previous question is not
// excluded, so repeats happen.
func (p *QuestionPool) Next(ctx context.Context) (domain.Flag, error) {
	flags, err := p.Ensure(ctx)
	if err != nil {
		return domain.Flag{}, err
	}
	if len(flags) == 0 {
		return domain.Flag{}, domain.ErrEmptyPool
	}
	return flags[p.intn(len(flags))], nil
}

// Size reports how many flags are cached without triggering a load.
func (p *QuestionPool) Size() int {
	if cached := p.flags.Load(); cached != nil {
		return len(*cached)
	}
	return 0
}
