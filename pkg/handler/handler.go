// Package handler chains handlers of items by kinds.
package handler

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

var ErrNoHandlerChain = errors.New("no handler chain")

// Handler transforms an item of its kind.
type Handler[T any] interface {
	// Kind of items which the handler takes.
	Kind() string

	// Priority in the chain. Smaller goes first.
	Priority() int

	Handle(ctx context.Context, item T) (T, error)
}

// Func is a Handler built from a function.
type Func[T any] struct {
	For   string
	Order int
	Do    func(context.Context, T) (T, error)
}

func (f Func[T]) Kind() string  { return f.For }
func (f Func[T]) Priority() int { return f.Order }
func (f Func[T]) Handle(ctx context.Context, item T) (T, error) {
	return f.Do(ctx, item)
}

// Pipelines holds handler chains per kind. It is read-only after New.
type Pipelines[T any] struct {
	chains map[string][]Handler[T]
}

// New groups handlers by kind, and sorts each group by priority.
// Handlers with the same priority keep their order.
func New[T any](handlers ...Handler[T]) *Pipelines[T] {
	chains := map[string][]Handler[T]{}
	for _, h := range handlers {
		chains[h.Kind()] = append(chains[h.Kind()], h)
	}
	for _, c := range chains {
		sort.SliceStable(c, func(i, j int) bool { return c[i].Priority() < c[j].Priority() })
	}
	return &Pipelines[T]{chains: chains}
}

// Kinds returns kinds which have chains, sorted.
func (p *Pipelines[T]) Kinds() []string {
	kinds := make([]string, 0, len(p.chains))
	for k := range p.chains {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Apply passes the item through the chain for kind.
//
// # Returns
//
// - T: the output of the last handler.
// When there are no chains for kind, it is the item as is (with ErrNoHandlerChain).
//
// - error: ErrNoHandlerChain, or an error from handlers.
func (p *Pipelines[T]) Apply(ctx context.Context, kind string, item T) (T, error) {
	chain, ok := p.chains[kind]
	if !ok {
		return item, fmt.Errorf("%w: %s", ErrNoHandlerChain, kind)
	}
	for _, h := range chain {
		next, err := h.Handle(ctx, item)
		if err != nil {
			return item, err
		}
		item = next
	}
	return item, nil
}

// ApplyAll is Apply for each item. It stops at the first error.
func (p *Pipelines[T]) ApplyAll(ctx context.Context, kind string, items []T) ([]T, error) {
	if _, ok := p.chains[kind]; !ok {
		return items, fmt.Errorf("%w: %s", ErrNoHandlerChain, kind)
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		h, err := p.Apply(ctx, kind, item)
		if err != nil {
			return items, err
		}
		out = append(out, h)
	}
	return out, nil
}
