package flux

import "context"

// Emit sends a derived action out of an epic.
type Emit func(Action)

// Handler reacts to one action, optionally emitting derived actions.
type Handler[S any] func(ctx context.Context, a Action, state func() S, emit Emit)

// Each builds an Epic that calls h for every action, one at a time, in
// dispatch order. Emitted actions are delivered in the order h emits them.
func Each[S any](h Handler[S]) Epic[S] {
	return func(ctx context.Context, actions <-chan Action, state func() S) <-chan Action {
		out := make(chan Action)
		go func() {
			defer close(out)
			emit := func(a Action) {
				select {
				case out <- a:
				case <-ctx.Done():
				}
			}
			for a := range actions {
				if ctx.Err() != nil {
					return
				}
				h(ctx, a, state, emit)
			}
		}()
		return out
	}
}

// Typed builds an Epic that only sees actions of type A.
func Typed[S any, A Action](h func(ctx context.Context, a A, state func() S, emit Emit)) Epic[S] {
	return Each(func(ctx context.Context, a Action, state func() S, emit Emit) {
		if typed, ok := a.(A); ok {
			h(ctx, typed, state, emit)
		}
	})
}
