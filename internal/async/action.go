package async

import "fmt"

// Patch mutates a copy of state S. A list of patches is the state mixin
// carried by an Action; later patches win over earlier ones.
type Patch[S any] func(*S)

// Apply runs patches in order against s.
func Apply[S any](s *S, patches ...Patch[S]) {
	for _, p := range patches {
		if p != nil {
			p(s)
		}
	}
}

// Tag identifies which variant an Action holds.
type Tag int

const (
	TagStart Tag = iota + 1
	TagSuccess
	TagFailure
)

func (t Tag) String() string {
	switch t {
	case TagStart:
		return "start"
	case TagSuccess:
		return "success"
	case TagFailure:
		return "failure"
	default:
		return fmt.Sprintf("Tag(%d)", int(t))
	}
}

// Action is one step of a request: Start, Success with R, or Failure with L.
// S is the state the action's patches apply to.
type Action[L, R, S any] struct {
	tag   Tag
	l     L
	r     R
	mixin []Patch[S]
}

// Start creates the start variant.
func Start[L, R, S any](mixin ...Patch[S]) Action[L, R, S] {
	return Action[L, R, S]{tag: TagStart, mixin: mixin}
}

// Success creates the success variant carrying r.
func Success[L, R, S any](r R, mixin ...Patch[S]) Action[L, R, S] {
	return Action[L, R, S]{tag: TagSuccess, r: r, mixin: mixin}
}

// Failure creates the failure variant carrying l.
func Failure[L, R, S any](l L, mixin ...Patch[S]) Action[L, R, S] {
	return Action[L, R, S]{tag: TagFailure, l: l, mixin: mixin}
}

// Tag returns the variant.
func (a Action[L, R, S]) Tag() Tag {
	return a.tag
}

// Result returns the success payload. ok is false for other variants.
func (a Action[L, R, S]) Result() (r R, ok bool) {
	return a.r, a.tag == TagSuccess
}

// Reason returns the failure payload. ok is false for other variants.
func (a Action[L, R, S]) Reason() (l L, ok bool) {
	return a.l, a.tag == TagFailure
}

// Mixin returns a single patch applying the action's patches in order.
func (a Action[L, R, S]) Mixin() Patch[S] {
	patches := a.mixin
	return func(s *S) {
		Apply(s, patches...)
	}
}

// OnStart appends the patches returned by fn when a is a Start.
// Other variants are returned unchanged and fn is not called.
func (a Action[L, R, S]) OnStart(fn func() []Patch[S]) Action[L, R, S] {
	if a.tag != TagStart {
		return a
	}
	return Action[L, R, S]{tag: TagStart, mixin: appendPatches(a.mixin, fn())}
}

// MapSuccess transforms the success payload and appends patches.
// Start and Failure keep their payload and mixin.
func MapSuccess[L, R, T, S any](a Action[L, R, S], fn func(R) (T, []Patch[S])) Action[L, T, S] {
	if a.tag != TagSuccess {
		return Action[L, T, S]{tag: a.tag, l: a.l, mixin: a.mixin}
	}
	data, patches := fn(a.r)
	return Action[L, T, S]{tag: TagSuccess, r: data, mixin: appendPatches(a.mixin, patches)}
}

// MapFailure transforms the failure payload and appends patches.
// Start and Success keep their payload and mixin.
func MapFailure[L, R, T, S any](a Action[L, R, S], fn func(L) (T, []Patch[S])) Action[T, R, S] {
	if a.tag != TagFailure {
		return Action[T, R, S]{tag: a.tag, r: a.r, mixin: a.mixin}
	}
	data, patches := fn(a.l)
	return Action[T, R, S]{tag: TagFailure, l: data, mixin: appendPatches(a.mixin, patches)}
}

// Cases holds one handler per variant for CaseOf.
type Cases[L, R, S, X any] struct {
	Start   func(mixin Patch[S]) X
	Success func(r R, mixin Patch[S]) X
	Failure func(l L, mixin Patch[S]) X
}

// CaseOf calls the handler matching a's variant.
// A zero Action matches no handler and yields the zero X.
func CaseOf[L, R, S, X any](a Action[L, R, S], c Cases[L, R, S, X]) X {
	switch a.tag {
	case TagStart:
		return c.Start(a.Mixin())
	case TagSuccess:
		return c.Success(a.r, a.Mixin())
	case TagFailure:
		return c.Failure(a.l, a.Mixin())
	}
	var zero X
	return zero
}

// appendPatches copies so actions sharing a backing array never alias.
func appendPatches[S any](base, extra []Patch[S]) []Patch[S] {
	out := make([]Patch[S], 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}
