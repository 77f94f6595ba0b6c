package async

// Reduce folds a request action into state.
//
// lift places the request's Value into the state (usually a single field
// assignment). It is applied first, then the action's own patches, so a
// patch can override anything lift wrote.
//
//	Start   -> PROGRESS
//	Success -> COMPLETE(r)
//	Failure -> ERROR(l)
func Reduce[S, R any](state S, lift func(Value[R]) Patch[S], a Action[string, R, S]) S {
	mix := func(v Value[R], mixin Patch[S]) S {
		next := state
		Apply(&next, lift(v), mixin)
		return next
	}

	if a.Tag() == 0 {
		return state
	}

	return CaseOf(a, Cases[string, R, S, S]{
		Start: func(mixin Patch[S]) S {
			return mix(Progress[R](), mixin)
		},
		Success: func(r R, mixin Patch[S]) S {
			return mix(Complete(r), mixin)
		},
		Failure: func(l string, mixin Patch[S]) S {
			return mix(Failed[R](l), mixin)
		},
	})
}
