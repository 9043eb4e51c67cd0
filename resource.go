// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package task

// Resource safety primitives, generalising the teacher's Bracket/OnError
// (originally typed over Cont[Resumed, Either[E, A]]) from an explicit
// Either error channel to the program algebra's own Fail node: a Program's
// failure already is its error channel, so there is no separate E type
// parameter to thread through.

// Bracket acquires a resource, runs use with it, and always runs release
// afterward — whether use succeeded, failed, or release itself fails —
// following the acquire → use → release pattern (§8 Bracket). release
// receives the error use produced, if any, so it can distinguish a clean
// exit from a failing one. release's own error is reported only if use
// itself succeeded; if both fail, use's error is preserved.
func Bracket[R, A any](
	acquire Program[R],
	use func(R) Program[A],
	release func(resource R, useErr error) Program[struct{}],
) Program[A] {
	return FlatMap(acquire, func(resource R) Program[A] {
		return FlatMap(Materialize[A](use(resource)), func(outcome Outcome[A]) Program[A] {
			return FlatMap(Materialize[struct{}](release(resource, outcome.Err)), func(relOutcome Outcome[struct{}]) Program[A] {
				if outcome.Err != nil {
					return Fail[A](outcome.Err)
				}
				if relOutcome.Err != nil {
					return Fail[A](relOutcome.Err)
				}
				return Now(outcome.Value)
			})
		})
	})
}

// OnError runs cleanup only if body fails, then re-fails with body's
// original error. cleanup's own failure is swallowed — there is already a
// failure in flight, and OnError's contract is about running cleanup, not
// about reporting its outcome.
func OnError[A any](body Program[A], cleanup func(err error) Program[struct{}]) Program[A] {
	return FlatMap(Materialize[A](body), func(outcome Outcome[A]) Program[A] {
		if outcome.Err == nil {
			return Now(outcome.Value)
		}
		failedErr := outcome.Err
		return FlatMap(Materialize[struct{}](cleanup(failedErr)), func(Outcome[struct{}]) Program[A] {
			return Fail[A](failedErr)
		})
	})
}
