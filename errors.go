// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package task

import (
	"fmt"
	"runtime"
	"strings"

	errwrap "github.com/pkg/errors"
)

// callThunk invokes th, converting any recovered panic into an error.
// A fatal panic (one classifyPanic refuses to convert) is re-raised so it
// terminates the goroutine, per §7.3 — in practice a true stack-overflow
// or out-of-memory condition in Go is never observed by recover at all,
// so this path only ever re-raises panics that look deliberately fatal
// (e.g. a runtime.Error whose message names exhaustion or corruption).
func callThunk[A any](th func() A) (result A, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, nonFatal := classifyPanic(r)
			if !nonFatal {
				panic(r)
			}
			err = e
		}
	}()
	result = th()
	return
}

// attemptCall runs f, converting a non-fatal panic into Fail(e) instead of
// letting it cross the node boundary. This is the "attempt" operation of
// §3/§4.3: every thunk and bind-function invocation in the algebra is
// wrapped with it so that a failing continuation surfaces as Fail rather
// than unwinding the Go stack past the run-loop.
func attemptCall[B any](f func() Program[B]) (result Program[B]) {
	defer func() {
		if r := recover(); r != nil {
			e, nonFatal := classifyPanic(r)
			if !nonFatal {
				panic(r)
			}
			result = failNode[B]{err: e}
		}
	}()
	return f()
}

// classifyPanic converts a recovered panic value into an error, and
// reports whether it should be treated as non-fatal (recoverable into a
// Fail node) or fatal (must be re-panicked).
//
// Go's runtime never delivers a real stack-overflow or out-of-memory
// condition through recover — those call runtime.fatalthrow directly and
// terminate the process unconditionally. The panics attemptCall sees are
// ordinary ones — values user code panicked with, and runtime errors such
// as a nil dereference — which become errors; the fatal bucket here only
// catches a runtime.Error whose message names stack exhaustion or
// out-of-memory.
func classifyPanic(r any) (error, bool) {
	if re, ok := r.(runtime.Error); ok {
		msg := re.Error()
		if strings.Contains(msg, "stack exceeds") || strings.Contains(msg, "out of memory") {
			return nil, false
		}
		return re, true
	}
	if err, ok := r.(error); ok {
		return err, true
	}
	return errwrap.Errorf("task: panic: %v", r), true
}

// wrapDiagnostic annotates an error bound for Scheduler.ReportFailure with
// stack context, mirroring the one third-party error-wrapping precedent in
// the retrieved example pack (other_examples/purpleidea-mgmt__structs.go's
// use of github.com/pkg/errors for boundary-crossing diagnostics).
func wrapDiagnostic(label string, err error) error {
	return errwrap.Wrap(err, label)
}

// errDoubleCompletion is reported to Scheduler.ReportFailure when a
// Callback already delivered is invoked again — a protocol violation by
// an async register (§7.5).
func errDoubleCompletion(which string) error {
	return fmt.Errorf("task: callback already completed, ignoring duplicate %s", which)
}
