// Package activity is the boundary layer between an orchestration engine
// and user-supplied business logic.
//
// The engine decides when and how many times an activity runs; this package
// only adapts one invocation: it decodes the engine's serialized argument
// list into a typed value, dispatches to the user handler, encodes the
// result, and normalizes failures.
//
// # Writing Activities
//
// An activity handler is a regular Go function:
//
//	func Charge(ctx context.Context, order Order) (Receipt, error) {
//		// I/O, API calls, side effects
//	}
//
// Wrap it with New to obtain an Activity the engine can invoke:
//
//	act := activity.New(Charge)
//	out, err := act.Invoke(invCtx, input)
//
// Handlers that complete asynchronously return a Future instead and are
// wrapped with NewAsync; both shapes run the same invocation pipeline.
//
// # Failure Semantics
//
// Handler failures are classified before anything else happens:
//
//   - Fatal errors (host-level, see FatalError) propagate unchanged.
//   - Aborting errors (engine-initiated cancellation, see AbortError and
//     context.Canceled) propagate unchanged, preserving their identity.
//   - Everything else is wrapped in an *ExecutionError whose message equals
//     the original failure's message and which carries, depending on the
//     invocation's propagation mode, either codec-serialized cause text or
//     a structured api.FailureDetails record — never both.
//
// Retry, backoff and history persistence stay with the engine. No entity
// created here outlives a single Invoke call; the codec is the only shared
// resource and is read-only.
package activity
