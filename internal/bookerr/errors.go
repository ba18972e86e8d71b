// Package bookerr defines the error taxonomy of the matching core,
// following the teacher's sentinel-error style (errors.New + errors.Is)
// rather than a heavier structured-error type.
package bookerr

import "errors"

var (
	// ErrStructurallyInvalid is returned by the engine facade when an
	// order fails the producer-side validation of spec.md §6 before
	// ever reaching the ingest queue.
	ErrStructurallyInvalid = errors.New("order failed structural validation")

	// ErrCollarRejected names the rejection of a triggered STOP_LIMIT
	// that falls outside the price collar. The trigger cascade does not
	// return it: a rejected order is dropped and counted in the metrics
	// sink, and nothing reaches the producer.
	ErrCollarRejected = errors.New("stop-triggered limit order rejected by price collar")

	// ErrFuelExhausted signals the trigger cascade's loop bound was
	// exceeded — a fatal condition for the instrument per spec.md §7.
	ErrFuelExhausted = errors.New("trigger cascade exceeded fuel budget")

	// ErrPipelineStopped is returned by Submit after Shutdown.
	ErrPipelineStopped = errors.New("ingest pipeline is stopped")

	// ErrOrderNotFound is returned by the best-effort CancelOrder
	// helper when the order is not (or no longer) resting.
	ErrOrderNotFound = errors.New("order not found in book")
)
