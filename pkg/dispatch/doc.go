// Package dispatch provides bounded parallel fetching of product identifiers.
//
// A Pool runs a fixed number of workers over a list of identifiers and streams
// one outcome per identifier back to the caller as soon as it completes. Order
// follows completion, not submission.
//
// Example usage:
//
//	pool := dispatch.NewPool(productClient, dispatch.Config{Workers: 40})
//	for outcome := range pool.Dispatch(ctx, ids) {
//		partition.Add(outcome)
//	}
//
// The pool:
//   - Feeds identifiers to the workers from a single goroutine
//   - Runs Config.Workers workers, each doing one blocking fetch at a time
//   - Closes the outcome channel once every worker has returned
//   - Stops handing out identifiers when the context is cancelled
//
// The pool never retries: retry policy belongs to the Fetcher.
package dispatch
