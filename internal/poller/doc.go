// Package poller implements the per-source polling loop of a stream.
//
// A Poller:
//   - Fetches its source once per period (immediately, or after one period
//     when TickFirst is set)
//   - Records every fetched item in a dedup.Store and queues only new ones
//   - Swallows the first successful batch when SkipInitial is set
//   - Delivers queued results newest-queued first, one at a time
//   - Stops at the next tick boundary, after its queue has been delivered
package poller
