// Package tasks runs the course creation session and the long-running jobs around it.
//
// # Controller
//
// [Controller] is the single event loop that owns a [session.Machine]. It connects a
// [transport.Channel], then applies three kinds of input one at a time, in arrival order:
//
//  1. Transport signals (connected, disconnected, connect_error, session_update, error)
//  2. Effect results posted back by fetch and mutation goroutines
//  3. User intents (start, retry, delete, mark complete, navigation)
//
// Effects the machine returns are executed off the loop on an errgroup with a per-call
// timeout. Results carry the effect's [session.FetchKey] so the machine can drop stale ones.
// Teardown disconnects the channel exactly once.
//
// # Updates
//
// After every input the controller publishes an [Update] (a [session.View] plus the notices
// that input raised, condensed into a [Stage]). Sends use select with default, so a slow
// subscriber misses updates rather than stalling the loop. [Controller.Snapshot] always
// returns the latest one.
//
// # Bulk export
//
// [BulkExport] fetches courses through a rate limiter and writes them with a worker pool,
// reporting [ProgressUpdate]s the same non-blocking way and finishing with a manifest.
package tasks
