// Package session decides what a course creation client shows and which actions it allows.
//
// # Machine
//
// [Machine] is a pure state machine over idle, in_progress, success and error. Inputs are
// channel events ([Machine.Update], [Machine.ConnectError], ...) and the results of IO it
// asked for. Outputs are [Effect] values, [Notice] values and the [View] read model.
//
// Success is a join: the backend must report success with a course id, and a bundle for that
// same id, requested after the report, must have loaded without error. Until both hold the
// view stays in_progress with PendingDisplay set.
//
// Every request carries a [FetchKey]. A reset bumps the epoch and a new course id replaces the
// old one, so late results from superseded requests are dropped instead of merged.
//
// # Dispatcher
//
// [Dispatcher] validates user intents against the current state before handing them to the
// machine. Refusals wrap [shared.ErrActionRejected] or an input validation error.
package session
