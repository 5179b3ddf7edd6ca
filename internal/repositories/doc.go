// Package repositories implements SQLite persistence for the client's local history.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [AttemptRepository] : Finished course creation attempts, queryable by outcome and course
//   - [AttemptRecorder] : Adapter used by the session controller; one record per session
//
// Sequence numbers provide stable, human-readable ordering (e.g., attempt #42) independent of UUIDs and creation timestamps.
// [NextSequence] advances a per-table counter inside the inserting transaction, so rolled-back inserts leave no gaps.
package repositories
