// Package store keeps the history of harness runs in SQLite.
//
// Every run or generate invocation becomes a row in runs, and every test case
// outcome a row in results keyed by (run_id, seq). Rows are written as the
// suite progresses, so an interrupted run still leaves the outcomes it
// reached, with finished_at left NULL.
//
// # Ordering
//
// Results of a run are read in seq order, which is suite order. Runs are
// listed newest first by started_at, ties broken by id. Run IDs are UUIDv7
// and therefore sort by creation time as well.
//
// # Schema
//
// schema.sql creates the base tables; later changes are numbered migrations
// tracked in PRAGMA user_version. The database runs in WAL mode with foreign
// keys enforced, so deleting a run removes its results.
package store
