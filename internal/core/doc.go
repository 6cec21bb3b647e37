// Package core runs the dashboard's dataset workflow independent of HTTP.
//
// Each browser session owns at most one dataset of record and at most one
// pending edit. The flow is:
//
//  1. [Service.Ingest] parses an upload. Success replaces the dataset and
//     drops any pending edit; failure leaves the previous dataset in place.
//  2. A preview ([Service.PreviewRemoveColumns], [Service.PreviewRemoveDuplicates],
//     [Service.PreviewFill]) computes a candidate and stores it as the pending
//     edit, replacing any earlier one.
//  3. [Service.Commit] promotes the candidate to the dataset of record;
//     [Service.Cancel] discards it.
//  4. [Service.Export] renders the dataset of record for download.
//
// Sessions live only in memory. Idle sessions are removed by
// [Service.StartSessionJanitor]; [Service.EndSession] removes one at once.
//
// Concurrent parsing across sessions is bounded by an [IngestLimiter].
// Activity (never cell data) is recorded through an [Auditor]: Postgres,
// an NDJSON file, or nothing.
//
// Technical errors are mapped to user-facing messages with support codes by
// [MapError]; see error_messages.go for the code reference.
package core
