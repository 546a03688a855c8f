// Package store provides the SQLite-backed request journal.
//
// Every request the engine executes is journaled twice: once before it
// runs (the request row) and once after (the outcome row). A request
// without an outcome was interrupted, which is what FindIncomplete reports.
//
// # Critical Patterns
//
// Logical order:
//   - Requests are ordered by seq INTEGER, assigned by the journal itself,
//     NEVER by timestamps
//   - All queries MUST include: ORDER BY seq ASC, id COLLATE BINARY ASC
//
// Payloads:
//   - The request payload is stored as the caller's JSON, unchanged
//   - Statement parameters and change log numbers are msgpack blobs
//
// # Connection Options
//
// Open passes these as go-sqlite3 DSN options so every pooled connection
// gets them:
//   - _journal_mode=WAL
//   - _synchronous=NORMAL
//   - _busy_timeout=5000 (milliseconds)
//   - _foreign_keys=on
package store
