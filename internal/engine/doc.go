// Package engine executes graph data-access requests.
//
// The engine receives an operation name, a descriptor payload and a caller
// GUID, compiles the descriptor into one or more Cypher statements, runs
// them on a single store session and returns normalized rows.
//
// ARCHITECTURE:
//
// Request Flow:
// 1. Execute() parses the operation name (closed set, see descriptor.Operation)
// 2. The request is journaled, if a journal is configured
// 3. The payload is decoded and validated
// 4. Merge requests go through the merge simulator (merge.go)
// 5. Every statement runs on the same session, which is closed on return
// 6. The outcome, including every statement sent, is journaled
//
// CRITICAL PATTERNS:
//
// Change log numbering:
// Every change log entry takes exactly one number from the sequence
// provider, at compile time. Numbers are never reused; a statement that
// fails still burns its numbers.
//
// Merge is not atomic:
// A merge is a probe followed by a create in separate round trips. Two
// concurrent merges of the same descriptor can both observe "not found"
// and both create. Callers that need uniqueness must add a store
// constraint.
package engine
