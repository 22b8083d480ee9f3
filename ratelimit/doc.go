// Package ratelimit enforces per-principal, per-operation request quotas.
//
// One Store contract, two backends:
//
//   - MemoryStore: a fixed-window counter map for single-process
//     deployments. Simple and allocation-light; it deliberately accepts up
//     to 2x the configured rate across a window edge.
//
//   - RedisStore: a sliding-window counter (current sub-window plus the
//     previous one weighted by its unexpired fraction) over a shared atomic
//     counter service, for multi-process deployments. Each backend call
//     carries its own short timeout, and backend failure is handled per the
//     configured FailMode: FailOpen admits the request and logs, FailClosed
//     rejects it.
//
// A Limiter binds a Store to the operation-class policy table
// (Normal/Expensive/Upload/Auth) and turns disallowed decisions into
// *DeniedError values carrying retry-after guidance.
//
// Backend selection is config-driven: a Redis address selects the
// distributed backend, its absence deterministically selects the
// in-process one. Startup never fails on a missing address.
package ratelimit
