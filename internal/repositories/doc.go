// Package repositories implements local persistence for plcover.
//
// Key-value backends implement [KV] and hold session data on behalf of the session package:
//   - [SQLiteKV] : default backend, one row per key in the kv_store table
//   - [RedisKV] : optional backend, one Redis hash per installation
//   - [MemoryKV] : process-local backend used in tests
//
// Every [KV] call is atomic: a multi-key Put or Delete is applied entirely or not at all,
// and a multi-key Get observes a single consistent snapshot.
//
// [SelectionRepository] persists the ordered album selection between CLI invocations.
package repositories
