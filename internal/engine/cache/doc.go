// Package cache stores derived per-user snapshots, such as statistics, keyed
// by string with TTL expiration.
//
// Backends:
//   - MemoryStore: in-process map, for tests and single-process servers
//   - FileStore: one JSON file per key under a directory (default ~/.ecolife/cache/)
//   - RedisStore: shared cache for several API replicas
//   - NopStore: caching disabled; every read misses
//
// Entries are a cache, never a source of truth. Callers treat any read error
// as a miss and rebuild the value.
package cache
