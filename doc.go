// Package walletsync is the data synchronization and caching layer behind a
// crypto-wallet behavioral profiling service.
//
// # Architecture
//
// The module is organized leaf-first around four collaborating services:
//
//	┌─────────────────────────────────────┐
//	│          Cache Warmer               │  Scheduled refresh of the
//	│  (warmer)                           │  working set, bounded fan-out
//	└─────────────────────────────────────┘
//	           ↓ warms
//	┌─────────────────────────────────────┐
//	│   Data Integration Orchestrator     │  Versioned composite records,
//	│  (integration)                      │  lazy invalidation
//	└─────────────────────────────────────┘
//	           ↓ composes
//	┌──────────────────────┐  ┌─────────────────────┐
//	│    Profile Sync      │  │  Trading activity   │
//	│  (profilesync)       │  │  (external)         │
//	└──────────────────────┘  └─────────────────────┘
//	           ↓ all read/write through
//	┌─────────────────────────────────────┐
//	│         Cache Store                 │  NATS KV remote backend with
//	│  (cachestore)                       │  in-process fallback
//	└─────────────────────────────────────┘
//
// The cache is a best-effort acceleration layer, never a system of record:
// a read miss or write failure degrades freshness, not correctness. The
// remote backend is a NATS JetStream KV bucket; when it is unreachable or
// unconfigured every operation transparently falls back to an in-process
// map with wall-clock expiry.
//
// Composite records produced by the orchestrator embed a process-wide data
// version. Bumping the version is the only invalidation primitive: stale
// entries fail the version comparison on their next read and are refreshed
// lazily, without an eager sweep.
//
// Supporting packages:
//   - errors: classified error handling (transient / invalid / fatal)
//   - pkg/retry: exponential backoff with jitter
//   - pkg/cache: generic in-process TTL cache with always-on statistics
//   - natskv: slim NATS JetStream KV client
//   - wallet: domain types, collaborator contracts, address validation
//   - upstream: rate-limited HTTP clients for the external collaborators
//   - config: environment-driven configuration
//   - metric: central Prometheus metrics registry
//   - health: standard health status reporting
package walletsync
