// Package infra contém implementações concretas dos contratos do pacote domain.
//
// Storage:
//   - MemoryStorage: map protegido por RWMutex
//   - MongoStorage: coleção MongoDB (mongo-driver)
//   - PostgresStorage: tabela com documento JSONB (lib/pq)
//   - CachedStorage: decorator read-through com LRU + ttl (golang-lru)
//
// Limiter:
//   - FixedWindowLimiter: janela fixa sobre um CounterStore
//     (RedisCounterStore com go-redis, MemoryCounterStore com go-cache)
//   - TokenBucketLimiter: token bucket por chave (x/time/rate)
//
// Stats: MemoryStatsStore, RedisStatsStore, PrometheusStatsStore.
// Concorrência: ChanPool (semáforo).
package infra
