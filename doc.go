// Package mirkv is an in-memory key/value server speaking a RESP-style
// wire protocol, with string, list, hash, set, and sorted-set value
// families, per-key expiration, and glob-style key lookup.
//
// # Architecture Overview
//
// mirkv consists of several components:
//
//   - pkg/resp: incremental wire codec (request decoding, reply encoding)
//   - pkg/store: the typed key/value engine and its five value families
//   - pkg/match: glob pattern compiler backing KEYS
//   - internal/server: TCP listener, command dispatch, structured logging
//   - internal/metrics: Prometheus instrumentation and /metrics endpoint
//   - pkg/client: pooled, retrying client SDK
//   - pkg/config: flag/env/.env configuration for both server and client
//
// # Quick Start
//
// Server:
//
//	import "github.com/mirkv/mirkv/internal/server"
//	import "github.com/mirkv/mirkv/pkg/store"
//
//	srv := server.New(":6380", store.New(), m, log)
//	if err := srv.Start(); err != nil {
//		log.Fatal("server stopped", zap.Error(err))
//	}
//
// Client:
//
//	import "github.com/mirkv/mirkv/pkg/client"
//
//	c := client.New("localhost:6380")
//	defer c.Close()
//
//	c.Set("user:123", "john_doe", time.Hour)
//	value, found, err := c.Get("user:123")
//
//	c.HSet("user:123:profile", "name", "John Doe")
//	profile, err := c.HGetAll("user:123:profile")
//
//	c.LPush("tasks", "task1", "task2", "task3")
//	c.SAdd("tags", "golang", "cache", "kv")
//
// # Supported Operations
//
// String: GET, SET, MSET, MGET, DEL, EXISTS, INCR, DECR, INCRBY, DECRBY,
// EXPIRE, TTL, KEYS.
//
// List: LPUSH, RPUSH, LLEN, LRANGE.
//
// Hash: HSET, HGET, HDEL, HEXISTS, HGETALL, HKEYS, HVALS, HLEN.
//
// Set: SADD, SREM, SMEMBERS, SISMEMBER, SCARD, SINTER, SUNION.
//
// Sorted set: ZADD, ZREM, ZSCORE, ZRANK, ZCARD, ZRANGE.
//
// Utility: PING, ECHO, QUIT.
//
// # Configuration
//
// Server configuration via flags or "MIRKV_*" environment variables, with
// an optional ".env" file loaded at startup:
//
//	./mirkvd serve --port 6380
//	# or
//	MIRKV_PORT=6380 ./mirkvd serve
//
// # Package Structure
//
//   - pkg/client: client SDK
//   - pkg/store: the key/value engine
//   - pkg/resp: wire codec
//   - pkg/match: glob pattern matching
//   - pkg/config: configuration management
//   - internal/server: server implementation
//   - internal/metrics: Prometheus instrumentation
//   - cmd/mirkvd: server executable
//   - cmd/mirkv-cli: command-line client
//
// For detailed documentation of individual packages, see their respective
// godoc pages.
package mirkv
