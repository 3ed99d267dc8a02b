// Package redis keeps a bounded window of recent run summaries in a
// Redis list so the HTTP API can answer recent-runs queries without
// touching the archive database.
package redis
