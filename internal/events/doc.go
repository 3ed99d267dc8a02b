// Package events broadcasts a compact run-completed event after each
// verified run. Three drivers are available: an in-process channel for
// development and tests, a Redis stream and a RabbitMQ queue. Events
// carry summaries, fingerprints and hashes only, never the raw
// sensitive input.
package events
