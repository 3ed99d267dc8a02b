// Package mysql provides the run archive backed by MySQL. It
// encapsulates schema migrations, connection pooling and typed queries
// for persisting verified run results, plus a file-backed in-memory
// repository used for local development.
package mysql
