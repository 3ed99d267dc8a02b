// Package api exposes the REST surface of the service: capability
// status, verification-gated private computation, the quantum threat
// simulator, archived run queries and Prometheus metrics. Request
// bodies may carry sensitive loan attributes; handlers serialize them
// into one transient string for the pipeline and never log or persist
// the raw values.
package api
