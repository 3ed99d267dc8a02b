// Package pipeline contains the run orchestrator, the component that
// drives one verified private computation end to end: input fingerprint,
// encrypted compute, circuit input derivation, proof construction and
// the verification gate. The gate is the single fatal exit; every other
// stage failure is absorbed by the owning component's fallback path so a
// run always produces either a verified RunResult or
// ErrVerificationFailed.
package pipeline
