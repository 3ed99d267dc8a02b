// Package fingerprint implements the hash commitments that anchor the
// audit trail: a stable SHA3-256 digest routine shared by the whole
// pipeline, and the domain-separated input fingerprint that is the only
// trace of a sensitive input ever retained in any output artifact.
package fingerprint
