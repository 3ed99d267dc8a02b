// Package export renders verified run results into report files. Two
// formats are supported: machine-readable JSON for downstream tooling
// and Markdown for human review. Reports carry fingerprints and hashes
// only, never the raw sensitive input.
package export
