// Package config provides centralized configuration management for the
// QuantumProof runtime: server address, pipeline capability settings
// (FHE backend, prover toolchain), run archive storage, event
// publishing, optional chain attestation, and logging behaviour.
package config
