// Package zkproof obtains the proof artifact that gates every pipeline
// run. When the external prover toolchain and its three artifacts
// (circuit binary, proving key, verification key) are resolvable, it
// drives a real Groth16 witness/prove/verify cycle through scoped
// temporary files; otherwise it synthesizes a deterministic simulated
// proof. The simulated verification recomputes the hash it just
// produced and is therefore always true: a demo placeholder, not a
// security property.
package zkproof
