// Package fhe wraps the homomorphic encryption backend behind a
// capability-checked provider. The real path encrypts a credit-score
// class value under a fixed CKKS parameter profile, applies one affine
// transform on the ciphertext and decrypts the bounded percentage. Any
// backend failure degrades to a deterministic hash fallback; the raw
// sensitive value never leaves the process in either path.
package fhe
