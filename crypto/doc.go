// Package crypto implements the post-quantum core of the chat service:
// ML-KEM-768 identity keypairs, password-based wrapping of private keys,
// authenticated message encryption under a room's shared secret, and
// per-member distribution of room epoch keys via KEM encapsulation.
//
// Every function here is pure and stateless over explicit inputs and
// outputs; all of them are safe for concurrent use without synchronization.
// Raw private keys and epoch keys only ever live in process memory for the
// duration of a single call chain, never at rest.
package crypto
