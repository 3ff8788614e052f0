// Package ir provides the canonical JSON encoding and content hashes used for
// simulation traces.
//
// Traces are compared byte-for-byte by golden files and stored by the run
// recorder, so every encoder in the module goes through MarshalCanonical:
//   - Object keys sorted by UTF-16 code units (RFC 8785)
//   - Strings NFC normalized, no HTML escaping
//   - Numbers in shortest round-trip form, NaN and Inf rejected
//   - No whitespace
//
// ir imports nothing internal.
package ir
