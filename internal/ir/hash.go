package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes keep hashes of different record kinds from colliding.
// The version suffix allows the encoding to change later.
const (
	DomainTrace    = "pipesim/trace/v1"
	DomainScenario = "pipesim/scenario/v1"
	DomainTopology = "pipesim/topology/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the hex SHA-256 of v's canonical JSON under domain.
func Hash(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// MustHash is like Hash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustHash(domain string, v any) string {
	h, err := Hash(domain, v)
	if err != nil {
		panic(err)
	}
	return h
}
