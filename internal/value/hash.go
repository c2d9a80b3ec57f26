package value

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// algorithm to change without colliding with old journal rows.
const (
	DomainPayload = "flux/payload/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PayloadHash returns the content hash of a payload's canonical encoding.
// Equal payloads hash equally regardless of map iteration order.
func PayloadHash(p Object) (string, error) {
	if p == nil {
		p = Object{}
	}
	canonical, err := MarshalCanonical(p)
	if err != nil {
		return "", fmt.Errorf("PayloadHash: %w", err)
	}
	return hashWithDomain(DomainPayload, canonical), nil
}

// MustPayloadHash is like PayloadHash but panics on error.
// Use only in tests or when the payload is known to be valid.
func MustPayloadHash(p Object) string {
	h, err := PayloadHash(p)
	if err != nil {
		panic(err)
	}
	return h
}
