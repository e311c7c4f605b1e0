package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identities. The version suffix
// leaves room for algorithm migration.
const (
	DomainRecord  = "syncsim/record/v1"
	DomainBinding = "syncsim/binding/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RecordID computes the content-addressed id of an action record from its
// flow, action, input, output and sequence number. Depth and provenance are
// excluded: the same action with the same values at the same logical time is
// the same event.
func RecordID(flow string, action ActionRef, input, output IRObject, seq int64) (string, error) {
	obj := IRObject{
		"flow":   IRString(flow),
		"action": IRString(action),
		"input":  nonNil(input),
		"output": nonNil(output),
		"seq":    IRInt(seq),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("RecordID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}

// BindingHash hashes a set of variable bindings. Cycle detection keys rule
// firings by it.
func BindingHash(bindings IRObject) (string, error) {
	canonical, err := MarshalCanonical(nonNil(bindings))
	if err != nil {
		return "", fmt.Errorf("BindingHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainBinding, canonical), nil
}

// MustRecordID is like RecordID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustRecordID(flow string, action ActionRef, input, output IRObject, seq int64) string {
	id, err := RecordID(flow, action, input, output, seq)
	if err != nil {
		panic(err)
	}
	return id
}

// MustBindingHash is like BindingHash but panics on error.
func MustBindingHash(bindings IRObject) string {
	hash, err := BindingHash(bindings)
	if err != nil {
		panic(err)
	}
	return hash
}

func nonNil(obj IRObject) IRObject {
	if obj == nil {
		return IRObject{}
	}
	return obj
}
