package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identities.
const (
	DomainTransaction = "chainharness/tx/v1"
	DomainCode        = "chainharness/code/v1"
)

// hashWithDomain computes SHA256(domain || 0x00 || data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TxHash computes the identity of a transaction. The signer nonce keeps two
// otherwise identical calls apart.
func TxHash(signer, receiver, function string, args Object, nonce int64) (string, error) {
	if args == nil {
		args = Object{}
	}
	canonical, err := MarshalCanonical(Object{
		"signer":   String(signer),
		"receiver": String(receiver),
		"function": String(function),
		"args":     args,
		"nonce":    Int(nonce),
	})
	if err != nil {
		return "", fmt.Errorf("tx hash: %w", err)
	}
	return hashWithDomain(DomainTransaction, canonical), nil
}

// CodeHash computes the identity of a deployed artifact.
func CodeHash(code []byte) string {
	return hashWithDomain(DomainCode, code)
}
