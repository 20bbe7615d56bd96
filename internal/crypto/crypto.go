// Package crypto implements the envelope encryption used between the
// VaultSandbox gateway and this client. The server encrypts every email
// against the inbox's ML-KEM-768 public key and signs the result with its
// pinned ML-DSA-65 key; decryption and verification happen only on the
// client.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
	"github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
	"golang.org/x/crypto/hkdf"
)

// Algorithm names as they appear in the server-info response.
const (
	AlgKEM  = "ML-KEM-768"
	AlgSig  = "ML-DSA-65"
	AlgKDF  = "HKDF-SHA-256"
	AlgAEAD = "AES-256-GCM"
)

// DefaultContext is the HKDF info string used when the server does not
// advertise one.
const DefaultContext = "vaultsandbox-email-v1"

const aeadKeySize = 32

// AlgorithmSuite identifies the algorithms a server uses. Returned in the
// /api/server-info response.
type AlgorithmSuite struct {
	KEM  string `json:"kem"`
	Sig  string `json:"sig"`
	KDF  string `json:"kdf"`
	AEAD string `json:"aead"`
}

// Check verifies the server's advertised suite matches the one this client
// implements.
func (s AlgorithmSuite) Check() error {
	if s.KEM != "" && s.KEM != AlgKEM {
		return fmt.Errorf("unsupported KEM algorithm %q", s.KEM)
	}
	if s.Sig != "" && s.Sig != AlgSig {
		return fmt.Errorf("unsupported signature algorithm %q", s.Sig)
	}
	if s.KDF != "" && s.KDF != AlgKDF {
		return fmt.Errorf("unsupported KDF algorithm %q", s.KDF)
	}
	if s.AEAD != "" && s.AEAD != AlgAEAD {
		return fmt.Errorf("unsupported AEAD algorithm %q", s.AEAD)
	}
	return nil
}

func kemScheme() kem.Scheme {
	return mlkem768.Scheme()
}

func sigScheme() sign.Scheme {
	return mldsa65.Scheme()
}

// deriveKey turns a KEM shared secret into an AEAD key bound to the
// server's context string.
func deriveKey(sharedSecret []byte, context string) ([]byte, error) {
	key := make([]byte, aeadKeySize)
	r := hkdf.New(sha256.New, sharedSecret, nil, []byte(context))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
