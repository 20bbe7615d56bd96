package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/sign"
)

// Seal is the server-side counterpart of Decrypt. The production gateway
// implements this on its own; the client carries it so tests and local
// tooling can produce payloads Decrypt accepts.
func Seal(plaintext []byte, recipient kem.PublicKey, signer sign.PrivateKey, context string) (*EncryptedPayload, error) {
	if context == "" {
		context = DefaultContext
	}

	encapKey, sharedSecret, err := kemScheme().Encapsulate(recipient)
	if err != nil {
		return nil, fmt.Errorf("encapsulate: %w", err)
	}

	key, err := deriveKey(sharedSecret, context)
	if err != nil {
		return nil, err
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	p := &EncryptedPayload{
		EncapsulatedKey: base64.StdEncoding.EncodeToString(encapKey),
		Nonce:           base64.StdEncoding.EncodeToString(nonce),
		Ciphertext:      base64.StdEncoding.EncodeToString(ciphertext),
	}

	if signer != nil {
		sig := sigScheme().Sign(signer, signedMessage(encapKey, nonce, ciphertext), nil)
		p.Signature = base64.StdEncoding.EncodeToString(sig)
	}
	return p, nil
}

// GenerateSigningKeyPair creates an ML-DSA-65 key pair in the role the
// gateway plays.
func GenerateSigningKeyPair() (sign.PublicKey, sign.PrivateKey, error) {
	pk, sk, err := sigScheme().GenerateKey()
	if err != nil {
		return nil, nil, fmt.Errorf("generate signing key pair: %w", err)
	}
	return pk, sk, nil
}

// MarshalSigningPublicKey returns the base64 encoding a server would
// advertise as its serverSigPk.
func MarshalSigningPublicKey(pk sign.PublicKey) (string, error) {
	raw, err := pk.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("marshal signing public key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
