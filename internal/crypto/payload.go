package crypto

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrVerificationFailed is returned when a payload's ML-DSA-65 signature
// does not verify against the pinned server key. It always indicates a
// corrupt or forged payload; retrying cannot succeed.
var ErrVerificationFailed = errors.New("payload signature verification failed")

// EncryptedPayload is the wire form of one encrypted field (metadata,
// parsed body, or raw source). All fields are standard base64.
type EncryptedPayload struct {
	EncapsulatedKey string `json:"encapsulatedKey"`
	Nonce           string `json:"nonce"`
	Ciphertext      string `json:"ciphertext"`
	Signature       string `json:"signature,omitempty"`
}

// Decrypt opens a payload with the inbox's private key. When serverSigPk
// (base64 ML-DSA-65 public key) is non-empty the payload's signature is
// verified first; an unsigned payload is rejected in that case. The
// context string binds the derived AEAD key to the server's HKDF domain.
func (p *EncryptedPayload) Decrypt(kp *KeyPair, serverSigPk, context string) ([]byte, error) {
	if p == nil {
		return nil, errors.New("nil payload")
	}
	if context == "" {
		context = DefaultContext
	}

	encapKey, err := base64.StdEncoding.DecodeString(p.EncapsulatedKey)
	if err != nil {
		return nil, fmt.Errorf("decode encapsulated key: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(p.Nonce)
	if err != nil {
		return nil, fmt.Errorf("decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(p.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}

	if serverSigPk != "" {
		if err := p.verify(encapKey, nonce, ciphertext, serverSigPk); err != nil {
			return nil, err
		}
	}

	sharedSecret, err := kemScheme().Decapsulate(kp.Private, encapKey)
	if err != nil {
		return nil, fmt.Errorf("decapsulate: %w", err)
	}

	key, err := deriveKey(sharedSecret, context)
	if err != nil {
		return nil, err
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("open ciphertext: %w", err)
	}
	return plaintext, nil
}

// verify checks the server's signature over encapsulatedKey || nonce ||
// ciphertext.
func (p *EncryptedPayload) verify(encapKey, nonce, ciphertext []byte, serverSigPk string) error {
	if p.Signature == "" {
		return fmt.Errorf("%w: payload is unsigned", ErrVerificationFailed)
	}

	sig, err := base64.StdEncoding.DecodeString(p.Signature)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	pkRaw, err := base64.StdEncoding.DecodeString(serverSigPk)
	if err != nil {
		return fmt.Errorf("decode server signing key: %w", err)
	}
	pk, err := sigScheme().UnmarshalBinaryPublicKey(pkRaw)
	if err != nil {
		return fmt.Errorf("unmarshal server signing key: %w", err)
	}

	msg := signedMessage(encapKey, nonce, ciphertext)
	if !sigScheme().Verify(pk, msg, sig, nil) {
		return ErrVerificationFailed
	}
	return nil
}

func signedMessage(encapKey, nonce, ciphertext []byte) []byte {
	msg := make([]byte, 0, len(encapKey)+len(nonce)+len(ciphertext))
	msg = append(msg, encapKey...)
	msg = append(msg, nonce...)
	msg = append(msg, ciphertext...)
	return msg
}
