package crypto

import (
	"encoding/base64"
	"fmt"

	"github.com/cloudflare/circl/kem"
)

// KeyPair holds an inbox's ML-KEM-768 encapsulation keys. The private key
// never leaves the client; the public key is registered with the gateway
// at inbox creation.
type KeyPair struct {
	Public  kem.PublicKey
	Private kem.PrivateKey
}

// GenerateKeyPair creates a fresh ML-KEM-768 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	pk, sk, err := kemScheme().GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generate KEM key pair: %w", err)
	}
	return &KeyPair{Public: pk, Private: sk}, nil
}

// PublicBase64 returns the public key in the wire encoding sent to the
// gateway.
func (kp *KeyPair) PublicBase64() (string, error) {
	raw, err := kp.Public.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// PrivateBase64 returns the private key in the export encoding used by
// ExportedInbox.
func (kp *KeyPair) PrivateBase64() (string, error) {
	raw, err := kp.Private.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("marshal private key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// KeyPairFromBase64 reconstructs a key pair from its exported encoding.
func KeyPairFromBase64(publicB64, privateB64 string) (*KeyPair, error) {
	pubRaw, err := base64.StdEncoding.DecodeString(publicB64)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	privRaw, err := base64.StdEncoding.DecodeString(privateB64)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}

	pk, err := kemScheme().UnmarshalBinaryPublicKey(pubRaw)
	if err != nil {
		return nil, fmt.Errorf("unmarshal public key: %w", err)
	}
	sk, err := kemScheme().UnmarshalBinaryPrivateKey(privRaw)
	if err != nil {
		return nil, fmt.Errorf("unmarshal private key: %w", err)
	}
	return &KeyPair{Public: pk, Private: sk}, nil
}
