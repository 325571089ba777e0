package rtc

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// SealedAlgorithm labels the only sealed-message scheme the wire knows.
const SealedAlgorithm = "x25519+aes256gcm"

const sessionKeyInfo = "banter sealed message v1"

// KeyPair is one account's long-lived X25519 identity for sealed messages.
type KeyPair struct {
	private *ecdh.PrivateKey
}

func GenerateKeyPair() (*KeyPair, error) {
	private, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("unable to generate keypair: %w", err)
	}
	return &KeyPair{private: private}, nil
}

// EncodePublicKey renders the public half the way the key bundle endpoint
// expects it.
func (kp *KeyPair) EncodePublicKey() string {
	return base64.StdEncoding.EncodeToString(kp.private.PublicKey().Bytes())
}

// Fingerprint returns the sha256 hex digest of the raw public key, matching
// what the server computes when a bundle is published.
func (kp *KeyPair) Fingerprint() string {
	sum := sha256.Sum256(kp.private.PublicKey().Bytes())
	return hex.EncodeToString(sum[:])
}

// ParsePublicKey decodes a peer's published key. The raw form must be
// exactly 32 bytes.
func ParsePublicKey(encoded string) (*ecdh.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("public key is not valid base64: %w", err)
	}
	key, err := ecdh.X25519().NewPublicKey(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}
	return key, nil
}

// DeriveSessionKey runs ECDH against the peer's key and stretches the shared
// secret to an AES-256 key. Both sides of a conversation derive the same key.
func (kp *KeyPair) DeriveSessionKey(peer *ecdh.PublicKey) ([]byte, error) {
	secret, err := kp.private.ECDH(peer)
	if err != nil {
		return nil, fmt.Errorf("key agreement failed: %w", err)
	}

	key := make([]byte, 32)
	reader := hkdf.New(sha256.New, secret, nil, []byte(sessionKeyInfo))
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("unable to derive session key: %w", err)
	}
	return key, nil
}

// SealText encrypts a message body with AES-256-GCM and returns the
// ciphertext and nonce, both base64, ready for the sealed message fields.
func SealText(key []byte, plaintext string) (ciphertext, nonce string, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", "", err
	}

	rawNonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(rawNonce); err != nil {
		return "", "", fmt.Errorf("unable to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, rawNonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), base64.StdEncoding.EncodeToString(rawNonce), nil
}

// OpenText reverses SealText. Tampered ciphertext fails authentication.
func OpenText(key []byte, ciphertext, nonce string) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	rawCipher, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("ciphertext is not valid base64: %w", err)
	}
	rawNonce, err := base64.StdEncoding.DecodeString(nonce)
	if err != nil {
		return "", fmt.Errorf("nonce is not valid base64: %w", err)
	}
	if len(rawNonce) != gcm.NonceSize() {
		return "", fmt.Errorf("nonce must be %d bytes", gcm.NonceSize())
	}

	plain, err := gcm.Open(nil, rawNonce, rawCipher, nil)
	if err != nil {
		return "", fmt.Errorf("unable to open sealed message: %w", err)
	}
	return string(plain), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("session key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
