package crypto

import (
	"fmt"
	"sync"
)

// KeyRing holds trusted verifier keys by key ID, supporting issuer key
// rotation: receipts signed under a retired key remain verifiable until
// the key is revoked.
type KeyRing struct {
	mu        sync.RWMutex
	verifiers map[string]Verifier
}

// NewKeyRing creates an empty KeyRing.
func NewKeyRing() *KeyRing {
	return &KeyRing{verifiers: make(map[string]Verifier)}
}

// AddKey registers a verifier under the given key ID, replacing any
// previous entry.
func (k *KeyRing) AddKey(keyID string, v Verifier) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.verifiers[keyID] = v
}

// RevokeKey removes a key from the ring.
func (k *KeyRing) RevokeKey(keyID string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.verifiers, keyID)
}

// VerifyKey verifies a signature against one specific key.
func (k *KeyRing) VerifyKey(keyID, digestHex string, signature []byte) (bool, error) {
	k.mu.RLock()
	v, ok := k.verifiers[keyID]
	k.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("crypto: unknown or revoked key %q", keyID)
	}
	return v.Verify(digestHex, signature), nil
}

// Verify reports whether any key in the ring verifies the signature.
func (k *KeyRing) Verify(digestHex string, signature []byte) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	for _, v := range k.verifiers {
		if v.Verify(digestHex, signature) {
			return true
		}
	}
	return false
}

// PublicKeyPEM is unsupported on a ring; a ring aggregates many keys.
func (k *KeyRing) PublicKeyPEM() ([]byte, error) {
	return nil, fmt.Errorf("crypto: keyring aggregates multiple keys")
}

// Len returns the number of keys currently in the ring.
func (k *KeyRing) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.verifiers)
}
