// Package crypto provides asymmetric signing and verification for trust
// receipts. Receipts are signed over their self_hash digest with RSA-PSS,
// a probabilistic scheme: signing the same digest twice yields different
// signature bytes, and verification (never byte equality) is the
// correctness check.
package crypto

import (
	stdcrypto "crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
)

// DefaultKeySize is the RSA modulus size used when no size is requested.
const DefaultKeySize = 2048

// Signer holds private key material and produces signatures over hex
// digests. Implementations own the key exclusively; validator code paths
// only ever see a Verifier.
type Signer interface {
	Sign(digestHex string) ([]byte, error)
	Verifier() Verifier
}

// Verifier checks a signature over a hex digest with public key material.
type Verifier interface {
	Verify(digestHex string, signature []byte) bool
	PublicKeyPEM() ([]byte, error)
}

// RSASigner signs digests with RSA-PSS (SHA-256, maximum salt length).
type RSASigner struct {
	priv *rsa.PrivateKey
}

// RSAVerifier verifies RSA-PSS signatures with a public key only.
type RSAVerifier struct {
	pub *rsa.PublicKey
}

// GenerateKeyPair creates a fresh RSA keypair. A bits value of 0 selects
// DefaultKeySize.
func GenerateKeyPair(bits int) (*RSASigner, *RSAVerifier, error) {
	if bits == 0 {
		bits = DefaultKeySize
	}
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: key generation failed: %w", err)
	}
	return &RSASigner{priv: priv}, &RSAVerifier{pub: &priv.PublicKey}, nil
}

// NewRSASigner wraps an existing private key.
func NewRSASigner(priv *rsa.PrivateKey) *RSASigner {
	return &RSASigner{priv: priv}
}

// NewRSAVerifier wraps an existing public key.
func NewRSAVerifier(pub *rsa.PublicKey) *RSAVerifier {
	return &RSAVerifier{pub: pub}
}

// Sign produces an RSA-PSS signature over SHA-256(digestHex). The salt is
// randomized, so repeated calls return different bytes for the same input.
func (s *RSASigner) Sign(digestHex string) ([]byte, error) {
	hashed := sha256.Sum256([]byte(digestHex))
	sig, err := rsa.SignPSS(rand.Reader, s.priv, stdcrypto.SHA256, hashed[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
	})
	if err != nil {
		return nil, fmt.Errorf("crypto: pss signing failed: %w", err)
	}
	return sig, nil
}

// Verifier returns the public half of the signer's keypair.
func (s *RSASigner) Verifier() Verifier {
	return &RSAVerifier{pub: &s.priv.PublicKey}
}

// PrivateKeyPEM serializes the private key as PKCS#8 PEM.
func (s *RSASigner) PrivateKeyPEM() ([]byte, error) {
	return encodePrivateKeyPEM(s.priv)
}

// Verify reports whether signature is a valid RSA-PSS signature over
// SHA-256(digestHex). Malformed input returns false rather than an error.
func (v *RSAVerifier) Verify(digestHex string, signature []byte) bool {
	if v.pub == nil || len(signature) == 0 {
		return false
	}
	hashed := sha256.Sum256([]byte(digestHex))
	err := rsa.VerifyPSS(v.pub, stdcrypto.SHA256, hashed[:], signature, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
	})
	return err == nil
}

// PublicKeyPEM serializes the public key as PKIX PEM.
func (v *RSAVerifier) PublicKeyPEM() ([]byte, error) {
	return encodePublicKeyPEM(v.pub)
}
