package crypto

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// KeyFormatError reports malformed key material. It is raised at load
// time so that a bad key fails fast instead of surfacing later as an
// unverifiable signature.
type KeyFormatError struct {
	Reason string
	Err    error
}

func (e *KeyFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("crypto: invalid key material: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("crypto: invalid key material: %s", e.Reason)
}

func (e *KeyFormatError) Unwrap() error { return e.Err }

const (
	pemTypePrivate = "PRIVATE KEY"
	pemTypePublic  = "PUBLIC KEY"
)

// LoadPrivateKeyPEM parses a PKCS#8 PEM-encoded RSA private key.
func LoadPrivateKeyPEM(data []byte) (*RSASigner, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, &KeyFormatError{Reason: "no PEM block found"}
	}
	if block.Type != pemTypePrivate {
		return nil, &KeyFormatError{Reason: fmt.Sprintf("unexpected PEM type %q", block.Type)}
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, &KeyFormatError{Reason: "pkcs8 parse failed", Err: err}
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, &KeyFormatError{Reason: fmt.Sprintf("not an RSA key (%T)", key)}
	}
	return &RSASigner{priv: priv}, nil
}

// LoadPublicKeyPEM parses a PKIX PEM-encoded RSA public key.
func LoadPublicKeyPEM(data []byte) (*RSAVerifier, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, &KeyFormatError{Reason: "no PEM block found"}
	}
	if block.Type != pemTypePublic {
		return nil, &KeyFormatError{Reason: fmt.Sprintf("unexpected PEM type %q", block.Type)}
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, &KeyFormatError{Reason: "pkix parse failed", Err: err}
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, &KeyFormatError{Reason: fmt.Sprintf("not an RSA key (%T)", key)}
	}
	return &RSAVerifier{pub: pub}, nil
}

func encodePrivateKeyPEM(priv *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("crypto: pkcs8 marshal failed: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemTypePrivate, Bytes: der}), nil
}

func encodePublicKeyPEM(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("crypto: pkix marshal failed: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemTypePublic, Bytes: der}), nil
}
