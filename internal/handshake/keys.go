package handshake

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// LoadPrivateKey reads a PKCS#1 or PKCS#8 PEM-encoded RSA private key
// from path, the convention being "<keydir>/<lowercase_name>_private.pem"
// (spec section 6, "Group configuration").
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("handshake: reading private key %q: %w", path, err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("handshake: %q is not a valid PEM file", path)
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	keyAny, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("handshake: parsing private key %q: %w", path, err)
	}
	key, ok := keyAny.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("handshake: %q does not contain an RSA private key", path)
	}
	return key, nil
}

// LoadPublicKey reads a PKIX PEM-encoded RSA public key from path, the
// convention being "<keydir>/<lowercase_name>_public.pem".
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("handshake: reading public key %q: %w", path, err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("handshake: %q is not a valid PEM file", path)
	}
	keyAny, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		cert, certErr := x509.ParseCertificate(block.Bytes)
		if certErr != nil {
			return nil, fmt.Errorf("handshake: parsing public key %q: %w", path, err)
		}
		keyAny = cert.PublicKey
	}
	key, ok := keyAny.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("handshake: %q does not contain an RSA public key", path)
	}
	return key, nil
}
