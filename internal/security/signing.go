// Package security provides cryptographic signing of analysis results so
// downstream consumers can verify they were produced by this service.
package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/sirupsen/logrus"
)

// Signer signs JSON payloads with an ephemeral ECDSA P-256 key generated at
// startup. The public key is exposed so consumers can verify signatures.
type Signer struct {
	privateKey       *ecdsa.PrivateKey
	publicKeyEncoded string
}

// NewSigner generates a fresh key pair.
func NewSigner() (*Signer, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	publicKeyBytes := elliptic.Marshal(elliptic.P256(), privateKey.PublicKey.X, privateKey.PublicKey.Y)
	publicKeyEncoded := base64.StdEncoding.EncodeToString(publicKeyBytes)

	logrus.Infof("Result signer initialized with public key: %s...", publicKeyEncoded[:16])
	return &Signer{
		privateKey:       privateKey,
		publicKeyEncoded: publicKeyEncoded,
	}, nil
}

// PublicKey returns the base64-encoded public key.
func (s *Signer) PublicKey() string {
	return s.publicKeyEncoded
}

// SignedEnvelope wraps a payload with its signature and verification
// metadata.
type SignedEnvelope struct {
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
	PublicKey string          `json:"public_key"`
	SignedAt  int64           `json:"signed_at"`
	Algorithm string          `json:"algorithm"`
}

// Sign wraps a payload in a signed envelope. The signature covers the
// exact serialized payload bytes.
func (s *Signer) Sign(payload interface{}) (SignedEnvelope, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return SignedEnvelope{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	hash := sha256.Sum256(payloadBytes)
	r, sv, err := ecdsa.Sign(rand.Reader, s.privateKey, hash[:])
	if err != nil {
		return SignedEnvelope{}, fmt.Errorf("failed to sign payload: %w", err)
	}

	return SignedEnvelope{
		Payload:   payloadBytes,
		Signature: encodeSignature(r, sv),
		PublicKey: s.publicKeyEncoded,
		SignedAt:  time.Now().Unix(),
		Algorithm: "ECDSA-P256-SHA256",
	}, nil
}

// Verify checks an envelope against this signer's key pair.
func (s *Signer) Verify(env SignedEnvelope) bool {
	r, sv, err := decodeSignature(env.Signature)
	if err != nil {
		return false
	}
	hash := sha256.Sum256(env.Payload)
	return ecdsa.Verify(&s.privateKey.PublicKey, hash[:], r, sv)
}

// encodeSignature serializes the two signature integers as
// base64(r || s) with fixed 32-byte halves.
func encodeSignature(r, s *big.Int) string {
	buf := make([]byte, 64)
	r.FillBytes(buf[:32])
	s.FillBytes(buf[32:])
	return base64.StdEncoding.EncodeToString(buf)
}

func decodeSignature(encoded string) (*big.Int, *big.Int, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode signature: %w", err)
	}
	if len(raw) != 64 {
		return nil, nil, fmt.Errorf("unexpected signature length %d", len(raw))
	}
	return new(big.Int).SetBytes(raw[:32]), new(big.Int).SetBytes(raw[32:]), nil
}
