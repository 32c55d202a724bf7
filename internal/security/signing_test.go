package security

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	signer, err := NewSigner()
	require.NoError(t, err)

	payload := map[string]interface{}{
		"token": "PEPE",
		"score": 80,
	}

	env, err := signer.Sign(payload)
	require.NoError(t, err)

	assert.Equal(t, "ECDSA-P256-SHA256", env.Algorithm)
	assert.Equal(t, signer.PublicKey(), env.PublicKey)
	assert.NotEmpty(t, env.Signature)
	assert.NotZero(t, env.SignedAt)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Payload, &decoded))
	assert.Equal(t, "PEPE", decoded["token"])

	assert.True(t, signer.Verify(env))
}

func TestVerify_RejectsTamperedPayload(t *testing.T) {
	signer, err := NewSigner()
	require.NoError(t, err)

	env, err := signer.Sign(map[string]int{"score": 80})
	require.NoError(t, err)

	env.Payload = json.RawMessage(`{"score":100}`)
	assert.False(t, signer.Verify(env))
}

func TestVerify_RejectsGarbageSignature(t *testing.T) {
	signer, err := NewSigner()
	require.NoError(t, err)

	env, err := signer.Sign(map[string]int{"score": 80})
	require.NoError(t, err)

	env.Signature = "bm90LWEtc2lnbmF0dXJl"
	assert.False(t, signer.Verify(env))
}

func TestSigners_HaveDistinctKeys(t *testing.T) {
	a, err := NewSigner()
	require.NoError(t, err)
	b, err := NewSigner()
	require.NoError(t, err)

	assert.NotEqual(t, a.PublicKey(), b.PublicKey())
}
