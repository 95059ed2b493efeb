package solana

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeypairJSON_RoundTripThroughFile(t *testing.T) {
	acc := types.NewAccount()
	data, err := EncodeKeypairJSON(acc)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "payer.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	got, err := LoadKeypairFile(path)
	require.NoError(t, err)
	assert.Equal(t, acc.PublicKey, got.PublicKey)
}

func TestDecodeKeypairJSON_Rejects(t *testing.T) {
	_, err := decodeKeypairJSON([]byte(`[1,2,3]`))
	assert.ErrorContains(t, err, "unexpected secret key length")

	_, err = decodeKeypairJSON([]byte(`{"k":1}`))
	assert.ErrorContains(t, err, "unmarshal keypair json")

	big := make([]byte, 0, 64*4)
	big = append(big, '[')
	for i := 0; i < 64; i++ {
		if i > 0 {
			big = append(big, ',')
		}
		big = append(big, "300"...)
	}
	big = append(big, ']')
	_, err = decodeKeypairJSON(big)
	assert.ErrorContains(t, err, "out of range")
}

func TestLoadKeypairSecret_NotConfigured(t *testing.T) {
	_, err := LoadKeypairSecret(t.Context(), "  ")
	assert.ErrorIs(t, err, ErrKeypairSecretNotConfigured)
}

func TestSignAndVerifyRequest(t *testing.T) {
	acc := types.NewAccount()
	body := []byte(`{"accounts":null}`)
	const nonce = uint64(1_700_000_000_000)
	sig := SignRequest(acc, "POST", "/v2/click", nonce, body)

	got, err := VerifyRequest(acc.PublicKey.ToBase58(), sig, "POST", "/v2/click", nonce, body)
	require.NoError(t, err)
	assert.Equal(t, acc.PublicKey, got)

	t.Run("other path", func(t *testing.T) {
		_, err := VerifyRequest(acc.PublicKey.ToBase58(), sig, "POST", "/v2/buy-cursor", nonce, body)
		assert.ErrorIs(t, err, ErrBadSignature)
	})
	t.Run("other nonce", func(t *testing.T) {
		_, err := VerifyRequest(acc.PublicKey.ToBase58(), sig, "POST", "/v2/click", nonce+1, body)
		assert.ErrorIs(t, err, ErrBadSignature)
	})
	t.Run("tampered body", func(t *testing.T) {
		_, err := VerifyRequest(acc.PublicKey.ToBase58(), sig, "POST", "/v2/click", nonce, []byte(`{}`))
		assert.ErrorIs(t, err, ErrBadSignature)
	})
	t.Run("other payer", func(t *testing.T) {
		_, err := VerifyRequest(types.NewAccount().PublicKey.ToBase58(), sig, "POST", "/v2/click", nonce, body)
		assert.ErrorIs(t, err, ErrBadSignature)
	})
	t.Run("malformed", func(t *testing.T) {
		_, err := VerifyRequest("0OIl", sig, "POST", "/v2/click", nonce, body)
		assert.ErrorIs(t, err, ErrBadSignature)
		_, err = VerifyRequest(acc.PublicKey.ToBase58(), base58.Encode([]byte("short")), "POST", "/v2/click", nonce, body)
		assert.ErrorIs(t, err, ErrBadSignature)
	})
}

func TestRequestMessage(t *testing.T) {
	assert.Equal(t, "POST /v2/click\n42\n{}", string(RequestMessage("POST", "/v2/click", 42, []byte(`{}`))))
}

func TestParseNonce(t *testing.T) {
	n, err := ParseNonce("1700000000000")
	require.NoError(t, err)
	assert.Equal(t, uint64(1700000000000), n)

	for _, bad := range []string{"", "0", "-1", "abc", "18446744073709551616"} {
		_, err := ParseNonce(bad)
		assert.ErrorIs(t, err, ErrBadSignature, bad)
	}
}

func TestNonceSource_IsStrictlyIncreasing(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	src := NonceSource{Now: func() time.Time { return fixed }}

	a := src.Next()
	b := src.Next()
	c := src.Next()
	assert.Equal(t, uint64(fixed.UnixMilli()), a)
	assert.Equal(t, a+1, b)
	assert.Equal(t, b+1, c)
}
