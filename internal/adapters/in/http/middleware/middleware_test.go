package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	solanainfra "github.com/lwb4/proofofclick/internal/infra/solana"
)

func TestRecover(t *testing.T) {
	h := Recover(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"internal"`)
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	h := CORS("https://a.example, https://b.example")(next)

	req := httptest.NewRequest(http.MethodOptions, "/v2/click", nil)
	req.Header.Set("Origin", "https://b.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://b.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSigner(t *testing.T) {
	acc := types.NewAccount()
	body := []byte(`{"accounts":{}}`)
	var nonces solanainfra.NonceSource

	var got Payer
	var gotBody []byte
	var seen bool
	m := NewSigner(zerolog.Nop())
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, seen = PayerFromContext(r.Context())
		gotBody, _ = io.ReadAll(r.Body)
	}))

	send := func(nonce uint64, sig string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v2/click", bytes.NewReader(body))
		req.Header.Set(solanainfra.HeaderPayer, acc.PublicKey.ToBase58())
		if sig != "" {
			req.Header.Set(solanainfra.HeaderNonce, strconv.FormatUint(nonce, 10))
			req.Header.Set(solanainfra.HeaderSignature, sig)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	n := nonces.Next()
	send(n, solanainfra.SignRequest(acc, http.MethodPost, "/v2/click", n, body))
	require.True(t, seen)
	assert.Equal(t, acc.PublicKey, got.Key)
	assert.True(t, got.Signed)
	assert.Equal(t, body, gotBody)

	n = nonces.Next()
	send(n, solanainfra.SignRequest(acc, http.MethodPost, "/v2/buy-cursor", n, body))
	assert.False(t, got.Signed)

	send(0, "")
	assert.False(t, got.Signed)
	assert.Equal(t, acc.PublicKey, got.Key)

	seen = false
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v2/click", nil))
	assert.False(t, seen)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSigner_NonceIsSingleUse(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	m := &Signer{Logger: zerolog.Nop(), Window: time.Minute, Now: func() time.Time { return now }}

	calls := 0
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, _ := PayerFromContext(r.Context()); p.Signed {
			calls++
		}
	}))

	alice := types.NewAccount()
	bob := types.NewAccount()
	body := []byte(`{}`)

	send := func(acc types.Account, nonce uint64) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v2/buy-cursor", bytes.NewReader(body))
		req.Header.Set(solanainfra.HeaderPayer, acc.PublicKey.ToBase58())
		req.Header.Set(solanainfra.HeaderNonce, strconv.FormatUint(nonce, 10))
		req.Header.Set(solanainfra.HeaderSignature, solanainfra.SignRequest(acc, http.MethodPost, "/v2/buy-cursor", nonce, body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	nonce := uint64(now.UnixMilli())
	assert.Equal(t, http.StatusOK, send(alice, nonce).Code)

	rec := send(alice, nonce)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"replayed_request"`)

	// nonce は payer ごと
	assert.Equal(t, http.StatusOK, send(bob, nonce).Code)
	assert.Equal(t, http.StatusOK, send(alice, nonce+1).Code)
	assert.Equal(t, 3, calls)

	for _, off := range []time.Duration{-2 * time.Minute, 2 * time.Minute} {
		rec := send(alice, uint64(now.Add(off).UnixMilli()))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, off)
		assert.Contains(t, rec.Body.String(), `"error":"stale_request"`)
	}
	assert.Equal(t, 3, calls)
}

func TestSigner_ForgedSignatureDoesNotConsumeNonce(t *testing.T) {
	m := NewSigner(zerolog.Nop())
	var signed []bool
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := PayerFromContext(r.Context())
		signed = append(signed, p.Signed)
	}))

	victim := types.NewAccount()
	attacker := types.NewAccount()
	var nonces solanainfra.NonceSource
	nonce := nonces.Next()

	send := func(signer types.Account) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v2/click", nil)
		req.Header.Set(solanainfra.HeaderPayer, victim.PublicKey.ToBase58())
		req.Header.Set(solanainfra.HeaderNonce, strconv.FormatUint(nonce, 10))
		req.Header.Set(solanainfra.HeaderSignature, solanainfra.SignRequest(signer, http.MethodPost, "/v2/click", nonce, nil))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send(attacker).Code)
	assert.Equal(t, http.StatusOK, send(victim).Code)
	assert.Equal(t, []bool{false, true}, signed)
}
