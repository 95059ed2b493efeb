// internal/adapters/in/http/middleware/signer.go
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	ledgerdom "github.com/lwb4/proofofclick/internal/domain/ledger"
	solanainfra "github.com/lwb4/proofofclick/internal/infra/solana"
)

// MaxBodyBytes はリクエストボディの上限です。
const MaxBodyBytes = 1 << 20

// DefaultNonceWindow は X-Nonce（Unix ミリ秒）と現在時刻の許容ずれです。
const DefaultNonceWindow = 5 * time.Minute

// context key は string を使わず、衝突回避のため独自型を使用
type ctxKey struct{ name string }

var ctxKeyPayer = ctxKey{name: "payer"}

// Payer はリクエストで名乗られた payer と、その署名が検証済みかどうかです。
type Payer struct {
	Key    common.PublicKey
	Signed bool
}

// PayerFromContext returns the payer attached by Signer.
func PayerFromContext(ctx context.Context) (Payer, bool) {
	p, ok := ctx.Value(ctxKeyPayer).(Payer)
	return p, ok
}

// WithPayer はテストやバッチ用に payer を context に詰めます。
func WithPayer(ctx context.Context, p Payer) context.Context {
	return context.WithValue(ctx, ctxKeyPayer, p)
}

// Signer は
//
//   - X-Payer: <base58 pubkey>
//   - X-Nonce: <Unix ミリ秒>
//   - X-Signature: <base58 ed25519 signature over "METHOD PATH\nNONCE\nBODY">
//
// を読み、payer を context に詰めて次のハンドラへ渡す。
//
// ★ 署名が無い / 検証に失敗した場合でも拒否はせず、Signed=false のまま渡します。
// 署名の要否はエンジン側が判断します。
// ★ 検証済みの署名は (payer, nonce) ごとに一度だけ有効です。
// Window より古い / 未来の nonce と、既に使われた nonce は 401 で拒否します。
type Signer struct {
	Logger zerolog.Logger
	Window time.Duration
	Now    func() time.Time

	mu   sync.Mutex
	seen *expirable.LRU[string, struct{}]
}

// NewSigner は既定の nonce 窓で Signer を作ります。
func NewSigner(logger zerolog.Logger) *Signer {
	return &Signer{Logger: logger, Window: DefaultNonceWindow}
}

func (m *Signer) Handler(next http.Handler) http.Handler {
	if m.Window <= 0 {
		m.Window = DefaultNonceWindow
	}
	if m.Now == nil {
		m.Now = time.Now
	}
	if m.seen == nil {
		// size 0 = 上限なし。窓の 2 倍を過ぎたエントリは期限切れで消える
		m.seen = expirable.NewLRU[string, struct{}](0, nil, 2*m.Window)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(solanainfra.HeaderPayer))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		key, err := ledgerdom.ParseAddress(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "malformed "+solanainfra.HeaderPayer)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "invalid_request", "request body too large")
			return
		}
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		p := Payer{Key: key}
		if sig := strings.TrimSpace(r.Header.Get(solanainfra.HeaderSignature)); sig != "" {
			nonce, err := solanainfra.ParseNonce(strings.TrimSpace(r.Header.Get(solanainfra.HeaderNonce)))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request", "missing or malformed "+solanainfra.HeaderNonce)
				return
			}

			if _, err := solanainfra.VerifyRequest(raw, sig, r.Method, r.URL.Path, nonce, body); err != nil {
				m.Logger.Debug().Err(err).Str("payer", raw).Msg("signature rejected")
			} else {
				if code, detail := m.claim(raw, nonce); code != "" {
					m.Logger.Warn().Str("payer", raw).Uint64("nonce", nonce).Str("reason", code).Msg("signed request refused")
					writeError(w, http.StatusUnauthorized, code, detail)
					return
				}
				p.Signed = true
			}
		}

		next.ServeHTTP(w, r.WithContext(WithPayer(r.Context(), p)))
	})
}

// claim は nonce の鮮度を確認し、(payer, nonce) を使用済みにします。
// 拒否する場合はエラーコードと詳細を返します。
func (m *Signer) claim(payer string, nonce uint64) (string, string) {
	now := m.Now()
	if nonce > uint64(1<<63-1) {
		return "stale_request", "nonce outside the accepted window"
	}
	at := time.UnixMilli(int64(nonce))
	if at.Before(now.Add(-m.Window)) || at.After(now.Add(m.Window)) {
		return "stale_request", "nonce outside the accepted window"
	}

	k := payer + ":" + strconv.FormatUint(nonce, 10)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen.Contains(k) {
		return "replayed_request", "nonce already used"
	}
	m.seen.Add(k, struct{}{})
	return "", ""
}

func writeError(w http.ResponseWriter, code int, errCode, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": errCode, "detail": detail})
}
