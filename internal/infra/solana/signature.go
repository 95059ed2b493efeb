// internal/infra/solana/signature.go
package solana

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
)

// HTTP で payer の署名を運ぶヘッダです。
const (
	HeaderPayer     = "X-Payer"
	HeaderSignature = "X-Signature"
	HeaderNonce     = "X-Nonce"
)

var ErrBadSignature = errors.New("signature: verification failed")

// RequestMessage は署名対象のバイト列です:
//
//	method + " " + path + "\n" + nonce(10進) + "\n" + body
func RequestMessage(method, path string, nonce uint64, body []byte) []byte {
	msg := make([]byte, 0, len(method)+len(path)+len(body)+24)
	msg = append(msg, method...)
	msg = append(msg, ' ')
	msg = append(msg, path...)
	msg = append(msg, '\n')
	msg = strconv.AppendUint(msg, nonce, 10)
	msg = append(msg, '\n')
	return append(msg, body...)
}

// SignRequest はリクエストに対する base58 署名を返します。
func SignRequest(acc types.Account, method, path string, nonce uint64, body []byte) string {
	return base58.Encode(acc.Sign(RequestMessage(method, path, nonce, body)))
}

// ParseNonce は X-Nonce ヘッダ値を読みます。
func ParseNonce(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: malformed nonce %q", ErrBadSignature, s)
	}
	return n, nil
}

// NonceSource は payer ごとの単調増加する nonce（Unix ミリ秒ベース）を払い出します。
// 同じミリ秒内の連続呼び出しでも値は重複しません。
type NonceSource struct {
	mu   sync.Mutex
	last uint64
	Now  func() time.Time
}

func (s *NonceSource) Next() uint64 {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	n := uint64(now().UnixMilli())

	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= s.last {
		n = s.last + 1
	}
	s.last = n
	return n
}

// VerifyRequest は payer（base58 公開鍵）による署名を検証し、payer を返します。
func VerifyRequest(payer, signature, method, path string, nonce uint64, body []byte) (common.PublicKey, error) {
	pubBytes, err := base58.Decode(payer)
	if err != nil || len(pubBytes) != ed25519.PublicKeySize {
		return common.PublicKey{}, fmt.Errorf("%w: malformed payer", ErrBadSignature)
	}
	sig, err := base58.Decode(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return common.PublicKey{}, fmt.Errorf("%w: malformed signature", ErrBadSignature)
	}
	if !ed25519.Verify(ed25519.PublicKey(pubBytes), RequestMessage(method, path, nonce, body), sig) {
		return common.PublicKey{}, ErrBadSignature
	}
	return common.PublicKeyFromBytes(pubBytes), nil
}
