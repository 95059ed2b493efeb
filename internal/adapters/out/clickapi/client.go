// internal/adapters/out/clickapi/client.go
package clickapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"

	clickdom "github.com/lwb4/proofofclick/internal/domain/click"
	solanainfra "github.com/lwb4/proofofclick/internal/infra/solana"
)

// Client は proofofclick API の署名付きクライアントです。
type Client struct {
	BaseURL string
	Payer   types.Account
	HTTP    *http.Client

	nonces solanainfra.NonceSource
}

func NewClient(baseURL string, payer types.Account) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Payer:   payer,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// APIError は API が返したエラー応答です。
type APIError struct {
	Status int
	Code   string `json:"error"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Detail)
}

func (c *Client) Initialize(ctx context.Context) (*clickdom.Receipt, error) {
	var out clickdom.Receipt
	return &out, c.do(ctx, http.MethodPost, "/v2/initialize", nil, &out)
}

func (c *Client) Click(ctx context.Context) (*clickdom.Receipt, error) {
	var out clickdom.Receipt
	return &out, c.do(ctx, http.MethodPost, "/v2/click", nil, &out)
}

func (c *Client) BuyCursor(ctx context.Context) (*clickdom.Receipt, error) {
	var out clickdom.Receipt
	return &out, c.do(ctx, http.MethodPost, "/v2/buy-cursor", nil, &out)
}

// MintOne は legacy の mint_and_send_one_token を呼びます。
func (c *Client) MintOne(ctx context.Context, tokenToMint, receiving common.PublicKey, bump uint8) (*clickdom.Receipt, error) {
	body := map[string]any{
		"tokenToMint":   tokenToMint.ToBase58(),
		"userReceiving": receiving.ToBase58(),
		"bump":          bump,
	}
	var out clickdom.Receipt
	return &out, c.do(ctx, http.MethodPost, "/v1/mint-one", body, &out)
}

// Balances は owner が空なら payer の残高を返します。
func (c *Client) Balances(ctx context.Context, owner *common.PublicKey) (*clickdom.Balances, error) {
	o := c.Payer.PublicKey
	if owner != nil {
		o = *owner
	}
	var out clickdom.Balances
	return &out, c.do(ctx, http.MethodGet, "/v2/balances/"+o.ToBase58(), nil, &out)
}

// Supply は "click" / "cursor" または mint アドレスを受け付けます。
func (c *Client) Supply(ctx context.Context, identity string) (*clickdom.Supply, error) {
	var out clickdom.Supply
	return &out, c.do(ctx, http.MethodGet, "/v2/supply/"+url.PathEscape(identity), nil, &out)
}

func (c *Client) Authority(ctx context.Context) (*clickdom.AuthorityInfo, error) {
	var out clickdom.AuthorityInfo
	return &out, c.do(ctx, http.MethodGet, "/v2/authority", nil, &out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var raw []byte
	if body != nil {
		var err error
		if raw, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(solanainfra.HeaderPayer, c.Payer.PublicKey.ToBase58())
	// ★ 署名対象はサーバが見る URL パス（エスケープ前）
	nonce := c.nonces.Next()
	req.Header.Set(solanainfra.HeaderNonce, strconv.FormatUint(nonce, 10))
	req.Header.Set(solanainfra.HeaderSignature, solanainfra.SignRequest(c.Payer, method, req.URL.Path, nonce, raw))

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
			apiErr.Detail = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}
