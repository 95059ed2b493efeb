// internal/adapters/in/http/handlers/click_handler.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/lwb4/proofofclick/internal/adapters/in/http/middleware"
	clickuc "github.com/lwb4/proofofclick/internal/application/click"
	clickdom "github.com/lwb4/proofofclick/internal/domain/click"
	ledgerdom "github.com/lwb4/proofofclick/internal/domain/ledger"
)

// ClickHandler は /v1, /v2 のエンドポイントを担当します。
type ClickHandler struct {
	uc  *clickuc.Usecase
	log zerolog.Logger
}

// NewClickHandler はHTTPハンドラを初期化します。
func NewClickHandler(uc *clickuc.Usecase) *ClickHandler {
	return &ClickHandler{uc: uc, log: zerolog.Nop()}
}

// SetLogger はハンドラのロガーを差し替えます（component=http.click）。
func (h *ClickHandler) SetLogger(l zerolog.Logger) {
	h.log = l.With().Str("component", "http.click").Logger()
}

// Routes registers the click endpoints onto r.
func (h *ClickHandler) Routes(r chi.Router) {
	r.Post("/v1/mint-one", h.mintOne)

	r.Post("/v2/initialize", h.payerOp(h.uc.InitializeMintV2))
	r.Post("/v2/click", h.payerOp(h.uc.MintBasedOnBalances))
	r.Post("/v2/buy-cursor", h.payerOp(h.uc.BuyCursor))

	r.Get("/v2/balances/{owner}", h.balances)
	r.Get("/v2/supply/{identity}", h.supply)
	r.Get("/v2/authority", h.authority)
}

// ------------------------------------------------------------
// request bodies
// ------------------------------------------------------------

// accountOverrides は導出済みアカウントの一部を差し替えます（すべて任意）。
type accountOverrides struct {
	ClickMint              string `json:"clickMint,omitempty"`
	CursorMint             string `json:"cursorMint,omitempty"`
	ClickTokenAccount      string `json:"clickTokenAccount,omitempty"`
	CursorTokenAccount     string `json:"cursorTokenAccount,omitempty"`
	PDAAuthority           string `json:"pdaAuthority,omitempty"`
	TokenProgram           string `json:"tokenProgram,omitempty"`
	AssociatedTokenProgram string `json:"associatedTokenProgram,omitempty"`
	SystemProgram          string `json:"systemProgram,omitempty"`
}

type payerOpRequest struct {
	Accounts *accountOverrides `json:"accounts,omitempty"`
}

type mintOneRequest struct {
	TokenToMint   string `json:"tokenToMint"`
	UserReceiving string `json:"userReceiving"`
	PDAAuthority  string `json:"pdaAuthority,omitempty"`
	Bump          *uint8 `json:"bump"`
}

// decodeBody は空ボディを許容します。
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, middleware.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func requirePayer(w http.ResponseWriter, r *http.Request) (middleware.Payer, bool) {
	p, ok := middleware.PayerFromContext(r.Context())
	if !ok {
		badRequest(w, "X-Payer header is required")
		return middleware.Payer{}, false
	}
	return p, true
}

// override は s が空でなければ dst を差し替えます。
func override(dst *clickuc.AccountRef, s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	pk, err := ledgerdom.ParseAddress(s)
	if err != nil {
		return err
	}
	dst.Key = pk
	return nil
}

func (o *accountOverrides) apply(a *clickuc.PayerAccounts) error {
	if o == nil {
		return nil
	}
	for _, f := range []struct {
		dst *clickuc.AccountRef
		raw string
	}{
		{&a.ClickMint, o.ClickMint},
		{&a.CursorMint, o.CursorMint},
		{&a.ClickTokenAccount, o.ClickTokenAccount},
		{&a.CursorTokenAccount, o.CursorTokenAccount},
		{&a.PDAAuthority, o.PDAAuthority},
		{&a.TokenProgram, o.TokenProgram},
		{&a.AssociatedTokenProgram, o.AssociatedTokenProgram},
		{&a.SystemProgram, o.SystemProgram},
	} {
		if err := override(f.dst, f.raw); err != nil {
			return err
		}
	}
	return nil
}

// ------------------------------------------------------------
// POST /v2/initialize, /v2/click, /v2/buy-cursor
// ------------------------------------------------------------

type payerOperation func(ctx context.Context, a clickuc.PayerAccounts) (*clickdom.Receipt, error)

func (h *ClickHandler) payerOp(op payerOperation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payer, ok := requirePayer(w, r)
		if !ok {
			return
		}

		var req payerOpRequest
		if err := decodeBody(r, &req); err != nil {
			badRequest(w, "invalid json: "+err.Error())
			return
		}

		accounts, err := h.uc.AccountsForPayer(payer.Key, payer.Signed)
		if err != nil {
			h.fail(w, err)
			return
		}
		if err := req.Accounts.apply(&accounts); err != nil {
			h.fail(w, err)
			return
		}

		rec, err := op(r.Context(), accounts)
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// ------------------------------------------------------------
// POST /v1/mint-one
// ------------------------------------------------------------

func (h *ClickHandler) mintOne(w http.ResponseWriter, r *http.Request) {
	payer, ok := requirePayer(w, r)
	if !ok {
		return
	}

	var body mintOneRequest
	if err := decodeBody(r, &body); err != nil {
		badRequest(w, "invalid json: "+err.Error())
		return
	}
	if body.Bump == nil {
		badRequest(w, "bump is required")
		return
	}

	req := clickdom.MintRequest{Payer: payer.Key, AuthorityBump: *body.Bump}
	var err error
	if req.TokenIdentity, err = parseOptional(body.TokenToMint); err != nil {
		h.fail(w, err)
		return
	}
	if req.Destination, err = parseOptional(body.UserReceiving); err != nil {
		h.fail(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.fail(w, err)
		return
	}

	accounts := h.uc.AccountsForMintOne(req.Payer, req.TokenIdentity, req.Destination, payer.Signed)
	if err := override(&accounts.PDAAuthority, body.PDAAuthority); err != nil {
		h.fail(w, err)
		return
	}

	rec, err := h.uc.MintAndSendOneToken(r.Context(), accounts, req.AuthorityBump)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// fail は 500 の場合のみ内部エラーをログに残します。
func (h *ClickHandler) fail(w http.ResponseWriter, err error) {
	if code, _ := statusFor(err); code >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("click operation failed")
	}
	writeClickErr(w, err)
}

// parseOptional は空文字をゼロ値として返します（必須判定は MintRequest.Validate）。
func parseOptional(s string) (common.PublicKey, error) {
	if strings.TrimSpace(s) == "" {
		return common.PublicKey{}, nil
	}
	return ledgerdom.ParseAddress(s)
}

// ------------------------------------------------------------
// GET queries
// ------------------------------------------------------------

func (h *ClickHandler) balances(w http.ResponseWriter, r *http.Request) {
	owner, err := ledgerdom.ParseAddress(chi.URLParam(r, "owner"))
	if err != nil {
		h.fail(w, err)
		return
	}
	b, err := h.uc.Balances(r.Context(), owner)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *ClickHandler) supply(w http.ResponseWriter, r *http.Request) {
	identity, err := h.resolveIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		h.fail(w, err)
		return
	}
	s, err := h.uc.Supply(r.Context(), identity)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// resolveIdentity は "click" / "cursor" の別名も受け付けます。
func (h *ClickHandler) resolveIdentity(s string) (common.PublicKey, error) {
	p := h.uc.Params()
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "click":
		return p.ClickMint, nil
	case "cursor":
		return p.CursorMint, nil
	}
	return ledgerdom.ParseAddress(s)
}

func (h *ClickHandler) authority(w http.ResponseWriter, r *http.Request) {
	info, err := h.uc.Authority(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
