// internal/adapters/in/http/handlers/helper_handler.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	clickdom "github.com/lwb4/proofofclick/internal/domain/click"
	ledgerdom "github.com/lwb4/proofofclick/internal/domain/ledger"
)

// ============================================================
// HTTP helpers
// ============================================================

// errorBody は全エンドポイント共通のエラー応答です。
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, errCode, detail string) {
	writeJSON(w, code, errorBody{Error: errCode, Detail: detail})
}

func badRequest(w http.ResponseWriter, detail string) {
	writeErr(w, http.StatusBadRequest, "invalid_request", detail)
}

// statusFor はエラー分類を HTTP ステータスとエラーコードに変換します。
// ErrMissingSigner は ErrUnauthorized を包んでいるため先に判定します。
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, clickdom.ErrIdentityMismatch):
		return http.StatusBadRequest, "identity_mismatch"
	case errors.Is(err, clickdom.ErrMissingSigner):
		return http.StatusUnauthorized, "missing_signer"
	case errors.Is(err, clickdom.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, clickdom.ErrInsufficientBalance):
		return http.StatusConflict, "insufficient_balance"
	case errors.Is(err, clickdom.ErrAccountNotInitialized):
		return http.StatusPreconditionFailed, "account_not_initialized"
	case errors.Is(err, clickdom.ErrOperationDisabled):
		return http.StatusNotFound, "operation_disabled"
	case errors.Is(err, clickdom.ErrArithmeticOverflow):
		return http.StatusUnprocessableEntity, "arithmetic_overflow"
	case errors.Is(err, clickdom.ErrInvalidRequest), errors.Is(err, ledgerdom.ErrInvalidAddress):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// writeClickErr はエンジンのエラーを応答に変換します。
// 500 の場合は内部の詳細を返しません。
func writeClickErr(w http.ResponseWriter, err error) {
	code, errCode := statusFor(err)
	detail := err.Error()
	if code == http.StatusInternalServerError {
		detail = "internal server error"
	}
	writeErr(w, code, errCode, detail)
}
