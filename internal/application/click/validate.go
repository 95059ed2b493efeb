// internal/application/click/validate.go
package click

import (
	"context"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"

	"github.com/lwb4/proofofclick/internal/domain/authority"
	clickdom "github.com/lwb4/proofofclick/internal/domain/click"
	ledgerdom "github.com/lwb4/proofofclick/internal/domain/ledger"
)

// アカウントの役割名（エラーの Role に入る）
const (
	rolePayer              = "payer"
	roleUserMinting        = "user_minting"
	roleUserReceiving      = "user_receiving"
	roleTokenToMint        = "token_to_mint"
	roleClickMint          = "click_token_mint"
	roleCursorMint         = "cursor_token_mint"
	roleClickTokenAccount  = "click_token_account"
	roleCursorTokenAccount = "cursor_token_account"
	roleAuthority          = "pda_authority"
	roleTokenProgram       = "token_program"
	roleAssociatedProgram  = "associated_token_program"
	roleSystemProgram      = "system_program"
)

// ============================================================
// 静的検証（台帳を読まずに判定できるもの）
// ============================================================

func requireSigner(op clickdom.Operation, role string, ref AccountRef) error {
	if !ref.IsSigner {
		return clickdom.Fail(op, role, fmt.Errorf("%w: %s", clickdom.ErrMissingSigner, ref.Key.ToBase58()))
	}
	return nil
}

func requireKey(op clickdom.Operation, role string, got, want common.PublicKey) error {
	if got != want {
		return clickdom.Fail(op, role, fmt.Errorf("%w: want %s, got %s",
			clickdom.ErrIdentityMismatch, want.ToBase58(), got.ToBase58()))
	}
	return nil
}

// requireHolding は保有アカウントが ATA(owner, mint) と一致するか確認します。
func requireHolding(op clickdom.Operation, role string, got, owner, mint common.PublicKey) error {
	want, _, err := common.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return clickdom.Fail(op, role, fmt.Errorf("%w: derive holding account: %v", clickdom.ErrIdentityMismatch, err))
	}
	return requireKey(op, role, got, want)
}

func verifyAuthority(op clickdom.Operation, auth authority.Authority, referenced common.PublicKey) error {
	if err := auth.Verify(referenced); err != nil {
		return clickdom.Fail(op, roleAuthority, fmt.Errorf("%w: %w", clickdom.ErrUnauthorized, err))
	}
	return nil
}

// validatePayerAccounts は v2 系オペレーション共通の役割検証です。
// 順序: signer → identity → holding → authority → program ids
func (u *Usecase) validatePayerAccounts(op clickdom.Operation, a PayerAccounts) error {
	if a.Payer.Key == (common.PublicKey{}) {
		return clickdom.Fail(op, rolePayer, fmt.Errorf("%w: payer is empty", clickdom.ErrInvalidRequest))
	}
	if err := requireSigner(op, rolePayer, a.Payer); err != nil {
		return err
	}

	if err := requireKey(op, roleClickMint, a.ClickMint.Key, u.params.ClickMint); err != nil {
		return err
	}
	if err := requireKey(op, roleCursorMint, a.CursorMint.Key, u.params.CursorMint); err != nil {
		return err
	}

	if err := requireHolding(op, roleClickTokenAccount, a.ClickTokenAccount.Key, a.Payer.Key, u.params.ClickMint); err != nil {
		return err
	}
	if err := requireHolding(op, roleCursorTokenAccount, a.CursorTokenAccount.Key, a.Payer.Key, u.params.CursorMint); err != nil {
		return err
	}

	if err := verifyAuthority(op, u.authority, a.PDAAuthority.Key); err != nil {
		return err
	}

	if err := requireKey(op, roleTokenProgram, a.TokenProgram.Key, common.TokenProgramID); err != nil {
		return err
	}
	if err := requireKey(op, roleAssociatedProgram, a.AssociatedTokenProgram.Key, common.SPLAssociatedTokenAccountProgramID); err != nil {
		return err
	}
	// System program は initialize のみが使う
	if op == clickdom.OpInitializeMintV2 {
		if err := requireKey(op, roleSystemProgram, a.SystemProgram.Key, common.SystemProgramID); err != nil {
			return err
		}
	}
	return nil
}

// validateMintSend は legacy オペレーションの検証です。
// token_to_mint / user_receiving は任意のため identity は見ず、authority の導出のみ検証します。
func (u *Usecase) validateMintSend(a MintSendTokenAccounts, bump uint8) (authority.Authority, error) {
	op := clickdom.OpMintAndSendOneToken

	zero := common.PublicKey{}
	switch {
	case a.TokenToMint.Key == zero:
		return authority.Authority{}, clickdom.Fail(op, roleTokenToMint, fmt.Errorf("%w: token_to_mint is empty", clickdom.ErrInvalidRequest))
	case a.UserReceiving.Key == zero:
		return authority.Authority{}, clickdom.Fail(op, roleUserReceiving, fmt.Errorf("%w: user_receiving is empty", clickdom.ErrInvalidRequest))
	case a.UserMinting.Key == zero:
		return authority.Authority{}, clickdom.Fail(op, roleUserMinting, fmt.Errorf("%w: user_minting is empty", clickdom.ErrInvalidRequest))
	}

	if err := requireSigner(op, roleUserMinting, a.UserMinting); err != nil {
		return authority.Authority{}, err
	}

	// ★ legacy は呼び出し側の bump をそのまま使う
	auth, err := authority.Derive(u.params.ProgramID, u.params.Seed, bump)
	if err != nil {
		return authority.Authority{}, clickdom.Fail(op, roleAuthority, fmt.Errorf("%w: %w", clickdom.ErrUnauthorized, err))
	}
	if err := verifyAuthority(op, auth, a.PDAAuthority.Key); err != nil {
		return authority.Authority{}, err
	}

	if err := requireKey(op, roleTokenProgram, a.TokenProgram.Key, common.TokenProgramID); err != nil {
		return authority.Authority{}, err
	}
	return auth, nil
}

// ============================================================
// 動的検証（トランザクション内で台帳を読む）
// ============================================================

// initializedState は初期化済みの v2 アカウントのスナップショットです。
type initializedState struct {
	marker clickdom.AuthorityMarker
	click  ledgerdom.TokenState
	cursor ledgerdom.TokenState
}

// loadInitialized は marker と保有アカウントが存在し、正しい形であることを確認します。
func (u *Usecase) loadInitialized(ctx context.Context, tx clickdom.LedgerTx, op clickdom.Operation, a PayerAccounts) (initializedState, error) {
	var st initializedState

	marker, err := u.loadMarker(ctx, tx, op)
	if err != nil {
		return st, err
	}
	st.marker = marker

	if err := u.requireMint(ctx, tx, op, roleClickMint, a.ClickMint.Key); err != nil {
		return st, err
	}
	if err := u.requireMint(ctx, tx, op, roleCursorMint, a.CursorMint.Key); err != nil {
		return st, err
	}

	st.click, err = loadHolding(ctx, tx, op, roleClickTokenAccount, a.ClickTokenAccount.Key, a.Payer.Key, u.params.ClickMint)
	if err != nil {
		return st, err
	}
	st.cursor, err = loadHolding(ctx, tx, op, roleCursorTokenAccount, a.CursorTokenAccount.Key, a.Payer.Key, u.params.CursorMint)
	if err != nil {
		return st, err
	}
	return st, nil
}

func (u *Usecase) loadMarker(ctx context.Context, tx clickdom.LedgerTx, op clickdom.Operation) (clickdom.AuthorityMarker, error) {
	acc, err := tx.Account(ctx, u.authority.Address)
	if err != nil {
		return clickdom.AuthorityMarker{}, clickdom.Fail(op, roleAuthority, mapLedgerErr(err))
	}
	if acc.Owner != u.params.ProgramID {
		return clickdom.AuthorityMarker{}, clickdom.Fail(op, roleAuthority,
			fmt.Errorf("%w: marker owned by %s", clickdom.ErrAccountNotInitialized, acc.Owner.ToBase58()))
	}
	m, err := clickdom.DecodeMarker(acc.Address, acc.Data)
	if err != nil {
		return clickdom.AuthorityMarker{}, clickdom.Fail(op, roleAuthority, err)
	}
	if m.Bump != u.authority.Bump {
		return clickdom.AuthorityMarker{}, clickdom.Fail(op, roleAuthority,
			fmt.Errorf("%w: marker bump %d, derived bump %d", clickdom.ErrUnauthorized, m.Bump, u.authority.Bump))
	}
	return m, nil
}

func (u *Usecase) requireMint(ctx context.Context, tx clickdom.LedgerTx, op clickdom.Operation, role string, addr common.PublicKey) error {
	acc, err := tx.Account(ctx, addr)
	if err != nil {
		return clickdom.Fail(op, role, mapLedgerErr(err))
	}
	if acc.Mint == nil || acc.Owner != common.TokenProgramID {
		return clickdom.Fail(op, role, fmt.Errorf("%w: %s is not a token mint", clickdom.ErrIdentityMismatch, addr.ToBase58()))
	}
	return nil
}

func loadHolding(ctx context.Context, tx clickdom.LedgerTx, op clickdom.Operation, role string, addr, owner, mint common.PublicKey) (ledgerdom.TokenState, error) {
	acc, err := tx.Account(ctx, addr)
	if err != nil {
		return ledgerdom.TokenState{}, clickdom.Fail(op, role, mapLedgerErr(err))
	}
	return checkHolding(op, role, acc, owner, mint)
}

func checkHolding(op clickdom.Operation, role string, acc ledgerdom.Account, owner, mint common.PublicKey) (ledgerdom.TokenState, error) {
	if acc.Token == nil || acc.Owner != common.TokenProgramID {
		return ledgerdom.TokenState{}, clickdom.Fail(op, role,
			fmt.Errorf("%w: %s is not a token account", clickdom.ErrAccountNotInitialized, acc.Address.ToBase58()))
	}
	if acc.Token.Mint != mint || acc.Token.Owner != owner {
		return ledgerdom.TokenState{}, clickdom.Fail(op, role,
			fmt.Errorf("%w: holding account has mint=%s owner=%s", clickdom.ErrIdentityMismatch,
				acc.Token.Mint.ToBase58(), acc.Token.Owner.ToBase58()))
	}
	return *acc.Token, nil
}

// ============================================================
// 台帳エラー → taxonomy
// ============================================================

func mapLedgerErr(err error) error {
	if err == nil {
		return nil
	}
	var oe *clickdom.OperationError
	if errors.As(err, &oe) {
		return err
	}
	switch {
	case errors.Is(err, ledgerdom.ErrInsufficientFunds):
		return fmt.Errorf("%w: %w", clickdom.ErrInsufficientBalance, err)
	case errors.Is(err, ledgerdom.ErrMissingRequiredSignature):
		return fmt.Errorf("%w: %w", clickdom.ErrMissingSigner, err)
	case errors.Is(err, ledgerdom.ErrOwnerMismatch),
		errors.Is(err, ledgerdom.ErrMintAuthorityDisabled),
		errors.Is(err, ledgerdom.ErrInvalidSeeds):
		return fmt.Errorf("%w: %w", clickdom.ErrUnauthorized, err)
	case errors.Is(err, ledgerdom.ErrAccountNotFound):
		return fmt.Errorf("%w: %w", clickdom.ErrAccountNotInitialized, err)
	case errors.Is(err, ledgerdom.ErrMintMismatch):
		return fmt.Errorf("%w: %w", clickdom.ErrIdentityMismatch, err)
	case errors.Is(err, ledgerdom.ErrOverflow):
		return fmt.Errorf("%w: %w", clickdom.ErrArithmeticOverflow, err)
	default:
		return err
	}
}
