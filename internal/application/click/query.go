// internal/application/click/query.go
package click

import (
	"context"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"

	clickdom "github.com/lwb4/proofofclick/internal/domain/click"
	ledgerdom "github.com/lwb4/proofofclick/internal/domain/ledger"
)

// ============================================================
// 読み取り専用クエリ（コミット済み状態のみを見る）
// ============================================================

// Balances は owner の CLICK / CURSOR 残高を返します。保有アカウントが無ければ 0 です。
func (u *Usecase) Balances(ctx context.Context, owner common.PublicKey) (*clickdom.Balances, error) {
	clickATA, _, err := common.FindAssociatedTokenAddress(owner, u.params.ClickMint)
	if err != nil {
		return nil, fmt.Errorf("%w: derive CLICK holding account: %v", clickdom.ErrInvalidRequest, err)
	}
	cursorATA, _, err := common.FindAssociatedTokenAddress(owner, u.params.CursorMint)
	if err != nil {
		return nil, fmt.Errorf("%w: derive CURSOR holding account: %v", clickdom.ErrInvalidRequest, err)
	}

	out := &clickdom.Balances{
		Owner:              owner.ToBase58(),
		ClickTokenAccount:  clickATA.ToBase58(),
		CursorTokenAccount: cursorATA.ToBase58(),
	}

	out.Click, out.ClickInitialized, err = u.holdingBalance(ctx, clickATA)
	if err != nil {
		return nil, err
	}
	out.Cursor, out.CursorInitialized, err = u.holdingBalance(ctx, cursorATA)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *Usecase) holdingBalance(ctx context.Context, addr common.PublicKey) (uint64, bool, error) {
	acc, err := u.ledger.Account(ctx, addr)
	if errors.Is(err, ledgerdom.ErrAccountNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("balances: %w", err)
	}
	if acc.Token == nil {
		return 0, false, fmt.Errorf("%w: %s is not a token account", clickdom.ErrIdentityMismatch, addr.ToBase58())
	}
	return acc.Token.Amount, true, nil
}

// Supply は CLICK / CURSOR の総発行量を返します。それ以外の識別子は拒否します。
func (u *Usecase) Supply(ctx context.Context, identity common.PublicKey) (*clickdom.Supply, error) {
	if identity != u.params.ClickMint && identity != u.params.CursorMint {
		return nil, fmt.Errorf("%w: %s is neither CLICK nor CURSOR", clickdom.ErrIdentityMismatch, identity.ToBase58())
	}

	acc, err := u.ledger.Account(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("supply: %w", mapLedgerErr(err))
	}
	if acc.Mint == nil {
		return nil, fmt.Errorf("%w: %s is not a token mint", clickdom.ErrIdentityMismatch, identity.ToBase58())
	}

	return &clickdom.Supply{
		Mint:     identity.ToBase58(),
		Raw:      acc.Mint.Supply,
		Whole:    acc.Mint.Supply / u.params.Scale,
		Decimals: acc.Mint.Decimals,
	}, nil
}

// Authority は導出済み authority と marker の初期化状態を返します。
func (u *Usecase) Authority(ctx context.Context) (*clickdom.AuthorityInfo, error) {
	info := &clickdom.AuthorityInfo{
		ProgramID: u.params.ProgramID.ToBase58(),
		Seed:      u.authority.Seed,
		Address:   u.authority.Address.ToBase58(),
		Bump:      u.authority.Bump,
	}

	acc, err := u.ledger.Account(ctx, u.authority.Address)
	switch {
	case errors.Is(err, ledgerdom.ErrAccountNotFound):
		return info, nil
	case err != nil:
		return nil, fmt.Errorf("authority: %w", err)
	}

	if acc.Owner == u.params.ProgramID {
		if m, err := clickdom.DecodeMarker(acc.Address, acc.Data); err == nil && m.Bump == u.authority.Bump {
			info.Initialized = true
		}
	}
	return info, nil
}
