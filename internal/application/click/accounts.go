// internal/application/click/accounts.go
package click

import (
	"fmt"

	"github.com/blocto/solana-go-sdk/common"

	clickdom "github.com/lwb4/proofofclick/internal/domain/click"
)

// ============================================================
// 呼び出し側が渡すアカウント参照
// ============================================================

// AccountRef は 1 つのアカウント参照です。
// IsSigner はトランスポート（HTTP 署名検証など）が付与した「署名済み」マークです。
// エンジンは署名そのものは検証せず、このマークのみを見ます。
type AccountRef struct {
	Key      common.PublicKey
	IsSigner bool
}

// Ref is a shorthand for an unsigned reference.
func Ref(key common.PublicKey) AccountRef { return AccountRef{Key: key} }

// Signed is a shorthand for a signed reference.
func Signed(key common.PublicKey) AccountRef { return AccountRef{Key: key, IsSigner: true} }

// MintSendTokenAccounts は mint_and_send_one_token のアカウント群です。
type MintSendTokenAccounts struct {
	TokenToMint   AccountRef // mint させるトークン（任意）
	UserMinting   AccountRef // 支払い者（署名必須）
	UserReceiving AccountRef // 送り先の保有アカウント（任意）
	PDAAuthority  AccountRef // seed "mint" + bump から導出される authority
	TokenProgram  AccountRef
}

// PayerAccounts は v2 系オペレーション（initialize / click / buy_cursor）共通のアカウント群です。
type PayerAccounts struct {
	Payer AccountRef

	ClickMint  AccountRef
	CursorMint AccountRef

	ClickTokenAccount  AccountRef
	CursorTokenAccount AccountRef

	PDAAuthority AccountRef

	TokenProgram           AccountRef
	AssociatedTokenProgram AccountRef
	SystemProgram          AccountRef
}

// AccountsForPayer は payer から正規のアカウント一式を導出します。
// トランスポートは payer だけを受け取り、残りはここで埋めます。
func (u *Usecase) AccountsForPayer(payer common.PublicKey, signed bool) (PayerAccounts, error) {
	clickATA, _, err := common.FindAssociatedTokenAddress(payer, u.params.ClickMint)
	if err != nil {
		return PayerAccounts{}, fmt.Errorf("%w: derive CLICK holding account: %v", clickdom.ErrInvalidRequest, err)
	}
	cursorATA, _, err := common.FindAssociatedTokenAddress(payer, u.params.CursorMint)
	if err != nil {
		return PayerAccounts{}, fmt.Errorf("%w: derive CURSOR holding account: %v", clickdom.ErrInvalidRequest, err)
	}

	return PayerAccounts{
		Payer:                  AccountRef{Key: payer, IsSigner: signed},
		ClickMint:              Ref(u.params.ClickMint),
		CursorMint:             Ref(u.params.CursorMint),
		ClickTokenAccount:      Ref(clickATA),
		CursorTokenAccount:     Ref(cursorATA),
		PDAAuthority:           Ref(u.authority.Address),
		TokenProgram:           Ref(common.TokenProgramID),
		AssociatedTokenProgram: Ref(common.SPLAssociatedTokenAccountProgramID),
		SystemProgram:          Ref(common.SystemProgramID),
	}, nil
}

// AccountsForMintOne は mint_and_send_one_token の既定アカウントを組み立てます。
func (u *Usecase) AccountsForMintOne(payer, tokenToMint, receiving common.PublicKey, signed bool) MintSendTokenAccounts {
	return MintSendTokenAccounts{
		TokenToMint:   Ref(tokenToMint),
		UserMinting:   AccountRef{Key: payer, IsSigner: signed},
		UserReceiving: Ref(receiving),
		PDAAuthority:  Ref(u.authority.Address),
		TokenProgram:  Ref(common.TokenProgramID),
	}
}

// keys はトランザクションが宣言するアカウント（ホストの排他単位）です。
func (a PayerAccounts) keys() []common.PublicKey {
	return []common.PublicKey{
		a.Payer.Key,
		a.ClickMint.Key,
		a.CursorMint.Key,
		a.ClickTokenAccount.Key,
		a.CursorTokenAccount.Key,
		a.PDAAuthority.Key,
	}
}

func (a MintSendTokenAccounts) keys() []common.PublicKey {
	return []common.PublicKey{
		a.TokenToMint.Key,
		a.UserMinting.Key,
		a.UserReceiving.Key,
		a.PDAAuthority.Key,
	}
}

func signers(refs ...AccountRef) []common.PublicKey {
	out := make([]common.PublicKey, 0, len(refs))
	for _, r := range refs {
		if r.IsSigner {
			out = append(out, r.Key)
		}
	}
	return out
}
