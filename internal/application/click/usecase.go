// internal/application/click/usecase.go
package click

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/associated_token_account"
	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lwb4/proofofclick/internal/domain/authority"
	clickdom "github.com/lwb4/proofofclick/internal/domain/click"
	ledgerdom "github.com/lwb4/proofofclick/internal/domain/ledger"
)

// ============================================================
// Usecase 本体（Authorization & Minting Engine）
// ============================================================
//
// 1 回の呼び出しごとに
//   (a) アカウントの役割を検証し
//   (b) seed "mint" から authority を導出し
//   (c) seed + bump を signer seeds として台帳に提示し
//   (d) mint / burn 命令を発行します。
// すべて 1 つの台帳トランザクション内で行い、失敗時は何も残りません。

type Usecase struct {
	params    clickdom.Params
	ledger    clickdom.Ledger
	authority authority.Authority

	// Scale 済みの固定量（NewUsecase で一度だけ計算）
	baseReward  uint64
	cursorPrice uint64
	cursorGain  uint64

	log      zerolog.Logger
	observer clickdom.Observer
	now      func() time.Time
}

// NewUsecase は canonical bump をここで計算し、以後はそれを使います。
// params.AuthorityBump が指定されていて canonical bump と異なる場合はエラーです。
func NewUsecase(params clickdom.Params, ledger clickdom.Ledger) (*Usecase, error) {
	if ledger == nil {
		return nil, errors.New("click: ledger is nil")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	canon, err := authority.FindCanonical(params.ProgramID, params.Seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", clickdom.ErrInvalidParams, err)
	}
	if params.AuthorityBump != nil && *params.AuthorityBump != canon.Bump {
		return nil, fmt.Errorf("%w: configured bump %d does not match canonical bump %d for seed %q",
			clickdom.ErrInvalidParams, *params.AuthorityBump, canon.Bump, params.Seed)
	}

	// Validate 済みなのでオーバーフローしない
	base, _ := params.Scaled(params.BaseReward)
	price, _ := params.Scaled(params.CursorPrice)
	gain, _ := params.Scaled(params.CursorPerPurchase)

	return &Usecase{
		params:      params,
		ledger:      ledger,
		authority:   canon,
		baseReward:  base,
		cursorPrice: price,
		cursorGain:  gain,
		log:         zerolog.Nop(),
		observer:    clickdom.NopObserver{},
		now:         time.Now,
	}, nil
}

// SetLogger は DI 側から logger を後から差し込みます。
func (u *Usecase) SetLogger(l zerolog.Logger) {
	if u == nil {
		return
	}
	u.log = l.With().Str("component", "click").Logger()
}

// SetObserver は DI 側から metrics などを後から差し込みます。
func (u *Usecase) SetObserver(o clickdom.Observer) {
	if u == nil || o == nil {
		return
	}
	u.observer = o
}

// Params returns the engine configuration.
func (u *Usecase) Params() clickdom.Params { return u.params }

// AuthorityAddress returns the derived authority (canonical bump).
func (u *Usecase) AuthorityAddress() authority.Authority { return u.authority }

// ============================================================
// 1. mint_and_send_one_token（legacy / 汎用）
// ============================================================

// MintAndSendOneToken は任意の mint から 1 単位（Scale 済み）を receiving に発行します。
// mint の authority がこのプログラムの PDA であるかは検証せず、台帳側の拒否に任せます。
func (u *Usecase) MintAndSendOneToken(ctx context.Context, a MintSendTokenAccounts, bump uint8) (*clickdom.Receipt, error) {
	op := clickdom.OpMintAndSendOneToken
	return u.run(ctx, op, a.UserMinting.Key, func() (*clickdom.Receipt, error) {
		auth, err := u.validateMintSend(a, bump)
		if err != nil {
			return nil, err
		}

		in := clickdom.TxContext{
			ProgramID: u.params.ProgramID,
			Signers:   signers(a.UserMinting),
			Accounts:  a.keys(),
		}
		err = u.ledger.Transact(ctx, in, func(ctx context.Context, tx clickdom.LedgerTx) error {
			ix := token.MintTo(token.MintToParam{
				Mint:   a.TokenToMint.Key,
				To:     a.UserReceiving.Key,
				Auth:   auth.Address,
				Amount: u.baseReward,
			})
			if err := tx.Invoke(ctx, ix, auth.SignerSeeds()); err != nil {
				return clickdom.Fail(op, roleTokenToMint, mapLedgerErr(err))
			}
			return nil
		})
		if err != nil {
			return nil, clickdom.Fail(op, "", mapLedgerErr(err))
		}

		rec := u.receipt(op, a.UserMinting.Key)
		rec.Minted = u.baseReward
		rec.MintedToken = a.TokenToMint.Key.ToBase58()
		return rec, nil
	})
}

// ============================================================
// 2. initialize_mint_v2（冪等なセットアップ）
// ============================================================

// InitializeMintV2 は marker と payer の CLICK / CURSOR 保有アカウントを「無ければ作成」します。
// 残高は変化しません。2 回目以降の呼び出しは何も作成しません。
func (u *Usecase) InitializeMintV2(ctx context.Context, a PayerAccounts) (*clickdom.Receipt, error) {
	op := clickdom.OpInitializeMintV2
	return u.run(ctx, op, a.Payer.Key, func() (*clickdom.Receipt, error) {
		if err := u.validatePayerAccounts(op, a); err != nil {
			return nil, err
		}

		var created []string
		in := clickdom.TxContext{
			ProgramID: u.params.ProgramID,
			Signers:   signers(a.Payer),
			Accounts:  a.keys(),
		}
		err := u.ledger.Transact(ctx, in, func(ctx context.Context, tx clickdom.LedgerTx) error {
			created = created[:0]

			if err := u.requireMint(ctx, tx, op, roleClickMint, a.ClickMint.Key); err != nil {
				return err
			}
			if err := u.requireMint(ctx, tx, op, roleCursorMint, a.CursorMint.Key); err != nil {
				return err
			}

			made, err := u.ensureMarker(ctx, tx, op, a.Payer.Key)
			if err != nil {
				return err
			}
			if made {
				created = append(created, u.authority.Address.ToBase58())
			}

			for _, h := range []struct {
				role string
				ata  common.PublicKey
				mint common.PublicKey
			}{
				{roleClickTokenAccount, a.ClickTokenAccount.Key, u.params.ClickMint},
				{roleCursorTokenAccount, a.CursorTokenAccount.Key, u.params.CursorMint},
			} {
				made, err := ensureHolding(ctx, tx, op, h.role, a.Payer.Key, h.ata, h.mint)
				if err != nil {
					return err
				}
				if made {
					created = append(created, h.ata.ToBase58())
				}
			}
			return nil
		})
		if err != nil {
			return nil, clickdom.Fail(op, "", mapLedgerErr(err))
		}

		rec := u.receipt(op, a.Payer.Key)
		rec.Created = append([]string(nil), created...)
		return rec, nil
	})
}

// ensureMarker は marker が無ければ PDA 署名で作成し、canonical bump を書き込みます。
func (u *Usecase) ensureMarker(ctx context.Context, tx clickdom.LedgerTx, op clickdom.Operation, payer common.PublicKey) (bool, error) {
	_, err := tx.Account(ctx, u.authority.Address)
	switch {
	case err == nil:
		// 既存: 形式だけ確認して何もしない
		if _, err := u.loadMarker(ctx, tx, op); err != nil {
			return false, err
		}
		return false, nil
	case !errors.Is(err, ledgerdom.ErrAccountNotFound):
		return false, clickdom.Fail(op, roleAuthority, mapLedgerErr(err))
	}

	ix := system.CreateAccount(system.CreateAccountParam{
		From:     payer,
		New:      u.authority.Address,
		Owner:    u.params.ProgramID,
		Lamports: ledgerdom.RentExemptMinimum(clickdom.MarkerSpace),
		Space:    clickdom.MarkerSpace,
	})
	if err := tx.Invoke(ctx, ix, u.authority.SignerSeeds()); err != nil {
		return false, clickdom.Fail(op, roleAuthority, mapLedgerErr(err))
	}
	if err := tx.WriteData(ctx, u.authority.Address, clickdom.EncodeMarker(u.authority.Bump)); err != nil {
		return false, clickdom.Fail(op, roleAuthority, mapLedgerErr(err))
	}

	u.log.Info().
		Str("authority", u.authority.Address.ToBase58()).
		Uint8("bump", u.authority.Bump).
		Msg("initialized authority marker")
	return true, nil
}

// ensureHolding は ATA が無ければ payer 負担で作成します。既存なら mint / owner を確認します。
func ensureHolding(ctx context.Context, tx clickdom.LedgerTx, op clickdom.Operation, role string, payer, ata, mint common.PublicKey) (bool, error) {
	acc, err := tx.Account(ctx, ata)
	switch {
	case err == nil:
		if _, err := checkHolding(op, role, acc, payer, mint); err != nil {
			return false, err
		}
		return false, nil
	case !errors.Is(err, ledgerdom.ErrAccountNotFound):
		return false, clickdom.Fail(op, role, mapLedgerErr(err))
	}

	ix := associated_token_account.CreateAssociatedTokenAccount(associated_token_account.CreateAssociatedTokenAccountParam{
		Funder:                 payer,
		Owner:                  payer,
		Mint:                   mint,
		AssociatedTokenAccount: ata,
	})
	if err := tx.Invoke(ctx, ix); err != nil {
		return false, clickdom.Fail(op, role, mapLedgerErr(err))
	}
	return true, nil
}

// ============================================================
// 3. mint_based_on_balances
// ============================================================

// MintBasedOnBalances は CURSOR 残高 B に対して B + BaseReward*Scale の CLICK を payer に発行します。
// CURSOR 残高は変化しません。
func (u *Usecase) MintBasedOnBalances(ctx context.Context, a PayerAccounts) (*clickdom.Receipt, error) {
	op := clickdom.OpMintBasedOnBalances
	return u.run(ctx, op, a.Payer.Key, func() (*clickdom.Receipt, error) {
		if err := u.validatePayerAccounts(op, a); err != nil {
			return nil, err
		}

		var minted uint64
		in := clickdom.TxContext{
			ProgramID: u.params.ProgramID,
			Signers:   signers(a.Payer),
			Accounts:  a.keys(),
		}
		err := u.ledger.Transact(ctx, in, func(ctx context.Context, tx clickdom.LedgerTx) error {
			st, err := u.loadInitialized(ctx, tx, op, a)
			if err != nil {
				return err
			}

			amount, carry := bits.Add64(st.cursor.Amount, u.baseReward, 0)
			if carry != 0 {
				return clickdom.Fail(op, roleCursorTokenAccount,
					fmt.Errorf("%w: cursor balance %d + %d", clickdom.ErrArithmeticOverflow, st.cursor.Amount, u.baseReward))
			}

			ix := token.MintTo(token.MintToParam{
				Mint:   a.ClickMint.Key,
				To:     a.ClickTokenAccount.Key,
				Auth:   u.authority.Address,
				Amount: amount,
			})
			if err := tx.Invoke(ctx, ix, u.authority.SignerSeeds()); err != nil {
				return clickdom.Fail(op, roleClickTokenAccount, mapLedgerErr(err))
			}
			minted = amount
			return nil
		})
		if err != nil {
			return nil, clickdom.Fail(op, "", mapLedgerErr(err))
		}

		rec := u.receipt(op, a.Payer.Key)
		rec.Minted = minted
		rec.MintedToken = u.params.ClickMint.ToBase58()
		return rec, nil
	})
}

// ============================================================
// 4. buy_cursor（CLICK を burn して CURSOR を mint）
// ============================================================

// BuyCursor は CursorPrice*Scale の CLICK を burn し、CursorPerPurchase*Scale の CURSOR を mint します。
// 2 つの命令は同じトランザクション内で発行され、mint が失敗すれば burn も取り消されます。
func (u *Usecase) BuyCursor(ctx context.Context, a PayerAccounts) (*clickdom.Receipt, error) {
	op := clickdom.OpBuyCursor
	return u.run(ctx, op, a.Payer.Key, func() (*clickdom.Receipt, error) {
		if err := u.validatePayerAccounts(op, a); err != nil {
			return nil, err
		}

		in := clickdom.TxContext{
			ProgramID: u.params.ProgramID,
			Signers:   signers(a.Payer),
			Accounts:  a.keys(),
		}
		err := u.ledger.Transact(ctx, in, func(ctx context.Context, tx clickdom.LedgerTx) error {
			if _, err := u.loadInitialized(ctx, tx, op, a); err != nil {
				return err
			}

			// burn は payer 自身の署名で行う（PDA は使わない）
			burn := token.Burn(token.BurnParam{
				Account: a.ClickTokenAccount.Key,
				Mint:    a.ClickMint.Key,
				Auth:    a.Payer.Key,
				Amount:  u.cursorPrice,
			})
			if err := tx.Invoke(ctx, burn); err != nil {
				return clickdom.Fail(op, roleClickTokenAccount, mapLedgerErr(err))
			}

			mint := token.MintTo(token.MintToParam{
				Mint:   a.CursorMint.Key,
				To:     a.CursorTokenAccount.Key,
				Auth:   u.authority.Address,
				Amount: u.cursorGain,
			})
			if err := tx.Invoke(ctx, mint, u.authority.SignerSeeds()); err != nil {
				return clickdom.Fail(op, roleCursorTokenAccount, mapLedgerErr(err))
			}
			return nil
		})
		if err != nil {
			return nil, clickdom.Fail(op, "", mapLedgerErr(err))
		}

		rec := u.receipt(op, a.Payer.Key)
		rec.Burned = u.cursorPrice
		rec.BurnedToken = u.params.ClickMint.ToBase58()
		rec.Minted = u.cursorGain
		rec.MintedToken = u.params.CursorMint.ToBase58()
		return rec, nil
	})
}

// ============================================================
// 共通処理
// ============================================================

func (u *Usecase) run(ctx context.Context, op clickdom.Operation, payer common.PublicKey, fn func() (*clickdom.Receipt, error)) (*clickdom.Receipt, error) {
	start := u.now()

	var (
		rec *clickdom.Receipt
		err error
	)
	switch {
	case !u.params.Enabled(op):
		err = clickdom.Fail(op, "", fmt.Errorf("%w: variant %s", clickdom.ErrOperationDisabled, u.params.Variant))
	case ctx.Err() != nil:
		err = clickdom.Fail(op, "", ctx.Err())
	default:
		rec, err = fn()
	}

	elapsed := u.now().Sub(start)
	if err != nil {
		u.observer.ObserveOperation(op, clickdom.OutcomeRejected, elapsed)
		u.log.Warn().
			Err(err).
			Str("op", string(op)).
			Str("payer", payer.ToBase58()).
			Dur("elapsed", elapsed).
			Msg("operation rejected")
		return nil, err
	}

	u.observer.ObserveOperation(op, clickdom.OutcomeCommitted, elapsed)
	u.log.Info().
		Str("op", string(op)).
		Str("payer", payer.ToBase58()).
		Str("receipt", rec.ID).
		Uint64("minted", rec.Minted).
		Uint64("burned", rec.Burned).
		Int("created", len(rec.Created)).
		Dur("elapsed", elapsed).
		Msg("operation committed")
	return rec, nil
}

func (u *Usecase) receipt(op clickdom.Operation, payer common.PublicKey) *clickdom.Receipt {
	return &clickdom.Receipt{
		ID:          uuid.NewString(),
		Operation:   op,
		Outcome:     clickdom.OutcomeCommitted,
		Payer:       payer.ToBase58(),
		CommittedAt: u.now().UTC(),
	}
}
