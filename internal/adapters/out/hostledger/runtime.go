// internal/adapters/out/hostledger/runtime.go
package hostledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/rs/zerolog"

	clickdom "github.com/lwb4/proofofclick/internal/domain/click"
	ledgerdom "github.com/lwb4/proofofclick/internal/domain/ledger"
)

// ============================================================
// Runtime: ホスト台帳の参照実装
// ============================================================
//
// エンジンから見ると外部の「台帳サービス」です。
// - トランザクション: Store.Atomic による all-or-nothing
// - 排他: 宣言されたアカウント単位（Store 側で直列化）
// - 署名: トランザクションレベルの署名者 + signer seeds から導出される PDA
// - 命令: SPL Token(MintTo / Burn), Associated Token(Create / CreateIdempotent), System(CreateAccount)
//
// rent は作成されたアカウントの lamports として記録するのみで、funder からの引き落としは行いません。
type Runtime struct {
	store ledgerdom.Store
	log   zerolog.Logger
}

var _ clickdom.Ledger = (*Runtime)(nil)

func New(store ledgerdom.Store) *Runtime {
	return &Runtime{store: store, log: zerolog.Nop()}
}

// SetLogger は DI 側から logger を差し込みます。
func (r *Runtime) SetLogger(l zerolog.Logger) {
	if r == nil {
		return
	}
	r.log = l.With().Str("component", "hostledger").Logger()
}

// Account はコミット済みのアカウントを返します。
func (r *Runtime) Account(ctx context.Context, addr common.PublicKey) (ledgerdom.Account, error) {
	return r.store.Get(ctx, addr)
}

// Transact は in.Accounts を排他した上で fn を 1 トランザクションとして実行します。
// fn がエラーを返した場合、その中で行われた変更はすべて破棄されます。
func (r *Runtime) Transact(ctx context.Context, in clickdom.TxContext, fn func(ctx context.Context, tx clickdom.LedgerTx) error) error {
	if fn == nil {
		return errors.New("hostledger: nil transaction body")
	}

	declared := make(map[common.PublicKey]struct{}, len(in.Accounts))
	for _, k := range in.Accounts {
		declared[k] = struct{}{}
	}
	signed := make(map[common.PublicKey]struct{}, len(in.Signers))
	for _, k := range in.Signers {
		if _, ok := declared[k]; !ok {
			return fmt.Errorf("%w: signer %s", ledgerdom.ErrUndeclaredAccount, k.ToBase58())
		}
		signed[k] = struct{}{}
	}

	err := r.store.Atomic(ctx, in.Accounts, func(ctx context.Context, stx ledgerdom.StoreTx) error {
		return fn(ctx, &txn{
			programID: in.ProgramID,
			declared:  declared,
			signed:    signed,
			stx:       stx,
		})
	})
	if err != nil {
		r.log.Debug().Err(err).Int("accounts", len(in.Accounts)).Msg("transaction rolled back")
		return err
	}
	return nil
}

// Bootstrap は存在しないアカウントのみを作成します（開発用 mint の用意、テスト用）。
func (r *Runtime) Bootstrap(ctx context.Context, accounts ...ledgerdom.Account) ([]common.PublicKey, error) {
	keys := make([]common.PublicKey, 0, len(accounts))
	for _, a := range accounts {
		keys = append(keys, a.Address)
	}

	var created []common.PublicKey
	err := r.store.Atomic(ctx, keys, func(ctx context.Context, stx ledgerdom.StoreTx) error {
		created = created[:0]
		for _, a := range accounts {
			_, err := stx.Get(ctx, a.Address)
			switch {
			case err == nil:
				continue
			case !errors.Is(err, ledgerdom.ErrAccountNotFound):
				return err
			}
			if err := stx.Create(ctx, a.Clone()); err != nil {
				return err
			}
			created = append(created, a.Address)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("hostledger: bootstrap: %w", err)
	}
	for _, k := range created {
		r.log.Info().Str("address", k.ToBase58()).Msg("bootstrapped account")
	}
	return created, nil
}

// ============================================================
// txn: 1 トランザクション分のハンドル
// ============================================================

type txn struct {
	programID common.PublicKey
	declared  map[common.PublicKey]struct{}
	signed    map[common.PublicKey]struct{}
	stx       ledgerdom.StoreTx
}

var _ clickdom.LedgerTx = (*txn)(nil)

func (t *txn) requireDeclared(addr common.PublicKey) error {
	if _, ok := t.declared[addr]; !ok {
		return fmt.Errorf("%w: %s", ledgerdom.ErrUndeclaredAccount, addr.ToBase58())
	}
	return nil
}

func (t *txn) Account(ctx context.Context, addr common.PublicKey) (ledgerdom.Account, error) {
	if err := t.requireDeclared(addr); err != nil {
		return ledgerdom.Account{}, err
	}
	return t.stx.Get(ctx, addr)
}

func (t *txn) WriteData(ctx context.Context, addr common.PublicKey, data []byte) error {
	if err := t.requireDeclared(addr); err != nil {
		return err
	}
	acc, err := t.stx.Get(ctx, addr)
	if err != nil {
		return err
	}
	if acc.Owner != t.programID {
		return fmt.Errorf("%w: %s is owned by %s", ledgerdom.ErrOwnerMismatch, addr.ToBase58(), acc.Owner.ToBase58())
	}
	if len(data) > len(acc.Data) {
		return fmt.Errorf("%w: %d bytes do not fit into %d", ledgerdom.ErrInvalidAccountData, len(data), len(acc.Data))
	}
	copy(acc.Data, data)
	return t.stx.Update(ctx, acc)
}

// Invoke は命令の署名を検証してから、対応するプログラムに振り分けます。
func (t *txn) Invoke(ctx context.Context, ix types.Instruction, signerSeeds ...[][]byte) error {
	pdas := make(map[common.PublicKey]struct{}, len(signerSeeds))
	for _, seeds := range signerSeeds {
		addr, err := common.CreateProgramAddress(seeds, t.programID)
		if err != nil {
			return fmt.Errorf("%w: %v", ledgerdom.ErrInvalidSeeds, err)
		}
		pdas[addr] = struct{}{}
	}

	for _, m := range ix.Accounts {
		if m.IsWritable {
			if err := t.requireDeclared(m.PubKey); err != nil {
				return err
			}
		}
		if !m.IsSigner {
			continue
		}
		_, bySig := t.signed[m.PubKey]
		_, byPDA := pdas[m.PubKey]
		if !bySig && !byPDA {
			return fmt.Errorf("%w: %s", ledgerdom.ErrMissingRequiredSignature, m.PubKey.ToBase58())
		}
	}

	switch ix.ProgramID {
	case common.TokenProgramID:
		return t.execToken(ctx, ix)
	case common.SPLAssociatedTokenAccountProgramID:
		return t.execAssociatedToken(ctx, ix)
	case common.SystemProgramID:
		return t.execSystem(ctx, ix)
	default:
		return fmt.Errorf("%w: %s", ledgerdom.ErrUnsupportedProgram, ix.ProgramID.ToBase58())
	}
}
