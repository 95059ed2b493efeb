// internal/domain/click/ports.go
package click

import (
	"context"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"

	ledgerdom "github.com/lwb4/proofofclick/internal/domain/ledger"
)

// ------------------------------------------------------
// Outbound ports
// ------------------------------------------------------
//
// エンジンから見た外部台帳（ホストランタイム + トークンプログラム）です。
// エンジンはこのポートのみを呼び出し、実装の中身には依存しません。

// TxContext はトランザクション単位でホストが保持する情報です。
type TxContext struct {
	// ProgramID は呼び出し元プログラム（PDA 署名の検証に使われる）
	ProgramID common.PublicKey
	// Signers はトランザクションレベルで署名済みのアカウント
	Signers []common.PublicKey
	// Accounts はこのトランザクションが触るアカウント（ホストの排他単位）
	Accounts []common.PublicKey
}

// LedgerTx は 1 トランザクション内で使えるハンドルです。
type LedgerTx interface {
	// Account は現在のトランザクション内の状態を返します。
	Account(ctx context.Context, addr common.PublicKey) (ledgerdom.Account, error)

	// Invoke は命令を発行します。signerSeeds を渡すと、
	// それらから導出される PDA が署名者として扱われます（invoke_signed 相当）。
	Invoke(ctx context.Context, ix types.Instruction, signerSeeds ...[][]byte) error

	// WriteData は呼び出し元プログラムが所有するアカウントのデータを書き換えます。
	WriteData(ctx context.Context, addr common.PublicKey, data []byte) error
}

// Ledger は all-or-nothing のトランザクション境界を提供します。
type Ledger interface {
	Transact(ctx context.Context, in TxContext, fn func(ctx context.Context, tx LedgerTx) error) error

	// Account はコミット済み状態の読み出し（クエリ用）です。
	Account(ctx context.Context, addr common.PublicKey) (ledgerdom.Account, error)
}

// Observer はオペレーションの結果を受け取ります（メトリクス等）。
type Observer interface {
	ObserveOperation(op Operation, outcome Outcome, elapsed time.Duration)
}

// NopObserver discards observations.
type NopObserver struct{}

func (NopObserver) ObserveOperation(Operation, Outcome, time.Duration) {}
