// internal/domain/ledger/repository_port.go
package ledger

import (
	"context"

	"github.com/blocto/solana-go-sdk/common"
)

// ------------------------------------------------------
// Repository Port for ledger accounts
// ------------------------------------------------------
//
// ホスト台帳のアカウント永続化ポートです。
// memory / Postgres / Firestore の実装は adapters/out 側にあります。

// Store はアカウントの読み出しと、トランザクション単位の更新を提供します。
type Store interface {
	// Get はコミット済みのスナップショットを返します。
	// 存在しない場合は ErrAccountNotFound。
	Get(ctx context.Context, addr common.PublicKey) (Account, error)

	// Atomic は lock に挙げたアドレスを排他した状態で fn を実行します。
	// fn が nil を返した場合のみ書き込みがコミットされます（all-or-nothing）。
	Atomic(ctx context.Context, lock []common.PublicKey, fn func(ctx context.Context, tx StoreTx) error) error
}

// StoreTx は Atomic 内でのみ有効なハンドルです。
type StoreTx interface {
	Get(ctx context.Context, addr common.PublicKey) (Account, error)

	// Create は新規アカウントを作成します。既に存在する場合は ErrAccountAlreadyExists。
	Create(ctx context.Context, acc Account) error

	// Update は既存アカウントを置き換えます。存在しない場合は ErrAccountNotFound。
	Update(ctx context.Context, acc Account) error
}
