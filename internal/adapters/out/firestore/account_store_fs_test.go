package firestore

import (
	"context"
	"errors"
	"os"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	ledgerdom "github.com/lwb4/proofofclick/internal/domain/ledger"
)

func TestMapStatus(t *testing.T) {
	assert.ErrorIs(t, mapStatus(status.Error(codes.AlreadyExists, "dup")), ledgerdom.ErrAccountAlreadyExists)
	assert.ErrorIs(t, mapStatus(status.Error(codes.NotFound, "gone")), ledgerdom.ErrAccountNotFound)

	other := errors.New("other")
	assert.Equal(t, other, mapStatus(other))
}

func TestSortedUnique(t *testing.T) {
	a := types.NewAccount().PublicKey
	b := types.NewAccount().PublicKey
	got := sortedUnique([]common.PublicKey{a, b, a, b})
	require.Len(t, got, 2)
	assert.ElementsMatch(t, []common.PublicKey{a, b}, got)
}

// newEmulatorStore は FIRESTORE_EMULATOR_HOST が設定されている場合のみ実行します。
func newEmulatorStore(t *testing.T) *AccountStoreFS {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(context.Background(), "proofofclick-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewAccountStoreFS(client, "ledger_accounts_"+types.NewAccount().PublicKey.ToBase58()[:8])
}

func TestAccountStoreFS_Emulator(t *testing.T) {
	s := newEmulatorStore(t)
	ctx := context.Background()

	mint := types.NewAccount().PublicKey
	addr := types.NewAccount().PublicKey
	owner := types.NewAccount().PublicKey

	_, err := s.Get(ctx, addr)
	require.ErrorIs(t, err, ledgerdom.ErrAccountNotFound)

	err = s.Atomic(ctx, []common.PublicKey{addr}, func(ctx context.Context, tx ledgerdom.StoreTx) error {
		if err := tx.Create(ctx, ledgerdom.NewTokenAccount(addr, mint, owner, 1)); err != nil {
			return err
		}
		acc, err := tx.Get(ctx, addr)
		if err != nil {
			return err
		}
		acc.Token.Amount = ^uint64(0)
		return tx.Update(ctx, acc)
	})
	require.NoError(t, err)

	acc, err := s.Get(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), acc.Token.Amount)

	err = s.Atomic(ctx, []common.PublicKey{addr}, func(ctx context.Context, tx ledgerdom.StoreTx) error {
		return tx.Create(ctx, ledgerdom.NewTokenAccount(addr, mint, owner, 0))
	})
	assert.ErrorIs(t, err, ledgerdom.ErrAccountAlreadyExists)

	boom := errors.New("boom")
	err = s.Atomic(ctx, []common.PublicKey{addr}, func(ctx context.Context, tx ledgerdom.StoreTx) error {
		acc, err := tx.Get(ctx, addr)
		if err != nil {
			return err
		}
		acc.Token.Amount = 0
		if err := tx.Update(ctx, acc); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	acc, err = s.Get(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), acc.Token.Amount)
}
