// internal/adapters/out/memory/account_store.go
package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/blocto/solana-go-sdk/common"

	ledgerdom "github.com/lwb4/proofofclick/internal/domain/ledger"
)

// AccountStore はプロセス内の台帳ストアです（開発・テスト用）。
//
// 排他はアカウント単位のロックで行います。Atomic は宣言されたアドレスを
// バイト順に並べてロックを取るため、重なりのあるトランザクション同士でもデッドロックしません。
// 変更はトランザクション内のバッファに溜め、fn が成功した場合のみ反映します。
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[common.PublicKey]ledgerdom.Account

	lockMu sync.Mutex
	locks  map[common.PublicKey]*sync.Mutex
}

var _ ledgerdom.Store = (*AccountStore)(nil)

func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[common.PublicKey]ledgerdom.Account),
		locks:    make(map[common.PublicKey]*sync.Mutex),
	}
}

func (s *AccountStore) Get(ctx context.Context, addr common.PublicKey) (ledgerdom.Account, error) {
	if err := ctx.Err(); err != nil {
		return ledgerdom.Account{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(addr)
}

func (s *AccountStore) getLocked(addr common.PublicKey) (ledgerdom.Account, error) {
	acc, ok := s.accounts[addr]
	if !ok {
		return ledgerdom.Account{}, fmt.Errorf("%w: %s", ledgerdom.ErrAccountNotFound, addr.ToBase58())
	}
	return acc.Clone(), nil
}

// Len returns the number of stored accounts.
func (s *AccountStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

func (s *AccountStore) Atomic(ctx context.Context, lock []common.PublicKey, fn func(ctx context.Context, tx ledgerdom.StoreTx) error) error {
	for _, k := range sortedUnique(lock) {
		m := s.lockFor(k)
		m.Lock()
		defer m.Unlock()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{store: s, pending: make(map[common.PublicKey]ledgerdom.Account)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, acc := range tx.pending {
		s.accounts[k] = acc
	}
	return nil
}

func (s *AccountStore) lockFor(k common.PublicKey) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	m, ok := s.locks[k]
	if !ok {
		m = &sync.Mutex{}
		s.locks[k] = m
	}
	return m
}

func sortedUnique(keys []common.PublicKey) []common.PublicKey {
	seen := make(map[common.PublicKey]struct{}, len(keys))
	out := make([]common.PublicKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

// ------------------------------------------------------
// memTx
// ------------------------------------------------------

type memTx struct {
	store   *AccountStore
	pending map[common.PublicKey]ledgerdom.Account
}

func (t *memTx) Get(ctx context.Context, addr common.PublicKey) (ledgerdom.Account, error) {
	if acc, ok := t.pending[addr]; ok {
		return acc.Clone(), nil
	}
	return t.store.Get(ctx, addr)
}

func (t *memTx) Create(ctx context.Context, acc ledgerdom.Account) error {
	_, err := t.Get(ctx, acc.Address)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ledgerdom.ErrAccountAlreadyExists, acc.Address.ToBase58())
	case !errors.Is(err, ledgerdom.ErrAccountNotFound):
		return err
	}
	t.pending[acc.Address] = acc.Clone()
	return nil
}

func (t *memTx) Update(ctx context.Context, acc ledgerdom.Account) error {
	if _, err := t.Get(ctx, acc.Address); err != nil {
		return err
	}
	t.pending[acc.Address] = acc.Clone()
	return nil
}
