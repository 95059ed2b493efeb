// internal/adapters/out/firestore/account_store_fs.go
package firestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"github.com/blocto/solana-go-sdk/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	ledgerdom "github.com/lwb4/proofofclick/internal/domain/ledger"
)

// DefaultCollection は台帳アカウントを保存するコレクション名です。
const DefaultCollection = "ledger_accounts"

// AccountStoreFS は Firestore を使う台帳ストアです。
// ドキュメント ID はアカウントアドレス（base58）です。
//
// ★ Firestore のトランザクションは「読み取りをすべて書き込みより前に」行う必要があるため、
// 書き込みはバッファし、fn が成功した後にまとめて発行します。
// ★ 競合時の自動リトライは行いません（MaxAttempts(1)）。競合は Aborted として呼び出し元に返ります。
type AccountStoreFS struct {
	Client     *firestore.Client
	Collection string
}

var _ ledgerdom.Store = (*AccountStoreFS)(nil)

func NewAccountStoreFS(client *firestore.Client, collection string) *AccountStoreFS {
	if collection == "" {
		collection = DefaultCollection
	}
	return &AccountStoreFS{Client: client, Collection: collection}
}

func (s *AccountStoreFS) doc(addr common.PublicKey) *firestore.DocumentRef {
	return s.Client.Collection(s.Collection).Doc(addr.ToBase58())
}

func (s *AccountStoreFS) Get(ctx context.Context, addr common.PublicKey) (ledgerdom.Account, error) {
	snap, err := s.doc(addr).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return ledgerdom.Account{}, fmt.Errorf("%w: %s", ledgerdom.ErrAccountNotFound, addr.ToBase58())
	}
	if err != nil {
		return ledgerdom.Account{}, fmt.Errorf("firestore get %s: %w", addr.ToBase58(), err)
	}
	return decodeSnapshot(snap)
}

func (s *AccountStoreFS) Atomic(ctx context.Context, lock []common.PublicKey, fn func(ctx context.Context, tx ledgerdom.StoreTx) error) error {
	keys := sortedUnique(lock)

	err := s.Client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		t := &fsTx{
			store:   s,
			ftx:     ftx,
			known:   make(map[common.PublicKey]*ledgerdom.Account, len(keys)),
			pending: make(map[common.PublicKey]pendingWrite),
		}
		if err := t.prefetch(keys); err != nil {
			return err
		}
		if err := fn(ctx, t); err != nil {
			return err
		}
		return t.flush()
	}, firestore.MaxAttempts(1))
	if err != nil {
		return mapStatus(err)
	}
	return nil
}

// mapStatus は RunTransaction が返す gRPC ステータスを台帳エラーに寄せます。
func mapStatus(err error) error {
	switch status.Code(err) {
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %v", ledgerdom.ErrAccountAlreadyExists, err)
	case codes.NotFound:
		return fmt.Errorf("%w: %v", ledgerdom.ErrAccountNotFound, err)
	default:
		return err
	}
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
// fsTx
// ------------------------------------------------------

type pendingWrite struct {
	acc    ledgerdom.Account
	create bool
}

type fsTx struct {
	store *AccountStoreFS
	ftx   *firestore.Transaction

	// known: 読み取り済み（nil = 存在しない）
	known   map[common.PublicKey]*ledgerdom.Account
	pending map[common.PublicKey]pendingWrite
}

func (t *fsTx) prefetch(keys []common.PublicKey) error {
	if len(keys) == 0 {
		return nil
	}
	refs := make([]*firestore.DocumentRef, len(keys))
	for i, k := range keys {
		refs[i] = t.store.doc(k)
	}
	snaps, err := t.ftx.GetAll(refs)
	if err != nil {
		return fmt.Errorf("firestore prefetch: %w", err)
	}
	for i, snap := range snaps {
		if snap == nil || !snap.Exists() {
			t.known[keys[i]] = nil
			continue
		}
		acc, err := decodeSnapshot(snap)
		if err != nil {
			return err
		}
		t.known[keys[i]] = &acc
	}
	return nil
}

func (t *fsTx) Get(ctx context.Context, addr common.PublicKey) (ledgerdom.Account, error) {
	if p, ok := t.pending[addr]; ok {
		return p.acc.Clone(), nil
	}
	if acc, ok := t.known[addr]; ok {
		if acc == nil {
			return ledgerdom.Account{}, fmt.Errorf("%w: %s", ledgerdom.ErrAccountNotFound, addr.ToBase58())
		}
		return acc.Clone(), nil
	}

	// 宣言外のアカウント: 書き込みはまだ発行していないので読み取り可能
	snap, err := t.ftx.Get(t.store.doc(addr))
	if status.Code(err) == codes.NotFound {
		t.known[addr] = nil
		return ledgerdom.Account{}, fmt.Errorf("%w: %s", ledgerdom.ErrAccountNotFound, addr.ToBase58())
	}
	if err != nil {
		return ledgerdom.Account{}, fmt.Errorf("firestore tx get %s: %w", addr.ToBase58(), err)
	}
	acc, err := decodeSnapshot(snap)
	if err != nil {
		return ledgerdom.Account{}, err
	}
	t.known[addr] = &acc
	return acc.Clone(), nil
}

func (t *fsTx) Create(ctx context.Context, acc ledgerdom.Account) error {
	_, err := t.Get(ctx, acc.Address)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ledgerdom.ErrAccountAlreadyExists, acc.Address.ToBase58())
	case !errors.Is(err, ledgerdom.ErrAccountNotFound):
		return err
	}
	t.pending[acc.Address] = pendingWrite{acc: acc.Clone(), create: true}
	return nil
}

func (t *fsTx) Update(ctx context.Context, acc ledgerdom.Account) error {
	if _, err := t.Get(ctx, acc.Address); err != nil {
		return err
	}
	create := t.pending[acc.Address].create
	t.pending[acc.Address] = pendingWrite{acc: acc.Clone(), create: create}
	return nil
}

// flush はバッファした書き込みをアドレス順に発行します。
func (t *fsTx) flush() error {
	keys := make([]common.PublicKey, 0, len(t.pending))
	for k := range t.pending {
		keys = append(keys, k)
	}
	keys = sortedUnique(keys)

	for _, k := range keys {
		p := t.pending[k]
		rec := ledgerdom.ToRecord(p.acc)
		ref := t.store.doc(k)
		var err error
		if p.create {
			err = t.ftx.Create(ref, rec)
		} else {
			err = t.ftx.Set(ref, rec)
		}
		if err != nil {
			return fmt.Errorf("firestore write %s: %w", k.ToBase58(), err)
		}
	}
	return nil
}

func decodeSnapshot(snap *firestore.DocumentSnapshot) (ledgerdom.Account, error) {
	var rec ledgerdom.Record
	if err := snap.DataTo(&rec); err != nil {
		return ledgerdom.Account{}, fmt.Errorf("%w: %v", ledgerdom.ErrInvalidAccountData, err)
	}
	if rec.Address == "" {
		rec.Address = snap.Ref.ID
	}
	return ledgerdom.FromRecord(rec)
}
