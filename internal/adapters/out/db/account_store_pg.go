// internal/adapters/out/db/account_store_pg.go
package db

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/lib/pq"

	ledgerdom "github.com/lwb4/proofofclick/internal/domain/ledger"
)

// AccountStorePG は ledger_accounts テーブルを使う台帳ストアです。
//
// ★ 排他: 宣言アドレスごとに pg_advisory_xact_lock を取ります（アドレス順）。
// 行ロックと違い、まだ存在しないアカウント（これから作成するもの）も直列化できます。
type AccountStorePG struct {
	DB *sql.DB
}

var _ ledgerdom.Store = (*AccountStorePG)(nil)

func NewAccountStorePG(db *sql.DB) *AccountStorePG {
	return &AccountStorePG{DB: db}
}

const (
	qSelectOne = `SELECT state FROM ledger_accounts WHERE address = $1`
	qSelectAny = `SELECT address, state FROM ledger_accounts WHERE address = ANY($1) FOR UPDATE`
	qLock      = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`
	qInsert    = `INSERT INTO ledger_accounts (address, owner, kind, state) VALUES ($1, $2, $3, $4)`
	qUpdate    = `UPDATE ledger_accounts SET owner = $2, kind = $3, state = $4, updated_at = now() WHERE address = $1`
)

func (s *AccountStorePG) Get(ctx context.Context, addr common.PublicKey) (ledgerdom.Account, error) {
	return getAccount(ctx, s.DB, addr)
}

func getAccount(ctx context.Context, run Runner, addr common.PublicKey) (ledgerdom.Account, error) {
	var state []byte
	err := run.QueryRowContext(ctx, qSelectOne, addr.ToBase58()).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return ledgerdom.Account{}, fmt.Errorf("%w: %s", ledgerdom.ErrAccountNotFound, addr.ToBase58())
	}
	if err != nil {
		return ledgerdom.Account{}, fmt.Errorf("ledger_accounts select: %w", err)
	}
	return decodeState(state)
}

func (s *AccountStorePG) Atomic(ctx context.Context, lock []common.PublicKey, fn func(ctx context.Context, tx ledgerdom.StoreTx) error) error {
	keys := sortedKeys(lock)

	return WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx, qLock, k); err != nil {
				return fmt.Errorf("ledger_accounts lock %s: %w", k, err)
			}
		}

		cache, err := prefetch(ctx, tx, keys)
		if err != nil {
			return err
		}
		return fn(ctx, &pgTx{tx: tx, cache: cache})
	})
}

// prefetch は宣言アカウントを FOR UPDATE で一括取得します。
func prefetch(ctx context.Context, tx *sql.Tx, keys []string) (map[string]ledgerdom.Account, error) {
	cache := make(map[string]ledgerdom.Account, len(keys))
	if len(keys) == 0 {
		return cache, nil
	}

	rows, err := tx.QueryContext(ctx, qSelectAny, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("ledger_accounts prefetch: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			addr  string
			state []byte
		)
		if err := rows.Scan(&addr, &state); err != nil {
			return nil, fmt.Errorf("ledger_accounts scan: %w", err)
		}
		acc, err := decodeState(state)
		if err != nil {
			return nil, err
		}
		cache[addr] = acc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger_accounts rows: %w", err)
	}
	return cache, nil
}

func sortedKeys(lock []common.PublicKey) []string {
	uniq := make(map[common.PublicKey]struct{}, len(lock))
	pks := make([]common.PublicKey, 0, len(lock))
	for _, k := range lock {
		if _, ok := uniq[k]; ok {
			continue
		}
		uniq[k] = struct{}{}
		pks = append(pks, k)
	}
	sort.Slice(pks, func(i, j int) bool { return bytes.Compare(pks[i][:], pks[j][:]) < 0 })

	out := make([]string, len(pks))
	for i, k := range pks {
		out[i] = k.ToBase58()
	}
	return out
}

// ------------------------------------------------------
// pgTx
// ------------------------------------------------------

type pgTx struct {
	tx    *sql.Tx
	cache map[string]ledgerdom.Account
}

func (t *pgTx) Get(ctx context.Context, addr common.PublicKey) (ledgerdom.Account, error) {
	if acc, ok := t.cache[addr.ToBase58()]; ok {
		return acc.Clone(), nil
	}
	return getAccount(ctx, t.tx, addr)
}

func (t *pgTx) Create(ctx context.Context, acc ledgerdom.Account) error {
	rec, state, err := encodeState(acc)
	if err != nil {
		return err
	}
	if _, ok := t.cache[rec.Address]; ok {
		return fmt.Errorf("%w: %s", ledgerdom.ErrAccountAlreadyExists, rec.Address)
	}
	if _, err := t.tx.ExecContext(ctx, qInsert, rec.Address, rec.Owner, rec.Kind, string(state)); err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ledgerdom.ErrAccountAlreadyExists, rec.Address)
		}
		return fmt.Errorf("ledger_accounts insert: %w", err)
	}
	t.cache[rec.Address] = acc.Clone()
	return nil
}

func (t *pgTx) Update(ctx context.Context, acc ledgerdom.Account) error {
	rec, state, err := encodeState(acc)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx, qUpdate, rec.Address, rec.Owner, rec.Kind, string(state))
	if err != nil {
		return fmt.Errorf("ledger_accounts update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ledger_accounts update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ledgerdom.ErrAccountNotFound, rec.Address)
	}
	t.cache[rec.Address] = acc.Clone()
	return nil
}

// ------------------------------------------------------
// JSONB <-> Account
// ------------------------------------------------------

func encodeState(acc ledgerdom.Account) (ledgerdom.Record, []byte, error) {
	rec := ledgerdom.ToRecord(acc)
	b, err := json.Marshal(rec)
	if err != nil {
		return rec, nil, fmt.Errorf("encode account %s: %w", rec.Address, err)
	}
	return rec, b, nil
}

func decodeState(state []byte) (ledgerdom.Account, error) {
	var rec ledgerdom.Record
	if err := json.Unmarshal(state, &rec); err != nil {
		return ledgerdom.Account{}, fmt.Errorf("%w: %v", ledgerdom.ErrInvalidAccountData, err)
	}
	return ledgerdom.FromRecord(rec)
}
