// internal/adapters/out/hostledger/programs.go
package hostledger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"

	ledgerdom "github.com/lwb4/proofofclick/internal/domain/ledger"
)

// SPL Token の命令番号（最初の 1 バイト）
const (
	tokenIxMintTo byte = 7
	tokenIxBurn   byte = 8
)

// Associated Token Account の命令番号（データ無しは Create と同じ）
const (
	ataIxCreate           byte = 0
	ataIxCreateIdempotent byte = 1
)

// System program の CreateAccount は u32 の命令番号 0
const systemIxCreateAccount uint32 = 0

func needAccounts(ix types.Instruction, n int) error {
	if len(ix.Accounts) < n {
		return fmt.Errorf("%w: want %d accounts, got %d", ledgerdom.ErrInvalidInstruction, n, len(ix.Accounts))
	}
	return nil
}

// ------------------------------------------------------
// SPL Token
// ------------------------------------------------------

func (t *txn) execToken(ctx context.Context, ix types.Instruction) error {
	if len(ix.Data) != 9 {
		return fmt.Errorf("%w: token data length %d", ledgerdom.ErrInvalidInstruction, len(ix.Data))
	}
	amount := binary.LittleEndian.Uint64(ix.Data[1:])

	switch ix.Data[0] {
	case tokenIxMintTo:
		if err := needAccounts(ix, 3); err != nil {
			return err
		}
		return t.mintTo(ctx, ix.Accounts[0], ix.Accounts[1], ix.Accounts[2], amount)
	case tokenIxBurn:
		if err := needAccounts(ix, 3); err != nil {
			return err
		}
		return t.burn(ctx, ix.Accounts[0], ix.Accounts[1], ix.Accounts[2], amount)
	default:
		return fmt.Errorf("%w: token instruction %d", ledgerdom.ErrInvalidInstruction, ix.Data[0])
	}
}

// mintTo: accounts = [mint(w), to(w), authority(s)]
func (t *txn) mintTo(ctx context.Context, mintMeta, toMeta, authMeta types.AccountMeta, amount uint64) error {
	if !authMeta.IsSigner {
		return fmt.Errorf("%w: mint authority %s", ledgerdom.ErrMissingRequiredSignature, authMeta.PubKey.ToBase58())
	}

	mint, err := t.loadMint(ctx, mintMeta.PubKey)
	if err != nil {
		return err
	}
	if mint.Mint.MintAuthority == nil {
		return fmt.Errorf("%w: %s", ledgerdom.ErrMintAuthorityDisabled, mint.Address.ToBase58())
	}
	if *mint.Mint.MintAuthority != authMeta.PubKey {
		return fmt.Errorf("%w: mint authority is %s, got %s",
			ledgerdom.ErrOwnerMismatch, mint.Mint.MintAuthority.ToBase58(), authMeta.PubKey.ToBase58())
	}

	to, err := t.loadHolding(ctx, toMeta.PubKey)
	if err != nil {
		return err
	}
	if to.Token.Mint != mint.Address {
		return fmt.Errorf("%w: %s holds %s", ledgerdom.ErrMintMismatch, to.Address.ToBase58(), to.Token.Mint.ToBase58())
	}

	supply, c1 := bits.Add64(mint.Mint.Supply, amount, 0)
	balance, c2 := bits.Add64(to.Token.Amount, amount, 0)
	if c1 != 0 || c2 != 0 {
		return fmt.Errorf("%w: mint %d", ledgerdom.ErrOverflow, amount)
	}
	mint.Mint.Supply = supply
	to.Token.Amount = balance

	if err := t.stx.Update(ctx, mint); err != nil {
		return err
	}
	return t.stx.Update(ctx, to)
}

// burn: accounts = [account(w), mint(w), owner(s)]
func (t *txn) burn(ctx context.Context, accMeta, mintMeta, authMeta types.AccountMeta, amount uint64) error {
	if !authMeta.IsSigner {
		return fmt.Errorf("%w: owner %s", ledgerdom.ErrMissingRequiredSignature, authMeta.PubKey.ToBase58())
	}

	from, err := t.loadHolding(ctx, accMeta.PubKey)
	if err != nil {
		return err
	}
	mint, err := t.loadMint(ctx, mintMeta.PubKey)
	if err != nil {
		return err
	}
	if from.Token.Mint != mint.Address {
		return fmt.Errorf("%w: %s holds %s", ledgerdom.ErrMintMismatch, from.Address.ToBase58(), from.Token.Mint.ToBase58())
	}
	if from.Token.Owner != authMeta.PubKey {
		return fmt.Errorf("%w: owner is %s, got %s",
			ledgerdom.ErrOwnerMismatch, from.Token.Owner.ToBase58(), authMeta.PubKey.ToBase58())
	}
	if from.Token.Amount < amount {
		return fmt.Errorf("%w: balance %d, burn %d", ledgerdom.ErrInsufficientFunds, from.Token.Amount, amount)
	}
	if mint.Mint.Supply < amount {
		return fmt.Errorf("%w: supply %d below burn %d", ledgerdom.ErrInvalidAccountData, mint.Mint.Supply, amount)
	}
	from.Token.Amount -= amount
	mint.Mint.Supply -= amount

	if err := t.stx.Update(ctx, from); err != nil {
		return err
	}
	return t.stx.Update(ctx, mint)
}

func (t *txn) loadMint(ctx context.Context, addr common.PublicKey) (ledgerdom.Account, error) {
	acc, err := t.Account(ctx, addr)
	if err != nil {
		return ledgerdom.Account{}, err
	}
	if acc.Mint == nil || acc.Owner != common.TokenProgramID {
		return ledgerdom.Account{}, fmt.Errorf("%w: %s is not a mint", ledgerdom.ErrInvalidAccountData, addr.ToBase58())
	}
	return acc, nil
}

func (t *txn) loadHolding(ctx context.Context, addr common.PublicKey) (ledgerdom.Account, error) {
	acc, err := t.Account(ctx, addr)
	if err != nil {
		return ledgerdom.Account{}, err
	}
	if acc.Token == nil || acc.Owner != common.TokenProgramID {
		return ledgerdom.Account{}, fmt.Errorf("%w: %s is not a token account", ledgerdom.ErrInvalidAccountData, addr.ToBase58())
	}
	return acc, nil
}

// ------------------------------------------------------
// Associated Token Account
// ------------------------------------------------------

// accounts = [funder(ws), ata(w), owner, mint, system, token]
func (t *txn) execAssociatedToken(ctx context.Context, ix types.Instruction) error {
	idempotent := false
	if len(ix.Data) > 0 {
		switch ix.Data[0] {
		case ataIxCreate:
		case ataIxCreateIdempotent:
			idempotent = true
		default:
			return fmt.Errorf("%w: associated token instruction %d", ledgerdom.ErrInvalidInstruction, ix.Data[0])
		}
	}
	if err := needAccounts(ix, 4); err != nil {
		return err
	}
	funder, ataMeta, ownerMeta, mintMeta := ix.Accounts[0], ix.Accounts[1], ix.Accounts[2], ix.Accounts[3]

	if !funder.IsSigner {
		return fmt.Errorf("%w: funder %s", ledgerdom.ErrMissingRequiredSignature, funder.PubKey.ToBase58())
	}

	want, _, err := common.FindAssociatedTokenAddress(ownerMeta.PubKey, mintMeta.PubKey)
	if err != nil || want != ataMeta.PubKey {
		return fmt.Errorf("%w: %s is not the associated account of owner %s and mint %s",
			ledgerdom.ErrInvalidSeeds, ataMeta.PubKey.ToBase58(), ownerMeta.PubKey.ToBase58(), mintMeta.PubKey.ToBase58())
	}

	if _, err := t.loadMint(ctx, mintMeta.PubKey); err != nil {
		return err
	}

	existing, err := t.Account(ctx, ataMeta.PubKey)
	switch {
	case err == nil:
		if idempotent && existing.Token != nil &&
			existing.Token.Mint == mintMeta.PubKey && existing.Token.Owner == ownerMeta.PubKey {
			return nil
		}
		return fmt.Errorf("%w: %s", ledgerdom.ErrAccountAlreadyExists, ataMeta.PubKey.ToBase58())
	case !errors.Is(err, ledgerdom.ErrAccountNotFound):
		return err
	}

	return t.stx.Create(ctx, ledgerdom.NewTokenAccount(ataMeta.PubKey, mintMeta.PubKey, ownerMeta.PubKey, 0))
}

// ------------------------------------------------------
// System
// ------------------------------------------------------

// CreateAccount: data = u32 ix | u64 lamports | u64 space | [32]byte owner
// accounts = [from(ws), new(ws)]
func (t *txn) execSystem(ctx context.Context, ix types.Instruction) error {
	const createAccountLen = 4 + 8 + 8 + 32
	if len(ix.Data) != createAccountLen {
		return fmt.Errorf("%w: system data length %d", ledgerdom.ErrInvalidInstruction, len(ix.Data))
	}
	if code := binary.LittleEndian.Uint32(ix.Data[0:4]); code != systemIxCreateAccount {
		return fmt.Errorf("%w: system instruction %d", ledgerdom.ErrUnsupportedProgram, code)
	}
	lamports := binary.LittleEndian.Uint64(ix.Data[4:12])
	space := binary.LittleEndian.Uint64(ix.Data[12:20])
	owner := common.PublicKeyFromBytes(ix.Data[20:52])

	if err := needAccounts(ix, 2); err != nil {
		return err
	}
	from, newMeta := ix.Accounts[0], ix.Accounts[1]
	if !from.IsSigner || !newMeta.IsSigner {
		return fmt.Errorf("%w: create account requires funder and new account signatures", ledgerdom.ErrMissingRequiredSignature)
	}
	if space > 10*1024*1024 {
		return fmt.Errorf("%w: space %d", ledgerdom.ErrInvalidInstruction, space)
	}
	if lamports < ledgerdom.RentExemptMinimum(space) {
		return fmt.Errorf("%w: %d lamports below rent-exempt minimum %d",
			ledgerdom.ErrInsufficientFunds, lamports, ledgerdom.RentExemptMinimum(space))
	}

	if _, err := t.Account(ctx, newMeta.PubKey); err == nil {
		return fmt.Errorf("%w: %s", ledgerdom.ErrAccountAlreadyExists, newMeta.PubKey.ToBase58())
	} else if !errors.Is(err, ledgerdom.ErrAccountNotFound) {
		return err
	}

	return t.stx.Create(ctx, ledgerdom.Account{
		Address:  newMeta.PubKey,
		Owner:    owner,
		Lamports: lamports,
		Data:     make([]byte, space),
	})
}
