// internal/domain/ledger/entity.go
package ledger

import (
	"errors"

	"github.com/blocto/solana-go-sdk/common"
)

// ------------------------------------------------------
// Entity: Account（ホスト台帳上の 1 アカウント）
// ------------------------------------------------------
//
// Solana のアカウントモデルを必要最小限だけ写したものです。
// - Mint  : SPL Token の mint（トークン識別子）
// - Token : SPL Token の保有アカウント（owner × mint の残高）
// - Data  : プログラム所有アカウントの生データ（Authority Marker など）
//
// Mint / Token はどちらか一方のみ、もしくはどちらも nil です。
type Account struct {
	Address  common.PublicKey
	Owner    common.PublicKey // このアカウントを所有するプログラム
	Lamports uint64

	Mint  *MintState
	Token *TokenState
	Data  []byte
}

// MintState は SPL Token mint の状態です。
// MintAuthority が nil の場合、追加発行は無効化されています。
type MintState struct {
	Decimals      uint8
	Supply        uint64
	MintAuthority *common.PublicKey
}

// TokenState は保有アカウント（Holding Account）の状態です。
type TokenState struct {
	Mint   common.PublicKey
	Owner  common.PublicKey
	Amount uint64
}

// Kind はアカウント種別です（永続化のカラム / フィールドに使用）。
type Kind string

const (
	KindMint    Kind = "mint"
	KindToken   Kind = "token"
	KindProgram Kind = "program"
)

// Errors
var (
	ErrAccountNotFound          = errors.New("ledger: account not found")
	ErrAccountAlreadyExists     = errors.New("ledger: account already in use")
	ErrInsufficientFunds        = errors.New("ledger: insufficient funds")
	ErrMissingRequiredSignature = errors.New("ledger: missing required signature")
	ErrOwnerMismatch            = errors.New("ledger: owner does not match")
	ErrMintMismatch             = errors.New("ledger: account not associated with this mint")
	ErrMintAuthorityDisabled    = errors.New("ledger: mint authority is disabled")
	ErrInvalidAccountData       = errors.New("ledger: invalid account data")
	ErrInvalidInstruction       = errors.New("ledger: invalid instruction data")
	ErrInvalidSeeds             = errors.New("ledger: invalid seeds for program address")
	ErrUnsupportedProgram       = errors.New("ledger: unsupported program")
	ErrUndeclaredAccount        = errors.New("ledger: account not declared by transaction")
	ErrOverflow                 = errors.New("ledger: arithmetic overflow")
)

// Kind returns the account kind derived from its populated state.
func (a Account) Kind() Kind {
	switch {
	case a.Mint != nil:
		return KindMint
	case a.Token != nil:
		return KindToken
	default:
		return KindProgram
	}
}

// Clone returns a deep copy so stores can hand out snapshots safely.
func (a Account) Clone() Account {
	out := a
	if a.Mint != nil {
		m := *a.Mint
		if a.Mint.MintAuthority != nil {
			auth := *a.Mint.MintAuthority
			m.MintAuthority = &auth
		}
		out.Mint = &m
	}
	if a.Token != nil {
		t := *a.Token
		out.Token = &t
	}
	if a.Data != nil {
		out.Data = append([]byte(nil), a.Data...)
	}
	return out
}

// ------------------------------------------------------
// Constructors（主に bootstrap / テスト用）
// ------------------------------------------------------

// NewMintAccount は SPL Token プログラム所有の mint アカウントを組み立てます。
func NewMintAccount(addr common.PublicKey, decimals uint8, authority *common.PublicKey, supply uint64) Account {
	var auth *common.PublicKey
	if authority != nil {
		a := *authority
		auth = &a
	}
	return Account{
		Address:  addr,
		Owner:    common.TokenProgramID,
		Lamports: RentExemptMinimum(MintAccountSize),
		Mint: &MintState{
			Decimals:      decimals,
			Supply:        supply,
			MintAuthority: auth,
		},
	}
}

// NewTokenAccount は SPL Token プログラム所有の保有アカウントを組み立てます。
func NewTokenAccount(addr, mint, owner common.PublicKey, amount uint64) Account {
	return Account{
		Address:  addr,
		Owner:    common.TokenProgramID,
		Lamports: RentExemptMinimum(TokenAccountSize),
		Token: &TokenState{
			Mint:   mint,
			Owner:  owner,
			Amount: amount,
		},
	}
}

// Account sizes used for rent calculation (same values as the SPL token program).
const (
	MintAccountSize  = 82
	TokenAccountSize = 165

	accountStorageOverhead = 128
	lamportsPerByteYear    = 3480
	exemptionYears         = 2
)

// RentExemptMinimum は space バイトのアカウントを rent-exempt にする lamports です。
func RentExemptMinimum(space uint64) uint64 {
	return (accountStorageOverhead + space) * lamportsPerByteYear * exemptionYears
}
