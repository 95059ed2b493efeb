// internal/domain/ledger/record.go
package ledger

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/mr-tron/base58"
)

// ------------------------------------------------------
// Record: 永続化用の文字列表現
// ------------------------------------------------------
//
// Firestore は uint64 を保持できないため、金額・lamports は 10 進文字列で保存します。
// Postgres 側も同じ Record を JSONB として保存します。
type Record struct {
	Address  string       `json:"address" firestore:"address"`
	Owner    string       `json:"owner" firestore:"owner"`
	Kind     string       `json:"kind" firestore:"kind"`
	Lamports string       `json:"lamports" firestore:"lamports"`
	Mint     *MintRecord  `json:"mint,omitempty" firestore:"mint,omitempty"`
	Token    *TokenRecord `json:"token,omitempty" firestore:"token,omitempty"`
	Data     string       `json:"data,omitempty" firestore:"data,omitempty"` // hex
}

type MintRecord struct {
	Decimals      int    `json:"decimals" firestore:"decimals"`
	Supply        string `json:"supply" firestore:"supply"`
	MintAuthority string `json:"mintAuthority,omitempty" firestore:"mintAuthority,omitempty"`
}

type TokenRecord struct {
	Mint   string `json:"mint" firestore:"mint"`
	Owner  string `json:"owner" firestore:"owner"`
	Amount string `json:"amount" firestore:"amount"`
}

var ErrInvalidAddress = errors.New("ledger: invalid address")

// ParseAddress は base58 文字列を 32 バイトの公開鍵として厳密に解釈します。
// common.PublicKeyFromString は不正な入力でもゼロ値を返すため、境界ではこちらを使います。
func ParseAddress(s string) (common.PublicKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return common.PublicKey{}, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	b, err := base58.Decode(s)
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	if len(b) != common.PublicKeyLength {
		return common.PublicKey{}, fmt.Errorf("%w: %q: want %d bytes, got %d", ErrInvalidAddress, s, common.PublicKeyLength, len(b))
	}
	return common.PublicKeyFromBytes(b), nil
}

// ToRecord converts an account into its storage form.
func ToRecord(a Account) Record {
	r := Record{
		Address:  a.Address.ToBase58(),
		Owner:    a.Owner.ToBase58(),
		Kind:     string(a.Kind()),
		Lamports: strconv.FormatUint(a.Lamports, 10),
	}
	if a.Mint != nil {
		mr := &MintRecord{
			Decimals: int(a.Mint.Decimals),
			Supply:   strconv.FormatUint(a.Mint.Supply, 10),
		}
		if a.Mint.MintAuthority != nil {
			mr.MintAuthority = a.Mint.MintAuthority.ToBase58()
		}
		r.Mint = mr
	}
	if a.Token != nil {
		r.Token = &TokenRecord{
			Mint:   a.Token.Mint.ToBase58(),
			Owner:  a.Token.Owner.ToBase58(),
			Amount: strconv.FormatUint(a.Token.Amount, 10),
		}
	}
	if len(a.Data) > 0 {
		r.Data = hex.EncodeToString(a.Data)
	}
	return r
}

// FromRecord は保存形式から Account を復元します。
func FromRecord(r Record) (Account, error) {
	addr, err := ParseAddress(r.Address)
	if err != nil {
		return Account{}, fmt.Errorf("record address: %w", err)
	}
	owner, err := ParseAddress(r.Owner)
	if err != nil {
		return Account{}, fmt.Errorf("record owner: %w", err)
	}
	lamports, err := parseAmount(r.Lamports)
	if err != nil {
		return Account{}, fmt.Errorf("record lamports: %w", err)
	}

	a := Account{Address: addr, Owner: owner, Lamports: lamports}

	switch Kind(r.Kind) {
	case KindMint:
		if r.Mint == nil {
			return Account{}, fmt.Errorf("%w: mint record without mint state", ErrInvalidAccountData)
		}
		if r.Mint.Decimals < 0 || r.Mint.Decimals > 255 {
			return Account{}, fmt.Errorf("%w: decimals=%d", ErrInvalidAccountData, r.Mint.Decimals)
		}
		supply, err := parseAmount(r.Mint.Supply)
		if err != nil {
			return Account{}, fmt.Errorf("record supply: %w", err)
		}
		ms := &MintState{Decimals: uint8(r.Mint.Decimals), Supply: supply}
		if r.Mint.MintAuthority != "" {
			auth, err := ParseAddress(r.Mint.MintAuthority)
			if err != nil {
				return Account{}, fmt.Errorf("record mint authority: %w", err)
			}
			ms.MintAuthority = &auth
		}
		a.Mint = ms
	case KindToken:
		if r.Token == nil {
			return Account{}, fmt.Errorf("%w: token record without token state", ErrInvalidAccountData)
		}
		mint, err := ParseAddress(r.Token.Mint)
		if err != nil {
			return Account{}, fmt.Errorf("record token mint: %w", err)
		}
		tokOwner, err := ParseAddress(r.Token.Owner)
		if err != nil {
			return Account{}, fmt.Errorf("record token owner: %w", err)
		}
		amount, err := parseAmount(r.Token.Amount)
		if err != nil {
			return Account{}, fmt.Errorf("record token amount: %w", err)
		}
		a.Token = &TokenState{Mint: mint, Owner: tokOwner, Amount: amount}
	case KindProgram:
	default:
		return Account{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidAccountData, r.Kind)
	}

	if r.Data != "" {
		data, err := hex.DecodeString(r.Data)
		if err != nil {
			return Account{}, fmt.Errorf("%w: data: %v", ErrInvalidAccountData, err)
		}
		a.Data = data
	}
	return a, nil
}

func parseAmount(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q", ErrInvalidAccountData, s)
	}
	return v, nil
}
