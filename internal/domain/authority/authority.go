// internal/domain/authority/authority.go
package authority

import (
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
)

// ------------------------------------------------------
// Program Derived Authority
// ------------------------------------------------------
//
// プログラムが「秘密鍵を持たずに」署名者として振る舞うためのアドレスです。
// アドレスは (seed, bump, programID) から決定的に導出され、
// 台帳へは seed + bump を signer seeds として提示することで署名を証明します。

// DefaultSeed は mint authority の seed（固定リテラル）です。
const DefaultSeed = "mint"

var (
	ErrInvalidBump      = errors.New("authority: bump does not yield a program address")
	ErrAddressMismatch  = errors.New("authority: referenced authority does not match derived address")
	ErrNoCanonicalBump  = errors.New("authority: no valid bump for seed")
	ErrInvalidAuthority = errors.New("authority: invalid authority")
)

// Authority は導出済みの PDA と、それを再証明するための材料を保持します。
type Authority struct {
	ProgramID common.PublicKey
	Seed      string
	Bump      uint8
	Address   common.PublicKey
}

// Derive は seed と bump から PDA を計算します（純粋関数）。
// 結果が ed25519 曲線上に乗る bump の場合は ErrInvalidBump を返します。
func Derive(programID common.PublicKey, seed string, bump uint8) (Authority, error) {
	addr, err := common.CreateProgramAddress(seeds(seed, bump), programID)
	if err != nil {
		return Authority{}, fmt.Errorf("%w: seed=%q bump=%d: %v", ErrInvalidBump, seed, bump, err)
	}
	return Authority{
		ProgramID: programID,
		Seed:      seed,
		Bump:      bump,
		Address:   addr,
	}, nil
}

// FindCanonical は 255 から降順に探索し、最初に有効となる bump（canonical bump）を返します。
func FindCanonical(programID common.PublicKey, seed string) (Authority, error) {
	addr, bump, err := common.FindProgramAddress([][]byte{[]byte(seed)}, programID)
	if err != nil {
		return Authority{}, fmt.Errorf("%w: seed=%q: %v", ErrNoCanonicalBump, seed, err)
	}
	return Authority{
		ProgramID: programID,
		Seed:      seed,
		Bump:      bump,
		Address:   addr,
	}, nil
}

// SignerSeeds は台帳に提示する証明（seed と bump）です。
func (a Authority) SignerSeeds() [][]byte {
	return seeds(a.Seed, a.Bump)
}

// Verify は呼び出し側が参照した authority アカウントが導出結果と一致するか検証します。
func (a Authority) Verify(referenced common.PublicKey) error {
	if a.Address == (common.PublicKey{}) {
		return ErrInvalidAuthority
	}
	if referenced != a.Address {
		return fmt.Errorf("%w: want %s, got %s", ErrAddressMismatch, a.Address.ToBase58(), referenced.ToBase58())
	}
	return nil
}

func seeds(seed string, bump uint8) [][]byte {
	return [][]byte{[]byte(seed), {bump}}
}
