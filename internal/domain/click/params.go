// internal/domain/click/params.go
package click

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/blocto/solana-go-sdk/common"

	"github.com/lwb4/proofofclick/internal/domain/authority"
)

// ------------------------------------------------------
// Params: プログラムの固定値を 1 か所にまとめた設定
// ------------------------------------------------------
//
// seed / bump / 固定量 / トークン識別子はリテラルとしてロジックに散らさず、
// すべてここから参照します。

// Variant はデプロイ構成（有効なオペレーションの集合）です。
type Variant string

const (
	// VariantFull は 4 オペレーションすべてを公開します。
	VariantFull Variant = "full"
	// VariantLegacy は mint_and_send_one_token のみを公開します。
	VariantLegacy Variant = "legacy"
)

// Operation はエンジンが公開するエントリポイント名です。
type Operation string

const (
	OpMintAndSendOneToken Operation = "mint_and_send_one_token"
	OpInitializeMintV2    Operation = "initialize_mint_v2"
	OpMintBasedOnBalances Operation = "mint_based_on_balances"
	OpBuyCursor           Operation = "buy_cursor"
)

// Default identities of the original devnet deployment.
var (
	DefaultProgramID  = common.PublicKeyFromString("7khCm9h5cWdU1KBiMztMvzFiXNCum1iwGUcRVFwKhoP9")
	DefaultClickMint  = common.PublicKeyFromString("C73wX9ATj7K8K62dFqWEEG14wfupnZqUxZRTXVdEib7S")
	DefaultCursorMint = common.PublicKeyFromString("9VaYi71F955j88tCc82FAks5iJkRf7YjEyp34MiwU34o")
)

const (
	// LamportsPerSOL は「1 単位」のスケールとして元実装が使っていた値です。
	LamportsPerSOL uint64 = 1_000_000_000
	// DefaultDecimals は Scale=1e9 に対応する mint の decimals です。
	DefaultDecimals uint8 = 9

	maxSeedLength = 32
)

type Params struct {
	ProgramID common.PublicKey
	Seed      string

	// AuthorityBump が nil の場合、起動時に canonical bump を計算します。
	// 指定された場合は canonical bump と一致しなければ設定エラーです。
	AuthorityBump *uint8

	// Scale は 1 単位あたりの最小単位数です。
	Scale uint64

	// 以下はすべて Scale 単位の量です。
	BaseReward        uint64 // mint_based_on_balances の固定ボーナス / mint_and_send_one_token の発行量
	CursorPrice       uint64 // buy_cursor で burn する CLICK
	CursorPerPurchase uint64 // buy_cursor で mint する CURSOR

	ClickMint  common.PublicKey
	CursorMint common.PublicKey

	Variant Variant
}

var ErrInvalidParams = errors.New("click: invalid params")

// DefaultParams は元のデプロイと同じ値を返します。
func DefaultParams() Params {
	return Params{
		ProgramID:         DefaultProgramID,
		Seed:              authority.DefaultSeed,
		Scale:             LamportsPerSOL,
		BaseReward:        1,
		CursorPrice:       50,
		CursorPerPurchase: 1,
		ClickMint:         DefaultClickMint,
		CursorMint:        DefaultCursorMint,
		Variant:           VariantFull,
	}
}

// Validate checks internal consistency only; the canonical bump is checked by the engine.
func (p Params) Validate() error {
	zero := common.PublicKey{}
	switch {
	case p.ProgramID == zero:
		return fmt.Errorf("%w: program id is empty", ErrInvalidParams)
	case p.Seed == "":
		return fmt.Errorf("%w: seed is empty", ErrInvalidParams)
	case len(p.Seed) > maxSeedLength:
		return fmt.Errorf("%w: seed longer than %d bytes", ErrInvalidParams, maxSeedLength)
	case p.Scale == 0:
		return fmt.Errorf("%w: scale must be positive", ErrInvalidParams)
	case p.BaseReward == 0:
		return fmt.Errorf("%w: base reward must be positive", ErrInvalidParams)
	case p.CursorPrice == 0 || p.CursorPerPurchase == 0:
		return fmt.Errorf("%w: exchange amounts must be positive", ErrInvalidParams)
	case p.ClickMint == zero || p.CursorMint == zero:
		return fmt.Errorf("%w: token identities are required", ErrInvalidParams)
	case p.ClickMint == p.CursorMint:
		return fmt.Errorf("%w: CLICK and CURSOR must differ", ErrInvalidParams)
	}
	switch p.Variant {
	case VariantFull, VariantLegacy:
	default:
		return fmt.Errorf("%w: unknown variant %q", ErrInvalidParams, p.Variant)
	}
	for _, n := range []uint64{p.BaseReward, p.CursorPrice, p.CursorPerPurchase} {
		if _, err := p.Scaled(n); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
	}
	return nil
}

// Enabled reports whether op is exposed by the configured variant.
func (p Params) Enabled(op Operation) bool {
	if op == OpMintAndSendOneToken {
		return true
	}
	return p.Variant == VariantFull
}

// Scaled は units * Scale をオーバーフロー検査付きで返します。
func (p Params) Scaled(units uint64) (uint64, error) {
	hi, lo := bits.Mul64(units, p.Scale)
	if hi != 0 {
		return 0, fmt.Errorf("%w: %d * %d", ErrArithmeticOverflow, units, p.Scale)
	}
	return lo, nil
}

// ParseVariant は設定値の文字列を Variant に変換します。
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantFull, VariantLegacy:
		return Variant(s), nil
	case "":
		return VariantFull, nil
	default:
		return "", fmt.Errorf("%w: unknown variant %q", ErrInvalidParams, s)
	}
}
