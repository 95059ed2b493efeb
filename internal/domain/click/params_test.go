package click

import (
	"errors"
	"fmt"
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultParams_MatchDeployment(t *testing.T) {
	p := DefaultParams()
	require.NoError(t, p.Validate())

	assert.Equal(t, "mint", p.Seed)
	assert.Equal(t, uint64(1_000_000_000), p.Scale)
	assert.Equal(t, uint64(1), p.BaseReward)
	assert.Equal(t, uint64(50), p.CursorPrice)
	assert.Equal(t, uint64(1), p.CursorPerPurchase)
	assert.Equal(t, "C73wX9ATj7K8K62dFqWEEG14wfupnZqUxZRTXVdEib7S", p.ClickMint.ToBase58())
	assert.Equal(t, "9VaYi71F955j88tCc82FAks5iJkRf7YjEyp34MiwU34o", p.CursorMint.ToBase58())
	assert.Nil(t, p.AuthorityBump)
}

func TestParams_Validate(t *testing.T) {
	cases := map[string]func(p *Params){
		"empty program":     func(p *Params) { p.ProgramID = common.PublicKey{} },
		"empty seed":        func(p *Params) { p.Seed = "" },
		"long seed":         func(p *Params) { p.Seed = "0123456789abcdef0123456789abcdef!" },
		"zero scale":        func(p *Params) { p.Scale = 0 },
		"zero reward":       func(p *Params) { p.BaseReward = 0 },
		"zero price":        func(p *Params) { p.CursorPrice = 0 },
		"zero gain":         func(p *Params) { p.CursorPerPurchase = 0 },
		"same identities":   func(p *Params) { p.CursorMint = p.ClickMint },
		"missing identity":  func(p *Params) { p.ClickMint = common.PublicKey{} },
		"unknown variant":   func(p *Params) { p.Variant = "beta" },
		"overflowing price": func(p *Params) { p.CursorPrice = 1 << 40 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := DefaultParams()
			mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidParams)
		})
	}
}

func TestParams_Scaled(t *testing.T) {
	p := DefaultParams()

	v, err := p.Scaled(50)
	require.NoError(t, err)
	assert.Equal(t, uint64(50_000_000_000), v)

	_, err = p.Scaled(^uint64(0))
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
}

func TestParams_Enabled(t *testing.T) {
	full := DefaultParams()
	legacy := DefaultParams()
	legacy.Variant = VariantLegacy

	for _, op := range []Operation{OpMintAndSendOneToken, OpInitializeMintV2, OpMintBasedOnBalances, OpBuyCursor} {
		assert.True(t, full.Enabled(op), op)
	}
	assert.True(t, legacy.Enabled(OpMintAndSendOneToken))
	assert.False(t, legacy.Enabled(OpInitializeMintV2))
	assert.False(t, legacy.Enabled(OpMintBasedOnBalances))
	assert.False(t, legacy.Enabled(OpBuyCursor))
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("")
	require.NoError(t, err)
	assert.Equal(t, VariantFull, v)

	v, err = ParseVariant("legacy")
	require.NoError(t, err)
	assert.Equal(t, VariantLegacy, v)

	_, err = ParseVariant("v3")
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestMarker_EncodeDecode(t *testing.T) {
	addr := DefaultProgramID
	data := EncodeMarker(254)
	require.Len(t, data, MarkerSpace)

	m, err := DecodeMarker(addr, data)
	require.NoError(t, err)
	assert.Equal(t, uint8(254), m.Bump)

	_, err = DecodeMarker(addr, make([]byte, MarkerSpace))
	assert.ErrorIs(t, err, ErrAccountNotInitialized)

	_, err = DecodeMarker(addr, data[:8])
	assert.ErrorIs(t, err, ErrAccountNotInitialized)
}

func TestMintRequest_Validate(t *testing.T) {
	ok := MintRequest{TokenIdentity: DefaultClickMint, Destination: DefaultCursorMint, Payer: DefaultProgramID, AuthorityBump: 254}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.Payer = common.PublicKey{}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRequest)
}

func TestOperationError(t *testing.T) {
	err := Fail(OpBuyCursor, "payer", ErrMissingSigner)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.EqualError(t, err, "buy_cursor: payer: click: unauthorized: missing required signature")

	// 同じオペレーションで二重に包まない
	again := Fail(OpBuyCursor, "", fmt.Errorf("outer: %w", err))
	var oe *OperationError
	require.True(t, errors.As(again, &oe))
	assert.Equal(t, "payer", oe.Role)

	assert.NoError(t, Fail(OpBuyCursor, "x", nil))
}
