package ledger

import (
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	got, err := ParseAddress(" TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA ")
	require.NoError(t, err)
	assert.Equal(t, common.TokenProgramID, got)

	for _, in := range []string{"", "not-base58-0OIl", "abc"} {
		_, err := ParseAddress(in)
		assert.ErrorIs(t, err, ErrInvalidAddress, "input %q", in)
	}
}

func TestRecord_PreservesFullUint64Range(t *testing.T) {
	auth := types.NewAccount().PublicKey
	mint := NewMintAccount(types.NewAccount().PublicKey, 9, &auth, ^uint64(0))

	rec := ToRecord(mint)
	assert.Equal(t, "18446744073709551615", rec.Mint.Supply)

	back, err := FromRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, mint, back)
}

func TestRecord_ProgramAccountData(t *testing.T) {
	acc := Account{
		Address:  types.NewAccount().PublicKey,
		Owner:    types.NewAccount().PublicKey,
		Lamports: RentExemptMinimum(9),
		Data:     []byte{1, 2, 3, 254},
	}
	back, err := FromRecord(ToRecord(acc))
	require.NoError(t, err)
	assert.Equal(t, acc, back)
	assert.Equal(t, KindProgram, back.Kind())
}

func TestFromRecord_RejectsBrokenRecords(t *testing.T) {
	good := ToRecord(NewTokenAccount(types.NewAccount().PublicKey, types.NewAccount().PublicKey, types.NewAccount().PublicKey, 5))

	noState := good
	noState.Token = nil
	_, err := FromRecord(noState)
	assert.ErrorIs(t, err, ErrInvalidAccountData)

	badAmount := good
	tok := *good.Token
	tok.Amount = "-1"
	badAmount.Token = &tok
	_, err = FromRecord(badAmount)
	assert.ErrorIs(t, err, ErrInvalidAccountData)

	unknown := good
	unknown.Kind = "vault"
	_, err = FromRecord(unknown)
	assert.ErrorIs(t, err, ErrInvalidAccountData)
}

func TestAccount_CloneIsDeep(t *testing.T) {
	auth := types.NewAccount().PublicKey
	a := NewMintAccount(types.NewAccount().PublicKey, 9, &auth, 10)
	a.Data = []byte{7}

	c := a.Clone()
	c.Mint.Supply = 99
	*c.Mint.MintAuthority = common.PublicKey{}
	c.Data[0] = 0

	assert.Equal(t, uint64(10), a.Mint.Supply)
	assert.Equal(t, auth, *a.Mint.MintAuthority)
	assert.Equal(t, byte(7), a.Data[0])
}
