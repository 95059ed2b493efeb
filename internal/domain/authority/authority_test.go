package authority

import (
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var programID = common.PublicKeyFromString("7khCm9h5cWdU1KBiMztMvzFiXNCum1iwGUcRVFwKhoP9")

func TestDerive_IsDeterministic(t *testing.T) {
	a1, err1 := Derive(programID, DefaultSeed, 254)
	a2, err2 := Derive(programID, DefaultSeed, 254)

	if err1 != nil {
		assert.ErrorIs(t, err2, ErrInvalidBump)
		return
	}
	require.NoError(t, err2)
	assert.Equal(t, a1, a2)
	assert.Equal(t, uint8(254), a1.Bump)
}

func TestFindCanonical_MatchesDerive(t *testing.T) {
	canon, err := FindCanonical(programID, DefaultSeed)
	require.NoError(t, err)

	again, err := FindCanonical(programID, DefaultSeed)
	require.NoError(t, err)
	assert.Equal(t, canon, again)

	derived, err := Derive(programID, DefaultSeed, canon.Bump)
	require.NoError(t, err)
	assert.Equal(t, canon.Address, derived.Address)

	assert.False(t, common.IsOnCurve(canon.Address))
}

func TestFindCanonical_IsHighestValidBump(t *testing.T) {
	canon, err := FindCanonical(programID, DefaultSeed)
	require.NoError(t, err)

	for b := 255; b > int(canon.Bump); b-- {
		_, err := Derive(programID, DefaultSeed, uint8(b))
		assert.ErrorIs(t, err, ErrInvalidBump, "bump %d", b)
	}
}

func TestDerive_DependsOnProgramAndSeed(t *testing.T) {
	canon, err := FindCanonical(programID, DefaultSeed)
	require.NoError(t, err)

	other, err := FindCanonical(types.NewAccount().PublicKey, DefaultSeed)
	require.NoError(t, err)
	assert.NotEqual(t, canon.Address, other.Address)

	otherSeed, err := FindCanonical(programID, "burn")
	require.NoError(t, err)
	assert.NotEqual(t, canon.Address, otherSeed.Address)
}

func TestSignerSeeds(t *testing.T) {
	a := Authority{ProgramID: programID, Seed: DefaultSeed, Bump: 254}
	assert.Equal(t, [][]byte{[]byte("mint"), {254}}, a.SignerSeeds())
}

func TestVerify(t *testing.T) {
	canon, err := FindCanonical(programID, DefaultSeed)
	require.NoError(t, err)

	assert.NoError(t, canon.Verify(canon.Address))
	assert.ErrorIs(t, canon.Verify(types.NewAccount().PublicKey), ErrAddressMismatch)
	assert.ErrorIs(t, Authority{}.Verify(canon.Address), ErrInvalidAuthority)
}
