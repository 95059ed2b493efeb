package clickapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpin "github.com/lwb4/proofofclick/internal/adapters/in/http"
	"github.com/lwb4/proofofclick/internal/adapters/out/hostledger"
	"github.com/lwb4/proofofclick/internal/adapters/out/memory"
	clickuc "github.com/lwb4/proofofclick/internal/application/click"
	clickdom "github.com/lwb4/proofofclick/internal/domain/click"
	ledgerdom "github.com/lwb4/proofofclick/internal/domain/ledger"
)

func newAPI(t *testing.T) (*httptest.Server, *clickuc.Usecase) {
	t.Helper()
	params := clickdom.DefaultParams()
	rt := hostledger.New(memory.NewAccountStore())
	uc, err := clickuc.NewUsecase(params, rt)
	require.NoError(t, err)

	auth := uc.AuthorityAddress().Address
	_, err = rt.Bootstrap(context.Background(),
		ledgerdom.NewMintAccount(params.ClickMint, clickdom.DefaultDecimals, &auth, 0),
		ledgerdom.NewMintAccount(params.CursorMint, clickdom.DefaultDecimals, &auth, 0),
	)
	require.NoError(t, err)

	srv := httptest.NewServer(httpin.NewRouter(httpin.RouterDeps{ClickUC: uc, Logger: zerolog.Nop()}))
	t.Cleanup(srv.Close)
	return srv, uc
}

func TestClient_EndToEnd(t *testing.T) {
	srv, uc := newAPI(t)
	ctx := context.Background()
	c := NewClient(srv.URL+"/", types.NewAccount())

	_, err := c.Click(ctx)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusPreconditionFailed, apiErr.Status)
	assert.Equal(t, "account_not_initialized", apiErr.Code)

	rec, err := c.Initialize(ctx)
	require.NoError(t, err)
	assert.Len(t, rec.Created, 3)

	for i := 0; i < 3; i++ {
		_, err := c.Click(ctx)
		require.NoError(t, err)
	}

	ata, _, err := common.FindAssociatedTokenAddress(c.Payer.PublicKey, uc.Params().ClickMint)
	require.NoError(t, err)
	_, err = c.MintOne(ctx, uc.Params().ClickMint, ata, uc.AuthorityAddress().Bump)
	require.NoError(t, err)

	b, err := c.Balances(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 4*clickdom.LamportsPerSOL, b.Click)

	s, err := c.Supply(ctx, "cursor")
	require.NoError(t, err)
	assert.Zero(t, s.Raw)

	_, err = c.BuyCursor(ctx)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "insufficient_balance", apiErr.Code)

	info, err := c.Authority(ctx)
	require.NoError(t, err)
	assert.True(t, info.Initialized)
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL, types.NewAccount()).Authority(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "bad gateway", apiErr.Detail)
}
