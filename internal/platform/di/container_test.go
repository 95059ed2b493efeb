package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpin "github.com/lwb4/proofofclick/internal/adapters/in/http"
	appcfg "github.com/lwb4/proofofclick/internal/infra/config"
)

func memoryConfig() *appcfg.Config {
	return &appcfg.Config{
		Port:           "0",
		ProgramVariant: "full",
		LedgerBackend:  appcfg.BackendMemory,
		CORSOrigin:     "*",
		DevBootstrap:   true,
	}
}

func TestNewContainer_MemoryBootstrap(t *testing.T) {
	c, err := NewContainer(context.Background(), memoryConfig(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	s, err := c.ClickUC.Supply(context.Background(), c.Params.ClickMint)
	require.NoError(t, err)
	assert.Zero(t, s.Raw)

	// 2 回目の bootstrap は既存 mint に触れない
	require.NoError(t, c.bootstrapMints(context.Background()))

	h := httpin.NewRouter(c.RouterDeps())
	for _, path := range []string{"/healthz", "/metrics", "/v2/authority"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestNewContainer_RejectsInvalidConfig(t *testing.T) {
	cfg := memoryConfig()
	cfg.LedgerBackend = "sqlite"
	_, err := NewContainer(context.Background(), cfg, zerolog.Nop())
	assert.ErrorIs(t, err, appcfg.ErrInvalidConfig)

	cfg = memoryConfig()
	cfg.AuthorityBump = "1"
	_, err = NewContainer(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}
