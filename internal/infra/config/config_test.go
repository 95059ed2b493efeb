package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clickdom "github.com/lwb4/proofofclick/internal/domain/click"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LEDGER_BACKEND", "")
	t.Setenv("DEV_BOOTSTRAP", "")
	t.Setenv("PROGRAM_VARIANT", "")
	t.Setenv("PROGRAM_PARAMS_FILE", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendMemory, cfg.LedgerBackend)
	assert.False(t, cfg.DevBootstrap)
	require.NoError(t, cfg.Validate())

	p, err := cfg.Params()
	require.NoError(t, err)
	assert.Equal(t, clickdom.DefaultParams(), p)
}

func TestLoad_Env(t *testing.T) {
	click := types.NewAccount().PublicKey
	t.Setenv("LEDGER_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/click")
	t.Setenv("CLICK_MINT", click.ToBase58())
	t.Setenv("PROGRAM_VARIANT", "legacy")
	t.Setenv("AUTHORITY_BUMP", "254")
	t.Setenv("DEV_BOOTSTRAP", "true")

	cfg := Load()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendPostgres, cfg.LedgerBackend)
	assert.Equal(t, "postgres://u:p@db/click", cfg.DSN())
	assert.True(t, cfg.DevBootstrap)

	p, err := cfg.Params()
	require.NoError(t, err)
	assert.Equal(t, click, p.ClickMint)
	assert.Equal(t, clickdom.VariantLegacy, p.Variant)
	require.NotNil(t, p.AuthorityBump)
	assert.Equal(t, uint8(254), *p.AuthorityBump)
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(c *Config){
		"unknown backend":   func(c *Config) { c.LedgerBackend = "redis" },
		"firestore project": func(c *Config) { c.LedgerBackend = BackendFirestore; c.FirestoreProjectID = "" },
		"malformed mint":    func(c *Config) { c.CursorMint = "not-base58-0OIl" },
		"unknown variant":   func(c *Config) { c.ProgramVariant = "v3" },
		"bump out of range": func(c *Config) { c.AuthorityBump = "256" },
		"bump not a number": func(c *Config) { c.AuthorityBump = "x" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := &Config{LedgerBackend: BackendMemory, ProgramVariant: "full"}
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestDSN_FromParts(t *testing.T) {
	cfg := &Config{DBHost: "h", DBPort: "1", DBUser: "u", DBPassword: "p", DBName: "n"}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=n sslmode=disable", cfg.DSN())
}

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "params.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParams_File(t *testing.T) {
	cursor := types.NewAccount().PublicKey
	path := writeTOML(t, `
seed = "click"
base_reward = 2
cursor_price = 10
cursor_mint = "`+cursor.ToBase58()+`"
`)

	cfg := &Config{ProgramParamsFile: path}
	p, err := cfg.Params()
	require.NoError(t, err)
	assert.Equal(t, "click", p.Seed)
	assert.Equal(t, uint64(2), p.BaseReward)
	assert.Equal(t, uint64(10), p.CursorPrice)
	assert.Equal(t, cursor, p.CursorMint)
	// 未定義のキーはデフォルトのまま
	assert.Equal(t, clickdom.LamportsPerSOL, p.Scale)
	assert.Equal(t, uint64(1), p.CursorPerPurchase)
}

func TestParams_EnvOverridesFile(t *testing.T) {
	path := writeTOML(t, `variant = "legacy"`)
	cfg := &Config{ProgramParamsFile: path, ProgramVariant: "full"}
	p, err := cfg.Params()
	require.NoError(t, err)
	assert.Equal(t, clickdom.VariantFull, p.Variant)
}

func TestLoad_FileVariantAppliesWhenEnvUnset(t *testing.T) {
	t.Setenv("PROGRAM_VARIANT", "")
	t.Setenv("PROGRAM_PARAMS_FILE", writeTOML(t, `variant = "legacy"`))

	cfg := Load()
	require.NoError(t, cfg.Validate())
	p, err := cfg.Params()
	require.NoError(t, err)
	assert.Equal(t, clickdom.VariantLegacy, p.Variant)

	t.Setenv("PROGRAM_VARIANT", "full")
	p, err = Load().Params()
	require.NoError(t, err)
	assert.Equal(t, clickdom.VariantFull, p.Variant)
}

func TestParams_FileErrors(t *testing.T) {
	t.Run("unknown key", func(t *testing.T) {
		cfg := &Config{ProgramParamsFile: writeTOML(t, `reward = 3`)}
		_, err := cfg.Params()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
	t.Run("bad bump", func(t *testing.T) {
		cfg := &Config{ProgramParamsFile: writeTOML(t, `authority_bump = 300`)}
		_, err := cfg.Params()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
	t.Run("zero price", func(t *testing.T) {
		cfg := &Config{ProgramParamsFile: writeTOML(t, `cursor_price = 0`)}
		_, err := cfg.Params()
		assert.ErrorIs(t, err, clickdom.ErrInvalidParams)
	})
	t.Run("zero reward", func(t *testing.T) {
		cfg := &Config{ProgramParamsFile: writeTOML(t, `base_reward = 0`)}
		_, err := cfg.Params()
		assert.ErrorIs(t, err, clickdom.ErrInvalidParams)
	})
	t.Run("missing file", func(t *testing.T) {
		cfg := &Config{ProgramParamsFile: filepath.Join(t.TempDir(), "nope.toml")}
		_, err := cfg.Params()
		assert.Error(t, err)
	})
}
