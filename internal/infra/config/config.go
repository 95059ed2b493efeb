// internal/infra/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/blocto/solana-go-sdk/common"

	clickdom "github.com/lwb4/proofofclick/internal/domain/click"
	ledgerdom "github.com/lwb4/proofofclick/internal/domain/ledger"
)

// LedgerBackend は台帳アカウントの保存先です。
type LedgerBackend string

const (
	BackendMemory    LedgerBackend = "memory"
	BackendPostgres  LedgerBackend = "postgres"
	BackendFirestore LedgerBackend = "firestore"
)

var ErrInvalidConfig = errors.New("config: invalid")

// Config はアプリケーション全体の環境変数設定を保持します。
type Config struct {
	Port string

	// ★ プログラム設定（空ならデフォルトの devnet 値）
	ProgramID      string
	ProgramVariant string
	ClickMint      string
	CursorMint     string
	AuthorityBump  string
	// PROGRAM_PARAMS_FILE: TOML で seed / 固定量などを上書き
	ProgramParamsFile string

	// ★ 台帳バックエンド
	LedgerBackend LedgerBackend

	// Postgres: DATABASE_URL があればそちらを優先
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	FirestoreProjectID       string
	FirestoreCredentialsFile string
	FirestoreCollection      string

	LogLevel  string
	LogFormat string

	// CORS の許可オリジン（カンマ区切り）
	CORSOrigin string

	// ★ 空の台帳に CLICK / CURSOR の mint を作成する（ローカル開発用）
	DevBootstrap bool
}

// Load は環境変数を読み込み Config を返します。
func Load() *Config {
	return &Config{
		Port: getenvDefault("PORT", "8080"),

		ProgramID:         os.Getenv("PROGRAM_ID"),
		ProgramVariant:    os.Getenv("PROGRAM_VARIANT"),
		ClickMint:         os.Getenv("CLICK_MINT"),
		CursorMint:        os.Getenv("CURSOR_MINT"),
		AuthorityBump:     os.Getenv("AUTHORITY_BUMP"),
		ProgramParamsFile: os.Getenv("PROGRAM_PARAMS_FILE"),

		LedgerBackend: LedgerBackend(strings.ToLower(getenvDefault("LEDGER_BACKEND", string(BackendMemory)))),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBHost:      getenvDefault("DB_HOST", "localhost"),
		DBPort:      getenvDefault("DB_PORT", "5432"),
		DBUser:      getenvDefault("DB_USER", "postgres"),
		DBPassword:  os.Getenv("DB_PASSWORD"),
		DBName:      getenvDefault("DB_NAME", "proofofclick"),

		FirestoreProjectID:       os.Getenv("FIRESTORE_PROJECT_ID"),
		FirestoreCredentialsFile: os.Getenv("FIRESTORE_CREDENTIALS_FILE"),
		FirestoreCollection:      getenvDefault("FIRESTORE_COLLECTION", "ledger_accounts"),

		LogLevel:  getenvDefault("LOG_LEVEL", "info"),
		LogFormat: getenvDefault("LOG_FORMAT", "console"),

		CORSOrigin: getenvDefault("CORS_ORIGIN", "*"),

		DevBootstrap: getenvBool("DEV_BOOTSTRAP", false),
	}
}

// Validate は明らかに不正な値（アドレス形式・列挙値）を起動前に弾きます。
func (c *Config) Validate() error {
	switch c.LedgerBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" && c.DBHost == "" {
			return fmt.Errorf("%w: postgres backend needs DATABASE_URL or DB_HOST", ErrInvalidConfig)
		}
	case BackendFirestore:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("%w: firestore backend needs FIRESTORE_PROJECT_ID", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown LEDGER_BACKEND %q", ErrInvalidConfig, c.LedgerBackend)
	}

	for name, v := range map[string]string{
		"PROGRAM_ID":  c.ProgramID,
		"CLICK_MINT":  c.ClickMint,
		"CURSOR_MINT": c.CursorMint,
	} {
		if v == "" {
			continue
		}
		if _, err := ledgerdom.ParseAddress(v); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
		}
	}

	if _, err := clickdom.ParseVariant(c.ProgramVariant); err != nil {
		return fmt.Errorf("%w: PROGRAM_VARIANT: %v", ErrInvalidConfig, err)
	}
	if _, err := c.bump(); err != nil {
		return err
	}
	return nil
}

// DSN は Postgres 接続文字列を返します。
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

// Params は DefaultParams に PROGRAM_PARAMS_FILE と環境変数を順に重ねた値を返します。
// 環境変数がファイルより優先されます。
func (c *Config) Params() (clickdom.Params, error) {
	p := clickdom.DefaultParams()

	if c.ProgramParamsFile != "" {
		var err error
		if p, err = applyParamsFile(p, c.ProgramParamsFile); err != nil {
			return clickdom.Params{}, err
		}
	}

	overrides := []struct {
		raw string
		dst *common.PublicKey
	}{
		{c.ProgramID, &p.ProgramID},
		{c.ClickMint, &p.ClickMint},
		{c.CursorMint, &p.CursorMint},
	}
	for _, o := range overrides {
		if o.raw == "" {
			continue
		}
		pk, err := ledgerdom.ParseAddress(o.raw)
		if err != nil {
			return clickdom.Params{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		*o.dst = pk
	}

	if c.ProgramVariant != "" {
		v, err := clickdom.ParseVariant(c.ProgramVariant)
		if err != nil {
			return clickdom.Params{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		p.Variant = v
	}

	bump, err := c.bump()
	if err != nil {
		return clickdom.Params{}, err
	}
	if bump != nil {
		p.AuthorityBump = bump
	}

	if err := p.Validate(); err != nil {
		return clickdom.Params{}, err
	}
	return p, nil
}

func (c *Config) bump() (*uint8, error) {
	s := strings.TrimSpace(c.AuthorityBump)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: AUTHORITY_BUMP %q: %v", ErrInvalidConfig, s, err)
	}
	b := uint8(n)
	return &b, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
