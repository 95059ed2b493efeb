// internal/platform/di/container.go
package di

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	httpin "github.com/lwb4/proofofclick/internal/adapters/in/http"
	"github.com/lwb4/proofofclick/internal/adapters/out/hostledger"
	clickuc "github.com/lwb4/proofofclick/internal/application/click"
	clickdom "github.com/lwb4/proofofclick/internal/domain/click"
	ledgerdom "github.com/lwb4/proofofclick/internal/domain/ledger"
	appcfg "github.com/lwb4/proofofclick/internal/infra/config"
	"github.com/lwb4/proofofclick/internal/infra/metrics"
)

// Container は main.go から使う依存オブジェクトの束。
// main.go を極限まで薄くするために、設定・台帳・ユースケース・ルーターをここでつなぐ。
type Container struct {
	Config  *appcfg.Config
	Params  clickdom.Params
	Logger  zerolog.Logger
	Runtime *hostledger.Runtime
	ClickUC *clickuc.Usecase

	ledger *ledgerBackend
}

// NewContainer は DI コンテナを初期化して返します。
func NewContainer(ctx context.Context, cfg *appcfg.Config, log zerolog.Logger) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("di: config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	params, err := cfg.Params()
	if err != nil {
		return nil, fmt.Errorf("di: program params: %w", err)
	}

	lb, err := openLedger(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	rt := hostledger.New(lb.store)
	rt.SetLogger(log)

	uc, err := clickuc.NewUsecase(params, rt)
	if err != nil {
		_ = lb.close()
		return nil, fmt.Errorf("di: click usecase: %w", err)
	}
	uc.SetLogger(log)
	uc.SetObserver(metrics.Observer{})

	c := &Container{
		Config:  cfg,
		Params:  params,
		Logger:  log,
		Runtime: rt,
		ClickUC: uc,
		ledger:  lb,
	}

	if cfg.DevBootstrap {
		if err := c.bootstrapMints(ctx); err != nil {
			_ = c.Close()
			return nil, err
		}
	}

	auth := uc.AuthorityAddress()
	log.Info().
		Str("program", params.ProgramID.ToBase58()).
		Str("variant", string(params.Variant)).
		Str("authority", auth.Address.ToBase58()).
		Uint8("bump", auth.Bump).
		Msg("click engine ready")

	return c, nil
}

// bootstrapMints は空の台帳に CLICK / CURSOR の mint を作成します（authority = PDA）。
// 既に存在する mint には触れません。
func (c *Container) bootstrapMints(ctx context.Context) error {
	auth := c.ClickUC.AuthorityAddress().Address
	created, err := c.Runtime.Bootstrap(ctx,
		ledgerdom.NewMintAccount(c.Params.ClickMint, clickdom.DefaultDecimals, &auth, 0),
		ledgerdom.NewMintAccount(c.Params.CursorMint, clickdom.DefaultDecimals, &auth, 0),
	)
	if err != nil {
		return fmt.Errorf("di: bootstrap mints: %w", err)
	}
	for _, k := range created {
		c.Logger.Info().Str("mint", k.ToBase58()).Msg("bootstrapped mint")
	}
	return nil
}

// RouterDeps は HTTP ルーターへ渡す依存を返します。
func (c *Container) RouterDeps() httpin.RouterDeps {
	return httpin.RouterDeps{
		ClickUC:    c.ClickUC,
		Logger:     c.Logger,
		CORSOrigin: c.Config.CORSOrigin,
		Metrics:    metrics.Handler(),
		Ready:      c.ledger.ready,
	}
}

// Close は終了時に呼んで安全にリソースを閉じる。
func (c *Container) Close() error {
	if c == nil || c.ledger == nil || c.ledger.close == nil {
		return nil
	}
	return c.ledger.close()
}
