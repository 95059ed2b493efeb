// internal/platform/di/infra.go
package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	fsadapter "github.com/lwb4/proofofclick/internal/adapters/out/firestore"
	pgadapter "github.com/lwb4/proofofclick/internal/adapters/out/db"
	"github.com/lwb4/proofofclick/internal/adapters/out/memory"
	ledgerdom "github.com/lwb4/proofofclick/internal/domain/ledger"
	appcfg "github.com/lwb4/proofofclick/internal/infra/config"
	"github.com/lwb4/proofofclick/internal/infra/database"
	firestoreinfra "github.com/lwb4/proofofclick/internal/infra/firestore"
)

// ledgerBackend は選択された台帳ストアと、その後始末・疎通確認です。
type ledgerBackend struct {
	store ledgerdom.Store
	close func() error
	ready func(ctx context.Context) error
}

// openLedger は LEDGER_BACKEND に応じてストアを組み立てます。
// postgres / firestore は接続に失敗した時点でエラー（起動を止める）です。
func openLedger(ctx context.Context, cfg *appcfg.Config, log zerolog.Logger) (*ledgerBackend, error) {
	switch cfg.LedgerBackend {
	case appcfg.BackendMemory:
		log.Warn().Msg("ledger backend: memory (state is lost on restart)")
		return &ledgerBackend{
			store: memory.NewAccountStore(),
			close: func() error { return nil },
		}, nil

	case appcfg.BackendPostgres:
		db, err := database.NewConnection(ctx, cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("di: postgres: %w", err)
		}
		if err := pgadapter.Migrate(ctx, db.Client); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("di: postgres: %w", err)
		}
		log.Info().Msg("ledger backend: postgres")
		return &ledgerBackend{
			store: pgadapter.NewAccountStorePG(db.Client),
			close: db.Close,
			ready: db.Client.PingContext,
		}, nil

	case appcfg.BackendFirestore:
		cw, err := firestoreinfra.NewClient(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("di: firestore: %w", err)
		}
		log.Info().Str("collection", cfg.FirestoreCollection).Msg("ledger backend: firestore")
		return &ledgerBackend{
			store: fsadapter.NewAccountStoreFS(cw.Client, cfg.FirestoreCollection),
			close: cw.Close,
			ready: cw.Ping,
		}, nil

	default:
		return nil, fmt.Errorf("di: unknown ledger backend %q", cfg.LedgerBackend)
	}
}
