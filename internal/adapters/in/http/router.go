// internal/adapters/in/http/router.go
package httpin

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/lwb4/proofofclick/internal/adapters/in/http/handlers"
	"github.com/lwb4/proofofclick/internal/adapters/in/http/middleware"
	clickuc "github.com/lwb4/proofofclick/internal/application/click"
)

// RouterDeps collects all dependencies injected from the DI container.
type RouterDeps struct {
	ClickUC *clickuc.Usecase

	Logger     zerolog.Logger
	CORSOrigin string

	// /metrics（nil なら登録しない）
	Metrics http.Handler

	// ★ /healthz で台帳バックエンドの疎通を確認する（nil なら常に ok）
	Ready func(ctx context.Context) error
}

// NewRouter は chi ルーターを組み立てます。
// チェーン順: CORS → Recover → RequestLogger → Signer → handlers
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.CORS(deps.CORSOrigin))
	r.Use(middleware.Recover(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))

	r.Get("/healthz", healthz(deps.Ready))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	if deps.ClickUC == nil {
		deps.Logger.Warn().Msg("router: click usecase is nil; serving /healthz only")
		return r
	}

	signer := middleware.NewSigner(deps.Logger)
	h := handlers.NewClickHandler(deps.ClickUC)
	h.SetLogger(deps.Logger)

	r.Group(func(r chi.Router) {
		r.Use(signer.Handler)
		h.Routes(r)
	})
	return r
}

func healthz(ready func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
