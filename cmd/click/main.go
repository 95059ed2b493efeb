// cmd/click/main.go
//
// proofofclick API を payer の鍵で署名して呼ぶコマンドラインクライアントです。
//
//	click -keypair payer.json init
//	click -keypair payer.json click
//	click -secret projects/<PROJECT>/secrets/<ID>/versions/latest buy
//	click balances [owner]
//	click supply click|cursor|<mint>
//	click authority
//	click mint-one <tokenToMint> <userReceiving> <bump>
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/rs/zerolog/log"

	"github.com/lwb4/proofofclick/internal/adapters/out/clickapi"
	ledgerdom "github.com/lwb4/proofofclick/internal/domain/ledger"
	"github.com/lwb4/proofofclick/internal/infra/logging"
	solanainfra "github.com/lwb4/proofofclick/internal/infra/solana"
)

func main() {
	api := flag.String("api", getenvDefault("CLICK_API_URL", "http://localhost:8080"), "API base URL")
	keypair := flag.String("keypair", os.Getenv("CLICK_KEYPAIR"), "payer keypair file (Solana CLI JSON)")
	secret := flag.String("secret", os.Getenv("CLICK_KEYPAIR_SECRET"), "Secret Manager version holding the payer keypair")
	timeout := flag.Duration("timeout", 20*time.Second, "overall timeout")
	flag.Parse()

	logging.Init("proofofclick-cli", getenvDefault("LOG_LEVEL", "warn"), "console")

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := execute(*api, *keypair, *secret, *timeout, flag.Arg(0), flag.Args()[1:]); err != nil {
		log.Error().Err(err).Str("command", flag.Arg(0)).Msg("click failed")
		os.Exit(1)
	}
}

// execute は 1 コマンドを実行し、結果を JSON で標準出力に書きます。
func execute(api, keypair, secret string, timeout time.Duration, cmd string, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	payer, err := loadPayer(ctx, keypair, secret)
	if err != nil {
		return fmt.Errorf("load payer: %w", err)
	}

	c := clickapi.NewClient(api, payer)
	out, err := run(ctx, c, cmd, args)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// loadPayer は -secret を優先し、どちらも無ければ一時的な鍵を使います（読み取り系コマンド用）。
func loadPayer(ctx context.Context, keypair, secret string) (types.Account, error) {
	switch {
	case secret != "":
		return solanainfra.LoadKeypairSecret(ctx, secret)
	case keypair != "":
		return solanainfra.LoadKeypairFile(keypair)
	default:
		acc := types.NewAccount()
		log.Warn().Str("payer", acc.PublicKey.ToBase58()).Msg("no keypair given; using an ephemeral payer")
		return acc, nil
	}
}

func run(ctx context.Context, c *clickapi.Client, cmd string, args []string) (any, error) {
	switch cmd {
	case "init":
		return c.Initialize(ctx)
	case "click":
		return c.Click(ctx)
	case "buy":
		return c.BuyCursor(ctx)
	case "authority":
		return c.Authority(ctx)

	case "balances":
		if len(args) == 0 {
			return c.Balances(ctx, nil)
		}
		owner, err := ledgerdom.ParseAddress(args[0])
		if err != nil {
			return nil, err
		}
		return c.Balances(ctx, &owner)

	case "supply":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: supply click|cursor|<mint>")
		}
		return c.Supply(ctx, args[0])

	case "mint-one":
		if len(args) != 3 {
			return nil, fmt.Errorf("usage: mint-one <tokenToMint> <userReceiving> <bump>")
		}
		keys := make([]common.PublicKey, 2)
		for i := range keys {
			k, err := ledgerdom.ParseAddress(args[i])
			if err != nil {
				return nil, err
			}
			keys[i] = k
		}
		bump, err := strconv.ParseUint(args[2], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("bump: %w", err)
		}
		return c.MintOne(ctx, keys[0], keys[1], uint8(bump))

	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
