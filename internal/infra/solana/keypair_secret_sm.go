// internal/infra/solana/keypair_secret_sm.go
package solana

import (
	"context"
	"errors"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretspb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/rs/zerolog/log"
)

var (
	ErrKeypairSecretNotConfigured = errors.New("keypair_secret: not configured")
	ErrKeypairSecretNotFound      = errors.New("keypair_secret: secret not found")
)

// LoadKeypairSecret は Secret Manager から payer の keypair JSON を読み込みます。
//
// name には
//
//	"projects/<PROJECT_ID>/secrets/<SECRET_ID>/versions/latest"
//
// のような Secret Version のフルパスを指定します。
func LoadKeypairSecret(ctx context.Context, name string) (types.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Account{}, ErrKeypairSecretNotConfigured
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return types.Account{}, fmt.Errorf("secretmanager.NewClient: %w", err)
	}
	defer client.Close()

	resp, err := client.AccessSecretVersion(ctx, &secretspb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return types.Account{}, fmt.Errorf("%w: %v", ErrKeypairSecretNotFound, err)
	}
	if resp == nil || resp.Payload == nil || len(resp.Payload.Data) == 0 {
		return types.Account{}, ErrKeypairSecretNotFound
	}

	acc, err := AccountFromKeypairJSON(resp.Payload.Data)
	if err != nil {
		return types.Account{}, err
	}

	// ★ 公開鍵のみログに出す
	log.Info().
		Str("component", "keypair").
		Str("secret", name).
		Str("pubkey", acc.PublicKey.ToBase58()).
		Msg("loaded payer keypair from Secret Manager")

	return acc, nil
}
