// internal/infra/solana/keypair.go
package solana

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"

	"github.com/blocto/solana-go-sdk/types"
)

// LoadKeypairFile は solana-keygen 形式の keypair ファイル（[u8;64] の JSON 配列）を読み込みます。
func LoadKeypairFile(path string) (types.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Account{}, fmt.Errorf("read keypair %s: %w", path, err)
	}
	return AccountFromKeypairJSON(data)
}

// AccountFromKeypairJSON は keypair JSON から types.Account を復元します。
func AccountFromKeypairJSON(data []byte) (types.Account, error) {
	keyBytes, err := decodeKeypairJSON(data)
	if err != nil {
		return types.Account{}, err
	}
	acc, err := types.AccountFromBytes(keyBytes)
	if err != nil {
		return types.Account{}, fmt.Errorf("AccountFromBytes: %w", err)
	}
	return acc, nil
}

// EncodeKeypairJSON は Solana CLI と互換の JSON 配列形式に変換します。
func EncodeKeypairJSON(acc types.Account) ([]byte, error) {
	if len(acc.PrivateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("unexpected private key length: got %d, want %d", len(acc.PrivateKey), ed25519.PrivateKeySize)
	}
	secret := make([]int, len(acc.PrivateKey))
	for i, b := range acc.PrivateKey {
		secret[i] = int(b)
	}
	return json.Marshal(secret)
}

// decodeKeypairJSON は [int,...] 形式の keypair JSON から 64 バイトの鍵配列を復元します。
func decodeKeypairJSON(data []byte) ([]byte, error) {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, fmt.Errorf("unmarshal keypair json: %w", err)
	}

	if len(ints) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("unexpected secret key length: got %d, want %d", len(ints), ed25519.PrivateKeySize)
	}

	keyBytes := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("secret key byte %d out of range: %d", i, v)
		}
		keyBytes[i] = byte(v)
	}
	return keyBytes, nil
}
