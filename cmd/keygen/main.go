// cmd/keygen/main.go
//
// payer 用の Solana 互換 keypair を生成する小さなツールです。
// - 公開鍵を base58 文字列として表示
// - 秘密鍵を Solana CLI 互換の JSON 配列としてファイルに保存します。
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/blocto/solana-go-sdk/types"

	solanainfra "github.com/lwb4/proofofclick/internal/infra/solana"
)

func main() {
	out := flag.String("out", "payer.json", "output keypair file")
	force := flag.Bool("force", false, "overwrite an existing file")
	flag.Parse()

	if _, err := os.Stat(*out); err == nil && !*force {
		log.Fatalf("%s already exists (use -force to overwrite)", *out)
	}

	acc := types.NewAccount()
	data, err := solanainfra.EncodeKeypairJSON(acc)
	if err != nil {
		log.Fatalf("failed to encode keypair: %v", err)
	}

	if err := os.WriteFile(*out, data, 0o600); err != nil {
		log.Fatalf("failed to write %s: %v", *out, err)
	}

	fmt.Println("============================================")
	fmt.Println("payer keypair generated")
	fmt.Println("============================================")
	fmt.Printf("Public Key:\n  %s\n\n", acc.PublicKey.ToBase58())
	fmt.Printf("Secret key file (Solana-compatible JSON):\n  %s\n\n", *out)
	fmt.Println("⚠ この JSON ファイルは Git にコミットしないでください。")
}
