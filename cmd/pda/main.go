// cmd/pda/main.go
//
// プログラム ID と seed から authority のアドレスと canonical bump を表示する小さなツールです。
// AUTHORITY_BUMP の設定値や mint の authority 設定の確認に使います。
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lwb4/proofofclick/internal/domain/authority"
	clickdom "github.com/lwb4/proofofclick/internal/domain/click"
	ledgerdom "github.com/lwb4/proofofclick/internal/domain/ledger"
)

func main() {
	programFlag := flag.String("program", clickdom.DefaultProgramID.ToBase58(), "program id (base58)")
	seedFlag := flag.String("seed", authority.DefaultSeed, "authority seed")
	flag.Parse()

	programID, err := ledgerdom.ParseAddress(*programFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -program: %v\n", err)
		os.Exit(2)
	}

	auth, err := authority.FindCanonical(programID, *seedFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "derive authority: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("program:   %s\n", programID.ToBase58())
	fmt.Printf("seed:      %q\n", auth.Seed)
	fmt.Printf("authority: %s\n", auth.Address.ToBase58())
	fmt.Printf("bump:      %d\n", auth.Bump)
}
