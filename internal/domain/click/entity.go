// internal/domain/click/entity.go
package click

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/blocto/solana-go-sdk/common"
)

// ------------------------------------------------------
// Entity: MintRequest（永続化しない一時的な値）
// ------------------------------------------------------

// MintRequest は 1 回の mint を構成する要素です。検証後その場で消費されます。
type MintRequest struct {
	TokenIdentity common.PublicKey
	Destination   common.PublicKey
	Payer         common.PublicKey
	AuthorityBump uint8
}

// Validate は構造上の必須項目のみを確認します（アドレスの一致検証は validator 側）。
func (r MintRequest) Validate() error {
	zero := common.PublicKey{}
	switch {
	case r.TokenIdentity == zero:
		return fmt.Errorf("%w: token identity is empty", ErrInvalidRequest)
	case r.Destination == zero:
		return fmt.Errorf("%w: destination is empty", ErrInvalidRequest)
	case r.Payer == zero:
		return fmt.Errorf("%w: payer is empty", ErrInvalidRequest)
	}
	return nil
}

// ------------------------------------------------------
// Entity: AuthorityMarker（プログラム所有の PDA アカウント）
// ------------------------------------------------------
//
// レイアウト: [8 byte discriminator][1 byte canonical bump]
// 作成後は一切変更されません。

const (
	markerAccountName = "PDAAuthority"
	MarkerSpace       = 8 + 1
)

// MarkerDiscriminator は sha256("account:PDAAuthority") の先頭 8 バイトです。
var MarkerDiscriminator = func() [8]byte {
	sum := sha256.Sum256([]byte("account:" + markerAccountName))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}()

type AuthorityMarker struct {
	Address common.PublicKey
	Bump    uint8
}

// EncodeMarker returns the on-ledger content of the marker.
func EncodeMarker(bump uint8) []byte {
	out := make([]byte, MarkerSpace)
	copy(out, MarkerDiscriminator[:])
	out[8] = bump
	return out
}

// DecodeMarker は marker のデータを検証して bump を取り出します。
func DecodeMarker(addr common.PublicKey, data []byte) (AuthorityMarker, error) {
	if len(data) < MarkerSpace {
		return AuthorityMarker{}, fmt.Errorf("%w: marker data too short (%d bytes)", ErrAccountNotInitialized, len(data))
	}
	var d [8]byte
	copy(d[:], data[:8])
	if d != MarkerDiscriminator {
		return AuthorityMarker{}, fmt.Errorf("%w: marker discriminator mismatch", ErrAccountNotInitialized)
	}
	return AuthorityMarker{Address: addr, Bump: data[8]}, nil
}

// ------------------------------------------------------
// Results
// ------------------------------------------------------

// Outcome はオペレーションの終端状態です。
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeRejected  Outcome = "rejected"
)

// Receipt はコミットされたオペレーションの結果です。
type Receipt struct {
	ID        string    `json:"id"`
	Operation Operation `json:"operation"`
	Outcome   Outcome   `json:"outcome"`
	Payer     string    `json:"payer"`

	Minted      uint64 `json:"minted,omitempty"`
	MintedToken string `json:"mintedToken,omitempty"`
	Burned      uint64 `json:"burned,omitempty"`
	BurnedToken string `json:"burnedToken,omitempty"`

	// initialize_mint_v2 で新規作成されたアカウント
	Created []string `json:"created,omitempty"`

	CommittedAt time.Time `json:"committedAt"`
}

// Balances は owner の CLICK / CURSOR 残高（最小単位）です。
type Balances struct {
	Owner              string `json:"owner"`
	ClickTokenAccount  string `json:"clickTokenAccount"`
	CursorTokenAccount string `json:"cursorTokenAccount"`
	Click              uint64 `json:"click"`
	Cursor             uint64 `json:"cursor"`
	ClickInitialized   bool   `json:"clickInitialized"`
	CursorInitialized  bool   `json:"cursorInitialized"`
}

// Supply は mint の総発行量です。Whole は Scale 単位に切り捨てた値です。
type Supply struct {
	Mint     string `json:"mint"`
	Raw      uint64 `json:"raw"`
	Whole    uint64 `json:"whole"`
	Decimals uint8  `json:"decimals"`
}

// AuthorityInfo は導出済み authority と marker の状態です。
type AuthorityInfo struct {
	ProgramID   string `json:"programId"`
	Seed        string `json:"seed"`
	Address     string `json:"address"`
	Bump        uint8  `json:"bump"`
	Initialized bool   `json:"initialized"`
}
