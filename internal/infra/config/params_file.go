// internal/infra/config/params_file.go
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/blocto/solana-go-sdk/common"

	clickdom "github.com/lwb4/proofofclick/internal/domain/click"
	ledgerdom "github.com/lwb4/proofofclick/internal/domain/ledger"
)

// paramsFile は PROGRAM_PARAMS_FILE の TOML 形式です。
//
//	program_id = "7khCm9h5cWdU1KBiMztMvzFiXNCum1iwGUcRVFwKhoP9"
//	seed = "mint"
//	scale = 1000000000
//	base_reward = 1
//	cursor_price = 50
//	cursor_per_purchase = 1
type paramsFile struct {
	ProgramID         string `toml:"program_id"`
	Seed              string `toml:"seed"`
	AuthorityBump     int64  `toml:"authority_bump"`
	Scale             uint64 `toml:"scale"`
	BaseReward        uint64 `toml:"base_reward"`
	CursorPrice       uint64 `toml:"cursor_price"`
	CursorPerPurchase uint64 `toml:"cursor_per_purchase"`
	ClickMint         string `toml:"click_mint"`
	CursorMint        string `toml:"cursor_mint"`
	Variant           string `toml:"variant"`
}

// applyParamsFile は定義されたキーだけを p に上書きします。
func applyParamsFile(p clickdom.Params, path string) (clickdom.Params, error) {
	var raw paramsFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return clickdom.Params{}, fmt.Errorf("load program params: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return clickdom.Params{}, fmt.Errorf("%w: unknown keys in %s: %v", ErrInvalidConfig, path, undecoded)
	}

	for _, f := range []struct {
		key string
		raw string
		set func(string) error
	}{
		{"program_id", raw.ProgramID, func(s string) error { return parseInto(s, &p.ProgramID) }},
		{"click_mint", raw.ClickMint, func(s string) error { return parseInto(s, &p.ClickMint) }},
		{"cursor_mint", raw.CursorMint, func(s string) error { return parseInto(s, &p.CursorMint) }},
	} {
		if !meta.IsDefined(f.key) {
			continue
		}
		if err := f.set(strings.TrimSpace(f.raw)); err != nil {
			return clickdom.Params{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, f.key, err)
		}
	}

	if meta.IsDefined("seed") {
		p.Seed = strings.TrimSpace(raw.Seed)
	}
	if meta.IsDefined("authority_bump") {
		if raw.AuthorityBump < 0 || raw.AuthorityBump > 255 {
			return clickdom.Params{}, fmt.Errorf("%w: authority_bump out of range: %d", ErrInvalidConfig, raw.AuthorityBump)
		}
		b := uint8(raw.AuthorityBump)
		p.AuthorityBump = &b
	}
	if meta.IsDefined("scale") {
		p.Scale = raw.Scale
	}
	if meta.IsDefined("base_reward") {
		p.BaseReward = raw.BaseReward
	}
	if meta.IsDefined("cursor_price") {
		p.CursorPrice = raw.CursorPrice
	}
	if meta.IsDefined("cursor_per_purchase") {
		p.CursorPerPurchase = raw.CursorPerPurchase
	}
	if meta.IsDefined("variant") {
		v, err := clickdom.ParseVariant(strings.TrimSpace(raw.Variant))
		if err != nil {
			return clickdom.Params{}, err
		}
		p.Variant = v
	}
	return p, nil
}

func parseInto(s string, dst *common.PublicKey) error {
	pk, err := ledgerdom.ParseAddress(s)
	if err != nil {
		return err
	}
	*dst = pk
	return nil
}
