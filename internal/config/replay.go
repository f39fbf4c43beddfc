package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// ReplayConfig holds configuration for the replay command.
type ReplayConfig struct {
	In              string
	Pool            string
	FromBlock       uint64
	ToBlock         uint64
	TicksOut        string
	TopOut          string
	RPCURL          string
	Decimals0       uint8
	Decimals1       uint8
	PGDSN           string
	AllowUnreliable bool
	LogLevel        string
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"in":        "./data/typed_events.jsonl",
		"ticks-out": "./data/liquidity_by_tick.csv",
		"top-out":   "./data/liquidity_ranges_top.csv",
		"decimals0": 18,
		"decimals1": 18,
		"log-level": "info",
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	cfg := ReplayConfig{
		In:              v.GetString("in"),
		Pool:            v.GetString("pool"),
		FromBlock:       v.GetUint64("from-block"),
		ToBlock:         v.GetUint64("to-block"),
		TicksOut:        v.GetString("ticks-out"),
		TopOut:          v.GetString("top-out"),
		RPCURL:          v.GetString("rpc"),
		Decimals0:       uint8(v.GetUint("decimals0")),
		Decimals1:       uint8(v.GetUint("decimals1")),
		PGDSN:           v.GetString("pg-dsn"),
		AllowUnreliable: v.GetBool("allow-unreliable"),
		LogLevel:        v.GetString("log-level"),
	}
	if cfg.ToBlock > 0 && cfg.FromBlock > cfg.ToBlock {
		return ReplayConfig{}, fmt.Errorf("from-block %d is above to-block %d", cfg.FromBlock, cfg.ToBlock)
	}
	return cfg, nil
}
