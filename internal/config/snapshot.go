package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"liquidityProfile/internal/liquidity"
)

// ChainReadConfig holds the RPC read settings shared by snapshot and watch.
type ChainReadConfig struct {
	RPCURL            string
	Concurrency       int
	MaxRetries        int
	RetryBackoff      time.Duration
	RequestsPerSecond float64
	Burst             int
}

// SnapshotConfig holds configuration for the snapshot command.
type SnapshotConfig struct {
	ChainReadConfig
	Pool            string
	Block           uint64
	MinTick         int32
	MaxTick         int32
	Out             string
	Zoom            float64
	PGDSN           string
	SkipReserves    bool
	AllowUnreliable bool
	LogLevel        string
}

// WatchConfig holds configuration for the watch command.
type WatchConfig struct {
	SnapshotConfig
	Interval  time.Duration
	Count     int
	FramesDir string
}

func snapshotDefaults() map[string]interface{} {
	return map[string]interface{}{
		"min-tick":      int(liquidity.MinTick),
		"max-tick":      int(liquidity.MaxTick),
		"concurrency":   8,
		"max-retries":   5,
		"retry-backoff": 500 * time.Millisecond,
		"rps":           20.0,
		"burst":         5,
		"out":           "./data/segments.csv",
		"zoom":          0.3,
		"log-level":     "info",
	}
}

// LoadSnapshot merges config file, environment variables, and flags into SnapshotConfig.
func LoadSnapshot(cfgFile string, flags *pflag.FlagSet) (SnapshotConfig, error) {
	v, err := newViper(cfgFile, flags, snapshotDefaults())
	if err != nil {
		return SnapshotConfig{}, err
	}
	return snapshotFromViper(v)
}

func snapshotFromViper(v *viper.Viper) (SnapshotConfig, error) {
	cfg := SnapshotConfig{
		ChainReadConfig: ChainReadConfig{
			RPCURL:            v.GetString("rpc"),
			Concurrency:       v.GetInt("concurrency"),
			MaxRetries:        v.GetInt("max-retries"),
			RetryBackoff:      v.GetDuration("retry-backoff"),
			RequestsPerSecond: v.GetFloat64("rps"),
			Burst:             v.GetInt("burst"),
		},
		Pool:            v.GetString("pool"),
		Block:           v.GetUint64("block"),
		MinTick:         v.GetInt32("min-tick"),
		MaxTick:         v.GetInt32("max-tick"),
		Out:             v.GetString("out"),
		Zoom:            v.GetFloat64("zoom"),
		PGDSN:           v.GetString("pg-dsn"),
		SkipReserves:    v.GetBool("skip-reserves"),
		AllowUnreliable: v.GetBool("allow-unreliable"),
		LogLevel:        v.GetString("log-level"),
	}
	if err := cfg.Validate(); err != nil {
		return SnapshotConfig{}, err
	}
	return cfg, nil
}

// Validate checks the settings that do not need the network.
func (c SnapshotConfig) Validate() error {
	if c.MinTick > c.MaxTick {
		return fmt.Errorf("min-tick %d is above max-tick %d", c.MinTick, c.MaxTick)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.Zoom < 0 {
		return fmt.Errorf("zoom must not be negative")
	}
	return nil
}

// LoadWatch merges config file, environment variables, and flags into WatchConfig.
// The snapshot out path is ignored; frames are written under FramesDir.
func LoadWatch(cfgFile string, flags *pflag.FlagSet) (WatchConfig, error) {
	defaults := snapshotDefaults()
	defaults["interval"] = time.Minute
	defaults["count"] = 10
	defaults["frames-dir"] = "./data/frames"

	v, err := newViper(cfgFile, flags, defaults)
	if err != nil {
		return WatchConfig{}, err
	}

	snapshot, err := snapshotFromViper(v)
	if err != nil {
		return WatchConfig{}, err
	}

	cfg := WatchConfig{
		SnapshotConfig: snapshot,
		Interval:       v.GetDuration("interval"),
		Count:          v.GetInt("count"),
		FramesDir:      v.GetString("frames-dir"),
	}
	if cfg.Interval <= 0 {
		return WatchConfig{}, fmt.Errorf("interval must be positive")
	}
	if cfg.Count < 0 {
		return WatchConfig{}, fmt.Errorf("count must not be negative")
	}
	return cfg, nil
}
