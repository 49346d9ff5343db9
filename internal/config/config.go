package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/danmuck/dslactl/internal/dsla"
	"github.com/danmuck/dslactl/internal/payload"
	"github.com/danmuck/dslactl/internal/rpcaccess"
)

var ErrUnknownKeys = errors.New("config: unknown keys")

// Config is the resolved dslactl runtime configuration.
type Config struct {
	RPCEndpoint    string
	ProgramID      solana.PublicKey
	Commitment     rpc.CommitmentType
	RequestTimeout time.Duration
	ScratchSize    int
	MaxScratchSize int
	Gateway        GatewayConfig
}

type GatewayConfig struct {
	Addr        string
	CorsOrigins []string
}

// dslactl config.toml key mapping.
type fileConfig struct {
	RPCEndpoint    string            `toml:"rpc_endpoint"`
	ProgramID      string            `toml:"program_id"`
	Commitment     string            `toml:"commitment"`
	RequestTimeout string            `toml:"request_timeout"`
	ScratchSize    int               `toml:"scratch_size"`
	MaxScratchSize int               `toml:"max_scratch_size"`
	Gateway        gatewayFileConfig `toml:"gateway"`
}

type gatewayFileConfig struct {
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
}

func Default() Config {
	return Config{
		RPCEndpoint:    rpc.DevNet_RPC,
		ProgramID:      dsla.ProgramID,
		Commitment:     rpc.CommitmentConfirmed,
		RequestTimeout: 15 * time.Second,
		ScratchSize:    payload.DefaultScratchSize,
		MaxScratchSize: payload.DefaultMaxScratchSize,
		Gateway: GatewayConfig{
			Addr:        ":9300",
			CorsOrigins: []string{"http://localhost:3000"},
		},
	}
}

// Load reads path and overlays it on Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML text and overlays it on Default. Keys the file sets
// win; keys it omits keep their defaults.
func Parse(data string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%w: %s", ErrUnknownKeys, strings.Join(keys, ", "))
	}

	if meta.IsDefined("rpc_endpoint") {
		cfg.RPCEndpoint = strings.TrimSpace(raw.RPCEndpoint)
	}
	if meta.IsDefined("program_id") {
		id, err := solana.PublicKeyFromBase58(strings.TrimSpace(raw.ProgramID))
		if err != nil {
			return Config{}, fmt.Errorf("parse program_id: %w", err)
		}
		cfg.ProgramID = id
	}
	if meta.IsDefined("commitment") {
		c, err := rpcaccess.ParseCommitment(raw.Commitment)
		if err != nil {
			return Config{}, fmt.Errorf("parse commitment: %w", err)
		}
		cfg.Commitment = c
	}
	if meta.IsDefined("request_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.RequestTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse request_timeout: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if meta.IsDefined("scratch_size") {
		cfg.ScratchSize = raw.ScratchSize
	}
	if meta.IsDefined("max_scratch_size") {
		cfg.MaxScratchSize = raw.MaxScratchSize
	}
	if meta.IsDefined("gateway", "addr") {
		cfg.Gateway.Addr = strings.TrimSpace(raw.Gateway.Addr)
	}
	if meta.IsDefined("gateway", "cors_origins") {
		cfg.Gateway.CorsOrigins = normalizeOrigins(raw.Gateway.CorsOrigins)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.RPCEndpoint) == "" {
		return fmt.Errorf("config missing rpc_endpoint")
	}
	if cfg.ProgramID.IsZero() {
		return fmt.Errorf("config missing program_id")
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", cfg.RequestTimeout)
	}
	if cfg.ScratchSize <= 0 {
		return fmt.Errorf("scratch_size must be positive, got %d", cfg.ScratchSize)
	}
	if cfg.MaxScratchSize < cfg.ScratchSize {
		return fmt.Errorf("max_scratch_size %d below scratch_size %d", cfg.MaxScratchSize, cfg.ScratchSize)
	}
	if err := ValidateGatewayConfig(cfg.Gateway); err != nil {
		return fmt.Errorf("gateway invalid: %w", err)
	}
	return nil
}

func ValidateGatewayConfig(cfg GatewayConfig) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("addr is required")
	}
	for i, origin := range cfg.CorsOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("cors_origins[%d] %q must be * or an http(s) origin", i, origin)
		}
	}
	return nil
}

// BuilderOptions maps the scratch settings onto payload builder options.
func (c Config) BuilderOptions() []payload.Option {
	return []payload.Option{
		payload.WithScratchSize(c.ScratchSize),
		payload.WithMaxScratchSize(c.MaxScratchSize),
	}
}

// AccessorOptions maps the RPC settings onto accessor options.
func (c Config) AccessorOptions() []rpcaccess.Option {
	return []rpcaccess.Option{
		rpcaccess.WithCommitment(c.Commitment),
		rpcaccess.WithTimeout(c.RequestTimeout),
	}
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, o := range in {
		v := strings.TrimRight(strings.TrimSpace(o), "/")
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
