package main

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/dslactl/internal/config"
	"github.com/danmuck/dslactl/internal/dsla"
	"github.com/danmuck/dslactl/internal/gateway"
	"github.com/danmuck/dslactl/internal/observability"
	"github.com/danmuck/dslactl/internal/payload"
	"github.com/danmuck/dslactl/internal/rpcaccess"
)

const defaultConfigPath = "dslactl.toml"

var errUsage = errors.New("usage: dslactl <decode|fetch|build|serve|config|tags> [flags]")

func main() {
	observability.InitLogger("dslactl")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "dslactl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "decode":
		return runDecode(args[1:], stdin, stdout)
	case "fetch":
		return runFetch(ctx, args[1:], stdout)
	case "build":
		return runBuild(args[1:], stdout)
	case "serve":
		return runServe(args[1:])
	case "config":
		return runConfig(args[1:], stdout)
	case "tags":
		return runTags(stdout)
	}
	return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
}

// loadConfig falls back to defaults only when the default path is absent.
func loadConfig(path string) (config.Config, error) {
	if path == defaultConfigPath {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

type accountOutput struct {
	Kind    string          `json:"kind"`
	Address string          `json:"address,omitempty"`
	Account json.RawMessage `json:"account"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runDecode(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	kind := fs.String("kind", dsla.KindAuto, "account kind, or auto to identify by tag")
	encoding := fs.String("encoding", "base64", "input encoding: base64 | hex | raw")
	input := fs.String("in", "-", "input file, - for stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var src io.Reader = stdin
	if *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	raw, err := decodeInput(*encoding, data)
	if err != nil {
		return err
	}

	k, rec, err := dsla.DecodeAccount(*kind, raw)
	if err != nil {
		return err
	}
	body, err := k.ToJSON(rec)
	if err != nil {
		return err
	}
	log.Debug().Str("kind", k.Name).Int("bytes", len(raw)).Msg("decoded account")
	return writeJSON(stdout, accountOutput{Kind: k.Name, Account: body})
}

func decodeInput(encoding string, data []byte) ([]byte, error) {
	switch encoding {
	case "raw":
		return data, nil
	case "base64":
		out, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("decode base64 input: %w", err)
		}
		return out, nil
	case "hex":
		out, err := hex.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("decode hex input: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown encoding %q", encoding)
}

func runFetch(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file")
	kind := fs.String("kind", "", "account kind (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *kind == "" || fs.NArg() != 1 {
		return errors.New("usage: dslactl fetch -kind <Kind> <address>")
	}
	addr, err := solana.PublicKeyFromBase58(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("parse address: %w", err)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	client := dsla.NewClient(rpcaccess.New(cfg.RPCEndpoint, cfg.AccessorOptions()...), cfg.ProgramID)

	k, rec, err := client.FetchRecord(ctx, *kind, addr)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%s %s: account not found", *kind, addr)
	}
	body, err := k.ToJSON(rec)
	if err != nil {
		return err
	}
	return writeJSON(stdout, accountOutput{Kind: k.Name, Address: addr.String(), Account: body})
}

type metaOutput struct {
	PublicKey  string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

type buildOutput struct {
	Operation string       `json:"operation"`
	ProgramID string       `json:"programId"`
	Data      string       `json:"data"`
	Accounts  []metaOutput `json:"accounts"`
}

// readArg returns v, or the contents of the file when v is @path.
func readArg(v string) ([]byte, error) {
	if path, ok := strings.CutPrefix(v, "@"); ok {
		return os.ReadFile(path)
	}
	return []byte(v), nil
}

func runBuild(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file")
	argsJSON := fs.String("args", "", "instruction arguments as JSON, or @file")
	accountsJSON := fs.String("accounts", "", "accounts by role as JSON, or @file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: dslactl build [-args json] [-accounts json] <operation>")
	}
	rawArgs, err := readArg(*argsJSON)
	if err != nil {
		return fmt.Errorf("read args: %w", err)
	}
	rawAccounts, err := readArg(*accountsJSON)
	if err != nil {
		return fmt.Errorf("read accounts: %w", err)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	b := payload.NewBuilder(cfg.ProgramID, cfg.BuilderOptions()...)
	p, err := dsla.BuildFromJSON(b, fs.Arg(0), rawArgs, rawAccounts)
	if err != nil {
		return err
	}
	data, err := p.Data()
	if err != nil {
		return err
	}

	out := buildOutput{
		Operation: p.Operation,
		ProgramID: p.ProgramID().String(),
		Data:      base64.StdEncoding.EncodeToString(data),
		Accounts:  make([]metaOutput, 0, len(p.Metas)),
	}
	for _, m := range p.Accounts() {
		out.Accounts = append(out.Accounts, metaOutput{PublicKey: m.PublicKey.String(), IsSigner: m.IsSigner, IsWritable: m.IsWritable})
	}
	log.Debug().Str("operation", p.Operation).Int("data_bytes", len(data)).Msg("built instruction")
	return writeJSON(stdout, out)
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file")
	addr := fs.String("addr", "", "listen address (overrides gateway.addr)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Gateway.Addr = *addr
	}
	log.Info().Str("path", *configPath).Str("rpc", cfg.RPCEndpoint).Msg("loaded dslactl config")

	client := dsla.NewClient(rpcaccess.New(cfg.RPCEndpoint, cfg.AccessorOptions()...), cfg.ProgramID)
	gw := gateway.New("dslactl", cfg.Gateway.Addr, cfg.Gateway.CorsOrigins, client)
	return gw.Serve()
}

func runConfig(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: dslactl config <init|validate> [flags]")
	}
	fs := flag.NewFlagSet("config "+args[0], flag.ContinueOnError)
	path := fs.String("path", defaultConfigPath, "config file")
	force := fs.Bool("force", false, "overwrite existing config file")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	switch args[0] {
	case "init":
		if err := config.WriteTemplate(*path, *force); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote config template to %s\n", *path)
		return nil
	case "validate":
		if _, err := config.Load(*path); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "validated config at %s\n", *path)
		return nil
	}
	return fmt.Errorf("unknown config command %q", args[0])
}

func runTags(stdout io.Writer) error {
	for _, k := range dsla.Accounts.Kinds() {
		fmt.Fprintf(stdout, "account    %-20s %s\n", k.Name, hex.EncodeToString(k.Tag[:]))
	}
	for _, op := range dsla.Operations {
		fmt.Fprintf(stdout, "operation  %-20s %s\n", op.Name, hex.EncodeToString(op.Tag[:]))
	}
	return nil
}
