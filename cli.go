package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"wave-portal-tui/config"
	"wave-portal-tui/helpers"
	"wave-portal-tui/portal"
	"wave-portal-tui/rpc"
	"wave-portal-tui/wallet"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
)

// runtimeConfig is the file config merged with the environment and global flags
type runtimeConfig struct {
	cfg  config.Config
	file config.Config
	path string
	env  config.Env
}

func (rc runtimeConfig) walletOptions() wallet.Options {
	return wallet.Options{
		PrivateKey:         rc.env.PrivateKey,
		KeystoreDir:        rc.env.KeystoreDir,
		KeystorePassphrase: rc.env.KeystorePassphrase,
		SignerURL:          rc.env.WalletRPCURL,
		PollInterval:       time.Duration(rc.cfg.PollInterval),
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "wave-portal",
		Usage: "Wave at the WavePortal contract from your terminal",
		Description: `Without a command the interactive portal starts.

The wallet is picked from PRIVATE_KEY, KEYSTORE_DIR or WALLET_RPC_URL, in that order.`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Config file path (default ~/.wave-portal-config.json, or $WAVE_CONFIG)",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "dotenv file loaded before reading the environment",
			},
			&cli.StringFlag{
				Name:  "rpc",
				Usage: "Ethereum RPC endpoint (overrides ETH_RPC_URL and the config file)",
			},
			&cli.StringFlag{
				Name:  "contract",
				Usage: "WavePortal contract address (overrides WAVE_CONTRACT and the config file)",
			},
		},
		Action: runTUI,
		Commands: []*cli.Command{
			wavesCommand(),
			countCommand(),
			sendCommand(),
			watchCommand(),
			accountsCommand(),
		},
	}
}

// loadRuntime resolves config path, .env, environment and flag overrides
func loadRuntime(c *cli.Context) (runtimeConfig, error) {
	env, err := config.LoadEnv(c.String("env-file"))
	if err != nil {
		return runtimeConfig{}, err
	}
	if c.IsSet("rpc") {
		env.RPCURL = strings.TrimSpace(c.String("rpc"))
	}
	if c.IsSet("contract") {
		env.Contract = strings.TrimSpace(c.String("contract"))
	}
	if env.Contract != "" && !helpers.IsValidEthAddress(env.Contract) {
		return runtimeConfig{}, fmt.Errorf("invalid contract address %q", env.Contract)
	}

	path := c.String("config")
	if path == "" {
		path = env.ConfigPath
	}
	if path == "" {
		path = config.DefaultPath()
	}

	file := config.LoadOrCreate(path)
	return runtimeConfig{cfg: env.Merge(file), file: file, path: path, env: env}, nil
}

func newCLILogger(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          "wave-portal",
	})
}

// dialPortal connects to the active endpoint and binds the contract
func dialPortal(rc runtimeConfig) (*rpc.Client, *portal.Client, error) {
	url := rc.cfg.ActiveRPC()
	if url == "" {
		return nil, nil, errors.New("no RPC endpoint configured (set ETH_RPC_URL or --rpc)")
	}
	res := rpc.Connect(url)
	if res.Error != nil {
		return nil, nil, res.Error
	}
	pc, err := portal.NewClient(common.HexToAddress(rc.cfg.Contract), res.Client,
		portal.WithPollInterval(time.Duration(rc.cfg.PollInterval)))
	if err != nil {
		res.Client.Close()
		return nil, nil, err
	}
	return res.Client, pc, nil
}

func runTUI(c *cli.Context) error {
	rc, err := loadRuntime(c)
	if err != nil {
		return err
	}

	m := newModel(rc.file, rc.env, rc.path, rc.walletOptions())
	p := tea.NewProgram(&m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()
	m.shutdown()
	return err
}

// -------------------- WAVES --------------------

// waveRecord is the JSON shape of a wave on stdout and the input to --jq filters
func waveRecord(w portal.Wave) map[string]any {
	return map[string]any{
		"address":   w.Address.Hex(),
		"timestamp": int(w.Timestamp.Unix()),
		"date":      w.Date,
		"message":   w.Message,
	}
}

func compileFilters(filters []string) ([]*gojq.Code, error) {
	codes := make([]*gojq.Code, len(filters))
	for i, filter := range filters {
		query, err := gojq.Parse(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
		}
		codes[i], err = gojq.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
		}
	}
	return codes, nil
}

// matchWave reports whether every filter yields a truthy first result for w
func matchWave(w portal.Wave, codes []*gojq.Code) bool {
	rec := waveRecord(w)
	for _, code := range codes {
		iter := code.Run(rec)
		v, ok := iter.Next()
		if !ok {
			return false
		}
		if _, isErr := v.(error); isErr {
			return false
		}
		if !isTruthy(v) {
			return false
		}
	}
	return true
}

// isTruthy checks if a jq result value is truthy.
// jq treats only null and false as false.
func isTruthy(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

func printWave(out io.Writer, w portal.Wave, asJSON bool) error {
	if asJSON {
		data, err := json.Marshal(waveRecord(w))
		if err != nil {
			return fmt.Errorf("failed to marshal wave: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	_, err := fmt.Fprintf(out, "%s  %s  %s\n", w.Date, w.Address.Hex(), w.Message)
	return err
}

func wavesCommand() *cli.Command {
	return &cli.Command{
		Name:  "waves",
		Usage: "List every wave stored in the contract",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print one JSON object per wave",
			},
			&cli.StringSliceFlag{
				Name:  "jq",
				Usage: "Only print waves for which this jq expression is truthy (repeatable, all must match)",
			},
		},
		Action: func(c *cli.Context) error {
			codes, err := compileFilters(c.StringSlice("jq"))
			if err != nil {
				return err
			}
			rc, err := loadRuntime(c)
			if err != nil {
				return err
			}
			client, pc, err := dialPortal(rc)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(c.Context, readTimeout)
			defer cancel()
			waves, err := pc.FetchAllWaves(ctx)
			if err != nil {
				return err
			}
			for _, w := range waves {
				if !matchWave(w, codes) {
					continue
				}
				if err := printWave(c.App.Writer, w, c.Bool("json")); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func countCommand() *cli.Command {
	return &cli.Command{
		Name:  "count",
		Usage: "Print the total number of waves",
		Action: func(c *cli.Context) error {
			rc, err := loadRuntime(c)
			if err != nil {
				return err
			}
			client, pc, err := dialPortal(rc)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(c.Context, readTimeout)
			defer cancel()
			n, err := pc.FetchTotalCount(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, n)
			return nil
		},
	}
}

// connectProvider detects the wallet and requests its accounts
func connectProvider(ctx context.Context, rc runtimeConfig, passphrase string) (wallet.Provider, common.Address, error) {
	p, ok := wallet.Detect(rc.walletOptions())
	if !ok {
		return nil, common.Address{}, errors.New("no wallet found: set PRIVATE_KEY, KEYSTORE_DIR or WALLET_RPC_URL")
	}
	if passphrase == "" {
		passphrase = rc.env.KeystorePassphrase
	}
	accs, err := p.RequestAccounts(ctx, passphrase)
	if err != nil {
		_ = p.Close()
		return nil, common.Address{}, err
	}
	if len(accs) == 0 {
		_ = p.Close()
		return nil, common.Address{}, wallet.ErrNoAccounts
	}
	return p, accs[0], nil
}

func sendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Send a wave with a message",
		ArgsUsage: "MESSAGE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "passphrase",
				Usage: "Keystore passphrase (defaults to KEYSTORE_PASSPHRASE)",
			},
		},
		Action: func(c *cli.Context) error {
			message := strings.Join(c.Args().Slice(), " ")
			if message == "" {
				return fmt.Errorf("message is required")
			}
			logger := newCLILogger(c.App.ErrWriter)

			rc, err := loadRuntime(c)
			if err != nil {
				return err
			}
			client, pc, err := dialPortal(rc)
			if err != nil {
				return err
			}
			defer client.Close()

			p, account, err := connectProvider(c.Context, rc, c.String("passphrase"))
			if err != nil {
				return err
			}
			defer p.Close()
			logger.Info("Connected", "wallet", p.Name(), "account", account.Hex())

			ctx, cancel := context.WithTimeout(c.Context, readTimeout)
			n, err := pc.FetchTotalCount(ctx)
			cancel()
			if err != nil {
				return err
			}
			logger.Info("Retrieved total wave count...", "count", n)

			opts, err := p.Transactor(c.Context, account, client.ChainID)
			if err != nil {
				return err
			}
			tx, err := pc.SubmitWave(c.Context, opts, message)
			if err != nil {
				return err
			}
			logger.Info("Mining...", "tx", tx.Hash().Hex())

			receipt, err := pc.WaitMined(c.Context, tx)
			if err != nil {
				return err
			}
			logger.Info("Mined --", "tx", tx.Hash().Hex(), "block", receipt.BlockNumber)

			ctx, cancel = context.WithTimeout(c.Context, readTimeout)
			defer cancel()
			n, err = pc.FetchTotalCount(ctx)
			if err != nil {
				return err
			}
			logger.Info("Retrieved total wave count...", "count", n)
			fmt.Fprintln(c.App.Writer, helpers.TxURL(rc.cfg.ExplorerURL, tx.Hash().Hex()))
			return nil
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Print new waves as they are mined",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print one JSON object per wave",
			},
		},
		Action: func(c *cli.Context) error {
			logger := newCLILogger(c.App.ErrWriter)

			rc, err := loadRuntime(c)
			if err != nil {
				return err
			}
			client, pc, err := dialPortal(rc)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			sink := make(chan portal.Wave, 16)
			sub, err := pc.WatchWaves(ctx, sink)
			if err != nil {
				return err
			}
			defer sub.Unsubscribe()
			logger.Info("Listening for NewWave events", "contract", pc.Address().Hex(), "rpc", client.URL)

			for {
				select {
				case w := <-sink:
					if err := printWave(c.App.Writer, w, c.Bool("json")); err != nil {
						return err
					}
				case err := <-sub.Err():
					return err
				case <-ctx.Done():
					logger.Info("Unsubscribed from NewWave")
					return nil
				}
			}
		},
	}
}

func accountsCommand() *cli.Command {
	return &cli.Command{
		Name:  "accounts",
		Usage: "Show the wallet that would be used and the accounts it grants",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "passphrase",
				Usage: "Keystore passphrase (defaults to KEYSTORE_PASSPHRASE)",
			},
		},
		Action: func(c *cli.Context) error {
			rc, err := loadRuntime(c)
			if err != nil {
				return err
			}
			p, account, err := connectProvider(c.Context, rc, c.String("passphrase"))
			if err != nil {
				return err
			}
			defer p.Close()

			fmt.Fprintf(c.App.Writer, "%s\t%s\n", p.Name(), account.Hex())
			return nil
		},
	}
}
