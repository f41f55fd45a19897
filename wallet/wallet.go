// Package wallet finds a signing wallet for the terminal and exposes it the
// way a browser-injected provider would: authorized accounts, an explicit
// connection request, an "accounts changed" stream and a transaction signer.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

var (
	// ErrNoAccounts is returned when a provider has nothing to grant.
	ErrNoAccounts = errors.New("wallet has no accounts")
	// ErrLocked is returned when signing is requested for an account that was not granted.
	ErrLocked = errors.New("account not connected")
)

// Provider is a wallet able to grant accounts and sign transactions.
type Provider interface {
	// Name identifies the provider kind in logs and the UI.
	Name() string
	// NeedsPassphrase reports whether RequestAccounts needs a passphrase from the user.
	NeedsPassphrase() bool
	// Accounts returns the accounts already granted, without prompting.
	Accounts(ctx context.Context) ([]common.Address, error)
	// RequestAccounts asks the wallet to grant access and returns the granted accounts.
	RequestAccounts(ctx context.Context, passphrase string) ([]common.Address, error)
	// Revoke drops every grant and notifies watchers with an empty account set.
	Revoke() error
	// WatchAccounts delivers the new account set whenever it changes.
	WatchAccounts(sink chan<- []common.Address) event.Subscription
	// Transactor returns signing options for a granted account.
	Transactor(ctx context.Context, account common.Address, chainID *big.Int) (*bind.TransactOpts, error)
	Close() error
}

// Options selects and configures the provider.
type Options struct {
	PrivateKey         string
	KeystoreDir        string
	KeystorePassphrase string
	SignerURL          string
	// LightKDF uses cheap scrypt parameters for keystore files (tests, dev chains).
	LightKDF bool
	// PollInterval is how often an external signer is asked for its accounts.
	PollInterval time.Duration
}

// Detect returns the first configured provider: raw key, keystore directory,
// then external signer. The boolean is false when no wallet is available.
// Detect never prompts. A ws:// or ipc signer URL is dialed here; HTTP
// signers are dialed lazily.
func Detect(opts Options) (Provider, bool) {
	p, _ := Find(opts)
	return p, p != nil
}

// Find is Detect that also reports why configured wallets were skipped.
// The reasons are returned even when a later wallet was picked.
func Find(opts Options) (Provider, []error) {
	var skipped []error

	if key := strings.TrimSpace(opts.PrivateKey); key != "" {
		p, err := NewKeyProvider(key)
		if err == nil {
			return p, skipped
		}
		skipped = append(skipped, fmt.Errorf("PRIVATE_KEY ignored: %w", err))
	}
	if dir := strings.TrimSpace(opts.KeystoreDir); dir != "" {
		fi, err := os.Stat(dir)
		switch {
		case err != nil:
			skipped = append(skipped, fmt.Errorf("KEYSTORE_DIR ignored: %w", err))
		case !fi.IsDir():
			skipped = append(skipped, fmt.Errorf("KEYSTORE_DIR ignored: %s is not a directory", dir))
		default:
			return NewKeystoreProvider(dir, opts.KeystorePassphrase, opts.LightKDF), skipped
		}
	}
	if url := strings.TrimSpace(opts.SignerURL); url != "" {
		p, err := DialSigner(url, opts.PollInterval)
		if err == nil {
			return p, skipped
		}
		skipped = append(skipped, fmt.Errorf("WALLET_RPC_URL ignored: %w", err))
	}
	return nil, skipped
}

func sameAccounts(a, b []common.Address) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
