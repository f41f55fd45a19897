package wallet

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

// KeystoreProvider signs with an encrypted go-ethereum keystore directory.
// Granting an account means unlocking it for the lifetime of the process.
type KeystoreProvider struct {
	ks         *keystore.KeyStore
	passphrase string

	mu      sync.Mutex
	granted *accounts.Account
	feed    event.Feed

	walletEvents chan accounts.WalletEvent
	walletSub    event.Subscription
	done         chan struct{}
}

// NewKeystoreProvider opens dir. A non-empty passphrase is used for
// RequestAccounts without asking the user.
func NewKeystoreProvider(dir, passphrase string, lightKDF bool) *KeystoreProvider {
	scryptN, scryptP := keystore.StandardScryptN, keystore.StandardScryptP
	if lightKDF {
		scryptN, scryptP = keystore.LightScryptN, keystore.LightScryptP
	}
	p := &KeystoreProvider{
		ks:           keystore.NewKeyStore(dir, scryptN, scryptP),
		passphrase:   passphrase,
		walletEvents: make(chan accounts.WalletEvent, 8),
		done:         make(chan struct{}),
	}
	p.walletSub = p.ks.Subscribe(p.walletEvents)
	go p.loop()
	return p
}

// KeyStore exposes the underlying keystore.
func (p *KeystoreProvider) KeyStore() *keystore.KeyStore { return p.ks }

func (p *KeystoreProvider) Name() string          { return "keystore" }
func (p *KeystoreProvider) NeedsPassphrase() bool { return p.passphrase == "" }

func (p *KeystoreProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.granted == nil {
		return nil, nil
	}
	return []common.Address{p.granted.Address}, nil
}

// RequestAccounts unlocks the first keystore account the passphrase opens.
func (p *KeystoreProvider) RequestAccounts(ctx context.Context, passphrase string) ([]common.Address, error) {
	if passphrase == "" {
		passphrase = p.passphrase
	}
	accs := p.ks.Accounts()
	if len(accs) == 0 {
		return nil, ErrNoAccounts
	}

	var lastErr error
	for _, acc := range accs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.ks.Unlock(acc, passphrase); err != nil {
			lastErr = err
			continue
		}
		acc := acc
		p.mu.Lock()
		p.granted = &acc
		p.mu.Unlock()
		return []common.Address{acc.Address}, nil
	}
	return nil, fmt.Errorf("unlock keystore: %w", lastErr)
}

func (p *KeystoreProvider) Revoke() error {
	p.mu.Lock()
	granted := p.granted
	p.granted = nil
	p.mu.Unlock()
	if granted != nil {
		if err := p.ks.Lock(granted.Address); err != nil {
			return err
		}
	}
	p.feed.Send([]common.Address{})
	return nil
}

func (p *KeystoreProvider) WatchAccounts(sink chan<- []common.Address) event.Subscription {
	return p.feed.Subscribe(sink)
}

func (p *KeystoreProvider) Transactor(ctx context.Context, account common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	p.mu.Lock()
	granted := p.granted
	p.mu.Unlock()
	if granted == nil || granted.Address != account {
		return nil, fmt.Errorf("%w: %s", ErrLocked, account.Hex())
	}
	opts, err := bind.NewKeyStoreTransactorWithChainID(p.ks, *granted, chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}

func (p *KeystoreProvider) Close() error {
	p.walletSub.Unsubscribe()
	<-p.done
	return nil
}

// loop drops the grant when its key file disappears from the directory.
func (p *KeystoreProvider) loop() {
	defer close(p.done)
	for {
		select {
		case ev := <-p.walletEvents:
			if ev.Kind != accounts.WalletDropped {
				continue
			}
			p.mu.Lock()
			dropped := p.granted != nil && ev.Wallet.Contains(*p.granted)
			if dropped {
				p.granted = nil
			}
			p.mu.Unlock()
			if dropped {
				p.feed.Send([]common.Address{})
			}
		case <-p.walletSub.Err():
			return
		}
	}
}
